package pairs

import (
	"fmt"
	"testing"

	"github.com/phil-mansfield/cellgrid/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func periodicities(dim int) [][3]bool {
	out := [][3]bool{}
	for mask := 0; mask < 1<<dim; mask++ {
		var p [3]bool
		for k := 0; k < dim; k++ {
			p[k] = mask&(1<<k) != 0
		}
		out = append(out, p)
	}
	return out
}

// covered maps each ordered (cell, neighbor, shift) triple reachable through
// lists to the number of times it is reached. A pair reaches its reversal
// too, unless the reverse starts in a cell which isn't owned.
func covered(t *testing.T, top *Topology, lists *Lists) map[Pair]int {
	lo, hi := top.Owned()
	ownedIdx := map[int]bool{}
	var c geom.IVec
	for c[0] = lo[0]; c[0] < hi[0]; c[0]++ {
		for c[1] = lo[1]; c[1] < hi[1]; c[1]++ {
			for c[2] = lo[2]; c[2] < hi[2]; c[2]++ {
				ownedIdx[top.Idx(c)] = true
			}
		}
	}

	out := map[Pair]int{}
	for _, b := range lists.Buckets {
		for _, p := range b.Pairs {
			require.True(t, ownedIdx[p.A], "pair %v starts in a ghost cell", p)
			out[p]++
			if p.A == p.B && p.Shift.IsZero() {
				continue
			}
			if ownedIdx[p.B] {
				out[Pair{p.B, p.A, p.Shift.Neg()}]++
			}
		}
	}
	return out
}

// expected enumerates the full neighborhood of every owned cell directly.
func expected(top *Topology) map[Pair]bool {
	lo, hi := top.Owned()
	out := map[Pair]bool{}
	var c geom.IVec
	for c[0] = lo[0]; c[0] < hi[0]; c[0]++ {
		for c[1] = lo[1]; c[1] < hi[1]; c[1]++ {
			for c[2] = lo[2]; c[2] < hi[2]; c[2]++ {
				for _, d := range FullShell(top.Dim) {
					n := c.Add(d)
					var s geom.IVec
					for k := 0; k < top.Dim; k++ {
						r := n[k]
						if top.Distributed {
							r = n[k] - 1 + top.Offset[k]
						}
						switch {
						case r >= top.Global[k]:
							s[k] = 1
						case r < 0:
							s[k] = -1
						}
						if !top.Distributed {
							n[k] = pMod(n[k], top.Global[k])
						}
					}
					ok := true
					for k := 0; k < 3; k++ {
						if s[k] != 0 && !top.Periodic[k] {
							ok = false
						}
					}
					if ok {
						out[Pair{top.Idx(c), top.Idx(n), s}] = true
					}
				}
			}
		}
	}
	return out
}

func checkComplete(t *testing.T, top Topology) {
	name := fmt.Sprintf("%+v", top)
	lists, err := Build(top)
	require.NoError(t, err, name)
	require.NoError(t, lists.CheckDisjoint(), name)

	got := covered(t, &top, lists)
	exp := expected(&top)
	for p := range exp {
		if got[p] != 1 {
			t.Errorf("%s: pair %v covered %d times.", name, p, got[p])
		}
	}
	for p := range got {
		if !exp[p] {
			t.Errorf("%s: unexpected pair %v.", name, p)
		}
	}

	for i := range lists.Buckets {
		assert.NotEmpty(t, lists.Buckets[i].Pairs)
	}
}

func TestHalfShell(t *testing.T) {
	for _, dim := range []int{2, 3} {
		shell := HalfShell(dim)
		full := FullShell(dim)
		if dim == 3 {
			assert.Len(t, shell, 14)
			assert.Len(t, full, 27)
		} else {
			assert.Len(t, shell, 5)
			assert.Len(t, full, 9)
		}
		assert.Equal(t, geom.IVec{}, shell[0])

		seen := map[geom.IVec]bool{}
		for _, o := range shell {
			seen[o] = true
		}
		for _, o := range shell[1:] {
			assert.False(t, seen[o.Neg()], "%v and its mirror are both visited", o)
			assert.Equal(t, 1, o[leadingAxis(o)])
		}
		for _, o := range full {
			assert.True(t, seen[o] || seen[o.Neg()], "%v is never visited", o)
		}
	}
}

func TestBuildComplete(t *testing.T) {
	dims3 := []geom.IVec{
		{2, 2, 2}, {3, 3, 3}, {4, 4, 4}, {2, 3, 5}, {5, 2, 3}, {3, 4, 2},
	}
	for _, g := range dims3 {
		for _, p := range periodicities(3) {
			checkComplete(t, Topology{Dim: 3, Global: g, Local: g, Periodic: p})
		}
	}

	dims2 := []geom.IVec{{2, 2, 1}, {3, 3, 1}, {4, 5, 1}, {7, 2, 1}}
	for _, g := range dims2 {
		for _, p := range periodicities(2) {
			checkComplete(t, Topology{Dim: 2, Global: g, Local: g, Periodic: p})
		}
	}
}

func TestBuildDistributed(t *testing.T) {
	table := []struct {
		dim          int
		global, proc geom.IVec
	}{
		{3, geom.IVec{4, 4, 4}, geom.IVec{2, 2, 2}},
		{3, geom.IVec{6, 3, 4}, geom.IVec{3, 1, 2}},
		{3, geom.IVec{3, 3, 3}, geom.IVec{1, 1, 1}},
		{2, geom.IVec{6, 4, 1}, geom.IVec{2, 2, 1}},
	}

	for _, test := range table {
		var local geom.IVec
		for k := 0; k < 3; k++ {
			local[k] = test.global[k] / test.proc[k]
			if k < test.dim {
				local[k] += 2
			}
		}

		var coord geom.IVec
		for coord[0] = 0; coord[0] < test.proc[0]; coord[0]++ {
			for coord[1] = 0; coord[1] < test.proc[1]; coord[1]++ {
				for coord[2] = 0; coord[2] < test.proc[2]; coord[2]++ {
					var offset geom.IVec
					for k := 0; k < 3; k++ {
						offset[k] = coord[k] * test.global[k] / test.proc[k]
					}
					for _, p := range periodicities(test.dim) {
						checkComplete(t, Topology{
							Dim: test.dim, Global: test.global, Local: local,
							Offset: offset, Periodic: p, Distributed: true,
						})
					}
				}
			}
		}
	}
}

func TestScenarioPair(t *testing.T) {
	g := geom.IVec{4, 4, 4}
	top := Topology{Dim: 3, Global: g, Local: g, Periodic: [3]bool{true, true, true}}
	lists, err := Build(top)
	require.NoError(t, err)

	a, b := top.Idx(geom.IVec{3, 3, 3}), top.Idx(geom.IVec{0, 0, 0})
	n := 0
	for _, bucket := range lists.Buckets {
		for _, p := range bucket.Pairs {
			if p == (Pair{a, b, geom.IVec{1, 1, 1}}) {
				n++
			}
			if p == (Pair{b, a, geom.IVec{-1, -1, -1}}) {
				n++
			}
		}
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, 64*14, lists.Len())
}

func TestBuildErrors(t *testing.T) {
	g := geom.IVec{400, 400, 400}
	_, err := Build(Topology{Dim: 3, Global: g, Local: g})
	var ae *AllocationError
	assert.ErrorAs(t, err, &ae)

	bad := []Topology{
		{Dim: 4, Global: geom.IVec{2, 2, 2}, Local: geom.IVec{2, 2, 2}},
		{Dim: 3, Global: geom.IVec{2, 2, 0}, Local: geom.IVec{2, 2, 0}},
		{Dim: 2, Global: geom.IVec{2, 2, 2}, Local: geom.IVec{2, 2, 2}},
		{Dim: 3, Global: geom.IVec{4, 4, 4}, Local: geom.IVec{2, 2, 2}},
		{Dim: 3, Global: geom.IVec{4, 4, 4}, Local: geom.IVec{2, 6, 6},
			Distributed: true},
	}
	for i, top := range bad {
		if _, err := Build(top); err == nil {
			t.Errorf("%d) Expected an error for %+v.", i, top)
		}
	}
}

func TestCheckDisjoint(t *testing.T) {
	l := &Lists{Buckets: []Bucket{{Pairs: []Pair{{0, 1, geom.IVec{}}, {1, 2, geom.IVec{}}}}}}
	assert.Error(t, l.CheckDisjoint())
	l = &Lists{Buckets: []Bucket{
		{Pairs: []Pair{{0, 0, geom.IVec{}}, {1, 1, geom.IVec{}}}},
		{Pairs: []Pair{{0, 1, geom.IVec{}}}},
	}}
	assert.NoError(t, l.CheckDisjoint())
}

func BenchmarkBuild(b *testing.B) {
	g := geom.IVec{32, 32, 32}
	top := Topology{Dim: 3, Global: g, Local: g, Periodic: [3]bool{true, true, true}}
	for i := 0; i < b.N; i++ {
		if _, err := Build(top); err != nil {
			b.Fatal(err)
		}
	}
}
