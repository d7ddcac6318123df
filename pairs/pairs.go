/*package pairs enumerates the interacting pairs of grid cells and splits
them into buckets which can each be processed in parallel.

Every cell is paired with itself and with one neighbor out of each mirrored
pair of offsets, so each unordered pair of neighboring cells (and each of
their periodic images) is visited exactly once. Within a bucket no cell
belongs to more than one Pair, so a force kernel may write to both cells of
a pair without synchronizing with the other pairs of the same bucket.

Bucket keys are (pass, offset, class). For an offset o with leading axis a,
pairs starting at cell c are placed in class c[a] % 2, except that the last
cell of an odd periodic axis wraps onto cell 0 and gets a class of its own.
Two pairs with the same offset can then only share a cell if one starts
where the other ends, and those two starts differ in class.
*/
package pairs

import (
	"fmt"
	"sort"

	"github.com/phil-mansfield/cellgrid/geom"
)

// MaxPairs is the largest number of pairs a single Build may produce.
const MaxPairs = 1 << 28

// AllocationError is returned when the pair buffer would be too large.
type AllocationError struct {
	Requested int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf(
		"pairs: cannot allocate storage for %d cell pairs (limit is %d)",
		e.Requested, MaxPairs,
	)
}

// Pair is an interacting pair of cells. The image of B which interacts with
// A is translated by Shift lattice vectors.
type Pair struct {
	A, B  int
	Shift geom.IVec
}

// Topology describes the grid that pairs are being built for.
type Topology struct {
	// Dim is the number of active axes.
	Dim int
	// Global is the number of cells along each axis of the whole box and
	// Local is the number of cells in the local grid. Without a process grid
	// these are equal. In a distributed grid Local includes one ghost cell
	// on each side of every active axis, and Offset is the global
	// coordinate of the first owned cell.
	Global, Local, Offset geom.IVec
	Periodic              [3]bool
	Distributed           bool
}

// Owned returns the half-open range of local coordinates owned by this
// process.
func (t *Topology) Owned() (lo, hi geom.IVec) {
	if !t.Distributed {
		return geom.IVec{}, t.Local
	}
	for k := 0; k < 3; k++ {
		if k < t.Dim {
			lo[k], hi[k] = 1, t.Local[k]-1
		} else {
			lo[k], hi[k] = 0, 1
		}
	}
	return lo, hi
}

// Idx returns the flat index of a local coordinate.
func (t *Topology) Idx(c geom.IVec) int {
	return c[0]*t.Local[1]*t.Local[2] + c[1]*t.Local[2] + c[2]
}

func (t *Topology) validate() error {
	if t.Dim != 2 && t.Dim != 3 {
		return fmt.Errorf("pairs: dimension must be 2 or 3, not %d", t.Dim)
	}
	for k := 0; k < 3; k++ {
		if t.Global[k] < 1 || t.Local[k] < 1 {
			return fmt.Errorf(
				"pairs: grid dimensions %v (local %v) must be positive",
				t.Global, t.Local,
			)
		}
		if k >= t.Dim && (t.Global[k] != 1 || t.Local[k] != 1) {
			return fmt.Errorf(
				"pairs: inactive axis %d must have one cell, not %d",
				k, t.Global[k],
			)
		}
		if !t.Distributed && t.Local[k] != t.Global[k] {
			return fmt.Errorf(
				"pairs: local dimensions %v differ from global dimensions %v",
				t.Local, t.Global,
			)
		}
		if t.Distributed && k < t.Dim && t.Local[k] < 3 {
			return fmt.Errorf(
				"pairs: distributed axis %d has no owned cells", k,
			)
		}
	}
	return nil
}

// Bucket is a set of pairs which share no cells.
type Bucket struct {
	// Offset is the stencil offset that produced these pairs. Ghost is true
	// for the buckets of the second distributed pass, where ghost
	// neighbors are reached through -Offset.
	Offset geom.IVec
	Ghost  bool
	Class  int
	Pairs  []Pair
}

// Lists is the full set of pair buckets for a grid. Buckets must be
// processed one after another, the pairs within a bucket in any order.
type Lists struct {
	Buckets []Bucket
}

// Len returns the total number of pairs.
func (l *Lists) Len() int {
	n := 0
	for i := range l.Buckets {
		n += len(l.Buckets[i].Pairs)
	}
	return n
}

// CheckDisjoint returns an error if any cell appears in more than one pair of
// a bucket.
func (l *Lists) CheckDisjoint() error {
	for b := range l.Buckets {
		seen := map[int]int{}
		for i, p := range l.Buckets[b].Pairs {
			for _, c := range [2]int{p.A, p.B} {
				if j, ok := seen[c]; ok && j != i {
					return fmt.Errorf(
						"pairs: cell %d appears in pairs %v and %v of bucket %d",
						c, l.Buckets[b].Pairs[j], p, b,
					)
				}
				seen[c] = i
			}
		}
	}
	return nil
}

type key struct {
	ghost  bool
	offset int
	class  int
}

// Build enumerates the interacting cell pairs of a grid.
func Build(t Topology) (*Lists, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	stencil := HalfShell(t.Dim)
	lo, hi := t.Owned()
	owned := 1
	for k := 0; k < 3; k++ {
		owned *= hi[k] - lo[k]
	}
	size := owned * len(stencil)
	if t.Distributed {
		size += owned * (len(stencil) - 1)
	}
	if size > MaxPairs || size < 0 {
		return nil, &AllocationError{size}
	}

	buckets := map[key][]Pair{}
	var c geom.IVec
	for c[0] = lo[0]; c[0] < hi[0]; c[0]++ {
		for c[1] = lo[1]; c[1] < hi[1]; c[1]++ {
			for c[2] = lo[2]; c[2] < hi[2]; c[2]++ {
				for oi, o := range stencil {
					p, ok := t.forward(c, o)
					if ok {
						k := key{false, oi, t.class(c, o)}
						buckets[k] = append(buckets[k], p)
					}

					if !t.Distributed || o.IsZero() {
						continue
					}
					p, ok = t.ghost(c, o, lo, hi)
					if ok {
						k := key{true, oi, t.class(c, o)}
						buckets[k] = append(buckets[k], p)
					}
				}
			}
		}
	}

	keys := make([]key, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ghost != b.ghost {
			return !a.ghost
		}
		if a.offset != b.offset {
			return a.offset < b.offset
		}
		return a.class < b.class
	})

	lists := &Lists{Buckets: make([]Bucket, len(keys))}
	for i, k := range keys {
		lists.Buckets[i] = Bucket{
			Offset: stencil[k.offset], Ghost: k.ghost,
			Class: k.class, Pairs: buckets[k],
		}
	}
	return lists, nil
}

// forward pairs c with its neighbor at c + o.
func (t *Topology) forward(c, o geom.IVec) (Pair, bool) {
	n := c.Add(o)
	var shift geom.IVec
	for k := 0; k < t.Dim; k++ {
		if t.Distributed {
			shift[k] = shiftOf(n[k]-1+t.Offset[k], t.Global[k])
		} else {
			shift[k] = shiftOf(n[k], t.Global[k])
			n[k] = pMod(n[k], t.Global[k])
		}
		if shift[k] != 0 && !t.Periodic[k] {
			return Pair{}, false
		}
	}
	return Pair{t.Idx(c), t.Idx(n), shift}, true
}

// ghost pairs c with its neighbor at c - o if that neighbor is a ghost cell.
// Owned neighbors on that side are already covered by their own forward
// pairs.
func (t *Topology) ghost(c, o, lo, hi geom.IVec) (Pair, bool) {
	n := c.Sub(o)
	isGhost := false
	for k := 0; k < t.Dim; k++ {
		if n[k] < lo[k] || n[k] >= hi[k] {
			isGhost = true
		}
	}
	if !isGhost {
		return Pair{}, false
	}

	var shift geom.IVec
	for k := 0; k < t.Dim; k++ {
		shift[k] = shiftOf(n[k]-1+t.Offset[k], t.Global[k])
		if shift[k] != 0 && !t.Periodic[k] {
			return Pair{}, false
		}
	}
	return Pair{t.Idx(c), t.Idx(n), shift}, true
}

// class returns the bucket class of the pair starting at c with offset o.
func (t *Topology) class(c, o geom.IVec) int {
	a := leadingAxis(o)
	if a < 0 {
		return 0
	}
	g := t.Global[a]
	if !t.Distributed && t.Periodic[a] && g%2 == 1 && c[a] == g-1 {
		return 2
	}
	return c[a] % 2
}
