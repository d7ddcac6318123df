package force

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// soft is a smooth test potential which vanishes at the cutoff.
func soft(r float64) (u, dudr float64) {
	x := cutoff - r
	return x * x * x * x, -4 * x * x * x
}

func TestTabulated(t *testing.T) {
	n := 1001
	rs, us := make([]float64, n), make([]float64, n)
	for i := range rs {
		rs[i] = 0.5 + 2.5*float64(i)/float64(n-1)
		us[i], _ = soft(math.Min(rs[i], cutoff))
	}
	tab, err := NewTabulated(rs, us, cutoff)
	require.NoError(t, err)

	p := system(t, 6)
	d := &Driver{Workers: 3, Passes: tab.Passes()}
	e, err := d.Compute(context.Background(), p)
	require.NoError(t, err)
	s := collect(p)

	pot, virial, forces := brute(s.pos, func(_, _ int, r float64) (float64, float64) {
		return soft(r)
	})
	assert.InDelta(t, pot, e.Pot, 1e-4*math.Abs(pot))
	assert.InDelta(t, virial, e.Virial, 1e-3*math.Abs(virial))
	assertVecs(t, forces, s.force, 1e-3)
	assertMomentum(t, s.force)
}

func TestNewTabulated(t *testing.T) {
	rs := []float64{1, 2, 3}
	us := []float64{1, 0.5, 0}
	_, err := NewTabulated(rs, us, 4)
	assert.Error(t, err, "cutoff past the table")
	_, err = NewTabulated(rs, us, 0)
	assert.Error(t, err)
	_, err = NewTabulated(rs, us[:2], 2)
	assert.Error(t, err)

	tab, err := NewTabulated(rs, us, 3)
	require.NoError(t, err)
	assert.Len(t, tab.Passes(), 1)
}
