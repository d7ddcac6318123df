package cell

import (
	"fmt"
	"strings"
)

// Tensor is a symmetric 3x3 tensor stored as its six independent components.
type Tensor [6]float64

// Indices into a Tensor.
const (
	XX = iota
	YY
	ZZ
	YZ
	ZX
	XY
)

// NeighborTable is a per-particle list of neighbor ids. Storage order inside
// a cell is not stable, so neighbors are referred to by id, never by slot.
type NeighborTable []int64

// LayoutConfig names the optional channels carried by every cell.
type LayoutConfig struct {
	Scalars, Vectors, Tensors []string
	// Accumulators lists channels (of any kind) which are zeroed at the start
	// of every force evaluation.
	Accumulators []string
	Neighbors    bool
}

type kind int

const (
	scalarKind kind = iota
	vectorKind
	tensorKind
)

func (k kind) String() string {
	switch k {
	case scalarKind:
		return "scalar"
	case vectorKind:
		return "vector"
	case tensorKind:
		return "tensor"
	}
	panic("impossible")
}

type channel struct {
	kind kind
	idx  int
}

// Layout is the runtime description of a cell's optional columns. All
// cells of a grid share one Layout.
type Layout struct {
	Scalars, Vectors, Tensors []string
	// ScalarAccum[i] is true if Scalars[i] is an accumulator, and likewise
	// for the other kinds.
	ScalarAccum, VectorAccum, TensorAccum []bool
	Neighbors                             bool

	index map[string]channel
}

// NewLayout validates a LayoutConfig and returns the corresponding Layout.
// Channel names must be non-blank and unique across all kinds.
func NewLayout(config LayoutConfig) (*Layout, error) {
	l := &Layout{
		Scalars:   append([]string{}, config.Scalars...),
		Vectors:   append([]string{}, config.Vectors...),
		Tensors:   append([]string{}, config.Tensors...),
		Neighbors: config.Neighbors,
		index:     map[string]channel{},
	}
	l.ScalarAccum = make([]bool, len(l.Scalars))
	l.VectorAccum = make([]bool, len(l.Vectors))
	l.TensorAccum = make([]bool, len(l.Tensors))

	groups := []struct {
		k     kind
		names []string
	}{{scalarKind, l.Scalars}, {vectorKind, l.Vectors}, {tensorKind, l.Tensors}}
	for _, g := range groups {
		for i, name := range g.names {
			if strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("cell: %s channel %d has a blank name", g.k, i)
			}
			if _, ok := l.index[name]; ok {
				return nil, fmt.Errorf("cell: channel name '%s' is used twice", name)
			}
			l.index[name] = channel{g.k, i}
		}
	}

	for _, name := range config.Accumulators {
		ch, ok := l.index[name]
		if !ok {
			return nil, fmt.Errorf(
				"cell: accumulator '%s' is not a declared channel", name,
			)
		}
		switch ch.kind {
		case scalarKind:
			l.ScalarAccum[ch.idx] = true
		case vectorKind:
			l.VectorAccum[ch.idx] = true
		case tensorKind:
			l.TensorAccum[ch.idx] = true
		}
	}

	return l, nil
}

// Scalar returns the column index of a scalar channel.
func (l *Layout) Scalar(name string) (int, bool) { return l.lookup(name, scalarKind) }

// Vector returns the column index of a vector channel.
func (l *Layout) Vector(name string) (int, bool) { return l.lookup(name, vectorKind) }

// Tensor returns the column index of a tensor channel.
func (l *Layout) Tensor(name string) (int, bool) { return l.lookup(name, tensorKind) }

func (l *Layout) lookup(name string, k kind) (int, bool) {
	ch, ok := l.index[name]
	if !ok || ch.kind != k {
		return -1, false
	}
	return ch.idx, true
}
