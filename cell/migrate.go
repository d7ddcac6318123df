package cell

// Location is the storage position of a particle.
type Location struct {
	Cell, Slot int
}

// Registry maps particle ids to their current storage location. It is kept
// current by a Migrator and is not safe for concurrent use.
type Registry struct {
	locs map[int64]Location
}

func NewRegistry() *Registry {
	return &Registry{locs: map[int64]Location{}}
}

// Put records that particle id lives in the given cell and slot.
func (r *Registry) Put(id int64, cell, slot int) {
	r.locs[id] = Location{cell, slot}
}

// Get returns the location of particle id.
func (r *Registry) Get(id int64) (Location, bool) {
	loc, ok := r.locs[id]
	return loc, ok
}

func (r *Registry) Delete(id int64) { delete(r.locs, id) }
func (r *Registry) Len() int { return len(r.locs) }
func (r *Registry) Reset() { clear(r.locs) }

// Index records the location of every live particle of c.
func (r *Registry) Index(c *Cell) {
	for i := 0; i < c.N; i++ {
		r.locs[c.ID[i]] = Location{c.Index, i}
	}
}

// Migrator moves particles between cells. If Registry is non-nil, it is
// updated for every particle whose slot changes.
type Migrator struct {
	Registry *Registry
}

// Move transfers the particle in slot i of src to the end of dst and returns
// its new slot. The slot is filled by the last particle of src, so the order
// of src is not preserved. The destination's neighbor table is left empty.
//
// Moving a particle within a single cell exchanges it with the last live
// particle.
//
// Move panics with an *IndexError if i is not a live slot of src.
func (m *Migrator) Move(dst, src *Cell, i int) (int, error) {
	src.check("Move", i)
	if dst.Layout != src.Layout {
		panic("cell: Move called on cells with different layouts.")
	}

	last := src.N - 1

	if dst == src {
		if i != last {
			m.swap(src, i, last)
		}
		return last, nil
	}

	if dst.N == dst.Cap {
		if err := dst.Grow(); err != nil {
			return -1, err
		}
	}

	j := dst.N
	copyEntry(dst, j, src, i)
	if dst.Neighbors != nil {
		dst.Neighbors[j] = dst.Neighbors[j][:0]
	}
	dst.N++

	if i != last {
		copyEntry(src, i, src, last)
		if src.Neighbors != nil {
			src.Neighbors[i], src.Neighbors[last] =
				src.Neighbors[last], src.Neighbors[i][:0]
		}
	}
	src.N--

	if m.Registry != nil {
		m.Registry.Put(dst.ID[j], dst.Index, j)
		if i != last {
			m.Registry.Put(src.ID[i], src.Index, i)
		}
	}

	return j, nil
}

func (m *Migrator) swap(c *Cell, i, j int) {
	var ni, nj NeighborTable
	if c.Neighbors != nil {
		ni, nj = c.Neighbors[i], c.Neighbors[j]
	}
	pi, pj := c.Get(i), c.Get(j)
	c.set(i, pj)
	c.set(j, pi)
	if c.Neighbors != nil {
		c.Neighbors[i], c.Neighbors[j] = nj, ni
	}
	if m.Registry != nil {
		m.Registry.Put(c.ID[i], c.Index, i)
		m.Registry.Put(c.ID[j], c.Index, j)
	}
}
