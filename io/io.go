package io

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/phil-mansfield/cellgrid/cell"
	"github.com/phil-mansfield/cellgrid/geom"
)

const (
	// Endianness used by default when writing checkpoints. Checkpoints of
	// any endianness can be read.
	DefaultEndiannessFlag int32 = 0
)

/*
The binary format used for checkpoints is as follows:
    |-- 1 --||-- 2 --||-- ... 3 ... --||-- ... 4 ... --|

    1 - (int32) Flag indicating the endianness of the file. 0 indicates a
        little endian byte ordering and -1 indicates a big endian byte order.
    2 - (int32) Size of a CheckpointHeader struct. Checked for consistency.
    3 - (CheckpointHeader) Meta-information about the run.
    4 - Contiguous blocks of Count entries each: ids ([]int64),
        species ([]int64), masses ([]float64), positions ([][3]float64), and
        momenta ([][3]float64).
*/
type CheckpointHeader struct {
	Count     int64
	Step      int64
	Dimension int64
	Time      float64
	Lattice   [3]geom.Vec
}

// endianness converts an endianness flag to a byte order.
func endianness(flag int32) (binary.ByteOrder, error) {
	switch flag {
	case 0:
		return binary.LittleEndian, nil
	case -1:
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("Unrecognized endianness flag %d.", flag)
}

// WriteCheckpoint writes the core fields of ps to file. h.Count is set to
// len(ps).
func WriteCheckpoint(file string, h *CheckpointHeader, ps []cell.Particle) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err = writeCheckpoint(f, h, ps); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCheckpoint(w io.Writer, h *CheckpointHeader, ps []cell.Particle) error {
	order, _ := endianness(DefaultEndiannessFlag)
	h.Count = int64(len(ps))

	ids := make([]int64, len(ps))
	species := make([]int64, len(ps))
	masses := make([]float64, len(ps))
	xs := make([]geom.Vec, len(ps))
	ms := make([]geom.Vec, len(ps))
	for i := range ps {
		ids[i], species[i] = ps[i].ID, int64(ps[i].Species)
		masses[i] = ps[i].Mass
		xs[i], ms[i] = ps[i].Pos, ps[i].Mom
	}

	blocks := []interface{}{
		DefaultEndiannessFlag, int32(binary.Size(h)), h,
		ids, species, masses, xs, ms,
	}
	for _, b := range blocks {
		if err := binary.Write(w, order, b); err != nil {
			return err
		}
	}
	return nil
}

// ReadCheckpoint reads a file written by WriteCheckpoint.
func ReadCheckpoint(file string) (*CheckpointHeader, []cell.Particle, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return readCheckpoint(f, file)
}

func readCheckpoint(
	r io.Reader, file string,
) (*CheckpointHeader, []cell.Particle, error) {
	// order doesn't matter for this read, since flags are symmetric.
	var flag int32
	if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
		return nil, nil, err
	}
	order, err := endianness(flag)
	if err != nil {
		return nil, nil, err
	}

	h := &CheckpointHeader{}
	var headerSize int32
	if err := binary.Read(r, order, &headerSize); err != nil {
		return nil, nil, err
	}
	if int(headerSize) != binary.Size(h) {
		return nil, nil, fmt.Errorf(
			"Expected CheckpointHeader size of %d in %s, found %d.",
			binary.Size(h), file, headerSize,
		)
	}
	if err := binary.Read(r, order, h); err != nil {
		return nil, nil, err
	}
	if h.Count < 0 || h.Count > cell.MaxCapacity*64 {
		return nil, nil, fmt.Errorf(
			"Checkpoint %s has an invalid particle count %d.", file, h.Count,
		)
	}

	n := int(h.Count)
	ids := make([]int64, n)
	species := make([]int64, n)
	masses := make([]float64, n)
	xs := make([]geom.Vec, n)
	ms := make([]geom.Vec, n)
	for _, b := range []interface{}{ids, species, masses, xs, ms} {
		if err := binary.Read(r, order, b); err != nil {
			return nil, nil, fmt.Errorf("Reading %s: %w", file, err)
		}
	}

	ps := make([]cell.Particle, n)
	for i := range ps {
		ps[i].ID, ps[i].Species = ids[i], int(species[i])
		ps[i].Mass = masses[i]
		ps[i].Pos, ps[i].Mom = xs[i], ms[i]
	}
	return h, ps, nil
}
