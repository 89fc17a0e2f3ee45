package lookahead

import (
	"fmt"
	"unsafe"

	"github.com/deepteams/lookahead/internal/pool"
)

// element lists the pointer-free types a Grid can hold; cells are carved
// directly out of allocator memory.
type element interface {
	int32 | uint16 | MV
}

// Grid is a rows x cols table of cells, each an independently allocated
// slice of Len elements. The Grid owns every cell and releases them as a
// unit.
type Grid[T element] struct {
	rows, cols, n int
	cells         [][]T
	raw           [][]byte
}

// Dims returns the number of rows and columns of cells.
func (g *Grid[T]) Dims() (rows, cols int) {
	return g.rows, g.cols
}

// Len returns the number of elements in each cell.
func (g *Grid[T]) Len() int {
	return g.n
}

// At returns cell (i, j). The result aliases the table.
func (g *Grid[T]) At(i, j int) []T {
	return g.cells[i*g.cols+j]
}

// alloc allocates every cell. On failure the cells allocated so far remain
// owned by g and are freed by release.
func (g *Grid[T]) alloc(a Allocator, rows, cols, n int) error {
	g.rows, g.cols, g.n = rows, cols, n
	g.cells = make([][]T, rows*cols)
	g.raw = make([][]byte, rows*cols)
	for i := range g.cells {
		cell, raw, err := allocSlice[T](a, n)
		if err != nil {
			return err
		}
		g.cells[i], g.raw[i] = cell, raw
	}
	return nil
}

// release frees every allocated cell, resets g and returns the number of
// bytes released.
func (g *Grid[T]) release(a Allocator) int {
	n := 0
	for _, raw := range g.raw {
		if raw != nil {
			n += len(raw)
			a.Free(raw)
		}
	}
	*g = Grid[T]{}
	return n
}

// bytes returns the allocator memory held by g.
func (g *Grid[T]) bytes() int {
	n := 0
	for _, raw := range g.raw {
		n += len(raw)
	}
	return n
}

// allocRaw allocates size bytes and checks the allocator's contract.
func allocRaw(a Allocator, size int) ([]byte, error) {
	b, err := a.Alloc(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrAlloc, size, err)
	}
	if len(b) < size {
		a.Free(b)
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrAlloc, len(b), size)
	}
	if !pool.IsAligned(b) {
		a.Free(b)
		return nil, ErrMisaligned
	}
	return b[:size], nil
}

// allocSlice allocates n elements of T and returns them together with the
// raw buffer that must later be passed to Free.
func allocSlice[T element](a Allocator, n int) ([]T, []byte, error) {
	var zero T
	raw, err := allocRaw(a, int(unsafe.Sizeof(zero))*n)
	if err != nil {
		return nil, nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(raw))), n), raw, nil
}
