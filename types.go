package lookahead

import (
	"errors"
	"fmt"

	"github.com/deepteams/lookahead/internal/pool"
)

// MaxBFrames is the deepest lookahead window a Lowres can be created for.
const MaxBFrames = 16

// Sentinels marking table entries that have not been computed since the
// last Init.
const (
	// RowCostUnknown in element 0 of a RowSatds cell marks the whole cell stale.
	RowCostUnknown int32 = -1
	// MVUnsearched as the X of element 0 of an MVs cell marks the whole cell unsearched.
	MVUnsearched int16 = 0x7FFF
	// CostUnset marks a CostEst entry with no cached result.
	CostUnset int32 = -1
)

// Motion vector table directions.
const (
	DirForward  = 0 // vectors into past frames
	DirBackward = 1 // vectors into future frames
)

// Errors returned by Lowres and Picture.
var (
	ErrAlloc      = errors.New("lookahead: allocation failed")
	ErrGeometry   = errors.New("lookahead: invalid frame geometry")
	ErrDepth      = errors.New("lookahead: lookahead depth out of range")
	ErrNotCreated = errors.New("lookahead: lowres frame not created")
	ErrInUse      = errors.New("lookahead: lowres frame still owns buffers")
	ErrMisaligned = errors.New("lookahead: allocator returned a misaligned buffer")
)

// MV is a motion vector in quarter-pel units of the lowres plane.
type MV struct {
	X, Y int16
}

// SliceType is the coding type the lookahead currently expects for a frame.
type SliceType int

// Slice types.
const (
	SliceAuto SliceType = iota
	SliceIDR
	SliceI
	SliceP
	SliceBRef
	SliceB
)

var sliceTypeNames = [...]string{"auto", "IDR", "I", "P", "Bref", "B"}

func (t SliceType) String() string {
	if t >= 0 && int(t) < len(sliceTypeNames) {
		return sliceTypeNames[t]
	}
	return fmt.Sprintf("SliceType(%d)", int(t))
}

// Geometry describes a full-resolution frame and the coding-unit grid its
// lookahead tables are sized by.
type Geometry interface {
	Width() int   // luma width in samples
	Height() int  // luma height in samples
	MarginX() int // horizontal border padding in samples
	MarginY() int // vertical border padding in rows
	NumCUs() int  // coding units per frame
	CURows() int  // coding-unit rows per frame
}

// Source is a full-resolution frame that can be downscaled into a Lowres.
// Luma returns the plane buffer, the offset of sample (0, 0) and the row
// stride. The filter reads one sample right of and below the visible area,
// so the border around the plane must already be extended.
type Source interface {
	Geometry
	Luma() (buf []byte, off, stride int)
}

// Allocator provides the backing memory of a Lowres. Alloc must return
// buffers whose first byte is 32-byte aligned. Free is called exactly once
// for every buffer Alloc returned.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(b []byte)
}

// Options controls how a Lowres allocates.
type Options struct {
	// Allocator backs every plane and table. Nil selects a pooled,
	// 32-byte aligned allocator.
	Allocator Allocator
}

// DefaultOptions returns the options used when nil is passed.
func DefaultOptions() *Options {
	return &Options{Allocator: pool.Aligned{}}
}
