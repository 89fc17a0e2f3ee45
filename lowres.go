package lookahead

import (
	"fmt"

	"github.com/deepteams/lookahead/internal/dsp"
	"github.com/deepteams/lookahead/internal/pool"
)

// PlaneRef locates a subpel plane: the backing buffer it lives in and the
// offset of its (0, 0) sample. A PlaneRef never owns memory.
type PlaneRef struct {
	Buffer int
	Offset int
}

// subpelBuffer maps a quarter-pel position [qx][qy] to the backing buffer
// holding its samples. Only the four half-pel positions have planes of their
// own (0 full, 1 horizontal half, 2 vertical half, 3 diagonal half); each
// quarter-pel position uses the half-pel plane at or before it on each axis.
// Quarter-pel accuracy is therefore not reached, and cost estimates built
// on these planes depend on that.
var subpelBuffer = [4][4]int{
	{0, 0, 2, 2},
	{0, 0, 2, 2},
	{1, 1, 3, 3},
	{1, 1, 3, 3},
}

// primaryPlanes are the half-pel positions written by the downscale filter,
// in the filter's output order.
var primaryPlanes = [4][2]int{{0, 0}, {2, 0}, {0, 2}, {2, 2}}

// Lowres is the half-resolution lookahead representation of one frame slot.
// Create allocates it for a fixed geometry and window depth, Init refills it
// from a new source frame, and Destroy releases it.
//
// Table layout, with b = BFrames:
//
//	IntraCost         NumCUs entries
//	RowSatds[y][x]    (b+2) x (b+2) cells of CURows entries
//	LowresCosts[y][x] (b+2) x (b+2) cells of NumCUs entries
//	MVs[d][i]         2 x (b+1) cells of NumCUs vectors
//	MVCosts[d][i]     2 x (b+1) cells of NumCUs entries
type Lowres struct {
	IsLowres bool
	BFrames  int

	Width, Lines     int // half the source size
	Stride           int // row stride of every plane, a multiple of 32
	MarginX, MarginY int
	NumCUs, CURows   int

	IntraCalculated bool
	IntraCost       []int32
	RowSatds        Grid[int32]
	LowresCosts     Grid[uint16]
	MVs             Grid[MV]
	MVCosts         Grid[int32]

	SliceType SliceType
	CostEst   [MaxBFrames + 2][MaxBFrames + 2]int32

	buffers  [4][]byte
	planes   [4][4]PlaneRef
	intraRaw []byte
	alloc    Allocator
	ready    bool
}

// NewLowres allocates a Lowres for frames of geometry geom and a lookahead
// window of bframes. If allocation fails, everything allocated so far is
// released before returning.
func NewLowres(geom Geometry, bframes int, opts *Options) (*Lowres, error) {
	l := new(Lowres)
	if err := l.Create(geom, bframes, opts); err != nil {
		l.Destroy()
		return nil, err
	}
	return l, nil
}

// Created reports whether l is fully allocated and ready for Init.
func (l *Lowres) Created() bool {
	return l.ready
}

func validateGeometry(geom Geometry) error {
	switch {
	case geom.Width() < 2 || geom.Height() < 2:
		return fmt.Errorf("%w: %dx%d frame is too small to downscale", ErrGeometry, geom.Width(), geom.Height())
	case geom.MarginX() < 0 || geom.MarginY() < 0:
		return fmt.Errorf("%w: negative margin %dx%d", ErrGeometry, geom.MarginX(), geom.MarginY())
	case geom.NumCUs() < 1 || geom.CURows() < 1 || geom.CURows() > geom.NumCUs():
		return fmt.Errorf("%w: %d CUs in %d rows", ErrGeometry, geom.NumCUs(), geom.CURows())
	}
	return nil
}

// Create allocates the planes and tables of l. It must be called on a zero
// or destroyed Lowres; on one that still owns memory it returns ErrInUse.
//
// An allocation failure is returned wrapping ErrAlloc. Create does not roll
// back: l keeps whatever it allocated and the caller must call Destroy.
func (l *Lowres) Create(geom Geometry, bframes int, opts *Options) error {
	if l.alloc != nil {
		return ErrInUse
	}
	if bframes < 0 || bframes > MaxBFrames {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrDepth, bframes, MaxBFrames)
	}
	if err := validateGeometry(geom); err != nil {
		return err
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	a := opts.Allocator
	if a == nil {
		a = pool.Aligned{}
	}

	l.alloc = a
	l.IsLowres = true
	l.BFrames = bframes
	l.Width = geom.Width() / 2
	l.Lines = geom.Height() / 2
	l.MarginX = geom.MarginX()
	l.MarginY = geom.MarginY()
	l.NumCUs = geom.NumCUs()
	l.CURows = geom.CURows()
	l.Stride = dsp.AlignUp(l.Width+2*l.MarginX, dsp.StrideAlign)

	if err := l.allocate(); err != nil {
		Logger().Warn("lowres: allocation failed",
			"width", l.Width, "lines", l.Lines, "bframes", bframes, "err", err)
		return err
	}
	l.ready = true

	Logger().Debug("lowres: created",
		"width", l.Width, "lines", l.Lines, "stride", l.Stride,
		"bframes", bframes, "cus", l.NumCUs, "bytes", l.Footprint())
	return nil
}

func (l *Lowres) allocate() error {
	a := l.alloc
	for i := range l.buffers {
		b, err := allocRaw(a, l.PlaneSize())
		if err != nil {
			return fmt.Errorf("plane %d: %w", i, err)
		}
		l.buffers[i] = b
	}

	padOffset := l.Stride*l.MarginY + l.MarginX
	for qx := range l.planes {
		for qy := range l.planes[qx] {
			l.planes[qx][qy] = PlaneRef{Buffer: subpelBuffer[qx][qy], Offset: padOffset}
		}
	}

	intra, raw, err := allocSlice[int32](a, l.NumCUs)
	if err != nil {
		return fmt.Errorf("intra costs: %w", err)
	}
	l.IntraCost, l.intraRaw = intra, raw

	pairs := l.BFrames + 2
	if err := l.RowSatds.alloc(a, pairs, pairs, l.CURows); err != nil {
		return fmt.Errorf("row costs: %w", err)
	}
	if err := l.LowresCosts.alloc(a, pairs, pairs, l.NumCUs); err != nil {
		return fmt.Errorf("block costs: %w", err)
	}
	if err := l.MVs.alloc(a, 2, l.BFrames+1, l.NumCUs); err != nil {
		return fmt.Errorf("motion vectors: %w", err)
	}
	if err := l.MVCosts.alloc(a, 2, l.BFrames+1, l.NumCUs); err != nil {
		return fmt.Errorf("motion vector costs: %w", err)
	}
	return nil
}

func (l *Lowres) checkSource(src Source) error {
	if src.Width()/2 != l.Width || src.Height()/2 != l.Lines {
		return fmt.Errorf("%w: %dx%d source for %dx%d lowres frame",
			ErrGeometry, src.Width(), src.Height(), l.Width, l.Lines)
	}
	// The filter reads column 2*Width and row 2*Lines.
	if 2*l.Width >= src.Width()+src.MarginX() || 2*l.Lines >= src.Height()+src.MarginY() {
		return fmt.Errorf("%w: source needs a border of at least one sample", ErrGeometry)
	}
	buf, off, stride := src.Luma()
	if off < 0 || stride < src.Width()+1 || off+2*l.Lines*stride+2*l.Width >= len(buf) {
		return fmt.Errorf("%w: source plane of %d bytes (offset %d, stride %d) is too short",
			ErrGeometry, len(buf), off, stride)
	}
	return nil
}

// Init prepares l for a new frame: it marks every cached cost and table as
// not yet computed, downscales src into the four half-pel planes and
// extends their borders. Nothing is reallocated, and no state from the
// previous frame survives.
func (l *Lowres) Init(src Source) error {
	if !l.ready {
		return ErrNotCreated
	}
	if err := l.checkSource(src); err != nil {
		return err
	}

	l.IntraCalculated = false
	for i := range l.CostEst {
		for j := range l.CostEst[i] {
			l.CostEst[i][j] = CostUnset
		}
	}
	l.SliceType = SliceAuto

	pairs := l.BFrames + 2
	for y := 0; y < pairs; y++ {
		for x := 0; x < pairs; x++ {
			l.RowSatds.At(y, x)[0] = RowCostUnknown
		}
	}
	for i := 0; i < l.BFrames+1; i++ {
		l.MVs.At(DirForward, i)[0].X = MVUnsearched
		l.MVs.At(DirBackward, i)[0].X = MVUnsearched
	}

	buf, off, stride := src.Luma()
	var dst [4][]byte
	for i, p := range primaryPlanes {
		dst[i], _ = l.Plane(p[0], p[1])
	}
	origin := l.planes[0][0].Offset
	dsp.FrameInitLowres(buf, off, stride,
		dst[0], dst[1], dst[2], dst[3],
		origin, l.Stride, l.Width, l.Lines)

	for _, p := range primaryPlanes {
		plane, poff := l.Plane(p[0], p[1])
		dsp.ExtendBorder(plane, poff, l.Stride, l.Width, l.Lines, l.MarginX, l.MarginY)
	}
	return nil
}

// Destroy releases every buffer l owns and resets it to the zero value. It
// is safe on a zero, partially created or already destroyed Lowres.
func (l *Lowres) Destroy() {
	a := l.alloc
	if a == nil {
		return
	}
	n := 0
	for i, b := range l.buffers {
		if b != nil {
			n += len(b)
			a.Free(b)
			l.buffers[i] = nil
		}
	}
	if l.intraRaw != nil {
		n += len(l.intraRaw)
		a.Free(l.intraRaw)
	}
	n += l.RowSatds.release(a)
	n += l.LowresCosts.release(a)
	n += l.MVs.release(a)
	n += l.MVCosts.release(a)

	bframes := l.BFrames
	*l = Lowres{}
	Logger().Debug("lowres: destroyed", "bframes", bframes, "bytes", n)
}

// PlaneSize returns the size in bytes of each backing buffer, margins
// included.
func (l *Lowres) PlaneSize() int {
	return l.Stride * (l.Lines + 2*l.MarginY)
}

// PlaneRef returns the location of the plane for quarter-pel position
// (qx, qy), each in [0, 4).
func (l *Lowres) PlaneRef(qx, qy int) PlaneRef {
	return l.planes[qx][qy]
}

// Plane returns the backing buffer of the plane for quarter-pel position
// (qx, qy) and the offset of its (0, 0) sample. Samples in the margin are
// at negative offsets from it.
func (l *Lowres) Plane(qx, qy int) (buf []byte, off int) {
	ref := l.planes[qx][qy]
	return l.buffers[ref.Buffer], ref.Offset
}

// Buffer returns backing buffer i in [0, 4).
func (l *Lowres) Buffer(i int) []byte {
	return l.buffers[i]
}

// Row returns the Width visible samples of row y of the plane for
// quarter-pel position (qx, qy). y may address margin rows.
func (l *Lowres) Row(qx, qy, y int) []byte {
	buf, off := l.Plane(qx, qy)
	start := off + y*l.Stride
	return buf[start : start+l.Width : start+l.Width]
}

// RowCostsStale reports whether the RowSatds cell for frame offsets
// (b0, b1) has not been computed since the last Init.
func (l *Lowres) RowCostsStale(b0, b1 int) bool {
	return l.RowSatds.At(b0, b1)[0] == RowCostUnknown
}

// MVsUnsearched reports whether the vectors for direction dir at frame
// distance dist have not been searched since the last Init.
func (l *Lowres) MVsUnsearched(dir, dist int) bool {
	return l.MVs.At(dir, dist)[0].X == MVUnsearched
}

// Footprint returns the number of allocator bytes l currently holds.
func (l *Lowres) Footprint() int {
	n := len(l.intraRaw)
	for _, b := range l.buffers {
		n += len(b)
	}
	return n + l.RowSatds.bytes() + l.LowresCosts.bytes() + l.MVs.bytes() + l.MVCosts.bytes()
}
