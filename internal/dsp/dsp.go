// Package dsp holds the pixel primitives used to build lowres lookahead
// frames: the 2:1 half-pel downscale filter and plane border extension.
package dsp

// StrideAlign is the unit lowres plane strides are rounded up to, so that
// every row starts on a boundary suitable for 256-bit vector loads.
const StrideAlign = 32

// LowresFunc downsamples a full-resolution luma plane by two in each
// direction and writes four half-pel phases at once: dst0 (integer), dstH
// (horizontal half), dstV (vertical half) and dstC (diagonal half).
//
// Planes are passed as a buffer plus the offset of the plane origin, so that
// margin samples before the origin stay addressable. The filter reads one
// column right of and one row below the source block, so src must carry at
// least one sample of extended border on those sides.
type LowresFunc func(src []byte, srcOff, srcStride int,
	dst0, dstH, dstV, dstC []byte,
	dstOff, dstStride, width, height int)

// ExtendFunc replicates the edge samples of the width x height plane whose
// origin is buf[off] into marginX columns on each side and marginY rows above
// and below.
type ExtendFunc func(buf []byte, off, stride, width, height, marginX, marginY int)

// Dispatch variables. Init sets them to the pure-Go implementations.
var (
	FrameInitLowres LowresFunc
	ExtendBorder    ExtendFunc
)

// AlignUp rounds v up to the next multiple of unit. unit must be positive.
func AlignUp(v, unit int) int {
	if r := v % unit; r != 0 {
		return v + unit - r
	}
	return v
}

// Init installs the pure-Go implementations.
func Init() {
	FrameInitLowres = frameInitLowres
	ExtendBorder = extendBorder
}

func init() {
	Init()
}
