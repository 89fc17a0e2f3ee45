package dsp

// extendBorder is the reference ExtendFunc. Rows are padded left and right
// first, then the fully padded top and bottom rows are copied outward, so
// the corners take the corner sample.
func extendBorder(buf []byte, off, stride, width, height, marginX, marginY int) {
	if width <= 0 || height <= 0 {
		return
	}
	for y := 0; y < height; y++ {
		row := off + y*stride
		left, right := buf[row], buf[row+width-1]
		l := buf[row-marginX : row]
		for i := range l {
			l[i] = left
		}
		r := buf[row+width : row+width+marginX]
		for i := range r {
			r[i] = right
		}
	}

	rowLen := width + 2*marginX
	top := off - marginX
	for y := 1; y <= marginY; y++ {
		copy(buf[top-y*stride:top-y*stride+rowLen], buf[top:top+rowLen])
	}
	bottom := top + (height-1)*stride
	for y := 1; y <= marginY; y++ {
		copy(buf[bottom+y*stride:bottom+y*stride+rowLen], buf[bottom:bottom+rowLen])
	}
}
