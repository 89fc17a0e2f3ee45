package dsp

// avg2 is the rounded average of two samples.
func avg2(a, b byte) byte {
	return byte((uint16(a) + uint16(b) + 1) >> 1)
}

// frameInitLowres is the reference LowresFunc. For output sample (x, y)
// with source rows r0=2y, r1=2y+1, r2=2y+2 and columns c=2x:
//
//	dst0 = avg(avg(r0[c],   r1[c]),   avg(r0[c+1], r1[c+1]))
//	dstH = avg(avg(r0[c+1], r1[c+1]), avg(r0[c+2], r1[c+2]))
//	dstV = avg(avg(r1[c],   r2[c]),   avg(r1[c+1], r2[c+1]))
//	dstC = avg(avg(r1[c+1], r2[c+1]), avg(r1[c+2], r2[c+2]))
func frameInitLowres(src []byte, srcOff, srcStride int,
	dst0, dstH, dstV, dstC []byte,
	dstOff, dstStride, width, height int) {
	for y := 0; y < height; y++ {
		r0 := src[srcOff+2*y*srcStride:]
		r1 := r0[srcStride:]
		r2 := r1[srcStride:]
		d := dstOff + y*dstStride
		row0 := dst0[d : d+width]
		rowH := dstH[d : d+width]
		rowV := dstV[d : d+width]
		rowC := dstC[d : d+width]
		for x := 0; x < width; x++ {
			c := 2 * x
			v0 := avg2(r0[c], r1[c])
			v1 := avg2(r0[c+1], r1[c+1])
			v2 := avg2(r0[c+2], r1[c+2])
			w0 := avg2(r1[c], r2[c])
			w1 := avg2(r1[c+1], r2[c+1])
			w2 := avg2(r1[c+2], r2[c+2])
			row0[x] = avg2(v0, v1)
			rowH[x] = avg2(v1, v2)
			rowV[x] = avg2(w0, w1)
			rowC[x] = avg2(w1, w2)
		}
	}
}
