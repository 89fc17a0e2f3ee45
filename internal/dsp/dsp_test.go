package dsp

import (
	"math/rand"
	"testing"
)

func TestAlignUp(t *testing.T) {
	tests := []struct {
		v, unit, want int
	}{
		{0, 32, 0},
		{1, 32, 32},
		{31, 32, 32},
		{32, 32, 32},
		{33, 32, 64},
		{48, 32, 64},
		{64, 32, 64},
		{7, 1, 7},
		{10, 3, 12},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.v, tt.unit); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.v, tt.unit, got, tt.want)
		}
	}
}

func TestAlignUpProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 1000; iter++ {
		v := rng.Intn(1 << 16)
		got := AlignUp(v, StrideAlign)
		if got%StrideAlign != 0 {
			t.Fatalf("AlignUp(%d) = %d, not a multiple of %d", v, got, StrideAlign)
		}
		if got < v || got-v >= StrideAlign {
			t.Fatalf("AlignUp(%d) = %d, out of range", v, got)
		}
	}
}

// testPlane is a padded plane for primitive tests.
type testPlane struct {
	buf                   []byte
	off, stride           int
	width, height, mx, my int
}

func newTestPlane(width, height, mx, my int) *testPlane {
	stride := width + 2*mx
	return &testPlane{
		buf:    make([]byte, stride*(height+2*my)),
		off:    my*stride + mx,
		stride: stride,
		width:  width, height: height, mx: mx, my: my,
	}
}

func (p *testPlane) at(x, y int) byte { return p.buf[p.off+y*p.stride+x] }

func (p *testPlane) set(x, y int, v byte) { p.buf[p.off+y*p.stride+x] = v }

// downscale runs FrameInitLowres on src and returns the four output planes.
func downscale(src *testPlane) [4]*testPlane {
	w, h := src.width/2, src.height/2
	var dst [4]*testPlane
	for i := range dst {
		dst[i] = newTestPlane(w, h, 4, 4)
	}
	FrameInitLowres(src.buf, src.off, src.stride,
		dst[0].buf, dst[1].buf, dst[2].buf, dst[3].buf,
		dst[0].off, dst[0].stride, w, h)
	return dst
}

func TestFrameInitLowresFlat(t *testing.T) {
	src := newTestPlane(16, 16, 2, 2)
	for i := range src.buf {
		src.buf[i] = 77
	}
	for i, d := range downscale(src) {
		for y := 0; y < d.height; y++ {
			for x := 0; x < d.width; x++ {
				if v := d.at(x, y); v != 77 {
					t.Fatalf("plane %d (%d,%d) = %d, want 77", i, x, y, v)
				}
			}
		}
	}
}

func TestFrameInitLowresHorizontalRamp(t *testing.T) {
	src := newTestPlane(32, 8, 2, 2)
	for y := -2; y < src.height+2; y++ {
		for x := -2; x < src.width+2; x++ {
			src.set(x, y, byte(x+2))
		}
	}
	d := downscale(src)
	for y := 0; y < 4; y++ {
		for x := 0; x < 16; x++ {
			// Source column c holds c+2.
			want0 := byte(2*x + 3)
			wantH := byte(2*x + 4)
			if got := d[0].at(x, y); got != want0 {
				t.Errorf("full (%d,%d) = %d, want %d", x, y, got, want0)
			}
			if got := d[1].at(x, y); got != wantH {
				t.Errorf("hpel-h (%d,%d) = %d, want %d", x, y, got, wantH)
			}
			if got := d[2].at(x, y); got != want0 {
				t.Errorf("hpel-v (%d,%d) = %d, want %d", x, y, got, want0)
			}
			if got := d[3].at(x, y); got != wantH {
				t.Errorf("hpel-c (%d,%d) = %d, want %d", x, y, got, wantH)
			}
		}
	}
}

func TestFrameInitLowresVerticalRamp(t *testing.T) {
	src := newTestPlane(8, 32, 2, 2)
	for y := -2; y < src.height+2; y++ {
		for x := -2; x < src.width+2; x++ {
			src.set(x, y, byte(y+2))
		}
	}
	d := downscale(src)
	for y := 0; y < 16; y++ {
		for x := 0; x < 4; x++ {
			want0 := byte(2*y + 3)
			wantV := byte(2*y + 4)
			if got := d[0].at(x, y); got != want0 {
				t.Errorf("full (%d,%d) = %d, want %d", x, y, got, want0)
			}
			if got := d[1].at(x, y); got != want0 {
				t.Errorf("hpel-h (%d,%d) = %d, want %d", x, y, got, want0)
			}
			if got := d[2].at(x, y); got != wantV {
				t.Errorf("hpel-v (%d,%d) = %d, want %d", x, y, got, wantV)
			}
			if got := d[3].at(x, y); got != wantV {
				t.Errorf("hpel-c (%d,%d) = %d, want %d", x, y, got, wantV)
			}
		}
	}
}

func TestFrameInitLowresRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	src := newTestPlane(40, 24, 1, 1)
	for i := range src.buf {
		src.buf[i] = byte(rng.Intn(256))
	}
	d := downscale(src)
	avg := func(a, b int) int { return (a + b + 1) / 2 }
	px := func(x, y int) int { return int(src.at(x, y)) }
	// box returns the filtered sample whose top-left source is (x, y).
	box := func(x, y int) byte {
		return byte(avg(avg(px(x, y), px(x, y+1)), avg(px(x+1, y), px(x+1, y+1))))
	}
	for y := 0; y < 12; y++ {
		for x := 0; x < 20; x++ {
			want := [4]byte{box(2*x, 2*y), box(2*x+1, 2*y), box(2*x, 2*y+1), box(2*x+1, 2*y+1)}
			for i := range d {
				if got := d[i].at(x, y); got != want[i] {
					t.Fatalf("plane %d (%d,%d) = %d, want %d", i, x, y, got, want[i])
				}
			}
		}
	}
}

func TestFrameInitLowresLeavesMarginsAlone(t *testing.T) {
	src := newTestPlane(8, 8, 1, 1)
	w, h := 4, 4
	dst := newTestPlane(w, h, 3, 3)
	for i := range dst.buf {
		dst.buf[i] = 0xEE
	}
	FrameInitLowres(src.buf, src.off, src.stride, dst.buf, dst.buf, dst.buf, dst.buf, dst.off, dst.stride, w, h)
	for y := -3; y < h+3; y++ {
		for x := -3; x < w+3; x++ {
			inside := x >= 0 && x < w && y >= 0 && y < h
			if v := dst.at(x, y); !inside && v != 0xEE {
				t.Fatalf("margin (%d,%d) = 0x%02x, want untouched", x, y, v)
			}
		}
	}
}

func TestExtendBorder(t *testing.T) {
	p := newTestPlane(5, 4, 3, 2)
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			p.set(x, y, byte(10*y+x+1))
		}
	}
	ExtendBorder(p.buf, p.off, p.stride, p.width, p.height, p.mx, p.my)

	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	for y := -p.my; y < p.height+p.my; y++ {
		for x := -p.mx; x < p.width+p.mx; x++ {
			cx, cy := clamp(x, 0, p.width-1), clamp(y, 0, p.height-1)
			want := byte(10*cy + cx + 1)
			if got := p.at(x, y); got != want {
				t.Errorf("(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestExtendBorderZeroMargin(t *testing.T) {
	p := newTestPlane(4, 4, 0, 0)
	for i := range p.buf {
		p.buf[i] = byte(i)
	}
	want := append([]byte(nil), p.buf...)
	ExtendBorder(p.buf, p.off, p.stride, p.width, p.height, 0, 0)
	for i := range p.buf {
		if p.buf[i] != want[i] {
			t.Fatalf("byte %d changed: %d -> %d", i, want[i], p.buf[i])
		}
	}
}

func TestFeatures(t *testing.T) {
	if Features() == "" {
		t.Error("Features() returned empty string")
	}
	if HasAVX2() && HasNEON() {
		t.Error("AVX2 and NEON reported on the same CPU")
	}
}

func BenchmarkFrameInitLowres(b *testing.B) {
	src := newTestPlane(1920, 1080, 32, 32)
	w, h := 960, 540
	var dst [4]*testPlane
	for i := range dst {
		dst[i] = newTestPlane(w, h, 32, 32)
	}
	b.SetBytes(int64(1920 * 1080))
	for i := 0; i < b.N; i++ {
		FrameInitLowres(src.buf, src.off, src.stride,
			dst[0].buf, dst[1].buf, dst[2].buf, dst[3].buf,
			dst[0].off, dst[0].stride, w, h)
	}
}

func BenchmarkExtendBorder(b *testing.B) {
	p := newTestPlane(960, 540, 32, 32)
	for i := 0; i < b.N; i++ {
		ExtendBorder(p.buf, p.off, p.stride, p.width, p.height, p.mx, p.my)
	}
}
