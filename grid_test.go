package lookahead

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/deepteams/lookahead/internal/pool"
)

func TestGridAllocRelease(t *testing.T) {
	c := pool.NewCounting(nil)
	var g Grid[MV]
	if err := g.alloc(c, 3, 5, 7); err != nil {
		t.Fatal(err)
	}
	if r, cols := g.Dims(); r != 3 || cols != 5 || g.Len() != 7 {
		t.Fatalf("dims %dx%d len %d", r, cols, g.Len())
	}
	if s := c.Stats(); s.Live != 15 || s.LiveBytes != 15*7*int(unsafe.Sizeof(MV{})) {
		t.Errorf("stats = %+v", s)
	}
	if g.bytes() != 15*7*4 {
		t.Errorf("bytes = %d", g.bytes())
	}

	// Cells are independent.
	g.At(2, 4)[6] = MV{X: 1, Y: 2}
	g.At(0, 0)[0] = MV{X: -1}
	if g.At(2, 4)[6] != (MV{X: 1, Y: 2}) || g.At(2, 3)[6] != (MV{}) {
		t.Error("cells overlap")
	}

	if n := g.release(c); n != 15*7*4 {
		t.Errorf("release = %d bytes", n)
	}
	if s := c.Stats(); s.Live != 0 || s.BadFrees != 0 {
		t.Errorf("stats after release = %+v", s)
	}
	if r, cols := g.Dims(); r != 0 || cols != 0 {
		t.Error("release did not reset dims")
	}
	// Releasing again frees nothing.
	if n := g.release(c); n != 0 {
		t.Errorf("second release = %d bytes", n)
	}
}

func TestGridPartialAlloc(t *testing.T) {
	c := pool.NewCounting(pool.NewFailing(nil, 5))
	var g Grid[int32]
	err := g.alloc(c, 3, 3, 10)
	if !errors.Is(err, ErrAlloc) {
		t.Fatalf("err = %v, want ErrAlloc", err)
	}
	if s := c.Stats(); s.Live != 5 {
		t.Fatalf("Live = %d, want 5", s.Live)
	}
	g.release(c)
	if s := c.Stats(); s.Live != 0 {
		t.Errorf("Live = %d after release", s.Live)
	}
}

func TestAllocSliceElementSizes(t *testing.T) {
	var a pool.Aligned
	i32, raw, err := allocSlice[int32](a, 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(i32) != 9 || len(raw) != 36 {
		t.Errorf("int32: len %d raw %d", len(i32), len(raw))
	}
	a.Free(raw)

	u16, raw, err := allocSlice[uint16](a, 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(u16) != 9 || len(raw) != 18 {
		t.Errorf("uint16: len %d raw %d", len(u16), len(raw))
	}
	u16[8] = 0xFFFF
	if raw[16] != 0xFF || raw[17] != 0xFF {
		t.Error("slice does not alias its raw buffer")
	}
	a.Free(raw)
}
