package pool

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// Align is the byte alignment of every buffer handed out by Aligned.
// Lowres plane strides are rounded to the same unit.
const Align = 32

// PoisonByte is written over every buffer released through Poison.
const PoisonByte = 0xDB

// Errors returned by the allocators.
var (
	ErrExhausted    = errors.New("pool: allocation limit reached")
	ErrNegativeSize = errors.New("pool: negative allocation size")
)

// Allocator hands out byte buffers and takes them back. Free must accept
// nil and must be called at most once per buffer returned by Alloc.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(b []byte)
}

// IsAligned reports whether the first byte of b sits on an Align boundary.
// Slices with no backing array are considered aligned.
func IsAligned(b []byte) bool {
	if cap(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))%Align == 0
}

// alignOffset returns how many bytes to skip from the start of b to reach
// the next Align boundary.
func alignOffset(b []byte) int {
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return int((Align - p%Align) % Align)
}

// Aligned allocates zeroed, Align-aligned buffers from the bucketed pools.
type Aligned struct{}

// Alloc returns a zeroed slice of exactly size bytes.
func (Aligned) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeSize, size)
	}
	raw := Get(size + Align - 1)
	off := alignOffset(raw)
	b := raw[off : off+size]
	clear(b)
	return b, nil
}

// Free hands b back to the pool.
func (Aligned) Free(b []byte) {
	Put(b)
}

func orDefault(a Allocator) Allocator {
	if a == nil {
		return Aligned{}
	}
	return a
}

// Stats is a snapshot of a Counting allocator.
type Stats struct {
	Allocs    int // successful Alloc calls
	Frees     int // Free calls that released a live buffer
	Live      int // buffers allocated and not yet freed
	LiveBytes int // bytes held by live buffers
	BadFrees  int // Free calls on buffers that were not live
}

// Counting wraps an Allocator and tracks every live buffer. It is safe for
// concurrent use.
type Counting struct {
	inner Allocator

	mu    sync.Mutex
	live  map[*byte]int
	stats Stats
}

// NewCounting returns a Counting allocator over inner (Aligned if nil).
func NewCounting(inner Allocator) *Counting {
	return &Counting{inner: orDefault(inner), live: make(map[*byte]int)}
}

// Alloc allocates through the inner allocator and records the buffer.
func (c *Counting) Alloc(size int) ([]byte, error) {
	b, err := c.inner.Alloc(size)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.live[unsafe.SliceData(b)] = len(b)
	c.stats.Allocs++
	c.stats.Live++
	c.stats.LiveBytes += len(b)
	c.mu.Unlock()
	return b, nil
}

// Free releases b if it is live. Unknown or already freed buffers are
// counted in Stats.BadFrees and not passed on.
func (c *Counting) Free(b []byte) {
	if b == nil {
		return
	}
	key := unsafe.SliceData(b)
	c.mu.Lock()
	n, ok := c.live[key]
	if !ok {
		c.stats.BadFrees++
		c.mu.Unlock()
		return
	}
	delete(c.live, key)
	c.stats.Frees++
	c.stats.Live--
	c.stats.LiveBytes -= n
	c.mu.Unlock()
	c.inner.Free(b)
}

// Stats returns a snapshot of the counters.
func (c *Counting) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Poison wraps an Allocator and, instead of releasing buffers, overwrites
// them with PoisonByte and keeps them so that later writes through stale
// references can be detected with Check.
type Poison struct {
	inner Allocator

	mu    sync.Mutex
	freed [][]byte
}

// NewPoison returns a Poison allocator over inner (Aligned if nil).
func NewPoison(inner Allocator) *Poison {
	return &Poison{inner: orDefault(inner)}
}

// Alloc allocates through the inner allocator.
func (p *Poison) Alloc(size int) ([]byte, error) {
	return p.inner.Alloc(size)
}

// Free poisons b and retains it.
func (p *Poison) Free(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = PoisonByte
	}
	p.mu.Lock()
	p.freed = append(p.freed, b)
	p.mu.Unlock()
}

// Freed returns the number of buffers released so far.
func (p *Poison) Freed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.freed)
}

// Check returns an error naming the first freed buffer that no longer
// holds PoisonByte everywhere.
func (p *Poison) Check() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, b := range p.freed {
		for j, v := range b {
			if v != PoisonByte {
				return fmt.Errorf("pool: freed buffer %d (len %d) written at byte %d: 0x%02x", i, len(b), j, v)
			}
		}
	}
	return nil
}

// Release returns every retained buffer to the inner allocator.
func (p *Poison) Release() {
	p.mu.Lock()
	freed := p.freed
	p.freed = nil
	p.mu.Unlock()
	for _, b := range freed {
		p.inner.Free(b)
	}
}

// Failing wraps an Allocator and fails every allocation once a fixed number of
// allocations have succeeded.
type Failing struct {
	inner Allocator
	after int

	mu sync.Mutex
	n  int
}

// NewFailing returns an allocator that allows after successful
// allocations through inner (Aligned if nil) and then fails.
func NewFailing(inner Allocator, after int) *Failing {
	return &Failing{inner: orDefault(inner), after: after}
}

// Alloc fails with ErrExhausted once the limit is reached.
func (f *Failing) Alloc(size int) ([]byte, error) {
	f.mu.Lock()
	if f.n >= f.after {
		f.mu.Unlock()
		return nil, ErrExhausted
	}
	f.n++
	f.mu.Unlock()
	return f.inner.Alloc(size)
}

// Free releases b through the inner allocator.
func (f *Failing) Free(b []byte) {
	f.inner.Free(b)
}
