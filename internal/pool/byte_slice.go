// Package pool holds reusable scratch buffers for the scanners and writers.
package pool

import "sync"

const defaultByteSliceCapacity = 64

type ByteSlicePool struct {
	pool sync.Pool
}

var byteSlicePool = &ByteSlicePool{
	pool: sync.Pool{
		New: func() any {
			b := make([]byte, 0, defaultByteSliceCapacity)
			return &b
		},
	},
}

// ByteSlice returns the process-wide byte slice pool
func ByteSlice() *ByteSlicePool {
	return byteSlicePool
}

// Get returns an empty slice with at least the default capacity
func (p *ByteSlicePool) Get() []byte {
	return p.GetCapacity(defaultByteSliceCapacity)
}

// GetCapacity returns an empty slice with at least capacity n
func (p *ByteSlicePool) GetCapacity(n int) []byte {
	b := *(p.pool.Get().(*[]byte))
	if cap(b) < n {
		b = make([]byte, 0, n)
	}
	return b[:0]
}

func (p *ByteSlicePool) Put(b []byte) {
	// very large buffers are left to the GC
	if cap(b) > 64*1024 {
		return
	}
	b = b[:0]
	p.pool.Put(&b)
}
