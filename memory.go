package main

import "sync"

// BytePool recycles read buffers across connections so that a busy server
// doesn't allocate a fresh buffer on every socket read. It backs the
// per-connection read buffer in handleConnection; entries are returned to
// the pool once a connection closes.
type BytePool struct {
	pool sync.Pool
}

// NewBytePool returns a pool seeded with 4KB buffers, the size the frame
// decoder reads in per Conn.Read call.
func NewBytePool() *BytePool {
	return &BytePool{
		pool: sync.Pool{
			New: func() any {
				return make([]byte, 4096)
			},
		},
	}
}

// Get returns a buffer of at least size bytes, reusing a pooled one when
// possible.
func (bp *BytePool) Get(size int) []byte {
	buf := bp.pool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

// Put returns buf to the pool. Buffers larger than 64KB are dropped instead
// of pooled, so one oversized read doesn't inflate steady-state memory use.
func (bp *BytePool) Put(buf []byte) {
	if cap(buf) <= 64*1024 {
		buf = buf[:0]
		bp.pool.Put(buf)
	}
}
