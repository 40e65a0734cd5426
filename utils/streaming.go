package utils

import (
	"bytes"
	"io"
	"sync"
)

// bufPool reuses byte buffers to reduce GC pressure.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// AcquireBuffer returns a reset buffer from the pool.
func AcquireBuffer() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer returns b to the pool.  Callers must not use b after this call.
func ReleaseBuffer(b *bytes.Buffer) {
	if b == nil {
		return
	}
	// Cap large buffers to avoid pinning excessive memory.
	if b.Cap() > 8*1024*1024 {
		return
	}
	bufPool.Put(b)
}

// ChunkedReader limits every Read to ChunkSize bytes, so a consumer sees the
// input arrive in small pieces.
type ChunkedReader struct {
	R         io.Reader
	ChunkSize int
}

func (c *ChunkedReader) Read(p []byte) (int, error) {
	if c.ChunkSize > 0 && len(p) > c.ChunkSize {
		p = p[:c.ChunkSize]
	}
	return c.R.Read(p)
}
