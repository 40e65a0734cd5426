// Package source turns file paths, in-memory buffers and readers into one
// pull-based stream of input chunks.
package source

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrOpen is wrapped by every failure to open a source.
var ErrOpen = errors.New("source: failed to open")

// Source is a re-openable logical byte source.  Each Open returns an
// independent reader, so two decodes of the same Source never share a cursor.
type Source interface {
	Open() (io.ReadCloser, error)
	Name() string
}

// FromFile reads the file at path.
func FromFile(path string) Source { return fileSource{path: path} }

// FromBytes reads an in-memory buffer.  The buffer is not copied and must not
// be modified while a decode is running.
func FromBytes(b []byte) Source { return bytesSource{data: b} }

// FromReader wraps a reader that can only be consumed once.  A second Open
// fails.
func FromReader(r io.Reader) Source { return &readerSource{r: r} }

// Zstd decompresses inner transparently.
func Zstd(inner Source) Source { return zstdSource{inner: inner} }

type fileSource struct{ path string }

func (s fileSource) Name() string { return s.path }

func (s fileSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}
	return f, nil
}

type bytesSource struct{ data []byte }

func (bytesSource) Name() string { return "<bytes>" }

func (s bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

type readerSource struct {
	mu   sync.Mutex
	r    io.Reader
	used bool
}

func (*readerSource) Name() string { return "<reader>" }

func (s *readerSource) Open() (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used || s.r == nil {
		return nil, errors.Join(ErrOpen, errors.New("reader already consumed"))
	}
	s.used = true
	if rc, ok := s.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(s.r), nil
}

type zstdSource struct{ inner Source }

func (s zstdSource) Name() string { return s.inner.Name() + "#zstd" }

func (s zstdSource) Open() (io.ReadCloser, error) {
	rc, err := s.inner.Open()
	if err != nil {
		return nil, err
	}
	zr, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1))
	if err != nil {
		rc.Close()
		return nil, errors.Join(ErrOpen, err)
	}
	return &zstdReadCloser{zr: zr, under: rc}, nil
}

type zstdReadCloser struct {
	zr    *zstd.Decoder
	under io.Closer
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.zr.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.zr.Close()
	return z.under.Close()
}
