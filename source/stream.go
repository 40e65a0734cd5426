package source

import (
	"io"
)

// DefaultChunkSize is used when a Stream is built with a non-positive size.
const DefaultChunkSize = 32 * 1024

// Stream pulls successive chunks from an opened source.  Any read error,
// including a reader closed underneath it, is reported as end-of-input.
type Stream struct {
	r     io.ReadCloser
	chunk []byte
	max   int64 // 0 = unlimited
	n     int64
	eof   bool
	err   error
}

// NewStream wraps rc.  Reads past maxBytes (when positive) behave as
// end-of-input.
func NewStream(rc io.ReadCloser, chunkSize int, maxBytes int64) *Stream {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Stream{r: rc, chunk: make([]byte, chunkSize), max: maxBytes}
}

// Next returns the next chunk.  The slice is only valid until the following
// call.  It returns (nil, true) once input is exhausted.
func (s *Stream) Next() ([]byte, bool) {
	for !s.eof {
		p := s.chunk
		if s.max > 0 {
			remain := s.max - s.n
			if remain <= 0 {
				s.eof = true
				break
			}
			if int64(len(p)) > remain {
				p = p[:remain]
			}
		}
		n, err := s.r.Read(p)
		s.n += int64(n)
		if err != nil {
			s.eof = true
			if err != io.EOF {
				s.err = err
			}
		}
		if n > 0 {
			return p[:n], false
		}
	}
	return nil, true
}

// BytesRead is the number of bytes pulled so far.
func (s *Stream) BytesRead() int64 { return s.n }

// Err returns the read error that ended the stream, if it was not io.EOF.
func (s *Stream) Err() error { return s.err }

// Close closes the underlying reader.
func (s *Stream) Close() error { return s.r.Close() }
