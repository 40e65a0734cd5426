package core

import (
	"io"
	"time"

	"github.com/Skryldev/decodekit/config"
	"github.com/Skryldev/decodekit/source"
)

// session is the per-call state of one Decode.  It is created by a decoder,
// used for exactly one call and dropped; only the staging memory survives,
// handed back to the decoder for the next call.
type session struct {
	stream *source.Stream
	in     Input
	state  State
	codec  string
	start  time.Time
}

func newSession(staging []byte) *session {
	s := &session{state: StateIdle, start: time.Now()}
	s.in.reset(staging)
	return s
}

// open attaches the stream.  rc is closed by finish.
func (s *session) open(rc io.ReadCloser, rt config.Config) {
	s.stream = source.NewStream(rc, rt.ChunkSize, rt.MaxSourceBytes)
}

// fill pulls one chunk into staging, compacting consumed bytes first.  At end
// of input it marks the window closed and returns false.
func (s *session) fill() bool {
	if s.in.closed {
		return false
	}
	s.in.compact()
	chunk, eof := s.stream.Next()
	if eof {
		s.in.closed = true
		return false
	}
	s.in.append(chunk)
	return true
}

// fillTo pulls until at least n unread bytes are staged or input ends.
func (s *session) fillTo(n int) {
	for s.in.Len() < n && s.fill() {
	}
}

// suspend parks the engine until the next chunk arrives.  It reports false
// when input is exhausted.
func (s *session) suspend() bool {
	s.state = StateSuspended
	ok := s.fill()
	if ok {
		s.state = StateDecoding
	}
	return ok
}

func (s *session) bytesRead() int64 {
	if s.stream == nil {
		return 0
	}
	return s.stream.BytesRead()
}

// finish closes the stream and returns the staging memory for reuse.
func (s *session) finish() []byte {
	if s.stream != nil {
		s.stream.Close()
	}
	return s.in.buf[:0]
}
