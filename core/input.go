package core

// Input is the window of staged, unread bytes handed to an engine.
type Input struct {
	buf    []byte
	ri     int
	closed bool
	pos    uint64 // absolute offset of buf[0]
}

// NewInput builds a window over data.  It is mostly useful in engine tests.
func NewInput(data []byte, closed bool) *Input {
	return &Input{buf: data, closed: closed}
}

// Bytes returns the unread bytes.
func (in *Input) Bytes() []byte { return in.buf[in.ri:] }

// Len is the number of unread bytes.
func (in *Input) Len() int { return len(in.buf) - in.ri }

// Advance marks n bytes as consumed.
func (in *Input) Advance(n int) {
	if n > in.Len() {
		n = in.Len()
	}
	in.ri += n
}

// Closed reports whether no further bytes will ever arrive.
func (in *Input) Closed() bool { return in.closed }

// Position is the total number of bytes consumed so far.
func (in *Input) Position() uint64 { return in.pos + uint64(in.ri) }

// compact drops consumed bytes so the buffer can be refilled.
func (in *Input) compact() {
	if in.ri == 0 {
		return
	}
	n := copy(in.buf, in.buf[in.ri:])
	in.pos += uint64(in.ri)
	in.buf = in.buf[:n]
	in.ri = 0
}

func (in *Input) append(p []byte) { in.buf = append(in.buf, p...) }

func (in *Input) reset(buf []byte) {
	in.buf = buf[:0]
	in.ri = 0
	in.closed = false
	in.pos = 0
}
