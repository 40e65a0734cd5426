package decoder

import (
	"image/color"

	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
)

// WBMP decodes type 0 Wireless Bitmaps: one bit per pixel, rows padded to a
// byte, 1 is white.
type WBMP struct{}

func NewWBMP() *WBMP { return &WBMP{} }

func (*WBMP) ID() format.FourCC { return format.WBMP }
func (*WBMP) Name() string      { return "wbmp" }
func (*WBMP) PrefixLen() int    { return 12 }

func (*WBMP) Sniff(p []byte, _ bool) bool {
	if len(p) < 4 || p[0] != 0 || p[1] != 0 {
		return false
	}
	_, n, ok := uvarint(p[2:])
	if !ok {
		return false
	}
	_, _, ok = uvarint(p[2+n:])
	return ok
}

func (*WBMP) NewEngine() core.ImageEngine { return &wbmpEngine{} }

var _ core.ImageCodec = (*WBMP)(nil)

// uvarint reads a WBMP multi-byte integer: big-endian groups of seven bits,
// high bit set on every byte but the last.
func uvarint(p []byte) (v uint32, n int, ok bool) {
	for n < len(p) && n < 5 {
		c := p[n]
		n++
		if v>>25 != 0 {
			return 0, 0, false // would overflow 32 bits
		}
		v = v<<7 | uint32(c&0x7f)
		if c&0x80 == 0 {
			return v, n, true
		}
	}
	return 0, 0, false
}

type wbmpEngine struct {
	frame
	headerDone bool
	done       bool
	y          uint32
}

func (e *wbmpEngine) Feed(in *core.Input) core.Event {
	if e.done {
		return core.Done()
	}
	if !e.headerDone {
		b := in.Bytes()
		if len(b) < 2 {
			return core.NeedMoreInput()
		}
		if b[0] != 0 || b[1] != 0 {
			return fault("bad header")
		}
		w, n1, ok := uvarint(b[2:])
		if !ok {
			return e.headerShort(len(b[2:]))
		}
		h, n2, ok := uvarint(b[2+n1:])
		if !ok {
			return e.headerShort(len(b[2+n1:]))
		}
		in.Advance(2 + n1 + n2)
		e.headerDone = true
		return e.dimensions(w, h)
	}
	if e.dst == nil {
		e.done = true
		return core.Event{Status: core.StatusFrame}
	}
	stride := int((e.w + 7) / 8)
	white := color.Gray{Y: 0xff}
	black := color.Gray{}
	for e.y < e.h {
		if in.Len() < stride {
			return core.NeedMoreInput()
		}
		row := in.Bytes()[:stride]
		for x := uint32(0); x < e.w; x++ {
			if row[x/8]&(0x80>>(x%8)) != 0 {
				e.dst.Put(int(x), int(e.y), white)
			} else {
				e.dst.Put(int(x), int(e.y), black)
			}
		}
		in.Advance(stride)
		e.y++
	}
	e.done = true
	return core.Event{Status: core.StatusFrame}
}

// headerShort tells a header that is merely incomplete from one that is
// malformed: five bytes without a terminator can never become valid.
func (e *wbmpEngine) headerShort(avail int) core.Event {
	if avail >= 5 {
		return fault("bad header")
	}
	return core.NeedMoreInput()
}
