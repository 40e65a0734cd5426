package decoder

import (
	"image/color"

	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
)

const nieMagic = "n\xc3\xafE"

// NIE decodes Naïve Image files: a 16 byte header followed by BGRA pixels of
// 8 or 16 bits per channel, premultiplied or not.
type NIE struct{}

func NewNIE() *NIE { return &NIE{} }

func (*NIE) ID() format.FourCC { return format.NIE }
func (*NIE) Name() string      { return "nie" }
func (*NIE) PrefixLen() int    { return 8 }

func (*NIE) Sniff(p []byte, _ bool) bool {
	if len(p) < 4 || string(p[:4]) != nieMagic {
		return false
	}
	if len(p) < 8 {
		return true
	}
	return validNIEVersion(p[4:8])
}

func validNIEVersion(v []byte) bool {
	return v[0] == 0xff && v[1] == 'b' && (v[2] == 'n' || v[2] == 'p') && (v[3] == '4' || v[3] == '8')
}

func (*NIE) NewEngine() core.ImageEngine { return &nieEngine{} }

var _ core.ImageCodec = (*NIE)(nil)

type nieEngine struct {
	frame
	headerDone bool
	done       bool
	premul     bool
	depth      int // bytes per pixel
	x, y       uint32
}

func (e *nieEngine) Feed(in *core.Input) core.Event {
	if e.done {
		return core.Done()
	}
	if !e.headerDone {
		if in.Len() < 16 {
			return core.NeedMoreInput()
		}
		b := in.Bytes()
		if string(b[:4]) != nieMagic || !validNIEVersion(b[4:8]) {
			return fault("bad header")
		}
		w, h := le32(b[8:]), le32(b[12:])
		if w > 0x7fffffff || h > 0x7fffffff {
			return fault("bad header")
		}
		e.premul = b[6] == 'p'
		e.depth = 4
		if b[7] == '8' {
			e.depth = 8
		}
		in.Advance(16)
		e.headerDone = true
		return e.dimensions(w, h)
	}
	if e.dst == nil {
		e.done = true
		return core.Event{Status: core.StatusFrame}
	}
	for e.y < e.h {
		if in.Len() < e.depth {
			return core.NeedMoreInput()
		}
		e.dst.Put(int(e.x), int(e.y), e.pixel(in.Bytes()))
		in.Advance(e.depth)
		if e.x++; e.x == e.w {
			e.x = 0
			e.y++
		}
	}
	e.done = true
	return core.Event{Status: core.StatusFrame}
}

func (e *nieEngine) pixel(b []byte) color.Color {
	if e.depth == 4 {
		if e.premul {
			return color.RGBA{R: b[2], G: b[1], B: b[0], A: b[3]}
		}
		return color.NRGBA{R: b[2], G: b[1], B: b[0], A: b[3]}
	}
	bl, g, r, a := uint16(le16(b[0:])), uint16(le16(b[2:])), uint16(le16(b[4:])), uint16(le16(b[6:]))
	if e.premul {
		return color.RGBA64{R: r, G: g, B: bl, A: a}
	}
	return color.NRGBA64{R: r, G: g, B: bl, A: a}
}
