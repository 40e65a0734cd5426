package decoder

import (
	"errors"
	"image/color"

	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
)

// TGA is an incremental Truevision TGA decoder: colour-mapped, true-colour
// and grey images, raw or run-length encoded.
type TGA struct{}

func NewTGA() *TGA { return &TGA{} }

func (*TGA) ID() format.FourCC { return format.TGA }
func (*TGA) Name() string      { return "tga" }
func (*TGA) PrefixLen() int    { return 18 }

// Sniff has no magic number to go on, so it checks that the header fields
// hold values the decoder accepts.
func (*TGA) Sniff(p []byte, _ bool) bool {
	if len(p) < 18 {
		return false
	}
	_, ok := parseTGAHeader(p)
	return ok
}

func (*TGA) NewEngine() core.ImageEngine { return &tgaEngine{} }

var _ core.ImageCodec = (*TGA)(nil)

var errBadColorMapIndex = errors.New("bad color map index")

type tgaHeader struct {
	idLen       int
	mapType     byte
	imageType   byte
	mapFirst    int
	mapLen      int
	mapBits     int
	width       uint32
	height      uint32
	bpp         int
	alphaBits   int
	topToBottom bool
	rightToLeft bool
}

func parseTGAHeader(p []byte) (tgaHeader, bool) {
	h := tgaHeader{
		idLen:       int(p[0]),
		mapType:     p[1],
		imageType:   p[2],
		mapFirst:    int(le16(p[3:])),
		mapLen:      int(le16(p[5:])),
		mapBits:     int(p[7]),
		width:       le16(p[12:]),
		height:      le16(p[14:]),
		bpp:         int(p[16]),
		alphaBits:   int(p[17] & 0x0f),
		rightToLeft: p[17]&0x10 != 0,
		topToBottom: p[17]&0x20 != 0,
	}
	if p[17]&0xc0 != 0 || h.mapType > 1 {
		return h, false
	}
	switch h.imageType & 0x07 {
	case 1: // colour-mapped
		if h.mapType != 1 || h.bpp != 8 || h.mapLen == 0 {
			return h, false
		}
	case 2: // true colour
		if h.bpp != 15 && h.bpp != 16 && h.bpp != 24 && h.bpp != 32 {
			return h, false
		}
	case 3: // grey
		if h.bpp != 8 {
			return h, false
		}
	default:
		return h, false
	}
	if h.imageType&^0x0b != 0 {
		return h, false
	}
	if h.mapType == 1 && h.mapBits != 15 && h.mapBits != 16 && h.mapBits != 24 && h.mapBits != 32 {
		return h, false
	}
	return h, true
}

type tgaPhase uint8

const (
	tgaHeaderPhase tgaPhase = iota
	tgaSkipID
	tgaColorMap
	tgaPixels
	tgaDone
)

type tgaEngine struct {
	frame
	phase tgaPhase
	hdr   tgaHeader
	cmap  []color.NRGBA
	skip  int

	x, y   uint32
	run    int  // pixels left in the current packet
	repeat bool // current packet is a run
	runPix color.NRGBA
}

func (e *tgaEngine) Feed(in *core.Input) core.Event {
	for {
		switch e.phase {
		case tgaHeaderPhase:
			if in.Len() < 18 {
				return core.NeedMoreInput()
			}
			h, ok := parseTGAHeader(in.Bytes())
			if !ok {
				return fault("bad header")
			}
			in.Advance(18)
			e.hdr = h
			e.skip = h.idLen
			e.phase = tgaSkipID
			return e.dimensions(h.width, h.height)

		case tgaSkipID:
			n := min(e.skip, in.Len())
			in.Advance(n)
			e.skip -= n
			if e.skip > 0 {
				return core.NeedMoreInput()
			}
			e.phase = tgaColorMap

		case tgaColorMap:
			if e.hdr.mapType == 1 {
				size := (e.hdr.mapBits + 7) / 8
				need := e.hdr.mapLen * size
				if in.Len() < need {
					return core.NeedMoreInput()
				}
				b := in.Bytes()
				e.cmap = make([]color.NRGBA, e.hdr.mapFirst+e.hdr.mapLen)
				for i := 0; i < e.hdr.mapLen; i++ {
					e.cmap[e.hdr.mapFirst+i] = tgaColor(b[i*size:], e.hdr.mapBits, 8)
				}
				in.Advance(need)
			}
			e.phase = tgaPixels
			if e.dst == nil {
				e.phase = tgaDone
				return core.Event{Status: core.StatusFrame}
			}

		case tgaPixels:
			if ev, ok := e.pixels(in); ok {
				return ev
			}
			e.phase = tgaDone
			return core.Event{Status: core.StatusFrame}

		case tgaDone:
			return core.Done()
		}
	}
}

// pixels decodes as many pixels as in holds.  It returns ok=false once the
// image is complete.
func (e *tgaEngine) pixels(in *core.Input) (core.Event, bool) {
	size := (e.hdr.bpp + 7) / 8
	rle := e.hdr.imageType&0x08 != 0
	for e.y < e.hdr.height {
		if rle && e.run == 0 {
			if in.Len() < 1 {
				return core.NeedMoreInput(), true
			}
			c := in.Bytes()[0]
			e.run = int(c&0x7f) + 1
			e.repeat = c&0x80 != 0
			if e.repeat {
				if in.Len() < 1+size {
					e.run = 0
					return core.NeedMoreInput(), true
				}
				px, err := e.pixel(in.Bytes()[1:])
				if err != nil {
					return core.Fault(err), true
				}
				e.runPix = px
				in.Advance(1 + size)
			} else {
				in.Advance(1)
			}
		}
		var px color.NRGBA
		switch {
		case rle && e.repeat:
			px = e.runPix
		default:
			if in.Len() < size {
				return core.NeedMoreInput(), true
			}
			var err error
			if px, err = e.pixel(in.Bytes()); err != nil {
				return core.Fault(err), true
			}
			in.Advance(size)
		}
		if rle {
			e.run--
		}
		e.put(px)
	}
	return core.Event{}, false
}

func (e *tgaEngine) put(px color.NRGBA) {
	x, y := e.x, e.y
	if e.hdr.rightToLeft {
		x = e.hdr.width - 1 - x
	}
	if !e.hdr.topToBottom {
		y = e.hdr.height - 1 - y
	}
	e.dst.Put(int(x), int(y), px)
	if e.x++; e.x == e.hdr.width {
		e.x = 0
		e.y++
	}
}

func (e *tgaEngine) pixel(b []byte) (color.NRGBA, error) {
	switch e.hdr.imageType & 0x07 {
	case 1:
		i := int(b[0])
		if i >= len(e.cmap) {
			return color.NRGBA{}, errBadColorMapIndex
		}
		return e.cmap[i], nil
	case 3:
		return color.NRGBA{R: b[0], G: b[0], B: b[0], A: 0xff}, nil
	}
	return tgaColor(b, e.hdr.bpp, e.hdr.alphaBits), nil
}

// tgaColor reads one little-endian BGR(A) entry.
func tgaColor(b []byte, bits, alphaBits int) color.NRGBA {
	switch bits {
	case 15, 16:
		v := le16(b)
		r, g, bl := uint8(v>>10)&0x1f, uint8(v>>5)&0x1f, uint8(v)&0x1f
		c := color.NRGBA{R: r<<3 | r>>2, G: g<<3 | g>>2, B: bl<<3 | bl>>2, A: 0xff}
		if bits == 16 && alphaBits == 1 && v&0x8000 == 0 {
			c.A = 0
		}
		return c
	case 24:
		return color.NRGBA{R: b[2], G: b[1], B: b[0], A: 0xff}
	case 32:
		c := color.NRGBA{R: b[2], G: b[1], B: b[0], A: b[3]}
		if alphaBits == 0 {
			c.A = 0xff
		}
		return c
	}
	return color.NRGBA{}
}
