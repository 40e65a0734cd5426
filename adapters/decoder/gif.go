package decoder

import (
	"bytes"
	"compress/lzw"
	"encoding/binary"
	"image/color"
	"image/gif"
	"io"

	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
)

// GIF reads the logical screen and the blocks up to the first image
// descriptor itself, then decodes the first frame with image/gif as soon as
// its image data is complete.  A frame cut short keeps the pixels its LZW
// stream yielded.
type GIF struct{}

func NewGIF() *GIF { return &GIF{} }

func (*GIF) ID() format.FourCC { return format.GIF }
func (*GIF) Name() string      { return "gif" }
func (*GIF) PrefixLen() int    { return 6 }

func (*GIF) Sniff(p []byte, _ bool) bool {
	return len(p) >= 6 && (string(p[:6]) == "GIF87a" || string(p[:6]) == "GIF89a")
}

func (*GIF) NewEngine() core.ImageEngine { return &gifEngine{transparent: -1} }

var _ core.ImageCodec = (*GIF)(nil)

type gifPhase uint8

const (
	gifScreen gifPhase = iota
	gifBlocks
	gifPixels
	gifDone
)

type gifEngine struct {
	buffered
	phase gifPhase
	pos   int // start of the next unparsed block

	screenW, screenH uint32
	global           []color.Color
	bgIndex          int
	localPalette     bool
	transparent      int
}

func (e *gifEngine) Feed(in *core.Input) core.Event {
	return e.atEOF(in, e.feed(in), e.salvage)
}

func (e *gifEngine) feed(in *core.Input) core.Event {
	if ev, ok := e.pop(); ok {
		return ev
	}
	d := e.take(in)
	for {
		switch e.phase {
		case gifScreen:
			if len(d) < 13 {
				return core.NeedMoreInput()
			}
			e.screenW, e.screenH = le16(d[6:]), le16(d[8:])
			flags := d[10]
			e.bgIndex = int(d[11])
			e.pos = 13
			if flags&0x80 != 0 {
				n := 3 << (uint(flags&0x07) + 1)
				if len(d) < 13+n {
					return core.NeedMoreInput()
				}
				e.global = palette(d[13 : 13+n])
				e.pos += n
			}
			e.phase = gifBlocks

		case gifBlocks:
			if ev, more := e.block(d); !more {
				return ev
			}

		case gifPixels:
			end, ok := frameEnd(d, e.pos)
			if !ok {
				return core.NeedMoreInput()
			}
			e.phase = gifDone
			if e.dst == nil {
				return core.Event{Status: core.StatusFrame}
			}
			img, err := gif.Decode(bytes.NewReader(d[:end]))
			if err != nil {
				return libraryFault("gif", err)
			}
			e.fillBackground()
			e.dst.DrawImage(img, img.Bounds().Min)
			return core.Event{Status: core.StatusFrame}

		case gifDone:
			return core.Done()
		}
	}
}

// block parses one block at e.pos.  more reports whether the caller should go
// on parsing; otherwise ev is handed back to the orchestrator.
func (e *gifEngine) block(d []byte) (ev core.Event, more bool) {
	if len(d) <= e.pos {
		return core.NeedMoreInput(), false
	}
	switch d[e.pos] {
	case 0x21: // extension
		if len(d) < e.pos+2 {
			return core.NeedMoreInput(), false
		}
		label := d[e.pos+1]
		end, ok := skipSubBlocks(d, e.pos+2)
		if !ok {
			return core.NeedMoreInput(), false
		}
		switch label {
		case 0xff:
			e.applicationExtension(d[e.pos+2 : end])
		case 0xf9: // graphic control
			if gce := d[e.pos+2 : end]; len(gce) >= 5 && gce[0] == 4 {
				e.transparent = -1
				if gce[1]&0x01 != 0 {
					e.transparent = int(gce[4])
				}
			}
		}
		e.pos = end
		if next, ok := e.pop(); ok {
			return next, false
		}
		return core.Event{}, true

	case 0x2c: // image descriptor
		if len(d) < e.pos+10 {
			return core.NeedMoreInput(), false
		}
		desc := d[e.pos:]
		left, top := le16(desc[1:]), le16(desc[3:])
		fw, fh := le16(desc[5:]), le16(desc[7:])
		e.localPalette = desc[9]&0x80 != 0
		q := e.cfg.Quirks

		if q.Enabled(format.QuirkGIFRejectEmptyFrame) && (fw == 0 || fh == 0) {
			return fault("bad frame size"), false
		}
		if q.Enabled(format.QuirkGIFRejectEmptyPalette) && !e.localPalette && len(e.global) == 0 {
			return fault("bad palette"), false
		}
		w, h := e.screenW, e.screenH
		if left+fw > w || top+fh > h {
			if q.Enabled(format.QuirkGIFImageBoundsAreStrict) {
				return fault("bad frame size"), false
			}
			w, h = max(w, left+fw), max(h, top+fh)
			// image/gif rejects frames outside the logical screen, so grow the
			// screen to the union in the buffered copy.
			binary.LittleEndian.PutUint16(d[6:], uint16(min(w, 0xffff)))
			binary.LittleEndian.PutUint16(d[8:], uint16(min(h, 0xffff)))
		}
		e.phase = gifPixels
		return e.dimensions(w, h), false

	case 0x3b: // trailer with no frame
		e.phase = gifDone
		return e.dimensions(e.screenW, e.screenH), false
	}
	return fault("bad block"), false
}

func (e *gifEngine) fillBackground() {
	q := e.cfg.Quirks
	switch {
	case q.Enabled(format.QuirkGIFFirstFrameLocalPaletteMeansBlackBackground) && e.localPalette:
		e.dst.Fill(0xff000000)
	case q.Enabled(format.QuirkGIFHonorBackgroundColor) && e.bgIndex < len(e.global):
		r, g, b, _ := e.global[e.bgIndex].RGBA()
		e.dst.Fill(0xff000000 | (r>>8)<<16 | (g>>8)<<8 | b>>8)
	}
}

// salvage draws the pixels that the LZW data received so far decodes to,
// when the input ends inside the first frame.
func (e *gifEngine) salvage() {
	if e.phase != gifPixels || e.acc == nil {
		return
	}
	d := e.acc.Bytes()
	if len(d) < e.pos+10 {
		return
	}
	desc := d[e.pos:]
	left, top := int(le16(desc[1:])), int(le16(desc[3:]))
	fw, fh := int(le16(desc[5:])), int(le16(desc[7:]))
	flags := desc[9]
	pal := e.global
	p := e.pos + 10
	if flags&0x80 != 0 {
		n := 3 << (uint(flags&0x07) + 1)
		if len(d) < p+n {
			return
		}
		pal = palette(d[p : p+n])
		p += n
	}
	if len(d) <= p || fw == 0 || fh == 0 {
		return
	}
	lit := int(d[p])
	if lit < 2 || lit > 8 {
		return
	}
	var data []byte
	for p++; p < len(d) && d[p] != 0; p += int(d[p]) + 1 {
		data = append(data, d[p+1:min(p+1+int(d[p]), len(d))]...)
	}
	idx := make([]byte, fw*fh)
	n, _ := io.ReadFull(lzw.NewReader(bytes.NewReader(data), lzw.LSB, lit), idx)
	if n == 0 {
		return
	}
	rows := gifRows(fh, flags&0x40 != 0)
	e.fillBackground()
	for i, v := range idx[:n] {
		if int(v) >= len(pal) {
			continue
		}
		var c color.Color = pal[v]
		if int(v) == e.transparent {
			c = color.RGBA{}
		}
		e.dst.Put(left+i%fw, top+rows[i/fw], c)
	}
}

// gifRows maps the n-th stored row of a frame to its y offset.
func gifRows(h int, interlaced bool) []int {
	rows := make([]int, 0, h)
	if !interlaced {
		for y := 0; y < h; y++ {
			rows = append(rows, y)
		}
		return rows
	}
	for _, pass := range [4]struct{ start, step int }{{0, 8}, {4, 8}, {2, 4}, {1, 2}} {
		for y := pass.start; y < h; y += pass.step {
			rows = append(rows, y)
		}
	}
	return rows
}

// frameEnd returns the offset just past the image data of the frame whose
// descriptor starts at pos.
func frameEnd(d []byte, pos int) (int, bool) {
	p := pos + 10
	if len(d) < p {
		return 0, false
	}
	if flags := d[pos+9]; flags&0x80 != 0 {
		p += 3 << (uint(flags&0x07) + 1)
	}
	p++ // LZW minimum code size
	if len(d) < p {
		return 0, false
	}
	return skipSubBlocks(d, p)
}

// applicationExtension reports ICC profiles and XMP carried in GIF89a
// application extensions.  ext starts at the sub-block chain.
func (e *gifEngine) applicationExtension(ext []byte) {
	if len(ext) < 12 || ext[0] != 11 {
		return
	}
	var kind format.FourCC
	switch string(ext[1:12]) {
	case "ICCRGBG1012":
		kind = format.MetaICCP
	case "XMP DataXMP":
		kind = format.MetaXMP
	default:
		return
	}
	n := uint64(0)
	for i := 12; i < len(ext) && ext[i] != 0; i += int(ext[i]) + 1 {
		n += uint64(ext[i])
	}
	e.reportLazy(kind, n, func() []byte {
		payload := make([]byte, 0, n)
		for i := 12; i < len(ext) && ext[i] != 0; i += int(ext[i]) + 1 {
			payload = append(payload, ext[i+1:i+1+int(ext[i])]...)
		}
		return payload
	})
}

// skipSubBlocks walks a GIF sub-block chain starting at pos and returns the
// offset just past its terminator.
func skipSubBlocks(d []byte, pos int) (end int, ok bool) {
	for pos < len(d) {
		n := int(d[pos])
		if n == 0 {
			return pos + 1, true
		}
		pos += 1 + n
	}
	return 0, false
}

func palette(p []byte) []color.Color {
	out := make([]color.Color, len(p)/3)
	for i := range out {
		out[i] = color.RGBA{R: p[3*i], G: p[3*i+1], B: p[3*i+2], A: 0xff}
	}
	return out
}
