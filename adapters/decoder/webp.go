package decoder

import (
	"bytes"
	"errors"
	"image"

	"golang.org/x/image/webp"

	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
)

// WebP walks the RIFF container for dimensions and metadata chunks and
// decodes pixels with golang.org/x/image/webp.  It is not enabled by default.
type WebP struct{}

// NewWebP returns the WEBP codec.
func NewWebP() *WebP { return &WebP{} }

func (*WebP) ID() format.FourCC { return format.WEBP }
func (*WebP) Name() string      { return "webp" }
func (*WebP) PrefixLen() int    { return 12 }

func (*WebP) Sniff(p []byte, _ bool) bool {
	return len(p) >= 12 && string(p[:4]) == "RIFF" && string(p[8:12]) == "WEBP"
}

func (*WebP) NewEngine() core.ImageEngine { return &webpEngine{pos: 12} }

var _ core.ImageCodec = (*WebP)(nil)

var errBadWebPChunk = errors.New("bad chunk")

type webpEngine struct {
	buffered
	pos     int // next chunk header
	dimsOK  bool
	scanned bool // trailing chunks walked
	done    bool
}

func (e *webpEngine) Feed(in *core.Input) core.Event {
	if ev, ok := e.pop(); ok {
		return ev
	}
	d := e.take(in)
	if e.done {
		return core.Done()
	}
	if len(d) < 12 {
		return core.NeedMoreInput()
	}
	if string(d[:4]) != "RIFF" || string(d[8:12]) != "WEBP" {
		return fault("bad header")
	}
	for !e.dimsOK {
		typ, body, ok := e.chunk(d)
		if !ok {
			return core.NeedMoreInput()
		}
		if err := e.visit(typ, body); err != nil {
			return core.Fault(err)
		}
		if ev, ok := e.pop(); ok {
			return ev
		}
	}
	if !in.Closed() {
		return core.NeedMoreInput()
	}
	// EXIF and XMP follow the image data in extended files.
	if !e.scanned {
		for {
			typ, body, ok := e.chunk(d)
			if !ok {
				break
			}
			if err := e.visit(typ, body); err != nil {
				return core.Fault(err)
			}
		}
		e.scanned = true
		if ev, ok := e.pop(); ok {
			return ev
		}
	}
	e.done = true
	if e.dst == nil {
		return core.Event{Status: core.StatusFrame}
	}
	img, err := webp.Decode(bytes.NewReader(d))
	if err != nil {
		return libraryFault("webp", err)
	}
	e.dst.DrawImage(img, image.Point{})
	return core.Event{Status: core.StatusFrame}
}

// chunk returns the next complete chunk and advances past it, including the
// pad byte of odd-sized chunks.
func (e *webpEngine) chunk(d []byte) (typ string, body []byte, ok bool) {
	if len(d) < e.pos+8 {
		return "", nil, false
	}
	n := int(le32(d[e.pos+4:]))
	end := e.pos + 8 + n
	if n < 0 || end < e.pos || len(d) < end {
		return "", nil, false
	}
	typ, body = string(d[e.pos:e.pos+4]), d[e.pos+8:end]
	e.pos = end + n&1
	return typ, body, true
}

func (e *webpEngine) visit(typ string, body []byte) error {
	switch typ {
	case "VP8X":
		if len(body) < 10 {
			return errBadWebPChunk
		}
		w := uint32(body[4]) | uint32(body[5])<<8 | uint32(body[6])<<16
		h := uint32(body[7]) | uint32(body[8])<<8 | uint32(body[9])<<16
		e.dimsAt(w+1, h+1)
	case "VP8 ":
		if e.dimsOK {
			return nil
		}
		if len(body) < 10 || body[3] != 0x9d || body[4] != 0x01 || body[5] != 0x2a {
			return errBadWebPChunk
		}
		e.dimsAt(le16(body[6:])&0x3fff, le16(body[8:])&0x3fff)
	case "VP8L":
		if e.dimsOK {
			return nil
		}
		if len(body) < 5 || body[0] != 0x2f {
			return errBadWebPChunk
		}
		v := le32(body[1:])
		e.dimsAt(v&0x3fff+1, (v>>14)&0x3fff+1)
	case "ICCP":
		e.report(format.MetaICCP, body)
	case "EXIF":
		e.report(format.MetaEXIF, body)
	case "XMP ":
		e.report(format.MetaXMP, body)
	}
	return nil
}

func (e *webpEngine) dimsAt(w, h uint32) {
	if e.dimsOK {
		return
	}
	e.dimsOK = true
	e.push(e.dimensions(w, h))
}
