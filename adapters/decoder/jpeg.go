package decoder

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
)

const (
	jpegExifHeader = "Exif\x00\x00"
	jpegXMPHeader  = "http://ns.adobe.com/xap/1.0/\x00"
	jpegICCHeader  = "ICC_PROFILE\x00"
)

// JPEG walks the marker segments up to the frame header for dimensions and
// metadata, then decodes the staged file with image/jpeg.  It is not enabled
// by default.
type JPEG struct{}

// NewJPEG returns the JPEG codec.
func NewJPEG() *JPEG { return &JPEG{} }

func (*JPEG) ID() format.FourCC { return format.JPEG }
func (*JPEG) Name() string      { return "jpeg" }
func (*JPEG) PrefixLen() int    { return 3 }

func (*JPEG) Sniff(p []byte, _ bool) bool {
	return len(p) >= 3 && p[0] == 0xff && p[1] == 0xd8 && p[2] == 0xff
}

func (*JPEG) NewEngine() core.ImageEngine { return &jpegEngine{} }

var _ core.ImageCodec = (*JPEG)(nil)

type jpegEngine struct {
	buffered
	pos        int
	headerDone bool
	done       bool
	icc        []byte
}

func (e *jpegEngine) Feed(in *core.Input) core.Event {
	if ev, ok := e.pop(); ok {
		return ev
	}
	d := e.take(in)
	if e.done {
		return core.Done()
	}
	if !e.headerDone {
		if e.pos == 0 {
			if len(d) < 2 {
				return core.NeedMoreInput()
			}
			if d[0] != 0xff || d[1] != 0xd8 {
				return fault("bad header")
			}
			e.pos = 2
		}
		for {
			ev, more := e.segment(d)
			if next, ok := e.pop(); ok {
				return next
			}
			if !more {
				return ev
			}
		}
	}
	if !in.Closed() {
		return core.NeedMoreInput()
	}
	e.done = true
	if e.dst == nil {
		return core.Event{Status: core.StatusFrame}
	}
	img, err := jpeg.Decode(bytes.NewReader(d))
	if err != nil {
		return libraryFault("jpeg", err)
	}
	e.dst.DrawImage(img, image.Point{})
	return core.Event{Status: core.StatusFrame}
}

// segment parses the marker segment at e.pos.  more reports whether the
// walk should continue.
func (e *jpegEngine) segment(d []byte) (ev core.Event, more bool) {
	p := e.pos
	for p < len(d) && d[p] == 0xff && p+1 < len(d) && d[p+1] == 0xff {
		p++ // fill bytes
	}
	if len(d) < p+2 {
		return core.NeedMoreInput(), false
	}
	if d[p] != 0xff {
		return fault("bad marker"), false
	}
	marker := d[p+1]
	switch {
	case marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7):
		e.pos = p + 2
		return core.Event{}, true
	case marker == 0xd9 || marker == 0xda:
		return fault("missing frame header"), false
	}
	if len(d) < p+4 {
		return core.NeedMoreInput(), false
	}
	n := int(be16(d[p+2:]))
	if n < 2 {
		return fault("bad marker"), false
	}
	if len(d) < p+2+n {
		return core.NeedMoreInput(), false
	}
	body := d[p+4 : p+2+n]
	e.pos = p + 2 + n

	switch {
	case marker >= 0xc0 && marker <= 0xcf && marker != 0xc4 && marker != 0xc8 && marker != 0xcc:
		if len(body) < 5 {
			return fault("bad frame header"), false
		}
		e.headerDone = true
		if len(e.icc) > 0 {
			e.report(format.MetaICCP, e.icc)
		}
		e.push(e.dimensions(be16(body[3:]), be16(body[1:])))
		return core.Event{}, false
	case marker == 0xe1 && bytes.HasPrefix(body, []byte(jpegExifHeader)):
		e.report(format.MetaEXIF, body[len(jpegExifHeader):])
	case marker == 0xe1 && bytes.HasPrefix(body, []byte(jpegXMPHeader)):
		e.report(format.MetaXMP, body[len(jpegXMPHeader):])
	case marker == 0xe2 && bytes.HasPrefix(body, []byte(jpegICCHeader)):
		// Sequence number and count precede each slice of the profile.
		if len(body) >= len(jpegICCHeader)+2 && e.reports(format.MetaICCP) {
			e.icc = append(e.icc, body[len(jpegICCHeader)+2:]...)
		}
	}
	return core.Event{}, true
}
