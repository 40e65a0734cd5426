package decoder

import (
	"bytes"
	"image"
	"math"

	"golang.org/x/image/bmp"

	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
)

// BMP reads the file and DIB headers for dimensions and decodes pixels with
// golang.org/x/image/bmp once the whole file is staged.  A file cut short
// keeps the pixel rows that arrived whole.
type BMP struct{}

func NewBMP() *BMP { return &BMP{} }

func (*BMP) ID() format.FourCC { return format.BMP }
func (*BMP) Name() string      { return "bmp" }
func (*BMP) PrefixLen() int    { return 2 }

func (*BMP) Sniff(p []byte, _ bool) bool {
	return len(p) >= 2 && p[0] == 'B' && p[1] == 'M'
}

func (*BMP) NewEngine() core.ImageEngine { return &bmpEngine{} }

var _ core.ImageCodec = (*BMP)(nil)

type bmpEngine struct {
	buffered
	headerDone bool
	done       bool
}

func (e *bmpEngine) Feed(in *core.Input) core.Event {
	return e.atEOF(in, e.feed(in), e.salvage)
}

func (e *bmpEngine) feed(in *core.Input) core.Event {
	d := e.take(in)
	if e.done {
		return core.Done()
	}
	if !e.headerDone {
		if len(d) < 26 {
			return core.NeedMoreInput()
		}
		var w, h int64
		switch size := le32(d[14:]); {
		case size == 12: // BITMAPCOREHEADER
			w, h = int64(le16(d[18:])), int64(le16(d[20:]))
		case size >= 40:
			w, h = int64(int32(le32(d[18:]))), int64(int32(le32(d[22:])))
		default:
			return fault("bad header")
		}
		if h < 0 {
			h = -h // top-down rows
		}
		if w < 0 || w > math.MaxUint32 || h > math.MaxUint32 {
			return fault("bad header")
		}
		e.headerDone = true
		return e.dimensions(uint32(w), uint32(h))
	}
	if !in.Closed() {
		return core.NeedMoreInput()
	}
	e.done = true
	if e.dst == nil {
		return core.Event{Status: core.StatusFrame}
	}
	img, err := bmp.Decode(bytes.NewReader(d))
	if err != nil {
		return libraryFault("bmp", err)
	}
	e.dst.DrawImage(img, image.Point{})
	return core.Event{Status: core.StatusFrame}
}

// salvage pads a truncated file with empty rows, decodes it and draws only
// the rows that were present.  Rows are stored bottom-up unless the height
// is negative.
func (e *bmpEngine) salvage() {
	if !e.headerDone || e.acc == nil {
		return
	}
	d := e.acc.Bytes()
	if len(d) < 30 {
		return
	}
	off := int(le32(d[10:]))
	var bpp int
	topDown := false
	if le32(d[14:]) == 12 {
		bpp = int(le16(d[24:]))
	} else {
		bpp = int(le16(d[28:]))
		topDown = int32(le32(d[22:])) < 0
	}
	w, h := int(e.w), int(e.h)
	stride := (w*bpp + 31) / 32 * 4
	if stride == 0 || off <= 0 || len(d) <= off || len(d) >= off+stride*h {
		return
	}
	rows := (len(d) - off) / stride
	if rows == 0 {
		return
	}
	full := make([]byte, off+stride*h)
	copy(full, d)
	img, err := bmp.Decode(bytes.NewReader(full))
	if err != nil {
		return
	}
	r := image.Rect(0, h-rows, w, h)
	if topDown {
		r = image.Rect(0, 0, w, rows)
	}
	drawRows(e.dst, img, r)
}
