package pixel

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// NoBackground is the background colour value meaning "leave the buffer
// zero-filled".
const NoBackground uint32 = 1

// ErrUnsupportedConfig is returned when a buffer cannot be sized.
var ErrUnsupportedConfig = errors.New("pixel: unsupported configuration")

// Config is the pixel configuration of a decoded image.
type Config struct {
	Format Format
	Width  uint32
	Height uint32
}

// IsValid reports whether c describes a non-empty supported buffer.
func (c Config) IsValid() bool {
	return c.Format.Supported() && c.Width > 0 && c.Height > 0
}

// Stride is the length in bytes of one row.
func (c Config) Stride() int { return int(c.Width) * c.Format.BytesPerPixel() }

// PixbufLen is width * height * bytes_per_pixel, or 0 if it overflows.
func (c Config) PixbufLen() uint64 {
	bpp := uint64(c.Format.BytesPerPixel())
	w, h := uint64(c.Width), uint64(c.Height)
	if w != 0 && h > math.MaxUint64/w {
		return 0
	}
	if wh := w * h; bpp != 0 && wh > math.MaxUint64/bpp {
		return 0
	}
	return w * h * bpp
}

// Buffer is a packed pixel buffer in one of the supported layouts.  It
// implements draw.Image so engines can compose decoded images into it.
type Buffer struct {
	cfg    Config
	pix    []byte
	stride int
	bpp    int
	op     draw.Op
}

// NewBuffer allocates a zeroed buffer for cfg.
func NewBuffer(cfg Config, blend Blend) (*Buffer, error) {
	if !cfg.Format.Supported() {
		return nil, ErrUnsupportedConfig
	}
	n := cfg.PixbufLen()
	if n == 0 || n > uint64(math.MaxInt) {
		return nil, ErrUnsupportedConfig
	}
	op := draw.Src
	if blend == BlendSrcOver {
		op = draw.Over
	}
	return &Buffer{
		cfg:    cfg,
		pix:    make([]byte, n),
		stride: cfg.Stride(),
		bpp:    cfg.Format.BytesPerPixel(),
		op:     op,
	}, nil
}

// Config returns the buffer's pixel configuration.
func (b *Buffer) Config() Config { return b.cfg }

// Bytes exposes the packed pixels.  Rows are contiguous, top to bottom.
func (b *Buffer) Bytes() []byte { return b.pix }

// Fill sets every pixel to a packed non-premultiplied 0xAARRGGBB colour.
func (b *Buffer) Fill(argb uint32) {
	if len(b.pix) == 0 {
		return
	}
	c := color.NRGBA{R: uint8(argb >> 16), G: uint8(argb >> 8), B: uint8(argb), A: uint8(argb >> 24)}
	b.encode(b.pix[:b.bpp], c)
	for filled := b.bpp; filled < len(b.pix); filled *= 2 {
		copy(b.pix[filled:], b.pix[:filled])
	}
}

// Put writes one pixel honouring the configured blend.
func (b *Buffer) Put(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(b.Bounds()) {
		return
	}
	if b.op == draw.Src {
		b.Set(x, y, c)
		return
	}
	sr, sg, sb, sa := c.RGBA()
	if sa == 0xffff {
		b.Set(x, y, c)
		return
	}
	dr, dg, db, da := b.At(x, y).RGBA()
	k := 0xffff - sa
	b.Set(x, y, color.RGBA64{
		R: uint16(sr + dr*k/0xffff),
		G: uint16(sg + dg*k/0xffff),
		B: uint16(sb + db*k/0xffff),
		A: uint16(sa + da*k/0xffff),
	})
}

// DrawImage composes src into the buffer with its top-left corner at dp.
func (b *Buffer) DrawImage(src image.Image, dp image.Point) {
	sr := src.Bounds()
	r := image.Rectangle{Min: dp, Max: dp.Add(sr.Size())}
	draw.Draw(b, r, src, sr.Min, b.op)
}

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model {
	switch b.cfg.Format {
	case FormatBGRANonpremul, FormatRGBANonpremul:
		return color.NRGBAModel
	case FormatBGRANonpremul4x16LE:
		return color.NRGBA64Model
	}
	return color.RGBAModel
}

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(b.cfg.Width), int(b.cfg.Height))
}

// At implements image.Image.
func (b *Buffer) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(b.Bounds()) {
		return color.RGBA{}
	}
	p := b.pix[y*b.stride+x*b.bpp:]
	switch b.cfg.Format {
	case FormatBGR565:
		v := binary.LittleEndian.Uint16(p)
		r, g, bl := uint8(v>>11), uint8(v>>5)&0x3f, uint8(v)&0x1f
		return color.RGBA{R: r<<3 | r>>2, G: g<<2 | g>>4, B: bl<<3 | bl>>2, A: 0xff}
	case FormatBGR:
		return color.RGBA{R: p[2], G: p[1], B: p[0], A: 0xff}
	case FormatBGRANonpremul:
		return color.NRGBA{R: p[2], G: p[1], B: p[0], A: p[3]}
	case FormatBGRAPremul:
		return color.RGBA{R: p[2], G: p[1], B: p[0], A: p[3]}
	case FormatRGBANonpremul:
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	case FormatRGBAPremul:
		return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	case FormatBGRANonpremul4x16LE:
		return color.NRGBA64{
			B: binary.LittleEndian.Uint16(p[0:]),
			G: binary.LittleEndian.Uint16(p[2:]),
			R: binary.LittleEndian.Uint16(p[4:]),
			A: binary.LittleEndian.Uint16(p[6:]),
		}
	}
	return color.RGBA{}
}

// Set implements draw.Image.  It overwrites the pixel regardless of blend.
func (b *Buffer) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(b.Bounds()) {
		return
	}
	off := y*b.stride + x*b.bpp
	b.encode(b.pix[off:off+b.bpp], c)
}

func (b *Buffer) encode(p []byte, c color.Color) {
	switch b.cfg.Format {
	case FormatBGR565:
		r, g, bl, _ := c.RGBA()
		binary.LittleEndian.PutUint16(p, uint16((r>>11)<<11|(g>>10)<<5|bl>>11))
	case FormatBGR:
		r, g, bl, _ := c.RGBA()
		p[0], p[1], p[2] = uint8(bl>>8), uint8(g>>8), uint8(r>>8)
	case FormatBGRAPremul:
		r, g, bl, a := c.RGBA()
		p[0], p[1], p[2], p[3] = uint8(bl>>8), uint8(g>>8), uint8(r>>8), uint8(a>>8)
	case FormatRGBAPremul:
		r, g, bl, a := c.RGBA()
		p[0], p[1], p[2], p[3] = uint8(r>>8), uint8(g>>8), uint8(bl>>8), uint8(a>>8)
	case FormatBGRANonpremul:
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		p[0], p[1], p[2], p[3] = n.B, n.G, n.R, n.A
	case FormatRGBANonpremul:
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		p[0], p[1], p[2], p[3] = n.R, n.G, n.B, n.A
	case FormatBGRANonpremul4x16LE:
		n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
		binary.LittleEndian.PutUint16(p[0:], n.B)
		binary.LittleEndian.PutUint16(p[2:], n.G)
		binary.LittleEndian.PutUint16(p[4:], n.R)
		binary.LittleEndian.PutUint16(p[6:], n.A)
	}
}

var _ draw.Image = (*Buffer)(nil)
