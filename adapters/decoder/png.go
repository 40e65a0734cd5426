package decoder

import (
	"bytes"
	"encoding/binary"
	"hash"
	"hash/crc32"
	"image"
	"image/png"

	"github.com/klauspost/compress/zlib"

	"github.com/Skryldev/decodekit/core"
	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/utils"
)

const pngSignature = "\x89PNG\r\n\x1a\n"

// PNG walks PNG chunks incrementally.  Critical chunks are re-assembled into
// a stream for image/png; ancillary chunks are either reported as metadata or
// skipped without being buffered.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (*PNG) ID() format.FourCC { return format.PNG }
func (*PNG) Name() string      { return "png" }
func (*PNG) PrefixLen() int    { return len(pngSignature) }

func (*PNG) Sniff(p []byte, _ bool) bool {
	return len(p) >= len(pngSignature) && string(p[:len(pngSignature)]) == pngSignature
}

func (*PNG) NewEngine() core.ImageEngine {
	return &pngEngine{crc: crc32.NewIEEE()}
}

var _ core.ImageCodec = (*PNG)(nil)

type pngPhase uint8

const (
	pngSig pngPhase = iota
	pngChunkHeader
	pngChunkBody
	pngChunkCRC
	pngDecode
	pngDone
)

type pngEngine struct {
	frame
	phase pngPhase

	typ       string
	remaining uint32
	crc       hash.Hash32
	forward   bool   // copy into the re-assembled stream
	keep      bool   // buffer the body
	body      []byte // buffered body
	bodyLimit uint64 // most body bytes a selected chunk may buffer
	sawIHDR   bool
	ihdr      []byte

	out *bytes.Buffer
}

// Close returns the re-assembled stream to the pool.
func (e *pngEngine) Close() error {
	utils.ReleaseBuffer(e.out)
	e.out = nil
	return nil
}

func (e *pngEngine) Feed(in *core.Input) core.Event {
	return e.atEOF(in, e.feed(in), e.salvage)
}

func (e *pngEngine) feed(in *core.Input) core.Event {
	for {
		if ev, ok := e.pop(); ok {
			return ev
		}
		switch e.phase {
		case pngSig:
			if in.Len() < len(pngSignature) {
				return core.NeedMoreInput()
			}
			if string(in.Bytes()[:len(pngSignature)]) != pngSignature {
				return fault("bad header")
			}
			in.Advance(len(pngSignature))
			e.out = utils.AcquireBuffer()
			e.out.WriteString(pngSignature)
			e.phase = pngChunkHeader

		case pngChunkHeader:
			if in.Len() < 8 {
				return core.NeedMoreInput()
			}
			b := in.Bytes()
			n := be32(b)
			typ := string(b[4:8])
			if n > 0x7fffffff {
				return fault("bad chunk")
			}
			if !e.sawIHDR && typ != "IHDR" || typ == "IHDR" && n != 13 {
				return fault("bad header")
			}
			in.Advance(8)
			e.startChunk(typ, n, b[4:8])

		case pngChunkBody:
			if e.remaining > 0 {
				n := in.Len()
				if uint32(n) > e.remaining {
					n = int(e.remaining)
				}
				if n == 0 {
					return core.NeedMoreInput()
				}
				p := in.Bytes()[:n]
				e.crc.Write(p)
				if e.forward {
					e.out.Write(p)
				}
				if e.keep {
					if uint64(len(e.body)+n) > e.bodyLimit {
						return core.Fault(apperrors.ErrMaxInclMetadataLengthExceeded)
					}
					e.body = append(e.body, p...)
				}
				in.Advance(n)
				e.remaining -= uint32(n)
				if e.remaining > 0 {
					return core.NeedMoreInput()
				}
			}
			e.phase = pngChunkCRC

		case pngChunkCRC:
			if in.Len() < 4 {
				return core.NeedMoreInput()
			}
			got := be32(in.Bytes())
			in.Advance(4)
			sum := e.crc.Sum32()
			if got != sum && !e.cfg.Quirks.Enabled(format.QuirkIgnoreChecksum) {
				return fault("bad checksum")
			}
			if e.forward {
				var c [4]byte
				binary.BigEndian.PutUint32(c[:], sum)
				e.out.Write(c[:])
			}
			e.phase = pngChunkHeader
			if ev, ok := e.endChunk(); ok {
				return ev
			}

		case pngDecode:
			e.phase = pngDone
			if e.dst == nil {
				return core.Event{Status: core.StatusFrame}
			}
			img, err := png.Decode(bytes.NewReader(e.out.Bytes()))
			if err != nil {
				return libraryFault("png", err)
			}
			e.dst.DrawImage(img, image.Point{})
			return core.Event{Status: core.StatusFrame}

		case pngDone:
			return core.Done()
		}
	}
}

func (e *pngEngine) startChunk(typ string, n uint32, rawType []byte) {
	e.typ = typ
	e.remaining = n
	e.crc.Reset()
	e.crc.Write(rawType)
	e.body = e.body[:0]

	switch typ {
	case "IHDR", "PLTE", "tRNS", "IDAT", "IEND":
		e.forward = true
	default:
		e.forward = false
	}
	kind, verbatim := pngMetadataKind(typ)
	reported := kind != 0 && e.reports(kind)
	if typ == "iTXt" {
		reported = e.reports(format.MetaKVP) || e.reports(format.MetaXMP)
	}
	e.keep = typ == "IHDR" || reported
	e.bodyLimit = uint64(n)
	if reported && !verbatim {
		e.bodyLimit = textBodyLimit(e.cfg.MaxInclMetadataLength)
	}
	if reported && verbatim {
		e.push(core.Event{Status: core.StatusMetadataHeader, Kind: kind, Length: uint64(n)})
	}
	if e.forward {
		var hdr [8]byte
		binary.BigEndian.PutUint32(hdr[:4], n)
		copy(hdr[4:], rawType)
		e.out.Write(hdr[:])
	}
	e.phase = pngChunkBody
}

func (e *pngEngine) endChunk() (core.Event, bool) {
	switch e.typ {
	case "IHDR":
		if len(e.body) != 13 {
			return fault("bad header"), true
		}
		w, h := be32(e.body[0:]), be32(e.body[4:])
		if w == 0 || h == 0 || w > 0x7fffffff || h > 0x7fffffff {
			return fault("bad header"), true
		}
		e.sawIHDR = true
		e.ihdr = append(e.ihdr[:0], e.body...)
		return e.dimensions(w, h), true
	case "IEND":
		e.phase = pngDecode
		return core.Event{}, false
	}
	if !e.keep {
		return core.Event{}, false
	}
	if err := e.collect(e.typ, e.body); err != nil {
		return core.Fault(err), true
	}
	return core.Event{}, false
}

// pngMetadataKind maps an ancillary chunk type to its metadata kind.  verbatim
// is true when the chunk body is reported as is.
func pngMetadataKind(typ string) (kind format.FourCC, verbatim bool) {
	switch typ {
	case "bKGD":
		return format.MetaBGCL, true
	case "cHRM":
		return format.MetaCHRM, true
	case "eXIf":
		return format.MetaEXIF, true
	case "gAMA":
		return format.MetaGAMA, true
	case "oFFs":
		return format.MetaOFS2, true
	case "pHYs":
		return format.MetaPHYD, true
	case "sRGB":
		return format.MetaSRGB, true
	case "tIME":
		return format.MetaMTIM, true
	case "iCCP":
		return format.MetaICCP, false
	case "tEXt", "zTXt":
		return format.MetaKVP, false
	}
	return 0, false
}

// ── truncated input ───────────────────────────────────────────────────────────

// salvage decodes the scanlines that arrived whole before the input ended.
// They are inflated from the IDAT data received so far, padded with empty
// rows and run through image/png; only the complete rows are drawn.
// Interlaced images keep the background.
func (e *pngEngine) salvage() {
	if e.out == nil || len(e.ihdr) != 13 || e.ihdr[12] != 0 {
		return
	}
	w, h := int(be32(e.ihdr[0:])), int(be32(e.ihdr[4:]))
	depth, channels := int(e.ihdr[8]), pngChannels(e.ihdr[9])
	if channels == 0 {
		return
	}
	rowLen := (w*channels*depth+7)/8 + 1
	prefix, idat := splitIDAT(e.out.Bytes())
	if len(idat) < 2 || idat[1]&0x20 != 0 {
		return
	}
	raw := inflatePrefix(idat[2:], rowLen*h)
	rows := len(raw) / rowLen
	if rows == 0 {
		return
	}
	padded := make([]byte, rowLen*h)
	copy(padded, raw[:rows*rowLen])

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(padded); err != nil {
		return
	}
	if err := zw.Close(); err != nil {
		return
	}
	var stream bytes.Buffer
	stream.Write(prefix)
	writePNGChunk(&stream, "IDAT", z.Bytes())
	writePNGChunk(&stream, "IEND", nil)
	img, err := png.Decode(&stream)
	if err != nil {
		return
	}
	drawRows(e.dst, img, image.Rect(0, 0, w, rows))
}

func pngChannels(colorType byte) int {
	switch colorType {
	case 0, 3:
		return 1
	case 2:
		return 3
	case 4:
		return 2
	case 6:
		return 4
	}
	return 0
}

// splitIDAT splits a re-assembled stream into everything before the first
// IDAT chunk and the concatenated IDAT bodies, the last of which may be cut
// short.
func splitIDAT(out []byte) (prefix, idat []byte) {
	start := -1
	for pos := len(pngSignature); pos+8 <= len(out); {
		n := int(be32(out[pos:]))
		body := pos + 8
		end := min(body+n, len(out))
		if string(out[pos+4:pos+8]) == "IDAT" {
			if start < 0 {
				start = pos
			}
			idat = append(idat, out[body:end]...)
		}
		pos = body + n + 4
	}
	if start < 0 {
		return nil, nil
	}
	return out[:start], idat
}

func writePNGChunk(w *bytes.Buffer, typ string, body []byte) {
	var b [8]byte
	binary.BigEndian.PutUint32(b[:4], uint32(len(body)))
	copy(b[4:], typ)
	w.Write(b[:])
	w.Write(body)
	crc := crc32.NewIEEE()
	crc.Write(b[4:])
	crc.Write(body)
	binary.BigEndian.PutUint32(b[:4], crc.Sum32())
	w.Write(b[:4])
}
