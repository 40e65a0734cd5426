// Package decoder provides the built-in image codec engines.
package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"io"
	"strings"

	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/pixel"
	"github.com/Skryldev/decodekit/utils"
)

// Codecs returns every built-in image codec: the default set first, then the
// opt-in JPEG and WEBP codecs.
func Codecs() []core.ImageCodec {
	return []core.ImageCodec{
		NewBMP(), NewGIF(), NewNIE(), NewPNG(), NewTGA(), NewWBMP(),
		NewJPEG(), NewWebP(),
	}
}

// ── frame ─────────────────────────────────────────────────────────────────────

// pending is a queued event whose payload may be built on demand, after the
// orchestrator has accepted the announced length.
type pending struct {
	ev    core.Event
	build func() []byte
}

// frame holds what every engine shares: configuration, dimensions, the
// destination buffer and a queue of events not yet returned.
type frame struct {
	cfg      core.EngineConfig
	w, h     uint32
	known    bool
	dst      *pixel.Buffer
	queue    []pending
	salvaged bool
}

func (f *frame) Configure(cfg core.EngineConfig) error {
	f.cfg = cfg
	return nil
}

func (f *frame) Dimensions() (uint32, uint32, bool) { return f.w, f.h, f.known }

func (f *frame) SetDestination(dst *pixel.Buffer) { f.dst = dst }

func (f *frame) dimensions(w, h uint32) core.Event {
	f.w, f.h, f.known = w, h, true
	return core.Event{Status: core.StatusDimensions}
}

// atEOF runs salvage once when ev asks for input that can never arrive, so
// the rows decoded so far reach the destination before the decode is
// reported as truncated.
func (f *frame) atEOF(in *core.Input, ev core.Event, salvage func()) core.Event {
	if ev.Status == core.StatusNeedMoreInput && in.Closed() && f.dst != nil && !f.salvaged {
		f.salvaged = true
		salvage()
	}
	return ev
}

func (f *frame) push(ev core.Event) { f.queue = append(f.queue, pending{ev: ev}) }

func (f *frame) pop() (core.Event, bool) {
	if len(f.queue) == 0 {
		return core.Event{}, false
	}
	p := f.queue[0]
	f.queue = f.queue[1:]
	if p.build != nil {
		p.ev.Payload = p.build()
	}
	return p.ev, true
}

func (f *frame) reports(kind format.FourCC) bool {
	return f.cfg.Reports(format.ReportKind(kind))
}

// report queues a verbatim payload of the given kind, announced by its length
// first.  Unselected kinds are dropped.
func (f *frame) report(kind format.FourCC, payload []byte) {
	f.reportLazy(kind, uint64(len(payload)), func() []byte { return payload })
}

// reportLazy announces n bytes of kind and only runs build once the
// announcement has been accepted.
func (f *frame) reportLazy(kind format.FourCC, n uint64, build func() []byte) {
	if !f.reports(kind) {
		return
	}
	f.push(core.Event{Status: core.StatusMetadataHeader, Kind: kind, Length: n})
	f.queue = append(f.queue, pending{ev: core.Event{Status: core.StatusMetadata, Kind: kind}, build: build})
}

// reportDerived queues a payload whose length was not known up front, such as
// decompressed or transcoded text.  The orchestrator checks its final length.
func (f *frame) reportDerived(kind format.FourCC, payload []byte) {
	f.push(core.Event{Status: core.StatusMetadata, Kind: kind, Payload: payload})
}

// maxMetadata is the inflation cap handed to decompressors: one byte past
// the configured limit, so an oversized payload is still detectable.
func (f *frame) maxMetadata() int64 {
	if f.cfg.MaxInclMetadataLength >= 1<<62 {
		return 1 << 62
	}
	return int64(f.cfg.MaxInclMetadataLength) + 1
}

// ── buffered ──────────────────────────────────────────────────────────────────

// buffered collects the whole input for engines that parse headers
// incrementally but hand pixel decoding to a library decoder.
type buffered struct {
	frame
	acc *bytes.Buffer
}

// take moves every unread byte of in into the accumulator.
func (b *buffered) take(in *core.Input) []byte {
	if b.acc == nil {
		b.acc = utils.AcquireBuffer()
	}
	b.acc.Write(in.Bytes())
	in.Advance(in.Len())
	return b.acc.Bytes()
}

// Close returns the accumulator to the pool.
func (b *buffered) Close() error {
	utils.ReleaseBuffer(b.acc)
	b.acc = nil
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func fault(msg string) core.Event { return core.Fault(errors.New(msg)) }

// libraryFault maps an error from a library decoder.  Running out of bytes
// becomes a request for more input, which at end of input is truncation; any
// other error drops the library's own "name: " prefix.
func libraryFault(name string, err error) core.Event {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return core.NeedMoreInput()
	}
	return fault(strings.TrimPrefix(err.Error(), name+": "))
}

// drawRows composes the part of img inside r into dst at the same place.
func drawRows(dst *pixel.Buffer, img image.Image, r image.Rectangle) {
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		img = s.SubImage(r)
	}
	dst.DrawImage(img, img.Bounds().Min)
}

func le16(b []byte) uint32 { return uint32(binary.LittleEndian.Uint16(b)) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func be16(b []byte) uint32 { return uint32(binary.BigEndian.Uint16(b)) }
func be32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
