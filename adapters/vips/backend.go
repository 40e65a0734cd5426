// Package vips provides an opt-in image codec backed by libvips.  It decodes
// anything libvips can load from a buffer, which widens coverage beyond the
// built-in engines at the cost of staging the whole input.
package vips

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"runtime"
	"strings"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/pixel"
	"github.com/Skryldev/decodekit/utils"
)

// BackendConfig configures the libvips runtime.
type BackendConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
}

// Backend owns the libvips runtime.  Call Shutdown when the process exits.
type Backend struct {
	cfg BackendConfig
}

// NewBackend starts libvips and returns a ready Backend.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// Codec returns the VIPS image codec.  Enable format.VIPS in the image
// configuration, usually after the built-in codecs, to use it.
func (b *Backend) Codec() *Codec { return &Codec{} }

// Codec sniffs with libvips' own type detection.
type Codec struct{}

func (*Codec) ID() format.FourCC { return format.VIPS }
func (*Codec) Name() string      { return "vips" }
func (*Codec) PrefixLen() int    { return 32 }

func (*Codec) Sniff(p []byte, _ bool) bool {
	return len(p) > 0 && govips.DetermineImageType(p) != govips.ImageTypeUnknown
}

func (*Codec) NewEngine() core.ImageEngine { return &engine{} }

var _ core.ImageCodec = (*Codec)(nil)

// engine stages the input, loads it once it is complete, then draws a PNG
// export of the loaded image into the destination.
type engine struct {
	cfg   core.EngineConfig
	acc   *bytes.Buffer
	ref   *govips.ImageRef
	dst   *pixel.Buffer
	w, h  uint32
	known bool
	queue []core.Event
	done  bool
}

func (e *engine) Configure(cfg core.EngineConfig) error {
	e.cfg = cfg
	return nil
}

func (e *engine) Dimensions() (uint32, uint32, bool) { return e.w, e.h, e.known }

func (e *engine) SetDestination(dst *pixel.Buffer) { e.dst = dst }

// Close releases the staged bytes and the libvips image.
func (e *engine) Close() error {
	utils.ReleaseBuffer(e.acc)
	e.acc = nil
	if e.ref != nil {
		e.ref.Close()
		e.ref = nil
	}
	return nil
}

func (e *engine) Feed(in *core.Input) core.Event {
	if len(e.queue) > 0 {
		ev := e.queue[0]
		e.queue = e.queue[1:]
		return ev
	}
	if e.done {
		return core.Done()
	}
	if e.acc == nil {
		e.acc = utils.AcquireBuffer()
	}
	e.acc.Write(in.Bytes())
	in.Advance(in.Len())
	if !in.Closed() {
		return core.NeedMoreInput()
	}

	if e.ref == nil {
		ref, err := govips.NewImageFromBuffer(e.acc.Bytes())
		if err != nil {
			return fault(err)
		}
		e.ref = ref
		e.w, e.h, e.known = uint32(ref.Width()), uint32(ref.Height()), true
		if icc := ref.GetICCProfile(); len(icc) > 0 && e.cfg.Reports(format.MetaICCP) {
			e.queue = append(e.queue,
				core.Event{Status: core.StatusMetadataHeader, Kind: format.MetaICCP, Length: uint64(len(icc))},
				core.Event{Status: core.StatusMetadata, Kind: format.MetaICCP, Payload: icc},
			)
		}
		e.queue = append(e.queue, core.Event{Status: core.StatusDimensions})
		return e.Feed(in)
	}

	e.done = true
	if e.dst == nil {
		return core.Event{Status: core.StatusFrame}
	}
	buf, _, err := e.ref.ExportPng(govips.NewPngExportParams())
	if err != nil {
		return fault(err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return fault(err)
	}
	e.dst.DrawImage(img, image.Point{})
	return core.Event{Status: core.StatusFrame}
}

// fault keeps the first line of a libvips error, which otherwise carries
// the whole libvips error buffer.
func fault(err error) core.Event {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return core.Fault(errors.New(strings.TrimSpace(msg)))
}
