package core_test

import (
	"bytes"
	"errors"
	"image/color"
	"sync"
	"testing"

	"github.com/Skryldev/decodekit/config"
	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/pixel"
)

// ── Fake codec ────────────────────────────────────────────────────────────────
//
// A fake image is "FK", width, height, one grey byte per pixel.  When EXIF is
// selected the engine reports "abc" right after the header.  A pixel value of
// 0xee is a decode fault.

var fakeID = format.Make("FAKE")

type fakeCodec struct {
	id    format.FourCC
	name  string
	magic string
}

func newFake() *fakeCodec { return &fakeCodec{id: fakeID, name: "fake", magic: "FK"} }

func (c *fakeCodec) ID() format.FourCC { return c.id }
func (c *fakeCodec) Name() string      { return c.name }
func (c *fakeCodec) PrefixLen() int    { return len(c.magic) }

func (c *fakeCodec) Sniff(p []byte, _ bool) bool { return bytes.HasPrefix(p, []byte(c.magic)) }

func (c *fakeCodec) NewEngine() core.ImageEngine { return &fakeEngine{} }

type fakeEngine struct {
	cfg   core.EngineConfig
	w, h  uint32
	known bool
	dst   *pixel.Buffer
	stage int
	i     uint32
}

func (e *fakeEngine) Configure(cfg core.EngineConfig) error {
	e.cfg = cfg
	return nil
}

func (e *fakeEngine) Dimensions() (uint32, uint32, bool) { return e.w, e.h, e.known }
func (e *fakeEngine) SetDestination(dst *pixel.Buffer)   { e.dst = dst }

func (e *fakeEngine) Feed(in *core.Input) core.Event {
	switch e.stage {
	case 0:
		if in.Len() < 4 {
			return core.NeedMoreInput()
		}
		b := in.Bytes()
		e.w, e.h, e.known = uint32(b[2]), uint32(b[3]), true
		in.Advance(4)
		e.stage = 1
		if e.cfg.Reports(format.MetaEXIF) {
			e.stage = 3
		}
		return core.Event{Status: core.StatusDimensions}
	case 3:
		e.stage = 4
		return core.Event{Status: core.StatusMetadataHeader, Kind: format.MetaEXIF, Length: 3}
	case 4:
		e.stage = 1
		return core.Event{Status: core.StatusMetadata, Kind: format.MetaEXIF, Payload: []byte("abc")}
	case 1:
		if e.dst == nil {
			e.stage = 2
			return core.Event{Status: core.StatusFrame}
		}
		for e.i < e.w*e.h {
			if in.Len() == 0 {
				return core.NeedMoreInput()
			}
			v := in.Bytes()[0]
			if v == 0xee {
				return core.Fault(errors.New("bad pixel"))
			}
			e.dst.Put(int(e.i%e.w), int(e.i/e.w), color.Gray{Y: v})
			in.Advance(1)
			e.i++
		}
		e.stage = 2
		return core.Event{Status: core.StatusFrame}
	}
	return core.Done()
}

// fakeImage builds a fake file whose pixels count up from 1.
func fakeImage(w, h byte) []byte {
	out := []byte{'F', 'K', w, h}
	for i := 0; i < int(w)*int(h); i++ {
		out = append(out, byte(i+1))
	}
	return out
}

func fakeRegistry(t *testing.T, codecs ...core.Codec) *core.Registry {
	t.Helper()
	reg := core.NewRegistry()
	if len(codecs) == 0 {
		codecs = []core.Codec{newFake()}
	}
	for _, c := range codecs {
		if err := reg.Register(c); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return reg
}

func fakeConfig() config.Image {
	cfg := config.DefaultImage()
	cfg.EnabledCodecs = []format.FourCC{fakeID}
	cfg.PixelFormat = pixel.FormatRGBANonpremul
	return cfg
}

func newImageDecoder(t *testing.T, cfg config.Image, chunk int, reg *core.Registry) *core.ImageDecoder {
	t.Helper()
	rt := config.Default()
	rt.ChunkSize = chunk
	d, err := core.NewImageDecoder(rt, cfg, reg)
	if err != nil {
		t.Fatalf("new image decoder: %v", err)
	}
	return d
}

// grey expands grey bytes into RGBA pixels.
func grey(vs ...byte) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = append(out, v, v, v, 0xff)
	}
	return out
}

// ── Recording observers ───────────────────────────────────────────────────────

type recordingHook struct {
	mu      sync.Mutex
	before  []string
	reports []core.DecodeReport
}

func (h *recordingHook) BeforeDecode(pipeline, src string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.before = append(h.before, pipeline+":"+src)
}

func (h *recordingHook) AfterDecode(r core.DecodeReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, r)
}

type recordingMetrics struct {
	calls      int
	throughput int64
	memory     int64
	errors     []string
}

func (m *recordingMetrics) RecordDecodeTime(string, interface{ Seconds() float64 }) { m.calls++ }
func (m *recordingMetrics) RecordThroughput(n int64)                                { m.throughput += n }
func (m *recordingMetrics) RecordMemory(n int64)                                    { m.memory += n }
func (m *recordingMetrics) RecordError(codec, kind string) {
	m.errors = append(m.errors, codec+"/"+kind)
}

type recordingLogger struct{ warns []string }

func (l *recordingLogger) Debug(string, ...interface{})      {}
func (l *recordingLogger) Info(string, ...interface{})       {}
func (l *recordingLogger) Warn(msg string, _ ...interface{}) { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(string, ...interface{})      {}

// ── Tail codec ────────────────────────────────────────────────────────────────
//
// A tail image is "FT" followed by any number of bytes.  Its size is only
// known once the input is closed: the result is one grey pixel holding the
// byte count after the magic.

var tailID = format.Make("TAIL")

func newTail() *fakeCodec { return &fakeCodec{id: tailID, name: "tail", magic: "FT"} }

type tailCodec struct{ *fakeCodec }

func (tailCodec) NewEngine() core.ImageEngine { return &tailEngine{} }

type tailEngine struct {
	fakeEngine
	n int
}

func (e *tailEngine) Feed(in *core.Input) core.Event {
	switch e.stage {
	case 0:
		e.n += in.Len()
		in.Advance(in.Len())
		if !in.Closed() {
			return core.NeedMoreInput()
		}
		e.w, e.h, e.known = 1, 1, true
		e.stage = 1
		return core.Event{Status: core.StatusDimensions}
	case 1:
		e.stage = 2
		if e.dst != nil {
			e.dst.Put(0, 0, color.Gray{Y: byte(e.n - 2)})
		}
		return core.Event{Status: core.StatusFrame}
	}
	return core.Done()
}
