// Package decodekit is the entry point: one facade that sniffs a byte source,
// picks a codec engine and returns a uniform result for images and JSON.
package decodekit

import (
	"context"
	"io"

	"github.com/Skryldev/decodekit/adapters/decoder"
	"github.com/Skryldev/decodekit/adapters/jsonengine"
	"github.com/Skryldev/decodekit/config"
	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/source"
)

// Re-export codec identifiers for convenience.
const (
	BMP  = format.BMP
	GIF  = format.GIF
	NIE  = format.NIE
	PNG  = format.PNG
	TGA  = format.TGA
	WBMP = format.WBMP
	JPEG = format.JPEG
	WEBP = format.WEBP
	VIPS = format.VIPS
	JSON = format.JSON
)

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() config.Config { return config.Default() }

// DefaultImage returns the default image decode configuration.
func DefaultImage() config.Image { return config.DefaultImage() }

// Decodekit owns a codec registry and the observers attached to every
// decoder it builds.  Attach loggers, hooks and metrics before building
// decoders.
type Decodekit struct {
	cfg     config.Config
	reg     *core.Registry
	logger  core.Logger
	metrics core.MetricsCollector
	hooks   []core.Hook
}

// New creates a Decodekit with every built-in codec registered.
func New(cfg config.Config) (*Decodekit, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	reg := core.NewRegistry()
	for _, c := range decoder.Codecs() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	if err := reg.Register(jsonengine.New()); err != nil {
		return nil, err
	}
	return &Decodekit{cfg: cfg, reg: reg}, nil
}

// SetLogger attaches a structured logger.
func (k *Decodekit) SetLogger(l core.Logger) { k.logger = l }

// SetMetrics attaches a metrics collector.
func (k *Decodekit) SetMetrics(m core.MetricsCollector) { k.metrics = m }

// AddHook registers an observer for decode events.
func (k *Decodekit) AddHook(h core.Hook) { k.hooks = append(k.hooks, h) }

// RegisterCodec adds a custom codec.  Enable its ID in the image
// configuration to let it take part in sniffing.
func (k *Decodekit) RegisterCodec(c core.Codec) error { return k.reg.Register(c) }

// Registry exposes the codec registry.
func (k *Decodekit) Registry() *core.Registry { return k.reg }

// NewImageDecoder builds a reusable image decoder.  The decoder is not safe
// for concurrent use.
func (k *Decodekit) NewImageDecoder(cfg config.Image) (*core.ImageDecoder, error) {
	d, err := core.NewImageDecoder(k.cfg, cfg, k.reg)
	if err != nil {
		return nil, err
	}
	if k.logger != nil {
		d.SetLogger(k.logger)
	}
	if k.metrics != nil {
		d.SetMetrics(k.metrics)
	}
	for _, h := range k.hooks {
		d.AddHook(h)
	}
	return d, nil
}

// NewJSONDecoder builds a reusable JSON decoder.
func (k *Decodekit) NewJSONDecoder(cfg config.JSON) (*core.JSONDecoder, error) {
	d, err := core.NewJSONDecoder(k.cfg, cfg, k.reg)
	if err != nil {
		return nil, err
	}
	if k.logger != nil {
		d.SetLogger(k.logger)
	}
	if k.metrics != nil {
		d.SetMetrics(k.metrics)
	}
	for _, h := range k.hooks {
		d.AddHook(h)
	}
	return d, nil
}

// DecodeImage decodes one image.  The error is only for an invalid
// configuration; decode failures are reported in the result.
func (k *Decodekit) DecodeImage(src source.Source, cfg config.Image) (*core.ImageResult, error) {
	d, err := k.NewImageDecoder(cfg)
	if err != nil {
		return nil, err
	}
	return d.Decode(src), nil
}

// DecodeJSON decodes one JSON document, with the same error split as
// DecodeImage.
func (k *Decodekit) DecodeJSON(src source.Source, cfg config.JSON) (*core.JSONResult, error) {
	d, err := k.NewJSONDecoder(cfg)
	if err != nil {
		return nil, err
	}
	return d.Decode(src), nil
}

// BatchImages decodes sources concurrently with WorkerCount decoders built
// from cfg.  Results are in source order.
func (k *Decodekit) BatchImages(ctx context.Context, sources []source.Source, cfg config.Image) ([]*core.ImageResult, error) {
	return core.BatchImages(ctx, k.cfg.WorkerCount, func() (*core.ImageDecoder, error) {
		return k.NewImageDecoder(cfg)
	}, sources)
}

// ── Source constructors ────────────────────────────────────────────────────────

// FromFile reads the file at path.
func FromFile(path string) source.Source { return source.FromFile(path) }

// FromBytes reads an in-memory buffer without copying it.
func FromBytes(b []byte) source.Source { return source.FromBytes(b) }

// FromReader wraps a reader that can be decoded once.
func FromReader(r io.Reader) source.Source { return source.FromReader(r) }

// Zstd decompresses inner before decoding.
func Zstd(inner source.Source) source.Source { return source.Zstd(inner) }
