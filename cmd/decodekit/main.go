// Command decodekit decodes files with the decodekit facade and prints a
// summary of each result as JSON or CBOR.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/Skryldev/decodekit"
	"github.com/Skryldev/decodekit/adapters/storage"
	"github.com/Skryldev/decodekit/adapters/vips"
	"github.com/Skryldev/decodekit/config"
	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/hooks"
	"github.com/Skryldev/decodekit/source"
	"github.com/Skryldev/decodekit/utils"
)

type options struct {
	configPath string
	root       string
	asJSON     bool
	pointer    string
	codecs     string
	report     string
	output     string
	zstd       bool
	useVips    bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "configuration file (yaml, json, toml)")
	flag.StringVar(&o.root, "root", "", "resolve inputs as keys inside this directory")
	flag.BoolVar(&o.asJSON, "json", false, "decode inputs as JSON documents")
	flag.StringVar(&o.pointer, "pointer", "", "JSON pointer selecting a subtree")
	flag.StringVar(&o.codecs, "codecs", "", "comma separated codec names, in sniffing order")
	flag.StringVar(&o.report, "report", "", "comma separated metadata kinds to report")
	flag.StringVar(&o.output, "output", "json", "output encoding: json or cbor")
	flag.BoolVar(&o.zstd, "zstd", false, "inputs are zstd compressed")
	flag.BoolVar(&o.useVips, "vips", false, "append the libvips codec to the enabled codecs")
	flag.Parse()

	if err := run(o, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "decodekit:", err)
		os.Exit(1)
	}
}

func run(o options, paths []string, w io.Writer) error {
	if len(paths) == 0 {
		return fmt.Errorf("no input files")
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	zl, err := hooks.SetupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer zl.Sync()
	logger := hooks.NewZapLogger(zl)

	kit, err := decodekit.New(cfg)
	if err != nil {
		return err
	}
	kit.SetLogger(logger)
	kit.AddHook(hooks.NewLoggingHook(logger))

	if o.useVips {
		backend := vips.NewBackend(vips.BackendConfig{MaxWorkers: cfg.WorkerCount})
		defer backend.Shutdown()
		if err := kit.RegisterCodec(backend.Codec()); err != nil {
			return err
		}
	}

	enc, err := newEncoder(o.output, w)
	if err != nil {
		return err
	}

	open := source.FromFile
	if o.root != "" {
		store, err := storage.NewLocal(o.root)
		if err != nil {
			return err
		}
		open = func(p string) source.Source { return store.Source(storage.Key{Path: p}) }
	}
	sources := make([]source.Source, len(paths))
	for i, p := range paths {
		sources[i] = open(p)
		if o.zstd {
			sources[i] = source.Zstd(sources[i])
		}
	}

	if o.asJSON {
		return decodeJSON(kit, cfg, o, sources, enc)
	}
	return decodeImages(kit, cfg, o, sources, enc, zl)
}

func decodeImages(kit *decodekit.Decodekit, cfg config.Config, o options, sources []source.Source, enc encoder, zl *zap.Logger) error {
	file := cfg.Image
	if o.codecs != "" {
		file.Codecs = splitList(o.codecs)
	}
	if o.report != "" {
		file.Report = splitList(o.report)
	}
	img, err := file.Resolve()
	if err != nil {
		return err
	}
	if o.useVips {
		img.EnabledCodecs = append(img.EnabledCodecs, format.VIPS)
	}

	results, err := kit.BatchImages(context.Background(), sources, img)
	if err != nil {
		return err
	}
	failed := 0
	for i, res := range results {
		if !res.OK() {
			failed++
		}
		if err := enc.Encode(imageSummary(sources[i], res)); err != nil {
			return err
		}
	}
	zl.Info("decode finished", zap.Int("files", len(results)), zap.Int("failed", failed))
	return nil
}

func decodeJSON(kit *decodekit.Decodekit, cfg config.Config, o options, sources []source.Source, enc encoder) error {
	file := cfg.JSON
	if o.pointer != "" {
		file.JSONPointer = o.pointer
	}
	jc, err := file.Resolve()
	if err != nil {
		return err
	}
	d, err := kit.NewJSONDecoder(jc)
	if err != nil {
		return err
	}
	for _, src := range sources {
		res := d.Decode(src)
		out := jsonSummary{Source: src.Name(), OK: res.OK(), Error: res.ErrorMessage(), Cursor: res.CursorPosition, Value: res.Value}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

// ── output ────────────────────────────────────────────────────────────────────

type metadataSummary struct {
	Kind   string `json:"kind" cbor:"kind"`
	Length int    `json:"length" cbor:"length"`
	Type   string `json:"type" cbor:"type"`
}

type imageResultSummary struct {
	Source      string            `json:"source" cbor:"source"`
	OK          bool              `json:"ok" cbor:"ok"`
	Error       string            `json:"error,omitempty" cbor:"error,omitempty"`
	Width       uint32            `json:"width" cbor:"width"`
	Height      uint32            `json:"height" cbor:"height"`
	PixelFormat string            `json:"pixel_format,omitempty" cbor:"pixel_format,omitempty"`
	PixelBytes  int               `json:"pixel_bytes" cbor:"pixel_bytes"`
	Metadata    []metadataSummary `json:"metadata" cbor:"metadata"`
}

type jsonSummary struct {
	Source string `json:"source" cbor:"source"`
	OK     bool   `json:"ok" cbor:"ok"`
	Error  string `json:"error,omitempty" cbor:"error,omitempty"`
	Cursor uint64 `json:"cursor" cbor:"cursor"`
	Value  any    `json:"value" cbor:"value"`
}

func imageSummary(src source.Source, res *core.ImageResult) imageResultSummary {
	out := imageResultSummary{
		Source:     src.Name(),
		OK:         res.OK(),
		Error:      res.ErrorMessage(),
		Width:      res.Config.Width,
		Height:     res.Config.Height,
		PixelBytes: len(res.Pixels),
		Metadata:   []metadataSummary{},
	}
	if res.Config.IsValid() {
		out.PixelFormat = res.Config.Format.String()
	}
	for _, m := range res.Metadata {
		out.Metadata = append(out.Metadata, metadataSummary{
			Kind:   m.Kind.String(),
			Length: len(m.Data),
			Type:   utils.ContentType(m.Data),
		})
	}
	return out
}

type encoder interface{ Encode(v any) error }

type cborEncoder struct {
	em cbor.EncMode
	w  io.Writer
}

func (c cborEncoder) Encode(v any) error {
	b, err := c.em.Marshal(v)
	if err != nil {
		return err
	}
	_, err = c.w.Write(b)
	return err
}

func newEncoder(name string, w io.Writer) (encoder, error) {
	switch strings.ToLower(name) {
	case "json":
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e, nil
	case "cbor":
		em, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			return nil, err
		}
		return cborEncoder{em: em, w: w}, nil
	}
	return nil, fmt.Errorf("unknown output %q", name)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
