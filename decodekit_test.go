package decodekit_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/bmp"

	"github.com/Skryldev/decodekit"
	"github.com/Skryldev/decodekit/config"
	"github.com/Skryldev/decodekit/core"
	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/hooks"
	"github.com/Skryldev/decodekit/pixel"
	"github.com/Skryldev/decodekit/source"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

var testPalette = color.Palette{
	color.RGBA{R: 200, G: 50, B: 50, A: 255},
	color.RGBA{R: 50, G: 50, B: 200, A: 255},
	color.RGBA{R: 10, G: 220, B: 30, A: 255},
	color.RGBA{R: 255, G: 255, B: 255, A: 255},
}

// newTestImage is a w×h paletted image using every palette entry.
func newTestImage(w, h int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, w, h), testPalette)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetColorIndex(x, y, uint8((x+2*y)%len(testPalette)))
		}
	}
	return img
}

func encodeAs(t *testing.T, name string, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch name {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	default:
		t.Fatalf("unknown test encoding %q", name)
	}
	if err != nil {
		t.Fatalf("encode test %s: %v", name, err)
	}
	return buf.Bytes()
}

// rgba is the expected RGBA_NONPREMUL buffer for img.
func rgba(img image.Image) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out = append(out, c.R, c.G, c.B, c.A)
		}
	}
	return out
}

func newKit(t *testing.T, chunk int) *decodekit.Decodekit {
	t.Helper()
	cfg := decodekit.DefaultConfig()
	if chunk > 0 {
		cfg.ChunkSize = chunk
	}
	kit, err := decodekit.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return kit
}

func rgbaImageConfig() config.Image {
	cfg := decodekit.DefaultImage()
	cfg.PixelFormat = pixel.FormatRGBANonpremul
	return cfg
}

func decodeImage(t *testing.T, kit *decodekit.Decodekit, src source.Source, cfg config.Image) *core.ImageResult {
	t.Helper()
	res, err := kit.DecodeImage(src, cfg)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	return res
}

// ── Images ────────────────────────────────────────────────────────────────────

// The codec identifiers are constants, usable in const expressions.
const defaultOrderHead = decodekit.BMP

func TestCodecConstants(t *testing.T) {
	if defaultOrderHead != format.BMP || decodekit.PNG != format.Make("PNG") {
		t.Fatalf("re-exported codec identifiers differ from the format package")
	}
	switch format.DefaultImageCodecs()[0] {
	case decodekit.BMP:
	default:
		t.Fatalf("BMP is not first in the default codec order")
	}
}

func TestDecodeImage_FromFile(t *testing.T) {
	img := newTestImage(8, 5)
	path := filepath.Join(t.TempDir(), "test.png")
	if err := os.WriteFile(path, encodeAs(t, "png", img), 0o644); err != nil {
		t.Fatal(err)
	}

	res := decodeImage(t, newKit(t, 0), decodekit.FromFile(path), decodekit.DefaultImage())
	if !res.OK() {
		t.Fatalf("decode: %s", res.ErrorMessage())
	}
	want := pixel.Config{Format: pixel.FormatBGRAPremul, Width: 8, Height: 5}
	if res.Config != want {
		t.Fatalf("config = %+v, want %+v", res.Config, want)
	}
	if uint64(len(res.Pixels)) != want.PixbufLen() {
		t.Fatalf("pixels = %d bytes, want %d", len(res.Pixels), want.PixbufLen())
	}
	if got := res.Pixels[:4]; !bytes.Equal(got, []byte{50, 50, 200, 255}) {
		t.Fatalf("first pixel = % x", got)
	}
}

func TestDecodeImage_FormatsAgree(t *testing.T) {
	img := newTestImage(7, 3)
	want := rgba(img)
	for _, name := range []string{"png", "gif", "bmp"} {
		for _, chunk := range []int{1, 13, 0} {
			res := decodeImage(t, newKit(t, chunk), decodekit.FromBytes(encodeAs(t, name, img)), rgbaImageConfig())
			if !res.OK() {
				t.Fatalf("%s/%d: %s", name, chunk, res.ErrorMessage())
			}
			if !bytes.Equal(res.Pixels, want) {
				t.Fatalf("%s/%d: pixels differ", name, chunk)
			}
		}
	}
}

func TestDecodeImage_Zstd(t *testing.T) {
	img := newTestImage(4, 4)
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	packed := enc.EncodeAll(encodeAs(t, "gif", img), nil)
	enc.Close()

	res := decodeImage(t, newKit(t, 0), decodekit.Zstd(decodekit.FromBytes(packed)), rgbaImageConfig())
	if !res.OK() || !bytes.Equal(res.Pixels, rgba(img)) {
		t.Fatalf("zstd decode: %q", res.ErrorMessage())
	}
}

func TestDecodeImage_Failures(t *testing.T) {
	kit := newKit(t, 0)
	cases := []struct {
		name string
		src  source.Source
		cfg  config.Image
		want string
	}{
		{"missing file", decodekit.FromFile(filepath.Join(t.TempDir(), "nope.png")), decodekit.DefaultImage(), apperrors.MsgFailedToOpenFile},
		{"unknown format", decodekit.FromBytes([]byte("not an image at all")), decodekit.DefaultImage(), apperrors.MsgUnsupportedImageFormat},
		{"empty input", decodekit.FromBytes(nil), decodekit.DefaultImage(), apperrors.MsgUnsupportedImageFormat},
		{"codec disabled", decodekit.FromBytes(encodeAs(t, "png", newTestImage(1, 1))), func() config.Image {
			c := decodekit.DefaultImage()
			c.EnabledCodecs = []format.FourCC{decodekit.GIF}
			return c
		}(), apperrors.MsgUnsupportedImageFormat},
		{"bgrx", decodekit.FromBytes(encodeAs(t, "png", newTestImage(1, 1))), func() config.Image {
			c := decodekit.DefaultImage()
			c.PixelFormat = pixel.FormatBGRX
			return c
		}(), apperrors.MsgUnsupportedPixelFormat},
		{"too large", decodekit.FromBytes(encodeAs(t, "bmp", newTestImage(9, 2))), func() config.Image {
			c := decodekit.DefaultImage()
			c.MaxInclDimension = 8
			return c
		}(), apperrors.MsgMaxInclDimensionExceeded},
	}
	for _, tc := range cases {
		res := decodeImage(t, kit, tc.src, tc.cfg)
		if got := res.ErrorMessage(); got != tc.want {
			t.Errorf("%s: error = %q, want %q", tc.name, got, tc.want)
		}
		if res.Pixels != nil || res.Config != (pixel.Config{}) {
			t.Errorf("%s: failed decode kept output", tc.name)
		}
		if res.Metadata == nil {
			t.Errorf("%s: metadata is nil", tc.name)
		}
	}
}

func TestDecodeImage_Truncated(t *testing.T) {
	data := encodeAs(t, "bmp", newTestImage(6, 6))
	res := decodeImage(t, newKit(t, 0), decodekit.FromBytes(data[:len(data)-10]), rgbaImageConfig())
	if !res.Truncated() {
		t.Fatalf("want truncation, got %q", res.ErrorMessage())
	}
	if res.ErrorMessage() != "bmp: truncated input" {
		t.Fatalf("message = %q", res.ErrorMessage())
	}
	if res.Config.Width != 6 || len(res.Pixels) != 6*6*4 {
		t.Fatalf("truncated decode lost its configuration: %+v, %d bytes", res.Config, len(res.Pixels))
	}
}

func TestDecodeImage_Empty(t *testing.T) {
	res := decodeImage(t, newKit(t, 0), decodekit.FromBytes([]byte{0, 0, 0, 5}), decodekit.DefaultImage())
	if !res.OK() {
		t.Fatalf("decode: %s", res.ErrorMessage())
	}
	if res.Pixels == nil || len(res.Pixels) != 0 || res.Config.Height != 5 {
		t.Fatalf("empty image: config %+v pixels %v", res.Config, res.Pixels)
	}
}

func TestDecoderReuse(t *testing.T) {
	kit := newKit(t, 64)
	d, err := kit.NewImageDecoder(rgbaImageConfig())
	if err != nil {
		t.Fatal(err)
	}
	good := decodekit.FromBytes(encodeAs(t, "png", newTestImage(5, 5)))
	first := d.Decode(good)
	if bad := d.Decode(decodekit.FromBytes([]byte("GIF89a"))); bad.OK() {
		t.Fatal("header-only gif decoded")
	}
	again := d.Decode(good)
	if !reflect.DeepEqual(first, again) {
		t.Fatal("a failed decode changed the next result")
	}
}

func TestConcurrentDecoders(t *testing.T) {
	kit := newKit(t, 0)
	data := encodeAs(t, "png", newTestImage(16, 16))
	want := rgba(newTestImage(16, 16))

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := kit.NewImageDecoder(rgbaImageConfig())
			if err != nil {
				errs <- err.Error()
				return
			}
			for j := 0; j < 5; j++ {
				res := d.Decode(decodekit.FromBytes(data))
				if !res.OK() || !bytes.Equal(res.Pixels, want) {
					errs <- res.ErrorMessage()
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("concurrent decode: %q", e)
	}
}

func TestBatchImages(t *testing.T) {
	cfg := decodekit.DefaultConfig()
	cfg.WorkerCount = 3
	kit, err := decodekit.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var sources []source.Source
	for i := 1; i <= 6; i++ {
		sources = append(sources, decodekit.FromBytes(encodeAs(t, "gif", newTestImage(i, 1))))
	}
	results, err := kit.BatchImages(context.Background(), sources, decodekit.DefaultImage())
	if err != nil {
		t.Fatal(err)
	}
	for i, res := range results {
		if !res.OK() || res.Config.Width != uint32(i+1) {
			t.Fatalf("result %d: %q width %d", i, res.ErrorMessage(), res.Config.Width)
		}
	}
}

func TestObservers(t *testing.T) {
	kit := newKit(t, 0)
	var logs bytes.Buffer
	logger := hooks.NewSlogLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	metrics := hooks.NewInMemoryMetrics()
	kit.SetLogger(logger)
	kit.SetMetrics(metrics)
	kit.AddHook(hooks.NewLoggingHook(logger))

	decodeImage(t, kit, decodekit.FromBytes(encodeAs(t, "png", newTestImage(2, 2))), decodekit.DefaultImage())
	decodeImage(t, kit, decodekit.FromBytes([]byte("garbage!")), decodekit.DefaultImage())
	if _, err := kit.DecodeJSON(decodekit.FromBytes([]byte(`[1]`)), config.DefaultJSON()); err != nil {
		t.Fatal(err)
	}

	snap := metrics.Snapshot()
	if snap.DecodeCalls["png"] != 1 || snap.DecodeCalls["none"] != 1 || snap.DecodeCalls["json"] != 1 {
		t.Fatalf("decode calls = %v", snap.DecodeCalls)
	}
	if snap.ErrorKinds["unsupported_image_format"] != 1 {
		t.Fatalf("error kinds = %v", snap.ErrorKinds)
	}
	if snap.TotalMemoryB != 16 {
		t.Fatalf("memory = %d", snap.TotalMemoryB)
	}
	for _, want := range []string{"decode.start", "decode.done", "decode.error"} {
		if !bytes.Contains(logs.Bytes(), []byte(want)) {
			t.Errorf("log output lacks %q", want)
		}
	}
}

func TestRegisterCodec(t *testing.T) {
	kit := newKit(t, 0)
	if err := kit.RegisterCodec(kit.Registry().Codecs()[0]); err == nil {
		t.Fatal("duplicate registration accepted")
	}
	if _, ok := kit.Registry().Lookup(decodekit.JSON); !ok {
		t.Fatal("json codec not registered")
	}
	if _, err := decodekit.New(config.Config{}); err == nil {
		t.Fatal("zero config accepted")
	}
}

// ── JSON ──────────────────────────────────────────────────────────────────────

func TestDecodeJSON(t *testing.T) {
	kit := newKit(t, 0)
	doc := []byte(`{"key1": 1, "key2": [2, 3], "key3": {"a": "b"}}`)

	res, err := kit.DecodeJSON(decodekit.FromBytes(doc), config.JSON{JSONPointer: "/key2"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() || !reflect.DeepEqual(res.Value, []any{int64(2), int64(3)}) {
		t.Fatalf("value = %#v, err %q", res.Value, res.ErrorMessage())
	}
	if res.CursorPosition == 0 {
		t.Fatal("cursor not advanced")
	}

	for _, tc := range []struct {
		in, ptr, want string
	}{
		{"test", "", apperrors.MsgBadDepth},
		{"+(=)", "", apperrors.MsgBadDepth},
		{string(doc), "/random", apperrors.MsgBadDepth},
		{`[1, 2,]`, "", apperrors.MsgBadInput},
	} {
		res, err := kit.DecodeJSON(decodekit.FromBytes([]byte(tc.in)), config.JSON{JSONPointer: tc.ptr})
		if err != nil {
			t.Fatal(err)
		}
		if res.ErrorMessage() != tc.want || res.CursorPosition != 0 {
			t.Errorf("%q %q: error %q cursor %d, want %q", tc.in, tc.ptr, res.ErrorMessage(), res.CursorPosition, tc.want)
		}
	}

	if _, err := kit.DecodeJSON(decodekit.FromBytes(doc), config.JSON{JSONPointer: "key2"}); err == nil {
		t.Fatal("pointer without a leading slash accepted")
	}
}

func TestDecodeJSON_Reader(t *testing.T) {
	kit := newKit(t, 1)
	src := decodekit.FromReader(bytes.NewReader([]byte(`  {"ok": true} `)))
	res, err := kit.DecodeJSON(src, config.DefaultJSON())
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() || !reflect.DeepEqual(res.Value, map[string]any{"ok": true}) {
		t.Fatalf("value = %#v, err %q", res.Value, res.ErrorMessage())
	}
	if res.CursorPosition != 14 {
		t.Fatalf("cursor = %d", res.CursorPosition)
	}
	again, _ := kit.DecodeJSON(src, config.DefaultJSON())
	if again.ErrorMessage() != apperrors.MsgFailedToOpenFile {
		t.Fatalf("second read of a reader: %q", again.ErrorMessage())
	}
}
