package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.NRGBA{R: 1, A: 0xff})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestRun_ImagesJSON(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir)
	bad := filepath.Join(dir, "missing.png")

	var out bytes.Buffer
	require.NoError(t, run(options{output: "json"}, []string{good, bad}, &out))

	dec := json.NewDecoder(&out)
	var first, second imageResultSummary
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	assert.True(t, first.OK)
	assert.Equal(t, uint32(3), first.Width)
	assert.Equal(t, "bgra_premul", first.PixelFormat)
	assert.Equal(t, 24, first.PixelBytes)
	assert.False(t, second.OK)
	assert.Equal(t, "decodekit: failed to open file", second.Error)
}

func TestRun_ImagesCBOR(t *testing.T) {
	path := writePNG(t, t.TempDir())
	var out bytes.Buffer
	require.NoError(t, run(options{output: "cbor", codecs: "png", report: "xmp"}, []string{path}, &out))

	var got imageResultSummary
	require.NoError(t, cbor.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.OK)
	assert.Equal(t, uint32(2), got.Height)
	assert.Empty(t, got.Metadata)
}

func TestRun_JSONDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": [1, 2]}`), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(options{asJSON: true, output: "json", pointer: "/a/1"}, []string{path}, &out))

	var got jsonSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.OK)
	assert.Equal(t, float64(2), got.Value)
	assert.Equal(t, uint64(13), got.Cursor)
}

func TestRun_Root(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir)

	var out bytes.Buffer
	require.NoError(t, run(options{root: dir, output: "json"}, []string{"a.png", "../a.png"}, &out))

	dec := json.NewDecoder(&out)
	var inside, escaped imageResultSummary
	require.NoError(t, dec.Decode(&inside))
	require.NoError(t, dec.Decode(&escaped))
	assert.Equal(t, "local:a.png", inside.Source)
	assert.True(t, inside.OK)
	assert.Equal(t, uint32(3), inside.Width)
	assert.Equal(t, "local:../a.png", escaped.Source)
	assert.True(t, escaped.OK, "keys are cleaned against the root")

	assert.Error(t, run(options{root: filepath.Join(dir, "nope"), output: "json"}, []string{"a.png"}, &out))
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(options{output: "json"}, nil, &out))
	assert.Error(t, run(options{output: "xml"}, []string{"x"}, &out))
	assert.Error(t, run(options{output: "json", codecs: "heic"}, []string{"x"}, &out))
	assert.Error(t, run(options{output: "json", configPath: filepath.Join(t.TempDir(), "none.yaml")}, []string{"x"}, &out))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"png", "gif"}, splitList(" png, ,gif,"))
	assert.Nil(t, splitList(""))
}
