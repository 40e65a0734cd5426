package decoder_test

import (
	"bytes"
	"image"
	"image/gif"
	"image/png"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// noisyImage is an opaque 64x64 image that does not compress well, so the
// tail of its encoding carries real pixel data.
func noisyImage() *image.NRGBA {
	rng := rand.New(rand.NewSource(7))
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

func TestTruncatedKeepsDecodedRows(t *testing.T) {
	const stride = 64 * 4
	cases := []struct {
		name   string
		encode func(io.Writer, image.Image) error
		row    int // a row stored early in the file
	}{
		{"png", png.Encode, 0},
		{"bmp", bmp.Encode, 63}, // bottom-up
		{"gif", func(w io.Writer, m image.Image) error { return gif.Encode(w, m, nil) }, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tc.encode(&buf, noisyImage()))
			full := decodeAll(t, rgbaConfig(), buf.Bytes())
			requireOK(t, full)

			cut := decodeAll(t, rgbaConfig(), buf.Bytes()[:buf.Len()-64])
			require.True(t, cut.Truncated())
			assert.Equal(t, tc.name+": truncated input", cut.ErrorMessage())
			require.Len(t, cut.Pixels, len(full.Pixels))
			assert.NotEqual(t, make([]byte, len(cut.Pixels)), cut.Pixels)

			lo, hi := tc.row*stride, (tc.row+1)*stride
			assert.Equal(t, full.Pixels[lo:hi], cut.Pixels[lo:hi])
		})
	}
}
