// Package pixel describes destination pixel layouts and owns the pixel buffer
// that codec engines draw into.
package pixel

import (
	"fmt"
	"strings"
)

// Format is a pixel memory layout.
type Format uint32

const (
	FormatInvalid Format = iota
	FormatA
	FormatY
	FormatY16LE
	FormatY16BE
	FormatYANonpremul
	FormatYAPremul
	FormatYCbCr
	FormatYCbCrANonpremul
	FormatYCbCrK
	FormatYCoCg
	FormatYCoCgANonpremul
	FormatYCoCgK
	FormatIndexedBGRANonpremul
	FormatIndexedBGRAPremul
	FormatIndexedBGRABinary
	FormatBGR565
	FormatBGR
	FormatBGRANonpremul
	FormatBGRANonpremul4x16LE
	FormatBGRAPremul
	FormatBGRAPremul4x16LE
	FormatBGRABinary
	FormatBGRX
	FormatRGB
	FormatRGBANonpremul
	FormatRGBANonpremul4x16LE
	FormatRGBAPremul
	FormatRGBAPremul4x16LE
	FormatRGBABinary
	FormatRGBX
	FormatCMY
	FormatCMYK

	formatCount
)

var formatNames = [...]string{
	FormatInvalid:              "invalid",
	FormatA:                    "a",
	FormatY:                    "y",
	FormatY16LE:                "y_16le",
	FormatY16BE:                "y_16be",
	FormatYANonpremul:          "ya_nonpremul",
	FormatYAPremul:             "ya_premul",
	FormatYCbCr:                "ycbcr",
	FormatYCbCrANonpremul:      "ycbcra_nonpremul",
	FormatYCbCrK:               "ycbcrk",
	FormatYCoCg:                "ycocg",
	FormatYCoCgANonpremul:      "ycocga_nonpremul",
	FormatYCoCgK:               "ycocgk",
	FormatIndexedBGRANonpremul: "indexed__bgra_nonpremul",
	FormatIndexedBGRAPremul:    "indexed__bgra_premul",
	FormatIndexedBGRABinary:    "indexed__bgra_binary",
	FormatBGR565:               "bgr_565",
	FormatBGR:                  "bgr",
	FormatBGRANonpremul:        "bgra_nonpremul",
	FormatBGRANonpremul4x16LE:  "bgra_nonpremul_4x16le",
	FormatBGRAPremul:           "bgra_premul",
	FormatBGRAPremul4x16LE:     "bgra_premul_4x16le",
	FormatBGRABinary:           "bgra_binary",
	FormatBGRX:                 "bgrx",
	FormatRGB:                  "rgb",
	FormatRGBANonpremul:        "rgba_nonpremul",
	FormatRGBANonpremul4x16LE:  "rgba_nonpremul_4x16le",
	FormatRGBAPremul:           "rgba_premul",
	FormatRGBAPremul4x16LE:     "rgba_premul_4x16le",
	FormatRGBABinary:           "rgba_binary",
	FormatRGBX:                 "rgbx",
	FormatCMY:                  "cmy",
	FormatCMYK:                 "cmyk",
}

func (f Format) String() string {
	if f < formatCount {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", uint32(f))
}

// Known reports whether f is an enumerated layout (supported or not).
func (f Format) Known() bool { return f > FormatInvalid && f < formatCount }

// bytesPerPixel lists the layouts a decode can produce.
var bytesPerPixel = map[Format]int{
	FormatBGR565:              2,
	FormatBGR:                 3,
	FormatBGRANonpremul:       4,
	FormatBGRANonpremul4x16LE: 8,
	FormatBGRAPremul:          4,
	FormatRGBANonpremul:       4,
	FormatRGBAPremul:          4,
}

// Supported reports whether a pixel buffer can be produced in layout f.
func (f Format) Supported() bool {
	_, ok := bytesPerPixel[f]
	return ok
}

// BytesPerPixel returns the size of one pixel, or 0 when unsupported.
func (f Format) BytesPerPixel() int { return bytesPerPixel[f] }

// ParseFormat maps a case-insensitive layout name such as "bgra_premul".
func ParseFormat(name string) (Format, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range formatNames {
		if s == n && Format(i) != FormatInvalid {
			return Format(i), nil
		}
	}
	return FormatInvalid, fmt.Errorf("pixel: unknown format %q", name)
}

// Blend selects how decoded pixels combine with the destination.
type Blend uint8

const (
	BlendSrc Blend = iota
	BlendSrcOver
)

func (b Blend) String() string {
	switch b {
	case BlendSrc:
		return "src"
	case BlendSrcOver:
		return "src_over"
	}
	return fmt.Sprintf("blend(%d)", uint8(b))
}

// Valid reports whether b is a known blend.
func (b Blend) Valid() bool { return b == BlendSrc || b == BlendSrcOver }

// ParseBlend maps "src" or "src_over".
func ParseBlend(name string) (Blend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "src", "":
		return BlendSrc, nil
	case "src_over":
		return BlendSrcOver, nil
	}
	return 0, fmt.Errorf("pixel: unknown blend %q", name)
}
