package config

import (
	"fmt"

	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/pixel"
)

// Defaults mirroring "no cap".
const (
	DefaultMaxInclDimension      uint32 = 1<<24 - 1
	DefaultMaxInclMetadataLength uint64 = 1 << 54
)

// Image is the decode configuration for images.  It is copied into a decoder
// when the decoder is built and never read from the caller's value again.
type Image struct {
	// EnabledCodecs is the ordered set of codecs eligible for sniffing; the
	// order is the tie-break priority.
	EnabledCodecs []format.FourCC
	PixelFormat   pixel.Format
	PixelBlend    pixel.Blend
	// BackgroundColor is packed non-premultiplied 0xAARRGGBB.
	// pixel.NoBackground leaves the buffer zero-filled.
	BackgroundColor       uint32
	ReportMetadata        []format.FourCC
	Quirks                format.Quirks
	MaxInclDimension      uint32
	MaxInclMetadataLength uint64
}

// DefaultImage enables every built-in image codec that is on by default,
// reports no metadata and applies no caps.
func DefaultImage() Image {
	return Image{
		EnabledCodecs:         format.DefaultImageCodecs(),
		PixelFormat:           pixel.FormatBGRAPremul,
		PixelBlend:            pixel.BlendSrc,
		BackgroundColor:       pixel.NoBackground,
		MaxInclDimension:      DefaultMaxInclDimension,
		MaxInclMetadataLength: DefaultMaxInclMetadataLength,
	}
}

// Validate checks the configuration.  An empty codec set is not an error; it
// is reported through Warnings.
func (c Image) Validate() error {
	if !c.PixelFormat.Known() {
		return fmt.Errorf("config: unknown pixel format %d", uint32(c.PixelFormat))
	}
	if !c.PixelBlend.Valid() {
		return fmt.Errorf("config: unknown pixel blend %d", uint8(c.PixelBlend))
	}
	for _, k := range c.ReportMetadata {
		if !format.IsMetadataKind(k) {
			return fmt.Errorf("config: unknown metadata kind %q", k)
		}
	}
	for q := range c.Quirks {
		if q.IsJSON() {
			return fmt.Errorf("config: %s is a json quirk", q)
		}
	}
	return nil
}

// Warnings lists non-fatal problems.
func (c Image) Warnings() []string {
	var w []string
	if len(c.EnabledCodecs) == 0 {
		w = append(w, "no codecs enabled; every decode will fail with unsupported image format")
	}
	if c.MaxInclDimension == 0 {
		w = append(w, "max incl dimension is 0; every non-empty image will be rejected")
	}
	return w
}

// Clone returns a deep copy with duplicate codec and metadata entries removed,
// keeping the first occurrence.
func (c Image) Clone() Image {
	out := c
	out.EnabledCodecs = dedupe(c.EnabledCodecs)
	out.ReportMetadata = dedupe(c.ReportMetadata)
	out.Quirks = c.Quirks.Clone()
	return out
}

func dedupe(in []format.FourCC) []format.FourCC {
	out := make([]format.FourCC, 0, len(in))
	seen := make(map[format.FourCC]bool, len(in))
	for _, f := range in {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
