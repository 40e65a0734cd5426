// Package format holds the identifiers shared by every layer of decodekit:
// codec FourCCs, metadata kinds and quirk keys.
package format

import (
	"fmt"
	"strings"

	apperrors "github.com/Skryldev/decodekit/errors"
)

// FourCC is a four-character code packed big-endian, e.g. "PNG " or "EXIF".
type FourCC uint32

// Make packs the first four bytes of s (space padded) into a FourCC.
func Make(s string) FourCC {
	var b [4]byte
	copy(b[:], "    ")
	copy(b[:], s)
	return FourCC(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func (f FourCC) String() string {
	b := []byte{byte(f >> 24), byte(f >> 16), byte(f >> 8), byte(f)}
	return strings.TrimRight(string(b), " ")
}

// Codec identifiers.
const (
	BMP  FourCC = 'B'<<24 | 'M'<<16 | 'P'<<8 | ' '
	GIF  FourCC = 'G'<<24 | 'I'<<16 | 'F'<<8 | ' '
	NIE  FourCC = 'N'<<24 | 'I'<<16 | 'E'<<8 | ' '
	PNG  FourCC = 'P'<<24 | 'N'<<16 | 'G'<<8 | ' '
	TGA  FourCC = 'T'<<24 | 'G'<<16 | 'A'<<8 | ' '
	WBMP FourCC = 'W'<<24 | 'B'<<16 | 'M'<<8 | 'P'
	JPEG FourCC = 'J'<<24 | 'P'<<16 | 'E'<<8 | 'G'
	WEBP FourCC = 'W'<<24 | 'E'<<16 | 'B'<<8 | 'P'
	VIPS FourCC = 'V'<<24 | 'I'<<16 | 'P'<<8 | 'S'
	JSON FourCC = 'J'<<24 | 'S'<<16 | 'O'<<8 | 'N'
)

// DefaultImageCodecs is the enabled set used when the caller does not choose
// one.  Order is the sniffing priority.
func DefaultImageCodecs() []FourCC {
	return []FourCC{BMP, GIF, NIE, PNG, TGA, WBMP}
}

var codecNames = map[string]FourCC{
	"bmp":  BMP,
	"gif":  GIF,
	"nie":  NIE,
	"png":  PNG,
	"tga":  TGA,
	"wbmp": WBMP,
	"jpeg": JPEG,
	"jpg":  JPEG,
	"webp": WEBP,
	"vips": VIPS,
	"json": JSON,
}

// ParseCodec maps a case-insensitive codec name to its FourCC.
func ParseCodec(name string) (FourCC, error) {
	if f, ok := codecNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("format: %w %q", apperrors.ErrUnknownCodec, name)
}
