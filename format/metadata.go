package format

import (
	"fmt"
	"strings"
)

// Metadata kinds a caller can ask to have reported.
const (
	MetaBGCL FourCC = 'B'<<24 | 'G'<<16 | 'C'<<8 | 'L' // background colour
	MetaCHRM FourCC = 'C'<<24 | 'H'<<16 | 'R'<<8 | 'M' // primary chromaticities
	MetaEXIF FourCC = 'E'<<24 | 'X'<<16 | 'I'<<8 | 'F'
	MetaGAMA FourCC = 'G'<<24 | 'A'<<16 | 'M'<<8 | 'A'
	MetaICCP FourCC = 'I'<<24 | 'C'<<16 | 'C'<<8 | 'P' // ICC colour profile
	MetaKVP  FourCC = 'K'<<24 | 'V'<<16 | 'P'<<8 | ' ' // textual key/value pairs
	MetaMTIM FourCC = 'M'<<24 | 'T'<<16 | 'I'<<8 | 'M' // modification time
	MetaOFS2 FourCC = 'O'<<24 | 'F'<<16 | 'S'<<8 | '2' // 2-D offset
	MetaPHYD FourCC = 'P'<<24 | 'H'<<16 | 'Y'<<8 | 'D' // physical dimensions
	MetaSRGB FourCC = 'S'<<24 | 'R'<<16 | 'G'<<8 | 'B'
	MetaXMP  FourCC = 'X'<<24 | 'M'<<16 | 'P'<<8 | ' '
)

// A reported KVP pair arrives as two entries, key then value.
const (
	MetaKVPKey   FourCC = 'K'<<24 | 'V'<<16 | 'P'<<8 | 'K'
	MetaKVPValue FourCC = 'K'<<24 | 'V'<<16 | 'P'<<8 | 'V'
)

// ReportKind maps a reported entry kind back to the kind a caller selects.
func ReportKind(k FourCC) FourCC {
	if k == MetaKVPKey || k == MetaKVPValue {
		return MetaKVP
	}
	return k
}

var metadataNames = map[string]FourCC{
	"bgcl": MetaBGCL,
	"chrm": MetaCHRM,
	"exif": MetaEXIF,
	"gama": MetaGAMA,
	"iccp": MetaICCP,
	"kvp":  MetaKVP,
	"mtim": MetaMTIM,
	"ofs2": MetaOFS2,
	"phyd": MetaPHYD,
	"srgb": MetaSRGB,
	"xmp":  MetaXMP,
}

// IsMetadataKind reports whether k is one of the selectable kinds.
func IsMetadataKind(k FourCC) bool {
	for _, v := range metadataNames {
		if v == k {
			return true
		}
	}
	return false
}

// ParseMetadataKind maps a case-insensitive name such as "exif" to its kind.
func ParseMetadataKind(name string) (FourCC, error) {
	if f, ok := metadataNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("format: unknown metadata kind %q", name)
}
