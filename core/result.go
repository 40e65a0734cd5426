package core

import (
	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/pixel"
)

// MetadataEntry is one reported metadata payload.  KVP pairs arrive as two
// entries, format.MetaKVPKey then format.MetaKVPValue.
type MetadataEntry struct {
	Kind format.FourCC
	Data []byte
}

// ImageResult is returned by ImageDecoder.Decode.
//
// On success Err is nil and len(Pixels) == Config.PixbufLen().  On failure
// Config is zero and Pixels is nil, except for truncated input, which keeps
// the configuration and whatever pixels had been written.  Metadata is never
// nil.
type ImageResult struct {
	Config   pixel.Config
	Pixels   []byte
	Metadata []MetadataEntry
	Err      error
}

// OK reports whether the decode succeeded.
func (r *ImageResult) OK() bool { return r.Err == nil }

// Truncated reports whether input ended before the image was complete.
func (r *ImageResult) Truncated() bool { return apperrors.IsKind(r.Err, apperrors.KindTruncated) }

// ErrorMessage is Err's text, or "" on success.
func (r *ImageResult) ErrorMessage() string { return errorMessage(r.Err) }

// MetadataOf returns the entries of kind k in encounter order.
func (r *ImageResult) MetadataOf(k format.FourCC) []MetadataEntry {
	var out []MetadataEntry
	for _, e := range r.Metadata {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// JSONResult is returned by JSONDecoder.Decode.  Value holds nil, bool,
// int64, float64, string, []any or map[string]any.  CursorPosition is the
// number of input bytes consumed and is non-zero on success.
type JSONResult struct {
	Value          any
	CursorPosition uint64
	Err            error
}

// OK reports whether the decode succeeded.
func (r *JSONResult) OK() bool { return r.Err == nil }

// ErrorMessage is Err's text, or "" on success.
func (r *JSONResult) ErrorMessage() string { return errorMessage(r.Err) }

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
