package core

import (
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/pixel"
)

// Codec is a registered format.  It sniffs prefixes and creates fresh
// engines; a Codec itself holds no per-decode state and is safe for
// concurrent use.
type Codec interface {
	ID() format.FourCC
	// Name is the lower-case format name used in fault messages.
	Name() string
	// PrefixLen is the look-ahead Sniff needs to decide.
	PrefixLen() int
	// Sniff reports whether prefix carries this format's signature.  closed
	// is true when prefix is the whole input.
	Sniff(prefix []byte, closed bool) bool
}

// ImageCodec is a Codec producing image engines.
type ImageCodec interface {
	Codec
	NewEngine() ImageEngine
}

// JSONCodec is a Codec producing JSON engines.
type JSONCodec interface {
	Codec
	NewEngine() JSONEngine
}

// EngineConfig is what the orchestrator forwards to an image engine.
type EngineConfig struct {
	PixelFormat     pixel.Format
	PixelBlend      pixel.Blend
	BackgroundColor uint32
	Quirks          format.Quirks
	// Report holds the selected metadata kinds.  Engines must not buffer the
	// payload of anything else.
	Report map[format.FourCC]bool
	// MaxInclMetadataLength bounds decompressed payloads.  Engines stop
	// inflating one byte past it and let the orchestrator reject the entry.
	MaxInclMetadataLength uint64
}

// Reports reports whether kind k was selected.
func (c EngineConfig) Reports(k format.FourCC) bool { return c.Report[k] }

// ImageEngine is a stateful, resumable decoder for one image.
//
// Feed consumes what it can from in and returns one event.  An engine only
// advances past bytes it has fully used; when it needs more it returns
// NeedMoreInput and is called again with the unread bytes followed by new
// input.  Event payloads alias engine or input memory and are only valid
// until the next call to Feed.
type ImageEngine interface {
	Configure(cfg EngineConfig) error
	Feed(in *Input) Event
	Dimensions() (width, height uint32, ok bool)
	// SetDestination hands over the pixel buffer after StatusDimensions.  A
	// nil buffer means the image is empty and nothing must be written.
	SetDestination(dst *pixel.Buffer)
}

// JSONEngine is a stateful, resumable JSON parser.
type JSONEngine interface {
	Configure(quirks format.Quirks) error
	Feed(in *Input) Event
	// Depth is the number of values on the parse stack: open containers plus
	// a finished top-level value.
	Depth() int
	// Value is the parsed document once Feed has returned StatusDone.
	Value() any
}
