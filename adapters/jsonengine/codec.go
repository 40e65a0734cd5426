// Package jsonengine provides the resumable JSON codec engine.
package jsonengine

import (
	"github.com/Skryldev/decodekit/core"
	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
)

const (
	// MaxNumberLength is the longest number literal accepted.
	MaxNumberLength = 99
	// MaxDepth is the deepest container nesting accepted.
	MaxDepth = 1024
)

// Codec is the JSON codec.  JSON has no signature, so Sniff matches any
// input and the codec is selected by asking for JSON explicitly.
type Codec struct{}

// New returns the JSON codec.
func New() *Codec { return &Codec{} }

func (*Codec) ID() format.FourCC       { return format.JSON }
func (*Codec) Name() string            { return "json" }
func (*Codec) PrefixLen() int          { return 0 }
func (*Codec) Sniff([]byte, bool) bool { return true }

func (*Codec) NewEngine() core.JSONEngine { return &Engine{} }

var _ core.JSONCodec = (*Codec)(nil)

// Configure records the quirks.  Trailing filler and an expected trailing
// new line cannot both apply.
func (e *Engine) Configure(q format.Quirks) error {
	if q.Enabled(format.QuirkJSONAllowTrailingFiller) && q.Enabled(format.QuirkJSONExpectTrailingNewLineOrEOF) {
		return apperrors.ErrBadQuirkCombination
	}
	e.q = q.Clone()
	return nil
}
