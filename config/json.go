package config

import (
	"fmt"
	"strings"

	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
)

// JSON is the decode configuration for JSON documents.
type JSON struct {
	Quirks format.Quirks
	// JSONPointer selects a subtree (RFC 6901).  Empty selects the whole
	// document.
	JSONPointer string
}

// DefaultJSON returns the zero configuration: no quirks, whole document.
func DefaultJSON() JSON { return JSON{} }

// Validate checks quirk combinations and pointer syntax.
func (c JSON) Validate() error {
	for q := range c.Quirks {
		if !q.IsJSON() {
			return fmt.Errorf("config: %s is not a json quirk", q)
		}
	}
	if c.Quirks.Enabled(format.QuirkJSONAllowTrailingFiller) && c.Quirks.Enabled(format.QuirkJSONExpectTrailingNewLineOrEOF) {
		return apperrors.ErrBadQuirkCombination
	}
	if c.JSONPointer != "" && !strings.HasPrefix(c.JSONPointer, "/") {
		return apperrors.ErrBadJSONPointer
	}
	return nil
}

// Clone returns a deep copy.
func (c JSON) Clone() JSON {
	out := c
	out.Quirks = c.Quirks.Clone()
	return out
}
