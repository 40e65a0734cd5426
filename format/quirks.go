package format

import (
	"fmt"
	"strings"
)

// Quirk is an engine-specific behavioural toggle.  Its integer parameter is
// carried alongside it in a map and forwarded to the engine untouched.
type Quirk uint32

// Image quirks.
const (
	QuirkIgnoreChecksum Quirk = 1 + iota
	QuirkGIFDelayNumDecodedFrames
	QuirkGIFFirstFrameLocalPaletteMeansBlackBackground
	QuirkGIFHonorBackgroundColor
	QuirkGIFIgnoreTooMuchPixelData
	QuirkGIFImageBoundsAreStrict
	QuirkGIFRejectEmptyFrame
	QuirkGIFRejectEmptyPalette
)

// JSON quirks.
const (
	QuirkJSONAllowASCIIControlCodes Quirk = 0x100 + iota
	QuirkJSONAllowBackslashA
	QuirkJSONAllowBackslashCapitalU
	QuirkJSONAllowBackslashE
	QuirkJSONAllowBackslashNewLine
	QuirkJSONAllowBackslashQuestionMark
	QuirkJSONAllowBackslashSingleQuote
	QuirkJSONAllowBackslashV
	QuirkJSONAllowBackslashXAsCodePoints
	QuirkJSONAllowBackslashZero
	QuirkJSONAllowCommentBlock
	QuirkJSONAllowCommentLine
	QuirkJSONAllowExtraComma
	QuirkJSONAllowInfNaNNumbers
	QuirkJSONAllowLeadingASCIIRecordSeparator
	QuirkJSONAllowLeadingUnicodeByteOrderMark
	QuirkJSONAllowTrailingFiller
	QuirkJSONExpectTrailingNewLineOrEOF
	QuirkJSONPointerAllowTildeNTildeRTildeT
	QuirkJSONReplaceInvalidUnicode
)

var quirkNames = map[Quirk]string{
	QuirkIgnoreChecksum:                                "ignore_checksum",
	QuirkGIFDelayNumDecodedFrames:                      "gif_delay_num_decoded_frames",
	QuirkGIFFirstFrameLocalPaletteMeansBlackBackground: "gif_first_frame_local_palette_means_black_background",
	QuirkGIFHonorBackgroundColor:                       "gif_honor_background_color",
	QuirkGIFIgnoreTooMuchPixelData:                     "gif_ignore_too_much_pixel_data",
	QuirkGIFImageBoundsAreStrict:                       "gif_image_bounds_are_strict",
	QuirkGIFRejectEmptyFrame:                           "gif_reject_empty_frame",
	QuirkGIFRejectEmptyPalette:                         "gif_reject_empty_palette",

	QuirkJSONAllowASCIIControlCodes:           "allow_ascii_control_codes",
	QuirkJSONAllowBackslashA:                  "allow_backslash_a",
	QuirkJSONAllowBackslashCapitalU:           "allow_backslash_capital_u",
	QuirkJSONAllowBackslashE:                  "allow_backslash_e",
	QuirkJSONAllowBackslashNewLine:            "allow_backslash_new_line",
	QuirkJSONAllowBackslashQuestionMark:       "allow_backslash_question_mark",
	QuirkJSONAllowBackslashSingleQuote:        "allow_backslash_single_quote",
	QuirkJSONAllowBackslashV:                  "allow_backslash_v",
	QuirkJSONAllowBackslashXAsCodePoints:      "allow_backslash_x_as_code_points",
	QuirkJSONAllowBackslashZero:               "allow_backslash_zero",
	QuirkJSONAllowCommentBlock:                "allow_comment_block",
	QuirkJSONAllowCommentLine:                 "allow_comment_line",
	QuirkJSONAllowExtraComma:                  "allow_extra_comma",
	QuirkJSONAllowInfNaNNumbers:               "allow_inf_nan_numbers",
	QuirkJSONAllowLeadingASCIIRecordSeparator: "allow_leading_ascii_record_separator",
	QuirkJSONAllowLeadingUnicodeByteOrderMark: "allow_leading_unicode_byte_order_mark",
	QuirkJSONAllowTrailingFiller:              "allow_trailing_filler",
	QuirkJSONExpectTrailingNewLineOrEOF:       "expect_trailing_new_line_or_eof",
	QuirkJSONPointerAllowTildeNTildeRTildeT:   "json_pointer_allow_tilde_n_tilde_r_tilde_t",
	QuirkJSONReplaceInvalidUnicode:            "replace_invalid_unicode",
}

func (q Quirk) String() string {
	if s, ok := quirkNames[q]; ok {
		return s
	}
	return fmt.Sprintf("quirk(%#x)", uint32(q))
}

// IsJSON reports whether q belongs to the JSON quirk range.
func (q Quirk) IsJSON() bool {
	return q >= QuirkJSONAllowASCIIControlCodes && q <= QuirkJSONReplaceInvalidUnicode
}

// ParseQuirk maps a case-insensitive quirk name to its key.
func ParseQuirk(name string) (Quirk, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for q, s := range quirkNames {
		if s == n {
			return q, nil
		}
	}
	return 0, fmt.Errorf("format: unknown quirk %q", name)
}

// Quirks maps quirk keys to their integer parameter.
type Quirks map[Quirk]uint64

// Enabled reports whether q is present with a non-zero parameter.
func (qs Quirks) Enabled(q Quirk) bool { return qs[q] != 0 }

// Clone returns an independent copy; nil stays nil.
func (qs Quirks) Clone() Quirks {
	if qs == nil {
		return nil
	}
	out := make(Quirks, len(qs))
	for k, v := range qs {
		out[k] = v
	}
	return out
}
