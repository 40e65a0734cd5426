package errors

import (
	"errors"
	"strings"
)

// Kind is the stable, enumerable classification of a decode outcome.
type Kind int

const (
	KindNone Kind = iota
	KindFailedToOpenFile
	KindUnsupportedImageFormat
	KindUnsupportedPixelFormat
	KindUnsupportedPixelBlend
	KindUnsupportedPixelConfiguration
	KindMaxInclDimensionExceeded
	KindMaxInclMetadataLengthExceeded
	KindTruncated
	KindFormatFault
	KindBadDepth
	KindBadInput
	KindBadJSONPointer
	KindBadQuirkCombination
	KindBadC0ControlCode
	KindBadUTF8
	KindBadBackslashEscape
	KindBadNewLineInAString
	KindUnsupportedNumberLength
	KindUnsupportedRecursionDepth
	KindDuplicateMapKey
	KindNonStringMapKey
)

var kindNames = map[Kind]string{
	KindNone:                          "none",
	KindFailedToOpenFile:              "failed_to_open_file",
	KindUnsupportedImageFormat:        "unsupported_image_format",
	KindUnsupportedPixelFormat:        "unsupported_pixel_format",
	KindUnsupportedPixelBlend:         "unsupported_pixel_blend",
	KindUnsupportedPixelConfiguration: "unsupported_pixel_configuration",
	KindMaxInclDimensionExceeded:      "max_incl_dimension_exceeded",
	KindMaxInclMetadataLengthExceeded: "max_incl_metadata_length_exceeded",
	KindTruncated:                     "truncated",
	KindFormatFault:                   "format_fault",
	KindBadDepth:                      "bad_depth",
	KindBadInput:                      "bad_input",
	KindBadJSONPointer:                "bad_json_pointer",
	KindBadQuirkCombination:           "bad_quirk_combination",
	KindBadC0ControlCode:              "bad_c0_control_code",
	KindBadUTF8:                       "bad_utf8",
	KindBadBackslashEscape:            "bad_backslash_escape",
	KindBadNewLineInAString:           "bad_new_line_in_a_string",
	KindUnsupportedNumberLength:       "unsupported_number_length",
	KindUnsupportedRecursionDepth:     "unsupported_recursion_depth",
	KindDuplicateMapKey:               "duplicate_map_key",
	KindNonStringMapKey:               "non_string_map_key",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Fixed messages for the taxonomy.  Format faults and truncation build their
// message from the format name instead.
const (
	MsgFailedToOpenFile              = "decodekit: failed to open file"
	MsgUnsupportedImageFormat        = "decodekit: unsupported image format"
	MsgUnsupportedPixelFormat        = "decodekit: unsupported pixel format"
	MsgUnsupportedPixelBlend         = "decodekit: unsupported pixel blend"
	MsgUnsupportedPixelConfiguration = "decodekit: unsupported pixel configuration"
	MsgMaxInclDimensionExceeded      = "decodekit: max incl dimension exceeded"
	MsgMaxInclMetadataLengthExceeded = "decodekit: max incl metadata length exceeded"
	MsgBadDepth                      = "decodekit: bad depth"
	MsgBadInput                      = "json: bad input"
	MsgBadJSONPointer                = "decodekit: bad json pointer"
	MsgBadQuirkCombination           = "json: bad quirk combination"
	MsgBadC0ControlCode              = "json: bad C0 control code"
	MsgBadUTF8                       = "json: bad UTF-8"
	MsgBadBackslashEscape            = "json: bad backslash-escape"
	MsgBadNewLineInAString           = "json: bad new-line in a string"
	MsgUnsupportedNumberLength       = "json: unsupported number length"
	MsgUnsupportedRecursionDepth     = "json: unsupported recursion depth"
	MsgDuplicateMapKey               = "decodekit: duplicate map key: key="
	MsgNonStringMapKey               = "decodekit: non-string map key"

	// TruncatedSuffix ends every truncation message.
	TruncatedSuffix = "truncated input"
)

var fixedMessages = map[Kind]string{
	KindFailedToOpenFile:              MsgFailedToOpenFile,
	KindUnsupportedImageFormat:        MsgUnsupportedImageFormat,
	KindUnsupportedPixelFormat:        MsgUnsupportedPixelFormat,
	KindUnsupportedPixelBlend:         MsgUnsupportedPixelBlend,
	KindUnsupportedPixelConfiguration: MsgUnsupportedPixelConfiguration,
	KindMaxInclDimensionExceeded:      MsgMaxInclDimensionExceeded,
	KindMaxInclMetadataLengthExceeded: MsgMaxInclMetadataLengthExceeded,
	KindBadDepth:                      MsgBadDepth,
	KindBadInput:                      MsgBadInput,
	KindBadJSONPointer:                MsgBadJSONPointer,
	KindBadQuirkCombination:           MsgBadQuirkCombination,
	KindBadC0ControlCode:              MsgBadC0ControlCode,
	KindBadUTF8:                       MsgBadUTF8,
	KindBadBackslashEscape:            MsgBadBackslashEscape,
	KindBadNewLineInAString:           MsgBadNewLineInAString,
	KindUnsupportedNumberLength:       MsgUnsupportedNumberLength,
	KindUnsupportedRecursionDepth:     MsgUnsupportedRecursionDepth,
	KindNonStringMapKey:               MsgNonStringMapKey,
}

// DecodeError is the caller-facing failure carried in a decode result.
type DecodeError struct {
	Kind   Kind
	Format string // lower-case codec name; empty for format-agnostic kinds
	Msg    string
}

func (e *DecodeError) Error() string { return e.Msg }

// Is matches another *DecodeError of the same Kind, so errors.Is works
// against the sentinel values below.
func (e *DecodeError) Is(target error) bool {
	var t *DecodeError
	if errors.As(target, &t) {
		return t.Kind == e.Kind && (t.Format == "" || t.Format == e.Format)
	}
	return false
}

// Sentinels usable with errors.Is.
var (
	ErrFailedToOpenFile              = Fixed(KindFailedToOpenFile)
	ErrUnsupportedImageFormat        = Fixed(KindUnsupportedImageFormat)
	ErrUnsupportedPixelFormat        = Fixed(KindUnsupportedPixelFormat)
	ErrUnsupportedPixelBlend         = Fixed(KindUnsupportedPixelBlend)
	ErrUnsupportedPixelConfiguration = Fixed(KindUnsupportedPixelConfiguration)
	ErrMaxInclDimensionExceeded      = Fixed(KindMaxInclDimensionExceeded)
	ErrMaxInclMetadataLengthExceeded = Fixed(KindMaxInclMetadataLengthExceeded)
	ErrBadDepth                      = Fixed(KindBadDepth)
	ErrBadInput                      = Fixed(KindBadInput)
	ErrBadJSONPointer                = Fixed(KindBadJSONPointer)
	ErrBadQuirkCombination           = Fixed(KindBadQuirkCombination)
	ErrUnsupportedNumberLength       = Fixed(KindUnsupportedNumberLength)
	ErrUnsupportedRecursionDepth     = Fixed(KindUnsupportedRecursionDepth)
)

// Fixed returns the DecodeError for a kind with a fixed message.
func Fixed(k Kind) *DecodeError {
	return &DecodeError{Kind: k, Msg: fixedMessages[k]}
}

// Truncated builds the truncation failure for the named format.
func Truncated(format string) *DecodeError {
	format = strings.ToLower(format)
	return &DecodeError{Kind: KindTruncated, Format: format, Msg: format + ": " + TruncatedSuffix}
}

// Fault builds a free-text engine fault.  The format name is lower-cased and
// prefixed; the engine message is kept as the engine wrote it.
func Fault(format, msg string) *DecodeError {
	format = strings.ToLower(format)
	return &DecodeError{Kind: KindFormatFault, Format: format, Msg: format + ": " + msg}
}

// DuplicateMapKey reports a repeated object key.
func DuplicateMapKey(key string) *DecodeError {
	return &DecodeError{Kind: KindDuplicateMapKey, Format: "json", Msg: MsgDuplicateMapKey + key}
}

// KindOf extracts the Kind from err, KindNone for nil and KindFormatFault for
// foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindFormatFault
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }
