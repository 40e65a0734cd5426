package jsonengine

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Skryldev/decodekit/core"
	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
)

// errShort means the token at the front of the input is incomplete.
var errShort = errors.New("jsonengine: short token")

type commentState uint8

const (
	commentNone commentState = iota
	commentLine
	commentBlock
)

// maxLiteral bounds a run of letters such as "true" or "Infinity".
const maxLiteral = 16

// skipFiller consumes whitespace and, when the quirks allow them,
// comments.  ok is true once a non-filler byte is at the front of in.
func (e *Engine) skipFiller(in *core.Input) (core.Event, bool) {
	block := e.q.Enabled(format.QuirkJSONAllowCommentBlock)
	line := e.q.Enabled(format.QuirkJSONAllowCommentLine)
	for {
		if e.comment != commentNone && !e.skipComment(in) {
			return core.NeedMoreInput(), false
		}
		b := in.Bytes()
		if len(b) == 0 {
			return core.NeedMoreInput(), false
		}
		switch c := b[0]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			in.Advance(1)
		case c == '/' && (block || line):
			if len(b) < 2 {
				if in.Closed() {
					return core.Event{}, true
				}
				return core.NeedMoreInput(), false
			}
			switch {
			case b[1] == '*' && block:
				e.comment, e.star = commentBlock, false
			case b[1] == '/' && line:
				e.comment = commentLine
			default:
				return core.Event{}, true
			}
			in.Advance(2)
		default:
			return core.Event{}, true
		}
	}
}

// skipComment consumes the body of the current comment and reports whether
// it ended.  A line comment also ends at the end of input.
func (e *Engine) skipComment(in *core.Input) bool {
	b := in.Bytes()
	for i, c := range b {
		switch e.comment {
		case commentLine:
			if c == '\n' {
				in.Advance(i + 1)
				e.comment = commentNone
				return true
			}
		case commentBlock:
			if e.star && c == '/' {
				in.Advance(i + 1)
				e.comment = commentNone
				return true
			}
			e.star = c == '*'
		}
	}
	in.Advance(len(b))
	if e.comment == commentLine && in.Closed() {
		e.comment = commentNone
		return true
	}
	return false
}

// scalar scans a number or a bare literal.  It returns the value and the
// number of bytes it occupies.
func (e *Engine) scalar(b []byte, closed bool) (any, int, error) {
	infNaN := e.q.Enabled(format.QuirkJSONAllowInfNaNNumbers)
	c := b[0]
	switch {
	case (c == '-' || c == '+') && infNaN && len(b) > 1 && isLetter(b[1]):
		return e.literal(b, 1, closed)
	case (c == '-' || c == '+') && infNaN && len(b) == 1 && !closed:
		return nil, 0, errShort
	case c == '-' || isDigit(c):
		return number(b, closed)
	case isLetter(c):
		return e.literal(b, 0, closed)
	}
	return nil, 0, apperrors.ErrBadInput
}

func (e *Engine) literal(b []byte, start int, closed bool) (any, int, error) {
	j := start
	for j < len(b) && isLetter(b[j]) {
		if j-start >= maxLiteral {
			return nil, 0, apperrors.ErrBadInput
		}
		j++
	}
	if j == len(b) && !closed {
		return nil, 0, errShort
	}
	word := string(b[start:j])
	if start == 0 {
		switch word {
		case "true":
			return true, j, nil
		case "false":
			return false, j, nil
		case "null":
			return nil, j, nil
		}
	}
	if e.q.Enabled(format.QuirkJSONAllowInfNaNNumbers) {
		switch strings.ToLower(word) {
		case "inf", "infinity":
			if b[0] == '-' {
				return math.Inf(-1), j, nil
			}
			return math.Inf(1), j, nil
		case "nan":
			return math.NaN(), j, nil
		}
	}
	return nil, 0, apperrors.ErrBadInput
}

// number scans a number literal.  Integers that fit are int64, everything
// else float64.
func number(b []byte, closed bool) (any, int, error) {
	i := 0
	for i < len(b) && isNumberByte(b[i]) {
		if i >= MaxNumberLength {
			return nil, 0, apperrors.ErrUnsupportedNumberLength
		}
		i++
	}
	if i == len(b) && !closed {
		return nil, 0, errShort
	}
	lit := b[:i]
	integer, ok := validNumber(lit)
	if !ok {
		return nil, 0, apperrors.ErrBadInput
	}
	s := string(lit)
	if integer {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v, i, nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, 0, apperrors.ErrBadInput
	}
	return v, i, nil
}

// validNumber checks the JSON number grammar:
// -?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?
func validNumber(p []byte) (integer, ok bool) {
	i := 0
	if i < len(p) && p[i] == '-' {
		i++
	}
	switch {
	case i < len(p) && p[i] == '0':
		i++
	case i < len(p) && p[i] >= '1' && p[i] <= '9':
		for i < len(p) && isDigit(p[i]) {
			i++
		}
	default:
		return false, false
	}
	integer = true
	if i < len(p) && p[i] == '.' {
		integer = false
		i++
		if i == len(p) || !isDigit(p[i]) {
			return false, false
		}
		for i < len(p) && isDigit(p[i]) {
			i++
		}
	}
	if i < len(p) && (p[i] == 'e' || p[i] == 'E') {
		integer = false
		i++
		if i < len(p) && (p[i] == '+' || p[i] == '-') {
			i++
		}
		if i == len(p) || !isDigit(p[i]) {
			return false, false
		}
		for i < len(p) && isDigit(p[i]) {
			i++
		}
	}
	return integer, i == len(p)
}

// scanString appends string content to e.str until the closing quote,
// which it consumes.  ok is true once the string is complete.
func (e *Engine) scanString(in *core.Input) (core.Event, bool) {
	for {
		b := in.Bytes()
		if len(b) == 0 {
			return core.NeedMoreInput(), false
		}
		switch c := b[0]; {
		case c == '"':
			in.Advance(1)
			return core.Event{}, true

		case c == '\\':
			n, err := e.escape(b, in.Closed())
			if err == errShort {
				return core.NeedMoreInput(), false
			}
			if err != nil {
				return core.Fault(err), false
			}
			in.Advance(n)

		case c < 0x20:
			if !e.q.Enabled(format.QuirkJSONAllowASCIIControlCodes) {
				if c == '\n' {
					return core.Fault(apperrors.Fixed(apperrors.KindBadNewLineInAString)), false
				}
				return core.Fault(apperrors.Fixed(apperrors.KindBadC0ControlCode)), false
			}
			e.str = append(e.str, c)
			in.Advance(1)

		case c < utf8.RuneSelf:
			j := 1
			for j < len(b) && b[j] >= 0x20 && b[j] < utf8.RuneSelf && b[j] != '"' && b[j] != '\\' {
				j++
			}
			e.str = append(e.str, b[:j]...)
			in.Advance(j)

		default:
			if !utf8.FullRune(b) && !in.Closed() {
				return core.NeedMoreInput(), false
			}
			r, size := utf8.DecodeRune(b)
			if r == utf8.RuneError && size <= 1 {
				if !e.q.Enabled(format.QuirkJSONReplaceInvalidUnicode) {
					return core.Fault(apperrors.Fixed(apperrors.KindBadUTF8)), false
				}
				e.str = utf8.AppendRune(e.str, utf8.RuneError)
				in.Advance(1)
				continue
			}
			e.str = append(e.str, b[:size]...)
			in.Advance(size)
		}
	}
}

// escape decodes the backslash escape at the front of b and returns its
// length.
func (e *Engine) escape(b []byte, closed bool) (int, error) {
	if len(b) < 2 {
		return 0, errShort
	}
	bad := apperrors.Fixed(apperrors.KindBadBackslashEscape)
	q := e.q
	switch b[1] {
	case '"', '\\', '/':
		e.str = append(e.str, b[1])
	case 'b':
		e.str = append(e.str, '\b')
	case 'f':
		e.str = append(e.str, '\f')
	case 'n':
		e.str = append(e.str, '\n')
	case 'r':
		e.str = append(e.str, '\r')
	case 't':
		e.str = append(e.str, '\t')
	case 'u':
		return e.escapeU(b, closed)
	case 'a':
		if !q.Enabled(format.QuirkJSONAllowBackslashA) {
			return 0, bad
		}
		e.str = append(e.str, 0x07)
	case 'e':
		if !q.Enabled(format.QuirkJSONAllowBackslashE) {
			return 0, bad
		}
		e.str = append(e.str, 0x1b)
	case 'v':
		if !q.Enabled(format.QuirkJSONAllowBackslashV) {
			return 0, bad
		}
		e.str = append(e.str, 0x0b)
	case '0':
		if !q.Enabled(format.QuirkJSONAllowBackslashZero) {
			return 0, bad
		}
		e.str = append(e.str, 0x00)
	case '?':
		if !q.Enabled(format.QuirkJSONAllowBackslashQuestionMark) {
			return 0, bad
		}
		e.str = append(e.str, '?')
	case '\'':
		if !q.Enabled(format.QuirkJSONAllowBackslashSingleQuote) {
			return 0, bad
		}
		e.str = append(e.str, '\'')
	case '\n':
		if !q.Enabled(format.QuirkJSONAllowBackslashNewLine) {
			return 0, bad
		}
		e.str = append(e.str, '\n')
	case 'x':
		if !q.Enabled(format.QuirkJSONAllowBackslashXAsCodePoints) {
			return 0, bad
		}
		if len(b) < 4 {
			return 0, short(closed, bad)
		}
		v, ok := hex(b[2:4])
		if !ok {
			return 0, bad
		}
		e.str = utf8.AppendRune(e.str, rune(v))
		return 4, nil
	case 'U':
		if !q.Enabled(format.QuirkJSONAllowBackslashCapitalU) {
			return 0, bad
		}
		if len(b) < 10 {
			return 0, short(closed, bad)
		}
		v, ok := hex(b[2:10])
		if !ok {
			return 0, bad
		}
		if v > utf8.MaxRune || (v >= 0xd800 && v <= 0xdfff) {
			if !q.Enabled(format.QuirkJSONReplaceInvalidUnicode) {
				return 0, bad
			}
			v = utf8.RuneError
		}
		e.str = utf8.AppendRune(e.str, rune(v))
		return 10, nil
	default:
		return 0, bad
	}
	return 2, nil
}

// escapeU decodes \uXXXX, pairing surrogates when a low surrogate escape
// follows a high one.
func (e *Engine) escapeU(b []byte, closed bool) (int, error) {
	bad := apperrors.Fixed(apperrors.KindBadBackslashEscape)
	if len(b) < 6 {
		return 0, short(closed, bad)
	}
	v, ok := hex(b[2:6])
	if !ok {
		return 0, bad
	}
	switch {
	case v < 0xd800 || v > 0xdfff:
		e.str = utf8.AppendRune(e.str, rune(v))
		return 6, nil
	case v <= 0xdbff:
		if len(b) < 12 && !closed {
			return 0, errShort
		}
		if len(b) >= 12 && b[6] == '\\' && b[7] == 'u' {
			if lo, ok := hex(b[8:12]); ok && lo >= 0xdc00 && lo <= 0xdfff {
				r := 0x10000 + (rune(v)-0xd800)<<10 + (rune(lo) - 0xdc00)
				e.str = utf8.AppendRune(e.str, r)
				return 12, nil
			}
		}
	}
	if !e.q.Enabled(format.QuirkJSONReplaceInvalidUnicode) {
		return 0, bad
	}
	e.str = utf8.AppendRune(e.str, utf8.RuneError)
	return 6, nil
}

func short(closed bool, bad error) error {
	if closed {
		return bad
	}
	return errShort
}

func hex(p []byte) (uint32, bool) {
	var v uint32
	for _, c := range p {
		switch {
		case c >= '0' && c <= '9':
			v = v<<4 | uint32(c-'0')
		case c >= 'a' && c <= 'f':
			v = v<<4 | uint32(c-'a'+10)
		case c >= 'A' && c <= 'F':
			v = v<<4 | uint32(c-'A'+10)
		default:
			return 0, false
		}
	}
	return v, true
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c|0x20 >= 'a' && c|0x20 <= 'z' }

func isNumberByte(c byte) bool {
	return isDigit(c) || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E'
}
