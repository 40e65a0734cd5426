package jsonengine

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/decodekit/core"
	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

type outcome struct {
	engine   *Engine
	ev       core.Event
	consumed int
}

// feed drives a fresh engine the way the decoder does: unread bytes are kept
// and chunk more bytes are appended whenever the engine asks for input.
func feed(t *testing.T, q format.Quirks, data string, chunk int) outcome {
	t.Helper()
	e := New().NewEngine().(*Engine)
	require.NoError(t, e.Configure(q))

	var pending []byte
	off := 0
	for {
		in := core.NewInput(pending, off == len(data))
		ev := e.Feed(in)
		pending = append([]byte(nil), in.Bytes()...)
		if ev.Status != core.StatusNeedMoreInput || off == len(data) {
			return outcome{engine: e, ev: ev, consumed: off - len(pending)}
		}
		n := min(chunk, len(data)-off)
		pending = append(pending, data[off:off+n]...)
		off += n
	}
}

var chunkSizes = []int{1, 2, 7, 1 << 20}

func decodeOK(t *testing.T, q format.Quirks, data string) any {
	t.Helper()
	var first any
	for i, n := range chunkSizes {
		o := feed(t, q, data, n)
		require.Equalf(t, core.StatusDone, o.ev.Status, "chunk %d: err=%v", n, o.ev.Err)
		require.Equal(t, 1, o.engine.Depth())
		if i == 0 {
			first = o.engine.Value()
			continue
		}
		require.Equalf(t, first, o.engine.Value(), "chunk %d", n)
	}
	return first
}

func decodeErr(t *testing.T, q format.Quirks, data string) outcome {
	t.Helper()
	o := feed(t, q, data, 1<<20)
	require.Equalf(t, core.StatusFault, o.ev.Status, "status %s", o.ev.Status)
	one := feed(t, q, data, 1)
	require.Equal(t, core.StatusFault, one.ev.Status)
	require.Equal(t, apperrors.KindOf(o.ev.Err), apperrors.KindOf(one.ev.Err))
	return o
}

func quirks(qs ...format.Quirk) format.Quirks {
	out := format.Quirks{}
	for _, q := range qs {
		out[q] = 1
	}
	return out
}

// ── Values ────────────────────────────────────────────────────────────────────

func TestDecodeDocument(t *testing.T) {
	got := decodeOK(t, nil, `{"key1": 1, "key2": [2, 3], "key3": "value"}`)
	want := map[string]any{
		"key1": int64(1),
		"key2": []any{int64(2), int64(3)},
		"key3": "value",
	}
	assert.Equal(t, want, got)
}

func TestDecodeScalars(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{`true`, true},
		{`false`, false},
		{`null`, nil},
		{`0`, int64(0)},
		{`-17`, int64(-17)},
		{`-0.5e2`, float64(-50)},
		{`1E3`, float64(1000)},
		{`12345678901234567890`, float64(12345678901234567890)},
		{`"plain"`, "plain"},
		{`"aé😀"`, "aé😀"},
		{`"tab\tquote\"slash\/"`, "tab\tquote\"slash/"},
		{`"héllo"`, "héllo"},
		{`  [ ]  `, []any{}},
		{`{}`, map[string]any{}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, decodeOK(t, nil, tc.in))
		})
	}
}

func TestDecodeNesting(t *testing.T) {
	deep := strings.Repeat("[", MaxDepth) + strings.Repeat("]", MaxDepth)
	v := decodeOK(t, nil, deep)
	for i := 0; i < MaxDepth-1; i++ {
		arr, ok := v.([]any)
		require.True(t, ok)
		require.Len(t, arr, 1)
		v = arr[0]
	}
	assert.Equal(t, []any{}, v)

	o := decodeErr(t, nil, strings.Repeat("[", MaxDepth+1))
	assert.True(t, apperrors.IsKind(o.ev.Err, apperrors.KindUnsupportedRecursionDepth))
}

// ── Failures ──────────────────────────────────────────────────────────────────

func TestDecodeInvalid(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		kind  apperrors.Kind
		depth int
	}{
		{"bare word", `test`, apperrors.KindBadInput, 0},
		{"junk", `+(=)`, apperrors.KindBadInput, 0},
		{"non-string key", `{1:2}`, apperrors.KindBadInput, 1},
		{"long number", `{"val":` + strings.Repeat("1", 130) + `}`, apperrors.KindUnsupportedNumberLength, 1},
		{"leading zero", `[01]`, apperrors.KindBadInput, 1},
		{"missing colon", `{"a" 1}`, apperrors.KindBadInput, 1},
		{"mismatched close", `[1}`, apperrors.KindBadInput, 1},
		{"extra comma", `[1,]`, apperrors.KindBadInput, 1},
		{"nested", `[[1,]]`, apperrors.KindBadInput, 2},
		{"control code", "\"a\x01\"", apperrors.KindBadC0ControlCode, 0},
		{"new line", "\"a\nb\"", apperrors.KindBadNewLineInAString, 0},
		{"bad utf8", "\"\xff\"", apperrors.KindBadUTF8, 0},
		{"bad escape", `"\q"`, apperrors.KindBadBackslashEscape, 0},
		{"lone surrogate", `"\ud800"`, apperrors.KindBadBackslashEscape, 0},
		{"quirk escape off", `"\a"`, apperrors.KindBadBackslashEscape, 0},
		{"inf off", `[Infinity]`, apperrors.KindBadInput, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := decodeErr(t, nil, tc.in)
			assert.Equal(t, tc.kind, apperrors.KindOf(o.ev.Err), o.ev.Err.Error())
			assert.Equal(t, tc.depth, o.engine.Depth())
		})
	}
}

func TestDuplicateMapKey(t *testing.T) {
	o := decodeErr(t, nil, `{"val": 1, "val": 2}`)
	assert.Equal(t, "decodekit: duplicate map key: key=val", o.ev.Err.Error())
	assert.True(t, apperrors.IsKind(o.ev.Err, apperrors.KindDuplicateMapKey))
}

func TestTruncatedDocument(t *testing.T) {
	for _, in := range []string{``, `[1, 2`, `{"a": "unterminated`, `{"a"`, `[`} {
		o := feed(t, nil, in, 3)
		assert.Equalf(t, core.StatusNeedMoreInput, o.ev.Status, "%q", in)
	}
}

// ── Quirks ────────────────────────────────────────────────────────────────────

func TestQuirkCommentsAndExtraComma(t *testing.T) {
	q := quirks(format.QuirkJSONAllowCommentBlock, format.QuirkJSONAllowExtraComma)
	got := decodeOK(t, q, `{"test": "value", /* note */ "test1": 123,}`)
	assert.Equal(t, map[string]any{"test": "value", "test1": int64(123)}, got)

	q = quirks(format.QuirkJSONAllowCommentLine)
	got = decodeOK(t, q, "[1, // one\n 2]")
	assert.Equal(t, []any{int64(1), int64(2)}, got)

	o := decodeErr(t, nil, `[1 /* no */]`)
	assert.True(t, apperrors.IsKind(o.ev.Err, apperrors.KindBadInput))
}

func TestQuirkEscapes(t *testing.T) {
	q := quirks(
		format.QuirkJSONAllowBackslashA,
		format.QuirkJSONAllowBackslashE,
		format.QuirkJSONAllowBackslashV,
		format.QuirkJSONAllowBackslashZero,
		format.QuirkJSONAllowBackslashQuestionMark,
		format.QuirkJSONAllowBackslashSingleQuote,
		format.QuirkJSONAllowBackslashXAsCodePoints,
		format.QuirkJSONAllowBackslashCapitalU,
		format.QuirkJSONAllowBackslashNewLine,
	)
	got := decodeOK(t, q, "\"\\a\\e\\v\\0\\?\\'\\x41\\U0001F600\\\n\"")
	assert.Equal(t, "\a\x1b\v\x00?'A😀\n", got)
}

func TestQuirkReplaceInvalidUnicode(t *testing.T) {
	q := quirks(format.QuirkJSONReplaceInvalidUnicode)
	assert.Equal(t, "a�b", decodeOK(t, q, "\"a\xffb\""))
	assert.Equal(t, "�x", decodeOK(t, q, `"\ud800x"`))
}

func TestQuirkControlCodes(t *testing.T) {
	q := quirks(format.QuirkJSONAllowASCIIControlCodes)
	assert.Equal(t, "a\x01\nb", decodeOK(t, q, "\"a\x01\nb\""))
}

func TestQuirkInfNaN(t *testing.T) {
	q := quirks(format.QuirkJSONAllowInfNaNNumbers)
	// NaN never compares equal, so each chunking is checked on its own.
	for _, n := range chunkSizes {
		o := feed(t, q, `[Infinity, -inf, +INF, NaN]`, n)
		require.Equal(t, core.StatusDone, o.ev.Status)
		arr := o.engine.Value().([]any)
		require.Len(t, arr, 4)
		assert.True(t, math.IsInf(arr[0].(float64), 1))
		assert.True(t, math.IsInf(arr[1].(float64), -1))
		assert.True(t, math.IsInf(arr[2].(float64), 1))
		assert.True(t, math.IsNaN(arr[3].(float64)))
	}
}

func TestQuirkLeadingMarks(t *testing.T) {
	q := quirks(format.QuirkJSONAllowLeadingUnicodeByteOrderMark, format.QuirkJSONAllowLeadingASCIIRecordSeparator)
	assert.Equal(t, []any{int64(1)}, decodeOK(t, q, "\xef\xbb\xbf\x1e[1]"))
	assert.Equal(t, []any{int64(1)}, decodeOK(t, q, "[1]"))

	o := decodeErr(t, nil, "\xef\xbb\xbf[1]")
	assert.True(t, apperrors.IsKind(o.ev.Err, apperrors.KindBadInput))
}

func TestTrailingBytes(t *testing.T) {
	o := feed(t, nil, "[1] trailing", 2)
	require.Equal(t, core.StatusDone, o.ev.Status)
	assert.Equal(t, 3, o.consumed)

	// Trailing comments count as filler only when comments are allowed.
	filler := quirks(format.QuirkJSONAllowTrailingFiller)
	o = decodeErr(t, filler, "[1] /* c */ \n")
	assert.True(t, apperrors.IsKind(o.ev.Err, apperrors.KindBadInput))
	commented := quirks(format.QuirkJSONAllowTrailingFiller, format.QuirkJSONAllowCommentBlock)
	for _, n := range chunkSizes {
		o = feed(t, commented, "[1] /* c */ \n", n)
		require.Equalf(t, core.StatusDone, o.ev.Status, "chunk %d", n)
		assert.Equalf(t, 13, o.consumed, "chunk %d", n)
	}
	o = feed(t, filler, "[1]", 1)
	require.Equal(t, core.StatusDone, o.ev.Status)
	assert.Equal(t, 3, o.consumed)
	o = decodeErr(t, filler, "[1] x")
	assert.True(t, apperrors.IsKind(o.ev.Err, apperrors.KindBadInput))
	assert.Equal(t, 1, o.engine.Depth())

	nl := quirks(format.QuirkJSONExpectTrailingNewLineOrEOF)
	o = feed(t, nl, "[1] \n[2]", 1)
	require.Equal(t, core.StatusDone, o.ev.Status)
	assert.Equal(t, 5, o.consumed)
	o = feed(t, nl, "[1]\t", 1)
	require.Equal(t, core.StatusDone, o.ev.Status)
	o = decodeErr(t, nl, "[1] x")
	assert.True(t, apperrors.IsKind(o.ev.Err, apperrors.KindBadInput))
}

func TestConfigureRejectsConflictingTrailingQuirks(t *testing.T) {
	e := New().NewEngine()
	err := e.Configure(quirks(format.QuirkJSONAllowTrailingFiller, format.QuirkJSONExpectTrailingNewLineOrEOF))
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadQuirkCombination))
}

func TestCodecSniffsAnything(t *testing.T) {
	c := New()
	assert.Equal(t, format.JSON, c.ID())
	assert.Equal(t, "json", c.Name())
	assert.True(t, c.Sniff(nil, true))
	assert.True(t, c.Sniff([]byte("\x89PNG"), false))
}
