package jsonengine

import (
	"github.com/Skryldev/decodekit/core"
	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
)

type expect uint8

const (
	expStart        expect = iota // leading BOM or record separator
	expValue                      // a value is required
	expArrayFirst                 // after '['
	expArrayNext                  // after ',' in an array
	expObjectFirst                // after '{'
	expObjectNext                 // after ',' in an object
	expColon                      // after an object key
	expCommaOrClose               // after a value inside a container
	expTrailing                   // after the top-level value
	expDone
)

// container is an open array or object on the parse stack.
type container struct {
	obj map[string]any
	arr []any
	key string
}

func (c *container) value() any {
	if c.obj != nil {
		return c.obj
	}
	return c.arr
}

// Engine builds a value tree from JSON text fed in arbitrary chunks.  Every
// token is consumed whole, except strings and comments, which are consumed
// as they arrive.
type Engine struct {
	q     format.Quirks
	exp   expect
	stack []*container
	root  any
	done  bool // root holds a complete value

	led     bool // leading marks handled
	str     []byte
	inStr   bool
	strKey  bool
	comment commentState
	star    bool // last byte of a block comment was '*'
}

// Depth counts the open containers plus a completed top-level value.
func (e *Engine) Depth() int {
	n := len(e.stack)
	if e.done {
		n++
	}
	return n
}

// Value is the parsed document once Feed has returned Done.
func (e *Engine) Value() any { return e.root }

func (e *Engine) Feed(in *core.Input) core.Event {
	for {
		if e.inStr {
			if ev, ok := e.scanString(in); !ok {
				return ev
			}
			if err := e.finishString(); err != nil {
				return core.Fault(err)
			}
			continue
		}
		switch e.exp {
		case expDone:
			return core.Done()
		case expStart:
			if ev, ok := e.leading(in); !ok {
				return ev
			}
			e.exp = expValue
			continue
		case expTrailing:
			return e.trailing(in)
		}

		if ev, ok := e.skipFiller(in); !ok {
			return ev
		}
		switch err := e.step(in); {
		case err == errShort:
			return core.NeedMoreInput()
		case err != nil:
			return core.Fault(err)
		}
	}
}

// step consumes one token at the front of in, which holds at least one
// byte.
func (e *Engine) step(in *core.Input) error {
	c := in.Bytes()[0]
	switch e.exp {
	case expObjectFirst, expObjectNext:
		switch {
		case c == '"':
			in.Advance(1)
			e.beginString(true)
			return nil
		case c == '}' && (e.exp == expObjectFirst || e.q.Enabled(format.QuirkJSONAllowExtraComma)):
			in.Advance(1)
			return e.close()
		}
		return apperrors.ErrBadInput

	case expColon:
		if c != ':' {
			return apperrors.ErrBadInput
		}
		in.Advance(1)
		e.exp = expValue
		return nil

	case expCommaOrClose:
		top := e.stack[len(e.stack)-1]
		switch {
		case c == ',':
			in.Advance(1)
			if top.obj != nil {
				e.exp = expObjectNext
			} else {
				e.exp = expArrayNext
			}
			return nil
		case c == '}' && top.obj != nil, c == ']' && top.obj == nil:
			in.Advance(1)
			return e.close()
		}
		return apperrors.ErrBadInput

	case expArrayFirst, expArrayNext:
		if c == ']' && (e.exp == expArrayFirst || e.q.Enabled(format.QuirkJSONAllowExtraComma)) {
			in.Advance(1)
			return e.close()
		}
	}
	return e.value(in, c)
}

// value starts or scans the value beginning with c.
func (e *Engine) value(in *core.Input, c byte) error {
	switch {
	case c == '"':
		in.Advance(1)
		e.beginString(false)
		return nil
	case c == '{' || c == '[':
		if len(e.stack) >= MaxDepth {
			return apperrors.ErrUnsupportedRecursionDepth
		}
		in.Advance(1)
		ct := &container{}
		if c == '{' {
			ct.obj = map[string]any{}
			e.exp = expObjectFirst
		} else {
			ct.arr = []any{}
			e.exp = expArrayFirst
		}
		e.stack = append(e.stack, ct)
		return nil
	}
	v, n, err := e.scalar(in.Bytes(), in.Closed())
	if err != nil {
		return err
	}
	in.Advance(n)
	return e.emit(v)
}

func (e *Engine) close() error {
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return e.emit(top.value())
}

// emit attaches a completed value to the innermost container, or makes it
// the document.
func (e *Engine) emit(v any) error {
	if len(e.stack) == 0 {
		e.root = v
		e.done = true
		e.exp = expTrailing
		return nil
	}
	top := e.stack[len(e.stack)-1]
	if top.obj != nil {
		if _, dup := top.obj[top.key]; dup {
			return apperrors.DuplicateMapKey(top.key)
		}
		top.obj[top.key] = v
	} else {
		top.arr = append(top.arr, v)
	}
	e.exp = expCommaOrClose
	return nil
}

func (e *Engine) beginString(key bool) {
	e.inStr = true
	e.strKey = key
	e.str = e.str[:0]
}

func (e *Engine) finishString() error {
	e.inStr = false
	s := string(e.str)
	if e.strKey {
		e.stack[len(e.stack)-1].key = s
		e.exp = expColon
		return nil
	}
	return e.emit(s)
}

// leading skips an optional byte order mark and record separator.
func (e *Engine) leading(in *core.Input) (core.Event, bool) {
	if !e.led && e.q.Enabled(format.QuirkJSONAllowLeadingUnicodeByteOrderMark) {
		b := in.Bytes()
		if len(b) < 3 && !in.Closed() && hasPrefix(bom, b) {
			return core.NeedMoreInput(), false
		}
		if hasPrefix(b, bom) {
			in.Advance(len(bom))
		}
	}
	e.led = true
	if e.q.Enabled(format.QuirkJSONAllowLeadingASCIIRecordSeparator) {
		if in.Len() == 0 && !in.Closed() {
			return core.NeedMoreInput(), false
		}
		if in.Len() > 0 && in.Bytes()[0] == 0x1e {
			in.Advance(1)
		}
	}
	return core.Event{}, true
}

// trailing handles what follows the top-level value.  By default nothing
// after it is read.
func (e *Engine) trailing(in *core.Input) core.Event {
	switch {
	case e.q.Enabled(format.QuirkJSONAllowTrailingFiller):
		if ev, ok := e.skipFiller(in); !ok {
			if in.Closed() && e.comment == commentNone {
				e.exp = expDone
				return core.Done()
			}
			return ev
		}
		return core.Fault(apperrors.ErrBadInput)

	case e.q.Enabled(format.QuirkJSONExpectTrailingNewLineOrEOF):
		for in.Len() > 0 {
			switch c := in.Bytes()[0]; c {
			case ' ', '\t', '\r':
				in.Advance(1)
			case '\n':
				in.Advance(1)
				e.exp = expDone
				return core.Done()
			default:
				return core.Fault(apperrors.ErrBadInput)
			}
		}
		if !in.Closed() {
			return core.NeedMoreInput()
		}
	}
	e.exp = expDone
	return core.Done()
}

var bom = []byte{0xef, 0xbb, 0xbf}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
}
