package decoder

import (
	"bytes"
	"errors"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"

	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/utils"
)

const xmpKeyword = "XML:com.adobe.xmp"

var (
	errBadTextChunk  = errors.New("bad text chunk")
	errNotLatin1     = errors.New("bad text chunk (not Latin-1)")
	errBadCompressed = errors.New("bad compressed metadata")
)

// collect turns a buffered ancillary chunk into metadata events.
func (e *pngEngine) collect(typ string, body []byte) error {
	if kind, verbatim := pngMetadataKind(typ); verbatim {
		e.reportDerived(kind, body)
		return nil
	}
	switch typ {
	case "iCCP":
		_, rest, ok := cutNUL(body)
		if !ok || len(rest) < 1 || rest[0] != 0 {
			return errBadCompressed
		}
		profile, err := e.inflate(rest[1:])
		if err != nil {
			return err
		}
		e.reportDerived(format.MetaICCP, profile)

	case "tEXt":
		key, val, ok := cutNUL(body)
		if !ok {
			return errBadTextChunk
		}
		return e.reportLatin1(key, val)

	case "zTXt":
		key, rest, ok := cutNUL(body)
		if !ok || len(rest) < 1 || rest[0] != 0 {
			return errBadTextChunk
		}
		val, err := e.inflate(rest[1:])
		if err != nil {
			return err
		}
		return e.reportLatin1(key, val)

	case "iTXt":
		return e.collectITXt(body)
	}
	return nil
}

// collectITXt handles international text: keyword, compression flag and
// method, language tag, translated keyword, then UTF-8 text.
func (e *pngEngine) collectITXt(body []byte) error {
	key, rest, ok := cutNUL(body)
	if !ok || len(rest) < 2 {
		return errBadTextChunk
	}
	compressed, method := rest[0], rest[1]
	rest = rest[2:]
	if _, rest, ok = cutNUL(rest); !ok { // language tag
		return errBadTextChunk
	}
	if _, rest, ok = cutNUL(rest); !ok { // translated keyword
		return errBadTextChunk
	}
	text := rest
	if compressed != 0 {
		if method != 0 {
			return errBadCompressed
		}
		var err error
		if text, err = e.inflate(rest); err != nil {
			return err
		}
	}
	if string(key) == xmpKeyword {
		if e.reports(format.MetaXMP) {
			e.reportDerived(format.MetaXMP, text)
		}
		return nil
	}
	if e.reports(format.MetaKVP) {
		k, err := latin1(key)
		if err != nil {
			return err
		}
		e.reportDerived(format.MetaKVPKey, k)
		e.reportDerived(format.MetaKVPValue, text)
	}
	return nil
}

func (e *pngEngine) reportLatin1(key, val []byte) error {
	k, err := latin1(key)
	if err != nil {
		return err
	}
	v, err := latin1(val)
	if err != nil {
		return err
	}
	e.reportDerived(format.MetaKVPKey, k)
	e.reportDerived(format.MetaKVPValue, v)
	return nil
}

// textBodyLimit bounds how much of an iCCP or text chunk body is buffered.
// The body carries a keyword and header bytes on top of the payload, and a
// compressed payload can run somewhat longer than what it inflates to.
func textBodyLimit(limit uint64) uint64 {
	const overhead = 1024
	if limit > (math.MaxUint64-overhead)/2 {
		return math.MaxUint64
	}
	return limit + limit/2 + overhead
}

// inflate decompresses a zlib stream, stopping one byte past the metadata
// length limit.
func (e *pngEngine) inflate(p []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, errBadCompressed
	}
	defer zr.Close()
	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	if _, err := io.Copy(buf, io.LimitReader(zr, e.maxMetadata())); err != nil {
		return nil, errBadCompressed
	}
	return utils.CloneBytes(buf.Bytes()), nil
}

// latin1 converts ISO 8859-1 text to UTF-8.  The C1 control range has no
// meaning in PNG text and is rejected.
func latin1(p []byte) ([]byte, error) {
	ascii := true
	for _, c := range p {
		if c >= 0x80 && c < 0xa0 {
			return nil, errNotLatin1
		}
		if c >= 0x80 {
			ascii = false
		}
	}
	if ascii {
		return p, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(p)
	if err != nil {
		return nil, errNotLatin1
	}
	return out, nil
}

func cutNUL(p []byte) (before, after []byte, ok bool) {
	i := bytes.IndexByte(p, 0)
	if i < 0 {
		return p, nil, false
	}
	return p[:i], p[i+1:], true
}
