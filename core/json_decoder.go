package core

import (
	"strings"
	"time"

	"github.com/go-openapi/jsonpointer"

	"github.com/Skryldev/decodekit/config"
	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/source"
)

// JSONDecoder parses JSON documents from byte sources.  Like ImageDecoder it
// is reusable but not safe for concurrent use.
type JSONDecoder struct {
	rt       config.Config
	cfg      config.JSON
	registry *Registry
	hooks    []Hook
	logger   Logger
	metrics  MetricsCollector

	staging []byte
	last    State
}

// NewJSONDecoder validates cfg and copies it into a new decoder.
func NewJSONDecoder(rt config.Config, cfg config.JSON, reg *Registry) (*JSONDecoder, error) {
	if reg == nil {
		return nil, apperrors.New(apperrors.CategoryRegistry, "json_decoder.new", apperrors.ErrNilRegistry)
	}
	if err := config.Validate(rt); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "json_decoder.new", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "json_decoder.new", err)
	}
	return &JSONDecoder{
		rt:       rt,
		cfg:      cfg.Clone(),
		registry: reg,
		logger:   nopLogger{},
	}, nil
}

// SetLogger attaches a structured logger.
func (d *JSONDecoder) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	d.logger = l
}

// SetMetrics attaches a metrics collector.
func (d *JSONDecoder) SetMetrics(m MetricsCollector) { d.metrics = m }

// AddHook registers a decode hook.
func (d *JSONDecoder) AddHook(h Hook) { d.hooks = append(d.hooks, h) }

// Config returns a copy of the decoder's configuration.
func (d *JSONDecoder) Config() config.JSON { return d.cfg.Clone() }

// LastState is the terminal state of the most recent Decode.
func (d *JSONDecoder) LastState() State { return d.last }

// Decode parses src and returns the document, or the subtree selected by the
// configured JSON pointer.
func (d *JSONDecoder) Decode(src source.Source) *JSONResult {
	for _, h := range d.hooks {
		h.BeforeDecode(PipelineJSON, src.Name())
	}
	s := newSession(d.staging)
	res := d.run(s, src)
	d.staging = s.finish()
	d.last = s.state

	rep := DecodeReport{
		Pipeline:      PipelineJSON,
		Source:        src.Name(),
		Codec:         s.codec,
		State:         s.state,
		BytesConsumed: s.bytesRead(),
		Duration:      time.Since(s.start),
		Err:           res.Err,
	}
	if res.Err != nil {
		d.logger.Debug("json decode failed", "source", rep.Source, "state", rep.State.String(), "error", res.Err.Error())
	}
	if d.metrics != nil {
		d.metrics.RecordDecodeTime(rep.Codec, rep.Duration)
		d.metrics.RecordThroughput(rep.BytesConsumed)
		if res.Err != nil {
			d.metrics.RecordError(rep.Codec, apperrors.KindOf(res.Err).String())
		}
	}
	for _, h := range d.hooks {
		h.AfterDecode(rep)
	}
	return res
}

func (d *JSONDecoder) run(s *session, src source.Source) *JSONResult {
	res := &JSONResult{}
	fail := func(st State, err error) *JSONResult {
		s.state = st
		res.Value = nil
		res.CursorPosition = 0
		res.Err = err
		return res
	}

	rc, err := src.Open()
	if err != nil {
		return fail(StateFatal, apperrors.ErrFailedToOpenFile)
	}
	s.open(rc, d.rt)

	s.state = StateSniffing
	enabled := []format.FourCC{format.JSON}
	s.fillTo(d.registry.MaxPrefixLen(enabled))
	c, ok := d.registry.Sniff(s.in.Bytes(), s.in.closed, enabled)
	if !ok {
		return fail(StateUnsupported, apperrors.ErrBadInput)
	}
	codec, ok := c.(JSONCodec)
	if !ok {
		return fail(StateUnsupported, apperrors.ErrBadInput)
	}
	s.codec = codec.Name()

	s.state = StateConfiguring
	engine := codec.NewEngine()
	if err := engine.Configure(d.cfg.Quirks); err != nil {
		return fail(StateConfigRejected, classify(codec.Name(), err))
	}

	s.state = StateDecoding
	for {
		ev := engine.Feed(&s.in)
		switch ev.Status {
		case StatusNeedMoreInput:
			if s.in.closed {
				return fail(StateTruncated, stackError(engine, apperrors.Truncated(codec.Name())))
			}
			if !s.suspend() {
				s.state = StateDecoding
			}
		case StatusFault:
			return fail(StateFatal, stackError(engine, classify(codec.Name(), ev.Err)))
		case StatusDone, StatusFrame:
			if engine.Depth() != 1 {
				return fail(StateFatal, apperrors.ErrBadDepth)
			}
			v, err := d.resolve(engine.Value())
			if err != nil {
				return fail(StateFatal, err)
			}
			s.state = StateCompleted
			res.Value = v
			res.CursorPosition = s.in.Position()
			return res
		}
	}
}

// stackError reports any failure that leaves other than exactly one value on
// the parse stack as a depth error.
func stackError(engine JSONEngine, err error) error {
	if engine.Depth() != 1 {
		return apperrors.ErrBadDepth
	}
	return err
}

func (d *JSONDecoder) resolve(doc any) (any, error) {
	ptr := d.cfg.JSONPointer
	if ptr == "" {
		return doc, nil
	}
	if d.cfg.Quirks.Enabled(format.QuirkJSONPointerAllowTildeNTildeRTildeT) {
		var err error
		if ptr, err = expandTildes(ptr); err != nil {
			return nil, err
		}
	}
	p, err := jsonpointer.New(ptr)
	if err != nil {
		return nil, apperrors.ErrBadJSONPointer
	}
	v, _, err := p.Get(doc)
	if err != nil {
		return nil, apperrors.ErrBadDepth
	}
	return v, nil
}

// expandTildes rewrites the ~n, ~r and ~t escapes into the characters they
// stand for, leaving ~0 and ~1 for the pointer parser.
func expandTildes(ptr string) (string, error) {
	if !strings.Contains(ptr, "~") {
		return ptr, nil
	}
	var b strings.Builder
	for i := 0; i < len(ptr); i++ {
		if ptr[i] != '~' {
			b.WriteByte(ptr[i])
			continue
		}
		if i+1 >= len(ptr) {
			return "", apperrors.ErrBadJSONPointer
		}
		i++
		switch ptr[i] {
		case '0', '1':
			b.WriteByte('~')
			b.WriteByte(ptr[i])
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			return "", apperrors.ErrBadJSONPointer
		}
	}
	return b.String(), nil
}
