package core

import (
	"errors"
	"math"
	"time"

	"github.com/Skryldev/decodekit/config"
	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/pixel"
	"github.com/Skryldev/decodekit/source"
	"github.com/Skryldev/decodekit/utils"
)

// ImageDecoder runs image codec engines against byte sources.  Its
// configuration is fixed at construction.  A decoder may be reused for any
// number of sequential Decode calls but is not safe for concurrent use.
type ImageDecoder struct {
	rt       config.Config
	cfg      config.Image
	enabled  []format.FourCC
	report   map[format.FourCC]bool
	registry *Registry
	hooks    []Hook
	logger   Logger
	metrics  MetricsCollector

	staging []byte
	last    State
}

// NewImageDecoder validates cfg and copies it into a new decoder.  Later
// changes to cfg have no effect on the decoder.
func NewImageDecoder(rt config.Config, cfg config.Image, reg *Registry) (*ImageDecoder, error) {
	if reg == nil {
		return nil, apperrors.New(apperrors.CategoryRegistry, "image_decoder.new", apperrors.ErrNilRegistry)
	}
	if err := config.Validate(rt); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "image_decoder.new", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "image_decoder.new", err)
	}
	cfg = cfg.Clone()
	d := &ImageDecoder{
		rt:       rt,
		cfg:      cfg,
		registry: reg,
		report:   make(map[format.FourCC]bool, len(cfg.ReportMetadata)),
		logger:   nopLogger{},
	}
	for _, k := range cfg.ReportMetadata {
		d.report[k] = true
	}
	for _, id := range cfg.EnabledCodecs {
		if c, ok := reg.Lookup(id); ok {
			if _, isImage := c.(ImageCodec); isImage {
				d.enabled = append(d.enabled, id)
			}
		}
	}
	return d, nil
}

// SetLogger attaches a structured logger and reports the configuration's
// warnings through it.
func (d *ImageDecoder) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	d.logger = l
	for _, w := range d.cfg.Warnings() {
		l.Warn("image decoder: "+w, "codecs", len(d.cfg.EnabledCodecs))
	}
	for _, id := range d.cfg.EnabledCodecs {
		if !d.isEnabled(id) {
			l.Warn("image decoder: codec not registered as an image codec", "codec", id.String())
		}
	}
}

// SetMetrics attaches a metrics collector.
func (d *ImageDecoder) SetMetrics(m MetricsCollector) { d.metrics = m }

// AddHook registers a decode hook.
func (d *ImageDecoder) AddHook(h Hook) { d.hooks = append(d.hooks, h) }

// Config returns a copy of the decoder's configuration.
func (d *ImageDecoder) Config() config.Image { return d.cfg.Clone() }

// LastState is the terminal state of the most recent Decode.
func (d *ImageDecoder) LastState() State { return d.last }

func (d *ImageDecoder) isEnabled(id format.FourCC) bool {
	for _, e := range d.enabled {
		if e == id {
			return true
		}
	}
	return false
}

// Decode decodes the first frame of src.  Every outcome, including failure
// to open src, is reported in the result.
func (d *ImageDecoder) Decode(src source.Source) *ImageResult {
	for _, h := range d.hooks {
		h.BeforeDecode(PipelineImage, src.Name())
	}
	s := newSession(d.staging)
	res := d.run(s, src)
	d.staging = s.finish()
	d.last = s.state

	rep := DecodeReport{
		Pipeline:      PipelineImage,
		Source:        src.Name(),
		Codec:         s.codec,
		State:         s.state,
		BytesConsumed: s.bytesRead(),
		OutputBytes:   int64(len(res.Pixels)),
		Metadata:      len(res.Metadata),
		Duration:      time.Since(s.start),
		Err:           res.Err,
	}
	d.observe(rep)
	return res
}

func (d *ImageDecoder) observe(rep DecodeReport) {
	if rep.Err != nil {
		d.logger.Debug("image decode failed", "source", rep.Source, "codec", rep.Codec, "state", rep.State.String(), "error", rep.Err.Error())
	}
	if d.metrics != nil {
		d.metrics.RecordDecodeTime(rep.Codec, rep.Duration)
		d.metrics.RecordThroughput(rep.BytesConsumed)
		d.metrics.RecordMemory(rep.OutputBytes)
		if rep.Err != nil {
			d.metrics.RecordError(rep.Codec, apperrors.KindOf(rep.Err).String())
		}
	}
	for _, h := range d.hooks {
		h.AfterDecode(rep)
	}
}

func (d *ImageDecoder) run(s *session, src source.Source) *ImageResult {
	res := &ImageResult{Metadata: []MetadataEntry{}}
	fail := func(st State, err error) *ImageResult {
		s.state = st
		res.Config = pixel.Config{}
		res.Pixels = nil
		res.Err = err
		return res
	}

	rc, err := src.Open()
	if err != nil {
		return fail(StateFatal, apperrors.ErrFailedToOpenFile)
	}
	s.open(rc, d.rt)

	// ── sniff ──
	s.state = StateSniffing
	s.fillTo(d.registry.MaxPrefixLen(d.enabled))
	c, ok := d.registry.Sniff(s.in.Bytes(), s.in.closed, d.enabled)
	if !ok {
		return fail(StateUnsupported, apperrors.ErrUnsupportedImageFormat)
	}
	codec := c.(ImageCodec)
	s.codec = codec.Name()

	// ── configure ──
	s.state = StateConfiguring
	if !d.cfg.PixelFormat.Supported() {
		return fail(StateConfigRejected, apperrors.ErrUnsupportedPixelFormat)
	}
	if !d.cfg.PixelBlend.Valid() {
		return fail(StateConfigRejected, apperrors.ErrUnsupportedPixelBlend)
	}
	engine := codec.NewEngine()
	if cl, ok := engine.(interface{ Close() error }); ok {
		defer cl.Close()
	}
	if err := engine.Configure(EngineConfig{
		PixelFormat:           d.cfg.PixelFormat,
		PixelBlend:            d.cfg.PixelBlend,
		BackgroundColor:       d.cfg.BackgroundColor,
		Quirks:                d.cfg.Quirks,
		Report:                d.report,
		MaxInclMetadataLength: d.cfg.MaxInclMetadataLength,
	}); err != nil {
		return fail(StateConfigRejected, classify(codec.Name(), err))
	}

	// ── decode ──
	s.state = StateDecoding
	var (
		pcfg pixel.Config
		buf  *pixel.Buffer
	)
	for {
		ev := engine.Feed(&s.in)
		switch ev.Status {
		case StatusNeedMoreInput:
			if !s.in.closed {
				// At end of input the engine gets one more Feed over the
				// closed window before the decode counts as truncated.
				if !s.suspend() {
					s.state = StateDecoding
				}
				continue
			}
			s.state = StateTruncated
			res.Config = pcfg
			if buf != nil {
				res.Pixels = buf.Bytes()
			}
			res.Err = apperrors.Truncated(codec.Name())
			return res

		case StatusMetadataHeader:
			if ev.Length > d.cfg.MaxInclMetadataLength {
				return fail(StateLimitExceeded, apperrors.ErrMaxInclMetadataLengthExceeded)
			}

		case StatusMetadata:
			if !d.report[format.ReportKind(ev.Kind)] {
				continue
			}
			if uint64(len(ev.Payload)) > d.cfg.MaxInclMetadataLength {
				return fail(StateLimitExceeded, apperrors.ErrMaxInclMetadataLengthExceeded)
			}
			res.Metadata = append(res.Metadata, MetadataEntry{Kind: ev.Kind, Data: utils.CloneBytes(ev.Payload)})

		case StatusDimensions:
			w, h, _ := engine.Dimensions()
			if w > d.cfg.MaxInclDimension || h > d.cfg.MaxInclDimension {
				return fail(StateLimitExceeded, apperrors.ErrMaxInclDimensionExceeded)
			}
			pcfg = pixel.Config{Format: d.cfg.PixelFormat, Width: w, Height: h}
			if w == 0 || h == 0 {
				engine.SetDestination(nil)
				continue
			}
			if n := pcfg.PixbufLen(); n == 0 || n > math.MaxInt {
				return fail(StateFatal, apperrors.ErrUnsupportedPixelConfiguration)
			}
			if buf, err = pixel.NewBuffer(pcfg, d.cfg.PixelBlend); err != nil {
				return fail(StateFatal, apperrors.ErrUnsupportedPixelConfiguration)
			}
			if d.cfg.BackgroundColor != pixel.NoBackground {
				buf.Fill(d.cfg.BackgroundColor)
			}
			engine.SetDestination(buf)

		case StatusFrame, StatusDone:
			s.state = StateCompleted
			res.Config = pcfg
			if buf != nil {
				res.Pixels = buf.Bytes()
			} else {
				res.Pixels = []byte{}
			}
			return res

		case StatusFault:
			err := classify(codec.Name(), ev.Err)
			if apperrors.IsKind(err, apperrors.KindTruncated) {
				s.state = StateTruncated
				res.Config = pcfg
				if buf != nil {
					res.Pixels = buf.Bytes()
				}
				res.Err = err
				return res
			}
			if apperrors.IsKind(err, apperrors.KindMaxInclMetadataLengthExceeded) {
				return fail(StateLimitExceeded, err)
			}
			return fail(StateFatal, err)
		}
	}
}

// classify keeps taxonomy errors and turns anything else into a format fault
// prefixed with the codec name.
func classify(codec string, err error) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	var de *apperrors.DecodeError
	if errors.As(err, &de) {
		return de
	}
	return apperrors.Fault(codec, err.Error())
}
