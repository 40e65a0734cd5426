// Package hooks provides Hook, Logger and MetricsCollector implementations
// for the decoders.
package hooks

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Skryldev/decodekit/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...interface{})  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...interface{})  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...interface{}) { s.log.Error(msg, fields...) }

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs the start and outcome of every decode.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeDecode(pipeline, source string) {
	h.logger.Debug("decode.start", "pipeline", pipeline, "source", source)
}

func (h *LoggingHook) AfterDecode(r core.DecodeReport) {
	if r.Err != nil {
		h.logger.Error("decode.error",
			"pipeline", r.Pipeline,
			"source", r.Source,
			"codec", r.Codec,
			"state", r.State.String(),
			"bytes", r.BytesConsumed,
			"duration_ms", r.Duration.Milliseconds(),
			"error", r.Err.Error(),
		)
		return
	}
	h.logger.Debug("decode.done",
		"pipeline", r.Pipeline,
		"source", r.Source,
		"codec", r.Codec,
		"bytes", r.BytesConsumed,
		"output_bytes", r.OutputBytes,
		"metadata", r.Metadata,
		"duration_ms", r.Duration.Milliseconds(),
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	decodeDurationsMs map[string]int64 // cumulative ms per codec
	decodeCalls       map[string]int64
	errors            map[string]int64 // per codec
	errorKinds        map[string]int64 // per error kind

	totalThroughputB int64
	totalMemoryB     int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		decodeDurationsMs: make(map[string]int64),
		decodeCalls:       make(map[string]int64),
		errors:            make(map[string]int64),
		errorKinds:        make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordDecodeTime(codec string, d interface{ Seconds() float64 }) {
	ms := int64(d.Seconds() * 1000)
	m.mu.Lock()
	m.decodeDurationsMs[codecKey(codec)] += ms
	m.decodeCalls[codecKey(codec)]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	atomic.AddInt64(&m.totalThroughputB, bytes)
}

func (m *InMemoryMetrics) RecordMemory(bytes int64) {
	atomic.AddInt64(&m.totalMemoryB, bytes)
}

func (m *InMemoryMetrics) RecordError(codec string, kind string) {
	m.mu.Lock()
	m.errors[codecKey(codec)]++
	m.errorKinds[kind]++
	m.mu.Unlock()
}

// codecKey names decodes that never reached a codec.
func codecKey(codec string) string {
	if codec == "" {
		return "none"
	}
	return codec
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		DecodeDurationsMs: copyCounts(m.decodeDurationsMs),
		DecodeCalls:       copyCounts(m.decodeCalls),
		Errors:            copyCounts(m.errors),
		ErrorKinds:        copyCounts(m.errorKinds),
		TotalThroughputB:  atomic.LoadInt64(&m.totalThroughputB),
		TotalMemoryB:      atomic.LoadInt64(&m.totalMemoryB),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	DecodeDurationsMs map[string]int64
	DecodeCalls       map[string]int64
	Errors            map[string]int64
	ErrorKinds        map[string]int64
	TotalThroughputB  int64
	TotalMemoryB      int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds decode reports into a MetricsCollector, for callers that
// attach metrics through hooks rather than SetMetrics.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeDecode(string, string) {}

func (h *MetricsHook) AfterDecode(r core.DecodeReport) {
	h.collector.RecordDecodeTime(r.Codec, r.Duration)
	h.collector.RecordThroughput(r.BytesConsumed)
	h.collector.RecordMemory(r.OutputBytes)
	if r.Err != nil {
		h.collector.RecordError(r.Codec, r.State.String())
	}
}

var (
	_ core.Logger           = (*SlogLogger)(nil)
	_ core.Hook             = (*LoggingHook)(nil)
	_ core.Hook             = (*MetricsHook)(nil)
	_ core.MetricsCollector = (*InMemoryMetrics)(nil)
)
