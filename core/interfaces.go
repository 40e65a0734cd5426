package core

import "time"

// MetricsCollector receives performance observations from the decoders.
type MetricsCollector interface {
	RecordDecodeTime(codec string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordMemory(bytes int64)
	RecordError(codec string, kind string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Hook is an optional observer invoked around every Decode call.
type Hook interface {
	BeforeDecode(pipeline, source string)
	AfterDecode(r DecodeReport)
}

// Pipeline names carried in a DecodeReport.
const (
	PipelineImage = "image"
	PipelineJSON  = "json"
)

// DecodeReport summarises one finished Decode call for hooks.
type DecodeReport struct {
	Pipeline string
	Source   string
	Codec    string // empty when nothing matched
	State    State
	// BytesConsumed is the number of source bytes pulled into staging.
	BytesConsumed int64
	// OutputBytes is the pixel buffer length, or 0 for JSON.
	OutputBytes int64
	Metadata    int
	Duration    time.Duration
	Err         error
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
