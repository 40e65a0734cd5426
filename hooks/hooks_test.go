package hooks_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Skryldev/decodekit/config"
	"github.com/Skryldev/decodekit/core"
	"github.com/Skryldev/decodekit/hooks"
)

type entry struct {
	level  string
	msg    string
	fields []interface{}
}

type fakeLogger struct {
	mu      sync.Mutex
	entries []entry
}

func (l *fakeLogger) add(level, msg string, fields []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{level, msg, fields})
}

func (l *fakeLogger) Debug(msg string, f ...interface{}) { l.add("debug", msg, f) }
func (l *fakeLogger) Info(msg string, f ...interface{})  { l.add("info", msg, f) }
func (l *fakeLogger) Warn(msg string, f ...interface{})  { l.add("warn", msg, f) }
func (l *fakeLogger) Error(msg string, f ...interface{}) { l.add("error", msg, f) }

func TestLoggingHook(t *testing.T) {
	log := &fakeLogger{}
	h := hooks.NewLoggingHook(log)

	h.BeforeDecode(core.PipelineImage, "a.png")
	h.AfterDecode(core.DecodeReport{Pipeline: core.PipelineImage, Source: "a.png", Codec: "png", State: core.StateCompleted})
	h.AfterDecode(core.DecodeReport{Pipeline: core.PipelineJSON, Source: "b.json", State: core.StateFatal, Err: errors.New("boom")})

	require.Len(t, log.entries, 3)
	assert.Equal(t, "decode.start", log.entries[0].msg)
	assert.Equal(t, "decode.done", log.entries[1].msg)
	assert.Equal(t, "debug", log.entries[1].level)
	assert.Equal(t, "decode.error", log.entries[2].msg)
	assert.Equal(t, "error", log.entries[2].level)
	assert.Contains(t, log.entries[2].fields, "boom")
	assert.Contains(t, log.entries[2].fields, "fatal")
}

func TestInMemoryMetrics(t *testing.T) {
	m := hooks.NewInMemoryMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordDecodeTime("png", 2*time.Second)
			m.RecordThroughput(100)
			m.RecordMemory(10)
		}()
	}
	wg.Wait()
	m.RecordError("", "failed_to_open_file")
	m.RecordError("gif", "format_fault")

	s := m.Snapshot()
	assert.Equal(t, int64(8), s.DecodeCalls["png"])
	assert.Equal(t, int64(16000), s.DecodeDurationsMs["png"])
	assert.Equal(t, int64(800), s.TotalThroughputB)
	assert.Equal(t, int64(80), s.TotalMemoryB)
	assert.Equal(t, map[string]int64{"none": 1, "gif": 1}, s.Errors)
	assert.Equal(t, int64(1), s.ErrorKinds["format_fault"])

	// Snapshots are copies.
	s.Errors["gif"] = 99
	assert.Equal(t, int64(1), m.Snapshot().Errors["gif"])
}

func TestMetricsHook(t *testing.T) {
	m := hooks.NewInMemoryMetrics()
	h := hooks.NewMetricsHook(m)
	h.BeforeDecode(core.PipelineImage, "x")
	h.AfterDecode(core.DecodeReport{Codec: "bmp", BytesConsumed: 40, OutputBytes: 16, State: core.StateCompleted})
	h.AfterDecode(core.DecodeReport{Codec: "bmp", BytesConsumed: 4, State: core.StateTruncated, Err: errors.New("bmp: truncated input")})

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.DecodeCalls["bmp"])
	assert.Equal(t, int64(44), s.TotalThroughputB)
	assert.Equal(t, int64(16), s.TotalMemoryB)
	assert.Equal(t, int64(1), s.ErrorKinds["truncated"])
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := hooks.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	l.Debug("d", "k", 1)
	l.Info("i")
	l.Warn("w")
	l.Error("e", "err", "x")
	out := buf.String()
	for _, want := range []string{"msg=d k=1", "msg=i", "msg=w", "msg=e err=x"} {
		assert.Contains(t, out, want)
	}
}

func TestZapLogger(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	l := hooks.NewZapLogger(zap.New(obs))
	l.Debug("decode.start", "source", "a.png")
	l.Warn("careful")
	l.Error("decode.error", "codec", "gif")

	require.Equal(t, 3, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "decode.start", first.Message)
	assert.Equal(t, "a.png", first.ContextMap()["source"])
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, "gif", logs.FilterMessage("decode.error").All()[0].ContextMap()["codec"])
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "decodekit.log")
	logger, err := hooks.SetupLogger(config.LogConfig{Level: "warn", Format: "json", Outputs: []string{path}})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", zap.String("codec", "png"))
	require.NoError(t, logger.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"codec":"png"`)
}

func TestSetupLogger_Rotation(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "rotated.log")
	logger, err := hooks.SetupLogger(config.LogConfig{
		Level:   "debug",
		Outputs: []string{"file"},
		Rotation: config.RotationConfig{
			Enable:   true,
			Filename: name,
		},
	})
	require.NoError(t, err)
	logger.Debug("rotated entry")
	_ = logger.Sync()

	b, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "rotated entry"))
}
