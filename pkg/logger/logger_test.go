package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_SimpleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.LevelInfo, &buf, FormatSimple)

	l.Info("merged envelope", "appended", 2)
	l.Debug("hidden")
	l.With("session", "s1").WithGroup("stream").Warn("slow", "ms", 900)

	assert.Equal(t,
		"INFO merged envelope appended=2\nWARN slow session=s1 stream.ms=900\n",
		buf.String())
}

func TestNew_VerboseFormatHasTimestamp(t *testing.T) {
	var buf bytes.Buffer
	New(slog.LevelInfo, &buf, FormatVerbose).Error("boom")
	assert.Regexp(t, `^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} ERROR boom\n$`, buf.String())
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(slog.LevelDebug, &buf, FormatJSON).Info("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestFilteringHandler_DropsForeignRecords(t *testing.T) {
	var buf bytes.Buffer
	h := &filteringHandler{
		handler:  slog.NewTextHandler(&buf, nil),
		minLevel: slog.LevelInfo,
	}

	// A zero PC cannot be attributed to this module.
	rec := slog.NewRecord(testTime, slog.LevelInfo, "foreign", 0)
	require.NoError(t, h.Handle(t.Context(), rec))
	assert.Empty(t, buf.String())

	h.minLevel = slog.LevelDebug
	require.NoError(t, h.Handle(t.Context(), rec))
	assert.Contains(t, buf.String(), "foreign")
}

func TestInitAndGetLogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	l := Init(slog.LevelWarn, &buf, FormatSimple)
	assert.Same(t, l, GetLogger())

	slog.Warn("via default")
	assert.Contains(t, buf.String(), "WARN via default")
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a2ui.log")
	f, cleanup, err := OpenLogFile(path)
	require.NoError(t, err)
	defer cleanup()

	New(slog.LevelInfo, f, FormatSimple).Info("to file")
	assert.FileExists(t, path)
}
