package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.Metrics.Namespace)
	assert.Equal(t, ExporterStdout, cfg.Tracing.Exporter)
	assert.Equal(t, DefaultSamplingRate, cfg.Tracing.SamplingRate)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Tracing: TracingConfig{Enabled: true, Exporter: "jaeger", SamplingRate: 1}}
	assert.Error(t, cfg.Validate())

	cfg = Config{Tracing: TracingConfig{Enabled: true, Exporter: ExporterStdout, SamplingRate: 2}}
	assert.Error(t, cfg.Validate())

	cfg = Config{Metrics: MetricsConfig{Enabled: true, Endpoint: "metrics"}}
	assert.Error(t, cfg.Validate())
}

func TestNilMetricsAreNoop(t *testing.T) {
	ctx := context.Background()
	var m *Metrics
	m.EnvelopeMerged(ctx, SourceLive, 2)
	m.FrameSkipped(ctx, SourceLive, "malformed")
	m.StreamFinished(ctx, time.Second, nil)
	m.StaleDropped(ctx)
	m.RecordHTTPRequest(ctx, http.MethodGet, "/health", 200, time.Millisecond)
	assert.NoError(t, m.Shutdown(ctx))
}

func TestManager_Disabled(t *testing.T) {
	m := NewManager(Config{})
	require.NoError(t, m.Initialize(context.Background()))
	assert.False(t, m.MetricsEnabled())
	assert.IsType(t, NoopRecorder{}, m.Recorder())
	assert.NotNil(t, m.Tracer("test"))
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_MetricsExposed(t *testing.T) {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	cfg.SetDefaults()

	m := NewManager(cfg)
	require.NoError(t, m.Initialize(context.Background()))
	defer m.Shutdown(context.Background())

	ctx := context.Background()
	rec := m.Recorder()
	rec.EnvelopeMerged(ctx, SourceLive, 3)
	rec.FrameSkipped(ctx, SourceHistory, "malformed")
	rec.StreamFinished(ctx, 50*time.Millisecond, errors.New("boom"))
	rec.StaleDropped(ctx)

	w := httptest.NewRecorder()
	m.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "a2ui_envelopes_merged_total")
	assert.Contains(t, body, "a2ui_frames_skipped_total")
	assert.Contains(t, body, "a2ui_stream_errors_total")
	assert.Contains(t, body, "a2ui_stale_chunks_dropped_total")
}

func TestManager_StdoutTracing(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Tracing: TracingConfig{Enabled: true}}
	cfg.SetDefaults()

	m := NewManager(cfg, WithTraceOutput(&buf))
	require.NoError(t, m.Initialize(context.Background()))

	_, span := m.Tracer("test").Start(context.Background(), SpanSend)
	span.End()
	require.NoError(t, m.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), SpanSend)
}

func TestHTTPMiddleware(t *testing.T) {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	cfg.SetDefaults()
	metrics, err := InitMetrics(cfg.Metrics)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(HTTPMiddleware(nil, metrics))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	mw := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(mw.Body)
	assert.Contains(t, string(body), `route="/items/{id}"`)
}
