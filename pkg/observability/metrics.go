// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records conversation and HTTP metrics through an OpenTelemetry
// meter exported to a private Prometheus registry. A nil *Metrics is a valid
// no-op recorder.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	envelopesMerged metric.Int64Counter
	turnsAppended   metric.Int64Counter
	framesSkipped   metric.Int64Counter
	staleDropped    metric.Int64Counter
	streamsTotal    metric.Int64Counter
	streamErrors    metric.Int64Counter
	streamDuration  metric.Float64Histogram

	httpRequests metric.Int64Counter
	httpDuration metric.Float64Histogram
}

// InitMetrics creates the meter provider and instruments. It returns nil
// when metrics are disabled.
func InitMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	registry := prometheus.NewRegistry()
	promExporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithNamespace(cfg.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter))
	meter := provider.Meter(DefaultServiceName)

	m := &Metrics{registry: registry, provider: provider}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.envelopesMerged, "envelopes_merged", "Envelopes merged into a scene graph"},
		{&m.turnsAppended, "turns_appended", "Ids appended to the root"},
		{&m.framesSkipped, "frames_skipped", "Frames or history entries skipped"},
		{&m.staleDropped, "stale_chunks_dropped", "Chunks dropped after a session switch"},
		{&m.streamsTotal, "streams", "Live streams consumed"},
		{&m.streamErrors, "stream_errors", "Live streams that ended with an error"},
		{&m.httpRequests, "http_requests", "Preview server requests"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	m.streamDuration, err = meter.Float64Histogram(
		"stream_duration_seconds",
		metric.WithDescription("Live stream duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream duration histogram: %w", err)
	}

	m.httpDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Preview server request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// EnvelopeMerged implements Recorder.
func (m *Metrics) EnvelopeMerged(ctx context.Context, source string, appended int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.envelopesMerged.Add(ctx, 1, attrs)
	if appended > 0 {
		m.turnsAppended.Add(ctx, int64(appended), attrs)
	}
}

// FrameSkipped implements Recorder.
func (m *Metrics) FrameSkipped(ctx context.Context, source, reason string) {
	if m == nil {
		return
	}
	m.framesSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("reason", reason),
	))
}

// StreamFinished implements Recorder.
func (m *Metrics) StreamFinished(ctx context.Context, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.streamsTotal.Add(ctx, 1)
	m.streamDuration.Record(ctx, duration.Seconds())
	if err != nil {
		m.streamErrors.Add(ctx, 1)
	}
}

// StaleDropped implements Recorder.
func (m *Metrics) StaleDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.staleDropped.Add(ctx, 1)
}

// RecordHTTPRequest records one preview server request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}
