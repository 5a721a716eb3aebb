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
	"errors"
	"io"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager owns the tracer provider and metrics for the process.
type Manager struct {
	config Config
	output io.Writer

	mu             sync.RWMutex
	tracerProvider trace.TracerProvider
	metrics        *Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTraceOutput sets where the stdout exporter writes.
func WithTraceOutput(w io.Writer) ManagerOption {
	return func(m *Manager) {
		m.output = w
	}
}

// NewManager creates an uninitialized manager. Until Initialize is called
// it hands out no-op tracers and recorders.
func NewManager(cfg Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		config:         cfg,
		tracerProvider: noop.NewTracerProvider(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize sets up tracing and metrics.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tp, err := InitTracer(ctx, m.config.Tracing, m.output)
	if err != nil {
		return err
	}
	m.tracerProvider = tp

	metrics, err := InitMetrics(m.config.Metrics)
	if err != nil {
		return err
	}
	m.metrics = metrics

	return nil
}

// Tracer returns a named tracer.
func (m *Manager) Tracer(name string) trace.Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracerProvider.Tracer(name)
}

// Metrics returns the metrics, nil when disabled.
func (m *Manager) Metrics() *Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics
}

// Recorder returns the conversation recorder.
func (m *Manager) Recorder() Recorder {
	if metrics := m.Metrics(); metrics != nil {
		return metrics
	}
	return NoopRecorder{}
}

// MetricsEnabled reports whether metrics are being collected.
func (m *Manager) MetricsEnabled() bool {
	return m.Metrics() != nil
}

// MetricsEndpoint returns the path metrics are served on.
func (m *Manager) MetricsEndpoint() string {
	return m.config.Metrics.Endpoint
}

// MetricsHandler serves collected metrics.
func (m *Manager) MetricsHandler() http.Handler {
	return m.Metrics().Handler()
}

// Shutdown flushes spans and metrics.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if spt, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		errs = append(errs, spt.Shutdown(ctx))
	}
	errs = append(errs, m.metrics.Shutdown(ctx))
	return errors.Join(errs...)
}
