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

package conversation

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/a2ui/pkg/history"
	"github.com/kadirpekel/a2ui/pkg/observability"
	"github.com/kadirpekel/a2ui/pkg/settings"
)

// SettingsSource supplies the current user settings.
type SettingsSource interface {
	Get() settings.Settings
}

// Option configures a View.
type Option func(*View)

// WithHistory sets where Open replays sessions from.
func WithHistory(src history.Source) Option {
	return func(v *View) {
		v.history = src
	}
}

// WithStreamer sets how Send reaches the relay.
func WithStreamer(s Streamer) Option {
	return func(v *View) {
		v.streamer = s
	}
}

// WithSettings sets the settings the agent URL is read from on every send.
func WithSettings(s SettingsSource) Option {
	return func(v *View) {
		v.settings = s
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r observability.Recorder) Option {
	return func(v *View) {
		if r != nil {
			v.recorder = r
		}
	}
}

// WithTracer sets the tracer for open and send spans.
func WithTracer(t trace.Tracer) Option {
	return func(v *View) {
		if t != nil {
			v.tracer = t
		}
	}
}

// WithClock overrides the clock used for user turn ids.
func WithClock(now func() time.Time) Option {
	return func(v *View) {
		v.now = now
	}
}
