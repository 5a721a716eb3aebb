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
	"time"
)

// Recorder receives conversation events worth counting.
type Recorder interface {
	// EnvelopeMerged is called after an envelope from source was merged.
	EnvelopeMerged(ctx context.Context, source string, appended int)

	// FrameSkipped is called when a frame or history entry was dropped.
	FrameSkipped(ctx context.Context, source, reason string)

	// StreamFinished is called when a live stream ends, err is nil on a
	// clean end.
	StreamFinished(ctx context.Context, duration time.Duration, err error)

	// StaleDropped is called when a chunk from a superseded session arrives.
	StaleDropped(ctx context.Context)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) EnvelopeMerged(context.Context, string, int)          {}
func (NoopRecorder) FrameSkipped(context.Context, string, string)         {}
func (NoopRecorder) StreamFinished(context.Context, time.Duration, error) {}
func (NoopRecorder) StaleDropped(context.Context)                         {}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*Metrics)(nil)
