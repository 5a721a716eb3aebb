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

// Package conversation owns the scene graph of the open session.
//
// A View is the single writer of its graph. History replay, the synthetic
// user turn and live stream frames all go through the same merge. Every
// session switch or reset bumps a generation counter and cancels the
// in-flight stream; chunks tagged with an older generation are refused, so a
// slow stream from a previous session can never touch the current one.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
	"github.com/kadirpekel/a2ui/pkg/client"
	"github.com/kadirpekel/a2ui/pkg/history"
	"github.com/kadirpekel/a2ui/pkg/observability"
	"github.com/kadirpekel/a2ui/pkg/settings"
)

var (
	// ErrNoSession is returned by Send before any session is open.
	ErrNoSession = errors.New("no session open")

	// ErrSuperseded is returned for work belonging to a generation that a
	// switch or reset has replaced.
	ErrSuperseded = errors.New("conversation superseded by a newer session")

	// ErrBusy is returned by Send while another message is streaming.
	ErrBusy = errors.New("a response is still streaming")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoStreamer is returned by Send when the view cannot reach a relay.
	ErrNoStreamer = errors.New("no streamer configured")
)

// ChangeKind says what happened to the view.
type ChangeKind int

const (
	ChangeOpened ChangeKind = iota
	ChangeReset
	ChangeMerged
	ChangeStreamStarted
	ChangeStreamEnded
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeOpened:
		return "opened"
	case ChangeReset:
		return "reset"
	case ChangeMerged:
		return "merged"
	case ChangeStreamStarted:
		return "stream_started"
	case ChangeStreamEnded:
		return "stream_ended"
	default:
		return "unknown"
	}
}

// Change is delivered to OnChange listeners.
type Change struct {
	Kind       ChangeKind
	SessionID  string
	Generation uint64
	// Err is set on ChangeStreamEnded when the stream failed.
	Err error
}

// View is the conversation view. It is safe for concurrent use.
type View struct {
	mu        sync.Mutex
	graph     *a2ui.SceneGraph
	sessionID string
	gen       uint64
	cancel    context.CancelFunc
	streaming bool

	history  history.Source
	streamer Streamer
	settings SettingsSource
	recorder observability.Recorder
	tracer   trace.Tracer
	now      func() time.Time

	lmu       sync.Mutex
	listeners map[int]func(Change)
	nextL     int
}

// New creates a view with no session open.
func New(opts ...Option) *View {
	v := &View{
		graph:     a2ui.NewSceneGraph(),
		recorder:  observability.NoopRecorder{},
		tracer:    noop.NewTracerProvider().Tracer("conversation"),
		now:       time.Now,
		listeners: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// OnChange registers fn for every change. Listeners run synchronously on
// the goroutine that caused the change and must not block. The returned
// function removes the listener.
func (v *View) OnChange(fn func(Change)) func() {
	v.lmu.Lock()
	id := v.nextL
	v.nextL++
	v.listeners[id] = fn
	v.lmu.Unlock()

	return func() {
		v.lmu.Lock()
		delete(v.listeners, id)
		v.lmu.Unlock()
	}
}

func (v *View) notify(c Change) {
	v.lmu.Lock()
	fns := make([]func(Change), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.lmu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// SessionID returns the open session, or "" if none.
func (v *View) SessionID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sessionID
}

// Generation returns the current generation token.
func (v *View) Generation() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen
}

// Streaming reports whether a response is being consumed.
func (v *View) Streaming() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.streaming
}

// Snapshot returns an immutable copy of the scene for rendering.
func (v *View) Snapshot() a2ui.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.graph.Snapshot()
}

// supersede starts a new generation: it cancels the in-flight stream and
// empties the graph. Callers hold mu.
func (v *View) supersede() uint64 {
	v.gen++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.streaming = false
	v.graph.Reset()
	return v.gen
}

// Reset discards the scene of the open session and abandons any stream.
func (v *View) Reset() {
	v.mu.Lock()
	gen := v.supersede()
	id := v.sessionID
	v.mu.Unlock()

	slog.Debug("Conversation reset", "session_id", id, "generation", gen)
	v.notify(Change{Kind: ChangeReset, SessionID: id, Generation: gen})
}

// Open switches to sessionID: the scene is rebuilt from scratch and the
// session's history is replayed into it. If another switch happens while
// history loads, Open returns ErrSuperseded and leaves the newer session
// alone. Unparseable entries are skipped.
func (v *View) Open(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	ctx, span := v.tracer.Start(ctx, observability.SpanOpen,
		trace.WithAttributes(attribute.String(observability.AttrSessionID, sessionID)))
	defer span.End()

	v.mu.Lock()
	gen := v.supersede()
	v.sessionID = sessionID
	v.mu.Unlock()

	span.SetAttributes(attribute.Int64(observability.AttrGeneration, int64(gen)))
	v.notify(Change{Kind: ChangeOpened, SessionID: sessionID, Generation: gen})

	if v.history == nil {
		return nil
	}

	entries, err := v.history.Entries(ctx, sessionID)
	if !v.current(gen) {
		return ErrSuperseded
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to load history for %s: %w", sessionID, err)
	}

	items := history.ExpandFunc(entries, func(int, error) {
		v.recorder.FrameSkipped(ctx, observability.SourceHistory, "malformed")
	})

	merged := 0
	for _, item := range items {
		err := v.apply(ctx, gen, item.Envelope, item.MergeOptions(), observability.SourceHistory)
		switch {
		case errors.Is(err, ErrSuperseded):
			return err
		case err != nil:
			slog.Warn("Skipping history envelope", "session_id", sessionID, "error", err)
			v.recorder.FrameSkipped(ctx, observability.SourceHistory, reason(err))
			continue
		}
		merged++
	}

	slog.Debug("Session opened", "session_id", sessionID, "entries", len(entries), "merged", merged)
	v.notify(Change{Kind: ChangeMerged, SessionID: sessionID, Generation: gen})
	return nil
}

// Apply merges env into the scene if gen is still current. Live frames use
// this path; the turn kind is inferred from the components' roles.
func (v *View) Apply(gen uint64, env *a2ui.Envelope) error {
	ctx := context.Background()
	if err := v.apply(ctx, gen, env, a2ui.MergeOptions{}, observability.SourceLive); err != nil {
		return err
	}
	v.notify(Change{Kind: ChangeMerged, SessionID: v.SessionID(), Generation: gen})
	return nil
}

func (v *View) apply(ctx context.Context, gen uint64, env *a2ui.Envelope, opts a2ui.MergeOptions, source string) error {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.recorder.StaleDropped(ctx)
		return ErrSuperseded
	}
	res, err := v.graph.Merge(env, opts)
	v.mu.Unlock()

	if err != nil {
		return err
	}
	v.recorder.EnvelopeMerged(ctx, source, len(res.Appended))
	return nil
}

// Send posts text to the agent of the current settings and consumes the
// response stream until it ends. The user's turn is in the scene before the
// request is made. Frames are applied one at a time, in order. A switch or
// reset while streaming makes Send return ErrSuperseded without touching the
// new scene. Malformed frames are skipped; a transport failure ends the
// stream and is returned, keeping whatever was already merged.
func (v *View) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if v.streamer == nil {
		return ErrNoStreamer
	}

	v.mu.Lock()
	if v.sessionID == "" {
		v.mu.Unlock()
		return ErrNoSession
	}
	if v.streaming {
		v.mu.Unlock()
		return ErrBusy
	}
	gen := v.gen
	sessionID := v.sessionID
	streamCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.streaming = true

	id := a2ui.UserMessageID(v.now())
	if v.graph.Has(id) {
		id += "_" + uuid.NewString()[:8]
	}
	user := true
	_, err := v.graph.Merge(a2ui.NewUserTurn(id, text), a2ui.MergeOptions{User: &user})
	v.mu.Unlock()
	defer cancel()

	if err != nil {
		v.finish(gen)
		return fmt.Errorf("failed to add user turn: %w", err)
	}
	v.recorder.EnvelopeMerged(ctx, observability.SourceUser, 1)
	v.notify(Change{Kind: ChangeMerged, SessionID: sessionID, Generation: gen})
	v.notify(Change{Kind: ChangeStreamStarted, SessionID: sessionID, Generation: gen})

	start := v.now()
	err = v.consume(streamCtx, gen, client.ChatRequest{
		Message:   text,
		AgentURL:  v.agentURL(),
		SessionID: sessionID,
	})
	v.recorder.StreamFinished(ctx, v.now().Sub(start), err)

	if v.finish(gen) {
		v.notify(Change{Kind: ChangeStreamEnded, SessionID: sessionID, Generation: gen, Err: err})
	}
	return err
}

// finish clears the streaming flag if gen is still current.
func (v *View) finish(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return false
	}
	v.streaming = false
	v.cancel = nil
	return true
}

func (v *View) agentURL() string {
	if v.settings == nil {
		return settings.DefaultAgentURL
	}
	if u := v.settings.Get().AgentURL; u != "" {
		return u
	}
	return settings.DefaultAgentURL
}

func (v *View) current(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return gen == v.gen
}

func (v *View) consume(ctx context.Context, gen uint64, req client.ChatRequest) (err error) {
	ctx, span := v.tracer.Start(ctx, observability.SpanStream, trace.WithAttributes(
		attribute.String(observability.AttrSessionID, req.SessionID),
		attribute.Int64(observability.AttrGeneration, int64(gen)),
	))
	defer func() {
		if err != nil && !errors.Is(err, ErrSuperseded) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	stream, err := v.streamer.StreamChat(ctx, req)
	if err != nil {
		if !v.current(gen) {
			return ErrSuperseded
		}
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer stream.Close()

	var frameErr *client.FrameError
	for {
		env, err := stream.Next()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &frameErr):
			slog.Warn("Skipping malformed frame", "session_id", req.SessionID, "error", err)
			v.recorder.FrameSkipped(ctx, observability.SourceLive, "malformed")
			continue
		case err != nil:
			if !v.current(gen) {
				v.recorder.StaleDropped(ctx)
				return ErrSuperseded
			}
			return fmt.Errorf("stream failed: %w", err)
		}

		err = v.Apply(gen, env)
		switch {
		case errors.Is(err, ErrSuperseded):
			slog.Debug("Dropping chunk from superseded session", "session_id", req.SessionID, "generation", gen)
			return err
		case err != nil:
			slog.Warn("Skipping envelope", "session_id", req.SessionID, "error", err)
			v.recorder.FrameSkipped(ctx, observability.SourceLive, reason(err))
		}
	}
}

func reason(err error) string {
	if errors.Is(err, a2ui.ErrMixedRoles) {
		return "mixed_roles"
	}
	return "invalid"
}
