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

package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kadirpekel/a2ui/pkg/config"
	"github.com/kadirpekel/a2ui/pkg/conversation"
	"github.com/kadirpekel/a2ui/pkg/observability"
	"github.com/kadirpekel/a2ui/pkg/render"
	"github.com/kadirpekel/a2ui/pkg/settings"
)

//go:embed static/index.html
var previewHTML []byte

// SessionStore persists the last opened session.
type SessionStore interface {
	Update(fn func(*settings.Settings)) (settings.Settings, error)
}

// HTTPServer serves one conversation view.
type HTTPServer struct {
	cfg      config.PreviewConfig
	view     *conversation.View
	renderer *render.TextRenderer

	observability *observability.Manager
	sessions      SessionStore

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// HTTPServerOption configures the HTTP server.
type HTTPServerOption func(*HTTPServer)

// WithObservability sets the observability manager for tracing and metrics.
func WithObservability(obs *observability.Manager) HTTPServerOption {
	return func(s *HTTPServer) {
		s.observability = obs
	}
}

// WithRenderer sets the renderer for /api/scene/text.
func WithRenderer(r *render.TextRenderer) HTTPServerOption {
	return func(s *HTTPServer) {
		s.renderer = r
	}
}

// WithSessionStore makes session switches persist the session id.
func WithSessionStore(store SessionStore) HTTPServerOption {
	return func(s *HTTPServer) {
		s.sessions = store
	}
}

// NewHTTPServer creates a preview server for view.
func NewHTTPServer(cfg config.PreviewConfig, view *conversation.View, opts ...HTTPServerOption) (*HTTPServer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preview config: %w", err)
	}

	s := &HTTPServer{cfg: cfg, view: view}
	for _, opt := range opts {
		opt(s)
	}

	if s.renderer == nil {
		r, err := render.NewTextRenderer()
		if err != nil {
			return nil, fmt.Errorf("failed to create renderer: %w", err)
		}
		s.renderer = r
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()

	// Observability wraps everything so all requests are traced/measured.
	if s.observability != nil {
		r.Use(observability.HTTPMiddleware(s.observability.Tracer("a2ui/server"), s.observability.Metrics()))
	}
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/scene", s.handleScene)
		r.Get("/scene/text", s.handleSceneText)
		r.Get("/session", s.handleGetSession)
		r.Post("/session", s.handleSwitchSession)
		r.Post("/reset", s.handleReset)
		r.Post("/messages", s.handleSend)
	})

	if s.observability != nil && s.observability.MetricsEnabled() {
		endpoint := s.observability.MetricsEndpoint()
		r.Handle(endpoint, s.observability.MetricsHandler())
		slog.Info("Metrics endpoint enabled", "path", endpoint)
	}

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address(), err)
	}

	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// A send holds its request open until the agent's reply ends.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	slog.Info("Preview server starting", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	slog.Info("Preview server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}

// Address returns the bound address once started, else the configured one.
func (s *HTTPServer) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Address()
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(previewHTML)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleScene(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()

	var (
		data []byte
		err  error
	)
	if r.URL.Query().Get("raw") != "" {
		data, err = json.Marshal(snap)
	} else {
		data, err = render.JSON(render.Render(snap))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *HTTPServer) handleSceneText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.renderer.Render(render.Render(s.view.Snapshot()))))
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	Generation uint64 `json:"generation"`
	Streaming  bool   `json:"streaming"`
}

func (s *HTTPServer) sessionState() sessionResponse {
	return sessionResponse{
		SessionID:  s.view.SessionID(),
		Generation: s.view.Generation(),
		Streaming:  s.view.Streaming(),
	}
}

func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *HTTPServer) handleSwitchSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := strings.TrimSpace(body.SessionID)
	if id == "" {
		id = uuid.NewString()
	}

	err := s.view.Open(r.Context(), id)
	switch {
	case errors.Is(err, conversation.ErrSuperseded):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		// The session is open even if its history could not be replayed.
		slog.Warn("History replay failed", "session_id", id, "error", err)
	}

	if s.sessions != nil {
		if _, err := s.sessions.Update(func(st *settings.Settings) { st.SessionID = id }); err != nil {
			slog.Warn("Failed to persist session", "session_id", id, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *HTTPServer) handleReset(w http.ResponseWriter, r *http.Request) {
	s.view.Reset()
	writeJSON(w, http.StatusOK, s.sessionState())
}

func (s *HTTPServer) handleSend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err := s.view.Send(r.Context(), body.Message)
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, conversation.ErrNoSession),
		errors.Is(err, conversation.ErrBusy),
		errors.Is(err, conversation.ErrSuperseded):
		writeError(w, http.StatusConflict, err)
		return
	default:
		writeError(w, http.StatusBadGateway, err)
		return
	}

	data, err := render.JSON(render.Render(s.view.Snapshot()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// corsMiddleware adds CORS headers for the configured origins.
func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == "*" || allowed == origin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
					break
				}
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs requests without wrapping the ResponseWriter.
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// maxBody bounds request bodies.
const maxBody = 1 << 20

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
