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

// Package client talks to the chat relay: it opens the live SSE stream for a
// message, fetches a session's stored history, and probes the remote agent's
// card.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kadirpekel/a2ui/pkg/config"
	"github.com/kadirpekel/a2ui/pkg/httpclient"
)

// ChatRequest is the body of a stream request.
type ChatRequest struct {
	Message   string `json:"message"`
	AgentURL  string `json:"agent_url"`
	SessionID string `json:"session_id"`
}

// Client is a relay client. It is safe for concurrent use.
type Client struct {
	cfg config.BackendConfig

	// stream has no timeout; a live stream is bounded by its context.
	stream *http.Client
	// api retries transient failures of short requests.
	api *httpclient.Client
}

// New builds a Client from cfg. Defaults are applied to a copy of cfg.
func New(cfg config.BackendConfig) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	transport, err := httpclient.ConfigureTLS(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	if cfg.TLS != nil && cfg.TLS.InsecureSkipVerify {
		slog.Warn("TLS certificate verification disabled for relay client", "base_url", cfg.BaseURL)
	}

	return &Client{
		cfg:    cfg,
		stream: &http.Client{Transport: transport},
		api: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout, Transport: transport}),
			httpclient.WithMaxRetries(cfg.Retries()),
		),
	}, nil
}

// BaseURL returns the relay base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// HTTPClient returns the plain client used for streams.
func (c *Client) HTTPClient() *http.Client {
	return c.stream
}

// StreamChat posts req and returns the open event stream. It is never
// retried: a message must not be delivered twice. The stream ends when ctx is
// cancelled.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (*Stream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.StreamURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	c.setHeaders(httpReq)

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, newStatusError(resp)
	}

	slog.Debug("Chat stream opened", "session_id", req.SessionID, "agent_url", req.AgentURL)
	return newStream(resp.Body), nil
}

// Health reports whether the relay answers its root health check.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
}
