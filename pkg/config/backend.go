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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kadirpekel/a2ui/pkg/httpclient"
)

// BackendConfig configures the relay the client talks to.
type BackendConfig struct {
	// BaseURL of the relay.
	// Default: http://localhost:8000
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=Relay base URL,format=uri,default=http://localhost:8000"`

	// StreamPath is the SSE chat endpoint.
	// Default: /api/chat/stream
	StreamPath string `yaml:"stream_path,omitempty" json:"stream_path,omitempty" jsonschema:"title=Stream Path,description=Path of the streaming chat endpoint,default=/api/chat/stream"`

	// HistoryPath is the history endpoint; {session_id} is substituted.
	// Default: /api/sessions/{session_id}/messages
	HistoryPath string `yaml:"history_path,omitempty" json:"history_path,omitempty" jsonschema:"title=History Path,description=History endpoint path with a {session_id} placeholder"`

	// Timeout bounds non-streaming requests. Streams are bounded only by
	// their context.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Timeout for non-streaming requests such as 30s"`

	// HistoryRetries is how often a failed history fetch is retried.
	// Default: 3
	HistoryRetries *int `yaml:"history_retries,omitempty" json:"history_retries,omitempty" jsonschema:"title=History Retries,description=Retries for history requests,minimum=0"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" jsonschema:"title=Headers,description=Extra headers sent with every backend request"`

	// TLS configures certificate handling for https relays.
	TLS *httpclient.TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty" jsonschema:"title=TLS,description=TLS settings for the relay connection"`
}

// SetDefaults applies default values to BackendConfig.
func (c *BackendConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.StreamPath == "" {
		c.StreamPath = "/api/chat/stream"
	}
	if c.HistoryPath == "" {
		c.HistoryPath = "/api/sessions/{session_id}/messages"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HistoryRetries == nil {
		retries := 3
		c.HistoryRetries = &retries
	}
}

// Validate checks BackendConfig.
func (c *BackendConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", c.BaseURL)
	}
	if !strings.HasPrefix(c.StreamPath, "/") {
		return fmt.Errorf("stream_path must start with /")
	}
	if !strings.HasPrefix(c.HistoryPath, "/") {
		return fmt.Errorf("history_path must start with /")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.HistoryRetries != nil && *c.HistoryRetries < 0 {
		return fmt.Errorf("history_retries must be non-negative")
	}
	return nil
}

// Retries returns HistoryRetries with its default resolved.
func (c *BackendConfig) Retries() int {
	if c.HistoryRetries == nil {
		return 3
	}
	return *c.HistoryRetries
}

// StreamURL returns the absolute chat stream URL.
func (c *BackendConfig) StreamURL() string {
	return c.BaseURL + c.StreamPath
}

// HistoryURL returns the absolute history URL for sessionID.
func (c *BackendConfig) HistoryURL(sessionID string) string {
	return c.BaseURL + strings.ReplaceAll(c.HistoryPath, "{session_id}", url.PathEscape(sessionID))
}
