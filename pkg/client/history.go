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

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kadirpekel/a2ui/pkg/history"
)

// History fetches the stored entries of sessionID, oldest first. The body
// may be a bare array or an object with a "messages" array. A session the
// relay does not know yields no entries.
func (c *Client) History(ctx context.Context, sessionID string) ([]history.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.HistoryURL(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.setHeaders(req)

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, newStatusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return decodeHistory(data)
}

// Entries implements history.Source.
func (c *Client) Entries(ctx context.Context, sessionID string) ([]history.Entry, error) {
	return c.History(ctx, sessionID)
}

func decodeHistory(data []byte) ([]history.Entry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var entries []history.Entry
	if data[0] == '[' {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("invalid history: %w", err)
		}
		return entries, nil
	}

	var wrapped struct {
		Messages []history.Entry `json:"messages"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid history: %w", err)
	}
	return wrapped.Messages, nil
}

var _ history.Source = (*Client)(nil)
