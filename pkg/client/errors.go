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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is a non-2xx relay response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relay returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned HTTP %d: %s", e.StatusCode, e.Body)
}

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

func newStatusError(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := strings.TrimSpace(string(raw))

	// FastAPI wraps messages as {"detail": "..."}.
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &detail) == nil && detail.Detail != "" {
		body = detail.Detail
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: body}
}

// StreamError is an error frame reported by the relay mid-stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "relay stream error: " + e.Message
}

// FrameError is a single undecodable frame. The stream stays usable.
type FrameError struct {
	Data []byte
	Err  error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed frame (%d bytes): %v", len(e.Data), e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
