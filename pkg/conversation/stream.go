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
	"context"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
	"github.com/kadirpekel/a2ui/pkg/client"
)

// Stream is a pull-based sequence of envelopes.
//
// Next returns io.EOF at a clean end and *client.FrameError for a frame
// that should be skipped. Any other error is terminal.
type Stream interface {
	Next() (*a2ui.Envelope, error)
	Close() error
}

// Streamer opens a live stream for one outgoing message.
type Streamer interface {
	StreamChat(ctx context.Context, req client.ChatRequest) (Stream, error)
}

// StreamerFunc adapts a function to Streamer.
type StreamerFunc func(ctx context.Context, req client.ChatRequest) (Stream, error)

func (f StreamerFunc) StreamChat(ctx context.Context, req client.ChatRequest) (Stream, error) {
	return f(ctx, req)
}

// FromClient adapts a relay client to Streamer.
func FromClient(c *client.Client) Streamer {
	return StreamerFunc(func(ctx context.Context, req client.ChatRequest) (Stream, error) {
		s, err := c.StreamChat(ctx, req)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
