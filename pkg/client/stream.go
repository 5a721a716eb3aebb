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
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
	"github.com/kadirpekel/a2ui/pkg/sse"
)

// Stream yields the envelopes of one live response.
type Stream struct {
	body   io.ReadCloser
	reader *sse.Reader

	once sync.Once
	done bool
}

func newStream(body io.ReadCloser) *Stream {
	return &Stream{body: body, reader: sse.NewReader(body)}
}

// Next returns the next envelope.
//
// It returns io.EOF once the relay signals completion or the body ends,
// a *StreamError when the relay reports a failure, and a *FrameError for a
// frame that is not valid JSON or is too large. A FrameError does not end the
// stream.
func (s *Stream) Next() (*a2ui.Envelope, error) {
	if s.done {
		return nil, io.EOF
	}

	data, err := s.reader.Next()
	if errors.Is(err, sse.ErrFrameTooLarge) {
		return nil, &FrameError{Err: err}
	}
	if err != nil {
		s.done = true
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read stream: %w", err)
	}

	env, err := a2ui.ParseEnvelope(data)
	if err != nil {
		return nil, &FrameError{Data: data, Err: err}
	}

	switch env.Type {
	case a2ui.ControlComplete:
		s.done = true
		return nil, io.EOF
	case a2ui.ControlError:
		s.done = true
		return nil, &StreamError{Message: env.Message}
	}
	return env, nil
}

// Close releases the connection. Safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
	})
	return err
}
