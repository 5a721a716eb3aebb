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

// Package sse reads server-sent event streams.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds the data of a single event.
const MaxFrameSize = 1 << 20

// ErrFrameTooLarge reports an event whose data exceeded MaxFrameSize. The
// event is dropped and the reader stays usable.
var ErrFrameTooLarge = errors.New("sse: frame too large")

// Reader yields the data payload of each event.
type Reader struct {
	br   *bufio.Reader
	line []byte
	eof  bool

	data      bytes.Buffer
	hasData   bool
	oversized bool
	dropped   int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next event's data, with multiple data lines joined by
// newlines. Events without data are skipped. An event larger than
// MaxFrameSize is discarded and reported with ErrFrameTooLarge; the following
// call continues with the next event. It returns io.EOF at the end of the
// stream, after any trailing event that was not blank-line terminated.
func (r *Reader) Next() ([]byte, error) {
	for {
		line, size, err := r.readLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			return r.endEvent()
		}

		if size == 0 {
			if r.oversized || r.hasData {
				return r.endEvent()
			}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			value = bytes.TrimPrefix(value, []byte(" "))
		}

		// event, id and retry carry nothing the client needs.
		if string(field) != "data" {
			continue
		}

		if r.oversized || size > MaxFrameSize || r.data.Len()+len(value) > MaxFrameSize {
			r.oversized = true
			r.dropped += r.data.Len() + size
			r.data.Reset()
			continue
		}
		if r.hasData {
			r.data.WriteByte('\n')
		}
		r.data.Write(value)
		r.hasData = true
	}
}

// endEvent finishes the pending event, or reports io.EOF when there is none.
func (r *Reader) endEvent() ([]byte, error) {
	switch {
	case r.oversized:
		n := r.dropped
		r.reset()
		return nil, fmt.Errorf("%w: more than %d bytes (%d read)", ErrFrameTooLarge, MaxFrameSize, n)
	case r.hasData:
		out := append([]byte(nil), r.data.Bytes()...)
		r.reset()
		return out, nil
	}
	return nil, io.EOF
}

func (r *Reader) reset() {
	r.data.Reset()
	r.hasData = false
	r.oversized = false
	r.dropped = 0
}

// readLine returns the next line without its terminator, and the line's full
// length. Only the first MaxFrameSize+1 bytes of a longer line are kept; the
// rest is drained so the following line starts clean.
func (r *Reader) readLine() ([]byte, int, error) {
	if r.eof {
		return nil, 0, io.EOF
	}

	r.line = r.line[:0]
	size := 0
	terminated := false
	for {
		chunk, err := r.br.ReadSlice('\n')
		size += len(chunk)
		if room := MaxFrameSize + 1 - len(r.line); room > 0 {
			r.line = append(r.line, chunk[:min(room, len(chunk))]...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) || size == 0 {
				return nil, 0, err
			}
			r.eof = true
		}
		terminated = len(chunk) > 0 && chunk[len(chunk)-1] == '\n'
		break
	}

	line := r.line
	if terminated {
		size--
		if len(line) > size {
			line = line[:size]
		}
	}
	if n := len(line); n == size && n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
		size--
	}
	return line, size, nil
}
