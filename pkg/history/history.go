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

// Package history re-expands stored conversation entries into the envelopes
// the merge engine consumes, so replay and live streaming share one path.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
)

// Roles stored with each entry.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Entry is one stored message.
type Entry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// Item is an envelope ready to merge, tagged with its turn kind.
type Item struct {
	Envelope *a2ui.Envelope
	User     bool
}

// MergeOptions returns the options to merge the item with. User turns are
// forced; agent envelopes infer their turn kind from metadata.role, the same
// rule live frames follow.
func (it Item) MergeOptions() a2ui.MergeOptions {
	if !it.User {
		return a2ui.MergeOptions{}
	}
	user := true
	return a2ui.MergeOptions{User: &user}
}

// Source provides the stored entries of a session in order.
type Source interface {
	Entries(ctx context.Context, sessionID string) ([]Entry, error)
}

// Expand converts entries into merge items. User entries become a single
// synthetic Text component; agent entries are parsed as stored envelopes.
// Entries that cannot be parsed are skipped and logged.
func Expand(entries []Entry) []Item {
	return ExpandFunc(entries, nil)
}

// ExpandFunc is Expand that also reports every skipped entry to skip.
func ExpandFunc(entries []Entry, skip func(index int, err error)) []Item {
	items := make([]Item, 0, len(entries))
	issued := make(map[string]struct{})
	for i, e := range entries {
		switch strings.ToLower(e.Role) {
		case RoleUser:
			id := userID(e.Timestamp, i)
			if _, taken := issued[id]; taken {
				id += "_" + strconv.Itoa(i)
			}
			issued[id] = struct{}{}
			items = append(items, Item{Envelope: a2ui.NewUserTurn(id, e.Content), User: true})
		default:
			envs, err := ParseAgentContent([]byte(e.Content))
			if err != nil {
				slog.Warn("Skipping malformed history entry",
					"index", i, "role", e.Role, "error", err)
				if skip != nil {
					skip(i, err)
				}
				continue
			}
			for _, env := range envs {
				items = append(items, Item{Envelope: env})
			}
		}
	}
	return items
}

func userID(ts Timestamp, index int) string {
	if ts.IsZero() {
		return "user_msg_" + strconv.Itoa(index)
	}
	return a2ui.UserMessageID(ts.Time)
}

// ParseAgentContent parses stored agent content. The content is either one
// envelope object or a flat array whose elements are envelopes or legacy
// cards. Consecutive cards are grouped into one envelope.
func ParseAgentContent(data []byte) ([]*a2ui.Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty agent content")
	}

	switch data[0] {
	case '{':
		env, err := a2ui.ParseEnvelope(data)
		if err != nil {
			return nil, err
		}
		if env.IsControl() || env.Empty() {
			return nil, nil
		}
		return []*a2ui.Envelope{env}, nil

	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, fmt.Errorf("invalid agent content array: %w", err)
		}
		return parseArray(elems)
	}

	return nil, fmt.Errorf("agent content is neither an object nor an array")
}

func parseArray(elems []json.RawMessage) ([]*a2ui.Envelope, error) {
	var (
		out   []*a2ui.Envelope
		cards []a2ui.LegacyCard
	)
	flush := func() {
		if len(cards) > 0 {
			out = append(out, &a2ui.Envelope{Cards: cards})
			cards = nil
		}
	}

	for i, raw := range elems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		_, hasSurface := fields["surfaceUpdate"]
		_, hasCards := fields["cards"]
		if hasSurface || hasCards {
			flush()
			env, err := a2ui.ParseEnvelope(raw)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			if !env.Empty() {
				out = append(out, env)
			}
			continue
		}

		var card a2ui.LegacyCard
		if err := json.Unmarshal(raw, &card); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		cards = append(cards, card)
	}
	flush()
	return out, nil
}

// Timestamp accepts RFC 3339 and naive ISO strings, or unix seconds and
// milliseconds.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
}

// ParseTimestamp parses a stored timestamp string. Naive values are UTC.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromUnix(n), nil
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func fromUnix(n float64) Timestamp {
	// Values beyond year 5138 in seconds are taken as milliseconds.
	if n > 1e11 {
		return Timestamp{Time: time.UnixMilli(int64(n)).UTC()}
	}
	sec := int64(n)
	nsec := int64((n - float64(sec)) * 1e9)
	return Timestamp{Time: time.Unix(sec, nsec).UTC()}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseTimestamp(s)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = fromUnix(n)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
