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

package a2ui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Control frame types emitted by the relay alongside envelopes.
const (
	ControlComplete = "complete"
	ControlError    = "error"
)

// Envelope is one discrete streamed update.
type Envelope struct {
	SurfaceUpdate *SurfaceUpdate `json:"surfaceUpdate,omitempty"`
	Cards         []LegacyCard   `json:"cards,omitempty"`

	// Type and Message are only set on relay control frames.
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// SurfaceUpdate names zero or more components, at most one a root revision.
type SurfaceUpdate struct {
	Components []Component `json:"components"`
}

// LegacyCard is a flat content block from the pre-envelope protocol.
type LegacyCard struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Content map[string]any `json:"content,omitempty"`
}

// ParseEnvelope decodes one envelope document.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return &env, nil
}

// IsControl reports whether e is a relay control frame rather than content.
func (e *Envelope) IsControl() bool {
	return e.Type == ControlComplete || e.Type == ControlError
}

// Components returns the surface update components, or nil.
func (e *Envelope) Components() []Component {
	if e.SurfaceUpdate == nil {
		return nil
	}
	return e.SurfaceUpdate.Components
}

// Empty reports whether e carries nothing to merge.
func (e *Envelope) Empty() bool {
	return len(e.Components()) == 0 && len(e.Cards) == 0
}

// AdaptCards wraps legacy cards into LegacyCard components so they can go
// through the regular merge path. Cards without an id get a generated one.
func AdaptCards(cards []LegacyCard) []Component {
	out := make([]Component, 0, len(cards))
	for _, card := range cards {
		id := card.ID
		if id == "" {
			id = "card_" + uuid.NewString()
		}
		comp := Component{
			ID:   id,
			Type: TypeLegacyCard,
			Props: map[string]any{
				"cardType": card.Type,
			},
		}
		if card.Content != nil {
			comp.Props["content"] = cloneMap(card.Content)
			if meta, ok := card.Content["metadata"].(map[string]any); ok {
				comp.Metadata = cloneMap(meta)
			}
		}
		out = append(out, comp)
	}
	return out
}

// UserMessageID returns the id of the synthetic Text component that stands
// for a user turn sent at t.
func UserMessageID(t time.Time) string {
	return "user_msg_" + strconv.FormatInt(t.UnixMilli(), 10)
}

// NewUserTurn builds the envelope for a user-authored message. It carries a
// single Text component tagged with metadata.role=user and no root revision.
func NewUserTurn(id, text string) *Envelope {
	return &Envelope{
		SurfaceUpdate: &SurfaceUpdate{
			Components: []Component{{
				ID:       id,
				Type:     TypeText,
				Text:     &TextValue{Literal: text},
				Metadata: map[string]any{"role": RoleUser},
			}},
		},
	}
}
