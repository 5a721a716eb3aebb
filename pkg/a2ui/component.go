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
	"bytes"
	"encoding/json"
	"fmt"
)

// RootID is the id of the distinguished container whose children list is the
// ordered history of appended turns.
const RootID = "root"

// Type is a component type tag.
type Type string

// Component types understood by the renderer.
const (
	TypeText       Type = "Text"
	TypeRow        Type = "Row"
	TypeColumn     Type = "Column"
	TypeError      Type = "Error"
	TypeThinking   Type = "Thinking"
	TypeArtifact   Type = "Artifact"
	TypeFormCard   Type = "FormCard"
	TypeLegacyCard Type = "LegacyCard"
)

// IsContainer reports whether components of this type carry a children list.
func (t Type) IsContainer() bool {
	return t == TypeRow || t == TypeColumn
}

// Known reports whether t is part of the supported vocabulary.
func (t Type) Known() bool {
	switch t {
	case TypeText, TypeRow, TypeColumn, TypeError, TypeThinking,
		TypeArtifact, TypeFormCard, TypeLegacyCard:
		return true
	default:
		return false
	}
}

// Usage hints carried by Text components.
const (
	HintError  = "error"
	HintSubtle = "subtle"
	HintCode   = "code"
)

// Role values found in component metadata.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Component is a node of the scene graph.
//
// Both wire shapes are accepted on decode:
//
//	{"id":"t1","component":"Text","text":{"literalString":"hi"}}
//	{"id":"t1","component":{"Text":{"text":{"literalString":"hi"}}}}
//
// and normalize to the same value. Encoding always produces the first shape.
type Component struct {
	ID        string
	Type      Type
	Text      *TextValue
	Children  *Children
	UsageHint string

	// Props holds every type-specific property not modelled above
	// (error payloads, artifact fields, form content, ...).
	Props map[string]any

	Metadata map[string]any
}

// IsRoot reports whether c is a revision of the root container.
func (c *Component) IsRoot() bool {
	return c.ID == RootID
}

// Role returns metadata.role, or "" when absent.
func (c *Component) Role() string {
	if c.Metadata == nil {
		return ""
	}
	role, _ := c.Metadata["role"].(string)
	return role
}

// ChildIDs returns the explicit children list, or nil.
func (c *Component) ChildIDs() []string {
	if c.Children == nil {
		return nil
	}
	return c.Children.ExplicitList
}

// Prop returns a type-specific property.
func (c *Component) Prop(key string) (any, bool) {
	if c.Props == nil {
		return nil, false
	}
	v, ok := c.Props[key]
	return v, ok
}

// Clone returns a deep copy of c.
func (c *Component) Clone() *Component {
	out := &Component{
		ID:        c.ID,
		Type:      c.Type,
		UsageHint: c.UsageHint,
		Props:     cloneMap(c.Props),
		Metadata:  cloneMap(c.Metadata),
	}
	if c.Text != nil {
		t := *c.Text
		out.Text = &t
	}
	if c.Children != nil {
		out.Children = &Children{ExplicitList: append([]string(nil), c.Children.ExplicitList...)}
	}
	return out
}

// reserved keys are decoded into dedicated fields and never land in Props.
var reserved = map[string]bool{
	"id":        true,
	"component": true,
	"text":      true,
	"children":  true,
	"usageHint": true,
	"metadata":  true,
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Component{}
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &c.ID); err != nil {
			return fmt.Errorf("component id: %w", err)
		}
	}

	typ, nested, err := parseTypeField(raw["component"])
	if err != nil {
		return fmt.Errorf("component %q: %w", c.ID, err)
	}
	c.Type = typ

	props := make(map[string]json.RawMessage, len(raw)+len(nested))
	for k, v := range raw {
		if k == "id" || k == "component" {
			continue
		}
		props[k] = v
	}
	// Properties nested under the legacy type key take precedence.
	for k, v := range nested {
		props[k] = v
	}

	return c.decodeProps(props)
}

// parseTypeField normalizes the "component" field. The modern shape is a
// string; the legacy shape is an object with exactly one key naming the type
// and holding its properties.
func parseTypeField(raw json.RawMessage) (Type, map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", nil, err
		}
		return Type(s), nil, nil

	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return "", nil, err
		}
		if len(wrapper) != 1 {
			return "", nil, fmt.Errorf("legacy component object must have exactly one type key, got %d", len(wrapper))
		}
		for name, body := range wrapper {
			body = bytes.TrimSpace(body)
			if len(body) == 0 || bytes.Equal(body, []byte("null")) {
				return Type(name), nil, nil
			}
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(body, &nested); err != nil {
				return "", nil, fmt.Errorf("legacy %s properties: %w", name, err)
			}
			return Type(name), nested, nil
		}
	}

	return "", nil, fmt.Errorf("unsupported component field: %s", string(raw))
}

func (c *Component) decodeProps(props map[string]json.RawMessage) error {
	for k, v := range props {
		switch k {
		case "text":
			var t TextValue
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("component %q text: %w", c.ID, err)
			}
			c.Text = &t
		case "children":
			var ch Children
			if err := json.Unmarshal(v, &ch); err != nil {
				return fmt.Errorf("component %q children: %w", c.ID, err)
			}
			c.Children = &ch
		case "usageHint":
			if err := json.Unmarshal(v, &c.UsageHint); err != nil {
				return fmt.Errorf("component %q usageHint: %w", c.ID, err)
			}
		case "metadata":
			if err := json.Unmarshal(v, &c.Metadata); err != nil {
				return fmt.Errorf("component %q metadata: %w", c.ID, err)
			}
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("component %q property %s: %w", c.ID, k, err)
			}
			if c.Props == nil {
				c.Props = make(map[string]any)
			}
			c.Props[k] = val
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler using the modern wire shape.
func (c Component) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Props)+6)
	for k, v := range c.Props {
		if !reserved[k] {
			out[k] = v
		}
	}
	out["id"] = c.ID
	out["component"] = string(c.Type)
	if c.Text != nil {
		out["text"] = c.Text
	}
	if c.Children != nil {
		out["children"] = c.Children
	}
	if c.UsageHint != "" {
		out["usageHint"] = c.UsageHint
	}
	if len(c.Metadata) > 0 {
		out["metadata"] = c.Metadata
	}
	return json.Marshal(out)
}

// TextValue is a literal or markdown string.
type TextValue struct {
	Literal  string
	Markdown string
}

// String returns the text content regardless of flavour.
func (t TextValue) String() string {
	if t.Markdown != "" {
		return t.Markdown
	}
	return t.Literal
}

// IsMarkdown reports whether the value carries markdown.
func (t TextValue) IsMarkdown() bool {
	return t.Markdown != ""
}

type textWire struct {
	LiteralString *string `json:"literalString,omitempty"`
	Markdown      *string `json:"markdown,omitempty"`
}

// UnmarshalJSON accepts {"literalString":...}, {"markdown":...} or a bare string.
func (t *TextValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = TextValue{}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Literal)
	}
	var w textWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.LiteralString != nil {
		t.Literal = *w.LiteralString
	}
	if w.Markdown != nil {
		t.Markdown = *w.Markdown
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t TextValue) MarshalJSON() ([]byte, error) {
	if t.Markdown != "" {
		return json.Marshal(textWire{Markdown: &t.Markdown})
	}
	return json.Marshal(textWire{LiteralString: &t.Literal})
}

// Children is an ordered list of child component ids.
type Children struct {
	ExplicitList []string
}

// UnmarshalJSON accepts {"explicitList":[...]} or a bare array.
func (c *Children) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &c.ExplicitList)
	}
	var w struct {
		ExplicitList []string `json:"explicitList"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.ExplicitList = w.ExplicitList
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Children) MarshalJSON() ([]byte, error) {
	list := c.ExplicitList
	if list == nil {
		list = []string{}
	}
	return json.Marshal(struct {
		ExplicitList []string `json:"explicitList"`
	}{list})
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
