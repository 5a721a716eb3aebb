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
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ErrorPayload is the typed payload of an Error component.
type ErrorPayload struct {
	Message string `mapstructure:"message" json:"message"`
	Code    string `mapstructure:"code" json:"code,omitempty"`
	Details string `mapstructure:"details" json:"details,omitempty"`
}

// ArtifactPayload is the typed payload of an Artifact component.
type ArtifactPayload struct {
	Title    string `mapstructure:"title" json:"title,omitempty"`
	MimeType string `mapstructure:"mimeType" json:"mimeType,omitempty"`
	URI      string `mapstructure:"uri" json:"uri,omitempty"`
	Content  string `mapstructure:"content" json:"content,omitempty"`
}

// FormOption is a choice of a select/radio/checkbox field.
type FormOption struct {
	Value string `mapstructure:"value" json:"value"`
	Label string `mapstructure:"label" json:"label"`
}

// FormField describes one input of a form card.
type FormField struct {
	ID          string       `mapstructure:"id" json:"id"`
	Type        string       `mapstructure:"type" json:"type"`
	Label       string       `mapstructure:"label" json:"label"`
	Placeholder string       `mapstructure:"placeholder" json:"placeholder,omitempty"`
	Required    bool         `mapstructure:"required" json:"required,omitempty"`
	Options     []FormOption `mapstructure:"options" json:"options,omitempty"`
	Default     any          `mapstructure:"default" json:"default,omitempty"`
}

// FormAction is a button of a form card.
type FormAction struct {
	ID     string `mapstructure:"id" json:"id"`
	Label  string `mapstructure:"label" json:"label"`
	Type   string `mapstructure:"type" json:"type,omitempty"`
	Action string `mapstructure:"action" json:"action,omitempty"`
}

// FormCardPayload is the typed payload of a FormCard component.
type FormCardPayload struct {
	Title       string       `mapstructure:"title" json:"title"`
	Description string       `mapstructure:"description" json:"description,omitempty"`
	Fields      []FormField  `mapstructure:"fields" json:"fields,omitempty"`
	Actions     []FormAction `mapstructure:"actions" json:"actions,omitempty"`
}

// LegacyCardPayload is the payload of a LegacyCard wrapper component.
type LegacyCardPayload struct {
	CardType string         `mapstructure:"cardType" json:"cardType"`
	Content  map[string]any `mapstructure:"content" json:"content,omitempty"`
}

// ErrorPayload decodes the error payload. The message falls back to the text
// value so that `Text` components with an error hint read the same way.
func (c *Component) ErrorPayload() (ErrorPayload, error) {
	var p ErrorPayload
	src := c.Props
	if nested, ok := c.Props["error"].(map[string]any); ok {
		src = nested
	} else if s, ok := c.Props["error"].(string); ok {
		p.Message = s
	}
	if err := decodePayload(src, &p); err != nil {
		return p, fmt.Errorf("component %q error payload: %w", c.ID, err)
	}
	if p.Message == "" && c.Text != nil {
		p.Message = c.Text.String()
	}
	return p, nil
}

// ArtifactPayload decodes the artifact payload.
func (c *Component) ArtifactPayload() (ArtifactPayload, error) {
	var p ArtifactPayload
	if err := decodePayload(c.Props, &p); err != nil {
		return p, fmt.Errorf("component %q artifact payload: %w", c.ID, err)
	}
	if p.Content == "" && c.Text != nil {
		p.Content = c.Text.String()
	}
	return p, nil
}

// FormCardPayload decodes the form payload. Forms generated by the relay nest
// their definition under "content"; flat properties are accepted as well.
func (c *Component) FormCardPayload() (FormCardPayload, error) {
	var p FormCardPayload
	src := c.Props
	if nested, ok := c.Props["content"].(map[string]any); ok {
		src = nested
	}
	if err := decodePayload(src, &p); err != nil {
		return p, fmt.Errorf("component %q form payload: %w", c.ID, err)
	}
	return p, nil
}

// LegacyCardPayload decodes the payload of a wrapped legacy card.
func (c *Component) LegacyCardPayload() (LegacyCardPayload, error) {
	var p LegacyCardPayload
	if err := decodePayload(c.Props, &p); err != nil {
		return p, fmt.Errorf("component %q legacy card payload: %w", c.ID, err)
	}
	return p, nil
}

func decodePayload(input map[string]any, output any) error {
	if len(input) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}
