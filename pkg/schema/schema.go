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

// Package schema generates JSON Schema documents for the A2UI wire format and
// the a2ui configuration file, and validates envelope documents against them.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
	"github.com/kadirpekel/a2ui/pkg/config"
)

// Target names a schema that can be generated.
type Target string

const (
	TargetEnvelope  Target = "envelope"
	TargetComponent Target = "component"
	TargetConfig    Target = "config"
)

// Targets lists every supported target.
func Targets() []Target {
	return []Target{TargetEnvelope, TargetComponent, TargetConfig}
}

const baseID = "https://a2ui.dev/schemas/"

// ID returns the $id of a target's schema.
func (t Target) ID() string {
	return baseID + string(t) + ".json"
}

// Generate builds the JSON Schema for target.
func Generate(target Target) (*jsonschema.Schema, error) {
	var s *jsonschema.Schema
	switch target {
	case TargetEnvelope:
		s = wireReflector().Reflect(&a2ui.Envelope{})
		s.Title = "A2UI Envelope"
		s.Description = "One streamed UI update or relay control frame"
	case TargetComponent:
		s = componentSchema()
	case TargetConfig:
		s = configReflector().Reflect(&config.Config{})
		s.Title = "a2ui Configuration"
		s.Description = "Configuration file for the a2ui client"
	default:
		return nil, fmt.Errorf("unknown schema target %q (valid: envelope, component, config)", target)
	}

	s.ID = jsonschema.ID(target.ID())
	s.Version = jsonschema.Version
	return s, nil
}

// Marshal renders target's schema as JSON.
func Marshal(target Target, indent bool) ([]byte, error) {
	s, err := Generate(target)
	if err != nil {
		return nil, err
	}
	if indent {
		return json.MarshalIndent(s, "", "  ")
	}
	return json.Marshal(s)
}

// wireReflector reflects protocol types. Unknown properties are allowed since
// producers attach extra fields the client ignores.
func wireReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
		Mapper:                    wireMapper,
	}
}

func configReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: "Go duration such as 30s or 1m30s",
				}
			}
			return nil
		},
	}
}

// wireMapper supplies schemas for types whose JSON shape is custom.
func wireMapper(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(a2ui.Component{}):
		return componentSchema()
	case reflect.TypeOf(a2ui.TextValue{}):
		return textValueSchema()
	case reflect.TypeOf(a2ui.Children{}):
		return childrenSchema()
	}
	return nil
}

func componentSchema() *jsonschema.Schema {
	types := make([]any, 0, 8)
	for _, t := range knownTypes() {
		types = append(types, string(t))
	}

	props := jsonschema.NewProperties()
	props.Set("id", &jsonschema.Schema{Type: "string", Description: "Unique component id; \"root\" revises the root container"})
	props.Set("component", &jsonschema.Schema{
		Description: "Component type name, or a legacy object keyed by type name",
		OneOf: []*jsonschema.Schema{
			{Type: "string", Examples: types},
			{Type: "object", AdditionalProperties: &jsonschema.Schema{
				AnyOf: []*jsonschema.Schema{{Type: "object"}, {Type: "null"}},
			}},
		},
	})
	props.Set("text", textValueSchema())
	props.Set("children", childrenSchema())
	props.Set("usageHint", &jsonschema.Schema{
		Type:     "string",
		Examples: []any{a2ui.HintError, a2ui.HintSubtle, a2ui.HintCode},
	})
	props.Set("metadata", &jsonschema.Schema{
		Type:        "object",
		Description: "Free-form metadata; role is user or agent",
	})

	return &jsonschema.Schema{
		Title:       "A2UI Component",
		Type:        "object",
		Properties:  props,
		Required:    []string{"id", "component"},
		Description: "A scene graph node. Type-specific properties sit beside the reserved keys.",
	}
}

func textValueSchema() *jsonschema.Schema {
	literal := jsonschema.NewProperties()
	literal.Set("literalString", &jsonschema.Schema{Type: "string"})
	markdown := jsonschema.NewProperties()
	markdown.Set("markdown", &jsonschema.Schema{Type: "string"})

	return &jsonschema.Schema{
		Description: "Literal or markdown text",
		AnyOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "object", Properties: literal, Required: []string{"literalString"}},
			{Type: "object", Properties: markdown, Required: []string{"markdown"}},
		},
	}
}

func childrenSchema() *jsonschema.Schema {
	ids := &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
	explicit := jsonschema.NewProperties()
	explicit.Set("explicitList", ids)

	return &jsonschema.Schema{
		Description: "Ordered child ids",
		AnyOf: []*jsonschema.Schema{
			ids,
			{Type: "object", Properties: explicit, Required: []string{"explicitList"}},
		},
	}
}

func knownTypes() []a2ui.Type {
	types := []a2ui.Type{
		a2ui.TypeText, a2ui.TypeRow, a2ui.TypeColumn, a2ui.TypeError,
		a2ui.TypeThinking, a2ui.TypeArtifact, a2ui.TypeFormCard, a2ui.TypeLegacyCard,
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
