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

package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
)

// Issue is one schema violation.
type Issue struct {
	// Location is the JSON pointer of the offending value.
	Location string
	Message  string
}

func (i Issue) String() string {
	loc := i.Location
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + i.Message
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Target Target
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("invalid %s: %s", e.Target, strings.Join(parts, "; "))
}

// Validator validates documents against compiled schemas. It is safe for
// concurrent use.
type Validator struct {
	mu       sync.Mutex
	compiled map[Target]*jsonschema.Schema
}

// NewValidator returns a validator that compiles schemas on first use.
func NewValidator() *Validator {
	return &Validator{compiled: make(map[Target]*jsonschema.Schema)}
}

var defaultValidator = NewValidator()

// ValidateEnvelope checks data against the envelope schema, then decodes it
// the way the client does.
func ValidateEnvelope(data []byte) (*a2ui.Envelope, error) {
	if err := defaultValidator.Validate(TargetEnvelope, data); err != nil {
		return nil, err
	}
	return a2ui.ParseEnvelope(data)
}

// Validate checks data against target's schema.
func (v *Validator) Validate(target Target, data []byte) error {
	s, err := v.schema(target)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{Target: target, Issues: leaves(ve, nil)}
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func (v *Validator) schema(target Target) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.compiled[target]; ok {
		return s, nil
	}

	raw, err := Marshal(target, false)
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(target.ID(), bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%s schema load failed: %w", target, err)
	}
	s, err := c.Compile(target.ID())
	if err != nil {
		return nil, fmt.Errorf("%s schema compile failed: %w", target, err)
	}
	v.compiled[target] = s
	return s, nil
}

// leaves flattens the cause tree to its most specific errors.
func leaves(ve *jsonschema.ValidationError, out []Issue) []Issue {
	if len(ve.Causes) == 0 {
		return append(out, Issue{Location: ve.InstanceLocation, Message: ve.Message})
	}
	for _, c := range ve.Causes {
		out = leaves(c, out)
	}
	return out
}
