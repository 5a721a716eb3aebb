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

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/a2ui/pkg/config"
	"github.com/kadirpekel/a2ui/pkg/schema"
	"github.com/kadirpekel/a2ui/pkg/sse"
)

// SchemaCmd prints a JSON Schema to stdout.
type SchemaCmd struct {
	Target  string `arg:"" optional:"" default:"envelope" enum:"envelope,component,config" help:"Schema to print (envelope, component, config)."`
	Compact bool   `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run() error {
	data, err := schema.Marshal(schema.Target(c.Target), !c.Compact)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

// ValidateCmd validates an envelope document, an SSE capture of a stream,
// or a config file.
type ValidateCmd struct {
	File   string `arg:"" help:"File to validate (- for stdin)."`
	Target string `default:"envelope" enum:"envelope,config" help:"What the file holds (envelope, config)."`
}

func (c *ValidateCmd) Run() error {
	data, err := readInput(c.File)
	if err != nil {
		return err
	}

	switch schema.Target(c.Target) {
	case schema.TargetConfig:
		return validateConfig(os.Stdout, data)
	default:
		return validateEnvelopes(os.Stdout, data)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// validateEnvelopes accepts one JSON document or a captured event stream of
// "data:" frames. Relay control frames in a capture are checked too.
func validateEnvelopes(w io.Writer, data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("data:")) {
		env, err := schema.ValidateEnvelope(trimmed)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "valid envelope (%d components)\n", len(env.Components()))
		return nil
	}

	r := sse.NewReader(bytes.NewReader(data))
	var (
		frames int
		errs   []error
	)
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, sse.ErrFrameTooLarge) {
			frames++
			errs = append(errs, fmt.Errorf("frame %d: %w", frames, err))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read capture: %w", err)
		}
		frames++
		if _, err := schema.ValidateEnvelope(frame); err != nil {
			errs = append(errs, fmt.Errorf("frame %d: %w", frames, err))
		}
	}

	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(w, err)
		}
		return fmt.Errorf("%d of %d frames invalid", len(errs), frames)
	}
	fmt.Fprintf(w, "valid stream (%d frames)\n", frames)
	return nil
}

// validateConfig checks the file against the config schema, then parses it
// the way the loader does so cross-field rules apply too.
func validateConfig(w io.Writer, data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	if err := schema.NewValidator().Validate(schema.TargetConfig, doc); err != nil {
		return err
	}
	if _, err := config.Parse(data); err != nil {
		return err
	}
	fmt.Fprintln(w, "valid configuration")
	return nil
}
