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

// Package settings holds the user's preferences as an explicit value and
// persists them in a YAML file that is re-read when it changes on disk.
package settings

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DefaultAgentURL is the agent the relay is pointed at out of the box.
const DefaultAgentURL = "http://localhost:8001"

// Settings are the user's preferences.
type Settings struct {
	// AgentURL is the remote agent the relay forwards messages to.
	AgentURL string `yaml:"agent_url" json:"agent_url"`

	// Voice is the preferred voice name for spoken replies.
	Voice string `yaml:"voice,omitempty" json:"voice,omitempty"`

	// TalkBack enables spoken replies.
	TalkBack bool `yaml:"talk_back" json:"talk_back"`

	// SessionID is the last opened session.
	SessionID string `yaml:"session_id,omitempty" json:"session_id,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{AgentURL: DefaultAgentURL}
}

// SetDefaults fills empty fields.
func (s *Settings) SetDefaults() {
	if s.AgentURL == "" {
		s.AgentURL = DefaultAgentURL
	}
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	u, err := url.Parse(s.AgentURL)
	if err != nil {
		return fmt.Errorf("invalid agent_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("agent_url must be an absolute http(s) URL, got %q", s.AgentURL)
	}
	return nil
}

var setters = map[string]func(*Settings, string) error{
	"agent_url": func(s *Settings, v string) error {
		s.AgentURL = strings.TrimSpace(v)
		return nil
	},
	"voice": func(s *Settings, v string) error {
		s.Voice = v
		return nil
	},
	"talk_back": func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("talk_back must be a boolean: %w", err)
		}
		s.TalkBack = b
		return nil
	},
	"session_id": func(s *Settings, v string) error {
		s.SessionID = v
		return nil
	},
}

// Keys lists the settable keys.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one field by its YAML key.
func (s *Settings) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return set(s, value)
}
