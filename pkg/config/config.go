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

// Package config holds the application configuration and its loading
// pipeline: raw bytes from a provider, YAML or JSON parsing, environment
// expansion, decoding, defaults, then validation.
//
// Every field has a working default, so a missing config file is fine.
//
// Example a2ui.yaml:
//
//	backend:
//	  base_url: ${A2UI_BACKEND:-http://localhost:8000}
//	  history_retries: 3
//	settings:
//	  path: ~/.config/a2ui/settings.yaml
//	logger:
//	  level: info
//	observability:
//	  metrics:
//	    enabled: true
//	preview:
//	  port: 8090
package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/kadirpekel/a2ui/pkg/observability"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "a2ui.yaml"

// Config is the root configuration.
type Config struct {
	Backend       BackendConfig        `yaml:"backend,omitempty" json:"backend,omitempty"`
	Settings      SettingsConfig       `yaml:"settings,omitempty" json:"settings,omitempty"`
	History       HistoryConfig        `yaml:"history,omitempty" json:"history,omitempty"`
	Logger        LoggerConfig         `yaml:"logger,omitempty" json:"logger,omitempty"`
	Observability observability.Config `yaml:"observability,omitempty" json:"observability,omitempty"`
	Preview       PreviewConfig        `yaml:"preview,omitempty" json:"preview,omitempty"`
	Render        RenderConfig         `yaml:"render,omitempty" json:"render,omitempty"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies default values to every section.
func (c *Config) SetDefaults() {
	c.Backend.SetDefaults()
	c.Settings.SetDefaults()
	c.History.SetDefaults()
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()
	c.Preview.SetDefaults()
	c.Render.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	if err := c.Preview.Validate(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// SettingsConfig locates the user settings file.
type SettingsConfig struct {
	// Path of the settings file.
	// Default: <user config dir>/a2ui/settings.yaml (resolved by the settings store)
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// SetDefaults applies default values to SettingsConfig.
func (c *SettingsConfig) SetDefaults() {}

// HistoryConfig optionally points replay at the relay's database instead of
// its HTTP history endpoint.
type HistoryConfig struct {
	// Driver is one of sqlite, postgres, mysql. Empty means HTTP replay.
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty" jsonschema:"title=Driver,description=Database driver for direct history replay,enum=sqlite,enum=sqlite3,enum=postgres,enum=postgresql,enum=mysql"`

	// DSN is the connection string (file path for sqlite).
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty" jsonschema:"title=DSN,description=Database connection string"`

	// Table holding messages.
	// Default: message
	Table string `yaml:"table,omitempty" json:"table,omitempty" jsonschema:"title=Table,description=Message table name,default=message"`
}

// SetDefaults applies default values to HistoryConfig.
func (c *HistoryConfig) SetDefaults() {
	if c.Table == "" {
		c.Table = "message"
	}
}

// Validate checks HistoryConfig.
func (c *HistoryConfig) Validate() error {
	if c.Driver == "" {
		return nil
	}
	switch c.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql", "mysql":
	default:
		return fmt.Errorf("unsupported driver %q (valid: sqlite, postgres, mysql)", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required when driver is set")
	}
	return nil
}

// Enabled reports whether database replay is configured.
func (c *HistoryConfig) Enabled() bool {
	return c.Driver != ""
}

// PreviewConfig configures the local preview server.
type PreviewConfig struct {
	// Host to bind.
	// Default: 127.0.0.1
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,description=Address the preview server binds,default=127.0.0.1"`

	// Port to bind.
	// Default: 8090
	Port int `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"title=Port,description=Port the preview server binds,minimum=1,maximum=65535,default=8090"`

	// CORSOrigins allowed to call the API. Empty allows none.
	CORSOrigins []string `yaml:"cors_origins,omitempty" json:"cors_origins,omitempty" jsonschema:"title=CORS Origins,description=Origins allowed to call the preview API"`
}

// SetDefaults applies default values to PreviewConfig.
func (c *PreviewConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8090
	}
}

// Validate checks PreviewConfig.
func (c *PreviewConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Address returns host:port.
func (c *PreviewConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RenderConfig configures terminal rendering.
type RenderConfig struct {
	// Width to wrap at. Zero uses the terminal width when available.
	Width int `yaml:"width,omitempty" json:"width,omitempty" jsonschema:"title=Width,description=Wrap width; zero uses the terminal width,minimum=0"`

	// Style is the markdown style: ascii, notty, dark, light, dracula, ...
	// Default: ascii
	Style string `yaml:"style,omitempty" json:"style,omitempty" jsonschema:"title=Style,description=Markdown style,default=ascii"`

	// Color enables ANSI colors.
	Color bool `yaml:"color,omitempty" json:"color,omitempty" jsonschema:"title=Color,description=Enable ANSI colors"`
}

// SetDefaults applies default values to RenderConfig.
func (c *RenderConfig) SetDefaults() {
	if c.Style == "" {
		c.Style = "ascii"
	}
}

// Validate checks RenderConfig.
func (c *RenderConfig) Validate() error {
	if c.Width < 0 {
		return fmt.Errorf("width must be non-negative")
	}
	return nil
}
