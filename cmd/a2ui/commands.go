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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/a2ui/pkg/client"
	"github.com/kadirpekel/a2ui/pkg/settings"
)

// AgentCmd shows the remote agent's card.
type AgentCmd struct {
	URL     string        `arg:"" optional:"" help:"Agent URL (default: agent_url from settings)."`
	JSON    bool          `help:"Print the card summary as JSON."`
	Timeout time.Duration `help:"Probe timeout." default:"10s"`
}

func (c *AgentCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := cli.newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	agentURL := first(c.URL, a.settings.Get().AgentURL)

	probeCtx, probeCancel := context.WithTimeout(ctx, c.Timeout)
	defer probeCancel()
	info, err := a.client.ProbeAgent(probeCtx, agentURL)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	printAgent(os.Stdout, info)
	return nil
}

func printAgent(w io.Writer, info *client.AgentInfo) {
	fmt.Fprintf(w, "\nAgent: %s\n", info.Name)
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "URL:         %s\n", info.URL)
	if info.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", info.Description)
	}
	if info.Version != "" {
		fmt.Fprintf(w, "Version:     %s\n", info.Version)
	}
	fmt.Fprintf(w, "Streaming:   %t\n", info.Streaming)
	if len(info.Skills) > 0 {
		fmt.Fprintln(w, "Skills:")
		for _, s := range info.Skills {
			desc := s.Description
			if desc == "" {
				desc = "(no description)"
			}
			fmt.Fprintf(w, "  - %s: %s\n", first(s.Name, s.ID), desc)
		}
	}
}

// SettingsCmd shows or changes user settings.
type SettingsCmd struct {
	Show SettingsShowCmd `cmd:"" default:"1" help:"Print the current settings."`
	Set  SettingsSetCmd  `cmd:"" help:"Change one setting."`
	Path SettingsPathCmd `cmd:"" help:"Print the settings file path."`
}

// SettingsShowCmd prints the current settings.
type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(cli *CLI) error {
	store, err := cli.openSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	out, err := yaml.Marshal(store.Get())
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

// SettingsSetCmd changes one setting.
type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting key (agent_url, voice, talk_back, session_id)."`
	Value string `arg:"" help:"New value."`
}

func (c *SettingsSetCmd) Run(cli *CLI) error {
	store, err := cli.openSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	current := store.Get()
	if err := current.Set(c.Key, c.Value); err != nil {
		return err
	}
	if err := store.Save(current); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", c.Key, c.Value)
	return nil
}

// SettingsPathCmd prints the settings file path.
type SettingsPathCmd struct{}

func (c *SettingsPathCmd) Run(cli *CLI) error {
	store, err := cli.openSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println(store.Path())
	return nil
}

// openSettings opens the settings store without the rest of the app.
func (cli *CLI) openSettings() (*settings.Store, error) {
	ctx := context.Background()
	cfg, err := cli.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	store, err := settings.NewStore(cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	if _, err := store.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return store, nil
}
