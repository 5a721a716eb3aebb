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

// Command a2ui is a terminal client for A2UI agents behind an A2A relay.
//
// Usage:
//
//	a2ui chat --session demo
//	a2ui send "what's the weather?" --session demo
//	a2ui replay demo --db relay.db --driver sqlite
//	a2ui serve --port 8090
//	a2ui settings set agent_url http://localhost:8001
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/a2ui/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Chat     ChatCmd     `cmd:"" default:"withargs" help:"Start the interactive chat view."`
	Send     SendCmd     `cmd:"" help:"Send one message and print the resulting scene."`
	Replay   ReplayCmd   `cmd:"" help:"Replay a session's history and print the scene."`
	Serve    ServeCmd    `cmd:"" help:"Start the local preview server."`
	Agent    AgentCmd    `cmd:"" help:"Show the remote agent's card."`
	Settings SettingsCmd `cmd:"" help:"Show or change user settings."`
	Schema   SchemaCmd   `cmd:"" help:"Print a JSON Schema."`
	Validate ValidateCmd `cmd:"" help:"Validate an envelope, stream capture or config file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file (default: ./a2ui.yaml when present)." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr; chat defaults to a2ui.log)."`
	LogFormat string `help:"Log format (simple, verbose, json)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("a2ui version %s\n", version())
	return nil
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
	}
	return "dev"
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			slog.Info("Shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func main() {
	config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("a2ui"),
		kong.Description("A2UI chat client - render agent UI streams in the terminal"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
