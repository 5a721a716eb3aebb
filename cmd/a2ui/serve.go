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
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/a2ui/pkg/config"
	"github.com/kadirpekel/a2ui/pkg/logger"
	"github.com/kadirpekel/a2ui/pkg/render"
	"github.com/kadirpekel/a2ui/pkg/server"
)

// ServeCmd starts the local preview server.
type ServeCmd struct {
	Host    string `help:"Address to bind (default from config: 127.0.0.1)."`
	Port    int    `help:"Port to listen on (default from config: 8090)."`
	Session string `short:"s" help:"Session to open at startup (default: the last opened session)."`
	Watch   bool   `help:"Reload the config file when it changes (applies the logger section)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := cli.newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	preview := a.cfg.Preview
	if c.Host != "" {
		preview.Host = c.Host
	}
	if c.Port != 0 {
		preview.Port = c.Port
	}

	renderer, err := render.NewTextRenderer(a.renderOptions(false)...)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	view := a.newView()
	if id := a.sessionID(c.Session); id != "" {
		if err := view.Open(ctx, id); err != nil {
			slog.Warn("History replay failed", "session_id", id, "error", err)
		}
	}

	srv, err := server.NewHTTPServer(preview, view,
		server.WithObservability(a.obs),
		server.WithRenderer(renderer),
		server.WithSessionStore(a.settings),
	)
	if err != nil {
		return err
	}

	fmt.Printf("\na2ui preview server ready\n")
	fmt.Printf("   Preview:     http://%s\n", srv.Address())
	fmt.Printf("   Scene:       http://%s/api/scene\n", srv.Address())
	fmt.Printf("   Health:      http://%s/health\n", srv.Address())
	if a.obs.MetricsEnabled() {
		fmt.Printf("   Metrics:     http://%s%s\n", srv.Address(), a.obs.MetricsEndpoint())
	}
	fmt.Printf("   Relay:       %s\n", a.client.BaseURL())
	fmt.Printf("   Agent:       %s\n", a.settings.Get().AgentURL)
	fmt.Println("\nPress Ctrl+C to stop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		if err := a.settings.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("Settings watch stopped", "error", err)
		}
		return nil
	})
	if c.Watch && a.loader != nil {
		g.Go(func() error {
			return a.watchConfig(gctx)
		})
	}
	return g.Wait()
}

// watchConfig re-applies the logger section on config changes. Flags and
// env vars still win; other sections need a restart.
func (a *app) watchConfig(ctx context.Context) error {
	a.loader.OnChange(func(cfg *config.Config) {
		ls := resolveLogSettings(a.cli, &cfg.Logger, false)
		logger.Init(logger.ParseLevel(ls.Level), a.logOutput, ls.Format)
		slog.Info("Logger reconfigured", "level", ls.Level, "format", ls.Format)
	})

	if err := a.loader.Watch(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Config watch error", "error", err)
		return err
	}
	return nil
}
