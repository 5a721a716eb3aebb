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
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/kadirpekel/a2ui/pkg/client"
	"github.com/kadirpekel/a2ui/pkg/config"
	"github.com/kadirpekel/a2ui/pkg/conversation"
	"github.com/kadirpekel/a2ui/pkg/history"
	"github.com/kadirpekel/a2ui/pkg/observability"
	"github.com/kadirpekel/a2ui/pkg/render"
	"github.com/kadirpekel/a2ui/pkg/settings"
)

// app holds everything a command needs, built in dependency order.
type app struct {
	cfg      *config.Config
	loader   *config.Loader
	settings *settings.Store
	client   *client.Client
	obs      *observability.Manager
	history  history.Source

	cli       *CLI
	logOutput io.Writer
	closers   []func()
}

// newApp loads configuration, installs the logger and connects the pieces.
// interactive routes logs away from the terminal.
func (cli *CLI) newApp(ctx context.Context, interactive bool) (_ *app, err error) {
	a := &app{cli: cli}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	config.LoadDotEnvForConfig(cli.Config)
	cfg, loader, err := config.Resolve(ctx, cli.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg
	a.loader = loader
	if loader != nil {
		a.onClose(func() { _ = loader.Close() })
	}

	logOutput, cleanup, err := initLogger(resolveLogSettings(cli, &cfg.Logger, interactive))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logOutput = logOutput
	a.onClose(cleanup)
	if loader != nil {
		slog.Debug("Loaded configuration", "path", first(cli.Config, config.DefaultConfigFile))
	}

	store, err := settings.NewStore(cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	a.settings = store
	a.onClose(func() { _ = store.Close() })
	if _, err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	c, err := client.New(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	a.client = c
	a.history = c

	obs := observability.NewManager(cfg.Observability, observability.WithTraceOutput(logOutput))
	if err := obs.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	a.obs = obs
	a.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Observability shutdown error", "error", err)
		}
	})

	if cfg.History.Enabled() {
		if err := a.useDatabase(ctx, cfg.History); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// loadConfig resolves the config file without building the rest of the app.
func (cli *CLI) loadConfig(ctx context.Context) (*config.Config, error) {
	config.LoadDotEnvForConfig(cli.Config)
	cfg, loader, err := config.Resolve(ctx, cli.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if loader != nil {
		_ = loader.Close()
	}
	return cfg, nil
}

// useDatabase replays history straight from the relay's database.
func (a *app) useDatabase(ctx context.Context, hc config.HistoryConfig) error {
	hc.SetDefaults()
	if err := hc.Validate(); err != nil {
		return fmt.Errorf("invalid history database: %w", err)
	}
	src, err := history.OpenSQLSource(ctx, hc.Driver, hc.DSN, history.WithTable(hc.Table))
	if err != nil {
		return err
	}
	a.history = src
	a.onClose(func() { _ = src.Close() })
	slog.Info("Replaying history from database", "driver", hc.Driver, "table", hc.Table)
	return nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newView builds a conversation view wired to the relay.
func (a *app) newView() *conversation.View {
	return conversation.New(
		conversation.WithStreamer(conversation.FromClient(a.client)),
		conversation.WithHistory(a.history),
		conversation.WithSettings(a.settings),
		conversation.WithRecorder(a.obs.Recorder()),
		conversation.WithTracer(a.obs.Tracer("a2ui/conversation")),
	)
}

// sessionID picks the session: explicit flag, then the last opened one.
func (a *app) sessionID(flag string) string {
	if flag != "" {
		return flag
	}
	return a.settings.Get().SessionID
}

// renderOptions maps the render section to renderer options. Width falls
// back to the terminal width when stdout is a terminal.
func (a *app) renderOptions(withWidth bool) []render.TextOption {
	rc := a.cfg.Render
	opts := []render.TextOption{render.WithStyle(rc.Style)}
	if rc.Color {
		opts = append(opts, render.WithColorOutput())
	}
	if !withWidth {
		return opts
	}

	width := rc.Width
	if width == 0 && term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	if width > 0 {
		opts = append(opts, render.WithWidth(width))
	}
	return opts
}

// printScene renders the view's scene to stdout as text or JSON.
func (a *app) printScene(view *conversation.View, asJSON bool) error {
	node := render.Render(view.Snapshot())
	if asJSON {
		data, err := render.JSON(node)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}

	r, err := render.NewTextRenderer(a.renderOptions(true)...)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, r.Render(node))
	return err
}
