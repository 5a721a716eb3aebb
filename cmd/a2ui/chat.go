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

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/a2ui/pkg/client"
	"github.com/kadirpekel/a2ui/pkg/settings"
	"github.com/kadirpekel/a2ui/pkg/tui"
)

// ChatCmd starts the interactive chat view.
type ChatCmd struct {
	Session string `short:"s" help:"Session to open (default: the last opened session)."`
	New     bool   `help:"Start a fresh session."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := cli.newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	id := a.sessionID(c.Session)
	if c.New || id == "" {
		id = uuid.NewString()
	}

	view := a.newView()
	store := a.settings

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Edits to the settings file take effect on the next send.
		if err := store.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("Settings watch stopped", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return tui.Run(gctx, view,
			tui.WithInitialSession(id),
			tui.WithSessionStore(store),
			tui.WithRenderOptions(a.renderOptions(false)...),
			tui.WithAgentProbe(func(ctx context.Context) (*client.AgentInfo, error) {
				return a.client.ProbeAgent(ctx, store.Get().AgentURL)
			}),
		)
	})
	return g.Wait()
}

// SendCmd sends one message and prints the scene once the reply ends.
type SendCmd struct {
	Message string `arg:"" help:"Message text."`
	Session string `short:"s" help:"Session to send in (default: the last opened session, or a new one)."`
	JSON    bool   `help:"Print the render tree as JSON."`
}

func (c *SendCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := cli.newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	id := a.sessionID(c.Session)
	if id == "" {
		id = uuid.NewString()
	}

	view := a.newView()
	if err := view.Open(ctx, id); err != nil {
		slog.Warn("History replay failed", "session_id", id, "error", err)
	}
	if _, err := a.settings.Update(func(s *settings.Settings) { s.SessionID = id }); err != nil {
		slog.Warn("Failed to remember session", "error", err)
	}

	sendErr := view.Send(ctx, c.Message)
	if err := a.printScene(view, c.JSON); err != nil {
		return err
	}
	if sendErr != nil {
		return fmt.Errorf("send failed: %w", sendErr)
	}
	return nil
}

// ReplayCmd prints a session rebuilt from its history.
type ReplayCmd struct {
	Session string `arg:"" optional:"" help:"Session to replay (default: the last opened session)."`
	DB      string `name:"db" help:"Read history from this database DSN instead of the relay API." placeholder:"DSN"`
	Driver  string `help:"Database driver for --db (sqlite, postgres, mysql)." default:"sqlite"`
	Table   string `help:"Message table name." default:"message"`
	JSON    bool   `help:"Print the render tree as JSON."`
}

func (c *ReplayCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := cli.newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.DB != "" {
		hc := a.cfg.History
		hc.Driver, hc.DSN, hc.Table = c.Driver, c.DB, c.Table
		if err := a.useDatabase(ctx, hc); err != nil {
			return err
		}
	}

	id := a.sessionID(c.Session)
	if id == "" {
		return fmt.Errorf("no session given and none remembered in settings")
	}

	view := a.newView()
	if err := view.Open(ctx, id); err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	return a.printScene(view, c.JSON)
}
