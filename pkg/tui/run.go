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

package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kadirpekel/a2ui/pkg/conversation"
)

// changeBuffer bounds queued change notifications. When it is full further
// notifications are dropped; the next one delivered re-renders the latest
// snapshot anyway.
const changeBuffer = 64

// Run starts the full-screen chat view and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, view *conversation.View, opts ...Option) error {
	changes := make(chan conversation.Change, changeBuffer)
	unsubscribe := view.OnChange(func(c conversation.Change) {
		select {
		case changes <- c:
		default:
		}
	})
	defer unsubscribe()

	m, err := NewModel(ctx, view, changes, opts...)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
