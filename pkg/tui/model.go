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

// Package tui is the interactive terminal chat view.
//
// The model never touches the scene graph directly. Sends and session
// switches run in commands against a conversation.View, and every change the
// view reports is delivered back to the model as a message that triggers a
// re-render of the latest snapshot.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/kadirpekel/a2ui/pkg/client"
	"github.com/kadirpekel/a2ui/pkg/conversation"
	"github.com/kadirpekel/a2ui/pkg/render"
	"github.com/kadirpekel/a2ui/pkg/settings"
)

const (
	headerHeight = 1
	footerHeight = 1
	inputHeight  = 1
	gapHeight    = 2
)

// SessionStore persists the last opened session.
type SessionStore interface {
	Update(fn func(*settings.Settings)) (settings.Settings, error)
}

// AgentProbe fetches the remote agent's card.
type AgentProbe func(ctx context.Context) (*client.AgentInfo, error)

// Option configures a Model.
type Option func(*Model)

// WithAgentProbe sets how the header learns the agent's name.
func WithAgentProbe(p AgentProbe) Option {
	return func(m *Model) { m.probe = p }
}

// WithSessionStore makes session switches persist the session id.
func WithSessionStore(s SessionStore) Option {
	return func(m *Model) { m.sessions = s }
}

// WithInitialSession opens id when the program starts.
func WithInitialSession(id string) Option {
	return func(m *Model) { m.initial = id }
}

// WithRenderOptions sets the text renderer options. Width is managed by the
// model.
func WithRenderOptions(opts ...render.TextOption) Option {
	return func(m *Model) { m.renderOpts = opts }
}

// WithSessionIDFunc overrides how /new names sessions.
func WithSessionIDFunc(fn func() string) Option {
	return func(m *Model) { m.newSessionID = fn }
}

// Messages.
type (
	changeMsg conversation.Change

	sendDoneMsg struct{ err error }

	openDoneMsg struct {
		id  string
		err error
	}

	agentInfoMsg struct {
		info *client.AgentInfo
		err  error
	}
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the bubbletea model of the chat view.
type Model struct {
	ctx          context.Context
	view         *conversation.View
	changes      <-chan conversation.Change
	probe        AgentProbe
	sessions     SessionStore
	initial      string
	newSessionID func() string

	renderOpts []render.TextOption
	renderer   *render.TextRenderer

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	agentName string
	sending   bool
	status    string
	err       error
}

// NewModel creates a model over view. changes delivers the view's change
// notifications; see Run for the usual wiring.
func NewModel(ctx context.Context, view *conversation.View, changes <-chan conversation.Change, opts ...Option) (Model, error) {
	ti := textinput.New()
	ti.Placeholder = "Message, or /session <id>, /new, /clear, /quit"
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:          ctx,
		view:         view,
		changes:      changes,
		newSessionID: uuid.NewString,
		input:        ti,
		spinner:      sp,
		viewport:     viewport.New(80, 20),
	}
	for _, opt := range opts {
		opt(&m)
	}

	r, err := render.NewTextRenderer(m.renderOpts...)
	if err != nil {
		return Model{}, fmt.Errorf("failed to create renderer: %w", err)
	}
	m.renderer = r
	m.refresh()
	return m, nil
}

// Init starts the spinner, the change listener, the agent probe and the
// initial session load.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, m.waitForChange()}
	if m.probe != nil {
		cmds = append(cmds, m.probeAgent())
	}
	if m.initial != "" {
		cmds = append(cmds, m.open(m.initial))
	}
	return tea.Batch(cmds...)
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if text == "" {
				return m, nil
			}
			return m.submit(text)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case changeMsg:
		if msg.Kind == conversation.ChangeStreamEnded && msg.Err != nil &&
			!errors.Is(msg.Err, conversation.ErrSuperseded) {
			m.err = msg.Err
		}
		m.refresh()
		return m, m.waitForChange()

	case sendDoneMsg:
		m.sending = false
		switch {
		case msg.err == nil, errors.Is(msg.err, conversation.ErrSuperseded):
		default:
			m.err = msg.err
		}
		m.refresh()
		return m, nil

	case openDoneMsg:
		switch {
		case msg.err == nil:
			m.err = nil
			m.status = "session " + msg.id
		case errors.Is(msg.err, conversation.ErrSuperseded):
		default:
			m.err = msg.err
		}
		m.refresh()
		return m, nil

	case agentInfoMsg:
		if msg.err != nil {
			m.status = "agent card unavailable"
			return m, nil
		}
		m.agentName = msg.info.Name
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs a slash command or sends text.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if !strings.HasPrefix(text, "/") {
		m.err = nil
		m.sending = true
		return m, m.send(text)
	}

	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/clear":
		m.view.Reset()
		m.err = nil
		m.refresh()
		return m, nil
	case "/new":
		return m, m.open(m.newSessionID())
	case "/session":
		if len(fields) < 2 {
			m.status = "current session: " + orNone(m.view.SessionID())
			return m, nil
		}
		return m, m.open(fields[1])
	default:
		m.status = fmt.Sprintf("unknown command %s", fields[0])
		return m, nil
	}
}

func (m Model) send(text string) tea.Cmd {
	view, ctx := m.view, m.ctx
	return func() tea.Msg {
		return sendDoneMsg{err: view.Send(ctx, text)}
	}
}

func (m Model) open(id string) tea.Cmd {
	view, ctx, sessions := m.view, m.ctx, m.sessions
	return func() tea.Msg {
		err := view.Open(ctx, id)
		if err == nil && sessions != nil {
			// The session is usable even if it could not be remembered.
			_, _ = sessions.Update(func(s *settings.Settings) { s.SessionID = id })
		}
		return openDoneMsg{id: id, err: err}
	}
}

func (m Model) probeAgent() tea.Cmd {
	probe, ctx := m.probe, m.ctx
	return func() tea.Msg {
		info, err := probe(ctx)
		return agentInfoMsg{info: info, err: err}
	}
}

func (m Model) waitForChange() tea.Cmd {
	ch := m.changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

func (m *Model) resize(width, height int) {
	if width < 1 || height < 1 {
		return
	}
	m.width, m.height = width, height

	body := height - headerHeight - footerHeight - inputHeight - gapHeight
	if body < 1 {
		body = 1
	}
	m.viewport.Width = width
	m.viewport.Height = body
	m.input.Width = width - 4

	opts := append(append([]render.TextOption(nil), m.renderOpts...), render.WithWidth(width))
	if r, err := render.NewTextRenderer(opts...); err == nil {
		m.renderer = r
	}
	m.ready = true
	m.refresh()
}

// refresh re-renders the latest snapshot into the viewport.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderer.Render(render.Render(m.view.Snapshot())))
	m.viewport.GotoBottom()
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) header() string {
	agent := m.agentName
	if agent == "" {
		agent = "agent"
	}
	return headerStyle.Render("a2ui") + mutedStyle.Render(fmt.Sprintf(" · %s · session %s", agent, orNone(m.view.SessionID())))
}

func (m Model) footer() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("error: " + m.err.Error())
	case m.sending || m.view.Streaming():
		return m.spinner.View() + mutedStyle.Render(" waiting for agent")
	default:
		return mutedStyle.Render(m.status)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
