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

package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
)

const (
	DefaultWidth = 80
	DefaultStyle = "ascii"
)

// TextOption configures a TextRenderer.
type TextOption func(*TextRenderer)

// WithWidth sets the wrap width.
func WithWidth(width int) TextOption {
	return func(r *TextRenderer) {
		if width > 0 {
			r.width = width
		}
	}
}

// WithStyle sets the glamour standard style used for markdown
// ("ascii", "notty", "dark", "light", ...).
func WithStyle(style string) TextOption {
	return func(r *TextRenderer) {
		if style != "" {
			r.style = style
		}
	}
}

// WithColorOutput renders accents with the terminal's color profile instead
// of plain text.
func WithColorOutput() TextOption {
	return func(r *TextRenderer) {
		r.lip = lipgloss.DefaultRenderer()
	}
}

// TextRenderer renders node trees for a terminal.
type TextRenderer struct {
	width int
	style string
	lip   *lipgloss.Renderer
	md    *glamour.TermRenderer

	userStyle     lipgloss.Style
	errorStyle    lipgloss.Style
	thinkingStyle lipgloss.Style
	boxStyle      lipgloss.Style
	titleStyle    lipgloss.Style
	mutedStyle    lipgloss.Style
}

// NewTextRenderer creates a renderer. Output is deterministic unless
// WithColorOutput is given.
func NewTextRenderer(opts ...TextOption) (*TextRenderer, error) {
	r := &TextRenderer{
		width: DefaultWidth,
		style: DefaultStyle,
		lip:   lipgloss.NewRenderer(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(r.width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	r.md = md

	r.userStyle = r.lip.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	r.errorStyle = r.lip.NewStyle().Foreground(lipgloss.Color("9"))
	r.thinkingStyle = r.lip.NewStyle().Italic(true).Faint(true)
	r.boxStyle = r.lip.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	r.titleStyle = r.lip.NewStyle().Bold(true)
	r.mutedStyle = r.lip.NewStyle().Faint(true)
	return r, nil
}

// Render renders n. The root's children are turns separated by blank lines.
func (r *TextRenderer) Render(n *Node) string {
	if n == nil {
		return ""
	}
	if n.ID == a2ui.RootID {
		turns := make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s := r.turn(child); s != "" {
				turns = append(turns, s)
			}
		}
		return strings.Join(turns, "\n\n")
	}
	return r.node(n)
}

func (r *TextRenderer) turn(n *Node) string {
	body := r.node(n)
	if n.Role == a2ui.RoleUser {
		return r.userStyle.Render("You:") + " " + body
	}
	return body
}

func (r *TextRenderer) node(n *Node) string {
	var out string
	switch n.Kind {
	case KindColumn:
		parts := r.children(n)
		if len(parts) == 0 {
			return ""
		}
		out = lipgloss.JoinVertical(lipgloss.Left, parts...)

	case KindRow:
		parts := r.children(n)
		if len(parts) == 0 {
			return ""
		}
		spaced := make([]string, 0, len(parts)*2)
		for i, p := range parts {
			if i > 0 {
				spaced = append(spaced, "  ")
			}
			spaced = append(spaced, p)
		}
		out = lipgloss.JoinHorizontal(lipgloss.Top, spaced...)

	case KindText:
		out = r.text(n)

	case KindError:
		msg := n.Text
		if n.Error != nil && n.Error.Message != "" {
			msg = n.Error.Message
		}
		out = r.errorStyle.Render("error: " + msg)
		if n.Error != nil && n.Error.Details != "" {
			out += "\n" + r.mutedStyle.Render(n.Error.Details)
		}

	case KindThinking:
		out = r.thinkingStyle.Render("thinking: " + n.Text)

	case KindArtifact:
		out = r.artifact(n)

	case KindForm:
		out = r.form(n)

	case KindCard:
		label := "card"
		if n.Card != nil && n.Card.CardType != "" {
			label = n.Card.CardType
		}
		out = r.mutedStyle.Render("["+label+"]") + " " + n.Text

	default:
		out = r.errorStyle.Render("[" + n.Diagnostic + "]")
		return out
	}

	if n.Diagnostic != "" {
		out += "\n" + r.mutedStyle.Render("["+n.Diagnostic+"]")
	}
	return out
}

func (r *TextRenderer) children(n *Node) []string {
	parts := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		if s := r.node(child); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func (r *TextRenderer) text(n *Node) string {
	if !n.Markdown {
		if n.Hint == a2ui.HintSubtle {
			return r.mutedStyle.Render(n.Text)
		}
		return trimTrailing(r.lip.NewStyle().Width(r.width).Render(n.Text))
	}
	rendered, err := r.md.Render(n.Text)
	if err != nil {
		return n.Text
	}
	return strings.Trim(rendered, "\n")
}

func (r *TextRenderer) artifact(n *Node) string {
	var b strings.Builder
	title := "artifact"
	if n.Artifact != nil {
		if n.Artifact.Title != "" {
			title = n.Artifact.Title
		}
		if n.Artifact.MimeType != "" {
			title += " (" + n.Artifact.MimeType + ")"
		}
	}
	b.WriteString(r.titleStyle.Render(title))
	if n.Artifact != nil && n.Artifact.URI != "" {
		b.WriteString("\n" + r.mutedStyle.Render(n.Artifact.URI))
	}
	if n.Text != "" {
		b.WriteString("\n" + n.Text)
	}
	return r.boxStyle.Render(b.String())
}

func (r *TextRenderer) form(n *Node) string {
	if n.Form == nil {
		return r.titleStyle.Render("form")
	}
	var b strings.Builder
	b.WriteString(r.titleStyle.Render(n.Form.Title))
	if n.Form.Description != "" {
		b.WriteString("\n" + n.Form.Description)
	}
	for _, f := range n.Form.Fields {
		label := f.Label
		if label == "" {
			label = f.ID
		}
		line := fmt.Sprintf("\n- %s [%s]", label, f.Type)
		if f.Required {
			line += " *"
		}
		b.WriteString(line)
	}
	if len(n.Form.Actions) > 0 {
		buttons := make([]string, 0, len(n.Form.Actions))
		for _, a := range n.Form.Actions {
			buttons = append(buttons, "[ "+a.Label+" ]")
		}
		b.WriteString("\n" + strings.Join(buttons, " "))
	}
	return r.boxStyle.Render(b.String())
}

// trimTrailing removes the padding lipgloss adds when wrapping to a width.
func trimTrailing(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
