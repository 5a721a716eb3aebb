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

// Package render turns a scene graph snapshot into a tree of renderable
// nodes, and renders that tree as terminal text or JSON.
//
// The walk starts at the root and resolves container children depth-first
// in order. Children that do not resolve are skipped, unknown component types
// produce a diagnostic placeholder, and the result depends only on the
// snapshot.
package render

import (
	"fmt"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
)

// Kind identifies a renderable unit.
type Kind string

const (
	KindColumn   Kind = "column"
	KindRow      Kind = "row"
	KindText     Kind = "text"
	KindError    Kind = "error"
	KindThinking Kind = "thinking"
	KindArtifact Kind = "artifact"
	KindForm     Kind = "form"
	KindCard     Kind = "card"
	KindUnknown  Kind = "unknown"
)

// Node is one renderable unit.
type Node struct {
	Kind     Kind   `json:"kind"`
	ID       string `json:"id"`
	Role     string `json:"role,omitempty"`
	Text     string `json:"text,omitempty"`
	Markdown bool   `json:"markdown,omitempty"`
	Hint     string `json:"hint,omitempty"`

	Error    *a2ui.ErrorPayload      `json:"error,omitempty"`
	Artifact *a2ui.ArtifactPayload   `json:"artifact,omitempty"`
	Form     *a2ui.FormCardPayload   `json:"form,omitempty"`
	Card     *a2ui.LegacyCardPayload `json:"card,omitempty"`

	// Diagnostic explains why a component could not be rendered as its type.
	Diagnostic string `json:"diagnostic,omitempty"`

	Children []*Node `json:"children,omitempty"`
}

// Render walks snap from the root. A snapshot without a root renders as an
// empty column.
func Render(snap a2ui.Snapshot) *Node {
	if node := RenderFrom(snap, a2ui.RootID); node != nil {
		return node
	}
	return &Node{Kind: KindColumn, ID: a2ui.RootID}
}

// RenderFrom walks snap starting at id. It returns nil if id does not resolve.
func RenderFrom(snap a2ui.Snapshot, id string) *Node {
	w := walker{snap: snap, onPath: make(map[string]bool)}
	return w.visit(id)
}

type walker struct {
	snap   a2ui.Snapshot
	onPath map[string]bool
}

func (w *walker) visit(id string) *Node {
	c, ok := w.snap.Get(id)
	if !ok || w.onPath[id] {
		return nil
	}
	w.onPath[id] = true
	defer delete(w.onPath, id)

	node := &Node{ID: c.ID, Role: c.Role(), Hint: c.UsageHint}

	switch c.Type {
	case a2ui.TypeColumn, a2ui.TypeRow:
		node.Kind = KindColumn
		if c.Type == a2ui.TypeRow {
			node.Kind = KindRow
		}
		for _, child := range c.ChildIDs() {
			if n := w.visit(child); n != nil {
				node.Children = append(node.Children, n)
			}
		}

	case a2ui.TypeText:
		setText(node, c)
		node.Kind = KindText
		if c.UsageHint == a2ui.HintError {
			node.Kind = KindError
			if p, err := c.ErrorPayload(); err == nil {
				node.Error = &p
			}
		}

	case a2ui.TypeError:
		node.Kind = KindError
		setText(node, c)
		p, err := c.ErrorPayload()
		if err != nil {
			node.Diagnostic = err.Error()
		} else {
			node.Error = &p
			if node.Text == "" {
				node.Text = p.Message
			}
		}

	case a2ui.TypeThinking:
		node.Kind = KindThinking
		setText(node, c)
		if node.Text == "" {
			if s, ok := c.Props["content"].(string); ok {
				node.Text = s
			}
		}

	case a2ui.TypeArtifact:
		node.Kind = KindArtifact
		p, err := c.ArtifactPayload()
		if err != nil {
			node.Diagnostic = err.Error()
		} else {
			node.Artifact = &p
			node.Text = p.Content
		}

	case a2ui.TypeFormCard:
		node.Kind = KindForm
		p, err := c.FormCardPayload()
		if err != nil {
			node.Diagnostic = err.Error()
		} else {
			node.Form = &p
			node.Text = p.Title
		}

	case a2ui.TypeLegacyCard:
		node.Kind = KindCard
		p, err := c.LegacyCardPayload()
		if err != nil {
			node.Diagnostic = err.Error()
		} else {
			node.Card = &p
			node.Text = legacyCardText(p)
		}

	default:
		node.Kind = KindUnknown
		node.Diagnostic = fmt.Sprintf("unsupported component type %q", string(c.Type))
	}

	return node
}

func setText(node *Node, c *a2ui.Component) {
	if c.Text == nil {
		return
	}
	node.Text = c.Text.String()
	node.Markdown = c.Text.IsMarkdown()
}

// legacyCardText picks the most descriptive string a legacy card carries.
func legacyCardText(p a2ui.LegacyCardPayload) string {
	for _, key := range []string{"text", "message", "title", "status", "summary"} {
		if s, ok := p.Content[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Walk calls fn for every node in depth-first order.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		Walk(child, fn)
	}
}
