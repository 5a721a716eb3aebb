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

package a2ui

import (
	"encoding/json"
	"errors"
	"sort"
)

// ErrMixedRoles is returned when an envelope carries both user-authored and
// agent-authored components.
var ErrMixedRoles = errors.New("envelope mixes user and agent components")

// MergeOptions controls how an envelope is folded into the graph.
type MergeOptions struct {
	// User forces the user-turn path when non-nil. When nil the turn kind is
	// inferred from metadata.role of the envelope's components.
	User *bool
}

// MergeResult reports what a merge changed.
type MergeResult struct {
	// Inserted lists the non-root ids written, in envelope order.
	Inserted []string
	// Appended lists ids newly added to the root's children.
	Appended []string
	// User is true when the envelope went through the user-turn path.
	User bool
}

// SceneGraph is the persistent id to component mapping for one conversation.
//
// The graph always holds exactly one root Column. Its children are the
// ordered, deduplicated history of every turn appended so far. Non-root
// components are last-write-wins. A SceneGraph is not safe for concurrent use;
// the owning view serializes access.
type SceneGraph struct {
	components map[string]*Component
	rootSet    map[string]struct{}
}

// NewSceneGraph returns an empty graph with a fresh root.
func NewSceneGraph() *SceneGraph {
	g := &SceneGraph{}
	g.Reset()
	return g
}

// Reset discards every component and recreates an empty root.
func (g *SceneGraph) Reset() {
	g.components = make(map[string]*Component)
	g.rootSet = make(map[string]struct{})
	g.ensureRoot()
}

func (g *SceneGraph) ensureRoot() *Component {
	if root, ok := g.components[RootID]; ok {
		return root
	}
	root := &Component{
		ID:       RootID,
		Type:     TypeColumn,
		Children: &Children{ExplicitList: []string{}},
	}
	g.components[RootID] = root
	return root
}

// Merge folds env into the graph.
//
// Non-root components are inserted or overwritten. A root revision in an
// agent envelope contributes its children to the persistent root; in a user
// envelope the ids of the envelope's own components are appended instead.
// Legacy cards are wrapped and always take the user-turn append path.
// Appends skip ids already present in the root.
func (g *SceneGraph) Merge(env *Envelope, opts MergeOptions) (MergeResult, error) {
	var res MergeResult
	if env == nil {
		return res, nil
	}

	comps := env.Components()
	user, err := resolveTurn(comps, opts)
	if err != nil {
		return res, err
	}
	res.User = user

	g.ensureRoot()

	var rootRev *Component
	for i := range comps {
		c := &comps[i]
		if c.IsRoot() {
			rootRev = c
			continue
		}
		if c.ID == "" {
			continue
		}
		g.components[c.ID] = c.Clone()
		res.Inserted = append(res.Inserted, c.ID)
	}

	if user {
		res.Appended = append(res.Appended, g.appendToRoot(res.Inserted)...)
	} else if rootRev != nil {
		res.Appended = append(res.Appended, g.appendToRoot(rootRev.ChildIDs())...)
	}

	if len(env.Cards) > 0 {
		cardRes, err := g.MergeComponents(AdaptCards(env.Cards), true)
		if err != nil {
			return res, err
		}
		res.Inserted = append(res.Inserted, cardRes.Inserted...)
		res.Appended = append(res.Appended, cardRes.Appended...)
	}

	return res, nil
}

// MergeComponents inserts comps and, when user is set, appends their ids to
// the root. Root revisions among comps are handled as in Merge.
func (g *SceneGraph) MergeComponents(comps []Component, user bool) (MergeResult, error) {
	env := &Envelope{SurfaceUpdate: &SurfaceUpdate{Components: comps}}
	return g.Merge(env, MergeOptions{User: &user})
}

func (g *SceneGraph) appendToRoot(ids []string) []string {
	root := g.ensureRoot()
	var appended []string
	for _, id := range ids {
		if id == "" || id == RootID {
			continue
		}
		if _, seen := g.rootSet[id]; seen {
			continue
		}
		g.rootSet[id] = struct{}{}
		root.Children.ExplicitList = append(root.Children.ExplicitList, id)
		appended = append(appended, id)
	}
	return appended
}

// resolveTurn decides whether comps form a user turn. A forced turn kind
// wins outright. Otherwise the first non-root component decides and any
// disagreement among the rest is an error.
func resolveTurn(comps []Component, opts MergeOptions) (bool, error) {
	if opts.User != nil {
		return *opts.User, nil
	}

	var (
		decided bool
		user    bool
	)
	for i := range comps {
		c := &comps[i]
		if c.IsRoot() {
			continue
		}
		isUser := c.Role() == RoleUser
		if !decided {
			decided, user = true, isUser
			continue
		}
		if isUser != user {
			return false, ErrMixedRoles
		}
	}
	return user, nil
}

// Get returns the component stored under id.
func (g *SceneGraph) Get(id string) (*Component, bool) {
	c, ok := g.components[id]
	return c, ok
}

// Has reports whether id is stored.
func (g *SceneGraph) Has(id string) bool {
	_, ok := g.components[id]
	return ok
}

// Root returns the persistent root.
func (g *SceneGraph) Root() *Component {
	return g.ensureRoot()
}

// RootChildren returns a copy of the root's children ids.
func (g *SceneGraph) RootChildren() []string {
	return append([]string(nil), g.ensureRoot().ChildIDs()...)
}

// Len returns the number of stored components, root included.
func (g *SceneGraph) Len() int {
	return len(g.components)
}

// Snapshot returns a deep copy of the graph for rendering.
func (g *SceneGraph) Snapshot() Snapshot {
	g.ensureRoot()
	out := make(map[string]*Component, len(g.components))
	for id, c := range g.components {
		out[id] = c.Clone()
	}
	return Snapshot{components: out}
}

// Snapshot is an immutable view of a scene graph.
type Snapshot struct {
	components map[string]*Component
}

// NewSnapshot builds a snapshot from raw components. It is mostly useful to
// render hand-built graphs; no merge rules are applied.
func NewSnapshot(comps ...Component) Snapshot {
	out := make(map[string]*Component, len(comps))
	for i := range comps {
		out[comps[i].ID] = comps[i].Clone()
	}
	return Snapshot{components: out}
}

// Get returns the component stored under id. Callers must not mutate it.
func (s Snapshot) Get(id string) (*Component, bool) {
	c, ok := s.components[id]
	return c, ok
}

// Root returns the root component, if any.
func (s Snapshot) Root() (*Component, bool) {
	return s.Get(RootID)
}

// Len returns the number of components.
func (s Snapshot) Len() int {
	return len(s.components)
}

// IDs returns all ids in lexical order.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.components))
	for id := range s.components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON encodes the snapshot as a components list, root first.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	comps := make([]*Component, 0, len(s.components))
	if root, ok := s.components[RootID]; ok {
		comps = append(comps, root)
	}
	for _, id := range s.IDs() {
		if id == RootID {
			continue
		}
		comps = append(comps, s.components[id])
	}
	return json.Marshal(struct {
		Components []*Component `json:"components"`
	}{comps})
}
