package render

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
)

func column(id string, children ...string) a2ui.Component {
	return a2ui.Component{ID: id, Type: a2ui.TypeColumn, Children: &a2ui.Children{ExplicitList: children}}
}

func text(id, s string) a2ui.Component {
	return a2ui.Component{ID: id, Type: a2ui.TypeText, Text: &a2ui.TextValue{Literal: s}}
}

func TestRender_SkipsMissingChildren(t *testing.T) {
	snap := a2ui.NewSnapshot(
		column(a2ui.RootID, "a", "ghost", "b"),
		text("a", "first"),
		text("b", "second"),
	)

	got := Render(snap)
	want := &Node{
		Kind: KindColumn,
		ID:   a2ui.RootID,
		Children: []*Node{
			{Kind: KindText, ID: "a", Text: "first"},
			{Kind: KindText, ID: "b", Text: "second"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_OnlyGhost(t *testing.T) {
	snap := a2ui.NewSnapshot(column(a2ui.RootID, "ghost"))
	got := Render(snap)
	assert.Empty(t, got.Children)
}

func TestRender_NoRoot(t *testing.T) {
	got := Render(a2ui.NewSnapshot(text("a", "x")))
	assert.Equal(t, KindColumn, got.Kind)
	assert.Empty(t, got.Children)
	assert.Nil(t, RenderFrom(a2ui.NewSnapshot(), "missing"))
}

func TestRender_UnknownType(t *testing.T) {
	snap := a2ui.NewSnapshot(
		column(a2ui.RootID, "w"),
		a2ui.Component{ID: "w", Type: "Carousel"},
	)
	got := Render(snap)
	require.Len(t, got.Children, 1)
	assert.Equal(t, KindUnknown, got.Children[0].Kind)
	assert.Equal(t, `unsupported component type "Carousel"`, got.Children[0].Diagnostic)
}

func TestRender_BreaksCycles(t *testing.T) {
	snap := a2ui.NewSnapshot(
		column(a2ui.RootID, "loop"),
		column("loop", "inner"),
		column("inner", "loop", "leaf"),
		text("leaf", "ok"),
	)
	got := Render(snap)

	var ids []string
	Walk(got, func(n *Node) { ids = append(ids, n.ID) })
	assert.Equal(t, []string{a2ui.RootID, "loop", "inner", "leaf"}, ids)
}

func TestRender_SharedChildRendersTwice(t *testing.T) {
	snap := a2ui.NewSnapshot(
		column(a2ui.RootID, "r1", "r2"),
		column("r1", "shared"),
		column("r2", "shared"),
		text("shared", "x"),
	)
	var count int
	Walk(Render(snap), func(n *Node) {
		if n.ID == "shared" {
			count++
		}
	})
	assert.Equal(t, 2, count)
}

func TestRender_LegacyShapeEquivalence(t *testing.T) {
	decode := func(docs ...string) a2ui.Snapshot {
		comps := make([]a2ui.Component, 0, len(docs))
		for _, d := range docs {
			var c a2ui.Component
			require.NoError(t, json.Unmarshal([]byte(d), &c))
			comps = append(comps, c)
		}
		return a2ui.NewSnapshot(comps...)
	}

	modern := decode(
		`{"id":"root","component":"Column","children":{"explicitList":["t"]}}`,
		`{"id":"t","component":"Text","text":{"markdown":"**hi**"}}`,
	)
	legacy := decode(
		`{"id":"root","component":{"Column":{"children":{"explicitList":["t"]}}}}`,
		`{"id":"t","component":{"Text":{"text":{"markdown":"**hi**"}}}}`,
	)

	if diff := cmp.Diff(Render(modern), Render(legacy)); diff != "" {
		t.Errorf("legacy shape renders differently (-modern +legacy):\n%s", diff)
	}
}

func TestRender_Kinds(t *testing.T) {
	snap := a2ui.NewSnapshot(
		column(a2ui.RootID, "err", "hint", "think", "art", "form", "card"),
		a2ui.Component{ID: "err", Type: a2ui.TypeError, Props: map[string]any{"message": "boom", "code": "E1"}},
		a2ui.Component{ID: "hint", Type: a2ui.TypeText, UsageHint: a2ui.HintError, Text: &a2ui.TextValue{Literal: "agent down"}},
		a2ui.Component{ID: "think", Type: a2ui.TypeThinking, Props: map[string]any{"content": "pondering"}},
		a2ui.Component{ID: "art", Type: a2ui.TypeArtifact, Props: map[string]any{"title": "out.txt", "content": "data"}},
		a2ui.Component{ID: "form", Type: a2ui.TypeFormCard, Props: map[string]any{"content": map[string]any{"title": "Ticket"}}},
		a2ui.AdaptCards([]a2ui.LegacyCard{{Type: "status_card", ID: "card", Content: map[string]any{"status": "resolved"}}})[0],
	)

	got := Render(snap)
	require.Len(t, got.Children, 6)

	kinds := make([]Kind, 0, 6)
	for _, c := range got.Children {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []Kind{KindError, KindError, KindThinking, KindArtifact, KindForm, KindCard}, kinds)

	assert.Equal(t, "boom", got.Children[0].Text)
	assert.Equal(t, "E1", got.Children[0].Error.Code)
	assert.Equal(t, "agent down", got.Children[1].Error.Message)
	assert.Equal(t, "pondering", got.Children[2].Text)
	assert.Equal(t, "data", got.Children[3].Text)
	assert.Equal(t, "Ticket", got.Children[4].Text)
	assert.Equal(t, "resolved", got.Children[5].Text)
}

func TestRender_IsPure(t *testing.T) {
	snap := a2ui.NewSnapshot(column(a2ui.RootID, "a"), text("a", "x"))
	assert.Equal(t, Render(snap), Render(snap))
}

func TestJSON(t *testing.T) {
	data, err := JSON(&Node{Kind: KindText, ID: "a", Text: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"text","id":"a","text":"x"}`, string(data))
}
