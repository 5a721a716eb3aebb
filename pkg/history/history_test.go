package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2ui/pkg/a2ui"
)

func TestExpand_UserTurnSynthesis(t *testing.T) {
	ts := time.UnixMilli(1700000000123).UTC()
	entries := []Entry{
		{Role: RoleUser, Content: "hello", Timestamp: Timestamp{Time: ts}},
		{Role: RoleAgent, Content: `{"surfaceUpdate":{"components":[
			{"id":"a1","component":"Text","text":{"literalString":"hi"}},
			{"id":"root","component":"Column","children":{"explicitList":["a1"]}}
		]}}`},
	}

	items := Expand(entries)
	require.Len(t, items, 2)
	assert.True(t, items[0].User)
	assert.False(t, items[1].User)

	g := a2ui.NewSceneGraph()
	for _, it := range items {
		_, err := g.Merge(it.Envelope, it.MergeOptions())
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"user_msg_1700000000123", "a1"}, g.RootChildren())

	c, ok := g.Get("user_msg_1700000000123")
	require.True(t, ok)
	assert.Equal(t, a2ui.RoleUser, c.Role())
	assert.Equal(t, "hello", c.Text.String())
}

func TestExpand_UserTurnsInSameMillisecond(t *testing.T) {
	var first, second Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-01-01T10:00:00.123456"`), &first))
	require.NoError(t, json.Unmarshal([]byte(`"2025-01-01T10:00:00.123789"`), &second))

	items := Expand([]Entry{
		{Role: RoleUser, Content: "first", Timestamp: first},
		{Role: RoleUser, Content: "second", Timestamp: second},
	})
	require.Len(t, items, 2)

	g := a2ui.NewSceneGraph()
	for _, it := range items {
		_, err := g.Merge(it.Envelope, it.MergeOptions())
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"user_msg_1735725600123", "user_msg_1735725600123_1"}, g.RootChildren())

	c, ok := g.Get("user_msg_1735725600123")
	require.True(t, ok)
	assert.Equal(t, "first", c.Text.String())
	c, ok = g.Get("user_msg_1735725600123_1")
	require.True(t, ok)
	assert.Equal(t, "second", c.Text.String())
}

func TestItem_MergeOptions(t *testing.T) {
	opts := Item{User: true}.MergeOptions()
	require.NotNil(t, opts.User)
	assert.True(t, *opts.User)
	assert.Nil(t, Item{}.MergeOptions().User)
}

func TestExpand_AgentEntryInfersTurnLikeLiveFrames(t *testing.T) {
	content := `{"surfaceUpdate":{"components":[
		{"id":"echo","component":"Text","text":"hi","metadata":{"role":"user"}}
	]}}`
	items := Expand([]Entry{{Role: RoleAgent, Content: content}})
	require.Len(t, items, 1)

	replayed := a2ui.NewSceneGraph()
	_, err := replayed.Merge(items[0].Envelope, items[0].MergeOptions())
	require.NoError(t, err)

	live := a2ui.NewSceneGraph()
	env, err := a2ui.ParseEnvelope([]byte(content))
	require.NoError(t, err)
	_, err = live.Merge(env, a2ui.MergeOptions{})
	require.NoError(t, err)

	assert.Equal(t, live.RootChildren(), replayed.RootChildren())
	assert.Equal(t, []string{"echo"}, replayed.RootChildren())
}

func TestExpand_SkipsMalformed(t *testing.T) {
	items := Expand([]Entry{
		{Role: RoleAgent, Content: `{"surfaceUpdate":`},
		{Role: RoleAgent, Content: `plain text`},
		{Role: RoleAgent, Content: `{"cards":[{"type":"text_card","id":"c1","content":{"text":"ok"}}]}`},
	})
	require.Len(t, items, 1)
	assert.Len(t, items[0].Envelope.Cards, 1)
}

func TestExpand_UserWithoutTimestamp(t *testing.T) {
	items := Expand([]Entry{{Role: RoleAgent, Content: "{}"}, {Role: "USER", Content: "x"}})
	require.Len(t, items, 1)
	assert.Equal(t, "user_msg_1", items[0].Envelope.Components()[0].ID)
}

func TestParseAgentContent_Array(t *testing.T) {
	envs, err := ParseAgentContent([]byte(`[
		{"type":"text_card","id":"c1","content":{"text":"one"}},
		{"type":"table_card","id":"c2","content":{"rows":[]}},
		{"surfaceUpdate":{"components":[{"id":"t","component":"Text","text":"x"}]}},
		{"type":"approval_card","id":"c3","content":{}}
	]`))
	require.NoError(t, err)
	require.Len(t, envs, 3)

	assert.Len(t, envs[0].Cards, 2)
	assert.Len(t, envs[1].Components(), 1)
	require.Len(t, envs[2].Cards, 1)
	assert.Equal(t, "c3", envs[2].Cards[0].ID)
}

func TestParseAgentContent_Errors(t *testing.T) {
	for _, doc := range []string{"", "  ", "42", `[1]`, `[{"surfaceUpdate":7}]`} {
		_, err := ParseAgentContent([]byte(doc))
		assert.Error(t, err, doc)
	}

	envs, err := ParseAgentContent([]byte(`{"type":"complete"}`))
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name string
		json string
		want time.Time
	}{
		{"rfc3339", `"2024-05-01T10:00:00Z"`, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"naive_iso", `"2024-05-01T10:00:00.500000"`, time.Date(2024, 5, 1, 10, 0, 0, 500000000, time.UTC)},
		{"sql_space", `"2024-05-01 10:00:00"`, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"unix_seconds", `1714557600`, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"unix_millis", `1714557600000`, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.json), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestEntry_JSON(t *testing.T) {
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"hi","timestamp":null}`), &e))
	assert.True(t, e.Timestamp.IsZero())

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hi","timestamp":null}`, string(data))
}
