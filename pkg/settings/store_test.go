package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "settings.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_LoadMissingFileYieldsDefaults(t *testing.T) {
	s := newStore(t)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
	assert.Equal(t, DefaultAgentURL, s.Get().AgentURL)
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := newStore(t)

	want := Settings{AgentURL: "https://agent.example.com", Voice: "alloy", TalkBack: true, SessionID: "s1"}
	require.NoError(t, s.Save(want))
	assert.Equal(t, want, s.Get())

	other, err := NewStore(s.Path())
	require.NoError(t, err)
	got, err := other.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	s := newStore(t)
	err := s.Save(Settings{AgentURL: "not a url"})
	assert.Error(t, err)
	assert.NoFileExists(t, s.Path())
}

func TestStore_LoadInvalidFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("agent_url: [oops"), 0o644))

	_, err := s.Load(context.Background())
	assert.Error(t, err)
}

func TestStore_UpdateNotifiesSubscribers(t *testing.T) {
	s := newStore(t)

	var seen []Settings
	unsubscribe := s.Subscribe(func(v Settings) { seen = append(seen, v) })

	_, err := s.Update(func(v *Settings) { v.TalkBack = true })
	require.NoError(t, err)

	// Same value again is not a change.
	_, err = s.Update(func(v *Settings) { v.TalkBack = true })
	require.NoError(t, err)

	unsubscribe()
	_, err = s.Update(func(v *Settings) { v.Voice = "echo" })
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.True(t, seen[0].TalkBack)
}

func TestStore_WatchPicksUpExternalEdits(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save(Default()))

	changed := make(chan Settings, 4)
	s.Subscribe(func(v Settings) { changed <- v })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(s.Path(), []byte("agent_url: http://other:9000\ntalk_back: true\n"), 0o644))

	select {
	case v := <-changed:
		assert.Equal(t, "http://other:9000", v.AgentURL)
		assert.True(t, v.TalkBack)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for settings reload")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestSettings_Set(t *testing.T) {
	var s Settings
	require.NoError(t, s.Set("agent_url", " http://a:1 "))
	require.NoError(t, s.Set("talk_back", "true"))
	require.NoError(t, s.Set("voice", "nova"))
	assert.Equal(t, Settings{AgentURL: "http://a:1", TalkBack: true, Voice: "nova"}, s)

	assert.Error(t, s.Set("talk_back", "maybe"))
	assert.Error(t, s.Set("theme", "dark"))
	assert.Equal(t, []string{"agent_url", "session_id", "talk_back", "voice"}, Keys())
}
