package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *SQLSource {
	t.Helper()
	ctx := context.Background()

	src, err := OpenSQLSource(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	_, err = src.db.ExecContext(ctx, `CREATE TABLE message (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	)`)
	require.NoError(t, err)

	rows := []struct{ session, role, content, ts string }{
		{"s1", "agent", `{"surfaceUpdate":{"components":[{"id":"a1","component":"Text","text":"hi"},{"id":"root","component":"Column","children":["a1"]}]}}`, "2024-05-01 10:00:01"},
		{"s1", "user", "hello", "2024-05-01 10:00:00"},
		{"s2", "user", "other session", "2024-05-01 09:00:00"},
		{"s1", "agent", `[{"type":"text_card","id":"c1","content":{"text":"later"}}]`, "2024-05-01 10:00:01"},
	}
	for _, r := range rows {
		_, err := src.db.ExecContext(ctx,
			"INSERT INTO message (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
			r.session, r.role, r.content, r.ts)
		require.NoError(t, err)
	}
	return src
}

func TestSQLSource_Entries(t *testing.T) {
	src := setupSQLite(t)

	entries, err := src.Entries(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "hello", entries[0].Content)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Equal(t, 2024, entries[0].Timestamp.Year())

	// Equal timestamps keep insertion order.
	assert.Contains(t, entries[1].Content, "surfaceUpdate")
	assert.Contains(t, entries[2].Content, "text_card")

	items := Expand(entries)
	require.Len(t, items, 3)
	assert.True(t, items[0].User)
}

func TestSQLSource_UnknownSession(t *testing.T) {
	src := setupSQLite(t)
	entries, err := src.Entries(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDriverNames(t *testing.T) {
	assert.Equal(t, "sqlite3", DriverName("sqlite"))
	assert.Equal(t, "postgres", DriverName("postgresql"))
	assert.Equal(t, "mysql", DriverName("mysql"))
	assert.Equal(t, "sqlite", Dialect("sqlite3"))
	assert.Equal(t, "postgres", Dialect("postgresql"))
}
