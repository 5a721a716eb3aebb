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

package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultTable is the relay's message table.
const DefaultTable = "message"

// SQLSource reads entries straight from the relay's message table:
//
//	message(id, session_id, role, content, timestamp)
//
// It never writes.
type SQLSource struct {
	db      *sql.DB
	dialect string
	table   string
	owned   bool
}

// SQLOption configures an SQLSource.
type SQLOption func(*SQLSource)

// WithTable overrides the table name.
func WithTable(table string) SQLOption {
	return func(s *SQLSource) {
		if table != "" {
			s.table = table
		}
	}
}

// NewSQLSource wraps an open database. driver is the sql.Open driver name.
func NewSQLSource(db *sql.DB, driver string, opts ...SQLOption) *SQLSource {
	s := &SQLSource{db: db, dialect: Dialect(driver), table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenSQLSource opens the database and verifies the connection. The returned
// source owns the connection and closes it on Close.
func OpenSQLSource(ctx context.Context, driver, dsn string, opts ...SQLOption) (*SQLSource, error) {
	driverName := DriverName(driver)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driverName == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := NewSQLSource(db, driverName, opts...)
	s.owned = true
	return s, nil
}

// DriverName normalizes a driver name for sql.Open.
func DriverName(driver string) string {
	switch driver {
	case "sqlite":
		return "sqlite3"
	case "postgresql":
		return "postgres"
	}
	return driver
}

// Dialect normalizes a driver name for query building.
func Dialect(driver string) string {
	switch DriverName(driver) {
	case "sqlite3":
		return "sqlite"
	case "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	}
	return driver
}

// Entries implements Source.
func (s *SQLSource) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	placeholder := "?"
	if s.dialect == "postgres" {
		placeholder = "$1"
	}
	query := fmt.Sprintf(
		"SELECT role, content, timestamp FROM %s WHERE session_id = %s ORDER BY timestamp, id",
		s.table, placeholder)

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			role, content string
			ts            any
		)
		if err := rows.Scan(&role, &content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		stamp, err := scanTimestamp(ts)
		if err != nil {
			slog.Warn("Unreadable history timestamp", "session_id", sessionID, "error", err)
		}
		entries = append(entries, Entry{Role: role, Content: content, Timestamp: stamp})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return entries, nil
}

// Close closes the database if the source opened it.
func (s *SQLSource) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func scanTimestamp(v any) (Timestamp, error) {
	switch t := v.(type) {
	case nil:
		return Timestamp{}, nil
	case time.Time:
		return Timestamp{Time: t.UTC()}, nil
	case []byte:
		return ParseTimestamp(string(t))
	case string:
		return ParseTimestamp(t)
	case int64:
		return fromUnix(float64(t)), nil
	case float64:
		return fromUnix(t), nil
	}
	return Timestamp{}, fmt.Errorf("unsupported timestamp type %T", v)
}
