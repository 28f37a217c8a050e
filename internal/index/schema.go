// Package index provides SQLite-backed score indexing with optional FTS5
// full-text search.
package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS scores (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	composer   TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	valid      INTEGER NOT NULL DEFAULT 1,
	tracks     INTEGER NOT NULL DEFAULT 0,
	measures   INTEGER NOT NULL DEFAULT 0,
	duration   TEXT NOT NULL DEFAULT '0',
	metadata   TEXT NOT NULL DEFAULT '{}',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS score_references (
	path  TEXT NOT NULL REFERENCES scores(path) ON DELETE CASCADE,
	key   TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS spines (
	path      TEXT NOT NULL REFERENCES scores(path) ON DELETE CASCADE,
	track     INTEGER NOT NULL,
	data_type TEXT NOT NULL,
	notes     INTEGER NOT NULL DEFAULT 0,
	UNIQUE(path, track)
);

CREATE INDEX IF NOT EXISTS idx_refs_path ON score_references(path);
CREATE INDEX IF NOT EXISTS idx_refs_key ON score_references(key);
CREATE INDEX IF NOT EXISTS idx_spines_type ON spines(data_type);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
