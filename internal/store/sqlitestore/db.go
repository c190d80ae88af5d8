package sqlitestore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; a single pooled connection keeps
	// transactions from tripping over each other's file locks.
	db.SetMaxOpenConns(1)

	// Enable foreign keys and bound the wait on the write lock
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema.
func (db *DB) RunMigrations() error {
	migration := `
-- Projects table: one row per project, version is the monotonic counter
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    created_at TEXT NOT NULL,
    last_modified TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1
);

-- Document snapshots, one per project, stored as JSON
CREATE TABLE IF NOT EXISTS documents (
    project_id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id)
);

-- Per-user last-activity timestamps
CREATE TABLE IF NOT EXISTS presence (
    project_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    last_activity TEXT NOT NULL,
    PRIMARY KEY (project_id, user_id),
    FOREIGN KEY (project_id) REFERENCES projects(id)
);
CREATE INDEX IF NOT EXISTS idx_presence_project ON presence(project_id);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
