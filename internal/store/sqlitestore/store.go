// Package sqlitestore implements the snapshot store on a single SQLite
// file. Version bump, document write, and presence touch commit in one
// transaction; SQLite's write lock with a busy timeout provides the
// bounded-wait mutual exclusion.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/domain/project"
	"github.com/hartwell/gridsync/internal/store"
)

// Store is a SQLite-backed SnapshotStore.
type Store struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store on an open database.
func NewStore(db *DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// Create persists a new project at version 1.
func (s *Store) Create(ctx context.Context, projectID, filename string, doc *document.Document) (*project.Metadata, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	now := s.now().UTC()
	ts := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, filename, created_at, last_modified, version) VALUES (?, ?, ?, ?, 1)`,
		projectID, filename, ts, ts)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (project_id, data) VALUES (?, ?)`,
		projectID, string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapBusy(err)
	}

	s.logger.Info("project created", "project_id", projectID, "filename", filename)
	return &project.Metadata{
		ProjectID:    projectID,
		Filename:     filename,
		CreatedAt:    now,
		LastModified: now,
		Version:      1,
		ActiveUsers:  map[string]time.Time{},
	}, nil
}

// Read returns the full project snapshot.
func (s *Store) Read(ctx context.Context, projectID string) (*project.Project, error) {
	meta, err := s.ReadMetadata(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var data string
	err = s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE project_id = ?`, projectID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: document record missing", store.ErrCorrupt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc document.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: document: %v", store.ErrCorrupt, err)
	}

	return &project.Project{Metadata: meta, Document: &doc}, nil
}

// ReadMetadata returns just the metadata record, presence included.
func (s *Store) ReadMetadata(ctx context.Context, projectID string) (*project.Metadata, error) {
	var (
		meta                    project.Metadata
		createdAt, lastModified string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, created_at, last_modified, version FROM projects WHERE id = ?`,
		projectID).Scan(&meta.ProjectID, &meta.Filename, &createdAt, &lastModified, &meta.Version)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	if meta.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("%w: created_at: %v", store.ErrCorrupt, err)
	}
	if meta.LastModified, err = parseTime(lastModified); err != nil {
		return nil, fmt.Errorf("%w: last_modified: %v", store.ErrCorrupt, err)
	}

	meta.ActiveUsers = map[string]time.Time{}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, last_activity FROM presence WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read presence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, lastActivity string
		if err := rows.Scan(&userID, &lastActivity); err != nil {
			return nil, fmt.Errorf("failed to scan presence: %w", err)
		}
		at, err := parseTime(lastActivity)
		if err != nil {
			return nil, fmt.Errorf("%w: presence: %v", store.ErrCorrupt, err)
		}
		meta.ActiveUsers[userID] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presence rows: %w", err)
	}

	return &meta, nil
}

// Write replaces the document and bumps the version in one transaction.
func (s *Store) Write(ctx context.Context, projectID string, doc *document.Document, touchUser string, expectedVersion int64) (int64, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encoding document: %w", err)
	}
	ts := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapBusy(err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM projects WHERE id = ?`, projectID).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, wrapBusy(err)
	}
	if expectedVersion >= 0 && current != expectedVersion {
		return 0, store.ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET version = version + 1, last_modified = ? WHERE id = ?`,
		ts, projectID); err != nil {
		return 0, wrapBusy(err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ? WHERE project_id = ?`, string(data), projectID); err != nil {
		return 0, wrapBusy(err)
	}

	if touchUser != "" {
		if err := upsertPresence(ctx, tx, projectID, touchUser, ts); err != nil {
			return 0, wrapBusy(err)
		}
	}

	var version int64
	if err := tx.QueryRowContext(ctx,
		`SELECT version FROM projects WHERE id = ?`, projectID).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get new version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapBusy(err)
	}

	s.logger.Debug("project updated", "project_id", projectID, "version", version)
	return version, nil
}

// Touch records userID's last activity as now.
func (s *Store) Touch(ctx context.Context, projectID, userID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&exists)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read project: %w", err)
	}

	ts := s.now().UTC().Format(time.RFC3339Nano)
	if err := upsertPresence(ctx, s.db.DB, projectID, userID, ts); err != nil {
		return wrapBusy(err)
	}
	return nil
}

// List enumerates metadata for all projects. Corrupt entries are skipped.
func (s *Store) List(ctx context.Context) ([]*project.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	var metas []*project.Metadata
	for _, id := range ids {
		meta, err := s.ReadMetadata(ctx, id)
		if err != nil {
			s.logger.Warn("skipping unreadable project", "project_id", id, "error", err)
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertPresence(ctx context.Context, db execer, projectID, userID, ts string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO presence (project_id, user_id, last_activity)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id, user_id) DO UPDATE SET last_activity = excluded.last_activity`,
		projectID, userID, ts)
	if err != nil {
		return fmt.Errorf("failed to record presence: %w", err)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// wrapBusy maps SQLite lock contention onto the retryable lock timeout.
func wrapBusy(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return fmt.Errorf("%w: %v", store.ErrLockTimeout, err)
	}
	return err
}
