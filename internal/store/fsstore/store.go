// Package fsstore implements the snapshot store on the local filesystem:
// one directory per project holding a metadata record and a document
// record, with a per-project file lock guarding writes.
package fsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/domain/project"
	"github.com/hartwell/gridsync/internal/store"
)

const (
	metadataFile = "metadata.json"
	documentFile = "document.json"
	lockFile     = "update.lock"

	// DefaultLockTimeout bounds the wait for a project's write lock.
	DefaultLockTimeout = 5 * time.Second

	lockRetryDelay = 25 * time.Millisecond
)

// Store is a filesystem-backed SnapshotStore rooted at a single directory.
// Writes to the same project serialize through an in-process mutex plus a
// file lock, so multiple processes sharing the root stay consistent.
// Writes to different projects never block each other.
type Store struct {
	root        string
	lockTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu   sync.Mutex
	sems map[string]chan struct{}
}

// New creates a Store rooted at root, creating the directory if needed.
// A lockTimeout <= 0 selects DefaultLockTimeout.
func New(root string, lockTimeout time.Duration, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating project root: %w", err)
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:        root,
		lockTimeout: lockTimeout,
		logger:      logger,
		now:         time.Now,
		sems:        make(map[string]chan struct{}),
	}, nil
}

// Create persists a new project at version 1.
func (s *Store) Create(ctx context.Context, projectID, filename string, doc *document.Document) (*project.Metadata, error) {
	dir := s.projectDir(projectID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("creating project dir: %w", err)
	}

	now := s.now().UTC()
	meta := &project.Metadata{
		ProjectID:    projectID,
		Filename:     filename,
		CreatedAt:    now,
		LastModified: now,
		Version:      1,
		ActiveUsers:  map[string]time.Time{},
	}

	if err := writeJSON(filepath.Join(dir, documentFile), doc); err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return nil, fmt.Errorf("writing metadata: %w", err)
	}

	s.logger.Info("project created", "project_id", projectID, "filename", filename)
	return meta, nil
}

// Read returns the full project snapshot. Lock-free.
func (s *Store) Read(ctx context.Context, projectID string) (*project.Project, error) {
	meta, err := s.ReadMetadata(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var doc document.Document
	if err := readJSON(filepath.Join(s.projectDir(projectID), documentFile), &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: document record missing", store.ErrCorrupt)
		}
		return nil, err
	}

	return &project.Project{Metadata: meta, Document: &doc}, nil
}

// ReadMetadata returns just the metadata record. Lock-free.
func (s *Store) ReadMetadata(ctx context.Context, projectID string) (*project.Metadata, error) {
	dir := s.projectDir(projectID)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}

	var meta project.Metadata
	if err := readJSON(filepath.Join(dir, metadataFile), &meta); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: metadata record missing", store.ErrCorrupt)
		}
		return nil, err
	}
	if meta.ActiveUsers == nil {
		meta.ActiveUsers = map[string]time.Time{}
	}
	return &meta, nil
}

// Write replaces the document and bumps the version under the project lock.
func (s *Store) Write(ctx context.Context, projectID string, doc *document.Document, touchUser string, expectedVersion int64) (int64, error) {
	release, err := s.acquire(ctx, projectID)
	if err != nil {
		return 0, err
	}
	defer release()

	meta, err := s.ReadMetadata(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if expectedVersion >= 0 && meta.Version != expectedVersion {
		return 0, store.ErrVersionConflict
	}

	now := s.now().UTC()
	meta.Version++
	meta.LastModified = now
	if touchUser != "" {
		meta.ActiveUsers[touchUser] = now
	}

	dir := s.projectDir(projectID)
	// Document first, metadata last: the new version number only becomes
	// visible once the document it describes is in place.
	if err := writeJSON(filepath.Join(dir, documentFile), doc); err != nil {
		return 0, fmt.Errorf("writing document: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return 0, fmt.Errorf("writing metadata: %w", err)
	}

	s.logger.Debug("project updated", "project_id", projectID, "version", meta.Version)
	return meta.Version, nil
}

// Touch records userID's last activity under the project lock.
func (s *Store) Touch(ctx context.Context, projectID, userID string) error {
	release, err := s.acquire(ctx, projectID)
	if err != nil {
		return err
	}
	defer release()

	meta, err := s.ReadMetadata(ctx, projectID)
	if err != nil {
		return err
	}

	meta.ActiveUsers[userID] = s.now().UTC()
	if err := writeJSON(filepath.Join(s.projectDir(projectID), metadataFile), meta); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// List enumerates all readable project metadata records. Corrupt or
// partially written project directories are skipped.
func (s *Store) List(ctx context.Context) ([]*project.Metadata, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading project root: %w", err)
	}

	var metas []*project.Metadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.ReadMetadata(ctx, entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable project", "project_id", entry.Name(), "error", err)
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func (s *Store) projectDir(projectID string) string {
	return filepath.Join(s.root, projectID)
}

// acquire takes the per-project semaphore and file lock with a bounded
// wait. The returned release function undoes both.
func (s *Store) acquire(ctx context.Context, projectID string) (func(), error) {
	sem := s.semaphore(projectID)

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
	case <-timer.C:
		return nil, store.ErrLockTimeout
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", store.ErrLockTimeout, ctx.Err())
	}

	if _, err := os.Stat(s.projectDir(projectID)); errors.Is(err, fs.ErrNotExist) {
		<-sem
		return nil, store.ErrNotFound
	}

	fl := flock.New(filepath.Join(s.projectDir(projectID), lockFile))
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	ok, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !ok {
		<-sem
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", store.ErrLockTimeout, err)
		}
		return nil, store.ErrLockTimeout
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("releasing project lock", "project_id", projectID, "error", err)
		}
		<-sem
	}, nil
}

func (s *Store) semaphore(projectID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.sems[projectID]
	if !ok {
		sem = make(chan struct{}, 1)
		s.sems[projectID] = sem
	}
	return sem
}

// writeJSON writes v to path via a temp file and rename, so readers never
// observe a partial record.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrCorrupt, filepath.Base(path), err)
	}
	return nil
}
