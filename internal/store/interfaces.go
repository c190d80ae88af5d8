// Package store defines the snapshot persistence contract shared by the
// filesystem and SQLite backends.
package store

import (
	"context"

	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/domain/project"
)

// SnapshotStore persists one versioned document snapshot plus metadata per
// project. Implementations provide per-project mutual exclusion around
// Write with a bounded wait; reads are lock-free and may observe a snapshot
// that is at most one in-flight write stale.
type SnapshotStore interface {
	// Create persists a new project at version 1. Returns ErrAlreadyExists
	// if the project ID collides.
	Create(ctx context.Context, projectID, filename string, doc *document.Document) (*project.Metadata, error)

	// Read returns the full project snapshot. Returns ErrNotFound for an
	// unknown ID and ErrCorrupt when the persisted metadata or document
	// cannot be parsed, or when one exists without the other.
	Read(ctx context.Context, projectID string) (*project.Project, error)

	// ReadMetadata returns just the metadata record.
	ReadMetadata(ctx context.Context, projectID string) (*project.Metadata, error)

	// Write replaces the document, increments the version by one, refreshes
	// last_modified, and (when touchUser is non-empty) records the writer's
	// presence, all visible together or not at all. An expectedVersion >= 0
	// makes the write conditional: ErrVersionConflict is returned when the
	// current version differs. Returns the new version, or ErrLockTimeout
	// when the per-project lock cannot be acquired in time.
	Write(ctx context.Context, projectID string, doc *document.Document, touchUser string, expectedVersion int64) (int64, error)

	// Touch records userID's last activity as now in the project metadata.
	Touch(ctx context.Context, projectID, userID string) error

	// List enumerates metadata for all known projects in no particular
	// order. Corrupt entries are skipped, never fatal.
	List(ctx context.Context) ([]*project.Metadata, error)
}
