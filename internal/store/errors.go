package store

import "errors"

var (
	// ErrNotFound is returned when a requested project doesn't exist.
	ErrNotFound = errors.New("project not found")

	// ErrAlreadyExists is returned when a project ID collides on create.
	ErrAlreadyExists = errors.New("project already exists")

	// ErrCorrupt is returned when a persisted record cannot be parsed, or
	// when the metadata and document records are not both present.
	ErrCorrupt = errors.New("corrupt project data")

	// ErrLockTimeout is returned when the per-project write lock cannot be
	// acquired within the configured bound. Retryable.
	ErrLockTimeout = errors.New("timed out waiting for project lock")

	// ErrVersionConflict is returned by a conditional write when the
	// project was modified since the writer last synced.
	ErrVersionConflict = errors.New("version conflict: project was modified by another session")
)
