// Package collab orchestrates shared-project editing: creating and joining
// projects, arbitrating concurrent updates, and pull-based staleness
// detection. The service holds no per-client state; each client owns a
// Session value and passes what the service needs on every call.
package collab

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/domain/presence"
	"github.com/hartwell/gridsync/internal/domain/project"
	"github.com/hartwell/gridsync/internal/store"
)

// Service is the component client sessions call into.
type Service struct {
	store    store.SnapshotStore
	presence *presence.Tracker
	logger   *slog.Logger

	// strictVersioning makes SubmitUpdate a compare-and-swap on the
	// submitter's last-seen version. Off by default: the baseline policy
	// is last-writer-wins at whole-document granularity.
	strictVersioning bool
}

// NewService creates a new collaboration service.
func NewService(st store.SnapshotStore, tracker *presence.Tracker, strictVersioning bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:            st,
		presence:         tracker,
		logger:           logger,
		strictVersioning: strictVersioning,
	}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Filename string
	Document *document.Document
}

// Validate checks creation inputs.
func (r CreateRequest) Validate() error {
	if r.Document == nil {
		return fmt.Errorf("%w: document is required", ErrInvalidInput)
	}
	if err := r.Document.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Filename, validation.Required, validation.Length(1, 255)),
	)
}

// CreateResult holds the identifiers minted for a new project.
type CreateResult struct {
	ProjectID string
	UserID    string
	Metadata  *project.Metadata
}

// CreateProject persists a new project at version 1, mints a project ID and
// a user ID for the creating session, and registers the creator as present.
// Every call creates a distinct project.
func (s *Service) CreateProject(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	projectID := newProjectID()
	userID := NewUserID()

	meta, err := s.store.Create(ctx, projectID, req.Filename, req.Document)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	if err := s.presence.Touch(ctx, projectID, userID); err != nil {
		return nil, err
	}

	s.logger.Info("project created", "project_id", projectID, "user_id", userID)
	return &CreateResult{ProjectID: projectID, UserID: userID, Metadata: meta}, nil
}

// JoinResult holds what a joining session needs to initialize its cache.
type JoinResult struct {
	UserID  string
	Project *project.Project
}

// JoinProject mints a fresh user ID, records the joiner's presence, and
// returns the current full snapshot.
func (s *Service) JoinProject(ctx context.Context, projectID string) (*JoinResult, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, ErrInvalidInput
	}

	proj, err := s.store.Read(ctx, projectID)
	if err != nil {
		return nil, err
	}

	userID := NewUserID()
	if err := s.presence.Touch(ctx, projectID, userID); err != nil {
		return nil, err
	}

	s.logger.Info("user joined project", "project_id", projectID, "user_id", userID)
	return &JoinResult{UserID: userID, Project: proj}, nil
}

// UpdateRequest defines the inputs for submitting an edit.
type UpdateRequest struct {
	ProjectID string
	UserID    string
	Document  *document.Document

	// LastSeenVersion is the version the submitting session last synced.
	// Consulted only in strict-versioning mode; the baseline policy
	// overwrites unconditionally.
	LastSeenVersion int64
}

// Validate checks update inputs.
func (r UpdateRequest) Validate() error {
	if r.Document == nil {
		return fmt.Errorf("%w: document is required", ErrInvalidInput)
	}
	if err := r.Document.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProjectID, validation.Required),
		validation.Field(&r.UserID, validation.Required),
	)
}

// SubmitUpdate writes the new document under the per-project lock, bumping
// the version and refreshing the submitter's presence in the same write.
// A failed update is never reported as success; callers retry or surface
// the error.
func (s *Service) SubmitUpdate(ctx context.Context, req UpdateRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	expected := int64(-1)
	if s.strictVersioning {
		expected = req.LastSeenVersion
	}

	version, err := s.store.Write(ctx, req.ProjectID, req.Document, req.UserID, expected)
	if err != nil {
		return 0, err
	}

	s.logger.Debug("update accepted",
		"project_id", req.ProjectID, "user_id", req.UserID, "version", version)
	return version, nil
}

// SyncResult is the outcome of a poll. When Updated is false the document
// and version carry no payload and the caller's cache stays untouched.
type SyncResult struct {
	Updated  bool               `json:"updated"`
	Document *document.Document `json:"document,omitempty"`
	Version  int64              `json:"version,omitempty"`
}

// PollSync reports whether the project has advanced past lastSeenVersion
// and, if so, returns the current document and version. Read-only, no
// locking; safe to call at any time.
func (s *Service) PollSync(ctx context.Context, projectID string, lastSeenVersion int64) (*SyncResult, error) {
	meta, err := s.store.ReadMetadata(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if meta.Version <= lastSeenVersion {
		return &SyncResult{Updated: false}, nil
	}

	proj, err := s.store.Read(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &SyncResult{
		Updated:  true,
		Document: proj.Document,
		Version:  proj.Metadata.Version,
	}, nil
}

// ActiveUsers returns the users active on the project within the TTL.
func (s *Service) ActiveUsers(ctx context.Context, projectID string) ([]presence.ActiveUser, error) {
	return s.presence.ActiveUsers(ctx, projectID)
}

// newProjectID mints a short opaque project identifier.
func newProjectID() string {
	return uuid.NewString()[:8]
}

// NewUserID mints an opaque, unauthenticated user identifier.
func NewUserID() string {
	return "user_" + uuid.NewString()[:8]
}
