// Package registry enumerates known projects for discovery and listing.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hartwell/gridsync/internal/domain/presence"
	"github.com/hartwell/gridsync/internal/domain/project"
	"github.com/hartwell/gridsync/internal/store"
)

// Service lists projects with summary metadata.
type Service struct {
	store    store.SnapshotStore
	presence *presence.Tracker
	logger   *slog.Logger
}

// NewService creates a new registry service.
func NewService(st store.SnapshotStore, tracker *presence.Tracker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, presence: tracker, logger: logger}
}

// List returns project summaries sorted by last-modified time, most recent
// first. ActiveUserCount is computed at call time, so it is always current.
// A limit <= 0 means unbounded. Unreadable projects are skipped by the
// store and never surface here.
func (s *Service) List(ctx context.Context, limit int) ([]project.Summary, error) {
	metas, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	summaries := make([]project.Summary, 0, len(metas))
	for _, meta := range metas {
		active, err := s.presence.ActiveUsers(ctx, meta.ProjectID)
		if err != nil {
			s.logger.Warn("skipping project with unreadable presence",
				"project_id", meta.ProjectID, "error", err)
			continue
		}
		summaries = append(summaries, project.Summary{
			ProjectID:       meta.ProjectID,
			Filename:        meta.Filename,
			CreatedAt:       meta.CreatedAt,
			LastModified:    meta.LastModified,
			Version:         meta.Version,
			ActiveUserCount: len(active),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastModified.After(summaries[j].LastModified)
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}
