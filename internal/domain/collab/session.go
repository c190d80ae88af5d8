package collab

import (
	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/domain/project"
)

// Session is a client-local handle: which project and user a particular
// editor is viewing, its cached document, and the last version it synced.
// The calling layer owns Session values; the service never stores them.
type Session struct {
	ProjectID       string             `json:"project_id"`
	UserID          string             `json:"user_id"`
	Document        *document.Document `json:"document"`
	LastSeenVersion int64              `json:"last_seen_version"`
}

// NewSession initializes a session from a join or create snapshot.
func NewSession(userID string, proj *project.Project) Session {
	return Session{
		ProjectID:       proj.Metadata.ProjectID,
		UserID:          userID,
		Document:        proj.Document,
		LastSeenVersion: proj.Metadata.Version,
	}
}

// ApplyUpdate records a locally submitted document that the server
// accepted at the given version.
func (s *Session) ApplyUpdate(doc *document.Document, version int64) {
	s.Document = doc
	s.LastSeenVersion = version
}

// ApplySync folds a poll result into the session. A stale-free result
// leaves the cache untouched. Reports whether the cache changed.
func (s *Session) ApplySync(res *SyncResult) bool {
	if res == nil || !res.Updated {
		return false
	}
	s.Document = res.Document
	s.LastSeenVersion = res.Version
	return true
}
