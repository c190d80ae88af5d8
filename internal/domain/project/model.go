package project

import (
	"time"

	"github.com/hartwell/gridsync/internal/domain/document"
)

// Metadata describes a project snapshot: identity, provenance, the
// monotonic version counter, and per-user last-activity timestamps.
type Metadata struct {
	ProjectID    string               `json:"project_id"`
	Filename     string               `json:"filename"`
	CreatedAt    time.Time            `json:"created_at"`
	LastModified time.Time            `json:"last_modified"`
	Version      int64                `json:"version"`
	ActiveUsers  map[string]time.Time `json:"active_users"`
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	cp := *m
	cp.ActiveUsers = make(map[string]time.Time, len(m.ActiveUsers))
	for user, at := range m.ActiveUsers {
		cp.ActiveUsers[user] = at
	}
	return &cp
}

// Project is a persisted, versioned, shareable document plus metadata.
type Project struct {
	Metadata *Metadata          `json:"metadata"`
	Document *document.Document `json:"document"`
}

// Summary is a lightweight representation for listing.
type Summary struct {
	ProjectID       string    `json:"project_id"`
	Filename        string    `json:"filename"`
	CreatedAt       time.Time `json:"created_at"`
	LastModified    time.Time `json:"last_modified"`
	Version         int64     `json:"version"`
	ActiveUserCount int       `json:"active_user_count"`
}
