// Package presence tracks which users are currently active on a project.
// Activity timestamps persist as part of project metadata; expiry is lazy,
// entries are only filtered out of the active set once older than the TTL.
package presence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hartwell/gridsync/internal/store"
)

// DefaultTTL is the trailing window within which a user counts as active.
const DefaultTTL = 5 * time.Minute

// ActiveUser is one entry in the active set.
type ActiveUser struct {
	UserID       string    `json:"user_id"`
	LastActivity time.Time `json:"last_activity"`
}

// Tracker computes the active-user set from persisted activity timestamps.
type Tracker struct {
	store store.SnapshotStore
	ttl   time.Duration
	now   func() time.Time
}

// NewTracker creates a Tracker. A ttl <= 0 selects DefaultTTL.
func NewTracker(st store.SnapshotStore, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{store: st, ttl: ttl, now: time.Now}
}

// Touch records userID's last activity on the project as now.
func (t *Tracker) Touch(ctx context.Context, projectID, userID string) error {
	if err := t.store.Touch(ctx, projectID, userID); err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	return nil
}

// ActiveUsers returns users whose age (now - last activity) is strictly
// less than the TTL, sorted by user ID. Stale entries are left in place.
func (t *Tracker) ActiveUsers(ctx context.Context, projectID string) ([]ActiveUser, error) {
	meta, err := t.store.ReadMetadata(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	var active []ActiveUser
	for userID, lastActivity := range meta.ActiveUsers {
		if now.Sub(lastActivity) < t.ttl {
			active = append(active, ActiveUser{UserID: userID, LastActivity: lastActivity})
		}
	}

	sort.Slice(active, func(i, j int) bool { return active[i].UserID < active[j].UserID })
	return active, nil
}
