package collab_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hartwell/gridsync/internal/domain/collab"
	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/domain/presence"
	"github.com/hartwell/gridsync/internal/domain/project"
	"github.com/hartwell/gridsync/internal/store"
	"github.com/hartwell/gridsync/internal/store/mocks"
)

func testDocument() *document.Document {
	return &document.Document{Sheets: []document.Sheet{{
		Name:    "Sheet1",
		Columns: []string{"a", "b"},
		Rows: []document.Row{
			{document.StringValue("x"), document.NumberValue(1)},
		},
	}}}
}

func newService(st *mocks.SnapshotStore, strict bool) *collab.Service {
	tracker := presence.NewTracker(st, presence.DefaultTTL)
	return collab.NewService(st, tracker, strict, nil)
}

func TestCreateProject(t *testing.T) {
	ctx := context.Background()
	doc := testDocument()

	st := &mocks.SnapshotStore{}
	st.On("Create", ctx, mock.AnythingOfType("string"), "data.xlsx", doc).
		Return(&project.Metadata{Version: 1, ActiveUsers: map[string]time.Time{}}, nil)
	st.On("Touch", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return(nil)

	svc := newService(st, false)
	result, err := svc.CreateProject(ctx, collab.CreateRequest{Filename: "data.xlsx", Document: doc})
	require.NoError(t, err)
	require.NotEmpty(t, result.ProjectID)
	require.NotEmpty(t, result.UserID)
	require.Contains(t, result.UserID, "user_")
	require.Equal(t, int64(1), result.Metadata.Version)
	st.AssertExpectations(t)
}

func TestCreateProject_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(&mocks.SnapshotStore{}, false)

	_, err := svc.CreateProject(ctx, collab.CreateRequest{Filename: "data.xlsx"})
	require.ErrorIs(t, err, collab.ErrInvalidInput)

	_, err = svc.CreateProject(ctx, collab.CreateRequest{Document: testDocument()})
	require.Error(t, err)
}

func TestJoinProject(t *testing.T) {
	ctx := context.Background()
	doc := testDocument()
	proj := &project.Project{
		Metadata: &project.Metadata{ProjectID: "p1", Version: 4, ActiveUsers: map[string]time.Time{}},
		Document: doc,
	}

	st := &mocks.SnapshotStore{}
	st.On("Read", ctx, "p1").Return(proj, nil)
	st.On("Touch", ctx, "p1", mock.AnythingOfType("string")).Return(nil)

	svc := newService(st, false)
	result, err := svc.JoinProject(ctx, "p1")
	require.NoError(t, err)
	require.NotEmpty(t, result.UserID)
	require.True(t, doc.Equal(result.Project.Document))

	sess := collab.NewSession(result.UserID, result.Project)
	require.Equal(t, "p1", sess.ProjectID)
	require.Equal(t, int64(4), sess.LastSeenVersion)
}

func TestJoinProject_NotFound(t *testing.T) {
	ctx := context.Background()

	st := &mocks.SnapshotStore{}
	st.On("Read", ctx, "missing").Return(nil, store.ErrNotFound)

	svc := newService(st, false)
	_, err := svc.JoinProject(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmitUpdate_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	doc := testDocument()

	// The baseline policy never consults the submitter's last-seen
	// version: the store receives an unconditional write.
	st := &mocks.SnapshotStore{}
	st.On("Write", ctx, "p1", doc, "user_b", int64(-1)).Return(int64(3), nil)

	svc := newService(st, false)
	version, err := svc.SubmitUpdate(ctx, collab.UpdateRequest{
		ProjectID:       "p1",
		UserID:          "user_b",
		Document:        doc,
		LastSeenVersion: 1,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), version)
	st.AssertExpectations(t)
}

func TestSubmitUpdate_StrictVersioning(t *testing.T) {
	ctx := context.Background()
	doc := testDocument()

	st := &mocks.SnapshotStore{}
	st.On("Write", ctx, "p1", doc, "user_b", int64(1)).Return(int64(0), store.ErrVersionConflict)

	svc := newService(st, true)
	_, err := svc.SubmitUpdate(ctx, collab.UpdateRequest{
		ProjectID:       "p1",
		UserID:          "user_b",
		Document:        doc,
		LastSeenVersion: 1,
	})
	require.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestSubmitUpdate_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(&mocks.SnapshotStore{}, false)

	_, err := svc.SubmitUpdate(ctx, collab.UpdateRequest{ProjectID: "p1", UserID: "u"})
	require.ErrorIs(t, err, collab.ErrInvalidInput)

	_, err = svc.SubmitUpdate(ctx, collab.UpdateRequest{UserID: "u", Document: testDocument()})
	require.Error(t, err)
}

func TestPollSync_NewerVersion(t *testing.T) {
	ctx := context.Background()
	doc := testDocument()

	st := &mocks.SnapshotStore{}
	st.On("ReadMetadata", ctx, "p1").Return(&project.Metadata{Version: 5}, nil)
	st.On("Read", ctx, "p1").Return(&project.Project{
		Metadata: &project.Metadata{ProjectID: "p1", Version: 5},
		Document: doc,
	}, nil)

	svc := newService(st, false)
	result, err := svc.PollSync(ctx, "p1", 3)
	require.NoError(t, err)
	require.True(t, result.Updated)
	require.Equal(t, int64(5), result.Version)
	require.True(t, doc.Equal(result.Document))
}

func TestPollSync_NoNewVersion(t *testing.T) {
	ctx := context.Background()

	st := &mocks.SnapshotStore{}
	st.On("ReadMetadata", ctx, "p1").Return(&project.Metadata{Version: 5}, nil)

	svc := newService(st, false)

	for _, lastSeen := range []int64{5, 6} {
		result, err := svc.PollSync(ctx, "p1", lastSeen)
		require.NoError(t, err)
		require.False(t, result.Updated)
		require.Nil(t, result.Document)
		require.Zero(t, result.Version)
	}
}

func TestSession_ApplySync(t *testing.T) {
	doc := testDocument()
	sess := collab.Session{
		ProjectID:       "p1",
		UserID:          "user_a",
		Document:        doc,
		LastSeenVersion: 2,
	}

	// A stale-free poll leaves the cache untouched.
	require.False(t, sess.ApplySync(&collab.SyncResult{Updated: false}))
	require.Equal(t, int64(2), sess.LastSeenVersion)
	require.True(t, doc.Equal(sess.Document))

	newer := testDocument()
	newer.Sheets[0].Rows[0][0] = document.StringValue("edited")
	require.True(t, sess.ApplySync(&collab.SyncResult{Updated: true, Document: newer, Version: 7}))
	require.Equal(t, int64(7), sess.LastSeenVersion)
	require.True(t, newer.Equal(sess.Document))
}
