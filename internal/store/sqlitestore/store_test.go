package sqlitestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/store"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func testDocument(marker string) *document.Document {
	return &document.Document{Sheets: []document.Sheet{{
		Name:    "Sheet1",
		Columns: []string{"item", "count"},
		Rows: []document.Row{
			{document.StringValue(marker), document.NumberValue(42)},
		},
	}}}
}

func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{"projects", "documents", "presence"}
	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

func TestStore_CreateAndRead(t *testing.T) {
	st := NewStore(NewTestDB(t), nil)
	ctx := context.Background()
	doc := testDocument("original")

	meta, err := st.Create(ctx, "p1", "data.xlsx", doc)
	require.NoError(t, err)
	require.Equal(t, int64(1), meta.Version)

	proj, err := st.Read(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(1), proj.Metadata.Version)
	require.Equal(t, "data.xlsx", proj.Metadata.Filename)
	require.True(t, doc.Equal(proj.Document))
}

func TestStore_CreateCollision(t *testing.T) {
	st := NewStore(NewTestDB(t), nil)
	ctx := context.Background()

	_, err := st.Create(ctx, "p1", "a.xlsx", testDocument("a"))
	require.NoError(t, err)

	_, err = st.Create(ctx, "p1", "b.xlsx", testDocument("b"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestStore_ReadUnknownProject(t *testing.T) {
	st := NewStore(NewTestDB(t), nil)

	_, err := st.Read(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_WriteIncrementsVersionAndTouches(t *testing.T) {
	st := NewStore(NewTestDB(t), nil)
	ctx := context.Background()

	_, err := st.Create(ctx, "p1", "data.xlsx", testDocument("v1"))
	require.NoError(t, err)

	version, err := st.Write(ctx, "p1", testDocument("v2"), "user_w", -1)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)

	version, err = st.Write(ctx, "p1", testDocument("v3"), "user_w", -1)
	require.NoError(t, err)
	require.Equal(t, int64(3), version)

	proj, err := st.Read(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(3), proj.Metadata.Version)
	require.Contains(t, proj.Metadata.ActiveUsers, "user_w")
	require.Equal(t, document.StringValue("v3"), proj.Document.Sheets[0].Rows[0][0])
}

func TestStore_WriteUnknownProject(t *testing.T) {
	st := NewStore(NewTestDB(t), nil)

	_, err := st.Write(context.Background(), "missing", testDocument("x"), "", -1)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_WriteConditional(t *testing.T) {
	st := NewStore(NewTestDB(t), nil)
	ctx := context.Background()

	_, err := st.Create(ctx, "p1", "data.xlsx", testDocument("v1"))
	require.NoError(t, err)

	version, err := st.Write(ctx, "p1", testDocument("v2"), "", 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)

	_, err = st.Write(ctx, "p1", testDocument("stale"), "", 1)
	require.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestStore_Touch(t *testing.T) {
	st := NewStore(NewTestDB(t), nil)
	ctx := context.Background()

	_, err := st.Create(ctx, "p1", "data.xlsx", testDocument("base"))
	require.NoError(t, err)

	require.NoError(t, st.Touch(ctx, "p1", "user_a"))
	require.ErrorIs(t, st.Touch(ctx, "missing", "user_a"), store.ErrNotFound)

	meta, err := st.ReadMetadata(ctx, "p1")
	require.NoError(t, err)
	require.Contains(t, meta.ActiveUsers, "user_a")
	require.Equal(t, int64(1), meta.Version)
}

func TestStore_CorruptDocument(t *testing.T) {
	db := NewTestDB(t)
	st := NewStore(db, nil)
	ctx := context.Background()

	_, err := st.Create(ctx, "p1", "data.xlsx", testDocument("base"))
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE documents SET data = '{broken' WHERE project_id = 'p1'`)
	require.NoError(t, err)

	_, err = st.Read(ctx, "p1")
	require.ErrorIs(t, err, store.ErrCorrupt)
}

func TestStore_MissingDocumentIsCorrupt(t *testing.T) {
	db := NewTestDB(t)
	st := NewStore(db, nil)
	ctx := context.Background()

	_, err := st.Create(ctx, "p1", "data.xlsx", testDocument("base"))
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `DELETE FROM documents WHERE project_id = 'p1'`)
	require.NoError(t, err)

	_, err = st.Read(ctx, "p1")
	require.ErrorIs(t, err, store.ErrCorrupt)
}

func TestStore_ListSkipsCorruptEntries(t *testing.T) {
	db := NewTestDB(t)
	st := NewStore(db, nil)
	ctx := context.Background()

	_, err := st.Create(ctx, "good", "good.xlsx", testDocument("ok"))
	require.NoError(t, err)
	_, err = st.Create(ctx, "bad", "bad.xlsx", testDocument("broken"))
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE projects SET created_at = 'not-a-time' WHERE id = 'bad'`)
	require.NoError(t, err)

	metas, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, "good", metas[0].ProjectID)
}
