package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hartwell/gridsync/internal/domain/document"
	"github.com/hartwell/gridsync/internal/domain/project"
)

// SnapshotStore is a mock for store.SnapshotStore.
type SnapshotStore struct {
	mock.Mock
}

func (m *SnapshotStore) Create(ctx context.Context, projectID, filename string, doc *document.Document) (*project.Metadata, error) {
	args := m.Called(ctx, projectID, filename, doc)
	if meta, ok := args.Get(0).(*project.Metadata); ok {
		return meta, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SnapshotStore) Read(ctx context.Context, projectID string) (*project.Project, error) {
	args := m.Called(ctx, projectID)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SnapshotStore) ReadMetadata(ctx context.Context, projectID string) (*project.Metadata, error) {
	args := m.Called(ctx, projectID)
	if meta, ok := args.Get(0).(*project.Metadata); ok {
		return meta, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SnapshotStore) Write(ctx context.Context, projectID string, doc *document.Document, touchUser string, expectedVersion int64) (int64, error) {
	args := m.Called(ctx, projectID, doc, touchUser, expectedVersion)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SnapshotStore) Touch(ctx context.Context, projectID, userID string) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

func (m *SnapshotStore) List(ctx context.Context) ([]*project.Metadata, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]*project.Metadata); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
