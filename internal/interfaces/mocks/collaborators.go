package mocks

import (
	"context"
	"io"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/messaging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock ObjectStorage
type ObjectStorage struct {
	mock.Mock
}

func (m *ObjectStorage) Upload(ctx context.Context, filename string, r io.Reader) (*interfaces.StoredObject, error) {
	args := m.Called(ctx, filename, r)
	obj, _ := args.Get(0).(*interfaces.StoredObject)
	return obj, args.Error(1)
}
func (m *ObjectStorage) Delete(ctx context.Context, storageID string) error {
	args := m.Called(ctx, storageID)
	return args.Error(0)
}

// Mock RecomputePublisher
type RecomputePublisher struct {
	mock.Mock
}

func (m *RecomputePublisher) PublishRecomputeTask(ctx context.Context, payload messaging.RecomputeTaskPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// Mock Recomputer (worker-side stats dependency)
type Recomputer struct {
	mock.Mock
}

func (m *Recomputer) RecomputeUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
