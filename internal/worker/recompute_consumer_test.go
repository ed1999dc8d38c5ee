package worker

import (
	"context"
	"encoding/json"
	"testing"

	"shadowpaths-server/internal/interfaces/mocks"
	"shadowpaths-server/internal/messaging"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConsumer(stats *mocks.Recomputer, progressRepo *mocks.ProgressRepository) *RecomputeConsumer {
	return &RecomputeConsumer{
		queueName:    "recompute_tasks",
		stats:        stats,
		progressRepo: progressRepo,
		logger:       zap.NewNop(),
	}
}

func delivery(t *testing.T, payload messaging.RecomputeTaskPayload) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return amqp.Delivery{Body: body}
}

func TestHandleDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit user list is recomputed with duplicates collapsed", func(t *testing.T) {
		stats := new(mocks.Recomputer)
		progressRepo := new(mocks.ProgressRepository)
		c := newTestConsumer(stats, progressRepo)

		userID := uuid.New()
		stats.On("RecomputeUser", ctx, userID).Return(nil).Once()

		c.handleDelivery(ctx, delivery(t, messaging.RecomputeTaskPayload{
			TaskID:  "t1",
			UserIDs: []uuid.UUID{userID, userID},
			Reason:  "progress_cleared",
		}))

		stats.AssertExpectations(t)
	})

	t.Run("story task fans out to its readers", func(t *testing.T) {
		stats := new(mocks.Recomputer)
		progressRepo := new(mocks.ProgressRepository)
		c := newTestConsumer(stats, progressRepo)

		storyID := uuid.New()
		readers := []uuid.UUID{uuid.New(), uuid.New()}
		progressRepo.On("ListUserIDsByStory", ctx, storyID).Return(readers, nil).Once()
		stats.On("RecomputeUser", ctx, readers[0]).Return(nil).Once()
		stats.On("RecomputeUser", ctx, readers[1]).Return(nil).Once()

		c.handleDelivery(ctx, delivery(t, messaging.RecomputeTaskPayload{
			TaskID:  "t2",
			StoryID: &storyID,
			Reason:  "admin_edit",
		}))

		stats.AssertExpectations(t)
		progressRepo.AssertExpectations(t)
	})

	t.Run("malformed payload recomputes nobody", func(t *testing.T) {
		stats := new(mocks.Recomputer)
		progressRepo := new(mocks.ProgressRepository)
		c := newTestConsumer(stats, progressRepo)

		c.handleDelivery(ctx, amqp.Delivery{Body: []byte("{not json")})

		stats.AssertNotCalled(t, "RecomputeUser", mock.Anything, mock.Anything)
	})
}

func TestDedupeUUIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, []uuid.UUID{a, b}, dedupeUUIDs([]uuid.UUID{a, b, a, b, a}))
	assert.Empty(t, dedupeUUIDs(nil))
}
