package interfaces

import (
	"context"

	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
)

// NotificationRepository queues one-shot reward popups per user. Pop drains
// the queue: a popup is shown once and disappears.
//
//go:generate mockery --name NotificationRepository --output ./mocks --outpkg mocks --case=underscore
type NotificationRepository interface {
	Push(ctx context.Context, userID uuid.UUID, n models.RewardNotification) error
	Pop(ctx context.Context, userID uuid.UUID) ([]models.RewardNotification, error)
}
