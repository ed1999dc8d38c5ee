package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisNotificationRepository implements NotificationRepository
var _ interfaces.NotificationRepository = (*redisNotificationRepository)(nil)

// Попапы о наградах живут в Redis-списке на пользователя: показываются один
// раз и исчезают. TTL страхует от списков брошенных аккаунтов.
const notificationTTL = 30 * 24 * time.Hour

type redisNotificationRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisNotificationRepository creates a new Redis-backed NotificationRepository.
func NewRedisNotificationRepository(client *redis.Client, logger *zap.Logger) interfaces.NotificationRepository {
	return &redisNotificationRepository{
		client: client,
		logger: logger.Named("RedisNotificationRepo"),
	}
}

func notificationKey(userID uuid.UUID) string {
	return fmt.Sprintf("reward_notifications:%s", userID.String())
}

// Push appends one reward popup to the user's pending list.
func (r *redisNotificationRepository) Push(ctx context.Context, userID uuid.UUID, n models.RewardNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := notificationKey(userID)
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, notificationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to push notification", zap.Stringer("userID", userID), zap.Error(err))
		return err
	}
	r.logger.Debug("Pushed reward notification", zap.Stringer("userID", userID), zap.String("message", n.Message))
	return nil
}

// Pop drains the user's pending popups. Read-and-delete runs in one
// transactional pipeline so a popup cannot be delivered twice.
func (r *redisNotificationRepository) Pop(ctx context.Context, userID uuid.UUID) ([]models.RewardNotification, error) {
	key := notificationKey(userID)

	pipe := r.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to pop notifications", zap.Stringer("userID", userID), zap.Error(err))
		return nil, err
	}

	raw := rangeCmd.Val()
	if len(raw) == 0 {
		return nil, nil
	}

	notifications := make([]models.RewardNotification, 0, len(raw))
	for _, item := range raw {
		var n models.RewardNotification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			// Битую запись пропускаем, остальные доставляем.
			r.logger.Warn("Skipping malformed notification", zap.Stringer("userID", userID), zap.Error(err))
			continue
		}
		notifications = append(notifications, n)
	}
	r.logger.Debug("Popped reward notifications", zap.Stringer("userID", userID), zap.Int("count", len(notifications)))
	return notifications, nil
}
