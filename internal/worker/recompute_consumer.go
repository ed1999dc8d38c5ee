// Package worker runs the background side of derived-stat recomputation:
// administrative edits publish a task, and this consumer re-derives the
// affected users' aggregates from authoritative data.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/messaging"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Recomputer is the slice of the stats service the consumer needs.
type Recomputer interface {
	RecomputeUser(ctx context.Context, userID uuid.UUID) error
}

// RecomputeConsumer reads recompute tasks from RabbitMQ and applies them.
type RecomputeConsumer struct {
	channel      *amqp.Channel
	queueName    string
	stats        Recomputer
	progressRepo interfaces.ProgressRepository
	logger       *zap.Logger
}

// NewRecomputeConsumer открывает канал, объявляет очередь и настраивает QoS.
func NewRecomputeConsumer(conn *amqp.Connection, stats Recomputer, progressRepo interfaces.ProgressRepository, queueName string, logger *zap.Logger) (*RecomputeConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("recompute consumer: failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("recompute consumer: failed to declare queue %s: %w", queueName, err)
	}
	// Обрабатываем по одной задаче за раз: пересчет может трогать много строк.
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("recompute consumer: failed to set QoS: %w", err)
	}
	return &RecomputeConsumer{
		channel:      ch,
		queueName:    queueName,
		stats:        stats,
		progressRepo: progressRepo,
		logger:       logger.Named("RecomputeConsumer"),
	}, nil
}

// StartConsuming blocks reading deliveries until the context is canceled or
// the channel closes. Failed tasks are nacked without requeue: recomputation
// is idempotent and will be triggered again by the next edit, so poisoned
// payloads must not spin the queue.
func (c *RecomputeConsumer) StartConsuming(ctx context.Context) error {
	deliveries, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("recompute consumer: failed to start consuming: %w", err)
	}
	c.logger.Info("Recompute consumer started", zap.String("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Recompute consumer stopping", zap.Error(ctx.Err()))
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("recompute consumer: delivery channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *RecomputeConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var payload messaging.RecomputeTaskPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		c.logger.Error("Failed to unmarshal recompute task", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	logger := c.logger.With(zap.String("taskID", payload.TaskID), zap.String("reason", payload.Reason))

	userIDs := payload.UserIDs
	if payload.StoryID != nil {
		ids, err := c.progressRepo.ListUserIDsByStory(ctx, *payload.StoryID)
		if err != nil {
			logger.Error("Failed to resolve story readers", zap.Stringer("storyID", payload.StoryID), zap.Error(err))
			_ = d.Nack(false, false)
			return
		}
		userIDs = append(userIDs, ids...)
	}

	failed := 0
	for _, userID := range dedupeUUIDs(userIDs) {
		if err := c.stats.RecomputeUser(ctx, userID); err != nil {
			failed++
			logger.Error("Recompute failed for user", zap.Stringer("userID", userID), zap.Error(err))
		}
	}
	if failed > 0 {
		_ = d.Nack(false, false)
		return
	}
	logger.Debug("Recompute task done", zap.Int("users", len(userIDs)))
	_ = d.Ack(false)
}

func dedupeUUIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Close закрывает канал консьюмера.
func (c *RecomputeConsumer) Close() error {
	return c.channel.Close()
}
