package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// rabbitMQPublisher публикует задачи пересчета в очередь RabbitMQ.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewRabbitMQRecomputePublisher открывает канал и объявляет очередь.
// Паблишер создает очередь, если она не существует, поэтому порядок запуска
// паблишера и консьюмера не важен. Параметры очереди должны совпадать
// с консьюмером.
func NewRabbitMQRecomputePublisher(conn *amqp.Connection, queueName string) (*rabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("recompute publisher: failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return nil, fmt.Errorf("recompute publisher: failed to declare queue %s: %w", queueName, err)
	}
	return &rabbitMQPublisher{channel: ch, queueName: queueName}, nil
}

// PublishRecomputeTask отправляет задачу в очередь с персистентным режимом доставки.
func (p *rabbitMQPublisher) PublishRecomputeTask(ctx context.Context, payload RecomputeTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("recompute publisher: failed to marshal payload: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx,
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("recompute publisher: failed to publish task %s: %w", payload.TaskID, err)
	}
	return nil
}

// Close закрывает канал паблишера.
func (p *rabbitMQPublisher) Close() error {
	return p.channel.Close()
}
