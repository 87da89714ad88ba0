package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brieflyhq/briefly-back/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitConfig struct {
	URL   string
	Queue string
}

// RabbitQueue implements Producer+Consumer backed by RabbitMQ.
type RabbitQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewRabbitQueue(cfg RabbitConfig) (*RabbitQueue, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbit url is required")
	}
	if cfg.Queue == "" {
		cfg.Queue = "summary_jobs"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbit dial: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbit channel: %w", err)
	}
	if _, err := channel.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	return &RabbitQueue{conn: conn, channel: channel, queue: cfg.Queue}, nil
}

func (q *RabbitQueue) Close() error {
	channelErr := q.channel.Close()
	connErr := q.conn.Close()
	if channelErr != nil {
		return channelErr
	}
	return connErr
}

func (q *RabbitQueue) Enqueue(ctx context.Context, message domain.QueueMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode queue message: %w", err)
	}
	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (q *RabbitQueue) Consume(ctx context.Context, handler func(context.Context, domain.QueueMessage) error) error {
	if err := q.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	deliveries, err := q.channel.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbit delivery channel closed")
			}

			var message domain.QueueMessage
			if err := json.Unmarshal(delivery.Body, &message); err != nil || message.JobID == "" {
				// Malformed trigger; drop without requeue.
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, false)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}
