package queue

import (
	"context"

	"github.com/brieflyhq/briefly-back/internal/domain"
)

// Producer sends summary job triggers to a queue backend.
type Producer interface {
	Enqueue(ctx context.Context, message domain.QueueMessage) error
}

// Consumer receives job triggers and executes the handler. A handler
// error never requeues the message: by the time the worker reports an
// error the job record is already terminal, so redelivery would only
// bounce off the claim step. Undeliverable messages go to a DLQ.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.QueueMessage) error) error
}
