package queue

import "context"

const (
	// EventsQueue is the single work queue carrying platform events.
	EventsQueue = "events"
	// EventsDLQ receives events whose processing was rejected.
	EventsDLQ = "dlq.events"
)

// Publisher publishes event messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg EventMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg EventMessage) error

// Consumer consumes event messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
