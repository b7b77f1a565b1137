package queue

import (
	"context"
	"fmt"
)

// Publisher publishes error record messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg RecordMessage) error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg RecordMessage) error

// Consumer consumes error record messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

const dlxExchangeName = "faultline.dlx"

// DLQName returns the dead-letter queue name for a queue, e.g. dlq.errors.report.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}
