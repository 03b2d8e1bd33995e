package consumer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/segmentio/kafka-go"
)

// Loopback hands written messages straight to a Handler in process. It
// stands in for a broker when none is configured so the audit trail still
// fills during local development.
type Loopback struct {
	handler Handler
	offset  atomic.Int64
}

// NewLoopback constructs a Loopback delivering to handler.
func NewLoopback(handler Handler) *Loopback {
	return &Loopback{handler: handler}
}

// WriteMessages decodes and handles each message synchronously. Offsets are
// assigned locally so fallback event ids stay unique.
func (l *Loopback) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		msg.Topic = topic
		msg.Offset = l.offset.Add(1)
		event, err := decodeMessage(msg)
		if err != nil {
			recordDecodeError(topic)
			return fmt.Errorf("loopback decode: %w", err)
		}
		if err := l.handler.Handle(ctx, event); err != nil {
			recordHandlerError(event)
			return err
		}
		recordProcessed(event)
	}
	return nil
}
