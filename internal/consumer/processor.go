// Package consumer reads edit-flow events from Kafka and records them.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/octofit/internal/audit"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of an edit-flow record.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Key           string
	Timestamp     time.Time
	EventType     string
	SchemaVersion string
	Payload       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRetryDelay sets the pause after a failed fetch or handler call.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Processor) {
		p.retryDelay = d
	}
}

// DeadLetterWriter parks messages that keep failing.
type DeadLetterWriter interface {
	Write(ctx context.Context, dl audit.DeadLetter) error
}

// WithDeadLetters parks a message after maxAttempts consecutive handler
// failures and commits it so the partition moves on.
func WithDeadLetters(w DeadLetterWriter, maxAttempts int) Option {
	return func(p *Processor) {
		p.deadLetters = w
		p.maxAttempts = maxAttempts
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader      Reader
	handler     Handler
	logger      *log.Logger
	retryDelay  time.Duration
	deadLetters DeadLetterWriter
	maxAttempts int
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:     reader,
		handler:    handler,
		logger:     log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes messages until the context is cancelled. A message is
// committed once handled. A failing message is retried in place, so the
// reader never moves past it; with dead letters configured it is parked and
// committed after maxAttempts consecutive failures.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			p.pause(ctx)
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, decodeErr)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after decode failure: %v", commitErr)
			}
			continue
		}

		if err := p.process(ctx, msg, event); err != nil {
			return err
		}
	}
}

// process handles one message until it succeeds or is parked. It only
// returns an error when the context ends first, leaving the message
// uncommitted for the next consumer of the partition.
func (p *Processor) process(ctx context.Context, msg kafka.Message, event Message) error {
	for attempts := 1; ; attempts++ {
		handleErr := p.handler.Handle(ctx, event)
		if handleErr == nil {
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error: %v", commitErr)
			} else {
				recordProcessed(event)
			}
			return nil
		}

		p.logger.Printf("handler error (event_type=%s, key=%s, attempt=%d): %v", event.EventType, event.Key, attempts, handleErr)
		recordHandlerError(event)
		if p.park(ctx, msg, event, handleErr, attempts) {
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after parking: %v", commitErr)
			}
			return nil
		}

		p.pause(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// park writes the message to the dead letter store once attempts reaches the
// limit. It reports whether the message may be committed. A failed write
// keeps the message in place and is tried again after the next failure.
func (p *Processor) park(ctx context.Context, msg kafka.Message, event Message, cause error, attempts int) bool {
	if p.deadLetters == nil || p.maxAttempts <= 0 || attempts < p.maxAttempts {
		return false
	}

	id := fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	err := p.deadLetters.Write(ctx, audit.DeadLetter{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       event.Key,
		EventType: event.EventType,
		Payload:   event.Payload,
		Reason:    cause.Error(),
		Attempts:  attempts,
		FailedAt:  time.Now().UTC(),
	})
	if err != nil {
		p.logger.Printf("dead letter write failed (%s): %v", id, err)
		return false
	}
	recordDeadLetter(event)
	p.logger.Printf("parked %s after %d attempts", id, attempts)
	return true
}

func (p *Processor) pause(ctx context.Context) {
	if p.retryDelay <= 0 {
		return
	}
	timer := time.NewTimer(p.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) == 0 {
		return Message{}, errors.New("empty payload")
	}
	if !json.Valid(msg.Value) {
		return Message{}, fmt.Errorf("payload is not valid JSON (%d bytes)", len(msg.Value))
	}

	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	version, _ := headerValue(msg, "schema_version")

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Key:           string(msg.Key),
		Timestamp:     msg.Time,
		EventType:     string(eventType),
		SchemaVersion: string(version),
		Payload:       json.RawMessage(append([]byte(nil), msg.Value...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
