// Package publisher emits edit-flow events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/octofit/internal/events"
)

// Publisher delivers edit-flow events.
type Publisher interface {
	MembershipChanged(ctx context.Context, evt events.MembershipChanged) error
	UserUpdated(ctx context.Context, evt events.UserUpdated) error
}

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// BrokerWriter sends messages to Kafka through one kafka.Writer shared by
// every topic; the topic travels on each message. Publishing happens inside
// a user's submit, so batches are flushed after a few milliseconds instead of
// the writer's one second default.
type BrokerWriter struct {
	writer *kafka.Writer
}

// NewBrokerWriter connects to brokers. Messages with the same key land on the
// same partition.
func NewBrokerWriter(brokers []string) *BrokerWriter {
	return &BrokerWriter{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// WriteMessages stamps topic on msgs and writes them synchronously.
func (w *BrokerWriter) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	for i := range msgs {
		msgs[i].Topic = topic
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// Close flushes pending messages and releases the connection.
func (w *BrokerWriter) Close() error {
	return w.writer.Close()
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

// MembershipChanged implements Publisher.
func (Noop) MembershipChanged(context.Context, events.MembershipChanged) error { return nil }

// UserUpdated implements Publisher.
func (Noop) UserUpdated(context.Context, events.UserUpdated) error { return nil }

// KafkaPublisher writes JSON payloads to a single topic keyed by user id so
// every change for one user lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher constructs a KafkaPublisher.
func NewKafkaPublisher(writer messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic}
}

// MembershipChanged implements Publisher.
func (p *KafkaPublisher) MembershipChanged(ctx context.Context, evt events.MembershipChanged) error {
	return p.publish(ctx, events.TypeMembershipChanged, evt.UserID, evt)
}

// UserUpdated implements Publisher.
func (p *KafkaPublisher) UserUpdated(ctx context.Context, evt events.UserUpdated) error {
	return p.publish(ctx, events.TypeUserUpdated, evt.UserID, evt)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "schema_version", Value: []byte(events.SchemaVersion)},
		},
	}
	if err := p.writer.WriteMessages(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
