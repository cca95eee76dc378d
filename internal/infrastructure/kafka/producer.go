// Package kafka moves appended store events between the API and the projector/notifier workers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Producer publishes store events to a single topic.
// Messages are keyed by aggregate id and hashed so one checkout's events stay ordered on one partition.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

// Publish implements store.Publisher. The caller's trace context travels in the message headers.
func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	msg, err := newMessage(ctx, key, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

func newMessage(ctx context.Context, key string, event any) (kafka.Message, error) {
	return newMessageWith(ctx, otel.GetTextMapPropagator(), key, event)
}

func newMessageWith(ctx context.Context, propagator propagation.TextMapPropagator, key string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if e, ok := event.(store.Event); ok {
		msg.Headers = append(msg.Headers, kafka.Header{Key: HeaderEventType, Value: []byte(e.EventType)})
	}
	propagator.Inject(ctx, headerCarrier{&msg})
	return msg, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
