package projection

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// EventHandler consumes one serialized event, as delivered by Kafka or Kinesis
type EventHandler interface {
	HandleEvent(ctx context.Context, key, value []byte) error
}

// InlinePublisher hands appended events straight to in-process handlers.
// It stands in for the Kafka producer when no broker is configured.
// Handler errors are logged; the event is already stored.
type InlinePublisher struct {
	handlers []EventHandler
	logger   *zap.Logger
}

func NewInlinePublisher(logger *zap.Logger, handlers ...EventHandler) *InlinePublisher {
	return &InlinePublisher{handlers: handlers, logger: logger.Named("inline")}
}

func (p *InlinePublisher) Publish(ctx context.Context, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	for _, h := range p.handlers {
		if err := h.HandleEvent(ctx, []byte(key), value); err != nil {
			p.logger.Error("handle event", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
