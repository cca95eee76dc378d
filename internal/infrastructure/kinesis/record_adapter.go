// Package kinesis feeds event-store inserts delivered by the DynamoDB Kinesis
// integration to the same handlers the Kafka consumers use.
package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/storefront/internal/infrastructure/store"
	"go.uber.org/zap"
)

var ErrIncompleteImage = errors.New("event image is missing required attributes")

// Handler consumes one serialized store.Event
type Handler interface {
	HandleEvent(ctx context.Context, key, value []byte) error
}

// DecodeRecord extracts the stored event from a Kinesis record carrying a DynamoDB stream change.
// Changes other than INSERT return a nil event.
func DecodeRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("decode stream record: %w", err)
	}
	if change.EventName != string(events.DynamoDBOperationTypeInsert) {
		return nil, nil
	}
	return eventFromImage(change.Change.NewImage)
}

func eventFromImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	if image == nil {
		return nil, ErrIncompleteImage
	}

	str := func(name string) string {
		if v, ok := image[name]; ok && v.DataType() == events.DataTypeString {
			return v.String()
		}
		return ""
	}

	event := &store.Event{
		ID:            str("id"),
		AggregateID:   str("aggregate_id"),
		AggregateType: str("aggregate_type"),
		EventType:     str("event_type"),
		Data:          json.RawMessage(str("data")),
	}
	if event.ID == "" || event.AggregateID == "" || event.EventType == "" {
		return nil, fmt.Errorf("%w: id=%q aggregate_id=%q event_type=%q",
			ErrIncompleteImage, event.ID, event.AggregateID, event.EventType)
	}

	if created := str("created_at"); created != "" {
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		event.Timestamp = t
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("parse version: %w", err)
		}
		event.Version = int(version)
	}
	return event, nil
}

// Dispatch hands every inserted event of the batch to h. Records that cannot be decoded
// or handled are reported as batch item failures so Lambda retries only those.
func Dispatch(ctx context.Context, batch events.KinesisEvent, h Handler, logger *zap.Logger) events.KinesisEventResponse {
	var failures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord, msg string, err error) {
		logger.Error(msg,
			zap.String("record_id", record.EventID),
			zap.String("sequence_number", record.Kinesis.SequenceNumber),
			zap.Error(err),
		)
		failures = append(failures, events.KinesisBatchItemFailure{ItemIdentifier: record.Kinesis.SequenceNumber})
	}

	for _, record := range batch.Records {
		event, err := DecodeRecord(record)
		if err != nil {
			fail(record, "decode record", err)
			continue
		}
		if event == nil {
			continue
		}

		value, err := json.Marshal(event)
		if err != nil {
			fail(record, "encode event", err)
			continue
		}
		if err := h.HandleEvent(ctx, []byte(event.AggregateID), value); err != nil {
			fail(record, "handle event", err)
			continue
		}
		logger.Debug("event handled", zap.String("event_id", event.ID), zap.String("event_type", event.EventType))
	}

	logger.Info("batch processed",
		zap.Int("records", len(batch.Records)),
		zap.Int("failures", len(failures)),
	)
	return events.KinesisEventResponse{BatchItemFailures: failures}
}
