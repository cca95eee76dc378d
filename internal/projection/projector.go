package projection

import (
	"context"
	"encoding/json"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/readmodel"
	"go.uber.org/zap"
)

// Projector builds the checkout read model from order events
type Projector struct {
	readStore store.ReadStoreInterface
	logger    *zap.Logger
}

func NewProjector(readStore store.ReadStoreInterface, logger *zap.Logger) *Projector {
	return &Projector{readStore: readStore, logger: logger.Named("projector")}
}

func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}

	p.logger.Debug("received event",
		zap.String("event_type", event.EventType),
		zap.String("aggregate_type", event.AggregateType),
		zap.String("aggregate_id", event.AggregateID),
	)

	// Carts are replayed from the event store on every read and have no projection
	if event.AggregateType != order.AggregateType {
		return nil
	}
	return p.handleOrderEvent(ctx, event)
}

func (p *Projector) handleOrderEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.SetCheckout(ctx, &readmodel.CheckoutReadModel{
			ID:               e.OrderID,
			UserID:           e.UserID,
			Status:           string(order.StatusPending),
			Amount:           e.Amount,
			Address:          e.Address,
			Items:            toItems(e.Items),
			AdjustedProducts: []int64{},
			CreatedAt:        e.PlacedAt,
			UpdatedAt:        e.PlacedAt,
		})

	case order.EventOrderPaid:
		var e order.OrderPaid
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, event, e.OrderID, func(c *readmodel.CheckoutReadModel) {
			c.Status = string(order.StatusPaid)
			c.PaymentID = e.PaymentID
			c.UpdatedAt = e.PaidAt
		})

	case order.EventOrderShipped:
		var e order.OrderShipped
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, event, e.OrderID, func(c *readmodel.CheckoutReadModel) {
			c.Status = string(order.StatusShipped)
			c.DeliveryID = e.DeliveryID
			c.UpdatedAt = e.ShippedAt
		})

	case order.EventStockAdjusted:
		var e order.StockAdjusted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, event, e.OrderID, func(c *readmodel.CheckoutReadModel) {
			c.AdjustedProducts = append(c.AdjustedProducts, e.ProductID)
			c.UpdatedAt = e.AdjustedAt
		})

	case order.EventOrderCompleted:
		var e order.OrderCompleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		complete := func(c *readmodel.CheckoutReadModel) {
			c.Status = string(order.StatusCompleted)
			c.PaymentID = e.PaymentID
			c.DeliveryID = e.DeliveryID
			c.UpdatedAt = e.CompletedAt
		}
		ok, err := p.readStore.UpdateCheckout(ctx, e.OrderID, complete)
		if err != nil || ok {
			return err
		}
		// Completion carries the whole order, so a missed OrderPlaced can be rebuilt here
		c := &readmodel.CheckoutReadModel{
			ID:               e.OrderID,
			UserID:           e.UserID,
			Amount:           e.Amount,
			Address:          e.Address,
			Items:            toItems(e.Items),
			AdjustedProducts: []int64{},
			CreatedAt:        e.CompletedAt,
		}
		for _, item := range e.Items {
			c.AdjustedProducts = append(c.AdjustedProducts, item.ProductID)
		}
		complete(c)
		return p.readStore.SetCheckout(ctx, c)

	case order.EventOrderFailed:
		var e order.OrderFailed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, event, e.OrderID, func(c *readmodel.CheckoutReadModel) {
			c.Status = string(order.StatusFailed)
			c.FailedStep = e.Step
			c.FailureReason = e.Reason
			c.NeedsReconciliation = e.NeedsReconciliation
			c.UpdatedAt = e.FailedAt
		})
	}

	return nil
}

func (p *Projector) update(ctx context.Context, event store.Event, id string, fn func(c *readmodel.CheckoutReadModel)) error {
	ok, err := p.readStore.UpdateCheckout(ctx, id, fn)
	if err != nil {
		return err
	}
	if !ok {
		p.logger.Warn("checkout not projected yet, event skipped",
			zap.String("checkout_id", id),
			zap.String("event_type", event.EventType),
			zap.Int("version", event.Version),
		)
	}
	return nil
}

func toItems(items []order.OrderItem) []readmodel.CheckoutItemReadModel {
	out := make([]readmodel.CheckoutItemReadModel, len(items))
	for i, item := range items {
		out[i] = readmodel.CheckoutItemReadModel{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return out
}
