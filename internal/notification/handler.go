package notification

import (
	"context"
	"encoding/json"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/store"
	"go.uber.org/zap"
)

// Sender is satisfied by *email.Service
type Sender interface {
	SendOrderConfirmation(to string, o email.Order) error
}

// Handler processes events for sending notifications
type Handler struct {
	sender Sender
	logger *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(sender Sender, logger *zap.Logger) *Handler {
	return &Handler{sender: sender, logger: logger.Named("notifier")}
}

// HandleEvent processes an event from Kafka or Kinesis
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("unmarshal event", zap.Error(err))
		return err
	}

	// Only completed orders get a confirmation
	if event.EventType == order.EventOrderCompleted {
		return h.handleOrderCompleted(event)
	}
	return nil
}

func (h *Handler) handleOrderCompleted(event store.Event) error {
	var e order.OrderCompleted
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.logger.Error("unmarshal OrderCompleted", zap.Error(err))
		return err
	}

	logger := h.logger.With(zap.String("order_id", e.OrderID), zap.String("user_id", e.UserID))
	if e.Email == "" {
		logger.Warn("no email address for order, confirmation skipped")
		return nil
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		items[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	err := h.sender.SendOrderConfirmation(e.Email, email.Order{
		ID:         e.OrderID,
		Address:    e.Address,
		PaymentID:  e.PaymentID,
		DeliveryID: e.DeliveryID,
		Items:      items,
		Total:      e.Amount,
	})
	if err != nil {
		logger.Error("send confirmation email", zap.String("to", e.Email), zap.Error(err))
		return err
	}

	logger.Info("order confirmation email sent", zap.String("to", e.Email))
	return nil
}
