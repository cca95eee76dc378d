package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/internal/domain/aggregate"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const AggregateType = "Order"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrEmptyOrder     = errors.New("order must have at least one item")
	ErrInvalidStatus  = errors.New("invalid order status transition")
	ErrOrderNotPaid   = errors.New("order must be paid before shipping")
	ErrNotShipped     = errors.New("stock can only be adjusted for a shipped order")
	ErrOrderCompleted = errors.New("order is already completed")
	ErrOrderFailed    = errors.New("order has already failed")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusFailed},
	StatusPaid:      {StatusShipped, StatusFailed},
	StatusShipped:   {StatusCompleted, StatusFailed},
	StatusCompleted: {}, // terminal state
	StatusFailed:    {}, // terminal state
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	for _, s := range validTransitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

func (o *Order) transitionError(target Status) error {
	switch {
	case o.Status == StatusCompleted:
		return ErrOrderCompleted
	case o.Status == StatusFailed:
		return ErrOrderFailed
	case o.Status == StatusPending && target == StatusShipped:
		return ErrOrderNotPaid
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
	}
}

// Order is the journal of one checkout attempt
type Order struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	Email               string          `json:"email,omitempty"`
	Items               []OrderItem     `json:"items"`
	Amount              decimal.Decimal `json:"amount"`
	Address             string          `json:"address"`
	Status              Status          `json:"status"`
	PaymentID           string          `json:"payment_id,omitempty"`
	DeliveryID          string          `json:"delivery_id,omitempty"`
	AdjustedProducts    []int64         `json:"adjusted_products,omitempty"`
	FailedStep          string          `json:"failed_step,omitempty"`
	FailureReason       string          `json:"failure_reason,omitempty"`
	NeedsReconciliation bool            `json:"needs_reconciliation"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	Version             int             `json:"version"`
}

func (o *Order) GetID() string   { return o.ID }
func (o *Order) GetVersion() int { return o.Version }

// ApplyEvent implements aggregate.Aggregate
func (o *Order) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventOrderPlaced:
		var data OrderPlaced
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.ID = data.OrderID
		o.UserID = data.UserID
		o.Email = data.Email
		o.Items = data.Items
		o.Amount = data.Amount
		o.Address = data.Address
		o.Status = StatusPending
		o.CreatedAt = data.PlacedAt
		o.UpdatedAt = data.PlacedAt
	case EventOrderPaid:
		var data OrderPaid
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusPaid
		o.PaymentID = data.PaymentID
		o.UpdatedAt = data.PaidAt
	case EventOrderShipped:
		var data OrderShipped
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusShipped
		o.DeliveryID = data.DeliveryID
		o.UpdatedAt = data.ShippedAt
	case EventStockAdjusted:
		var data StockAdjusted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.AdjustedProducts = append(o.AdjustedProducts, data.ProductID)
		o.UpdatedAt = data.AdjustedAt
	case EventOrderCompleted:
		var data OrderCompleted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusCompleted
		o.UpdatedAt = data.CompletedAt
	case EventOrderFailed:
		var data OrderFailed
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusFailed
		o.FailedStep = data.Step
		o.FailureReason = data.Reason
		o.NeedsReconciliation = data.NeedsReconciliation
		o.UpdatedAt = data.FailedAt
	}
	o.Version = event.Version
	return nil
}

// Placement describes a checkout attempt at the moment it starts
type Placement struct {
	OrderID string
	UserID  string
	Email   string
	Address string
	Items   []OrderItem
	Amount  decimal.Decimal
}

type Service struct {
	eventStore store.EventStoreInterface
	logger     *zap.Logger
}

func NewService(es store.EventStoreInterface, logger *zap.Logger) *Service {
	return &Service{eventStore: es, logger: logger.Named("order")}
}

// Get loads an order by replaying its events
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	o, found, err := aggregate.Load(ctx, s.eventStore, orderID, func() *Order {
		return &Order{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) Place(ctx context.Context, p Placement) (*Order, error) {
	if len(p.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if p.OrderID == "" {
		p.OrderID = uuid.New().String()
	}

	event := OrderPlaced{
		OrderID:  p.OrderID,
		UserID:   p.UserID,
		Email:    p.Email,
		Items:    p.Items,
		Amount:   p.Amount,
		Address:  p.Address,
		PlacedAt: time.Now(),
	}
	o := &Order{}
	if err := s.append(ctx, o, p.OrderID, EventOrderPlaced, event); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) Pay(ctx context.Context, orderID, paymentID string) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.CanTransitionTo(StatusPaid) {
		return o.transitionError(StatusPaid)
	}

	event := OrderPaid{OrderID: orderID, PaymentID: paymentID, PaidAt: time.Now()}
	return s.append(ctx, o, orderID, EventOrderPaid, event)
}

func (s *Service) Ship(ctx context.Context, orderID, deliveryID string) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.CanTransitionTo(StatusShipped) {
		return o.transitionError(StatusShipped)
	}

	event := OrderShipped{OrderID: orderID, DeliveryID: deliveryID, ShippedAt: time.Now()}
	return s.append(ctx, o, orderID, EventOrderShipped, event)
}

func (s *Service) AdjustStock(ctx context.Context, orderID string, productID int64, newQuantity int) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != StatusShipped {
		return ErrNotShipped
	}

	event := StockAdjusted{
		OrderID:     orderID,
		ProductID:   productID,
		NewQuantity: newQuantity,
		AdjustedAt:  time.Now(),
	}
	return s.append(ctx, o, orderID, EventStockAdjusted, event)
}

func (s *Service) Complete(ctx context.Context, orderID string) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.CanTransitionTo(StatusCompleted) {
		return o.transitionError(StatusCompleted)
	}

	event := OrderCompleted{
		OrderID:     orderID,
		UserID:      o.UserID,
		Email:       o.Email,
		Items:       o.Items,
		Amount:      o.Amount,
		Address:     o.Address,
		PaymentID:   o.PaymentID,
		DeliveryID:  o.DeliveryID,
		CompletedAt: time.Now(),
	}
	return s.append(ctx, o, orderID, EventOrderCompleted, event)
}

// Fail closes the order. Orders that already paid or shipped are flagged for manual reconciliation.
func (s *Service) Fail(ctx context.Context, orderID, step string, statusCode int, reason string) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.CanTransitionTo(StatusFailed) {
		return o.transitionError(StatusFailed)
	}

	event := OrderFailed{
		OrderID:             orderID,
		Step:                step,
		StatusCode:          statusCode,
		Reason:              reason,
		NeedsReconciliation: o.Status == StatusPaid || o.Status == StatusShipped,
		FailedAt:            time.Now(),
	}
	return s.append(ctx, o, orderID, EventOrderFailed, event)
}

func (s *Service) append(ctx context.Context, o *Order, orderID, eventType string, data any) error {
	stored, err := s.eventStore.Append(ctx, orderID, AggregateType, eventType, data)
	if err != nil {
		return err
	}
	if err := o.ApplyEvent(*stored); err != nil {
		return err
	}

	if err := aggregate.MaybeSnapshot(ctx, s.eventStore, o, AggregateType); err != nil {
		s.logger.Warn("snapshot failed", zap.String("order_id", o.ID), zap.Error(err))
	}
	return nil
}
