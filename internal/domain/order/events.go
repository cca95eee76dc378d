package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderPaid      = "OrderPaid"
	EventOrderShipped   = "OrderShipped"
	EventStockAdjusted  = "StockAdjusted"
	EventOrderCompleted = "OrderCompleted"
	EventOrderFailed    = "OrderFailed"
)

type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlaced struct {
	OrderID  string          `json:"order_id"`
	UserID   string          `json:"user_id"`
	Email    string          `json:"email,omitempty"`
	Items    []OrderItem     `json:"items"`
	Amount   decimal.Decimal `json:"amount"`
	Address  string          `json:"address"`
	PlacedAt time.Time       `json:"placed_at"`
}

type OrderPaid struct {
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	PaidAt    time.Time `json:"paid_at"`
}

type OrderShipped struct {
	OrderID    string    `json:"order_id"`
	DeliveryID string    `json:"delivery_id"`
	ShippedAt  time.Time `json:"shipped_at"`
}

type StockAdjusted struct {
	OrderID     string    `json:"order_id"`
	ProductID   int64     `json:"product_id"`
	NewQuantity int       `json:"new_quantity"`
	AdjustedAt  time.Time `json:"adjusted_at"`
}

// OrderCompleted is self-contained so consumers can act on it without replaying the order
type OrderCompleted struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	Email       string          `json:"email,omitempty"`
	Items       []OrderItem     `json:"items"`
	Amount      decimal.Decimal `json:"amount"`
	Address     string          `json:"address"`
	PaymentID   string          `json:"payment_id"`
	DeliveryID  string          `json:"delivery_id"`
	CompletedAt time.Time       `json:"completed_at"`
}

type OrderFailed struct {
	OrderID             string    `json:"order_id"`
	Step                string    `json:"step"`
	StatusCode          int       `json:"status_code,omitempty"`
	Reason              string    `json:"reason"`
	NeedsReconciliation bool      `json:"needs_reconciliation"`
	FailedAt            time.Time `json:"failed_at"`
}
