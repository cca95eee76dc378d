package checkout

import (
	"context"
	"encoding/json"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/delivery"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/payment"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, s auth.Session, p payment.Payment) (*payment.Payment, error)
}

type DeliveryLister interface {
	ListDeliveries(ctx context.Context, s auth.Session) ([]delivery.Delivery, error)
}

type DeliveryService interface {
	DeliveryLister
	CreateDelivery(ctx context.Context, s auth.Session, d delivery.Delivery) (*delivery.Delivery, error)
}

// InventoryService overwrites a product's full record. There is no compare-and-set:
// a concurrent buyer of the same product can be overwritten.
type InventoryService interface {
	UpdateProduct(ctx context.Context, s auth.Session, productID int64, record json.RawMessage) error
}

type Carts interface {
	Clear(ctx context.Context, userID string) error
}

// Recorder follows the progress of each attempt. Implementations must not fail the checkout.
type Recorder interface {
	Placed(ctx context.Context, p order.Placement)
	Paid(ctx context.Context, orderID, paymentID string)
	Shipped(ctx context.Context, orderID, deliveryID string)
	StockAdjusted(ctx context.Context, orderID string, productID int64, newQuantity int)
	Completed(ctx context.Context, orderID string)
	Failed(ctx context.Context, orderID, step string, statusCode int, reason string)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) Placed(context.Context, order.Placement) {}
func (NopRecorder) Paid(context.Context, string, string) {}
func (NopRecorder) Shipped(context.Context, string, string) {}
func (NopRecorder) StockAdjusted(context.Context, string, int64, int) {}
func (NopRecorder) Completed(context.Context, string) {}
func (NopRecorder) Failed(context.Context, string, string, int, string) {}
