package order

import (
	"context"

	"go.uber.org/zap"
)

// Journal records checkout progress as order events.
// Write failures are logged and swallowed: the journal never changes the outcome of a checkout.
type Journal struct {
	service *Service
	logger  *zap.Logger
}

func NewJournal(service *Service, logger *zap.Logger) *Journal {
	return &Journal{service: service, logger: logger.Named("journal")}
}

func (j *Journal) Placed(ctx context.Context, p Placement) {
	if _, err := j.service.Place(ctx, p); err != nil {
		j.warn("placed", p.OrderID, err)
	}
}

func (j *Journal) Paid(ctx context.Context, orderID, paymentID string) {
	if err := j.service.Pay(ctx, orderID, paymentID); err != nil {
		j.warn("paid", orderID, err)
	}
}

func (j *Journal) Shipped(ctx context.Context, orderID, deliveryID string) {
	if err := j.service.Ship(ctx, orderID, deliveryID); err != nil {
		j.warn("shipped", orderID, err)
	}
}

func (j *Journal) StockAdjusted(ctx context.Context, orderID string, productID int64, newQuantity int) {
	if err := j.service.AdjustStock(ctx, orderID, productID, newQuantity); err != nil {
		j.warn("stock_adjusted", orderID, err)
	}
}

func (j *Journal) Completed(ctx context.Context, orderID string) {
	if err := j.service.Complete(ctx, orderID); err != nil {
		j.warn("completed", orderID, err)
	}
}

func (j *Journal) Failed(ctx context.Context, orderID, step string, statusCode int, reason string) {
	if err := j.service.Fail(ctx, orderID, step, statusCode, reason); err != nil {
		j.warn("failed", orderID, err)
	}
}

func (j *Journal) warn(entry, orderID string, err error) {
	j.logger.Warn("journal write failed",
		zap.String("entry", entry),
		zap.String("order_id", orderID),
		zap.Error(err),
	)
}
