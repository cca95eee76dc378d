// Package checkout places an order against the payment, delivery and inventory services.
//
// The steps run strictly in sequence and nothing is compensated: a failed delivery
// leaves an orphan payment behind, and a failed inventory update leaves the earlier
// lines decremented. Callers only see the Placer interface, so the sequence can later
// be replaced by a saga without touching them.
package checkout

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/delivery"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Route is the view the user should land on after a checkout attempt
type Route string

const (
	RouteConfirmation Route = "confirmation"
	RouteCheckout     Route = "checkout"
	RouteCatalog      Route = "catalog"
)

// Placer is the single entry point for placing an order
type Placer interface {
	PlaceOrder(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	Session auth.Session
	Lines   []cart.Line
	Address string
}

// Result describes what a checkout attempt created. It is returned together with
// the error on failure so the caller knows where to send the user.
type Result struct {
	AttemptID string
	Amount    decimal.Decimal
	Payment   *payment.Payment
	Delivery  *delivery.Delivery
	Adjusted  []int64
	Route     Route
}

// Deps wires the orchestrator. Payments, Deliveries, Inventory and Carts are required.
type Deps struct {
	Payments   PaymentService
	Deliveries DeliveryService
	Inventory  InventoryService
	Carts      Carts
	IDs        IDAllocator
	Geocoder   Geocoder
	Recorder   Recorder
	Now        func() time.Time
	Logger     *zap.Logger
}

type Orchestrator struct {
	payments   PaymentService
	deliveries DeliveryService
	inventory  InventoryService
	carts      Carts
	ids        IDAllocator
	geocoder   Geocoder
	recorder   Recorder
	now        func() time.Time
	logger     *zap.Logger
	tracer     trace.Tracer

	inflight sync.Map // userID -> struct{}
}

func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		payments:   d.Payments,
		deliveries: d.Deliveries,
		inventory:  d.Inventory,
		carts:      d.Carts,
		ids:        d.IDs,
		geocoder:   d.Geocoder,
		recorder:   d.Recorder,
		now:        d.Now,
		logger:     d.Logger,
		tracer:     otel.Tracer("storefront/checkout"),
	}
	if o.ids == nil {
		o.ids = ServerAssigned{}
	}
	if o.geocoder == nil {
		o.geocoder = RandomGeocoder{}
	}
	if o.recorder == nil {
		o.recorder = NopRecorder{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	o.logger = o.logger.Named("checkout")
	return o
}

// Amount is the sum of quantity times unit price over the lines
func Amount(lines []cart.Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// PlaceOrder runs payment, delivery and one inventory update per line, then clears the cart.
// Validation errors are returned before any remote call; remote failures come back as *StepError.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req Request) (*Result, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, ErrInvalidAddress
	}

	userID := req.Session.UserID
	if _, busy := o.inflight.LoadOrStore(userID, struct{}{}); busy {
		return nil, ErrCheckoutInProgress
	}
	defer o.inflight.Delete(userID)

	// A started checkout runs to the end even if the caller goes away; each call keeps its own timeout.
	ctx = context.WithoutCancel(ctx)

	res := &Result{
		AttemptID: uuid.New().String(),
		Amount:    Amount(req.Lines),
		Route:     RouteCheckout,
	}

	ctx, span := o.tracer.Start(ctx, "checkout.place_order", trace.WithAttributes(
		attribute.String("checkout.attempt_id", res.AttemptID),
		attribute.String("user.id", userID),
		attribute.Int("checkout.lines", len(req.Lines)),
		attribute.String("checkout.amount", res.Amount.String()),
	))
	defer span.End()

	logger := o.logger.With(zap.String("attempt_id", res.AttemptID), zap.String("user_id", userID))
	o.recorder.Placed(ctx, placement(res, req, address))

	if err := o.run(ctx, req, address, res); err != nil {
		o.fail(ctx, span, logger, res, err)
		return res, err
	}

	o.recorder.Completed(ctx, res.AttemptID)
	res.Route = RouteConfirmation
	span.SetStatus(codes.Ok, "order placed")

	// The order is placed at this point; a cart that fails to clear is only logged.
	if err := o.carts.Clear(ctx, userID); err != nil {
		logger.Error("clear cart after checkout", zap.Error(err))
	}

	logger.Info("order placed",
		zap.String("payment_id", res.Payment.ID),
		zap.String("delivery_id", res.Delivery.ID),
		zap.String("amount", res.Amount.String()),
	)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, address string, res *Result) error {
	s := req.Session

	id, err := o.ids.Allocate(ctx, s)
	if err != nil {
		return stepError(StepAllocateID, err)
	}

	items, err := inventoryItems(req.Lines)
	if err != nil {
		return stepError(StepPayment, err)
	}
	now := o.now()

	paid, err := o.payments.CreatePayment(ctx, s, payment.Payment{
		ID:             id,
		CartID:         s.UserID,
		UserID:         s.UserID,
		Amount:         res.Amount,
		InventoryItems: items,
		PaymentDate:    now,
	})
	if err != nil {
		return stepError(StepPayment, err)
	}
	if paid.ID == "" {
		paid.ID = id
	}
	// The payment exists even when its id is unknown, so it is journaled
	// as paid and the failure below is flagged for reconciliation.
	res.Payment = paid
	o.recorder.Paid(ctx, res.AttemptID, paid.ID)
	if paid.ID == "" {
		return stepError(StepPayment, ErrMissingID)
	}

	x, y, err := o.geocoder.Locate(ctx, address)
	if err != nil {
		return stepError(StepDelivery, err)
	}
	shipped, err := o.deliveries.CreateDelivery(ctx, s, delivery.Delivery{
		ID:           id,
		UserID:       s.UserID,
		PaymentID:    paid.ID,
		Address:      address,
		DeliveryTime: now,
		GeoX:         x,
		GeoY:         y,
	})
	if err != nil {
		return stepError(StepDelivery, err)
	}
	if shipped.ID == "" {
		shipped.ID = id
	}
	res.Delivery = shipped
	o.recorder.Shipped(ctx, res.AttemptID, shipped.ID)

	for _, line := range req.Lines {
		remaining := line.Product.Quantity - line.Quantity
		record, err := line.Product.WithQuantity(remaining)
		if err == nil {
			err = o.inventory.UpdateProduct(ctx, s, line.Product.ID, record)
		}
		if err != nil {
			se := stepError(StepInventory, err)
			se.ProductID = line.Product.ID
			return se
		}
		res.Adjusted = append(res.Adjusted, line.Product.ID)
		o.recorder.StockAdjusted(ctx, res.AttemptID, line.Product.ID, remaining)
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, logger *zap.Logger, res *Result, err error) {
	se := err.(*StepError)
	if se.Step == StepInventory {
		res.Route = RouteCatalog
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, string(se.Step))
	o.recorder.Failed(ctx, res.AttemptID, string(se.Step), se.StatusCode, se.Err.Error())

	fields := []zap.Field{
		zap.String("step", string(se.Step)),
		zap.Int("status_code", se.StatusCode),
		zap.Int64s("adjusted_products", res.Adjusted),
		zap.Error(se.Err),
	}
	if res.Payment != nil {
		fields = append(fields, zap.String("orphan_payment_id", res.Payment.ID))
	}
	if se.ProductID != 0 {
		fields = append(fields, zap.Int64("product_id", se.ProductID))
	}
	logger.Error("checkout failed", fields...)
}

// inventoryItems snapshots each line's record with quantity set to the amount bought
func inventoryItems(lines []cart.Line) ([]json.RawMessage, error) {
	items := make([]json.RawMessage, 0, len(lines))
	for _, l := range lines {
		item, err := l.Product.WithQuantity(l.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func placement(res *Result, req Request, address string) order.Placement {
	items := make([]order.OrderItem, 0, len(req.Lines))
	for _, l := range req.Lines {
		items = append(items, order.OrderItem{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			Price:     l.Product.Price,
		})
	}
	return order.Placement{
		OrderID: res.AttemptID,
		UserID:  req.Session.UserID,
		Email:   req.Session.Email,
		Address: address,
		Items:   items,
		Amount:  res.Amount,
	}
}
