package query

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/delivery"
	"github.com/example/storefront/internal/domain/payment"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/domain/review"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/readmodel"
	"go.uber.org/zap"
)

var ErrCheckoutNotFound = errors.New("checkout not found")

type Catalog interface {
	ListProducts(ctx context.Context, s auth.Session) ([]product.Product, error)
}

type Reviews interface {
	ListComments(ctx context.Context, s auth.Session, productID int64) ([]review.Comment, error)
	ListRatings(ctx context.Context, s auth.Session, productID int64) ([]review.Rating, error)
}

type Payments interface {
	ListPayments(ctx context.Context, s auth.Session, userID string) ([]payment.Payment, error)
}

type Carts interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
}

type Handler struct {
	catalog    Catalog
	reviews    Reviews
	carts      Carts
	deliveries checkout.DeliveryLister
	payments   Payments
	readStore  store.ReadStoreInterface
	logger     *zap.Logger
}

func NewHandler(
	catalog Catalog,
	reviews Reviews,
	carts Carts,
	deliveries checkout.DeliveryLister,
	payments Payments,
	readStore store.ReadStoreInterface,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		catalog:    catalog,
		reviews:    reviews,
		carts:      carts,
		deliveries: deliveries,
		payments:   payments,
		readStore:  readStore,
		logger:     logger.Named("query"),
	}
}

// ListProducts returns the catalog for the session's user.
// A product whose reviews cannot be fetched is listed without them.
func (h *Handler) ListProducts(ctx context.Context, s auth.Session) ([]*ProductReadModel, error) {
	products, err := h.catalog.ListProducts(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	c, err := h.carts.Get(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	out := make([]*ProductReadModel, 0, len(products))
	for _, p := range products {
		m := &ProductReadModel{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			Image:         p.Image,
			Price:         p.Price,
			Stock:         p.Quantity,
			Available:     p.Quantity - c.Quantity(p.ID),
			AverageRating: review.Average(nil),
			Comments:      []review.Comment{},
		}
		h.attachReviews(ctx, s, m)
		out = append(out, m)
	}
	return out, nil
}

func (h *Handler) attachReviews(ctx context.Context, s auth.Session, m *ProductReadModel) {
	comments, err := h.reviews.ListComments(ctx, s, m.ID)
	if err != nil {
		h.logger.Warn("list comments", zap.Int64("product_id", m.ID), zap.Error(err))
		return
	}
	ratings, err := h.reviews.ListRatings(ctx, s, m.ID)
	if err != nil {
		h.logger.Warn("list ratings", zap.Int64("product_id", m.ID), zap.Error(err))
		return
	}
	m.Comments = comments
	m.AverageRating = review.Average(ratings)
	m.RatingCount = len(ratings)
}

func (h *Handler) GetCart(ctx context.Context, userID string) (*CartReadModel, error) {
	c, err := h.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	m := cartReadModel(c)
	return &m, nil
}

func cartReadModel(c *cart.Cart) CartReadModel {
	items := make([]CartItemReadModel, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, CartItemReadModel{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
		})
	}
	return CartReadModel{
		ID:     c.ID,
		UserID: c.UserID,
		Items:  items,
		Total:  c.Total(),
	}
}

// CheckoutPreview returns checkout.ErrEmptyCart when there is nothing to buy.
// Failing to load past deliveries only loses the pre-filled address.
func (h *Handler) CheckoutPreview(ctx context.Context, s auth.Session) (*CheckoutPreview, error) {
	c, err := h.carts.Get(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, checkout.ErrEmptyCart
	}

	preview := &CheckoutPreview{Cart: cartReadModel(c)}
	all, err := h.deliveries.ListDeliveries(ctx, s)
	if err != nil {
		h.logger.Warn("list deliveries for address prefill", zap.String("user_id", s.UserID), zap.Error(err))
		return preview, nil
	}
	if latest, ok := delivery.Latest(delivery.ForUser(all, s.UserID)); ok {
		preview.Address = latest.Address
	}
	return preview, nil
}

// ListDeliveries returns the session user's deliveries, newest first
func (h *Handler) ListDeliveries(ctx context.Context, s auth.Session) ([]DeliveryReadModel, error) {
	all, err := h.deliveries.ListDeliveries(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	mine := delivery.ForUser(all, s.UserID)
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].DeliveryTime.After(mine[j].DeliveryTime)
	})

	out := make([]DeliveryReadModel, 0, len(mine))
	for _, d := range mine {
		out = append(out, DeliveryReadModel{
			ID:           d.ID,
			PaymentID:    d.PaymentID,
			Address:      d.Address,
			DeliveryTime: d.DeliveryTime,
			GeoX:         d.GeoX,
			GeoY:         d.GeoY,
		})
	}
	return out, nil
}

func (h *Handler) ListPayments(ctx context.Context, s auth.Session) (*PaymentHistory, error) {
	payments, err := h.payments.ListPayments(ctx, s, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	history := &PaymentHistory{
		Payments: make([]PaymentReadModel, 0, len(payments)),
		Total:    payment.Total(payments),
	}
	for _, p := range payments {
		history.Payments = append(history.Payments, PaymentReadModel{
			ID:          p.ID,
			Amount:      p.Amount,
			Items:       len(p.InventoryItems),
			PaymentDate: p.PaymentDate,
		})
	}
	return history, nil
}

// ListCheckouts returns recorded checkout attempts, newest first.
// With reconcile set only attempts that left a collaborator half-updated are returned.
func (h *Handler) ListCheckouts(ctx context.Context, userID string, reconcile bool) ([]*readmodel.CheckoutReadModel, error) {
	return h.readStore.ListCheckouts(ctx, store.CheckoutFilter{UserID: userID, NeedsReconciliation: reconcile})
}

func (h *Handler) GetCheckout(ctx context.Context, id string) (*readmodel.CheckoutReadModel, error) {
	c, ok, err := h.readStore.GetCheckout(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCheckoutNotFound
	}
	return c, nil
}
