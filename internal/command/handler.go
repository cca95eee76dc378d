package command

import (
	"context"
	"errors"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/domain/review"
	"go.uber.org/zap"
)

var ErrOutOfStock = errors.New("product is out of stock")

type Products interface {
	GetProduct(ctx context.Context, s auth.Session, productID int64) (*product.Product, error)
}

type Reviews interface {
	AddComment(ctx context.Context, s auth.Session, c review.Comment) (*review.Comment, error)
	DeleteComment(ctx context.Context, s auth.Session, commentID string) error
	AddRating(ctx context.Context, s auth.Session, r review.Rating) (*review.Rating, error)
	DeleteRating(ctx context.Context, s auth.Session, ratingID string) error
}

type Handler struct {
	products Products
	reviews  Reviews
	cartSvc  *cart.Service
	placer   checkout.Placer
	now      func() time.Time
	logger   *zap.Logger
}

func NewHandler(
	products Products,
	reviews Reviews,
	cartSvc *cart.Service,
	placer checkout.Placer,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		products: products,
		reviews:  reviews,
		cartSvc:  cartSvc,
		placer:   placer,
		now:      time.Now,
		logger:   logger.Named("command"),
	}
}

// AddToCart adds one unit, refusing once the cart holds all the stock the inventory reports
func (h *Handler) AddToCart(ctx context.Context, s auth.Session, cmd AddToCart) (*cart.Cart, error) {
	if cmd.ProductID <= 0 {
		return nil, cart.ErrInvalidProduct
	}

	// Fresh stock from the inventory service
	p, err := h.products.GetProduct(ctx, s, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	c, err := h.cartSvc.Get(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	if p.Quantity-c.Quantity(p.ID) <= 0 {
		return nil, ErrOutOfStock
	}

	return h.cartSvc.AddItem(ctx, s.UserID, *p)
}

// RemoveFromCart removes one unit
func (h *Handler) RemoveFromCart(ctx context.Context, s auth.Session, cmd RemoveFromCart) (*cart.Cart, error) {
	return h.cartSvc.RemoveItem(ctx, s.UserID, cmd.ProductID)
}

// PlaceOrder checks out the session's cart. On failure the partial result is returned with the error.
func (h *Handler) PlaceOrder(ctx context.Context, s auth.Session, cmd PlaceOrder) (*checkout.Result, error) {
	c, err := h.cartSvc.Get(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, checkout.ErrEmptyCart
	}

	return h.placer.PlaceOrder(ctx, checkout.Request{
		Session: s,
		Lines:   c.Lines,
		Address: cmd.Address,
	})
}

func (h *Handler) AddComment(ctx context.Context, s auth.Session, cmd AddComment) (*review.Comment, error) {
	c := review.Comment{
		ProductID: cmd.ProductID,
		UserID:    s.UserID,
		Content:   cmd.Content,
		Timestamp: h.now(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return h.reviews.AddComment(ctx, s, c)
}

func (h *Handler) AddRating(ctx context.Context, s auth.Session, cmd AddRating) (*review.Rating, error) {
	r := review.Rating{
		ProductID: cmd.ProductID,
		UserID:    s.UserID,
		Value:     cmd.Value,
		Timestamp: h.now(),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return h.reviews.AddRating(ctx, s, r)
}

func (h *Handler) DeleteComment(ctx context.Context, s auth.Session, cmd DeleteComment) error {
	if err := h.reviews.DeleteComment(ctx, s, cmd.CommentID); err != nil {
		return err
	}
	h.logger.Info("comment deleted", zap.String("comment_id", cmd.CommentID), zap.String("user_id", s.UserID))
	return nil
}

func (h *Handler) DeleteRating(ctx context.Context, s auth.Session, cmd DeleteRating) error {
	if err := h.reviews.DeleteRating(ctx, s, cmd.RatingID); err != nil {
		return err
	}
	h.logger.Info("rating deleted", zap.String("rating_id", cmd.RatingID), zap.String("user_id", s.UserID))
	return nil
}
