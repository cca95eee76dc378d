package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/delivery"
	"github.com/example/storefront/internal/domain/payment"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/domain/review"
	"go.uber.org/zap"
)

// decodeCreated decodes the body of a create call into out.
// Services that answer with an empty or non-JSON body still created the record,
// so a body that does not decode is logged and reported as false.
func decodeCreated(logger *zap.Logger, raw []byte, out any) bool {
	if len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		logger.Warn("unexpected create response", zap.ByteString("body", raw), zap.Error(err))
		return false
	}
	return true
}

// InventoryClient talks to the inventory service
type InventoryClient struct {
	*Client
}

func NewInventoryClient(baseURL string, opts Options) *InventoryClient {
	return &InventoryClient{NewClient("inventory", baseURL, opts)}
}

// ListProducts returns every product. Records without a usable id are skipped.
func (c *InventoryClient) ListProducts(ctx context.Context, s auth.Session) ([]product.Product, error) {
	var records []json.RawMessage
	if err := c.Do(ctx, s, http.MethodGet, "/Inventory", nil, &records); err != nil {
		return nil, err
	}

	products := make([]product.Product, 0, len(records))
	for _, raw := range records {
		p, err := product.FromRecord(raw)
		if err != nil {
			c.logger.Warn("skipping inventory record", zap.ByteString("record", raw), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (c *InventoryClient) GetProduct(ctx context.Context, s auth.Session, productID int64) (*product.Product, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, s, http.MethodGet, "/Inventory/"+strconv.FormatInt(productID, 10), nil, &raw); err != nil {
		return nil, err
	}
	p, err := product.FromRecord(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct replaces the full record of a product
func (c *InventoryClient) UpdateProduct(ctx context.Context, s auth.Session, productID int64, record json.RawMessage) error {
	return c.Do(ctx, s, http.MethodPut, "/Inventory/"+strconv.FormatInt(productID, 10), record, nil)
}

// PaymentClient talks to the cart/payment service
type PaymentClient struct {
	*Client
}

func NewPaymentClient(baseURL string, opts Options) *PaymentClient {
	return &PaymentClient{NewClient("payment", baseURL, opts)}
}

// CreatePayment records a payment; the returned payment carries the id the service assigned, if any
func (c *PaymentClient) CreatePayment(ctx context.Context, s auth.Session, p payment.Payment) (*payment.Payment, error) {
	raw, err := c.Send(ctx, s, http.MethodPost, "/CartPayment/payment/add", toPaymentDTO(p))
	if err != nil {
		return nil, err
	}

	created := p
	var dto paymentDTO
	if decodeCreated(c.logger, raw, &dto) && dto.ID != "" {
		created.ID = string(dto.ID)
	}
	return &created, nil
}

func (c *PaymentClient) ListPayments(ctx context.Context, s auth.Session, userID string) ([]payment.Payment, error) {
	var dtos []paymentDTO
	if err := c.Do(ctx, s, http.MethodGet, "/CartPayment/payments/"+url.PathEscape(userID), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]payment.Payment, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// DeliveryClient talks to the delivery service
type DeliveryClient struct {
	*Client
}

func NewDeliveryClient(baseURL string, opts Options) *DeliveryClient {
	return &DeliveryClient{NewClient("delivery", baseURL, opts)}
}

// ListDeliveries returns all deliveries visible to the session, not only the caller's
func (c *DeliveryClient) ListDeliveries(ctx context.Context, s auth.Session) ([]delivery.Delivery, error) {
	var dtos []deliveryDTO
	if err := c.Do(ctx, s, http.MethodGet, "/api/deliveries", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]delivery.Delivery, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (c *DeliveryClient) CreateDelivery(ctx context.Context, s auth.Session, d delivery.Delivery) (*delivery.Delivery, error) {
	raw, err := c.Send(ctx, s, http.MethodPost, "/api/deliveries", toDeliveryDTO(d))
	if err != nil {
		return nil, err
	}

	created := d
	var dto deliveryDTO
	if decodeCreated(c.logger, raw, &dto) && dto.ID != "" {
		created.ID = string(dto.ID)
	}
	return &created, nil
}

// ReviewsClient talks to the comments and ratings service
type ReviewsClient struct {
	*Client
}

func NewReviewsClient(baseURL string, opts Options) *ReviewsClient {
	return &ReviewsClient{NewClient("reviews", baseURL, opts)}
}

func (c *ReviewsClient) ListComments(ctx context.Context, s auth.Session, productID int64) ([]review.Comment, error) {
	var dtos []commentDTO
	if err := c.Do(ctx, s, http.MethodGet, fmt.Sprintf("/CommentsRatings/comments/%d", productID), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]review.Comment, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (c *ReviewsClient) ListRatings(ctx context.Context, s auth.Session, productID int64) ([]review.Rating, error) {
	var dtos []ratingDTO
	if err := c.Do(ctx, s, http.MethodGet, fmt.Sprintf("/CommentsRatings/ratings/%d", productID), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]review.Rating, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (c *ReviewsClient) AddComment(ctx context.Context, s auth.Session, comment review.Comment) (*review.Comment, error) {
	raw, err := c.Send(ctx, s, http.MethodPost, "/CommentsRatings/comments", toCommentDTO(comment))
	if err != nil {
		return nil, err
	}
	var dto commentDTO
	if decodeCreated(c.logger, raw, &dto) && dto.ID != "" {
		comment.ID = string(dto.ID)
	}
	return &comment, nil
}

func (c *ReviewsClient) DeleteComment(ctx context.Context, s auth.Session, commentID string) error {
	return c.Do(ctx, s, http.MethodDelete, "/CommentsRatings/comments/"+url.PathEscape(commentID), nil, nil)
}

func (c *ReviewsClient) AddRating(ctx context.Context, s auth.Session, rating review.Rating) (*review.Rating, error) {
	raw, err := c.Send(ctx, s, http.MethodPost, "/CommentsRatings/ratings", toRatingDTO(rating))
	if err != nil {
		return nil, err
	}
	var dto ratingDTO
	if decodeCreated(c.logger, raw, &dto) && dto.ID != "" {
		rating.ID = string(dto.ID)
	}
	return &rating, nil
}

func (c *ReviewsClient) DeleteRating(ctx context.Context, s auth.Session, ratingID string) error {
	return c.Do(ctx, s, http.MethodDelete, "/CommentsRatings/ratings/"+url.PathEscape(ratingID), nil, nil)
}
