package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/example/storefront/internal/domain/aggregate"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const AggregateType = "Cart"

var (
	ErrInvalidProduct = errors.New("product id is required")
	ErrItemNotInCart  = errors.New("item is not in the cart")
)

// Line is one product in the cart with the number of units bought
type Line struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps its lines in the order products were first added
type Cart struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Lines   []Line `json:"lines"`
	Version int    `json:"version"`
}

func (c *Cart) GetID() string   { return c.ID }
func (c *Cart) GetVersion() int { return c.Version }

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Total is the sum of quantity times unit price over all lines
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Quantity returns how many units of productID are in the cart
func (c *Cart) Quantity(productID int64) int {
	if i := c.index(productID); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

func (c *Cart) index(productID int64) int {
	for i, l := range c.Lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

// ApplyEvent implements aggregate.Aggregate
func (c *Cart) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventItemAdded:
		var data ItemAddedToCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.ID = data.CartID
		c.UserID = data.UserID
		if i := c.index(data.Product.ID); i >= 0 {
			c.Lines[i].Quantity++
			c.Lines[i].Product = data.Product
		} else {
			c.Lines = append(c.Lines, Line{Product: data.Product, Quantity: 1})
		}
	case EventItemRemoved:
		var data ItemRemovedFromCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if i := c.index(data.ProductID); i >= 0 {
			c.Lines[i].Quantity--
			if c.Lines[i].Quantity < 1 {
				c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			}
		}
	case EventCartCleared:
		c.Lines = nil
	}
	c.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
	logger     *zap.Logger
}

func NewService(es store.EventStoreInterface, logger *zap.Logger) *Service {
	return &Service{eventStore: es, logger: logger.Named("cart")}
}

// GetCartID returns the cart ID for a user; each user has exactly one cart
func GetCartID(userID string) string {
	return "cart-" + userID
}

// Get returns the user's cart; a user without events gets an empty cart
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	cartID := GetCartID(userID)
	c, _, err := aggregate.Load(ctx, s.eventStore, cartID, func() *Cart {
		return &Cart{}
	})
	if err != nil {
		return nil, err
	}
	c.ID = cartID
	c.UserID = userID
	return c, nil
}

// AddItem adds one unit of p to the user's cart
func (s *Service) AddItem(ctx context.Context, userID string, p product.Product) (*Cart, error) {
	if p.ID <= 0 {
		return nil, ErrInvalidProduct
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	event := ItemAddedToCart{
		CartID:  c.ID,
		UserID:  userID,
		Product: p,
		AddedAt: time.Now(),
	}
	return s.append(ctx, c, EventItemAdded, event)
}

// RemoveItem removes one unit of productID; the line disappears when its quantity reaches zero
func (s *Service) RemoveItem(ctx context.Context, userID string, productID int64) (*Cart, error) {
	if productID <= 0 {
		return nil, ErrInvalidProduct
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.Quantity(productID) == 0 {
		return nil, ErrItemNotInCart
	}

	event := ItemRemovedFromCart{
		CartID:    c.ID,
		UserID:    userID,
		ProductID: productID,
		RemovedAt: time.Now(),
	}
	return s.append(ctx, c, EventItemRemoved, event)
}

// Clear empties the user's cart
func (s *Service) Clear(ctx context.Context, userID string) error {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	event := CartCleared{
		CartID:    c.ID,
		UserID:    userID,
		ClearedAt: time.Now(),
	}
	_, err = s.append(ctx, c, EventCartCleared, event)
	return err
}

// append stores the event, applies it to c and snapshots when the threshold is hit
func (s *Service) append(ctx context.Context, c *Cart, eventType string, data any) (*Cart, error) {
	stored, err := s.eventStore.Append(ctx, c.ID, AggregateType, eventType, data)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEvent(*stored); err != nil {
		return nil, err
	}

	if err := aggregate.MaybeSnapshot(ctx, s.eventStore, c, AggregateType); err != nil {
		s.logger.Warn("snapshot failed", zap.String("cart_id", c.ID), zap.Error(err))
	}
	return c, nil
}
