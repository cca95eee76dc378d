package cart

import (
	"time"

	"github.com/example/storefront/internal/domain/product"
)

const (
	EventItemAdded   = "ItemAddedToCart"
	EventItemRemoved = "ItemRemovedFromCart"
	EventCartCleared = "CartCleared"
)

// ItemAddedToCart adds one unit of a product, carrying the product as seen at add time
type ItemAddedToCart struct {
	CartID  string          `json:"cart_id"`
	UserID  string          `json:"user_id"`
	Product product.Product `json:"product"`
	AddedAt time.Time       `json:"added_at"`
}

// ItemRemovedFromCart removes one unit of a product
type ItemRemovedFromCart struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ProductID int64     `json:"product_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type CartCleared struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ClearedAt time.Time `json:"cleared_at"`
}
