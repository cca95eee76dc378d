package query

import (
	"time"

	"github.com/example/storefront/internal/domain/review"
	"github.com/shopspring/decimal"
)

// ProductReadModel is one catalog entry enriched with reviews and the stock left for this user
type ProductReadModel struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Image         string           `json:"image,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	Stock         int              `json:"stock"`
	Available     int              `json:"available"`
	AverageRating decimal.Decimal  `json:"average_rating"`
	RatingCount   int              `json:"rating_count"`
	Comments      []review.Comment `json:"comments"`
}

type CartItemReadModel struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartReadModel struct {
	ID     string              `json:"id"`
	UserID string              `json:"user_id"`
	Items  []CartItemReadModel `json:"items"`
	Total  decimal.Decimal     `json:"total"`
}

// CheckoutPreview is shown before placing the order. Address is pre-filled
// from the user's most recent delivery and is empty for a first order.
type CheckoutPreview struct {
	Cart    CartReadModel `json:"cart"`
	Address string        `json:"address"`
}

type DeliveryReadModel struct {
	ID           string    `json:"id"`
	PaymentID    string    `json:"payment_id"`
	Address      string    `json:"address"`
	DeliveryTime time.Time `json:"delivery_time"`
	GeoX         float64   `json:"geo_x"`
	GeoY         float64   `json:"geo_y"`
}

type PaymentReadModel struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Items       int             `json:"items"`
	PaymentDate time.Time       `json:"payment_date"`
}

type PaymentHistory struct {
	Payments []PaymentReadModel `json:"payments"`
	Total    decimal.Decimal    `json:"total"`
}
