package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/example/storefront/internal/domain/delivery"
	"github.com/example/storefront/internal/domain/payment"
	"github.com/example/storefront/internal/domain/review"
	"github.com/shopspring/decimal"
)

// flexID accepts ids sent either as JSON strings or numbers and always sends strings
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

func (id flexID) int64() int64 {
	n, _ := strconv.ParseInt(string(id), 10, 64)
	return n
}

type paymentDTO struct {
	ID             flexID            `json:"id,omitempty"`
	CartID         flexID            `json:"cartId"`
	UserID         flexID            `json:"userId"`
	Amount         float64           `json:"amount"`
	InventoryItems []json.RawMessage `json:"inventoryItems"`
	PaymentDate    time.Time         `json:"paymentDate"`
}

func toPaymentDTO(p payment.Payment) paymentDTO {
	items := p.InventoryItems
	if items == nil {
		items = []json.RawMessage{}
	}
	return paymentDTO{
		ID:             flexID(p.ID),
		CartID:         flexID(p.CartID),
		UserID:         flexID(p.UserID),
		Amount:         p.Amount.InexactFloat64(),
		InventoryItems: items,
		PaymentDate:    p.PaymentDate,
	}
}

func (d paymentDTO) toDomain() payment.Payment {
	return payment.Payment{
		ID:             string(d.ID),
		CartID:         string(d.CartID),
		UserID:         string(d.UserID),
		Amount:         decimal.NewFromFloat(d.Amount),
		InventoryItems: d.InventoryItems,
		PaymentDate:    d.PaymentDate,
	}
}

type deliveryDTO struct {
	ID           flexID    `json:"id,omitempty"`
	UserID       flexID    `json:"userId"`
	PaymentID    flexID    `json:"paymentId"`
	Address      string    `json:"address"`
	DeliveryTime time.Time `json:"deliveryTime"`
	GeoX         float64   `json:"geoX"`
	GeoY         float64   `json:"geoY"`
}

func toDeliveryDTO(d delivery.Delivery) deliveryDTO {
	return deliveryDTO{
		ID:           flexID(d.ID),
		UserID:       flexID(d.UserID),
		PaymentID:    flexID(d.PaymentID),
		Address:      d.Address,
		DeliveryTime: d.DeliveryTime,
		GeoX:         d.GeoX,
		GeoY:         d.GeoY,
	}
}

func (d deliveryDTO) toDomain() delivery.Delivery {
	return delivery.Delivery{
		ID:           string(d.ID),
		UserID:       string(d.UserID),
		PaymentID:    string(d.PaymentID),
		Address:      d.Address,
		DeliveryTime: d.DeliveryTime,
		GeoX:         d.GeoX,
		GeoY:         d.GeoY,
	}
}

type commentDTO struct {
	ID        flexID    `json:"id,omitempty"`
	ItemID    flexID    `json:"itemId"`
	UserID    flexID    `json:"userId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func toCommentDTO(c review.Comment) commentDTO {
	return commentDTO{
		ID:        flexID(c.ID),
		ItemID:    flexID(strconv.FormatInt(c.ProductID, 10)),
		UserID:    flexID(c.UserID),
		Content:   c.Content,
		Timestamp: c.Timestamp,
	}
}

func (d commentDTO) toDomain() review.Comment {
	return review.Comment{
		ID:        string(d.ID),
		ProductID: d.ItemID.int64(),
		UserID:    string(d.UserID),
		Content:   d.Content,
		Timestamp: d.Timestamp,
	}
}

type ratingDTO struct {
	ID        flexID    `json:"id,omitempty"`
	ItemID    flexID    `json:"itemId"`
	UserID    flexID    `json:"userId"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func toRatingDTO(r review.Rating) ratingDTO {
	return ratingDTO{
		ID:        flexID(r.ID),
		ItemID:    flexID(strconv.FormatInt(r.ProductID, 10)),
		UserID:    flexID(r.UserID),
		Value:     r.Value,
		Timestamp: r.Timestamp,
	}
}

func (d ratingDTO) toDomain() review.Rating {
	return review.Rating{
		ID:        string(d.ID),
		ProductID: d.ItemID.int64(),
		UserID:    string(d.UserID),
		Value:     d.Value,
		Timestamp: d.Timestamp,
	}
}
