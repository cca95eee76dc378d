package product

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

var ErrInvalidRecord = errors.New("invalid inventory record")

// Product is the storefront's read-only copy of an inventory record.
// Record keeps the full record as returned by the inventory service so that
// stock updates republish every field, including ones the storefront does not model.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	Record      json.RawMessage `json:"record,omitempty"`
}

type record struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Quantity    int             `json:"quantity"`
}

// FromRecord parses one inventory record
func FromRecord(raw json.RawMessage) (Product, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	id, err := ParseID(r.ID)
	if err != nil {
		return Product{}, err
	}
	return Product{
		ID:          id,
		Name:        r.Name,
		Price:       r.Price,
		Description: r.Description,
		Image:       r.Image,
		Quantity:    r.Quantity,
		Record:      append(json.RawMessage(nil), raw...),
	}, nil
}

// ParseID accepts an id encoded either as a JSON number or as a numeric string
func ParseID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %s", ErrInvalidRecord, s)
	}
	return id, nil
}

// WithQuantity returns the full record with its quantity field replaced.
// Products built without a record get one synthesized from their known fields.
func (p Product) WithQuantity(quantity int) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(p.Record) > 0 {
		if err := json.Unmarshal(p.Record, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	} else {
		fields["id"] = json.RawMessage(strconv.FormatInt(p.ID, 10))
		fields["name"], _ = json.Marshal(p.Name)
		fields["price"] = json.RawMessage(p.Price.String())
		fields["description"], _ = json.Marshal(p.Description)
		fields["image"], _ = json.Marshal(p.Image)
	}
	fields["quantity"] = json.RawMessage(strconv.Itoa(quantity))
	return json.Marshal(fields)
}
