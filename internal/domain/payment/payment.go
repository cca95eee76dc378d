package payment

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a payment record owned by the payment service
type Payment struct {
	ID             string            `json:"id,omitempty"`
	CartID         string            `json:"cartId"`
	UserID         string            `json:"userId"`
	Amount         decimal.Decimal   `json:"amount"`
	InventoryItems []json.RawMessage `json:"inventoryItems"`
	PaymentDate    time.Time         `json:"paymentDate"`
}

// Total sums the amounts of a payment history
func Total(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}
