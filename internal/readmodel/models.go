package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutItemReadModel is one purchased line of a checkout attempt
type CheckoutItemReadModel struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CheckoutReadModel is the operator view of one checkout attempt.
// NeedsReconciliation marks attempts that failed after mutating a collaborator
// (orphan payment, or a delivery with partially adjusted stock).
type CheckoutReadModel struct {
	ID                  string                  `json:"id"`
	UserID              string                  `json:"user_id"`
	Status              string                  `json:"status"`
	Amount              decimal.Decimal         `json:"amount"`
	Address             string                  `json:"address"`
	Items               []CheckoutItemReadModel `json:"items"`
	PaymentID           string                  `json:"payment_id,omitempty"`
	DeliveryID          string                  `json:"delivery_id,omitempty"`
	AdjustedProducts    []int64                 `json:"adjusted_products"`
	FailedStep          string                  `json:"failed_step,omitempty"`
	FailureReason       string                  `json:"failure_reason,omitempty"`
	NeedsReconciliation bool                    `json:"needs_reconciliation"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}
