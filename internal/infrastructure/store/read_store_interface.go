package store

import (
	"context"

	"github.com/example/storefront/internal/readmodel"
)

// CheckoutFilter narrows ListCheckouts; zero values match everything
type CheckoutFilter struct {
	UserID              string
	NeedsReconciliation bool
}

// ReadStoreInterface defines the interface for read model storage
type ReadStoreInterface interface {
	SetCheckout(ctx context.Context, c *readmodel.CheckoutReadModel) error
	GetCheckout(ctx context.Context, id string) (*readmodel.CheckoutReadModel, bool, error)

	// ListCheckouts returns matching checkouts, newest first
	ListCheckouts(ctx context.Context, filter CheckoutFilter) ([]*readmodel.CheckoutReadModel, error)

	// UpdateCheckout applies fn to the stored model; returns false if it does not exist
	UpdateCheckout(ctx context.Context, id string, fn func(c *readmodel.CheckoutReadModel)) (bool, error)
}

func (f CheckoutFilter) matches(c *readmodel.CheckoutReadModel) bool {
	if f.UserID != "" && c.UserID != f.UserID {
		return false
	}
	if f.NeedsReconciliation && !c.NeedsReconciliation {
		return false
	}
	return true
}
