package mocks

import (
	"context"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/readmodel"
)

// MockReadStore wraps the in-memory read store and records calls
type MockReadStore struct {
	*store.ReadStore

	SetCalls    []string
	UpdateCalls []string
	ListErr     error
}

// NewMockReadStore creates a new MockReadStore
func NewMockReadStore() *MockReadStore {
	return &MockReadStore{ReadStore: store.NewReadStore()}
}

func (m *MockReadStore) SetCheckout(ctx context.Context, c *readmodel.CheckoutReadModel) error {
	m.SetCalls = append(m.SetCalls, c.ID)
	return m.ReadStore.SetCheckout(ctx, c)
}

func (m *MockReadStore) UpdateCheckout(ctx context.Context, id string, fn func(c *readmodel.CheckoutReadModel)) (bool, error) {
	m.UpdateCalls = append(m.UpdateCalls, id)
	return m.ReadStore.UpdateCheckout(ctx, id, fn)
}

func (m *MockReadStore) ListCheckouts(ctx context.Context, filter store.CheckoutFilter) ([]*readmodel.CheckoutReadModel, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.ReadStore.ListCheckouts(ctx, filter)
}
