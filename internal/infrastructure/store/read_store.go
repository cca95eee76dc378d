package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/storefront/internal/readmodel"
)

// ReadStore is an in-memory read model store
type ReadStore struct {
	mu        sync.RWMutex
	checkouts map[string]readmodel.CheckoutReadModel
}

func NewReadStore() *ReadStore {
	return &ReadStore{
		checkouts: make(map[string]readmodel.CheckoutReadModel),
	}
}

func (rs *ReadStore) SetCheckout(_ context.Context, c *readmodel.CheckoutReadModel) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.checkouts[c.ID] = clone(c)
	return nil
}

func (rs *ReadStore) GetCheckout(_ context.Context, id string) (*readmodel.CheckoutReadModel, bool, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	c, ok := rs.checkouts[id]
	if !ok {
		return nil, false, nil
	}
	out := clone(&c)
	return &out, true, nil
}

func (rs *ReadStore) ListCheckouts(_ context.Context, filter CheckoutFilter) ([]*readmodel.CheckoutReadModel, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	var out []*readmodel.CheckoutReadModel
	for _, c := range rs.checkouts {
		if !filter.matches(&c) {
			continue
		}
		cp := clone(&c)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (rs *ReadStore) UpdateCheckout(_ context.Context, id string, fn func(c *readmodel.CheckoutReadModel)) (bool, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	current, ok := rs.checkouts[id]
	if !ok {
		return false, nil
	}
	updated := clone(&current)
	fn(&updated)
	rs.checkouts[id] = updated
	return true, nil
}

func clone(c *readmodel.CheckoutReadModel) readmodel.CheckoutReadModel {
	out := *c
	out.Items = append([]readmodel.CheckoutItemReadModel(nil), c.Items...)
	out.AdjustedProducts = append([]int64(nil), c.AdjustedProducts...)
	return out
}
