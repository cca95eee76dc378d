package checkout

import (
	"context"
	"strconv"

	"github.com/example/storefront/internal/auth"
)

// IDAllocator decides the id proposed for a new payment and its delivery.
// An empty id lets the owning service assign one.
type IDAllocator interface {
	Allocate(ctx context.Context, s auth.Session) (string, error)
}

// ServerAssigned proposes no id
type ServerAssigned struct{}

func (ServerAssigned) Allocate(context.Context, auth.Session) (string, error) {
	return "", nil
}

// MaxScan proposes one more than the highest delivery id visible to the session.
// Two sessions scanning at the same time get the same id; only use it against
// services that cannot assign ids themselves.
type MaxScan struct {
	Deliveries DeliveryLister
}

func (m MaxScan) Allocate(ctx context.Context, s auth.Session) (string, error) {
	deliveries, err := m.Deliveries.ListDeliveries(ctx, s)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(deliveries))
	for i, d := range deliveries {
		ids[i] = d.ID
	}
	return strconv.FormatInt(NextID(ids), 10), nil
}

// NextID returns max(ids)+1, or 1 when there are no numeric ids. Non-numeric ids are ignored.
func NextID(ids []string) int64 {
	var highest int64
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}
