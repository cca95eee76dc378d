package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOrderService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore, zap.NewNop())
	return service, eventStore
}

func testPlacement() Placement {
	return Placement{
		UserID:  "user-123",
		Email:   "buyer@example.com",
		Address: "Main Street 1",
		Items: []OrderItem{
			{ProductID: 1, Name: "Boot", Quantity: 2, Price: decimal.NewFromInt(10)},
			{ProductID: 2, Name: "Sock", Quantity: 1, Price: decimal.NewFromInt(5)},
		},
		Amount: decimal.NewFromInt(25),
	}
}

func placeOrder(t *testing.T, service *Service) *Order {
	t.Helper()
	o, err := service.Place(context.Background(), testPlacement())
	require.NoError(t, err)
	return o
}

// ============================================
// Place
// ============================================

func TestService_Place_Success(t *testing.T) {
	service, eventStore := newTestOrderService()

	o := placeOrder(t, service)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "user-123", o.UserID)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, decimal.NewFromInt(25).Equal(o.Amount))
	assert.Equal(t, 1, o.Version)

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventOrderPlaced, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
}

func TestService_Place_KeepsGivenID(t *testing.T) {
	service, _ := newTestOrderService()
	p := testPlacement()
	p.OrderID = "attempt-1"

	o, err := service.Place(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, "attempt-1", o.ID)
}

func TestService_Place_EmptyItems(t *testing.T) {
	service, eventStore := newTestOrderService()
	p := testPlacement()
	p.Items = nil

	o, err := service.Place(context.Background(), p)

	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Nil(t, o)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_Place_EventStoreError(t *testing.T) {
	service, eventStore := newTestOrderService()
	eventStore.AppendErr = errors.New("database error")

	_, err := service.Place(context.Background(), testPlacement())

	assert.Error(t, err)
}

// ============================================
// Transitions
// ============================================

func TestOrderLifecycle_HappyPath(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()
	o := placeOrder(t, service)

	require.NoError(t, service.Pay(ctx, o.ID, "8"))
	require.NoError(t, service.Ship(ctx, o.ID, "8"))
	require.NoError(t, service.AdjustStock(ctx, o.ID, 1, 3))
	require.NoError(t, service.AdjustStock(ctx, o.ID, 2, 9))
	require.NoError(t, service.Complete(ctx, o.ID))

	got, err := service.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "8", got.PaymentID)
	assert.Equal(t, "8", got.DeliveryID)
	assert.Equal(t, []int64{1, 2}, got.AdjustedProducts)
	assert.False(t, got.NeedsReconciliation)
	assert.Equal(t, 6, got.Version)
}

func TestService_Complete_EventIsSelfContained(t *testing.T) {
	service, eventStore := newTestOrderService()
	ctx := context.Background()
	o := placeOrder(t, service)
	require.NoError(t, service.Pay(ctx, o.ID, "p1"))
	require.NoError(t, service.Ship(ctx, o.ID, "d1"))

	require.NoError(t, service.Complete(ctx, o.ID))

	last := eventStore.AppendCalls[len(eventStore.AppendCalls)-1]
	data := last.Data.(OrderCompleted)
	assert.Equal(t, "buyer@example.com", data.Email)
	assert.Equal(t, "p1", data.PaymentID)
	assert.Equal(t, "d1", data.DeliveryID)
	assert.Len(t, data.Items, 2)
	assert.True(t, decimal.NewFromInt(25).Equal(data.Amount))
}

func TestService_Pay_OrderNotFound(t *testing.T) {
	service, _ := newTestOrderService()

	err := service.Pay(context.Background(), "missing", "1")

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestService_Ship_FromPending(t *testing.T) {
	service, _ := newTestOrderService()
	o := placeOrder(t, service)

	err := service.Ship(context.Background(), o.ID, "1")

	assert.ErrorIs(t, err, ErrOrderNotPaid)
}

func TestService_AdjustStock_RequiresShipped(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()
	o := placeOrder(t, service)
	require.NoError(t, service.Pay(ctx, o.ID, "1"))

	err := service.AdjustStock(ctx, o.ID, 1, 0)

	assert.ErrorIs(t, err, ErrNotShipped)
}

func TestService_Complete_FromPaid(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()
	o := placeOrder(t, service)
	require.NoError(t, service.Pay(ctx, o.ID, "1"))

	err := service.Complete(ctx, o.ID)

	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_Fail_Reconciliation(t *testing.T) {
	tests := []struct {
		name      string
		advance   func(ctx context.Context, s *Service, id string)
		step      string
		reconcile bool
	}{
		{
			name:      "payment failed",
			advance:   func(context.Context, *Service, string) {},
			step:      "payment",
			reconcile: false,
		},
		{
			name: "delivery failed leaves orphan payment",
			advance: func(ctx context.Context, s *Service, id string) {
				_ = s.Pay(ctx, id, "7")
			},
			step:      "delivery",
			reconcile: true,
		},
		{
			name: "inventory failed leaves partial stock",
			advance: func(ctx context.Context, s *Service, id string) {
				_ = s.Pay(ctx, id, "7")
				_ = s.Ship(ctx, id, "7")
				_ = s.AdjustStock(ctx, id, 1, 3)
			},
			step:      "inventory",
			reconcile: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestOrderService()
			ctx := context.Background()
			o := placeOrder(t, service)
			tt.advance(ctx, service, o.ID)

			require.NoError(t, service.Fail(ctx, o.ID, tt.step, 500, "boom"))

			got, err := service.Get(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusFailed, got.Status)
			assert.Equal(t, tt.step, got.FailedStep)
			assert.Equal(t, "boom", got.FailureReason)
			assert.Equal(t, tt.reconcile, got.NeedsReconciliation)
		})
	}
}

func TestService_TerminalStates(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	failed := placeOrder(t, service)
	require.NoError(t, service.Fail(ctx, failed.ID, "payment", 502, "down"))
	assert.ErrorIs(t, service.Pay(ctx, failed.ID, "1"), ErrOrderFailed)
	assert.ErrorIs(t, service.Fail(ctx, failed.ID, "payment", 502, "again"), ErrOrderFailed)

	done := placeOrder(t, service)
	require.NoError(t, service.Pay(ctx, done.ID, "1"))
	require.NoError(t, service.Ship(ctx, done.ID, "1"))
	require.NoError(t, service.Complete(ctx, done.ID))
	assert.ErrorIs(t, service.Fail(ctx, done.ID, "inventory", 0, "late"), ErrOrderCompleted)
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		expected bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusFailed, true},
		{StatusPaid, StatusShipped, true},
		{StatusPaid, StatusCompleted, false},
		{StatusShipped, StatusCompleted, true},
		{StatusShipped, StatusFailed, true},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusPaid, false},
	}

	for _, tt := range tests {
		o := &Order{Status: tt.from}
		assert.Equal(t, tt.expected, o.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

// ============================================
// Snapshots
// ============================================

func TestService_SnapshotCreatedAtThreshold(t *testing.T) {
	service, eventStore := newTestOrderService()
	ctx := context.Background()
	o := placeOrder(t, service)
	require.NoError(t, service.Pay(ctx, o.ID, "1"))
	require.NoError(t, service.Ship(ctx, o.ID, "1"))

	for i := 0; i < store.SnapshotThreshold-3; i++ {
		require.NoError(t, service.AdjustStock(ctx, o.ID, int64(i+1), i))
	}

	require.Len(t, eventStore.SaveSnapshotCalls, 1)
	snap := eventStore.SaveSnapshotCalls[0]
	assert.Equal(t, store.SnapshotThreshold, snap.Version)
	assert.Equal(t, AggregateType, snap.AggregateType)

	var state Order
	require.NoError(t, json.Unmarshal(snap.State, &state))
	assert.Equal(t, StatusShipped, state.Status)
	assert.Len(t, state.AdjustedProducts, store.SnapshotThreshold-3)
}

func TestService_LoadOrderFromSnapshotWithSubsequentEvents(t *testing.T) {
	service, eventStore := newTestOrderService()
	ctx := context.Background()

	state, err := json.Marshal(Order{
		ID:      "order-snap",
		UserID:  "user-1",
		Status:  StatusShipped,
		Version: 10,
	})
	require.NoError(t, err)
	require.NoError(t, eventStore.SaveSnapshot(ctx, &store.Snapshot{
		AggregateID:   "order-snap",
		AggregateType: AggregateType,
		Version:       10,
		State:         state,
		CreatedAt:     time.Now(),
	}))
	for i := 0; i < 10; i++ {
		require.NoError(t, eventStore.AddEvent("order-snap", AggregateType, "filler", struct{}{}))
	}
	require.NoError(t, eventStore.AddEvent("order-snap", AggregateType, EventOrderCompleted, OrderCompleted{
		OrderID:     "order-snap",
		CompletedAt: time.Now(),
	}))

	got, err := service.Get(ctx, "order-snap")

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 11, got.Version)
}
