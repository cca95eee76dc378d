package query

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/payment"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/domain/review"
	"github.com/example/storefront/internal/infrastructure/rest"
	"github.com/example/storefront/internal/infrastructure/rest/resttest"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/example/storefront/internal/readmodel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var session = auth.Session{UserID: "u1", Email: "u1@example.com", Token: "tok"}

type testEnv struct {
	handler   *Handler
	srv       *resttest.Server
	carts     *cart.Service
	readStore *mocks.MockReadStore
}

func newTestQueryHandler(t *testing.T) *testEnv {
	t.Helper()
	srv := resttest.NewServer()
	t.Cleanup(srv.Close)

	carts := cart.NewService(mocks.NewMockEventStore(), zap.NewNop())
	readStore := mocks.NewMockReadStore()
	opts := rest.Options{}
	h := NewHandler(
		rest.NewInventoryClient(srv.URL, opts),
		rest.NewReviewsClient(srv.URL, opts),
		carts,
		rest.NewDeliveryClient(srv.URL, opts),
		rest.NewPaymentClient(srv.URL, opts),
		readStore,
		zap.NewNop(),
	)
	return &testEnv{handler: h, srv: srv, carts: carts, readStore: readStore}
}

func (e *testEnv) addToCart(t *testing.T, id int64, name, price string, qty int) {
	t.Helper()
	p := product.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Quantity: 10}
	for i := 0; i < qty; i++ {
		_, err := e.carts.AddItem(context.Background(), session.UserID, p)
		require.NoError(t, err)
	}
}

// ============================================
// Catalog Tests
// ============================================

func TestHandler_ListProducts(t *testing.T) {
	env := newTestQueryHandler(t)
	env.srv.AddProduct(1, `{"id":1,"name":"Shirt","price":20,"quantity":3}`)
	env.srv.AddProduct(2, `{"id":2,"name":"Hat","price":5,"quantity":1}`)
	env.addToCart(t, 1, "Shirt", "20", 2)

	reviews := rest.NewReviewsClient(env.srv.URL, rest.Options{})
	ctx := context.Background()
	for _, v := range []int{5, 4} {
		_, err := reviews.AddRating(ctx, session, review.Rating{ProductID: 1, UserID: "u1", Value: v})
		require.NoError(t, err)
	}

	products, err := env.handler.ListProducts(ctx, session)

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 3, products[0].Stock)
	assert.Equal(t, 1, products[0].Available)
	assert.Equal(t, "4.5", products[0].AverageRating.String())
	assert.Equal(t, 2, products[0].RatingCount)
	assert.Equal(t, 1, products[1].Available)
	assert.Equal(t, "0", products[1].AverageRating.String())
	assert.Empty(t, products[1].Comments)
}

func TestHandler_ListProducts_ReviewFailureKeepsProduct(t *testing.T) {
	env := newTestQueryHandler(t)
	env.srv.AddProduct(1, `{"id":1,"name":"Shirt","price":20,"quantity":3}`)
	env.srv.Fail(resttest.ListRatings, http.StatusInternalServerError)

	products, err := env.handler.ListProducts(context.Background(), session)

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "0", products[0].AverageRating.String())
	assert.Equal(t, 3, products[0].Available)
}

func TestHandler_ListProducts_InventoryDown(t *testing.T) {
	env := newTestQueryHandler(t)
	env.srv.Fail(resttest.ListInventory, http.StatusServiceUnavailable)

	_, err := env.handler.ListProducts(context.Background(), session)

	assert.True(t, rest.IsStatus(err, http.StatusServiceUnavailable))
}

// ============================================
// Cart and Checkout Preview Tests
// ============================================

func TestHandler_GetCart(t *testing.T) {
	env := newTestQueryHandler(t)
	env.addToCart(t, 1, "Shirt", "19.99", 2)
	env.addToCart(t, 2, "Hat", "5", 1)

	c, err := env.handler.GetCart(context.Background(), session.UserID)

	require.NoError(t, err)
	assert.Equal(t, cart.GetCartID(session.UserID), c.ID)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "39.98", c.Items[0].Subtotal.String())
	assert.Equal(t, "44.98", c.Total.String())
}

func TestHandler_GetCart_Empty(t *testing.T) {
	env := newTestQueryHandler(t)

	c, err := env.handler.GetCart(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
}

func TestHandler_CheckoutPreview_EmptyCart(t *testing.T) {
	env := newTestQueryHandler(t)

	_, err := env.handler.CheckoutPreview(context.Background(), session)

	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Zero(t, env.srv.Calls(resttest.ListDeliveries))
}

func TestHandler_CheckoutPreview_PrefillsLatestAddress(t *testing.T) {
	env := newTestQueryHandler(t)
	env.addToCart(t, 1, "Shirt", "20", 1)
	env.srv.SeedDelivery(map[string]any{"id": "1", "userId": "u1", "address": "Old Street 1", "deliveryTime": "2026-01-01T10:00:00Z"})
	env.srv.SeedDelivery(map[string]any{"id": "2", "userId": "u1", "address": "New Street 2", "deliveryTime": "2026-03-01T10:00:00Z"})
	env.srv.SeedDelivery(map[string]any{"id": "3", "userId": "u2", "address": "Not Mine 3", "deliveryTime": "2026-05-01T10:00:00Z"})
	env.srv.SeedDelivery(map[string]any{"id": "4", "userId": "u1", "address": "Middle Street 4", "deliveryTime": "2026-02-01T10:00:00Z"})

	preview, err := env.handler.CheckoutPreview(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, "New Street 2", preview.Address)
	assert.Equal(t, "20", preview.Cart.Total.String())
}

func TestHandler_CheckoutPreview_FirstOrder(t *testing.T) {
	env := newTestQueryHandler(t)
	env.addToCart(t, 1, "Shirt", "20", 1)

	preview, err := env.handler.CheckoutPreview(context.Background(), session)

	require.NoError(t, err)
	assert.Empty(t, preview.Address)
}

func TestHandler_CheckoutPreview_DeliveriesDown(t *testing.T) {
	env := newTestQueryHandler(t)
	env.addToCart(t, 1, "Shirt", "20", 1)
	env.srv.Fail(resttest.ListDeliveries, http.StatusBadGateway)

	preview, err := env.handler.CheckoutPreview(context.Background(), session)

	require.NoError(t, err)
	assert.Empty(t, preview.Address)
	assert.Len(t, preview.Cart.Items, 1)
}

// ============================================
// History Tests
// ============================================

func TestHandler_ListDeliveries_OnlyMineNewestFirst(t *testing.T) {
	env := newTestQueryHandler(t)
	env.srv.SeedDelivery(map[string]any{"id": "1", "userId": "u1", "address": "A", "deliveryTime": "2026-01-01T10:00:00Z"})
	env.srv.SeedDelivery(map[string]any{"id": "2", "userId": "u2", "address": "B", "deliveryTime": "2026-02-01T10:00:00Z"})
	env.srv.SeedDelivery(map[string]any{"id": "3", "userId": "u1", "address": "C", "deliveryTime": "2026-03-01T10:00:00Z"})

	deliveries, err := env.handler.ListDeliveries(context.Background(), session)

	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.Equal(t, "3", deliveries[0].ID)
	assert.Equal(t, "1", deliveries[1].ID)
}

func TestHandler_ListPayments(t *testing.T) {
	env := newTestQueryHandler(t)
	payments := rest.NewPaymentClient(env.srv.URL, rest.Options{})
	ctx := context.Background()
	for _, amount := range []string{"10.10", "5.25"} {
		_, err := payments.CreatePayment(ctx, session, payment.Payment{
			UserID: session.UserID,
			CartID: session.UserID,
			Amount: decimal.RequireFromString(amount),
		})
		require.NoError(t, err)
	}

	history, err := env.handler.ListPayments(ctx, session)

	require.NoError(t, err)
	assert.Len(t, history.Payments, 2)
	assert.Equal(t, "15.35", history.Total.String())
}

func TestHandler_ListPayments_Unauthorized(t *testing.T) {
	env := newTestQueryHandler(t)
	env.srv.Token = "other"

	_, err := env.handler.ListPayments(context.Background(), session)

	assert.True(t, rest.IsStatus(err, http.StatusUnauthorized))
}

// ============================================
// Checkout Journal Tests
// ============================================

func TestHandler_ListCheckouts(t *testing.T) {
	env := newTestQueryHandler(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, env.readStore.SetCheckout(ctx, &readmodel.CheckoutReadModel{ID: "a", UserID: "u1", Status: "completed", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, env.readStore.SetCheckout(ctx, &readmodel.CheckoutReadModel{ID: "b", UserID: "u1", Status: "failed", NeedsReconciliation: true, CreatedAt: now}))
	require.NoError(t, env.readStore.SetCheckout(ctx, &readmodel.CheckoutReadModel{ID: "c", UserID: "u2", Status: "failed", CreatedAt: now}))

	all, err := env.handler.ListCheckouts(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	reconcile, err := env.handler.ListCheckouts(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, reconcile, 1)
	assert.Equal(t, "b", reconcile[0].ID)

	mine, err := env.handler.ListCheckouts(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "b", mine[0].ID)
}

func TestHandler_GetCheckout(t *testing.T) {
	env := newTestQueryHandler(t)
	ctx := context.Background()
	require.NoError(t, env.readStore.SetCheckout(ctx, &readmodel.CheckoutReadModel{ID: "a", UserID: "u1"}))

	c, err := env.handler.GetCheckout(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)

	_, err = env.handler.GetCheckout(ctx, "missing")
	assert.ErrorIs(t, err, ErrCheckoutNotFound)
}
