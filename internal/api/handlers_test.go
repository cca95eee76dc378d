package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/rest"
	"github.com/example/storefront/internal/infrastructure/rest/resttest"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/projection"
	"github.com/example/storefront/internal/query"
	"github.com/example/storefront/internal/readmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key-that-is-long-enough"

type testEnv struct {
	router    http.Handler
	srv       *resttest.Server
	userToken string
	admin     string
}

// newTestEnv wires the whole API the way cmd/api does in memory mode,
// with the collaborator services faked by resttest.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	jwtService := auth.NewJWTService(testSecret, 15*time.Minute)
	userToken, _, err := jwtService.GenerateAccessToken("u1", "u1@example.com", "customer")
	require.NoError(t, err)
	adminToken, _, err := jwtService.GenerateAccessToken("a1", "admin@example.com", auth.RoleAdmin)
	require.NoError(t, err)

	srv := resttest.NewServer()
	srv.Token = userToken
	t.Cleanup(srv.Close)

	readStore := store.NewReadStore()
	eventStore := store.NewEventStore(projection.NewInlinePublisher(logger, projection.NewProjector(readStore, logger)))

	opts := rest.Options{}
	inventory := rest.NewInventoryClient(srv.URL, opts)
	payments := rest.NewPaymentClient(srv.URL, opts)
	deliveries := rest.NewDeliveryClient(srv.URL, opts)
	reviews := rest.NewReviewsClient(srv.URL, opts)
	carts := cart.NewService(eventStore, logger)

	placer := checkout.New(checkout.Deps{
		Payments:   payments,
		Deliveries: deliveries,
		Inventory:  inventory,
		Carts:      carts,
		Recorder:   order.NewJournal(order.NewService(eventStore, logger), logger),
		Logger:     logger,
	})

	handlers := api.NewHandlers(
		command.NewHandler(inventory, reviews, carts, placer, logger),
		query.NewHandler(inventory, reviews, carts, deliveries, payments, readStore, logger),
		logger,
	)
	router := api.NewRouter(handlers, api.RouterConfig{Validator: jwtService, Logger: logger})

	return &testEnv{router: router, srv: srv, userToken: userToken, admin: adminToken}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) fillCart(t *testing.T) {
	t.Helper()
	e.srv.AddProduct(1, `{"id":1,"name":"Shirt","price":20,"quantity":5}`)
	e.srv.AddProduct(2, `{"id":2,"name":"Hat","price":7.5,"quantity":3}`)
	for _, id := range []int64{1, 1, 2} {
		rec := e.do(t, http.MethodPost, "/api/cart/items", e.userToken, map[string]int64{"productId": id})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/products", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetProducts(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddProduct(1, `{"id":1,"name":"Shirt","price":20,"quantity":5}`)

	rec := env.do(t, http.MethodGet, "/api/products", env.userToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	products := decodeBody[[]query.ProductReadModel](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, "Shirt", products[0].Name)
	assert.Equal(t, 5, products[0].Stock)
}

func TestAddToCart(t *testing.T) {
	env := newTestEnv(t)
	env.fillCart(t)

	rec := env.do(t, http.MethodGet, "/api/cart", env.userToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeBody[query.CartReadModel](t, rec)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "47.5", c.Total.String())
}

func TestAddToCart_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddProduct(1, `{"id":1,"name":"Shirt","price":20,"quantity":0}`)

	rec := env.do(t, http.MethodPost, "/api/cart/items", env.userToken, map[string]int64{"productId": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart/items", env.userToken, map[string]int64{"productId": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart/items", env.userToken, map[string]int64{"productId": 42})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrder_Success(t *testing.T) {
	env := newTestEnv(t)
	env.fillCart(t)

	rec := env.do(t, http.MethodPost, "/api/orders", env.userToken, map[string]string{"address": "1 Main St"})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, string(checkout.RouteConfirmation), body["route"])
	assert.NotEmpty(t, body["payment_id"])
	assert.NotEmpty(t, body["delivery_id"])
	assert.Equal(t, []int64{1, 2}, env.srv.Puts())

	// Cart is cleared
	rec = env.do(t, http.MethodGet, "/api/cart", env.userToken, nil)
	assert.Empty(t, decodeBody[query.CartReadModel](t, rec).Items)

	// Projected synchronously through the inline publisher
	rec = env.do(t, http.MethodGet, "/api/orders", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decodeBody[[]readmodel.CheckoutReadModel](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, string(order.StatusCompleted), orders[0].Status)
	assert.Equal(t, body["attempt_id"], orders[0].ID)
}

func TestPlaceOrder_DeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fillCart(t)
	env.srv.Fail(resttest.AddDelivery, http.StatusInternalServerError)

	rec := env.do(t, http.MethodPost, "/api/orders", env.userToken, map[string]string{"address": "1 Main St"})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, string(checkout.StepDelivery), body["step"])
	assert.Equal(t, string(checkout.RouteCheckout), body["route"])
	assert.EqualValues(t, http.StatusInternalServerError, body["status_code"])
	assert.Equal(t, "order could not be placed, please try again", body["error"])
	assert.NotEmpty(t, body["attempt_id"])

	// Payment is not compensated
	assert.Len(t, env.srv.Payments(), 1)
	assert.Empty(t, env.srv.Puts())

	rec = env.do(t, http.MethodGet, "/api/admin/checkouts?reconcile=true", env.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	failed := decodeBody[[]readmodel.CheckoutReadModel](t, rec)
	require.Len(t, failed, 1)
	assert.Equal(t, string(order.StatusFailed), failed[0].Status)
	assert.Equal(t, string(checkout.StepDelivery), failed[0].FailedStep)
}

func TestPlaceOrder_PaymentFailureHidesCollaboratorDetails(t *testing.T) {
	env := newTestEnv(t)
	env.fillCart(t)
	env.srv.Fail(resttest.AddPayment, http.StatusInternalServerError)

	rec := env.do(t, http.MethodPost, "/api/orders", env.userToken, map[string]string{"address": "1 Main St"})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "order could not be placed, please try again", body["error"])
	assert.Equal(t, string(checkout.StepPayment), body["step"])
	assert.EqualValues(t, http.StatusInternalServerError, body["status_code"])
	assert.NotContains(t, rec.Body.String(), env.srv.URL)
	assert.NotContains(t, rec.Body.String(), "/CartPayment")
}

func TestPlaceOrder_SessionExpired(t *testing.T) {
	env := newTestEnv(t)
	env.fillCart(t)
	env.srv.Token = "someone-else"

	rec := env.do(t, http.MethodPost, "/api/orders", env.userToken, map[string]string{"address": "1 Main St"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session expired, please log in again", decodeBody[map[string]any](t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), env.srv.URL)
}

func TestCollaboratorNotFound_HidesDetails(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/items", env.userToken, map[string]int64{"productId": 42})

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), env.srv.URL)
}

func TestPlaceOrder_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/orders", env.userToken, map[string]string{"address": "1 Main St"})
	assert.Equal(t, http.StatusConflict, rec.Code, "empty cart")

	env.fillCart(t)
	rec = env.do(t, http.MethodPost, "/api/orders", env.userToken, map[string]string{"address": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, env.srv.Calls(resttest.AddPayment))
}

func TestGetCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/checkout", env.userToken, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCollaboratorUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	env.srv.Token = "someone-else"

	rec := env.do(t, http.MethodGet, "/api/products", env.userToken, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session expired, please log in again", decodeBody[map[string]string](t, rec)["error"])
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/admin/checkouts", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/checkouts", env.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/checkouts/missing", env.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviews(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/products/1/comments", env.userToken, map[string]string{"content": "Nice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/products/1/ratings", env.userToken, map[string]int{"value": 9})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/products/1/comments/999", env.userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
