package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/query"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *zap.Logger) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logger.Named("api"),
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	s := session(r)
	products, err := h.queryHandler.ListProducts(r.Context(), s)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var cmd command.AddComment
	if !decode(w, r, &cmd) {
		return
	}
	cmd.ProductID = productID

	c, err := h.cmdHandler.AddComment(r.Context(), session(r), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteComment{CommentID: chi.URLParam(r, "commentId")}
	if err := h.cmdHandler.DeleteComment(r.Context(), session(r), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AddRating(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var cmd command.AddRating
	if !decode(w, r, &cmd) {
		return
	}
	cmd.ProductID = productID

	rating, err := h.cmdHandler.AddRating(r.Context(), session(r), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rating)
}

func (h *Handlers) DeleteRating(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteRating{RatingID: chi.URLParam(r, "ratingId")}
	if err := h.cmdHandler.DeleteRating(r.Context(), session(r), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.queryHandler.GetCart(r.Context(), session(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if !decode(w, r, &cmd) {
		return
	}
	s := session(r)
	if _, err := h.cmdHandler.AddToCart(r.Context(), s, cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	h.GetCart(w, r)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.cmdHandler.RemoveFromCart(r.Context(), session(r), command.RemoveFromCart{ProductID: productID}); err != nil {
		h.fail(w, r, err)
		return
	}
	h.GetCart(w, r)
}

// Checkout Handlers

func (h *Handlers) GetCheckout(w http.ResponseWriter, r *http.Request) {
	preview, err := h.queryHandler.CheckoutPreview(r.Context(), session(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

type orderResponse struct {
	AttemptID  string          `json:"attempt_id"`
	Amount     decimal.Decimal `json:"amount"`
	PaymentID  string          `json:"payment_id,omitempty"`
	DeliveryID string          `json:"delivery_id,omitempty"`
	Adjusted   []int64         `json:"adjusted_products"`
	Route      checkout.Route  `json:"route"`
}

const orderFailedMessage = "order could not be placed, please try again"

type orderFailure struct {
	Error      string         `json:"error"`
	Step       checkout.Step  `json:"step"`
	StatusCode int            `json:"status_code,omitempty"`
	Route      checkout.Route `json:"route"`
	AttemptID  string         `json:"attempt_id"`
}

func toOrderResponse(res *checkout.Result) orderResponse {
	out := orderResponse{
		AttemptID: res.AttemptID,
		Amount:    res.Amount,
		Adjusted:  res.Adjusted,
		Route:     res.Route,
	}
	if out.Adjusted == nil {
		out.Adjusted = []int64{}
	}
	if res.Payment != nil {
		out.PaymentID = res.Payment.ID
	}
	if res.Delivery != nil {
		out.DeliveryID = res.Delivery.ID
	}
	return out
}

// PlaceOrder answers 201 on success and 502 with the failed step and next route
// when a collaborator call fails.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if !decode(w, r, &cmd) {
		return
	}

	res, err := h.cmdHandler.PlaceOrder(r.Context(), session(r), cmd)
	var se *checkout.StepError
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, toOrderResponse(res))
	case errors.As(err, &se):
		status := http.StatusBadGateway
		if se.StatusCode == http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}
		message := orderFailedMessage
		if status == http.StatusUnauthorized {
			message = messageFor(status, err)
		}
		failure := orderFailure{
			Error:      message,
			Step:       se.Step,
			StatusCode: se.StatusCode,
			Route:      checkout.RouteCheckout,
		}
		if res != nil {
			failure.Route = res.Route
			failure.AttemptID = res.AttemptID
		}
		h.logger.Warn("place order failed",
			zap.String("step", string(se.Step)),
			zap.Int("status_code", se.StatusCode),
			zap.String("attempt_id", failure.AttemptID),
			zap.Error(err),
		)
		respondJSON(w, status, failure)
	default:
		h.fail(w, r, err)
	}
}

// GetOrders lists the caller's own checkout attempts
func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	checkouts, err := h.queryHandler.ListCheckouts(r.Context(), session(r).UserID, false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, checkouts)
}

// History Handlers

func (h *Handlers) GetDeliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.queryHandler.ListDeliveries(r.Context(), session(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, deliveries)
}

func (h *Handlers) GetPayments(w http.ResponseWriter, r *http.Request) {
	history, err := h.queryHandler.ListPayments(r.Context(), session(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Admin Handlers

func (h *Handlers) GetAllCheckouts(w http.ResponseWriter, r *http.Request) {
	reconcile, _ := strconv.ParseBool(r.URL.Query().Get("reconcile"))
	checkouts, err := h.queryHandler.ListCheckouts(r.Context(), r.URL.Query().Get("user_id"), reconcile)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, checkouts)
}

func (h *Handlers) GetCheckoutAttempt(w http.ResponseWriter, r *http.Request) {
	c, err := h.queryHandler.GetCheckout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Helper functions

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	respondError(w, err)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

// session is always present behind middleware.Auth
func session(r *http.Request) auth.Session {
	s, _ := auth.SessionFrom(r.Context())
	return s
}
