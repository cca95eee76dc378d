package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/review"
	"github.com/example/storefront/internal/infrastructure/rest"
	"github.com/example/storefront/internal/query"
	"github.com/sony/gobreaker/v2"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain and collaborator errors to a response status
func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrCheckoutInProgress),
		errors.Is(err, command.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrInvalidAddress),
		errors.Is(err, review.ErrEmptyComment),
		errors.Is(err, review.ErrInvalidRating):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cart.ErrInvalidProduct):
		return http.StatusBadRequest
	case errors.Is(err, cart.ErrItemNotInCart),
		errors.Is(err, query.ErrCheckoutNotFound):
		return http.StatusNotFound
	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	}

	var se *rest.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return se.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func messageFor(status int, err error) string {
	switch status {
	case http.StatusUnauthorized:
		return "session expired, please log in again"
	case http.StatusBadGateway:
		return "upstream service failed, please try again"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	case http.StatusInternalServerError:
		return "internal error"
	}
	// Collaborator errors carry internal URLs and response bodies
	var se *rest.StatusError
	if errors.As(err, &se) {
		return strings.ToLower(http.StatusText(status))
	}
	return err.Error()
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	respondJSON(w, status, errorResponse{Error: messageFor(status, err)})
}
