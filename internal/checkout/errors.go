package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidAddress     = errors.New("delivery address is required")
	ErrCheckoutInProgress = errors.New("a checkout is already in progress for this user")
	ErrMissingID          = errors.New("service returned no id")
)

type Step string

const (
	StepAllocateID Step = "allocate_id"
	StepPayment    Step = "payment"
	StepDelivery   Step = "delivery"
	StepInventory  Step = "inventory"
)

// StepError reports which step of a checkout failed.
// StatusCode is the collaborator's HTTP status, or 0 for transport and local errors.
type StepError struct {
	Step       Step
	StatusCode int
	ProductID  int64
	Err        error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("checkout %s failed", e.Step)
	if e.ProductID != 0 {
		msg += fmt.Sprintf(" for product %d", e.ProductID)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	return msg + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }

// httpStatuser is implemented by collaborator client errors
type httpStatuser interface {
	HTTPStatus() int
}

func stepError(step Step, err error) *StepError {
	se := &StepError{Step: step, Err: err}
	var hs httpStatuser
	if errors.As(err, &hs) {
		se.StatusCode = hs.HTTPStatus()
	}
	return se
}
