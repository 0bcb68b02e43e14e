package draft

import (
	"errors"
	"fmt"
)

// Sentinel errors so callers can branch on the business failure instead of
// string-matching messages.
var (
	ErrInvalidQuantity      = errors.New("quantity must be greater than zero")
	ErrInsufficientStock    = errors.New("insufficient stock for requested quantity")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrUnknownPaymentMethod = errors.New("payment method not found")
	ErrMissingClient        = errors.New("no client selected")
	ErrEmptyOrder           = errors.New("order has no items")
	ErrMissingPayment       = errors.New("order has no payments")
	ErrPaymentMismatch      = errors.New("payment total does not match order total")
	ErrItemNotFound         = errors.New("line item not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrFinalizeInFlight     = errors.New("finalize already in progress")
	ErrNotInitialized       = errors.New("draft not initialized")
)

// ValidationError wraps a sentinel with operator-facing details.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
