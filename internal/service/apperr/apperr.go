// Package apperr defines the error taxonomy of the order core. Every
// repository and coordinator failure is one of these types, carrying
// enough context (operation, order id or number) to log and to render a
// human-readable message.
package apperr

import (
	"errors"
	"fmt"
)

// ErrOrderNotFound marks a miss on lookup by id or number. A miss is a
// normal outcome distinct from a transport failure.
var ErrOrderNotFound = errors.New("order not found")

// ValidationError reports malformed or missing order fields. It is
// always raised before any persistence attempt.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

// PersistenceError reports that the store rejected a write or could not
// be reached. The core never retries these.
type PersistenceError struct {
	Op      string
	OrderID string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s (order %s): %v", e.Op, e.OrderID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InvalidTransitionError reports an illegal status change. It is always
// rejected, never coerced.
type InvalidTransitionError struct {
	OrderID string
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: illegal transition %s -> %s", e.OrderID, e.From, e.To)
}

// GatewayUnavailableError reports that the payment gateway could not be
// reached or rejected the request. Checkout aborts and no order is
// persisted when this is raised during intent creation.
type GatewayUnavailableError struct {
	Op  string
	Err error
}

func (e *GatewayUnavailableError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayUnavailableError) Unwrap() error { return e.Err }

// ReconciliationError reports that the gateway captured a payment but
// the follow-up status write failed. Money has moved, so this must be
// surfaced distinctly and routed to a support path; the core never
// retries the write itself.
type ReconciliationError struct {
	OrderID           string
	GatewayPaymentRef string
	Err               error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf(
		"order %s: payment %s captured but confirmation write failed: %v",
		e.OrderID, e.GatewayPaymentRef, e.Err,
	)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
