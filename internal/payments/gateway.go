// Package payments drives the online-payment path: reserving a gateway
// intent, persisting the pending order, handing control to the payment
// UI, and reconciling the asynchronous result back into the order.
package payments

import (
	"context"
	"errors"

	"github.com/nellaishop/order/internal/service/models/currency"
)

// ErrPaymentCancelled marks a checkout attempt the customer abandoned
// in the payment UI. The pending order is untouched and the customer
// may retry the whole flow.
var ErrPaymentCancelled = errors.New("payment cancelled by customer")

// Intent is a reserved gateway payment for a known amount. The gateway
// order ref is the provider's identifier, distinct from the internal
// order id.
type Intent struct {
	GatewayOrderRef string            `json:"gatewayOrderRef"`
	Amount          int64             `json:"amount"`
	Currency        currency.Currency `json:"currency"`
}

// Gateway is the external payment provider, a black box reached
// through its create-intent contract.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, cur currency.Currency) (Intent, error)
}

// Prefill carries the customer contact fields handed to the payment UI.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// CollectRequest parameterises one payment-UI attempt.
type CollectRequest struct {
	GatewayOrderRef string
	Amount          int64
	Currency        currency.Currency
	Prefill         Prefill
}

// Outcome is the single result of a payment-UI attempt. Modelling the
// three gateway callbacks as one value makes "at most one outcome per
// attempt" structural.
type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeErrored   Outcome = "errored"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomePaid, OutcomeCancelled, OutcomeErrored:
		return true
	}
	return false
}

// CollectResult is what the payment UI reports back. GatewayPaymentRef
// is set only for OutcomePaid; Reason only for OutcomeErrored.
type CollectResult struct {
	Outcome           Outcome
	GatewayPaymentRef string
	Reason            string
}

// PaymentUI is the collaborator that owns the customer-facing payment
// surface. Collect blocks until exactly one outcome is known; the
// gateway controls how long that takes, and the coordinator must stay
// correct whether it returns in a second or never.
type PaymentUI interface {
	Collect(ctx context.Context, req CollectRequest) (CollectResult, error)
}
