package payments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nellaishop/order/internal/service/apperr"
	"github.com/nellaishop/order/internal/service/models/currency"
	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/service/models/status"
)

// orderStore is the slice of the order service the coordinator writes
// through. It never touches storage directly.
type orderStore interface {
	Create(ctx context.Context, draft order.Draft) (order.Order, error)
	SetPaymentStatus(ctx context.Context, id string, next status.PaymentStatus, gatewayPaymentRef string) (order.Order, error)
}

// Coordinator runs the two-phase online-payment flow. The pending
// order is persisted before the customer can complete payment, so a
// payment success with no matching order is impossible.
type Coordinator struct {
	gateway Gateway
	orders  orderStore
}

func NewCoordinator(gateway Gateway, orders orderStore) *Coordinator {
	return &Coordinator{
		gateway: gateway,
		orders:  orders,
	}
}

// Checkout is the result of the reserve-and-persist phase: everything
// the payment UI needs to open the gateway modal.
type Checkout struct {
	Order           order.Order       `json:"order"`
	GatewayOrderRef string            `json:"gatewayOrderRef"`
	Amount          int64             `json:"amount"`
	Currency        currency.Currency `json:"currency"`
	Prefill         Prefill           `json:"prefill"`
}

// Begin reserves a gateway intent for the draft's total and persists
// the pending order pegged to it. The draft is validated before the
// gateway is touched, and the order is created exactly once per
// submission; a retried gateway handoff reuses the same order.
func (c *Coordinator) Begin(ctx context.Context, draft order.Draft) (Checkout, error) {
	draft.PaymentMethod = order.PaymentMethodOnline
	if draft.Currency == "" {
		draft.Currency = currency.CurrencyINR
	}
	if err := draft.Validate(); err != nil {
		return Checkout{}, err
	}

	intent, err := c.gateway.CreateIntent(ctx, draft.TotalAmount, draft.Currency)
	if err != nil {
		return Checkout{}, &apperr.GatewayUnavailableError{Op: "create intent", Err: err}
	}

	draft.GatewayOrderRef = intent.GatewayOrderRef

	created, err := c.orders.Create(ctx, draft)
	if err != nil {
		return Checkout{}, err
	}

	slog.Info("pending online order created",
		"order_id", created.ID,
		"order_number", created.Number,
		"gateway_order_ref", intent.GatewayOrderRef,
	)

	return Checkout{
		Order:           created,
		GatewayOrderRef: intent.GatewayOrderRef,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Prefill: Prefill{
			Name:    created.CustomerName,
			Email:   created.CustomerEmail,
			Contact: created.CustomerPhone,
		},
	}, nil
}

// Reconcile folds the payment UI's single outcome into the persisted
// order.
//
// paid: the confirmation write runs once; if it fails, money has moved
// while the order is still pending, so the failure surfaces as a
// ReconciliationError and is never retried here.
// cancelled: no write; the customer may retry the whole flow, and
// cancelling the order itself goes through the normal cancel operation.
// errored: no write; surfaced as a payment-initialization failure.
func (c *Coordinator) Reconcile(ctx context.Context, orderID string, result CollectResult) (order.Order, error) {
	switch result.Outcome {
	case OutcomePaid:
		updated, err := c.orders.SetPaymentStatus(ctx, orderID, status.PaymentPaid, result.GatewayPaymentRef)
		if err != nil {
			slog.Error("payment captured but confirmation write failed",
				"order_id", orderID,
				"gateway_payment_ref", result.GatewayPaymentRef,
				"error", err,
			)

			return order.Order{}, &apperr.ReconciliationError{
				OrderID:           orderID,
				GatewayPaymentRef: result.GatewayPaymentRef,
				Err:               err,
			}
		}

		return updated, nil

	case OutcomeCancelled:
		slog.Info("payment cancelled by customer", "order_id", orderID)

		return order.Order{}, ErrPaymentCancelled

	case OutcomeErrored:
		slog.Error("payment attempt errored", "order_id", orderID, "reason", result.Reason)

		return order.Order{}, &apperr.GatewayUnavailableError{
			Op:  "collect payment",
			Err: fmt.Errorf("gateway reported: %s", result.Reason),
		}

	default:
		return order.Order{}, fmt.Errorf("unknown payment outcome %q for order %s", result.Outcome, orderID)
	}
}

// Run drives the whole flow against a blocking payment UI: reserve,
// persist pending, collect exactly one outcome, reconcile. Callers that
// split the handoff over the wire use Begin and Reconcile directly.
func (c *Coordinator) Run(ctx context.Context, draft order.Draft, ui PaymentUI) (order.Order, error) {
	checkout, err := c.Begin(ctx, draft)
	if err != nil {
		return order.Order{}, err
	}

	result, err := ui.Collect(ctx, CollectRequest{
		GatewayOrderRef: checkout.GatewayOrderRef,
		Amount:          checkout.Amount,
		Currency:        checkout.Currency,
		Prefill:         checkout.Prefill,
	})
	if err != nil {
		// The pending order stays inspectable; nothing was captured.
		return checkout.Order, &apperr.GatewayUnavailableError{Op: "collect payment", Err: err}
	}

	reconciled, err := c.Reconcile(ctx, checkout.Order.ID, result)
	if err != nil {
		return checkout.Order, err
	}

	return reconciled, nil
}
