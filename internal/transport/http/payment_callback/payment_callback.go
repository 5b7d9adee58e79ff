package paymentcallback

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nellaishop/order/internal/payments"
	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/transport/http/respond"
)

type coordinator interface {
	Reconcile(ctx context.Context, orderID string, result payments.CollectResult) (order.Order, error)
}

type paymentCallbackRequest struct {
	OrderID           string `json:"orderId"           validate:"required"`
	Outcome           string `json:"outcome"           validate:"required"`
	GatewayPaymentRef string `json:"gatewayPaymentRef"`
	Reason            string `json:"reason"`
}

// Validate validates the payment callback request.
func (r *paymentCallbackRequest) Validate() error {
	return validator.New().Struct(r)
}

type cancelledResponse struct {
	Outcome payments.Outcome `json:"outcome"`
}

// PaymentCallback folds the payment UI's single outcome back into the
// pending order. A customer cancellation is a normal result, not an
// error; the order stays pending and the customer may retry.
func PaymentCallback(w http.ResponseWriter, r *http.Request, coordinator coordinator) {
	callbackReq := paymentCallbackRequest{}
	if err := json.NewDecoder(r.Body).Decode(&callbackReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for payment callback", "error", err)

		return
	}

	if err := callbackReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for payment callback", "error", err)

		return
	}

	outcome := payments.Outcome(callbackReq.Outcome)
	if !outcome.Valid() {
		http.Error(w, "unknown payment outcome", http.StatusBadRequest)
		slog.Error("Unknown payment outcome", "outcome", callbackReq.Outcome)

		return
	}

	reconciled, err := coordinator.Reconcile(r.Context(), callbackReq.OrderID, payments.CollectResult{
		Outcome:           outcome,
		GatewayPaymentRef: callbackReq.GatewayPaymentRef,
		Reason:            callbackReq.Reason,
	})
	if err != nil {
		if errors.Is(err, payments.ErrPaymentCancelled) {
			respond.JSON(w, http.StatusOK, cancelledResponse{Outcome: payments.OutcomeCancelled})

			return
		}

		respond.Error(w, err)
		slog.Error("Error reconciling payment", "order_id", callbackReq.OrderID, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, reconciled)
}
