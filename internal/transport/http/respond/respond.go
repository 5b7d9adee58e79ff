// Package respond maps core errors onto the HTTP surface so every
// handler reports the taxonomy the same way.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nellaishop/order/internal/service/apperr"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

// Error translates a core error to its status code and body. A lookup
// miss renders as a distinct not-found state, never as a transport
// failure; a reconciliation failure carries its own code because money
// has moved and support must be engaged.
func Error(w http.ResponseWriter, err error) {
	var (
		validationErr     *apperr.ValidationError
		transitionErr     *apperr.InvalidTransitionError
		gatewayErr        *apperr.GatewayUnavailableError
		reconciliationErr *apperr.ReconciliationError
	)

	switch {
	case errors.As(err, &validationErr):
		JSON(w, http.StatusBadRequest, errorBody{Error: validationErr.Error()})
	case errors.Is(err, apperr.ErrOrderNotFound):
		JSON(w, http.StatusNotFound, errorBody{Error: "order not found"})
	case errors.As(err, &transitionErr):
		JSON(w, http.StatusConflict, errorBody{
			Error:   transitionErr.Error(),
			OrderID: transitionErr.OrderID,
		})
	case errors.As(err, &reconciliationErr):
		JSON(w, http.StatusInternalServerError, errorBody{
			Error:   "payment captured, order confirmation pending. Please contact support.",
			Code:    "payment_captured_confirmation_pending",
			OrderID: reconciliationErr.OrderID,
		})
	case errors.As(err, &gatewayErr):
		JSON(w, http.StatusBadGateway, errorBody{Error: "failed to initialize payment. Please try again."})
	default:
		JSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}
