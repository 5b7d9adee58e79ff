package updatestatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/service/models/status"
	"github.com/nellaishop/order/internal/transport/http/respond"
)

type service interface {
	SetOrderStatus(ctx context.Context, id string, next status.OrderStatus) (order.Order, error)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Validate validates the update status request.
func (r *updateStatusRequest) Validate() error {
	return validator.New().Struct(r)
}

// UpdateStatus advances an order through fulfillment. Illegal jumps
// are rejected by the state machine.
func UpdateStatus(w http.ResponseWriter, r *http.Request, service service) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "order id is required", http.StatusBadRequest)

		return
	}

	statusReq := updateStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&statusReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for update status", "error", err)

		return
	}

	if err := statusReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for update status", "error", err)

		return
	}

	next, err := status.ParseOrderStatus(statusReq.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order status", "status", statusReq.Status, "error", err)

		return
	}

	updated, err := service.SetOrderStatus(r.Context(), id, next)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error updating order status", "order_id", id, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, updated)
}
