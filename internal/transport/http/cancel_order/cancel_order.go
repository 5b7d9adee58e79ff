package cancelorder

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/transport/http/respond"
)

type service interface {
	Cancel(ctx context.Context, id string) (order.Order, error)
}

// CancelOrder cancels an order while it is still cancellable. Past that
// point the state machine rejects the request with a conflict.
func CancelOrder(w http.ResponseWriter, r *http.Request, service service) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "order id is required", http.StatusBadRequest)

		return
	}

	cancelled, err := service.Cancel(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error cancelling order", "order_id", id, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, cancelled)
}
