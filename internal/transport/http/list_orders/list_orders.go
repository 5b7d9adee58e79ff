package listorders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/transport/http/respond"
)

type service interface {
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
}

type listOrdersRequest struct {
	UserID string `schema:"userId,required"`
}

// ListOrders returns the user's order history, most recent first. A
// user with no orders gets an empty list, not an error.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &listOrdersRequest{}
	err := decoder.Decode(query, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	orders, err := service.ListByUser(r.Context(), query.UserID)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error listing orders", "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, orders)
}
