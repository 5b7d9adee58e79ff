package trackorder

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/nellaishop/order/internal/service/services/ordersvc"
	"github.com/nellaishop/order/internal/transport/http/respond"
)

type service interface {
	Track(ctx context.Context, token string) (ordersvc.TrackingView, error)
}

type trackOrderRequest struct {
	Token string `schema:"token,required"`
}

// TrackOrder resolves a tracking token (order id or order number) to
// an order plus its fulfillment timeline.
func TrackOrder(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &trackOrderRequest{}
	err := decoder.Decode(query, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	view, err := service.Track(r.Context(), query.Token)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error tracking order", "token", query.Token, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, view)
}
