package iorderrepo

import (
	"context"

	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/service/models/status"
)

// IOrderRepository is the sole writer of persisted order state. All
// components obtain and mutate orders through these operations.
type IOrderRepository interface {
	// Create assigns id, order number and timestamps and persists the
	// draft atomically: either a fully-formed order is visible to
	// subsequent reads, or none is.
	Create(ctx context.Context, draft order.Draft) (order.Order, error)

	// GetByID fetches by primary key. A miss returns
	// apperr.ErrOrderNotFound, a normal outcome.
	GetByID(ctx context.Context, id string) (order.Order, error)

	// GetByNumber fetches by the human-facing order number.
	GetByNumber(ctx context.Context, number string) (order.Order, error)

	// ListByUser returns all orders of a user, newest first. An empty
	// slice, not an error, when the user has none.
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)

	// UpdateOrderStatus validates the transition against the lifecycle
	// table before writing and refreshes updatedAt.
	UpdateOrderStatus(ctx context.Context, id string, next status.OrderStatus) (order.Order, error)

	// UpdatePaymentStatus writes the payment status, sets the gateway
	// payment ref when non-empty (never overwrites with empty), and
	// refreshes updatedAt.
	UpdatePaymentStatus(ctx context.Context, id string, next status.PaymentStatus, gatewayPaymentRef string) (order.Order, error)
}
