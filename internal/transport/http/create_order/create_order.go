package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nellaishop/order/internal/payments"
	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/service/models/orderitem"
	"github.com/nellaishop/order/internal/service/services/ordersvc"
	"github.com/nellaishop/order/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	BuildDraft(cmd ordersvc.CheckoutCommand) (order.Draft, error)
	Create(ctx context.Context, draft order.Draft) (order.Order, error)
}

type coordinator interface {
	Begin(ctx context.Context, draft order.Draft) (payments.Checkout, error)
}

// itemInCreateOrderRequest represents a cart line in a checkout request.
type itemInCreateOrderRequest struct {
	ItemID    string `json:"itemId"    validate:"required"`
	Name      string `json:"name"      validate:"required"`
	UnitPrice int64  `json:"unitPrice" validate:"gte=0"`
	Quantity  int    `json:"quantity"  validate:"gt=0"`
	ImageURL  string `json:"imageUrl"`
	Unit      string `json:"unit"`
}

// toModel converts itemInCreateOrderRequest to orderitem.OrderItem.
func (r *itemInCreateOrderRequest) toModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ItemID:    r.ItemID,
		Name:      r.Name,
		UnitPrice: r.UnitPrice,
		Quantity:  r.Quantity,
		ImageURL:  r.ImageURL,
		Unit:      r.Unit,
	}
}

// createOrderRequest represents a checkout submission.
type createOrderRequest struct {
	UserID          string                     `json:"userId"          validate:"required"`
	CustomerName    string                     `json:"customerName"    validate:"required"`
	CustomerEmail   string                     `json:"customerEmail"   validate:"required,email"`
	CustomerPhone   string                     `json:"customerPhone"   validate:"required"`
	DeliveryAddress string                     `json:"deliveryAddress" validate:"required"`
	City            string                     `json:"city"            validate:"required"`
	State           string                     `json:"state"           validate:"required"`
	Pincode         string                     `json:"pincode"         validate:"required"`
	PaymentMethod   string                     `json:"paymentMethod"   validate:"required,oneof=cod online"`
	Items           []itemInCreateOrderRequest `json:"items"           validate:"required,min=1,dive"`
}

// Validate validates the checkout request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *createOrderRequest) toCommand() ordersvc.CheckoutCommand {
	items := make([]orderitem.OrderItem, len(r.Items))
	for i := range r.Items {
		items[i] = r.Items[i].toModel()
	}

	return ordersvc.CheckoutCommand{
		UserID:          r.UserID,
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		CustomerPhone:   r.CustomerPhone,
		DeliveryAddress: r.DeliveryAddress,
		City:            r.City,
		State:           r.State,
		Pincode:         r.Pincode,
		Items:           items,
		PaymentMethod:   order.PaymentMethod(r.PaymentMethod),
	}
}

type codResponse struct {
	Order order.Order `json:"order"`
}

// CreateOrder handles a checkout submission. COD orders are persisted
// directly; online orders go through the payment coordinator, which
// reserves a gateway intent first and returns the modal parameters.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service, coordinator coordinator) {
	orderReq := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&orderReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if err := orderReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	draft, err := service.BuildDraft(orderReq.toCommand())
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error building order draft", "error", err)

		return
	}

	if draft.PaymentMethod == order.PaymentMethodOnline {
		checkout, err := coordinator.Begin(r.Context(), draft)
		if err != nil {
			respond.Error(w, err)
			slog.Error("Error beginning online checkout", "error", err)

			return
		}

		respond.JSON(w, http.StatusCreated, checkout)

		return
	}

	created, err := service.Create(r.Context(), draft)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error creating order", "error", err)

		return
	}

	respond.JSON(w, http.StatusCreated, codResponse{Order: created})
}

// CheckoutOnline handles the dedicated online-checkout endpoint. The
// payment method is implied by the route; the body may omit it.
func CheckoutOnline(w http.ResponseWriter, r *http.Request, service service, coordinator coordinator) {
	orderReq := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&orderReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for online checkout", "error", err)

		return
	}

	orderReq.PaymentMethod = string(order.PaymentMethodOnline)

	if err := orderReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for online checkout", "error", err)

		return
	}

	draft, err := service.BuildDraft(orderReq.toCommand())
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error building order draft", "error", err)

		return
	}

	checkout, err := coordinator.Begin(r.Context(), draft)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error beginning online checkout", "error", err)

		return
	}

	respond.JSON(w, http.StatusCreated, checkout)
}
