package order

import (
	"time"

	"github.com/nellaishop/order/internal/service/apperr"
	"github.com/nellaishop/order/internal/service/models/currency"
	"github.com/nellaishop/order/internal/service/models/orderitem"
	"github.com/nellaishop/order/internal/service/models/status"
)

// PaymentMethod is fixed at creation and never changes.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodOnline
}

func (m PaymentMethod) String() string { return string(m) }

// Order represents a single customer purchase request: fixed line items,
// price breakdown, delivery target, and mutable fulfillment/payment
// status.
type Order struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Number string `json:"orderNumber"`

	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	DeliveryAddress string `json:"deliveryAddress"`
	City            string `json:"city"`
	State           string `json:"state"`
	Pincode         string `json:"pincode"`

	Items []orderitem.OrderItem `json:"items"`

	Subtotal    int64             `json:"subtotal"`
	DeliveryFee int64             `json:"deliveryFee"`
	TotalAmount int64             `json:"totalAmount"`
	Currency    currency.Currency `json:"currency"`

	PaymentMethod PaymentMethod        `json:"paymentMethod"`
	PaymentStatus status.PaymentStatus `json:"paymentStatus"`
	OrderStatus   status.OrderStatus   `json:"orderStatus"`

	GatewayOrderRef   string `json:"gatewayOrderRef,omitempty"`
	GatewayPaymentRef string `json:"gatewayPaymentRef,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Draft is the field set of an order before the repository assigns
// identity, number, statuses and timestamps.
type Draft struct {
	UserID string

	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryAddress string
	City            string
	State           string
	Pincode         string

	Items []orderitem.OrderItem

	Subtotal    int64
	DeliveryFee int64
	TotalAmount int64
	Currency    currency.Currency

	PaymentMethod PaymentMethod

	// GatewayOrderRef is set by the payment coordinator for online
	// drafts before the order is persisted, so a payment success with
	// no matching order is impossible.
	GatewayOrderRef string
}

// Validate checks the draft before any persistence attempt.
func (d *Draft) Validate() error {
	switch {
	case d.UserID == "":
		return &apperr.ValidationError{Field: "userId", Reason: "is required"}
	case d.CustomerName == "":
		return &apperr.ValidationError{Field: "customerName", Reason: "is required"}
	case d.CustomerEmail == "":
		return &apperr.ValidationError{Field: "customerEmail", Reason: "is required"}
	case d.CustomerPhone == "":
		return &apperr.ValidationError{Field: "customerPhone", Reason: "is required"}
	case d.DeliveryAddress == "":
		return &apperr.ValidationError{Field: "deliveryAddress", Reason: "is required"}
	case d.Pincode == "":
		return &apperr.ValidationError{Field: "pincode", Reason: "is required"}
	case len(d.Items) == 0:
		return &apperr.ValidationError{Field: "items", Reason: "must not be empty"}
	case !d.PaymentMethod.Valid():
		return &apperr.ValidationError{Field: "paymentMethod", Reason: "must be cod or online"}
	case d.Subtotal < 0 || d.DeliveryFee < 0 || d.TotalAmount < 0:
		return &apperr.ValidationError{Field: "amounts", Reason: "must be non-negative"}
	case d.TotalAmount != d.Subtotal+d.DeliveryFee:
		return &apperr.ValidationError{Field: "totalAmount", Reason: "must equal subtotal plus deliveryFee"}
	}
	for _, item := range d.Items {
		if item.Quantity <= 0 {
			return &apperr.ValidationError{Field: "items", Reason: "quantity must be positive"}
		}
		if item.UnitPrice < 0 {
			return &apperr.ValidationError{Field: "items", Reason: "unitPrice must be non-negative"}
		}
	}
	return nil
}
