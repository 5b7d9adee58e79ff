// Package pricing computes the delivery-fee quote applied at checkout
// submission. The money triple it produces is fixed at creation and
// never recomputed afterwards.
package pricing

import "github.com/spf13/viper"

const (
	defaultFreeDeliveryAbove = 500
	defaultDeliveryFee       = 50
)

// Quote is the price breakdown persisted on the order.
type Quote struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"deliveryFee"`
	TotalAmount int64 `json:"totalAmount"`
}

// Engine applies the free-delivery threshold. The threshold is
// inclusive: a subtotal of exactly the threshold ships free.
type Engine struct {
	freeDeliveryAbove int64
	deliveryFee       int64
}

// NewEngine reads the threshold and fee from config, falling back to
// the shop defaults.
func NewEngine() *Engine {
	threshold := viper.GetInt64("orders.pricing.free_delivery_above")
	if threshold == 0 {
		threshold = defaultFreeDeliveryAbove
	}
	fee := viper.GetInt64("orders.pricing.delivery_fee")
	if fee == 0 {
		fee = defaultDeliveryFee
	}

	return &Engine{
		freeDeliveryAbove: threshold,
		deliveryFee:       fee,
	}
}

// NewEngineWith builds an engine with explicit parameters.
func NewEngineWith(freeDeliveryAbove, deliveryFee int64) *Engine {
	return &Engine{
		freeDeliveryAbove: freeDeliveryAbove,
		deliveryFee:       deliveryFee,
	}
}

// QuoteFor prices a cart subtotal.
func (e *Engine) QuoteFor(subtotal int64) Quote {
	fee := e.deliveryFee
	if subtotal >= e.freeDeliveryAbove {
		fee = 0
	}

	return Quote{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		TotalAmount: subtotal + fee,
	}
}
