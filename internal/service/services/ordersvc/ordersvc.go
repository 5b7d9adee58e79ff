package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nellaishop/order/internal/dal/interfaces/iorderrepo"
	"github.com/nellaishop/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/nellaishop/order/internal/dal/postgres"
	"github.com/nellaishop/order/internal/dal/uow"
	"github.com/nellaishop/order/internal/service/apperr"
	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/service/models/orderitem"
	"github.com/nellaishop/order/internal/service/models/outbox"
	"github.com/nellaishop/order/internal/service/models/status"
	"github.com/nellaishop/order/internal/service/ordernum"
	"github.com/nellaishop/order/internal/service/pricing"
)

const (
	EventOrderCreated        = "order.created"
	EventOrderStatusChanged  = "order.status.changed"
	EventPaymentStatusChange = "order.payment.changed"
)

// Tokens longer than an order number are tried as primary keys first;
// everything falls through to a number lookup.
const orderNumberTokenLimit = 10

const defaultOutboxMaxRetries = 5

// OrderService is the narrow surface UI glue calls into: checkout,
// history, tracking, cancellation and the fulfillment progression hook.
type OrderService struct {
	pgClient         *postgres.Client
	numGen           *ordernum.Generator
	pricer           *pricing.Engine
	newUOW           func() unitOfWork
	outboxMaxRetries int
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{outboxMaxRetries: defaultOutboxMaxRetries}
	// An explicit zero disables retries, so the config value is read as
	// set-or-absent rather than compared to zero.
	if viper.IsSet("rabbitmq.outbox.max_retries") {
		s.outboxMaxRetries = viper.GetInt("rabbitmq.outbox.max_retries")
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.pricer == nil {
		s.pricer = pricing.NewEngine()
	}
	if s.numGen == nil {
		s.numGen = ordernum.NewGenerator()
	}
	if s.newUOW == nil {
		if s.pgClient == nil {
			panic("ordersvc: postgres client is required")
		}
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(s.pgClient, s.numGen)
		}
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithPricingEngine sets the delivery-fee engine.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPricingEngine(pricer *pricing.Engine) option {
	return func(s *OrderService) {
		s.pricer = pricer
	}
}

// WithOrderNumberGenerator sets the order number generator.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderNumberGenerator(numGen *ordernum.Generator) option {
	return func(s *OrderService) {
		s.numGen = numGen
	}
}

// WithUnitOfWorkFactory overrides the unit-of-work constructor.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// CheckoutCommand is a checkout submission: the customer snapshot and
// the cart lines captured by value.
type CheckoutCommand struct {
	UserID          string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryAddress string
	City            string
	State           string
	Pincode         string
	Items           []orderitem.OrderItem
	PaymentMethod   order.PaymentMethod
}

// BuildDraft prices the cart and assembles the order draft. The money
// triple is computed here once and never recomputed after creation.
func (s *OrderService) BuildDraft(cmd CheckoutCommand) (order.Draft, error) {
	quote := s.pricer.QuoteFor(orderitem.Subtotal(cmd.Items))

	draft := order.Draft{
		UserID:          cmd.UserID,
		CustomerName:    cmd.CustomerName,
		CustomerEmail:   cmd.CustomerEmail,
		CustomerPhone:   cmd.CustomerPhone,
		DeliveryAddress: cmd.DeliveryAddress,
		City:            cmd.City,
		State:           cmd.State,
		Pincode:         cmd.Pincode,
		Items:           cmd.Items,
		Subtotal:        quote.Subtotal,
		DeliveryFee:     quote.DeliveryFee,
		TotalAmount:     quote.TotalAmount,
		PaymentMethod:   cmd.PaymentMethod,
	}
	if err := draft.Validate(); err != nil {
		return order.Draft{}, err
	}

	return draft, nil
}

// Create persists the draft and its order.created event in one
// transaction. Used directly by the COD path; the payment coordinator
// calls it after reserving a gateway intent.
func (s *OrderService) Create(ctx context.Context, draft order.Draft) (order.Order, error) {
	if err := draft.Validate(); err != nil {
		return order.Order{}, err
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, &apperr.PersistenceError{Op: "create order", Err: err}
	}
	defer func() { _ = work.Rollback(ctx) }()

	created, err := work.OrderRepository().Create(ctx, draft)
	if err != nil {
		return order.Order{}, err
	}

	if err := s.enqueueEvent(ctx, work.OutboxRepository(), EventOrderCreated, created); err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, &apperr.PersistenceError{Op: "create order", OrderID: created.ID, Err: err}
	}

	return created, nil
}

// GetByID fetches a single order by primary key.
func (s *OrderService) GetByID(ctx context.Context, id string) (order.Order, error) {
	return s.newUOW().OrderRepository().GetByID(ctx, id)
}

// ListByUser returns the user's order history, most recent first.
func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return s.newUOW().OrderRepository().ListByUser(ctx, userID)
}

// Resolve maps a user-supplied token to exactly one order: tokens that
// look like primary keys try id lookup first, everything falls through
// to the human-facing number. A full miss is apperr.ErrOrderNotFound.
func (s *OrderService) Resolve(ctx context.Context, token string) (order.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return order.Order{}, apperr.ErrOrderNotFound
	}

	repo := s.newUOW().OrderRepository()

	if len(token) > orderNumberTokenLimit {
		found, err := repo.GetByID(ctx, token)
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, apperr.ErrOrderNotFound) {
			return order.Order{}, err
		}
	}

	return repo.GetByNumber(ctx, token)
}

// TrackingStep is one entry of the fulfillment timeline.
type TrackingStep struct {
	Key       status.OrderStatus `json:"key"`
	Completed bool               `json:"completed"`
	Active    bool               `json:"active"`
}

// TrackingView is a resolved order plus its timeline.
type TrackingView struct {
	Order order.Order    `json:"order"`
	Steps []TrackingStep `json:"steps"`
}

// Track resolves a token and derives the timeline from the lifecycle
// step ordering. Cancelled orders show no completed steps.
func (s *OrderService) Track(ctx context.Context, token string) (TrackingView, error) {
	found, err := s.Resolve(ctx, token)
	if err != nil {
		return TrackingView{}, err
	}

	current := found.OrderStatus.StepIndex()
	steps := make([]TrackingStep, 0, len(status.TrackingSteps))
	for i, step := range status.TrackingSteps {
		steps = append(steps, TrackingStep{
			Key:       step,
			Completed: current >= 0 && i <= current,
			Active:    i == current,
		})
	}

	return TrackingView{Order: found, Steps: steps}, nil
}

// SetOrderStatus advances fulfillment through the state machine and
// records the status change event atomically with the write.
func (s *OrderService) SetOrderStatus(ctx context.Context, id string, next status.OrderStatus) (order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, &apperr.PersistenceError{Op: "update order status", OrderID: id, Err: err}
	}
	defer func() { _ = work.Rollback(ctx) }()

	updated, err := work.OrderRepository().UpdateOrderStatus(ctx, id, next)
	if err != nil {
		return order.Order{}, err
	}

	if err := s.enqueueEvent(ctx, work.OutboxRepository(), EventOrderStatusChanged, updated); err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, &apperr.PersistenceError{Op: "update order status", OrderID: id, Err: err}
	}

	return updated, nil
}

// Cancel routes through the state machine: legal only while the order
// is placed or confirmed, and terminal once applied.
func (s *OrderService) Cancel(ctx context.Context, id string) (order.Order, error) {
	return s.SetOrderStatus(ctx, id, status.OrderCancelled)
}

// SetPaymentStatus records a payment result and, when provided, the
// gateway payment ref, with its event in the same transaction.
func (s *OrderService) SetPaymentStatus(ctx context.Context, id string, next status.PaymentStatus, gatewayPaymentRef string) (order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, &apperr.PersistenceError{Op: "update payment status", OrderID: id, Err: err}
	}
	defer func() { _ = work.Rollback(ctx) }()

	updated, err := work.OrderRepository().UpdatePaymentStatus(ctx, id, next, gatewayPaymentRef)
	if err != nil {
		return order.Order{}, err
	}

	if err := s.enqueueEvent(ctx, work.OutboxRepository(), EventPaymentStatusChange, updated); err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, &apperr.PersistenceError{Op: "update payment status", OrderID: id, Err: err}
	}

	return updated, nil
}

type orderEvent struct {
	Type  string      `json:"type"`
	Order order.Order `json:"order"`
}

func (s *OrderService) enqueueEvent(ctx context.Context, repo ioutboxrepo.IOutboxRepository, eventType string, o order.Order) error {
	payload, err := json.Marshal(orderEvent{Type: eventType, Order: o})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	now := time.Now()

	return repo.Insert(ctx, outbox.Message{
		QueueName:    viper.GetString("rabbitmq.orders.queue"),
		ExchangeName: viper.GetString("rabbitmq.orders.exchange"),
		RoutingKey:   eventType,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   s.outboxMaxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	})
}
