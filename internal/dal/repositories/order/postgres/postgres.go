package postgresrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nellaishop/order/internal/dal/postgres"
	"github.com/nellaishop/order/internal/service/apperr"
	"github.com/nellaishop/order/internal/service/models/currency"
	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/service/models/orderitem"
	"github.com/nellaishop/order/internal/service/models/status"
	"github.com/nellaishop/order/internal/service/ordernum"
)

var orderColumns = []string{
	"id",
	"user_id",
	"order_number",
	"customer_name",
	"customer_email",
	"customer_phone",
	"delivery_address",
	"city",
	"state",
	"pincode",
	"items",
	"subtotal",
	"delivery_fee",
	"total_amount",
	"currency",
	"payment_method",
	"payment_status",
	"order_status",
	"gateway_order_ref",
	"gateway_payment_ref",
	"created_at",
	"updated_at",
}

// OrderDal represents the order row as stored.
type OrderDal struct {
	Id                string
	UserId            string
	OrderNumber       string
	CustomerName      string
	CustomerEmail     string
	CustomerPhone     string
	DeliveryAddress   string
	City              string
	State             string
	Pincode           string
	Items             []byte
	Subtotal          int64
	DeliveryFee       int64
	TotalAmount       int64
	Currency          string
	PaymentMethod     string
	PaymentStatus     string
	OrderStatus       string
	GatewayOrderRef   string
	GatewayPaymentRef string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (d *OrderDal) scan(row pgx.Row) error {
	return row.Scan(
		&d.Id,
		&d.UserId,
		&d.OrderNumber,
		&d.CustomerName,
		&d.CustomerEmail,
		&d.CustomerPhone,
		&d.DeliveryAddress,
		&d.City,
		&d.State,
		&d.Pincode,
		&d.Items,
		&d.Subtotal,
		&d.DeliveryFee,
		&d.TotalAmount,
		&d.Currency,
		&d.PaymentMethod,
		&d.PaymentStatus,
		&d.OrderStatus,
		&d.GatewayOrderRef,
		&d.GatewayPaymentRef,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
}

// ToModel converts OrderDal to the service layer Order model.
func (d *OrderDal) ToModel() (*order.Order, error) {
	cur, err := currency.ParseCurrency(d.Currency)
	if err != nil {
		return nil, err
	}

	var items []orderitem.OrderItem
	if len(d.Items) > 0 {
		if err := json.Unmarshal(d.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}

	return &order.Order{
		ID:                d.Id,
		UserID:            d.UserId,
		Number:            d.OrderNumber,
		CustomerName:      d.CustomerName,
		CustomerEmail:     d.CustomerEmail,
		CustomerPhone:     d.CustomerPhone,
		DeliveryAddress:   d.DeliveryAddress,
		City:              d.City,
		State:             d.State,
		Pincode:           d.Pincode,
		Items:             items,
		Subtotal:          d.Subtotal,
		DeliveryFee:       d.DeliveryFee,
		TotalAmount:       d.TotalAmount,
		Currency:          cur,
		PaymentMethod:     order.PaymentMethod(d.PaymentMethod),
		PaymentStatus:     status.PaymentStatus(d.PaymentStatus),
		OrderStatus:       status.OrderStatus(d.OrderStatus),
		GatewayOrderRef:   d.GatewayOrderRef,
		GatewayPaymentRef: d.GatewayPaymentRef,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

type PostgresOrderRepository struct {
	conn   postgres.Querier
	numGen *ordernum.Generator
	now    func() time.Time
	newID  func() string
}

type option func(*PostgresOrderRepository)

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) option {
	return func(r *PostgresOrderRepository) {
		r.now = now
	}
}

// WithIDGenerator injects the primary key source.
func WithIDGenerator(newID func() string) option {
	return func(r *PostgresOrderRepository) {
		r.newID = newID
	}
}

func NewPostgresOrderRepository(conn postgres.Querier, numGen *ordernum.Generator, opts ...option) *PostgresOrderRepository {
	r := &PostgresOrderRepository{
		conn:   conn,
		numGen: numGen,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create assigns identity, number and timestamps and inserts the order
// in a single atomic write.
func (r *PostgresOrderRepository) Create(ctx context.Context, draft order.Draft) (order.Order, error) {
	if err := draft.Validate(); err != nil {
		return order.Order{}, err
	}

	now := r.now()
	id := r.newID()
	number := r.numGen.Next()

	cur := draft.Currency
	if cur == "" {
		cur = currency.CurrencyINR
	}

	items, err := json.Marshal(draft.Items)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to encode order items: %w", err)
	}

	query, args, err := sq.Insert("orders").
		Columns(orderColumns...).
		Values(
			id,
			draft.UserID,
			number,
			draft.CustomerName,
			draft.CustomerEmail,
			draft.CustomerPhone,
			draft.DeliveryAddress,
			draft.City,
			draft.State,
			draft.Pincode,
			items,
			draft.Subtotal,
			draft.DeliveryFee,
			draft.TotalAmount,
			cur.String(),
			draft.PaymentMethod.String(),
			status.PaymentPending.String(),
			status.OrderPlaced.String(),
			draft.GatewayOrderRef,
			"",
			now,
			now,
		).
		Suffix(returningClause()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	return r.scanOne(ctx, "create order", id, query, args)
}

// GetByID fetches an order by primary key.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.scanOne(ctx, "get order by id", id, query, args)
}

// GetByNumber fetches an order by its human-facing number.
func (r *PostgresOrderRepository) GetByNumber(ctx context.Context, number string) (order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"order_number": number}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.scanOne(ctx, "get order by number", number, query, args)
}

// ListByUser returns a user's orders, most recent first.
func (r *PostgresOrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "list orders by user", Err: err}
	}
	defer rows.Close()

	result := []order.Order{}
	for rows.Next() {
		var dal OrderDal
		if err := dal.scan(rows); err != nil {
			return nil, &apperr.PersistenceError{Op: "list orders by user", Err: err}
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, &apperr.PersistenceError{Op: "list orders by user", Err: err}
	}

	return result, nil
}

// UpdateOrderStatus validates the requested transition against the
// current row, then writes the new status. The check runs against the
// freshly locked row so a racing writer fails with
// InvalidTransitionError instead of clobbering a terminal state.
func (r *PostgresOrderRepository) UpdateOrderStatus(ctx context.Context, id string, next status.OrderStatus) (order.Order, error) {
	if !next.Valid() {
		return order.Order{}, &apperr.InvalidTransitionError{OrderID: id, From: "", To: next.String()}
	}

	current, err := r.lockStatus(ctx, id)
	if err != nil {
		return order.Order{}, err
	}

	if !current.CanTransitionTo(next) {
		return order.Order{}, &apperr.InvalidTransitionError{
			OrderID: id,
			From:    current.String(),
			To:      next.String(),
		}
	}

	query, args, err := sq.Update("orders").
		Set("order_status", next.String()).
		Set("updated_at", r.now()).
		Where(sq.Eq{"id": id}).
		Suffix(returningClause()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build update query: %w", err)
	}

	return r.scanOne(ctx, "update order status", id, query, args)
}

// UpdatePaymentStatus writes the payment status and, when provided, the
// gateway payment ref. An already-set ref is never overwritten with an
// empty value.
func (r *PostgresOrderRepository) UpdatePaymentStatus(ctx context.Context, id string, next status.PaymentStatus, gatewayPaymentRef string) (order.Order, error) {
	if !next.Valid() {
		return order.Order{}, &apperr.PersistenceError{
			Op:      "update payment status",
			OrderID: id,
			Err:     fmt.Errorf("unknown payment status %q", next),
		}
	}

	builder := sq.Update("orders").
		Set("payment_status", next.String()).
		Set("updated_at", r.now()).
		Where(sq.Eq{"id": id})

	if gatewayPaymentRef != "" {
		builder = builder.Set("gateway_payment_ref", gatewayPaymentRef)
	}

	query, args, err := builder.
		Suffix(returningClause()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build update query: %w", err)
	}

	return r.scanOne(ctx, "update payment status", id, query, args)
}

func (r *PostgresOrderRepository) lockStatus(ctx context.Context, id string) (status.OrderStatus, error) {
	query, args, err := sq.Select("order_status").
		From("orders").
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build select query: %w", err)
	}

	var raw string
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.ErrOrderNotFound
		}

		return "", &apperr.PersistenceError{Op: "lock order status", OrderID: id, Err: err}
	}

	return status.OrderStatus(raw), nil
}

func (r *PostgresOrderRepository) scanOne(ctx context.Context, op, id, query string, args []interface{}) (order.Order, error) {
	var dal OrderDal
	if err := dal.scan(r.conn.QueryRow(ctx, query, args...)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, apperr.ErrOrderNotFound
		}

		return order.Order{}, &apperr.PersistenceError{Op: op, OrderID: id, Err: err}
	}

	model, err := dal.ToModel()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to convert order dal to model: %w", err)
	}

	return *model, nil
}

func returningClause() string {
	clause := "RETURNING " + orderColumns[0]
	for _, col := range orderColumns[1:] {
		clause += ", " + col
	}

	return clause
}
