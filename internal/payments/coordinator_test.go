package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nellaishop/order/internal/service/apperr"
	"github.com/nellaishop/order/internal/service/models/currency"
	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/service/models/orderitem"
	"github.com/nellaishop/order/internal/service/models/status"
)

type stubGateway struct {
	intent Intent
	err    error
	calls  int
}

func (g *stubGateway) CreateIntent(_ context.Context, amount int64, cur currency.Currency) (Intent, error) {
	g.calls++
	if g.err != nil {
		return Intent{}, g.err
	}
	if g.intent.Amount == 0 {
		g.intent.Amount = amount
	}
	if g.intent.Currency == "" {
		g.intent.Currency = cur
	}
	return g.intent, nil
}

type stubStore struct {
	created        []order.Order
	createErr      error
	setErr         error
	setCalls       int
	lastPaymentRef string
}

func (s *stubStore) Create(_ context.Context, draft order.Draft) (order.Order, error) {
	if s.createErr != nil {
		return order.Order{}, s.createErr
	}

	created := order.Order{
		ID:              "00000000-0000-0000-0000-000000000001",
		UserID:          draft.UserID,
		Number:          "NVS123456",
		CustomerName:    draft.CustomerName,
		CustomerEmail:   draft.CustomerEmail,
		CustomerPhone:   draft.CustomerPhone,
		Items:           draft.Items,
		Subtotal:        draft.Subtotal,
		DeliveryFee:     draft.DeliveryFee,
		TotalAmount:     draft.TotalAmount,
		Currency:        draft.Currency,
		PaymentMethod:   draft.PaymentMethod,
		PaymentStatus:   status.PaymentPending,
		OrderStatus:     status.OrderPlaced,
		GatewayOrderRef: draft.GatewayOrderRef,
	}
	s.created = append(s.created, created)

	return created, nil
}

func (s *stubStore) SetPaymentStatus(_ context.Context, id string, next status.PaymentStatus, gatewayPaymentRef string) (order.Order, error) {
	s.setCalls++
	if s.setErr != nil {
		return order.Order{}, s.setErr
	}

	if len(s.created) == 0 {
		return order.Order{}, errors.New("no order created")
	}
	updated := s.created[len(s.created)-1]
	updated.PaymentStatus = next
	if gatewayPaymentRef != "" {
		updated.GatewayPaymentRef = gatewayPaymentRef
	}
	s.lastPaymentRef = gatewayPaymentRef

	return updated, nil
}

type stubUI struct {
	result CollectResult
	err    error
	calls  int
}

func (u *stubUI) Collect(_ context.Context, _ CollectRequest) (CollectResult, error) {
	u.calls++
	return u.result, u.err
}

func onlineDraft() order.Draft {
	return order.Draft{
		UserID:          "user-1",
		CustomerName:    "Meena",
		CustomerEmail:   "meena@example.com",
		CustomerPhone:   "9876543210",
		DeliveryAddress: "12 Main Road",
		City:            "Nellai",
		State:           "Tamil Nadu",
		Pincode:         "627001",
		Items: []orderitem.OrderItem{
			{ItemID: "item-1", Name: "Rice", UnitPrice: 300, Quantity: 2},
		},
		Subtotal:      600,
		DeliveryFee:   0,
		TotalAmount:   600,
		PaymentMethod: order.PaymentMethodOnline,
	}
}

func TestBeginValidatesBeforeGateway(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{}
	store := &stubStore{}
	coordinator := NewCoordinator(gateway, store)

	draft := onlineDraft()
	draft.Items = nil

	_, err := coordinator.Begin(context.Background(), draft)

	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, gateway.calls)
	assert.Empty(t, store.created)
}

func TestBeginGatewayUnavailable(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{err: errors.New("dial tcp: timeout")}
	store := &stubStore{}
	coordinator := NewCoordinator(gateway, store)

	_, err := coordinator.Begin(context.Background(), onlineDraft())

	var gatewayErr *apperr.GatewayUnavailableError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Empty(t, store.created, "no order may exist without a reserved intent")
}

func TestBeginPersistsPendingOrderWithIntentRef(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{intent: Intent{GatewayOrderRef: "order_xyz"}}
	store := &stubStore{}
	coordinator := NewCoordinator(gateway, store)

	checkout, err := coordinator.Begin(context.Background(), onlineDraft())
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Equal(t, "order_xyz", store.created[0].GatewayOrderRef)
	assert.Equal(t, status.PaymentPending, store.created[0].PaymentStatus)
	assert.Equal(t, order.PaymentMethodOnline, store.created[0].PaymentMethod)

	assert.Equal(t, "order_xyz", checkout.GatewayOrderRef)
	assert.Equal(t, int64(600), checkout.Amount)
	assert.Equal(t, currency.CurrencyINR, checkout.Currency)
	assert.Equal(t, "Meena", checkout.Prefill.Name)
}

func TestRunPaidOutcomeConfirmsOrder(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{intent: Intent{GatewayOrderRef: "order_xyz"}}
	store := &stubStore{}
	ui := &stubUI{result: CollectResult{Outcome: OutcomePaid, GatewayPaymentRef: "pay_abc"}}
	coordinator := NewCoordinator(gateway, store)

	confirmed, err := coordinator.Run(context.Background(), onlineDraft(), ui)
	require.NoError(t, err)

	assert.Equal(t, status.PaymentPaid, confirmed.PaymentStatus)
	assert.Equal(t, "pay_abc", confirmed.GatewayPaymentRef)
	assert.Len(t, store.created, 1, "exactly one order per submission")
	assert.Equal(t, 1, ui.calls)
}

func TestRunConfirmationWriteFailureIsReconciliationError(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{intent: Intent{GatewayOrderRef: "order_xyz"}}
	store := &stubStore{setErr: errors.New("connection reset")}
	ui := &stubUI{result: CollectResult{Outcome: OutcomePaid, GatewayPaymentRef: "pay_abc"}}
	coordinator := NewCoordinator(gateway, store)

	pending, err := coordinator.Run(context.Background(), onlineDraft(), ui)

	var reconciliationErr *apperr.ReconciliationError
	require.ErrorAs(t, err, &reconciliationErr)
	assert.Equal(t, "pay_abc", reconciliationErr.GatewayPaymentRef)

	// The pending order is returned so the caller can surface it.
	assert.Equal(t, status.PaymentPending, pending.PaymentStatus)
	assert.Equal(t, status.OrderPlaced, pending.OrderStatus)
}

func TestReconcileCancelledLeavesOrderUntouched(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	coordinator := NewCoordinator(&stubGateway{}, store)

	_, err := coordinator.Reconcile(context.Background(),
		"00000000-0000-0000-0000-000000000001",
		CollectResult{Outcome: OutcomeCancelled},
	)

	require.ErrorIs(t, err, ErrPaymentCancelled)
	assert.Equal(t, 0, store.setCalls)
}

func TestReconcileErroredOutcome(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	coordinator := NewCoordinator(&stubGateway{}, store)

	_, err := coordinator.Reconcile(context.Background(),
		"00000000-0000-0000-0000-000000000001",
		CollectResult{Outcome: OutcomeErrored, Reason: "card declined"},
	)

	var gatewayErr *apperr.GatewayUnavailableError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, 0, store.setCalls)
}

func TestReconcileUnknownOutcome(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	coordinator := NewCoordinator(&stubGateway{}, store)

	_, err := coordinator.Reconcile(context.Background(),
		"00000000-0000-0000-0000-000000000001",
		CollectResult{Outcome: "refunded"},
	)

	require.Error(t, err)
	assert.Equal(t, 0, store.setCalls)
}

func TestRunCollectFailureKeepsPendingOrder(t *testing.T) {
	t.Parallel()

	gateway := &stubGateway{intent: Intent{GatewayOrderRef: "order_xyz"}}
	store := &stubStore{}
	ui := &stubUI{err: errors.New("modal never loaded")}
	coordinator := NewCoordinator(gateway, store)

	pending, err := coordinator.Run(context.Background(), onlineDraft(), ui)

	var gatewayErr *apperr.GatewayUnavailableError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, status.PaymentPending, pending.PaymentStatus)
	assert.Equal(t, 0, store.setCalls)
}
