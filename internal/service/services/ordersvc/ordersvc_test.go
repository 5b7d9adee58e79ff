package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nellaishop/order/internal/dal/interfaces/iorderrepo"
	"github.com/nellaishop/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/nellaishop/order/internal/service/apperr"
	"github.com/nellaishop/order/internal/service/models/order"
	"github.com/nellaishop/order/internal/service/models/orderitem"
	"github.com/nellaishop/order/internal/service/models/outbox"
	"github.com/nellaishop/order/internal/service/models/status"
	"github.com/nellaishop/order/internal/service/pricing"
)

type fakeOrderRepo struct {
	byID      map[string]order.Order
	seq       int
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{byID: map[string]order.Order{}}
}

func (r *fakeOrderRepo) put(o order.Order) {
	r.byID[o.ID] = o
}

func (r *fakeOrderRepo) Create(_ context.Context, draft order.Draft) (order.Order, error) {
	if r.createErr != nil {
		return order.Order{}, r.createErr
	}

	r.seq++
	now := time.Now()
	created := order.Order{
		ID:              fmt.Sprintf("00000000-0000-0000-0000-%012d", r.seq),
		UserID:          draft.UserID,
		Number:          fmt.Sprintf("NVS%06d", r.seq),
		CustomerName:    draft.CustomerName,
		CustomerEmail:   draft.CustomerEmail,
		CustomerPhone:   draft.CustomerPhone,
		DeliveryAddress: draft.DeliveryAddress,
		City:            draft.City,
		State:           draft.State,
		Pincode:         draft.Pincode,
		Items:           draft.Items,
		Subtotal:        draft.Subtotal,
		DeliveryFee:     draft.DeliveryFee,
		TotalAmount:     draft.TotalAmount,
		Currency:        draft.Currency,
		PaymentMethod:   draft.PaymentMethod,
		PaymentStatus:   status.PaymentPending,
		OrderStatus:     status.OrderPlaced,
		GatewayOrderRef: draft.GatewayOrderRef,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.put(created)

	return created, nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (order.Order, error) {
	found, ok := r.byID[id]
	if !ok {
		return order.Order{}, apperr.ErrOrderNotFound
	}
	return found, nil
}

func (r *fakeOrderRepo) GetByNumber(_ context.Context, number string) (order.Order, error) {
	for _, o := range r.byID {
		if o.Number == number {
			return o, nil
		}
	}
	return order.Order{}, apperr.ErrOrderNotFound
}

func (r *fakeOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	orders := make([]order.Order, 0)
	for _, o := range r.byID {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *fakeOrderRepo) UpdateOrderStatus(_ context.Context, id string, next status.OrderStatus) (order.Order, error) {
	found, ok := r.byID[id]
	if !ok {
		return order.Order{}, apperr.ErrOrderNotFound
	}
	if !found.OrderStatus.CanTransitionTo(next) {
		return order.Order{}, &apperr.InvalidTransitionError{
			OrderID: id,
			From:    found.OrderStatus.String(),
			To:      next.String(),
		}
	}

	found.OrderStatus = next
	found.UpdatedAt = time.Now()
	r.put(found)

	return found, nil
}

func (r *fakeOrderRepo) UpdatePaymentStatus(_ context.Context, id string, next status.PaymentStatus, gatewayPaymentRef string) (order.Order, error) {
	found, ok := r.byID[id]
	if !ok {
		return order.Order{}, apperr.ErrOrderNotFound
	}

	found.PaymentStatus = next
	if gatewayPaymentRef != "" {
		found.GatewayPaymentRef = gatewayPaymentRef
	}
	found.UpdatedAt = time.Now()
	r.put(found)

	return found, nil
}

type fakeOutboxRepo struct {
	inserted []outbox.Message
}

func (r *fakeOutboxRepo) Insert(_ context.Context, msg outbox.Message) error {
	r.inserted = append(r.inserted, msg)
	return nil
}

func (r *fakeOutboxRepo) GetPendingMessages(_ context.Context, _ int) ([]outbox.Message, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) Delete(_ context.Context, _ int64) error { return nil }

func (r *fakeOutboxRepo) UpdateRetry(_ context.Context, _ int64, _ int, _ string, _ time.Time) error {
	return nil
}

type fakeUnitOfWork struct {
	orders     *fakeOrderRepo
	outbox     *fakeOutboxRepo
	begun      int
	committed  int
	rolledBack int
}

func (u *fakeUnitOfWork) Begin(_ context.Context) error {
	u.begun++
	return nil
}

func (u *fakeUnitOfWork) Commit(_ context.Context) error {
	u.committed++
	return nil
}

func (u *fakeUnitOfWork) Rollback(_ context.Context) error {
	u.rolledBack++
	return nil
}

func (u *fakeUnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orders
}

func (u *fakeUnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outbox
}

func newTestService(repo *fakeOrderRepo, outboxRepo *fakeOutboxRepo) (*OrderService, *fakeUnitOfWork) {
	work := &fakeUnitOfWork{orders: repo, outbox: outboxRepo}
	svc := MustNewOrderService(
		WithPricingEngine(pricing.NewEngineWith(500, 50)),
		WithUnitOfWorkFactory(func() unitOfWork { return work }),
	)
	return svc, work
}

func codCommand() CheckoutCommand {
	return CheckoutCommand{
		UserID:          "user-1",
		CustomerName:    "Meena",
		CustomerEmail:   "meena@example.com",
		CustomerPhone:   "9876543210",
		DeliveryAddress: "12 Main Road",
		City:            "Nellai",
		State:           "Tamil Nadu",
		Pincode:         "627001",
		Items: []orderitem.OrderItem{
			{ItemID: "item-1", Name: "Rice", UnitPrice: 120, Quantity: 2},
		},
		PaymentMethod: order.PaymentMethodCOD,
	}
}

func TestBuildDraftPricesCart(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(newFakeOrderRepo(), &fakeOutboxRepo{})

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)

	assert.Equal(t, int64(240), draft.Subtotal)
	assert.Equal(t, int64(50), draft.DeliveryFee)
	assert.Equal(t, int64(290), draft.TotalAmount)
}

func TestBuildDraftFreeDeliveryAtThreshold(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(newFakeOrderRepo(), &fakeOutboxRepo{})

	cmd := codCommand()
	cmd.Items = []orderitem.OrderItem{
		{ItemID: "item-1", Name: "Rice", UnitPrice: 250, Quantity: 2},
	}

	draft, err := svc.BuildDraft(cmd)
	require.NoError(t, err)

	assert.Equal(t, int64(500), draft.Subtotal)
	assert.Equal(t, int64(0), draft.DeliveryFee)
	assert.Equal(t, int64(500), draft.TotalAmount)
}

func TestBuildDraftRejectsInvalidCommand(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(newFakeOrderRepo(), &fakeOutboxRepo{})

	cmd := codCommand()
	cmd.DeliveryAddress = ""

	_, err := svc.BuildDraft(cmd)

	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "deliveryAddress", validationErr.Field)
}

func TestCreateCODOrder(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	outboxRepo := &fakeOutboxRepo{}
	svc, work := newTestService(repo, outboxRepo)

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, status.OrderPlaced, created.OrderStatus)
	assert.Equal(t, status.PaymentPending, created.PaymentStatus)
	assert.Empty(t, created.GatewayOrderRef)
	assert.Empty(t, created.GatewayPaymentRef)
	assert.Equal(t, created.Subtotal+created.DeliveryFee, created.TotalAmount)

	require.Len(t, outboxRepo.inserted, 1)
	assert.Equal(t, EventOrderCreated, outboxRepo.inserted[0].RoutingKey)
	assert.Equal(t, 1, work.committed)
}

func TestCreateValidatesBeforePersisting(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	svc, work := newTestService(repo, &fakeOutboxRepo{})

	_, err := svc.Create(context.Background(), order.Draft{})

	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, repo.byID)
	assert.Equal(t, 0, work.begun)
}

func TestCreateRollsBackOnRepoFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	repo.createErr = errors.New("connection reset")
	outboxRepo := &fakeOutboxRepo{}
	svc, work := newTestService(repo, outboxRepo)

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), draft)
	require.Error(t, err)

	assert.Empty(t, outboxRepo.inserted)
	assert.Equal(t, 0, work.committed)
	assert.Equal(t, 1, work.rolledBack)
}

func TestResolveByNumber(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	svc, _ := newTestService(repo, &fakeOutboxRepo{})

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	created, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)

	found, err := svc.Resolve(context.Background(), created.Number)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestResolveByID(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	svc, _ := newTestService(repo, &fakeOutboxRepo{})

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	created, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)

	found, err := svc.Resolve(context.Background(), "  "+created.ID+"  ")
	require.NoError(t, err)
	assert.Equal(t, created.Number, found.Number)
}

func TestResolveMiss(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(newFakeOrderRepo(), &fakeOutboxRepo{})

	_, err := svc.Resolve(context.Background(), "NVS999999")
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)

	_, err = svc.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
}

func TestTrackTimeline(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	svc, _ := newTestService(repo, &fakeOutboxRepo{})

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	created, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)

	_, err = svc.SetOrderStatus(context.Background(), created.ID, status.OrderConfirmed)
	require.NoError(t, err)
	_, err = svc.SetOrderStatus(context.Background(), created.ID, status.OrderPreparing)
	require.NoError(t, err)

	view, err := svc.Track(context.Background(), created.Number)
	require.NoError(t, err)

	require.Len(t, view.Steps, len(status.TrackingSteps))
	assert.True(t, view.Steps[0].Completed)
	assert.True(t, view.Steps[1].Completed)
	assert.True(t, view.Steps[2].Completed)
	assert.True(t, view.Steps[2].Active)
	assert.False(t, view.Steps[3].Completed)
	assert.False(t, view.Steps[4].Completed)
}

func TestTrackCancelledShowsNoProgress(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	svc, _ := newTestService(repo, &fakeOutboxRepo{})

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	created, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), created.ID)
	require.NoError(t, err)

	view, err := svc.Track(context.Background(), created.ID)
	require.NoError(t, err)

	for _, step := range view.Steps {
		assert.False(t, step.Completed, "step %s", step.Key)
		assert.False(t, step.Active, "step %s", step.Key)
	}
}

func TestCancelPlacedOrder(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	outboxRepo := &fakeOutboxRepo{}
	svc, _ := newTestService(repo, outboxRepo)

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	created, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, status.OrderCancelled, cancelled.OrderStatus)

	require.Len(t, outboxRepo.inserted, 2)
	assert.Equal(t, EventOrderStatusChanged, outboxRepo.inserted[1].RoutingKey)
}

func TestCancelRejectedOncePreparing(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	svc, _ := newTestService(repo, &fakeOutboxRepo{})

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	created, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)

	_, err = svc.SetOrderStatus(context.Background(), created.ID, status.OrderConfirmed)
	require.NoError(t, err)
	_, err = svc.SetOrderStatus(context.Background(), created.ID, status.OrderPreparing)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), created.ID)

	var transitionErr *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, status.OrderPreparing.String(), transitionErr.From)
}

func TestSetOrderStatusRejectsSkips(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	svc, _ := newTestService(repo, &fakeOutboxRepo{})

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	created, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)

	_, err = svc.SetOrderStatus(context.Background(), created.ID, status.OrderDelivered)

	var transitionErr *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestSetPaymentStatusRecordsRef(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	outboxRepo := &fakeOutboxRepo{}
	svc, _ := newTestService(repo, outboxRepo)

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	created, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)

	paid, err := svc.SetPaymentStatus(context.Background(), created.ID, status.PaymentPaid, "pay_abc123")
	require.NoError(t, err)

	assert.Equal(t, status.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, "pay_abc123", paid.GatewayPaymentRef)
	assert.Equal(t, EventPaymentStatusChange, outboxRepo.inserted[len(outboxRepo.inserted)-1].RoutingKey)
}

func TestListByUser(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	svc, _ := newTestService(repo, &fakeOutboxRepo{})

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), draft)
	require.NoError(t, err)

	orders, err := svc.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	empty, err := svc.ListByUser(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEventMaxRetriesZeroDisablesRetries(t *testing.T) {
	viper.Set("rabbitmq.outbox.max_retries", 0)
	t.Cleanup(func() { viper.Set("rabbitmq.outbox.max_retries", 5) })

	repo := newFakeOrderRepo()
	outboxRepo := &fakeOutboxRepo{}
	svc, _ := newTestService(repo, outboxRepo)

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), draft)
	require.NoError(t, err)

	require.Len(t, outboxRepo.inserted, 1)
	assert.Equal(t, 0, outboxRepo.inserted[0].MaxRetries)
}

func TestEventMaxRetriesDefault(t *testing.T) {
	repo := newFakeOrderRepo()
	outboxRepo := &fakeOutboxRepo{}
	svc, _ := newTestService(repo, outboxRepo)

	draft, err := svc.BuildDraft(codCommand())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), draft)
	require.NoError(t, err)

	require.Len(t, outboxRepo.inserted, 1)
	assert.Equal(t, 5, outboxRepo.inserted[0].MaxRetries)
}

func TestListByUserNewestFirst(t *testing.T) {
	t.Parallel()

	repo := newFakeOrderRepo()
	svc, _ := newTestService(repo, &fakeOutboxRepo{})

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, suffix := range []string{"1", "2", "3"} {
		repo.put(order.Order{
			ID:        "00000000-0000-0000-0000-00000000000" + suffix,
			UserID:    "user-1",
			Number:    "NVS00000" + suffix,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	orders, err := svc.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 3)

	assert.Equal(t, "NVS000003", orders[0].Number)
	assert.Equal(t, "NVS000002", orders[1].Number)
	assert.Equal(t, "NVS000001", orders[2].Number)
}
