package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nellaishop/order/internal/dal/interfaces/iorderrepo"
	"github.com/nellaishop/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/nellaishop/order/internal/dal/postgres"
	orderrepo "github.com/nellaishop/order/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/nellaishop/order/internal/dal/repositories/outbox/postgres"
	"github.com/nellaishop/order/internal/service/ordernum"
)

// unitOfWork binds the order and outbox repositories to one pgx
// transaction so an order write and its lifecycle event commit
// atomically.
type unitOfWork struct {
	client     *postgres.Client
	numGen     *ordernum.Generator
	tx         pgx.Tx
	orderRepo  iorderrepo.IOrderRepository
	outboxRepo ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client, numGen *ordernum.Generator) *unitOfWork {
	return &unitOfWork{
		client:     client,
		numGen:     numGen,
		orderRepo:  orderrepo.NewPostgresOrderRepository(client.Pool(), numGen),
		outboxRepo: outboxrepo.NewOutboxRepository(client.Pool()),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx, u.numGen)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback(ctx)
}
