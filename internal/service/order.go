package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bestdog-pos/api/internal/database"
	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/enum"
	"github.com/bestdog-pos/api/internal/inventory"
	"github.com/bestdog-pos/api/internal/lifecycle"
	"github.com/bestdog-pos/api/internal/notify"
	"github.com/bestdog-pos/api/internal/orders"
	"github.com/bestdog-pos/api/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Errors returned by the order service.
var (
	ErrOrderNumberTaken = errors.New("order number already used by another writer")
	ErrStaleOrder       = errors.New("order changed in storage")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to persist orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	ListOrders(ctx context.Context) ([]database.Order, error)
	InsertOrder(ctx context.Context, arg database.InsertOrderParams) (database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (int64, error)
	UpdateProductStock(ctx context.Context, arg database.UpdateProductStockParams) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Defaults fills order fields the operator left empty.
type Defaults struct {
	PrepMinutes   int
	TravelMinutes int
}

// OrderService runs the in-memory order engine and makes every change
// durable in Postgres. The engine is updated first; when the database write
// fails the in-memory change is undone.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	repo     *orders.Repository
	ledger   *inventory.Ledger
	machine  *lifecycle.Machine
	hook     notify.Hook
	defaults Defaults
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, repo *orders.Repository, ledger *inventory.Ledger, defaults Defaults, log logrus.FieldLogger) *OrderService {
	s := &OrderService{
		pool:     pool,
		newStore: newStore,
		repo:     repo,
		ledger:   ledger,
		defaults: defaults,
		log:      log,
		now:      time.Now,
	}
	s.machine = lifecycle.NewMachine(repo, ledger, log)
	s.machine.OnCommit(s.commitTransition)
	return s
}

// Notify sets the hooks run after committed changes. Call before serving.
func (s *OrderService) Notify(hooks ...notify.Hook) {
	s.hook = notify.Chain(hooks...)
	s.machine.Notify(hooks...)
}

// Hydrate loads the catalog and all orders from storage into the engine.
func (s *OrderService) Hydrate(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	productRows, err := store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	products := make([]domain.Product, 0, len(productRows))
	for _, row := range productRows {
		p, err := productFromRow(row)
		if err != nil {
			return err
		}
		products = append(products, p)
	}

	orderRows, err := store.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}
	list := make([]domain.Order, 0, len(orderRows))
	for _, row := range orderRows {
		o, err := orderFromRow(row)
		if err != nil {
			return err
		}
		list = append(list, o)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.ledger.Replace(domain.NewCatalog(products))
	if err := s.repo.Load(list); err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	s.log.WithFields(logrus.Fields{"products": len(products), "orders": len(list)}).Info("engine hydrated")
	return nil
}

// CreateOrder prices and stores a new Pending order.
func (s *OrderService) CreateOrder(ctx context.Context, d domain.Draft) (domain.Order, error) {
	if d.PrepMinutes == 0 {
		d.PrepMinutes = s.defaults.PrepMinutes
	}
	if d.TravelMinutes == 0 {
		d.TravelMinutes = s.defaults.TravelMinutes
	}

	o, err := s.repo.Create(d)
	if err != nil {
		return domain.Order{}, err
	}

	err = s.inTx(ctx, func(store OrderStore) error {
		params, err := insertOrderParams(o)
		if err != nil {
			return err
		}
		if _, err := store.InsertOrder(ctx, params); err != nil {
			if isOrderNumberConflict(err) {
				return fmt.Errorf("%w: %d", ErrOrderNumberTaken, o.Number)
			}
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		s.repo.Remove(o.ID)
		return domain.Order{}, err
	}

	s.publish(ctx, enum.EventOrderCreated, o)
	return o, nil
}

// UpdateOrder replaces the editable fields of an open order and reprices it.
// The edit and its durable write run under the machine lock, so no transition
// can move stock for items that are about to be rolled back.
func (s *OrderService) UpdateOrder(ctx context.Context, id uuid.UUID, d domain.Draft) (domain.Order, error) {
	var (
		o   domain.Order
		err error
	)
	s.machine.Do(func() {
		o, err = s.updateOrder(ctx, id, d)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.publish(ctx, enum.EventOrderUpdated, o)
	return o, nil
}

func (s *OrderService) updateOrder(ctx context.Context, id uuid.UUID, d domain.Draft) (domain.Order, error) {
	prev, ok := s.repo.FindByID(id)
	if !ok {
		return domain.Order{}, orders.ErrNotFound
	}
	o, err := s.repo.Update(id, d)
	if err != nil {
		return domain.Order{}, err
	}

	err = s.inTx(ctx, func(store OrderStore) error {
		params, err := updateOrderParams(o)
		if err != nil {
			return err
		}
		if _, err := store.UpdateOrder(ctx, params); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrStaleOrder
			}
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		s.repo.Restore(prev)
		return domain.Order{}, err
	}
	return o, nil
}

// GetOrder returns one order.
func (s *OrderService) GetOrder(id uuid.UUID) (domain.Order, error) {
	o, ok := s.repo.FindByID(id)
	if !ok {
		return domain.Order{}, orders.ErrNotFound
	}
	return o, nil
}

// ListOrders returns orders matching f, newest first.
func (s *OrderService) ListOrders(f orders.Filter) []domain.Order {
	return s.repo.List(f)
}

// Quote prices a draft against the current catalog without storing anything.
// Fee and discount are bounded the same way CreateOrder bounds them.
func (s *OrderService) Quote(d domain.Draft) pricing.Breakdown {
	fee := decimal.Max(d.DeliveryFee, decimal.Zero)
	discount := decimal.Min(decimal.Max(d.DiscountPercent, decimal.Zero), decimal.NewFromInt(100))
	return pricing.Quote(d.Items, s.ledger.Snapshot(), fee, discount)
}

// Transition fires a lifecycle event on an order.
func (s *OrderService) Transition(ctx context.Context, id uuid.UUID, event domain.Event) (lifecycle.Result, error) {
	res, err := s.machine.Fire(ctx, id, event)
	if err != nil {
		return lifecycle.Result{}, err
	}
	s.log.WithFields(logrus.Fields{
		"order_id": id,
		"event":    event,
		"status":   res.Order.Status,
		"stock":    len(res.Adjustments),
	}).Info("order transition")
	return res, nil
}

// commitTransition writes the new status and the adjusted stock counters in
// one transaction.
func (s *OrderService) commitTransition(ctx context.Context, res lifecycle.Result) error {
	return s.inTx(ctx, func(store OrderStore) error {
		n, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         res.Order.ID,
			FromStatus: string(res.Transition.From),
			ToStatus:   string(res.Transition.To),
			UpdatedAt:  res.Order.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: status is no longer %s", ErrStaleOrder, res.Transition.From)
		}

		for i, adj := range res.Adjustments {
			if _, err := store.UpdateProductStock(ctx, database.UpdateProductStockParams{
				ID:    adj.ProductID,
				Stock: int32(adj.After),
			}); err != nil {
				return fmt.Errorf("adjustment[%d]: update stock: %w", i, err)
			}
		}
		return nil
	})
}

// inTx runs fn against a store bound to a new transaction and commits it.
func (s *OrderService) inTx(ctx context.Context, fn func(store OrderStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, o domain.Order) {
	if s.hook == nil {
		return
	}
	ev := domain.OrderEvent{Type: eventType, Order: o, At: s.now()}
	if err := s.hook(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"order_id": o.ID,
			"event":    eventType,
		}).Warn("order hook failed")
	}
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}
