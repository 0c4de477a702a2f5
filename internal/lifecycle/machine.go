package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/inventory"
	"github.com/bestdog-pos/api/internal/notify"
	"github.com/bestdog-pos/api/internal/orders"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OrderStore is the part of the order repository the machine needs.
// Satisfied by *orders.Repository.
type OrderStore interface {
	FindByID(id uuid.UUID) (domain.Order, bool)
	SetStatus(id uuid.UUID, from, to domain.Status) (domain.Order, error)
}

// StockLedger applies and reverts stock movements.
// Satisfied by *inventory.Ledger.
type StockLedger interface {
	Apply(items []domain.LineItem, sign inventory.Sign) ([]inventory.Adjustment, error)
	Undo(adjs []inventory.Adjustment)
}

// CommitFunc makes a fired transition durable. When it fails the machine
// reverts the in-memory status and stock, and no hook runs.
type CommitFunc func(ctx context.Context, res Result) error

// Result describes a transition that was carried out.
type Result struct {
	Order       domain.Order           `json:"order"`
	Transition  Transition             `json:"transition"`
	Adjustments []inventory.Adjustment `json:"adjustments,omitempty"`
}

// Machine fires lifecycle events against stored orders. Fire calls are
// serialized so a status check and its ledger call are never interleaved with
// another transition.
type Machine struct {
	mu     sync.Mutex
	orders OrderStore
	ledger StockLedger
	commit CommitFunc
	hook   notify.Hook
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewMachine creates a state machine over orders and ledger.
func NewMachine(orders OrderStore, ledger StockLedger, log logrus.FieldLogger) *Machine {
	return &Machine{orders: orders, ledger: ledger, log: log, now: time.Now}
}

// OnCommit sets the durable write run after the in-memory change. Call before
// the machine is shared.
func (m *Machine) OnCommit(fn CommitFunc) { m.commit = fn }

// Notify sets the hooks run after a committed transition. Call before the
// machine is shared.
func (m *Machine) Notify(hooks ...notify.Hook) { m.hook = notify.Chain(hooks...) }

// Fire applies event to the order with the given id.
//
// An unknown id returns orders.ErrNotFound. An event that is not legal from
// the order's current status returns ErrInvalidTransition and changes
// nothing. For stock-affecting transitions the ledger is called exactly once;
// if it rejects the items the status is put back.
func (m *Machine) Fire(ctx context.Context, id uuid.UUID, event domain.Event) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders.FindByID(id)
	if !ok {
		return Result{}, orders.ErrNotFound
	}
	tr, err := Next(order.Status, event)
	if err != nil {
		return Result{}, err
	}

	updated, err := m.orders.SetStatus(id, tr.From, tr.To)
	if err != nil {
		return Result{}, fmt.Errorf("set status: %w", err)
	}

	var adjs []inventory.Adjustment
	if tr.StockAffecting() {
		adjs, err = m.ledger.Apply(updated.Items, tr.Stock)
		if err != nil {
			m.revertStatus(id, tr)
			return Result{}, fmt.Errorf("apply stock: %w", err)
		}
	}

	res := Result{Order: updated, Transition: tr, Adjustments: adjs}
	if m.commit != nil {
		if err := m.commit(ctx, res); err != nil {
			m.ledger.Undo(adjs)
			m.revertStatus(id, tr)
			return Result{}, fmt.Errorf("commit %s: %w", tr.Event, err)
		}
	}

	m.fireHooks(ctx, res)
	return res, nil
}

// Do runs fn under the lock that serializes Fire, so fn never interleaves with
// a transition. fn must not call Fire.
func (m *Machine) Do(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

func (m *Machine) revertStatus(id uuid.UUID, tr Transition) {
	if _, err := m.orders.SetStatus(id, tr.To, tr.From); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"order_id": id,
			"from":     tr.To,
			"to":       tr.From,
		}).Error("revert order status")
	}
}

func (m *Machine) fireHooks(ctx context.Context, res Result) {
	if m.hook == nil {
		return
	}
	ev := domain.OrderEvent{
		Type:  res.Transition.Topic,
		Order: res.Order,
		Stock: inventory.StockChanges(res.Adjustments),
		At:    m.now(),
	}
	if err := m.hook(ctx, ev); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"order_id": res.Order.ID,
			"event":    ev.Type,
		}).Warn("order hook failed")
	}
}
