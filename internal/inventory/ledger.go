// Package inventory adjusts product stock counters when orders conclude or are
// reversed.
//
// ApplyDelta is not idempotent: applying the same items twice moves stock
// twice. Callers must make sure it runs once per stock-affecting transition;
// the lifecycle state machine is what enforces that.
package inventory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/google/uuid"
)

// Errors returned by ApplyDelta.
var (
	ErrInvalidQuantity = errors.New("quantity must be >= 1")
	ErrInvalidSign     = errors.New("sign must be -1 or +1")
)

// Sign is the direction of a stock movement.
type Sign int

const (
	Decrement Sign = -1
	Increment Sign = 1
)

func (s Sign) valid() bool { return s == Decrement || s == Increment }

// Adjustment is one stock counter change made by ApplyDelta.
type Adjustment struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Before    int       `json:"before"`
	After     int       `json:"after"`
}

// StockChange converts the adjustment for event payloads.
func (a Adjustment) StockChange() domain.StockChange {
	return domain.StockChange{ProductID: a.ProductID, Name: a.Name, Before: a.Before, After: a.After}
}

// StockChanges converts a slice of adjustments.
func StockChanges(adjs []Adjustment) []domain.StockChange {
	if len(adjs) == 0 {
		return nil
	}
	out := make([]domain.StockChange, len(adjs))
	for i, a := range adjs {
		out[i] = a.StockChange()
	}
	return out
}

// ApplyDelta moves the stock of every product referenced by items by
// sign*quantity, clamping at zero. Addons on a line move by the line's
// quantity. Products missing from the catalog are skipped.
//
// The input catalog is not modified. On error no stock is changed and the
// original catalog is returned.
func ApplyDelta(catalog domain.Catalog, items []domain.LineItem, sign Sign) (domain.Catalog, []Adjustment, error) {
	if !sign.valid() {
		return catalog, nil, fmt.Errorf("%w: got %d", ErrInvalidSign, sign)
	}
	for i, item := range items {
		if item.Quantity < 1 {
			return catalog, nil, fmt.Errorf("item[%d]: %w: got %d", i, ErrInvalidQuantity, item.Quantity)
		}
	}

	next := catalog
	var adjs []Adjustment
	move := func(id uuid.UUID, qty int) {
		p, ok := next.Lookup(id)
		if !ok {
			return
		}
		after := max(0, p.Stock+int(sign)*qty)
		next = next.WithStock(id, after)
		adjs = append(adjs, Adjustment{ProductID: id, Name: p.Name, Before: p.Stock, After: after})
	}

	for _, item := range items {
		move(item.ProductID, item.Quantity)
		for _, addonID := range item.Addons {
			move(addonID, item.Quantity)
		}
	}
	return next, adjs, nil
}

// Ledger owns the live catalog snapshot. All reads return copies and all
// writes swap in a new snapshot.
type Ledger struct {
	mu      sync.RWMutex
	catalog domain.Catalog
}

// NewLedger creates a ledger holding catalog.
func NewLedger(catalog domain.Catalog) *Ledger {
	return &Ledger{catalog: catalog}
}

// Snapshot returns the current catalog.
func (l *Ledger) Snapshot() domain.Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog
}

// Lookup returns one product from the current catalog.
func (l *Ledger) Lookup(id uuid.UUID) (domain.Product, bool) {
	return l.Snapshot().Lookup(id)
}

// Apply runs ApplyDelta against the current catalog and keeps the result.
func (l *Ledger) Apply(items []domain.LineItem, sign Sign) ([]Adjustment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next, adjs, err := ApplyDelta(l.catalog, items, sign)
	if err != nil {
		return nil, err
	}
	l.catalog = next
	return adjs, nil
}

// Undo puts every adjusted product back to its Before value, last change
// first. Products removed since the adjustment are skipped.
func (l *Ledger) Undo(adjs []Adjustment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(adjs) - 1; i >= 0; i-- {
		l.catalog = l.catalog.WithStock(adjs[i].ProductID, adjs[i].Before)
	}
}

// Put validates p and inserts or replaces it.
func (l *Ledger) Put(p domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.catalog = l.catalog.With(p)
	return nil
}

// Remove deletes a product and reports whether it existed.
func (l *Ledger) Remove(id uuid.UUID) (domain.Product, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.catalog.Lookup(id)
	if ok {
		l.catalog = l.catalog.Without(id)
	}
	return p, ok
}

// SetStock overwrites the stock counter of one product.
func (l *Ledger) SetStock(id uuid.UUID, stock int) (Adjustment, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.catalog.Lookup(id)
	if !ok {
		return Adjustment{}, false
	}
	stock = max(0, stock)
	l.catalog = l.catalog.WithStock(id, stock)
	return Adjustment{ProductID: id, Name: p.Name, Before: p.Stock, After: stock}, true
}

// Replace swaps the whole catalog, used when loading from storage.
func (l *Ledger) Replace(catalog domain.Catalog) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.catalog = catalog
}
