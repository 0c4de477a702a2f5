// Package orders stores priced orders in memory. Records are kept in an arena
// slice indexed by id; every accessor returns a deep copy so callers can never
// reach the stored value.
package orders

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by the repository.
var (
	ErrNotFound        = errors.New("order not found")
	ErrEmptyItems      = errors.New("items are required")
	ErrUnknownProduct  = errors.New("product not found in catalog")
	ErrNotPrincipal    = errors.New("product is not a principal item")
	ErrUnknownAddon    = errors.New("addon not found in catalog")
	ErrAddonNotAllowed = errors.New("addon is not permitted for this product")
	ErrUnknownOption   = errors.New("option is not offered by this product")
	ErrStatusConflict  = errors.New("order status changed concurrently")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrDuplicateOrder  = errors.New("order already exists")
	ErrOrderClosed     = errors.New("order is closed for editing")
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var hundred = decimal.NewFromInt(100)

// CatalogSource supplies the catalog snapshot used to validate and price drafts.
// Satisfied by *inventory.Ledger.
type CatalogSource interface {
	Snapshot() domain.Catalog
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status domain.Status
	Date   string
}

func (f Filter) match(o domain.Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Date != "" && o.Date != f.Date {
		return false
	}
	return true
}

// Repository holds orders keyed by id.
type Repository struct {
	mu      sync.RWMutex
	orders  []domain.Order
	index   map[uuid.UUID]int
	number  int
	catalog CatalogSource
	loc     *time.Location
	now     func() time.Time
	newID   func() uuid.UUID
}

// NewRepository creates an empty repository. now defaults to time.Now and
// loc to time.Local.
func NewRepository(catalog CatalogSource, now func() time.Time, loc *time.Location) *Repository {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Repository{
		index:   make(map[uuid.UUID]int),
		catalog: catalog,
		loc:     loc,
		now:     now,
		newID:   uuid.New,
	}
}

// Create validates and prices a draft and stores it as a new Pending order.
func (r *Repository) Create(d domain.Draft) (domain.Order, error) {
	catalog := r.catalog.Snapshot()
	items, err := normalizeItems(d.Items, catalog)
	if err != nil {
		return domain.Order{}, err
	}

	now := r.now()
	local := now.In(r.loc)
	o := domain.Order{
		ID:        r.newID(),
		Status:    domain.StatusPending,
		CreatedAt: now,
		Date:      local.Format(dateLayout),
		Time:      local.Format(timeLayout),
		UpdatedAt: now,
	}
	applyDraft(&o, d, items, catalog)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.number++
	o.Number = r.number
	r.index[o.ID] = len(r.orders)
	r.orders = append(r.orders, o)
	return o.Clone(), nil
}

// Update overwrites the editable fields of an existing order and reprices it.
// ID, Number, Status and the creation stamps are kept. Completed and cancelled
// orders return ErrOrderClosed: their items are what the ledger moved.
func (r *Repository) Update(id uuid.UUID, d domain.Draft) (domain.Order, error) {
	catalog := r.catalog.Snapshot()
	items, err := normalizeItems(d.Items, catalog)
	if err != nil {
		return domain.Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return domain.Order{}, ErrNotFound
	}
	if st := r.orders[i].Status; !st.Active() {
		return domain.Order{}, fmt.Errorf("%w: order is %s", ErrOrderClosed, st)
	}
	o := r.orders[i].Clone()
	applyDraft(&o, d, items, catalog)
	o.UpdatedAt = r.now()
	r.orders[i] = o
	return o.Clone(), nil
}

// FindByID returns a copy of the order, or false when it does not exist.
func (r *Repository) FindByID(id uuid.UUID) (domain.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return domain.Order{}, false
	}
	return r.orders[i].Clone(), true
}

// List returns matching orders, newest first.
func (r *Repository) List(f Filter) []domain.Order {
	r.mu.RLock()
	out := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if f.match(o) {
			out = append(out, o.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Number > out[j].Number
	})
	return out
}

// SetStatus moves an order from one status to another. It fails with
// ErrStatusConflict when the stored status is no longer from. Only the
// lifecycle state machine should call it.
func (r *Repository) SetStatus(id uuid.UUID, from, to domain.Status) (domain.Order, error) {
	if !to.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return domain.Order{}, ErrNotFound
	}
	if r.orders[i].Status != from {
		return domain.Order{}, fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, from, r.orders[i].Status)
	}
	r.orders[i].Status = to
	r.orders[i].UpdatedAt = r.now()
	return r.orders[i].Clone(), nil
}

// Load replaces the contents with orders read from storage. The number
// sequence continues after the highest loaded number.
func (r *Repository) Load(orders []domain.Order) error {
	arena := make([]domain.Order, 0, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	number := 0
	for _, o := range orders {
		if _, dup := index[o.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
		}
		index[o.ID] = len(arena)
		arena = append(arena, o.Clone())
		number = max(number, o.Number)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = arena
	r.index = index
	r.number = number
	return nil
}

// Restore writes o back as-is, replacing the stored record with the same id or
// re-adding it. Used to undo an in-memory write whose durable write failed.
func (r *Repository) Restore(o domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[o.ID]; ok {
		r.orders[i] = o.Clone()
		return
	}
	r.index[o.ID] = len(r.orders)
	r.orders = append(r.orders, o.Clone())
	r.number = max(r.number, o.Number)
}

// Remove deletes an order. When it was the most recently numbered order the
// number is released for reuse.
func (r *Repository) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return false
	}
	if r.orders[i].Number == r.number {
		r.number--
	}
	r.orders = append(r.orders[:i], r.orders[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.orders); j++ {
		r.index[r.orders[j].ID] = j
	}
	return true
}

// Len returns the number of stored orders.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// applyDraft copies the editable fields of d into o and recomputes the total.
func applyDraft(o *domain.Order, d domain.Draft, items []domain.LineItem, catalog domain.Catalog) {
	o.Customer = d.Customer
	o.Items = items
	o.DeliveryFee = decimal.Max(d.DeliveryFee, decimal.Zero)
	o.DiscountPercent = decimal.Min(decimal.Max(d.DiscountPercent, decimal.Zero), hundred)
	o.PaymentMethod = d.PaymentMethod
	o.Notes = d.Notes
	o.PrepMinutes = max(0, d.PrepMinutes)
	o.TravelMinutes = max(0, d.TravelMinutes)
	o.Total = pricing.ComputeTotal(o.Items, catalog, o.DeliveryFee, o.DiscountPercent)
}

// normalizeItems checks every line against the catalog and returns cleaned
// copies: quantity at least 1, price not negative, no duplicate addons.
func normalizeItems(items []domain.LineItem, catalog domain.Catalog) ([]domain.LineItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	out := make([]domain.LineItem, len(items))
	for i, item := range items {
		p, ok := catalog.Lookup(item.ProductID)
		if !ok {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrUnknownProduct)
		}
		if p.Kind != domain.KindPrincipal {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrNotPrincipal)
		}
		if item.Option != "" && !pricing.HasOption(p.Options, item.Option) {
			return nil, fmt.Errorf("item[%d]: %w: %q", i, ErrUnknownOption, pricing.ParseOptionName(item.Option))
		}

		var addons []uuid.UUID
		seen := make(map[uuid.UUID]bool, len(item.Addons))
		for j, addonID := range item.Addons {
			if seen[addonID] {
				continue
			}
			seen[addonID] = true
			a, ok := catalog.Lookup(addonID)
			if !ok || a.Kind != domain.KindAddon {
				return nil, fmt.Errorf("item[%d].addons[%d]: %w", i, j, ErrUnknownAddon)
			}
			if !p.Permits(addonID) {
				return nil, fmt.Errorf("item[%d].addons[%d]: %w", i, j, ErrAddonNotAllowed)
			}
			addons = append(addons, addonID)
		}

		name := item.Name
		if name == "" {
			name = p.Name
		}
		out[i] = domain.LineItem{
			ProductID: item.ProductID,
			Name:      name,
			Price:     decimal.Max(item.Price, decimal.Zero),
			Quantity:  max(1, item.Quantity),
			Option:    item.Option,
			Addons:    addons,
		}
	}
	return out, nil
}
