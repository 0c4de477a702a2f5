package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/bestdog-pos/api/internal/database"
	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/enum"
	"github.com/bestdog-pos/api/internal/inventory"
	"github.com/bestdog-pos/api/internal/notify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Errors returned by the catalog service.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrAddonReference  = errors.New("allowed addon must be an existing addon product")
)

// CatalogStore defines the DB methods needed to persist products.
// Satisfied by *database.Queries.
type CatalogStore interface {
	UpsertProduct(ctx context.Context, arg database.UpsertProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error)
	RemoveAllowedAddon(ctx context.Context, addonID uuid.UUID) error
	UpdateProductStock(ctx context.Context, arg database.UpdateProductStockParams) (int64, error)
}

// NewCatalogStore creates a CatalogStore from a DBTX (pool or tx).
type NewCatalogStore func(db database.DBTX) CatalogStore

// MenuSection is one category of the public menu.
type MenuSection struct {
	Category string           `json:"category"`
	Products []domain.Product `json:"products"`
}

// CatalogService edits the product catalog. Writes go to Postgres first and
// reach the in-memory ledger only after the transaction commits.
type CatalogService struct {
	pool     TxBeginner
	newStore NewCatalogStore
	ledger   *inventory.Ledger
	hook     notify.Hook
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(pool TxBeginner, newStore NewCatalogStore, ledger *inventory.Ledger, log logrus.FieldLogger) *CatalogService {
	return &CatalogService{
		pool:     pool,
		newStore: newStore,
		ledger:   ledger,
		log:      log,
		now:      time.Now,
	}
}

// Notify sets the hooks run after a manual stock change.
func (s *CatalogService) Notify(hooks ...notify.Hook) {
	s.hook = notify.Chain(hooks...)
}

// List returns principal products first, then addons, each by position and name.
func (s *CatalogService) List() []domain.Product {
	products := s.ledger.Snapshot().Products()
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.Kind != b.Kind {
			return a.Kind == domain.KindPrincipal
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Name < b.Name
	})
	return products
}

// Menu groups principal products by category. Categories keep the order in
// which they first appear; products without a category go last.
func (s *CatalogService) Menu() []MenuSection {
	var sections []MenuSection
	at := map[string]int{}
	var uncategorized []domain.Product
	for _, p := range s.List() {
		if p.Kind != domain.KindPrincipal {
			continue
		}
		if p.Category == "" {
			uncategorized = append(uncategorized, p)
			continue
		}
		i, ok := at[p.Category]
		if !ok {
			i = len(sections)
			at[p.Category] = i
			sections = append(sections, MenuSection{Category: p.Category})
		}
		sections[i].Products = append(sections[i].Products, p)
	}
	if len(uncategorized) > 0 {
		sections = append(sections, MenuSection{Products: uncategorized})
	}
	return sections
}

// Get returns one product.
func (s *CatalogService) Get(id uuid.UUID) (domain.Product, error) {
	p, ok := s.ledger.Lookup(id)
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return p, nil
}

// Create adds a product with a new id.
func (s *CatalogService) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = uuid.New()
	return s.save(ctx, p)
}

// Update replaces an existing product. Stock is kept unless the caller sets
// it through SetStock.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, p domain.Product) (domain.Product, error) {
	cur, ok := s.ledger.Lookup(id)
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	p.ID = id
	p.Stock = cur.Stock
	return s.save(ctx, p)
}

func (s *CatalogService) save(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Stock = max(0, p.Stock)
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	catalog := s.ledger.Snapshot()
	for i, addonID := range p.AllowedAddons {
		a, ok := catalog.Lookup(addonID)
		if !ok || a.Kind != domain.KindAddon {
			return domain.Product{}, fmt.Errorf("allowed_addons[%d]: %w", i, ErrAddonReference)
		}
	}
	// Changing an addon into a principal would leave dangling permissions.
	if prev, ok := catalog.Lookup(p.ID); ok && prev.Kind == domain.KindAddon && p.Kind != domain.KindAddon {
		if s.referenced(catalog, p.ID) {
			return domain.Product{}, fmt.Errorf("%w: product is still permitted as addon", domain.ErrProductKind)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row, err := s.newStore(tx).UpsertProduct(ctx, upsertProductParams(p))
	if err != nil {
		return domain.Product{}, fmt.Errorf("upsert product: %w", err)
	}
	saved, err := productFromRow(row)
	if err != nil {
		return domain.Product{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Product{}, fmt.Errorf("commit tx: %w", err)
	}

	if err := s.ledger.Put(saved); err != nil {
		return domain.Product{}, err
	}
	return saved, nil
}

func (s *CatalogService) referenced(catalog domain.Catalog, addonID uuid.UUID) bool {
	for _, p := range catalog.Products() {
		if p.Permits(addonID) {
			return true
		}
	}
	return false
}

// Delete removes a product and strips it from every permitted addon set.
// Orders keep their copied line names and prices.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	n, err := store.DeleteProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	if err := store.RemoveAllowedAddon(ctx, id); err != nil {
		return fmt.Errorf("remove allowed addon: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.ledger.Remove(id)
	for _, p := range s.ledger.Snapshot().Products() {
		if !p.Permits(id) {
			continue
		}
		p.AllowedAddons = slices.DeleteFunc(p.AllowedAddons, func(a uuid.UUID) bool { return a == id })
		if err := s.ledger.Put(p); err != nil {
			s.log.WithError(err).WithField("product_id", p.ID).Error("drop deleted addon")
		}
	}
	return nil
}

// SetStock overwrites a stock counter. Negative values are stored as zero.
func (s *CatalogService) SetStock(ctx context.Context, id uuid.UUID, stock int) (domain.Product, error) {
	if _, ok := s.ledger.Lookup(id); !ok {
		return domain.Product{}, ErrProductNotFound
	}
	stock = max(0, stock)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	n, err := s.newStore(tx).UpdateProductStock(ctx, database.UpdateProductStockParams{ID: id, Stock: int32(stock)})
	if err != nil {
		return domain.Product{}, fmt.Errorf("update stock: %w", err)
	}
	if n == 0 {
		return domain.Product{}, ErrProductNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Product{}, fmt.Errorf("commit tx: %w", err)
	}

	adj, ok := s.ledger.SetStock(id, stock)
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	p, _ := s.ledger.Lookup(id)

	if s.hook != nil {
		ev := domain.OrderEvent{Type: enum.EventStockChanged, Stock: []domain.StockChange{adj.StockChange()}, At: s.now()}
		if err := s.hook(ctx, ev); err != nil {
			s.log.WithError(err).WithField("product_id", id).Warn("stock hook failed")
		}
	}
	return p, nil
}
