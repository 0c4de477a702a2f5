package domain

import (
	"errors"
	"slices"
	"strings"

	"github.com/bestdog-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by Product.Validate.
var (
	ErrProductName      = errors.New("product name is required")
	ErrProductPrice     = errors.New("product price must be >= 0")
	ErrProductKind      = errors.New("invalid product kind")
	ErrAddonWithOptions = errors.New("addon products cannot carry options")
	ErrAddonWithAddons  = errors.New("addon products cannot permit addons")
	ErrDuplicateAllowed = errors.New("permitted addon listed twice")
	ErrProductSelfAddon = errors.New("product cannot permit itself as addon")
)

// ProductKind tells principal menu items apart from addons.
type ProductKind string

const (
	KindPrincipal ProductKind = enum.ProductKindPrincipal
	KindAddon     ProductKind = enum.ProductKindAddon
)

// Valid reports whether k is a known kind.
func (k ProductKind) Valid() bool {
	return k == KindPrincipal || k == KindAddon
}

// Product is a catalog entry.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	Kind          ProductKind     `json:"kind"`
	Category      string          `json:"category,omitempty"`
	Options       string          `json:"options,omitempty"`
	AllowedAddons []uuid.UUID     `json:"allowed_addons,omitempty"`
	Position      int             `json:"position"`
}

// Validate checks the invariants a product must hold before it enters the catalog.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrProductName
	}
	if p.Price.IsNegative() {
		return ErrProductPrice
	}
	if !p.Kind.Valid() {
		return ErrProductKind
	}
	if p.Kind == KindAddon {
		if strings.TrimSpace(p.Options) != "" {
			return ErrAddonWithOptions
		}
		if len(p.AllowedAddons) > 0 {
			return ErrAddonWithAddons
		}
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(p.AllowedAddons))
	for _, id := range p.AllowedAddons {
		if id == p.ID {
			return ErrProductSelfAddon
		}
		if seen[id] {
			return ErrDuplicateAllowed
		}
		seen[id] = true
	}
	return nil
}

// Permits reports whether addonID is in the product's permitted set.
func (p Product) Permits(addonID uuid.UUID) bool {
	return slices.Contains(p.AllowedAddons, addonID)
}

// Clone returns a copy that shares no slices with p.
func (p Product) Clone() Product {
	p.AllowedAddons = slices.Clone(p.AllowedAddons)
	return p
}

// Catalog is an immutable snapshot of the product list. Updates return a new
// snapshot and leave the receiver untouched.
type Catalog struct {
	products []Product
	index    map[uuid.UUID]int
}

// NewCatalog builds a snapshot from products. A later entry with an ID already
// seen replaces the earlier one in place.
func NewCatalog(products []Product) Catalog {
	c := Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[uuid.UUID]int, len(products)),
	}
	for _, p := range products {
		if i, ok := c.index[p.ID]; ok {
			c.products[i] = p.Clone()
			continue
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p.Clone())
	}
	return c
}

// Len returns the number of products.
func (c Catalog) Len() int { return len(c.products) }

// Lookup returns the product with the given id.
func (c Catalog) Lookup(id uuid.UUID) (Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i].Clone(), true
}

// Products returns a copy of every product in catalog order.
func (c Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	for i, p := range c.products {
		out[i] = p.Clone()
	}
	return out
}

// With returns a snapshot where p is inserted or replaces the product with the same ID.
func (c Catalog) With(p Product) Catalog {
	next := c.copy()
	if i, ok := next.index[p.ID]; ok {
		next.products[i] = p.Clone()
		return next
	}
	next.index[p.ID] = len(next.products)
	next.products = append(next.products, p.Clone())
	return next
}

// Without returns a snapshot with the product removed. Unknown ids return c unchanged.
func (c Catalog) Without(id uuid.UUID) Catalog {
	i, ok := c.index[id]
	if !ok {
		return c
	}
	products := make([]Product, 0, len(c.products)-1)
	products = append(products, c.products[:i]...)
	products = append(products, c.products[i+1:]...)
	return NewCatalog(products)
}

// WithStock returns a snapshot with the stock of one product replaced.
func (c Catalog) WithStock(id uuid.UUID, stock int) Catalog {
	i, ok := c.index[id]
	if !ok {
		return c
	}
	next := c.copy()
	next.products[i].Stock = stock
	return next
}

func (c Catalog) copy() Catalog {
	next := Catalog{
		products: slices.Clone(c.products),
		index:    make(map[uuid.UUID]int, len(c.index)+1),
	}
	for id, i := range c.index {
		next.index[id] = i
	}
	return next
}
