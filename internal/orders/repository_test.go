package orders

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCatalog struct{ c domain.Catalog }

func (s *staticCatalog) Snapshot() domain.Catalog { return s.c }

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	repo    *Repository
	clock   *fakeClock
	catalog *staticCatalog
	dog     domain.Product
	coke    domain.Product
	bacon   domain.Product
	cheese  domain.Product
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bacon := domain.Product{ID: uuid.New(), Name: "Bacon", Price: dec("4.00"), Stock: 20, Kind: domain.KindAddon}
	cheese := domain.Product{ID: uuid.New(), Name: "Cheddar extra", Price: dec("2.50"), Stock: 20, Kind: domain.KindAddon}
	dog := domain.Product{
		ID: uuid.New(), Name: "Dog Max", Price: dec("18.00"), Stock: 50, Kind: domain.KindPrincipal,
		Category: "Lanches", Options: "Simples, Extra=+3.00", AllowedAddons: []uuid.UUID{bacon.ID},
	}
	coke := domain.Product{ID: uuid.New(), Name: "Coca-Cola", Price: dec("6.00"), Stock: 30, Kind: domain.KindPrincipal, Category: "Bebidas"}

	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2026, 3, 14, 22, 45, 0, 0, time.UTC)}
	catalog := &staticCatalog{c: domain.NewCatalog([]domain.Product{dog, coke, bacon, cheese})}
	return &fixture{
		repo:    NewRepository(catalog, clock.Now, sp),
		clock:   clock,
		catalog: catalog,
		dog:     dog,
		coke:    coke,
		bacon:   bacon,
		cheese:  cheese,
	}
}

func (f *fixture) dogLine(qty int) domain.LineItem {
	return domain.LineItem{ProductID: f.dog.ID, Name: f.dog.Name, Price: f.dog.Price, Quantity: qty}
}

func TestCreate_ScenarioTotals(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		option   string
		addons   []uuid.UUID
		discount string
		want     string
	}{
		{"A", "", nil, "0", "41.00"},
		{"B", "Extra=+3.00", nil, "0", "47.00"},
		{"C", "Extra=+3.00", []uuid.UUID{f.bacon.ID}, "0", "55.00"},
		{"D", "Extra=+3.00", []uuid.UUID{f.bacon.ID}, "10", "50.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := f.dogLine(2)
			line.Option = tt.option
			line.Addons = tt.addons

			o, err := f.repo.Create(domain.Draft{
				Customer:        domain.Customer{Name: "Ana", Address: "Rua A, 10"},
				Items:           []domain.LineItem{line},
				DeliveryFee:     dec("5.00"),
				DiscountPercent: dec(tt.discount),
				PaymentMethod:   "Pix",
			})
			require.NoError(t, err)
			assert.True(t, o.Total.Equal(dec(tt.want)), "total %s, want %s", o.Total, tt.want)
		})
	}
}

func TestCreate_AssignsIdentityAndStamps(t *testing.T) {
	f := newFixture(t)

	first, err := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	require.NoError(t, err)
	second, err := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, domain.StatusPending, first.Status)
	assert.Equal(t, f.clock.t, first.CreatedAt)
	// 22:45 UTC is 19:45 in São Paulo.
	assert.Equal(t, "2026-03-14", first.Date)
	assert.Equal(t, "19:45", first.Time)
}

func TestCreate_CoercesDraftFields(t *testing.T) {
	f := newFixture(t)

	o, err := f.repo.Create(domain.Draft{
		Items:           []domain.LineItem{f.dogLine(0), {ProductID: f.coke.ID, Price: f.coke.Price, Quantity: -2}},
		DeliveryFee:     dec("-3"),
		DiscountPercent: dec("150"),
		PrepMinutes:     -5,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.Equal(t, 1, o.Items[1].Quantity)
	assert.Equal(t, "Coca-Cola", o.Items[1].Name, "missing name is filled from the catalog")
	assert.True(t, o.DeliveryFee.IsZero())
	assert.True(t, o.DiscountPercent.Equal(dec("100")))
	assert.Equal(t, 0, o.PrepMinutes)
	assert.True(t, o.Total.IsZero(), "a full discount with no fee is free, got %s", o.Total)
}

func TestCreate_NegativeLinePriceIsClamped(t *testing.T) {
	f := newFixture(t)
	line := f.dogLine(2)
	line.Price = dec("-5")

	o, err := f.repo.Create(domain.Draft{Items: []domain.LineItem{line}, DeliveryFee: dec("3")})
	require.NoError(t, err)

	assert.True(t, o.Items[0].Price.IsZero(), "got %s", o.Items[0].Price)
	assert.True(t, o.Total.Equal(dec("3")), "only the fee remains, got %s", o.Total)
}

func TestCreate_BoundaryValidation(t *testing.T) {
	f := newFixture(t)

	withAddon := func(id uuid.UUID) domain.LineItem {
		l := f.dogLine(1)
		l.Addons = []uuid.UUID{id}
		return l
	}
	withOption := func(opt string) domain.LineItem {
		l := f.dogLine(1)
		l.Option = opt
		return l
	}

	tests := []struct {
		name  string
		items []domain.LineItem
		want  error
	}{
		{"no items", nil, ErrEmptyItems},
		{"unknown product", []domain.LineItem{{ProductID: uuid.New(), Quantity: 1}}, ErrUnknownProduct},
		{"addon as principal", []domain.LineItem{{ProductID: f.bacon.ID, Quantity: 1}}, ErrNotPrincipal},
		{"unknown addon", []domain.LineItem{withAddon(uuid.New())}, ErrUnknownAddon},
		{"principal used as addon", []domain.LineItem{withAddon(f.coke.ID)}, ErrUnknownAddon},
		{"addon outside permitted set", []domain.LineItem{withAddon(f.cheese.ID)}, ErrAddonNotAllowed},
		{"unknown option", []domain.LineItem{withOption("Duplo=+6")}, ErrUnknownOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.repo.Create(domain.Draft{Items: tt.items})
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, f.repo.Len(), "rejected drafts are not stored")
}

func TestCreate_DropsDuplicateAddons(t *testing.T) {
	f := newFixture(t)
	line := f.dogLine(1)
	line.Addons = []uuid.UUID{f.bacon.ID, f.bacon.ID}

	o, err := f.repo.Create(domain.Draft{Items: []domain.LineItem{line}})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{f.bacon.ID}, o.Items[0].Addons)
	assert.True(t, o.Total.Equal(dec("22.00")))
}

func TestUpdate_KeepsWriteOnceFields(t *testing.T) {
	f := newFixture(t)
	created, err := f.repo.Create(domain.Draft{
		Customer: domain.Customer{Name: "Ana"},
		Items:    []domain.LineItem{f.dogLine(1)},
	})
	require.NoError(t, err)

	_, err = f.repo.SetStatus(created.ID, domain.StatusPending, domain.StatusOutForDelivery)
	require.NoError(t, err)

	f.clock.Advance(90 * time.Minute)
	updated, err := f.repo.Update(created.ID, domain.Draft{
		Customer:      domain.Customer{Name: "Bruno", Address: "Rua B, 2"},
		Items:         []domain.LineItem{f.dogLine(3)},
		DeliveryFee:   dec("4"),
		PaymentMethod: "Dinheiro",
		Notes:         "sem cebola",
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Number, updated.Number)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, created.Date, updated.Date)
	assert.Equal(t, created.Time, updated.Time)
	assert.Equal(t, domain.StatusOutForDelivery, updated.Status, "update never touches status")
	assert.Equal(t, "Bruno", updated.Customer.Name)
	assert.Equal(t, "sem cebola", updated.Notes)
	assert.True(t, updated.Total.Equal(dec("58.00")), "total recomputed, got %s", updated.Total)
	assert.Equal(t, f.clock.t, updated.UpdatedAt)
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.Update(uuid.New(), domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_InvalidDraftLeavesRecord(t *testing.T) {
	f := newFixture(t)
	created, err := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	require.NoError(t, err)

	_, err = f.repo.Update(created.ID, domain.Draft{Items: []domain.LineItem{{ProductID: uuid.New(), Quantity: 1}}})
	require.ErrorIs(t, err, ErrUnknownProduct)

	got, ok := f.repo.FindByID(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)
}

func TestUpdate_RejectsTerminalOrder(t *testing.T) {
	tests := []struct {
		name string
		to   domain.Status
	}{
		{"completed", domain.StatusCompleted},
		{"cancelled", domain.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			created, err := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(2)}})
			require.NoError(t, err)
			closed, err := f.repo.SetStatus(created.ID, domain.StatusPending, tt.to)
			require.NoError(t, err)

			_, err = f.repo.Update(created.ID, domain.Draft{Items: []domain.LineItem{f.dogLine(7)}})
			require.ErrorIs(t, err, ErrOrderClosed)

			got, ok := f.repo.FindByID(created.ID)
			require.True(t, ok)
			assert.Equal(t, closed, got, "a closed order keeps the items the ledger saw")
		})
	}
}

func TestFindByID_ReturnsCopies(t *testing.T) {
	f := newFixture(t)
	line := f.dogLine(1)
	line.Addons = []uuid.UUID{f.bacon.ID}
	created, err := f.repo.Create(domain.Draft{Items: []domain.LineItem{line}})
	require.NoError(t, err)

	got, ok := f.repo.FindByID(created.ID)
	require.True(t, ok)
	got.Items[0].Quantity = 99
	got.Items[0].Addons[0] = uuid.Nil
	got.Status = domain.StatusCompleted

	again, _ := f.repo.FindByID(created.ID)
	assert.Equal(t, 1, again.Items[0].Quantity)
	assert.Equal(t, f.bacon.ID, again.Items[0].Addons[0])
	assert.Equal(t, domain.StatusPending, again.Status)

	_, ok = f.repo.FindByID(uuid.New())
	assert.False(t, ok)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	created, err := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	require.NoError(t, err)

	_, err = f.repo.SetStatus(created.ID, domain.StatusCompleted, domain.StatusCancelled)
	assert.ErrorIs(t, err, ErrStatusConflict)

	_, err = f.repo.SetStatus(created.ID, domain.StatusPending, domain.Status("LOST"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.repo.SetStatus(uuid.New(), domain.StatusPending, domain.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)

	o, err := f.repo.SetStatus(created.ID, domain.StatusPending, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, o.Status)
	assert.True(t, o.Total.Equal(created.Total))
}

func TestList_FiltersNewestFirst(t *testing.T) {
	f := newFixture(t)
	a, _ := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	f.clock.Advance(10 * time.Minute)
	b, _ := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	f.clock.Advance(24 * time.Hour)
	c, _ := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	_, err := f.repo.SetStatus(b.ID, domain.StatusPending, domain.StatusCancelled)
	require.NoError(t, err)

	all := f.repo.List(Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{c.ID, b.ID, a.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	day := f.repo.List(Filter{Date: a.Date})
	assert.Len(t, day, 2)

	pending := f.repo.List(Filter{Status: domain.StatusPending, Date: a.Date})
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)
}

func TestLoad_ContinuesNumbering(t *testing.T) {
	f := newFixture(t)
	stored := []domain.Order{
		{ID: uuid.New(), Number: 7, Status: domain.StatusCompleted},
		{ID: uuid.New(), Number: 12, Status: domain.StatusPending},
	}
	require.NoError(t, f.repo.Load(stored))

	o, err := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	require.NoError(t, err)
	assert.Equal(t, 13, o.Number)
	assert.Equal(t, 3, f.repo.Len())

	err = f.repo.Load([]domain.Order{stored[0], stored[0]})
	assert.ErrorIs(t, err, ErrDuplicateOrder)
	assert.Equal(t, 3, f.repo.Len(), "failed load keeps previous contents")
}

func TestRemoveAndRestore(t *testing.T) {
	f := newFixture(t)
	a, _ := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	b, _ := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(2)}})

	assert.True(t, f.repo.Remove(b.ID))
	assert.False(t, f.repo.Remove(b.ID))
	_, ok := f.repo.FindByID(b.ID)
	assert.False(t, ok)

	c, _ := f.repo.Create(domain.Draft{Items: []domain.LineItem{f.dogLine(1)}})
	assert.Equal(t, 2, c.Number, "number of the removed newest order is reused")

	assert.True(t, f.repo.Remove(a.ID))
	got, ok := f.repo.FindByID(c.ID)
	require.True(t, ok, "index stays consistent after removing from the middle")
	assert.Equal(t, c.ID, got.ID)

	f.repo.Restore(a)
	got, ok = f.repo.FindByID(a.ID)
	require.True(t, ok)
	assert.Equal(t, a, got)

	changed := a
	changed.Notes = "edited"
	f.repo.Restore(changed)
	got, _ = f.repo.FindByID(a.ID)
	assert.Equal(t, "edited", got.Notes)
	assert.Equal(t, 2, f.repo.Len())
}
