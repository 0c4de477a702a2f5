package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bestdog-pos/api/internal/config"
	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/idempotency"
	"github.com/bestdog-pos/api/internal/lifecycle"
	"github.com/bestdog-pos/api/internal/orders"
	"github.com/bestdog-pos/api/internal/pricing"
	"github.com/bestdog-pos/api/internal/service"
	"github.com/bestdog-pos/api/internal/ws"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrders struct {
	transitions int
}

func (s *stubOrders) CreateOrder(ctx context.Context, d domain.Draft) (domain.Order, error) {
	return domain.Order{}, orders.ErrEmptyItems
}
func (s *stubOrders) UpdateOrder(ctx context.Context, id uuid.UUID, d domain.Draft) (domain.Order, error) {
	return domain.Order{}, orders.ErrNotFound
}
func (s *stubOrders) GetOrder(id uuid.UUID) (domain.Order, error) {
	return domain.Order{}, orders.ErrNotFound
}
func (s *stubOrders) ListOrders(f orders.Filter) []domain.Order { return nil }
func (s *stubOrders) Quote(d domain.Draft) pricing.Breakdown   { return pricing.Breakdown{} }
func (s *stubOrders) Transition(ctx context.Context, id uuid.UUID, event domain.Event) (lifecycle.Result, error) {
	s.transitions++
	tr, err := lifecycle.Next(domain.StatusPending, event)
	if err != nil {
		return lifecycle.Result{}, err
	}
	return lifecycle.Result{Order: domain.Order{ID: id, Status: tr.To}, Transition: tr}, nil
}

type stubCatalog struct{}

func (stubCatalog) List() []domain.Product      { return nil }
func (stubCatalog) Menu() []service.MenuSection { return nil }
func (stubCatalog) Get(uuid.UUID) (domain.Product, error) {
	return domain.Product{}, service.ErrProductNotFound
}
func (stubCatalog) Create(context.Context, domain.Product) (domain.Product, error) {
	return domain.Product{}, domain.ErrProductName
}
func (stubCatalog) Update(context.Context, uuid.UUID, domain.Product) (domain.Product, error) {
	return domain.Product{}, service.ErrProductNotFound
}
func (stubCatalog) Delete(context.Context, uuid.UUID) error { return service.ErrProductNotFound }
func (stubCatalog) SetStock(context.Context, uuid.UUID, int) (domain.Product, error) {
	return domain.Product{}, service.ErrProductNotFound
}

func testRouter(t *testing.T, store idempotency.Store) (http.Handler, *stubOrders) {
	t.Helper()
	log, _ := test.NewNullLogger()
	cfg := &config.Config{CORSOrigins: []string{"http://localhost:5173"}, IdempotencyTTL: time.Hour, Timezone: "UTC"}
	o := &stubOrders{}
	return newRouter(cfg, o, stubCatalog{}, store, ws.NewHub(), log), o
}

func TestHealth(t *testing.T) {
	r, _ := testRouter(t, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRoutesAreMounted(t *testing.T) {
	r, _ := testRouter(t, nil)

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/products", http.StatusOK},
		{"GET", "/menu", http.StatusOK},
		{"GET", "/orders", http.StatusOK},
		{"GET", "/orders/" + uuid.NewString(), http.StatusNotFound},
		{"GET", "/reports/daily?date=2026-03-14", http.StatusOK},
		{"DELETE", "/products/" + uuid.NewString(), http.StatusNotFound},
		{"GET", "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestTransitionReplaysIdempotencyKey(t *testing.T) {
	r, o := testRouter(t, idempotency.NewMemory())
	path := "/orders/" + uuid.NewString() + "/transitions"

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", path, strings.NewReader(`{"event":"complete"}`))
		req.Header.Set(idempotency.Header, "tap-1")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	second := send()

	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(idempotency.ReplayedHeader))
	assert.Equal(t, 1, o.transitions, "a replayed request must not fire the transition again")
}

func TestCORSPreflight(t *testing.T) {
	r, _ := testRouter(t, nil)

	req := httptest.NewRequest("OPTIONS", "/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}
