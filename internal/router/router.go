package router

import (
	"net/http"

	"github.com/bestdog-pos/api/internal/config"
	"github.com/bestdog-pos/api/internal/handler"
	"github.com/bestdog-pos/api/internal/idempotency"
	"github.com/bestdog-pos/api/internal/logger"
	"github.com/bestdog-pos/api/internal/service"
	"github.com/bestdog-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the routes are served from.
type Deps struct {
	Orders      *service.OrderService
	Catalog     *service.CatalogService
	Idempotency idempotency.Store
	Hub         *ws.Hub
	Log         *logrus.Logger
}

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, deps Deps) chi.Router {
	return newRouter(cfg, deps.Orders, deps.Catalog, deps.Idempotency, deps.Hub, deps.Log)
}

func newRouter(cfg *config.Config, orders orderService, catalog catalogService, store idempotency.Store, hub *ws.Hub, log *logrus.Logger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(logger.Requests(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", idempotency.Header},
		ExposedHeaders:   []string{idempotency.ReplayedHeader},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	// Live order feed; ?types= narrows the event types sent.
	r.Method(http.MethodGet, "/ws/orders", ws.NewHandler(hub, cfg.CORSOrigins, log))

	productHandler := handler.NewProductHandler(catalog, log)
	r.Route("/products", productHandler.RegisterRoutes)
	r.Get("/menu", productHandler.Menu)

	var transitions func(http.Handler) http.Handler
	if store != nil {
		transitions = idempotency.Middleware(store, cfg.IdempotencyTTL, log)
	}
	orderHandler := handler.NewOrderHandler(orders, catalog, log)
	r.Route("/orders", func(r chi.Router) {
		orderHandler.RegisterRoutes(r, transitions)
	})

	reportsHandler := handler.NewReportsHandler(orders, cfg.Location())
	r.Route("/reports", reportsHandler.RegisterRoutes)

	return r
}

// orderService and catalogService are the union of what the handlers need.
type orderService interface {
	handler.OrderServicer
	handler.OrderLister
}

type catalogService interface {
	handler.CatalogServicer
	handler.ProductGetter
}
