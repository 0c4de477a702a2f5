package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/pricing"
	"github.com/bestdog-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CatalogServicer defines the service methods needed by product handlers.
// Satisfied by *service.CatalogService; narrow interface for testability.
type CatalogServicer interface {
	List() []domain.Product
	Menu() []service.MenuSection
	Get(id uuid.UUID) (domain.Product, error)
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, p domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetStock(ctx context.Context, id uuid.UUID, stock int) (domain.Product, error)
}

// ProductHandler handles product CRUD endpoints.
type ProductHandler struct {
	svc CatalogServicer
	log logrus.FieldLogger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc CatalogServicer, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{svc: svc, log: log}
}

// RegisterRoutes registers product CRUD endpoints. Expected to be mounted at /products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/stock", h.SetStock)
}

// --- Request / Response types ---

type productRequest struct {
	Name          string   `json:"name"`
	Price         string   `json:"price"`
	Stock         int      `json:"stock"`
	Kind          string   `json:"kind"`
	Category      string   `json:"category"`
	Options       string   `json:"options"`
	AllowedAddons []string `json:"allowed_addons"`
	Position      int      `json:"position"`
}

type stockRequest struct {
	Stock *int `json:"stock"`
}

type productResponse struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Price         string         `json:"price"`
	Stock         int            `json:"stock"`
	Kind          string         `json:"kind"`
	Category      string         `json:"category"`
	Options       []optionOutput `json:"options"`
	AllowedAddons []uuid.UUID    `json:"allowed_addons"`
	Position      int            `json:"position"`
}

type optionOutput struct {
	Token     string `json:"token"`
	Name      string `json:"name"`
	Surcharge string `json:"surcharge"`
}

type menuSectionResponse struct {
	Category string            `json:"category"`
	Products []productResponse `json:"products"`
}

func toProductResponse(p domain.Product) productResponse {
	options := []optionOutput{}
	for _, token := range pricing.SplitOptions(p.Options) {
		options = append(options, optionOutput{
			Token:     token,
			Name:      pricing.ParseOptionName(token),
			Surcharge: pricing.Format(pricing.ParseOptionValue(token)),
		})
	}
	addons := p.AllowedAddons
	if addons == nil {
		addons = []uuid.UUID{}
	}
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Price:         pricing.Format(p.Price),
		Stock:         p.Stock,
		Kind:          string(p.Kind),
		Category:      p.Category,
		Options:       options,
		AllowedAddons: addons,
		Position:      p.Position,
	}
}

// --- Helpers ---

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errNegativePrice
	}
	return d, nil
}

func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (domain.Product, bool) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return domain.Product{}, false
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return domain.Product{}, false
	}
	kind := domain.ProductKind(req.Kind)
	if kind == "" {
		kind = domain.KindPrincipal
	}
	var addons []uuid.UUID
	for _, s := range req.AllowedAddons {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid allowed_addons entry")
			return domain.Product{}, false
		}
		addons = append(addons, id)
	}
	return domain.Product{
		Name:          req.Name,
		Price:         price,
		Stock:         req.Stock,
		Kind:          kind,
		Category:      req.Category,
		Options:       req.Options,
		AllowedAddons: addons,
		Position:      req.Position,
	}, true
}

func isProductValidationError(err error) bool {
	return errors.Is(err, domain.ErrProductName) ||
		errors.Is(err, domain.ErrProductPrice) ||
		errors.Is(err, domain.ErrProductKind) ||
		errors.Is(err, domain.ErrAddonWithOptions) ||
		errors.Is(err, domain.ErrAddonWithAddons) ||
		errors.Is(err, domain.ErrDuplicateAllowed) ||
		errors.Is(err, domain.ErrProductSelfAddon) ||
		errors.Is(err, service.ErrAddonReference)
}

func (h *ProductHandler) writeProductError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case isProductValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		internalError(w, h.log, op, err)
	}
}

// --- Handlers ---

// List returns every product, principals first.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products := h.svc.List()
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single product by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}
	p, err := h.svc.Get(id)
	if err != nil {
		h.writeProductError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// Create adds a product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	created, err := h.svc.Create(r.Context(), p)
	if err != nil {
		h.writeProductError(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(created))
}

// Update replaces a product. The stock counter is changed through SetStock only.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}
	p, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		h.writeProductError(w, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(updated))
}

// Delete removes a product.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeProductError(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStock handles PATCH /products/{id}/stock.
func (h *ProductHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}
	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Stock == nil {
		writeError(w, http.StatusBadRequest, "stock is required")
		return
	}
	p, err := h.svc.SetStock(r.Context(), id, *req.Stock)
	if err != nil {
		h.writeProductError(w, "set stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// Menu handles GET /menu: principal products grouped by category.
func (h *ProductHandler) Menu(w http.ResponseWriter, r *http.Request) {
	sections := h.svc.Menu()
	resp := make([]menuSectionResponse, len(sections))
	for i, s := range sections {
		products := make([]productResponse, len(s.Products))
		for j, p := range s.Products {
			products[j] = toProductResponse(p)
		}
		resp[i] = menuSectionResponse{Category: s.Category, Products: products}
	}
	writeJSON(w, http.StatusOK, resp)
}
