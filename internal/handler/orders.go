package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/inventory"
	"github.com/bestdog-pos/api/internal/lifecycle"
	"github.com/bestdog-pos/api/internal/orders"
	"github.com/bestdog-pos/api/internal/pricing"
	"github.com/bestdog-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, d domain.Draft) (domain.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, d domain.Draft) (domain.Order, error)
	GetOrder(id uuid.UUID) (domain.Order, error)
	ListOrders(f orders.Filter) []domain.Order
	Quote(d domain.Draft) pricing.Breakdown
	Transition(ctx context.Context, id uuid.UUID, event domain.Event) (lifecycle.Result, error)
}

// ProductGetter resolves catalog products for line items sent without a
// name or price. Satisfied by *service.CatalogService.
type ProductGetter interface {
	Get(id uuid.UUID) (domain.Product, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc     OrderServicer
	catalog ProductGetter
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, catalog ProductGetter, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{svc: svc, catalog: catalog, log: log, now: time.Now}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders. transitions wraps the transition route,
// typically with the idempotency middleware; nil leaves it bare.
func (h *OrderHandler) RegisterRoutes(r chi.Router, transitions func(http.Handler) http.Handler) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Post("/quote", h.Quote)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	if transitions != nil {
		r.With(transitions).Post("/{id}/transitions", h.Transition)
	} else {
		r.Post("/{id}/transitions", h.Transition)
	}
}

// --- Request / Response types ---

type customerRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type orderRequest struct {
	Customer        customerRequest    `json:"customer"`
	Items           []orderItemRequest `json:"items"`
	DeliveryFee     flexString         `json:"delivery_fee"`
	DiscountPercent flexString         `json:"discount_percent"`
	PaymentMethod   string             `json:"payment_method"`
	Notes           string             `json:"notes"`
	PrepMinutes     int                `json:"prep_minutes"`
	TravelMinutes   int                `json:"travel_minutes"`
}

type orderItemRequest struct {
	ProductID string     `json:"product_id"`
	Name      string     `json:"name"`
	Price     flexString `json:"price"`
	Quantity  flexString `json:"quantity"`
	Option    *string    `json:"option"`
	Addons    []string   `json:"addons"`
}

type transitionRequest struct {
	Event string `json:"event"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Number          int                 `json:"number"`
	Label           string              `json:"label"`
	Customer        domain.Customer     `json:"customer"`
	Items           []orderItemResponse `json:"items"`
	DeliveryFee     string              `json:"delivery_fee"`
	DiscountPercent string              `json:"discount_percent"`
	Total           string              `json:"total"`
	PaymentMethod   string              `json:"payment_method"`
	Notes           string              `json:"notes"`
	Status          domain.Status       `json:"status"`
	Events          []domain.Event      `json:"events"`
	PrepMinutes     int                 `json:"prep_minutes"`
	TravelMinutes   int                 `json:"travel_minutes"`
	DueAt           *time.Time          `json:"due_at"`
	Overdue         bool                `json:"overdue"`
	Date            string              `json:"date"`
	Time            string              `json:"time"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	ProductID uuid.UUID   `json:"product_id"`
	Name      string      `json:"name"`
	Price     string      `json:"price"`
	Quantity  int         `json:"quantity"`
	Option    string      `json:"option"`
	Addons    []uuid.UUID `json:"addons"`
}

type quoteLineResponse struct {
	ProductID       uuid.UUID `json:"product_id"`
	Name            string    `json:"name"`
	UnitPrice       string    `json:"unit_price"`
	AddonSurcharge  string    `json:"addon_surcharge"`
	OptionSurcharge string    `json:"option_surcharge"`
	Quantity        int       `json:"quantity"`
	LineTotal       string    `json:"line_total"`
}

type quoteResponse struct {
	Lines           []quoteLineResponse `json:"lines"`
	Subtotal        string              `json:"subtotal"`
	DiscountPercent string              `json:"discount_percent"`
	DiscountAmount  string              `json:"discount_amount"`
	DeliveryFee     string              `json:"delivery_fee"`
	Total           string              `json:"total"`
}

type transitionResponse struct {
	Order orderResponse          `json:"order"`
	From  domain.Status          `json:"from"`
	To    domain.Status          `json:"to"`
	Event domain.Event           `json:"event"`
	Stock []inventory.Adjustment `json:"stock"`
}

func (h *OrderHandler) toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, li := range o.Items {
		addons := li.Addons
		if addons == nil {
			addons = []uuid.UUID{}
		}
		items[i] = orderItemResponse{
			ProductID: li.ProductID,
			Name:      li.Name,
			Price:     pricing.Format(li.Price),
			Quantity:  li.Quantity,
			Option:    li.Option,
			Addons:    addons,
		}
	}
	events := lifecycle.Events(o.Status)
	if events == nil {
		events = []domain.Event{}
	}
	resp := orderResponse{
		ID:              o.ID,
		Number:          o.Number,
		Label:           o.Label(),
		Customer:        o.Customer,
		Items:           items,
		DeliveryFee:     pricing.Format(o.DeliveryFee),
		DiscountPercent: o.DiscountPercent.String(),
		Total:           pricing.Format(o.Total),
		PaymentMethod:   o.PaymentMethod,
		Notes:           o.Notes,
		Status:          o.Status,
		Events:          events,
		PrepMinutes:     o.PrepMinutes,
		TravelMinutes:   o.TravelMinutes,
		Overdue:         o.Overdue(h.now()),
		Date:            o.Date,
		Time:            o.Time,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.PrepMinutes+o.TravelMinutes > 0 {
		due := o.DueAt()
		resp.DueAt = &due
	}
	return resp
}

func toQuoteResponse(b pricing.Breakdown) quoteResponse {
	lines := make([]quoteLineResponse, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = quoteLineResponse{
			ProductID:       l.ProductID,
			Name:            l.Name,
			UnitPrice:       pricing.Format(l.UnitPrice),
			AddonSurcharge:  pricing.Format(l.AddonSurcharge),
			OptionSurcharge: pricing.Format(l.OptionSurcharge),
			Quantity:        l.Quantity,
			LineTotal:       pricing.Format(l.LineTotal),
		}
	}
	return quoteResponse{
		Lines:           lines,
		Subtotal:        pricing.Format(b.Subtotal),
		DiscountPercent: b.DiscountPercent.String(),
		DiscountAmount:  pricing.Format(b.DiscountAmount),
		DeliveryFee:     pricing.Format(b.DeliveryFee),
		Total:           pricing.Format(b.Total),
	}
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	d, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	o, err := h.svc.CreateOrder(r.Context(), d)
	if err != nil {
		h.writeOrderError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toOrderResponse(o))
}

// List handles GET /orders?status=&date=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var f orders.Filter
	if s := r.URL.Query().Get("status"); s != "" {
		f.Status = domain.Status(s)
		if !f.Status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}
	if s := r.URL.Query().Get("date"); s != "" {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		f.Date = s
	}

	list := h.svc.ListOrders(f)
	resp := make([]orderResponse, len(list))
	for i, o := range list {
		resp[i] = h.toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	o, err := h.svc.GetOrder(id)
	if err != nil {
		h.writeOrderError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toOrderResponse(o))
}

// Update handles PUT /orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}
	d, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}

	o, err := h.svc.UpdateOrder(r.Context(), id, d)
	if err != nil {
		h.writeOrderError(w, "update order", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toOrderResponse(o))
}

// Quote handles POST /orders/quote. Nothing is stored.
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	d, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(h.svc.Quote(d)))
}

// Transition handles POST /orders/{id}/transitions.
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Event == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}

	res, err := h.svc.Transition(r.Context(), id, domain.Event(req.Event))
	if err != nil {
		h.writeOrderError(w, "order transition", err)
		return
	}

	stock := res.Adjustments
	if stock == nil {
		stock = []inventory.Adjustment{}
	}
	writeJSON(w, http.StatusOK, transitionResponse{
		Order: h.toOrderResponse(res.Order),
		From:  res.Transition.From,
		To:    res.Transition.To,
		Event: res.Transition.Event,
		Stock: stock,
	})
}

// --- Helpers ---

// decodeDraft reads an order body. Money and quantity fields are read
// leniently; ids must parse. Lines sent without a name or price take them
// from the catalog, and lines without an option get the product's first one.
func (h *OrderHandler) decodeDraft(w http.ResponseWriter, r *http.Request) (domain.Draft, bool) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return domain.Draft{}, false
	}

	items := make([]domain.LineItem, len(req.Items))
	for i, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			writeError(w, http.StatusBadRequest, formatItemError(i, "invalid product_id"))
			return domain.Draft{}, false
		}
		var addons []uuid.UUID
		for j, s := range item.Addons {
			addonID, err := uuid.Parse(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, formatItemError(i, "invalid addons["+strconv.Itoa(j)+"]"))
				return domain.Draft{}, false
			}
			addons = append(addons, addonID)
		}

		li := domain.LineItem{
			ProductID: productID,
			Name:      item.Name,
			Price:     pricing.ParseAmount(string(item.Price)),
			Quantity:  pricing.ParseQuantity(string(item.Quantity)),
			Addons:    addons,
		}
		if item.Option != nil {
			li.Option = *item.Option
		}
		if p, err := h.catalog.Get(productID); err == nil {
			if li.Name == "" {
				li.Name = p.Name
			}
			if item.Price == "" {
				li.Price = p.Price
			}
			if item.Option == nil {
				li.Option = pricing.DefaultOption(p.Options)
			}
		}
		items[i] = li
	}

	return domain.Draft{
		Customer: domain.Customer{
			Name:    req.Customer.Name,
			Address: req.Customer.Address,
			Phone:   req.Customer.Phone,
		},
		Items:           items,
		DeliveryFee:     pricing.ParseAmount(string(req.DeliveryFee)),
		DiscountPercent: pricing.ParseAmount(string(req.DiscountPercent)),
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		PrepMinutes:     req.PrepMinutes,
		TravelMinutes:   req.TravelMinutes,
	}, true
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

// isValidationError checks if the error is a known validation error
// from the order engine that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, orders.ErrEmptyItems) ||
		errors.Is(err, orders.ErrUnknownProduct) ||
		errors.Is(err, orders.ErrNotPrincipal) ||
		errors.Is(err, orders.ErrUnknownAddon) ||
		errors.Is(err, orders.ErrAddonNotAllowed) ||
		errors.Is(err, orders.ErrUnknownOption) ||
		errors.Is(err, lifecycle.ErrUnknownEvent)
}

func isConflictError(err error) bool {
	return errors.Is(err, lifecycle.ErrInvalidTransition) ||
		errors.Is(err, orders.ErrStatusConflict) ||
		errors.Is(err, orders.ErrOrderClosed) ||
		errors.Is(err, service.ErrStaleOrder) ||
		errors.Is(err, service.ErrOrderNumberTaken)
}

func (h *OrderHandler) writeOrderError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case isConflictError(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		internalError(w, h.log, op, err)
	}
}
