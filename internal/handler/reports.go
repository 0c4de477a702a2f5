package handler

import (
	"net/http"
	"time"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/orders"
	"github.com/bestdog-pos/api/internal/pricing"
	"github.com/bestdog-pos/api/internal/report"
	"github.com/go-chi/chi/v5"
)

// OrderLister lists stored orders. Satisfied by *service.OrderService.
type OrderLister interface {
	ListOrders(f orders.Filter) []domain.Order
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	orders OrderLister
	loc    *time.Location
	now    func() time.Time
}

// NewReportsHandler creates a new ReportsHandler. Dates without an explicit
// ?date= resolve to today in loc.
func NewReportsHandler(orders OrderLister, loc *time.Location) *ReportsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportsHandler{orders: orders, loc: loc, now: time.Now}
}

// RegisterRoutes registers report endpoints. Expected to be mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily", h.Daily)
}

// --- Response types ---

type paymentTotalResponse struct {
	Method  string `json:"method"`
	Count   int    `json:"count"`
	Revenue string `json:"revenue"`
}

type dailyOrderResponse struct {
	Number        int           `json:"number"`
	Label         string        `json:"label"`
	Time          string        `json:"time"`
	Customer      string        `json:"customer"`
	Status        domain.Status `json:"status"`
	PaymentMethod string        `json:"payment_method"`
	Total         string        `json:"total"`
}

type dailyResponse struct {
	Date          string                 `json:"date"`
	Completed     int                    `json:"completed"`
	Cancelled     int                    `json:"cancelled"`
	Open          int                    `json:"open"`
	Revenue       string                 `json:"revenue"`
	DeliveryFees  string                 `json:"delivery_fees"`
	AverageTicket string                 `json:"average_ticket"`
	ByPayment     []paymentTotalResponse `json:"by_payment"`
	Orders        []dailyOrderResponse   `json:"orders"`
}

// --- Handlers ---

// Daily returns the cash summary for ?date=YYYY-MM-DD, defaulting to today.
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.now().In(h.loc).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	s := report.Daily(h.orders.ListOrders(orders.Filter{Date: date}), date)

	resp := dailyResponse{
		Date:          s.Date,
		Completed:     s.Completed,
		Cancelled:     s.Cancelled,
		Open:          s.Open,
		Revenue:       pricing.Format(s.Revenue),
		DeliveryFees:  pricing.Format(s.DeliveryFees),
		AverageTicket: pricing.Format(s.AverageTicket),
		ByPayment:     make([]paymentTotalResponse, len(s.ByPayment)),
		Orders:        make([]dailyOrderResponse, len(s.Orders)),
	}
	for i, pt := range s.ByPayment {
		resp.ByPayment[i] = paymentTotalResponse{Method: pt.Method, Count: pt.Count, Revenue: pricing.Format(pt.Revenue)}
	}
	for i, o := range s.Orders {
		resp.Orders[i] = dailyOrderResponse{
			Number:        o.Number,
			Label:         o.Label(),
			Time:          o.Time,
			Customer:      o.Customer.Name,
			Status:        o.Status,
			PaymentMethod: o.PaymentMethod,
			Total:         pricing.Format(o.Total),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
