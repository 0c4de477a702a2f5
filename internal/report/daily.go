// Package report builds the end-of-day cash summary.
package report

import (
	"sort"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentTotal is the revenue taken with one payment method.
type PaymentTotal struct {
	Method  string          `json:"method"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Summary is the cash report for one date.
type Summary struct {
	Date          string          `json:"date"`
	Completed     int             `json:"completed"`
	Cancelled     int             `json:"cancelled"`
	Open          int             `json:"open"`
	Revenue       decimal.Decimal `json:"revenue"`
	DeliveryFees  decimal.Decimal `json:"delivery_fees"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
	ByPayment     []PaymentTotal  `json:"by_payment"`
	Orders        []domain.Order  `json:"orders"`
}

// Daily summarizes the orders placed on date (YYYY-MM-DD). Revenue is the sum
// of the stored totals of completed orders; totals are not recomputed.
func Daily(orders []domain.Order, date string) Summary {
	s := Summary{
		Date:          date,
		Revenue:       decimal.Zero,
		DeliveryFees:  decimal.Zero,
		AverageTicket: decimal.Zero,
		ByPayment:     []PaymentTotal{},
		Orders:        []domain.Order{},
	}
	byMethod := map[string]*PaymentTotal{}

	for _, o := range orders {
		if o.Date != date {
			continue
		}
		s.Orders = append(s.Orders, o.Clone())

		switch o.Status {
		case domain.StatusCompleted:
			s.Completed++
			s.Revenue = s.Revenue.Add(o.Total)
			s.DeliveryFees = s.DeliveryFees.Add(o.DeliveryFee)
			pt, ok := byMethod[o.PaymentMethod]
			if !ok {
				pt = &PaymentTotal{Method: o.PaymentMethod, Revenue: decimal.Zero}
				byMethod[o.PaymentMethod] = pt
			}
			pt.Count++
			pt.Revenue = pt.Revenue.Add(o.Total)
		case domain.StatusCancelled:
			s.Cancelled++
		default:
			s.Open++
		}
	}

	if s.Completed > 0 {
		s.AverageTicket = s.Revenue.Div(decimal.NewFromInt(int64(s.Completed)))
	}
	for _, pt := range byMethod {
		s.ByPayment = append(s.ByPayment, *pt)
	}
	sort.Slice(s.ByPayment, func(i, j int) bool {
		if !s.ByPayment[i].Revenue.Equal(s.ByPayment[j].Revenue) {
			return s.ByPayment[i].Revenue.GreaterThan(s.ByPayment[j].Revenue)
		}
		return s.ByPayment[i].Method < s.ByPayment[j].Method
	})
	sort.SliceStable(s.Orders, func(i, j int) bool { return s.Orders[i].Number > s.Orders[j].Number })
	return s
}
