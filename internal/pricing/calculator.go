// Package pricing turns order line items into money. It never fails: missing
// or malformed numbers count as zero so a half-filled draft can still be priced.
// Nothing is rounded here; rounding happens only when an amount is displayed.
package pricing

import (
	"github.com/bestdog-pos/api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Lookup resolves catalog products by id. Satisfied by domain.Catalog.
type Lookup interface {
	Lookup(id uuid.UUID) (domain.Product, bool)
}

// Line is the priced form of one line item.
type Line struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	AddonSurcharge  decimal.Decimal `json:"addon_surcharge"`
	OptionSurcharge decimal.Decimal `json:"option_surcharge"`
	Quantity        int             `json:"quantity"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// Breakdown is the full price of an order.
type Breakdown struct {
	Lines           []Line          `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Total           decimal.Decimal `json:"total"`
}

// ComputeTotal returns the grand total of an order:
// subtotal - subtotal*discountPercent/100 + deliveryFee.
func ComputeTotal(items []domain.LineItem, catalog Lookup, deliveryFee, discountPercent decimal.Decimal) decimal.Decimal {
	return Quote(items, catalog, deliveryFee, discountPercent).Total
}

// Quote prices every line and the order totals.
func Quote(items []domain.LineItem, catalog Lookup, deliveryFee, discountPercent decimal.Decimal) Breakdown {
	b := Breakdown{
		Lines:           make([]Line, 0, len(items)),
		Subtotal:        decimal.Zero,
		DiscountPercent: discountPercent,
		DeliveryFee:     deliveryFee,
	}
	for _, item := range items {
		line := PriceLine(item, catalog)
		b.Subtotal = b.Subtotal.Add(line.LineTotal)
		b.Lines = append(b.Lines, line)
	}
	b.DiscountAmount = b.Subtotal.Mul(discountPercent).Div(hundred)
	b.Total = b.Subtotal.Sub(b.DiscountAmount).Add(deliveryFee)
	return b
}

// PriceLine prices a single line item:
// (unit price + addon surcharge + option surcharge) * quantity.
func PriceLine(item domain.LineItem, catalog Lookup) Line {
	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}
	addons := AddonSurcharge(item.Addons, catalog)
	option := ParseOptionValue(item.Option)
	unit := item.Price.Add(addons).Add(option)
	return Line{
		ProductID:       item.ProductID,
		Name:            item.Name,
		UnitPrice:       item.Price,
		AddonSurcharge:  addons,
		OptionSurcharge: option,
		Quantity:        qty,
		LineTotal:       unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// AddonSurcharge sums the current catalog price of each addon id. Ids that no
// longer resolve to an addon-kind product contribute nothing.
func AddonSurcharge(ids []uuid.UUID, catalog Lookup) decimal.Decimal {
	sum := decimal.Zero
	if catalog == nil {
		return sum
	}
	for _, id := range ids {
		p, ok := catalog.Lookup(id)
		if !ok || p.Kind != domain.KindAddon {
			continue
		}
		sum = sum.Add(p.Price)
	}
	return sum
}

// Format renders an amount with two decimal places for display.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
