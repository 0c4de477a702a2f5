package report

import (
	"testing"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(n int, date string, status domain.Status, method, total, fee string) domain.Order {
	return domain.Order{
		ID:            uuid.New(),
		Number:        n,
		Date:          date,
		Status:        status,
		PaymentMethod: method,
		Total:         decimal.RequireFromString(total),
		DeliveryFee:   decimal.RequireFromString(fee),
	}
}

func TestDaily(t *testing.T) {
	orders := []domain.Order{
		order(1, "2026-03-14", domain.StatusCompleted, "Pix", "41.00", "5"),
		order(2, "2026-03-14", domain.StatusCompleted, "Dinheiro", "55.00", "5"),
		order(3, "2026-03-14", domain.StatusCancelled, "Pix", "30.00", "0"),
		order(4, "2026-03-14", domain.StatusPending, "Pix", "18.00", "0"),
		order(5, "2026-03-14", domain.StatusOutForDelivery, "Cartao", "22.00", "4"),
		order(6, "2026-03-14", domain.StatusCompleted, "Pix", "20.50", "0"),
		order(7, "2026-03-15", domain.StatusCompleted, "Pix", "99.00", "0"),
	}

	s := Daily(orders, "2026-03-14")

	assert.Equal(t, "2026-03-14", s.Date)
	assert.Equal(t, 3, s.Completed)
	assert.Equal(t, 1, s.Cancelled)
	assert.Equal(t, 2, s.Open)
	assert.Equal(t, "116.50", s.Revenue.StringFixed(2))
	assert.Equal(t, "10.00", s.DeliveryFees.StringFixed(2))
	assert.Equal(t, "38.83", s.AverageTicket.StringFixed(2))

	require.Len(t, s.ByPayment, 2)
	assert.Equal(t, "Pix", s.ByPayment[0].Method)
	assert.Equal(t, 2, s.ByPayment[0].Count)
	assert.Equal(t, "61.50", s.ByPayment[0].Revenue.StringFixed(2))
	assert.Equal(t, "Dinheiro", s.ByPayment[1].Method)

	require.Len(t, s.Orders, 6)
	assert.Equal(t, 6, s.Orders[0].Number, "history is newest first")
}

func TestDaily_EmptyDay(t *testing.T) {
	s := Daily(nil, "2026-01-01")

	assert.Zero(t, s.Completed)
	assert.True(t, s.Revenue.IsZero())
	assert.True(t, s.AverageTicket.IsZero())
	assert.NotNil(t, s.ByPayment)
	assert.NotNil(t, s.Orders)
}

// A returned order was completed once but now counts as cancelled.
func TestDaily_ReturnedOrderIsNotRevenue(t *testing.T) {
	o := order(1, "2026-03-14", domain.StatusCompleted, "Pix", "41.00", "5")
	before := Daily([]domain.Order{o}, o.Date)
	o.Status = domain.StatusCancelled
	after := Daily([]domain.Order{o}, o.Date)

	assert.Equal(t, "41.00", before.Revenue.StringFixed(2))
	assert.True(t, after.Revenue.IsZero())
	assert.Equal(t, 1, after.Cancelled)
}
