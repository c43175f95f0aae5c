package service

import (
	"context"
	"testing"
	"time"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics_BoardCountsAndRevenue(t *testing.T) {
	h := newHarness(t)
	ana := h.customer(t, "Ana", "Gómez", "1122334455")
	pan := h.product(t, "Pan", "150", 10)
	torta := h.product(t, "Torta", "3500", 5)
	done := h.order(t, ana, lineOf(pan, 2), lineOf(torta, 1))
	h.order(t, ana, lineOf(pan, 1))
	h.manualInvoice(t, ana)

	_, err := h.orders.ChangeInvoiceStatus(ctx, done.ID.String(), model.InvoiceStatusPedidoCompleto)
	require.NoError(t, err)

	now := time.Now()
	stats, err := h.statistics.GetStatistics(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	assert.Len(t, stats.OrdersByInvoiceStatus, len(model.OrderInvoiceStatuses()))
	assert.Equal(t, int64(1), stats.OrdersByInvoiceStatus[model.InvoiceStatusPedidoCompleto])
	assert.Equal(t, int64(1), stats.OrdersByInvoiceStatus[model.InvoiceStatusRemito])
	assert.Equal(t, int64(0), stats.OrdersByInvoiceStatus[model.InvoiceStatusFacturaCobrada])
	assert.Equal(t, int64(1), stats.OrdersByStatus[model.OrderStatusCompleted])
	assertDecimal(t, "3800", stats.CompletedRevenue)
	assertDecimal(t, "121", stats.PendingInvoiceTotal)

	require.NotEmpty(t, stats.TopProducts)
	assert.Equal(t, "Pan", stats.TopProducts[0].ProductName)
	assert.Equal(t, 2, stats.TopProducts[0].TotalQuantity)

	// both products sit at or under the default threshold of 10
	names := []string{}
	for _, p := range stats.LowStockProducts {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"Pan", "Torta"}, names)
}

type fakeRevenueRepo struct {
	rows     []repository.InvoiceAmountRow
	statuses []string
}

func (f *fakeRevenueRepo) InvoiceAmounts(_ context.Context, _, _ time.Time, statuses []string) ([]repository.InvoiceAmountRow, error) {
	f.statuses = statuses
	return f.rows, nil
}

func TestRevenueService_Buckets(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 15, 0, 0, 0, time.UTC) }
	row := func(d int, subtotal int64) repository.InvoiceAmountRow {
		sub := decimal.NewFromInt(subtotal)
		tax := sub.Mul(decimal.RequireFromString("0.21"))
		return repository.InvoiceAmountRow{IssueDate: day(d), Subtotal: sub, Tax: tax, Total: sub.Add(tax)}
	}
	// 2024-03-04 is a Monday
	repo := &fakeRevenueRepo{rows: []repository.InvoiceAmountRow{row(1, 100), row(4, 200), row(5, 300), row(11, 400)}}
	svc := NewRevenueService(repo)

	tests := []struct {
		groupBy string
		periods []string
		counts  []int
	}{
		{"day", []string{"2024-03-01", "2024-03-04", "2024-03-05", "2024-03-11"}, []int{1, 1, 1, 1}},
		{"week", []string{"2024-02-26", "2024-03-04", "2024-03-11"}, []int{1, 2, 1}},
		{"month", []string{"2024-03-01"}, []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.groupBy, func(t *testing.T) {
			points, err := svc.GetRevenueStatistics(context.Background(), RevenueFilter{GroupBy: tt.groupBy})
			require.NoError(t, err)
			require.Len(t, points, len(tt.periods))
			for i, p := range points {
				assert.Equal(t, tt.periods[i], p.Period)
				assert.Equal(t, tt.counts[i], p.InvoiceCount)
			}
		})
	}

	points, err := svc.GetRevenueStatistics(context.Background(), RevenueFilter{GroupBy: "month"})
	require.NoError(t, err)
	assertDecimal(t, "1000", points[0].Subtotal)
	assertDecimal(t, "210", points[0].Tax)
	assertDecimal(t, "1210", points[0].Total)
	assert.ElementsMatch(t, []string{model.InvoicePending, model.InvoiceIssued, model.InvoicePaid}, repo.statuses)

	_, err = svc.GetRevenueStatistics(context.Background(), RevenueFilter{GroupBy: "year"})
	assert.ErrorIs(t, err, ErrValidation)
}
