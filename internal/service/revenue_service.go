package service

import (
	"context"
	"fmt"
	"time"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type RevenueDataPoint struct {
	Period       string          `json:"period"`
	InvoiceCount int             `json:"invoiceCount"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

type RevenueFilter struct {
	GroupBy   string // day, week, month
	StartDate time.Time
	EndDate   time.Time
}

// billedStatuses are the invoice states that count as revenue.
var billedStatuses = []string{model.InvoicePending, model.InvoiceIssued, model.InvoicePaid}

// --- Interface ---

type RevenueService interface {
	GetRevenueStatistics(ctx context.Context, filter RevenueFilter) ([]RevenueDataPoint, error)
}

type revenueService struct {
	revenueRepo repository.RevenueRepository
}

func NewRevenueService(revenueRepo repository.RevenueRepository) RevenueService {
	return &revenueService{revenueRepo: revenueRepo}
}

// --- Implementation ---

func (s *revenueService) GetRevenueStatistics(ctx context.Context, filter RevenueFilter) ([]RevenueDataPoint, error) {
	groupBy := filter.GroupBy
	switch groupBy {
	case "day", "week", "month":
	case "":
		groupBy = "day"
	default:
		return nil, validationf("group_by must be one of day, week, month")
	}

	rows, err := s.revenueRepo.InvoiceAmounts(ctx, filter.StartDate, filter.EndDate, billedStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue: %w", err)
	}

	points := []RevenueDataPoint{}
	index := map[string]int{}
	for _, row := range rows {
		period := periodStart(row.IssueDate, groupBy).Format(time.DateOnly)
		i, ok := index[period]
		if !ok {
			i = len(points)
			index[period] = i
			points = append(points, RevenueDataPoint{Period: period})
		}
		p := &points[i]
		p.InvoiceCount++
		p.Subtotal = p.Subtotal.Add(row.Subtotal)
		p.Tax = p.Tax.Add(row.Tax)
		p.Total = p.Total.Add(row.Total)
	}
	return points, nil
}

// periodStart truncates t to the first day of its bucket. Weeks start on Monday.
func periodStart(t time.Time, groupBy string) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch groupBy {
	case "week":
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return day
}
