package service

import (
	"context"
	"time"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"

	"golang.org/x/sync/errgroup"
)

const (
	topProductsLimit = 5
	lowStockLimit    = 20
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	statsRepo   repository.StatisticsRepository
	productRepo repository.ProductRepository
}

func NewStatisticsService(statsRepo repository.StatisticsRepository, productRepo repository.ProductRepository) StatisticsService {
	return &statisticsService{statsRepo: statsRepo, productRepo: productRepo}
}

// GetStatistics builds the dashboard: Kanban column counts plus revenue and stock figures for the window.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	response := model.StatisticsResponse{
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.statsRepo.CountOrdersBy(gctx, "invoice_status", startDate, endDate)
		if err != nil {
			return err
		}
		// every column shows up, empty ones included
		for _, st := range model.OrderInvoiceStatuses() {
			if _, ok := counts[st]; !ok {
				counts[st] = 0
			}
		}
		response.OrdersByInvoiceStatus = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.statsRepo.CountOrdersBy(gctx, "status", startDate, endDate)
		response.OrdersByStatus = counts
		return err
	})
	g.Go(func() error {
		revenue, err := s.statsRepo.CompletedRevenue(gctx, startDate, endDate)
		response.CompletedRevenue = revenue
		return err
	})
	g.Go(func() error {
		pending, err := s.statsRepo.InvoiceTotalByStatus(gctx, model.InvoicePending)
		response.PendingInvoiceTotal = pending
		return err
	})
	g.Go(func() error {
		low, err := s.productRepo.LowStock(gctx, lowStockLimit)
		response.LowStockProducts = low
		return err
	})
	g.Go(func() error {
		top, err := s.statsRepo.GetTopProducts(gctx, startDate, endDate, topProductsLimit)
		response.TopProducts = top
		return err
	})
	if err := g.Wait(); err != nil {
		return model.StatisticsResponse{}, err
	}

	if response.LowStockProducts == nil {
		response.LowStockProducts = []model.Product{}
	}
	if response.TopProducts == nil {
		response.TopProducts = []model.ProductRanking{}
	}
	return response, nil
}
