package repository

import (
	"context"
	"fmt"
	"time"

	"bakerycrm/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountOrdersBy(ctx context.Context, column string, start, end time.Time) (map[string]int64, error)
	CompletedRevenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	InvoiceTotalByStatus(ctx context.Context, status string) (decimal.Decimal, error)
	GetTopProducts(ctx context.Context, start, end time.Time, limit int) ([]model.ProductRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountOrdersBy(ctx context.Context, column string, start, end time.Time) (map[string]int64, error) {
	if column != "status" && column != "invoice_status" {
		return nil, fmt.Errorf("unsupported grouping column %q", column)
	}
	var rows []struct {
		Bucket string
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Order{}).
		Select(column+" as bucket, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Bucket] = row.Count
	}
	return result, nil
}

func (r *statisticsRepository) CompletedRevenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var result struct {
		Value decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.Order{}).
		Select("COALESCE(SUM(total), 0) as value").
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.OrderStatusCompleted, start, end).
		Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return result.Value, nil
}

func (r *statisticsRepository) InvoiceTotalByStatus(ctx context.Context, status string) (decimal.Decimal, error) {
	var result struct {
		Value decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("COALESCE(SUM(total), 0) as value").
		Where("status = ?", status).
		Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum invoices: %w", err)
	}
	return result.Value, nil
}

func (r *statisticsRepository) GetTopProducts(ctx context.Context, start, end time.Time, limit int) ([]model.ProductRanking, error) {
	var rankings []model.ProductRanking
	if err := GetDB(ctx, r.db).Table("order_items").
		Select("products.id as product_id, products.name as product_name, SUM(order_items.quantity) as total_quantity, COALESCE(SUM(order_items.quantity * order_items.price), 0) as total_value").
		Joins("JOIN products ON products.id = order_items.product_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ? AND orders.created_at >= ? AND orders.created_at <= ?", model.OrderStatusCompleted, start, end).
		Group("products.id, products.name").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	return rankings, nil
}
