package repository

import (
	"context"
	"fmt"
	"time"

	"bakerycrm/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceAmountRow is the slice of an invoice the revenue report needs.
type InvoiceAmountRow struct {
	IssueDate time.Time       `gorm:"column:issue_date"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal"`
	Tax       decimal.Decimal `gorm:"column:tax"`
	Total     decimal.Decimal `gorm:"column:total"`
}

type RevenueRepository interface {
	InvoiceAmounts(ctx context.Context, start, end time.Time, statuses []string) ([]InvoiceAmountRow, error)
}

type revenueRepository struct {
	db *gorm.DB
}

func NewRevenueRepository(db *gorm.DB) RevenueRepository {
	return &revenueRepository{db: db}
}

// InvoiceAmounts returns the amounts of every invoice issued in [start, end] with one of the given statuses,
// oldest first. Bucketing happens in the caller so the query stays portable across drivers.
func (r *revenueRepository) InvoiceAmounts(ctx context.Context, start, end time.Time, statuses []string) ([]InvoiceAmountRow, error) {
	var rows []InvoiceAmountRow
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("issue_date, subtotal, (iva21 + iva10 + iva27 + other_taxes) AS tax, total").
		Where("issue_date >= ? AND issue_date <= ? AND status IN ?", start, end, statuses).
		Order("issue_date").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query invoice amounts: %w", err)
	}
	return rows, nil
}
