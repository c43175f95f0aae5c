package repository

import (
	"context"

	"bakerycrm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssociationRepository owns the order_invoices join table. Both directions of
// the order <-> invoice link are read from here.
type AssociationRepository interface {
	Link(ctx context.Context, orderID, invoiceID uuid.UUID) (bool, error)
	Unlink(ctx context.Context, orderID, invoiceID uuid.UUID) (bool, error)
	InvoiceIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	OrderIDs(ctx context.Context, invoiceID uuid.UUID) ([]uuid.UUID, error)
	InvoiceIDsByOrder(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	OrderIDsByInvoice(ctx context.Context, invoiceIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) error
}

type associationRepository struct {
	db *gorm.DB
}

func NewAssociationRepository(db *gorm.DB) AssociationRepository {
	return &associationRepository{db: db}
}

// Link inserts the pair; a pair that already exists is left alone and reported as false.
func (r *associationRepository) Link(ctx context.Context, orderID, invoiceID uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.OrderInvoice{OrderID: orderID, InvoiceID: invoiceID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *associationRepository) Unlink(ctx context.Context, orderID, invoiceID uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).
		Where("order_id = ? AND invoice_id = ?", orderID, invoiceID).
		Delete(&model.OrderInvoice{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *associationRepository) InvoiceIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	if err := GetDB(ctx, r.db).Model(&model.OrderInvoice{}).
		Where("order_id = ?", orderID).
		Order("created_at").
		Pluck("invoice_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *associationRepository) OrderIDs(ctx context.Context, invoiceID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	if err := GetDB(ctx, r.db).Model(&model.OrderInvoice{}).
		Where("invoice_id = ?", invoiceID).
		Order("created_at").
		Pluck("order_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *associationRepository) InvoiceIDsByOrder(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}
	var links []model.OrderInvoice
	if err := GetDB(ctx, r.db).Where("order_id IN ?", orderIDs).Order("created_at").Find(&links).Error; err != nil {
		return nil, err
	}
	for _, l := range links {
		result[l.OrderID] = append(result[l.OrderID], l.InvoiceID)
	}
	return result, nil
}

func (r *associationRepository) OrderIDsByInvoice(ctx context.Context, invoiceIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return result, nil
	}
	var links []model.OrderInvoice
	if err := GetDB(ctx, r.db).Where("invoice_id IN ?", invoiceIDs).Order("created_at").Find(&links).Error; err != nil {
		return nil, err
	}
	for _, l := range links {
		result[l.InvoiceID] = append(result[l.InvoiceID], l.OrderID)
	}
	return result, nil
}

func (r *associationRepository) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("order_id = ?", orderID).Delete(&model.OrderInvoice{}).Error
}
