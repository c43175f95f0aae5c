package repository

import (
	"context"
	"errors"

	"bakerycrm/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository hands out invoice numbers per (type, point of sale).
type SequenceRepository interface {
	// Next must run inside a transaction: the counter row stays locked until commit.
	// seed is consulted only when the counter row does not exist yet.
	Next(ctx context.Context, invoiceType, pointOfSale string, seed func(ctx context.Context) (int64, error)) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, invoiceType, pointOfSale string, seed func(ctx context.Context) (int64, error)) (int64, error) {
	db := GetDB(ctx, r.db)

	var seq model.InvoiceSequence
	err := forUpdate(db).
		Where("invoice_type = ? AND point_of_sale = ?", invoiceType, pointOfSale).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var start int64
		if seed != nil {
			if start, err = seed(ctx); err != nil {
				return 0, err
			}
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.InvoiceSequence{
			InvoiceType: invoiceType,
			PointOfSale: pointOfSale,
			LastNumber:  start,
		}).Error; err != nil {
			return 0, err
		}
		err = forUpdate(db).
			Where("invoice_type = ? AND point_of_sale = ?", invoiceType, pointOfSale).
			First(&seq).Error
	}
	if err != nil {
		return 0, err
	}

	res := db.Model(&model.InvoiceSequence{}).
		Where("invoice_type = ? AND point_of_sale = ? AND last_number = ?", invoiceType, pointOfSale, seq.LastNumber).
		Updates(map[string]interface{}{"last_number": seq.LastNumber + 1})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected != 1 {
		return 0, ErrSequenceContention
	}
	return seq.LastNumber + 1, nil
}
