package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockMovement types
const (
	MovementSale       = "sale"
	MovementAdjustment = "adjustment"
)

// StockMovement records every stock change of a product
type StockMovement struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"productId"`
	OrderID         *uuid.UUID `gorm:"type:uuid;index" json:"orderId"` // nil for manual adjustments
	Type            string     `gorm:"type:varchar(20);not null" json:"type"`
	QuantityChanged int        `gorm:"type:int;not null" json:"quantityChanged"` // negative = out
	StockAfter      int        `gorm:"type:int;not null" json:"stockAfter"`
	CreatedAt       time.Time  `gorm:"index" json:"createdAt"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
