package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultProductCategory = "Sin categoría"
	DefaultProductUnit     = "unidad"
	DefaultMinStock        = 10
)

// Product is a catalog entry. Stock has no floor: a negative value means oversold.
// Names are unique among live products only, so a deleted name can be reused.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_products_name,where:deleted_at IS NULL" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"type:varchar(100);not null;default:'Sin categoría'" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int             `gorm:"type:int;not null;default:0" json:"stock"`
	Unit        string          `gorm:"type:varchar(30);not null;default:'unidad'" json:"unit"` // unidad, kg, litros...
	MinStock    int             `gorm:"type:int;not null" json:"minStock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// LowStock is advisory only; nothing blocks a sale below the threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}
