package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerType enum constants
const (
	CustomerTypeParticular = "particular"
	CustomerTypeEmpresa    = "empresa"
)

// Customer is a billable party. Phone is the business key and never changes after creation.
type Customer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName      string    `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName       string    `gorm:"type:varchar(100);not null" json:"lastName"`
	Phone          string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"phone"`
	DocumentNumber string    `gorm:"type:varchar(20)" json:"documentNumber"`
	Address        string    `gorm:"type:text" json:"address"`
	Type           string    `gorm:"type:varchar(20);not null;default:'particular'" json:"type"` // particular, empresa
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// FullName joins first and last name the way invoices print it
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
