package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateCustomer     = "CREATE_CUSTOMER"
	ActionUpdateCustomer     = "UPDATE_CUSTOMER"
	ActionCreateProduct      = "CREATE_PRODUCT"
	ActionUpdateProduct      = "UPDATE_PRODUCT"
	ActionDeleteProduct      = "DELETE_PRODUCT"
	ActionAdjustStock        = "ADJUST_STOCK"
	ActionCreateOrder        = "CREATE_ORDER"
	ActionUpdateOrder        = "UPDATE_ORDER"
	ActionDeleteOrder        = "DELETE_ORDER"
	ActionChangeOrderStatus  = "CHANGE_ORDER_STATUS"
	ActionAssociateInvoice   = "ASSOCIATE_INVOICE"
	ActionDisassociate       = "DISASSOCIATE_INVOICE"
	ActionCreateInvoice      = "CREATE_INVOICE"
	ActionChangeInvoiceState = "CHANGE_INVOICE_STATUS"
	ActionCascadeFailed      = "INVOICE_CASCADE_FAILED"
)

// AuditLog tracks what changed and when for workflow mutations
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entityId"`
	EntityName string         `gorm:"type:varchar(255)" json:"entityName,omitempty"`
	Details    datatypes.JSON `json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
