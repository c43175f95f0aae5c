package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceType enum constants. B is the final-consumer class.
const (
	InvoiceTypeA   = "A"
	InvoiceTypeB   = "B"
	InvoiceTypeC   = "C"
	InvoiceTypeM   = "M"
	InvoiceTypeNCA = "NC-A"
	InvoiceTypeNCB = "NC-B"
	InvoiceTypeNCC = "NC-C"
	InvoiceTypeNDA = "ND-A"
	InvoiceTypeNDB = "ND-B"
	InvoiceTypeNDC = "ND-C"
)

// DocumentType enum constants
const (
	DocumentCUIT = "CUIT"
	DocumentDNI  = "DNI"
	DocumentCUIL = "CUIL"
	DocumentCE   = "CE"
)

// InvoiceStatus constants. Paid is only written by the order completion cascade.
const (
	InvoicePending   = "pendiente"
	InvoiceIssued    = "emitida"
	InvoiceRejected  = "rechazada"
	InvoiceCancelled = "anulada"
	InvoicePaid      = "pagada"
)

const DefaultPointOfSale = "0001"

var invoiceTypes = []string{
	InvoiceTypeA, InvoiceTypeB, InvoiceTypeC, InvoiceTypeM,
	InvoiceTypeNCA, InvoiceTypeNCB, InvoiceTypeNCC,
	InvoiceTypeNDA, InvoiceTypeNDB, InvoiceTypeNDC,
}

var documentTypes = []string{DocumentCUIT, DocumentDNI, DocumentCUIL, DocumentCE}

var invoicePaymentMethods = []string{PaymentCash, PaymentTransfer, PaymentCard, PaymentCheque, PaymentOther}

func IsInvoiceType(s string) bool          { return contains(invoiceTypes, s) }
func IsDocumentType(s string) bool         { return contains(documentTypes, s) }
func IsInvoicePaymentMethod(s string) bool { return contains(invoicePaymentMethods, s) }

// Invoice is a billing document for one customer covering one or more orders.
// Orders is a projection of the order_invoices join table.
type Invoice struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"customerId"`
	Customer          *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	InvoiceType       string          `gorm:"type:varchar(5);not null;uniqueIndex:idx_invoice_number" json:"invoiceType"`
	PointOfSale       string          `gorm:"type:varchar(5);not null;default:'0001';uniqueIndex:idx_invoice_number" json:"pointOfSale"`
	InvoiceNumber     string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_invoice_number" json:"invoiceNumber"`
	DocumentType      string          `gorm:"type:varchar(5);not null" json:"documentType"`
	DocumentNumber    string          `gorm:"type:varchar(20);not null" json:"documentNumber"`
	CustomerName      string          `gorm:"type:varchar(255);not null" json:"customerName"`
	Address           string          `gorm:"type:text" json:"address"`
	Items             []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	IVA21             decimal.Decimal `gorm:"column:iva21;type:decimal(14,2);not null;default:0" json:"iva21"`
	IVA10             decimal.Decimal `gorm:"column:iva10;type:decimal(14,2);not null;default:0" json:"iva10"`
	IVA27             decimal.Decimal `gorm:"column:iva27;type:decimal(14,2);not null;default:0" json:"iva27"`
	OtherTaxes        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"otherTaxes"`
	Total             decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	PaymentMethod     string          `gorm:"type:varchar(20);not null;default:'efectivo'" json:"paymentMethod"`
	CAE               string          `gorm:"column:cae;type:varchar(20)" json:"cae"`
	CAEExpirationDate *time.Time      `gorm:"column:cae_expiration_date" json:"caeExpirationDate"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pendiente';index" json:"status"`
	IssueDate         time.Time       `gorm:"index" json:"issueDate"`
	Orders            []uuid.UUID     `gorm:"-" json:"orders"`
	CreatedAt         time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (inv *Invoice) BeforeCreate(tx *gorm.DB) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	return nil
}

// InvoiceItem is a printed line of an invoice; amounts are stored as computed by the caller.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoiceId"`
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unitPrice"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	IVA         decimal.Decimal `gorm:"column:iva;type:decimal(14,2);not null" json:"iva"`
	Total       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceSequence holds the last issued number for one (type, point of sale) series.
type InvoiceSequence struct {
	InvoiceType string `gorm:"type:varchar(5);primaryKey"`
	PointOfSale string `gorm:"type:varchar(5);primaryKey"`
	LastNumber  int64  `gorm:"not null;default:0"`
	UpdatedAt   time.Time
}

// PadPointOfSale left-pads a point of sale to four digits.
func PadPointOfSale(pos string) string {
	pos = strings.TrimSpace(pos)
	if pos == "" {
		return DefaultPointOfSale
	}
	if len(pos) >= 4 {
		return pos
	}
	return strings.Repeat("0", 4-len(pos)) + pos
}

// FormatInvoiceNumber renders PPPP-NNNNNNNN.
func FormatInvoiceNumber(pointOfSale string, seq int64) string {
	return fmt.Sprintf("%s-%08d", PadPointOfSale(pointOfSale), seq)
}

// ParseInvoiceSequence extracts the numeric suffix of a formatted invoice number.
func ParseInvoiceSequence(number string) (int64, error) {
	suffix := number
	if i := strings.LastIndex(number, "-"); i >= 0 {
		suffix = number[i+1:]
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid invoice number %q: %w", number, err)
	}
	return n, nil
}
