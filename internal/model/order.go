package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryType enum constants
const (
	DeliveryStore = "store"
	DeliveryHome  = "home"
)

// OrderStatus constants (fulfillment)
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// InvoiceStatus constants (billing board columns of an order)
const (
	InvoiceStatusRemito           = "remito"
	InvoiceStatusRemitoFinalizado = "remito_finalizado"
	InvoiceStatusFacturaPendiente = "factura_pendiente"
	InvoiceStatusFacturaCobrada   = "factura_cobrada"
	InvoiceStatusPedidoCompleto   = "pedido_completo"
)

// PaymentMethod enum constants
const (
	PaymentCash     = "efectivo"
	PaymentTransfer = "transferencia"
	PaymentCard     = "tarjeta"
	PaymentCheque   = "cheque"
	PaymentOther    = "otro"
)

var orderStatuses = []string{OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled}

var orderInvoiceStatuses = []string{
	InvoiceStatusRemito,
	InvoiceStatusRemitoFinalizado,
	InvoiceStatusFacturaPendiente,
	InvoiceStatusFacturaCobrada,
	InvoiceStatusPedidoCompleto,
}

// OrderInvoiceStatuses lists the board columns in pipeline order.
func OrderInvoiceStatuses() []string {
	return append([]string(nil), orderInvoiceStatuses...)
}

func IsOrderStatus(s string) bool        { return contains(orderStatuses, s) }
func IsOrderInvoiceStatus(s string) bool { return contains(orderInvoiceStatuses, s) }

// Order is a customer purchase tracked through fulfillment (Status) and billing (InvoiceStatus).
// AssociatedInvoices is a projection of the order_invoices join table, never persisted on the row.
type Order struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"customerId"`
	Customer           *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Total              decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	DeliveryType       string          `gorm:"type:varchar(10);not null;default:'store'" json:"deliveryType"`
	DeliveryAddress    string          `gorm:"type:text" json:"deliveryAddress"`
	DeliveryDate       *time.Time      `json:"deliveryDate"`
	Status             string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	InvoiceStatus      string          `gorm:"type:varchar(30);not null;default:'remito';index" json:"invoiceStatus"`
	InvoiceNumber      string          `gorm:"type:varchar(20)" json:"invoiceNumber"`
	InvoiceDate        *time.Time      `json:"invoiceDate"`
	PaymentDate        *time.Time      `json:"paymentDate"`
	PaymentMethod      string          `gorm:"type:varchar(20);not null;default:'efectivo'" json:"paymentMethod"`
	AssociatedInvoices []uuid.UUID     `gorm:"-" json:"associatedInvoices"`
	CreatedAt          time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is a line of an order. Price is the snapshot taken when the line was written.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"orderId"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"productId"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Subtotal is price × quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ComputeTotal sums the line subtotals. The order total is always derived from this.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// OrderInvoice is the single source of truth for the order <-> invoice many-to-many link.
type OrderInvoice struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"orderId"`
	InvoiceID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"invoiceId"`
	CreatedAt time.Time `json:"createdAt"`
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
