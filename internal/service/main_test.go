package service

import (
	"context"
	"sync"
	"testing"

	"bakerycrm/internal/database"
	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var ctx = context.Background()

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := database.Open(sqlite.Open(dsn), "silent")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(event string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == event {
			n++
		}
	}
	return n
}

type harness struct {
	db           *gorm.DB
	customers    CustomerService
	products     ProductService
	orders       OrderService
	invoices     InvoiceService
	associations AssociationService
	audit        AuditService
	statistics   StatisticsService
	publisher    *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := setupTestDB(t)

	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	assocRepo := repository.NewAssociationRepository(db)
	txManager := repository.NewTransactionManager(db)

	publisher := &recordingPublisher{}
	audit := NewAuditService(repository.NewAuditRepository(db))
	ledger := NewStockLedger(productRepo, repository.NewStockMovementRepository(db))
	customers := NewCustomerService(customerRepo, audit, txManager)

	return &harness{
		db:        db,
		customers: customers,
		products:  NewProductService(productRepo, ledger, audit, txManager, publisher),
		orders: NewOrderService(orderRepo, customerRepo, productRepo, invoiceRepo, assocRepo,
			ledger, customers, audit, txManager, publisher),
		invoices: NewInvoiceService(invoiceRepo, repository.NewSequenceRepository(db), customerRepo, orderRepo, assocRepo,
			ledger, NewMockIssuer(10), audit, txManager, publisher,
			InvoiceConfig{PointOfSale: "1", BusinessCUIT: "20-12345678-3"}),
		associations: NewAssociationService(orderRepo, invoiceRepo, assocRepo, ledger, audit, txManager, publisher),
		audit:        audit,
		statistics:   NewStatisticsService(repository.NewStatisticsRepository(db), productRepo),
		publisher:    publisher,
	}
}

// orderServiceWith builds an order service over the harness database with the given repositories swapped in.
func (h *harness) orderServiceWith(customerRepo repository.CustomerRepository, invoiceRepo repository.InvoiceRepository) OrderService {
	productRepo := repository.NewProductRepository(h.db)
	return NewOrderService(repository.NewOrderRepository(h.db), customerRepo, productRepo, invoiceRepo,
		repository.NewAssociationRepository(h.db),
		NewStockLedger(productRepo, repository.NewStockMovementRepository(h.db)),
		h.customers, h.audit, repository.NewTransactionManager(h.db), h.publisher)
}

func (h *harness) customer(t *testing.T, first, last, phone string) *model.Customer {
	t.Helper()
	c, err := h.customers.CreateCustomer(ctx, CreateCustomerRequest{FirstName: first, LastName: last, Phone: phone})
	require.NoError(t, err)
	return c
}

func (h *harness) product(t *testing.T, name, price string, stock int) ProductResponse {
	t.Helper()
	p := decimal.RequireFromString(price)
	res, err := h.products.CreateProduct(ctx, CreateProductRequest{Name: name, Price: &p, Stock: stock})
	require.NoError(t, err)
	return res
}

func (h *harness) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := h.products.GetProduct(ctx, productID)
	require.NoError(t, err)
	return p.Stock
}

func (h *harness) order(t *testing.T, customer *model.Customer, lines ...OrderItemRequest) *model.Order {
	t.Helper()
	o, err := h.orders.CreateOrder(ctx, CreateOrderRequest{Customer: model.NewRef(customer.ID), Items: lines})
	require.NoError(t, err)
	return o
}

// manualInvoice creates an invoice with a single explicit line and no orders.
func (h *harness) manualInvoice(t *testing.T, customer *model.Customer) *model.Invoice {
	t.Helper()
	inv, err := h.invoices.CreateInvoice(ctx, CreateInvoiceRequest{
		Customer: model.NewRef(customer.ID),
		Items: []InvoiceItemRequest{{
			Description: "Varios",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(100),
		}},
	})
	require.NoError(t, err)
	return inv
}

func lineOf(p ProductResponse, qty int) OrderItemRequest {
	return OrderItemRequest{Product: model.NewRef(uuidOf(p)), Quantity: qty}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func uuidOf(p ProductResponse) uuid.UUID {
	return uuid.MustParse(p.ID)
}
