package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var defaultIVARate = decimal.RequireFromString("0.21")

const (
	placeholderDocumentNumber = "00000000"
	sequenceAttempts          = 3
)

// --- DTOs ---

type InvoiceItemRequest struct {
	Description string           `json:"description" binding:"required"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	Subtotal    *decimal.Decimal `json:"subtotal"`
	IVA         *decimal.Decimal `json:"iva"`
	Total       *decimal.Decimal `json:"total"`
}

// CreateInvoiceRequest is an invoice draft. Orders may come as a list or as a single order.
type CreateInvoiceRequest struct {
	Customer       model.Ref            `json:"customer"`
	Orders         []model.Ref          `json:"orders"`
	Order          *model.Ref           `json:"order"`
	InvoiceType    string               `json:"invoiceType"`
	PointOfSale    string               `json:"pointOfSale"`
	DocumentType   string               `json:"documentType"`
	DocumentNumber string               `json:"documentNumber"`
	CustomerName   string               `json:"customerName"`
	Address        string               `json:"address"`
	Items          []InvoiceItemRequest `json:"items" binding:"omitempty,dive"`
	Subtotal       *decimal.Decimal     `json:"subtotal"`
	IVA21          *decimal.Decimal     `json:"iva21"`
	IVA10          *decimal.Decimal     `json:"iva10"`
	IVA27          *decimal.Decimal     `json:"iva27"`
	OtherTaxes     *decimal.Decimal     `json:"otherTaxes"`
	Total          *decimal.Decimal     `json:"total"`
	PaymentMethod  string               `json:"paymentMethod"`
	IssueDate      *time.Time           `json:"issueDate"`
}

type InvoiceFilter struct {
	Status     string
	CustomerID string
	Page       int
	Limit      int
}

type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pendiente emitida rechazada anulada"`
}

// InvoiceConfig carries the issuing business's settings.
type InvoiceConfig struct {
	PointOfSale  string
	BusinessCUIT string
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, int64, error)
	OpenByCustomer(ctx context.Context, customerID string) ([]model.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status string) (*model.Invoice, error)
	QRCode(ctx context.Context, id string, size int) ([]byte, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	sequenceRepo repository.SequenceRepository
	customerRepo repository.CustomerRepository
	orderRepo    repository.OrderRepository
	assocRepo    repository.AssociationRepository
	linker       *orderLinker
	issuer       Issuer
	audit        AuditService
	txManager    repository.TransactionManager
	publisher    Publisher
	cfg          InvoiceConfig
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	sequenceRepo repository.SequenceRepository,
	customerRepo repository.CustomerRepository,
	orderRepo repository.OrderRepository,
	assocRepo repository.AssociationRepository,
	ledger StockLedger,
	issuer Issuer,
	audit AuditService,
	txManager repository.TransactionManager,
	publisher Publisher,
	cfg InvoiceConfig,
) InvoiceService {
	cfg.PointOfSale = model.PadPointOfSale(cfg.PointOfSale)
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		sequenceRepo: sequenceRepo,
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
		assocRepo:    assocRepo,
		linker: &orderLinker{
			assocRepo:    assocRepo,
			transitioner: &orderTransitioner{orderRepo: orderRepo, ledger: ledger},
			audit:        audit,
		},
		issuer:    issuer,
		audit:     audit,
		txManager: txManager,
		publisher: publisherOrNop(publisher),
		cfg:       cfg,
	}
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*model.Invoice, error) {
	if req.Customer.IsZero() {
		return nil, validationf("customer is required")
	}
	customer, err := s.customerRepo.FindByID(ctx, req.Customer.ID)
	if err != nil {
		return nil, refErr("customer", err)
	}

	invoice, err := s.draft(req, customer)
	if err != nil {
		return nil, err
	}
	orderIDs := draftOrderIDs(req)

	var lastErr error
	for attempt := 0; attempt < sequenceAttempts; attempt++ {
		candidate := *invoice
		lastErr = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			return s.createInTx(txCtx, &candidate, orderIDs)
		})
		if errors.Is(lastErr, repository.ErrSequenceContention) {
			continue
		}
		if lastErr != nil {
			return nil, lastErr
		}
		invoice = &candidate
		break
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: could not allocate an invoice number", ErrConflict)
	}

	created, err := s.load(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(EventInvoiceCreated, created)
	for _, orderID := range created.Orders {
		s.publisher.Publish(EventOrderUpdated, map[string]string{"id": orderID.String()})
	}
	return created, nil
}

func (s *invoiceService) createInTx(txCtx context.Context, invoice *model.Invoice, orderIDs []uuid.UUID) error {
	orders := make([]*model.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return refErr("order", err)
		}
		if order.CustomerID != invoice.CustomerID {
			return validationf("order %s belongs to a different customer", id)
		}
		orders = append(orders, order)
	}

	if len(invoice.Items) == 0 {
		if len(orders) == 0 {
			return validationf("an invoice needs items or orders")
		}
		items, err := s.itemsFromOrders(txCtx, orders)
		if err != nil {
			return err
		}
		invoice.Items = items
		sumInvoiceItems(invoice, draftTotals{})
	}

	seq, err := s.sequenceRepo.Next(txCtx, invoice.InvoiceType, invoice.PointOfSale, func(ctx context.Context) (int64, error) {
		latest, err := s.invoiceRepo.LatestNumber(ctx, invoice.InvoiceType, invoice.PointOfSale)
		if err != nil || latest == "" {
			return 0, err
		}
		return model.ParseInvoiceSequence(latest)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSequenceContention) {
			return err
		}
		return fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	invoice.InvoiceNumber = model.FormatInvoiceNumber(invoice.PointOfSale, seq)

	auth, err := s.issuer.Authorize(txCtx, invoice)
	if err != nil {
		return fmt.Errorf("invoice authorization failed: %w", err)
	}
	invoice.CAE = auth.CAE
	invoice.CAEExpirationDate = &auth.Expiration

	if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
		if isDuplicateKey(err) {
			return repository.ErrSequenceContention
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	for _, order := range orders {
		if err := s.linker.link(txCtx, order, invoice); err != nil {
			return err
		}
	}

	return s.audit.Record(txCtx, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
		"invoiceType": invoice.InvoiceType,
		"total":       invoice.Total.StringFixed(2),
		"orders":      orderIDs,
	})
}

// draft applies defaults and computes any amount the client left out.
func (s *invoiceService) draft(req CreateInvoiceRequest, customer *model.Customer) (*model.Invoice, error) {
	invoice := &model.Invoice{
		CustomerID:     customer.ID,
		InvoiceType:    strings.ToUpper(strings.TrimSpace(req.InvoiceType)),
		PointOfSale:    s.cfg.PointOfSale,
		DocumentType:   strings.ToUpper(strings.TrimSpace(req.DocumentType)),
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		Address:        strings.TrimSpace(req.Address),
		PaymentMethod:  req.PaymentMethod,
		Status:         model.InvoicePending,
		IssueDate:      time.Now(),
	}
	if req.PointOfSale != "" {
		invoice.PointOfSale = model.PadPointOfSale(req.PointOfSale)
	}
	if invoice.InvoiceType == "" {
		invoice.InvoiceType = model.InvoiceTypeB
	}
	if !model.IsInvoiceType(invoice.InvoiceType) {
		return nil, validationf("invalid invoiceType %q", req.InvoiceType)
	}
	if invoice.DocumentType == "" {
		invoice.DocumentType = model.DocumentDNI
	}
	if !model.IsDocumentType(invoice.DocumentType) {
		return nil, validationf("invalid documentType %q", req.DocumentType)
	}
	if invoice.DocumentNumber == "" {
		invoice.DocumentNumber = placeholderDocumentNumber
		if customer.DocumentNumber != "" {
			invoice.DocumentNumber = customer.DocumentNumber
		}
	}
	if invoice.CustomerName == "" {
		invoice.CustomerName = customer.FullName()
	}
	if invoice.Address == "" {
		invoice.Address = customer.Address
	}
	if invoice.PaymentMethod == "" {
		invoice.PaymentMethod = model.PaymentCash
	}
	if !model.IsInvoicePaymentMethod(invoice.PaymentMethod) {
		return nil, validationf("invalid paymentMethod %q", req.PaymentMethod)
	}
	if req.IssueDate != nil {
		invoice.IssueDate = *req.IssueDate
	}

	for i, it := range req.Items {
		if strings.TrimSpace(it.Description) == "" {
			return nil, validationf("items[%d]: description is required", i)
		}
		if !it.Quantity.IsPositive() {
			return nil, validationf("items[%d]: quantity must be positive", i)
		}
		if it.UnitPrice.IsNegative() {
			return nil, validationf("items[%d]: unitPrice cannot be negative", i)
		}
		invoice.Items = append(invoice.Items, buildInvoiceItem(it))
	}
	sumInvoiceItems(invoice, draftTotals{
		subtotal: req.Subtotal, iva21: req.IVA21, iva10: req.IVA10,
		iva27: req.IVA27, otherTaxes: req.OtherTaxes, total: req.Total,
	})
	return invoice, nil
}

func buildInvoiceItem(it InvoiceItemRequest) model.InvoiceItem {
	item := model.InvoiceItem{
		Description: strings.TrimSpace(it.Description),
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice,
	}
	if it.Subtotal != nil {
		item.Subtotal = *it.Subtotal
	} else {
		item.Subtotal = it.Quantity.Mul(it.UnitPrice).Round(2)
	}
	if it.IVA != nil {
		item.IVA = *it.IVA
	} else {
		item.IVA = item.Subtotal.Mul(defaultIVARate).Round(2)
	}
	if it.Total != nil {
		item.Total = *it.Total
	} else {
		item.Total = item.Subtotal.Add(item.IVA)
	}
	return item
}

type draftTotals struct {
	subtotal, iva21, iva10, iva27, otherTaxes, total *decimal.Decimal
}

// sumInvoiceItems fills the aggregates the client did not send. Item IVA is booked at 21%.
func sumInvoiceItems(invoice *model.Invoice, given draftTotals) {
	subtotal, iva := decimal.Zero, decimal.Zero
	for _, it := range invoice.Items {
		subtotal = subtotal.Add(it.Subtotal)
		iva = iva.Add(it.IVA)
	}
	pick := func(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
		if v != nil {
			return *v
		}
		return fallback
	}
	invoice.Subtotal = pick(given.subtotal, subtotal)
	invoice.IVA21 = pick(given.iva21, iva)
	invoice.IVA10 = pick(given.iva10, decimal.Zero)
	invoice.IVA27 = pick(given.iva27, decimal.Zero)
	invoice.OtherTaxes = pick(given.otherTaxes, decimal.Zero)
	invoice.Total = pick(given.total, invoice.Subtotal.
		Add(invoice.IVA21).Add(invoice.IVA10).Add(invoice.IVA27).Add(invoice.OtherTaxes))
}

func (s *invoiceService) itemsFromOrders(txCtx context.Context, orders []*model.Order) ([]model.InvoiceItem, error) {
	var items []model.InvoiceItem
	for _, order := range orders {
		full, err := s.orderRepo.FindByIDWithItems(txCtx, order.ID)
		if err != nil {
			return nil, lookupErr("order", err)
		}
		for _, line := range full.Items {
			description := line.ProductID.String()
			if line.Product != nil {
				description = line.Product.Name
			}
			items = append(items, buildInvoiceItem(InvoiceItemRequest{
				Description: description,
				Quantity:    decimal.NewFromInt(int64(line.Quantity)),
				UnitPrice:   line.Price,
			}))
		}
	}
	return items, nil
}

func draftOrderIDs(req CreateInvoiceRequest) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	add := func(r model.Ref) {
		if r.IsZero() || seen[r.ID] {
			return
		}
		seen[r.ID] = true
		ids = append(ids, r.ID)
	}
	for _, r := range req.Orders {
		add(r)
	}
	if req.Order != nil {
		add(*req.Order)
	}
	return ids
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	invoiceID, err := parseID("invoice", id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, invoiceID)
}

func (s *invoiceService) load(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return nil, lookupErr("invoice", err)
	}
	if invoice.Orders, err = s.assocRepo.OrderIDs(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to load associated orders: %w", err)
	}
	return invoice, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, int64, error) {
	repoFilter := repository.InvoiceListFilter{Status: filter.Status, Page: filter.Page, Limit: filter.Limit}
	if filter.CustomerID != "" {
		customerID, err := parseID("customer", filter.CustomerID)
		if err != nil {
			return nil, 0, err
		}
		repoFilter.CustomerID = &customerID
	}
	invoices, total, err := s.invoiceRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	if err := s.attachOrderIDs(ctx, invoices); err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (s *invoiceService) OpenByCustomer(ctx context.Context, customerID string) ([]model.Invoice, error) {
	id, err := parseID("customer", customerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.customerRepo.FindByID(ctx, id); err != nil {
		return nil, lookupErr("customer", err)
	}
	invoices, _, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{Status: model.InvoicePending, CustomerID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	if err := s.attachOrderIDs(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *invoiceService) attachOrderIDs(ctx context.Context, invoices []model.Invoice) error {
	ids := make([]uuid.UUID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	links, err := s.assocRepo.OrderIDsByInvoice(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load associated orders: %w", err)
	}
	for i := range invoices {
		invoices[i].Orders = links[invoices[i].ID]
		if invoices[i].Orders == nil {
			invoices[i].Orders = []uuid.UUID{}
		}
	}
	return nil
}

func (s *invoiceService) UpdateStatus(ctx context.Context, id string, status string) (*model.Invoice, error) {
	invoiceID, err := parseID("invoice", id)
	if err != nil {
		return nil, err
	}
	switch status {
	case model.InvoicePending, model.InvoiceIssued, model.InvoiceRejected, model.InvoiceCancelled:
	default:
		return nil, validationf("invalid invoice status %q", status)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.invoiceRepo.FindByID(txCtx, invoiceID)
		if err != nil {
			return lookupErr("invoice", err)
		}
		if err := s.invoiceRepo.UpdateStatus(txCtx, invoiceID, status); err != nil {
			return lookupErr("invoice", err)
		}
		return s.audit.Record(txCtx, model.ActionChangeInvoiceState, invoiceID.String(), current.InvoiceNumber, map[string]string{
			"from": current.Status,
			"to":   status,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(EventInvoiceUpdated, updated)
	return updated, nil
}

func (s *invoiceService) QRCode(ctx context.Context, id string, size int) ([]byte, error) {
	invoice, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return FiscalQRPNG(invoice, s.cfg.BusinessCUIT, size)
}
