package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"
	"bakerycrm/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type OrderItemRequest struct {
	Product  model.Ref        `json:"product"`
	Quantity int              `json:"quantity" binding:"required,gt=0"`
	Price    *decimal.Decimal `json:"price"` // snapshot; defaults to the catalog price
}

type CreateOrderRequest struct {
	Customer        model.Ref          `json:"customer"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryType    string             `json:"deliveryType" binding:"omitempty,oneof=store home"`
	DeliveryAddress string             `json:"deliveryAddress"`
	DeliveryDate    *time.Time         `json:"deliveryDate"`
	PaymentMethod   string             `json:"paymentMethod" binding:"omitempty,oneof=efectivo transferencia tarjeta otro"`
}

// UpdateOrderRequest is a partial update. InvoiceStatus drives the billing workflow;
// Status sets fulfillment directly and is applied after InvoiceStatus when both are present.
type UpdateOrderRequest struct {
	Customer        *model.Ref          `json:"customer"`
	Items           *[]OrderItemRequest `json:"items"`
	DeliveryType    *string             `json:"deliveryType" binding:"omitempty,oneof=store home"`
	DeliveryAddress *string             `json:"deliveryAddress"`
	DeliveryDate    *time.Time          `json:"deliveryDate"`
	PaymentMethod   *string             `json:"paymentMethod" binding:"omitempty,oneof=efectivo transferencia tarjeta otro"`
	InvoiceStatus   *string             `json:"invoiceStatus"`
	Status          *string             `json:"status"`
}

type OrderFilter struct {
	CustomerPhone string
	Status        string
	InvoiceStatus string
}

// OrderSummary is the compact row of /api/orders-simple
type OrderSummary struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customerId"`
	CustomerName  string          `json:"customerName"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	InvoiceStatus string          `json:"invoiceStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	ListCustomerOrders(ctx context.Context, customerKey string) ([]model.Order, error)
	ListForInvoice(ctx context.Context) ([]model.Order, error)
	ListSimple(ctx context.Context) ([]OrderSummary, error)
	UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest) (*model.Order, error)
	ChangeInvoiceStatus(ctx context.Context, id string, target string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

type orderService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	invoiceRepo  repository.InvoiceRepository
	assocRepo    repository.AssociationRepository
	transitioner *orderTransitioner
	customers    CustomerService
	audit        AuditService
	txManager    repository.TransactionManager
	publisher    Publisher
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	invoiceRepo repository.InvoiceRepository,
	assocRepo repository.AssociationRepository,
	ledger StockLedger,
	customers CustomerService,
	audit AuditService,
	txManager repository.TransactionManager,
	publisher Publisher,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		invoiceRepo:  invoiceRepo,
		assocRepo:    assocRepo,
		transitioner: &orderTransitioner{orderRepo: orderRepo, ledger: ledger},
		customers:    customers,
		audit:        audit,
		txManager:    txManager,
		publisher:    publisherOrNop(publisher),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	if req.Customer.IsZero() {
		return nil, validationf("customer is required")
	}
	customer, err := s.customerRepo.FindByID(ctx, req.Customer.ID)
	if err != nil {
		return nil, refErr("customer", err)
	}

	items, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	order := model.Order{
		CustomerID:    customer.ID,
		Items:         items,
		Total:         model.ComputeTotal(items),
		DeliveryType:  req.DeliveryType,
		DeliveryDate:  req.DeliveryDate,
		Status:        model.OrderStatusPending,
		InvoiceStatus: model.InvoiceStatusRemito,
		PaymentMethod: req.PaymentMethod,
	}
	if order.DeliveryType == "" {
		order.DeliveryType = model.DeliveryStore
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = model.PaymentCash
	}
	order.DeliveryAddress, err = resolveDeliveryAddress(order.DeliveryType, req.DeliveryAddress, customer)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return s.audit.Record(txCtx, model.ActionCreateOrder, order.ID.String(), customer.FullName(), map[string]interface{}{
			"total": order.Total.StringFixed(2),
			"items": len(order.Items),
		})
	})
	if err != nil {
		return nil, err
	}

	created, err := s.loadOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(EventOrderCreated, created)
	return created, nil
}

// buildItems validates the requested lines against the catalog. Prices are trusted as snapshots.
func (s *orderService) buildItems(ctx context.Context, reqs []OrderItemRequest) ([]model.OrderItem, error) {
	if len(reqs) == 0 {
		return nil, validationf("at least one item is required")
	}
	ids := make([]uuid.UUID, 0, len(reqs))
	for i, r := range reqs {
		if r.Product.IsZero() {
			return nil, validationf("items[%d]: product is required", i)
		}
		if r.Quantity <= 0 {
			return nil, validationf("items[%d]: quantity must be positive", i)
		}
		if r.Price != nil && r.Price.IsNegative() {
			return nil, validationf("items[%d]: price cannot be negative", i)
		}
		ids = append(ids, r.Product.ID)
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	items := make([]model.OrderItem, 0, len(reqs))
	for i, r := range reqs {
		product, ok := products[r.Product.ID]
		if !ok {
			return nil, validationf("items[%d]: product %s does not exist", i, r.Product.ID)
		}
		price := product.Price
		if r.Price != nil {
			price = *r.Price
		}
		items = append(items, model.OrderItem{
			ProductID: product.ID,
			Quantity:  r.Quantity,
			Price:     price,
		})
	}
	return items, nil
}

func resolveDeliveryAddress(deliveryType, requested string, customer *model.Customer) (string, error) {
	address := strings.TrimSpace(requested)
	if deliveryType != model.DeliveryHome {
		return address, nil
	}
	if address == "" && customer != nil {
		address = customer.Address
	}
	if address == "" {
		return "", validationf("deliveryAddress is required for home delivery")
	}
	return address, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	orderID, err := parseID("order", id)
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

// loadOrder returns an order ready for display: customer, items and linked invoices filled in.
func (s *orderService) loadOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return nil, lookupErr("order", err)
	}
	invoiceIDs, err := s.assocRepo.InvoiceIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load associated invoices: %w", err)
	}
	order.AssociatedInvoices = invoiceIDs
	return order, nil
}

func (s *orderService) attachInvoiceIDs(ctx context.Context, orders []model.Order) error {
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	links, err := s.assocRepo.InvoiceIDsByOrder(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load associated invoices: %w", err)
	}
	for i := range orders {
		orders[i].AssociatedInvoices = links[orders[i].ID]
		if orders[i].AssociatedInvoices == nil {
			orders[i].AssociatedInvoices = []uuid.UUID{}
		}
	}
	return nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	repoFilter := repository.OrderFilter{Status: filter.Status, InvoiceStatus: filter.InvoiceStatus}
	if filter.CustomerPhone != "" {
		customer, err := s.customerRepo.FindByPhone(ctx, filter.CustomerPhone)
		if err != nil {
			return nil, lookupErr("customer", err)
		}
		repoFilter.CustomerID = &customer.ID
	}
	return s.list(ctx, repoFilter, true)
}

func (s *orderService) ListCustomerOrders(ctx context.Context, customerKey string) ([]model.Order, error) {
	customer, err := s.customers.GetCustomer(ctx, customerKey)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, repository.OrderFilter{CustomerID: &customer.ID}, true)
}

func (s *orderService) ListForInvoice(ctx context.Context) ([]model.Order, error) {
	return s.list(ctx, repository.OrderFilter{
		ExcludeStatus:  []string{model.OrderStatusCancelled},
		ExcludeInvoice: []string{model.InvoiceStatusPedidoCompleto},
	}, true)
}

func (s *orderService) ListSimple(ctx context.Context) ([]OrderSummary, error) {
	orders, err := s.orderRepo.List(ctx, repository.OrderFilter{}, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	res := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		summary := OrderSummary{
			ID:            o.ID.String(),
			CustomerID:    o.CustomerID.String(),
			Total:         o.Total,
			Status:        o.Status,
			InvoiceStatus: o.InvoiceStatus,
			CreatedAt:     o.CreatedAt,
		}
		if o.Customer != nil {
			summary.CustomerName = o.Customer.FullName()
		}
		res = append(res, summary)
	}
	return res, nil
}

func (s *orderService) list(ctx context.Context, filter repository.OrderFilter, withItems bool) ([]model.Order, error) {
	orders, err := s.orderRepo.List(ctx, filter, withItems)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	if err := s.attachInvoiceIDs(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *orderService) ChangeInvoiceStatus(ctx context.Context, id string, target string) (*model.Order, error) {
	return s.UpdateOrder(ctx, id, UpdateOrderRequest{InvoiceStatus: &target})
}

func (s *orderService) UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest) (*model.Order, error) {
	orderID, err := parseID("order", id)
	if err != nil {
		return nil, err
	}

	var (
		newItems []model.OrderItem
		results  []transitionResult
	)
	if req.Items != nil {
		if newItems, err = s.buildItems(ctx, *req.Items); err != nil {
			return nil, err
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return lookupErr("order", err)
		}
		if req.Customer != nil && !req.Customer.IsZero() && req.Customer.ID != order.CustomerID {
			return validationf("the customer of an order cannot be changed")
		}

		fields := map[string]interface{}{}
		if newItems != nil {
			if err := s.orderRepo.ReplaceItems(txCtx, order.ID, newItems); err != nil {
				return fmt.Errorf("failed to replace order items: %w", err)
			}
			order.Items = newItems
			order.Total = model.ComputeTotal(newItems)
			fields["total"] = order.Total
		}

		deliveryType := order.DeliveryType
		if req.DeliveryType != nil {
			deliveryType = *req.DeliveryType
			fields["delivery_type"] = deliveryType
		}
		if req.DeliveryType != nil || req.DeliveryAddress != nil {
			requested := order.DeliveryAddress
			if req.DeliveryAddress != nil {
				requested = *req.DeliveryAddress
			}
			customer, err := s.customerRepo.FindByID(txCtx, order.CustomerID)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return lookupErr("customer", err)
				}
				customer = nil
			}
			address, err := resolveDeliveryAddress(deliveryType, requested, customer)
			if err != nil {
				return err
			}
			fields["delivery_address"] = address
		}
		if req.DeliveryDate != nil {
			fields["delivery_date"] = *req.DeliveryDate
		}
		if req.PaymentMethod != nil {
			fields["payment_method"] = *req.PaymentMethod
		}
		if len(fields) > 0 {
			if err := s.orderRepo.UpdateFields(txCtx, order.ID, fields); err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
			if err := s.audit.Record(txCtx, model.ActionUpdateOrder, order.ID.String(), "", req); err != nil {
				return err
			}
		}

		var events []workflow.Event
		if req.InvoiceStatus != nil {
			events = append(events, workflow.Event{Kind: workflow.SetInvoiceStatus, Target: *req.InvoiceStatus})
		}
		if req.Status != nil {
			events = append(events, workflow.Event{Kind: workflow.SetStatus, Target: *req.Status})
		}
		for _, ev := range events {
			result, err := s.transitioner.apply(txCtx, order, ev)
			if err != nil {
				return err
			}
			results = append(results, result)
			if err := s.audit.Record(txCtx, model.ActionChangeOrderStatus, order.ID.String(), "", map[string]interface{}{
				"from":    result.From,
				"to":      result.To,
				"effects": effectNames(result.Effects),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if workflow.Has(r.Effects, workflow.MarkInvoicesPaid) {
			s.markInvoicesPaid(ctx, orderID)
		}
		if len(r.StockChanges) > 0 {
			s.publisher.Publish(EventStockChanged, r.StockChanges)
		}
	}

	updated, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(EventOrderUpdated, updated)
	return updated, nil
}

// markInvoicesPaid cascades a completed order to its invoices. Failures are logged
// and audited but never undo the order update.
func (s *orderService) markInvoicesPaid(ctx context.Context, orderID uuid.UUID) {
	invoiceIDs, err := s.assocRepo.InvoiceIDs(ctx, orderID)
	if err != nil {
		log.Printf("order %s: cannot list invoices for paid cascade: %v", orderID, err)
		recordBestEffort(ctx, s.audit, model.ActionCascadeFailed, orderID.String(), "", map[string]string{"error": err.Error()})
		return
	}
	for _, invoiceID := range invoiceIDs {
		if err := s.invoiceRepo.UpdateStatus(ctx, invoiceID, model.InvoicePaid); err != nil {
			log.Printf("order %s: failed to mark invoice %s as paid: %v", orderID, invoiceID, err)
			recordBestEffort(ctx, s.audit, model.ActionCascadeFailed, invoiceID.String(), "", map[string]string{
				"orderId": orderID.String(),
				"error":   err.Error(),
			})
			continue
		}
		s.publisher.Publish(EventInvoiceUpdated, map[string]string{"id": invoiceID.String(), "status": model.InvoicePaid})
	}
}

func (s *orderService) DeleteOrder(ctx context.Context, id string) error {
	orderID, err := parseID("order", id)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return lookupErr("order", err)
		}
		if err := s.assocRepo.DeleteByOrder(txCtx, orderID); err != nil {
			return fmt.Errorf("failed to remove invoice links: %w", err)
		}
		if err := s.orderRepo.Delete(txCtx, orderID); err != nil {
			return lookupErr("order", err)
		}
		return s.audit.Record(txCtx, model.ActionDeleteOrder, orderID.String(), "", map[string]interface{}{
			"status":        order.Status,
			"invoiceStatus": order.InvoiceStatus,
			"total":         order.Total.StringFixed(2),
		})
	})
	if err != nil {
		return err
	}
	s.publisher.Publish(EventOrderDeleted, map[string]string{"id": orderID.String()})
	return nil
}

func effectNames(effects []workflow.Effect) []string {
	names := make([]string, 0, len(effects))
	for _, e := range effects {
		names = append(names, e.String())
	}
	return names
}
