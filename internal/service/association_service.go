package service

import (
	"context"
	"fmt"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"
	"bakerycrm/internal/workflow"

	"github.com/google/uuid"
)

type AssociationResult struct {
	Order   *model.Order   `json:"order"`
	Invoice *model.Invoice `json:"invoice"`
}

// AssociationService keeps the order <-> invoice relation and the order's billing state in step.
type AssociationService interface {
	Associate(ctx context.Context, orderID, invoiceID string) (*AssociationResult, error)
	Disassociate(ctx context.Context, orderID, invoiceID string) (*AssociationResult, error)
}

// orderLinker writes one order <-> invoice link and promotes the order. Callers own the transaction.
type orderLinker struct {
	assocRepo    repository.AssociationRepository
	transitioner *orderTransitioner
	audit        AuditService
}

type associationService struct {
	orderRepo    repository.OrderRepository
	invoiceRepo  repository.InvoiceRepository
	assocRepo    repository.AssociationRepository
	transitioner *orderTransitioner
	linker       *orderLinker
	audit        AuditService
	txManager    repository.TransactionManager
	publisher    Publisher
}

func NewAssociationService(
	orderRepo repository.OrderRepository,
	invoiceRepo repository.InvoiceRepository,
	assocRepo repository.AssociationRepository,
	ledger StockLedger,
	audit AuditService,
	txManager repository.TransactionManager,
	publisher Publisher,
) AssociationService {
	transitioner := &orderTransitioner{orderRepo: orderRepo, ledger: ledger}
	return &associationService{
		orderRepo:    orderRepo,
		invoiceRepo:  invoiceRepo,
		assocRepo:    assocRepo,
		transitioner: transitioner,
		linker:       &orderLinker{assocRepo: assocRepo, transitioner: transitioner, audit: audit},
		audit:        audit,
		txManager:    txManager,
		publisher:    publisherOrNop(publisher),
	}
}

func (s *associationService) Associate(ctx context.Context, orderID, invoiceID string) (*AssociationResult, error) {
	oid, iid, err := parsePair(orderID, invoiceID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, invoice, err := s.loadPair(txCtx, oid, iid)
		if err != nil {
			return err
		}
		return s.linker.link(txCtx, order, invoice)
	})
	if err != nil {
		return nil, err
	}
	return s.result(ctx, oid, iid)
}

func (l *orderLinker) link(txCtx context.Context, order *model.Order, invoice *model.Invoice) error {
	if order.CustomerID != invoice.CustomerID {
		return validationf("order and invoice belong to different customers")
	}
	if _, err := l.assocRepo.Link(txCtx, order.ID, invoice.ID); err != nil {
		return fmt.Errorf("failed to link order and invoice: %w", err)
	}
	result, err := l.transitioner.apply(txCtx, order, workflow.Event{Kind: workflow.InvoiceAttached})
	if err != nil {
		return err
	}
	return l.audit.Record(txCtx, model.ActionAssociateInvoice, order.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
		"invoiceId": invoice.ID.String(),
		"from":      result.From.InvoiceStatus,
		"to":        result.To.InvoiceStatus,
	})
}

func (s *associationService) Disassociate(ctx context.Context, orderID, invoiceID string) (*AssociationResult, error) {
	oid, iid, err := parsePair(orderID, invoiceID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, invoice, err := s.loadPair(txCtx, oid, iid)
		if err != nil {
			return err
		}
		if _, err := s.assocRepo.Unlink(txCtx, oid, iid); err != nil {
			return fmt.Errorf("failed to unlink order and invoice: %w", err)
		}
		remaining, err := s.assocRepo.InvoiceIDs(txCtx, oid)
		if err != nil {
			return fmt.Errorf("failed to load associated invoices: %w", err)
		}
		from, to := order.InvoiceStatus, order.InvoiceStatus
		if len(remaining) == 0 {
			result, err := s.transitioner.apply(txCtx, order, workflow.Event{Kind: workflow.InvoicesCleared})
			if err != nil {
				return err
			}
			to = result.To.InvoiceStatus
		}
		return s.audit.Record(txCtx, model.ActionDisassociate, oid.String(), invoice.InvoiceNumber, map[string]interface{}{
			"invoiceId": iid.String(),
			"from":      from,
			"to":        to,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.result(ctx, oid, iid)
}

func (s *associationService) loadPair(txCtx context.Context, orderID, invoiceID uuid.UUID) (*model.Order, *model.Invoice, error) {
	order, err := s.orderRepo.FindByIDForUpdate(txCtx, orderID)
	if err != nil {
		return nil, nil, lookupErr("order", err)
	}
	invoice, err := s.invoiceRepo.FindByID(txCtx, invoiceID)
	if err != nil {
		return nil, nil, lookupErr("invoice", err)
	}
	return order, invoice, nil
}

func (s *associationService) result(ctx context.Context, orderID, invoiceID uuid.UUID) (*AssociationResult, error) {
	order, err := s.orderRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, lookupErr("order", err)
	}
	if order.AssociatedInvoices, err = s.assocRepo.InvoiceIDs(ctx, orderID); err != nil {
		return nil, fmt.Errorf("failed to load associated invoices: %w", err)
	}
	invoice, err := s.invoiceRepo.FindByIDWithItems(ctx, invoiceID)
	if err != nil {
		return nil, lookupErr("invoice", err)
	}
	if invoice.Orders, err = s.assocRepo.OrderIDs(ctx, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to load associated orders: %w", err)
	}

	s.publisher.Publish(EventOrderUpdated, order)
	s.publisher.Publish(EventInvoiceUpdated, invoice)
	return &AssociationResult{Order: order, Invoice: invoice}, nil
}

func parsePair(orderID, invoiceID string) (uuid.UUID, uuid.UUID, error) {
	oid, err := parseID("order", orderID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	iid, err := parseID("invoice", invoiceID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return oid, iid, nil
}
