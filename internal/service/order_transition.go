package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"
	"bakerycrm/internal/workflow"
)

// orderTransitioner is the single write path for an order's (status, invoiceStatus) pair.
// It must run inside a transaction with the order row already loaded for update.
type orderTransitioner struct {
	orderRepo repository.OrderRepository
	ledger    StockLedger
}

type transitionResult struct {
	From         workflow.State
	To           workflow.State
	Effects      []workflow.Effect
	StockChanges []StockChange
}

func (t *orderTransitioner) apply(txCtx context.Context, order *model.Order, ev workflow.Event) (transitionResult, error) {
	cur := workflow.State{Status: order.Status, InvoiceStatus: order.InvoiceStatus}
	next, effects, err := workflow.Transition(cur, ev)
	if err != nil {
		if errors.Is(err, workflow.ErrInvalidTarget) {
			return transitionResult{}, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
		return transitionResult{}, err
	}
	result := transitionResult{From: cur, To: next, Effects: effects}

	extra := map[string]interface{}{}
	if workflow.Has(effects, workflow.RecordPayment) && order.PaymentDate == nil {
		now := time.Now()
		extra["payment_date"] = now
		order.PaymentDate = &now
	}
	if next == cur && len(extra) == 0 {
		return result, nil
	}

	ok, err := t.orderRepo.CompareAndSwapState(txCtx, order.ID,
		repository.StatePair{Status: cur.Status, InvoiceStatus: cur.InvoiceStatus},
		repository.StatePair{Status: next.Status, InvoiceStatus: next.InvoiceStatus},
		extra)
	if err != nil {
		return transitionResult{}, fmt.Errorf("failed to update order state: %w", err)
	}
	if !ok {
		return transitionResult{}, fmt.Errorf("%w: order %s changed concurrently", ErrConflict, order.ID)
	}
	order.Status = next.Status
	order.InvoiceStatus = next.InvoiceStatus

	if workflow.Has(effects, workflow.DecrementStock) {
		changes, err := t.ledger.ApplyOrderCompletion(txCtx, order)
		if err != nil {
			return transitionResult{}, err
		}
		result.StockChanges = changes
	}
	return result, nil
}
