// Package workflow holds the order state machine. It is pure: callers load the
// current state, ask for a transition, persist the result and run the effects.
package workflow

import (
	"errors"
	"fmt"

	"bakerycrm/internal/model"
)

// State is the pair of order fields the workflow governs. They are always written together.
type State struct {
	Status        string
	InvoiceStatus string
}

// Effect is a side effect the caller must run after persisting the new state.
type Effect int

const (
	// DecrementStock fires once per entry into completed.
	DecrementStock Effect = iota + 1
	// MarkInvoicesPaid cascades to every invoice linked to the order. Best effort.
	MarkInvoicesPaid
	// RecordPayment stamps the order payment date.
	RecordPayment
)

func (e Effect) String() string {
	switch e {
	case DecrementStock:
		return "decrement_stock"
	case MarkInvoicesPaid:
		return "mark_invoices_paid"
	case RecordPayment:
		return "record_payment"
	default:
		return fmt.Sprintf("effect(%d)", int(e))
	}
}

type EventKind int

const (
	SetInvoiceStatus EventKind = iota + 1
	SetStatus
	InvoiceAttached
	InvoicesCleared
)

// Event drives a transition. Target is only read by SetInvoiceStatus and SetStatus.
type Event struct {
	Kind   EventKind
	Target string
}

var ErrInvalidTarget = errors.New("invalid transition target")

// Transition computes the next state and the effects of applying ev to cur.
func Transition(cur State, ev Event) (State, []Effect, error) {
	next := cur
	var effects []Effect

	switch ev.Kind {
	case SetInvoiceStatus:
		if !model.IsOrderInvoiceStatus(ev.Target) {
			return cur, nil, fmt.Errorf("%w: invoiceStatus %q", ErrInvalidTarget, ev.Target)
		}
		next.InvoiceStatus = ev.Target
		if ev.Target == model.InvoiceStatusPedidoCompleto {
			next.Status = model.OrderStatusCompleted
		} else {
			next.Status = model.OrderStatusPending
		}
		if ev.Target == model.InvoiceStatusFacturaCobrada && cur.InvoiceStatus != model.InvoiceStatusFacturaCobrada {
			effects = append(effects, RecordPayment)
		}
	case SetStatus:
		if !model.IsOrderStatus(ev.Target) {
			return cur, nil, fmt.Errorf("%w: status %q", ErrInvalidTarget, ev.Target)
		}
		next.Status = ev.Target
	case InvoiceAttached:
		if cur.InvoiceStatus == model.InvoiceStatusRemito {
			next.InvoiceStatus = model.InvoiceStatusFacturaPendiente
		}
	case InvoicesCleared:
		if cur.InvoiceStatus == model.InvoiceStatusFacturaPendiente {
			next.InvoiceStatus = model.InvoiceStatusRemito
		}
	default:
		return cur, nil, fmt.Errorf("unknown event kind %d", ev.Kind)
	}

	if next.Status == model.OrderStatusCompleted && cur.Status != model.OrderStatusCompleted {
		effects = append(effects, DecrementStock)
	}
	if ev.Kind == SetInvoiceStatus && ev.Target == model.InvoiceStatusPedidoCompleto {
		effects = append(effects, MarkInvoicesPaid)
	}

	return next, effects, nil
}

// Has reports whether effects contains e.
func Has(effects []Effect, e Effect) bool {
	for _, x := range effects {
		if x == e {
			return true
		}
	}
	return false
}
