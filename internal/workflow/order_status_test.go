package workflow

import (
	"testing"

	"bakerycrm/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initial() State {
	return State{Status: model.OrderStatusPending, InvoiceStatus: model.InvoiceStatusRemito}
}

func TestSetInvoiceStatusDerivesStatus(t *testing.T) {
	for _, target := range model.OrderInvoiceStatuses() {
		next, _, err := Transition(initial(), Event{Kind: SetInvoiceStatus, Target: target})
		require.NoError(t, err, target)
		assert.Equal(t, target, next.InvoiceStatus)
		if target == model.InvoiceStatusPedidoCompleto {
			assert.Equal(t, model.OrderStatusCompleted, next.Status)
		} else {
			assert.Equal(t, model.OrderStatusPending, next.Status)
		}
		assert.NotEqual(t, model.OrderStatusCancelled, next.Status)
	}
}

func TestCompletionEffectsFireOnce(t *testing.T) {
	next, effects, err := Transition(initial(), Event{Kind: SetInvoiceStatus, Target: model.InvoiceStatusPedidoCompleto})
	require.NoError(t, err)
	assert.True(t, Has(effects, DecrementStock))
	assert.True(t, Has(effects, MarkInvoicesPaid))

	_, again, err := Transition(next, Event{Kind: SetInvoiceStatus, Target: model.InvoiceStatusPedidoCompleto})
	require.NoError(t, err)
	assert.False(t, Has(again, DecrementStock))
	assert.True(t, Has(again, MarkInvoicesPaid))
}

func TestLeavingCompletedReturnsToPending(t *testing.T) {
	done := State{Status: model.OrderStatusCompleted, InvoiceStatus: model.InvoiceStatusPedidoCompleto}
	next, effects, err := Transition(done, Event{Kind: SetInvoiceStatus, Target: model.InvoiceStatusFacturaCobrada})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, next.Status)
	assert.False(t, Has(effects, DecrementStock))
	assert.True(t, Has(effects, RecordPayment))
}

func TestSetStatusExplicit(t *testing.T) {
	next, effects, err := Transition(initial(), Event{Kind: SetStatus, Target: model.OrderStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, next.Status)
	assert.Equal(t, model.InvoiceStatusRemito, next.InvoiceStatus)
	assert.Empty(t, effects)

	_, effects, err = Transition(initial(), Event{Kind: SetStatus, Target: model.OrderStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []Effect{DecrementStock}, effects)
}

func TestInvalidTargets(t *testing.T) {
	_, _, err := Transition(initial(), Event{Kind: SetInvoiceStatus, Target: "pagado"})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, _, err = Transition(initial(), Event{Kind: SetStatus, Target: "shipped"})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestAttachAndClear(t *testing.T) {
	promoted, _, err := Transition(initial(), Event{Kind: InvoiceAttached})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusFacturaPendiente, promoted.InvoiceStatus)

	reverted, _, err := Transition(promoted, Event{Kind: InvoicesCleared})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusRemito, reverted.InvoiceStatus)

	paid := State{Status: model.OrderStatusPending, InvoiceStatus: model.InvoiceStatusFacturaCobrada}
	same, _, err := Transition(paid, Event{Kind: InvoiceAttached})
	require.NoError(t, err)
	assert.Equal(t, paid, same)
	same, _, err = Transition(paid, Event{Kind: InvoicesCleared})
	require.NoError(t, err)
	assert.Equal(t, paid, same)
}
