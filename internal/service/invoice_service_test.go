package service

import (
	"testing"
	"time"

	"bakerycrm/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoice_DefaultsAndSequentialNumbers(t *testing.T) {
	h := newHarness(t)
	ana := h.customer(t, "Ana", "Gómez", "1122334455")

	first := h.manualInvoice(t, ana)
	second := h.manualInvoice(t, ana)

	assert.Equal(t, "0001-00000001", first.InvoiceNumber)
	assert.Equal(t, "0001-00000002", second.InvoiceNumber)

	assert.Equal(t, model.InvoiceTypeB, first.InvoiceType)
	assert.Equal(t, "0001", first.PointOfSale)
	assert.Equal(t, model.DocumentDNI, first.DocumentType)
	assert.Equal(t, "00000000", first.DocumentNumber)
	assert.Equal(t, "Ana Gómez", first.CustomerName)
	assert.Equal(t, model.PaymentCash, first.PaymentMethod)
	assert.Equal(t, model.InvoicePending, first.Status)

	assert.Len(t, first.CAE, 14)
	require.NotNil(t, first.CAEExpirationDate)
	assert.True(t, first.CAEExpirationDate.After(time.Now()))

	require.Len(t, first.Items, 1)
	assertDecimal(t, "100", first.Items[0].Subtotal)
	assertDecimal(t, "21", first.Items[0].IVA)
	assertDecimal(t, "121", first.Items[0].Total)
	assertDecimal(t, "100", first.Subtotal)
	assertDecimal(t, "21", first.IVA21)
	assertDecimal(t, "121", first.Total)
	assert.Empty(t, first.Orders)

	assert.Equal(t, 2, h.publisher.count(EventInvoiceCreated))
}

func TestCreateInvoice_SeriesAreIndependent(t *testing.T) {
	h := newHarness(t)
	ana := h.customer(t, "Ana", "Gómez", "1122334455")
	h.manualInvoice(t, ana)

	inv, err := h.invoices.CreateInvoice(ctx, CreateInvoiceRequest{
		Customer:     model.NewRef(ana.ID),
		InvoiceType:  "a",
		DocumentType: "cuit",
		Items:        []InvoiceItemRequest{{Description: "Catering", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceTypeA, inv.InvoiceType)
	assert.Equal(t, model.DocumentCUIT, inv.DocumentType)
	assert.Equal(t, "0001-00000001", inv.InvoiceNumber)
}

func TestCreateInvoice_ClientTotalsWin(t *testing.T) {
	h := newHarness(t)
	ana := h.customer(t, "Ana", "Gómez", "1122334455")

	iva := decimal.NewFromInt(0)
	total := decimal.RequireFromString("99.50")
	inv, err := h.invoices.CreateInvoice(ctx, CreateInvoiceRequest{
		Customer: model.NewRef(ana.ID),
		Items:    []InvoiceItemRequest{{Description: "Pan", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100), IVA: &iva}},
		Total:    &total,
	})
	require.NoError(t, err)
	assertDecimal(t, "0", inv.IVA21)
	assertDecimal(t, "99.50", inv.Total)
}

func TestCreateInvoice_FromOrdersLinksAndPromotes(t *testing.T) {
	h := newHarness(t)
	ana := h.customer(t, "Ana", "Gómez", "1122334455")
	pan := h.product(t, "Pan", "150", 10)
	torta := h.product(t, "Torta", "3500", 5)
	order := h.order(t, ana, lineOf(pan, 2), lineOf(torta, 1))

	ref := model.NewRef(order.ID)
	inv, err := h.invoices.CreateInvoice(ctx, CreateInvoiceRequest{
		Customer: model.NewRef(ana.ID),
		Orders:   []model.Ref{ref},
		Order:    &ref,
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{order.ID}, inv.Orders)
	require.Len(t, inv.Items, 2)
	descriptions := []string{inv.Items[0].Description, inv.Items[1].Description}
	assert.ElementsMatch(t, []string{"Pan", "Torta"}, descriptions)
	assertDecimal(t, "3800", inv.Subtotal)
	assertDecimal(t, "798", inv.IVA21)
	assertDecimal(t, "4598", inv.Total)

	reloaded, err := h.orders.GetOrder(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusFacturaPendiente, reloaded.InvoiceStatus)
	assert.Equal(t, []uuid.UUID{inv.ID}, reloaded.AssociatedInvoices)
}

func TestCreateInvoice_Validation(t *testing.T) {
	h := newHarness(t)
	ana := h.customer(t, "Ana", "Gómez", "1122334455")
	bruno := h.customer(t, "Bruno", "Díaz", "5566778899")
	pan := h.product(t, "Pan", "150", 10)
	brunoOrder := h.order(t, bruno, lineOf(pan, 1))

	item := []InvoiceItemRequest{{Description: "Pan", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)}}
	tests := []struct {
		name string
		req  CreateInvoiceRequest
	}{
		{"missing customer", CreateInvoiceRequest{Items: item}},
		{"unknown customer", CreateInvoiceRequest{Customer: model.NewRef(uuid.New()), Items: item}},
		{"no items and no orders", CreateInvoiceRequest{Customer: model.NewRef(ana.ID)}},
		{"bad invoice type", CreateInvoiceRequest{Customer: model.NewRef(ana.ID), InvoiceType: "Z", Items: item}},
		{"bad document type", CreateInvoiceRequest{Customer: model.NewRef(ana.ID), DocumentType: "PASAPORTE", Items: item}},
		{"bad payment method", CreateInvoiceRequest{Customer: model.NewRef(ana.ID), PaymentMethod: "bitcoin", Items: item}},
		{"non positive quantity", CreateInvoiceRequest{
			Customer: model.NewRef(ana.ID),
			Items:    []InvoiceItemRequest{{Description: "Pan", UnitPrice: decimal.NewFromInt(10)}},
		}},
		{"unknown order", CreateInvoiceRequest{Customer: model.NewRef(ana.ID), Orders: []model.Ref{model.NewRef(uuid.New())}}},
		{"order of another customer", CreateInvoiceRequest{Customer: model.NewRef(ana.ID), Orders: []model.Ref{model.NewRef(brunoOrder.ID)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.invoices.CreateInvoice(ctx, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// a rejected draft must not burn a number
	inv := h.manualInvoice(t, ana)
	assert.Equal(t, "0001-00000001", inv.InvoiceNumber)

	untouched, err := h.orders.GetOrder(ctx, brunoOrder.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusRemito, untouched.InvoiceStatus)
}

func TestInvoiceStatusAndOpenByCustomer(t *testing.T) {
	h := newHarness(t)
	ana := h.customer(t, "Ana", "Gómez", "1122334455")
	bruno := h.customer(t, "Bruno", "Díaz", "5566778899")
	first := h.manualInvoice(t, ana)
	second := h.manualInvoice(t, ana)
	h.manualInvoice(t, bruno)

	issued, err := h.invoices.UpdateStatus(ctx, first.ID.String(), model.InvoiceIssued)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceIssued, issued.Status)

	_, err = h.invoices.UpdateStatus(ctx, first.ID.String(), model.InvoicePaid)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.invoices.UpdateStatus(ctx, uuid.NewString(), model.InvoiceIssued)
	assert.ErrorIs(t, err, ErrNotFound)

	open, err := h.invoices.OpenByCustomer(ctx, ana.ID.String())
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	_, err = h.invoices.OpenByCustomer(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	all, total, err := h.invoices.ListInvoices(ctx, InvoiceFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 2)

	logs, _, err := h.audit.GetAuditLogs(ctx, first.ID.String(), 1, 10)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.Contains(t, actions, model.ActionChangeInvoiceState)
	assert.Contains(t, actions, model.ActionCreateInvoice)
}

func TestInvoiceQRCode(t *testing.T) {
	h := newHarness(t)
	ana := h.customer(t, "Ana", "Gómez", "1122334455")
	inv := h.manualInvoice(t, ana)

	png, err := h.invoices.QRCode(ctx, inv.ID.String(), 0)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
