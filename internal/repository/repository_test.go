package repository

import (
	"context"
	"errors"
	"testing"

	"bakerycrm/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	txm := NewTransactionManager(db)
	customers := NewCustomerRepository(db)

	boom := errors.New("boom")
	err := txm.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, customers.Create(txCtx, &model.Customer{FirstName: "A", LastName: "B", Phone: "1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = customers.FindByPhone(ctx, "1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTransactionManager_JoinsOuterTransaction(t *testing.T) {
	db := setupTestDB(t)
	txm := NewTransactionManager(db)
	customers := NewCustomerRepository(db)

	err := txm.RunInTx(ctx, func(outer context.Context) error {
		if err := txm.RunInTx(outer, func(inner context.Context) error {
			return customers.Create(inner, &model.Customer{FirstName: "A", LastName: "B", Phone: "2"})
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})
	require.Error(t, err)

	_, err = customers.FindByPhone(ctx, "2")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "inner write must roll back with the outer transaction")
}

func TestCustomerRepository_SearchAndUniquePhone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCustomerRepository(db)

	require.NoError(t, repo.Create(ctx, &model.Customer{FirstName: "Ana", LastName: "Gómez", Phone: "1111"}))
	require.NoError(t, repo.Create(ctx, &model.Customer{FirstName: "Bruno", LastName: "Díaz", Phone: "2222"}))

	err := repo.Create(ctx, &model.Customer{FirstName: "Otra", LastName: "Ana", Phone: "1111"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	found, err := repo.List(ctx, "bru")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2222", found[0].Phone)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProductRepository_AddStockHasNoFloor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	pan := seedProduct(t, db, "Pan", "150", 1)

	stock, err := repo.AddStock(ctx, pan.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, -2, stock)

	_, err = repo.AddStock(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_UpdateLeavesStockAlone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	pan := seedProduct(t, db, "Pan", "150", 10)

	stale := *pan
	_, err := repo.AddStock(ctx, pan.ID, -4)
	require.NoError(t, err)

	stale.Description = "de campo"
	require.NoError(t, repo.Update(ctx, &stale))

	got, err := repo.FindByID(ctx, pan.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Stock)
	assert.Equal(t, "de campo", got.Description)
}

func TestProductRepository_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	seedProduct(t, db, "Pan", "150", 100)
	seedProduct(t, db, "Torta", "3500", 3)
	seedProduct(t, db, "Factura", "200", 0)

	low, err := repo.List(ctx, ProductFilter{Stock: "low"})
	require.NoError(t, err)
	assert.Len(t, low, 2)

	out, err := repo.List(ctx, ProductFilter{Stock: "out"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Factura", out[0].Name)

	search, err := repo.List(ctx, ProductFilter{Search: "TOR"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "Torta", search[0].Name)
}

func TestProductRepository_SoftDeleteHidesButKeepsOrderLines(t *testing.T) {
	db := setupTestDB(t)
	products := NewProductRepository(db)
	orders := NewOrderRepository(db)
	customer := seedCustomer(t, db, "1111")
	pan := seedProduct(t, db, "Pan", "150", 10)
	order := seedOrder(t, db, customer, line(pan, 2))

	require.NoError(t, products.Delete(ctx, pan.ID))

	_, err := products.FindByID(ctx, pan.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	loaded, err := orders.FindByIDWithItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	require.NotNil(t, loaded.Items[0].Product)
	assert.Equal(t, "Pan", loaded.Items[0].Product.Name)

	_, err = products.AddStock(ctx, pan.ID, -1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_CompareAndSwapState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	customer := seedCustomer(t, db, "1111")
	pan := seedProduct(t, db, "Pan", "150", 10)
	order := seedOrder(t, db, customer, line(pan, 1))

	prev := StatePair{Status: model.OrderStatusPending, InvoiceStatus: model.InvoiceStatusRemito}
	next := StatePair{Status: model.OrderStatusPending, InvoiceStatus: model.InvoiceStatusFacturaPendiente}

	ok, err := repo.CompareAndSwapState(ctx, order.ID, prev, next, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// the row moved on, so the same swap must now lose
	ok, err = repo.CompareAndSwapState(ctx, order.ID, prev, next, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusFacturaPendiente, got.InvoiceStatus)
}

func TestOrderRepository_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ana := seedCustomer(t, db, "1111")
	bruno := seedCustomer(t, db, "2222")
	pan := seedProduct(t, db, "Pan", "150", 10)

	seedOrder(t, db, ana, line(pan, 1))
	done := seedOrder(t, db, ana, line(pan, 2))
	seedOrder(t, db, bruno, line(pan, 3))
	require.NoError(t, repo.UpdateFields(ctx, done.ID, map[string]interface{}{
		"status":         model.OrderStatusCompleted,
		"invoice_status": model.InvoiceStatusPedidoCompleto,
	}))

	byCustomer, err := repo.List(ctx, OrderFilter{CustomerID: &ana.ID}, true)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)

	open, err := repo.List(ctx, OrderFilter{ExcludeInvoice: []string{model.InvoiceStatusPedidoCompleto}}, false)
	require.NoError(t, err)
	assert.Len(t, open, 2)
	for _, o := range open {
		assert.NotEqual(t, done.ID, o.ID)
		require.NotNil(t, o.Customer)
	}
}

func TestOrderRepository_ReplaceItemsAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	customer := seedCustomer(t, db, "1111")
	pan := seedProduct(t, db, "Pan", "150", 10)
	torta := seedProduct(t, db, "Torta", "3500", 10)
	order := seedOrder(t, db, customer, line(pan, 2))

	require.NoError(t, repo.ReplaceItems(ctx, order.ID, []model.OrderItem{line(torta, 1), line(pan, 5)}))
	loaded, err := repo.FindByIDWithItems(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 2)

	require.NoError(t, repo.Delete(ctx, order.ID))
	assert.ErrorIs(t, repo.Delete(ctx, order.ID), gorm.ErrRecordNotFound)

	var remaining int64
	require.NoError(t, db.Model(&model.OrderItem{}).Where("order_id = ?", order.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestAssociationRepository_SetSemantics(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssociationRepository(db)
	customer := seedCustomer(t, db, "1111")
	pan := seedProduct(t, db, "Pan", "150", 10)
	order := seedOrder(t, db, customer, line(pan, 1))
	inv1 := seedInvoice(t, db, customer, "0001-00000001")
	inv2 := seedInvoice(t, db, customer, "0001-00000002")

	created, err := repo.Link(ctx, order.ID, inv1.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Link(ctx, order.ID, inv1.ID)
	require.NoError(t, err)
	assert.False(t, created, "linking twice must not duplicate the pair")

	_, err = repo.Link(ctx, order.ID, inv2.ID)
	require.NoError(t, err)

	invoices, err := repo.InvoiceIDs(ctx, order.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{inv1.ID, inv2.ID}, invoices)

	orders, err := repo.OrderIDs(ctx, inv1.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{order.ID}, orders)

	byOrder, err := repo.InvoiceIDsByOrder(ctx, []uuid.UUID{order.ID})
	require.NoError(t, err)
	assert.Len(t, byOrder[order.ID], 2)

	removed, err := repo.Unlink(ctx, order.ID, inv1.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Unlink(ctx, order.ID, inv1.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, repo.DeleteByOrder(ctx, order.ID))
	left, err := repo.InvoiceIDs(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSequenceRepository_SeedsFromExistingNumbers(t *testing.T) {
	db := setupTestDB(t)
	seqs := NewSequenceRepository(db)
	invoices := NewInvoiceRepository(db)
	customer := seedCustomer(t, db, "1111")
	seedInvoice(t, db, customer, "0001-00000007")
	seedInvoice(t, db, customer, "0001-00000012")

	seed := func(ctx context.Context) (int64, error) {
		latest, err := invoices.LatestNumber(ctx, model.InvoiceTypeB, "0001")
		if err != nil || latest == "" {
			return 0, err
		}
		return model.ParseInvoiceSequence(latest)
	}

	n, err := seqs.Next(ctx, model.InvoiceTypeB, "0001", seed)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)

	n, err = seqs.Next(ctx, model.InvoiceTypeB, "0001", seed)
	require.NoError(t, err)
	assert.Equal(t, int64(14), n)

	// other series are independent
	n, err = seqs.Next(ctx, model.InvoiceTypeA, "0001", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInvoiceRepository_ListAndUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInvoiceRepository(db)
	ana := seedCustomer(t, db, "1111")
	bruno := seedCustomer(t, db, "2222")
	first := seedInvoice(t, db, ana, "0001-00000001")
	seedInvoice(t, db, ana, "0001-00000002")
	seedInvoice(t, db, bruno, "0001-00000003")

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, model.InvoiceIssued))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), model.InvoiceIssued), gorm.ErrRecordNotFound)

	pending, total, err := repo.List(ctx, InvoiceListFilter{Status: model.InvoicePending, CustomerID: &ana.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.Equal(t, "0001-00000002", pending[0].InvoiceNumber)

	page, total, err := repo.List(ctx, InvoiceListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)

	latest, err := repo.LatestNumber(ctx, model.InvoiceTypeC, "0001")
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestStockMovementAndAuditRepositories(t *testing.T) {
	db := setupTestDB(t)
	movements := NewStockMovementRepository(db)
	audit := NewAuditRepository(db)
	pan := seedProduct(t, db, "Pan", "150", 10)
	orderID := uuid.New()

	require.NoError(t, movements.Create(ctx, &model.StockMovement{ProductID: pan.ID, Type: model.MovementAdjustment, QuantityChanged: 5, StockAfter: 15}))
	require.NoError(t, movements.Create(ctx, &model.StockMovement{ProductID: pan.ID, OrderID: &orderID, Type: model.MovementSale, QuantityChanged: -2, StockAfter: 13}))

	all, err := movements.ListByProduct(ctx, pan.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	sales, err := movements.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 13, sales[0].StockAfter)

	for i := 0; i < 3; i++ {
		require.NoError(t, audit.Log(ctx, &model.AuditLog{Action: model.ActionCreateOrder, EntityID: orderID.String()}))
	}
	require.NoError(t, audit.Log(ctx, &model.AuditLog{Action: model.ActionCreateProduct, EntityID: pan.ID.String()}))

	logs, total, err := audit.List(ctx, orderID.String(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 2)
}
