package service

import (
	"testing"

	"bakerycrm/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerService(t *testing.T) {
	h := newHarness(t)
	ana := h.customer(t, "Ana", "Gómez", "1122334455")
	assert.Equal(t, model.CustomerTypeParticular, ana.Type)

	t.Run("duplicate phone", func(t *testing.T) {
		_, err := h.customers.CreateCustomer(ctx, CreateCustomerRequest{FirstName: "Otra", LastName: "Ana", Phone: "1122334455"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("lookup by id or phone", func(t *testing.T) {
		byID, err := h.customers.GetCustomer(ctx, ana.ID.String())
		require.NoError(t, err)
		byPhone, err := h.customers.GetCustomer(ctx, "1122334455")
		require.NoError(t, err)
		assert.Equal(t, byID.ID, byPhone.ID)

		_, err = h.customers.GetCustomer(ctx, "000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("phone is immutable", func(t *testing.T) {
		phone := "999"
		_, err := h.customers.UpdateCustomer(ctx, "1122334455", UpdateCustomerRequest{Phone: &phone})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("partial update", func(t *testing.T) {
		address := "Calle Falsa 123"
		same := "1122334455"
		updated, err := h.customers.UpdateCustomer(ctx, "1122334455", UpdateCustomerRequest{Address: &address, Phone: &same})
		require.NoError(t, err)
		assert.Equal(t, address, updated.Address)
		assert.Equal(t, "Ana", updated.FirstName)
	})

	t.Run("unknown phone", func(t *testing.T) {
		name := "X"
		_, err := h.customers.UpdateCustomer(ctx, "000", UpdateCustomerRequest{FirstName: &name})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("search", func(t *testing.T) {
		h.customer(t, "Bruno", "Díaz", "5566778899")
		found, err := h.customers.ListCustomers(ctx, "brun")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "5566778899", found[0].Phone)
	})

	t.Run("orders of a customer", func(t *testing.T) {
		pan := h.product(t, "Pan", "150", 10)
		h.order(t, ana, lineOf(pan, 1))
		orders, err := h.orders.ListCustomerOrders(ctx, "1122334455")
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})
}

func TestProductService(t *testing.T) {
	h := newHarness(t)

	t.Run("defaults", func(t *testing.T) {
		p := h.product(t, "Pan", "150", 50)
		assert.Equal(t, model.DefaultProductCategory, p.Category)
		assert.Equal(t, model.DefaultProductUnit, p.Unit)
		assert.Equal(t, model.DefaultMinStock, p.MinStock)
		assert.False(t, p.LowStock)
	})

	t.Run("explicit zero min stock is kept", func(t *testing.T) {
		price := decimal.NewFromInt(10)
		zero := 0
		p, err := h.products.CreateProduct(ctx, CreateProductRequest{Name: "Agua", Price: &price, MinStock: &zero})
		require.NoError(t, err)
		reloaded, err := h.products.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, reloaded.MinStock)
	})

	t.Run("validation", func(t *testing.T) {
		negative := decimal.NewFromInt(-1)
		_, err := h.products.CreateProduct(ctx, CreateProductRequest{Name: "Mal", Price: &negative})
		assert.ErrorIs(t, err, ErrValidation)
		_, err = h.products.CreateProduct(ctx, CreateProductRequest{Name: "Sin precio"})
		assert.ErrorIs(t, err, ErrValidation)

		price := decimal.NewFromInt(1)
		_, err = h.products.CreateProduct(ctx, CreateProductRequest{Name: "Pan", Price: &price})
		assert.ErrorIs(t, err, ErrValidation, "names are unique")
	})

	t.Run("stock edit goes through the ledger", func(t *testing.T) {
		p := h.product(t, "Torta", "3500", 5)
		stock := 2
		updated, err := h.products.UpdateProduct(ctx, p.ID, UpdateProductRequest{Stock: &stock})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Stock)
		assert.True(t, updated.LowStock)

		movements, err := h.products.GetMovements(ctx, p.ID, 10)
		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, model.MovementAdjustment, movements[0].Type)
		assert.Equal(t, -3, movements[0].QuantityChanged)
		assert.Equal(t, 2, movements[0].StockAfter)
		assert.Equal(t, 1, h.publisher.count(EventStockChanged))
	})

	t.Run("delete hides the product", func(t *testing.T) {
		p := h.product(t, "Medialuna", "90", 40)
		require.NoError(t, h.products.DeleteProduct(ctx, p.ID))
		_, err := h.products.GetProduct(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = h.products.GetMovements(ctx, p.ID, 10)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deleted name can be reused", func(t *testing.T) {
		old := h.product(t, "Facturas", "80", 12)
		require.NoError(t, h.products.DeleteProduct(ctx, old.ID))

		recreated := h.product(t, "Facturas", "95", 20)
		assert.NotEqual(t, old.ID, recreated.ID)
		assertDecimal(t, "95", recreated.Price)

		_, err := h.products.CreateProduct(ctx, CreateProductRequest{Name: "Facturas", Price: &recreated.Price})
		assert.ErrorIs(t, err, ErrValidation)

		bizcochos := h.product(t, "Bizcochos", "60", 5)
		require.NoError(t, h.products.DeleteProduct(ctx, bizcochos.ID))
		renamed := "Bizcochos"
		other := h.product(t, "Grisines", "70", 5)
		res, err := h.products.UpdateProduct(ctx, other.ID, UpdateProductRequest{Name: &renamed})
		require.NoError(t, err)
		assert.Equal(t, "Bizcochos", res.Name)
	})
}
