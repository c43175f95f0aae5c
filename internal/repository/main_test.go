package repository

import (
	"context"
	"testing"

	"bakerycrm/internal/database"
	"bakerycrm/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := database.Open(sqlite.Open(dsn), "silent")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedCustomer(t *testing.T, db *gorm.DB, phone string) *model.Customer {
	t.Helper()
	c := &model.Customer{FirstName: "Ana", LastName: "Gómez", Phone: phone, Type: model.CustomerTypeParticular}
	require.NoError(t, db.Create(c).Error)
	return c
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Category: model.DefaultProductCategory,
		Unit:     model.DefaultProductUnit,
		MinStock: model.DefaultMinStock,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedOrder(t *testing.T, db *gorm.DB, customer *model.Customer, items ...model.OrderItem) *model.Order {
	t.Helper()
	o := &model.Order{
		CustomerID:    customer.ID,
		Items:         items,
		Total:         model.ComputeTotal(items),
		DeliveryType:  model.DeliveryStore,
		Status:        model.OrderStatusPending,
		InvoiceStatus: model.InvoiceStatusRemito,
		PaymentMethod: model.PaymentCash,
	}
	require.NoError(t, db.Create(o).Error)
	return o
}

func seedInvoice(t *testing.T, db *gorm.DB, customer *model.Customer, number string) *model.Invoice {
	t.Helper()
	inv := &model.Invoice{
		CustomerID:     customer.ID,
		InvoiceType:    model.InvoiceTypeB,
		PointOfSale:    model.DefaultPointOfSale,
		InvoiceNumber:  number,
		DocumentType:   model.DocumentDNI,
		DocumentNumber: "00000000",
		CustomerName:   customer.FullName(),
		Subtotal:       decimal.NewFromInt(100),
		Total:          decimal.NewFromInt(121),
		PaymentMethod:  model.PaymentCash,
		Status:         model.InvoicePending,
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

func line(p *model.Product, qty int) model.OrderItem {
	return model.OrderItem{ProductID: p.ID, Quantity: qty, Price: p.Price}
}

var ctx = context.Background()
