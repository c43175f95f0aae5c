package repository

import (
	"context"
	"time"

	"bakerycrm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderFilter narrows order listings. Empty fields are ignored.
type OrderFilter struct {
	CustomerID     *uuid.UUID
	Status         string
	InvoiceStatus  string
	ExcludeStatus  []string
	ExcludeInvoice []string
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Order, error)
	List(ctx context.Context, filter OrderFilter, withItems bool) ([]model.Order, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) error
	// CompareAndSwapState writes next only if the row still holds prev. It reports whether the write happened.
	CompareAndSwapState(ctx context.Context, id uuid.UUID, prev, next StatePair, extra map[string]interface{}) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// StatePair mirrors the two workflow columns of an order row.
type StatePair struct {
	Status        string
	InvoiceStatus string
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func withProductsUnscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Product", withProductsUnscoped).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := forUpdate(GetDB(ctx, r.db)).
		Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	if len(ids) == 0 {
		return orders, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter, withItems bool) ([]model.Order, error) {
	var orders []model.Order

	db := GetDB(ctx, r.db).Preload("Customer")
	if withItems {
		db = db.Preload("Items").Preload("Items.Product", withProductsUnscoped)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.InvoiceStatus != "" {
		db = db.Where("invoice_status = ?", filter.InvoiceStatus)
	}
	if len(filter.ExcludeStatus) > 0 {
		db = db.Where("status NOT IN ?", filter.ExcludeStatus)
	}
	if len(filter.ExcludeInvoice) > 0 {
		db = db.Where("invoice_status NOT IN ?", filter.ExcludeInvoice)
	}

	if err := db.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	res := GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ID = uuid.Nil
		items[i].OrderID = orderID
		items[i].Product = nil
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *orderRepository) CompareAndSwapState(ctx context.Context, id uuid.UUID, prev, next StatePair, extra map[string]interface{}) (bool, error) {
	fields := map[string]interface{}{
		"status":         next.Status,
		"invoice_status": next.InvoiceStatus,
		"updated_at":     time.Now(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	res := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND status = ? AND invoice_status = ?", id, prev.Status, prev.InvoiceStatus).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("order_id = ?", id).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&model.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
