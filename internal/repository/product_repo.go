package repository

import (
	"context"
	"strings"

	"bakerycrm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductFilter narrows product listings. Stock is one of "", low, out, available.
type ProductFilter struct {
	Search   string
	Category string
	Stock    string
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	LowStock(ctx context.Context, limit int) ([]model.Product, error)
	// AddStock applies delta atomically and returns the resulting stock.
	AddStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

// Update never writes stock; stock only moves through AddStock.
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit("stock").Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	result := make(map[uuid.UUID]model.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var products []model.Product
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	var products []model.Product

	db := GetDB(ctx, r.db).Model(&model.Product{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	switch filter.Stock {
	case "low":
		db = db.Where("stock <= min_stock")
	case "out":
		db = db.Where("stock <= 0")
	case "available":
		db = db.Where("stock > 0")
	}

	if err := db.Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) LowStock(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).
		Where("stock <= min_stock").
		Order("stock ASC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) AddStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	db := GetDB(ctx, r.db)
	res := db.Model(&model.Product{}).Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var product model.Product
	if err := db.Select("stock").First(&product, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return product.Stock, nil
}
