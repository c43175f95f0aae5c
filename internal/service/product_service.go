package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type CreateProductRequest struct {
	Name        string           `json:"name" binding:"required"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Unit        string           `json:"unit"`
	Stock       int              `json:"stock"`
	MinStock    *int             `json:"minStock"`
}

// UpdateProductRequest is a partial update. A Stock value is applied as a ledger adjustment.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Unit        *string          `json:"unit"`
	Stock       *int             `json:"stock"`
	MinStock    *int             `json:"minStock"`
}

type ProductResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"`
	MinStock    int             `json:"minStock"`
	LowStock    bool            `json:"lowStock"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

type ProductService interface {
	GetProducts(ctx context.Context, filter repository.ProductFilter) ([]ProductResponse, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, id string) error
	GetMovements(ctx context.Context, id string, limit int) ([]model.StockMovement, error)
}

type productService struct {
	productRepo repository.ProductRepository
	ledger      StockLedger
	audit       AuditService
	txManager   repository.TransactionManager
	publisher   Publisher
}

func NewProductService(
	productRepo repository.ProductRepository,
	ledger StockLedger,
	audit AuditService,
	txManager repository.TransactionManager,
	publisher Publisher,
) ProductService {
	return &productService{
		productRepo: productRepo,
		ledger:      ledger,
		audit:       audit,
		txManager:   txManager,
		publisher:   publisherOrNop(publisher),
	}
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, validationf("invalid %s id format", kind)
	}
	return id, nil
}

func (s *productService) GetProducts(ctx context.Context, filter repository.ProductFilter) ([]ProductResponse, error) {
	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res, nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := parseID("product", id)
	if err != nil {
		return ProductResponse{}, err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, lookupErr("product", err)
	}
	return toProductResponse(*product), nil
}

func (s *productService) CreateProduct(ctx context.Context, req CreateProductRequest) (ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ProductResponse{}, validationf("product name is required")
	}
	if req.Price == nil || req.Price.IsNegative() {
		return ProductResponse{}, validationf("valid product price is required")
	}

	product := model.Product{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Price:       *req.Price,
		Stock:       req.Stock,
		Unit:        strings.TrimSpace(req.Unit),
		MinStock:    model.DefaultMinStock,
	}
	if product.Category == "" {
		product.Category = model.DefaultProductCategory
	}
	if product.Unit == "" {
		product.Unit = model.DefaultProductUnit
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			if isDuplicateKey(err) {
				return validationf("a product with that name already exists")
			}
			return fmt.Errorf("failed to create product: %w", err)
		}
		return s.audit.Record(txCtx, model.ActionCreateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (ProductResponse, error) {
	productID, err := parseID("product", id)
	if err != nil {
		return ProductResponse{}, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, lookupErr("product", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return ProductResponse{}, validationf("product name cannot be empty")
		}
		product.Name = name
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return ProductResponse{}, validationf("valid product price is required")
		}
		product.Price = *req.Price
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Unit != nil {
		product.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}

	var change *StockChange
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			if isDuplicateKey(err) {
				return validationf("a product with that name already exists")
			}
			return fmt.Errorf("failed to update product: %w", err)
		}

		if req.Stock != nil && *req.Stock != product.Stock {
			adjusted, err := s.ledger.Adjust(txCtx, product.ID, *req.Stock-product.Stock)
			if err != nil {
				return err
			}
			change = &adjusted
			product.Stock = adjusted.Stock
			if err := s.audit.Record(txCtx, model.ActionAdjustStock, product.ID.String(), product.Name, adjusted); err != nil {
				return err
			}
		}

		return s.audit.Record(txCtx, model.ActionUpdateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	if change != nil {
		s.publisher.Publish(EventStockChanged, []StockChange{*change})
	}
	return toProductResponse(*product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	productID, err := parseID("product", id)
	if err != nil {
		return err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return lookupErr("product", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return s.audit.Record(txCtx, model.ActionDeleteProduct, product.ID.String(), product.Name, map[string]bool{"deleted": true})
	})
}

func (s *productService) GetMovements(ctx context.Context, id string, limit int) ([]model.StockMovement, error) {
	productID, err := parseID("product", id)
	if err != nil {
		return nil, err
	}
	return s.ledger.Movements(ctx, productID, limit)
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		Unit:        p.Unit,
		MinStock:    p.MinStock,
		LowStock:    p.LowStock(),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}
