package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bakerycrm/internal/model"
	"bakerycrm/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockChange is the payload published on stock.changed
type StockChange struct {
	ProductID string `json:"productId"`
	Delta     int    `json:"delta"`
	Stock     int    `json:"stock"`
	OrderID   string `json:"orderId,omitempty"`
}

// StockLedger applies stock movements and keeps their history.
type StockLedger interface {
	// ApplyOrderCompletion decrements every line of a completed order. Callers guarantee it runs once per completion.
	ApplyOrderCompletion(ctx context.Context, order *model.Order) ([]StockChange, error)
	Adjust(ctx context.Context, productID uuid.UUID, delta int) (StockChange, error)
	Movements(ctx context.Context, productID uuid.UUID, limit int) ([]model.StockMovement, error)
}

type stockLedger struct {
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
}

func NewStockLedger(productRepo repository.ProductRepository, movementRepo repository.StockMovementRepository) StockLedger {
	return &stockLedger{productRepo: productRepo, movementRepo: movementRepo}
}

func (l *stockLedger) ApplyOrderCompletion(ctx context.Context, order *model.Order) ([]StockChange, error) {
	orderID := order.ID
	changes := make([]StockChange, 0, len(order.Items))
	for _, item := range order.Items {
		stock, err := l.productRepo.AddStock(ctx, item.ProductID, -item.Quantity)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("order %s: product %s no longer exists, stock not decremented", order.ID, item.ProductID)
				continue
			}
			return nil, fmt.Errorf("failed to decrement stock of %s: %w", item.ProductID, err)
		}

		movement := &model.StockMovement{
			ProductID:       item.ProductID,
			OrderID:         &orderID,
			Type:            model.MovementSale,
			QuantityChanged: -item.Quantity,
			StockAfter:      stock,
		}
		if err := l.movementRepo.Create(ctx, movement); err != nil {
			return nil, fmt.Errorf("failed to record stock movement: %w", err)
		}
		changes = append(changes, StockChange{
			ProductID: item.ProductID.String(),
			Delta:     -item.Quantity,
			Stock:     stock,
			OrderID:   orderID.String(),
		})
	}
	return changes, nil
}

func (l *stockLedger) Adjust(ctx context.Context, productID uuid.UUID, delta int) (StockChange, error) {
	stock, err := l.productRepo.AddStock(ctx, productID, delta)
	if err != nil {
		return StockChange{}, lookupErr("product", err)
	}
	movement := &model.StockMovement{
		ProductID:       productID,
		Type:            model.MovementAdjustment,
		QuantityChanged: delta,
		StockAfter:      stock,
	}
	if err := l.movementRepo.Create(ctx, movement); err != nil {
		return StockChange{}, fmt.Errorf("failed to record stock movement: %w", err)
	}
	return StockChange{ProductID: productID.String(), Delta: delta, Stock: stock}, nil
}

func (l *stockLedger) Movements(ctx context.Context, productID uuid.UUID, limit int) ([]model.StockMovement, error) {
	if _, err := l.productRepo.FindByID(ctx, productID); err != nil {
		return nil, lookupErr("product", err)
	}
	return l.movementRepo.ListByProduct(ctx, productID, limit)
}
