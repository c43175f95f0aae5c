package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatisticsResponse aggregates the dashboard figures
type StatisticsResponse struct {
	OrdersByInvoiceStatus map[string]int64 `json:"ordersByInvoiceStatus"`
	OrdersByStatus        map[string]int64 `json:"ordersByStatus"`
	CompletedRevenue      decimal.Decimal  `json:"completedRevenue"`
	PendingInvoiceTotal   decimal.Decimal  `json:"pendingInvoiceTotal"`
	LowStockProducts      []Product        `json:"lowStockProducts"`
	TopProducts           []ProductRanking `json:"topProducts"`
	TimeRangeStartDate    time.Time        `json:"timeRangeStartDate"`
	TimeRangeEndDate      time.Time        `json:"timeRangeEndDate"`
}

// ProductRanking represents a ranked product based on sold quantities
type ProductRanking struct {
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalValue    decimal.Decimal `json:"totalValue"`
}
