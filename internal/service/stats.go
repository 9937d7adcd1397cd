package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// InventoryStats summarizes stock across the whole catalog.
// LowStockItems includes out of stock products, as IsLowStock does.
type InventoryStats struct {
	TotalProducts   int             `json:"totalProducts"`
	LowStockItems   []ProductDto    `json:"lowStockItems"`
	OutOfStockItems []ProductDto    `json:"outOfStockItems"`
	TotalInventory  int             `json:"totalInventory"`
	TotalValue      decimal.Decimal `json:"totalValue"`
}

func (s *Service) InventoryStats(ctx context.Context) (*InventoryStats, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products for inventory stats: %w", err)
	}
	stats := &InventoryStats{
		TotalProducts:   len(products),
		LowStockItems:   []ProductDto{},
		OutOfStockItems: []ProductDto{},
		TotalValue:      decimal.Zero,
	}
	for i := range products {
		dto := *toDto(&products[i])
		if dto.IsLowStock() {
			stats.LowStockItems = append(stats.LowStockItems, dto)
		}
		if dto.IsOutOfStock() {
			stats.OutOfStockItems = append(stats.OutOfStockItems, dto)
		}
		stats.TotalInventory += dto.Inventory
		stats.TotalValue = stats.TotalValue.Add(
			decimal.NewFromFloat(dto.Price).Mul(decimal.NewFromInt(int64(dto.Inventory))))
	}
	return stats, nil
}
