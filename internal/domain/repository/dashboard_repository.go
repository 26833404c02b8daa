package repository

import (
	"context"
	"time"
)

// StockStatusCounts saldos agrupados por estado de stock.
type StockStatusCounts struct {
	InStock    int
	LowStock   int
	OutOfStock int
}

// DashboardRepository consultas agregadas de solo lectura para el dashboard.
type DashboardRepository interface {
	CountActiveProducts(ctx context.Context) (int, error)
	// CountStockByStatus aplica la misma regla que entity.StockStatusFor sobre todos los saldos
	// de productos activos.
	CountStockByStatus(ctx context.Context) (*StockStatusCounts, error)
	// CountOverdueOrders OC abiertas con fecha esperada de entrega anterior a asOf.
	CountOverdueOrders(ctx context.Context, asOf time.Time) (int, error)
}
