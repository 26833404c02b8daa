package repository

import (
	"context"

	"github.com/jhoicas/procurement-api/internal/domain/entity"
)

// InventoryFilter filtra saldos por bodega y/o producto (vacío = todos).
type InventoryFilter struct {
	WarehouseID string
	ProductID   string
}

// StockPosition saldo junto con los datos del producto necesarios para reorden y alertas.
type StockPosition struct {
	Record  entity.InventoryRecord
	Product entity.Product
}

// InventoryRecordRepository define el puerto para los saldos por producto+bodega.
// Usado dentro de transacciones para garantizar consistencia.
type InventoryRecordRepository interface {
	// Get devuelve el saldo o un registro en cero si no existe fila.
	Get(ctx context.Context, productID, warehouseID string) (*entity.InventoryRecord, error)
	// GetForUpdate igual que Get pero bloquea la fila (SELECT FOR UPDATE), creándola en cero si falta.
	GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.InventoryRecord, error)
	Upsert(ctx context.Context, record *entity.InventoryRecord) error
	List(ctx context.Context, filter InventoryFilter, limit, offset int) ([]StockPosition, error)
	// ListAtOrBelowReorderPoint saldos de productos activos con disponible ≤ punto de reorden.
	ListAtOrBelowReorderPoint(ctx context.Context, filter InventoryFilter) ([]StockPosition, error)
}
