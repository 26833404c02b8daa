package entity

import "time"

// Estados de stock calculados en servidor (una sola regla para todas las pantallas).
const (
	StockStatusInStock    = "in_stock"
	StockStatusLowStock   = "low_stock"
	StockStatusOutOfStock = "out_of_stock"
)

// InventoryRecord es el saldo de un producto en una bodega (clave única product+warehouse).
// Solo el ledger lo modifica; la ausencia de fila equivale a cantidades en cero.
type InventoryRecord struct {
	ProductID        string
	WarehouseID      string
	QuantityOnHand   int64
	QuantityReserved int64
	LastUpdatedAt    time.Time
}

// NewEmptyRecord devuelve el registro en cero para un par sin movimientos.
func NewEmptyRecord(productID, warehouseID string) *InventoryRecord {
	return &InventoryRecord{ProductID: productID, WarehouseID: warehouseID}
}

// Available devuelve on-hand menos reservado.
func (r *InventoryRecord) Available() int64 {
	return r.QuantityOnHand - r.QuantityReserved
}

// Valid verifica onHand ≥ 0, reserved ≥ 0 y available ≥ 0.
func (r *InventoryRecord) Valid() bool {
	return r.QuantityOnHand >= 0 && r.QuantityReserved >= 0 && r.Available() >= 0
}

// StockStatusFor aplica la regla única: available ≤ 0 agotado, ≤ reorderPoint bajo, resto en stock.
func StockStatusFor(available, reorderPoint int64) string {
	switch {
	case available <= 0:
		return StockStatusOutOfStock
	case available <= reorderPoint:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}
