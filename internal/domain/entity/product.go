package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitOfMeasureDefault unidad usada cuando el producto no especifica una.
const UnitOfMeasureDefault = "PCS"

// Product representa un producto o SKU del catálogo (multi-bodega).
// El stock se maneja por bodega en InventoryRecord; CostPrice se recalcula como promedio ponderado en cada recepción.
type Product struct {
	ID              string
	SKU             string // único; inmutable una vez referenciado por inventario u OC
	Name            string
	Description     string
	CategoryID      string // vacío si no tiene categoría
	UnitOfMeasure   string
	CostPrice       decimal.Decimal
	SellingPrice    decimal.Decimal
	ReorderPoint    int64
	ReorderQuantity int64
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
