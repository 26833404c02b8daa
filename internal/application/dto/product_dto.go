package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto. CostPrice inicial opcional; después
// se recalcula como promedio ponderado en cada recepción.
type CreateProductRequest struct {
	SKU             string          `json:"sku" validate:"required,min=1,max=100"`
	Name            string          `json:"name" validate:"required,min=1,max=200"`
	Description     string          `json:"description" validate:"omitempty,max=1000"`
	CategoryID      string          `json:"category_id,omitempty"`
	UnitOfMeasure   string          `json:"unit_of_measure" validate:"omitempty,max=20"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	ReorderPoint    int64           `json:"reorder_point" validate:"gte=0"`
	ReorderQuantity int64           `json:"reorder_quantity" validate:"gte=0"`
}

// UpdateProductRequest entrada para actualizar un producto (campos nil no cambian).
// El SKU solo se puede cambiar mientras el producto no tenga inventario ni líneas de OC.
type UpdateProductRequest struct {
	SKU             *string          `json:"sku" validate:"omitempty,min=1,max=100"`
	Name            *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description     *string          `json:"description" validate:"omitempty,max=1000"`
	CategoryID      *string          `json:"category_id"`
	UnitOfMeasure   *string          `json:"unit_of_measure" validate:"omitempty,max=20"`
	SellingPrice    *decimal.Decimal `json:"selling_price"`
	ReorderPoint    *int64           `json:"reorder_point" validate:"omitempty,gte=0"`
	ReorderQuantity *int64           `json:"reorder_quantity" validate:"omitempty,gte=0"`
	Active          *bool            `json:"active"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID              string          `json:"id"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	CategoryID      string          `json:"category_id,omitempty"`
	UnitOfMeasure   string          `json:"unit_of_measure"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	ReorderPoint    int64           `json:"reorder_point"`
	ReorderQuantity int64           `json:"reorder_quantity"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
