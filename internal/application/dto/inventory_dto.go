package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplyMovementRequest body para POST /api/inventory/movements.
// Direction solo aplica a ADJUSTMENT y TRANSFER (1 entrada, -1 salida).
type ApplyMovementRequest struct {
	ProductID     string           `json:"product_id" validate:"required"`
	WarehouseID   string           `json:"warehouse_id" validate:"required"`
	Type          string           `json:"type" validate:"required,oneof=IN OUT ADJUSTMENT TRANSFER"`
	Direction     int              `json:"direction,omitempty" validate:"omitempty,oneof=-1 1"`
	Quantity      int64            `json:"quantity" validate:"required,gt=0"`
	ReferenceType string           `json:"reference_type,omitempty" validate:"omitempty,max=40"`
	ReferenceID   string           `json:"reference_id,omitempty" validate:"omitempty,max=120"`
	Notes         string           `json:"notes,omitempty" validate:"omitempty,max=500"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ProductID       string `json:"product_id" validate:"required"`
	FromWarehouseID string `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   string `json:"to_warehouse_id" validate:"required,nefield=FromWarehouseID"`
	Quantity        int64  `json:"quantity" validate:"required,gt=0"`
	ReferenceID     string `json:"reference_id,omitempty" validate:"omitempty,max=120"`
	Notes           string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// ReservationRequest body para reservar o liberar unidades.
type ReservationRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	WarehouseID string `json:"warehouse_id" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0"`
}

// InventoryRecordResponse saldo de un producto en una bodega.
type InventoryRecordResponse struct {
	ProductID         string     `json:"product_id"`
	WarehouseID       string     `json:"warehouse_id"`
	QuantityOnHand    int64      `json:"quantity_on_hand"`
	QuantityReserved  int64      `json:"quantity_reserved"`
	QuantityAvailable int64      `json:"quantity_available"`
	LastUpdatedAt     *time.Time `json:"last_updated_at,omitempty"`
}

// StockPositionResponse saldo enriquecido con datos del producto y estado de stock.
type StockPositionResponse struct {
	InventoryRecordResponse
	SKU          string `json:"sku"`
	ProductName  string `json:"product_name"`
	ReorderPoint int64  `json:"reorder_point"`
	StockStatus  string `json:"stock_status"` // in_stock | low_stock | out_of_stock
}

// StockPositionListResponse lista paginada de saldos.
type StockPositionListResponse struct {
	Items []StockPositionResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// MovementResultResponse resultado de aplicar un movimiento.
// Duplicate=true indica que la referencia ya estaba aplicada y no hubo efecto.
type MovementResultResponse struct {
	Record     InventoryRecordResponse `json:"record"`
	MovementID string                  `json:"movement_id,omitempty"`
	Duplicate  bool                    `json:"duplicate"`
}

// TransferResponse saldos de origen y destino tras un traslado.
type TransferResponse struct {
	From      InventoryRecordResponse `json:"from"`
	To        InventoryRecordResponse `json:"to"`
	Duplicate bool                    `json:"duplicate"`
}

// StockMovementResponse movimiento del ledger.
type StockMovementResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	WarehouseID    string    `json:"warehouse_id"`
	Type           string    `json:"type"`
	Quantity       int64     `json:"quantity"`
	SignedQuantity int64     `json:"signed_quantity"`
	ReferenceType  string    `json:"reference_type"`
	ReferenceID    string    `json:"reference_id,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	CreatedBy      string    `json:"created_by"`
}

// StockMovementListResponse lista paginada de movimientos.
type StockMovementListResponse struct {
	Items []StockMovementResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// ReconcileResponse comparación entre el saldo y la suma de movimientos.
type ReconcileResponse struct {
	ProductID        string `json:"product_id"`
	WarehouseID      string `json:"warehouse_id"`
	QuantityOnHand   int64  `json:"quantity_on_hand"`
	ReplayedQuantity int64  `json:"replayed_quantity"`
	Consistent       bool   `json:"consistent"`
}

// ReorderSuggestionDTO sugerencia de reposición para un producto en una bodega.
// UnitPrice y EstimatedCost son nulos cuando no hay historial de precios.
type ReorderSuggestionDTO struct {
	ProductID         string           `json:"product_id"`
	SKU               string           `json:"sku"`
	ProductName       string           `json:"product_name"`
	WarehouseID       string           `json:"warehouse_id"`
	CurrentStock      int64            `json:"current_stock"`
	ReorderPoint      int64            `json:"reorder_point"`
	ReorderQuantity   int64            `json:"reorder_quantity"`
	SuggestedQuantity int64            `json:"suggested_quantity"`
	Urgency           int64            `json:"urgency"`
	SupplierID        string           `json:"preferred_supplier_id,omitempty"`
	SupplierName      string           `json:"preferred_supplier_name,omitempty"`
	UnitPrice         *decimal.Decimal `json:"unit_price"`
	EstimatedCost     *decimal.Decimal `json:"estimated_cost"`
}

// ReorderSuggestionListResponse lista de sugerencias con el costo total de las que tienen precio.
type ReorderSuggestionListResponse struct {
	Items              []ReorderSuggestionDTO `json:"items"`
	TotalEstimatedCost decimal.Decimal        `json:"total_estimated_cost"`
	UnpricedCount      int                    `json:"unpriced_count"`
}
