package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrderItemRequest línea de una OC al crear o editar.
type PurchaseOrderItemRequest struct {
	ProductID       string          `json:"product_id" validate:"required"`
	QuantityOrdered int64           `json:"quantity_ordered" validate:"required,gt=0"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Notes           string          `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// CreatePurchaseOrderRequest body para POST /api/purchase-orders.
// OrderDate vacío toma la fecha actual.
type CreatePurchaseOrderRequest struct {
	SupplierID           string                     `json:"supplier_id" validate:"required"`
	WarehouseID          string                     `json:"warehouse_id" validate:"required"`
	OrderDate            *time.Time                 `json:"order_date,omitempty"`
	ExpectedDeliveryDate *time.Time                 `json:"expected_delivery_date,omitempty"`
	Notes                string                     `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items                []PurchaseOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdatePurchaseOrderRequest reemplaza cabecera y líneas de una OC en DRAFT.
type UpdatePurchaseOrderRequest = CreatePurchaseOrderRequest

// UpdatePurchaseOrderStatusRequest body para PATCH /api/purchase-orders/:id/status.
type UpdatePurchaseOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT SUBMITTED APPROVED ORDERED PARTIALLY_RECEIVED FULLY_RECEIVED CANCELLED CLOSED"`
	Notes  string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ReceiveItemRequest cantidad recibida para una línea.
type ReceiveItemRequest struct {
	ItemID           string `json:"item_id" validate:"required"`
	QuantityReceived int64  `json:"quantity_received" validate:"required,gt=0"`
	Notes            string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// ReceivePurchaseOrderRequest body para POST /api/purchase-orders/:id/receive.
// ReceiptID opcional: reintentar con el mismo valor no vuelve a acreditar stock.
type ReceivePurchaseOrderRequest struct {
	ReceiptID     string               `json:"receipt_id,omitempty" validate:"omitempty,max=80"`
	ReceivedItems []ReceiveItemRequest `json:"received_items" validate:"required,min=1,dive"`
}

// PurchaseOrderItemResponse línea de una OC.
type PurchaseOrderItemResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	QuantityOrdered   int64           `json:"quantity_ordered"`
	QuantityReceived  int64           `json:"quantity_received"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	PartiallyReceived bool            `json:"partially_received"`
	FullyReceived     bool            `json:"fully_received"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Notes             string          `json:"notes,omitempty"`
}

// PurchaseOrderResponse salida de una OC.
type PurchaseOrderResponse struct {
	ID                   string                      `json:"id"`
	PONumber             string                      `json:"po_number"`
	SupplierID           string                      `json:"supplier_id"`
	WarehouseID          string                      `json:"warehouse_id"`
	OrderDate            time.Time                   `json:"order_date"`
	ExpectedDeliveryDate *time.Time                  `json:"expected_delivery_date,omitempty"`
	Status               string                      `json:"status"`
	TotalAmount          decimal.Decimal             `json:"total_amount"`
	Notes                string                      `json:"notes,omitempty"`
	CreatedBy            string                      `json:"created_by"`
	UpdatedBy            string                      `json:"updated_by,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
	Items                []PurchaseOrderItemResponse `json:"items"`
}

// PurchaseOrderListResponse lista paginada de OC.
type PurchaseOrderListResponse struct {
	Items []PurchaseOrderResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// PurchaseOrderCountsResponse conteo de OC por estado.
type PurchaseOrderCountsResponse struct {
	ByStatus map[string]int `json:"by_status"`
	Total    int            `json:"total"`
}

// ClosePurchaseOrderRequest body opcional para POST /api/purchase-orders/:id/close.
type ClosePurchaseOrderRequest struct {
	Notes string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}
