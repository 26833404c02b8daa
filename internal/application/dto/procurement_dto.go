package dto

import "time"

// RunProcurementRequest body opcional para POST /api/procurement/run.
type RunProcurementRequest struct {
	WarehouseID string `json:"warehouse_id,omitempty"`
}

// CycleOrderDTO OC tocada por el ciclo.
type CycleOrderDTO struct {
	PurchaseOrderID string `json:"purchase_order_id"`
	PONumber        string `json:"po_number"`
	SupplierID      string `json:"supplier_id"`
	WarehouseID     string `json:"warehouse_id"`
	ProductID       string `json:"product_id"`
	Quantity        int64  `json:"quantity"`
}

// CycleSkipDTO sugerencia omitida y el motivo.
type CycleSkipDTO struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Reason      string `json:"reason"`
}

// CycleFailureDTO sugerencia que falló; el ciclo continúa con las demás.
type CycleFailureDTO struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

// CycleReportDTO resultado de un ciclo de compras automáticas.
type CycleReportDTO struct {
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Suggestions int               `json:"suggestions"`
	Created     []CycleOrderDTO   `json:"created"`
	Appended    []CycleOrderDTO   `json:"appended"`
	Submitted   []string          `json:"submitted"`
	Skipped     []CycleSkipDTO    `json:"skipped"`
	Failed      []CycleFailureDTO `json:"failed"`
}
