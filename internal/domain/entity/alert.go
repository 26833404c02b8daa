package entity

import "time"

// Tipos de alerta.
const (
	AlertTypeLowStock             = "LOW_STOCK"
	AlertTypeOutOfStock           = "OUT_OF_STOCK"
	AlertTypePurchaseOrderDue     = "PURCHASE_ORDER_DUE"
	AlertTypePurchaseOrderOverdue = "PURCHASE_ORDER_OVERDUE"
	AlertTypeInventoryAdjustment  = "INVENTORY_ADJUSTMENT"
	AlertTypeSystem               = "SYSTEM_ALERT"
	AlertTypeSupplierPerformance  = "SUPPLIER_PERFORMANCE"
	AlertTypeOverstock            = "OVERSTOCK"
)

// Severidad.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Prioridad.
const (
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Estados de alerta.
const (
	AlertStatusActive       = "ACTIVE"
	AlertStatusAcknowledged = "ACKNOWLEDGED"
	AlertStatusResolved     = "RESOLVED"
	AlertStatusDismissed    = "DISMISSED"
)

// Entidad que disparó la alerta.
const (
	AlertRefInventory     = "INVENTORY"
	AlertRefPurchaseOrder = "PURCHASE_ORDER"
	AlertRefProduct       = "PRODUCT"
	AlertRefWarehouse     = "WAREHOUSE"
	AlertRefSupplier      = "SUPPLIER"
	AlertRefSystem        = "SYSTEM"
)

var alertTransitions = map[string][]string{
	AlertStatusActive:       {AlertStatusAcknowledged, AlertStatusResolved, AlertStatusDismissed},
	AlertStatusAcknowledged: {AlertStatusResolved, AlertStatusDismissed},
}

// CanTransitionAlert indica si from → to es legal. RESOLVED y DISMISSED son terminales.
func CanTransitionAlert(from, to string) bool {
	for _, next := range alertTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidAlertStatus(s string) bool {
	switch s {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved, AlertStatusDismissed:
		return true
	}
	return false
}

func ValidAlertType(s string) bool {
	switch s {
	case AlertTypeLowStock, AlertTypeOutOfStock, AlertTypePurchaseOrderDue,
		AlertTypePurchaseOrderOverdue, AlertTypeInventoryAdjustment, AlertTypeSystem,
		AlertTypeSupplierPerformance, AlertTypeOverstock:
		return true
	}
	return false
}

func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func ValidPriority(s string) bool {
	switch s {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// InventoryAlertRef referencia de una alerta de stock: "<productID>:<warehouseID>".
func InventoryAlertRef(productID, warehouseID string) string {
	return productID + ":" + warehouseID
}

// Alert notificación para el dashboard. Solo el emisor de alertas la modifica.
type Alert struct {
	ID             string
	AlertType      string
	Severity       string
	Priority       string
	Status         string
	ReferenceType  string
	ReferenceID    string
	Title          string
	Message        string
	Notes          string
	TriggeredAt    time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	UpdatedAt      time.Time
	UpdatedBy      string
}
