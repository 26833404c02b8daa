package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
type DashboardSummaryDTO struct {
	Products      int `json:"products"`     // productos activos
	LowStock      int `json:"low_stock"`    // saldos con 0 < disponible ≤ punto de reorden
	OutOfStock    int `json:"out_of_stock"` // saldos con disponible ≤ 0
	OpenOrders    int `json:"open_orders"`  // OC que todavía esperan mercancía
	OverdueOrders int `json:"overdue_orders"`
	ActiveAlerts  int `json:"active_alerts"`

	OrdersByStatus map[string]int `json:"orders_by_status"`

	// Sugerencias de reposición pendientes y su costo estimado (solo las que tienen precio).
	PendingSuggestions  int                    `json:"pending_suggestions"`
	SuggestionsCost     decimal.Decimal        `json:"suggestions_estimated_cost"`
	UnpricedSuggestions int                    `json:"unpriced_suggestions"`
	TopSuggestions      []ReorderSuggestionDTO `json:"top_suggestions"`

	GeneratedAt time.Time `json:"generated_at"`
}
