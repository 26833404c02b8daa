package dto

import "time"

// UpdateAlertStatusRequest body para PATCH /api/alerts/:id/status.
type UpdateAlertStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE ACKNOWLEDGED RESOLVED DISMISSED"`
	Notes  string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// AlertResponse alerta para el dashboard.
type AlertResponse struct {
	ID             string     `json:"id"`
	AlertType      string     `json:"alert_type"`
	Severity       string     `json:"severity"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	ReferenceType  string     `json:"reference_type"`
	ReferenceID    string     `json:"reference_id"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Notes          string     `json:"notes,omitempty"`
	TriggeredAt    time.Time  `json:"triggered_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
	UpdatedBy      string     `json:"updated_by,omitempty"`
}

// AlertListResponse lista paginada de alertas.
type AlertListResponse struct {
	Items []AlertResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// AlertCountsResponse conteos por estado, tipo y severidad.
type AlertCountsResponse struct {
	ByStatus   map[string]int `json:"by_status"`
	ByType     map[string]int `json:"by_type"`
	BySeverity map[string]int `json:"by_severity"`
	Active     int            `json:"active"`
}

// AlertScanResponse resultado de una evaluación completa.
type AlertScanResponse struct {
	Evaluated int `json:"evaluated"`
	Raised    int `json:"raised"`
	Updated   int `json:"updated"`
	Resolved  int `json:"resolved"`
}
