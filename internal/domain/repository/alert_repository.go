package repository

import (
	"context"

	"github.com/jhoicas/procurement-api/internal/domain/entity"
)

// AlertFilter filtros de listado de alertas (vacío = sin filtro).
type AlertFilter struct {
	AlertType     string
	Severity      string
	Priority      string
	Status        string
	ReferenceType string
	ReferenceID   string
}

// AlertCounts conteos agregados para el dashboard.
type AlertCounts struct {
	ByStatus   map[string]int
	ByType     map[string]int
	BySeverity map[string]int
}

// AlertRepository puerto de persistencia de alertas.
type AlertRepository interface {
	// Create devuelve domain.ErrDuplicate si ya existe una alerta ACTIVE con la misma clave.
	Create(ctx context.Context, alert *entity.Alert) error
	GetByID(ctx context.Context, id string) (*entity.Alert, error)
	// FindOpen alerta ACTIVE o ACKNOWLEDGED para (tipo, referencia), nil si no hay.
	FindOpen(ctx context.Context, alertType, referenceType, referenceID string) (*entity.Alert, error)
	Update(ctx context.Context, alert *entity.Alert) error
	List(ctx context.Context, filter AlertFilter, limit, offset int) ([]*entity.Alert, error)
	// ListOpenByTypes alertas no terminales de los tipos dados.
	ListOpenByTypes(ctx context.Context, alertTypes []string) ([]*entity.Alert, error)
	Counts(ctx context.Context) (*AlertCounts, error)
}
