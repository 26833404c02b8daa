package repository

import (
	"context"
	"time"

	"github.com/jhoicas/procurement-api/internal/domain/entity"
)

// MovementFilter filtros para consultar el ledger.
type MovementFilter struct {
	ProductID   string
	WarehouseID string
	Type        string
	From, To    *time.Time
}

// StockMovementRepository puerto del ledger append-only.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// ExistsReference indica si ya se aplicó un movimiento con esa referencia al par producto+bodega.
	ExistsReference(ctx context.Context, productID, warehouseID, referenceType, referenceID string) (bool, error)
	List(ctx context.Context, filter MovementFilter, limit, offset int) ([]*entity.StockMovement, error)
	// SumSigned reconstruye el on-hand sumando los movimientos con signo.
	SumSigned(ctx context.Context, productID, warehouseID string) (int64, error)
}
