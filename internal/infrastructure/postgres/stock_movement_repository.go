package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo ledger append-only de movimientos (tabla stock_movements).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create inserta un movimiento. El índice único parcial sobre la referencia convierte un
// reintento concurrente en DuplicateReference.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, warehouse_id, type, direction, quantity,
		                             reference_type, reference_id, notes, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	direction := m.Direction
	if direction == 0 {
		direction = 1
		if m.Type == entity.MovementTypeOUT {
			direction = -1
		}
	}
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.WarehouseID, m.Type, direction, m.Quantity,
		m.ReferenceType, m.ReferenceID, m.Notes, m.CreatedAt, m.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.DuplicateReference("referencia %s/%s ya aplicada", m.ReferenceType, m.ReferenceID)
		}
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

func (r *StockMovementRepo) ExistsReference(ctx context.Context, productID, warehouseID, refType, refID string) (bool, error) {
	const query = `
		SELECT EXISTS (
		    SELECT 1 FROM stock_movements
		    WHERE product_id = $1 AND warehouse_id = $2 AND reference_type = $3 AND reference_id = $4)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, productID, warehouseID, refType, refID).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists movement reference: %w", err)
	}
	return exists, nil
}

// List movimientos más recientes primero.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter, limit, offset int) ([]*entity.StockMovement, error) {
	query := `
		SELECT id, product_id, warehouse_id, type, direction, quantity, reference_type, reference_id,
		       notes, created_at, created_by
		FROM stock_movements
		WHERE ($1 = '' OR product_id::text = $1)
		  AND ($2 = '' OR warehouse_id::text = $2)
		  AND ($3 = '' OR type = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at <= $5)
		ORDER BY created_at DESC, id DESC
		LIMIT $6 OFFSET $7`
	rows, err := r.q.Query(ctx, query, f.ProductID, f.WarehouseID, f.Type, f.From, f.To, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.StockMovement, 0)
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(
			&m.ID, &m.ProductID, &m.WarehouseID, &m.Type, &m.Direction, &m.Quantity,
			&m.ReferenceType, &m.ReferenceID, &m.Notes, &m.CreatedAt, &m.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// SumSigned reconstruye el on-hand desde el ledger.
func (r *StockMovementRepo) SumSigned(ctx context.Context, productID, warehouseID string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(CASE
		           WHEN type = 'IN'  THEN quantity
		           WHEN type = 'OUT' THEN -quantity
		           ELSE direction * quantity END), 0)::bigint
		FROM stock_movements WHERE product_id = $1 AND warehouse_id = $2`
	var sum int64
	if err := r.q.QueryRow(ctx, query, productID, warehouseID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum stock movements: %w", err)
	}
	return sum, nil
}
