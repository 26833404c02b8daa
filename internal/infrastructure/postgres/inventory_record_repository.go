package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

var _ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)

// InventoryRecordRepo saldos por producto+bodega (tabla inventory_records).
type InventoryRecordRepo struct {
	q Querier
}

// NewInventoryRecordRepository construye el adaptador. Acepta pool o tx (Querier).
func NewInventoryRecordRepository(q Querier) *InventoryRecordRepo {
	return &InventoryRecordRepo{q: q}
}

// Get obtiene el saldo; sin fila devuelve el registro en cero.
func (r *InventoryRecordRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.InventoryRecord, error) {
	query := `
		SELECT product_id, warehouse_id, quantity_on_hand, quantity_reserved, last_updated_at
		FROM inventory_records WHERE product_id = $1 AND warehouse_id = $2`
	rec, err := scanInventoryRecord(r.q.QueryRow(ctx, query, productID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewEmptyRecord(productID, warehouseID), nil
		}
		return nil, fmt.Errorf("get inventory record: %w", err)
	}
	return rec, nil
}

// GetForUpdate crea la fila en cero si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
// Así dos primeras entradas concurrentes al mismo par quedan serializadas.
func (r *InventoryRecordRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.InventoryRecord, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_records (product_id, warehouse_id, quantity_on_hand, quantity_reserved, last_updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (product_id, warehouse_id) DO NOTHING`,
		productID, warehouseID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.NotFound("producto %s o bodega %s no existe", productID, warehouseID)
		}
		return nil, fmt.Errorf("ensure inventory record: %w", err)
	}
	query := `
		SELECT product_id, warehouse_id, quantity_on_hand, quantity_reserved, last_updated_at
		FROM inventory_records WHERE product_id = $1 AND warehouse_id = $2
		FOR UPDATE`
	rec, err := scanInventoryRecord(r.q.QueryRow(ctx, query, productID, warehouseID))
	if err != nil {
		return nil, fmt.Errorf("get inventory record for update: %w", err)
	}
	return rec, nil
}

// Upsert inserta o actualiza las cantidades del par producto+bodega.
func (r *InventoryRecordRepo) Upsert(ctx context.Context, rec *entity.InventoryRecord) error {
	if !rec.Valid() {
		return domain.Validation("saldo inválido: on_hand=%d reserved=%d", rec.QuantityOnHand, rec.QuantityReserved)
	}
	query := `
		INSERT INTO inventory_records (product_id, warehouse_id, quantity_on_hand, quantity_reserved, last_updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity_on_hand = EXCLUDED.quantity_on_hand,
		              quantity_reserved = EXCLUDED.quantity_reserved,
		              last_updated_at = now()`
	_, err := r.q.Exec(ctx, query, rec.ProductID, rec.WarehouseID, rec.QuantityOnHand, rec.QuantityReserved)
	if err != nil {
		if isCheckViolation(err) {
			return domain.Validation("saldo inválido: on_hand=%d reserved=%d", rec.QuantityOnHand, rec.QuantityReserved)
		}
		return fmt.Errorf("upsert inventory record: %w", err)
	}
	return nil
}

const stockPositionSelect = `
		SELECT ir.product_id, ir.warehouse_id, ir.quantity_on_hand, ir.quantity_reserved, ir.last_updated_at,
		       p.id, p.sku, p.name, p.description, p.category_id, p.unit_of_measure, p.cost_price, p.selling_price,
		       p.reorder_point, p.reorder_quantity, p.active, p.created_at, p.updated_at
		FROM inventory_records ir
		JOIN products p ON p.id = ir.product_id
		WHERE ($1 = '' OR ir.warehouse_id::text = $1)
		  AND ($2 = '' OR ir.product_id::text = $2)`

// List saldos con datos del producto, ordenados por SKU y bodega.
func (r *InventoryRecordRepo) List(ctx context.Context, f repository.InventoryFilter, limit, offset int) ([]repository.StockPosition, error) {
	query := stockPositionSelect + `
		ORDER BY p.sku, ir.warehouse_id
		LIMIT $3 OFFSET $4`
	return r.queryPositions(ctx, query, f.WarehouseID, f.ProductID, limit, offset)
}

// ListAtOrBelowReorderPoint saldos de productos activos con disponible ≤ punto de reorden.
func (r *InventoryRecordRepo) ListAtOrBelowReorderPoint(ctx context.Context, f repository.InventoryFilter) ([]repository.StockPosition, error) {
	query := stockPositionSelect + `
		  AND p.active
		  AND ir.quantity_on_hand - ir.quantity_reserved <= p.reorder_point
		ORDER BY p.sku, ir.warehouse_id`
	return r.queryPositions(ctx, query, f.WarehouseID, f.ProductID)
}

func (r *InventoryRecordRepo) queryPositions(ctx context.Context, query string, args ...any) ([]repository.StockPosition, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock positions: %w", err)
	}
	defer rows.Close()
	list := make([]repository.StockPosition, 0)
	for rows.Next() {
		var pos repository.StockPosition
		var categoryID *string
		rec, p := &pos.Record, &pos.Product
		if err := rows.Scan(
			&rec.ProductID, &rec.WarehouseID, &rec.QuantityOnHand, &rec.QuantityReserved, &rec.LastUpdatedAt,
			&p.ID, &p.SKU, &p.Name, &p.Description, &categoryID, &p.UnitOfMeasure, &p.CostPrice, &p.SellingPrice,
			&p.ReorderPoint, &p.ReorderQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock position: %w", err)
		}
		p.CategoryID = stringOrEmpty(categoryID)
		list = append(list, pos)
	}
	return list, rows.Err()
}

func scanInventoryRecord(row pgxScanner) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	if err := row.Scan(&rec.ProductID, &rec.WarehouseID, &rec.QuantityOnHand, &rec.QuantityReserved, &rec.LastUpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
