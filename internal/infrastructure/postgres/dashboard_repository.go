package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

var _ repository.DashboardRepository = (*DashboardRepo)(nil)

// DashboardRepo consultas agregadas de solo lectura para el resumen operativo.
type DashboardRepo struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository construye el adaptador del dashboard.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepo {
	return &DashboardRepo{pool: pool}
}

func (r *DashboardRepo) CountActiveProducts(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("dashboard.CountActiveProducts: %w", err)
	}
	return n, nil
}

// CountStockByStatus misma regla que entity.StockStatusFor: disponible ≤ 0 agotado, ≤ punto bajo.
func (r *DashboardRepo) CountStockByStatus(ctx context.Context) (*repository.StockStatusCounts, error) {
	const query = `
	SELECT
	    COUNT(*) FILTER (WHERE ir.quantity_on_hand - ir.quantity_reserved <= 0)                  AS out_of_stock,
	    COUNT(*) FILTER (WHERE ir.quantity_on_hand - ir.quantity_reserved > 0
	                       AND ir.quantity_on_hand - ir.quantity_reserved <= p.reorder_point)    AS low_stock,
	    COUNT(*) FILTER (WHERE ir.quantity_on_hand - ir.quantity_reserved > p.reorder_point)     AS in_stock
	FROM inventory_records ir
	JOIN products p ON p.id = ir.product_id
	WHERE p.active`
	c := &repository.StockStatusCounts{}
	if err := r.pool.QueryRow(ctx, query).Scan(&c.OutOfStock, &c.LowStock, &c.InStock); err != nil {
		return nil, fmt.Errorf("dashboard.CountStockByStatus: %w", err)
	}
	return c, nil
}

// CountOverdueOrders OC abiertas cuya fecha esperada es anterior al día de asOf.
func (r *DashboardRepo) CountOverdueOrders(ctx context.Context, asOf time.Time) (int, error) {
	const query = `
	SELECT COUNT(*)
	FROM purchase_orders
	WHERE expected_delivery_date < $1
	  AND status NOT IN ('FULLY_RECEIVED', 'CANCELLED', 'CLOSED')`
	var n int
	if err := r.pool.QueryRow(ctx, query, startOfDay(asOf)).Scan(&n); err != nil {
		return 0, fmt.Errorf("dashboard.CountOverdueOrders: %w", err)
	}
	return n, nil
}
