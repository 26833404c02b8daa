package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

const poColumns = `id, po_number, supplier_id, warehouse_id, order_date, expected_delivery_date, status,
		total_amount, notes, created_by, updated_by, created_at, updated_at`

const poItemColumns = `id, purchase_order_id, product_id, quantity_ordered, quantity_received,
		unit_price, total_price, notes`

// PurchaseOrderRepo OC y líneas sobre PostgreSQL (usable con pool o tx).
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

// Create persiste cabecera y líneas. Llamar dentro de una tx para que sea atómico.
func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (` + poColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		po.ID, po.PONumber, po.SupplierID, po.WarehouseID, po.OrderDate, po.ExpectedDeliveryDate, po.Status,
		po.TotalAmount, po.Notes, po.CreatedBy, po.UpdatedBy, po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return domain.NotFound("proveedor %s o bodega %s no existe", po.SupplierID, po.WarehouseID)
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	for _, it := range po.Items {
		if err := r.AddItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

// GetByID carga cabecera y líneas.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera: transiciones y recepciones de la misma OC quedan en fila.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *PurchaseOrderRepo) getOne(ctx context.Context, query, id string) (*entity.PurchaseOrder, error) {
	po, err := scanPurchaseOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	if err := r.attachItems(ctx, []*entity.PurchaseOrder{po}); err != nil {
		return nil, err
	}
	return po, nil
}

// Update actualiza la cabecera; las líneas se escriben con ReplaceItems/AddItem/UpdateItem.
func (r *PurchaseOrderRepo) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		UPDATE purchase_orders
		SET supplier_id = $2, warehouse_id = $3, order_date = $4, expected_delivery_date = $5,
		    status = $6, total_amount = $7, notes = $8, updated_by = $9, updated_at = $10
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		po.ID, po.SupplierID, po.WarehouseID, po.OrderDate, po.ExpectedDeliveryDate,
		po.Status, po.TotalAmount, po.Notes, po.UpdatedBy, po.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NotFound("proveedor %s o bodega %s no existe", po.SupplierID, po.WarehouseID)
		}
		return fmt.Errorf("update purchase order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceItems borra y reescribe todas las líneas de la OC.
func (r *PurchaseOrderRepo) ReplaceItems(ctx context.Context, poID string, items []*entity.PurchaseOrderItem) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM purchase_order_items WHERE purchase_order_id = $1`, poID); err != nil {
		return fmt.Errorf("delete purchase order items: %w", err)
	}
	for _, it := range items {
		it.PurchaseOrderID = poID
		if err := r.AddItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r *PurchaseOrderRepo) AddItem(ctx context.Context, it *entity.PurchaseOrderItem) error {
	query := `INSERT INTO purchase_order_items (` + poItemColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		it.ID, it.PurchaseOrderID, it.ProductID, it.QuantityOrdered, it.QuantityReceived,
		it.UnitPrice, it.TotalPrice, it.Notes,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NotFound("producto %s no existe", it.ProductID)
		}
		return fmt.Errorf("insert purchase order item: %w", err)
	}
	return nil
}

// UpdateItem cantidades, precio y notas de una línea existente.
func (r *PurchaseOrderRepo) UpdateItem(ctx context.Context, it *entity.PurchaseOrderItem) error {
	query := `
		UPDATE purchase_order_items
		SET quantity_ordered = $2, quantity_received = $3, unit_price = $4, total_price = $5, notes = $6
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		it.ID, it.QuantityOrdered, it.QuantityReceived, it.UnitPrice, it.TotalPrice, it.Notes,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.OverReceipt("línea %s: recibido %d excede lo ordenado %d", it.ID, it.QuantityReceived, it.QuantityOrdered)
		}
		return fmt.Errorf("update purchase order item: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la OC; las líneas caen por ON DELETE CASCADE.
func (r *PurchaseOrderRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete purchase order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List OC más recientes primero, con líneas.
func (r *PurchaseOrderRepo) List(ctx context.Context, f repository.PurchaseOrderFilter, limit, offset int) ([]*entity.PurchaseOrder, error) {
	query := `
		SELECT ` + poColumns + `
		FROM purchase_orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR supplier_id::text = $2)
		  AND ($3 = '' OR warehouse_id::text = $3)
		ORDER BY created_at DESC, po_number DESC
		LIMIT $4 OFFSET $5`
	return r.queryOrders(ctx, query, f.Status, f.SupplierID, f.WarehouseID, limit, offset)
}

func (r *PurchaseOrderRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.q.Query(ctx, `SELECT status, COUNT(*) FROM purchase_orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count purchase orders: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan purchase order count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

// NextSequence incrementa atómicamente el consecutivo del día (UTC).
func (r *PurchaseOrderRepo) NextSequence(ctx context.Context, day time.Time) (int, error) {
	const query = `
		INSERT INTO purchase_order_sequences (day, last_value) VALUES ($1::date, 1)
		ON CONFLICT (day) DO UPDATE SET last_value = purchase_order_sequences.last_value + 1
		RETURNING last_value`
	var seq int
	if err := r.q.QueryRow(ctx, query, startOfDay(day)).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next purchase order sequence: %w", err)
	}
	return seq, nil
}

// LockSupplierWarehouse advisory lock de transacción: se libera solo en Commit/Rollback.
// Fuera de una tx no serializa nada.
func (r *PurchaseOrderRepo) LockSupplierWarehouse(ctx context.Context, supplierID, warehouseID string) error {
	key := "po:" + supplierID + ":" + warehouseID
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock supplier warehouse: %w", err)
	}
	return nil
}

func (r *PurchaseOrderRepo) FindOpenDraft(ctx context.Context, supplierID, warehouseID string) (*entity.PurchaseOrder, error) {
	query := `
		SELECT ` + poColumns + `
		FROM purchase_orders
		WHERE status = 'DRAFT' AND supplier_id = $1 AND warehouse_id = $2
		ORDER BY created_at DESC, po_number DESC
		LIMIT 1`
	list, err := r.queryOrders(ctx, query, supplierID, warehouseID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *PurchaseOrderRepo) HasPendingOrderFor(ctx context.Context, supplierID, warehouseID, productID string) (bool, error) {
	const query = `
		SELECT EXISTS (
		    SELECT 1
		    FROM purchase_orders po
		    JOIN purchase_order_items i ON i.purchase_order_id = po.id
		    WHERE po.supplier_id = $1 AND po.warehouse_id = $2 AND i.product_id = $3
		      AND po.status NOT IN ('FULLY_RECEIVED', 'CANCELLED', 'CLOSED'))`
	var exists bool
	if err := r.q.QueryRow(ctx, query, supplierID, warehouseID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pending order for product: %w", err)
	}
	return exists, nil
}

func (r *PurchaseOrderRepo) ListOpenWithDeliveryDate(ctx context.Context) ([]*entity.PurchaseOrder, error) {
	query := `
		SELECT ` + poColumns + `
		FROM purchase_orders
		WHERE expected_delivery_date IS NOT NULL
		  AND status NOT IN ('FULLY_RECEIVED', 'CANCELLED', 'CLOSED')
		ORDER BY created_at DESC, po_number DESC`
	return r.queryOrders(ctx, query)
}

// SupplierPrices último precio por producto+proveedor según las OC ya colocadas al proveedor.
func (r *PurchaseOrderRepo) SupplierPrices(ctx context.Context, productIDs []string) (map[string][]entity.SupplierPrice, error) {
	out := make(map[string][]entity.SupplierPrice, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	const query = `
		SELECT product_id, supplier_id, supplier_name, supplier_active, unit_price, order_date
		FROM (
		    SELECT DISTINCT ON (i.product_id, po.supplier_id)
		           i.product_id::text AS product_id, po.supplier_id::text AS supplier_id,
		           s.name AS supplier_name, s.active AS supplier_active, i.unit_price, po.order_date
		    FROM purchase_order_items i
		    JOIN purchase_orders po ON po.id = i.purchase_order_id
		    JOIN suppliers s ON s.id = po.supplier_id
		    WHERE i.product_id::text = ANY($1) AND po.status IN ('ORDERED', 'PARTIALLY_RECEIVED', 'FULLY_RECEIVED', 'CLOSED')
		    ORDER BY i.product_id, po.supplier_id, po.order_date DESC, po.created_at DESC
		) latest
		ORDER BY product_id, supplier_id`
	rows, err := r.q.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("supplier prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sp entity.SupplierPrice
		if err := rows.Scan(&sp.ProductID, &sp.SupplierID, &sp.SupplierName, &sp.SupplierActive, &sp.UnitPrice, &sp.LastOrderAt); err != nil {
			return nil, fmt.Errorf("scan supplier price: %w", err)
		}
		out[sp.ProductID] = append(out[sp.ProductID], sp)
	}
	return out, rows.Err()
}

func (r *PurchaseOrderRepo) queryOrders(ctx context.Context, query string, args ...any) ([]*entity.PurchaseOrder, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	list := make([]*entity.PurchaseOrder, 0)
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		list = append(list, po)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	if err := r.attachItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// attachItems carga las líneas de varias OC en una sola consulta.
func (r *PurchaseOrderRepo) attachItems(ctx context.Context, orders []*entity.PurchaseOrder) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*entity.PurchaseOrder, len(orders))
	ids := make([]string, 0, len(orders))
	for _, po := range orders {
		po.Items = make([]*entity.PurchaseOrderItem, 0)
		byID[po.ID] = po
		ids = append(ids, po.ID)
	}
	query := `
		SELECT ` + poItemColumns + `
		FROM purchase_order_items
		WHERE purchase_order_id::text = ANY($1)
		ORDER BY purchase_order_id, line_no`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list purchase order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.PurchaseOrderItem
		if err := rows.Scan(
			&it.ID, &it.PurchaseOrderID, &it.ProductID, &it.QuantityOrdered, &it.QuantityReceived,
			&it.UnitPrice, &it.TotalPrice, &it.Notes,
		); err != nil {
			return fmt.Errorf("scan purchase order item: %w", err)
		}
		if po := byID[it.PurchaseOrderID]; po != nil {
			po.Items = append(po.Items, &it)
		}
	}
	return rows.Err()
}

func scanPurchaseOrder(row pgxScanner) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := row.Scan(
		&po.ID, &po.PONumber, &po.SupplierID, &po.WarehouseID, &po.OrderDate, &po.ExpectedDeliveryDate, &po.Status,
		&po.TotalAmount, &po.Notes, &po.CreatedBy, &po.UpdatedBy, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &po, nil
}
