package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

// ── Saldos ────────────────────────────────────────────────────────────────────

type InventoryRepo struct{ s *Store }

var _ repository.InventoryRecordRepository = (*InventoryRepo)(nil)

func (r *InventoryRepo) Get(_ context.Context, productID, warehouseID string) (*entity.InventoryRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.t.inventory[invKey{productID, warehouseID}]
	if !ok {
		return entity.NewEmptyRecord(productID, warehouseID), nil
	}
	c := *rec
	return &c, nil
}

// GetForUpdate crea la fila en cero si falta. El bloqueo lo da el mutex de TxRunner.
func (r *InventoryRepo) GetForUpdate(_ context.Context, productID, warehouseID string) (*entity.InventoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := invKey{productID, warehouseID}
	rec, ok := r.s.t.inventory[k]
	if !ok {
		rec = entity.NewEmptyRecord(productID, warehouseID)
		r.s.t.inventory[k] = rec
	}
	c := *rec
	return &c, nil
}

func (r *InventoryRepo) Upsert(_ context.Context, rec *entity.InventoryRecord) error {
	if !rec.Valid() {
		return domain.Validation("saldo inválido para %s en %s", rec.ProductID, rec.WarehouseID)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *rec
	r.s.t.inventory[invKey{rec.ProductID, rec.WarehouseID}] = &c
	return nil
}

func (r *InventoryRepo) positions(f repository.InventoryFilter, keep func(repository.StockPosition) bool) []repository.StockPosition {
	out := make([]repository.StockPosition, 0)
	for k, rec := range r.s.t.inventory {
		if f.WarehouseID != "" && k.warehouseID != f.WarehouseID {
			continue
		}
		if f.ProductID != "" && k.productID != f.ProductID {
			continue
		}
		p, ok := r.s.t.products[k.productID]
		if !ok {
			continue
		}
		pos := repository.StockPosition{Record: *rec, Product: *p}
		if keep != nil && !keep(pos) {
			continue
		}
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Product.SKU != out[j].Product.SKU {
			return out[i].Product.SKU < out[j].Product.SKU
		}
		return out[i].Record.WarehouseID < out[j].Record.WarehouseID
	})
	return out
}

func (r *InventoryRepo) List(_ context.Context, f repository.InventoryFilter, limit, offset int) ([]repository.StockPosition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return page(r.positions(f, nil), limit, offset), nil
}

func (r *InventoryRepo) ListAtOrBelowReorderPoint(_ context.Context, f repository.InventoryFilter) ([]repository.StockPosition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.positions(f, func(p repository.StockPosition) bool {
		return p.Product.Active && p.Record.Available() <= p.Product.ReorderPoint
	}), nil
}

// ── Movimientos ───────────────────────────────────────────────────────────────

type MovementRepo struct{ s *Store }

var _ repository.StockMovementRepository = (*MovementRepo)(nil)

func (r *MovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.ReferenceID != "" && r.existsLocked(m.ProductID, m.WarehouseID, m.ReferenceType, m.ReferenceID) {
		return domain.DuplicateReference("referencia %s/%s ya aplicada", m.ReferenceType, m.ReferenceID)
	}
	c := *m
	r.s.t.movements = append(r.s.t.movements, &c)
	return nil
}

func (r *MovementRepo) existsLocked(productID, warehouseID, refType, refID string) bool {
	for _, m := range r.s.t.movements {
		if m.ProductID == productID && m.WarehouseID == warehouseID && m.ReferenceType == refType && m.ReferenceID == refID {
			return true
		}
	}
	return false
}

func (r *MovementRepo) ExistsReference(_ context.Context, productID, warehouseID, refType, refID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.existsLocked(productID, warehouseID, refType, refID), nil
}

func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter, limit, offset int) ([]*entity.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.StockMovement, 0)
	for i := len(r.s.t.movements) - 1; i >= 0; i-- {
		m := r.s.t.movements[i]
		switch {
		case f.ProductID != "" && m.ProductID != f.ProductID,
			f.WarehouseID != "" && m.WarehouseID != f.WarehouseID,
			f.Type != "" && m.Type != f.Type,
			f.From != nil && m.CreatedAt.Before(*f.From),
			f.To != nil && m.CreatedAt.After(*f.To):
			continue
		}
		c := *m
		out = append(out, &c)
	}
	return page(out, limit, offset), nil
}

func (r *MovementRepo) SumSigned(_ context.Context, productID, warehouseID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var sum int64
	for _, m := range r.s.t.movements {
		if m.ProductID == productID && m.WarehouseID == warehouseID {
			sum += m.SignedQuantity()
		}
	}
	return sum, nil
}
