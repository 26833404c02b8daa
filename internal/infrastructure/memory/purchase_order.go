package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

type PurchaseOrderRepo struct{ s *Store }

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

func (r *PurchaseOrderRepo) Create(_ context.Context, po *entity.PurchaseOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.orders {
		if x.PONumber == po.PONumber {
			return domain.ErrDuplicate
		}
	}
	r.s.t.orders[po.ID] = copyOrder(po)
	return nil
}

func (r *PurchaseOrderRepo) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyOrder(r.s.t.orders[id]), nil
}

// GetForUpdate igual que GetByID; el bloqueo lo da el mutex de TxRunner.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.GetByID(ctx, id)
}

// Update actualiza solo la cabecera; las líneas se escriben con ReplaceItems/AddItem/UpdateItem.
func (r *PurchaseOrderRepo) Update(_ context.Context, po *entity.PurchaseOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.orders[po.ID]
	if !ok {
		return domain.ErrNotFound
	}
	c := copyOrder(po)
	c.Items = cur.Items
	r.s.t.orders[po.ID] = c
	return nil
}

func (r *PurchaseOrderRepo) ReplaceItems(_ context.Context, poID string, items []*entity.PurchaseOrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.orders[poID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Items = make([]*entity.PurchaseOrderItem, 0, len(items))
	for _, it := range items {
		x := *it
		cur.Items = append(cur.Items, &x)
	}
	return nil
}

func (r *PurchaseOrderRepo) AddItem(_ context.Context, item *entity.PurchaseOrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.orders[item.PurchaseOrderID]
	if !ok {
		return domain.ErrNotFound
	}
	x := *item
	cur.Items = append(cur.Items, &x)
	return nil
}

func (r *PurchaseOrderRepo) UpdateItem(_ context.Context, item *entity.PurchaseOrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.orders[item.PurchaseOrderID]
	if !ok {
		return domain.ErrNotFound
	}
	for i, it := range cur.Items {
		if it.ID == item.ID {
			x := *item
			cur.Items[i] = &x
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *PurchaseOrderRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.t.orders, id)
	return nil
}

// sortedOrders OC más recientes primero.
func (r *PurchaseOrderRepo) sortedOrders(keep func(*entity.PurchaseOrder) bool) []*entity.PurchaseOrder {
	out := make([]*entity.PurchaseOrder, 0)
	for _, po := range r.s.t.orders {
		if keep(po) {
			out = append(out, copyOrder(po))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PONumber > out[j].PONumber
	})
	return out
}

func (r *PurchaseOrderRepo) List(_ context.Context, f repository.PurchaseOrderFilter, limit, offset int) ([]*entity.PurchaseOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.sortedOrders(func(po *entity.PurchaseOrder) bool {
		return (f.Status == "" || po.Status == f.Status) &&
			(f.SupplierID == "" || po.SupplierID == f.SupplierID) &&
			(f.WarehouseID == "" || po.WarehouseID == f.WarehouseID)
	})
	return page(out, limit, offset), nil
}

func (r *PurchaseOrderRepo) CountByStatus(_ context.Context) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := map[string]int{}
	for _, po := range r.s.t.orders {
		out[po.Status]++
	}
	return out, nil
}

func (r *PurchaseOrderRepo) NextSequence(_ context.Context, day time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := day.Format("20060102")
	r.s.t.poSeq[k]++
	return r.s.t.poSeq[k], nil
}

// LockSupplierWarehouse no hace nada: TxRunner ya serializa todas las transacciones.
func (r *PurchaseOrderRepo) LockSupplierWarehouse(context.Context, string, string) error {
	return nil
}

func (r *PurchaseOrderRepo) FindOpenDraft(_ context.Context, supplierID, warehouseID string) (*entity.PurchaseOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.sortedOrders(func(po *entity.PurchaseOrder) bool {
		return po.Status == entity.POStatusDraft && po.SupplierID == supplierID && po.WarehouseID == warehouseID
	})
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *PurchaseOrderRepo) HasPendingOrderFor(_ context.Context, supplierID, warehouseID, productID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, po := range r.s.t.orders {
		if po.SupplierID != supplierID || po.WarehouseID != warehouseID {
			continue
		}
		if !entity.IsOpenPOStatus(po.Status) {
			continue
		}
		if po.ItemForProduct(productID) != nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *PurchaseOrderRepo) ListOpenWithDeliveryDate(_ context.Context) ([]*entity.PurchaseOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sortedOrders(func(po *entity.PurchaseOrder) bool {
		return entity.IsOpenPOStatus(po.Status) && po.ExpectedDeliveryDate != nil
	}), nil
}

// SupplierPrices último precio de cada proveedor por producto, tomado de sus OC ya colocadas.
func (r *PurchaseOrderRepo) SupplierPrices(_ context.Context, productIDs []string) (map[string][]entity.SupplierPrice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	wanted := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	type key struct{ productID, supplierID string }
	latest := map[key]entity.SupplierPrice{}
	for _, po := range r.s.t.orders {
		if !entity.IsPricedPOStatus(po.Status) {
			continue
		}
		sp := r.s.t.suppliers[po.SupplierID]
		for _, it := range po.Items {
			if !wanted[it.ProductID] {
				continue
			}
			k := key{it.ProductID, po.SupplierID}
			if cur, ok := latest[k]; ok && !po.OrderDate.After(cur.LastOrderAt) {
				continue
			}
			price := entity.SupplierPrice{
				SupplierID:  po.SupplierID,
				ProductID:   it.ProductID,
				UnitPrice:   it.UnitPrice,
				LastOrderAt: po.OrderDate,
			}
			if sp != nil {
				price.SupplierName = sp.Name
				price.SupplierActive = sp.Active
			}
			latest[k] = price
		}
	}
	out := make(map[string][]entity.SupplierPrice, len(productIDs))
	for k, p := range latest {
		out[k.productID] = append(out[k.productID], p)
	}
	for id := range out {
		list := out[id]
		sort.Slice(list, func(i, j int) bool { return list[i].SupplierID < list[j].SupplierID })
	}
	return out, nil
}
