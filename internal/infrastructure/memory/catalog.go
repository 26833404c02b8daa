package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ── Productos ─────────────────────────────────────────────────────────────────

type ProductRepo struct{ s *Store }

var _ repository.ProductRepository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.products {
		if x.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	c := *p
	r.s.t.products[p.ID] = &c
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.t.products[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.t.products {
		if p.SKU == sku {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	for _, x := range r.s.t.products {
		if x.ID != p.ID && x.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	c := *p
	r.s.t.products[p.ID] = &c
	return nil
}

func (r *ProductRepo) UpdateCost(_ context.Context, productID string, cost decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.t.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.CostPrice = cost
	return nil
}

func (r *ProductRepo) List(_ context.Context, f repository.ProductFilter, limit, offset int) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	search := strings.ToLower(f.Search)
	out := make([]*entity.Product, 0)
	for _, p := range r.s.t.products {
		if f.ActiveOnly && !p.Active {
			continue
		}
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.SKU), search) && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return page(out, limit, offset), nil
}

func (r *ProductRepo) IsReferenced(_ context.Context, productID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.productReferenced(productID), nil
}

func (r *ProductRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.products[id]; !ok {
		return domain.ErrNotFound
	}
	if r.s.productReferenced(id) {
		return domain.Conflict("el producto tiene registros asociados")
	}
	delete(r.s.t.products, id)
	return nil
}

func (s *Store) productReferenced(productID string) bool {
	for k := range s.t.inventory {
		if k.productID == productID {
			return true
		}
	}
	for _, po := range s.t.orders {
		if po.ItemForProduct(productID) != nil {
			return true
		}
	}
	return false
}

// ── Categorías ────────────────────────────────────────────────────────────────

type CategoryRepo struct{ s *Store }

var _ repository.CategoryRepository = (*CategoryRepo)(nil)

func (r *CategoryRepo) Create(_ context.Context, c *entity.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.categories {
		if strings.EqualFold(x.Name, c.Name) {
			return domain.ErrDuplicate
		}
	}
	v := *c
	r.s.t.categories[c.ID] = &v
	return nil
}

func (r *CategoryRepo) GetByID(_ context.Context, id string) (*entity.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.t.categories[id]
	if !ok {
		return nil, nil
	}
	v := *c
	return &v, nil
}

func (r *CategoryRepo) GetByName(_ context.Context, name string) (*entity.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.t.categories {
		if strings.EqualFold(c.Name, name) {
			v := *c
			return &v, nil
		}
	}
	return nil, nil
}

func (r *CategoryRepo) Update(_ context.Context, c *entity.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.categories[c.ID]; !ok {
		return domain.ErrNotFound
	}
	v := *c
	r.s.t.categories[c.ID] = &v
	return nil
}

func (r *CategoryRepo) List(_ context.Context, limit, offset int) ([]*entity.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Category, 0, len(r.s.t.categories))
	for _, c := range r.s.t.categories {
		v := *c
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

func (r *CategoryRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.categories[id]; !ok {
		return domain.ErrNotFound
	}
	for _, p := range r.s.t.products {
		if p.CategoryID == id {
			return domain.Conflict("la categoría tiene productos asociados")
		}
	}
	delete(r.s.t.categories, id)
	return nil
}

// ── Bodegas ───────────────────────────────────────────────────────────────────

type WarehouseRepo struct{ s *Store }

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

func (r *WarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.warehouses {
		if x.Code == w.Code {
			return domain.ErrDuplicate
		}
	}
	v := *w
	r.s.t.warehouses[w.ID] = &v
	return nil
}

func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.t.warehouses[id]
	if !ok {
		return nil, nil
	}
	v := *w
	return &v, nil
}

func (r *WarehouseRepo) GetByCode(_ context.Context, code string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.t.warehouses {
		if w.Code == code {
			v := *w
			return &v, nil
		}
	}
	return nil, nil
}

func (r *WarehouseRepo) Update(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.warehouses[w.ID]; !ok {
		return domain.ErrNotFound
	}
	v := *w
	r.s.t.warehouses[w.ID] = &v
	return nil
}

func (r *WarehouseRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Warehouse, 0, len(r.s.t.warehouses))
	for _, w := range r.s.t.warehouses {
		if activeOnly && !w.Active {
			continue
		}
		v := *w
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, limit, offset), nil
}

func (r *WarehouseRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.warehouses[id]; !ok {
		return domain.ErrNotFound
	}
	for k := range r.s.t.inventory {
		if k.warehouseID == id {
			return domain.Conflict("la bodega tiene inventario")
		}
	}
	for _, po := range r.s.t.orders {
		if po.WarehouseID == id {
			return domain.Conflict("la bodega tiene órdenes de compra")
		}
	}
	delete(r.s.t.warehouses, id)
	return nil
}

// ── Proveedores ───────────────────────────────────────────────────────────────

type SupplierRepo struct{ s *Store }

var _ repository.SupplierRepository = (*SupplierRepo)(nil)

func (r *SupplierRepo) Create(_ context.Context, sp *entity.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.suppliers {
		if x.Code == sp.Code {
			return domain.ErrDuplicate
		}
	}
	v := *sp
	r.s.t.suppliers[sp.ID] = &v
	return nil
}

func (r *SupplierRepo) GetByID(_ context.Context, id string) (*entity.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sp, ok := r.s.t.suppliers[id]
	if !ok {
		return nil, nil
	}
	v := *sp
	return &v, nil
}

func (r *SupplierRepo) GetByCode(_ context.Context, code string) (*entity.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sp := range r.s.t.suppliers {
		if sp.Code == code {
			v := *sp
			return &v, nil
		}
	}
	return nil, nil
}

func (r *SupplierRepo) Update(_ context.Context, sp *entity.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.suppliers[sp.ID]; !ok {
		return domain.ErrNotFound
	}
	v := *sp
	r.s.t.suppliers[sp.ID] = &v
	return nil
}

func (r *SupplierRepo) List(_ context.Context, f repository.SupplierFilter, limit, offset int) ([]*entity.Supplier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	search := strings.ToLower(f.Search)
	out := make([]*entity.Supplier, 0)
	for _, sp := range r.s.t.suppliers {
		if f.ActiveOnly && !sp.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(sp.Name), search) && !strings.Contains(strings.ToLower(sp.Code), search) {
			continue
		}
		v := *sp
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

func (r *SupplierRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.suppliers[id]; !ok {
		return domain.ErrNotFound
	}
	for _, po := range r.s.t.orders {
		if po.SupplierID == id {
			return domain.Conflict("el proveedor tiene órdenes de compra")
		}
	}
	delete(r.s.t.suppliers, id)
	return nil
}
