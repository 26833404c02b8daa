// Package memory implementa los puertos de persistencia en memoria.
//
// Se usa en las pruebas de casos de uso y en desarrollo local sin PostgreSQL. Las
// transacciones se serializan con un mutex global (equivale a bloquear todas las filas), y el
// rollback restaura una copia de las tablas transaccionales tomada al inicio. Alertas y usuarios
// nunca se escriben dentro de una transacción, por eso no forman parte de la copia.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/procurement-api/internal/application/ports"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
)

type invKey struct{ productID, warehouseID string }

type tables struct {
	products   map[string]*entity.Product
	categories map[string]*entity.Category
	warehouses map[string]*entity.Warehouse
	suppliers  map[string]*entity.Supplier
	inventory  map[invKey]*entity.InventoryRecord
	movements  []*entity.StockMovement
	orders     map[string]*entity.PurchaseOrder
	poSeq      map[string]int
}

func newTables() tables {
	return tables{
		products:   map[string]*entity.Product{},
		categories: map[string]*entity.Category{},
		warehouses: map[string]*entity.Warehouse{},
		suppliers:  map[string]*entity.Supplier{},
		inventory:  map[invKey]*entity.InventoryRecord{},
		orders:     map[string]*entity.PurchaseOrder{},
		poSeq:      map[string]int{},
	}
}

// clone copia profunda de las tablas (las entidades se guardan por valor).
func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range t.categories {
		x := *v
		c.categories[k] = &x
	}
	for k, v := range t.warehouses {
		w := *v
		c.warehouses[k] = &w
	}
	for k, v := range t.suppliers {
		s := *v
		c.suppliers[k] = &s
	}
	for k, v := range t.inventory {
		r := *v
		c.inventory[k] = &r
	}
	c.movements = make([]*entity.StockMovement, len(t.movements))
	copy(c.movements, t.movements) // los movimientos son inmutables
	for k, v := range t.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range t.poSeq {
		c.poSeq[k] = v
	}
	return c
}

// Store base de datos en memoria.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	t      tables
	alerts map[string]*entity.Alert
	users  map[string]*entity.User
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		t:      newTables(),
		alerts: map[string]*entity.Alert{},
		users:  map[string]*entity.User{},
	}
}

func (s *Store) Products() *ProductRepo             { return &ProductRepo{s: s} }
func (s *Store) Categories() *CategoryRepo          { return &CategoryRepo{s: s} }
func (s *Store) Warehouses() *WarehouseRepo         { return &WarehouseRepo{s: s} }
func (s *Store) Suppliers() *SupplierRepo           { return &SupplierRepo{s: s} }
func (s *Store) Inventory() *InventoryRepo          { return &InventoryRepo{s: s} }
func (s *Store) Movements() *MovementRepo           { return &MovementRepo{s: s} }
func (s *Store) PurchaseOrders() *PurchaseOrderRepo { return &PurchaseOrderRepo{s: s} }
func (s *Store) Alerts() *AlertRepo                 { return &AlertRepo{s: s} }
func (s *Store) Users() *UserRepo                   { return &UserRepo{s: s} }
func (s *Store) Dashboard() *DashboardRepo          { return &DashboardRepo{s: s} }

// TxRunner transacciones en memoria sobre un Store.
type TxRunner struct {
	s *Store
}

var _ ports.TxRunner = (*TxRunner)(nil)

// NewTxRunner construye el runner.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn en exclusión mutua con las demás transacciones; si fn devuelve error las tablas
// vuelven al estado previo.
func (r *TxRunner) Run(ctx context.Context, fn func(repos ports.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	r.s.mu.RLock()
	snapshot := r.s.t.clone()
	r.s.mu.RUnlock()

	err := fn(ports.TxRepos{
		Products:       r.s.Products(),
		Warehouses:     r.s.Warehouses(),
		Suppliers:      r.s.Suppliers(),
		Inventory:      r.s.Inventory(),
		Movements:      r.s.Movements(),
		PurchaseOrders: r.s.PurchaseOrders(),
		Alerts:         r.s.Alerts(),
	})
	if err != nil {
		r.s.mu.Lock()
		r.s.t = snapshot
		r.s.mu.Unlock()
		return err
	}
	return nil
}

func copyOrder(po *entity.PurchaseOrder) *entity.PurchaseOrder {
	if po == nil {
		return nil
	}
	c := *po
	if po.ExpectedDeliveryDate != nil {
		d := *po.ExpectedDeliveryDate
		c.ExpectedDeliveryDate = &d
	}
	c.Items = make([]*entity.PurchaseOrderItem, 0, len(po.Items))
	for _, it := range po.Items {
		x := *it
		c.Items = append(c.Items, &x)
	}
	return &c
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
