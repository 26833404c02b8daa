package repository

import (
	"context"
	"time"

	"github.com/jhoicas/procurement-api/internal/domain/entity"
)

// PurchaseOrderFilter filtros para listar OC.
type PurchaseOrderFilter struct {
	Status      string
	SupplierID  string
	WarehouseID string
}

// PurchaseOrderRepository puerto de persistencia para OC y sus líneas.
type PurchaseOrderRepository interface {
	// Create persiste cabecera y líneas.
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	// GetForUpdate carga la OC bloqueando su fila (serializa transiciones y recepciones).
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	// Update actualiza la cabecera (estado, total, fechas, notas, auditoría).
	Update(ctx context.Context, po *entity.PurchaseOrder) error
	ReplaceItems(ctx context.Context, poID string, items []*entity.PurchaseOrderItem) error
	AddItem(ctx context.Context, item *entity.PurchaseOrderItem) error
	UpdateItem(ctx context.Context, item *entity.PurchaseOrderItem) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter PurchaseOrderFilter, limit, offset int) ([]*entity.PurchaseOrder, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	// NextSequence devuelve el siguiente consecutivo diario para el número de OC.
	NextSequence(ctx context.Context, day time.Time) (int, error)

	// LockSupplierWarehouse serializa, hasta el fin de la tx, la creación de OC para un proveedor+bodega.
	LockSupplierWarehouse(ctx context.Context, supplierID, warehouseID string) error
	// FindOpenDraft OC en DRAFT más reciente del proveedor+bodega (nil si no hay).
	FindOpenDraft(ctx context.Context, supplierID, warehouseID string) (*entity.PurchaseOrder, error)
	// HasPendingOrderFor indica si hay una OC en curso (DRAFT hasta PARTIALLY_RECEIVED) del proveedor+bodega con el producto.
	HasPendingOrderFor(ctx context.Context, supplierID, warehouseID, productID string) (bool, error)
	// ListOpenWithDeliveryDate OC abiertas con fecha esperada de entrega.
	ListOpenWithDeliveryDate(ctx context.Context) ([]*entity.PurchaseOrder, error)
	// SupplierPrices historial de precios por proveedor para cada producto solicitado (solo OC ORDERED o posteriores, sin canceladas).
	SupplierPrices(ctx context.Context, productIDs []string) (map[string][]entity.SupplierPrice, error)
}
