package ports

import (
	"context"

	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción de BD.
type TxRepos struct {
	Products       repository.ProductRepository
	Warehouses     repository.WarehouseRepository
	Suppliers      repository.SupplierRepository
	Inventory      repository.InventoryRecordRepository
	Movements      repository.StockMovementRepository
	PurchaseOrders repository.PurchaseOrderRepository
	Alerts         repository.AlertRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback en otro caso.
// Es el único punto donde los casos de uso obtienen atomicidad entre varios repositorios.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

// StockObserver recibe avisos después del commit de un cambio de saldo.
// Lo implementa el emisor de alertas; el ledger nunca escribe alertas directamente.
type StockObserver interface {
	StockChanged(ctx context.Context, productID, warehouseID string)
}

// PurchaseOrderObserver recibe avisos después del commit de un cambio de estado de una OC.
type PurchaseOrderObserver interface {
	PurchaseOrderChanged(ctx context.Context, purchaseOrderID string)
}
