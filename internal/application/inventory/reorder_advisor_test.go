package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/jhoicas/procurement-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var baseDay = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setStock(t *testing.T, store *memory.Store, productID, warehouseID string, onHand, reserved int64) {
	t.Helper()
	require.NoError(t, store.Inventory().Upsert(context.Background(), &entity.InventoryRecord{
		ProductID: productID, WarehouseID: warehouseID, QuantityOnHand: onHand, QuantityReserved: reserved,
	}))
}

func seedSupplier(t *testing.T, store *memory.Store, id string, active bool) {
	t.Helper()
	require.NoError(t, store.Suppliers().Create(context.Background(), &entity.Supplier{
		ID: id, Code: "SUP-" + id, Name: "Proveedor " + id, Active: active,
	}))
}

// seedHistory registra una OC pasada (ya recibida) con el precio dado.
func seedHistory(t *testing.T, store *memory.Store, poID, supplierID, productID, price string, orderedAt time.Time, status string) {
	t.Helper()
	require.NoError(t, store.PurchaseOrders().Create(context.Background(), &entity.PurchaseOrder{
		ID: poID, PONumber: "PO-" + poID, SupplierID: supplierID, WarehouseID: testWarehouseID,
		OrderDate: orderedAt, Status: status, CreatedAt: orderedAt, UpdatedAt: orderedAt,
		Items: []*entity.PurchaseOrderItem{{
			ID: poID + "-1", PurchaseOrderID: poID, ProductID: productID,
			QuantityOrdered: 10, QuantityReceived: 10, UnitPrice: decimal.RequireFromString(price),
		}},
	}))
}

func newAdvisor(t *testing.T) (*inventory.ReorderAdvisor, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	seedProduct(t, store, testProductID, 10, 50)
	seedWarehouse(t, store, testWarehouseID)
	return inventory.NewReorderAdvisor(store.Inventory(), store.PurchaseOrders()), store
}

// ──────────────────────────────────────────────────────────────────────────────
// Cantidad sugerida
// ──────────────────────────────────────────────────────────────────────────────

// Escenario A: disponible 8 con punto 10 y lote 50 → 50.
func TestComputeSuggestions_BajoPuntoDeReorden_SugiereLote(t *testing.T) {
	advisor, store := newAdvisor(t)
	setStock(t, store, testProductID, testWarehouseID, 8, 0)

	list, err := advisor.ComputeSuggestions(context.Background(), repository.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(50), list[0].SuggestedQuantity)
	assert.Equal(t, int64(8), list[0].CurrentStock)
	assert.Equal(t, int64(2), list[0].Urgency())
}

// Escenario B: agotado → (10 − 0) + 50 = 60.
func TestComputeSuggestions_Agotado_SumaPuntoYLote(t *testing.T) {
	advisor, store := newAdvisor(t)
	setStock(t, store, testProductID, testWarehouseID, 0, 0)

	list, err := advisor.ComputeSuggestions(context.Background(), repository.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(60), list[0].SuggestedQuantity)
}

func TestComputeSuggestions_UsaDisponibleNoOnHand(t *testing.T) {
	advisor, store := newAdvisor(t)
	setStock(t, store, testProductID, testWarehouseID, 15, 7) // disponible 8

	list, err := advisor.ComputeSuggestions(context.Background(), repository.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(8), list[0].CurrentStock)
}

func TestComputeSuggestions_SobrePuntoOInactivo_SinSugerencia(t *testing.T) {
	advisor, store := newAdvisor(t)
	ctx := context.Background()
	setStock(t, store, testProductID, testWarehouseID, 11, 0)

	seedProduct(t, store, "prod-off", 10, 5)
	p, err := store.Products().GetByID(ctx, "prod-off")
	require.NoError(t, err)
	p.Active = false
	require.NoError(t, store.Products().Update(ctx, p))
	setStock(t, store, "prod-off", testWarehouseID, 0, 0)

	list, err := advisor.ComputeSuggestions(ctx, repository.InventoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSuggestedQuantity_NuncaQuedaBajoElPunto(t *testing.T) {
	assert.Equal(t, int64(50), inventory.SuggestedQuantity(8, 10, 50))
	assert.Equal(t, int64(60), inventory.SuggestedQuantity(0, 10, 50))
	assert.Equal(t, int64(25), inventory.SuggestedQuantity(5, 30, 10), "lote insuficiente: completa hasta el punto")
	assert.Equal(t, int64(0), inventory.SuggestedQuantity(0, 0, 0))
}

// ──────────────────────────────────────────────────────────────────────────────
// Selección de proveedor
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeSuggestions_EligeProveedorActivoMasBarato(t *testing.T) {
	advisor, store := newAdvisor(t)
	setStock(t, store, testProductID, testWarehouseID, 8, 0)
	seedSupplier(t, store, "s-caro", true)
	seedSupplier(t, store, "s-barato", true)
	seedSupplier(t, store, "s-inactivo", false)
	seedHistory(t, store, "h1", "s-caro", testProductID, "12.50", baseDay, entity.POStatusClosed)
	seedHistory(t, store, "h2", "s-barato", testProductID, "9.00", baseDay, entity.POStatusFullyReceived)
	seedHistory(t, store, "h3", "s-inactivo", testProductID, "1.00", baseDay, entity.POStatusClosed)

	list, err := advisor.ComputeSuggestions(context.Background(), repository.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	s := list[0]
	assert.Equal(t, "s-barato", s.SupplierID)
	require.NotNil(t, s.UnitPrice)
	assert.True(t, decimal.RequireFromString("9").Equal(*s.UnitPrice))
	require.NotNil(t, s.EstimatedCost)
	assert.True(t, decimal.NewFromInt(450).Equal(*s.EstimatedCost), "9 × 50")
	assert.True(t, s.Orderable())
}

func TestComputeSuggestions_EmpateDePrecio_GanaOCMasReciente(t *testing.T) {
	advisor, store := newAdvisor(t)
	setStock(t, store, testProductID, testWarehouseID, 8, 0)
	seedSupplier(t, store, "s-viejo", true)
	seedSupplier(t, store, "s-nuevo", true)
	seedHistory(t, store, "h1", "s-viejo", testProductID, "10", baseDay.AddDate(0, -2, 0), entity.POStatusClosed)
	seedHistory(t, store, "h2", "s-nuevo", testProductID, "10", baseDay, entity.POStatusClosed)

	list, err := advisor.ComputeSuggestions(context.Background(), repository.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s-nuevo", list[0].SupplierID)
}

func TestComputeSuggestions_OCCanceladaNoCuentaComoHistorial(t *testing.T) {
	advisor, store := newAdvisor(t)
	setStock(t, store, testProductID, testWarehouseID, 8, 0)
	seedSupplier(t, store, "s-1", true)
	seedHistory(t, store, "h1", "s-1", testProductID, "3", baseDay, entity.POStatusCancelled)

	list, err := advisor.ComputeSuggestions(context.Background(), repository.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].UnitPrice)
	assert.False(t, list[0].Orderable())
}

func TestComputeSuggestions_SoloOCColocadasDanPrecio(t *testing.T) {
	advisor, store := newAdvisor(t)
	setStock(t, store, testProductID, testWarehouseID, 8, 0)
	seedSupplier(t, store, "s-borrador", true)
	seedSupplier(t, store, "s-pedido", true)
	seedHistory(t, store, "h1", "s-borrador", testProductID, "1", baseDay, entity.POStatusDraft)
	seedHistory(t, store, "h2", "s-borrador", testProductID, "1", baseDay, entity.POStatusSubmitted)
	seedHistory(t, store, "h3", "s-pedido", testProductID, "6", baseDay.AddDate(0, -1, 0), entity.POStatusOrdered)

	list, err := advisor.ComputeSuggestions(context.Background(), repository.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].UnitPrice)
	assert.Equal(t, "s-pedido", list[0].SupplierID)
	assert.True(t, decimal.NewFromInt(6).Equal(*list[0].UnitPrice))
}

func TestListSuggestions_SinPrecioExcluidaDelTotal(t *testing.T) {
	advisor, store := newAdvisor(t)
	seedProduct(t, store, "prod-b", 5, 20)
	setStock(t, store, testProductID, testWarehouseID, 8, 0)
	setStock(t, store, "prod-b", testWarehouseID, 1, 0)
	seedSupplier(t, store, "s-1", true)
	seedHistory(t, store, "h1", "s-1", testProductID, "2", baseDay, entity.POStatusClosed)

	resp, err := advisor.ListSuggestions(context.Background(), repository.InventoryFilter{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 1, resp.UnpricedCount)
	assert.True(t, decimal.NewFromInt(100).Equal(resp.TotalEstimatedCost), "solo 2 × 50, obtenido %s", resp.TotalEstimatedCost)
}

func TestPreferredSupplier_EmpateTotal_PorIDDeProveedor(t *testing.T) {
	prices := []entity.SupplierPrice{
		{SupplierID: "b", SupplierActive: true, UnitPrice: decimal.NewFromInt(5), LastOrderAt: baseDay},
		{SupplierID: "a", SupplierActive: true, UnitPrice: decimal.NewFromInt(5), LastOrderAt: baseDay},
	}
	best := inventory.PreferredSupplier(prices)
	require.NotNil(t, best)
	assert.Equal(t, "a", best.SupplierID)
	assert.Nil(t, inventory.PreferredSupplier(nil))
}

// ──────────────────────────────────────────────────────────────────────────────
// Orden determinista
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeSuggestions_OrdenPorUrgenciaLuegoProducto(t *testing.T) {
	advisor, store := newAdvisor(t)
	seedProduct(t, store, "prod-c", 10, 5)
	seedProduct(t, store, "prod-b", 10, 5)
	seedProduct(t, store, "prod-d", 30, 5)
	setStock(t, store, testProductID, testWarehouseID, 8, 0) // urgencia 2
	setStock(t, store, "prod-c", testWarehouseID, 5, 0)      // urgencia 5
	setStock(t, store, "prod-b", testWarehouseID, 5, 0)      // urgencia 5
	setStock(t, store, "prod-d", testWarehouseID, 0, 0)      // urgencia 30

	ctx := context.Background()
	first, err := advisor.ComputeSuggestions(ctx, repository.InventoryFilter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(first))
	for _, s := range first {
		ids = append(ids, s.ProductID)
	}
	assert.Equal(t, []string{"prod-d", "prod-b", "prod-c", testProductID}, ids)

	second, err := advisor.ComputeSuggestions(ctx, repository.InventoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, first, second, "mismo estado, misma lista")
}

func TestComputeSuggestions_FiltroPorBodega(t *testing.T) {
	advisor, store := newAdvisor(t)
	seedWarehouse(t, store, otherWarehouse)
	setStock(t, store, testProductID, testWarehouseID, 0, 0)
	setStock(t, store, testProductID, otherWarehouse, 0, 0)

	list, err := advisor.ComputeSuggestions(context.Background(), repository.InventoryFilter{WarehouseID: otherWarehouse})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, otherWarehouse, list[0].WarehouseID)
}
