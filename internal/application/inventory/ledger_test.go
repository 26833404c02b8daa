package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/jhoicas/procurement-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testProductID   = "prod-a"
	testWarehouseID = "wh-1"
	otherWarehouse  = "wh-2"
	testActor       = "user-1"
)

type stockEvent struct{ productID, warehouseID string }

type fakeObserver struct {
	mu     sync.Mutex
	events []stockEvent
}

func (f *fakeObserver) StockChanged(_ context.Context, productID, warehouseID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, stockEvent{productID, warehouseID})
}

func seedProduct(t *testing.T, store *memory.Store, id string, reorderPoint, reorderQty int64) {
	t.Helper()
	require.NoError(t, store.Products().Create(context.Background(), &entity.Product{
		ID:              id,
		SKU:             "SKU-" + id,
		Name:            "Producto " + id,
		UnitOfMeasure:   entity.UnitOfMeasureDefault,
		CostPrice:       decimal.NewFromInt(10),
		ReorderPoint:    reorderPoint,
		ReorderQuantity: reorderQty,
		Active:          true,
	}))
}

func seedWarehouse(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	require.NoError(t, store.Warehouses().Create(context.Background(), &entity.Warehouse{
		ID: id, Code: "C-" + id, Name: "Bodega " + id, Active: true,
	}))
}

func newLedger(t *testing.T) (*inventory.LedgerUseCase, *memory.Store, *fakeObserver) {
	t.Helper()
	store := memory.NewStore()
	seedProduct(t, store, testProductID, 10, 50)
	seedWarehouse(t, store, testWarehouseID)
	seedWarehouse(t, store, otherWarehouse)
	obs := &fakeObserver{}
	uc := inventory.NewLedgerUseCase(memory.NewTxRunner(store), store.Products(), store.Warehouses(), store.Inventory(), store.Movements()).
		WithObserver(obs)
	return uc, store, obs
}

func in(t *testing.T, uc *inventory.LedgerUseCase, qty int64, ref string) {
	t.Helper()
	_, err := uc.ApplyMovement(context.Background(), inventory.MovementInput{
		ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeIN,
		Quantity: qty, ReferenceID: ref, ActorID: testActor,
	})
	require.NoError(t, err)
}

func countMovements(t *testing.T, store *memory.Store) int {
	t.Helper()
	list, err := store.Movements().List(context.Background(), repository.MovementFilter{}, 0, 0)
	require.NoError(t, err)
	return len(list)
}

// ──────────────────────────────────────────────────────────────────────────────
// ApplyMovement
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_EntradaActualizaSaldoYLedger(t *testing.T) {
	uc, store, obs := newLedger(t)
	ctx := context.Background()

	res, err := uc.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeIN,
		Quantity: 25, ActorID: testActor,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(25), res.Record.QuantityOnHand)
	assert.Equal(t, int64(25), res.Record.QuantityAvailable)
	assert.False(t, res.Duplicate)
	assert.NotEmpty(t, res.MovementID)
	assert.Equal(t, 1, countMovements(t, store))
	assert.Len(t, obs.events, 1, "el observador recibe el cambio después del commit")
}

// Escenario D: una salida mayor al on-hand falla y no deja rastro.
func TestApplyMovement_SalidaSinStock_NoModificaNada(t *testing.T) {
	uc, store, _ := newLedger(t)
	ctx := context.Background()
	in(t, uc, 3, "")

	_, err := uc.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeOUT,
		Quantity: 5, ActorID: testActor,
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.False(t, domain.IsRetryable(err))

	rec, err := uc.GetRecord(ctx, testProductID, testWarehouseID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.QuantityOnHand, "el on-hand se mantiene en 3")
	assert.Equal(t, 1, countMovements(t, store), "no se agrega ningún movimiento")
}

func TestApplyMovement_CantidadNoPositiva_Validation(t *testing.T) {
	uc, _, _ := newLedger(t)

	for _, qty := range []int64{0, -4} {
		_, err := uc.ApplyMovement(context.Background(), inventory.MovementInput{
			ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeIN, Quantity: qty,
		})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), "cantidad %d", qty)
	}
}

func TestApplyMovement_TipoDesconocido_Validation(t *testing.T) {
	uc, _, _ := newLedger(t)
	_, err := uc.ApplyMovement(context.Background(), inventory.MovementInput{
		ProductID: testProductID, WarehouseID: testWarehouseID, Type: "SALE", Quantity: 1,
	})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestApplyMovement_ProductoInexistente_NotFound(t *testing.T) {
	uc, _, _ := newLedger(t)
	_, err := uc.ApplyMovement(context.Background(), inventory.MovementInput{
		ProductID: "no-existe", WarehouseID: testWarehouseID, Type: entity.MovementTypeIN, Quantity: 1,
	})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestApplyMovement_ReferenciaRepetida_EsNoOp(t *testing.T) {
	uc, store, obs := newLedger(t)
	ctx := context.Background()
	in(t, uc, 10, "REC-1")

	res, err := uc.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeIN,
		Quantity: 10, ReferenceID: "REC-1",
	})
	require.NoError(t, err, "la repetición se devuelve como éxito sin efecto")
	assert.True(t, res.Duplicate)
	assert.Equal(t, int64(10), res.Record.QuantityOnHand, "devuelve el saldo actual")
	assert.Equal(t, 1, countMovements(t, store))
	assert.Len(t, obs.events, 1, "un duplicado no dispara el observador")
}

func TestApplyMovement_MismaReferenciaOtraBodega_SeAplica(t *testing.T) {
	uc, store, _ := newLedger(t)
	ctx := context.Background()
	in(t, uc, 10, "REC-1")

	res, err := uc.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: testProductID, WarehouseID: otherWarehouse, Type: entity.MovementTypeIN,
		Quantity: 4, ReferenceID: "REC-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 2, countMovements(t, store))
}

func TestApplyMovement_SalidaNoPuedeDejarReservaSinRespaldo(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()
	in(t, uc, 10, "")
	_, err := uc.Reserve(ctx, testProductID, testWarehouseID, 8)
	require.NoError(t, err)

	_, err = uc.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeOUT, Quantity: 5,
	})
	assert.Equal(t, domain.KindInsufficientAvailable, domain.KindOf(err))
}

func TestApplyMovement_EntradaConCosto_RecalculaPromedio(t *testing.T) {
	uc, store, _ := newLedger(t)
	ctx := context.Background()
	in(t, uc, 10, "") // 10 unidades a costo 10

	cost := decimal.NewFromInt(20)
	_, err := uc.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeIN,
		Quantity: 10, UnitCost: &cost,
	})
	require.NoError(t, err)

	p, err := store.Products().GetByID(ctx, testProductID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(p.CostPrice), "costo promedio esperado 15, obtenido %s", p.CostPrice)
}

// ──────────────────────────────────────────────────────────────────────────────
// Replay y traslados
// ──────────────────────────────────────────────────────────────────────────────

func TestReconcile_SumaDeMovimientosIgualOnHand(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()

	moves := []inventory.MovementInput{
		{Type: entity.MovementTypeIN, Quantity: 40},
		{Type: entity.MovementTypeOUT, Quantity: 12},
		{Type: entity.MovementTypeADJUSTMENT, Direction: -1, Quantity: 3},
		{Type: entity.MovementTypeADJUSTMENT, Quantity: 5},
		{Type: entity.MovementTypeOUT, Quantity: 7},
	}
	for _, m := range moves {
		m.ProductID, m.WarehouseID = testProductID, testWarehouseID
		_, err := uc.ApplyMovement(ctx, m)
		require.NoError(t, err)
	}

	rep, err := uc.Reconcile(ctx, testProductID, testWarehouseID)
	require.NoError(t, err)
	assert.Equal(t, int64(23), rep.QuantityOnHand)
	assert.Equal(t, rep.QuantityOnHand, rep.ReplayedQuantity)
	assert.True(t, rep.Consistent)
}

func TestTransfer_MueveStockEntreBodegas(t *testing.T) {
	uc, _, obs := newLedger(t)
	ctx := context.Background()
	in(t, uc, 20, "")

	res, err := uc.Transfer(ctx, inventory.TransferInput{
		ProductID: testProductID, FromWarehouseID: testWarehouseID, ToWarehouseID: otherWarehouse,
		Quantity: 8, ReferenceID: "TR-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.From.QuantityOnHand)
	assert.Equal(t, int64(8), res.To.QuantityOnHand)
	assert.Len(t, obs.events, 3, "entrada inicial más las dos bodegas del traslado")

	for _, wh := range []string{testWarehouseID, otherWarehouse} {
		rep, err := uc.Reconcile(ctx, testProductID, wh)
		require.NoError(t, err)
		assert.True(t, rep.Consistent, "bodega %s", wh)
	}
}

func TestTransfer_SinStockEnOrigen_NoTocaDestino(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()
	in(t, uc, 2, "")

	_, err := uc.Transfer(ctx, inventory.TransferInput{
		ProductID: testProductID, FromWarehouseID: testWarehouseID, ToWarehouseID: otherWarehouse, Quantity: 5,
	})
	assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))

	rec, err := uc.GetRecord(ctx, testProductID, otherWarehouse)
	require.NoError(t, err)
	assert.Zero(t, rec.QuantityOnHand)
}

func TestTransfer_MismaBodega_Validation(t *testing.T) {
	uc, _, _ := newLedger(t)
	_, err := uc.Transfer(context.Background(), inventory.TransferInput{
		ProductID: testProductID, FromWarehouseID: testWarehouseID, ToWarehouseID: testWarehouseID, Quantity: 1,
	})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

// ──────────────────────────────────────────────────────────────────────────────
// Reservas
// ──────────────────────────────────────────────────────────────────────────────

func TestReserve_MasQueDisponible_InsufficientAvailable(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()
	in(t, uc, 5, "")

	_, err := uc.Reserve(ctx, testProductID, testWarehouseID, 6)
	assert.Equal(t, domain.KindInsufficientAvailable, domain.KindOf(err))

	rec, err := uc.Reserve(ctx, testProductID, testWarehouseID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.QuantityOnHand, "reservar no toca el on-hand")
	assert.Zero(t, rec.QuantityAvailable)
}

func TestRelease_MasQueReservado_Validation(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()
	in(t, uc, 5, "")
	_, err := uc.Reserve(ctx, testProductID, testWarehouseID, 2)
	require.NoError(t, err)

	_, err = uc.Release(ctx, testProductID, testWarehouseID, 3)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	rec, err := uc.Release(ctx, testProductID, testWarehouseID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.QuantityAvailable)
}

func TestReserve_CantidadNoPositiva_Validation(t *testing.T) {
	uc, _, obs := newLedger(t)
	ctx := context.Background()
	in(t, uc, 20, "r-1")
	_, err := uc.Reserve(ctx, testProductID, testWarehouseID, 10)
	require.NoError(t, err)
	events := len(obs.events)

	for _, qty := range []int64{0, -7} {
		_, err = uc.Reserve(ctx, testProductID, testWarehouseID, qty)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), "reservar %d", qty)
		_, err = uc.Release(ctx, testProductID, testWarehouseID, qty)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), "liberar %d", qty)
	}

	rec, err := uc.GetRecord(ctx, testProductID, testWarehouseID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.QuantityReserved, "un signo invertido no cambia la reserva")
	assert.Equal(t, int64(10), rec.QuantityAvailable)
	assert.Len(t, obs.events, events)
}

func TestGetRecord_SinFila_TodoEnCero(t *testing.T) {
	uc, _, _ := newLedger(t)
	rec, err := uc.GetRecord(context.Background(), testProductID, otherWarehouse)
	require.NoError(t, err)
	assert.Zero(t, rec.QuantityOnHand)
	assert.Zero(t, rec.QuantityReserved)
	assert.Zero(t, rec.QuantityAvailable)
	assert.Nil(t, rec.LastUpdatedAt)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia: el disponible nunca queda negativo
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_ConcurrenciaMantieneDisponibleNoNegativo(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	in(t, uc, 100, "")

	var wg sync.WaitGroup
	var mu sync.Mutex
	var shipped, reserved int64
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if _, err := uc.ApplyMovement(ctx, inventory.MovementInput{
					ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeOUT, Quantity: 7,
				}); err == nil {
					mu.Lock()
					shipped += 7
					mu.Unlock()
				}
				return
			}
			if _, err := uc.Reserve(ctx, testProductID, testWarehouseID, 5); err == nil {
				mu.Lock()
				reserved += 5
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	rec, err := uc.GetRecord(ctx, testProductID, testWarehouseID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rec.QuantityAvailable, int64(0))
	assert.Equal(t, 100-shipped, rec.QuantityOnHand)
	assert.Equal(t, reserved, rec.QuantityReserved)

	rep, err := uc.Reconcile(ctx, testProductID, testWarehouseID)
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestListRecords_EstadoDeStockCalculado(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()

	in(t, uc, 15, "r-1")
	list, err := uc.ListRecords(ctx, repository.InventoryFilter{WarehouseID: testWarehouseID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, entity.StockStatusInStock, list.Items[0].StockStatus)
	assert.Equal(t, "SKU-"+testProductID, list.Items[0].SKU)

	_, err = uc.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeOUT, Quantity: 7,
	})
	require.NoError(t, err)

	for _, m := range []inventory.MovementInput{
		{Type: entity.MovementTypeIN, Quantity: 5},
		{Type: entity.MovementTypeOUT, Quantity: 5},
	} {
		m.ProductID, m.WarehouseID = testProductID, otherWarehouse
		_, err := uc.ApplyMovement(ctx, m)
		require.NoError(t, err)
	}

	list, err = uc.ListRecords(ctx, repository.InventoryFilter{WarehouseID: testWarehouseID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, entity.StockStatusLowStock, list.Items[0].StockStatus)

	list, err = uc.ListRecords(ctx, repository.InventoryFilter{WarehouseID: otherWarehouse}, 10, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, entity.StockStatusOutOfStock, list.Items[0].StockStatus)

	low, err := uc.LowStock(ctx, repository.InventoryFilter{})
	require.NoError(t, err)
	assert.Len(t, low, 2)
}

func TestListMovements_FiltraPorTipo(t *testing.T) {
	uc, _, _ := newLedger(t)
	ctx := context.Background()

	in(t, uc, 20, "r-1")
	in(t, uc, 5, "r-2")
	_, err := uc.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: testProductID, WarehouseID: testWarehouseID, Type: entity.MovementTypeOUT, Quantity: 3,
	})
	require.NoError(t, err)

	all, err := uc.ListMovements(ctx, repository.MovementFilter{ProductID: testProductID}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)

	outs, err := uc.ListMovements(ctx, repository.MovementFilter{Type: entity.MovementTypeOUT}, 10, 0)
	require.NoError(t, err)
	require.Len(t, outs.Items, 1)
	assert.Equal(t, int64(-3), outs.Items[0].SignedQuantity)

	paged, err := uc.ListMovements(ctx, repository.MovementFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Len(t, paged.Items, 2)
}
