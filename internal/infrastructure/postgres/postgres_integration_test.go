//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/jhoicas/procurement-api/internal/infrastructure/postgres"
	"github.com/jhoicas/procurement-api/pkg/config"
	"github.com/jhoicas/procurement-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Contenedor compartido
// ──────────────────────────────────────────────────────────────────────────────

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("procurement_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "no se pudo iniciar PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
		os.Exit(1)
	}
	testPool, err = postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 10})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		os.Exit(1)
	}
	if err := postgres.Migrate(testPool, logger.Nop()); err != nil {
		fmt.Fprintf(os.Stderr, "migraciones: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	testPool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func seedProduct(t *testing.T, reorderPoint, reorderQty int64) *entity.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &entity.Product{
		ID: uuid.New().String(), SKU: "SKU-" + uuid.New().String()[:8], Name: "Producto de prueba",
		UnitOfMeasure: entity.UnitOfMeasureDefault, CostPrice: decimal.NewFromInt(10),
		ReorderPoint: reorderPoint, ReorderQuantity: reorderQty, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, postgres.NewProductRepository(testPool).Create(context.Background(), p))
	return p
}

func seedWarehouse(t *testing.T) *entity.Warehouse {
	t.Helper()
	now := time.Now().UTC()
	w := &entity.Warehouse{ID: uuid.New().String(), Code: "W-" + uuid.New().String()[:8], Name: "Bodega", Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, postgres.NewWarehouseRepository(testPool).Create(context.Background(), w))
	return w
}

func seedSupplier(t *testing.T, active bool) *entity.Supplier {
	t.Helper()
	now := time.Now().UTC()
	s := &entity.Supplier{ID: uuid.New().String(), Code: "S-" + uuid.New().String()[:8], Name: "Proveedor", Active: active, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, postgres.NewSupplierRepository(testPool).Create(context.Background(), s))
	return s
}

func seedOrder(t *testing.T, supplierID, warehouseID, productID, status, price string, orderedAt time.Time) *entity.PurchaseOrder {
	t.Helper()
	id := uuid.New().String()
	po := &entity.PurchaseOrder{
		ID: id, PONumber: "PO-" + id[:12], SupplierID: supplierID, WarehouseID: warehouseID,
		OrderDate: orderedAt, Status: status, CreatedAt: orderedAt, UpdatedAt: orderedAt,
		Items: []*entity.PurchaseOrderItem{{
			ID: uuid.New().String(), PurchaseOrderID: id, ProductID: productID,
			QuantityOrdered: 10, UnitPrice: decimal.RequireFromString(price),
		}},
	}
	po.RecalculateTotal()
	require.NoError(t, postgres.NewPurchaseOrderRepository(testPool).Create(context.Background(), po))
	return po
}

func newLedger() *inventory.LedgerUseCase {
	return inventory.NewLedgerUseCase(
		postgres.NewTxRunner(testPool),
		postgres.NewProductRepository(testPool),
		postgres.NewWarehouseRepository(testPool),
		postgres.NewInventoryRecordRepository(testPool),
		postgres.NewStockMovementRepository(testPool),
	)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ledger
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_EntradaIdempotentePorReferencia(t *testing.T) {
	ctx := context.Background()
	p, w := seedProduct(t, 10, 50), seedWarehouse(t)
	uc := newLedger()

	in := inventory.MovementInput{
		ProductID: p.ID, WarehouseID: w.ID, Type: entity.MovementTypeIN, Quantity: 30,
		ReferenceType: entity.ReferenceManual, ReferenceID: "rcv-1", ActorID: "tester",
	}
	first, err := uc.ApplyMovement(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(30), first.Record.QuantityOnHand)

	second, err := uc.ApplyMovement(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, int64(30), second.Record.QuantityOnHand)

	sum, err := postgres.NewStockMovementRepository(testPool).SumSigned(ctx, p.ID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), sum)
}

func TestLedger_SalidasConcurrentesNuncaDejanNegativo(t *testing.T) {
	ctx := context.Background()
	p, w := seedProduct(t, 0, 0), seedWarehouse(t)
	uc := newLedger()
	_, err := uc.ApplyMovement(ctx, inventory.MovementInput{
		ProductID: p.ID, WarehouseID: w.ID, Type: entity.MovementTypeIN, Quantity: 10, ActorID: "tester",
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, insufficient := 0, 0
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.ApplyMovement(ctx, inventory.MovementInput{
				ProductID: p.ID, WarehouseID: w.ID, Type: entity.MovementTypeOUT, Quantity: 1, ActorID: "tester",
			})
			mu.Lock()
			defer mu.Unlock()
			switch domain.KindOf(err) {
			case "":
				ok++
			case domain.KindInsufficientStock:
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 5, insufficient)
	rec, err := postgres.NewInventoryRecordRepository(testPool).Get(ctx, p.ID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.QuantityOnHand)
}

func TestInventoryRecord_CheckDeDisponible(t *testing.T) {
	ctx := context.Background()
	p, w := seedProduct(t, 0, 0), seedWarehouse(t)
	repo := postgres.NewInventoryRecordRepository(testPool)

	err := repo.Upsert(ctx, &entity.InventoryRecord{ProductID: p.ID, WarehouseID: w.ID, QuantityOnHand: 2, QuantityReserved: 5})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	rec, err := repo.Get(ctx, p.ID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.QuantityOnHand, "sin fila devuelve el saldo en cero")
}

func TestInventoryRecord_ListAtOrBelowReorderPoint(t *testing.T) {
	ctx := context.Background()
	low, ok := seedProduct(t, 10, 5), seedProduct(t, 10, 5)
	w := seedWarehouse(t)
	repo := postgres.NewInventoryRecordRepository(testPool)
	require.NoError(t, repo.Upsert(ctx, &entity.InventoryRecord{ProductID: low.ID, WarehouseID: w.ID, QuantityOnHand: 12, QuantityReserved: 4}))
	require.NoError(t, repo.Upsert(ctx, &entity.InventoryRecord{ProductID: ok.ID, WarehouseID: w.ID, QuantityOnHand: 11}))

	list, err := repo.ListAtOrBelowReorderPoint(ctx, repository.InventoryFilter{WarehouseID: w.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, low.ID, list[0].Product.ID)
	assert.Equal(t, int64(8), list[0].Record.Available())
}

// ──────────────────────────────────────────────────────────────────────────────
// Órdenes de compra
// ──────────────────────────────────────────────────────────────────────────────

func TestPurchaseOrder_CreateYCargaConLineas(t *testing.T) {
	ctx := context.Background()
	p, w, s := seedProduct(t, 0, 0), seedWarehouse(t), seedSupplier(t, true)
	po := seedOrder(t, s.ID, w.ID, p.ID, entity.POStatusDraft, "4.50", time.Now().UTC())

	repo := postgres.NewPurchaseOrderRepository(testPool)
	got, err := repo.GetByID(ctx, po.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.True(t, decimal.NewFromInt(45).Equal(got.TotalAmount))

	draft, err := repo.FindOpenDraft(ctx, s.ID, w.ID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, po.ID, draft.ID)

	pending, err := repo.HasPendingOrderFor(ctx, s.ID, w.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, pending)

	missing, err := repo.GetByID(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPurchaseOrder_UpdateCambiaProveedorYBodega(t *testing.T) {
	ctx := context.Background()
	p := seedProduct(t, 0, 0)
	w1, w2 := seedWarehouse(t), seedWarehouse(t)
	s1, s2 := seedSupplier(t, true), seedSupplier(t, true)
	po := seedOrder(t, s1.ID, w1.ID, p.ID, entity.POStatusDraft, "2", time.Now().UTC())

	repo := postgres.NewPurchaseOrderRepository(testPool)
	orderDate := time.Date(2031, 2, 3, 0, 0, 0, 0, time.UTC)
	po.SupplierID, po.WarehouseID, po.OrderDate = s2.ID, w2.ID, orderDate
	po.Notes = "cambio de proveedor"
	require.NoError(t, repo.Update(ctx, po))

	got, err := repo.GetByID(ctx, po.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s2.ID, got.SupplierID)
	assert.Equal(t, w2.ID, got.WarehouseID)
	assert.True(t, orderDate.Equal(got.OrderDate.UTC()), "order_date %s", got.OrderDate)
	assert.Equal(t, "cambio de proveedor", got.Notes)

	draft, err := repo.FindOpenDraft(ctx, s1.ID, w1.ID)
	require.NoError(t, err)
	assert.Nil(t, draft, "el borrador ya no pertenece al proveedor anterior")

	po.SupplierID = uuid.New().String()
	err = repo.Update(ctx, po)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestPurchaseOrder_PendienteIncluyeOCAprobadasYPedidas(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewPurchaseOrderRepository(testPool)
	for status, want := range map[string]bool{
		entity.POStatusApproved:          true,
		entity.POStatusOrdered:           true,
		entity.POStatusPartiallyReceived: true,
		entity.POStatusClosed:            false,
		entity.POStatusCancelled:         false,
	} {
		p, w, s := seedProduct(t, 0, 0), seedWarehouse(t), seedSupplier(t, true)
		seedOrder(t, s.ID, w.ID, p.ID, status, "1", time.Now().UTC())
		pending, err := repo.HasPendingOrderFor(ctx, s.ID, w.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, want, pending, status)
	}
}

func TestPurchaseOrder_SupplierPrices_IgnoraBorradores(t *testing.T) {
	ctx := context.Background()
	p, w, s := seedProduct(t, 0, 0), seedWarehouse(t), seedSupplier(t, true)
	seedOrder(t, s.ID, w.ID, p.ID, entity.POStatusDraft, "1.00", time.Now().UTC())
	seedOrder(t, s.ID, w.ID, p.ID, entity.POStatusSubmitted, "1.50", time.Now().UTC())

	prices, err := postgres.NewPurchaseOrderRepository(testPool).SupplierPrices(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Empty(t, prices[p.ID])
}

func TestPurchaseOrder_ConsecutivoDiario(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewPurchaseOrderRepository(testPool)
	day := time.Date(2031, 5, 4, 15, 0, 0, 0, time.UTC)

	first, err := repo.NextSequence(ctx, day)
	require.NoError(t, err)
	second, err := repo.NextSequence(ctx, day.Add(2*time.Hour))
	require.NoError(t, err)
	other, err := repo.NextSequence(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, first+1, second)
	assert.Equal(t, 1, other)
}

func TestPurchaseOrder_SupplierPrices_UltimoPrecioSinCanceladas(t *testing.T) {
	ctx := context.Background()
	p, w := seedProduct(t, 0, 0), seedWarehouse(t)
	s1, s2 := seedSupplier(t, true), seedSupplier(t, false)
	base := time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)
	seedOrder(t, s1.ID, w.ID, p.ID, entity.POStatusClosed, "9.00", base)
	seedOrder(t, s1.ID, w.ID, p.ID, entity.POStatusClosed, "8.00", base.AddDate(0, 1, 0))
	seedOrder(t, s1.ID, w.ID, p.ID, entity.POStatusCancelled, "1.00", base.AddDate(0, 2, 0))
	seedOrder(t, s2.ID, w.ID, p.ID, entity.POStatusOrdered, "7.00", base)

	prices, err := postgres.NewPurchaseOrderRepository(testPool).SupplierPrices(ctx, []string{p.ID})
	require.NoError(t, err)
	list := prices[p.ID]
	require.Len(t, list, 2)
	bySupplier := map[string]entity.SupplierPrice{list[0].SupplierID: list[0], list[1].SupplierID: list[1]}
	assert.True(t, decimal.NewFromInt(8).Equal(bySupplier[s1.ID].UnitPrice))
	assert.True(t, bySupplier[s1.ID].SupplierActive)
	assert.False(t, bySupplier[s2.ID].SupplierActive)
}

func TestPurchaseOrder_DeleteBodegaReferenciada_Conflict(t *testing.T) {
	ctx := context.Background()
	p, w, s := seedProduct(t, 0, 0), seedWarehouse(t), seedSupplier(t, true)
	seedOrder(t, s.ID, w.ID, p.ID, entity.POStatusDraft, "1", time.Now().UTC())

	err := postgres.NewWarehouseRepository(testPool).Delete(ctx, w.ID)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	err = postgres.NewProductRepository(testPool).Delete(ctx, p.ID)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

// ──────────────────────────────────────────────────────────────────────────────
// Alertas
// ──────────────────────────────────────────────────────────────────────────────

func TestAlert_UnaSolaActivaPorClave(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAlertRepository(testPool)
	ref := uuid.New().String()
	newAlert := func() *entity.Alert {
		now := time.Now().UTC()
		return &entity.Alert{
			ID: uuid.New().String(), AlertType: entity.AlertTypeOutOfStock, Severity: entity.SeverityCritical,
			Priority: entity.PriorityUrgent, Status: entity.AlertStatusActive, ReferenceType: entity.AlertRefInventory,
			ReferenceID: ref, Title: "Agotado", TriggeredAt: now, UpdatedAt: now,
		}
	}
	first := newAlert()
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, newAlert()), domain.ErrDuplicate)

	resolvedAt := time.Now().UTC()
	first.Status = entity.AlertStatusResolved
	first.ResolvedAt = &resolvedAt
	require.NoError(t, repo.Update(ctx, first))
	require.NoError(t, repo.Create(ctx, newAlert()), "resuelta la anterior se puede abrir otra")

	open, err := repo.FindOpen(ctx, entity.AlertTypeOutOfStock, entity.AlertRefInventory, ref)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.NotEqual(t, first.ID, open.ID)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, counts.ByStatus[entity.AlertStatusResolved], 1)
	assert.GreaterOrEqual(t, counts.ByType[entity.AlertTypeOutOfStock], 1)
}
