package seed_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/internal/application/auth"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/internal/application/seed"
	"github.com/jhoicas/procurement-api/internal/application/usecase"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/jhoicas/procurement-api/internal/infrastructure/memory"
)

type fixture struct {
	seeder   *seed.Seeder
	products *usecase.ProductUseCase
	orders   *purchasing.PurchaseOrderUseCase
	ledger   *inventory.LedgerUseCase
	advisor  *inventory.ReorderAdvisor
}

func newFixture() fixture {
	store := memory.NewStore()
	txRunner := memory.NewTxRunner(store)
	ledger := inventory.NewLedgerUseCase(txRunner, store.Products(), store.Warehouses(), store.Inventory(), store.Movements())
	orders := purchasing.NewPurchaseOrderUseCase(txRunner, store.PurchaseOrders(), ledger)
	products := usecase.NewProductUseCase(store.Products(), store.Categories())
	s := seed.NewSeeder(
		auth.NewAuthUseCase(store.Users(), auth.JWTConfig{Secret: "s", ExpMinutes: 60, Issuer: "seed"}),
		usecase.NewCategoryUseCase(store.Categories()),
		usecase.NewWarehouseUseCase(store.Warehouses()),
		usecase.NewSupplierUseCase(store.Suppliers()),
		products, ledger, orders, zerolog.Nop(),
	)
	return fixture{
		seeder:   s,
		products: products,
		orders:   orders,
		ledger:   ledger,
		advisor:  inventory.NewReorderAdvisor(store.Inventory(), store.PurchaseOrders()),
	}
}

func demoOptions() seed.Options {
	return seed.Options{
		AdminEmail:    "admin@demo.co",
		AdminPassword: "clave-segura-123",
		Suppliers:     2,
		Products:      6,
		Warehouses:    2,
		Seed:          7,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Run
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_SiembraCompleta(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	report, err := fx.seeder.Run(ctx, demoOptions())
	require.NoError(t, err)
	assert.True(t, report.AdminCreated)
	assert.Equal(t, 5, report.Categories)
	assert.Equal(t, 2, report.Warehouses)
	assert.Equal(t, 2, report.Suppliers)
	assert.Equal(t, 6, report.Products)
	assert.Equal(t, 2, report.PurchaseOrders, "una OC por proveedor")
	assert.LessOrEqual(t, report.Movements, 6)

	counts, err := fx.orders.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.ByStatus[entity.POStatusClosed])

	list, err := fx.products.List(ctx, repository.ProductFilter{}, 100, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 6)
	for _, p := range list.Items {
		assert.True(t, strings.HasPrefix(p.SKU, "SKU-"))
	}

	// Todos los productos tienen historial de compras: ninguna sugerencia queda sin precio.
	suggestions, err := fx.advisor.ListSuggestions(ctx, repository.InventoryFilter{})
	require.NoError(t, err)
	assert.Zero(t, suggestions.UnpricedCount)
}

func TestRun_Repetible(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	_, err := fx.seeder.Run(ctx, demoOptions())
	require.NoError(t, err)

	again, err := fx.seeder.Run(ctx, demoOptions())
	require.NoError(t, err)
	assert.False(t, again.AdminCreated)
	assert.Zero(t, again.Categories)
	assert.Zero(t, again.Warehouses)
	assert.Zero(t, again.Suppliers)
	assert.Zero(t, again.Products, "misma semilla, mismos SKU")
	assert.Zero(t, again.PurchaseOrders)
	assert.Zero(t, again.Movements)
}

func TestRun_ConCatalogo(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	opts := demoOptions()
	opts.Catalog = []seed.CatalogRow{
		{SKU: "TORN-01", Name: "Tornillo", Category: "Tornillería", Unit: "UND", Cost: decimal.NewFromInt(120), ReorderPoint: 10, ReorderQuantity: 50},
	}

	report, err := fx.seeder.Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Categories, "las cinco por defecto y la del catálogo")
	assert.Equal(t, 1, report.Products)
	assert.Equal(t, 1, report.PurchaseOrders)

	list, err := fx.products.List(ctx, repository.ProductFilter{}, 100, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	p := list.Items[0]
	assert.Equal(t, "TORN-01", p.SKU)
	assert.NotEmpty(t, p.CategoryID)

	rec, err := fx.ledger.GetRecord(ctx, p.ID, mustWarehouse(t, fx, ctx))
	require.NoError(t, err)
	assert.Positive(t, rec.QuantityOnHand, "la OC recibida acredita stock")
}

func mustWarehouse(t *testing.T, fx fixture, ctx context.Context) string {
	t.Helper()
	pos, err := fx.orders.List(ctx, repository.PurchaseOrderFilter{}, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, pos.Items)
	return pos.Items[0].WarehouseID
}

// ──────────────────────────────────────────────────────────────────────────────
// ReadCatalog
// ──────────────────────────────────────────────────────────────────────────────

func TestReadCatalog_Latin1(t *testing.T) {
	csv := "sku,name,category,unit,cost,reorder_point,reorder_quantity\n" +
		"T-1,Ca\xf1o PVC,Plomer\xeda,und,\"1234,5\",10,40\n" +
		",sin sku,,,,,\n"

	rows, err := seed.ReadCatalog(strings.NewReader(csv), true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Caño PVC", rows[0].Name)
	assert.Equal(t, "Plomería", rows[0].Category)
	assert.Equal(t, "UND", rows[0].Unit)
	assert.True(t, decimal.RequireFromString("1234.5").Equal(rows[0].Cost))
	assert.Equal(t, int64(10), rows[0].ReorderPoint)
	assert.Equal(t, int64(40), rows[0].ReorderQuantity)
}

func TestReadCatalog_ColumnasLibresYErrores(t *testing.T) {
	rows, err := seed.ReadCatalog(strings.NewReader("name,sku\nTuerca,TU-1\n"), false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TU-1", rows[0].SKU)
	assert.True(t, rows[0].Cost.IsZero())

	_, err = seed.ReadCatalog(strings.NewReader("name\nTuerca\n"), false)
	assert.ErrorContains(t, err, "sku")

	_, err = seed.ReadCatalog(strings.NewReader("sku,name,cost\nTU-1,Tuerca,abc\n"), false)
	assert.ErrorContains(t, err, "línea 2")

	_, err = seed.ReadCatalog(strings.NewReader("sku,name,reorder_point\nTU-1,Tuerca,-x\n"), false)
	assert.ErrorContains(t, err, "reorder_point")
}
