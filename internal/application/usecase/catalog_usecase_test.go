package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/application/usecase"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/jhoicas/procurement-api/internal/infrastructure/memory"
)

func newProductUC() (*usecase.ProductUseCase, *memory.Store) {
	store := memory.NewStore()
	return usecase.NewProductUseCase(store.Products(), store.Categories()), store
}

func createProduct(t *testing.T, uc *usecase.ProductUseCase, sku string) *dto.ProductResponse {
	t.Helper()
	p, err := uc.Create(context.Background(), dto.CreateProductRequest{
		SKU: sku, Name: "Producto " + sku, CostPrice: decimal.NewFromInt(3), ReorderPoint: 10, ReorderQuantity: 50,
	})
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T { return &v }

// ──────────────────────────────────────────────────────────────────────────────
// Productos
// ──────────────────────────────────────────────────────────────────────────────

func TestProductCreate_NormalizaSKUYUnidadPorDefecto(t *testing.T) {
	uc, _ := newProductUC()
	p := createProduct(t, uc, "  ABC-1  ")
	assert.Equal(t, "ABC-1", p.SKU)
	assert.Equal(t, entity.UnitOfMeasureDefault, p.UnitOfMeasure)
	assert.True(t, p.Active)
	assert.NotEmpty(t, p.ID)
}

func TestProductCreate_SKUDuplicado(t *testing.T) {
	uc, _ := newProductUC()
	createProduct(t, uc, "ABC-1")
	_, err := uc.Create(context.Background(), dto.CreateProductRequest{SKU: "ABC-1", Name: "Otro"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestProductCreate_Validaciones(t *testing.T) {
	uc, _ := newProductUC()
	ctx := context.Background()
	cases := map[string]dto.CreateProductRequest{
		"sin sku":               {Name: "x"},
		"sin nombre":            {SKU: "x"},
		"punto negativo":        {SKU: "x", Name: "x", ReorderPoint: -1},
		"precio negativo":       {SKU: "x", Name: "x", CostPrice: decimal.NewFromInt(-1)},
		"categoría inexistente": {SKU: "x", Name: "x", CategoryID: "cat-x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Create(ctx, in)
			require.Error(t, err)
		})
	}
	_, err := uc.Create(ctx, dto.CreateProductRequest{SKU: "x", Name: "x", CategoryID: "cat-x"})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestProductUpdate_SKUInmutableConInventario(t *testing.T) {
	uc, store := newProductUC()
	ctx := context.Background()
	p := createProduct(t, uc, "ABC-1")

	updated, err := uc.Update(ctx, p.ID, dto.UpdateProductRequest{SKU: ptr("ABC-2")})
	require.NoError(t, err)
	assert.Equal(t, "ABC-2", updated.SKU, "sin historial el SKU se puede cambiar")

	require.NoError(t, store.Inventory().Upsert(ctx, &entity.InventoryRecord{
		ProductID: p.ID, WarehouseID: "wh-1", QuantityOnHand: 5,
	}))
	_, err = uc.Update(ctx, p.ID, dto.UpdateProductRequest{SKU: ptr("ABC-3")})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	// El mismo SKU (con espacios) no cuenta como cambio.
	_, err = uc.Update(ctx, p.ID, dto.UpdateProductRequest{SKU: ptr(" ABC-2 "), Name: ptr("Renombrado")})
	require.NoError(t, err)
}

func TestProductUpdate_SKUDeOtroProducto(t *testing.T) {
	uc, _ := newProductUC()
	createProduct(t, uc, "ABC-1")
	p := createProduct(t, uc, "ABC-2")
	_, err := uc.Update(context.Background(), p.ID, dto.UpdateProductRequest{SKU: ptr("ABC-1")})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestProductUpdate_CamposParciales(t *testing.T) {
	uc, _ := newProductUC()
	p := createProduct(t, uc, "ABC-1")

	updated, err := uc.Update(context.Background(), p.ID, dto.UpdateProductRequest{
		ReorderPoint: ptr(int64(25)), Active: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), updated.ReorderPoint)
	assert.Equal(t, int64(50), updated.ReorderQuantity)
	assert.False(t, updated.Active)
	assert.Equal(t, p.Name, updated.Name)

	_, err = uc.Update(context.Background(), p.ID, dto.UpdateProductRequest{ReorderQuantity: ptr(int64(-2))})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestProductUpdate_Inexistente_DevuelveNil(t *testing.T) {
	uc, _ := newProductUC()
	p, err := uc.Update(context.Background(), "nope", dto.UpdateProductRequest{Name: ptr("x")})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProductDelete_ConReferencias_Conflict(t *testing.T) {
	uc, store := newProductUC()
	ctx := context.Background()
	libre := createProduct(t, uc, "LIBRE")
	usado := createProduct(t, uc, "USADO")
	require.NoError(t, store.Inventory().Upsert(ctx, &entity.InventoryRecord{ProductID: usado.ID, WarehouseID: "wh-1"}))

	require.NoError(t, uc.Delete(ctx, libre.ID))
	err := uc.Delete(ctx, usado.ID)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.ErrorIs(t, uc.Delete(ctx, "nope"), domain.ErrNotFound)
}

func TestProductList_FiltraYPagina(t *testing.T) {
	uc, _ := newProductUC()
	for _, sku := range []string{"C", "A", "B"} {
		createProduct(t, uc, sku)
	}
	resp, err := uc.List(context.Background(), repository.ProductFilter{}, 2, 0)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "A", resp.Items[0].SKU)
	assert.Equal(t, 2, resp.Page.Limit)
}

// ──────────────────────────────────────────────────────────────────────────────
// Categorías, bodegas y proveedores
// ──────────────────────────────────────────────────────────────────────────────

func TestCategory_NombreUnicoYPadreValido(t *testing.T) {
	store := memory.NewStore()
	uc := usecase.NewCategoryUseCase(store.Categories())
	ctx := context.Background()

	root, err := uc.Create(ctx, dto.CreateCategoryRequest{Name: "Ferretería"})
	require.NoError(t, err)
	_, err = uc.Create(ctx, dto.CreateCategoryRequest{Name: "Ferretería"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	child, err := uc.Create(ctx, dto.CreateCategoryRequest{Name: "Tornillos", ParentID: root.ID})
	require.NoError(t, err)
	assert.Equal(t, root.ID, child.ParentID)

	_, err = uc.Create(ctx, dto.CreateCategoryRequest{Name: "Huérfana", ParentID: "nope"})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCategoryDelete_ConProductos_Conflict(t *testing.T) {
	store := memory.NewStore()
	cats := usecase.NewCategoryUseCase(store.Categories())
	products := usecase.NewProductUseCase(store.Products(), store.Categories())
	ctx := context.Background()

	c, err := cats.Create(ctx, dto.CreateCategoryRequest{Name: "Pinturas"})
	require.NoError(t, err)
	_, err = products.Create(ctx, dto.CreateProductRequest{SKU: "P-1", Name: "Vinilo", CategoryID: c.ID})
	require.NoError(t, err)

	assert.Equal(t, domain.KindConflict, domain.KindOf(cats.Delete(ctx, c.ID)))
}

func TestWarehouse_CodigoEnMayusculasYUnico(t *testing.T) {
	store := memory.NewStore()
	uc := usecase.NewWarehouseUseCase(store.Warehouses())
	ctx := context.Background()

	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: " bog-01 ", Name: "Bogotá"})
	require.NoError(t, err)
	assert.Equal(t, "BOG-01", w.Code)

	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Code: "BOG-01", Name: "Otra"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Code: "X"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestWarehouseDelete_ConInventario_Conflict(t *testing.T) {
	store := memory.NewStore()
	uc := usecase.NewWarehouseUseCase(store.Warehouses())
	ctx := context.Background()

	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Code: "W1", Name: "Principal"})
	require.NoError(t, err)
	require.NoError(t, store.Inventory().Upsert(ctx, &entity.InventoryRecord{ProductID: "p-1", WarehouseID: w.ID}))

	assert.Equal(t, domain.KindConflict, domain.KindOf(uc.Delete(ctx, w.ID)))
}

func TestSupplier_CreateYDeleteConOrdenes(t *testing.T) {
	store := memory.NewStore()
	uc := usecase.NewSupplierUseCase(store.Suppliers())
	ctx := context.Background()

	s, err := uc.Create(ctx, dto.CreateSupplierRequest{Code: "acme", Name: "ACME S.A.S."})
	require.NoError(t, err)
	assert.Equal(t, "ACME", s.Code)
	assert.True(t, s.Active)

	_, err = uc.Create(ctx, dto.CreateSupplierRequest{Code: "ACME", Name: "Duplicado"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	require.NoError(t, store.PurchaseOrders().Create(ctx, &entity.PurchaseOrder{
		ID: "po-1", PONumber: "PO-1", SupplierID: s.ID, WarehouseID: "wh-1", Status: entity.POStatusDraft,
	}))
	assert.Equal(t, domain.KindConflict, domain.KindOf(uc.Delete(ctx, s.ID)))
}

func TestSupplier_NITColombiano(t *testing.T) {
	store := memory.NewStore()
	uc := usecase.NewSupplierUseCase(store.Suppliers())
	ctx := context.Background()

	_, err := uc.Create(ctx, dto.CreateSupplierRequest{Code: "A", Name: "A", Country: "CO", TaxID: "900123456-7"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	s, err := uc.Create(ctx, dto.CreateSupplierRequest{Code: "B", Name: "B", Country: "Colombia", TaxID: "900.123.456-8"})
	require.NoError(t, err)

	_, err = uc.Create(ctx, dto.CreateSupplierRequest{Code: "C", Name: "C", Country: "PE", TaxID: "20100047218"})
	require.NoError(t, err, "fuera de Colombia no se valida")

	_, err = uc.Update(ctx, s.ID, dto.UpdateSupplierRequest{TaxID: ptr("900123456")})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}
