package analytics_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/internal/application/analytics"
	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/jhoicas/procurement-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const warehouseID = "wh-1"

func seedProduct(t *testing.T, store *memory.Store, id string, reorderPoint int64, active bool) {
	t.Helper()
	require.NoError(t, store.Products().Create(context.Background(), &entity.Product{
		ID: id, SKU: "SKU-" + id, Name: "Producto " + id, UnitOfMeasure: entity.UnitOfMeasureDefault,
		ReorderPoint: reorderPoint, ReorderQuantity: 10, Active: active,
	}))
}

func setStock(t *testing.T, store *memory.Store, productID string, onHand int64) {
	t.Helper()
	require.NoError(t, store.Inventory().Upsert(context.Background(), &entity.InventoryRecord{
		ProductID: productID, WarehouseID: warehouseID, QuantityOnHand: onHand,
	}))
}

func seedPO(t *testing.T, store *memory.Store, id, status string, expected *time.Time) {
	t.Helper()
	now := time.Now()
	require.NoError(t, store.PurchaseOrders().Create(context.Background(), &entity.PurchaseOrder{
		ID: id, PONumber: "PO-" + id, SupplierID: "sup-1", WarehouseID: warehouseID,
		OrderDate: now, ExpectedDeliveryDate: expected, Status: status, CreatedAt: now, UpdatedAt: now,
	}))
}

func seedAlert(t *testing.T, store *memory.Store, id, status string) {
	t.Helper()
	require.NoError(t, store.Alerts().Create(context.Background(), &entity.Alert{
		ID: id, AlertType: entity.AlertTypeSystem, Severity: entity.SeverityLow, Priority: entity.PriorityLow,
		Status: status, ReferenceType: entity.AlertRefSystem, ReferenceID: id, Title: "alerta " + id,
		TriggeredAt: time.Now(), UpdatedAt: time.Now(),
	}))
}

func newDashboard(store *memory.Store) *analytics.DashboardUseCase {
	advisor := inventory.NewReorderAdvisor(store.Inventory(), store.PurchaseOrders())
	return analytics.NewDashboardUseCase(store.Dashboard(), store.PurchaseOrders(), store.Alerts(), advisor)
}

type failingSuggestions struct{}

func (failingSuggestions) ListSuggestions(context.Context, repository.InventoryFilter) (*dto.ReorderSuggestionListResponse, error) {
	return nil, errors.New("sin conexión")
}

// ──────────────────────────────────────────────────────────────────────────────
// GetSummary
// ──────────────────────────────────────────────────────────────────────────────

func TestGetSummary_AgregaStockOrdenesYAlertas(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p-ok", 10, true)
	seedProduct(t, store, "p-bajo", 10, true)
	seedProduct(t, store, "p-agotado", 10, true)
	seedProduct(t, store, "p-inactivo", 10, false)
	setStock(t, store, "p-ok", 50)
	setStock(t, store, "p-bajo", 4)
	setStock(t, store, "p-agotado", 0)
	setStock(t, store, "p-inactivo", 0)

	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	future := time.Now().AddDate(1, 0, 0)
	seedPO(t, store, "a", entity.POStatusDraft, nil)
	seedPO(t, store, "b", entity.POStatusOrdered, &past)
	seedPO(t, store, "c", entity.POStatusOrdered, &future)
	seedPO(t, store, "d", entity.POStatusClosed, &past)

	seedAlert(t, store, "al-1", entity.AlertStatusActive)
	seedAlert(t, store, "al-2", entity.AlertStatusActive)
	seedAlert(t, store, "al-3", entity.AlertStatusResolved)

	summary, err := newDashboard(store).GetSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Products)
	assert.Equal(t, 1, summary.LowStock)
	assert.Equal(t, 1, summary.OutOfStock)
	assert.Equal(t, 3, summary.OpenOrders, "DRAFT y dos ORDERED")
	assert.Equal(t, 1, summary.OverdueOrders, "la OC cerrada no cuenta aunque esté vencida")
	assert.Equal(t, 2, summary.ActiveAlerts)
	assert.Equal(t, 2, summary.OrdersByStatus[entity.POStatusOrdered])
	assert.Equal(t, 0, summary.OrdersByStatus[entity.POStatusCancelled])
	assert.Len(t, summary.OrdersByStatus, len(entity.AllPOStatuses))
	assert.Equal(t, 2, summary.PendingSuggestions)
	assert.Equal(t, 2, summary.UnpricedSuggestions, "sin historial de compras no hay precio")
	assert.True(t, decimal.Zero.Equal(summary.SuggestionsCost))
	assert.False(t, summary.GeneratedAt.IsZero())
}

func TestGetSummary_TopSugerenciasLimitadoACinco(t *testing.T) {
	store := memory.NewStore()
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("p-%d", i)
		seedProduct(t, store, id, int64(10+i), true)
		setStock(t, store, id, 0)
	}

	summary, err := newDashboard(store).GetSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, summary.PendingSuggestions)
	require.Len(t, summary.TopSuggestions, 5)
	assert.Equal(t, "p-6", summary.TopSuggestions[0].ProductID, "la más urgente primero")
}

func TestGetSummary_TiendaVacia(t *testing.T) {
	summary, err := newDashboard(memory.NewStore()).GetSummary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Products)
	assert.Zero(t, summary.OpenOrders)
	assert.Empty(t, summary.TopSuggestions)
}

func TestGetSummary_ErrorDeFuente_SePropaga(t *testing.T) {
	store := memory.NewStore()
	uc := analytics.NewDashboardUseCase(store.Dashboard(), store.PurchaseOrders(), store.Alerts(), failingSuggestions{})

	_, err := uc.GetSummary(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sugerencias")
}
