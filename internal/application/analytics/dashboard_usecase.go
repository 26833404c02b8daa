// Package analytics contiene los casos de uso de lectura agregada para el dashboard operativo.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

const dashboardTopSuggestions = 5 // sugerencias más urgentes en el widget del dashboard

// SuggestionLister fuente de sugerencias (lo implementa *inventory.ReorderAdvisor).
type SuggestionLister interface {
	ListSuggestions(ctx context.Context, filter repository.InventoryFilter) (*dto.ReorderSuggestionListResponse, error)
}

// DashboardUseCase genera el resumen operativo: stock, OC, alertas y reposición.
type DashboardUseCase struct {
	dashboardRepo repository.DashboardRepository
	poRepo        repository.PurchaseOrderRepository
	alertRepo     repository.AlertRepository
	suggestions   SuggestionLister
	now           func() time.Time
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(
	dashboardRepo repository.DashboardRepository,
	poRepo repository.PurchaseOrderRepository,
	alertRepo repository.AlertRepository,
	suggestions SuggestionLister,
) *DashboardUseCase {
	return &DashboardUseCase{
		dashboardRepo: dashboardRepo,
		poRepo:        poRepo,
		alertRepo:     alertRepo,
		suggestions:   suggestions,
		now:           time.Now,
	}
}

// GetSummary construye el DashboardSummaryDTO.
//
// Cinco consultas en paralelo:
//  1. CountActiveProducts + CountStockByStatus
//  2. CountByStatus de OC
//  3. CountOverdueOrders
//  4. Counts de alertas
//  5. ListSuggestions (reorden)
func (uc *DashboardUseCase) GetSummary(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	now := uc.now()

	type stockResult struct {
		products int
		counts   *repository.StockStatusCounts
		err      error
	}
	type ordersResult struct {
		byStatus map[string]int
		err      error
	}
	type overdueResult struct {
		n   int
		err error
	}
	type alertsResult struct {
		counts *repository.AlertCounts
		err    error
	}
	type suggestionsResult struct {
		list *dto.ReorderSuggestionListResponse
		err  error
	}

	stockCh := make(chan stockResult, 1)
	ordersCh := make(chan ordersResult, 1)
	overdueCh := make(chan overdueResult, 1)
	alertsCh := make(chan alertsResult, 1)
	suggCh := make(chan suggestionsResult, 1)

	go func() {
		n, err := uc.dashboardRepo.CountActiveProducts(ctx)
		if err != nil {
			stockCh <- stockResult{err: err}
			return
		}
		c, err := uc.dashboardRepo.CountStockByStatus(ctx)
		stockCh <- stockResult{n, c, err}
	}()
	go func() {
		m, err := uc.poRepo.CountByStatus(ctx)
		ordersCh <- ordersResult{m, err}
	}()
	go func() {
		n, err := uc.dashboardRepo.CountOverdueOrders(ctx, now)
		overdueCh <- overdueResult{n, err}
	}()
	go func() {
		c, err := uc.alertRepo.Counts(ctx)
		alertsCh <- alertsResult{c, err}
	}()
	go func() {
		l, err := uc.suggestions.ListSuggestions(ctx, repository.InventoryFilter{})
		suggCh <- suggestionsResult{l, err}
	}()

	stock := <-stockCh
	orders := <-ordersCh
	overdue := <-overdueCh
	alerts := <-alertsCh
	sugg := <-suggCh

	if stock.err != nil {
		return nil, fmt.Errorf("dashboard: stock: %w", stock.err)
	}
	if orders.err != nil {
		return nil, fmt.Errorf("dashboard: órdenes de compra: %w", orders.err)
	}
	if overdue.err != nil {
		return nil, fmt.Errorf("dashboard: OC vencidas: %w", overdue.err)
	}
	if alerts.err != nil {
		return nil, fmt.Errorf("dashboard: alertas: %w", alerts.err)
	}
	if sugg.err != nil {
		return nil, fmt.Errorf("dashboard: sugerencias: %w", sugg.err)
	}

	// ── Construir DTO ──────────────────────────────────────────────────────────
	byStatus := make(map[string]int, len(entity.AllPOStatuses))
	open := 0
	for _, st := range entity.AllPOStatuses {
		byStatus[st] = orders.byStatus[st]
		if entity.IsOpenPOStatus(st) {
			open += orders.byStatus[st]
		}
	}

	top := sugg.list.Items
	if len(top) > dashboardTopSuggestions {
		top = top[:dashboardTopSuggestions]
	}

	return &dto.DashboardSummaryDTO{
		Products:            stock.products,
		LowStock:            stock.counts.LowStock,
		OutOfStock:          stock.counts.OutOfStock,
		OpenOrders:          open,
		OverdueOrders:       overdue.n,
		ActiveAlerts:        alerts.counts.ByStatus[entity.AlertStatusActive],
		OrdersByStatus:      byStatus,
		PendingSuggestions:  len(sugg.list.Items),
		SuggestionsCost:     sugg.list.TotalEstimatedCost.Round(2),
		UnpricedSuggestions: sugg.list.UnpricedCount,
		TopSuggestions:      top,
		GeneratedAt:         now,
	}, nil
}
