package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

const (
	// PerformanceWindowDays ventana de OC considerada al medir la puntualidad de un proveedor.
	PerformanceWindowDays = 90
	// OnTimeThreshold tasa de entregas a tiempo por debajo de la cual se alerta.
	OnTimeThreshold = 0.8
	// onTimeHighThreshold por debajo de esta tasa la alerta de proveedor es HIGH.
	onTimeHighThreshold = 0.5

	// DemandWindowDays días de salidas usados para estimar la demanda diaria.
	DemandWindowDays = 30
	// CoverageDays días de demanda que se consideran stock óptimo.
	CoverageDays = 14
	// OverstockRatio disponible sobre el óptimo a partir del cual hay sobrestock.
	OverstockRatio = 1.5
)

// WithInsights habilita las alertas de desempeño de proveedores y de sobrestock en Scan.
func (uc *UseCase) WithInsights(suppliers repository.SupplierRepository, movements repository.StockMovementRepository) *UseCase {
	uc.supplierRepo = suppliers
	uc.movementRepo = movements
	return uc
}

func (uc *UseCase) insightsEnabled() bool {
	return uc.supplierRepo != nil && uc.movementRepo != nil
}

// ── Desempeño de proveedores ──────────────────────────────────────────────────

// deliveryStats entregas medidas de un proveedor dentro de la ventana.
type deliveryStats struct {
	onTime, late int
}

func (s deliveryStats) measured() int { return s.onTime + s.late }

func (s deliveryStats) rate() float64 {
	if s.measured() == 0 {
		return 1
	}
	return float64(s.onTime) / float64(s.measured())
}

// classifyDelivery cuenta una OC colocada con fecha esperada. Las completas valen por la
// fecha de su última modificación; las abiertas solo cuentan cuando ya vencieron.
func classifyDelivery(po *entity.PurchaseOrder, now time.Time, s *deliveryStats) {
	if po.ExpectedDeliveryDate == nil || !entity.IsPricedPOStatus(po.Status) {
		return
	}
	deadline := startOfDay(po.ExpectedDeliveryDate.In(now.Location())).AddDate(0, 0, 1)
	switch po.Status {
	case entity.POStatusFullyReceived, entity.POStatusClosed:
		if po.UpdatedAt.Before(deadline) {
			s.onTime++
		} else {
			s.late++
		}
	default:
		if !now.Before(deadline) {
			s.late++
		}
	}
}

func supplierTrigger(sp *entity.Supplier, s deliveryStats) *trigger {
	if s.measured() == 0 || s.rate() >= OnTimeThreshold {
		return nil
	}
	sev, prio := entity.SeverityMedium, entity.PriorityNormal
	if s.rate() < onTimeHighThreshold {
		sev, prio = entity.SeverityHigh, entity.PriorityHigh
	}
	return &trigger{
		alertType: entity.AlertTypeSupplierPerformance,
		severity:  sev,
		priority:  prio,
		title:     "Proveedor con entregas tardías: " + sp.Name,
		message: fmt.Sprintf("%s entregó a tiempo %d de %d OC en los últimos %d días (%.0f%%)",
			sp.Name, s.onTime, s.measured(), PerformanceWindowDays, s.rate()*100),
	}
}

func (uc *UseCase) scanSuppliers(ctx context.Context, t *tally) error {
	now := uc.now()
	since := now.AddDate(0, 0, -PerformanceWindowDays)
	for offset := 0; ; offset += scanPageSize {
		page, err := uc.supplierRepo.List(ctx, repository.SupplierFilter{ActiveOnly: true}, scanPageSize, offset)
		if err != nil {
			return fmt.Errorf("alertas: listar proveedores: %w", err)
		}
		for _, sp := range page {
			stats, err := uc.supplierDeliveries(ctx, sp.ID, since, now)
			if err != nil {
				return err
			}
			t.evaluated++
			want := supplierTrigger(sp, stats)
			if want == nil {
				if err := uc.resolve(ctx, entity.AlertTypeSupplierPerformance, entity.AlertRefSupplier, sp.ID, t); err != nil {
					return err
				}
				continue
			}
			if err := uc.raise(ctx, want, entity.AlertRefSupplier, sp.ID, t); err != nil {
				return err
			}
		}
		if len(page) < scanPageSize {
			return nil
		}
	}
}

func (uc *UseCase) supplierDeliveries(ctx context.Context, supplierID string, since, now time.Time) (deliveryStats, error) {
	var stats deliveryStats
	for offset := 0; ; offset += scanPageSize {
		page, err := uc.poRepo.List(ctx, repository.PurchaseOrderFilter{SupplierID: supplierID}, scanPageSize, offset)
		if err != nil {
			return stats, fmt.Errorf("alertas: listar OC del proveedor %s: %w", supplierID, err)
		}
		for _, po := range page {
			if po.OrderDate.Before(since) {
				continue
			}
			classifyDelivery(po, now, &stats)
		}
		if len(page) < scanPageSize {
			return stats, nil
		}
	}
}

// ── Sobrestock ────────────────────────────────────────────────────────────────

// outDemand suma las salidas de la ventana por producto+bodega.
func (uc *UseCase) outDemand(ctx context.Context) (map[string]int64, error) {
	since := uc.now().AddDate(0, 0, -DemandWindowDays)
	out := map[string]int64{}
	filter := repository.MovementFilter{Type: entity.MovementTypeOUT, From: &since}
	for offset := 0; ; offset += scanPageSize {
		page, err := uc.movementRepo.List(ctx, filter, scanPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("alertas: listar salidas: %w", err)
		}
		for _, m := range page {
			out[entity.InventoryAlertRef(m.ProductID, m.WarehouseID)] += m.Quantity
		}
		if len(page) < scanPageSize {
			return out, nil
		}
	}
}

// overstockTrigger compara el disponible con CoverageDays de demanda promedio. Sin salidas en
// la ventana no hay demanda que medir y no se alerta.
func overstockTrigger(rec *entity.InventoryRecord, product *entity.Product, demand int64) *trigger {
	if !product.Active || demand <= 0 {
		return nil
	}
	optimal := float64(demand) / DemandWindowDays * CoverageDays
	available := rec.Available()
	if float64(available) <= optimal*OverstockRatio {
		return nil
	}
	return &trigger{
		alertType: entity.AlertTypeOverstock,
		severity:  entity.SeverityLow,
		priority:  entity.PriorityLow,
		title:     "Sobrestock: " + product.Name,
		message: fmt.Sprintf("%s (%s) tiene %d disponibles para un óptimo de %.0f (%d días de demanda)",
			product.Name, product.SKU, available, optimal, CoverageDays),
	}
}

func (uc *UseCase) evaluateOverstock(ctx context.Context, rec *entity.InventoryRecord, product *entity.Product, demand int64, t *tally) error {
	ref := entity.InventoryAlertRef(rec.ProductID, rec.WarehouseID)
	want := overstockTrigger(rec, product, demand)
	if want == nil {
		return uc.resolve(ctx, entity.AlertTypeOverstock, entity.AlertRefInventory, ref, t)
	}
	return uc.raise(ctx, want, entity.AlertRefInventory, ref, t)
}
