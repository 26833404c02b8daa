// Package procurement convierte las sugerencias de reposición en órdenes de compra enviadas.
//
// El orquestador no guarda estado entre ciclos: cada ejecución recalcula las sugerencias y,
// por cada una, abre una transacción con un advisory lock por (proveedor, bodega) para que
// dos ciclos concurrentes nunca creen OC duplicadas.
package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/ports"
	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/rs/zerolog"
)

const (
	// DefaultLeadTimeDays días hasta la entrega esperada de una OC automática.
	DefaultLeadTimeDays = 7
	// AutoGeneratedNote nota de las OC creadas por el orquestador.
	AutoGeneratedNote = "Generada automáticamente"

	maxAttempts = 3
)

// Motivos de omisión.
const (
	SkipNoSupplier   = "sin proveedor activo con historial de precios"
	SkipPendingOrder = "ya existe una OC en curso con el producto"
	SkipNotFound     = "sin sugerencia de reposición para el producto en la bodega"
)

// SuggestionSource fuente de sugerencias (lo implementa *inventory.ReorderAdvisor).
type SuggestionSource interface {
	ComputeSuggestions(ctx context.Context, filter repository.InventoryFilter) ([]inventory.Suggestion, error)
}

// OrderWriter operaciones de la máquina de estados que el orquestador usa dentro de su
// propia transacción (lo implementa *purchasing.PurchaseOrderUseCase).
type OrderWriter interface {
	CreateInTx(ctx context.Context, repos ports.TxRepos, actor purchasing.Actor, in dto.CreatePurchaseOrderRequest, now time.Time) (*entity.PurchaseOrder, error)
	AddItemInTx(ctx context.Context, repos ports.TxRepos, actor purchasing.Actor, po *entity.PurchaseOrder, line dto.PurchaseOrderItemRequest, now time.Time) error
	TransitionInTx(ctx context.Context, repos ports.TxRepos, actor purchasing.Actor, po *entity.PurchaseOrder, to, notes string, now time.Time) error
}

// CycleRecorder recibe el resultado de cada ciclo (métricas).
type CycleRecorder interface {
	ProcurementCycle(created, appended, skipped, failed int, elapsed time.Duration)
}

// Orchestrator ejecuta ciclos de compra automática.
type Orchestrator struct {
	txRunner     ports.TxRunner
	advisor      SuggestionSource
	orders       OrderWriter
	poObserver   ports.PurchaseOrderObserver
	recorder     CycleRecorder
	leadTimeDays int
	log          zerolog.Logger
	now          func() time.Time
}

// NewOrchestrator construye el orquestador. leadTimeDays ≤ 0 usa DefaultLeadTimeDays.
func NewOrchestrator(txRunner ports.TxRunner, advisor SuggestionSource, orders OrderWriter, leadTimeDays int, log zerolog.Logger) *Orchestrator {
	if leadTimeDays <= 0 {
		leadTimeDays = DefaultLeadTimeDays
	}
	return &Orchestrator{
		txRunner:     txRunner,
		advisor:      advisor,
		orders:       orders,
		leadTimeDays: leadTimeDays,
		log:          log,
		now:          time.Now,
	}
}

// WithObserver recibe los cambios de OC después de cada commit (alertas).
func (o *Orchestrator) WithObserver(obs ports.PurchaseOrderObserver) *Orchestrator {
	o.poObserver = obs
	return o
}

// WithRecorder registra el colector de métricas.
func (o *Orchestrator) WithRecorder(rec CycleRecorder) *Orchestrator {
	o.recorder = rec
	return o
}

// RunCycle procesa todas las sugerencias (opcionalmente de una sola bodega).
// El fallo de un producto se registra y el ciclo continúa.
func (o *Orchestrator) RunCycle(ctx context.Context, actor purchasing.Actor, warehouseID string) (*dto.CycleReportDTO, error) {
	return o.run(ctx, actor, repository.InventoryFilter{WarehouseID: warehouseID})
}

// RunForProduct procesa solo la sugerencia de un producto en una bodega.
func (o *Orchestrator) RunForProduct(ctx context.Context, actor purchasing.Actor, productID, warehouseID string) (*dto.CycleReportDTO, error) {
	if productID == "" || warehouseID == "" {
		return nil, domain.Validation("product_id y warehouse_id son requeridos")
	}
	report, err := o.run(ctx, actor, repository.InventoryFilter{ProductID: productID, WarehouseID: warehouseID})
	if err != nil {
		return nil, err
	}
	if report.Suggestions == 0 {
		report.Skipped = append(report.Skipped, dto.CycleSkipDTO{ProductID: productID, WarehouseID: warehouseID, Reason: SkipNotFound})
	}
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, actor purchasing.Actor, filter repository.InventoryFilter) (*dto.CycleReportDTO, error) {
	started := o.now()
	report := &dto.CycleReportDTO{
		StartedAt: started,
		Created:   []dto.CycleOrderDTO{},
		Appended:  []dto.CycleOrderDTO{},
		Submitted: []string{},
		Skipped:   []dto.CycleSkipDTO{},
		Failed:    []dto.CycleFailureDTO{},
	}

	suggestions, err := o.advisor.ComputeSuggestions(ctx, filter)
	if err != nil {
		return nil, err
	}
	report.Suggestions = len(suggestions)
	o.log.Info().Int("suggestions", len(suggestions)).Str("warehouse_id", filter.WarehouseID).Msg("ciclo de compras iniciado")

	for _, s := range suggestions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l := o.log.With().Str("product_id", s.ProductID).Str("warehouse_id", s.WarehouseID).Logger()

		if !s.Orderable() {
			report.Skipped = append(report.Skipped, dto.CycleSkipDTO{ProductID: s.ProductID, WarehouseID: s.WarehouseID, Reason: SkipNoSupplier})
			l.Debug().Msg("sugerencia omitida: sin proveedor")
			continue
		}

		out, err := o.processWithRetry(ctx, actor, s)
		if err != nil {
			l.Error().Err(err).Msg("no se pudo generar la OC para la sugerencia")
			report.Failed = append(report.Failed, dto.CycleFailureDTO{
				ProductID:   s.ProductID,
				WarehouseID: s.WarehouseID,
				Code:        string(domain.KindOf(err)),
				Message:     err.Error(),
			})
			continue
		}
		if out.skipped {
			report.Skipped = append(report.Skipped, dto.CycleSkipDTO{ProductID: s.ProductID, WarehouseID: s.WarehouseID, Reason: SkipPendingOrder})
			continue
		}

		if out.created {
			report.Created = append(report.Created, out.order)
		} else {
			report.Appended = append(report.Appended, out.order)
		}
		report.Submitted = append(report.Submitted, out.order.PONumber)
		l.Info().Str("po_number", out.order.PONumber).Int64("quantity", s.SuggestedQuantity).Msg("OC automática enviada")
		if o.poObserver != nil {
			o.poObserver.PurchaseOrderChanged(ctx, out.order.PurchaseOrderID)
		}
	}

	report.FinishedAt = o.now()
	if o.recorder != nil {
		o.recorder.ProcurementCycle(len(report.Created), len(report.Appended), len(report.Skipped), len(report.Failed), report.FinishedAt.Sub(started))
	}
	o.log.Info().
		Int("created", len(report.Created)).
		Int("appended", len(report.Appended)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Msg("ciclo de compras terminado")
	return report, nil
}

type outcome struct {
	order   dto.CycleOrderDTO
	created bool
	skipped bool
}

// processWithRetry reintenta cuando la BD reporta contención (errores reintentables).
func (o *Orchestrator) processWithRetry(ctx context.Context, actor purchasing.Actor, s inventory.Suggestion) (*outcome, error) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var out *outcome
		out, err = o.process(ctx, actor, s)
		if err == nil {
			return out, nil
		}
		var de *domain.Error
		if !errors.As(err, &de) || de.Kind != domain.KindConflict {
			return nil, err
		}
		o.log.Warn().Err(err).Int("attempt", attempt).Str("product_id", s.ProductID).Msg("conflicto de concurrencia, reintentando")
	}
	return nil, err
}

func (o *Orchestrator) process(ctx context.Context, actor purchasing.Actor, s inventory.Suggestion) (*outcome, error) {
	var out outcome
	err := o.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		if err := repos.PurchaseOrders.LockSupplierWarehouse(ctx, s.SupplierID, s.WarehouseID); err != nil {
			return err
		}
		pending, err := repos.PurchaseOrders.HasPendingOrderFor(ctx, s.SupplierID, s.WarehouseID, s.ProductID)
		if err != nil {
			return err
		}
		if pending {
			out.skipped = true
			return nil
		}

		now := o.now()
		line := dto.PurchaseOrderItemRequest{
			ProductID:       s.ProductID,
			QuantityOrdered: s.SuggestedQuantity,
			UnitPrice:       *s.UnitPrice,
		}

		draft, err := repos.PurchaseOrders.FindOpenDraft(ctx, s.SupplierID, s.WarehouseID)
		if err != nil {
			return err
		}
		var po *entity.PurchaseOrder
		if draft != nil {
			if po, err = repos.PurchaseOrders.GetForUpdate(ctx, draft.ID); err != nil {
				return err
			}
			if err := o.orders.AddItemInTx(ctx, repos, actor, po, line, now); err != nil {
				return err
			}
		} else {
			expected := startOfDay(now).AddDate(0, 0, o.leadTimeDays)
			po, err = o.orders.CreateInTx(ctx, repos, actor, dto.CreatePurchaseOrderRequest{
				SupplierID:           s.SupplierID,
				WarehouseID:          s.WarehouseID,
				ExpectedDeliveryDate: &expected,
				Notes:                AutoGeneratedNote,
				Items:                []dto.PurchaseOrderItemRequest{line},
			}, now)
			if err != nil {
				return err
			}
			out.created = true
		}

		if err := o.orders.TransitionInTx(ctx, repos, actor, po, entity.POStatusSubmitted, "", now); err != nil {
			return err
		}
		out.order = dto.CycleOrderDTO{
			PurchaseOrderID: po.ID,
			PONumber:        po.PONumber,
			SupplierID:      po.SupplierID,
			WarehouseID:     po.WarehouseID,
			ProductID:       s.ProductID,
			Quantity:        s.SuggestedQuantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
