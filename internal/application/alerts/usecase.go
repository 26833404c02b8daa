// Package alerts emite y resuelve alertas a partir del estado de inventario y de las OC.
//
// El emisor es el único escritor de alertas. Se alimenta de dos formas: como observador
// (StockChanged / PurchaseOrderChanged, llamados después de cada commit) y con Scan, que
// recorre todo el estado y corrige lo que los avisos puntuales no cubren (fechas vencidas).
package alerts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/rs/zerolog"
)

const (
	// DueWindowDays días antes de la entrega esperada en que se avisa PURCHASE_ORDER_DUE.
	DueWindowDays = 3
	// lowStockHighRatio profundidad bajo el punto de reorden a partir de la cual LOW_STOCK es HIGH.
	lowStockHighRatio = 0.5

	scanPageSize = 500
	systemActor  = "system"
)

// Recorder recibe las alertas emitidas y resueltas (métricas).
type Recorder interface {
	AlertRaised(alertType, severity string)
	AlertResolved(alertType string)
}

// UseCase emisor de alertas.
type UseCase struct {
	alertRepo     repository.AlertRepository
	inventoryRepo repository.InventoryRecordRepository
	productRepo   repository.ProductRepository
	poRepo        repository.PurchaseOrderRepository
	supplierRepo  repository.SupplierRepository
	movementRepo  repository.StockMovementRepository
	recorder      Recorder
	log           zerolog.Logger
	now           func() time.Time
}

// NewUseCase construye el emisor.
func NewUseCase(
	alertRepo repository.AlertRepository,
	inventoryRepo repository.InventoryRecordRepository,
	productRepo repository.ProductRepository,
	poRepo repository.PurchaseOrderRepository,
	log zerolog.Logger,
) *UseCase {
	return &UseCase{
		alertRepo:     alertRepo,
		inventoryRepo: inventoryRepo,
		productRepo:   productRepo,
		poRepo:        poRepo,
		log:           log,
		now:           time.Now,
	}
}

// WithRecorder registra el colector de métricas.
func (uc *UseCase) WithRecorder(rec Recorder) *UseCase {
	uc.recorder = rec
	return uc
}

// WithClock reemplaza el reloj (pruebas de vencimiento).
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	uc.now = now
	return uc
}

type tally struct {
	evaluated, raised, updated, resolved int
}

// ── Observadores ──────────────────────────────────────────────────────────────

// StockChanged reevalúa las alertas de stock del par producto+bodega.
func (uc *UseCase) StockChanged(ctx context.Context, productID, warehouseID string) {
	if err := uc.EvaluateStock(ctx, productID, warehouseID); err != nil {
		uc.log.Error().Err(err).Str("product_id", productID).Str("warehouse_id", warehouseID).
			Msg("no se pudieron evaluar alertas de stock")
	}
}

// PurchaseOrderChanged reevalúa las alertas de entrega de la OC.
func (uc *UseCase) PurchaseOrderChanged(ctx context.Context, purchaseOrderID string) {
	if err := uc.EvaluatePurchaseOrder(ctx, purchaseOrderID); err != nil {
		uc.log.Error().Err(err).Str("purchase_order_id", purchaseOrderID).
			Msg("no se pudieron evaluar alertas de la OC")
	}
}

// EvaluateStock versión con error de StockChanged.
func (uc *UseCase) EvaluateStock(ctx context.Context, productID, warehouseID string) error {
	rec, err := uc.inventoryRepo.Get(ctx, productID, warehouseID)
	if err != nil {
		return err
	}
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.NotFound("producto %s no existe", productID)
	}
	return uc.evaluateStock(ctx, rec, product, &tally{})
}

// EvaluatePurchaseOrder versión con error de PurchaseOrderChanged.
func (uc *UseCase) EvaluatePurchaseOrder(ctx context.Context, purchaseOrderID string) error {
	po, err := uc.poRepo.GetByID(ctx, purchaseOrderID)
	if err != nil {
		return err
	}
	if po == nil {
		// OC eliminada (DRAFT): no debe quedar ninguna alerta abierta sobre ella.
		t := &tally{}
		for _, typ := range []string{entity.AlertTypePurchaseOrderDue, entity.AlertTypePurchaseOrderOverdue} {
			if err := uc.resolve(ctx, typ, entity.AlertRefPurchaseOrder, purchaseOrderID, t); err != nil {
				return err
			}
		}
		return nil
	}
	return uc.evaluatePurchaseOrder(ctx, po, &tally{})
}

// ── Reglas ────────────────────────────────────────────────────────────────────

type trigger struct {
	alertType string
	severity  string
	priority  string
	title     string
	message   string
}

// stockTrigger decide la alerta de stock vigente para el saldo (nil si no aplica).
func stockTrigger(rec *entity.InventoryRecord, product *entity.Product) *trigger {
	if !product.Active {
		return nil
	}
	available := rec.Available()
	rp := product.ReorderPoint
	switch {
	case available <= 0:
		return &trigger{
			alertType: entity.AlertTypeOutOfStock,
			severity:  entity.SeverityCritical,
			priority:  entity.PriorityUrgent,
			title:     "Producto agotado: " + product.Name,
			message:   fmt.Sprintf("%s (%s) no tiene unidades disponibles en la bodega", product.Name, product.SKU),
		}
	case available <= rp:
		sev, prio := entity.SeverityMedium, entity.PriorityNormal
		if float64(rp-available)/float64(rp) >= lowStockHighRatio {
			sev, prio = entity.SeverityHigh, entity.PriorityHigh
		}
		return &trigger{
			alertType: entity.AlertTypeLowStock,
			severity:  sev,
			priority:  prio,
			title:     "Stock bajo: " + product.Name,
			message:   fmt.Sprintf("%s (%s) tiene %d disponibles, punto de reorden %d", product.Name, product.SKU, available, rp),
		}
	}
	return nil
}

func (uc *UseCase) evaluateStock(ctx context.Context, rec *entity.InventoryRecord, product *entity.Product, t *tally) error {
	t.evaluated++
	ref := entity.InventoryAlertRef(rec.ProductID, rec.WarehouseID)
	want := stockTrigger(rec, product)
	for _, typ := range []string{entity.AlertTypeLowStock, entity.AlertTypeOutOfStock} {
		if want != nil && want.alertType == typ {
			continue
		}
		if err := uc.resolve(ctx, typ, entity.AlertRefInventory, ref, t); err != nil {
			return err
		}
	}
	if want == nil {
		return nil
	}
	return uc.raise(ctx, want, entity.AlertRefInventory, ref, t)
}

// poTrigger decide la alerta de entrega de una OC abierta (nil si no aplica).
func poTrigger(po *entity.PurchaseOrder, now time.Time) *trigger {
	if !entity.IsOpenPOStatus(po.Status) || po.ExpectedDeliveryDate == nil {
		return nil
	}
	today := startOfDay(now)
	expected := startOfDay(po.ExpectedDeliveryDate.In(now.Location()))
	days := int(math.Round(expected.Sub(today).Hours() / 24))
	switch {
	case days < 0:
		late := -days
		return &trigger{
			alertType: entity.AlertTypePurchaseOrderOverdue,
			severity:  entity.SeverityCritical,
			priority:  entity.PriorityUrgent,
			title:     "OC vencida: " + po.PONumber,
			message:   fmt.Sprintf("La OC %s tiene %d días de retraso", po.PONumber, late),
		}
	case days <= DueWindowDays:
		return &trigger{
			alertType: entity.AlertTypePurchaseOrderDue,
			severity:  entity.SeverityHigh,
			priority:  entity.PriorityHigh,
			title:     "OC próxima a vencer: " + po.PONumber,
			message:   fmt.Sprintf("La entrega de la OC %s se espera en %d días", po.PONumber, days),
		}
	}
	return nil
}

func (uc *UseCase) evaluatePurchaseOrder(ctx context.Context, po *entity.PurchaseOrder, t *tally) error {
	t.evaluated++
	want := poTrigger(po, uc.now())
	for _, typ := range []string{entity.AlertTypePurchaseOrderDue, entity.AlertTypePurchaseOrderOverdue} {
		if want != nil && want.alertType == typ {
			continue
		}
		if err := uc.resolve(ctx, typ, entity.AlertRefPurchaseOrder, po.ID, t); err != nil {
			return err
		}
	}
	if want == nil {
		return nil
	}
	return uc.raise(ctx, want, entity.AlertRefPurchaseOrder, po.ID, t)
}

// raise crea la alerta si no hay una abierta con la misma clave. Si ya existe, solo
// actualiza severidad y mensaje cuando cambiaron (p. ej. el stock siguió bajando).
func (uc *UseCase) raise(ctx context.Context, tr *trigger, refType, refID string, t *tally) error {
	open, err := uc.alertRepo.FindOpen(ctx, tr.alertType, refType, refID)
	if err != nil {
		return err
	}
	now := uc.now()
	if open != nil {
		if open.Severity == tr.severity && open.Message == tr.message {
			return nil
		}
		open.Severity = tr.severity
		open.Priority = tr.priority
		open.Title = tr.title
		open.Message = tr.message
		open.UpdatedAt = now
		open.UpdatedBy = systemActor
		if err := uc.alertRepo.Update(ctx, open); err != nil {
			return err
		}
		t.updated++
		return nil
	}

	alert := &entity.Alert{
		ID:            uuid.New().String(),
		AlertType:     tr.alertType,
		Severity:      tr.severity,
		Priority:      tr.priority,
		Status:        entity.AlertStatusActive,
		ReferenceType: refType,
		ReferenceID:   refID,
		Title:         tr.title,
		Message:       tr.message,
		TriggeredAt:   now,
		UpdatedAt:     now,
		UpdatedBy:     systemActor,
	}
	if err := uc.alertRepo.Create(ctx, alert); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			// Otro emisor la creó entre FindOpen y Create.
			return nil
		}
		return err
	}
	t.raised++
	if uc.recorder != nil {
		uc.recorder.AlertRaised(alert.AlertType, alert.Severity)
	}
	uc.log.Info().Str("alert_type", alert.AlertType).Str("reference_id", refID).Str("severity", alert.Severity).
		Msg("alerta emitida")
	return nil
}

// resolve cierra automáticamente la alerta abierta de esa clave, si existe.
func (uc *UseCase) resolve(ctx context.Context, alertType, refType, refID string, t *tally) error {
	open, err := uc.alertRepo.FindOpen(ctx, alertType, refType, refID)
	if err != nil || open == nil {
		return err
	}
	now := uc.now()
	open.Status = entity.AlertStatusResolved
	open.ResolvedAt = &now
	open.UpdatedAt = now
	open.UpdatedBy = systemActor
	open.Notes = appendNote(open.Notes, "Resuelta automáticamente: la condición ya no se cumple")
	if err := uc.alertRepo.Update(ctx, open); err != nil {
		return err
	}
	t.resolved++
	if uc.recorder != nil {
		uc.recorder.AlertResolved(alertType)
	}
	return nil
}

// ── Scan ──────────────────────────────────────────────────────────────────────

// Scan evalúa todos los saldos y todas las OC abiertas; también resuelve alertas de OC que
// ya salieron del conjunto abierto sin pasar por el observador. Con WithInsights evalúa
// además sobrestock por saldo y puntualidad por proveedor.
func (uc *UseCase) Scan(ctx context.Context) (*dto.AlertScanResponse, error) {
	t := &tally{}

	var demand map[string]int64
	if uc.insightsEnabled() {
		var err error
		if demand, err = uc.outDemand(ctx); err != nil {
			return nil, err
		}
	}

	for offset := 0; ; offset += scanPageSize {
		page, err := uc.inventoryRepo.List(ctx, repository.InventoryFilter{}, scanPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("alertas: listar saldos: %w", err)
		}
		for i := range page {
			if err := uc.evaluateStock(ctx, &page[i].Record, &page[i].Product, t); err != nil {
				return nil, err
			}
			if demand != nil {
				rec := &page[i].Record
				d := demand[entity.InventoryAlertRef(rec.ProductID, rec.WarehouseID)]
				if err := uc.evaluateOverstock(ctx, rec, &page[i].Product, d, t); err != nil {
					return nil, err
				}
			}
		}
		if len(page) < scanPageSize {
			break
		}
	}

	open, err := uc.poRepo.ListOpenWithDeliveryDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("alertas: listar OC abiertas: %w", err)
	}
	seen := make(map[string]bool, len(open))
	for _, po := range open {
		seen[po.ID] = true
		if err := uc.evaluatePurchaseOrder(ctx, po, t); err != nil {
			return nil, err
		}
	}

	stale, err := uc.alertRepo.ListOpenByTypes(ctx, []string{entity.AlertTypePurchaseOrderDue, entity.AlertTypePurchaseOrderOverdue})
	if err != nil {
		return nil, err
	}
	for _, a := range stale {
		if seen[a.ReferenceID] {
			continue
		}
		seen[a.ReferenceID] = true
		po, err := uc.poRepo.GetByID(ctx, a.ReferenceID)
		if err != nil {
			return nil, err
		}
		if po == nil {
			if err := uc.resolve(ctx, a.AlertType, a.ReferenceType, a.ReferenceID, t); err != nil {
				return nil, err
			}
			continue
		}
		if err := uc.evaluatePurchaseOrder(ctx, po, t); err != nil {
			return nil, err
		}
	}

	if uc.insightsEnabled() {
		if err := uc.scanSuppliers(ctx, t); err != nil {
			return nil, err
		}
	}

	uc.log.Info().Int("evaluated", t.evaluated).Int("raised", t.raised).Int("resolved", t.resolved).
		Msg("evaluación de alertas terminada")
	return &dto.AlertScanResponse{Evaluated: t.evaluated, Raised: t.raised, Updated: t.updated, Resolved: t.resolved}, nil
}

// ── Gestión manual ────────────────────────────────────────────────────────────

// UpdateStatus cambia el estado de una alerta por acción de un usuario.
func (uc *UseCase) UpdateStatus(ctx context.Context, actorID, id string, in dto.UpdateAlertStatusRequest) (*dto.AlertResponse, error) {
	if !entity.ValidAlertStatus(in.Status) {
		return nil, domain.Validation("estado de alerta desconocido: %q", in.Status)
	}
	alert, err := uc.alertRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, domain.NotFound("alerta %s no existe", id)
	}
	if !entity.CanTransitionAlert(alert.Status, in.Status) {
		return nil, domain.InvalidTransition("no se puede pasar la alerta de %s a %s", alert.Status, in.Status)
	}
	now := uc.now()
	alert.Status = in.Status
	switch in.Status {
	case entity.AlertStatusAcknowledged:
		alert.AcknowledgedAt = &now
	case entity.AlertStatusResolved, entity.AlertStatusDismissed:
		alert.ResolvedAt = &now
	}
	alert.Notes = appendNote(alert.Notes, in.Notes)
	alert.UpdatedAt = now
	alert.UpdatedBy = actorID
	if err := uc.alertRepo.Update(ctx, alert); err != nil {
		return nil, err
	}
	if in.Status == entity.AlertStatusResolved && uc.recorder != nil {
		uc.recorder.AlertResolved(alert.AlertType)
	}
	out := toAlertResponse(alert)
	return &out, nil
}

// GetByID alerta por id (nil si no existe).
func (uc *UseCase) GetByID(ctx context.Context, id string) (*dto.AlertResponse, error) {
	alert, err := uc.alertRepo.GetByID(ctx, id)
	if err != nil || alert == nil {
		return nil, err
	}
	out := toAlertResponse(alert)
	return &out, nil
}

// List lista alertas con filtros.
func (uc *UseCase) List(ctx context.Context, filter repository.AlertFilter, limit, offset int) (*dto.AlertListResponse, error) {
	switch {
	case filter.Status != "" && !entity.ValidAlertStatus(filter.Status):
		return nil, domain.Validation("estado de alerta desconocido: %q", filter.Status)
	case filter.AlertType != "" && !entity.ValidAlertType(filter.AlertType):
		return nil, domain.Validation("tipo de alerta desconocido: %q", filter.AlertType)
	case filter.Severity != "" && !entity.ValidSeverity(filter.Severity):
		return nil, domain.Validation("severidad desconocida: %q", filter.Severity)
	case filter.Priority != "" && !entity.ValidPriority(filter.Priority):
		return nil, domain.Validation("prioridad desconocida: %q", filter.Priority)
	}
	list, err := uc.alertRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.AlertResponse, 0, len(list))
	for _, a := range list {
		items = append(items, toAlertResponse(a))
	}
	return &dto.AlertListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}

// Counts conteos agregados.
func (uc *UseCase) Counts(ctx context.Context) (*dto.AlertCountsResponse, error) {
	c, err := uc.alertRepo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.AlertCountsResponse{
		ByStatus:   c.ByStatus,
		ByType:     c.ByType,
		BySeverity: c.BySeverity,
		Active:     c.ByStatus[entity.AlertStatusActive],
	}, nil
}

func toAlertResponse(a *entity.Alert) dto.AlertResponse {
	return dto.AlertResponse{
		ID:             a.ID,
		AlertType:      a.AlertType,
		Severity:       a.Severity,
		Priority:       a.Priority,
		Status:         a.Status,
		ReferenceType:  a.ReferenceType,
		ReferenceID:    a.ReferenceID,
		Title:          a.Title,
		Message:        a.Message,
		Notes:          a.Notes,
		TriggeredAt:    a.TriggeredAt,
		AcknowledgedAt: a.AcknowledgedAt,
		ResolvedAt:     a.ResolvedAt,
		UpdatedAt:      a.UpdatedAt,
		UpdatedBy:      a.UpdatedBy,
	}
}

func appendNote(current, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return current
	}
	if current == "" {
		return note
	}
	return current + "\n" + note
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
