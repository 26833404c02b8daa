package purchasing

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/ports"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// PurchaseOrderUseCase máquina de estados de las órdenes de compra. Es el único escritor
// del estado y de las cantidades recibidas; cada operación corre en una transacción con la
// fila de la OC bloqueada (SELECT FOR UPDATE).
type PurchaseOrderUseCase struct {
	txRunner   ports.TxRunner
	poRepo     repository.PurchaseOrderRepository
	ledger     StockLedger
	poObserver ports.PurchaseOrderObserver
	stockObs   ports.StockObserver
	recorder   TransitionRecorder
	now        func() time.Time
}

// NewPurchaseOrderUseCase construye el caso de uso.
func NewPurchaseOrderUseCase(txRunner ports.TxRunner, poRepo repository.PurchaseOrderRepository, ledger StockLedger) *PurchaseOrderUseCase {
	return &PurchaseOrderUseCase{
		txRunner: txRunner,
		poRepo:   poRepo,
		ledger:   ledger,
		now:      time.Now,
	}
}

// WithObservers registra los observadores de OC y de stock (emisor de alertas).
func (uc *PurchaseOrderUseCase) WithObservers(po ports.PurchaseOrderObserver, stock ports.StockObserver) *PurchaseOrderUseCase {
	uc.poObserver = po
	uc.stockObs = stock
	return uc
}

// WithRecorder registra el colector de métricas de transiciones.
func (uc *PurchaseOrderUseCase) WithRecorder(rec TransitionRecorder) *PurchaseOrderUseCase {
	uc.recorder = rec
	return uc
}

// ── Creación y edición ────────────────────────────────────────────────────────

// Create valida proveedor, bodega y productos, calcula el total y persiste la OC en DRAFT.
func (uc *PurchaseOrderUseCase) Create(ctx context.Context, actor Actor, in dto.CreatePurchaseOrderRequest) (*dto.PurchaseOrderResponse, error) {
	if !actor.can(ActionCreate) {
		return nil, domain.Forbidden("el rol %q no puede crear órdenes de compra", actor.Role)
	}
	var po *entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		po, err = uc.CreateInTx(ctx, repos, actor, in, uc.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return toPurchaseOrderResponse(po), nil
}

// CreateInTx crea la OC con los repositorios de una transacción abierta (orquestador).
func (uc *PurchaseOrderUseCase) CreateInTx(ctx context.Context, repos ports.TxRepos, actor Actor, in dto.CreatePurchaseOrderRequest, now time.Time) (*entity.PurchaseOrder, error) {
	if err := validateHeader(ctx, repos, in); err != nil {
		return nil, err
	}
	items, err := buildItems(ctx, repos, in.Items)
	if err != nil {
		return nil, err
	}

	orderDate := now
	if in.OrderDate != nil {
		orderDate = *in.OrderDate
	}
	seq, err := repos.PurchaseOrders.NextSequence(ctx, orderDate)
	if err != nil {
		return nil, err
	}

	po := &entity.PurchaseOrder{
		ID:                   uuid.New().String(),
		PONumber:             FormatPONumber(orderDate, seq),
		SupplierID:           in.SupplierID,
		WarehouseID:          in.WarehouseID,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		Status:               entity.POStatusDraft,
		Notes:                in.Notes,
		CreatedBy:            actor.UserID,
		UpdatedBy:            actor.UserID,
		CreatedAt:            now,
		UpdatedAt:            now,
		Items:                items,
	}
	for _, it := range po.Items {
		it.PurchaseOrderID = po.ID
	}
	po.RecalculateTotal()
	if err := repos.PurchaseOrders.Create(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// AddItemInTx agrega una línea a una OC en DRAFT ya bloqueada por el llamador y recalcula el total.
func (uc *PurchaseOrderUseCase) AddItemInTx(ctx context.Context, repos ports.TxRepos, actor Actor, po *entity.PurchaseOrder, line dto.PurchaseOrderItemRequest, now time.Time) error {
	if !actor.can(ActionEdit) {
		return domain.Forbidden("el rol %q no puede editar órdenes de compra", actor.Role)
	}
	if po.Status != entity.POStatusDraft {
		return domain.InvalidTransition("solo se pueden agregar líneas a una OC en DRAFT (actual %s)", po.Status)
	}
	items, err := buildItems(ctx, repos, []dto.PurchaseOrderItemRequest{line})
	if err != nil {
		return err
	}
	item := items[0]
	item.PurchaseOrderID = po.ID
	po.Items = append(po.Items, item)
	po.RecalculateTotal()
	po.UpdatedBy = actor.UserID
	po.UpdatedAt = now
	if err := repos.PurchaseOrders.AddItem(ctx, item); err != nil {
		return err
	}
	return repos.PurchaseOrders.Update(ctx, po)
}

// Update reemplaza cabecera y líneas; solo en DRAFT.
func (uc *PurchaseOrderUseCase) Update(ctx context.Context, actor Actor, id string, in dto.UpdatePurchaseOrderRequest) (*dto.PurchaseOrderResponse, error) {
	if !actor.can(ActionEdit) {
		return nil, domain.Forbidden("el rol %q no puede editar órdenes de compra", actor.Role)
	}
	var po *entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		po, err = lockOrder(ctx, repos, id)
		if err != nil {
			return err
		}
		if po.Status != entity.POStatusDraft {
			return domain.InvalidTransition("solo se puede editar una OC en DRAFT (actual %s)", po.Status)
		}
		if err := validateHeader(ctx, repos, in); err != nil {
			return err
		}
		items, err := buildItems(ctx, repos, in.Items)
		if err != nil {
			return err
		}
		for _, it := range items {
			it.PurchaseOrderID = po.ID
		}
		po.SupplierID = in.SupplierID
		po.WarehouseID = in.WarehouseID
		if in.OrderDate != nil {
			po.OrderDate = *in.OrderDate
		}
		po.ExpectedDeliveryDate = in.ExpectedDeliveryDate
		po.Notes = in.Notes
		po.Items = items
		po.RecalculateTotal()
		po.UpdatedBy = actor.UserID
		po.UpdatedAt = uc.now()
		if err := repos.PurchaseOrders.ReplaceItems(ctx, po.ID, items); err != nil {
			return err
		}
		return repos.PurchaseOrders.Update(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	uc.notifyPO(ctx, po.ID)
	return toPurchaseOrderResponse(po), nil
}

// Delete elimina una OC; solo en DRAFT.
func (uc *PurchaseOrderUseCase) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.can(ActionDelete) {
		return domain.Forbidden("el rol %q no puede eliminar órdenes de compra", actor.Role)
	}
	return uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		po, err := lockOrder(ctx, repos, id)
		if err != nil {
			return err
		}
		if po.Status != entity.POStatusDraft {
			return domain.InvalidTransition("solo se puede eliminar una OC en DRAFT (actual %s)", po.Status)
		}
		return repos.PurchaseOrders.Delete(ctx, id)
	})
}

// ── Transiciones ──────────────────────────────────────────────────────────────

// Transition aplica un cambio de estado manual. Las transiciones ilegales devuelven
// InvalidTransition y la OC queda sin cambios.
func (uc *PurchaseOrderUseCase) Transition(ctx context.Context, actor Actor, id string, in dto.UpdatePurchaseOrderStatusRequest) (*dto.PurchaseOrderResponse, error) {
	if !entity.ValidPOStatus(in.Status) {
		return nil, domain.Validation("estado desconocido: %q", in.Status)
	}
	if !actor.can(actionForStatus(in.Status)) {
		return nil, domain.Forbidden("el rol %q no puede llevar una OC a %s", actor.Role, in.Status)
	}
	var po *entity.PurchaseOrder
	var from string
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		po, err = lockOrder(ctx, repos, id)
		if err != nil {
			return err
		}
		from = po.Status
		return uc.TransitionInTx(ctx, repos, actor, po, in.Status, in.Notes, uc.now())
	})
	if err != nil {
		return nil, err
	}
	uc.afterTransition(ctx, po.ID, from, po.Status)
	return toPurchaseOrderResponse(po), nil
}

// TransitionInTx aplica la transición sobre una OC ya bloqueada por el llamador.
func (uc *PurchaseOrderUseCase) TransitionInTx(ctx context.Context, repos ports.TxRepos, actor Actor, po *entity.PurchaseOrder, to, notes string, now time.Time) error {
	if !actor.can(actionForStatus(to)) {
		return domain.Forbidden("el rol %q no puede llevar una OC a %s", actor.Role, to)
	}
	if to == entity.POStatusPartiallyReceived || to == entity.POStatusFullyReceived {
		return domain.InvalidTransition("%s solo se alcanza registrando recepciones", to)
	}
	if !entity.CanTransitionPO(po.Status, to) {
		return domain.InvalidTransition("no se puede pasar de %s a %s", po.Status, to)
	}
	po.Status = to
	po.Notes = appendNote(po.Notes, notes)
	po.UpdatedBy = actor.UserID
	po.UpdatedAt = now
	return repos.PurchaseOrders.Update(ctx, po)
}

// Close marca la OC como cerrada (solo desde FULLY_RECEIVED o CANCELLED).
func (uc *PurchaseOrderUseCase) Close(ctx context.Context, actor Actor, id, notes string) (*dto.PurchaseOrderResponse, error) {
	return uc.Transition(ctx, actor, id, dto.UpdatePurchaseOrderStatusRequest{Status: entity.POStatusClosed, Notes: notes})
}

// ── Recepción ─────────────────────────────────────────────────────────────────

type receiptLine struct {
	item  *entity.PurchaseOrderItem
	qty   int64
	notes string
}

// Receive registra mercancía recibida. Todas las líneas se validan antes de escribir:
// si una falla, no se aplica ningún movimiento. Cada línea genera una entrada IN en el ledger
// referenciando la línea de la OC.
func (uc *PurchaseOrderUseCase) Receive(ctx context.Context, actor Actor, id string, in dto.ReceivePurchaseOrderRequest) (*dto.PurchaseOrderResponse, error) {
	if !actor.can(ActionReceive) {
		return nil, domain.Forbidden("el rol %q no puede recibir mercancía", actor.Role)
	}
	if len(in.ReceivedItems) == 0 {
		return nil, domain.Validation("received_items debe tener al menos una línea")
	}
	for _, r := range in.ReceivedItems {
		if r.ItemID == "" {
			return nil, domain.Validation("item_id es requerido")
		}
		if r.QuantityReceived <= 0 {
			return nil, domain.Validation("quantity_received debe ser positivo (línea %s)", r.ItemID)
		}
	}

	var po *entity.PurchaseOrder
	var from string
	var touched []string
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		po, err = lockOrder(ctx, repos, id)
		if err != nil {
			return err
		}
		from = po.Status
		// En FULLY_RECEIVED cualquier cantidad excede lo ordenado: planReceipt lo reporta como OverReceipt.
		if !entity.CanReceivePO(po.Status) && po.Status != entity.POStatusFullyReceived {
			return domain.InvalidTransition("no se puede recibir una OC en estado %s", po.Status)
		}

		lines, err := uc.planReceipt(ctx, repos, po, in)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil // reintento de una recepción ya aplicada
		}

		now := uc.now()
		for _, l := range lines {
			unitPrice := l.item.UnitPrice
			res, err := uc.ledger.ApplyMovementInTx(ctx, repos, inventory.MovementInput{
				ProductID:     l.item.ProductID,
				WarehouseID:   po.WarehouseID,
				Type:          entity.MovementTypeIN,
				Quantity:      l.qty,
				ReferenceType: entity.ReferencePurchaseOrderItem,
				ReferenceID:   receiptReference(l.item, in.ReceiptID),
				Notes:         firstNonEmpty(l.notes, "Recepción "+po.PONumber),
				ActorID:       actor.UserID,
				UnitCost:      &unitPrice,
			}, now)
			if err != nil {
				return err
			}
			if res.Duplicate {
				continue
			}
			l.item.QuantityReceived += l.qty
			if err := repos.PurchaseOrders.UpdateItem(ctx, l.item); err != nil {
				return err
			}
			touched = append(touched, l.item.ProductID)
		}
		if len(touched) == 0 {
			return nil
		}

		if po.AllReceived() {
			po.Status = entity.POStatusFullyReceived
		} else {
			po.Status = entity.POStatusPartiallyReceived
		}
		po.UpdatedBy = actor.UserID
		po.UpdatedAt = now
		return repos.PurchaseOrders.Update(ctx, po)
	})
	if err != nil {
		return nil, err
	}

	if len(touched) > 0 {
		uc.afterTransition(ctx, po.ID, from, po.Status)
		if uc.stockObs != nil {
			for _, productID := range touched {
				uc.stockObs.StockChanged(ctx, productID, po.WarehouseID)
			}
		}
	}
	return toPurchaseOrderResponse(po), nil
}

// planReceipt agrupa por línea, descarta recepciones ya aplicadas (mismo receipt_id) y
// rechaza todo el lote si alguna línea excede lo ordenado. Devuelve las líneas ordenadas por
// producto para bloquear los saldos siempre en el mismo orden.
func (uc *PurchaseOrderUseCase) planReceipt(ctx context.Context, repos ports.TxRepos, po *entity.PurchaseOrder, in dto.ReceivePurchaseOrderRequest) ([]*receiptLine, error) {
	byItem := make(map[string]*receiptLine, len(in.ReceivedItems))
	order := make([]string, 0, len(in.ReceivedItems))
	for _, r := range in.ReceivedItems {
		item := po.ItemByID(r.ItemID)
		if item == nil {
			return nil, domain.NotFound("la línea %s no pertenece a la OC %s", r.ItemID, po.PONumber)
		}
		if l, ok := byItem[r.ItemID]; ok {
			l.qty += r.QuantityReceived
			continue
		}
		byItem[r.ItemID] = &receiptLine{item: item, qty: r.QuantityReceived, notes: r.Notes}
		order = append(order, r.ItemID)
	}

	lines := make([]*receiptLine, 0, len(order))
	for _, itemID := range order {
		l := byItem[itemID]
		if in.ReceiptID != "" {
			applied, err := repos.Movements.ExistsReference(ctx, l.item.ProductID, po.WarehouseID,
				entity.ReferencePurchaseOrderItem, receiptReference(l.item, in.ReceiptID))
			if err != nil {
				return nil, err
			}
			if applied {
				continue
			}
		}
		if l.item.QuantityReceived+l.qty > l.item.QuantityOrdered {
			return nil, domain.OverReceipt("línea %s: recibido %d + %d supera lo ordenado (%d)",
				l.item.ID, l.item.QuantityReceived, l.qty, l.item.QuantityOrdered)
		}
		lines = append(lines, l)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].item.ProductID < lines[j].item.ProductID })
	return lines, nil
}

// receiptReference identifica una recepción de una línea: <item>:r:<receipt_id> con el id del
// cliente, o <item>:n:<recibido previo>, único porque quantityReceived solo crece. Los prefijos
// separan ambos espacios: un receipt_id "40" no choca con la recepción que partió de 40.
func receiptReference(item *entity.PurchaseOrderItem, receiptID string) string {
	if receiptID != "" {
		return item.ID + ":r:" + receiptID
	}
	return item.ID + ":n:" + strconv.FormatInt(item.QuantityReceived, 10)
}

// ── Consultas ─────────────────────────────────────────────────────────────────

// GetByID obtiene una OC con sus líneas (nil si no existe).
func (uc *PurchaseOrderUseCase) GetByID(ctx context.Context, id string) (*dto.PurchaseOrderResponse, error) {
	po, err := uc.poRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, nil
	}
	return toPurchaseOrderResponse(po), nil
}

// List lista OC con filtros y paginación.
func (uc *PurchaseOrderUseCase) List(ctx context.Context, filter repository.PurchaseOrderFilter, limit, offset int) (*dto.PurchaseOrderListResponse, error) {
	if filter.Status != "" && !entity.ValidPOStatus(filter.Status) {
		return nil, domain.Validation("estado desconocido: %q", filter.Status)
	}
	list, err := uc.poRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.PurchaseOrderResponse, 0, len(list))
	for _, po := range list {
		items = append(items, *toPurchaseOrderResponse(po))
	}
	return &dto.PurchaseOrderListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}

// Counts conteo de OC por estado.
func (uc *PurchaseOrderUseCase) Counts(ctx context.Context) (*dto.PurchaseOrderCountsResponse, error) {
	counts, err := uc.poRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := &dto.PurchaseOrderCountsResponse{ByStatus: make(map[string]int, len(entity.AllPOStatuses))}
	for _, st := range entity.AllPOStatuses {
		out.ByStatus[st] = counts[st]
		out.Total += counts[st]
	}
	return out, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func lockOrder(ctx context.Context, repos ports.TxRepos, id string) (*entity.PurchaseOrder, error) {
	po, err := repos.PurchaseOrders.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, domain.NotFound("orden de compra %s no existe", id)
	}
	return po, nil
}

func validateHeader(ctx context.Context, repos ports.TxRepos, in dto.CreatePurchaseOrderRequest) error {
	if in.SupplierID == "" || in.WarehouseID == "" {
		return domain.Validation("supplier_id y warehouse_id son requeridos")
	}
	if len(in.Items) == 0 {
		return domain.Validation("la orden debe tener al menos una línea")
	}
	if in.OrderDate != nil && in.ExpectedDeliveryDate != nil && in.ExpectedDeliveryDate.Before(*in.OrderDate) {
		return domain.Validation("expected_delivery_date no puede ser anterior a order_date")
	}
	supplier, err := repos.Suppliers.GetByID(ctx, in.SupplierID)
	if err != nil {
		return err
	}
	if supplier == nil || !supplier.Active {
		return domain.NotFound("proveedor %s no existe o está inactivo", in.SupplierID)
	}
	wh, err := repos.Warehouses.GetByID(ctx, in.WarehouseID)
	if err != nil {
		return err
	}
	if wh == nil || !wh.Active {
		return domain.NotFound("bodega %s no existe o está inactiva", in.WarehouseID)
	}
	return nil
}

func buildItems(ctx context.Context, repos ports.TxRepos, lines []dto.PurchaseOrderItemRequest) ([]*entity.PurchaseOrderItem, error) {
	if len(lines) == 0 {
		return nil, domain.Validation("la orden debe tener al menos una línea")
	}
	items := make([]*entity.PurchaseOrderItem, 0, len(lines))
	for i, l := range lines {
		if l.QuantityOrdered <= 0 {
			return nil, domain.Validation("línea %d: quantity_ordered debe ser positivo", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return nil, domain.Validation("línea %d: unit_price no puede ser negativo", i+1)
		}
		product, err := repos.Products.GetByID(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || !product.Active {
			return nil, domain.NotFound("línea %d: producto %s no existe o está inactivo", i+1, l.ProductID)
		}
		items = append(items, &entity.PurchaseOrderItem{
			ID:              uuid.New().String(),
			ProductID:       l.ProductID,
			QuantityOrdered: l.QuantityOrdered,
			UnitPrice:       l.UnitPrice,
			TotalPrice:      l.UnitPrice.Mul(decimal.NewFromInt(l.QuantityOrdered)),
			Notes:           l.Notes,
		})
	}
	return items, nil
}

func (uc *PurchaseOrderUseCase) afterTransition(ctx context.Context, poID, from, to string) {
	if from != to && uc.recorder != nil {
		uc.recorder.PurchaseOrderTransition(from, to)
	}
	uc.notifyPO(ctx, poID)
}

func (uc *PurchaseOrderUseCase) notifyPO(ctx context.Context, poID string) {
	if uc.poObserver != nil {
		uc.poObserver.PurchaseOrderChanged(ctx, poID)
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func toPurchaseOrderResponse(po *entity.PurchaseOrder) *dto.PurchaseOrderResponse {
	items := make([]dto.PurchaseOrderItemResponse, 0, len(po.Items))
	for _, it := range po.Items {
		items = append(items, dto.PurchaseOrderItemResponse{
			ID:                it.ID,
			ProductID:         it.ProductID,
			QuantityOrdered:   it.QuantityOrdered,
			QuantityReceived:  it.QuantityReceived,
			RemainingQuantity: it.RemainingQuantity(),
			PartiallyReceived: it.PartiallyReceived(),
			FullyReceived:     it.FullyReceived(),
			UnitPrice:         it.UnitPrice,
			TotalPrice:        it.TotalPrice,
			Notes:             it.Notes,
		})
	}
	return &dto.PurchaseOrderResponse{
		ID:                   po.ID,
		PONumber:             po.PONumber,
		SupplierID:           po.SupplierID,
		WarehouseID:          po.WarehouseID,
		OrderDate:            po.OrderDate,
		ExpectedDeliveryDate: po.ExpectedDeliveryDate,
		Status:               po.Status,
		TotalAmount:          po.TotalAmount,
		Notes:                po.Notes,
		CreatedBy:            po.CreatedBy,
		UpdatedBy:            po.UpdatedBy,
		CreatedAt:            po.CreatedAt,
		UpdatedAt:            po.UpdatedAt,
		Items:                items,
	}
}
