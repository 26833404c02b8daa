package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/application/ports"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	domaininv "github.com/jhoicas/procurement-api/internal/domain/inventory"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// MovementRecorder recibe cada movimiento aplicado (métricas).
type MovementRecorder interface {
	MovementApplied(movementType string, duplicate bool)
}

// LedgerUseCase es el único escritor de saldos y movimientos de inventario.
// Cada operación corre en una transacción con bloqueo de fila (SELECT FOR UPDATE) sobre el par producto+bodega.
type LedgerUseCase struct {
	txRunner      ports.TxRunner
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	inventoryRepo repository.InventoryRecordRepository
	movementRepo  repository.StockMovementRepository
	observer      ports.StockObserver
	recorder      MovementRecorder
	now           func() time.Time
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(
	txRunner ports.TxRunner,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	inventoryRepo repository.InventoryRecordRepository,
	movementRepo repository.StockMovementRepository,
) *LedgerUseCase {
	return &LedgerUseCase{
		txRunner:      txRunner,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		inventoryRepo: inventoryRepo,
		movementRepo:  movementRepo,
		now:           time.Now,
	}
}

// WithObserver registra quien recibe los cambios de saldo después del commit.
func (uc *LedgerUseCase) WithObserver(obs ports.StockObserver) *LedgerUseCase {
	uc.observer = obs
	return uc
}

// WithRecorder registra el colector de métricas.
func (uc *LedgerUseCase) WithRecorder(rec MovementRecorder) *LedgerUseCase {
	uc.recorder = rec
	return uc
}

// MovementInput entrada de ApplyMovement. Quantity siempre positiva; el sentido lo da Type
// (o Direction para ADJUSTMENT/TRANSFER, por defecto +1).
type MovementInput struct {
	ProductID     string
	WarehouseID   string
	Type          string
	Direction     int
	Quantity      int64
	ReferenceType string
	ReferenceID   string
	Notes         string
	ActorID       string
	UnitCost      *decimal.Decimal // opcional en IN: recalcula el costo promedio del producto
}

// MovementResult saldo resultante y movimiento creado. Duplicate indica que la referencia ya existía.
type MovementResult struct {
	Record    *entity.InventoryRecord
	Movement  *entity.StockMovement
	Duplicate bool
}

func normalizeMovement(in *MovementInput) error {
	if in.ProductID == "" || in.WarehouseID == "" {
		return domain.Validation("product_id y warehouse_id son requeridos")
	}
	if !entity.ValidMovementType(in.Type) {
		return domain.Validation("tipo de movimiento desconocido: %q", in.Type)
	}
	if in.Quantity <= 0 {
		return domain.Validation("la cantidad debe ser un entero positivo")
	}
	switch in.Type {
	case entity.MovementTypeIN:
		in.Direction = 1
	case entity.MovementTypeOUT:
		in.Direction = -1
	default:
		if in.Direction == 0 {
			in.Direction = 1
		}
		if in.Direction != 1 && in.Direction != -1 {
			return domain.Validation("direction debe ser 1 o -1")
		}
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return domain.Validation("unit_cost no puede ser negativo")
	}
	if in.ReferenceType == "" {
		in.ReferenceType = entity.ReferenceManual
	}
	return nil
}

// ApplyMovement valida producto y bodega, y aplica el movimiento en su propia transacción.
func (uc *LedgerUseCase) ApplyMovement(ctx context.Context, in MovementInput) (*dto.MovementResultResponse, error) {
	if err := normalizeMovement(&in); err != nil {
		return nil, err
	}
	if err := uc.checkRefs(ctx, in.ProductID, in.WarehouseID); err != nil {
		return nil, err
	}

	var res *MovementResult
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		res, err = uc.ApplyMovementInTx(ctx, repos, in, uc.now())
		return err
	})
	if errors.Is(err, domain.ErrDuplicateReference) {
		// Carrera perdida contra el índice único: mismo efecto que la verificación previa.
		rec, getErr := uc.inventoryRepo.Get(ctx, in.ProductID, in.WarehouseID)
		if getErr != nil {
			return nil, getErr
		}
		res, err = &MovementResult{Record: rec, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}

	uc.afterCommit(ctx, in.Type, res.Duplicate, in.ProductID, in.WarehouseID)
	return toMovementResultResponse(res), nil
}

// ApplyMovementInTx aplica un movimiento con los repositorios de una transacción abierta por el llamador
// (recepción de OC). Bloquea el saldo, verifica idempotencia, valida el resultado y registra el movimiento.
func (uc *LedgerUseCase) ApplyMovementInTx(ctx context.Context, repos ports.TxRepos, in MovementInput, now time.Time) (*MovementResult, error) {
	if err := normalizeMovement(&in); err != nil {
		return nil, err
	}

	rec, err := repos.Inventory.GetForUpdate(ctx, in.ProductID, in.WarehouseID)
	if err != nil {
		return nil, err
	}

	if in.ReferenceID != "" {
		exists, err := repos.Movements.ExistsReference(ctx, in.ProductID, in.WarehouseID, in.ReferenceType, in.ReferenceID)
		if err != nil {
			return nil, err
		}
		if exists {
			return &MovementResult{Record: rec, Duplicate: true}, nil
		}
	}

	delta := in.Quantity * int64(in.Direction)
	newOnHand := rec.QuantityOnHand + delta
	if newOnHand < 0 {
		return nil, domain.InsufficientStock("stock insuficiente: disponible en bodega %d, solicitado %d", rec.QuantityOnHand, in.Quantity)
	}
	if newOnHand < rec.QuantityReserved {
		return nil, domain.InsufficientAvailable("la salida dejaría %d unidades reservadas sin respaldo", rec.QuantityReserved-newOnHand)
	}

	if delta > 0 && in.UnitCost != nil {
		product, err := repos.Products.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, domain.NotFound("producto %s no existe", in.ProductID)
		}
		newCost := domaininv.WeightedCost(rec.QuantityOnHand, product.CostPrice, in.Quantity, *in.UnitCost)
		if err := repos.Products.UpdateCost(ctx, in.ProductID, newCost); err != nil {
			return nil, err
		}
	}

	rec.QuantityOnHand = newOnHand
	rec.LastUpdatedAt = now
	if err := repos.Inventory.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     in.ProductID,
		WarehouseID:   in.WarehouseID,
		Type:          in.Type,
		Direction:     in.Direction,
		Quantity:      in.Quantity,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Notes:         in.Notes,
		CreatedAt:     now,
		CreatedBy:     in.ActorID,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	return &MovementResult{Record: rec, Movement: mov}, nil
}

// TransferInput traslado entre dos bodegas.
type TransferInput struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        int64
	ReferenceID     string
	Notes           string
	ActorID         string
}

// Transfer resta de la bodega origen y suma en destino en la misma transacción (dos movimientos TRANSFER).
func (uc *LedgerUseCase) Transfer(ctx context.Context, in TransferInput) (*dto.TransferResponse, error) {
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, domain.Validation("la bodega origen y destino deben ser distintas")
	}
	if in.Quantity <= 0 {
		return nil, domain.Validation("la cantidad debe ser un entero positivo")
	}
	if err := uc.checkRefs(ctx, in.ProductID, in.FromWarehouseID); err != nil {
		return nil, err
	}
	if err := uc.checkRefs(ctx, in.ProductID, in.ToWarehouseID); err != nil {
		return nil, err
	}
	if in.ReferenceID == "" {
		in.ReferenceID = uuid.New().String()
	}

	leg := func(warehouseID string, direction int) MovementInput {
		return MovementInput{
			ProductID:     in.ProductID,
			WarehouseID:   warehouseID,
			Type:          entity.MovementTypeTRANSFER,
			Direction:     direction,
			Quantity:      in.Quantity,
			ReferenceType: entity.ReferenceTransfer,
			ReferenceID:   in.ReferenceID,
			Notes:         in.Notes,
			ActorID:       in.ActorID,
		}
	}

	var from, to *MovementResult
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		now := uc.now()
		// Orden fijo de bloqueo por id de bodega para evitar deadlocks entre traslados cruzados.
		first, second := leg(in.FromWarehouseID, -1), leg(in.ToWarehouseID, 1)
		swapped := in.ToWarehouseID < in.FromWarehouseID
		if swapped {
			if _, err := repos.Inventory.GetForUpdate(ctx, in.ProductID, in.ToWarehouseID); err != nil {
				return err
			}
		}
		var err error
		if from, err = uc.ApplyMovementInTx(ctx, repos, first, now); err != nil {
			return err
		}
		to, err = uc.ApplyMovementInTx(ctx, repos, second, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	dup := from.Duplicate && to.Duplicate
	uc.afterCommit(ctx, entity.MovementTypeTRANSFER, dup, in.ProductID, in.FromWarehouseID)
	if uc.observer != nil {
		uc.observer.StockChanged(ctx, in.ProductID, in.ToWarehouseID)
	}
	return &dto.TransferResponse{
		From:      toRecordResponse(from.Record),
		To:        toRecordResponse(to.Record),
		Duplicate: dup,
	}, nil
}

// Reserve aparta unidades del disponible sin tocar el on-hand.
func (uc *LedgerUseCase) Reserve(ctx context.Context, productID, warehouseID string, quantity int64) (*dto.InventoryRecordResponse, error) {
	if quantity <= 0 {
		return nil, domain.Validation("la cantidad a reservar debe ser un entero positivo")
	}
	return uc.adjustReserved(ctx, productID, warehouseID, quantity)
}

// Release devuelve unidades reservadas al disponible.
func (uc *LedgerUseCase) Release(ctx context.Context, productID, warehouseID string, quantity int64) (*dto.InventoryRecordResponse, error) {
	if quantity <= 0 {
		return nil, domain.Validation("la cantidad a liberar debe ser un entero positivo")
	}
	return uc.adjustReserved(ctx, productID, warehouseID, -quantity)
}

// adjustReserved recibe delta ya validado: positivo reserva, negativo libera.
func (uc *LedgerUseCase) adjustReserved(ctx context.Context, productID, warehouseID string, delta int64) (*dto.InventoryRecordResponse, error) {
	if err := uc.checkRefs(ctx, productID, warehouseID); err != nil {
		return nil, err
	}
	var rec *entity.InventoryRecord
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		var err error
		rec, err = repos.Inventory.GetForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		if delta > 0 && rec.Available() < delta {
			return domain.InsufficientAvailable("disponible %d, se intentó reservar %d", rec.Available(), delta)
		}
		if delta < 0 && rec.QuantityReserved < -delta {
			return domain.Validation("reservado %d, se intentó liberar %d", rec.QuantityReserved, -delta)
		}
		rec.QuantityReserved += delta
		rec.LastUpdatedAt = uc.now()
		return repos.Inventory.Upsert(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	if uc.observer != nil {
		uc.observer.StockChanged(ctx, productID, warehouseID)
	}
	out := toRecordResponse(rec)
	return &out, nil
}

// GetRecord devuelve el saldo actual; sin fila equivale a cantidades en cero.
func (uc *LedgerUseCase) GetRecord(ctx context.Context, productID, warehouseID string) (*dto.InventoryRecordResponse, error) {
	rec, err := uc.inventoryRepo.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	out := toRecordResponse(rec)
	return &out, nil
}

// ListRecords lista saldos con el estado de stock calculado.
func (uc *LedgerUseCase) ListRecords(ctx context.Context, filter repository.InventoryFilter, limit, offset int) (*dto.StockPositionListResponse, error) {
	list, err := uc.inventoryRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	return &dto.StockPositionListResponse{
		Items: toStockPositions(list),
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// LowStock lista saldos con disponible ≤ punto de reorden.
func (uc *LedgerUseCase) LowStock(ctx context.Context, filter repository.InventoryFilter) ([]dto.StockPositionResponse, error) {
	list, err := uc.inventoryRepo.ListAtOrBelowReorderPoint(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toStockPositions(list), nil
}

// ListMovements consulta el ledger con filtros y paginación.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter, limit, offset int) (*dto.StockMovementListResponse, error) {
	list, err := uc.movementRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.StockMovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, toMovementResponse(m))
	}
	return &dto.StockMovementListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}

// Reconcile reconstruye el on-hand sumando los movimientos y lo compara con el saldo guardado.
func (uc *LedgerUseCase) Reconcile(ctx context.Context, productID, warehouseID string) (*dto.ReconcileResponse, error) {
	rec, err := uc.inventoryRepo.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	sum, err := uc.movementRepo.SumSigned(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return &dto.ReconcileResponse{
		ProductID:        productID,
		WarehouseID:      warehouseID,
		QuantityOnHand:   rec.QuantityOnHand,
		ReplayedQuantity: sum,
		Consistent:       sum == rec.QuantityOnHand,
	}, nil
}

func (uc *LedgerUseCase) checkRefs(ctx context.Context, productID, warehouseID string) error {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.NotFound("producto %s no existe", productID)
	}
	wh, err := uc.warehouseRepo.GetByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if wh == nil || !wh.Active {
		return domain.NotFound("bodega %s no existe o está inactiva", warehouseID)
	}
	return nil
}

func (uc *LedgerUseCase) afterCommit(ctx context.Context, movementType string, duplicate bool, productID, warehouseID string) {
	if uc.recorder != nil {
		uc.recorder.MovementApplied(movementType, duplicate)
	}
	if !duplicate && uc.observer != nil {
		uc.observer.StockChanged(ctx, productID, warehouseID)
	}
}

func toRecordResponse(r *entity.InventoryRecord) dto.InventoryRecordResponse {
	out := dto.InventoryRecordResponse{
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		QuantityOnHand:    r.QuantityOnHand,
		QuantityReserved:  r.QuantityReserved,
		QuantityAvailable: r.Available(),
	}
	if !r.LastUpdatedAt.IsZero() {
		t := r.LastUpdatedAt
		out.LastUpdatedAt = &t
	}
	return out
}

func toMovementResultResponse(res *MovementResult) *dto.MovementResultResponse {
	out := &dto.MovementResultResponse{
		Record:    toRecordResponse(res.Record),
		Duplicate: res.Duplicate,
	}
	if res.Movement != nil {
		out.MovementID = res.Movement.ID
	}
	return out
}

func toMovementResponse(m *entity.StockMovement) dto.StockMovementResponse {
	return dto.StockMovementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		WarehouseID:    m.WarehouseID,
		Type:           m.Type,
		Quantity:       m.Quantity,
		SignedQuantity: m.SignedQuantity(),
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		Notes:          m.Notes,
		CreatedAt:      m.CreatedAt,
		CreatedBy:      m.CreatedBy,
	}
}

func toStockPositions(list []repository.StockPosition) []dto.StockPositionResponse {
	items := make([]dto.StockPositionResponse, 0, len(list))
	for i := range list {
		p := list[i]
		items = append(items, dto.StockPositionResponse{
			InventoryRecordResponse: toRecordResponse(&p.Record),
			SKU:                     p.Product.SKU,
			ProductName:             p.Product.Name,
			ReorderPoint:            p.Product.ReorderPoint,
			StockStatus:             entity.StockStatusFor(p.Record.Available(), p.Product.ReorderPoint),
		})
	}
	return items
}
