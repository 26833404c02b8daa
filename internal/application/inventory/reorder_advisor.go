package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Suggestion sugerencia de reposición para un producto en una bodega.
// UnitPrice nil significa que no hay historial de precios con proveedores activos.
type Suggestion struct {
	ProductID         string
	SKU               string
	ProductName       string
	WarehouseID       string
	CurrentStock      int64
	ReorderPoint      int64
	ReorderQuantity   int64
	SuggestedQuantity int64
	SupplierID        string
	SupplierName      string
	UnitPrice         *decimal.Decimal
	EstimatedCost     *decimal.Decimal
}

// Urgency cuánto está el disponible por debajo del punto de reorden.
func (s Suggestion) Urgency() int64 {
	return s.ReorderPoint - s.CurrentStock
}

// Orderable indica si la sugerencia tiene proveedor y precio para generar una OC.
func (s Suggestion) Orderable() bool {
	return s.SupplierID != "" && s.UnitPrice != nil
}

// SuggestedQuantity cantidad a pedir: reorderQuantity, o (reorderPoint − current) + reorderQuantity
// cuando el producto está agotado. Nunca deja el stock por debajo del punto de reorden.
func SuggestedQuantity(current, reorderPoint, reorderQuantity int64) int64 {
	if current <= 0 {
		return (reorderPoint - current) + reorderQuantity
	}
	qty := reorderQuantity
	if current+qty < reorderPoint {
		qty = reorderPoint - current
	}
	return qty
}

// ReorderAdvisor recorre los saldos contra el punto de reorden de cada producto y propone compras.
type ReorderAdvisor struct {
	inventoryRepo repository.InventoryRecordRepository
	poRepo        repository.PurchaseOrderRepository
}

// NewReorderAdvisor construye el asesor de reposición.
func NewReorderAdvisor(inventoryRepo repository.InventoryRecordRepository, poRepo repository.PurchaseOrderRepository) *ReorderAdvisor {
	return &ReorderAdvisor{inventoryRepo: inventoryRepo, poRepo: poRepo}
}

// ComputeSuggestions devuelve una sugerencia por cada saldo con disponible ≤ punto de reorden.
// Para el mismo estado devuelve la misma lista en el mismo orden: urgencia descendente,
// luego id de producto y de bodega ascendentes.
func (a *ReorderAdvisor) ComputeSuggestions(ctx context.Context, filter repository.InventoryFilter) ([]Suggestion, error) {
	positions, err := a.inventoryRepo.ListAtOrBelowReorderPoint(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return []Suggestion{}, nil
	}

	productIDs := make([]string, 0, len(positions))
	seen := make(map[string]bool, len(positions))
	for _, p := range positions {
		if !seen[p.Product.ID] {
			seen[p.Product.ID] = true
			productIDs = append(productIDs, p.Product.ID)
		}
	}
	prices, err := a.poRepo.SupplierPrices(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(positions))
	for _, p := range positions {
		if !p.Product.Active {
			continue
		}
		current := p.Record.Available()
		if current > p.Product.ReorderPoint {
			continue
		}
		qty := SuggestedQuantity(current, p.Product.ReorderPoint, p.Product.ReorderQuantity)
		if qty <= 0 {
			continue
		}
		s := Suggestion{
			ProductID:         p.Product.ID,
			SKU:               p.Product.SKU,
			ProductName:       p.Product.Name,
			WarehouseID:       p.Record.WarehouseID,
			CurrentStock:      current,
			ReorderPoint:      p.Product.ReorderPoint,
			ReorderQuantity:   p.Product.ReorderQuantity,
			SuggestedQuantity: qty,
		}
		if best := PreferredSupplier(prices[p.Product.ID]); best != nil {
			price := best.UnitPrice
			cost := price.Mul(decimal.NewFromInt(qty))
			s.SupplierID = best.SupplierID
			s.SupplierName = best.SupplierName
			s.UnitPrice = &price
			s.EstimatedCost = &cost
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if x.Urgency() != y.Urgency() {
			return x.Urgency() > y.Urgency()
		}
		if x.ProductID != y.ProductID {
			return x.ProductID < y.ProductID
		}
		return x.WarehouseID < y.WarehouseID
	})
	return out, nil
}

// PreferredSupplier elige el proveedor activo con menor precio; empate por la OC más reciente
// y luego por id de proveedor.
func PreferredSupplier(prices []entity.SupplierPrice) *entity.SupplierPrice {
	var best *entity.SupplierPrice
	for i := range prices {
		c := &prices[i]
		if !c.SupplierActive || c.UnitPrice.IsNegative() {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		switch cmp := c.UnitPrice.Cmp(best.UnitPrice); {
		case cmp < 0:
			best = c
		case cmp == 0 && c.LastOrderAt.After(best.LastOrderAt):
			best = c
		case cmp == 0 && c.LastOrderAt.Equal(best.LastOrderAt) && c.SupplierID < best.SupplierID:
			best = c
		}
	}
	return best
}

// ListSuggestions versión para la API: incluye el costo total de las sugerencias con precio.
func (a *ReorderAdvisor) ListSuggestions(ctx context.Context, filter repository.InventoryFilter) (*dto.ReorderSuggestionListResponse, error) {
	list, err := a.ComputeSuggestions(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := &dto.ReorderSuggestionListResponse{
		Items:              make([]dto.ReorderSuggestionDTO, 0, len(list)),
		TotalEstimatedCost: decimal.Zero,
	}
	for _, s := range list {
		if s.EstimatedCost != nil {
			resp.TotalEstimatedCost = resp.TotalEstimatedCost.Add(*s.EstimatedCost)
		} else {
			resp.UnpricedCount++
		}
		resp.Items = append(resp.Items, dto.ReorderSuggestionDTO{
			ProductID:         s.ProductID,
			SKU:               s.SKU,
			ProductName:       s.ProductName,
			WarehouseID:       s.WarehouseID,
			CurrentStock:      s.CurrentStock,
			ReorderPoint:      s.ReorderPoint,
			ReorderQuantity:   s.ReorderQuantity,
			SuggestedQuantity: s.SuggestedQuantity,
			Urgency:           s.Urgency(),
			SupplierID:        s.SupplierID,
			SupplierName:      s.SupplierName,
			UnitPrice:         s.UnitPrice,
			EstimatedCost:     s.EstimatedCost,
		})
	}
	return resp, nil
}
