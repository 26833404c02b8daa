package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden de compra.
const (
	POStatusDraft             = "DRAFT"
	POStatusSubmitted         = "SUBMITTED"
	POStatusApproved          = "APPROVED"
	POStatusOrdered           = "ORDERED"
	POStatusPartiallyReceived = "PARTIALLY_RECEIVED"
	POStatusFullyReceived     = "FULLY_RECEIVED"
	POStatusCancelled         = "CANCELLED"
	POStatusClosed            = "CLOSED"
)

// AllPOStatuses en orden del ciclo de vida.
var AllPOStatuses = []string{
	POStatusDraft, POStatusSubmitted, POStatusApproved, POStatusOrdered,
	POStatusPartiallyReceived, POStatusFullyReceived, POStatusCancelled, POStatusClosed,
}

// poTransitions transiciones manuales permitidas. PARTIALLY_RECEIVED y FULLY_RECEIVED
// solo se alcanzan registrando recepciones.
var poTransitions = map[string][]string{
	POStatusDraft:             {POStatusSubmitted, POStatusCancelled},
	POStatusSubmitted:         {POStatusApproved, POStatusCancelled},
	POStatusApproved:          {POStatusOrdered, POStatusCancelled},
	POStatusOrdered:           {POStatusCancelled},
	POStatusPartiallyReceived: {POStatusCancelled},
	POStatusFullyReceived:     {POStatusClosed},
	POStatusCancelled:         {POStatusClosed},
}

// ValidPOStatus indica si s es un estado conocido.
func ValidPOStatus(s string) bool {
	for _, st := range AllPOStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransitionPO indica si from → to es una transición manual legal.
func CanTransitionPO(from, to string) bool {
	for _, next := range poTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsOpenPOStatus: la OC todavía espera mercancía (cuenta para alertas de atraso).
func IsOpenPOStatus(s string) bool {
	switch s {
	case POStatusFullyReceived, POStatusCancelled, POStatusClosed:
		return false
	}
	return true
}

// CanReceivePO: solo se recibe en ORDERED o PARTIALLY_RECEIVED.
func CanReceivePO(s string) bool {
	return s == POStatusOrdered || s == POStatusPartiallyReceived
}

// IsPricedPOStatus: la OC ya se colocó al proveedor y su precio cuenta como historial.
// Borradores y OC sin aprobar no cuentan; las canceladas tampoco.
func IsPricedPOStatus(s string) bool {
	switch s {
	case POStatusOrdered, POStatusPartiallyReceived, POStatusFullyReceived, POStatusClosed:
		return true
	}
	return false
}

// PurchaseOrder documento de compra a un proveedor para una bodega.
type PurchaseOrder struct {
	ID                   string
	PONumber             string
	SupplierID           string
	WarehouseID          string
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	Status               string
	TotalAmount          decimal.Decimal
	Notes                string
	CreatedBy            string
	UpdatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Items                []*PurchaseOrderItem
}

// RecalculateTotal recalcula el total de cada línea y de la orden.
func (po *PurchaseOrder) RecalculateTotal() {
	total := decimal.Zero
	for _, it := range po.Items {
		it.TotalPrice = it.UnitPrice.Mul(decimal.NewFromInt(it.QuantityOrdered))
		total = total.Add(it.TotalPrice)
	}
	po.TotalAmount = total
}

// AllReceived indica si todas las líneas están completas.
func (po *PurchaseOrder) AllReceived() bool {
	if len(po.Items) == 0 {
		return false
	}
	for _, it := range po.Items {
		if !it.FullyReceived() {
			return false
		}
	}
	return true
}

// ItemByID busca una línea por id.
func (po *PurchaseOrder) ItemByID(id string) *PurchaseOrderItem {
	for _, it := range po.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// ItemForProduct busca la línea de un producto.
func (po *PurchaseOrder) ItemForProduct(productID string) *PurchaseOrderItem {
	for _, it := range po.Items {
		if it.ProductID == productID {
			return it
		}
	}
	return nil
}

// PurchaseOrderItem línea de una orden de compra.
type PurchaseOrderItem struct {
	ID               string
	PurchaseOrderID  string
	ProductID        string
	QuantityOrdered  int64
	QuantityReceived int64
	UnitPrice        decimal.Decimal
	TotalPrice       decimal.Decimal
	Notes            string
}

func (it *PurchaseOrderItem) PartiallyReceived() bool {
	return it.QuantityReceived > 0 && it.QuantityReceived < it.QuantityOrdered
}

func (it *PurchaseOrderItem) FullyReceived() bool {
	return it.QuantityReceived == it.QuantityOrdered
}

func (it *PurchaseOrderItem) RemainingQuantity() int64 {
	return it.QuantityOrdered - it.QuantityReceived
}
