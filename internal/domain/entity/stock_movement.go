package entity

import "time"

// Tipos de movimiento de inventario.
const (
	MovementTypeIN         = "IN"         // entrada
	MovementTypeOUT        = "OUT"        // salida
	MovementTypeADJUSTMENT = "ADJUSTMENT" // ajuste (Direction indica el signo)
	MovementTypeTRANSFER   = "TRANSFER"   // traslado entre bodegas (un registro por bodega)
)

// Tipos de referencia de un movimiento.
const (
	ReferencePurchaseOrderItem = "PURCHASE_ORDER_ITEM"
	ReferenceSaleOrder         = "SALE_ORDER"
	ReferenceTransfer          = "TRANSFER"
	ReferenceAdjustment        = "ADJUSTMENT"
	ReferenceManual            = "MANUAL"
)

// ValidMovementType indica si t es uno de los cuatro tipos soportados.
func ValidMovementType(t string) bool {
	switch t {
	case MovementTypeIN, MovementTypeOUT, MovementTypeADJUSTMENT, MovementTypeTRANSFER:
		return true
	}
	return false
}

// StockMovement es un registro inmutable del ledger. Quantity siempre es > 0;
// el sentido lo da el tipo (IN +, OUT −) o Direction para ADJUSTMENT y TRANSFER.
type StockMovement struct {
	ID            string
	ProductID     string
	WarehouseID   string
	Type          string
	Direction     int // +1 o -1
	Quantity      int64
	ReferenceType string
	ReferenceID   string
	Notes         string
	CreatedAt     time.Time
	CreatedBy     string
}

// SignedQuantity devuelve la cantidad con signo usada al reconstruir el on-hand.
func (m *StockMovement) SignedQuantity() int64 {
	switch m.Type {
	case MovementTypeIN:
		return m.Quantity
	case MovementTypeOUT:
		return -m.Quantity
	default:
		if m.Direction < 0 {
			return -m.Quantity
		}
		return m.Quantity
	}
}
