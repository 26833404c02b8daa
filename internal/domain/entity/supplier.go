package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier representa un proveedor. Code es único.
type Supplier struct {
	ID            string
	Code          string
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	Address       string
	City          string
	State         string
	Country       string
	PostalCode    string
	TaxID         string
	PaymentTerms  string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SupplierPrice es el precio histórico de un producto con un proveedor, tomado de sus OC.
type SupplierPrice struct {
	SupplierID     string
	SupplierName   string
	SupplierActive bool
	ProductID      string
	UnitPrice      decimal.Decimal
	LastOrderAt    time.Time
}
