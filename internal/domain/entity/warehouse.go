package entity

import "time"

// Warehouse representa una bodega con stock independiente.
type Warehouse struct {
	ID        string
	Code      string // único
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
