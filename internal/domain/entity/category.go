package entity

import "time"

// Category agrupa productos del catálogo. ParentID vacío indica categoría raíz.
type Category struct {
	ID          string
	ParentID    string
	Name        string // único
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
