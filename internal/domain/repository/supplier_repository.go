package repository

import (
	"context"

	"github.com/jhoicas/procurement-api/internal/domain/entity"
)

// SupplierFilter filtros para listar proveedores.
type SupplierFilter struct {
	Search     string // nombre o código
	ActiveOnly bool
}

// SupplierRepository define el puerto de persistencia para Supplier.
type SupplierRepository interface {
	Create(ctx context.Context, supplier *entity.Supplier) error
	GetByID(ctx context.Context, id string) (*entity.Supplier, error)
	GetByCode(ctx context.Context, code string) (*entity.Supplier, error)
	Update(ctx context.Context, supplier *entity.Supplier) error
	List(ctx context.Context, filter SupplierFilter, limit, offset int) ([]*entity.Supplier, error)
	Delete(ctx context.Context, id string) error
}
