package repository

import (
	"context"

	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ProductFilter filtros para listar productos.
type ProductFilter struct {
	Search     string // coincide con sku o nombre
	CategoryID string
	ActiveOnly bool
}

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error
	List(ctx context.Context, filter ProductFilter, limit, offset int) ([]*entity.Product, error)
	// IsReferenced indica si el producto ya tiene inventario o líneas de OC (SKU inmutable).
	IsReferenced(ctx context.Context, productID string) (bool, error)
	Delete(ctx context.Context, id string) error
}
