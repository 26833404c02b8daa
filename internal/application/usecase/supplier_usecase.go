package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/jhoicas/procurement-api/pkg/nit"
)

// SupplierUseCase casos de uso CRUD para proveedores.
type SupplierUseCase struct {
	repo repository.SupplierRepository
}

// NewSupplierUseCase construye el caso de uso.
func NewSupplierUseCase(repo repository.SupplierRepository) *SupplierUseCase {
	return &SupplierUseCase{repo: repo}
}

// Create crea un proveedor activo. El código es único.
func (uc *SupplierUseCase) Create(ctx context.Context, in dto.CreateSupplierRequest) (*dto.SupplierResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.Validation("code y name son requeridos")
	}
	if err := validateTaxID(in.Country, in.TaxID); err != nil {
		return nil, err
	}
	existing, err := uc.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now()
	s := &entity.Supplier{
		ID:            uuid.New().String(),
		Code:          code,
		Name:          in.Name,
		ContactPerson: in.ContactPerson,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		City:          in.City,
		State:         in.State,
		Country:       in.Country,
		PostalCode:    in.PostalCode,
		TaxID:         in.TaxID,
		PaymentTerms:  in.PaymentTerms,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return toSupplierResponse(s), nil
}

// GetByID obtiene un proveedor por ID.
func (uc *SupplierUseCase) GetByID(ctx context.Context, id string) (*dto.SupplierResponse, error) {
	s, err := uc.repo.GetByID(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	return toSupplierResponse(s), nil
}

// Update actualiza datos de contacto o el estado del proveedor.
// Desactivar un proveedor lo excluye de la selección automática de precios.
func (uc *SupplierUseCase) Update(ctx context.Context, id string, in dto.UpdateSupplierRequest) (*dto.SupplierResponse, error) {
	s, err := uc.repo.GetByID(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.Name, in.Name)
	set(&s.ContactPerson, in.ContactPerson)
	set(&s.Email, in.Email)
	set(&s.Phone, in.Phone)
	set(&s.Address, in.Address)
	set(&s.City, in.City)
	set(&s.State, in.State)
	set(&s.Country, in.Country)
	set(&s.PostalCode, in.PostalCode)
	set(&s.TaxID, in.TaxID)
	set(&s.PaymentTerms, in.PaymentTerms)
	if in.Active != nil {
		s.Active = *in.Active
	}
	if strings.TrimSpace(s.Name) == "" {
		return nil, domain.Validation("name no puede quedar vacío")
	}
	if err := validateTaxID(s.Country, s.TaxID); err != nil {
		return nil, err
	}
	s.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, s); err != nil {
		return nil, err
	}
	return toSupplierResponse(s), nil
}

// List busca proveedores por nombre o código.
func (uc *SupplierUseCase) List(ctx context.Context, filter repository.SupplierFilter, limit, offset int) (*dto.SupplierListResponse, error) {
	list, err := uc.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SupplierResponse, 0, len(list))
	for _, s := range list {
		items = append(items, *toSupplierResponse(s))
	}
	return &dto.SupplierListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}

// Delete elimina un proveedor sin OC (con OC la BD rechaza el borrado).
func (uc *SupplierUseCase) Delete(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}

func toSupplierResponse(s *entity.Supplier) *dto.SupplierResponse {
	return &dto.SupplierResponse{
		ID:            s.ID,
		Code:          s.Code,
		Name:          s.Name,
		ContactPerson: s.ContactPerson,
		Email:         s.Email,
		Phone:         s.Phone,
		Address:       s.Address,
		City:          s.City,
		State:         s.State,
		Country:       s.Country,
		PostalCode:    s.PostalCode,
		TaxID:         s.TaxID,
		PaymentTerms:  s.PaymentTerms,
		Active:        s.Active,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// validateTaxID exige NIT con dígito de verificación para proveedores colombianos.
func validateTaxID(country, taxID string) error {
	if taxID == "" || !nit.IsColombia(country) {
		return nil
	}
	if err := nit.Validate(taxID); err != nil {
		return domain.Validation("tax_id: %v", err)
	}
	return nil
}
