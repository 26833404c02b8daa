// Package seed puebla una base vacía (o parcialmente poblada) con datos de demostración:
// usuario admin, categorías, bodegas, proveedores, productos, historial de compras y stock.
// Todo pasa por los casos de uso, así que las reglas de negocio aplican igual que en la API.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/procurement-api/internal/application/auth"
	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/internal/application/usecase"
	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/jhoicas/procurement-api/pkg/nit"
)

const listLimit = 100

var (
	defaultCategories = []string{"Ferretería", "Eléctricos", "Pinturas", "Plomería", "Herramientas"}
	defaultWarehouses = []struct{ Code, Name string }{
		{"BOG-01", "Bodega Bogotá"},
		{"MED-01", "Bodega Medellín"},
		{"CAL-01", "Bodega Cali"},
		{"BAQ-01", "Bodega Barranquilla"},
	}
)

// Options parámetros de una corrida.
type Options struct {
	AdminEmail    string
	AdminPassword string
	Suppliers     int
	Products      int // ignorado si Catalog no está vacío
	Warehouses    int // máximo len(defaultWarehouses)
	Seed          uint64
	Catalog       []CatalogRow
}

// Report conteo de lo creado en la corrida (lo existente no cuenta).
type Report struct {
	AdminCreated   bool `json:"admin_created"`
	Categories     int  `json:"categories"`
	Warehouses     int  `json:"warehouses"`
	Suppliers      int  `json:"suppliers"`
	Products       int  `json:"products"`
	PurchaseOrders int  `json:"purchase_orders"`
	Movements      int  `json:"movements"`
}

// Seeder agrupa los casos de uso que escriben datos.
type Seeder struct {
	auth       *auth.AuthUseCase
	categories *usecase.CategoryUseCase
	warehouses *usecase.WarehouseUseCase
	suppliers  *usecase.SupplierUseCase
	products   *usecase.ProductUseCase
	ledger     *inventory.LedgerUseCase
	orders     *purchasing.PurchaseOrderUseCase
	log        zerolog.Logger
}

// NewSeeder construye el seeder.
func NewSeeder(
	authUC *auth.AuthUseCase,
	categories *usecase.CategoryUseCase,
	warehouses *usecase.WarehouseUseCase,
	suppliers *usecase.SupplierUseCase,
	products *usecase.ProductUseCase,
	ledger *inventory.LedgerUseCase,
	orders *purchasing.PurchaseOrderUseCase,
	log zerolog.Logger,
) *Seeder {
	return &Seeder{
		auth:       authUC,
		categories: categories,
		warehouses: warehouses,
		suppliers:  suppliers,
		products:   products,
		ledger:     ledger,
		orders:     orders,
		log:        log,
	}
}

// Run ejecuta la siembra. Se puede repetir: lo que ya existe (email, nombre, código, SKU) se omite.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Warehouses <= 0 || opts.Warehouses > len(defaultWarehouses) {
		opts.Warehouses = len(defaultWarehouses)
	}
	if opts.Suppliers <= 0 {
		opts.Suppliers = 1
	}
	f := gofakeit.New(opts.Seed)
	report := &Report{}

	actor := purchasing.Actor{UserID: "seed", Role: entity.RoleAdmin}
	if opts.AdminEmail != "" {
		admin, err := s.auth.RegisterUser(ctx, entity.RoleAdmin, dto.RegisterRequest{
			Email: opts.AdminEmail, Password: opts.AdminPassword, Name: "Administrador", Role: entity.RoleAdmin,
		})
		switch {
		case err == nil:
			report.AdminCreated = true
			actor.UserID = admin.ID
		case errors.Is(err, domain.ErrEmailAlreadyExists):
			s.log.Info().Str("email", opts.AdminEmail).Msg("admin ya existe")
		default:
			return nil, fmt.Errorf("admin: %w", err)
		}
	}

	categoryIDs, err := s.ensureCategories(ctx, opts.Catalog, report)
	if err != nil {
		return nil, err
	}
	warehouseIDs, err := s.ensureWarehouses(ctx, opts.Warehouses, report)
	if err != nil {
		return nil, err
	}
	supplierIDs, err := s.ensureSuppliers(ctx, f, opts.Suppliers, report)
	if err != nil {
		return nil, err
	}

	rows := opts.Catalog
	if len(rows) == 0 {
		rows = fakeCatalog(f, opts.Products)
	}
	created, err := s.createProducts(ctx, rows, categoryIDs, report)
	if err != nil {
		return nil, err
	}

	// Una OC recibida por proveedor deja historial de precios y stock en la primera bodega.
	bySupplier := make(map[string][]dto.PurchaseOrderItemRequest)
	for i, p := range created {
		supplierID := supplierIDs[i%len(supplierIDs)]
		bySupplier[supplierID] = append(bySupplier[supplierID], dto.PurchaseOrderItemRequest{
			ProductID:       p.ID,
			QuantityOrdered: int64(f.Number(1, int(max(p.ReorderPoint, 1))*3)),
			UnitPrice:       p.CostPrice,
		})
	}
	for _, supplierID := range supplierIDs {
		items := bySupplier[supplierID]
		if len(items) == 0 {
			continue
		}
		if err := s.receivedOrder(ctx, actor, supplierID, warehouseIDs[0], items); err != nil {
			return nil, err
		}
		report.PurchaseOrders++
	}

	for _, warehouseID := range warehouseIDs[1:] {
		for _, p := range created {
			qty := int64(f.Number(0, int(max(p.ReorderPoint, 1))*2))
			if qty == 0 {
				continue
			}
			if _, err := s.ledger.ApplyMovement(ctx, inventory.MovementInput{
				ProductID:     p.ID,
				WarehouseID:   warehouseID,
				Type:          entity.MovementTypeIN,
				Quantity:      qty,
				ReferenceType: entity.ReferenceManual,
				ReferenceID:   fmt.Sprintf("seed:%s:%s", p.SKU, warehouseID),
				Notes:         "stock inicial",
				ActorID:       actor.UserID,
			}); err != nil {
				return nil, fmt.Errorf("stock inicial %s: %w", p.SKU, err)
			}
			report.Movements++
		}
	}

	s.log.Info().
		Int("products", report.Products).
		Int("suppliers", report.Suppliers).
		Int("purchase_orders", report.PurchaseOrders).
		Int("movements", report.Movements).
		Msg("siembra terminada")
	return report, nil
}

func (s *Seeder) ensureCategories(ctx context.Context, catalog []CatalogRow, report *Report) (map[string]string, error) {
	existing, err := s.categories.List(ctx, listLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("categorías: %w", err)
	}
	ids := make(map[string]string, len(existing.Items))
	for _, c := range existing.Items {
		ids[c.Name] = c.ID
	}

	names := append([]string{}, defaultCategories...)
	for _, row := range catalog {
		if row.Category != "" {
			names = append(names, row.Category)
		}
	}
	for _, name := range names {
		if _, ok := ids[name]; ok {
			continue
		}
		c, err := s.categories.Create(ctx, dto.CreateCategoryRequest{Name: name})
		if err != nil {
			return nil, fmt.Errorf("categoría %q: %w", name, err)
		}
		ids[name] = c.ID
		report.Categories++
	}
	return ids, nil
}

func (s *Seeder) ensureWarehouses(ctx context.Context, n int, report *Report) ([]string, error) {
	existing, err := s.warehouses.List(ctx, false, listLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("bodegas: %w", err)
	}
	byCode := make(map[string]string, len(existing.Items))
	for _, w := range existing.Items {
		byCode[w.Code] = w.ID
	}

	ids := make([]string, 0, n)
	for _, w := range defaultWarehouses[:n] {
		if id, ok := byCode[w.Code]; ok {
			ids = append(ids, id)
			continue
		}
		created, err := s.warehouses.Create(ctx, dto.CreateWarehouseRequest{Code: w.Code, Name: w.Name})
		if err != nil {
			return nil, fmt.Errorf("bodega %s: %w", w.Code, err)
		}
		ids = append(ids, created.ID)
		report.Warehouses++
	}
	return ids, nil
}

func (s *Seeder) ensureSuppliers(ctx context.Context, f *gofakeit.Faker, n int, report *Report) ([]string, error) {
	existing, err := s.suppliers.List(ctx, repository.SupplierFilter{}, listLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("proveedores: %w", err)
	}
	byCode := make(map[string]string, len(existing.Items))
	for _, sup := range existing.Items {
		byCode[sup.Code] = sup.ID
	}

	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		code := fmt.Sprintf("SUP-%03d", i)
		if id, ok := byCode[code]; ok {
			ids = append(ids, id)
			continue
		}
		addr := f.Address()
		created, err := s.suppliers.Create(ctx, dto.CreateSupplierRequest{
			Code:          code,
			Name:          f.Company(),
			ContactPerson: f.Name(),
			Email:         f.Email(),
			Phone:         f.Phone(),
			Address:       addr.Street,
			City:          addr.City,
			State:         addr.State,
			Country:       "Colombia",
			PostalCode:    addr.Zip,
			TaxID:         fakeNIT(f),
			PaymentTerms:  "30 días",
		})
		if err != nil {
			return nil, fmt.Errorf("proveedor %s: %w", code, err)
		}
		ids = append(ids, created.ID)
		report.Suppliers++
	}
	return ids, nil
}

func (s *Seeder) createProducts(ctx context.Context, rows []CatalogRow, categoryIDs map[string]string, report *Report) ([]*dto.ProductResponse, error) {
	created := make([]*dto.ProductResponse, 0, len(rows))
	for _, row := range rows {
		p, err := s.products.Create(ctx, dto.CreateProductRequest{
			SKU:             row.SKU,
			Name:            row.Name,
			CategoryID:      categoryIDs[row.Category],
			UnitOfMeasure:   row.Unit,
			CostPrice:       row.Cost,
			SellingPrice:    row.Cost.Mul(decimal.NewFromFloat(1.3)).Round(2),
			ReorderPoint:    row.ReorderPoint,
			ReorderQuantity: row.ReorderQuantity,
		})
		if errors.Is(err, domain.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("producto %s: %w", row.SKU, err)
		}
		created = append(created, p)
		report.Products++
	}
	return created, nil
}

// receivedOrder crea la OC y la lleva por todo el ciclo: enviar, aprobar, ordenar, recibir y cerrar.
func (s *Seeder) receivedOrder(ctx context.Context, actor purchasing.Actor, supplierID, warehouseID string, items []dto.PurchaseOrderItemRequest) error {
	po, err := s.orders.Create(ctx, actor, dto.CreatePurchaseOrderRequest{
		SupplierID:  supplierID,
		WarehouseID: warehouseID,
		Notes:       "Compra inicial",
		Items:       items,
	})
	if err != nil {
		return fmt.Errorf("crear OC: %w", err)
	}
	for _, status := range []string{entity.POStatusSubmitted, entity.POStatusApproved, entity.POStatusOrdered} {
		if _, err := s.orders.Transition(ctx, actor, po.ID, dto.UpdatePurchaseOrderStatusRequest{Status: status}); err != nil {
			return fmt.Errorf("OC %s a %s: %w", po.PONumber, status, err)
		}
	}

	received := make([]dto.ReceiveItemRequest, 0, len(po.Items))
	for _, it := range po.Items {
		received = append(received, dto.ReceiveItemRequest{ItemID: it.ID, QuantityReceived: it.QuantityOrdered})
	}
	if _, err := s.orders.Receive(ctx, actor, po.ID, dto.ReceivePurchaseOrderRequest{
		ReceiptID:     "seed-" + po.PONumber,
		ReceivedItems: received,
	}); err != nil {
		return fmt.Errorf("recibir OC %s: %w", po.PONumber, err)
	}
	if _, err := s.orders.Close(ctx, actor, po.ID, ""); err != nil {
		return fmt.Errorf("cerrar OC %s: %w", po.PONumber, err)
	}
	return nil
}

// fakeNIT NIT de persona jurídica (prefijo 9) con dígito de verificación correcto.
func fakeNIT(f *gofakeit.Faker) string {
	base := f.Numerify("9########")
	dv, _ := nit.CheckDigit(base)
	return fmt.Sprintf("%s-%c", base, dv)
}

func fakeCatalog(f *gofakeit.Faker, n int) []CatalogRow {
	units := []string{"UND", "KG", "L", "M", "BOX"}
	rows := make([]CatalogRow, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, CatalogRow{
			SKU:             fmt.Sprintf("SKU-%04d", i),
			Name:            f.ProductName(),
			Category:        defaultCategories[f.Number(0, len(defaultCategories)-1)],
			Unit:            units[f.Number(0, len(units)-1)],
			Cost:            decimal.NewFromFloat(f.Price(500, 50000)).Round(0),
			ReorderPoint:    int64(f.Number(5, 30)),
			ReorderQuantity: int64(f.Number(20, 100)),
		})
	}
	return rows
}
