package purchasing

import (
	"context"
	"fmt"

	"github.com/jhoicas/procurement-api/internal/domain"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// OrderLine línea de la OC enriquecida con los datos del producto para los documentos.
type OrderLine struct {
	entity.PurchaseOrderItem
	SKU           string
	ProductName   string
	UnitOfMeasure string
}

// OrderDocument datos completos de una OC para generar PDF o XML.
type OrderDocument struct {
	Order     *entity.PurchaseOrder
	Supplier  *entity.Supplier
	Warehouse *entity.Warehouse
	Lines     []OrderLine
}

// PurchaseOrderPDFGenerator genera la representación gráfica de una OC.
type PurchaseOrderPDFGenerator interface {
	GeneratePurchaseOrderPDF(ctx context.Context, doc *OrderDocument) ([]byte, error)
}

// OrderXMLBuilder genera el documento UBL 2.1 Order de una OC. digest es el SHA-256
// (hex) de la forma canónica del XML.
type OrderXMLBuilder interface {
	BuildOrderXML(doc *OrderDocument) (xml []byte, digest string, err error)
}

// DocumentUseCase arma los documentos descargables de una OC.
type DocumentUseCase struct {
	poRepo        repository.PurchaseOrderRepository
	supplierRepo  repository.SupplierRepository
	warehouseRepo repository.WarehouseRepository
	productRepo   repository.ProductRepository
	pdf           PurchaseOrderPDFGenerator
	xml           OrderXMLBuilder
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(
	poRepo repository.PurchaseOrderRepository,
	supplierRepo repository.SupplierRepository,
	warehouseRepo repository.WarehouseRepository,
	productRepo repository.ProductRepository,
	pdf PurchaseOrderPDFGenerator,
	xml OrderXMLBuilder,
) *DocumentUseCase {
	return &DocumentUseCase{
		poRepo:        poRepo,
		supplierRepo:  supplierRepo,
		warehouseRepo: warehouseRepo,
		productRepo:   productRepo,
		pdf:           pdf,
		xml:           xml,
	}
}

// DownloadPDF devuelve el PDF de la OC y el nombre de archivo sugerido.
func (uc *DocumentUseCase) DownloadPDF(ctx context.Context, poID string) ([]byte, string, error) {
	doc, err := uc.Load(ctx, poID)
	if err != nil {
		return nil, "", err
	}
	out, err := uc.pdf.GeneratePurchaseOrderPDF(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return out, fmt.Sprintf("orden_compra_%s.pdf", doc.Order.PONumber), nil
}

// DownloadUBL devuelve el XML UBL de la OC, su digest y el nombre de archivo sugerido.
// Una OC en DRAFT todavía no es un documento comercial.
func (uc *DocumentUseCase) DownloadUBL(ctx context.Context, poID string) ([]byte, string, string, error) {
	doc, err := uc.Load(ctx, poID)
	if err != nil {
		return nil, "", "", err
	}
	if doc.Order.Status == entity.POStatusDraft {
		return nil, "", "", domain.InvalidTransition("la OC %s está en DRAFT, envíela antes de exportar", doc.Order.PONumber)
	}
	out, digest, err := uc.xml.BuildOrderXML(doc)
	if err != nil {
		return nil, "", "", fmt.Errorf("ubl: construir xml: %w", err)
	}
	return out, digest, fmt.Sprintf("orden_compra_%s.xml", doc.Order.PONumber), nil
}

// Load carga OC, proveedor, bodega y productos.
func (uc *DocumentUseCase) Load(ctx context.Context, poID string) (*OrderDocument, error) {
	po, err := uc.poRepo.GetByID(ctx, poID)
	if err != nil {
		return nil, fmt.Errorf("documento: obtener OC: %w", err)
	}
	if po == nil {
		return nil, domain.NotFound("orden de compra %s no existe", poID)
	}
	supplier, err := uc.supplierRepo.GetByID(ctx, po.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("documento: obtener proveedor: %w", err)
	}
	if supplier == nil {
		supplier = &entity.Supplier{ID: po.SupplierID, Name: po.SupplierID}
	}
	wh, err := uc.warehouseRepo.GetByID(ctx, po.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("documento: obtener bodega: %w", err)
	}
	if wh == nil {
		wh = &entity.Warehouse{ID: po.WarehouseID, Name: po.WarehouseID}
	}

	lines := make([]OrderLine, 0, len(po.Items))
	for _, it := range po.Items {
		line := OrderLine{PurchaseOrderItem: *it, ProductName: "Producto " + it.ProductID, UnitOfMeasure: entity.UnitOfMeasureDefault}
		if p, pErr := uc.productRepo.GetByID(ctx, it.ProductID); pErr == nil && p != nil {
			line.SKU = p.SKU
			line.ProductName = p.Name
			if p.UnitOfMeasure != "" {
				line.UnitOfMeasure = p.UnitOfMeasure
			}
		}
		lines = append(lines, line)
	}
	return &OrderDocument{Order: po, Supplier: supplier, Warehouse: wh, Lines: lines}, nil
}

// Subtotal suma de las líneas (igual a Order.TotalAmount cuando la OC es consistente).
func (d *OrderDocument) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.TotalPrice)
	}
	return total
}
