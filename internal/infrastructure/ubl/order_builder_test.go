package ubl_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/infrastructure/ubl"
)

func sampleDocument() *purchasing.OrderDocument {
	expected := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	po := &entity.PurchaseOrder{
		ID: "po-1", PONumber: "PO-20250310-0001", SupplierID: "sup-1", WarehouseID: "wh-1",
		OrderDate: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), ExpectedDeliveryDate: &expected,
		Status: entity.POStatusOrdered, Notes: "Entregar en muelle 2 & portería",
		Items: []*entity.PurchaseOrderItem{
			{ID: "it-1", ProductID: "p-1", QuantityOrdered: 12, UnitPrice: decimal.RequireFromString("1250.5")},
			{ID: "it-2", ProductID: "p-2", QuantityOrdered: 3, UnitPrice: decimal.NewFromInt(80000)},
		},
	}
	po.RecalculateTotal()
	lines := []purchasing.OrderLine{
		{PurchaseOrderItem: *po.Items[0], SKU: "TOR-001", ProductName: "Tornillo 1/4", UnitOfMeasure: "PCS"},
		{PurchaseOrderItem: *po.Items[1], SKU: "PIN-010", ProductName: "Pintura <blanca>", UnitOfMeasure: "L"},
	}
	return &purchasing.OrderDocument{
		Order:     po,
		Supplier:  &entity.Supplier{ID: "sup-1", Code: "ACME", Name: "ACME S.A.S.", TaxID: "900123456-8", City: "Bogotá", Country: "CO", PaymentTerms: "30 días"},
		Warehouse: &entity.Warehouse{ID: "wh-1", Code: "BOG-01", Name: "Bodega Bogotá"},
		Lines:     lines,
	}
}

func parse(t *testing.T, data []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

// ──────────────────────────────────────────────────────────────────────────────
// BuildOrderXML
// ──────────────────────────────────────────────────────────────────────────────

func TestBuildOrderXML_EstructuraUBL(t *testing.T) {
	out, digest, err := ubl.NewOrderBuilder("cop").BuildOrderXML(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("<?xml")))
	assert.Len(t, digest, 64)

	root := parse(t, out)
	assert.Equal(t, "Order", root.Tag)
	assert.Equal(t, ubl.NsOrder, root.SelectAttrValue("xmlns", ""))
	assert.Equal(t, "PO-20250310-0001", root.FindElement("./cbc:ID").Text())
	assert.Equal(t, "2025-03-10", root.FindElement("./cbc:IssueDate").Text())
	assert.Equal(t, "COP", root.FindElement("./cbc:DocumentCurrencyCode").Text())
	assert.Equal(t, "Entregar en muelle 2 & portería", root.FindElement("./cbc:Note").Text())
	assert.Equal(t, "2025-03-20", root.FindElement("./cac:Delivery/cac:RequestedDeliveryPeriod/cbc:EndDate").Text())
	assert.Equal(t, "ACME S.A.S.", root.FindElement("./cac:SellerSupplierParty/cac:Party/cac:PartyName/cbc:Name").Text())
	assert.Equal(t, "Bodega Bogotá", root.FindElement("./cac:BuyerCustomerParty/cac:Party/cac:PartyName/cbc:Name").Text())
	sellerID := root.FindElement("./cac:SellerSupplierParty/cac:Party/cac:PartyIdentification/cbc:ID")
	assert.Equal(t, "900123456", sellerID.Text())
	assert.Equal(t, "8", sellerID.SelectAttrValue("schemeID", ""))
	assert.Equal(t, "31", sellerID.SelectAttrValue("schemeName", ""))

	payable := root.FindElement("./cac:AnticipatedMonetaryTotal/cbc:PayableAmount")
	assert.Equal(t, "255006.00", payable.Text())
	assert.Equal(t, "COP", payable.SelectAttrValue("currencyID", ""))

	lines := root.FindElements("./cac:OrderLine/cac:LineItem")
	require.Len(t, lines, 2)
	qty := lines[0].FindElement("./cbc:Quantity")
	assert.Equal(t, "12", qty.Text())
	assert.Equal(t, "H87", qty.SelectAttrValue("unitCode", ""))
	assert.Equal(t, "1250.50", lines[0].FindElement("./cac:Price/cbc:PriceAmount").Text())
	assert.Equal(t, "LTR", lines[1].FindElement("./cbc:Quantity").SelectAttrValue("unitCode", ""))
	assert.Equal(t, "Pintura <blanca>", lines[1].FindElement("./cac:Item/cbc:Name").Text())
	assert.Equal(t, "PIN-010", lines[1].FindElement("./cac:Item/cac:SellersItemIdentification/cbc:ID").Text())
}

func TestBuildOrderXML_DigestDeterministaYVerificable(t *testing.T) {
	b := ubl.NewOrderBuilder("")
	out1, d1, err := b.BuildOrderXML(sampleDocument())
	require.NoError(t, err)
	_, d2, err := b.BuildOrderXML(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	ok, err := ubl.VerifyDigest(out1, d1)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := bytes.Replace(out1, []byte("255006.00"), []byte("255007.00"), 1)
	ok, err = ubl.VerifyDigest(tampered, d1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildOrderXML_CambiaDigestConElContenido(t *testing.T) {
	b := ubl.NewOrderBuilder("COP")
	_, d1, err := b.BuildOrderXML(sampleDocument())
	require.NoError(t, err)

	doc := sampleDocument()
	doc.Order.PONumber = "PO-20250310-0002"
	_, d2, err := b.BuildOrderXML(doc)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestBuildOrderXML_DocumentoIncompleto(t *testing.T) {
	doc := sampleDocument()
	doc.Supplier = nil
	_, _, err := ubl.NewOrderBuilder("COP").BuildOrderXML(doc)
	assert.Error(t, err)
}

func TestVerifyDigest_SinRaiz(t *testing.T) {
	_, err := ubl.VerifyDigest([]byte("   "), "abc")
	assert.Error(t, err)
}

func TestBuildOrderXML_IdentificacionSinNIT(t *testing.T) {
	doc := sampleDocument()
	doc.Supplier.TaxID = ""
	out, _, err := ubl.NewOrderBuilder("COP").BuildOrderXML(doc)
	require.NoError(t, err)
	id := parse(t, out).FindElement("./cac:SellerSupplierParty/cac:Party/cac:PartyIdentification/cbc:ID")
	assert.Equal(t, "ACME", id.Text(), "sin tax_id se usa el código")
	assert.Empty(t, id.SelectAttrValue("schemeID", ""))
}
