// Package ubl exporta órdenes de compra como documentos UBL 2.1 Order.
package ubl

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/pkg/nit"
)

// Namespaces UBL 2.1.
const (
	NsOrder = "urn:oasis:names:specification:ubl:schema:xsd:Order-2"
	NsCac   = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc   = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	customizationID = "urn:www.cenbii.eu:transaction:biitrns001:ver2.0"
	orderTypeCode   = "220" // UNCL 1001: pedido
	dateLayout      = "2006-01-02"
)

// unitCodes traduce la unidad del catálogo a UN/ECE Rec 20.
var unitCodes = map[string]string{
	"PCS": "H87",
	"UND": "H87",
	"KG":  "KGM",
	"G":   "GRM",
	"L":   "LTR",
	"M":   "MTR",
	"BOX": "XBX",
}

// OrderBuilder implementa purchasing.OrderXMLBuilder.
type OrderBuilder struct {
	currency string
}

var _ purchasing.OrderXMLBuilder = (*OrderBuilder)(nil)

// NewOrderBuilder crea el builder. currency vacío usa COP.
func NewOrderBuilder(currency string) *OrderBuilder {
	if currency == "" {
		currency = "COP"
	}
	return &OrderBuilder{currency: strings.ToUpper(currency)}
}

// BuildOrderXML genera el XML y el SHA-256 (hex) de su forma canónica C14N.
func (b *OrderBuilder) BuildOrderXML(doc *purchasing.OrderDocument) ([]byte, string, error) {
	if doc == nil || doc.Order == nil || doc.Supplier == nil || doc.Warehouse == nil {
		return nil, "", fmt.Errorf("ubl: faltan orden, proveedor o bodega")
	}

	root := b.buildRoot(doc)

	body := etree.NewDocument()
	body.SetRoot(root)
	body.Indent(2)
	bodyBytes, err := body.WriteToBytes()
	if err != nil {
		return nil, "", fmt.Errorf("ubl: serializar: %w", err)
	}
	digest, err := Digest(bodyBytes)
	if err != nil {
		return nil, "", err
	}

	var out bytes.Buffer
	out.WriteString(xml.Header)
	out.Write(bodyBytes)
	return out.Bytes(), digest, nil
}

func (b *OrderBuilder) buildRoot(doc *purchasing.OrderDocument) *etree.Element {
	po := doc.Order
	root := etree.NewElement("Order")
	root.CreateAttr("xmlns", NsOrder)
	root.CreateAttr("xmlns:cac", NsCac)
	root.CreateAttr("xmlns:cbc", NsCbc)

	root.CreateElement("cbc:UBLVersionID").SetText("2.1")
	root.CreateElement("cbc:CustomizationID").SetText(customizationID)
	root.CreateElement("cbc:ID").SetText(po.PONumber)
	root.CreateElement("cbc:UUID").SetText(po.ID)
	root.CreateElement("cbc:IssueDate").SetText(po.OrderDate.UTC().Format(dateLayout))
	root.CreateElement("cbc:OrderTypeCode").SetText(orderTypeCode)
	if po.Notes != "" {
		root.CreateElement("cbc:Note").SetText(po.Notes)
	}
	root.CreateElement("cbc:DocumentCurrencyCode").SetText(b.currency)

	buyer := root.CreateElement("cac:BuyerCustomerParty").CreateElement("cac:Party")
	addPartyIdentification(buyer, doc.Warehouse.Code)
	buyer.CreateElement("cac:PartyName").CreateElement("cbc:Name").SetText(doc.Warehouse.Name)
	if doc.Warehouse.Address != "" {
		buyer.CreateElement("cac:PostalAddress").CreateElement("cbc:StreetName").SetText(doc.Warehouse.Address)
	}

	seller := root.CreateElement("cac:SellerSupplierParty").CreateElement("cac:Party")
	addSupplierIdentification(seller, doc.Supplier.Country, firstNonEmpty(doc.Supplier.TaxID, doc.Supplier.Code))
	seller.CreateElement("cac:PartyName").CreateElement("cbc:Name").SetText(doc.Supplier.Name)
	if addr := supplierAddress(doc); addr != nil {
		seller.AddChild(addr)
	}
	if doc.Supplier.Email != "" || doc.Supplier.Phone != "" || doc.Supplier.ContactPerson != "" {
		contact := seller.CreateElement("cac:Contact")
		setIf(contact, "cbc:Name", doc.Supplier.ContactPerson)
		setIf(contact, "cbc:Telephone", doc.Supplier.Phone)
		setIf(contact, "cbc:ElectronicMail", doc.Supplier.Email)
	}

	if po.ExpectedDeliveryDate != nil {
		delivery := root.CreateElement("cac:Delivery")
		delivery.CreateElement("cac:RequestedDeliveryPeriod").
			CreateElement("cbc:EndDate").SetText(po.ExpectedDeliveryDate.UTC().Format(dateLayout))
	}
	if doc.Supplier.PaymentTerms != "" {
		root.CreateElement("cac:PaymentTerms").CreateElement("cbc:Note").SetText(doc.Supplier.PaymentTerms)
	}

	subtotal := doc.Subtotal()
	totals := root.CreateElement("cac:AnticipatedMonetaryTotal")
	b.amount(totals, "cbc:LineExtensionAmount", subtotal)
	b.amount(totals, "cbc:PayableAmount", po.TotalAmount)

	for i, l := range doc.Lines {
		lineItem := root.CreateElement("cac:OrderLine").CreateElement("cac:LineItem")
		lineItem.CreateElement("cbc:ID").SetText(fmt.Sprintf("%d", i+1))
		qty := lineItem.CreateElement("cbc:Quantity")
		qty.CreateAttr("unitCode", unitCode(l.UnitOfMeasure))
		qty.SetText(fmt.Sprintf("%d", l.QuantityOrdered))
		b.amount(lineItem, "cbc:LineExtensionAmount", l.TotalPrice)
		b.amount(lineItem.CreateElement("cac:Price"), "cbc:PriceAmount", l.UnitPrice)
		item := lineItem.CreateElement("cac:Item")
		item.CreateElement("cbc:Name").SetText(l.ProductName)
		if l.SKU != "" {
			item.CreateElement("cac:SellersItemIdentification").CreateElement("cbc:ID").SetText(l.SKU)
		}
	}
	return root
}

func (b *OrderBuilder) amount(parent *etree.Element, tag string, v decimal.Decimal) {
	el := parent.CreateElement(tag)
	el.CreateAttr("currencyID", b.currency)
	el.SetText(v.StringFixed(2))
}

// Digest canonicaliza (C14N 1.0) el XML y devuelve su SHA-256 en hex.
// La declaración XML no forma parte de la forma canónica.
func Digest(data []byte) (string, error) {
	canon, err := canonicalize(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyDigest indica si el XML exportado corresponde al digest entregado.
func VerifyDigest(data []byte, digest string) (bool, error) {
	got, err := Digest(data)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, digest), nil
}

func canonicalize(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("ubl: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("ubl: documento sin raíz")
	}
	bare := etree.NewDocument()
	bare.SetRoot(root.Copy())
	raw, err := bare.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("ubl: serializar: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	canon, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("ubl: canonicalizar: %w", err)
	}
	return canon, nil
}

func addPartyIdentification(party *etree.Element, id string) {
	if id == "" {
		return
	}
	party.CreateElement("cac:PartyIdentification").CreateElement("cbc:ID").SetText(id)
}

// addSupplierIdentification un NIT colombiano válido va sin el dígito de verificación,
// que se informa en schemeID.
func addSupplierIdentification(party *etree.Element, country, id string) {
	if !nit.IsColombia(country) {
		addPartyIdentification(party, id)
		return
	}
	base, dv, err := nit.Split(id)
	if err != nil {
		addPartyIdentification(party, id)
		return
	}
	el := party.CreateElement("cac:PartyIdentification").CreateElement("cbc:ID")
	el.CreateAttr("schemeID", dv)
	el.CreateAttr("schemeName", nit.SchemeName)
	el.SetText(base)
}

func supplierAddress(doc *purchasing.OrderDocument) *etree.Element {
	s := doc.Supplier
	if s.Address == "" && s.City == "" && s.Country == "" {
		return nil
	}
	addr := etree.NewElement("cac:PostalAddress")
	setIf(addr, "cbc:StreetName", s.Address)
	setIf(addr, "cbc:CityName", s.City)
	setIf(addr, "cbc:PostalZone", s.PostalCode)
	setIf(addr, "cbc:CountrySubentity", s.State)
	if s.Country != "" {
		addr.CreateElement("cac:Country").CreateElement("cbc:IdentificationCode").SetText(s.Country)
	}
	return addr
}

func setIf(parent *etree.Element, tag, value string) {
	if value != "" {
		parent.CreateElement(tag).SetText(value)
	}
}

func unitCode(uom string) string {
	if code, ok := unitCodes[strings.ToUpper(uom)]; ok {
		return code
	}
	if uom == "" {
		return unitCodes["PCS"]
	}
	return uom
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
