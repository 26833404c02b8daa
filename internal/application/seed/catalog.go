package seed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CatalogRow producto leído de un CSV de catálogo.
type CatalogRow struct {
	SKU             string
	Name            string
	Category        string
	Unit            string
	Cost            decimal.Decimal
	ReorderPoint    int64
	ReorderQuantity int64
}

var catalogColumns = []string{"sku", "name", "category", "unit", "cost", "reorder_point", "reorder_quantity"}

// ReadCatalog lee un CSV con cabecera sku,name,category,unit,cost,reorder_point,reorder_quantity
// (el orden de columnas es libre). Con latin1=true el archivo se decodifica como ISO-8859-1,
// el formato en que suelen exportar las hojas de cálculo en español.
func ReadCatalog(r io.Reader, latin1 bool) ([]CatalogRow, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catálogo: cabecera: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range []string{"sku", "name"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("catálogo: falta la columna %q (columnas: %s)", col, strings.Join(catalogColumns, ","))
		}
	}

	var rows []CatalogRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catálogo línea %d: %w", line, err)
		}
		get := func(col string) string {
			if i, ok := idx[col]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		row := CatalogRow{
			SKU:      get("sku"),
			Name:     get("name"),
			Category: get("category"),
			Unit:     strings.ToUpper(get("unit")),
			Cost:     decimal.Zero,
		}
		if row.SKU == "" {
			continue
		}
		if v := get("cost"); v != "" {
			if row.Cost, err = decimal.NewFromString(strings.ReplaceAll(v, ",", ".")); err != nil {
				return nil, fmt.Errorf("catálogo línea %d: costo %q: %w", line, v, err)
			}
		}
		if row.ReorderPoint, err = parseQty(get("reorder_point")); err != nil {
			return nil, fmt.Errorf("catálogo línea %d: reorder_point: %w", line, err)
		}
		if row.ReorderQuantity, err = parseQty(get("reorder_quantity")); err != nil {
			return nil, fmt.Errorf("catálogo línea %d: reorder_quantity: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseQty(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
