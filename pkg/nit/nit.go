// Package nit valida y completa el NIT colombiano (número de identificación tributaria)
// con su dígito de verificación módulo 11.
package nit

import (
	"fmt"
	"strings"
	"unicode"
)

// pesos de los 9 dígitos base, de izquierda a derecha.
var weights = [9]int{41, 37, 29, 23, 19, 17, 13, 7, 3}

// SchemeName código del tipo de documento NIT en UBL colombiano.
const SchemeName = "31"

// Validate acepta "900123456-8", "900.123.456-8" o "9001234568".
func Validate(taxID string) error {
	digits := extractDigits(taxID)
	if len(digits) != 10 {
		return fmt.Errorf("nit: se esperan 9 dígitos más el de verificación, se recibieron %d", len(digits))
	}
	expected := checkDigit(digits[:9])
	if digits[9] != expected {
		return fmt.Errorf("nit: dígito de verificación inválido: esperado %c, recibido %c", expected, digits[9])
	}
	return nil
}

// CheckDigit calcula el dígito de verificación de los 9 primeros dígitos.
func CheckDigit(taxID string) (byte, error) {
	digits := extractDigits(taxID)
	if len(digits) < 9 {
		return 0, fmt.Errorf("nit: se requieren 9 dígitos, se encontraron %d", len(digits))
	}
	return checkDigit(digits[:9]), nil
}

// Split devuelve la base de 9 dígitos y el dígito de verificación de un NIT válido.
func Split(taxID string) (base string, dv string, err error) {
	if err := Validate(taxID); err != nil {
		return "", "", err
	}
	digits := extractDigits(taxID)
	return string(digits[:9]), string(digits[9]), nil
}

// IsColombia indica si el país del proveedor exige NIT.
func IsColombia(country string) bool {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "CO", "COL", "COLOMBIA":
		return true
	}
	return false
}

func checkDigit(base []byte) byte {
	var sum int
	for i, d := range base {
		sum += int(d-'0') * weights[i]
	}
	remainder := sum % 11
	if remainder == 0 || remainder == 1 {
		return byte('0' + remainder)
	}
	return byte('0' + (11 - remainder))
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
