package nit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/pkg/nit"
)

func TestValidate(t *testing.T) {
	for _, v := range []string{"900123456-8", "900.123.456-8", "9001234568", "800197268-4"} {
		assert.NoError(t, nit.Validate(v), v)
	}
	assert.ErrorContains(t, nit.Validate("900123456-7"), "esperado 8")
	assert.Error(t, nit.Validate("900123456"), "sin dígito de verificación")
	assert.Error(t, nit.Validate("12345"))
}

func TestCheckDigitYSplit(t *testing.T) {
	dv, err := nit.CheckDigit("900123456")
	require.NoError(t, err)
	assert.Equal(t, byte('8'), dv)

	_, err = nit.CheckDigit("123")
	assert.Error(t, err)

	base, d, err := nit.Split("900.123.456-8")
	require.NoError(t, err)
	assert.Equal(t, "900123456", base)
	assert.Equal(t, "8", d)
}

func TestIsColombia(t *testing.T) {
	assert.True(t, nit.IsColombia(" co "))
	assert.True(t, nit.IsColombia("Colombia"))
	assert.False(t, nit.IsColombia("PE"))
	assert.False(t, nit.IsColombia(""))
}
