package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/procurement-api/internal/domain/inventory"
)

func TestWeightedCost_Promedio(t *testing.T) {
	// 10 u a 100 + 30 u a 200 = 7000 / 40
	got := inventory.WeightedCost(10, decimal.NewFromInt(100), 30, decimal.NewFromInt(200))
	assert.True(t, decimal.NewFromInt(175).Equal(got), got.String())
}

func TestWeightedCost_SinExistencias(t *testing.T) {
	got := inventory.WeightedCost(0, decimal.NewFromInt(999), 5, decimal.RequireFromString("12.5"))
	assert.True(t, decimal.RequireFromString("12.5").Equal(got))

	// Saldo negativo heredado cuenta como cero.
	got = inventory.WeightedCost(-3, decimal.NewFromInt(50), 2, decimal.NewFromInt(80))
	assert.True(t, decimal.NewFromInt(80).Equal(got))
}

func TestCostCalculator_CantidadCero(t *testing.T) {
	got := inventory.CostCalculator(decimal.Zero, decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(20))
	assert.True(t, got.IsZero())
}
