package inventory

import "github.com/shopspring/decimal"

// CostCalculator implementa el costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum).Round(4)
}

// WeightedCost adapta CostCalculator a cantidades enteras del ledger.
func WeightedCost(onHand int64, currentCost decimal.Decimal, received int64, receivedCost decimal.Decimal) decimal.Decimal {
	if onHand < 0 {
		onHand = 0
	}
	return CostCalculator(decimal.NewFromInt(onHand), currentCost, decimal.NewFromInt(received), receivedCost)
}
