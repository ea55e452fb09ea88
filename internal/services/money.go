package services

import "github.com/shopspring/decimal"

// round2 rounds a monetary amount to cents through decimal arithmetic, so
// repeated recalculation of the same input lands on the same value.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// lineAmount computes quantity x unit price rounded to cents.
func lineAmount(qty, unitPrice float64) float64 {
	q := decimal.NewFromFloat(qty)
	p := decimal.NewFromFloat(unitPrice)
	return q.Mul(p).Round(2).InexactFloat64()
}

// vatAmount computes amount x rate/100 rounded to cents.
func vatAmount(amount, rate float64) float64 {
	a := decimal.NewFromFloat(amount)
	r := decimal.NewFromFloat(rate)
	return a.Mul(r).Div(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
