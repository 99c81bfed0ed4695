// Package money holds the currency rounding rules shared by every aggregation in the engine.
//
// Amounts travel as float64 through the models, but every sum and every rounding step goes
// through shopspring/decimal so that totals built from rounded parts add up exactly.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places currency amounts are rounded to.
const Places = 2

// Round rounds an amount half away from zero to cents.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(Places).InexactFloat64()
}

// Sum adds the values exactly and rounds the total to cents.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(Places).InexactFloat64()
}

// Sub returns a - b1 - b2 ... computed exactly and rounded to cents.
func Sub(a float64, b ...float64) float64 {
	total := decimal.NewFromFloat(a)
	for _, v := range b {
		total = total.Sub(decimal.NewFromFloat(v))
	}
	return total.Round(Places).InexactFloat64()
}

// Mul returns a * b rounded to cents.
func Mul(a, b float64) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(Places).InexactFloat64()
}

// Accumulator sums amounts without intermediate float drift.
type Accumulator struct {
	total decimal.Decimal
}

// Add adds v to the running total.
func (a *Accumulator) Add(v float64) {
	a.total = a.total.Add(decimal.NewFromFloat(v))
}

// Total returns the running total rounded to cents.
func (a *Accumulator) Total() float64 {
	return a.total.Round(Places).InexactFloat64()
}

// Percent returns numerator / denominator * 100 rounded to two places, or nil when the
// denominator is zero.
func Percent(numerator, denominator float64) *float64 {
	if denominator == 0 || math.IsNaN(denominator) {
		return nil
	}
	v := decimal.NewFromFloat(numerator).
		Div(decimal.NewFromFloat(denominator)).
		Mul(decimal.NewFromInt(100)).
		Round(Places).
		InexactFloat64()
	return &v
}

// PercentChange returns (current - previous) / |previous| * 100, or nil when previous is zero.
func PercentChange(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	diff := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(previous))
	v := diff.Div(decimal.NewFromFloat(previous).Abs()).
		Mul(decimal.NewFromInt(100)).
		Round(Places).
		InexactFloat64()
	return &v
}
