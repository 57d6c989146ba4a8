package models

import "github.com/shopspring/decimal"

// Import precision for bill-of-materials quantities.
const (
	BatchQtyPlaces  = 4
	CartonQtyPlaces = 5
)

// RoundTo rounds v half away from zero to the given number of decimal places.
func RoundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// FormatDisplay renders a figure for reports: two decimals, or no decimals
// when the rounded value is whole. It never feeds back into stored state.
func FormatDisplay(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsInteger() {
		return d.StringFixed(0)
	}
	return d.StringFixed(2)
}

// FormatFixed2 renders v with exactly two decimals.
func FormatFixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
