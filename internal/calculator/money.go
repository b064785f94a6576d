package calculator

import "github.com/shopspring/decimal"

// CentPlaces is the number of decimal places money is rounded to at output.
const CentPlaces int32 = 2

// Round rounds d to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// Sum adds the given amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
