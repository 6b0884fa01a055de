package order

import "github.com/shopspring/decimal"

// LineTotal returns quantity × unit price rounded to 2 decimal places.
// Each stored line total is rounded independently at the point of item
// creation.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Line is one (unit price, quantity) pair for order total computation.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// OrderTotal accumulates unrounded price×quantity products and applies a
// single final rounding to 2 decimal places. Monetary values are
// non-negative, so decimal's round-half-away-from-zero is round-half-up
// here. This is the canonical method: the order total is never derived from
// the already-rounded stored line totals.
func OrderTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2)
}
