package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		quantity int
		want     string
	}{
		{"whole", "10.00", 3, "30.00"},
		{"cents", "3.99", 2, "7.98"},
		{"rounds half up", "1.005", 1, "1.01"},
		{"sub-cent price", "0.333", 3, "1.00"},
		{"single unit", "12.50", 1, "12.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(decimal.RequireFromString(tt.price), tt.quantity)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestOrderTotal_SingleFinalRounding(t *testing.T) {
	// Each line is 1.005; per-line rounding then summing would give 2.02.
	lines := []Line{
		{UnitPrice: decimal.RequireFromString("1.005"), Quantity: 1},
		{UnitPrice: decimal.RequireFromString("1.005"), Quantity: 1},
	}
	assert.Equal(t, "2.01", OrderTotal(lines).StringFixed(2))
}

func TestOrderTotal_Empty(t *testing.T) {
	assert.Equal(t, "0.00", OrderTotal(nil).StringFixed(2))
}

func TestOrderTotal_MatchesLineSumWhenExact(t *testing.T) {
	lines := []Line{
		{UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2},
		{UnitPrice: decimal.RequireFromString("3.99"), Quantity: 1},
	}
	assert.Equal(t, "28.99", OrderTotal(lines).StringFixed(2))
}
