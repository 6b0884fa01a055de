package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for the checkout workflow.
var (
	ErrEmptyItems          = errors.New("items required")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
	ErrNotFound            = errors.New("order not found")

	// ErrDuplicateKey is returned by IdempotencyStore.Create when the key is
	// already bound. The workflow catches it and re-resolves the key as a
	// replay or conflict.
	ErrDuplicateKey = errors.New("idempotency key already exists")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Shortfall records a single item whose requested quantity exceeded the
// available quantity at pre-check time.
type Shortfall struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError aggregates every shortfall found by the
// all-or-nothing stock pre-check. It is raised before any reservation is
// made, so it never carries partial side effects.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	var b strings.Builder
	b.WriteString("insufficient stock:")
	for _, s := range e.Shortfalls {
		fmt.Fprintf(&b, " %s (requested %d, available %d)", s.ProductID, s.Requested, s.Available)
	}
	return b.String()
}
