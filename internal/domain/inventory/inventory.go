// Package inventory defines the contract with the external stock authority.
package inventory

import (
	"context"
	"fmt"
)

// Availability is the result of a stock query. Found is false when the
// upstream does not know the product; an unknown product is a successful
// lookup result, not an error.
type Availability struct {
	ProductID string
	Available int
	Found     bool
}

// Gateway is the sole channel to the stock authority. Adjust applies a signed
// quantity change (negative reserves, positive releases) tagged with an audit
// note, and returns the resulting quantity.
type Gateway interface {
	Query(ctx context.Context, productID string) (Availability, error)
	Adjust(ctx context.Context, productID string, delta int, note string) (int, error)
}

// UpstreamError classifies a failure of the stock authority: a rejected
// adjustment, a non-retryable client error, or retry exhaustion on transport
// failures and 5xx responses. Status is zero when no HTTP response was
// received.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("inventory %s: upstream status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("inventory %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
