package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusPending marks a freshly created or placeholder order that has not
	// completed the checkout workflow.
	StatusPending Status = "PENDING"
	// StatusConfirmed is the terminal success state: stock is reserved, totals
	// are computed, and the outbox event is written.
	StatusConfirmed Status = "CONFIRMED"
	// StatusCancelled is the terminal failure state reached after compensation.
	StatusCancelled Status = "CANCELLED"
)

// Order represents a customer order. Total equals the sum of its item line
// totals at the moment the status transitions to CONFIRMED.
type Order struct {
	ID        string
	UserID    string
	Status    Status
	Total     decimal.Decimal
	Currency  string
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a single line of an order. LineTotal is quantity × unit price
// rounded to 2 decimal places and is immutable once written.
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// IdempotencyRecord binds a client-supplied idempotency key to the order it
// produced and the fingerprint of the request that produced it. A record is
// never rewritten in place; a pre-reservation failure deletes it together
// with its placeholder order so the key can be bound again.
type IdempotencyRecord struct {
	Key         string
	OrderID     string
	Fingerprint string
	CreatedAt   time.Time
}

// OutboxEvent is an append-only domain event record, drained out-of-process
// by an external publisher in creation order.
type OutboxEvent struct {
	ID          string
	Type        string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// EventOrderCreated is the outbox event type written on successful checkout.
const EventOrderCreated = "order.created"

// ListFilter narrows and pages the order listing.
type ListFilter struct {
	UserID string
	Page   int
	Size   int
}

// Repository defines persistence operations for orders and their items.
// WithTx runs fn inside a single database transaction; repository calls made
// with the context passed to fn join that transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error
	InsertItems(ctx context.Context, items []Item) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
}

// IdempotencyStore persists idempotency records. Get returns (nil, nil) when
// no record exists for the key. Create returns ErrDuplicateKey when another
// request has already bound the key. Delete unbinds a key so a later request
// may rebind it.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Create(ctx context.Context, rec *IdempotencyRecord) error
	Delete(ctx context.Context, key string) error
}

// OutboxWriter appends domain events durably, inside the ambient transaction
// when one is present on the context.
type OutboxWriter interface {
	Append(ctx context.Context, ev *OutboxEvent) error
}
