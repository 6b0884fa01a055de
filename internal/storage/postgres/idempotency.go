package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookverse/checkout/internal/domain/order"
)

const (
	getIdempotencySQL = `SELECT key, order_id, request_hash, created_at
		FROM idempotency_keys WHERE key = $1`

	insertIdempotencySQL = `INSERT INTO idempotency_keys (key, order_id, request_hash, created_at)
		VALUES ($1, $2, $3, $4)`

	deleteIdempotencySQL = `DELETE FROM idempotency_keys WHERE key = $1`
)

var _ order.IdempotencyStore = (*IdempotencyRepository)(nil)

// IdempotencyRepository implements order.IdempotencyStore backed by
// PostgreSQL. Key uniqueness is enforced by the primary key, so a racing
// second insert surfaces as order.ErrDuplicateKey at the commit boundary.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository returns an IdempotencyRepository that uses the
// given pool.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Get returns the record for key, or (nil, nil) when no record exists.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*order.IdempotencyRecord, error) {
	var rec order.IdempotencyRecord
	err := dbFrom(ctx, r.pool).QueryRow(ctx, getIdempotencySQL, key).
		Scan(&rec.Key, &rec.OrderID, &rec.Fingerprint, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get idempotency record %q", key)
	}
	return &rec, nil
}

// Create inserts a write-once record binding key to order and fingerprint.
func (r *IdempotencyRepository) Create(ctx context.Context, rec *order.IdempotencyRecord) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, insertIdempotencySQL,
		rec.Key, rec.OrderID, rec.Fingerprint, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return order.ErrDuplicateKey
		}
		return errors.Wrapf(err, "create idempotency record %q", rec.Key)
	}
	return nil
}

// Delete unbinds a key. Deleting an absent key is a no-op.
func (r *IdempotencyRepository) Delete(ctx context.Context, key string) error {
	if _, err := dbFrom(ctx, r.pool).Exec(ctx, deleteIdempotencySQL, key); err != nil {
		return errors.Wrapf(err, "delete idempotency record %q", key)
	}
	return nil
}
