package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookverse/checkout/internal/domain/order"
)

const insertOutboxSQL = `INSERT INTO outbox_events (id, type, payload, created_at)
	VALUES ($1, $2, $3, $4)`

var _ order.OutboxWriter = (*OutboxRepository)(nil)

// OutboxRepository implements order.OutboxWriter backed by PostgreSQL. The
// table is append-only; processed_at is set by the external drainer and never
// cleared.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository returns an OutboxRepository that uses the given pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Append inserts one event, joining the ambient transaction when present.
func (r *OutboxRepository) Append(ctx context.Context, ev *order.OutboxEvent) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, insertOutboxSQL,
		ev.ID, ev.Type, ev.Payload, ev.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "append outbox event %q", ev.Type)
	}
	return nil
}
