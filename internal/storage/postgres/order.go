package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookverse/checkout/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, status, total_amount, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateOrderSQL = `UPDATE orders
		SET user_id = $2, status = $3, total_amount = $4, updated_at = $5
		WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	insertItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderSQL = `SELECT id, user_id, status, total_amount, currency, created_at, updated_at
		FROM orders WHERE id = $1`

	getItemsSQL = `SELECT id, order_id, product_id, quantity, unit_price, line_total
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`

	countOrdersSQL = `SELECT count(*) FROM orders WHERE ($1 = '' OR user_id = $1)`

	listOrdersSQL = `SELECT id, user_id, status, total_amount, currency, created_at, updated_at
		FROM orders WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// WithTx runs fn inside one database transaction. Repository calls made with
// the context passed to fn join that transaction.
func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// Create persists a new order row without items.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, string(o.Status), o.Total, o.Currency, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// Update rewrites the mutable order columns: user binding, status, and total.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := dbFrom(ctx, r.pool).Exec(ctx, updateOrderSQL,
		o.ID, o.UserID, string(o.Status), o.Total, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes an order row; items follow via ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := dbFrom(ctx, r.pool).Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// InsertItems persists all line items of one order.
func (r *OrderRepository) InsertItems(ctx context.Context, items []order.Item) error {
	q := dbFrom(ctx, r.pool)
	for _, it := range items {
		_, err := q.Exec(ctx, insertItemSQL,
			it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice, it.LineTotal,
		)
		if err != nil {
			return errors.Wrapf(err, "insert item %q of order %q", it.ProductID, it.OrderID)
		}
	}
	return nil
}

// Get returns one order with its items, or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	q := dbFrom(ctx, r.pool)

	rows, err := q.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	items, err := r.itemsByOrder(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	return &o, nil
}

// List returns one page of orders with items plus the total match count.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, int, error) {
	q := dbFrom(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, countOrdersSQL, f.UserID).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	offset := (f.Page - 1) * f.Size
	rows, err := q.Query(ctx, listOrdersSQL, f.UserID, f.Size, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	if len(orders) == 0 {
		return orders, total, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.itemsByOrder(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, total, nil
}

func (r *OrderRepository) itemsByOrder(ctx context.Context, orderIDs []string) (map[string][]order.Item, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, getItemsSQL, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get order items")
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrap(err, "get order items")
	}

	byOrder := make(map[string][]order.Item, len(orderIDs))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	return byOrder, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &status, &o.Total, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	o.Status = order.Status(status)
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.LineTotal)
	return it, err
}
