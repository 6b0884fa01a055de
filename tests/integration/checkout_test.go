//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderBody(userID string, items ...string) string {
	body := fmt.Sprintf(`{"userId":%q,"items":[`, userID)
	for i, it := range items {
		if i > 0 {
			body += ","
		}
		body += it
	}
	return body + "]}"
}

func line(productID string, qty int, price string) string {
	return fmt.Sprintf(`{"productId":%q,"qty":%d,"unitPrice":%q}`, productID, qty, price)
}

func TestCheckout_Success(t *testing.T) {
	stock.set("suc-1", 10)
	stock.set("suc-2", 5)

	resp, body := postOrder(t, orderBody("user-a",
		line("suc-1", 2, "12.50"),
		line("suc-2", 1, "3.99"),
	), "")

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "CONFIRMED", body["status"])
	assert.Equal(t, "28.99", body["total"])
	assert.Equal(t, "USD", body["currency"])

	orderID, _ := body["orderId"].(string)
	require.NotEmpty(t, orderID)

	// Stock was drawn down at the source.
	qty, _ := stock.get("suc-1")
	assert.Equal(t, 8, qty)
	qty, _ = stock.get("suc-2")
	assert.Equal(t, 4, qty)

	// The order reads back with its items.
	resp, body = getJSON(t, "/orders/"+orderID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CONFIRMED", body["status"])
	items, _ := body["items"].([]any)
	assert.Len(t, items, 2)

	// One order.created outbox row was written atomically with the order.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var count int
	err := pool.QueryRow(ctx,
		`SELECT count(*) FROM outbox_events WHERE type = 'order.created' AND payload::text LIKE '%'||$1||'%'`,
		orderID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	stock.set("rep-1", 10)
	body := orderBody("user-b", line("rep-1", 3, "5.00"))

	resp1, first := postOrder(t, body, "replay-key")
	require.Equal(t, http.StatusCreated, resp1.StatusCode)

	resp2, second := postOrder(t, body, "replay-key")
	require.Equal(t, http.StatusCreated, resp2.StatusCode)

	assert.Equal(t, first["orderId"], second["orderId"])
	assert.Equal(t, first["total"], second["total"])

	// The replay made no second reservation.
	qty, _ := stock.get("rep-1")
	assert.Equal(t, 7, qty)
}

func TestCheckout_IdempotencyConflict(t *testing.T) {
	stock.set("con-1", 10)

	resp, _ := postOrder(t, orderBody("user-c", line("con-1", 1, "5.00")), "conflict-key")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := postOrder(t, orderBody("user-c", line("con-1", 2, "5.00")), "conflict-key")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "idempotency_conflict", body["code"])

	qty, _ := stock.get("con-1")
	assert.Equal(t, 9, qty, "conflicting request must not touch stock")
}

func TestCheckout_InsufficientStock(t *testing.T) {
	stock.set("short-1", 1)

	resp, body := postOrder(t, orderBody("user-d",
		line("short-1", 5, "5.00"),
		line("short-missing", 2, "5.00"),
	), "")

	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "insufficient_stock", body["code"])

	shortfalls, _ := body["shortfalls"].([]any)
	require.Len(t, shortfalls, 2)
	first, _ := shortfalls[0].(map[string]any)
	assert.Equal(t, "short-1", first["productId"])
	assert.Equal(t, float64(5), first["requested"])
	assert.Equal(t, float64(1), first["available"])

	qty, _ := stock.get("short-1")
	assert.Equal(t, 1, qty, "pre-check failure must reserve nothing")
}

func TestCheckout_RetryAfterRestock(t *testing.T) {
	stock.set("rst-1", 1)
	body := orderBody("user-g", line("rst-1", 2, "4.00"))

	resp, parsed := postOrder(t, body, "restock-key")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "insufficient_stock", parsed["code"])

	// The failed attempt must leave no placeholder bound to the key.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var bound int
	err := pool.QueryRow(ctx, `SELECT count(*) FROM idempotency_keys WHERE key = $1`, "restock-key").Scan(&bound)
	require.NoError(t, err)
	require.Zero(t, bound)

	stock.set("rst-1", 5)

	resp, parsed = postOrder(t, body, "restock-key")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "CONFIRMED", parsed["status"])
	assert.Equal(t, "8.00", parsed["total"])

	qty, _ := stock.get("rst-1")
	assert.Equal(t, 3, qty)
}

func TestCheckout_ReservationFailureCompensates(t *testing.T) {
	stock.set("comp-1", 10)
	stock.set("comp-2", 10)
	stock.failOn("comp-2")

	resp, body := postOrder(t, orderBody("user-e",
		line("comp-1", 4, "2.00"),
		line("comp-2", 1, "2.00"),
	), "comp-key")

	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "upstream_error", body["code"])

	// The first reservation was reversed.
	qty, _ := stock.get("comp-1")
	assert.Equal(t, 10, qty)

	// The placeholder order bound to the key ends up CANCELLED.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var status string
	err := pool.QueryRow(ctx,
		`SELECT o.status FROM orders o JOIN idempotency_keys k ON k.order_id = o.id WHERE k.key = $1`,
		"comp-key",
	).Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", status)
}

func TestCheckout_GetUnknownOrder(t *testing.T) {
	resp, body := getJSON(t, "/orders/00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}

func TestCheckout_ListByUser(t *testing.T) {
	stock.set("list-1", 100)

	for i := 0; i < 3; i++ {
		resp, _ := postOrder(t, orderBody("user-list", line("list-1", 1, "1.00")), "")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := getJSON(t, "/orders?userId=user-list&page=1&size=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, float64(3), body["total"])
	orders, _ := body["orders"].([]any)
	assert.Len(t, orders, 2)
}
