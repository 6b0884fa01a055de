package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/checkout/internal/domain/inventory"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:        srv.URL,
		Timeout:        2 * time.Second,
		RetryAttempts:  2,
		RetryBaseDelay: time.Millisecond,
	}), srv
}

func availabilityBody(qty int) []byte {
	b, _ := json.Marshal(map[string]any{
		"inventory": map[string]any{"quantityAvailable": qty},
	})
	return b
}

func TestQuery_Success(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/inventory/book-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(availabilityBody(7))
	}))

	av, err := c.Query(context.Background(), "book-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.Availability{ProductID: "book-1", Available: 7, Found: true}, av)
}

func TestQuery_NotFoundIsNotAnError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	av, err := c.Query(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, av.Found)
	assert.Zero(t, av.Available)
	assert.Equal(t, int32(1), calls.Load(), "404 must not consume retry budget")
}

func TestQuery_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(availabilityBody(4))
	}))

	av, err := c.Query(context.Background(), "book-1")
	require.NoError(t, err)
	assert.Equal(t, 4, av.Available)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuery_RetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Query(context.Background(), "book-1")

	var upErr *inventory.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "query", upErr.Op)
	assert.Equal(t, http.StatusServiceUnavailable, upErr.Status)
	assert.Equal(t, int32(3), calls.Load(), "1 attempt + 2 retries")
}

func TestAdjust_Success(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/inventory/adjust", r.URL.Path)
		assert.Equal(t, "book-1", r.URL.Query().Get("productId"))

		var body struct {
			QuantityChange int    `json:"quantityChange"`
			Notes          string `json:"notes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, -3, body.QuantityChange)
		assert.Equal(t, "order:abc", body.Notes)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(availabilityBody(9))
	}))

	got, err := c.Adjust(context.Background(), "book-1", -3, "order:abc")
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestAdjust_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := c.Adjust(context.Background(), "book-1", -3, "order:abc")

	var upErr *inventory.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "adjust", upErr.Op)
	assert.Equal(t, http.StatusConflict, upErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAdjust_TransportErrorWrapped(t *testing.T) {
	c := NewClient(Config{
		BaseURL:        "http://127.0.0.1:1", // nothing listens here
		Timeout:        200 * time.Millisecond,
		RetryAttempts:  1,
		RetryBaseDelay: time.Millisecond,
	})

	_, err := c.Adjust(context.Background(), "book-1", -1, "order:abc")

	var upErr *inventory.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Zero(t, upErr.Status)
	assert.Error(t, upErr.Err)
}
