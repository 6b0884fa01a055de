// Package upstream implements the inventory gateway over HTTP.
package upstream

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bookverse/checkout/internal/domain/inventory"
)

// Config controls the resilience behaviour of the inventory client.
type Config struct {
	// BaseURL is the root of the inventory authority, e.g. http://inventory:8001.
	BaseURL string
	// Timeout bounds each individual attempt, not the whole call.
	Timeout time.Duration
	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int
	// RetryBaseDelay is the backoff before the first retry; the delay grows
	// exponentially per attempt.
	RetryBaseDelay time.Duration
}

var _ inventory.Gateway = (*Client)(nil)

// Client talks to the external stock authority. Transport failures and 5xx
// responses are retried with exponential backoff; 4xx responses fail
// immediately. The backoff sleep blocks only the calling goroutine.
type Client struct {
	http *resty.Client
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryAttempts).
		SetRetryWaitTime(cfg.RetryBaseDelay).
		SetRetryMaxWaitTime(cfg.RetryBaseDelay << uint(cfg.RetryAttempts)).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: c}
}

// availabilityEnvelope mirrors the upstream response body for both the query
// and adjust operations.
type availabilityEnvelope struct {
	Inventory struct {
		QuantityAvailable int `json:"quantityAvailable"`
	} `json:"inventory"`
}

type adjustRequest struct {
	QuantityChange int    `json:"quantityChange"`
	Notes          string `json:"notes"`
}

// Query returns the current availability of a product. An upstream 404 is a
// successful not-found result and consumes no retry budget.
func (c *Client) Query(ctx context.Context, productID string) (inventory.Availability, error) {
	var out availabilityEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("productId", productID).
		SetResult(&out).
		Get("/api/v1/inventory/{productId}")
	if err != nil {
		return inventory.Availability{}, &inventory.UpstreamError{Op: "query", Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return inventory.Availability{ProductID: productID}, nil
	case resp.IsSuccess():
		return inventory.Availability{
			ProductID: productID,
			Available: out.Inventory.QuantityAvailable,
			Found:     true,
		}, nil
	default:
		return inventory.Availability{}, &inventory.UpstreamError{Op: "query", Status: resp.StatusCode()}
	}
}

// Adjust applies a signed quantity change tagged with an audit note and
// returns the resulting quantity.
func (c *Client) Adjust(ctx context.Context, productID string, delta int, note string) (int, error) {
	var out availabilityEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("productId", productID).
		SetBody(adjustRequest{QuantityChange: delta, Notes: note}).
		SetResult(&out).
		Post("/api/v1/inventory/adjust")
	if err != nil {
		return 0, &inventory.UpstreamError{Op: "adjust", Err: err}
	}
	if !resp.IsSuccess() {
		return 0, &inventory.UpstreamError{Op: "adjust", Status: resp.StatusCode()}
	}
	return out.Inventory.QuantityAvailable, nil
}
