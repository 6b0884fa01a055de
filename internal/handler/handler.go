// Package handler exposes the checkout workflow over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/bookverse/checkout/internal/domain/order"
)

// CheckoutService is the slice of the order workflow the HTTP layer needs.
type CheckoutService interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	ListOrders(ctx context.Context, f order.ListFilter) ([]order.Order, int, error)
}

// Handler routes the order API endpoints to the checkout service.
type Handler struct {
	svc CheckoutService
}

// NewHandler constructs a Handler around the given service.
func NewHandler(svc CheckoutService) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the order routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{orderId}", h.getOrder)
}

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeValidationError    = "validation_error"
	codeIdempotencyError   = "idempotency_conflict"
	codeInsufficientStock  = "insufficient_stock"
	codeUpstreamError      = "upstream_error"
	codeNotFound           = "not_found"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error      string            `json:"error"`
	Code       string            `json:"code"`
	Shortfalls []order.Shortfall `json:"shortfalls,omitempty"`
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// logError records unexpected failures with the request-scoped logger.
func logError(r *http.Request, msg string, err error) {
	zctx.From(r.Context()).Error(msg, zap.Error(err))
}
