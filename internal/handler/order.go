package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bookverse/checkout/internal/domain/inventory"
	"github.com/bookverse/checkout/internal/domain/order"
)

const idempotencyHeader = "Idempotency-Key"

const (
	maxItemsPerOrder = 100
	maxQtyPerItem    = 999
)

type itemRequest struct {
	ProductID string          `json:"productId"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type createOrderRequest struct {
	UserID string        `json:"userId"`
	Items  []itemRequest `json:"items"`
}

type itemResponse struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

type orderResponse struct {
	OrderID   string         `json:"orderId"`
	Status    string         `json:"status"`
	Total     string         `json:"total"`
	Currency  string         `json:"currency"`
	Items     []itemResponse `json:"items"`
	CreatedAt string         `json:"createdAt"`
}

type listOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
	Page   int             `json:"page"`
	Size   int             `json:"size"`
	Total  int             `json:"total"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if msg := validateCreateOrder(req); msg != "" {
		writeError(w, http.StatusBadRequest, codeValidationError, msg)
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Qty,
			UnitPrice: it.UnitPrice,
		}
	}

	ord, err := h.svc.CreateOrder(r.Context(), order.CreateOrderRequest{
		UserID:         req.UserID,
		Items:          items,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		writeCreateOrderError(w, r, err)
		return
	}

	// A replay can resolve to a CANCELLED order; reporting that as Created
	// would misstate the outcome.
	status := http.StatusCreated
	if ord.Status != order.StatusConfirmed {
		status = http.StatusOK
	}
	writeJSON(w, status, toOrderResponse(ord))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("orderId")

	ord, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("order %s not found", id))
			return
		}
		logError(r, "get order failed", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(ord))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := order.ListFilter{
		UserID: r.URL.Query().Get("userId"),
		Page:   queryInt(r, "page", 1),
		Size:   queryInt(r, "size", 20),
	}

	orders, total, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		logError(r, "list orders failed", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	resp := listOrdersResponse{
		Orders: make([]orderResponse, len(orders)),
		Page:   f.Page,
		Size:   f.Size,
		Total:  total,
	}
	for i := range orders {
		resp.Orders[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeCreateOrderError maps workflow errors 1:1 to response codes. The
// caller always sees the original triggering error, never a compensation
// failure.
func writeCreateOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr    *order.InvalidQuantityError
		stockErr *order.InsufficientStockError
		upErr    *inventory.UpstreamError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, codeValidationError, err.Error())
	case errors.As(err, &iqErr):
		writeError(w, http.StatusBadRequest, codeValidationError, iqErr.Error())
	case errors.Is(err, order.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, codeIdempotencyError, "order already exists with different parameters")
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:      stockErr.Error(),
			Code:       codeInsufficientStock,
			Shortfalls: stockErr.Shortfalls,
		})
	case errors.As(err, &upErr):
		logError(r, "inventory upstream failed", err)
		writeError(w, http.StatusBadGateway, codeUpstreamError, "inventory service unavailable")
	default:
		logError(r, "create order failed", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func validateCreateOrder(req createOrderRequest) string {
	if req.UserID == "" {
		return "userId required"
	}
	if len(req.Items) == 0 {
		return "items required"
	}
	if len(req.Items) > maxItemsPerOrder {
		return fmt.Sprintf("at most %d items per order", maxItemsPerOrder)
	}
	for _, it := range req.Items {
		if it.ProductID == "" {
			return "productId required for every item"
		}
		if it.Qty <= 0 {
			return fmt.Sprintf("quantity must be greater than 0 for product %s", it.ProductID)
		}
		if it.Qty > maxQtyPerItem {
			return fmt.Sprintf("quantity must be at most %d for product %s", maxQtyPerItem, it.ProductID)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Sprintf("unitPrice must not be negative for product %s", it.ProductID)
		}
	}
	return ""
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]itemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemResponse{
			ProductID: it.ProductID,
			Qty:       it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			LineTotal: it.LineTotal.StringFixed(2),
		}
	}
	return orderResponse{
		OrderID:   o.ID,
		Status:    string(o.Status),
		Total:     o.Total.StringFixed(2),
		Currency:  o.Currency,
		Items:     items,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
