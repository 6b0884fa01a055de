package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bookverse/checkout/internal/domain/inventory"
)

// ItemRequest is one requested order line.
type ItemRequest struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateOrderRequest holds the validated input for the checkout workflow.
type CreateOrderRequest struct {
	UserID         string
	Items          []ItemRequest
	IdempotencyKey string
}

// Service orchestrates the checkout workflow: idempotency arbitration, stock
// pre-check, sequential per-item reservation, atomic persistence with an
// outbox event, and compensating reversal on partial failure.
type Service struct {
	orders   Repository
	idems    IdempotencyStore
	outbox   OutboxWriter
	stock    inventory.Gateway
	currency string
}

// NewService creates the checkout Service with the required dependencies.
func NewService(
	orders Repository,
	idems IdempotencyStore,
	outbox OutboxWriter,
	stock inventory.Gateway,
	currency string,
) *Service {
	return &Service{
		orders:   orders,
		idems:    idems,
		outbox:   outbox,
		stock:    stock,
		currency: currency,
	}
}

// CreateOrder runs the full checkout workflow for one logical request.
//
// Requests carrying an idempotency key are arbitrated first: an identical
// retry returns the order already bound to the key unchanged, and a key reuse
// with different content fails with ErrIdempotencyConflict before any side
// effect. The stock pre-check is all-or-nothing: every shortfall is collected
// and nothing is reserved if any exists; a pre-check failure also unwinds the
// placeholder order and key binding so an identical retry, for example after
// restocking, arbitrates from scratch. Reservations are made sequentially in
// request order; a failure during or after the first reservation reverses
// every reservation already made and leaves the order CANCELLED.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
	}

	var ord *Order
	if req.IdempotencyKey != "" {
		dec, err := s.arbitrate(ctx, req)
		if err != nil {
			return nil, err
		}
		switch dec.kind {
		case decisionReplay:
			return s.orders.Get(ctx, dec.orderID)
		case decisionConflict:
			return nil, ErrIdempotencyConflict
		}
		ord = dec.order
	} else {
		ord = s.newPendingOrder(req.UserID)
		if err := s.orders.Create(ctx, ord); err != nil {
			return nil, errors.Wrap(err, "create order")
		}
	}

	if err := s.precheckStock(ctx, req.Items); err != nil {
		s.discardPlaceholder(ctx, ord, req.IdempotencyKey)
		return nil, err
	}

	return s.reserveAndConfirm(ctx, ord, req.Items)
}

// GetOrder returns one order with its items, or ErrNotFound.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// ListOrders returns one page of orders plus the total match count.
func (s *Service) ListOrders(ctx context.Context, f ListFilter) ([]Order, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 {
		f.Size = 20
	} else if f.Size > 100 {
		f.Size = 100
	}
	return s.orders.List(ctx, f)
}

func (s *Service) newPendingOrder(userID string) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    StatusPending,
		Total:     decimal.Zero,
		Currency:  s.currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type decisionKind int

const (
	decisionProceed decisionKind = iota
	decisionReplay
	decisionConflict
)

type decision struct {
	kind    decisionKind
	orderID string
	order   *Order
}

// arbitrate maps (key, fingerprint) to proceed, replay, or conflict. A new
// key binds a placeholder PENDING order and the record in one transaction;
// the placeholder carries the triggering request's user reference and is
// never rebound. Two requests racing on first insertion are resolved by the
// store's key uniqueness: the loser re-reads the winner's record and
// classifies against it.
func (s *Service) arbitrate(ctx context.Context, req CreateOrderRequest) (decision, error) {
	fp := Fingerprint(req)

	rec, err := s.idems.Get(ctx, req.IdempotencyKey)
	if err != nil {
		return decision{}, errors.Wrap(err, "lookup idempotency key")
	}
	if rec != nil {
		return classify(rec, fp), nil
	}

	ord := s.newPendingOrder(req.UserID)
	txErr := s.orders.WithTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, ord); err != nil {
			return errors.Wrap(err, "create placeholder order")
		}
		return s.idems.Create(ctx, &IdempotencyRecord{
			Key:         req.IdempotencyKey,
			OrderID:     ord.ID,
			Fingerprint: fp,
			CreatedAt:   ord.CreatedAt,
		})
	})
	if txErr == nil {
		return decision{kind: decisionProceed, orderID: ord.ID, order: ord}, nil
	}
	if !errors.Is(txErr, ErrDuplicateKey) {
		return decision{}, txErr
	}

	// Lost the first-insert race.
	rec, err = s.idems.Get(ctx, req.IdempotencyKey)
	if err != nil {
		return decision{}, errors.Wrap(err, "re-resolve idempotency key")
	}
	if rec == nil {
		return decision{}, errors.New("idempotency key missing after duplicate insert")
	}
	return classify(rec, fp), nil
}

func classify(rec *IdempotencyRecord, fp string) decision {
	if rec.Fingerprint == fp {
		return decision{kind: decisionReplay, orderID: rec.OrderID}
	}
	return decision{kind: decisionConflict, orderID: rec.OrderID}
}

// precheckStock queries availability for every item and aggregates all
// shortfalls into a single error. An unknown product counts as zero
// available.
func (s *Service) precheckStock(ctx context.Context, items []ItemRequest) error {
	var shortfalls []Shortfall
	for _, it := range items {
		av, err := s.stock.Query(ctx, it.ProductID)
		if err != nil {
			return errors.Wrapf(err, "query stock for %s", it.ProductID)
		}
		available := 0
		if av.Found {
			available = av.Available
		}
		if available < it.Quantity {
			shortfalls = append(shortfalls, Shortfall{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: available,
			})
		}
	}
	if len(shortfalls) > 0 {
		return &InsufficientStockError{Shortfalls: shortfalls}
	}
	return nil
}

// reserveAndConfirm reserves stock item by item in request order, then
// persists the items, the confirmed order, and the order.created outbox event
// in one transaction. Reservations must stay sequential: compensation relies
// on a plain "reverse everything already done" walk.
func (s *Service) reserveAndConfirm(ctx context.Context, ord *Order, items []ItemRequest) (*Order, error) {
	var reserved []ItemRequest

	confirmed, err := func() (*Order, error) {
		orderItems := make([]Item, 0, len(items))
		lines := make([]Line, 0, len(items))
		for _, it := range items {
			if _, err := s.stock.Adjust(ctx, it.ProductID, -it.Quantity, "order:"+ord.ID); err != nil {
				return nil, errors.Wrapf(err, "reserve %d of %s", it.Quantity, it.ProductID)
			}
			reserved = append(reserved, it)

			orderItems = append(orderItems, Item{
				ID:        uuid.New().String(),
				OrderID:   ord.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				LineTotal: LineTotal(it.UnitPrice, it.Quantity),
			})
			lines = append(lines, Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
		}

		confirmed := *ord
		confirmed.Items = orderItems
		confirmed.Total = OrderTotal(lines)
		confirmed.Status = StatusConfirmed
		confirmed.UpdatedAt = time.Now().UTC()

		txErr := s.orders.WithTx(ctx, func(ctx context.Context) error {
			if err := s.orders.InsertItems(ctx, orderItems); err != nil {
				return errors.Wrap(err, "insert order items")
			}
			if err := s.orders.Update(ctx, &confirmed); err != nil {
				return errors.Wrap(err, "confirm order")
			}
			ev := &OutboxEvent{
				ID:        uuid.New().String(),
				Type:      EventOrderCreated,
				Payload:   orderCreatedPayload(&confirmed),
				CreatedAt: confirmed.UpdatedAt,
			}
			if err := s.outbox.Append(ctx, ev); err != nil {
				return errors.Wrap(err, "append outbox event")
			}
			return nil
		})
		if txErr != nil {
			return nil, txErr
		}
		return &confirmed, nil
	}()
	if err != nil {
		s.compensate(ctx, ord, reserved)
		return nil, err
	}
	return confirmed, nil
}

// discardPlaceholder removes the placeholder order, and its key binding when
// one was made, in one transaction. It runs only before any reservation, so a
// pre-check failure leaves no trace and the key stays usable. A failed
// discard is logged; the caller still returns the pre-check error.
func (s *Service) discardPlaceholder(ctx context.Context, ord *Order, key string) {
	ctx = context.WithoutCancel(ctx)

	err := s.orders.WithTx(ctx, func(ctx context.Context) error {
		if key != "" {
			if err := s.idems.Delete(ctx, key); err != nil {
				return errors.Wrap(err, "unbind idempotency key")
			}
		}
		return s.orders.Delete(ctx, ord.ID)
	})
	if err != nil {
		zctx.From(ctx).Error("discard placeholder order failed",
			zap.String("order_id", ord.ID),
			zap.Error(err),
		)
	}
}

// compensate reverses every reservation already made and marks the order
// CANCELLED. Reversal is best effort: one failed reversal is logged and does
// not abort the rest. The caller always re-raises the original error, never
// a compensation failure.
func (s *Service) compensate(ctx context.Context, ord *Order, reserved []ItemRequest) {
	ctx = context.WithoutCancel(ctx)
	lg := zctx.From(ctx)

	for _, it := range reserved {
		if _, err := s.stock.Adjust(ctx, it.ProductID, it.Quantity, "compensate:"+ord.ID); err != nil {
			lg.Error("stock reservation reversal failed",
				zap.String("order_id", ord.ID),
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err),
			)
		}
	}

	ord.Status = StatusCancelled
	ord.UpdatedAt = time.Now().UTC()
	if err := s.orders.Update(ctx, ord); err != nil {
		lg.Error("mark order cancelled failed",
			zap.String("order_id", ord.ID),
			zap.Error(err),
		)
	}
}
