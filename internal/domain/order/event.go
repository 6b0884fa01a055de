package order

import "github.com/go-faster/jx"

// orderCreatedPayload encodes the order.created event body. Decimals are
// rendered as fixed 2-decimal strings so the drainer never sees binary float
// artifacts.
func orderCreatedPayload(o *Order) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Str(o.UserID) })
		e.Field("total", func(e *jx.Encoder) { e.Str(o.Total.StringFixed(2)) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(o.Currency) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("qty", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
	})
	return e.Bytes()
}
