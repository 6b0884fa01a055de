package order

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Fingerprint returns a deterministic SHA-256 digest of the normalized
// request. Items are sorted by (product ID, quantity, unit price) and prices
// are canonicalized to 2 decimal places, so reordering items in a retry never
// changes the digest. Logically identical requests under the same idempotency
// key must classify as replays, not conflicts.
func Fingerprint(req CreateOrderRequest) string {
	items := make([]ItemRequest, len(req.Items))
	copy(items, req.Items)
	sort.Slice(items, func(i, j int) bool {
		if items[i].ProductID != items[j].ProductID {
			return items[i].ProductID < items[j].ProductID
		}
		if items[i].Quantity != items[j].Quantity {
			return items[i].Quantity < items[j].Quantity
		}
		return items[i].UnitPrice.LessThan(items[j].UnitPrice)
	})

	var b strings.Builder
	b.WriteString(req.UserID)
	b.WriteByte('|')
	for i, it := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(it.ProductID)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(it.Quantity))
		b.WriteByte(':')
		b.WriteString(it.UnitPrice.StringFixed(2))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
