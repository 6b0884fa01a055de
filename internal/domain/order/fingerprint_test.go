package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fpReq(userID string, items ...ItemRequest) CreateOrderRequest {
	return CreateOrderRequest{UserID: userID, Items: items}
}

func TestFingerprint_Deterministic(t *testing.T) {
	req := fpReq("u1", item("p1", 2, "12.50"), item("p2", 1, "3.99"))
	assert.Equal(t, Fingerprint(req), Fingerprint(req))
}

func TestFingerprint_ItemOrderInsensitive(t *testing.T) {
	a := fpReq("u1", item("p1", 2, "12.50"), item("p2", 1, "3.99"))
	b := fpReq("u1", item("p2", 1, "3.99"), item("p1", 2, "12.50"))
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_PriceCanonicalized(t *testing.T) {
	// 12.5 and 12.50 are the same money amount.
	a := fpReq("u1", item("p1", 2, "12.5"))
	b := fpReq("u1", item("p1", 2, "12.50"))
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_SensitiveToContent(t *testing.T) {
	base := fpReq("u1", item("p1", 2, "12.50"))

	assert.NotEqual(t, Fingerprint(base), Fingerprint(fpReq("u2", item("p1", 2, "12.50"))), "user")
	assert.NotEqual(t, Fingerprint(base), Fingerprint(fpReq("u1", item("p1", 3, "12.50"))), "quantity")
	assert.NotEqual(t, Fingerprint(base), Fingerprint(fpReq("u1", item("p1", 2, "12.51"))), "price")
	assert.NotEqual(t, Fingerprint(base), Fingerprint(fpReq("u1", item("p2", 2, "12.50"))), "product")
}

func TestFingerprint_DuplicateLinesDistinct(t *testing.T) {
	one := fpReq("u1", item("p1", 1, "5.00"))
	two := fpReq("u1", item("p1", 1, "5.00"), item("p1", 1, "5.00"))
	assert.NotEqual(t, Fingerprint(one), Fingerprint(two))
}
