package orders

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const orderNumberPrefix = "ORD-"

// NewOrderNumber produces a customer-facing reference like ORD-3F2A9C1B.
// Four random bytes keep collisions rare; the unique index on order_number
// rejects the remainder, surfacing as a failed order creation.
func NewOrderNumber() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	return orderNumberPrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}
