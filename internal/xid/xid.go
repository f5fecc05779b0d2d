package xid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New returns a random identifier tagged with prefix.
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// Order returns an order id in the ORD-<unix millis> form the sheet sorts by.
func Order(now time.Time) string {
	return fmt.Sprintf("ORD-%d", now.UnixMilli())
}
