// Package events announces completed terminal actions (sales, settled
// debts, status flips) to downstream consumers such as a kitchen screen.
package events

import (
	"context"
	"time"

	"pasmi/terminal/internal/domain"
)

const (
	SaleRecorded    = "sale.recorded"
	OrderSettled    = "order.settled"
	OrderStatus     = "order.status"
	ProductSaved    = "product.saved"
	ProductDeleted  = "product.deleted"
	ExpenseAdded    = "cash.expense"
	BaseSet         = "cash.base"
	BulkStockAdded  = "stock.bulk"
	SettingsUpdated = "settings.updated"
)

type Event struct {
	Type      string                   `json:"type"`
	OrderID   string                   `json:"orderId,omitempty"`
	ProductID string                   `json:"productId,omitempty"`
	Client    string                   `json:"client,omitempty"`
	Total     int64                    `json:"total,omitempty"`
	Payment   *domain.PaymentBreakdown `json:"payment,omitempty"`
	Status    string                   `json:"status,omitempty"`
	Items     []domain.OrderItem       `json:"items,omitempty"`
	Note      string                   `json:"note,omitempty"`
	Actor     string                   `json:"actor,omitempty"`
	At        time.Time                `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ Event) error {
	return nil
}
