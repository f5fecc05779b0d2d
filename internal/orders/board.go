// Package orders tracks the active (unpaid or undelivered) orders shown
// next to the cart.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"pasmi/terminal/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("pedido no encontrado")
	ErrUnknownKind   = errors.New("tipo de estado desconocido")
)

// StatusUpdater persists a status flip upstream.
type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, id string, kind string, value bool) error
}

type Board struct {
	mu     sync.Mutex
	orders []domain.Order
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) Replace(orders []domain.Order) {
	next := make([]domain.Order, len(orders))
	copy(next, orders)
	b.mu.Lock()
	b.orders = next
	b.mu.Unlock()
}

// List returns the orders newest first.
func (b *Board) List() []domain.Order {
	b.mu.Lock()
	out := make([]domain.Order, len(b.orders))
	copy(out, b.orders)
	b.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return Timestamp(out[i]) > Timestamp(out[j])
	})
	return out
}

func (b *Board) Get(id string) (domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexOf(id); i >= 0 {
		return b.orders[i], true
	}
	return domain.Order{}, false
}

// Update applies patch to the order with id in place.
func (b *Board) Update(id string, patch func(*domain.Order)) (domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return domain.Order{}, ErrOrderNotFound
	}
	patch(&b.orders[i])
	return b.orders[i], nil
}

// ToggleStatus shows the new status right away and rolls the field back
// when the upstream write fails.
func (b *Board) ToggleStatus(ctx context.Context, up StatusUpdater, id string, kind string, value bool) (domain.Order, error) {
	next := StatusLabel(kind, value)
	if next == "" {
		return domain.Order{}, ErrUnknownKind
	}

	var previous string
	updated, err := b.Update(id, func(o *domain.Order) {
		if kind == domain.StatusKindPayment {
			previous, o.PaymentStatus = o.PaymentStatus, next
		} else {
			previous, o.DeliveryStatus = o.DeliveryStatus, next
		}
	})
	if err != nil {
		return domain.Order{}, err
	}

	if err := up.UpdateOrderStatus(ctx, id, kind, value); err != nil {
		_, _ = b.Update(id, func(o *domain.Order) {
			if kind == domain.StatusKindPayment {
				o.PaymentStatus = previous
			} else {
				o.DeliveryStatus = previous
			}
		})
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

// StatusLabel maps a boolean flag to the sheet's status text.
func StatusLabel(kind string, value bool) string {
	switch kind {
	case domain.StatusKindPayment:
		if value {
			return domain.StatusPaid
		}
		return domain.StatusPending
	case domain.StatusKindDelivery:
		if value {
			return domain.StatusDelivered
		}
		return domain.StatusPending
	}
	return ""
}

// Timestamp orders active orders by createdAt, then date and time, then the
// millisecond suffix of ORD-<ms> ids.
func Timestamp(o domain.Order) int64 {
	if !o.CreatedAt.IsZero() {
		return o.CreatedAt.UnixMilli()
	}
	if o.Date != "" && o.Time != "" {
		clock := o.Time
		if len(clock) == 5 {
			clock += ":00"
		}
		if t, err := time.Parse("2006-01-02T15:04:05", o.Date+"T"+clock); err == nil {
			return t.UnixMilli()
		}
	}
	if idx := strings.LastIndex(o.ID, "-"); idx >= 0 {
		if n, err := strconv.ParseInt(o.ID[idx+1:], 10, 64); err == nil {
			return n
		}
	} else if n, err := strconv.ParseInt(o.ID, 10, 64); err == nil {
		return n
	}
	return 0
}

func (b *Board) indexOf(id string) int {
	for i := range b.orders {
		if b.orders[i].ID == id {
			return i
		}
	}
	return -1
}
