// Package cart holds the lines of the sale being rung up.
package cart

import (
	"errors"
	"fmt"
	"sync"

	"pasmi/terminal/internal/domain"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrLineNotFound      = errors.New("cart line not found")
)

// StockError reports that one more unit would exceed tracked stock.
type StockError struct {
	ProductID string
	Required  int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Stock insuficiente (req: %d)", e.Required)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// CanAdd reports whether one more unit of p fits in its stock given the
// quantity already in the cart.
func CanAdd(p domain.Product, inCart int64) error {
	if !p.Stock.Tracked || p.BulkPool {
		return nil
	}
	consume := p.Consumption()
	if (inCart+1)*consume > p.Stock.Value {
		return &StockError{ProductID: p.ID, Required: consume}
	}
	return nil
}

type Cart struct {
	mu    sync.Mutex
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{}
}

// Add inserts p at quantity 1 or increments its line, refusing when stock
// would not cover the extra unit.
func (c *Cart) Add(p domain.Product) (domain.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(p.ID)
	var current int64
	if idx >= 0 {
		current = c.lines[idx].Quantity
	}
	if err := CanAdd(p, current); err != nil {
		return domain.CartLine{}, err
	}
	if idx >= 0 {
		c.lines[idx].Product = p
		c.lines[idx].Quantity++
		return c.lines[idx], nil
	}
	line := domain.CartLine{Product: p, Quantity: 1}
	c.lines = append(c.lines, line)
	return line, nil
}

// Decrement lowers a line by one and drops it at zero.
func (c *Cart) Decrement(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrLineNotFound
	}
	c.lines[idx].Quantity--
	if c.lines[idx].Quantity <= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	}
	return nil
}

func (c *Cart) Remove(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrLineNotFound
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

func (c *Cart) Quantity(productID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexOf(productID); idx >= 0 {
		return c.lines[idx].Quantity
	}
	return 0
}

func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Items converts the cart into order lines.
func (c *Cart) Items() []domain.OrderItem {
	return ItemsOf(c.Lines())
}

func ItemsOf(lines []domain.CartLine) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ID:        l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		})
	}
	return items
}

// Deduct removes sold quantities. Lines added after sold was read stay.
func (c *Cart) Deduct(sold []domain.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range sold {
		idx := c.indexOf(s.Product.ID)
		if idx < 0 {
			continue
		}
		c.lines[idx].Quantity -= s.Quantity
		if c.lines[idx].Quantity <= 0 {
			c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		}
	}
}

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}
