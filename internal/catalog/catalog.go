// Package catalog keeps the terminal's copy of the product list. Sales are
// projected onto it immediately and the next refresh replaces it with the
// sheet's numbers.
package catalog

import (
	"sort"
	"sync"

	"pasmi/terminal/internal/domain"
)

const (
	LowStockThreshold  = 5
	CriticalStockLevel = 1
)

const (
	BadgeUntracked = "untracked"
	BadgeOK        = "ok"
	BadgeWarn      = "warn"
	BadgeCritical  = "crit"
)

var categories = []domain.Category{
	{Key: "PARA CALMAR EL FRÍO", Icon: "coffee", Label: "Para calmar el frío"},
	{Key: "PARA REFRESCAR", Icon: "snowflake", Label: "Para refrescar"},
	{Key: "PARA ACOMPAÑAR", Icon: "croissant", Label: "Para acompañar"},
	{Key: "PARA EL BRUNCH", Icon: "utensils", Label: "Para el brunch"},
	{Key: "MÉTODOS DE CAFÉ", Icon: "filter", Label: "Métodos de café"},
	{Key: "Tienda (Panadería)", Icon: "store", Label: "Tienda · Panadería"},
	{Key: "Tienda (Bebidas)", Icon: "cup-soda", Label: "Tienda · Bebidas"},
	{Key: "Tienda (Snacks)", Icon: "cookie", Label: "Tienda · Snacks"},
	{Key: "Tienda (Dulces)", Icon: "candy", Label: "Tienda · Dulces"},
}

func Categories() []domain.Category {
	out := make([]domain.Category, len(categories))
	copy(out, categories)
	return out
}

type Catalog struct {
	mu       sync.RWMutex
	products []domain.Product
}

func New() *Catalog {
	return &Catalog{}
}

// Replace installs the authoritative product list.
func (c *Catalog) Replace(products []domain.Product) {
	next := make([]domain.Product, len(products))
	copy(next, products)
	c.mu.Lock()
	c.products = next
	c.mu.Unlock()
}

func (c *Catalog) List() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) ByCategory(key string) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, 0)
	for _, p := range c.products {
		if p.Category == key {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Get(id string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// ApplySale draws each sold line's quantity × consumption from its product.
// Untracked and bulk pool products keep their stock.
func (c *Catalog) ApplySale(lines []domain.CartLine) {
	sold := make(map[string]domain.CartLine, len(lines))
	for _, l := range lines {
		sold[l.Product.ID] = l
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.products {
		line, ok := sold[p.ID]
		if !ok || !p.Stock.Tracked || p.BulkPool {
			continue
		}
		c.products[i].Stock.Value -= line.Quantity * line.Product.Consumption()
	}
}

// Upsert replaces the product with the same id or puts p first.
func (c *Catalog) Upsert(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == p.ID {
			c.products[i] = p
			return
		}
	}
	c.products = append([]domain.Product{p}, c.products...)
}

func (c *Catalog) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == id {
			c.products = append(c.products[:i], c.products[i+1:]...)
			return true
		}
	}
	return false
}

// LowStock lists tracked products at or below the alert threshold, lowest
// first, capped at limit when limit > 0.
func (c *Catalog) LowStock(limit int) []domain.Product {
	return LowStock(c.List(), limit)
}

func LowStock(products []domain.Product, limit int) []domain.Product {
	out := make([]domain.Product, 0)
	for _, p := range products {
		if p.Stock.Tracked && p.Stock.Value <= LowStockThreshold {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Stock.Value < out[j].Stock.Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func Badge(p domain.Product) string {
	n, tracked := p.Remaining()
	switch {
	case !tracked:
		return BadgeUntracked
	case n <= CriticalStockLevel:
		return BadgeCritical
	case n <= LowStockThreshold:
		return BadgeWarn
	default:
		return BadgeOK
	}
}
