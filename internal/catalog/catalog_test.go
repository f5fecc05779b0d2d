package catalog

import (
	"testing"

	"pasmi/terminal/internal/domain"
)

func seeded() *Catalog {
	c := New()
	c.Replace([]domain.Product{
		{ID: "brownie", Name: "Brownie", Price: 5000, Stock: domain.TrackedStock(10), ConsumePerSale: 2, Category: "PARA ACOMPAÑAR"},
		{ID: "latte", Name: "Latte", Price: 8000, Stock: domain.UntrackedStock(), ConsumePerSale: 1, Category: "PARA CALMAR EL FRÍO"},
		{ID: "espresso", Name: "Espresso", Price: 4000, Stock: domain.TrackedStock(40), ConsumePerSale: 18, BulkPool: true, Category: "MÉTODOS DE CAFÉ"},
		{ID: "agua", Name: "Agua", Price: 3000, Stock: domain.TrackedStock(1), ConsumePerSale: 1, Category: "Tienda (Bebidas)"},
	})
	return c
}

func TestApplySaleDrawsQuantityTimesConsumption(t *testing.T) {
	c := seeded()
	latte, _ := c.Get("latte")
	brownie, _ := c.Get("brownie")
	espresso, _ := c.Get("espresso")

	c.ApplySale([]domain.CartLine{
		{Product: brownie, Quantity: 3},
		{Product: latte, Quantity: 5},
		{Product: espresso, Quantity: 2},
	})

	got, _ := c.Get("brownie")
	if got.Stock.Value != 4 {
		t.Fatalf("expected 10 - 3*2 = 4, got %d", got.Stock.Value)
	}
	got, _ = c.Get("latte")
	if got.Stock.Tracked {
		t.Fatalf("untracked stock must stay untracked")
	}
	got, _ = c.Get("espresso")
	if got.Stock.Value != 40 {
		t.Fatalf("bulk pool product must keep its counter, got %d", got.Stock.Value)
	}
}

func TestApplySaleMayGoNegativeButRendersZero(t *testing.T) {
	c := seeded()
	agua, _ := c.Get("agua")
	c.ApplySale([]domain.CartLine{{Product: agua, Quantity: 3}})

	got, _ := c.Get("agua")
	if got.Stock.Value != -2 {
		t.Fatalf("expected raw counter -2, got %d", got.Stock.Value)
	}
	if n, _ := got.Remaining(); n != 0 {
		t.Fatalf("expected rendered 0, got %d", n)
	}
	if Badge(got) != BadgeCritical {
		t.Fatalf("expected critical badge, got %s", Badge(got))
	}
}

func TestReplaceOverwritesProjection(t *testing.T) {
	c := seeded()
	brownie, _ := c.Get("brownie")
	c.ApplySale([]domain.CartLine{{Product: brownie, Quantity: 1}})
	c.Replace([]domain.Product{{ID: "brownie", Stock: domain.TrackedStock(10)}})

	got, _ := c.Get("brownie")
	if got.Stock.Value != 10 || len(c.List()) != 1 {
		t.Fatalf("expected authoritative state, got %+v", c.List())
	}
}

func TestUpsertReplacesOrPrepends(t *testing.T) {
	c := seeded()
	c.Upsert(domain.Product{ID: "agua", Name: "Agua con gas", Stock: domain.TrackedStock(20)})
	c.Upsert(domain.Product{ID: "nuevo", Name: "Croissant"})

	list := c.List()
	if list[0].ID != "nuevo" || len(list) != 5 {
		t.Fatalf("expected new product first, got %+v", list)
	}
	got, _ := c.Get("agua")
	if got.Name != "Agua con gas" {
		t.Fatalf("expected replaced product, got %+v", got)
	}
	if !c.Remove("nuevo") || c.Remove("nuevo") {
		t.Fatalf("expected remove to succeed once")
	}
}

func TestLowStockAndBadges(t *testing.T) {
	c := seeded()
	low := c.LowStock(5)
	if len(low) != 1 || low[0].ID != "agua" {
		t.Fatalf("expected only agua low, got %+v", low)
	}
	if Badge(domain.Product{Stock: domain.TrackedStock(4)}) != BadgeWarn {
		t.Fatalf("expected warn at 4")
	}
	if Badge(domain.Product{Stock: domain.TrackedStock(6)}) != BadgeOK {
		t.Fatalf("expected ok at 6")
	}
	if Badge(domain.Product{}) != BadgeUntracked {
		t.Fatalf("expected untracked badge")
	}
	if got := c.ByCategory("MÉTODOS DE CAFÉ"); len(got) != 1 || got[0].ID != "espresso" {
		t.Fatalf("unexpected category filter %+v", got)
	}
	if len(Categories()) != 9 {
		t.Fatalf("expected 9 categories")
	}
}
