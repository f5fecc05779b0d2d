package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	StatusPaid      = "Pagado"
	StatusPending   = "Pendiente"
	StatusDelivered = "Entregado"
	StatusCancelled = "Cancelado"

	StatusKindPayment  = "payment"
	StatusKindDelivery = "delivery"

	DefaultUnit   = "und"
	DefaultClient = "Cliente"
)

// StockValue is either a tracked counter or untracked (made to order). An
// untracked value travels as "" on the wire.
type StockValue struct {
	Value   int64
	Tracked bool
}

func TrackedStock(n int64) StockValue { return StockValue{Value: n, Tracked: true} }

func UntrackedStock() StockValue { return StockValue{} }

func (s StockValue) MarshalJSON() ([]byte, error) {
	if !s.Tracked {
		return []byte(`""`), nil
	}
	return []byte(strconv.FormatInt(s.Value, 10)), nil
}

func (s *StockValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = UntrackedStock()
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		raw = strings.TrimSpace(str)
		if raw == "" {
			*s = UntrackedStock()
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid stock value %q", raw)
	}
	*s = TrackedStock(int64(f))
	return nil
}

type Category struct {
	Key   string `json:"key"`
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

type Product struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Price          int64      `json:"price"`
	Stock          StockValue `json:"stock"`
	Category       string     `json:"category"`
	Unit           string     `json:"unit"`
	ConsumePerSale int64      `json:"consumePerSale"`
	Image          string     `json:"image,omitempty"`
	BulkPool       bool       `json:"isCoffee"`
}

// Consumption is the amount drawn from stock per unit sold, never below 1.
func (p Product) Consumption() int64 {
	if p.ConsumePerSale < 1 {
		return 1
	}
	return p.ConsumePerSale
}

// Remaining is the stock shown to the operator. The underlying counter may
// be negative after optimistic sales; the rendered value is not.
func (p Product) Remaining() (int64, bool) {
	if !p.Stock.Tracked {
		return 0, false
	}
	if p.Stock.Value < 0 {
		return 0, true
	}
	return p.Stock.Value, true
}

type CartLine struct {
	Product  Product `json:"product"`
	Quantity int64   `json:"quantity"`
}

func (l CartLine) Subtotal() int64 {
	return l.Product.Price * l.Quantity
}

type PaymentBreakdown struct {
	Cash    int64 `json:"cash" validate:"gte=0"`
	WalletA int64 `json:"nequi" validate:"gte=0"`
	WalletB int64 `json:"daviplata" validate:"gte=0"`
}

func (p PaymentBreakdown) Sum() int64 {
	return p.Cash + p.WalletA + p.WalletB
}

func (p PaymentBreakdown) Wallets() int64 {
	return p.WalletA + p.WalletB
}

// Channels counts the payment methods carrying a non-zero amount.
func (p PaymentBreakdown) Channels() int {
	n := 0
	for _, v := range []int64{p.Cash, p.WalletA, p.WalletB} {
		if v != 0 {
			n++
		}
	}
	return n
}

func (p PaymentBreakdown) IsZero() bool {
	return p.Cash == 0 && p.WalletA == 0 && p.WalletB == 0
}

type OrderItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type Order struct {
	ID             string            `json:"id"`
	Items          []OrderItem       `json:"items"`
	Total          int64             `json:"total"`
	Client         string            `json:"client,omitempty"`
	PaymentStatus  string            `json:"statusPayment"`
	DeliveryStatus string            `json:"statusDelivery"`
	Payment        *PaymentBreakdown `json:"payment,omitempty"`
	CreatedAt      time.Time         `json:"createdAt,omitzero"`
	Date           string            `json:"date,omitempty"`
	Time           string            `json:"time,omitempty"`
}

func (o Order) Paid() bool {
	return o.PaymentStatus == StatusPaid
}

// Sale is what checkout records upstream.
type Sale struct {
	Items          []OrderItem      `json:"items"`
	Total          int64            `json:"total"`
	Payment        PaymentBreakdown `json:"payment"`
	Client         string           `json:"client"`
	PaymentStatus  string           `json:"statusPayment"`
	DeliveryStatus string           `json:"statusDelivery"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type Settings struct {
	Name       string `json:"name"`
	TaxID      string `json:"nit"`
	CustomGoal int64  `json:"customGoal"`
	SmartGoal  int64  `json:"smartGoal"`
	BulkStock  int64  `json:"coffeeStock"`
	Base       int64  `json:"base"`
}

type DailySnapshot struct {
	Date       string           `json:"date"`
	GrossSales int64            `json:"todayTotal"`
	Base       int64            `json:"base"`
	Expenses   int64            `json:"expenses"`
	CashOnHand int64            `json:"totalInBox"`
	Payments   PaymentBreakdown `json:"payments"`
}

type ReportItem struct {
	Name      string `json:"nombre"`
	Quantity  int64  `json:"cantidad"`
	UnitPrice int64  `json:"precio_unitario,omitempty"`
}

// ReportRecord is one historical sale row from the reports feed.
type ReportRecord struct {
	ID         string           `json:"id,omitempty"`
	Date       string           `json:"date"`
	Total      int64            `json:"total"`
	Items      []ReportItem     `json:"items"`
	Payment    PaymentBreakdown `json:"payment"`
	HasPayment bool             `json:"hasPayment"`
	Client     string           `json:"client,omitempty"`
}

type Insights struct {
	Goal float64 `json:"goal"`
	Meta int64   `json:"meta"`
}

type Notice struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}
