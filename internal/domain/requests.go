package domain

type CheckoutRequest struct {
	Client  string           `json:"client" validate:"max=80"`
	Payment PaymentBreakdown `json:"payment"`
}

type SettleRequest struct {
	Payment PaymentBreakdown `json:"payment"`
}

// QuoteRequest previews a payment against the cart total, or against an
// active order when OrderID is set.
type QuoteRequest struct {
	OrderID string           `json:"orderId,omitempty"`
	Payment PaymentBreakdown `json:"payment"`
}

type KeypadRequest struct {
	Action string `json:"action" validate:"required,oneof=select press backspace reset"`
	Field  string `json:"field,omitempty" validate:"omitempty,oneof=cash nequi davi"`
	Key    string `json:"key,omitempty" validate:"omitempty,oneof=0 1 2 3 4 5 6 7 8 9 00 000"`
}

type StatusRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=payment delivery"`
	Value bool   `json:"value"`
}

type AddToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type ProductForm struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name" validate:"required,max=120"`
	Price          int64  `json:"price" validate:"gte=0"`
	Stock          string `json:"stock"`
	Category       string `json:"category"`
	Unit           string `json:"unit"`
	ConsumePerSale int64  `json:"consumePerSale" validate:"gte=0"`
	Image          string `json:"image,omitempty"`
	BulkPool       bool   `json:"isCoffee"`
}

type SettingsForm struct {
	Name       string `json:"name" validate:"max=120"`
	TaxID      string `json:"nit" validate:"max=40"`
	CustomGoal int64  `json:"customGoal" validate:"gte=0"`
}

type ExpenseRequest struct {
	Description string `json:"description" validate:"required"`
	Value       int64  `json:"value" validate:"gt=0"`
}

type AmountRequest struct {
	Value int64 `json:"value" validate:"gte=0"`
}
