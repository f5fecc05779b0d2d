// Package payment reconciles cash and wallet amounts against a sale total
// and recovers missing payment splits from the reports feed.
package payment

import (
	"errors"
	"strconv"

	"pasmi/terminal/internal/domain"
)

var ErrIncompletePayment = errors.New("Para liquidar, el pago debe ser completo")

var ErrInvalidKey = errors.New("tecla inválida")

// Settlement is the outcome of entering amounts against a total.
type Settlement struct {
	Total    int64                   `json:"total"`
	Paid     int64                   `json:"paid"`
	Change   int64                   `json:"change"`
	Missing  int64                   `json:"missing"`
	Complete bool                    `json:"complete"`
	Recorded domain.PaymentBreakdown `json:"recorded"`
}

// Reconcile sums the entered amounts. Change is returned out of the cash
// slice only; wallet transfers are taken as exact.
func Reconcile(total int64, entered domain.PaymentBreakdown) Settlement {
	paid := entered.Sum()
	s := Settlement{
		Total:    total,
		Paid:     paid,
		Complete: paid >= total,
		Recorded: entered,
	}
	if diff := paid - total; diff > 0 {
		s.Change = diff
	} else {
		s.Missing = -diff
	}
	if s.Change > 0 && entered.Cash >= s.Change {
		s.Recorded.Cash = entered.Cash - s.Change
	}
	return s
}

// PaymentStatus is the status a new sale is recorded with.
func (s Settlement) PaymentStatus() string {
	if s.Complete {
		return domain.StatusPaid
	}
	return domain.StatusPending
}

// RequireComplete guards debt settlement, which must be paid in full.
func (s Settlement) RequireComplete() error {
	if !s.Complete {
		return ErrIncompletePayment
	}
	return nil
}

const (
	FieldCash    = "cash"
	FieldWalletA = "nequi"
	FieldWalletB = "davi"
)

// Keypad mirrors the on-screen numpad: one active amount receives digits.
type Keypad struct {
	Active string                  `json:"active"`
	Amount domain.PaymentBreakdown `json:"amount"`
}

func NewKeypad() *Keypad {
	return &Keypad{Active: FieldCash}
}

func (k *Keypad) Select(field string) error {
	switch field {
	case FieldCash, FieldWalletA, FieldWalletB:
		k.Active = field
		return nil
	}
	return errors.New("método de pago desconocido")
}

// Press appends key ("0".."9", "00" or "000") to the active amount.
func (k *Keypad) Press(key string) error {
	if !digitKey(key) {
		return ErrInvalidKey
	}
	current := strconv.FormatInt(k.value(), 10)
	next := current + key
	if current == "0" {
		next = key
	}
	n, err := strconv.ParseInt(next, 10, 64)
	if err != nil || n < 0 {
		return ErrInvalidKey
	}
	k.set(n)
	return nil
}

func digitKey(key string) bool {
	if key == "" || len(key) > 3 {
		return false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (k *Keypad) Backspace() {
	current := strconv.FormatInt(k.value(), 10)
	n, _ := strconv.ParseInt(current[:len(current)-1], 10, 64)
	k.set(n)
}

func (k *Keypad) Reset() {
	*k = Keypad{Active: FieldCash}
}

func (k *Keypad) value() int64 {
	switch k.Active {
	case FieldWalletA:
		return k.Amount.WalletA
	case FieldWalletB:
		return k.Amount.WalletB
	default:
		return k.Amount.Cash
	}
}

func (k *Keypad) set(n int64) {
	switch k.Active {
	case FieldWalletA:
		k.Amount.WalletA = n
	case FieldWalletB:
		k.Amount.WalletB = n
	default:
		k.Amount.Cash = n
	}
}
