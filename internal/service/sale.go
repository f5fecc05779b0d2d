package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"pasmi/terminal/internal/cache"
	"pasmi/terminal/internal/cart"
	"pasmi/terminal/internal/config"
	"pasmi/terminal/internal/domain"
	"pasmi/terminal/internal/events"
	"pasmi/terminal/internal/orders"
	"pasmi/terminal/internal/payment"
)

const (
	msgEmptyCart      = "Agrega productos primero"
	msgSaleCompleted  = "¡Venta Exitosa!"
	msgSalePending    = "¡Pedido Guardado (Pendiente)!"
	msgDebtSettled    = "¡Deuda Pagada Correctamente!"
	msgInvalidPayment = "Datos de pago inválidos"
	msgUnknownProduct = "Producto no encontrado"
	msgInvalidKeypad  = "Tecla inválida"
	msgInvalidStatus  = "Estado inválido"
	msgOrderNotFound  = "Pedido no encontrado"
)

type CartView struct {
	Lines []domain.CartLine `json:"lines"`
	Total int64             `json:"total"`
	Count int64             `json:"count"`
}

type CheckoutResult struct {
	Sale       domain.Sale        `json:"sale"`
	Settlement payment.Settlement `json:"settlement"`
}

type SettleResult struct {
	Order      domain.Order       `json:"order"`
	Settlement payment.Settlement `json:"settlement"`
}

func (s *Service) Cart() CartView {
	lines := s.cart.Lines()
	view := CartView{Lines: lines}
	for _, l := range lines {
		view.Total += l.Subtotal()
		view.Count += l.Quantity
	}
	return view
}

// AddToCart adds one unit of the catalog product with productID, checked
// against the projected stock.
func (s *Service) AddToCart(_ context.Context, productID string) (CartView, error) {
	p, ok := s.catalog.Get(strings.TrimSpace(productID))
	if !ok {
		return s.Cart(), s.fail(invalid(msgUnknownProduct))
	}
	if _, err := s.cart.Add(p); err != nil {
		return s.Cart(), s.fail(err)
	}
	return s.Cart(), nil
}

func (s *Service) DecrementCart(_ context.Context, productID string) (CartView, error) {
	if err := s.cart.Decrement(productID); err != nil {
		return s.Cart(), err
	}
	return s.Cart(), nil
}

func (s *Service) RemoveFromCart(_ context.Context, productID string) (CartView, error) {
	if err := s.cart.Remove(productID); err != nil {
		return s.Cart(), err
	}
	return s.Cart(), nil
}

func (s *Service) ClearCart() CartView {
	s.cart.Clear()
	s.resetKeypad()
	return s.Cart()
}

// Quote reconciles a payment against the cart, or against an active order.
func (s *Service) Quote(_ context.Context, req domain.QuoteRequest) (payment.Settlement, error) {
	if err := s.check(req, msgInvalidPayment); err != nil {
		return payment.Settlement{}, err
	}
	total := s.cart.Total()
	if id := strings.TrimSpace(req.OrderID); id != "" {
		order, ok := s.orders.Get(id)
		if !ok {
			return payment.Settlement{}, &ValidationError{Message: msgOrderNotFound, Err: orders.ErrOrderNotFound}
		}
		total = order.Total
	}
	return payment.Reconcile(total, req.Payment), nil
}

// Keypad applies one numpad action and returns the resulting amounts.
func (s *Service) Keypad(req domain.KeypadRequest) (payment.Keypad, error) {
	if err := s.check(req, msgInvalidKeypad); err != nil {
		return payment.Keypad{}, err
	}
	s.keypadMu.Lock()
	defer s.keypadMu.Unlock()
	switch req.Action {
	case "select":
		if err := s.keypad.Select(req.Field); err != nil {
			return *s.keypad, &ValidationError{Message: msgInvalidKeypad, Err: err}
		}
	case "press":
		if err := s.keypad.Press(req.Key); err != nil {
			return *s.keypad, &ValidationError{Message: msgInvalidKeypad, Err: err}
		}
	case "backspace":
		s.keypad.Backspace()
	case "reset":
		s.keypad.Reset()
	}
	return *s.keypad, nil
}

func (s *Service) resetKeypad() {
	s.keypadMu.Lock()
	s.keypad.Reset()
	s.keypadMu.Unlock()
}

// Checkout records the cart as a sale. An incomplete payment is still
// recorded, as a pending order.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (CheckoutResult, error) {
	if err := s.check(req, msgInvalidPayment); err != nil {
		return CheckoutResult{}, s.fail(err)
	}

	s.checkoutMu.Lock()
	defer s.checkoutMu.Unlock()

	lines := s.cart.Lines()
	if len(lines) == 0 {
		return CheckoutResult{}, s.fail(invalid(msgEmptyCart))
	}

	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	settlement := payment.Reconcile(total, req.Payment)

	client := strings.TrimSpace(req.Client)
	if client == "" {
		client = domain.DefaultClient
	}
	sale := domain.Sale{
		Items:          cart.ItemsOf(lines),
		Total:          total,
		Payment:        settlement.Recorded,
		Client:         client,
		PaymentStatus:  settlement.PaymentStatus(),
		DeliveryStatus: domain.StatusPending,
		CreatedAt:      s.now(),
	}

	if err := s.gateway.RecordSale(ctx, sale); err != nil {
		config.LogError(s.logger, "service", "Checkout", "record sale", map[string]int64{"total": sale.Total}, err)
		return CheckoutResult{}, s.fail(err)
	}

	s.catalog.ApplySale(lines)
	s.cart.Deduct(lines)
	s.resetKeypad()
	if settlement.Complete {
		s.notices.Info(msgSaleCompleted)
	} else {
		s.notices.Info(msgSalePending)
	}

	s.invalidateReports(ctx, s.today())
	recorded := settlement.Recorded
	s.publish(ctx, events.Event{
		Type:    events.SaleRecorded,
		Client:  client,
		Total:   total,
		Payment: &recorded,
		Status:  sale.PaymentStatus,
		Items:   sale.Items,
	})
	s.logAudit(ctx, "sale_record", "sale", "", fmt.Sprintf("total=%d,status=%s,change=%d", total, sale.PaymentStatus, settlement.Change))

	if err := s.Load(ctx); err != nil {
		s.logger.WithError(err).Warn("reload after sale failed")
	}
	return CheckoutResult{Sale: sale, Settlement: settlement}, nil
}

// SettleOrder pays off a pending order. Only a complete payment is accepted.
func (s *Service) SettleOrder(ctx context.Context, id string, req domain.SettleRequest) (SettleResult, error) {
	if err := s.check(req, msgInvalidPayment); err != nil {
		return SettleResult{}, s.fail(err)
	}
	order, ok := s.orders.Get(id)
	if !ok {
		return SettleResult{}, s.fail(&ValidationError{Message: msgOrderNotFound, Err: orders.ErrOrderNotFound})
	}

	settlement := payment.Reconcile(order.Total, req.Payment)
	if err := settlement.RequireComplete(); err != nil {
		return SettleResult{}, s.fail(&ValidationError{Message: err.Error(), Err: err})
	}

	if err := s.gateway.SettleOrder(ctx, id, settlement.Recorded); err != nil {
		config.LogError(s.logger, "service", "SettleOrder", "settle order", map[string]string{"order": id}, err)
		return SettleResult{}, s.fail(err)
	}

	recorded := settlement.Recorded
	updated, err := s.orders.Update(id, func(o *domain.Order) {
		o.PaymentStatus = domain.StatusPaid
		o.Payment = &recorded
	})
	if err != nil {
		// the board was refreshed meanwhile; the upstream write stands
		updated = order
		updated.PaymentStatus = domain.StatusPaid
		updated.Payment = &recorded
	}
	s.resetKeypad()
	s.notices.Info(msgDebtSettled)

	s.invalidateReports(ctx, s.today())
	s.publish(ctx, events.Event{
		Type:    events.OrderSettled,
		OrderID: id,
		Client:  order.Client,
		Total:   order.Total,
		Payment: &recorded,
		Status:  domain.StatusPaid,
	})
	s.logAudit(ctx, "order_settle", "order", id, fmt.Sprintf("total=%d,change=%d", order.Total, settlement.Change))

	if err := s.Load(ctx); err != nil {
		s.logger.WithError(err).Warn("reload after settlement failed")
	}
	return SettleResult{Order: updated, Settlement: settlement}, nil
}

func (s *Service) Orders() []domain.Order {
	return s.orders.List()
}

func (s *Service) RefreshOrders(ctx context.Context) ([]domain.Order, error) {
	list, err := s.gateway.ActiveOrders(ctx)
	if err != nil {
		return s.orders.List(), err
	}
	s.orders.Replace(list)
	return s.orders.List(), nil
}

// ToggleOrderStatus flips the payment or delivery flag of an order. The
// board shows the new value at once and reverts it if the sheet refuses.
func (s *Service) ToggleOrderStatus(ctx context.Context, id string, req domain.StatusRequest) (domain.Order, error) {
	if err := s.check(req, msgInvalidStatus); err != nil {
		return domain.Order{}, s.fail(err)
	}
	updated, err := s.orders.ToggleStatus(ctx, s.gateway, id, req.Kind, req.Value)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			return domain.Order{}, s.fail(&ValidationError{Message: msgOrderNotFound, Err: err})
		}
		return domain.Order{}, s.fail(err)
	}

	status := updated.DeliveryStatus
	if req.Kind == domain.StatusKindPayment {
		status = updated.PaymentStatus
		s.invalidateReports(ctx, s.today())
	}
	s.publish(ctx, events.Event{
		Type:    events.OrderStatus,
		OrderID: id,
		Client:  updated.Client,
		Total:   updated.Total,
		Status:  status,
		Note:    req.Kind,
	})
	s.logAudit(ctx, "order_status", "order", id, fmt.Sprintf("%s=%s", req.Kind, status))
	return updated, nil
}

// PaymentHint guesses how an active order was paid from the reports feed.
// The result is for display only and is never written back.
func (s *Service) PaymentHint(ctx context.Context, id string, date string) (payment.Inference, bool, error) {
	order, ok := s.orders.Get(id)
	if !ok {
		return payment.Inference{}, false, &ValidationError{Message: msgOrderNotFound, Err: orders.ErrOrderNotFound}
	}
	if order.Payment != nil && !order.Payment.IsZero() {
		hint, found := payment.Infer(order, nil, date)
		return hint, found, nil
	}
	records, err := s.reportRecords(ctx, date)
	if err != nil {
		return payment.Inference{}, false, err
	}
	hint, found := payment.Infer(order, records, date)
	return hint, found, nil
}

// reportRecords reads the reports feed through the cache.
func (s *Service) reportRecords(ctx context.Context, date string) ([]domain.ReportRecord, error) {
	key := cache.ReportsKey(date)
	if cached, ok, err := s.reports.Get(ctx, key); err != nil {
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("reports cache read failed")
	} else if ok {
		return cached, nil
	}

	records, err := s.gateway.Reports(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := s.reports.Set(ctx, key, records, s.cacheTTL); err != nil {
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("reports cache write failed")
	}
	return records, nil
}

func (s *Service) invalidateReports(ctx context.Context, date string) {
	if err := s.reports.Invalidate(ctx, cache.ReportsKey(date), cache.ReportsKey("")); err != nil {
		s.logger.WithError(err).Warn("reports cache invalidate failed")
	}
}
