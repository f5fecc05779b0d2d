package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"pasmi/terminal/internal/cart"
	"pasmi/terminal/internal/domain"
	"pasmi/terminal/internal/events"
	"pasmi/terminal/internal/gateway"
	"pasmi/terminal/internal/payment"
	"pasmi/terminal/internal/store/memory"
)

type fakeGateway struct {
	mu sync.Mutex

	products []domain.Product
	orders   []domain.Order
	records  []domain.ReportRecord
	settings domain.Settings
	snapshot domain.DailySnapshot
	insights domain.Insights

	productsErr error
	settingsErr error
	saleErr     error
	statusErr   error

	sales        []domain.Sale
	settled      map[string]domain.PaymentBreakdown
	added        []domain.Product
	updated      []domain.Product
	deleted      []string
	expenses     []int64
	bases        []int64
	bulk         []int64
	settingsIn   []gateway.SettingsUpdate
	reportsCalls int

	// saleEntered and releaseSale hold RecordSale open when set.
	saleEntered chan struct{}
	releaseSale chan struct{}
}

func (f *fakeGateway) Products(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return append([]domain.Product(nil), f.products...), nil
}

func (f *fakeGateway) ActiveOrders(context.Context) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Order(nil), f.orders...), nil
}

func (f *fakeGateway) Reports(context.Context, string) ([]domain.ReportRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportsCalls++
	return append([]domain.ReportRecord(nil), f.records...), nil
}

func (f *fakeGateway) Insights(context.Context, string) (domain.Insights, error) {
	return f.insights, nil
}

func (f *fakeGateway) DailyFinancials(context.Context, string) (domain.DailySnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeGateway) Settings(context.Context) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsErr != nil {
		return domain.Settings{}, f.settingsErr
	}
	return f.settings, nil
}

func (f *fakeGateway) RecordSale(_ context.Context, sale domain.Sale) error {
	if f.saleEntered != nil {
		close(f.saleEntered)
		<-f.releaseSale
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saleErr != nil {
		return f.saleErr
	}
	f.sales = append(f.sales, sale)
	return nil
}

func (f *fakeGateway) SettleOrder(_ context.Context, id string, p domain.PaymentBreakdown) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settled == nil {
		f.settled = make(map[string]domain.PaymentBreakdown)
	}
	f.settled[id] = p
	return nil
}

func (f *fakeGateway) AddExpense(_ context.Context, _ string, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expenses = append(f.expenses, value)
	return nil
}

func (f *fakeGateway) SetBase(_ context.Context, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bases = append(f.bases, value)
	return nil
}

func (f *fakeGateway) UpdateBulkStock(_ context.Context, value int64, _ bool) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulk = append(f.bulk, value)
	f.settings.BulkStock += value
	return f.settings.BulkStock, true, nil
}

func (f *fakeGateway) AddProduct(_ context.Context, p domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, p)
	return nil
}

func (f *fakeGateway) UpdateProduct(_ context.Context, p domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, p)
	return nil
}

func (f *fakeGateway) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeGateway) UpdateSettings(_ context.Context, in gateway.SettingsUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settingsIn = append(f.settingsIn, in)
	return nil
}

func (f *fakeGateway) UpdateOrderStatus(context.Context, string, string, bool) error {
	return f.statusErr
}

type fakeUploader struct {
	url      string
	filename string
}

func (u *fakeUploader) Upload(_ context.Context, filename string, _ []byte) (string, error) {
	u.filename = filename
	return u.url, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

type mapCache struct {
	mu     sync.Mutex
	values map[string][]domain.ReportRecord
}

func (c *mapCache) Get(_ context.Context, key string) ([]domain.ReportRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []domain.ReportRecord, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(t *testing.T, gw *fakeGateway) *Service {
	t.Helper()
	svc := New(gw, memory.New(), quietLogger()).
		WithClock(func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) })
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func hasNotice(svc *Service, message string) bool {
	for _, n := range svc.Notices() {
		if n.Message == message {
			return true
		}
	}
	return false
}

func TestCheckoutCashOverpaymentReturnsChange(t *testing.T) {
	gw := &fakeGateway{products: []domain.Product{
		{ID: "latte", Name: "Latte", Price: 15000, Stock: domain.TrackedStock(10), ConsumePerSale: 1},
	}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "latte"); err != nil {
		t.Fatalf("add to cart failed: %v", err)
	}
	res, err := svc.Checkout(ctx, domain.CheckoutRequest{Payment: domain.PaymentBreakdown{Cash: 20000}})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if res.Settlement.Change != 5000 || !res.Settlement.Complete {
		t.Fatalf("expected change 5000 and complete payment, got %+v", res.Settlement)
	}
	if len(gw.sales) != 1 {
		t.Fatalf("expected one recorded sale, got %d", len(gw.sales))
	}
	sale := gw.sales[0]
	if sale.PaymentStatus != domain.StatusPaid || sale.DeliveryStatus != domain.StatusPending {
		t.Fatalf("unexpected statuses %s/%s", sale.PaymentStatus, sale.DeliveryStatus)
	}
	if sale.Payment.Cash != 15000 {
		t.Fatalf("expected recorded cash 15000, got %d", sale.Payment.Cash)
	}
	if sale.Client != domain.DefaultClient {
		t.Fatalf("expected default client, got %q", sale.Client)
	}
	if len(svc.Cart().Lines) != 0 {
		t.Fatalf("expected cart to be cleared")
	}
	if !hasNotice(svc, "¡Venta Exitosa!") {
		t.Fatalf("expected success notice, got %+v", svc.Notices())
	}
}

func TestAddToCartRejectsWhenStockShort(t *testing.T) {
	gw := &fakeGateway{products: []domain.Product{
		{ID: "cookie", Name: "Galleta", Price: 3000, Stock: domain.TrackedStock(3), ConsumePerSale: 2},
	}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "cookie"); err != nil {
		t.Fatalf("first unit should fit: %v", err)
	}
	view, err := svc.AddToCart(ctx, "cookie")
	if !errors.Is(err, cart.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if view.Count != 1 {
		t.Fatalf("expected quantity to stay at 1, got %d", view.Count)
	}
	if !hasNotice(svc, "Stock insuficiente (req: 2)") {
		t.Fatalf("expected stock notice, got %+v", svc.Notices())
	}
}

func TestAddToCartUnknownProduct(t *testing.T) {
	svc := newTestService(t, &fakeGateway{})

	_, err := svc.AddToCart(context.Background(), "ghost")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Message != "Producto no encontrado" {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutProjectsStockWhenReloadFails(t *testing.T) {
	gw := &fakeGateway{products: []domain.Product{
		{ID: "milk", Name: "Leche", Price: 2000, Stock: domain.TrackedStock(10), ConsumePerSale: 2},
		{ID: "tinto", Name: "Tinto", Price: 1500, Stock: domain.UntrackedStock()},
		{ID: "beans", Name: "Espresso", Price: 4000, Stock: domain.TrackedStock(5), BulkPool: true},
	}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	for _, id := range []string{"milk", "milk", "tinto", "beans"} {
		if _, err := svc.AddToCart(ctx, id); err != nil {
			t.Fatalf("add %s failed: %v", id, err)
		}
	}
	gw.mu.Lock()
	gw.productsErr = errors.New("offline")
	gw.mu.Unlock()

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{Payment: domain.PaymentBreakdown{WalletA: 9500}}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	stock := map[string]domain.StockValue{}
	for _, p := range svc.Products("") {
		stock[p.ID] = p.Stock
	}
	if stock["milk"] != domain.TrackedStock(6) {
		t.Fatalf("expected milk stock 6, got %+v", stock["milk"])
	}
	if stock["tinto"].Tracked {
		t.Fatalf("untracked stock must stay untracked")
	}
	if stock["beans"] != domain.TrackedStock(5) {
		t.Fatalf("bulk pool stock must not change, got %+v", stock["beans"])
	}
}

func TestCheckoutPartialPaymentIsPending(t *testing.T) {
	gw := &fakeGateway{products: []domain.Product{
		{ID: "latte", Name: "Latte", Price: 15000, Stock: domain.UntrackedStock()},
	}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	_, _ = svc.AddToCart(ctx, "latte")
	res, err := svc.Checkout(ctx, domain.CheckoutRequest{Client: "Ana", Payment: domain.PaymentBreakdown{Cash: 5000}})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if res.Sale.PaymentStatus != domain.StatusPending || res.Settlement.Missing != 10000 {
		t.Fatalf("expected pending sale missing 10000, got %+v", res)
	}
	if res.Sale.Payment.Cash != 5000 || res.Sale.Client != "Ana" {
		t.Fatalf("unexpected recorded sale %+v", res.Sale)
	}
	if !hasNotice(svc, "¡Pedido Guardado (Pendiente)!") {
		t.Fatalf("expected pending notice")
	}
}

func TestCheckoutValidation(t *testing.T) {
	gw := &fakeGateway{products: []domain.Product{
		{ID: "latte", Name: "Latte", Price: 15000, Stock: domain.UntrackedStock()},
	}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Message != "Agrega productos primero" {
		t.Fatalf("expected empty cart error, got %v", err)
	}

	_, _ = svc.AddToCart(ctx, "latte")
	_, err = svc.Checkout(ctx, domain.CheckoutRequest{Payment: domain.PaymentBreakdown{Cash: -1}})
	if !errors.As(err, &verr) {
		t.Fatalf("expected negative amount to be rejected, got %v", err)
	}
	if len(gw.sales) != 0 {
		t.Fatalf("nothing should be recorded")
	}
}

func TestCheckoutGatewayFailureKeepsCart(t *testing.T) {
	gw := &fakeGateway{products: []domain.Product{
		{ID: "latte", Name: "Latte", Price: 15000, Stock: domain.TrackedStock(4)},
	}}
	svc := newTestService(t, gw)
	ctx := context.Background()
	_, _ = svc.AddToCart(ctx, "latte")

	gw.saleErr = &gateway.HTTPError{StatusCode: 500, Status: "Internal Server Error"}
	_, err := svc.Checkout(ctx, domain.CheckoutRequest{Payment: domain.PaymentBreakdown{Cash: 15000}})
	var herr *gateway.HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected http error, got %v", err)
	}
	if svc.Cart().Count != 1 {
		t.Fatalf("cart must survive a failed sale")
	}
	if p, _ := svc.catalog.Get("latte"); p.Stock.Value != 4 {
		t.Fatalf("stock must not move on a failed sale, got %d", p.Stock.Value)
	}
	if !hasNotice(svc, "Error API (500): Internal Server Error") {
		t.Fatalf("expected error notice, got %+v", svc.Notices())
	}
}

func TestSettleOrderRequiresCompletePayment(t *testing.T) {
	gw := &fakeGateway{orders: []domain.Order{
		{ID: "ORD-1", Total: 10000, Client: "Ana", PaymentStatus: domain.StatusPending, DeliveryStatus: domain.StatusPending},
	}}
	pub := &recordingPublisher{}
	svc := newTestService(t, gw)
	svc.WithPublisher(pub)
	ctx := WithActor(context.Background(), domain.Actor{Username: "caja", Role: "operator"})

	_, err := svc.SettleOrder(ctx, "ORD-1", domain.SettleRequest{Payment: domain.PaymentBreakdown{Cash: 5000}})
	if !errors.Is(err, payment.ErrIncompletePayment) {
		t.Fatalf("expected incomplete payment error, got %v", err)
	}
	if len(gw.settled) != 0 {
		t.Fatalf("incomplete payment must not reach the sheet")
	}

	res, err := svc.SettleOrder(ctx, "ORD-1", domain.SettleRequest{Payment: domain.PaymentBreakdown{Cash: 1000, WalletB: 12000}})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if res.Order.PaymentStatus != domain.StatusPaid || res.Order.Payment == nil {
		t.Fatalf("expected paid order, got %+v", res.Order)
	}
	// change exceeds the cash handed over, so cash is kept as entered
	if gw.settled["ORD-1"] != (domain.PaymentBreakdown{Cash: 1000, WalletB: 12000}) {
		t.Fatalf("unexpected settled breakdown %+v", gw.settled["ORD-1"])
	}
	if !hasNotice(svc, "¡Deuda Pagada Correctamente!") {
		t.Fatalf("expected settle notice")
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.OrderSettled || pub.events[0].Actor != "caja" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestToggleOrderStatusRollsBackOnFailure(t *testing.T) {
	gw := &fakeGateway{orders: []domain.Order{
		{ID: "ORD-1", Total: 8000, PaymentStatus: domain.StatusPaid, DeliveryStatus: domain.StatusPending},
	}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	gw.statusErr = &gateway.APIError{Action: "updateOrderStatus", Message: "hoja bloqueada"}
	if _, err := svc.ToggleOrderStatus(ctx, "ORD-1", domain.StatusRequest{Kind: "delivery", Value: true}); err == nil {
		t.Fatalf("expected failure")
	}
	if got := svc.Orders()[0].DeliveryStatus; got != domain.StatusPending {
		t.Fatalf("expected rollback to Pendiente, got %s", got)
	}

	gw.statusErr = nil
	updated, err := svc.ToggleOrderStatus(ctx, "ORD-1", domain.StatusRequest{Kind: "delivery", Value: true})
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if updated.DeliveryStatus != domain.StatusDelivered {
		t.Fatalf("expected Entregado, got %s", updated.DeliveryStatus)
	}

	if _, err := svc.ToggleOrderStatus(ctx, "ORD-1", domain.StatusRequest{Kind: "kitchen"}); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
}

func TestPaymentHintReadsReportsThroughCache(t *testing.T) {
	gw := &fakeGateway{
		orders: []domain.Order{{ID: "ORD-7", Total: 12000, Items: []domain.OrderItem{{Name: "Latte", Quantity: 2}}}},
		records: []domain.ReportRecord{
			{ID: "r1", Date: "2026-03-14", Total: 12000, HasPayment: true,
				Items:   []domain.ReportItem{{Name: "latte", Quantity: 2}},
				Payment: domain.PaymentBreakdown{Cash: 2000, WalletA: 10000}},
		},
	}
	svc := newTestService(t, gw)
	svc.WithReportsCache(&mapCache{values: map[string][]domain.ReportRecord{}}, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		hint, ok, err := svc.PaymentHint(ctx, "ORD-7", "2026-03-14")
		if err != nil || !ok {
			t.Fatalf("expected a hint, got ok=%t err=%v", ok, err)
		}
		if hint.Method != payment.MatchSignature || hint.Payment.WalletA != 10000 {
			t.Fatalf("unexpected hint %+v", hint)
		}
	}
	if gw.reportsCalls != 1 {
		t.Fatalf("expected one reports fetch, got %d", gw.reportsCalls)
	}
}

func TestSaveProduct(t *testing.T) {
	gw := &fakeGateway{}
	up := &fakeUploader{url: "https://img.example/latte.jpg"}
	svc := newTestService(t, gw)
	svc.WithUploader(up)
	ctx := context.Background()

	_, err := svc.SaveProduct(ctx, domain.ProductForm{Name: "  "}, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Message != "Nombre es obligatorio" {
		t.Fatalf("expected name error, got %v", err)
	}

	p, err := svc.SaveProduct(ctx, domain.ProductForm{Name: "Espresso", Price: 4000, Stock: "12", BulkPool: true},
		&Image{Filename: "espresso.png", Data: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if p.Stock.Tracked {
		t.Fatalf("bulk pool products are untracked")
	}
	if p.Image != up.url || up.filename != "espresso.png" {
		t.Fatalf("expected uploaded image url, got %q", p.Image)
	}
	if p.Unit != domain.DefaultUnit || p.ConsumePerSale != 1 {
		t.Fatalf("expected defaults, got %+v", p)
	}
	if len(gw.added) != 1 || gw.added[0].Image != up.url {
		t.Fatalf("unexpected added products %+v", gw.added)
	}
	if !hasNotice(svc, "Guardado en Inventario") {
		t.Fatalf("expected saved notice")
	}

	if _, err := svc.SaveProduct(ctx, domain.ProductForm{ID: "prd-1", Name: "Agua", Stock: "siete"}, nil); err == nil {
		t.Fatalf("expected bad stock to be rejected")
	}
	if _, err := svc.SaveProduct(ctx, domain.ProductForm{ID: "prd-1", Name: "Agua", Stock: "7"}, nil); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(gw.updated) != 1 || gw.updated[0].Stock != domain.TrackedStock(7) {
		t.Fatalf("unexpected updates %+v", gw.updated)
	}
}

func TestSettingsDefaultsAndCachedCopy(t *testing.T) {
	gw := &fakeGateway{settings: domain.Settings{Name: "Pasmi", Base: 50000}}
	svc := newTestService(t, gw)
	ctx := context.Background()

	settings, err := svc.Settings(ctx)
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if settings.SmartGoal != DefaultSmartGoal {
		t.Fatalf("expected default smart goal, got %d", settings.SmartGoal)
	}

	gw.settingsErr = errors.New("offline")
	cached, err := svc.Settings(ctx)
	var stale *StaleError
	if !errors.As(err, &stale) {
		t.Fatalf("expected a stale copy error, got %v", err)
	}
	if cached.Name != "Pasmi" || cached.Base != 50000 {
		t.Fatalf("expected cached settings, got %+v", cached)
	}
}

func TestCashDrawerValidation(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(t, gw)
	ctx := context.Background()

	err := svc.AddExpense(ctx, domain.ExpenseRequest{Description: " ", Value: 5000})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Message != "Completa descripción y valor" {
		t.Fatalf("expected expense validation, got %v", err)
	}
	if err := svc.AddExpense(ctx, domain.ExpenseRequest{Description: "Hielo", Value: 5000}); err != nil {
		t.Fatalf("expense failed: %v", err)
	}

	if _, _, err := svc.AddBulkStock(ctx, domain.AmountRequest{Value: 0}); !errors.As(err, &verr) || verr.Message != "Valor inválido" {
		t.Fatalf("expected bulk stock validation, got %v", err)
	}
	level, known, err := svc.AddBulkStock(ctx, domain.AmountRequest{Value: 500})
	if err != nil || !known || level != 500 {
		t.Fatalf("unexpected bulk stock result %d %t %v", level, known, err)
	}

	if err := svc.SetBase(ctx, domain.AmountRequest{Value: 80000}); err != nil {
		t.Fatalf("set base failed: %v", err)
	}
	if len(gw.expenses) != 1 || len(gw.bases) != 1 || gw.bases[0] != 80000 {
		t.Fatalf("unexpected writes expenses=%v bases=%v", gw.expenses, gw.bases)
	}
}

func TestDashboardCombinesFeeds(t *testing.T) {
	gw := &fakeGateway{
		insights: domain.Insights{Goal: 50, Meta: 40318},
		snapshot: domain.DailySnapshot{Base: 50000, Expenses: 10000, GrossSales: 1},
		products: []domain.Product{{ID: "a", Name: "Agua", Stock: domain.TrackedStock(1)}},
		records: []domain.ReportRecord{
			{Date: "2026-03-14", Total: 20000, HasPayment: true, Payment: domain.PaymentBreakdown{Cash: 20000}},
		},
	}
	svc := newTestService(t, gw)

	d, err := svc.Dashboard(context.Background(), "")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if d.Date != "2026-03-14" || d.TodayTotal != 20000 || d.CashOnHand != 60000 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if len(d.StockAlerts) != 1 || d.Goal.Percent != 50 {
		t.Fatalf("unexpected alerts or goal %+v", d)
	}
}

func TestSessionFlag(t *testing.T) {
	svc := newTestService(t, &fakeGateway{})
	ctx := context.Background()

	if active, _ := svc.SessionActive(ctx); active {
		t.Fatalf("session should start inactive")
	}
	if err := svc.StartSession(ctx); err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if active, err := svc.SessionActive(ctx); err != nil || !active {
		t.Fatalf("expected active session, got %t %v", active, err)
	}
	if err := svc.EndSession(ctx); err != nil {
		t.Fatalf("end session failed: %v", err)
	}
	if active, _ := svc.SessionActive(ctx); active {
		t.Fatalf("expected session cleared")
	}
}

func TestCheckoutKeepsLinesAddedWhileRecording(t *testing.T) {
	gw := &fakeGateway{
		products: []domain.Product{
			{ID: "latte", Name: "Latte", Price: 15000, Stock: domain.UntrackedStock()},
			{ID: "cookie", Name: "Galleta", Price: 3000, Stock: domain.UntrackedStock()},
		},
		saleEntered: make(chan struct{}),
		releaseSale: make(chan struct{}),
	}
	svc := newTestService(t, gw)
	ctx := context.Background()
	if _, err := svc.AddToCart(ctx, "latte"); err != nil {
		t.Fatalf("add latte: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(ctx, domain.CheckoutRequest{Payment: domain.PaymentBreakdown{Cash: 15000}})
		done <- err
	}()

	<-gw.saleEntered
	if _, err := svc.AddToCart(ctx, "cookie"); err != nil {
		t.Fatalf("add cookie during checkout: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "latte"); err != nil {
		t.Fatalf("add latte during checkout: %v", err)
	}
	close(gw.releaseSale)
	if err := <-done; err != nil {
		t.Fatalf("checkout: %v", err)
	}

	gw.mu.Lock()
	sales := append([]domain.Sale(nil), gw.sales...)
	gw.mu.Unlock()
	if len(sales) != 1 {
		t.Fatalf("expected one recorded sale, got %d", len(sales))
	}
	items := sales[0].Items
	if len(items) != 1 || items[0].ID != "latte" || items[0].Quantity != 1 || sales[0].Total != 15000 {
		t.Fatalf("sale must hold only the lines it was totalled from: %+v total=%d", items, sales[0].Total)
	}

	view := svc.Cart()
	got := map[string]int64{}
	for _, l := range view.Lines {
		got[l.Product.ID] = l.Quantity
	}
	if len(got) != 2 || got["latte"] != 1 || got["cookie"] != 1 {
		t.Fatalf("lines added during checkout were lost: %+v", view.Lines)
	}
}

func TestKeypadAndQuote(t *testing.T) {
	gw := &fakeGateway{products: []domain.Product{
		{ID: "latte", Name: "Latte", Price: 15000, Stock: domain.UntrackedStock()},
	}}
	svc := newTestService(t, gw)
	ctx := context.Background()
	_, _ = svc.AddToCart(ctx, "latte")

	for _, key := range []string{"2", "000", "0"} {
		if _, err := svc.Keypad(domain.KeypadRequest{Action: "press", Key: key}); err != nil {
			t.Fatalf("press %s failed: %v", key, err)
		}
	}
	pad, err := svc.Keypad(domain.KeypadRequest{Action: "backspace"})
	if err != nil || pad.Amount.Cash != 2000 {
		t.Fatalf("unexpected keypad %+v %v", pad, err)
	}
	if _, err := svc.Keypad(domain.KeypadRequest{Action: "press", Key: "x"}); err == nil {
		t.Fatalf("expected non numeric key to be rejected")
	}
	for _, key := range []string{"-5", "+5", "-"} {
		pad, err := svc.Keypad(domain.KeypadRequest{Action: "press", Key: key})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected signed key %q to be a validation error, got %v", key, err)
		}
		if pad.Amount.Cash < 0 {
			t.Fatalf("cash went negative after %q: %d", key, pad.Amount.Cash)
		}
	}

	q, err := svc.Quote(ctx, domain.QuoteRequest{Payment: domain.PaymentBreakdown{Cash: 20000}})
	if err != nil || q.Change != 5000 {
		t.Fatalf("unexpected quote %+v %v", q, err)
	}
	if _, err := svc.Quote(ctx, domain.QuoteRequest{OrderID: "missing"}); err == nil || !strings.Contains(err.Error(), "Pedido") {
		t.Fatalf("expected unknown order error, got %v", err)
	}
}
