package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"pasmi/terminal/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(srv.URL+"/exec", 5*time.Second, logger).WithHTTPClient(srv.Client())
}

func TestProductsMergesMenuAndStoreWithAliases(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Query().Get("action") != "getProducts" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.String())
		}
		_, _ = io.WriteString(w, `{"status":"success","data":{
			"menu":[{"id":"m1","name":"Latte","price":8000,"stock":"","category":"PARA CALMAR EL FRÍO","isCoffee":true}],
			"store":[{"ID":"s1","n":"Pandebono","p":"3,500","s":12,"c":"Tienda (Panadería)","u":"und","k":2,"img_url":"https://img/x.png"},
			         {"n":"Sin id","p":1000}]
		}}`)
	})

	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 merged products, got %d", len(products))
	}
	latte := products[0]
	if latte.ID != "m1" || latte.Stock.Tracked || !latte.BulkPool || latte.Unit != "und" || latte.ConsumePerSale != 1 {
		t.Fatalf("unexpected latte: %+v", latte)
	}
	bread := products[1]
	if bread.ID != "s1" || bread.Name != "Pandebono" || bread.Price != 3500 {
		t.Fatalf("unexpected short-key product: %+v", bread)
	}
	if !bread.Stock.Tracked || bread.Stock.Value != 12 || bread.ConsumePerSale != 2 || bread.Image != "https://img/x.png" {
		t.Fatalf("unexpected stock/image mapping: %+v", bread)
	}
	if products[2].ID == "" || products[2].Stock.Tracked {
		t.Fatalf("expected generated id and untracked stock, got %+v", products[2])
	}
}

func TestActiveOrdersNormalizesStatusesAndTime(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","data":[
			{"id":"ORD-1","payStatus":true,"delStatus":false,"time":"09:30","total":"15000",
			 "items":"[{\"nombre\":\"Latte\",\"cantidad\":2,\"precio_unitario\":7500}]"},
			{"id":"ORD-2","paymentStatus":"Pagado","statusDelivery":"Entregado","createdAt":"2026-03-13T10:00:00Z",
			 "items":[{"name":"Tinto","quantity":1,"unitPrice":3000}],"payment":{"cash":0,"nequi":3000,"daviplata":0}},
			{"id":"ORD-3"}
		]}`)
	})
	client.WithClock(func() time.Time { return now })

	orders, err := client.ActiveOrders(context.Background())
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}

	first := orders[0]
	if first.PaymentStatus != domain.StatusPaid || first.DeliveryStatus != domain.StatusPending {
		t.Fatalf("unexpected statuses: %+v", first)
	}
	want := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Fatalf("expected createdAt %s, got %s", want, first.CreatedAt)
	}
	if len(first.Items) != 1 || first.Items[0].Name != "Latte" || first.Items[0].Quantity != 2 || first.Total != 15000 {
		t.Fatalf("unexpected string-encoded items: %+v", first)
	}

	second := orders[1]
	if second.PaymentStatus != domain.StatusPaid || second.DeliveryStatus != domain.StatusDelivered {
		t.Fatalf("unexpected long-key statuses: %+v", second)
	}
	if second.Payment == nil || second.Payment.WalletA != 3000 {
		t.Fatalf("expected recorded payment, got %+v", second.Payment)
	}

	third := orders[2]
	if third.PaymentStatus != domain.StatusPending || third.DeliveryStatus != domain.StatusPending || !third.CreatedAt.Equal(now) {
		t.Fatalf("unexpected defaults: %+v", third)
	}
	if third.Items == nil || len(third.Items) != 0 {
		t.Fatalf("expected empty item list, got %#v", third.Items)
	}
}

func TestNonSuccessStatusSurfacesHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Settings(context.Background())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if err.Error() != "Error API (500): Internal Server Error" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestErrorEnvelopeSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"error","message":"Producto no existe"}`)
	})

	err := client.DeleteProduct(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Producto no existe" {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestUnreachableSheetSurfacesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	err := New(url+"/exec", 5*time.Second, logger).AddExpense(context.Background(), "Hielo", 3000)
	var terr *TransportError
	if !errors.As(err, &terr) || terr.Action != "addExpense" || terr.Err == nil {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if err.Error() != "sin conexión con la hoja (addExpense)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestUpdateBulkStockLogsUndecodableAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","data":[1,2]}`)
	}))
	t.Cleanup(srv.Close)
	var logs bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&logs)
	logger.SetLevel(logrus.DebugLevel)

	n, known, err := New(srv.URL+"/exec", 5*time.Second, logger).WithHTTPClient(srv.Client()).UpdateBulkStock(context.Background(), 500, true)
	if err != nil || known || n != 0 {
		t.Fatalf("expected unknown level without error, got n=%d known=%v err=%v", n, known, err)
	}
	if !strings.Contains(logs.String(), "bulk stock answer not decodable") {
		t.Fatalf("expected debug log for undecodable answer, got %q", logs.String())
	}
}

func TestRecordSalePostsPlainTextEnvelope(t *testing.T) {
	var gotType string
	var body struct {
		Action  string          `json:"action"`
		Payload json.RawMessage `json:"payload"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})

	err := client.RecordSale(context.Background(), domain.Sale{
		Items:          []domain.OrderItem{{ID: "p1", Name: "Latte", Quantity: 2, UnitPrice: 7500}},
		Total:          15000,
		Payment:        domain.PaymentBreakdown{Cash: 15000},
		Client:         "Mesa 4",
		PaymentStatus:  domain.StatusPaid,
		DeliveryStatus: domain.StatusPending,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if gotType != contentType {
		t.Fatalf("expected content type %q, got %q", contentType, gotType)
	}
	if body.Action != "recordSale" {
		t.Fatalf("unexpected action %q", body.Action)
	}
	payload := string(body.Payload)
	for _, want := range []string{`"nombre":"Latte"`, `"cantidad":2`, `"precio_unitario":7500`, `"daviplata":0`, `"statusPayment":"Pagado"`} {
		if !strings.Contains(payload, want) {
			t.Fatalf("expected %s in payload %s", want, payload)
		}
	}
}

func TestProductPayloadSendsUntrackedQtyAsEmptyString(t *testing.T) {
	var raw map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Payload map[string]any `json:"payload"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw = body.Payload
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})

	err := client.AddProduct(context.Background(), domain.Product{ID: "local", Name: "Espresso", Price: 4000, Category: "MÉTODOS DE CAFÉ", Unit: "und", BulkPool: true})
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if raw["qty"] != "" {
		t.Fatalf("expected empty qty, got %#v", raw["qty"])
	}
	if _, ok := raw["id"]; ok {
		t.Fatalf("expected id omitted on add, got %#v", raw["id"])
	}
	if raw["consume"] != float64(1) || raw["cat"] != "MÉTODOS DE CAFÉ" || raw["img"] != nil {
		t.Fatalf("unexpected payload %#v", raw)
	}
}

func TestDailyFinancialsDerivesCashOnHandWhenMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") != "2026-03-14" {
			t.Fatalf("expected date query, got %q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `{"status":"success","data":{"base":50000,"expenses":10000,"todayTotal":90000,"cash":40000,"nequi":30000,"davi":20000}}`)
	})

	snap, err := client.DailyFinancials(context.Background(), "2026-03-14")
	if err != nil {
		t.Fatalf("financials: %v", err)
	}
	if snap.CashOnHand != 130000 {
		t.Fatalf("expected derived cash on hand 130000, got %d", snap.CashOnHand)
	}
	if snap.Payments.WalletB != 20000 || snap.GrossSales != 90000 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestReportsAcceptsBareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"date":"2026-03-14T13:00:00.000Z","total":12000,"efectivo":2000,"nequi":10000,
			"items":"[{\"nombre\":\"Latte\",\"cantidad\":1}]"},{"date":"2026-03-13","total":5000}]`)
	})

	recs, err := client.Reports(context.Background(), "")
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if !recs[0].HasPayment || recs[0].Payment.Cash != 2000 || recs[0].Payment.WalletA != 10000 {
		t.Fatalf("unexpected payment %+v", recs[0])
	}
	if recs[1].HasPayment {
		t.Fatalf("expected no payment on second record")
	}
	if len(recs[0].Items) != 1 || recs[0].Items[0].Name != "Latte" {
		t.Fatalf("unexpected items %+v", recs[0].Items)
	}
}

func TestUnconfiguredClientFailsFast(t *testing.T) {
	client := New("", time.Second, nil)
	if _, err := client.Products(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestParseAmountHandlesSeparators(t *testing.T) {
	cases := map[string]int64{
		"20,000":    20000,
		"$ 15.000":  15000,
		"1.234,50":  1235,
		"-3500":     -3500,
		"12.5":      13,
		"1,000,000": 1000000,
	}
	for raw, want := range cases {
		d, err := parseAmount(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got := d.Round(0).IntPart(); got != want {
			t.Fatalf("parse %q: expected %d, got %d", raw, want, got)
		}
	}
	if _, err := parseAmount("abc"); err == nil {
		t.Fatalf("expected error for non-numeric input")
	}
}
