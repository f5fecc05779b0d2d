package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pasmi/terminal/internal/domain"
	"pasmi/terminal/internal/xid"
)

// record is one loosely shaped object from the sheet endpoint. Field names
// vary between sheets, so every entity is read through an alias table.
type record map[string]any

var (
	productAliases = map[string][]string{
		"id":       {"id", "ID"},
		"name":     {"name", "n"},
		"price":    {"price", "p"},
		"stock":    {"stock", "s"},
		"category": {"category", "c"},
		"unit":     {"unit", "u"},
		"consume":  {"consumePerSale", "k"},
		"image":    {"image", "i", "img", "imgUrl", "img_url", "imageUrl", "image_url"},
		"bulk":     {"isCoffee"},
	}
	orderAliases = map[string][]string{
		"id":        {"id", "ID"},
		"items":     {"items", "productos"},
		"total":     {"total"},
		"client":    {"client", "cliente"},
		"payment":   {"statusPayment", "paymentStatus"},
		"delivery":  {"statusDelivery", "deliveryStatus"},
		"createdAt": {"createdAt"},
		"date":      {"date", "fecha"},
		"time":      {"time", "hora"},
		"breakdown": {"payment", "pago"},
	}
	itemAliases = map[string][]string{
		"id":       {"id", "ID"},
		"name":     {"name", "nombre"},
		"quantity": {"quantity", "cantidad", "qty"},
		"price":    {"unitPrice", "precio_unitario", "price"},
	}
	paymentAliases = map[string][]string{
		"cash":    {"cash", "efectivo"},
		"walletA": {"nequi"},
		"walletB": {"daviplata", "davi"},
	}
	reportAliases = map[string][]string{
		"id":     {"id", "ID"},
		"date":   {"date", "fecha"},
		"total":  {"total"},
		"items":  {"items", "productos"},
		"client": {"client", "cliente"},
	}
)

// lookup returns the first alias present with a non-null value.
func (r record) lookup(aliases []string) (any, bool) {
	for _, key := range aliases {
		if v, ok := r[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r record) str(aliases []string, fallback string) string {
	v, ok := r.lookup(aliases)
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

func (r record) amount(aliases []string, fallback int64) int64 {
	v, ok := r.lookup(aliases)
	if !ok {
		return fallback
	}
	n, err := toDecimal(v)
	if err != nil {
		return fallback
	}
	return n.Round(0).IntPart()
}

func (r record) flag(aliases []string) (bool, bool) {
	v, ok := r.lookup(aliases)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "si", "sí", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	case json.Number:
		return t.String() != "0", true
	}
	return false, false
}

// toDecimal accepts JSON numbers and user formatted strings such as
// "20,000" or "$ 15.000".
func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case json.Number:
		return decimal.NewFromString(t.String())
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		return parseAmount(t)
	case bool:
		if t {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("invalid value %v", v)
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	neg := strings.HasPrefix(s, "-")
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.Zero, fmt.Errorf("invalid value %q", raw)
	}
	clean = normalizeSeparators(clean)
	if neg {
		clean = "-" + clean
	}
	return decimal.NewFromString(clean)
}

// normalizeSeparators resolves "20,000", "15.000" and "1.234,5" to a plain
// decimal literal. A single separator followed by exactly three digits is a
// thousands separator.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

func decodeRecords(raw json.RawMessage) ([]record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var out []record
	if err := decodeNumbers(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRecord(raw json.RawMessage) (record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return record{}, nil
	}
	var out record
	if err := decodeNumbers(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = record{}
	}
	return out, nil
}

func decodeNumbers(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

// nested reads a list that may arrive either as a JSON array or as a JSON
// encoded string holding that array. Unparseable strings yield nil.
func nested(v any) []record {
	switch t := v.(type) {
	case []any:
		out := make([]record, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, record(m))
			}
		}
		return out
	case string:
		var out []record
		if err := decodeNumbers([]byte(t), &out); err != nil {
			return nil
		}
		return out
	}
	return nil
}

func normalizeProduct(r record) domain.Product {
	p := domain.Product{
		ID:             r.str(productAliases["id"], ""),
		Name:           r.str(productAliases["name"], ""),
		Price:          r.amount(productAliases["price"], 0),
		Category:       r.str(productAliases["category"], ""),
		Unit:           r.str(productAliases["unit"], domain.DefaultUnit),
		ConsumePerSale: r.amount(productAliases["consume"], 1),
		Image:          r.str(productAliases["image"], ""),
	}
	if p.ID == "" {
		p.ID = xid.New("prd")
	}
	p.Stock = normalizeStock(r)
	p.BulkPool, _ = r.flag(productAliases["bulk"])
	return p
}

func normalizeStock(r record) domain.StockValue {
	v, ok := r.lookup(productAliases["stock"])
	if !ok {
		return domain.UntrackedStock()
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return domain.UntrackedStock()
	}
	n, err := toDecimal(v)
	if err != nil {
		return domain.UntrackedStock()
	}
	return domain.TrackedStock(n.Round(0).IntPart())
}

func normalizeItems(v any) []domain.OrderItem {
	recs := nested(v)
	items := make([]domain.OrderItem, 0, len(recs))
	for _, it := range recs {
		items = append(items, domain.OrderItem{
			ID:        it.str(itemAliases["id"], ""),
			Name:      it.str(itemAliases["name"], ""),
			Quantity:  it.amount(itemAliases["quantity"], 0),
			UnitPrice: it.amount(itemAliases["price"], 0),
		})
	}
	return items
}

func normalizeBreakdown(r record) (domain.PaymentBreakdown, bool) {
	_, hasCash := r.lookup(paymentAliases["cash"])
	_, hasA := r.lookup(paymentAliases["walletA"])
	_, hasB := r.lookup(paymentAliases["walletB"])
	p := domain.PaymentBreakdown{
		Cash:    r.amount(paymentAliases["cash"], 0),
		WalletA: r.amount(paymentAliases["walletA"], 0),
		WalletB: r.amount(paymentAliases["walletB"], 0),
	}
	return p, hasCash || hasA || hasB
}

func normalizeOrder(r record, now time.Time) domain.Order {
	o := domain.Order{
		ID:     r.str(orderAliases["id"], ""),
		Items:  normalizeItems(mustLookup(r, orderAliases["items"])),
		Total:  r.amount(orderAliases["total"], 0),
		Client: r.str(orderAliases["client"], ""),
		Date:   r.str(orderAliases["date"], ""),
		Time:   r.str(orderAliases["time"], ""),
	}
	if o.ID == "" {
		o.ID = xid.New("ord")
	}

	if paid, ok := r.flag([]string{"payStatus"}); ok {
		o.PaymentStatus = statusFrom(paid, domain.StatusPaid)
	} else {
		o.PaymentStatus = r.str(orderAliases["payment"], "")
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = domain.StatusPending
	}
	if delivered, ok := r.flag([]string{"delStatus"}); ok {
		o.DeliveryStatus = statusFrom(delivered, domain.StatusDelivered)
	} else {
		o.DeliveryStatus = r.str(orderAliases["delivery"], "")
	}
	if o.DeliveryStatus == "" {
		o.DeliveryStatus = domain.StatusPending
	}

	if v, ok := r.lookup(orderAliases["breakdown"]); ok {
		if m, isMap := v.(map[string]any); isMap {
			if p, found := normalizeBreakdown(record(m)); found {
				o.Payment = &p
			}
		}
	}

	o.CreatedAt = orderTime(o, r.str(orderAliases["createdAt"], ""), now)
	return o
}

func statusFrom(v bool, positive string) string {
	if v {
		return positive
	}
	return domain.StatusPending
}

// orderTime combines a bare clock time with today's date, falls back to the
// createdAt field and finally to now.
func orderTime(o domain.Order, createdAt string, now time.Time) time.Time {
	if clock := strings.TrimSpace(o.Time); clock != "" {
		if len(clock) == 5 {
			clock += ":00"
		}
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", now.Format("2006-01-02")+"T"+clock, now.Location()); err == nil {
			return t
		}
	}
	if t, ok := domain.ParseTime(createdAt); ok {
		return t
	}
	return now
}

func normalizeReport(r record) domain.ReportRecord {
	rec := domain.ReportRecord{
		ID:     r.str(reportAliases["id"], ""),
		Date:   r.str(reportAliases["date"], ""),
		Total:  r.amount(reportAliases["total"], 0),
		Client: r.str(reportAliases["client"], ""),
	}
	for _, it := range normalizeItems(mustLookup(r, reportAliases["items"])) {
		rec.Items = append(rec.Items, domain.ReportItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	rec.Payment, rec.HasPayment = normalizeBreakdown(r)
	if !rec.HasPayment {
		if v, ok := r.lookup(orderAliases["breakdown"]); ok {
			if m, isMap := v.(map[string]any); isMap {
				rec.Payment, rec.HasPayment = normalizeBreakdown(record(m))
			}
		}
	}
	return rec
}

func normalizeSnapshot(r record, date string) domain.DailySnapshot {
	s := domain.DailySnapshot{
		Date:       date,
		GrossSales: r.amount([]string{"todayTotal"}, 0),
		Base:       r.amount([]string{"base"}, 0),
		Expenses:   r.amount([]string{"expenses"}, 0),
	}
	s.Payments, _ = normalizeBreakdown(r)
	if v, ok := r.lookup([]string{"payments"}); ok {
		if m, isMap := v.(map[string]any); isMap {
			if p, found := normalizeBreakdown(record(m)); found {
				s.Payments = p
			}
		}
	}
	if _, ok := r.lookup([]string{"totalInBox"}); ok {
		s.CashOnHand = r.amount([]string{"totalInBox"}, 0)
	} else {
		s.CashOnHand = s.Payments.Sum() + s.Base - s.Expenses
	}
	return s
}

func normalizeSettings(r record) domain.Settings {
	return domain.Settings{
		Name:       r.str([]string{"name"}, ""),
		TaxID:      r.str([]string{"nit"}, ""),
		CustomGoal: r.amount([]string{"customGoal"}, 0),
		SmartGoal:  r.amount([]string{"smartGoal"}, 0),
		BulkStock:  r.amount([]string{"coffeeStock"}, 0),
		Base:       r.amount([]string{"base"}, 0),
	}
}

func normalizeInsights(r record) domain.Insights {
	goal := 0.0
	if v, ok := r.lookup([]string{"goal"}); ok {
		if d, err := toDecimal(v); err == nil {
			goal = d.InexactFloat64()
		}
	}
	return domain.Insights{Goal: goal, Meta: r.amount([]string{"meta"}, 0)}
}

func mustLookup(r record, aliases []string) any {
	v, _ := r.lookup(aliases)
	return v
}
