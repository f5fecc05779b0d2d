package gateway

import (
	"context"
	"time"

	"pasmi/terminal/internal/domain"
)

type saleItem struct {
	ID        string `json:"id"`
	Name      string `json:"nombre"`
	Quantity  int64  `json:"cantidad"`
	UnitPrice int64  `json:"precio_unitario"`
}

type salePayload struct {
	Items          []saleItem              `json:"items"`
	Total          int64                   `json:"total"`
	Payment        domain.PaymentBreakdown `json:"payment"`
	Client         string                  `json:"client"`
	PaymentStatus  string                  `json:"statusPayment"`
	DeliveryStatus string                  `json:"statusDelivery"`
	CreatedAt      string                  `json:"createdAt,omitempty"`
}

type productPayload struct {
	ID       string            `json:"id,omitempty"`
	Name     string            `json:"name"`
	Price    int64             `json:"price"`
	Qty      domain.StockValue `json:"qty"`
	Category string            `json:"cat"`
	Image    *string           `json:"img"`
	Unit     string            `json:"unit"`
	Consume  int64             `json:"consume"`
	BulkPool bool              `json:"isCoffee"`
}

// SettingsUpdate carries the operator editable settings fields.
type SettingsUpdate struct {
	Name       string `json:"name"`
	TaxID      string `json:"nit"`
	CustomGoal int64  `json:"customGoal"`
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	env, err := c.get(ctx, "getProducts", "")
	if err != nil {
		return nil, err
	}
	data, err := decodeRecord(env.Data)
	if err != nil {
		return nil, err
	}
	var merged []record
	for _, key := range []string{"menu", "store"} {
		merged = append(merged, nested(data[key])...)
	}
	products := make([]domain.Product, 0, len(merged))
	for _, r := range merged {
		products = append(products, normalizeProduct(r))
	}
	return products, nil
}

func (c *Client) ActiveOrders(ctx context.Context) ([]domain.Order, error) {
	env, err := c.get(ctx, "getActiveOrders", "")
	if err != nil {
		return nil, err
	}
	recs, err := decodeRecords(env.Data)
	if err != nil {
		return nil, err
	}
	now := c.now()
	orders := make([]domain.Order, 0, len(recs))
	for _, r := range recs {
		orders = append(orders, normalizeOrder(r, now))
	}
	return orders, nil
}

// Reports returns historical sale rows, optionally for a single day.
func (c *Client) Reports(ctx context.Context, date string) ([]domain.ReportRecord, error) {
	env, err := c.get(ctx, "getReports", date)
	if err != nil {
		return nil, err
	}
	recs, err := decodeRecords(env.Data)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReportRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, normalizeReport(r))
	}
	return out, nil
}

func (c *Client) Insights(ctx context.Context, date string) (domain.Insights, error) {
	env, err := c.get(ctx, "getInsights", date)
	if err != nil {
		return domain.Insights{}, err
	}
	data, err := decodeRecord(env.Data)
	if err != nil {
		return domain.Insights{}, err
	}
	return normalizeInsights(data), nil
}

func (c *Client) DailyFinancials(ctx context.Context, date string) (domain.DailySnapshot, error) {
	env, err := c.get(ctx, "getDailyFinancials", date)
	if err != nil {
		return domain.DailySnapshot{}, err
	}
	data, err := decodeRecord(env.Data)
	if err != nil {
		return domain.DailySnapshot{}, err
	}
	return normalizeSnapshot(data, date), nil
}

// Settings returns an empty value when the sheet has none stored yet.
func (c *Client) Settings(ctx context.Context) (domain.Settings, error) {
	env, err := c.get(ctx, "getSettings", "")
	if err != nil {
		return domain.Settings{}, err
	}
	data, err := decodeRecord(env.Data)
	if err != nil {
		return domain.Settings{}, err
	}
	return normalizeSettings(data), nil
}

func (c *Client) RecordSale(ctx context.Context, sale domain.Sale) error {
	payload := salePayload{
		Items:          make([]saleItem, 0, len(sale.Items)),
		Total:          sale.Total,
		Payment:        sale.Payment,
		Client:         sale.Client,
		PaymentStatus:  sale.PaymentStatus,
		DeliveryStatus: sale.DeliveryStatus,
	}
	for _, it := range sale.Items {
		payload.Items = append(payload.Items, saleItem{
			ID:        it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	if !sale.CreatedAt.IsZero() {
		payload.CreatedAt = sale.CreatedAt.UTC().Format(time.RFC3339)
	}
	_, err := c.post(ctx, "recordSale", payload)
	return err
}

func (c *Client) SettleOrder(ctx context.Context, id string, payment domain.PaymentBreakdown) error {
	_, err := c.post(ctx, "settleOrder", map[string]any{"id": id, "payment": payment})
	return err
}

func (c *Client) AddExpense(ctx context.Context, desc string, value int64) error {
	_, err := c.post(ctx, "addExpense", map[string]any{"desc": desc, "value": value})
	return err
}

func (c *Client) SetBase(ctx context.Context, value int64) error {
	_, err := c.post(ctx, "setBase", map[string]any{"value": value})
	return err
}

// UpdateBulkStock sets or, with add, increments the shared bulk ingredient
// pool. The new level is returned when the sheet reports it.
func (c *Client) UpdateBulkStock(ctx context.Context, value int64, add bool) (int64, bool, error) {
	env, err := c.post(ctx, "updateCoffeeStock", map[string]any{"value": value, "add": add})
	if err != nil {
		return 0, false, err
	}
	data, err := decodeRecord(env.Data)
	if err != nil {
		c.logger.WithField("action", "updateCoffeeStock").WithError(err).Debug("bulk stock answer not decodable; new level unknown")
		return 0, false, nil
	}
	if _, ok := data.lookup([]string{"newStock"}); !ok {
		c.logger.WithField("action", "updateCoffeeStock").Debug("bulk stock answer has no newStock")
		return 0, false, nil
	}
	return data.amount([]string{"newStock"}, 0), true, nil
}

func (c *Client) AddProduct(ctx context.Context, p domain.Product) error {
	payload := toProductPayload(p)
	payload.ID = ""
	_, err := c.post(ctx, "addProduct", payload)
	return err
}

func (c *Client) UpdateProduct(ctx context.Context, p domain.Product) error {
	_, err := c.post(ctx, "updateProduct", toProductPayload(p))
	return err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.post(ctx, "deleteProduct", map[string]any{"id": id})
	return err
}

func (c *Client) UpdateSettings(ctx context.Context, in SettingsUpdate) error {
	_, err := c.post(ctx, "updateSettings", in)
	return err
}

// UpdateOrderStatus flips the payment or delivery flag of an active order.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, kind string, value bool) error {
	_, err := c.post(ctx, "updateOrderStatus", map[string]any{"id": id, "type": kind, "value": value})
	return err
}

func toProductPayload(p domain.Product) productPayload {
	out := productPayload{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Qty:      p.Stock,
		Category: p.Category,
		Unit:     p.Unit,
		Consume:  p.Consumption(),
		BulkPool: p.BulkPool,
	}
	if p.Image != "" {
		img := p.Image
		out.Image = &img
	}
	return out
}
