// Package reports derives the daily dashboard from the sheet feeds and
// renders it for download.
package reports

import (
	"sort"
	"time"

	"pasmi/terminal/internal/catalog"
	"pasmi/terminal/internal/domain"
)

const (
	topProductsLimit = 5
	weeklyPoints     = 7
	stockAlertsLimit = 5
)

// Inputs are the four feeds the dashboard is built from.
type Inputs struct {
	Insights domain.Insights
	Snapshot domain.DailySnapshot
	Products []domain.Product
	Records  []domain.ReportRecord
}

type TopProduct struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type TrendPoint struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Total   int64  `json:"total"`
}

type Goal struct {
	Percent float64 `json:"percent"`
	Visual  float64 `json:"visual"`
	Target  int64   `json:"target"`
	Reached bool    `json:"reached"`
}

type Dashboard struct {
	Date        string                  `json:"date"`
	Base        int64                   `json:"base"`
	Expenses    int64                   `json:"expenses"`
	TodayTotal  int64                   `json:"todayTotal"`
	CashOnHand  int64                   `json:"totalInBox"`
	Payments    domain.PaymentBreakdown `json:"payments"`
	SaleCount   int                     `json:"saleCount"`
	FromReports bool                    `json:"fromReports"`
	TopProducts []TopProduct            `json:"topProducts"`
	Weekly      []TrendPoint            `json:"weekly"`
	Goal        Goal                    `json:"goal"`
	StockAlerts []domain.Product        `json:"stockAlerts"`
}

// Build derives the dashboard for date (YYYY-MM-DD). When the reports feed
// has rows for that day their sums take precedence over the snapshot.
func Build(date string, in Inputs) Dashboard {
	day := domain.NormalizeDate(date)
	selected := make([]domain.ReportRecord, 0)
	for _, r := range in.Records {
		if domain.NormalizeDate(r.Date) == day {
			selected = append(selected, r)
		}
	}

	d := Dashboard{
		Date:        day,
		Base:        in.Snapshot.Base,
		Expenses:    in.Snapshot.Expenses,
		SaleCount:   len(selected),
		FromReports: len(selected) > 0,
		TopProducts: topProducts(selected),
		Weekly:      weekly(in.Records, day),
		Goal:        goalFrom(in.Insights),
		StockAlerts: catalog.LowStock(in.Products, stockAlertsLimit),
	}

	if d.FromReports {
		for _, r := range selected {
			d.TodayTotal += r.Total
			d.Payments.Cash += r.Payment.Cash
			d.Payments.WalletA += r.Payment.WalletA
			d.Payments.WalletB += r.Payment.WalletB
		}
	} else {
		d.TodayTotal = in.Snapshot.GrossSales
		d.Payments = in.Snapshot.Payments
	}
	d.CashOnHand = d.TodayTotal + d.Base - d.Expenses
	return d
}

func topProducts(records []domain.ReportRecord) []TopProduct {
	totals := make(map[string]int64)
	order := make([]string, 0)
	for _, r := range records {
		for _, it := range r.Items {
			if it.Name == "" {
				continue
			}
			if _, seen := totals[it.Name]; !seen {
				order = append(order, it.Name)
			}
			totals[it.Name] += it.Quantity
		}
	}
	out := make([]TopProduct, 0, len(order))
	for _, name := range order {
		out = append(out, TopProduct{Name: name, Quantity: totals[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quantity > out[j].Quantity
	})
	if len(out) > topProductsLimit {
		out = out[:topProductsLimit]
	}
	return out
}

// weekly returns the last seven rows dated on or before day, oldest first.
func weekly(records []domain.ReportRecord, day string) []TrendPoint {
	points := make([]TrendPoint, 0)
	for _, r := range records {
		d := domain.NormalizeDate(r.Date)
		if d == "" || d > day {
			continue
		}
		points = append(points, TrendPoint{Date: d, Weekday: weekday(d), Total: r.Total})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date > points[j].Date
	})
	if len(points) > weeklyPoints {
		points = points[:weeklyPoints]
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points
}

var weekdays = [...]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}

func weekday(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return ""
	}
	return weekdays[t.Weekday()]
}

func goalFrom(in domain.Insights) Goal {
	visual := in.Goal
	if visual < 0 {
		visual = 0
	}
	if visual > 100 {
		visual = 100
	}
	return Goal{Percent: in.Goal, Visual: visual, Target: in.Meta, Reached: in.Goal >= 100}
}
