package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"pasmi/terminal/internal/domain"
)

// CSV writes the dashboard as section,key,value rows.
func CSV(w io.Writer, d Dashboard) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "date", d.Date},
		{"summary", "sales", strconv.Itoa(d.SaleCount)},
		{"summary", "today_total", itoa(d.TodayTotal)},
		{"summary", "base", itoa(d.Base)},
		{"summary", "expenses", itoa(d.Expenses)},
		{"summary", "total_in_box", itoa(d.CashOnHand)},
		{"payment", "cash", itoa(d.Payments.Cash)},
		{"payment", "nequi", itoa(d.Payments.WalletA)},
		{"payment", "daviplata", itoa(d.Payments.WalletB)},
		{"goal", "percent", strconv.FormatFloat(d.Goal.Percent, 'f', -1, 64)},
		{"goal", "meta", itoa(d.Goal.Target)},
	}
	for _, p := range d.TopProducts {
		rows = append(rows, []string{"top_product", p.Name, itoa(p.Quantity)})
	}
	for _, p := range d.Weekly {
		rows = append(rows, []string{"weekly", p.Date, itoa(p.Total)})
	}
	for _, p := range d.StockAlerts {
		rows = append(rows, []string{"stock_alert", p.Name, itoa(remaining(p))})
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

var dashboardHTMLTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"money":     money,
	"remaining": remaining,
}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Cierre {{.Date}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; color: #3D2C2A; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; color: #A3320B; }
  </style>
</head>
<body>
  <h2>Cierre {{.Date}}</h2>
  <p>Ventas: {{.SaleCount}} | Total: {{money .TodayTotal}}</p>
  <p>Base: {{money .Base}} | Egresos: {{money .Expenses}} | Total en caja: {{money .CashOnHand}}</p>

  <h3>Medios de pago</h3>
  <table>
    <thead><tr><th>Efectivo</th><th>Nequi</th><th>Daviplata</th></tr></thead>
    <tbody><tr><td style="text-align:right;">{{money .Payments.Cash}}</td><td style="text-align:right;">{{money .Payments.WalletA}}</td><td style="text-align:right;">{{money .Payments.WalletB}}</td></tr></tbody>
  </table>

  <h3>Más vendidos</h3>
  <table>
    <thead><tr><th>Producto</th><th>Cantidad</th></tr></thead>
    <tbody>{{range .TopProducts}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{.Quantity}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Alertas de stock</h3>
  <table>
    <thead><tr><th>Producto</th><th>Stock</th></tr></thead>
    <tbody>{{range .StockAlerts}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{remaining .}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func HTML(w io.Writer, d Dashboard) error {
	var buf bytes.Buffer
	if err := dashboardHTMLTmpl.Execute(&buf, d); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

const xlsxSheet = "Cierre"

// XLSX writes a workbook with a summary sheet.
func XLSX(w io.Writer, d Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Fecha", d.Date},
		{"Ventas", d.SaleCount},
		{"Total vendido", d.TodayTotal},
		{"Base", d.Base},
		{"Egresos", d.Expenses},
		{"Total en caja", d.CashOnHand},
		{"Efectivo", d.Payments.Cash},
		{"Nequi", d.Payments.WalletA},
		{"Daviplata", d.Payments.WalletB},
		{"Meta", d.Goal.Target},
		{"Avance %", d.Goal.Percent},
		{},
		{"Producto", "Cantidad"},
	}
	for _, p := range d.TopProducts {
		rows = append(rows, []any{p.Name, p.Quantity})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// remaining is the stock shown to operators, never below zero.
func remaining(p domain.Product) int64 {
	n, _ := p.Remaining()
	return n
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// money formats whole pesos with dot thousands separators.
func money(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	if neg {
		return fmt.Sprintf("-$%s", out)
	}
	return fmt.Sprintf("$%s", out)
}
