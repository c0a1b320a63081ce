package receipt

import (
	"bytes"
	"fmt"
	"html/template"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<html>
<head>
  <meta charset="utf-8">
  <style>
    body { font-family: Arial, sans-serif; padding: 20px; }
    h1 { color: {{.Color}}; text-align: center; }
    table { width: 100%; border-collapse: collapse; margin-top: 20px; }
    th, td { padding: 8px; border: 1px solid #ccc; }
    th { background-color: #f2f2f2; }
    .num { text-align: right; }
    .qty { text-align: center; }
    .total { text-align: right; margin-top: 20px; }
  </style>
</head>
<body>
  <h1>{{.Company}}</h1>
  <div>
    <p><strong>Order ID:</strong> {{.R.OrderID}}</p>
    <p><strong>Date:</strong> {{.Date}}</p>
    <p><strong>Customer:</strong> {{.R.CustomerName}} ({{.R.CustomerPhone}})</p>
    <p><strong>Payment Method:</strong> {{.R.PaymentMethod}}</p>
    <p><strong>Delivery Address:</strong> {{.R.DeliveryAddress}}</p>
  </div>
  <table>
    <thead>
      <tr>
        <th>#</th>
        <th>Item</th>
        <th>Qty</th>
        <th>Rate</th>
        <th>Total</th>
      </tr>
    </thead>
    <tbody>
{{- range .Rows}}
      <tr>
        <td>{{.Index}}</td>
        <td>{{.Name}}</td>
        <td class="qty">{{.Quantity}}</td>
        <td class="num">{{.Rate}}</td>
        <td class="num">{{.Total}}</td>
      </tr>
{{- end}}
    </tbody>
  </table>
  <h3 class="total">Total Amount: {{.Total}}</h3>
</body>
</html>
`))

type htmlRow struct {
	Index    int
	Name     string
	Quantity int
	Rate     string
	Total    string
}

// RenderHTML renders the shareable receipt document.
func RenderHTML(r Receipt, company, color string) (string, error) {
	rows := make([]htmlRow, len(r.Lines))
	for i, l := range r.Lines {
		rows[i] = htmlRow{
			Index:    i + 1,
			Name:     l.Name,
			Quantity: l.Quantity,
			Rate:     r.money(l.UnitPrice),
			Total:    r.money(l.Total),
		}
	}

	var buf bytes.Buffer
	err := receiptTemplate.Execute(&buf, struct {
		Company string
		Color   string
		Date    string
		R       Receipt
		Rows    []htmlRow
		Total   string
	}{
		Company: company,
		Color:   color,
		Date:    r.OrderTime.Format(receiptTimestamp),
		R:       r,
		Rows:    rows,
		Total:   r.money(r.Total),
	})
	if err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}
