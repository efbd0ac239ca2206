package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/novadent/novadent/internal/billing"
)

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"amount": func(price float64, qty int) string {
		return fmt.Sprintf("%.2f", price*float64(qty))
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice {{.Invoice.InvoiceNumber}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #222; }
h1 { font-size: 20px; margin-bottom: 0; }
.meta { color: #666; margin-bottom: 24px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; }
th { background: #f5f5f5; }
td.num, th.num { text-align: right; }
.totals { margin-top: 16px; width: 40%; margin-left: auto; }
.totals td { border: none; padding: 2px 8px; }
.status { text-transform: uppercase; letter-spacing: 1px; font-size: 12px; }
</style>
</head>
<body>
<h1>NovaDent Clinic</h1>
<p class="meta">
Invoice {{.Invoice.InvoiceNumber}} &middot; {{.Invoice.Date.Format "2 Jan 2006"}} &middot;
<span class="status">{{.Invoice.Status}}</span><br>
Patient: {{.Invoice.PatientName}}{{if .Invoice.DentistName}} &middot; Dentist: {{.Invoice.DentistName}}{{end}}
</p>
<table>
<tr><th>Treatment</th><th class="num">Qty</th><th class="num">Price</th><th class="num">Amount</th></tr>
{{range .Invoice.Treatments}}
<tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{printf "%.2f" .Price}}</td><td class="num">{{amount .Price .Quantity}}</td></tr>
{{end}}
</table>
<table class="totals">
<tr><td>Subtotal</td><td class="num">{{printf "%.2f" .Invoice.Subtotal}}</td></tr>
<tr><td>Discount</td><td class="num">{{printf "%.1f" .Invoice.DiscountPct}}%</td></tr>
<tr><td>Tax</td><td class="num">{{printf "%.1f" .Invoice.TaxPct}}%</td></tr>
<tr><td><strong>Total</strong></td><td class="num"><strong>{{printf "%.2f" .Invoice.Total}}</strong></td></tr>
<tr><td>Paid</td><td class="num">{{printf "%.2f" .Invoice.PaidAmount}}</td></tr>
<tr><td>Balance</td><td class="num">{{printf "%.2f" .Invoice.Remaining}}</td></tr>
</table>
{{if .Payments}}
<h3>Payments</h3>
<table>
<tr><th>Date</th><th>Method</th><th class="num">Amount</th></tr>
{{range .Payments}}
<tr><td>{{.PaidAt.Format "2 Jan 2006"}}</td><td>{{.Method}}</td><td class="num">{{printf "%.2f" .Amount}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>`))

// InvoiceRenderer renders invoices to PDF through Gotenberg. It satisfies
// the billing handler's PDF port.
type InvoiceRenderer struct {
	client *Client
}

// NewInvoiceRenderer constructs the renderer.
func NewInvoiceRenderer(client *Client) *InvoiceRenderer {
	return &InvoiceRenderer{client: client}
}

// RenderInvoice builds the invoice HTML and converts it.
func (r *InvoiceRenderer) RenderInvoice(ctx context.Context, inv billing.Invoice, payments []billing.Payment) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Invoice  billing.Invoice
		Payments []billing.Payment
	}{Invoice: inv, Payments: payments}
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("report: build invoice html: %w", err)
	}
	return r.client.RenderHTML(ctx, buf.String())
}
