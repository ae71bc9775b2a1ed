package receipt

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/printdeck/printdeck/pkg/models"
)

// htmlReceipt is the printable fallback document. It prints itself on
// load; the hosting surface (a webview or headless browser) owns the
// actual print call.
var htmlReceipt = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"addOnLine": addOnLine,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: monospace; width: {{.WidthPx}}px; margin: 0; padding: 8px; }
h1 { font-size: 18px; text-align: center; margin: 0 0 4px; }
.meta { text-align: center; margin-bottom: 8px; }
.item { font-weight: bold; }
.sub { padding-left: 16px; }
hr { border: none; border-top: 1px dashed #000; }
.total { font-weight: bold; }
</style>
</head>
<body onload="window.print()">
<h1>{{.Header}}</h1>
<div class="meta">Order #{{.Order.OrderNumber}}<br>{{.Time}}</div>
<hr>
{{range .Order.Items}}<div class="item">{{.Quantity}}x {{.Name}}</div>
{{if .Size}}<div class="sub">Size: {{.Size}}</div>
{{end}}{{range .AddOns}}<div class="sub">{{addOnLine .}}</div>
{{end}}{{end}}<hr>
<div class="total">Total items: {{.Order.TotalItems}}</div>
</body>
</html>
`))

// HTML renders an order as a complete printable HTML document.
func HTML(order models.Order, businessName string, paperWidthMM int) string {
	widthPx := 384 // 58mm at 203dpi
	if paperWidthMM == 80 {
		widthPx = 576
	}
	var buf bytes.Buffer
	err := htmlReceipt.Execute(&buf, map[string]any{
		"Header":  headerName(businessName),
		"Order":   order,
		"Time":    order.Time().UTC().Format("15:04"),
		"WidthPx": widthPx,
	})
	if err != nil {
		// The template is static and the data is plain values; execution
		// cannot fail on well-formed input. Keep the generator total.
		return fmt.Sprintf("<html><body>Order #%d</body></html>", order.OrderNumber)
	}
	return buf.String()
}
