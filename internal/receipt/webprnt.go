package receipt

import (
	"fmt"
	"strings"

	"github.com/printdeck/printdeck/pkg/models"
)

// xmlEscape escapes text interpolated into WebPRNT markup. Product
// names come from merchant catalogs and do contain ampersands
// ("Fish & Chips"); unescaped they would make the job XML malformed.
var xmlEscape = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
).Replace

// WebPRNTFragment renders an order as a Star WebPRNT markup fragment.
// The transport wraps it in the <StarWebPrintData> envelope together
// with the trailing cut and print actions.
func WebPRNTFragment(order models.Order, businessName string, paperWidthMM int) string {
	var b strings.Builder
	width := lineWidth(paperWidthMM)

	b.WriteString(`<alignment position="center"/>`)
	b.WriteString(`<text emphasis="true" width="2" height="2">`)
	b.WriteString(xmlEscape(headerName(businessName)))
	b.WriteString("\n</text>")
	b.WriteString(`<text width="1" height="1">`)
	b.WriteString(fmt.Sprintf("Order #%d\n", order.OrderNumber))
	b.WriteString(order.Time().UTC().Format("15:04"))
	b.WriteString("\n</text>")
	b.WriteString(`<alignment position="left"/>`)

	b.WriteString("<text>")
	b.WriteString(strings.Repeat("-", width) + "\n")
	for _, item := range order.Items {
		b.WriteString(xmlEscape(fmt.Sprintf("%dx %s", item.Quantity, item.Name)) + "\n")
		if item.Size != "" {
			b.WriteString(xmlEscape(fmt.Sprintf("   Size: %s", item.Size)) + "\n")
		}
		for _, a := range item.AddOns {
			b.WriteString(xmlEscape("   "+addOnLine(a)) + "\n")
		}
	}
	b.WriteString(strings.Repeat("-", width) + "\n")
	b.WriteString("</text>")

	b.WriteString(`<text emphasis="true">`)
	b.WriteString(fmt.Sprintf("Total items: %d\n", order.TotalItems()))
	b.WriteString("</text>")
	b.WriteString(`<feed line="3"/>`)

	return b.String()
}
