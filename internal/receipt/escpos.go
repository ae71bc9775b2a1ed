// Package receipt turns an Order into protocol-specific print payloads.
// All generators are pure: the same order and business name always
// produce byte-identical output. The only timestamp used is the order's
// own, formatted as 24-hour HH:MM.
package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/printdeck/printdeck/pkg/models"
)

// ESC/POS command sequences. See the Epson ESC/POS reference; these are
// the subset thermal receipt printers universally support.
var (
	cmdInit        = []byte{0x1B, 0x40}       // ESC @  -- initialize
	cmdAlignCenter = []byte{0x1B, 0x61, 0x01} // ESC a 1
	cmdAlignLeft   = []byte{0x1B, 0x61, 0x00} // ESC a 0
	cmdDoubleSize  = []byte{0x1D, 0x21, 0x11} // GS ! 0x11 -- double width+height
	cmdNormalSize  = []byte{0x1D, 0x21, 0x00} // GS ! 0x00
	cmdBoldOn      = []byte{0x1B, 0x45, 0x01} // ESC E 1
	cmdBoldOff     = []byte{0x1B, 0x45, 0x00} // ESC E 0
	cmdCut         = []byte{0x1D, 0x56, 0x00} // GS V 0 -- full cut
)

// lineWidth returns the printable character count for a paper width in
// millimeters (standard font, 12x24 dots).
func lineWidth(paperWidthMM int) int {
	if paperWidthMM == 58 {
		return 32
	}
	return 48
}

// fallbackName is printed when no business name is configured.
const fallbackName = "Restaurant"

// headerName returns the receipt header line.
func headerName(businessName string) string {
	if strings.TrimSpace(businessName) == "" {
		return fallbackName
	}
	return businessName
}

// ESCPOS renders an order as a raw ESC/POS command stream for network
// thermal printers.
func ESCPOS(order models.Order, businessName string, paperWidthMM int) []byte {
	var buf bytes.Buffer
	width := lineWidth(paperWidthMM)

	buf.Write(cmdInit)

	// Header: business name, centered, double size.
	buf.Write(cmdAlignCenter)
	buf.Write(cmdDoubleSize)
	buf.WriteString(headerName(businessName) + "\n")
	buf.Write(cmdNormalSize)
	buf.WriteString(fmt.Sprintf("Order #%d\n", order.OrderNumber))
	buf.WriteString(order.Time().UTC().Format("15:04") + "\n")
	buf.Write(cmdAlignLeft)
	buf.WriteString(strings.Repeat("-", width) + "\n")

	for _, item := range order.Items {
		buf.Write(cmdBoldOn)
		buf.WriteString(fmt.Sprintf("%dx %s\n", item.Quantity, item.Name))
		buf.Write(cmdBoldOff)
		if item.Size != "" {
			buf.WriteString(fmt.Sprintf("   Size: %s\n", item.Size))
		}
		for _, a := range item.AddOns {
			buf.WriteString("   " + addOnLine(a) + "\n")
		}
	}

	buf.WriteString(strings.Repeat("-", width) + "\n")
	buf.Write(cmdBoldOn)
	buf.WriteString(fmt.Sprintf("Total items: %d\n", order.TotalItems()))
	buf.Write(cmdBoldOff)

	buf.WriteString("\n\n\n")
	buf.Write(cmdCut)

	return buf.Bytes()
}

// addOnLine formats one add-on for the plain-text protocols. The
// category name is prefixed in brackets when present; remove-type
// add-ons read as "No <name>".
func addOnLine(a models.AddOn) string {
	name := a.Name
	if a.Type == models.AddOnRemove {
		name = "No " + name
	}
	line := fmt.Sprintf("%dx %s", a.EffectiveQuantity(), name)
	if a.CategoryName != "" {
		line = fmt.Sprintf("[%s] %s", a.CategoryName, line)
	}
	return line
}
