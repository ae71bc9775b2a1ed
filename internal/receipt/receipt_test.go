package receipt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/printdeck/printdeck/pkg/models"
)

func sampleOrder() models.Order {
	return models.Order{
		OrderNumber: 1042,
		Timestamp:   1735725600000, // 2025-01-01 10:00:00 UTC
		Items: []models.OrderItem{
			{
				Name:     "Pad Thai",
				Quantity: 2,
				Size:     "Large",
				AddOns: []models.AddOn{
					{Name: "Extra Peanuts", Price: 1.5, Type: models.AddOnAdd, CategoryName: "Toppings"},
					{Name: "Cilantro", Type: models.AddOnRemove},
				},
			},
			{Name: "Green Curry", Quantity: 1},
		},
	}
}

func TestESCPOSDeterministic(t *testing.T) {
	order := sampleOrder()
	first := ESCPOS(order, "Thai Garden", 80)
	for i := 0; i < 5; i++ {
		if got := ESCPOS(order, "Thai Garden", 80); !bytes.Equal(got, first) {
			t.Fatalf("ESCPOS output differs between calls")
		}
	}
}

func TestESCPOSStructure(t *testing.T) {
	payload := ESCPOS(sampleOrder(), "Thai Garden", 80)

	if !bytes.HasPrefix(payload, []byte{0x1B, 0x40}) {
		t.Error("payload does not start with ESC @ init")
	}
	if !bytes.HasSuffix(payload, []byte{0x1D, 0x56, 0x00}) {
		t.Error("payload does not end with GS V 0 cut")
	}
	if !bytes.Contains(payload, []byte{0x1D, 0x21, 0x11}) {
		t.Error("payload missing double-size command for header")
	}
	for _, want := range []string{
		"Thai Garden",
		"Order #1042",
		"10:00",
		"2x Pad Thai",
		"Size: Large",
		"[Toppings] 1x Extra Peanuts",
		"1x No Cilantro",
		"1x Green Curry",
		"Total items: 3",
	} {
		if !bytes.Contains(payload, []byte(want)) {
			t.Errorf("payload missing %q", want)
		}
	}
}

func TestESCPOSFallbackHeader(t *testing.T) {
	payload := ESCPOS(sampleOrder(), "  ", 80)
	if !bytes.Contains(payload, []byte("Restaurant")) {
		t.Error("empty business name did not fall back to Restaurant")
	}
}

func TestESCPOSPaperWidth(t *testing.T) {
	narrow := ESCPOS(sampleOrder(), "Thai Garden", 58)
	wide := ESCPOS(sampleOrder(), "Thai Garden", 80)

	if !bytes.Contains(narrow, []byte(strings.Repeat("-", 32)+"\n")) {
		t.Error("58mm payload missing 32-char separator")
	}
	if !bytes.Contains(wide, []byte(strings.Repeat("-", 48)+"\n")) {
		t.Error("80mm payload missing 48-char separator")
	}
}

func TestWebPRNTDeterministic(t *testing.T) {
	order := sampleOrder()
	first := WebPRNTFragment(order, "Thai Garden", 80)
	for i := 0; i < 5; i++ {
		if got := WebPRNTFragment(order, "Thai Garden", 80); got != first {
			t.Fatalf("WebPRNT output differs between calls")
		}
	}
}

func TestWebPRNTEscapesMarkup(t *testing.T) {
	order := models.Order{
		OrderNumber: 7,
		Timestamp:   1735725600000,
		Items: []models.OrderItem{
			{Name: "Fish & Chips <battered>", Quantity: 1},
		},
	}
	frag := WebPRNTFragment(order, "Rock & Sole", 58)

	if strings.Contains(frag, "Fish & Chips <battered>") {
		t.Error("item name interpolated without escaping")
	}
	if !strings.Contains(frag, "Fish &amp; Chips &lt;battered&gt;") {
		t.Errorf("escaped item name missing from fragment:\n%s", frag)
	}
	if !strings.Contains(frag, "Rock &amp; Sole") {
		t.Error("business name not escaped")
	}
}

func TestWebPRNTContent(t *testing.T) {
	frag := WebPRNTFragment(sampleOrder(), "Thai Garden", 80)

	for _, want := range []string{
		`<alignment position="center"/>`,
		"Order #1042",
		"10:00",
		"2x Pad Thai",
		"[Toppings] 1x Extra Peanuts",
		"Total items: 3",
		`<feed line="3"/>`,
	} {
		if !strings.Contains(frag, want) {
			t.Errorf("fragment missing %q", want)
		}
	}
	if strings.Contains(frag, "<StarWebPrintData>") {
		t.Error("fragment should not include the envelope; the transport wraps it")
	}
}

func TestHTMLDeterministic(t *testing.T) {
	order := sampleOrder()
	first := HTML(order, "Thai Garden", 58)
	for i := 0; i < 5; i++ {
		if got := HTML(order, "Thai Garden", 58); got != first {
			t.Fatalf("HTML output differs between calls")
		}
	}
}

func TestHTMLDocument(t *testing.T) {
	doc := HTML(sampleOrder(), "Thai Garden", 58)

	if !strings.HasPrefix(doc, "<!DOCTYPE html>") {
		t.Error("HTML output is not a full document")
	}
	if !strings.Contains(doc, "window.print()") {
		t.Error("HTML output missing print-on-load script")
	}
	if !strings.Contains(doc, "width: 384px") {
		t.Error("58mm paper should render at 384px")
	}
	for _, want := range []string{"Thai Garden", "Order #1042", "2x Pad Thai", "Total items: 3"} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
}
