package testutil

import (
	"github.com/google/uuid"

	"github.com/printdeck/printdeck/pkg/models"
)

// NewPrinter returns a network Printer with sensible defaults, suitable
// for test fixtures. Override individual fields via options.
func NewPrinter(opts ...func(*models.Printer)) models.Printer {
	p := models.Printer{
		ID:             uuid.New().String(),
		Name:           "Kitchen Printer",
		ConnectionType: models.ConnectionNetwork,
		Role:           models.RoleKitchen,
		IPAddress:      "192.168.1.50",
		PrinterType:    models.PrinterTypeRaw,
		PaperWidth:     80,
		Enabled:        true,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithName sets the printer display name.
func WithName(name string) func(*models.Printer) {
	return func(p *models.Printer) { p.Name = name }
}

// WithRole sets the printer role.
func WithRole(role models.PrinterRole) func(*models.Printer) {
	return func(p *models.Printer) { p.Role = role }
}

// WithAddress sets the printer IP and port.
func WithAddress(ip string, port int) func(*models.Printer) {
	return func(p *models.Printer) {
		p.IPAddress = ip
		p.Port = port
	}
}

// WithPrinterType sets the printer protocol type.
func WithPrinterType(pt models.PrinterType) func(*models.Printer) {
	return func(p *models.Printer) { p.PrinterType = pt }
}

// WithConnection sets the printer connection type.
func WithConnection(ct models.ConnectionType) func(*models.Printer) {
	return func(p *models.Printer) { p.ConnectionType = ct }
}

// WithEnabled sets the printer enabled flag.
func WithEnabled(enabled bool) func(*models.Printer) {
	return func(p *models.Printer) { p.Enabled = enabled }
}

// NewOrder returns a small two-item order with a fixed timestamp so
// generator output is stable across test runs.
func NewOrder() models.Order {
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
					{Name: "Cilantro", Price: 0, Type: models.AddOnRemove},
				},
			},
			{
				Name:     "Green Curry",
				Quantity: 1,
			},
		},
	}
}
