// Package models defines the shared domain types used across printdeck
// modules and exposed through the HTTP API.
package models

import "fmt"

// ConnectionType identifies how a printer is attached.
type ConnectionType string

const (
	ConnectionNetwork   ConnectionType = "network"
	ConnectionUSB       ConnectionType = "usb"
	ConnectionBluetooth ConnectionType = "bluetooth"
)

// PrinterType selects the payload generator / transport pair used to
// talk to a printer.
type PrinterType string

const (
	PrinterTypeWebPRNT PrinterType = "webprnt"
	PrinterTypeRaw     PrinterType = "raw"
)

// PrinterRole is the order category a printer is responsible for.
type PrinterRole string

const (
	RoleKitchen  PrinterRole = "kitchen"
	RoleBar      PrinterRole = "bar"
	RoleCustomer PrinterRole = "customer"
)

// Default ports by printer type.
const (
	DefaultRawPort     = 9100
	DefaultWebPRNTPort = 8001
)

// Printer is a configured physical or virtual print target.
type Printer struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ConnectionType ConnectionType `json:"connection_type"`
	Role           PrinterRole    `json:"role"`
	IPAddress      string         `json:"ip_address,omitempty"`
	Port           int            `json:"port,omitempty"`
	PrinterType    PrinterType    `json:"printer_type"`
	PaperWidth     int            `json:"paper_width"` // millimeters: 58 or 80
	Enabled        bool           `json:"enabled"`
}

// EffectivePort returns the configured port, or the protocol default
// when no port is set.
func (p Printer) EffectivePort() int {
	if p.Port > 0 {
		return p.Port
	}
	if p.PrinterType == PrinterTypeWebPRNT {
		return DefaultWebPRNTPort
	}
	return DefaultRawPort
}

// Address returns the printer's ip:port endpoint string.
func (p Printer) Address() string {
	return fmt.Sprintf("%s:%d", p.IPAddress, p.EffectivePort())
}

// Validate checks the registry invariants for a printer entry.
func (p Printer) Validate() error {
	switch p.ConnectionType {
	case ConnectionNetwork, ConnectionUSB, ConnectionBluetooth:
	default:
		return fmt.Errorf("invalid connection type %q", p.ConnectionType)
	}
	if p.ConnectionType == ConnectionNetwork && p.IPAddress == "" {
		return fmt.Errorf("network printer %q has no IP address", p.Name)
	}
	switch p.Role {
	case RoleKitchen, RoleBar, RoleCustomer:
	default:
		return fmt.Errorf("invalid printer role %q", p.Role)
	}
	switch p.PrinterType {
	case PrinterTypeWebPRNT, PrinterTypeRaw:
	default:
		return fmt.Errorf("invalid printer type %q", p.PrinterType)
	}
	if p.PaperWidth != 58 && p.PaperWidth != 80 {
		return fmt.Errorf("paper width must be 58 or 80, got %d", p.PaperWidth)
	}
	return nil
}

// DiscoveredPrinter is an ephemeral scan result. It is not persisted;
// the operator promotes one into a registry Printer explicitly.
type DiscoveredPrinter struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
	Type string `json:"type"` // webprnt, raw, or escpos
	Name string `json:"name,omitempty"`
}

// ScanProgress is the UI-facing state of a running discovery sweep.
// It is overwritten continuously and cleared when scanning stops.
type ScanProgress struct {
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	CurrentIP string `json:"current_ip"`
	Message   string `json:"message"`
}
