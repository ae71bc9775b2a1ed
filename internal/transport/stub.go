package transport

import (
	"context"
	"fmt"

	"github.com/printdeck/printdeck/pkg/models"
)

// Compile-time interface guard.
var _ Sender = (*UnsupportedSender)(nil)

// UnsupportedSender covers connection types this platform has no
// engineered path for (USB, Bluetooth). It fails immediately with a
// clear message instead of silently degrading: the fast failure is the
// contract, not a missing feature.
type UnsupportedSender struct {
	Capability models.ConnectionType
}

// Send records nothing and fails without retries or network I/O.
func (s *UnsupportedSender) Send(_ context.Context, printer models.Printer, _ Job) error {
	return &PrintError{
		PrinterName: printer.Name,
		Address:     printer.Address(),
		Message: fmt.Sprintf("%s printing is not supported on this platform (printer %q)",
			s.Capability, printer.Name),
	}
}
