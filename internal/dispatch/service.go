// Package dispatch fans a finalized order out to every enabled printer
// for a role, waits for all deliveries to settle, and reports aggregate
// failure only when no printer got the job.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
	"github.com/printdeck/printdeck/internal/receipt"
	"github.com/printdeck/printdeck/internal/transport"
	"github.com/printdeck/printdeck/pkg/models"
)

// ErrNoPrinters is returned when no enabled printer is configured for
// the requested role. It is detected before any payload is generated or
// any network I/O happens.
var ErrNoPrinters = errors.New("no enabled printers configured for this role")

// Event topics published by the orchestrator.
const (
	TopicPrintCompleted = "dispatch.print_completed"
	TopicPrintFailed    = "dispatch.print_failed"
)

// PrinterSource yields the delivery targets for a role. The printer
// registry implements it.
type PrinterSource interface {
	ListForRole(role models.PrinterRole) []models.Printer
}

// NameSource yields the business name shown on receipt headers. The
// settings module implements it.
type NameSource interface {
	StoreName() string
}

// Rasterizer converts an order into a printer-ready raster payload.
// When configured, raw printers receive the rendered image instead of
// plain text commands; render failures fall back to text.
type Rasterizer interface {
	Raster(ctx context.Context, order models.Order, businessName string, paperWidthMM int) ([]byte, error)
}

// Senders holds one transport per printer class.
type Senders struct {
	Raw       transport.Sender
	WebPRNT   transport.Sender
	USB       transport.Sender
	Bluetooth transport.Sender
}

// Orchestrator coordinates payload generation and delivery.
type Orchestrator struct {
	printers PrinterSource
	names    NameSource
	senders  Senders
	bus      plugin.EventBus
	logger   *zap.Logger

	// Rasterizer is optional; set before first Dispatch.
	Rasterizer Rasterizer
}

// NewOrchestrator wires the dispatcher.
func NewOrchestrator(printers PrinterSource, names NameSource, senders Senders, bus plugin.EventBus, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		printers: printers,
		names:    names,
		senders:  senders,
		bus:      bus,
		logger:   logger,
	}
}

// Dispatch sends order to every enabled printer for role. All sends run
// concurrently and every one settles before Dispatch returns. The
// returned error is nil when at least one printer accepted the job;
// partial failures are logged but do not fail the dispatch.
func (o *Orchestrator) Dispatch(ctx context.Context, order models.Order, role models.PrinterRole) error {
	targets := o.printers.ListForRole(role)
	if len(targets) == 0 {
		return fmt.Errorf("%w (role %q)", ErrNoPrinters, role)
	}

	businessName := ""
	if o.names != nil {
		businessName = o.names.StoreName()
	}

	o.logger.Info("dispatching order",
		zap.Int("order_number", order.OrderNumber),
		zap.String("role", string(role)),
		zap.Int("printers", len(targets)))

	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, printer := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = o.sendOne(ctx, printer, order, businessName)
		}()
	}
	wg.Wait()

	var failed []error
	for i, err := range errs {
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", targets[i].Name, err))
		}
	}

	succeeded := len(targets) - len(failed)
	o.publish(ctx, order, role, succeeded, len(failed))

	if succeeded == 0 {
		return fmt.Errorf("order #%d reached no printer: %w", order.OrderNumber, errors.Join(failed...))
	}
	if len(failed) > 0 {
		o.logger.Warn("order delivered partially",
			zap.Int("order_number", order.OrderNumber),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", len(failed)),
			zap.Errors("errors", failed))
	}
	return nil
}

// sendOne builds the payload for a single printer and delivers it.
func (o *Orchestrator) sendOne(ctx context.Context, printer models.Printer, order models.Order, businessName string) error {
	sender, payload := o.plan(ctx, printer, order, businessName)
	if sender == nil {
		return fmt.Errorf("printer %q has no usable transport", printer.Name)
	}
	return sender.Send(ctx, printer, transport.Job{
		OrderNumber: order.OrderNumber,
		Payload:     payload,
	})
}

// plan pairs the printer with its payload generator and transport.
func (o *Orchestrator) plan(ctx context.Context, printer models.Printer, order models.Order, businessName string) (transport.Sender, []byte) {
	switch printer.ConnectionType {
	case models.ConnectionUSB:
		return o.senders.USB, nil
	case models.ConnectionBluetooth:
		return o.senders.Bluetooth, nil
	}

	if printer.PrinterType == models.PrinterTypeWebPRNT {
		fragment := receipt.WebPRNTFragment(order, businessName, printer.PaperWidth)
		return o.senders.WebPRNT, []byte(fragment)
	}

	if o.Rasterizer != nil {
		raster, err := o.Rasterizer.Raster(ctx, order, businessName, printer.PaperWidth)
		if err == nil {
			return o.senders.Raw, raster
		}
		o.logger.Warn("raster render failed, falling back to text receipt",
			zap.String("printer", printer.Name),
			zap.Error(err))
	}
	return o.senders.Raw, receipt.ESCPOS(order, businessName, printer.PaperWidth)
}

func (o *Orchestrator) publish(ctx context.Context, order models.Order, role models.PrinterRole, succeeded, failed int) {
	if o.bus == nil {
		return
	}
	topic := TopicPrintCompleted
	if succeeded == 0 {
		topic = TopicPrintFailed
	}
	o.bus.PublishAsync(ctx, plugin.Event{
		Topic:     topic,
		Source:    "dispatch",
		Timestamp: time.Now(),
		Payload: map[string]any{
			"order_number": order.OrderNumber,
			"role":         string(role),
			"succeeded":    succeeded,
			"failed":       failed,
		},
	})
}
