package dispatch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/printdeck/printdeck/internal/testutil"
	"github.com/printdeck/printdeck/internal/transport"
	"github.com/printdeck/printdeck/pkg/models"
)

type stubPrinters []models.Printer

func (s stubPrinters) ListForRole(role models.PrinterRole) []models.Printer {
	var out []models.Printer
	for _, p := range s {
		if p.Enabled && p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

type stubNames string

func (s stubNames) StoreName() string { return string(s) }

// fakeSender records each delivery and optionally fails per printer.
type fakeSender struct {
	mu       sync.Mutex
	printers []models.Printer
	jobs     []transport.Job
	fail     func(p models.Printer) error
}

func (f *fakeSender) Send(_ context.Context, p models.Printer, job transport.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.printers = append(f.printers, p)
	f.jobs = append(f.jobs, job)
	if f.fail != nil {
		return f.fail(p)
	}
	return nil
}

func (f *fakeSender) sent() ([]models.Printer, []transport.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Printer(nil), f.printers...), append([]transport.Job(nil), f.jobs...)
}

func newOrchestrator(printers stubPrinters, senders Senders) (*Orchestrator, *testutil.MockBus) {
	bus := testutil.NewMockBus()
	return NewOrchestrator(printers, stubNames("Maria's Tacos"), senders, bus, testutil.Logger()), bus
}

func kitchenPrinter(name, ip string) models.Printer {
	return testutil.NewPrinter(
		testutil.WithName(name),
		testutil.WithRole(models.RoleKitchen),
		testutil.WithAddress(ip, 9100),
	)
}

func TestDispatchFailsFastWithNoPrinters(t *testing.T) {
	raw := &fakeSender{}
	orch, bus := newOrchestrator(nil, Senders{Raw: raw})

	err := orch.Dispatch(context.Background(), testutil.NewOrder(), models.RoleKitchen)
	if !errors.Is(err, ErrNoPrinters) {
		t.Fatalf("error = %v, want ErrNoPrinters", err)
	}

	if printers, _ := raw.sent(); len(printers) != 0 {
		t.Errorf("sender was called %d times before the no-printer check", len(printers))
	}
	if got := len(bus.Events()); got != 0 {
		t.Errorf("published %d events for a dispatch that never started", got)
	}
}

func TestDispatchFansOutToEveryPrinter(t *testing.T) {
	raw := &fakeSender{}
	orch, bus := newOrchestrator(stubPrinters{
		kitchenPrinter("Kitchen 1", "192.168.1.50"),
		kitchenPrinter("Kitchen 2", "192.168.1.51"),
		kitchenPrinter("Kitchen 3", "192.168.1.52"),
	}, Senders{Raw: raw})

	if err := orch.Dispatch(context.Background(), testutil.NewOrder(), models.RoleKitchen); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	printers, jobs := raw.sent()
	if len(printers) != 3 {
		t.Fatalf("delivered to %d printers, want 3", len(printers))
	}
	for _, job := range jobs {
		if !bytes.HasPrefix(job.Payload, []byte{0x1B, 0x40}) {
			t.Error("raw payload does not start with the printer init sequence")
		}
		if !bytes.Contains(job.Payload, []byte("Maria's Tacos")) {
			t.Error("raw payload missing the business name header")
		}
	}

	events := bus.Events()
	if len(events) != 1 || events[0].Topic != TopicPrintCompleted {
		t.Errorf("events = %+v, want one %s", events, TopicPrintCompleted)
	}
}

func TestDispatchPairsTransportWithPrinterType(t *testing.T) {
	raw := &fakeSender{}
	web := &fakeSender{}
	orch, _ := newOrchestrator(stubPrinters{
		kitchenPrinter("Raw", "192.168.1.50"),
		testutil.NewPrinter(
			testutil.WithName("Star"),
			testutil.WithRole(models.RoleKitchen),
			testutil.WithAddress("192.168.1.60", 8001),
			testutil.WithPrinterType(models.PrinterTypeWebPRNT),
		),
	}, Senders{Raw: raw, WebPRNT: web})

	if err := orch.Dispatch(context.Background(), testutil.NewOrder(), models.RoleKitchen); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if _, jobs := raw.sent(); len(jobs) != 1 {
		t.Errorf("raw sender got %d jobs, want 1", len(jobs))
	}
	_, webJobs := web.sent()
	if len(webJobs) != 1 {
		t.Fatalf("webprnt sender got %d jobs, want 1", len(webJobs))
	}
	if !strings.Contains(string(webJobs[0].Payload), "<text") {
		t.Error("webprnt payload is not markup")
	}
	if strings.Contains(string(webJobs[0].Payload), "<StarWebPrintData>") {
		t.Error("webprnt payload must not carry the envelope; the sender adds it")
	}
}

func TestDispatchPartialFailureStillSucceeds(t *testing.T) {
	raw := &fakeSender{fail: func(p models.Printer) error {
		if p.Name == "Broken" {
			return &transport.PrintError{PrinterName: p.Name, Address: p.Address(), Message: "down"}
		}
		return nil
	}}
	orch, bus := newOrchestrator(stubPrinters{
		kitchenPrinter("Broken", "192.168.1.50"),
		kitchenPrinter("Working", "192.168.1.51"),
	}, Senders{Raw: raw})

	if err := orch.Dispatch(context.Background(), testutil.NewOrder(), models.RoleKitchen); err != nil {
		t.Fatalf("partial failure should not fail dispatch, got %v", err)
	}

	events := bus.Events()
	if len(events) != 1 || events[0].Topic != TopicPrintCompleted {
		t.Errorf("events = %+v, want one %s", events, TopicPrintCompleted)
	}
}

func TestDispatchAllFailuresAggregate(t *testing.T) {
	raw := &fakeSender{fail: func(p models.Printer) error {
		return &transport.PrintError{PrinterName: p.Name, Address: p.Address(), Message: "cannot reach printer at " + p.Address()}
	}}
	orch, bus := newOrchestrator(stubPrinters{
		kitchenPrinter("Kitchen 1", "192.168.1.50"),
		kitchenPrinter("Kitchen 2", "192.168.1.51"),
	}, Senders{Raw: raw})

	err := orch.Dispatch(context.Background(), testutil.NewOrder(), models.RoleKitchen)
	if err == nil {
		t.Fatal("expected an error when every printer fails")
	}
	for _, name := range []string{"Kitchen 1", "Kitchen 2"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("aggregate error does not name %s: %v", name, err)
		}
	}

	events := bus.Events()
	if len(events) != 1 || events[0].Topic != TopicPrintFailed {
		t.Errorf("events = %+v, want one %s", events, TopicPrintFailed)
	}
}

func TestDispatchWaitsForAllSendsToSettle(t *testing.T) {
	// One printer is slow; Dispatch must not return until it finishes.
	done := make(chan struct{})
	raw := &fakeSender{fail: func(p models.Printer) error {
		if p.Name == "Slow" {
			<-done
		}
		return nil
	}}
	orch, _ := newOrchestrator(stubPrinters{
		kitchenPrinter("Slow", "192.168.1.50"),
		kitchenPrinter("Fast", "192.168.1.51"),
	}, Senders{Raw: raw})

	returned := make(chan error, 1)
	go func() {
		returned <- orch.Dispatch(context.Background(), testutil.NewOrder(), models.RoleKitchen)
	}()

	select {
	case err := <-returned:
		t.Fatalf("dispatch returned before all sends settled: %v", err)
	default:
	}
	close(done)
	if err := <-returned; err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if printers, _ := raw.sent(); len(printers) != 2 {
		t.Errorf("delivered to %d printers, want 2", len(printers))
	}
}

func TestDispatchRejectsUnsupportedConnections(t *testing.T) {
	orch, _ := newOrchestrator(stubPrinters{
		testutil.NewPrinter(
			testutil.WithName("USB Receipt"),
			testutil.WithRole(models.RoleKitchen),
			testutil.WithConnection(models.ConnectionUSB),
		),
	}, Senders{USB: &transport.UnsupportedSender{Capability: "USB"}})

	err := orch.Dispatch(context.Background(), testutil.NewOrder(), models.RoleKitchen)
	if err == nil || !strings.Contains(err.Error(), "USB printing is not supported") {
		t.Errorf("error = %v, want unsupported-capability message", err)
	}
}

type stubRasterizer struct {
	raster []byte
	err    error
}

func (s stubRasterizer) Raster(context.Context, models.Order, string, int) ([]byte, error) {
	return s.raster, s.err
}

func TestDispatchUsesRasterWhenAvailable(t *testing.T) {
	raw := &fakeSender{}
	orch, _ := newOrchestrator(stubPrinters{
		kitchenPrinter("Kitchen", "192.168.1.50"),
	}, Senders{Raw: raw})
	orch.Rasterizer = stubRasterizer{raster: []byte{0x1D, 0x76, 0x30, 0x00}}

	if err := orch.Dispatch(context.Background(), testutil.NewOrder(), models.RoleKitchen); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	_, jobs := raw.sent()
	if len(jobs) != 1 || !bytes.Equal(jobs[0].Payload, []byte{0x1D, 0x76, 0x30, 0x00}) {
		t.Errorf("payload = %v, want the rendered raster", jobs)
	}
}

func TestDispatchFallsBackToTextWhenRenderFails(t *testing.T) {
	raw := &fakeSender{}
	orch, _ := newOrchestrator(stubPrinters{
		kitchenPrinter("Kitchen", "192.168.1.50"),
	}, Senders{Raw: raw})
	orch.Rasterizer = stubRasterizer{err: errors.New("browser unavailable")}

	if err := orch.Dispatch(context.Background(), testutil.NewOrder(), models.RoleKitchen); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	_, jobs := raw.sent()
	if len(jobs) != 1 || !bytes.HasPrefix(jobs[0].Payload, []byte{0x1B, 0x40}) {
		t.Error("fallback payload is not a text receipt")
	}
}
