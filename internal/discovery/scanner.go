package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/printdeck/printdeck/internal/plugin"
	"github.com/printdeck/printdeck/pkg/models"
)

// ErrScanInProgress is returned when a scan is requested while another
// one is still running. Only one sweep runs at a time.
var ErrScanInProgress = errors.New("a discovery scan is already running")

const hostsPerSubnet = 254

// TopicPrinterFound is published for every device a scan discovers.
const TopicPrinterFound = "discovery.printer_found"

// Namer resolves a human-readable device name for an IP, typically over
// SNMP. A nil Namer disables enrichment.
type Namer interface {
	Lookup(ctx context.Context, ip string) string
}

// Pinger checks basic reachability of a host, used only to annotate the
// scan transcript with gateway liveness.
type Pinger interface {
	Reachable(ctx context.Context, host string) bool
}

// ScanConfig tunes the sweep.
type ScanConfig struct {
	BatchSize       int
	ProbeTimeout    time.Duration
	ProbesPerSecond int
}

func (c ScanConfig) withDefaults() ScanConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 1500 * time.Millisecond
	}
	if c.ProbesPerSecond <= 0 {
		c.ProbesPerSecond = 100
	}
	return c
}

type probeFunc func(ctx context.Context, ip string) (models.DiscoveredPrinter, bool)

// Scanner sweeps local subnets for print services. Results accumulate
// incrementally so clients can poll mid-scan; they are replaced when
// the next scan starts.
type Scanner struct {
	cfg    ScanConfig
	info   NetworkInfo
	bus    plugin.EventBus
	logger *zap.Logger
	probe  probeFunc

	// Namer and Pinger are optional and must be set before Start.
	Namer  Namer
	Pinger Pinger

	transcript *Transcript

	mu            sync.Mutex
	scanning      bool
	stopRequested bool
	progress      models.ScanProgress
	results       []models.DiscoveredPrinter
}

// NewScanner builds a scanner around the default HTTP prober.
func NewScanner(cfg ScanConfig, info NetworkInfo, bus plugin.EventBus, logger *zap.Logger) *Scanner {
	cfg = cfg.withDefaults()
	return &Scanner{
		cfg:        cfg,
		info:       info,
		bus:        bus,
		logger:     logger,
		probe:      NewProber(cfg.ProbeTimeout).Probe,
		transcript: &Transcript{},
	}
}

// Start launches a sweep in the background. It fails with
// ErrScanInProgress if one is already running.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return ErrScanInProgress
	}
	s.scanning = true
	s.stopRequested = false
	s.results = nil
	s.progress = models.ScanProgress{Message: "starting scan"}
	s.mu.Unlock()

	s.transcript.Reset()
	go s.run(ctx)
	return nil
}

// Stop requests that the running scan halt. The sweep checks the flag
// between batches, so in-flight probes finish first.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		s.stopRequested = true
	}
}

// Scanning reports whether a sweep is currently running.
func (s *Scanner) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Progress returns the current scan progress snapshot.
func (s *Scanner) Progress() models.ScanProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Results returns the printers found so far in the current or most
// recent scan.
func (s *Scanner) Results() []models.DiscoveredPrinter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DiscoveredPrinter, len(s.results))
	copy(out, s.results)
	return out
}

// Transcript returns the human-readable scan log.
func (s *Scanner) Transcript() []string {
	return s.transcript.Lines()
}

func (s *Scanner) run(ctx context.Context) {
	defer s.finish()
	scanActive.Set(1)
	defer scanActive.Set(0)

	subnets := subnetsFor(s.info)
	total := len(subnets) * hostsPerSubnet
	s.transcript.Append("scan started: sweeping %d subnet(s)", len(subnets))
	s.logger.Info("discovery scan started", zap.Strings("subnets", subnets))

	limiter := rate.NewLimiter(rate.Limit(s.cfg.ProbesPerSecond), s.cfg.BatchSize)
	scanned := 0

	for _, subnet := range subnets {
		s.transcript.Append("scanning %s.0/24", subnet)
		s.noteGateway(ctx, subnet)

		for base := 1; base <= hostsPerSubnet; base += s.cfg.BatchSize {
			if s.stopped() || ctx.Err() != nil {
				s.transcript.Append("scan stopped before completion")
				s.logger.Info("discovery scan stopped", zap.Int("hosts_scanned", scanned))
				return
			}

			end := min(base+s.cfg.BatchSize-1, hostsPerSubnet)
			g, gctx := errgroup.WithContext(ctx)
			for host := base; host <= end; host++ {
				ip := fmt.Sprintf("%s.%d", subnet, host)
				g.Go(func() error {
					if err := limiter.Wait(gctx); err != nil {
						return nil
					}
					probesTotal.Inc()
					found, ok := s.probe(gctx, ip)
					if ok {
						s.record(gctx, found)
					}
					return nil
				})
			}
			g.Wait()

			scanned += end - base + 1
			s.setProgress(scanned, total, fmt.Sprintf("%s.%d", subnet, end))
		}
	}

	results := s.Results()
	s.transcript.Append("scan complete: %d device(s) found across %d host(s)", len(results), total)
	if len(results) == 0 {
		s.transcript.Append("no printers found - check that printers are powered on")
		s.transcript.Append("printers must be on the same WiFi network as this device")
		s.transcript.Append("some printers need raw printing (port 9100) enabled in their settings")
	}
	s.logger.Info("discovery scan complete",
		zap.Int("hosts_scanned", scanned),
		zap.Int("found", len(results)))
}

// noteGateway annotates the transcript with a ping of the subnet's .1
// address, a cheap hint about whether the range is reachable at all.
func (s *Scanner) noteGateway(ctx context.Context, subnet string) {
	if s.Pinger == nil {
		return
	}
	gw := subnet + ".1"
	if s.Pinger.Reachable(ctx, gw) {
		s.transcript.Append("gateway %s answered ping", gw)
	} else {
		s.transcript.Append("gateway %s did not answer ping - subnet may be unreachable", gw)
	}
}

// record deduplicates by IP, enriches the entry with an SNMP name when
// available, stores it, and announces it on the bus.
func (s *Scanner) record(ctx context.Context, found models.DiscoveredPrinter) {
	if found.Name == "" && s.Namer != nil {
		found.Name = s.Namer.Lookup(ctx, found.IP)
	}

	s.mu.Lock()
	for _, existing := range s.results {
		if existing.IP == found.IP {
			s.mu.Unlock()
			return
		}
	}
	s.results = append(s.results, found)
	s.mu.Unlock()

	foundTotal.WithLabelValues(found.Type).Inc()
	s.transcript.Append("found %s printer at %s:%d", found.Type, found.IP, found.Port)
	s.logger.Info("printer discovered",
		zap.String("ip", found.IP),
		zap.Int("port", found.Port),
		zap.String("type", found.Type))

	if s.bus != nil {
		s.bus.PublishAsync(ctx, plugin.Event{
			Topic:     TopicPrinterFound,
			Source:    "discovery",
			Timestamp: time.Now(),
			Payload:   found,
		})
	}
}

// AddExternal inserts a result found outside the active sweep, such as
// an mDNS announcement. Duplicates by IP are ignored.
func (s *Scanner) AddExternal(ctx context.Context, found models.DiscoveredPrinter) {
	s.record(ctx, found)
}

func (s *Scanner) setProgress(current, total int, lastIP string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = models.ScanProgress{
		Current:   current,
		Total:     total,
		CurrentIP: lastIP,
		Message:   fmt.Sprintf("scanned %d of %d hosts", current, total),
	}
}

func (s *Scanner) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

func (s *Scanner) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = false
	s.stopRequested = false
	s.progress = models.ScanProgress{}
}
