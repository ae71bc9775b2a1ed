package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/pkg/models"
)

// mdnsPrinterServices are the Bonjour service types printers announce.
var mdnsPrinterServices = []string{
	"_ipp._tcp",
	"_printer._tcp",
	"_pdl-datastream._tcp",
}

// MDNSListener passively picks up printers that announce themselves over
// mDNS/Bonjour, feeding them into the scanner's result set without a
// full subnet sweep.
type MDNSListener struct {
	scanner  *Scanner
	logger   *zap.Logger
	interval time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMDNSListener creates a listener that queries printer service types
// on the given interval.
func NewMDNSListener(scanner *Scanner, logger *zap.Logger, interval time.Duration) *MDNSListener {
	return &MDNSListener{
		scanner:  scanner,
		logger:   logger,
		interval: interval,
		seen:     make(map[string]time.Time),
	}
}

// Run queries immediately, then on a ticker, until ctx is cancelled.
// The caller runs this in a goroutine.
func (l *MDNSListener) Run(ctx context.Context) {
	l.logger.Info("mDNS printer listener started", zap.Duration("interval", l.interval))

	l.queryAll(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("mDNS printer listener stopped")
			return
		case <-ticker.C:
			l.queryAll(ctx)
		}
	}
}

func (l *MDNSListener) queryAll(ctx context.Context) {
	for _, svc := range mdnsPrinterServices {
		if ctx.Err() != nil {
			return
		}
		l.queryService(ctx, svc)
	}
	l.expireSeen()
}

func (l *MDNSListener) queryService(ctx context.Context, service string) {
	entries := make(chan *mdns.ServiceEntry, 16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			l.processEntry(ctx, entry, service)
		}
	}()

	params := mdns.DefaultParams(service)
	params.Timeout = 3 * time.Second
	params.Entries = entries
	params.DisableIPv6 = true

	if err := mdns.Query(params); err != nil {
		l.logger.Debug("mDNS query failed",
			zap.String("service", service),
			zap.Error(err),
		)
	}
	close(entries)
	wg.Wait()
}

func (l *MDNSListener) processEntry(ctx context.Context, entry *mdns.ServiceEntry, service string) {
	if entry == nil {
		return
	}

	ip := extractIP(entry)
	if ip == "" || l.recentlySeen(ip) {
		return
	}
	l.markSeen(ip)

	name := strings.TrimSuffix(entry.Host, ".")
	if name == "" {
		name = entry.Name
	}

	found := models.DiscoveredPrinter{
		IP:   ip,
		Port: entry.Port,
		Type: typeForService(service),
		Name: name,
	}
	l.scanner.AddExternal(ctx, found)
}

// typeForService maps a Bonjour service type onto the printer type a
// promoted registry entry would use.
func typeForService(service string) string {
	switch service {
	case "_pdl-datastream._tcp":
		return "raw"
	case "_ipp._tcp":
		return "escpos"
	default:
		return "raw"
	}
}

func extractIP(entry *mdns.ServiceEntry) string {
	if entry.AddrV4 != nil && !entry.AddrV4.IsUnspecified() {
		return entry.AddrV4.String()
	}
	if entry.Addr != nil && !entry.Addr.IsUnspecified() {
		return entry.Addr.String()
	}
	return ""
}

func (l *MDNSListener) recentlySeen(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.seen[ip]
	return ok && time.Since(last) < l.interval
}

func (l *MDNSListener) markSeen(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[ip] = time.Now()
}

// expireSeen drops entries older than two intervals so a printer that
// changes address is picked up again.
func (l *MDNSListener) expireSeen() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-2 * l.interval)
	for ip, last := range l.seen {
		if last.Before(cutoff) {
			delete(l.seen, ip)
		}
	}
}
