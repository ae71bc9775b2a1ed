package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
	"github.com/printdeck/printdeck/internal/server"
)

// Module exposes the discovery scanner over HTTP and runs the passive
// mDNS listener in the background.
type Module struct {
	bus    plugin.EventBus
	logger *zap.Logger

	scanner  *Scanner
	mdns     *MDNSListener
	mdnsOn   bool
	bgCtx    context.Context
	cancelBg context.CancelFunc
}

var _ plugin.Plugin = (*Module)(nil)

// New wires the discovery plugin against the shared event bus.
func New(bus plugin.EventBus) *Module {
	return &Module{bus: bus}
}

func (m *Module) Name() string    { return "discovery" }
func (m *Module) Version() string { return "1.0.0" }

// Init builds the scanner from the plugin's configuration subtree.
func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger

	cfg := ScanConfig{}
	if config != nil {
		cfg.ProbeTimeout = config.GetDuration("probe_timeout")
		cfg.BatchSize = config.GetInt("batch_size")
		cfg.ProbesPerSecond = config.GetInt("probes_per_second")
	}

	m.scanner = NewScanner(cfg, InterfaceNetworkInfo{}, m.bus, logger)
	m.scanner.Pinger = &ICMPPinger{}
	if config == nil || config.GetBool("snmp") {
		m.scanner.Namer = &SNMPNamer{Logger: logger}
	}

	m.mdnsOn = config == nil || config.GetBool("mdns")
	if m.mdnsOn {
		m.mdns = NewMDNSListener(m.scanner, logger, 5*time.Minute)
	}
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	// Scans and the mDNS listener outlive the request that starts them,
	// so they run on the module's own context.
	m.bgCtx, m.cancelBg = context.WithCancel(context.Background())
	if m.mdnsOn {
		go m.mdns.Run(m.bgCtx)
	}
	return nil
}

func (m *Module) Stop() error {
	if m.cancelBg != nil {
		m.cancelBg()
	}
	if m.scanner != nil {
		m.scanner.Stop()
	}
	return nil
}

// Scanner exposes the underlying scanner to other modules.
func (m *Module) Scanner() *Scanner { return m.scanner }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodPost, Path: "/scan", Handler: m.handleStartScan},
		{Method: http.MethodDelete, Path: "/scan", Handler: m.handleStopScan},
		{Method: http.MethodGet, Path: "/scan/status", Handler: m.handleStatus},
		{Method: http.MethodGet, Path: "/scan/results", Handler: m.handleResults},
		{Method: http.MethodGet, Path: "/scan/log", Handler: m.handleLog},
		{Method: http.MethodGet, Path: "/scan/ws", Handler: m.handleProgressWS},
	}
}

func (m *Module) handleStartScan(w http.ResponseWriter, r *http.Request) {
	ctx := m.bgCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := m.scanner.Start(ctx); err != nil {
		if errors.Is(err, ErrScanInProgress) {
			server.Conflict(w, err.Error(), r.URL.Path)
			return
		}
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "scanning"})
}

func (m *Module) handleStopScan(w http.ResponseWriter, r *http.Request) {
	m.scanner.Stop()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "stopping"})
}

func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"scanning": m.scanner.Scanning(),
		"progress": m.scanner.Progress(),
		"found":    len(m.scanner.Results()),
	})
}

func (m *Module) handleResults(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.scanner.Results())
}

func (m *Module) handleLog(w http.ResponseWriter, r *http.Request) {
	lines := m.scanner.Transcript()
	if raw := r.URL.Query().Get("tail"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < len(lines) {
			lines = lines[len(lines)-n:]
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lines)
}

// handleProgressWS streams progress snapshots to the UI while a scan is
// running, then closes.
func (m *Module) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		m.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	ctx := r.Context()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		snapshot := map[string]any{
			"scanning": m.scanner.Scanning(),
			"progress": m.scanner.Progress(),
			"found":    len(m.scanner.Results()),
		}
		if err := wsjson.Write(ctx, conn, snapshot); err != nil {
			return
		}
		if !m.scanner.Scanning() {
			conn.Close(websocket.StatusNormalClosure, "scan finished")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
