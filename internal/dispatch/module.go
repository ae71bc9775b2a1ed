package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
	"github.com/printdeck/printdeck/internal/server"
	"github.com/printdeck/printdeck/internal/transport"
	"github.com/printdeck/printdeck/pkg/models"
)

// Module exposes print dispatch over HTTP.
type Module struct {
	printers func() PrinterSource
	recorder func() transport.Recorder
	names    NameSource
	bus      plugin.EventBus
	logger   *zap.Logger

	orch *Orchestrator
}

var _ plugin.Plugin = (*Module)(nil)

// New wires the dispatch plugin against the printer registry, the print
// log recorder, and the settings-backed name source. The registry and
// recorder are resolved lazily because their services are built during
// plugin initialization, which runs in registration order.
func New(printers func() PrinterSource, recorder func() transport.Recorder, names NameSource, bus plugin.EventBus) *Module {
	return &Module{
		printers: printers,
		recorder: recorder,
		names:    names,
		bus:      bus,
	}
}

func (m *Module) Name() string    { return "dispatch" }
func (m *Module) Version() string { return "1.0.0" }

func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger

	cfg := transport.Config{}
	if config != nil {
		cfg.MaxRetries = config.GetInt("max_retries")
		cfg.Timeout = config.GetDuration("send_timeout")
		cfg.Backoff = config.GetDuration("retry_backoff")
	}

	recorder := m.recorder()
	senders := Senders{
		Raw:       transport.NewRawSender(cfg, recorder, logger),
		WebPRNT:   transport.NewWebPRNTSender(cfg, recorder, logger),
		USB:       &transport.UnsupportedSender{Capability: "USB"},
		Bluetooth: &transport.UnsupportedSender{Capability: "Bluetooth"},
	}
	m.orch = NewOrchestrator(m.printers(), m.names, senders, m.bus, logger)
	return nil
}

func (m *Module) Start(ctx context.Context) error { return nil }
func (m *Module) Stop() error                     { return nil }

// Orchestrator exposes the dispatcher so other modules can attach a
// rasterizer.
func (m *Module) Orchestrator() *Orchestrator { return m.orch }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodPost, Path: "/print", Handler: m.handlePrint},
	}
}

type printRequest struct {
	Order models.Order `json:"order"`
	Role  string       `json:"role"`
}

func (m *Module) handlePrint(w http.ResponseWriter, r *http.Request) {
	var req printRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body: "+err.Error(), r.URL.Path)
		return
	}
	if req.Order.OrderNumber <= 0 {
		server.BadRequest(w, "order_number must be positive", r.URL.Path)
		return
	}
	if len(req.Order.Items) == 0 {
		server.BadRequest(w, "order has no items", r.URL.Path)
		return
	}

	role := models.PrinterRole(req.Role)
	if req.Role == "" {
		role = models.RoleKitchen
	}
	switch role {
	case models.RoleKitchen, models.RoleBar, models.RoleCustomer:
	default:
		server.BadRequest(w, "unknown printer role "+req.Role, r.URL.Path)
		return
	}

	err := m.orch.Dispatch(r.Context(), req.Order, role)
	switch {
	case errors.Is(err, ErrNoPrinters):
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	case err != nil:
		server.BadGateway(w, err.Error(), r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":       "printed",
		"order_number": req.Order.OrderNumber,
	})
}
