package printlog

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
	"github.com/printdeck/printdeck/internal/store"
)

// Module exposes the print log over the HTTP API.
type Module struct {
	store   plugin.Store
	service *Service
	logger  *zap.Logger
}

// New creates the print log module.
func New(st plugin.Store) *Module {
	return &Module{store: st}
}

func (m *Module) Name() string    { return "printlog" }
func (m *Module) Version() string { return "1.0.0" }

func (m *Module) Init(_ *viper.Viper, logger *zap.Logger) error {
	m.logger = logger

	bucket, err := store.NewBucket(context.Background(), m.store, "print_log", logger)
	if err != nil {
		return err
	}
	svc, err := NewService(context.Background(), bucket, logger)
	if err != nil {
		return err
	}
	m.service = svc
	return nil
}

func (m *Module) Start(ctx context.Context) error { return nil }
func (m *Module) Stop() error                     { return nil }

// Service returns the log service for wiring into the transport layer.
func (m *Module) Service() *Service { return m.service }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/entries", Handler: m.handleList},
	}
}

// handleList returns the most recent print attempts, newest first.
// An optional limit query parameter slices the capped list further.
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.service.Recent(limit))
}
