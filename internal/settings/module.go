package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
	"github.com/printdeck/printdeck/internal/server"
)

// Module exposes settings over HTTP and serves as the business-name
// source for receipt headers.
type Module struct {
	store  plugin.Store
	logger *zap.Logger

	repo        Repository
	defaultName string
}

var _ plugin.Plugin = (*Module)(nil)

// New wires the settings plugin against the shared store. The fallback
// business name comes from static configuration and applies until an
// operator saves one.
func New(store plugin.Store, defaultName string) *Module {
	return &Module{store: store, defaultName: defaultName}
}

func (m *Module) Name() string    { return "settings" }
func (m *Module) Version() string { return "1.0.0" }

func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger
	repo, err := NewSQLiteRepository(context.Background(), m.store)
	if err != nil {
		return err
	}
	m.repo = repo
	return nil
}

func (m *Module) Start(ctx context.Context) error { return nil }
func (m *Module) Stop() error                     { return nil }

// StoreName returns the saved business name, or the configured default
// when none has been saved. An empty result means receipts fall back to
// their generic header.
func (m *Module) StoreName() string {
	s, err := m.repo.Get(context.Background(), KeyStoreName)
	if err != nil {
		return m.defaultName
	}
	return s.Value
}

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodGet, Path: "", Handler: m.handleList},
		{Method: http.MethodGet, Path: "/{key}", Handler: m.handleGet},
		{Method: http.MethodPut, Path: "/{key}", Handler: m.handleSet},
		{Method: http.MethodDelete, Path: "/{key}", Handler: m.handleDelete},
	}
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	settings, err := m.repo.GetAll(r.Context())
	if err != nil {
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	if settings == nil {
		settings = []Setting{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	s, err := m.repo.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "no setting named "+key, r.URL.Path)
			return
		}
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

type setRequest struct {
	Value string `json:"value"`
}

func (m *Module) handleSet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body: "+err.Error(), r.URL.Path)
		return
	}
	if err := m.repo.Set(r.Context(), key, req.Value); err != nil {
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	m.logger.Info("setting updated", zap.String("key", key))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"key": key, "value": req.Value})
}

func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := m.repo.Delete(r.Context(), key); err != nil {
		if errors.Is(err, ErrNotFound) {
			server.NotFound(w, "no setting named "+key, r.URL.Path)
			return
		}
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
