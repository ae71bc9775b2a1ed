package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
	"github.com/printdeck/printdeck/internal/server"
	"github.com/printdeck/printdeck/internal/store"
	"github.com/printdeck/printdeck/pkg/models"
)

// Module exposes printer CRUD over the HTTP API.
type Module struct {
	store   plugin.Store
	service *Service
	logger  *zap.Logger
}

// New creates the registry module.
func New(st plugin.Store) *Module {
	return &Module{store: st}
}

func (m *Module) Name() string    { return "printers" }
func (m *Module) Version() string { return "1.0.0" }

func (m *Module) Init(_ *viper.Viper, logger *zap.Logger) error {
	m.logger = logger

	bucket, err := store.NewBucket(context.Background(), m.store, "printers", logger)
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

// Service returns the registry service for wiring into dispatch.
func (m *Module) Service() *Service { return m.service }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: m.handleList},
		{Method: "POST", Path: "", Handler: m.handleAdd},
		{Method: "GET", Path: "/{id}", Handler: m.handleGet},
		{Method: "PUT", Path: "/{id}", Handler: m.handleUpdate},
		{Method: "DELETE", Path: "/{id}", Handler: m.handleDelete},
		{Method: "PATCH", Path: "/{id}/toggle", Handler: m.handleToggle},
		{Method: "POST", Path: "/import", Handler: m.handleImport},
	}
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.service.List())
}

// addRequest is the JSON body for POST /printers. Defaults are applied
// before validation so a minimal body works.
type addRequest struct {
	Name           string                `json:"name"`
	ConnectionType models.ConnectionType `json:"connection_type"`
	Role           models.PrinterRole    `json:"role"`
	IPAddress      string                `json:"ip_address"`
	Port           int                   `json:"port"`
	PrinterType    models.PrinterType    `json:"printer_type"`
	PaperWidth     int                   `json:"paper_width"`
	Enabled        *bool                 `json:"enabled"`
}

func (req *addRequest) toPrinter() models.Printer {
	p := models.Printer{
		Name:           req.Name,
		ConnectionType: req.ConnectionType,
		Role:           req.Role,
		IPAddress:      req.IPAddress,
		Port:           req.Port,
		PrinterType:    req.PrinterType,
		PaperWidth:     req.PaperWidth,
		Enabled:        true,
	}
	if p.ConnectionType == "" {
		p.ConnectionType = models.ConnectionNetwork
	}
	if p.Role == "" {
		p.Role = models.RoleKitchen
	}
	if p.PrinterType == "" {
		p.PrinterType = models.PrinterTypeRaw
	}
	if p.PaperWidth == 0 {
		p.PaperWidth = 80
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}
	return p
}

func (m *Module) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	added, err := m.service.Add(r.Context(), req.toPrinter())
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(added)
}

func (m *Module) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := m.service.Get(r.PathValue("id"))
	if err != nil {
		server.NotFound(w, "printer not found", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (m *Module) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	updated, err := m.service.Update(r.Context(), r.PathValue("id"), patch)
	switch {
	case errors.Is(err, ErrNotFound):
		server.NotFound(w, "printer not found", r.URL.Path)
		return
	case err != nil:
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := m.service.Delete(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, ErrNotFound):
		server.NotFound(w, "printer not found", r.URL.Path)
		return
	case err != nil:
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Module) handleToggle(w http.ResponseWriter, r *http.Request) {
	p, err := m.service.Toggle(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, ErrNotFound):
		server.NotFound(w, "printer not found", r.URL.Path)
		return
	case err != nil:
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// importRequest promotes a discovered printer into the registry.
// importRequest promotes a scan result into a registered printer. The
// ip/port/type/name fields mirror a DiscoveredPrinter so a scan result
// can be posted back as-is, with role and paper width filled in.
type importRequest struct {
	IP         string             `json:"ip"`
	Port       int                `json:"port"`
	Type       string             `json:"type"`
	Name       string             `json:"name"`
	Role       models.PrinterRole `json:"role"`
	PaperWidth int                `json:"paper_width"`
}

func (m *Module) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if req.IP == "" {
		server.BadRequest(w, "ip is required", r.URL.Path)
		return
	}

	printerType := models.PrinterTypeRaw
	if req.Type == "webprnt" {
		printerType = models.PrinterTypeWebPRNT
	}
	name := req.Name
	if name == "" {
		name = "Printer " + req.IP
	}
	role := req.Role
	if role == "" {
		role = models.RoleKitchen
	}
	paperWidth := req.PaperWidth
	if paperWidth == 0 {
		paperWidth = 80
	}

	added, err := m.service.Add(r.Context(), models.Printer{
		Name:           name,
		ConnectionType: models.ConnectionNetwork,
		Role:           role,
		IPAddress:      req.IP,
		Port:           req.Port,
		PrinterType:    printerType,
		PaperWidth:     paperWidth,
		Enabled:        true,
	})
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(added)
}
