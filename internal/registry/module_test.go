package registry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/printdeck/printdeck/internal/testutil"
	"github.com/printdeck/printdeck/pkg/models"
)

func newModule(t *testing.T) *Module {
	t.Helper()
	m := New(testutil.NewStore(t))
	if err := m.Init(nil, testutil.Logger()); err != nil {
		t.Fatalf("init module: %v", err)
	}
	return m
}

func postImport(t *testing.T, m *Module, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/printers/import", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	m.handleImport(rec, req)
	return rec
}

func TestImportKeepsDiscoveredName(t *testing.T) {
	m := newModule(t)

	// A scan result posted back exactly as the scanner reported it.
	rec := postImport(t, m, models.DiscoveredPrinter{
		IP:   "192.168.1.77",
		Port: 8001,
		Type: "webprnt",
		Name: "Star TSP100",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	printers := m.service.List()
	if len(printers) != 1 {
		t.Fatalf("got %d printers, want 1", len(printers))
	}
	p := printers[0]
	if p.Name != "Star TSP100" {
		t.Errorf("name = %q, want the discovered name", p.Name)
	}
	if p.PrinterType != models.PrinterTypeWebPRNT {
		t.Errorf("printer type = %q, want webprnt", p.PrinterType)
	}
	if p.IPAddress != "192.168.1.77" || p.Port != 8001 {
		t.Errorf("address = %s:%d, want 192.168.1.77:8001", p.IPAddress, p.Port)
	}
	if p.Role != models.RoleKitchen || p.PaperWidth != 80 || !p.Enabled {
		t.Errorf("defaults not applied: %+v", p)
	}
}

func TestImportNamelessResultGetsFallbackName(t *testing.T) {
	m := newModule(t)

	rec := postImport(t, m, models.DiscoveredPrinter{
		IP:   "192.168.1.80",
		Port: 9100,
		Type: "raw",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	printers := m.service.List()
	if len(printers) != 1 {
		t.Fatalf("got %d printers, want 1", len(printers))
	}
	if got := printers[0].Name; got != "Printer 192.168.1.80" {
		t.Errorf("name = %q, want the ip-based fallback", got)
	}
}

func TestImportRequiresIP(t *testing.T) {
	m := newModule(t)

	rec := postImport(t, m, map[string]string{"name": "Nowhere"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
