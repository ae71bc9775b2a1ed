package render

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
	"github.com/printdeck/printdeck/internal/receipt"
	"github.com/printdeck/printdeck/internal/server"
	"github.com/printdeck/printdeck/pkg/models"
)

// Module exposes rendered-receipt printing. It is disabled by default
// because it needs a Chrome or Chromium install on the host.
type Module struct {
	logger *zap.Logger
	engine *Engine
}

var _ plugin.Plugin = (*Module)(nil)

func New() *Module { return &Module{} }

func (m *Module) Name() string    { return "render" }
func (m *Module) Version() string { return "1.0.0" }

func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	m.logger = logger

	renderer := &ChromeRenderer{}
	if config != nil {
		renderer.ExecPath = config.GetString("chrome_path")
		renderer.Settle = config.GetDuration("settle")
	}
	m.engine = NewEngine(renderer, logger)
	return nil
}

func (m *Module) Start(ctx context.Context) error { return nil }
func (m *Module) Stop() error                     { return nil }

// Engine exposes the rasterizer so dispatch can route raw printers
// through it.
func (m *Module) Engine() *Engine { return m.engine }

func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodPost, Path: "/preview", Handler: m.handlePreview},
	}
}

type previewRequest struct {
	Order        models.Order `json:"order"`
	BusinessName string       `json:"business_name"`
	PaperWidth   int          `json:"paper_width"`
}

// handlePreview renders the receipt for an order and returns the PNG,
// so the UI can show what will come out of the printer.
func (m *Module) handlePreview(w http.ResponseWriter, r *http.Request) {
	if m.engine == nil {
		server.InternalError(w, "rendering is not enabled", r.URL.Path)
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body: "+err.Error(), r.URL.Path)
		return
	}
	if req.PaperWidth == 0 {
		req.PaperWidth = 80
	}

	html := receipt.HTML(req.Order, req.BusinessName, req.PaperWidth)
	img, err := m.engine.renderer.Render(r.Context(), html)
	if err != nil {
		m.logger.Error("receipt preview failed", zap.Error(err))
		server.InternalError(w, "rendering failed: "+err.Error(), r.URL.Path)
		return
	}

	img = resizeToWidth(img, dotsForPaper(req.PaperWidth))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		server.InternalError(w, "encode preview: "+err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
