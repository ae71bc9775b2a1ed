package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/receipt"
	"github.com/printdeck/printdeck/pkg/models"
)

// pageRenderer turns an HTML document into a screenshot. Split out so
// raster tests can run without a browser.
type pageRenderer interface {
	Render(ctx context.Context, html string) (image.Image, error)
}

// ChromeRenderer renders HTML with a headless Chrome instance.
type ChromeRenderer struct {
	// ExecPath overrides browser autodetection when set.
	ExecPath string
	// Settle is how long to wait for layout after navigation.
	Settle time.Duration
}

var _ pageRenderer = (*ChromeRenderer)(nil)

// Render loads html via a data URL and captures a full-page screenshot.
func (r *ChromeRenderer) Render(ctx context.Context, html string) (image.Image, error) {
	settle := r.Settle
	if settle <= 0 {
		settle = 300 * time.Millisecond
	}

	var cdpCtx context.Context
	var cancel context.CancelFunc
	if r.ExecPath != "" {
		opts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath(r.ExecPath),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-gpu", true),
		)
		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
		defer allocCancel()
		cdpCtx, cancel = chromedp.NewContext(allocCtx)
	} else {
		cdpCtx, cancel = chromedp.NewContext(ctx)
	}
	defer cancel()

	var pngBytes []byte
	err := chromedp.Run(cdpCtx,
		chromedp.Navigate("data:text/html,"+dataURLEncode(html)),
		chromedp.Sleep(settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithCaptureBeyondViewport(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pngBytes = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render receipt page: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

func dataURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Engine produces printer-ready raster payloads from orders.
type Engine struct {
	renderer pageRenderer
	logger   *zap.Logger
}

// NewEngine builds an engine around the given renderer.
func NewEngine(renderer pageRenderer, logger *zap.Logger) *Engine {
	return &Engine{renderer: renderer, logger: logger}
}

// Raster renders the HTML receipt for order and converts it to a
// complete raster print job sized for the paper width.
func (e *Engine) Raster(ctx context.Context, order models.Order, businessName string, paperWidthMM int) ([]byte, error) {
	html := receipt.HTML(order, businessName, paperWidthMM)

	img, err := e.renderer.Render(ctx, html)
	if err != nil {
		return nil, err
	}

	img = resizeToWidth(img, dotsForPaper(paperWidthMM))
	job := buildJob(rasterize(img))

	e.logger.Debug("receipt rendered",
		zap.Int("order_number", order.OrderNumber),
		zap.Int("paper_width_mm", paperWidthMM),
		zap.Int("job_bytes", len(job)))
	return job, nil
}
