package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/printdeck/printdeck/pkg/models"
)

// Compile-time interface guard.
var _ Sender = (*WebPRNTSender)(nil)

// WebPRNT job envelope. The fragment is generated by the receipt
// package; the envelope adds the trailing cut and print actions.
const (
	webprntPath     = "/StarWebPRNT/SendMessage"
	webprntPrologue = `<?xml version="1.0" encoding="UTF-8"?><StarWebPrintData>`
	webprntEpilogue = `<cutpaper type="feed"/><action type="print"/></StarWebPrintData>`
)

// WebPRNTSender delivers markup jobs to Star WebPRNT printers. A 2xx
// response can still carry printer health signals (paper out, offline,
// cover open); those override transport success.
type WebPRNTSender struct {
	cfg    Config
	client *http.Client
	rec    Recorder
	logger *zap.Logger
}

// NewWebPRNTSender creates a WebPRNT sender.
func NewWebPRNTSender(cfg Config, rec Recorder, logger *zap.Logger) *WebPRNTSender {
	return &WebPRNTSender{
		cfg:    cfg.withDefaults(),
		client: newHTTPClient(),
		rec:    rec,
		logger: logger,
	}
}

// Send delivers the job, retrying up to the configured budget.
func (s *WebPRNTSender) Send(ctx context.Context, printer models.Printer, job Job) error {
	url := fmt.Sprintf("http://%s%s", printer.Address(), webprntPath)
	body := webprntPrologue + string(job.Payload) + webprntEpilogue

	return deliver(ctx, s.cfg, printer, job, s.rec, s.logger, func(attemptCtx context.Context) attemptResult {
		res := attemptResult{request: truncate(body)}

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, strings.NewReader(body))
		if err != nil {
			res.failure = &PrintError{
				PrinterName: printer.Name,
				Address:     printer.Address(),
				Message:     humanizeConnect(printer.Address()),
			}
			return res
		}
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")

		resp, err := s.client.Do(req)
		if err != nil {
			res.failure = &PrintError{
				PrinterName: printer.Name,
				Address:     printer.Address(),
				Message:     classifyTransportError(err, printer.Address(), s.cfg.Timeout),
			}
			return res
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		res.response = truncate(string(respBody))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			res.failure = &PrintError{
				PrinterName: printer.Name,
				Address:     printer.Address(),
				Message: fmt.Sprintf("printer at %s rejected the job with HTTP %d",
					printer.Address(), resp.StatusCode),
			}
			return res
		}

		if msg := healthSignal(string(respBody), printer.Address()); msg != "" {
			res.failure = &PrintError{
				PrinterName: printer.Name,
				Address:     printer.Address(),
				Message:     msg,
			}
		}
		return res
	})
}

// healthSignal inspects a WebPRNT response body for printer-reported
// failure conditions. The HTTP layer reports success for these, so each
// gets its own specific message.
func healthSignal(body, addr string) string {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, `"paperempty":true`) || strings.Contains(lower, `"paperend":true`):
		return fmt.Sprintf("printer at %s is out of paper", addr)
	case strings.Contains(lower, `"online":false`) || strings.Contains(lower, `"offline":true`):
		return fmt.Sprintf("printer at %s is offline", addr)
	case strings.Contains(lower, `"coveropen":true`):
		return fmt.Sprintf("printer at %s has its cover open", addr)
	}
	return ""
}
