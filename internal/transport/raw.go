package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/printdeck/printdeck/pkg/models"
)

// Compile-time interface guard.
var _ Sender = (*RawSender)(nil)

// RawSender delivers ESC/POS byte streams to port-9100 style printers
// speaking HTTP. The payload goes as-is in an octet-stream POST.
type RawSender struct {
	cfg    Config
	client *http.Client
	rec    Recorder
	logger *zap.Logger
}

// NewRawSender creates a raw ESC/POS sender.
func NewRawSender(cfg Config, rec Recorder, logger *zap.Logger) *RawSender {
	return &RawSender{
		cfg:    cfg.withDefaults(),
		client: newHTTPClient(),
		rec:    rec,
		logger: logger,
	}
}

// Send delivers the job, retrying up to the configured budget.
func (s *RawSender) Send(ctx context.Context, printer models.Printer, job Job) error {
	url := fmt.Sprintf("http://%s/", printer.Address())

	return deliver(ctx, s.cfg, printer, job, s.rec, s.logger, func(attemptCtx context.Context) attemptResult {
		res := attemptResult{request: truncate(fmt.Sprintf("POST %s (%d bytes ESC/POS)", url, len(job.Payload)))}

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(job.Payload))
		if err != nil {
			res.failure = &PrintError{
				PrinterName: printer.Name,
				Address:     printer.Address(),
				Message:     humanizeConnect(printer.Address()),
			}
			return res
		}
		req.Header.Set("Content-Type", "application/octet-stream")

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

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		res.response = truncate(string(body))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			res.failure = &PrintError{
				PrinterName: printer.Name,
				Address:     printer.Address(),
				Message: fmt.Sprintf("printer at %s rejected the job with HTTP %d",
					printer.Address(), resp.StatusCode),
			}
		}
		return res
	})
}
