package transport

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/printdeck/printdeck/pkg/models"
)

// attemptResult is what one HTTP attempt produced. failure is non-nil
// on any failed attempt; request/response carry truncated snippets for
// the log regardless of outcome.
type attemptResult struct {
	failure  *PrintError
	request  string
	response string
}

// attemptFunc performs a single delivery attempt within ctx.
type attemptFunc func(ctx context.Context) attemptResult

// deliver runs the shared retry loop: strictly sequential attempts,
// fixed backoff, a log entry per attempt outcome. Attempt N+1 never
// starts before attempt N resolved and the backoff elapsed.
func deliver(ctx context.Context, cfg Config, printer models.Printer, job Job, rec Recorder, logger *zap.Logger, attempt attemptFunc) error {
	cfg = cfg.withDefaults()

	var last *PrintError
	for try := 1; try <= cfg.MaxRetries; try++ {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		res := attempt(attemptCtx)
		cancel()

		if res.failure == nil {
			recordAttempts.WithLabelValues(string(printer.PrinterType), "success").Inc()
			rec.Record(ctx, models.PrintLogEntry{
				PrinterID:   printer.ID,
				PrinterName: printer.Name,
				OrderNumber: job.OrderNumber,
				Status:      models.PrintStatusSuccess,
				Attempts:    try,
				Request:     res.request,
				Response:    res.response,
			})
			logger.Info("print delivered",
				zap.String("printer", printer.Name),
				zap.String("address", printer.Address()),
				zap.Int("order", job.OrderNumber),
				zap.Int("attempts", try),
			)
			return nil
		}

		last = res.failure
		if try < cfg.MaxRetries {
			recordAttempts.WithLabelValues(string(printer.PrinterType), "retrying").Inc()
			rec.Record(ctx, models.PrintLogEntry{
				PrinterID:    printer.ID,
				PrinterName:  printer.Name,
				OrderNumber:  job.OrderNumber,
				Status:       models.PrintStatusRetrying,
				Attempts:     try,
				ErrorMessage: last.Message,
				Request:      res.request,
				Response:     res.response,
			})
			logger.Warn("print attempt failed, retrying",
				zap.String("printer", printer.Name),
				zap.String("address", printer.Address()),
				zap.Int("attempt", try),
				zap.String("error", last.Message),
			)
			if err := sleep(ctx, cfg.Backoff); err != nil {
				// Caller gave up while we were backing off. Close out the
				// log with a terminal failure and surface the last printer
				// failure, not the context error. WithoutCancel so the
				// entry still persists.
				recordAttempts.WithLabelValues(string(printer.PrinterType), "failed").Inc()
				rec.Record(context.WithoutCancel(ctx), models.PrintLogEntry{
					PrinterID:    printer.ID,
					PrinterName:  printer.Name,
					OrderNumber:  job.OrderNumber,
					Status:       models.PrintStatusFailed,
					Attempts:     try,
					ErrorMessage: last.Message,
					Request:      res.request,
					Response:     res.response,
				})
				logger.Error("print delivery abandoned",
					zap.String("printer", printer.Name),
					zap.String("address", printer.Address()),
					zap.Int("order", job.OrderNumber),
					zap.Int("attempts", try),
					zap.String("error", last.Message),
				)
				break
			}
			continue
		}

		recordAttempts.WithLabelValues(string(printer.PrinterType), "failed").Inc()
		rec.Record(ctx, models.PrintLogEntry{
			PrinterID:    printer.ID,
			PrinterName:  printer.Name,
			OrderNumber:  job.OrderNumber,
			Status:       models.PrintStatusFailed,
			Attempts:     try,
			ErrorMessage: last.Message,
			Request:      res.request,
			Response:     res.response,
		})
		logger.Error("print delivery failed",
			zap.String("printer", printer.Name),
			zap.String("address", printer.Address()),
			zap.Int("order", job.OrderNumber),
			zap.Int("attempts", try),
			zap.String("error", last.Message),
		)
	}

	return last
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classifyTransportError maps a failed HTTP round trip to the
// operator-facing message.
func classifyTransportError(err error, addr string, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return humanizeTimeout(addr, timeout)
	}
	var urlErr interface{ Timeout() bool }
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return humanizeTimeout(addr, timeout)
	}
	return humanizeConnect(addr)
}

// newHTTPClient returns the client shared by the network senders.
// Attempt deadlines come from the per-attempt context, not the client.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 2,
			DisableKeepAlives:   false,
		},
	}
}
