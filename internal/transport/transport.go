// Package transport delivers print payloads to printers over HTTP with
// bounded retries, per-attempt timeouts, and mandatory attempt logging.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/printdeck/printdeck/pkg/models"
)

// Job is one payload bound for one printer. For raw printers the
// payload is the final ESC/POS byte stream; for WebPRNT printers it is
// the markup fragment, which the sender wraps in the job envelope.
type Job struct {
	OrderNumber int
	Payload     []byte
}

// Sender delivers one job to one printer, retrying internally. A nil
// return means the printer accepted the job; a non-nil return is always
// a *PrintError after the retry budget is exhausted.
type Sender interface {
	Send(ctx context.Context, printer models.Printer, job Job) error
}

// Recorder receives a print log entry for every attempt outcome. The
// print log module implements it; logging is never skipped, including
// on the unhappy path.
type Recorder interface {
	Record(ctx context.Context, entry models.PrintLogEntry)
}

// Config bounds the retry loop shared by all network senders.
type Config struct {
	MaxRetries int           // sequential attempts per job (default 3)
	Timeout    time.Duration // per-attempt HTTP timeout (default 15s)
	Backoff    time.Duration // fixed wait between attempts (default 2s)
}

// withDefaults fills zero fields with the standard budget.
func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	return c
}

// PrintError is the operator-facing delivery failure. Its message names
// the printer address and the specific condition so it can be shown
// verbatim.
type PrintError struct {
	PrinterName string
	Address     string
	Message     string
}

func (e *PrintError) Error() string {
	return e.Message
}

// snippetLimit caps the request/response excerpts stored in log entries.
const snippetLimit = 500

// truncate caps s at snippetLimit bytes for log storage.
func truncate(s string) string {
	if len(s) <= snippetLimit {
		return s
	}
	return s[:snippetLimit] + "..."
}

// humanizeTimeout builds the timeout message for an address.
func humanizeTimeout(addr string, timeout time.Duration) string {
	return fmt.Sprintf("printer at %s did not respond within %d seconds", addr, int(timeout.Seconds()))
}

// humanizeConnect builds the unreachable-printer message for an address.
func humanizeConnect(addr string) string {
	return fmt.Sprintf("cannot reach printer at %s - check printer power, WiFi network, and port", addr)
}
