package transport

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printdeck/printdeck/internal/testutil"
	"github.com/printdeck/printdeck/pkg/models"
)

// memRecorder collects print log entries in memory.
type memRecorder struct {
	entries []models.PrintLogEntry
}

func (r *memRecorder) Record(_ context.Context, e models.PrintLogEntry) {
	r.entries = append(r.entries, e)
}

func (r *memRecorder) byStatus(status models.PrintStatus) []models.PrintLogEntry {
	var out []models.PrintLogEntry
	for _, e := range r.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// fastConfig keeps retry tests quick.
func fastConfig() Config {
	return Config{MaxRetries: 3, Timeout: 500 * time.Millisecond, Backoff: time.Millisecond}
}

// printerFor wires a fixture printer at the test server's address.
func printerFor(t *testing.T, srv *httptest.Server, pt models.PrinterType) models.Printer {
	t.Helper()
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return testutil.NewPrinter(
		testutil.WithAddress(host, port),
		testutil.WithPrinterType(pt),
	)
}

func TestRawSenderRetryBound(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &memRecorder{}
	sender := NewRawSender(fastConfig(), rec, testutil.Logger())
	printer := printerFor(t, srv, models.PrinterTypeRaw)

	err := sender.Send(context.Background(), printer, Job{OrderNumber: 7, Payload: []byte("x")})

	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts), "expected exactly maxRetries attempts")
	assert.Len(t, rec.byStatus(models.PrintStatusRetrying), 2)
	assert.Len(t, rec.byStatus(models.PrintStatusFailed), 1)
	assert.Empty(t, rec.byStatus(models.PrintStatusSuccess))
	assert.Contains(t, err.Error(), printer.Address(), "error must name the printer address")
}

func TestRawSenderSuccessShortCircuit(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &memRecorder{}
	sender := NewRawSender(fastConfig(), rec, testutil.Logger())
	printer := printerFor(t, srv, models.PrinterTypeRaw)

	err := sender.Send(context.Background(), printer, Job{OrderNumber: 7, Payload: []byte("x")})

	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
	assert.Len(t, rec.byStatus(models.PrintStatusRetrying), 1)

	successes := rec.byStatus(models.PrintStatusSuccess)
	require.Len(t, successes, 1)
	assert.Equal(t, 2, successes[0].Attempts)
}

func TestRawSenderCanceledBackoffRecordsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Give up after the first attempt, mid-backoff.
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.Backoff = 30 * time.Second
	rec := &memRecorder{}
	sender := NewRawSender(cfg, rec, testutil.Logger())
	printer := printerFor(t, srv, models.PrinterTypeRaw)

	start := time.Now()
	err := sender.Send(ctx, printer, Job{OrderNumber: 7, Payload: []byte("x")})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "send must not wait out the backoff")
	assert.Len(t, rec.byStatus(models.PrintStatusRetrying), 1)

	failures := rec.byStatus(models.PrintStatusFailed)
	require.Len(t, failures, 1, "an abandoned delivery still closes out the log")
	assert.Equal(t, 1, failures[0].Attempts)
	assert.NotEmpty(t, failures[0].ErrorMessage)
}

func TestRawSenderContentType(t *testing.T) {
	var gotContentType string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
	}))
	defer srv.Close()

	rec := &memRecorder{}
	sender := NewRawSender(fastConfig(), rec, testutil.Logger())
	printer := printerFor(t, srv, models.PrinterTypeRaw)

	payload := []byte{0x1B, 0x40, 'h', 'i'}
	require.NoError(t, sender.Send(context.Background(), printer, Job{OrderNumber: 1, Payload: payload}))
	assert.Equal(t, "application/octet-stream", gotContentType)
	assert.Equal(t, string(payload), gotBody)
}

func TestWebPRNTEnvelopeAndPath(t *testing.T) {
	var gotPath, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
	}))
	defer srv.Close()

	rec := &memRecorder{}
	sender := NewWebPRNTSender(fastConfig(), rec, testutil.Logger())
	printer := printerFor(t, srv, models.PrinterTypeWebPRNT)

	require.NoError(t, sender.Send(context.Background(), printer, Job{OrderNumber: 1, Payload: []byte("<text>hi</text>")}))

	assert.Equal(t, "/StarWebPRNT/SendMessage", gotPath)
	assert.Equal(t, "text/xml; charset=utf-8", gotContentType)
	assert.True(t, strings.HasPrefix(gotBody, `<?xml version="1.0" encoding="UTF-8"?><StarWebPrintData>`))
	assert.Contains(t, gotBody, "<text>hi</text>")
	assert.True(t, strings.HasSuffix(gotBody, `<cutpaper type="feed"/><action type="print"/></StarWebPrintData>`))
}

func TestWebPRNTHealthSignalOverridesHTTPSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"Success":true,"PaperEmpty":true}`))
	}))
	defer srv.Close()

	rec := &memRecorder{}
	sender := NewWebPRNTSender(fastConfig(), rec, testutil.Logger())
	printer := printerFor(t, srv, models.PrinterTypeWebPRNT)

	err := sender.Send(context.Background(), printer, Job{OrderNumber: 1, Payload: []byte("<text>x</text>")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of paper")
	assert.Empty(t, rec.byStatus(models.PrintStatusSuccess))
	assert.Len(t, rec.byStatus(models.PrintStatusFailed), 1)
}

func TestWebPRNTHealthSignalMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"paper empty", `{"PaperEmpty":true}`, "out of paper"},
		{"paper end", `{"PaperEnd":true}`, "out of paper"},
		{"offline", `{"Online":false}`, "offline"},
		{"cover open", `{"CoverOpen":true}`, "cover open"},
		{"healthy", `{"Success":true,"Online":true}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := healthSignal(tt.body, "10.0.0.5:8001")
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.want)
			assert.Contains(t, got, "10.0.0.5:8001")
		})
	}
}

func TestSenderTimeoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := Config{MaxRetries: 1, Timeout: 50 * time.Millisecond, Backoff: time.Millisecond}
	rec := &memRecorder{}
	sender := NewRawSender(cfg, rec, testutil.Logger())
	printer := printerFor(t, srv, models.PrinterTypeRaw)

	err := sender.Send(context.Background(), printer, Job{OrderNumber: 1, Payload: []byte("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not respond")
	assert.Contains(t, err.Error(), printer.Address())
}

func TestSenderConnectFailureMessage(t *testing.T) {
	rec := &memRecorder{}
	sender := NewRawSender(Config{MaxRetries: 1, Timeout: 300 * time.Millisecond, Backoff: time.Millisecond}, rec, testutil.Logger())
	// A port no listener is on; the connect fails fast.
	printer := testutil.NewPrinter(testutil.WithAddress("127.0.0.1", 1))

	err := sender.Send(context.Background(), printer, Job{OrderNumber: 1, Payload: []byte("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reach printer at 127.0.0.1:1")
}

func TestUnsupportedSenderFailsImmediately(t *testing.T) {
	sender := &UnsupportedSender{Capability: models.ConnectionUSB}
	printer := testutil.NewPrinter(testutil.WithConnection(models.ConnectionUSB))

	start := time.Now()
	err := sender.Send(context.Background(), printer, Job{OrderNumber: 1})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported on this platform")
	assert.Less(t, elapsed, 50*time.Millisecond, "stub must fail without retries or I/O")
}

func TestTruncateCapsSnippets(t *testing.T) {
	long := strings.Repeat("a", 2000)
	got := truncate(long)
	assert.Len(t, got, snippetLimit+3) // "..." suffix
	assert.Equal(t, "short", truncate("short"))
}
