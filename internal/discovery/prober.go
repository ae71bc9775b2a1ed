package discovery

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/printdeck/printdeck/pkg/models"
)

const (
	portRaw     = 9100
	portIPP     = 631
	portWebPRNT = 8001

	webprntProbePath = "/StarWebPRNT/SendMessage"
	webprntProbeBody = `<StarWebPrintData></StarWebPrintData>`
)

// portProbe describes one protocol check against a candidate host.
// Probes run in declaration order and the first hit wins, so a printer
// answering on both its raw and WebPRNT ports is reported once with the
// higher-priority type.
type portProbe struct {
	port int
	// typ is the printer type reported on a hit.
	typ string
	// accepts decides whether an HTTP response counts as a printer.
	accepts func(status int) bool
}

var probeOrder = []portProbe{
	// Raw JetDirect port. Printers answer the stray HTTP request with
	// garbage or an error page; any response at all means a listener.
	{port: portRaw, typ: "raw", accepts: func(int) bool { return true }},
	// IPP. CUPS and embedded IPP stacks reply 200, 400, or 426.
	{port: portIPP, typ: "escpos", accepts: func(s int) bool {
		return s == http.StatusOK || s == http.StatusBadRequest || s == http.StatusUpgradeRequired
	}},
	// Star WebPRNT. An empty request document gets a 200 or a 400.
	{port: portWebPRNT, typ: "webprnt", accepts: func(s int) bool {
		return s == http.StatusOK || s == http.StatusBadRequest
	}},
}

// Prober checks a single host for print services.
type Prober struct {
	client  *http.Client
	timeout time.Duration
	ports   []portProbe
}

// NewProber builds a prober with the given per-probe timeout.
func NewProber(timeout time.Duration) *Prober {
	return &Prober{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				DisableKeepAlives:   true,
				MaxIdleConnsPerHost: -1,
			},
		},
		timeout: timeout,
		ports:   probeOrder,
	}
}

// Probe tries each known printer port on ip in priority order and
// returns the first match, or false when nothing answered.
func (p *Prober) Probe(ctx context.Context, ip string) (models.DiscoveredPrinter, bool) {
	for _, probe := range p.ports {
		status, ok := p.tryPort(ctx, ip, probe)
		if !ok || !probe.accepts(status) {
			continue
		}
		return models.DiscoveredPrinter{
			IP:   ip,
			Port: probe.port,
			Type: probe.typ,
		}, true
	}
	return models.DiscoveredPrinter{}, false
}

// tryPort issues a single HTTP request and reports the status code.
// The second return is false when the host did not answer at all.
func (p *Prober) tryPort(ctx context.Context, ip string, probe portProbe) (int, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:%d/", ip, probe.port)
	method := http.MethodGet
	var body io.Reader
	if probe.typ == "webprnt" {
		url = fmt.Sprintf("http://%s:%d%s", ip, probe.port, webprntProbePath)
		method = http.MethodPost
		body = strings.NewReader(webprntProbeBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, false
	}
	if probe.typ == "webprnt" {
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// Raw printer ports often speak no HTTP at all. A malformed
		// response still proves a listener, a dial failure does not.
		if isMalformedResponse(err) {
			return http.StatusOK, true
		}
		return 0, false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	return resp.StatusCode, true
}

// isMalformedResponse distinguishes "connected but the peer is not an
// HTTP server" from connection failures.
func isMalformedResponse(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "malformed HTTP") ||
		strings.Contains(msg, "unexpected EOF") ||
		strings.Contains(msg, "server closed idle connection")
}
