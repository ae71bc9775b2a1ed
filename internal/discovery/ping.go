package discovery

import (
	"context"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ICMPPinger checks host liveness with a single ICMP echo. It only
// feeds the scan transcript, so failures are soft.
type ICMPPinger struct {
	Timeout time.Duration
}

var _ Pinger = (*ICMPPinger)(nil)

// Reachable reports whether host answered one ping within the timeout.
func (p *ICMPPinger) Reachable(ctx context.Context, host string) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case err := <-done:
		if err != nil {
			return false
		}
		return pinger.Statistics().PacketsRecv > 0
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return false
	}
}
