package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// recordAttempts counts every delivery attempt outcome by protocol.
var recordAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "printdeck",
		Subsystem: "transport",
		Name:      "attempts_total",
		Help:      "Print delivery attempts by printer protocol and outcome.",
	},
	[]string{"protocol", "outcome"},
)
