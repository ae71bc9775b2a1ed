package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printdeck_discovery_probes_total",
		Help: "Total host probes issued by discovery sweeps.",
	})

	foundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printdeck_discovery_printers_found_total",
		Help: "Printers discovered, by detected type.",
	}, []string{"type"})

	scanActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "printdeck_discovery_scan_active",
		Help: "1 while a discovery sweep is running.",
	})
)
