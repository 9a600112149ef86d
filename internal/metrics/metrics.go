// Package metrics declares the Prometheus collectors of ledgerweb. They are
// registered on the default registry and exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardDecisions counts route guard outcomes by area and outcome
	// ("allow" or "redirect").
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "guard_decisions_total",
		Help:      "Route guard decisions by area and outcome.",
	}, []string{"area", "outcome"})

	// SyncEvents counts cross-tab reconciliations by result ("changed",
	// "unchanged", "error").
	SyncEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "session_sync_total",
		Help:      "Cross-tab session reconciliations by result.",
	}, []string{"result"})

	// LiveViews tracks open live-channel connections.
	LiveViews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledger",
		Name:      "live_views",
		Help:      "Currently open live navigation channels.",
	})
)
