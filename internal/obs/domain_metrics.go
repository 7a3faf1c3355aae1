package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var domainOnce sync.Once

// Domain collectors are created eagerly so engine code can record against them
// before (or without) registration; MustRegisterDomainMetrics attaches them to
// a registry at startup.
var (
	// Recomputations counts pricing recomputation runs.
	Recomputations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "proposal_engine",
		Name:      "pricing_recomputations_total",
		Help:      "Total number of pricing recomputation runs.",
	})
	// SelectionToggles counts selection toggles by kind and outcome.
	SelectionToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proposal_engine",
		Name:      "selection_toggles_total",
		Help:      "Count of addon/upsell/offer toggle outcomes.",
	}, []string{"kind", "result"})
	// ToggleRollbacks counts optimistic updates rolled back after a failed persist.
	ToggleRollbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "proposal_engine",
		Name:      "toggle_rollbacks_total",
		Help:      "Optimistic addon toggles rolled back on persistence failure.",
	})
	// OffersExpired counts offer countdowns that ran down to zero.
	OffersExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "proposal_engine",
		Name:      "offers_expired_total",
		Help:      "Special offers whose countdown reached zero.",
	})
	// ActiveSessions gauges currently open pricing sessions.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "proposal_engine",
		Name:      "active_sessions",
		Help:      "Number of open proposal pricing sessions.",
	})
)

// MustRegisterDomainMetrics registers the domain collectors with the provided
// registry, reusing collectors that are already registered.
func MustRegisterDomainMetrics(reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		registerCollector(reg, Recomputations)
		registerCollector(reg, SelectionToggles)
		registerCollector(reg, ToggleRollbacks)
		registerCollector(reg, OffersExpired)
		registerCollector(reg, ActiveSessions)
	})
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
