package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects engine-level counters. Register on whatever registry the
// embedding application exposes; a nil *Metrics is a valid no-op receiver so
// callers can opt out.
type Metrics struct {
	MutationsApplied    *prometheus.CounterVec
	MutationsConfirmed  *prometheus.CounterVec
	MutationsRolledBack *prometheus.CounterVec
	FetchesIssued       prometheus.Counter
	StaleFetchesDropped prometheus.Counter
	ChangeEventsApplied *prometheus.CounterVec
}

// NewMetrics creates and registers the engine counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MutationsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "mutations_applied_total",
			Help:      "Optimistic mutations applied locally, by operation.",
		}, []string{"op"}),
		MutationsConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "mutations_confirmed_total",
			Help:      "Mutations confirmed by the remote store, by operation.",
		}, []string{"op"}),
		MutationsRolledBack: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "mutations_rolled_back_total",
			Help:      "Mutations rolled back after a remote failure, by operation.",
		}, []string{"op"}),
		FetchesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "list_fetches_total",
			Help:      "Paginated list fetches issued to the remote store.",
		}),
		StaleFetchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "stale_fetches_dropped_total",
			Help:      "List responses discarded because a newer fetch superseded them.",
		}),
		ChangeEventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "change_events_applied_total",
			Help:      "Server-pushed change events reconciled into local state.",
		}, []string{"entity", "op"}),
	}

	reg.MustRegister(
		m.MutationsApplied,
		m.MutationsConfirmed,
		m.MutationsRolledBack,
		m.FetchesIssued,
		m.StaleFetchesDropped,
		m.ChangeEventsApplied,
	)
	return m
}

// Nil-safe increment helpers so callers can run without metrics wired.

func (m *Metrics) Applied(op string) {
	if m != nil {
		m.MutationsApplied.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) Confirmed(op string) {
	if m != nil {
		m.MutationsConfirmed.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) RolledBack(op string) {
	if m != nil {
		m.MutationsRolledBack.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) FetchIssued() {
	if m != nil {
		m.FetchesIssued.Inc()
	}
}

func (m *Metrics) StaleDropped() {
	if m != nil {
		m.StaleFetchesDropped.Inc()
	}
}

func (m *Metrics) EventApplied(entity, op string) {
	if m != nil {
		m.ChangeEventsApplied.WithLabelValues(entity, op).Inc()
	}
}
