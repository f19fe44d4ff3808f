package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wemet_relay"

// Drop reasons for relayed or outbound messages.
const (
	DropReasonNoPartner  = "no_partner"
	DropReasonBufferFull = "buffer_full"
	DropReasonNotLive    = "not_live"
)

// Leave modes.
const (
	LeaveModeStop       = "stop"
	LeaveModeDisconnect = "disconnect"
)

// Balance update outcomes.
const (
	BalanceApplied  = "applied"
	BalanceRejected = "rejected"
)

// Snapshot is the point-in-time view exported as gauges.
type Snapshot struct {
	Connections int
	Waiting     int
	Paired      int
}

// Metrics owns a private registry so tests can build as many as they need.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	matches  prometheus.Counter
	waiting  prometheus.Counter
	evicted  prometheus.Counter
	relayed  *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	leaves   *prometheus.CounterVec
	balances *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Pairings formed.",
		}),
		waiting: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waiting_enqueued_total",
			Help:      "Match requests that found no partner and entered the waiting pool.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waiting_evicted_total",
			Help:      "Waiting pool entries removed by the staleness sweep.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_messages_total",
			Help:      "Signals forwarded to a partner, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_messages_total",
			Help:      "Messages that could not be delivered, by reason.",
		}, []string{"reason"}),
		leaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaves_total",
			Help:      "Stop-matching and disconnect events handled.",
		}, []string{"mode"}),
		balances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_updates_total",
			Help:      "Client-declared balance changes, by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.matches, m.waiting, m.evicted,
		m.relayed, m.dropped, m.leaves, m.balances,
		collectors.NewGoCollector(),
	)
	return m
}

// RegisterSnapshot exports the values returned by fn as gauges. fn is
// called on every scrape.
func (m *Metrics) RegisterSnapshot(fn func() Snapshot) {
	if m == nil {
		return
	}
	gauge := func(name, help string, pick func(Snapshot) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(pick(fn())) })
	}
	m.registry.MustRegister(
		gauge("connections", "Connections present in the registry.", func(s Snapshot) int { return s.Connections }),
		gauge("waiting", "Connections in the waiting pool.", func(s Snapshot) int { return s.Waiting }),
		gauge("paired_connections", "Connections that currently have a partner.", func(s Snapshot) int { return s.Paired }),
	)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics not configured", http.StatusInternalServerError)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncMatches() {
	if m != nil {
		m.matches.Inc()
	}
}

func (m *Metrics) IncWaiting() {
	if m != nil {
		m.waiting.Inc()
	}
}

func (m *Metrics) AddEvicted(n int) {
	if m != nil && n > 0 {
		m.evicted.Add(float64(n))
	}
}

func (m *Metrics) IncRelayed(kind string) {
	if m != nil {
		m.relayed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncDropped(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncLeave(mode string) {
	if m != nil {
		m.leaves.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) IncBalanceUpdate(outcome string) {
	if m != nil {
		m.balances.WithLabelValues(outcome).Inc()
	}
}
