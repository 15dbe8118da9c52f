package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the engine's prometheus collectors. Each instance owns its
// registry so tests can construct metrics without collision.
type Metrics struct {
	reg *prometheus.Registry

	RoomsCreated    prometheus.Counter
	GuessesTotal    prometheus.Counter
	GamesCompleted  prometheus.Counter
	EventsPublished prometheus.Counter
	WaitingRooms    prometheus.Gauge
	OpDuration      prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Number of rooms created",
		}),
		GuessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guesses_total",
			Help:      "Number of accepted guesses",
		}),
		GamesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_completed_total",
			Help:      "Number of games that reached a winner",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Number of change events published",
		}),
		WaitingRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_rooms",
			Help:      "Rooms currently open in the lobby",
		}),
		OpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "op_duration_seconds",
			Help:      "Mutation handling latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	m.reg.MustRegister(
		m.RoomsCreated,
		m.GuessesTotal,
		m.GamesCompleted,
		m.EventsPublished,
		m.WaitingRooms,
		m.OpDuration,
	)
	return m
}

// Handler serves this registry, mounted at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
