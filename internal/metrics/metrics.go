// Package metrics holds the engine's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters updated by the engine components.
// Each instance owns its registry so tests and multiple sessions never collide.
type Metrics struct {
	Registry *prometheus.Registry

	DuplicatesSuppressed prometheus.Counter
	StaleDropped         *prometheus.CounterVec
	LiveEvents           *prometheus.CounterVec
	Reconnects           prometheus.Counter
	Uploads              *prometheus.CounterVec
	Sends                *prometheus.CounterVec
	Searches             prometheus.Counter
	BusDropped           *prometheus.CounterVec
}

// New creates and registers the counters.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DuplicatesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freechat_sync_duplicates_suppressed_total",
			Help: "Messages dropped because their id was already in the log.",
		}),
		StaleDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freechat_stale_results_dropped_total",
			Help: "Async completions discarded because they were superseded.",
		}, []string{"component"}),
		LiveEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freechat_live_events_total",
			Help: "Live channel events received, by kind.",
		}, []string{"kind"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freechat_live_reconnects_total",
			Help: "Reconnect attempts scheduled for the live channel.",
		}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freechat_uploads_total",
			Help: "Attachment uploads, by result.",
		}, []string{"result"}),
		Sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freechat_sends_total",
			Help: "Create-message calls, by result.",
		}, []string{"result"}),
		Searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freechat_user_searches_total",
			Help: "User searches dispatched after debounce.",
		}),
		BusDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freechat_bus_events_dropped_total",
			Help: "Notifications a full subscriber missed, by component.",
		}, []string{"component"}),
	}
	m.Registry.MustRegister(
		m.DuplicatesSuppressed,
		m.StaleDropped,
		m.LiveEvents,
		m.Reconnects,
		m.Uploads,
		m.Sends,
		m.Searches,
		m.BusDropped,
	)
	return m
}

// OrNew returns m, or a fresh instance when m is nil.
func OrNew(m *Metrics) *Metrics {
	if m == nil {
		return New()
	}
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
