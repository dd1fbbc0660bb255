package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors recorded while serving badges
type Metrics struct {
	Renders  *prometheus.CounterVec
	Upstream *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nowplaying",
			Name:      "renders_total",
			Help:      "Badges rendered, by display state.",
		}, []string{"state"}),
		Upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nowplaying",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to Spotify, by endpoint and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "outcome"}),
		gatherer: reg,
	}
	reg.MustRegister(m.Renders, m.Upstream)

	return m
}

// ObserveRender counts a rendered badge. Safe on a nil receiver.
func (m *Metrics) ObserveRender(state string) {
	if m == nil {
		return
	}
	m.Renders.WithLabelValues(state).Inc()
}

// ObserveUpstream records the duration of an outbound call. Safe on a nil receiver.
func (m *Metrics) ObserveUpstream(endpoint string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Upstream.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
}

// Handler exposes the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
