// Package metrics provides Prometheus metrics for the conductores gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the gateway exposes on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Upstream REST calls
	UpstreamDurationSeconds *prometheus.HistogramVec // latency by operation and outcome
	UpstreamErrorsTotal     *prometheus.CounterVec   // failures by operation and error kind

	// Notification relay
	NotificationClients     prometheus.Gauge       // browser sockets currently registered
	NotificationEventsTotal *prometheus.CounterVec // events relayed by evento
	UpstreamReconnectsTotal prometheus.Counter     // upstream socket reconnect attempts

	// View sessions
	ActiveViews        prometheus.Gauge
	EvictedViewsTotal  prometheus.Counter
	StagedUploadsTotal *prometheus.CounterVec // staged documents by categoria and outcome
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpstreamDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conductores_upstream_request_duration_seconds",
			Help:    "Duration of calls to the conductores REST API",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),

		UpstreamErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "conductores_upstream_errors_total",
			Help: "Failed calls to the conductores REST API by error kind",
		}, []string{"operation", "kind"}),

		NotificationClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "conductores_notification_clients",
			Help: "Browser sockets currently registered for notifications",
		}),

		NotificationEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "conductores_notification_events_total",
			Help: "Notification events relayed to browsers",
		}, []string{"evento"}),

		UpstreamReconnectsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "conductores_notification_upstream_reconnects_total",
			Help: "Reconnect attempts to the upstream notification socket",
		}),

		ActiveViews: f.NewGauge(prometheus.GaugeOpts{
			Name: "conductores_active_views",
			Help: "View sessions currently held in memory",
		}),

		EvictedViewsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "conductores_evicted_views_total",
			Help: "View sessions evicted after being idle",
		}),

		StagedUploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "conductores_staged_uploads_total",
			Help: "Documents submitted to staging by category and outcome",
		}, []string{"categoria", "outcome"}),
	}
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(operation string, start time.Time, errKind string) {
	if m == nil {
		return
	}
	outcome := "ok"
	if errKind != "" {
		outcome = "error"
		m.UpstreamErrorsTotal.WithLabelValues(operation, errKind).Inc()
	}
	m.UpstreamDurationSeconds.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetNotificationClients(n int) {
	if m == nil {
		return
	}
	m.NotificationClients.Set(float64(n))
}

func (m *Metrics) IncNotificationEvent(evento string) {
	if m == nil {
		return
	}
	m.NotificationEventsTotal.WithLabelValues(evento).Inc()
}

func (m *Metrics) IncUpstreamReconnect() {
	if m == nil {
		return
	}
	m.UpstreamReconnectsTotal.Inc()
}

// SetActiveViews updates the view gauge and counts evictions.
func (m *Metrics) SetActiveViews(n, evicted int) {
	if m == nil {
		return
	}
	m.ActiveViews.Set(float64(n))
	if evicted > 0 {
		m.EvictedViewsTotal.Add(float64(evicted))
	}
}

func (m *Metrics) IncStagedUpload(categoria string, ok bool) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !ok {
		outcome = "rejected"
	}
	m.StagedUploadsTotal.WithLabelValues(categoria, outcome).Inc()
}
