// Package metrics provides Prometheus metrics for bridge-echo: a single
// struct wrapping a private registry with typed RecordX methods rather
// than package-level global collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dnacenta/bridge-echo/lru"
)

// Metrics holds every Prometheus collector bridge-echo reports.
type Metrics struct {
	RequestsTotal            *prometheus.CounterVec
	RequestDuration          *prometheus.HistogramVec
	AlertsTotal              *prometheus.CounterVec
	InjectionDetectionsTotal *prometheus.CounterVec
	VoiceInjectionsTotal     *prometheus.CounterVec
	ActiveRequests           prometheus.Gauge
	BlockedSlackPostsTotal   prometheus.Counter
	VoiceCacheStats          *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridgeecho_requests_total",
				Help: "Total number of chat requests by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridgeecho_request_duration_seconds",
				Help:    "Request processing duration by channel.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridgeecho_alerts_total",
				Help: "Total long-running-request alerts emitted, by POST outcome.",
			},
			[]string{"outcome"},
		),
		InjectionDetectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridgeecho_injection_detections_total",
				Help: "Total prompt-injection pattern matches by channel.",
			},
			[]string{"channel"},
		),
		VoiceInjectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridgeecho_voice_injections_total",
				Help: "Total cross-channel voice reroute attempts by outcome.",
			},
			[]string{"outcome"},
		),
		ActiveRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridgeecho_active_requests",
				Help: "Number of requests currently being processed or queued.",
			},
		),
		BlockedSlackPostsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bridgeecho_blocked_slack_posts_total",
				Help: "Total Slack posts/updates refused because the target channel was not allowlisted.",
			},
		),
		VoiceCacheStats: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bridgeecho_voice_registry_cache",
				Help: "Point-in-time lru.Cache counters for the voice-session registry, by stat name (hits, misses, evictions, expirations).",
			},
			[]string{"stat"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.AlertsTotal,
		m.InjectionDetectionsTotal,
		m.VoiceInjectionsTotal,
		m.ActiveRequests,
		m.BlockedSlackPostsTotal,
		m.VoiceCacheStats,
	)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(channel, outcome string) {
	m.RequestsTotal.WithLabelValues(channel, outcome).Inc()
}

// ObserveDuration records request processing duration.
func (m *Metrics) ObserveDuration(channel string, seconds float64) {
	m.RequestDuration.WithLabelValues(channel).Observe(seconds)
}

// RecordAlert increments the alert counter.
func (m *Metrics) RecordAlert(outcome string) {
	m.AlertsTotal.WithLabelValues(outcome).Inc()
}

// RecordInjectionDetection increments the injection-detection counter.
func (m *Metrics) RecordInjectionDetection(channel string) {
	m.InjectionDetectionsTotal.WithLabelValues(channel).Inc()
}

// RecordVoiceInjection increments the voice-reroute counter.
func (m *Metrics) RecordVoiceInjection(outcome string) {
	m.VoiceInjectionsTotal.WithLabelValues(outcome).Inc()
}

// SetActiveRequests publishes the tracker's current in-flight count.
func (m *Metrics) SetActiveRequests(n int) {
	m.ActiveRequests.Set(float64(n))
}

// RecordBlockedSlackPost increments the allowlist-rejection counter.
func (m *Metrics) RecordBlockedSlackPost() {
	m.BlockedSlackPostsTotal.Inc()
}

// SetVoiceCacheStats republishes a point-in-time lru.Cache metrics
// snapshot as gauges, so the voice registry's hit/miss/eviction/expiration
// counters (already tracked internally by lru.Cache, otherwise invisible
// outside the process) show up on /metrics like every other bridge-echo
// counter.
func (m *Metrics) SetVoiceCacheStats(s lru.MetricsSnapshot) {
	m.VoiceCacheStats.WithLabelValues("hits").Set(float64(s.Hits))
	m.VoiceCacheStats.WithLabelValues("misses").Set(float64(s.Misses))
	m.VoiceCacheStats.WithLabelValues("evictions").Set(float64(s.Evictions))
	m.VoiceCacheStats.WithLabelValues("expirations").Set(float64(s.Expirations))
}
