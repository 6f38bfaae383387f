// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "xgfixtures"

// Metrics groups the service's collectors.
type Metrics struct {
	PipelineDuration *prometheus.HistogramVec
	SkippedFixtures  *prometheus.CounterVec
	RankingDegraded  prometheus.Counter
	Refreshes        *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent computing the upcoming fixture view.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		SkippedFixtures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_fixtures_total",
			Help:      "Fixtures dropped because their kick-off time was missing or malformed.",
		}, []string{"reason"}),
		RankingDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_degraded_total",
			Help:      "Pipeline runs served without opponent metrics.",
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_refreshes_total",
			Help:      "Scheduled refresh runs by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.PipelineDuration,
			m.SkippedFixtures,
			m.RankingDegraded,
			m.Refreshes,
			m.HTTPRequests,
			m.HTTPDuration,
		)
	}
	return m
}
