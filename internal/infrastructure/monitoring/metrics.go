package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics for the assessment pipeline.
type Metrics struct {
	AssessmentsTotal    *prometheus.CounterVec
	AssessmentDuration  *prometheus.HistogramVec
	GraphRequestsTotal  *prometheus.CounterVec
	CacheLookupsTotal   *prometheus.CounterVec
	StoreInitTotal      prometheus.Counter
}

// NewMetrics creates and registers the Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		AssessmentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posture_assessments_total",
				Help: "Total number of assessment runs by final status.",
			},
			[]string{"status"},
		),
		AssessmentDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "posture_assessment_duration_seconds",
				Help:    "End-to-end latency of assessment runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		GraphRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posture_graph_requests_total",
				Help: "Directory API fetches by source and result.",
			},
			[]string{"source", "result"},
		),
		CacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posture_cache_lookups_total",
				Help: "Response cache lookups by result.",
			},
			[]string{"result"},
		),
		StoreInitTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "posture_store_initializations_total",
				Help: "Number of backing store initializations performed.",
			},
		),
	}
}

// RecordAssessment records one finished assessment run.
func (m *Metrics) RecordAssessment(status string, duration time.Duration) {
	m.AssessmentsTotal.WithLabelValues(status).Inc()
	m.AssessmentDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordGraphFetch records one directory API fetch outcome.
func (m *Metrics) RecordGraphFetch(source, result string) {
	m.GraphRequestsTotal.WithLabelValues(source, result).Inc()
}

// RecordCacheLookup records a response cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
}
