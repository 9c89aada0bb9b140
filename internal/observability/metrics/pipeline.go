package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the query pipeline: routed intents, per-stage
// latency, and index demotions from the cloud backend to the local store.
type PipelineMetrics struct {
	queriesTotal   *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	demotionsTotal prometheus.Counter
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	return &PipelineMetrics{
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "qr",
				Subsystem: "pipeline",
				Name:      "queries_total",
				Help:      "Total processed queries by routed intent.",
			},
			[]string{"service", "intent"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "qr",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "stage"},
		),
		demotionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "qr",
				Subsystem: "index",
				Name:      "demotions_total",
				Help:      "Times the similarity index fell back from cloud to in-memory storage.",
				ConstLabels: prometheus.Labels{
					"service": service,
				},
			},
		),
	}
}

// Collectors returns everything to register on the service registry.
func (m *PipelineMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.queriesTotal, m.stageDuration, m.demotionsTotal}
}

func (m *PipelineMetrics) ObserveQuery(service, intent string) {
	m.queriesTotal.WithLabelValues(service, intent).Inc()
}

func (m *PipelineMetrics) ObserveStage(service, stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(service, stage).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveIndexDemotion() {
	m.demotionsTotal.Inc()
}
