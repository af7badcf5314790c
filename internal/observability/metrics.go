package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "water_level"

// Metrics holds the Prometheus counters, histograms, and gauges for the analysis service.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Analysis metrics.
	Analyses         prometheus.Counter
	AnalysisErrors   *prometheus.CounterVec // labels: reason={input,internal}
	AnalysisDuration prometheus.Histogram
	SamplesAnalyzed  prometheus.Histogram
	GapFilledSamples prometheus.Counter
	EventsDetected   *prometheus.CounterVec // labels: type, confidence
	CacheLookups     *prometheus.CounterVec // labels: result={hit,miss}
	CacheEntries     prometheus.Gauge
	KafkaEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total analysis jobs read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total event messages written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total jobs skipped because they could not be parsed or analyzed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the job pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of jobs per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-analyze-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Analyses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total completed analysis runs.",
		}),
		AnalysisErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_errors_total",
			Help:      "Analysis runs rejected or failed, by reason.",
		}, []string{"reason"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one analysis run.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		SamplesAnalyzed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "samples_analyzed",
			Help:      "Samples per analysis run after gap filling.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		GapFilledSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gap_filled_samples_total",
			Help:      "Samples synthesized by gap filling.",
		}),
		EventsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_detected_total",
			Help:      "Events reported after the confidence filter, by type and confidence.",
		}, []string{"type", "confidence"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Analysis results currently held in the cache.",
		}),
		KafkaEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kafka_enabled",
			Help:      "1 when the Kafka job pipeline is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Analyses,
		m.AnalysisErrors,
		m.AnalysisDuration,
		m.SamplesAnalyzed,
		m.GapFilledSamples,
		m.EventsDetected,
		m.CacheLookups,
		m.CacheEntries,
		m.KafkaEnabled,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
