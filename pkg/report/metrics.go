package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Compile-time interface check.
var _ Reporter = (*MetricsReporter)(nil)

// MetricsReporter records upload progress as Prometheus metrics on its own
// registry.
type MetricsReporter struct {
	registry *prometheus.Registry
	items    *prometheus.CounterVec
	bytes    prometheus.Counter
	duration prometheus.Histogram
	batches  prometheus.Counter
	lastRun  prometheus.Gauge
}

// NewMetricsReporter creates a MetricsReporter with metrics under namespace.
func NewMetricsReporter(namespace string) (*MetricsReporter, error) {
	if namespace == "" {
		namespace = "assetoor"
	}

	r := &MetricsReporter{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Number of asset uploads by result.",
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes successfully uploaded to object storage.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Latency of single asset uploads.",
			Buckets:   prometheus.DefBuckets,
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_flushed_total",
			Help:      "Number of flushed upload batches.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_completed_timestamp_seconds",
			Help:      "Unix time the last upload run completed.",
		}),
	}

	for _, c := range []prometheus.Collector{r.items, r.bytes, r.duration, r.batches, r.lastRun} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}

	return r, nil
}

// Notify implements Reporter.
func (r *MetricsReporter) Notify(kind Kind, ev Event) {
	switch kind {
	case KindItemUploaded:
		r.items.WithLabelValues("success").Inc()
		r.bytes.Add(float64(ev.Bytes))
		r.duration.Observe(ev.Duration.Seconds())
	case KindItemFailed:
		r.items.WithLabelValues("failure").Inc()
	case KindBatchFlushed:
		r.batches.Inc()
	case KindCompleted:
		r.lastRun.SetToCurrentTime()
	}
}

// WriteTextfile writes the metrics in the text exposition format to path,
// suitable for the node exporter textfile collector.
func (r *MetricsReporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}
