// Package metrics instruments migration runs with Prometheus collectors.
// A Recorder built without a registerer is inert, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"photoport/internal/issue"
	"photoport/internal/memory"
)

const namespace = "photoport"

// Result labels for processed assets.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

// Recorder holds the migration collectors.
type Recorder struct {
	processed     *prometheus.CounterVec
	pairs         *prometheus.CounterVec
	issues        *prometheus.CounterVec
	batchSize     prometheus.Gauge
	pressure      prometheus.Gauge
	memoryBytes   prometheus.Gauge
	batchDuration prometheus.Histogram
}

// New registers the collectors on reg. A nil reg returns an inert recorder.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		return &Recorder{}
	}
	r := &Recorder{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_processed_total",
			Help:      "Assets handed to the destination store, by result.",
		}, []string{"result"}),
		pairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_reconstructed_total",
			Help:      "Still/motion pairs reconstructed, by matching signal.",
		}, []string{"signal"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Recorded per-asset issues, by category.",
		}, []string{"category"}),
		batchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Size of the most recent batch.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_pressure_level",
			Help:      "Current memory pressure level (0 normal .. 3 critical).",
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_used_bytes",
			Help:      "Process memory usage at the latest sample.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time spent importing each batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	reg.MustRegister(r.processed, r.pairs, r.issues, r.batchSize, r.pressure, r.memoryBytes, r.batchDuration)
	return r
}

// ObserveProcessed counts one asset outcome.
func (r *Recorder) ObserveProcessed(result string) {
	if r == nil || r.processed == nil {
		return
	}
	r.processed.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObservePair counts one reconstructed pair.
func (r *Recorder) ObservePair(signal string) {
	if r == nil || r.pairs == nil {
		return
	}
	r.pairs.WithLabelValues(normalizeLabel(signal)).Inc()
}

// ObserveIssues counts issues by category.
func (r *Recorder) ObserveIssues(list ...issue.Issue) {
	if r == nil || r.issues == nil {
		return
	}
	for _, is := range list {
		r.issues.WithLabelValues(normalizeLabel(string(is.Category))).Inc()
	}
}

// ObserveBatch records a completed batch.
func (r *Recorder) ObserveBatch(size int, elapsed time.Duration) {
	if r == nil || r.batchSize == nil {
		return
	}
	r.batchSize.Set(float64(size))
	r.batchDuration.Observe(elapsed.Seconds())
}

// ObserveMemory records a pressure sample.
func (r *Recorder) ObserveMemory(s memory.Sample) {
	if r == nil || r.pressure == nil {
		return
	}
	r.pressure.Set(float64(s.Level))
	if s.Err == nil {
		r.memoryBytes.Set(float64(s.Used))
	}
}

// WriteTextfile writes every metric gathered from g to path in the
// node_exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if path == "" || g == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
