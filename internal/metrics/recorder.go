package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikey/inbox-classifier/internal/core"
)

const namespace = "inbox_classifier"

// Recorder is a Prometheus implementation of the MetricsRecorder interface
type Recorder struct {
	registry *prometheus.Registry

	classifications *prometheus.CounterVec
	retries         prometheus.Counter
	retryWait       prometheus.Histogram
	batches         *prometheus.CounterVec
	batchMessages   prometheus.Histogram
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "Messages classified, by category and whether the fallback was used.",
			},
			[]string{"category", "degraded"},
		),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_retries_total",
			Help:      "Throttled generation calls that were retried.",
		}),
		retryWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_retry_wait_seconds",
			Help:      "Wait before each classification retry.",
			Buckets:   []float64{1, 4, 8, 16, 32, 60},
		}),
		batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Batches run, by outcome.",
			},
			[]string{"outcome"},
		),
		batchMessages: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_messages_processed",
			Help:      "Messages processed per successful batch.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

// ClassificationCompleted counts one classified message
func (r *Recorder) ClassificationCompleted(category core.Category, degraded bool) {
	r.classifications.WithLabelValues(string(category), strconv.FormatBool(degraded)).Inc()
}

// ClassificationRetried counts one retry and its wait
func (r *Recorder) ClassificationRetried(wait time.Duration) {
	r.retries.Inc()
	r.retryWait.Observe(wait.Seconds())
}

// BatchCompleted counts one batch by outcome
func (r *Recorder) BatchCompleted(result *core.BatchResult, err error) {
	switch {
	case err == nil:
		r.batches.WithLabelValues("ok").Inc()
		if result != nil {
			r.batchMessages.Observe(float64(result.TotalProcessed))
		}
	case errors.Is(err, core.ErrQuotaExceeded):
		r.batches.WithLabelValues("quota_exceeded").Inc()
	case errors.Is(err, core.ErrListingFailed):
		r.batches.WithLabelValues("listing_failed").Inc()
	default:
		r.batches.WithLabelValues("error").Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
