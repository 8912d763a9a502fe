package monitoring

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the batch pipeline's counters. Each instance owns its own
// registry so tests and repeated runs do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	DaysProcessed        *prometheus.CounterVec
	FramesBuilt          prometheus.Counter
	SensorsDropped       prometheus.Counter
	FieldFallbacks       prometheus.Counter
	ObservationsRejected *prometheus.CounterVec
	DaySeconds           prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DaysProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airq",
			Name:      "days_total",
			Help:      "Analysis days by outcome (processed, skipped, failed).",
		}, []string{"outcome"}),
		FramesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airq",
			Name:      "frames_built_total",
			Help:      "Analysis frames assembled.",
		}),
		SensorsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airq",
			Name:      "sensors_dropped_total",
			Help:      "Sensor-days excluded for too few observations.",
		}),
		FieldFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airq",
			Name:      "field_idw_fallbacks_total",
			Help:      "Frames whose field fell back from RBF to IDW.",
		}),
		ObservationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airq",
			Name:      "observations_rejected_total",
			Help:      "Observations removed before smoothing, by reason.",
		}, []string{"reason"}),
		DaySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airq",
			Name:      "day_duration_seconds",
			Help:      "Wall time to analyse one day.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	m.Registry.MustRegister(
		m.DaysProcessed,
		m.FramesBuilt,
		m.SensorsDropped,
		m.FieldFallbacks,
		m.ObservationsRejected,
		m.DaySeconds,
	)
	return m
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
