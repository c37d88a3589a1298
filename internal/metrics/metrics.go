// Public domain.

// Package metrics collects run metrics in a Prometheus registry, written
// out in the text format for a node exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/curtisa1/icqsplitter/internal/export"
)

const namespace = "icqsplit"

// Run holds the metrics of one run.
type Run struct {
	reg        *prometheus.Registry
	Read       prometheus.Gauge
	Kept       prometheus.Gauge
	Removed    *prometheus.GaugeVec
	Points     *prometheus.GaugeVec
	Iterations *prometheus.GaugeVec
	Passes     *prometheus.GaugeVec
	Condemned  *prometheus.GaugeVec
	Converged  *prometheus.GaugeVec
	Settled    *prometheus.GaugeVec
	Duration   prometheus.Gauge
	Completed  prometheus.Gauge
}

// New registers the run metrics in a fresh registry.
func New() *Run {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	vec := func(name, help, label string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, []string{label})
	}
	m := &Run{
		reg:        prometheus.NewRegistry(),
		Read:       gauge("observations_read", "Observation lines read."),
		Kept:       gauge("observations_kept", "Observations kept after filtering and matching."),
		Removed:    vec("observations_removed", "Observations removed, by reason.", "reason"),
		Points:     vec("fit_points", "Points in the final fit.", "partition"),
		Iterations: vec("fit_iterations", "Shift-fit iterations in the final pass.", "partition"),
		Passes:     vec("fit_passes", "Condemnation passes run.", "partition"),
		Condemned:  vec("observers_condemned", "Observers condemned for drifting residuals.", "partition"),
		Converged:  vec("fit_converged", "1 if the final shift-fit converged.", "partition"),
		Settled:    vec("fit_settled", "1 if condemnation ended within the pass bound.", "partition"),
		Duration:   gauge("run_duration_seconds", "Run wall time."),
		Completed:  gauge("run_completed_timestamp_seconds", "Unix time the run completed."),
	}
	m.reg.MustRegister(m.Read, m.Kept, m.Removed, m.Points, m.Iterations,
		m.Passes, m.Condemned, m.Converged, m.Settled, m.Duration, m.Completed)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Run) Registry() *prometheus.Registry { return m.reg }

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Observe sets the metrics from a run report.
func (m *Run) Observe(rep *export.Report, took time.Duration, done time.Time) {
	m.Read.Set(float64(rep.Read))
	m.Kept.Set(float64(rep.Kept))
	for reason, n := range rep.RemovedBy {
		m.Removed.WithLabelValues(reason).Set(float64(n))
	}
	for _, p := range rep.Partitions {
		m.Points.WithLabelValues(p.Label).Set(float64(p.Points))
		m.Iterations.WithLabelValues(p.Label).Set(float64(p.Iterations))
		m.Passes.WithLabelValues(p.Label).Set(float64(p.Passes))
		m.Condemned.WithLabelValues(p.Label).Set(float64(len(p.Condemned)))
		m.Converged.WithLabelValues(p.Label).Set(flag(p.Converged))
		m.Settled.WithLabelValues(p.Label).Set(flag(p.Settled))
	}
	m.Duration.Set(took.Seconds())
	m.Completed.Set(float64(done.Unix()))
}

// WriteTextfile writes the metrics to path in the Prometheus text format.
func (m *Run) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
