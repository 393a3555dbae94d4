// Package metrics exposes pipeline instrumentation: stage timings, row
// counts, and data-integrity exclusions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the pipeline's prometheus instruments.
type Collector struct {
	stageDuration  *prometheus.HistogramVec
	stageRows      *prometheus.GaugeVec
	integrityDrops prometheus.Counter
	runsTotal      *prometheus.CounterVec
}

// NewCollector creates and registers the pipeline instruments on the given
// registry (use prometheus.NewRegistry in tests to avoid global state).
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nbasignal_stage_duration_seconds",
			Help:    "Wall time per pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nbasignal_stage_rows",
			Help: "Rows present after each pipeline stage",
		}, []string{"stage"}),
		integrityDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nbasignal_integrity_exclusions_total",
			Help: "Games excluded for data-integrity violations",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nbasignal_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"result"}),
	}
	reg.MustRegister(c.stageDuration, c.stageRows, c.integrityDrops, c.runsTotal)
	return c
}

// ObserveStage records one stage execution.
func (c *Collector) ObserveStage(stage string, seconds float64, rows int) {
	c.stageDuration.WithLabelValues(stage).Observe(seconds)
	c.stageRows.WithLabelValues(stage).Set(float64(rows))
}

// AddIntegrityDrops counts games excluded by integrity checks.
func (c *Collector) AddIntegrityDrops(n int) {
	c.integrityDrops.Add(float64(n))
}

// RecordRun counts a finished pipeline run.
func (c *Collector) RecordRun(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	c.runsTotal.WithLabelValues(result).Inc()
}
