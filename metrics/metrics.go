/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics records the outcome of a review run and writes it in the
// node exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"chainguard.dev/prreview/review"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded by Recorder.Outcome.
const (
	OutcomeSuccess         = "success"
	OutcomeValidationError = "validation_error"
	OutcomeError           = "error"
	OutcomeDryRun          = "dry_run"
)

// Recorder holds the metrics of one run in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	findings         *prometheus.GaugeVec
	validationErrors prometheus.Gauge
	labels           prometheus.Gauge
	approved         prometheus.Gauge
	autoMerge        *prometheus.GaugeVec
	duration         prometheus.Gauge
	runs             *prometheus.CounterVec
}

// New returns a Recorder with every metric registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		findings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prreview_findings",
				Help: "Number of review findings by risk",
			},
			[]string{"risk"},
		),
		validationErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prreview_validation_errors",
			Help: "Number of schema validation errors in the review",
		}),
		labels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prreview_labels",
			Help: "Number of labels derived from the review",
		}),
		approved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prreview_approved",
			Help: "1 when the reviewer approved the pull request",
		}),
		autoMerge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prreview_auto_merge",
				Help: "Auto-merge state of the run: allowed by policy, attempted, merged",
			},
			[]string{"stage"},
		),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prreview_run_duration_seconds",
			Help: "Wall time of the review run",
		}),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prreview_runs_total",
				Help: "Review runs by outcome",
			},
			[]string{"outcome"},
		),
	}
	r.registry.MustRegister(r.findings, r.validationErrors, r.labels, r.approved, r.autoMerge, r.duration, r.runs)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Review records the content of a rendered review.
func (r *Recorder) Review(v review.View) {
	for _, rc := range v.RiskCounts {
		r.findings.WithLabelValues(rc.Risk).Set(float64(rc.Count))
	}
	r.validationErrors.Set(float64(len(v.ValidationErrors)))
	r.approved.Set(boolValue(v.Approved))
}

// Labels records how many labels were derived.
func (r *Recorder) Labels(n int) {
	r.labels.Set(float64(n))
}

// AutoMerge records the auto-merge stages reached.
func (r *Recorder) AutoMerge(allowed, attempted, merged bool) {
	r.autoMerge.WithLabelValues("allowed").Set(boolValue(allowed))
	r.autoMerge.WithLabelValues("attempted").Set(boolValue(attempted))
	r.autoMerge.WithLabelValues("merged").Set(boolValue(merged))
}

// Outcome counts a finished run and records how long it took.
func (r *Recorder) Outcome(outcome string, took time.Duration) {
	r.runs.WithLabelValues(outcome).Inc()
	r.duration.Set(took.Seconds())
}

// WriteTextfile atomically writes every metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
