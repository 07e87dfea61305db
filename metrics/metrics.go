// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wraps prometheus/client_golang the way the teacher's
// metrics package does — thin constructors that register a handful of
// collectors against a caller-supplied prometheus.Registerer — but
// specialized to the observables spec.md §2/§6 asks the pipeline driver
// to always produce: per-stage duration, per-stage error count, cluster
// and merge counters, and the reclustering chi-squared distribution.
// None of this is a monitoring sink (out of scope per spec §1); it is
// the measurement surface a sink would later scrape.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StageMetrics is the set of collectors one pipeline stage registers.
type StageMetrics struct {
	Duration prometheus.Histogram
	Errors   prometheus.Counter
	Runs     prometheus.Counter
}

// NewStageMetrics registers and returns the collectors for a stage named
// stageName. reg may be nil, in which case a private, unregistered
// registry backs the collectors so callers never need a nil check.
func NewStageMetrics(reg prometheus.Registerer, stageName string) *StageMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &StageMetrics{
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pflow",
			Subsystem: "stage",
			Name:      stageName + "_duration_seconds",
			Help:      "Wall-clock duration of " + stageName + " per event.",
			Buckets:   prometheus.DefBuckets,
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pflow",
			Subsystem: "stage",
			Name:      stageName + "_errors_total",
			Help:      "Number of events " + stageName + " aborted on.",
		}),
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pflow",
			Subsystem: "stage",
			Name:      stageName + "_runs_total",
			Help:      "Number of events " + stageName + " processed.",
		}),
	}
	reg.MustRegister(m.Duration, m.Errors, m.Runs)
	return m
}

// Observe records one run of duration d, incrementing Errors if err != nil.
func (m *StageMetrics) Observe(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Runs.Inc()
	m.Duration.Observe(d.Seconds())
	if err != nil {
		m.Errors.Inc()
	}
}

// ReconstructionMetrics is the event-level observable surface: PFO
// counts, reconstructed energy, and the reclustering chi-squared
// distribution that the reclustering driver (§4.G) selects candidates
// against.
type ReconstructionMetrics struct {
	PFOCount        prometheus.Histogram
	PFOEnergy       prometheus.Histogram
	ReclusterChi2   prometheus.Histogram
	FragmentMerges  prometheus.Counter
	ClusterMerges   prometheus.Counter
	ReclusterEvents prometheus.Counter
}

// NewReconstructionMetrics registers and returns the event-level collectors.
func NewReconstructionMetrics(reg prometheus.Registerer) *ReconstructionMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &ReconstructionMetrics{
		PFOCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pflow",
			Name:      "pfo_count",
			Help:      "Number of PFOs produced per event.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
		}),
		PFOEnergy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pflow",
			Name:      "pfo_energy_gev",
			Help:      "Energy of each produced PFO, in GeV.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ReclusterChi2: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pflow",
			Subsystem: "recluster",
			Name:      "chi2",
			Help:      "Chi-squared of the selected reclustering candidate.",
			Buckets:   prometheus.LinearBuckets(0, 0.5, 20),
		}),
		FragmentMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pflow",
			Subsystem: "fragment_removal",
			Name:      "merges_total",
			Help:      "Number of daughter-into-parent fragment merges performed.",
		}),
		ClusterMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pflow",
			Subsystem: "topo",
			Name:      "merges_total",
			Help:      "Number of topological-association merges performed.",
		}),
		ReclusterEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pflow",
			Subsystem: "recluster",
			Name:      "attempts_total",
			Help:      "Number of reclustering contexts opened.",
		}),
	}
	reg.MustRegister(m.PFOCount, m.PFOEnergy, m.ReclusterChi2, m.FragmentMerges, m.ClusterMerges, m.ReclusterEvents)
	return m
}
