/*
Copyright 2024 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package observability exposes Prometheus metrics for optimizer runs.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rebalancer"

// Outcome of one combination.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeInfeasible Outcome = "infeasible"
	OutcomeEmpty      Outcome = "empty"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeFatal      Outcome = "fatal"
)

// Phase tells a baseline measurement from the result of an artifact.
type Phase string

const (
	PhaseStart  Phase = "start"
	PhaseResult Phase = "result"
)

// Recorder exposes optimizer metrics. A nil Recorder discards everything.
type Recorder struct {
	combinations     *prometheus.CounterVec
	artifacts        prometheus.Counter
	solveDuration    *prometheus.HistogramVec
	utilization      *prometheus.GaugeVec
	availabilityRisk *prometheus.GaugeVec
	nodeUtilization  *prometheus.GaugeVec
}

// NewRecorder registers the collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		combinations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "combinations_total",
			Help:      "Number of move/drain combinations tried, by outcome",
		}, []string{"outcome"}),
		artifacts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_total",
			Help:      "Number of recommendations written",
		}),
		solveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock time spent in the solver per combination",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"outcome"}),
		utilization: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_utilization_ratio",
			Help:      "Requested over allocatable resources of active nodes",
		}, []string{"phase", "resource"}),
		availabilityRisk: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "availability_risk",
			Help:      "Progressive pod sum of the placement",
		}, []string{"phase"}),
		nodeUtilization: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "node_utilization_percent",
			Help:      "Per node utilization of the snapshot",
		}, []string{"node", "resource"}),
	}
}

// ObserveCombination counts a finished combination and its solve time.
func (r *Recorder) ObserveCombination(outcome Outcome, solveTime time.Duration) {
	if r == nil {
		return
	}
	r.combinations.WithLabelValues(string(outcome)).Inc()
	r.solveDuration.WithLabelValues(string(outcome)).Observe(solveTime.Seconds())
}

// RecordArtifact counts a written recommendation.
func (r *Recorder) RecordArtifact() {
	if r == nil {
		return
	}
	r.artifacts.Inc()
}

// RecordPlacement publishes the cluster wide scores of a placement. Results
// overwrite each other so the gauges hold the latest artifact.
func (r *Recorder) RecordPlacement(phase Phase, cpu, memory, risk float64) {
	if r == nil {
		return
	}
	r.utilization.WithLabelValues(string(phase), "cpu").Set(cpu)
	r.utilization.WithLabelValues(string(phase), "memory").Set(memory)
	r.availabilityRisk.WithLabelValues(string(phase)).Set(risk)
}

// RecordNodeUtil updates the node utilization gauges for reporting.
func (r *Recorder) RecordNodeUtil(node string, cpu, memory float64) {
	if r == nil {
		return
	}
	r.nodeUtilization.WithLabelValues(node, "cpu").Set(cpu)
	r.nodeUtilization.WithLabelValues(node, "memory").Set(memory)
}
