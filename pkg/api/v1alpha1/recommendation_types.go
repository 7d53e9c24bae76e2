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

// Package v1alpha1 holds the report objects written next to each
// rebalancing script.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	GroupName = "rebalancer.x-k8s.io"
	Version   = "v1alpha1"

	RebalanceRecommendationKind = "RebalanceRecommendation"
)

// APIVersion is the apiVersion stamped on every report.
var APIVersion = GroupName + "/" + Version

// RebalanceRecommendation records one successful combination of the
// optimizer: the commands it proposes and the metrics before and after.
type RebalanceRecommendation struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   RebalanceRecommendationSpec   `json:"spec,omitempty"`
	Status RebalanceRecommendationStatus `json:"status,omitempty"`
}

// RebalanceRecommendationSpec defines the proposed changes
type RebalanceRecommendationSpec struct {
	// Index is the artifact number; the script sits next to the report as <Index>.sh
	Index int `json:"index"`

	// SnapshotFingerprint identifies the cluster snapshot the commands apply to
	SnapshotFingerprint string `json:"snapshotFingerprint"`

	// TargetMoves and TargetDrains are the combination that produced this recommendation
	TargetMoves  int `json:"targetMoves"`
	TargetDrains int `json:"targetDrains"`

	// Commands is the ordered command list
	Commands []RecommendedCommand `json:"commands"`
}

// RecommendedCommand is a single step of the script
type RecommendedCommand struct {
	// Type is one of StartPod, MovePod or DrainNode
	Type string `json:"type"`

	PodName      string `json:"podName,omitempty"`
	PodNamespace string `json:"podNamespace,omitempty"`
	FromNode     string `json:"fromNode,omitempty"`
	TargetNode   string `json:"targetNode,omitempty"`

	// Node is set for DrainNode
	Node string `json:"node,omitempty"`
}

// RebalanceRecommendationStatus carries the metrics of the recommendation
type RebalanceRecommendationStatus struct {
	Before MetricSummary `json:"before"`
	After  MetricSummary `json:"after"`

	MovedPods    []string `json:"movedPods,omitempty"`
	DrainedNodes []string `json:"drainedNodes,omitempty"`
	// EvictionWaves is the number of sequential rounds needed to apply the
	// moves with one unavailable replica per deployment.
	EvictionWaves int `json:"evictionWaves,omitempty"`
	// ReplicaImpact is the share of deployment replicas that are restarted.
	ReplicaImpact string `json:"replicaImpact,omitempty"`

	// SolveTime is the wall-clock time the solver spent on the combination
	SolveTime metav1.Duration `json:"solveTime"`

	GeneratedAt metav1.Time `json:"generatedAt"`
}

// MetricSummary is a metric snapshot rendered with fixed precision
type MetricSummary struct {
	// NodeUtilization is a percentage with two decimals, e.g. "50.00"
	NodeUtilization string `json:"nodeUtilization"`

	MemoryUtilization string `json:"memoryUtilization"`

	// AvailabilityRisk is the progressive pod sum with three decimals
	AvailabilityRisk string `json:"availabilityRisk"`

	// BalanceStdDev is the standard deviation of per node CPU utilization
	BalanceStdDev string `json:"balanceStdDev"`
}
