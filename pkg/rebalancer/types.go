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

package rebalancer

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const ArgsKind = "RebalancerArgs"

// RebalancerArgs holds the arguments used to configure an optimizer run.
type RebalancerArgs struct {
	metav1.TypeMeta `json:",inline"`

	// RecommendationBound is the largest number of pod moves tried. Zero
	// tries only the combination without moves or drains.
	RecommendationBound *int `json:"recommendationBound,omitempty"`
	// DrainStep is the number of move steps between two additional drains.
	// Zero disables drains.
	DrainStep *int `json:"drainStep,omitempty"`
	// MaxCombinations caps the combinations attempted. Zero tries the whole
	// generated sequence.
	MaxCombinations int `json:"maxCombinations,omitempty"`
	// Runs caps the number of artifacts produced. Zero is unlimited.
	Runs *int `json:"runs,omitempty"`

	// CPUDivisor is in millicores, MemoryDivisor in mebibytes.
	CPUDivisor    int64 `json:"cpuDivisor,omitempty"`
	MemoryDivisor int64 `json:"memoryDivisor,omitempty"`

	// MaxExpansions bounds the reference solver.
	MaxExpansions int `json:"maxExpansions,omitempty"`
	// CombinationTimeout bounds a single solver call. Zero means no limit.
	CombinationTimeout metav1.Duration `json:"combinationTimeout,omitempty"`

	// Exclude lists Kind:glob patterns of objects the optimizer must not touch.
	Exclude []string `json:"exclude,omitempty"`
	// SpreadReplicas maps a Deployment glob to the most replicas of that
	// deployment any node may host.
	SpreadReplicas map[string]int `json:"spreadReplicas,omitempty"`

	// OutputDir receives the artifacts. Empty keeps them in memory only.
	OutputDir string `json:"outputDir,omitempty"`
}
