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
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"sigs.k8s.io/cluster-rebalancer/pkg/api/v1alpha1"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/quantity"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
)

const (
	DefaultRecommendationBound = 3
	DefaultDrainStep           = 2
	DefaultRuns                = 3
)

func SetDefaults_RebalancerArgs(args *RebalancerArgs) {
	klog.V(5).InfoS("Setting defaults", "kind", ArgsKind)

	if args.APIVersion == "" {
		args.APIVersion = v1alpha1.APIVersion
	}
	if args.Kind == "" {
		args.Kind = ArgsKind
	}
	if args.RecommendationBound == nil {
		args.RecommendationBound = ptr.To(DefaultRecommendationBound)
	}
	if args.DrainStep == nil {
		args.DrainStep = ptr.To(DefaultDrainStep)
	}
	if args.Runs == nil {
		args.Runs = ptr.To(DefaultRuns)
	}
	if args.CPUDivisor == 0 {
		args.CPUDivisor = quantity.DefaultCPUDivisor
	}
	if args.MemoryDivisor == 0 {
		args.MemoryDivisor = quantity.DefaultMemoryDivisor
	}
	if args.MaxExpansions == 0 {
		args.MaxExpansions = solver.DefaultMaxExpansions
	}
}
