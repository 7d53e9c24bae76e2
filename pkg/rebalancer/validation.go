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
	"fmt"
	"path"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"sigs.k8s.io/cluster-rebalancer/pkg/api/v1alpha1"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/policy"
)

// ValidateRebalancerArgs validates the optimizer arguments. Every violation
// is reported, not only the first.
func ValidateRebalancerArgs(args *RebalancerArgs) error {
	var errs []error

	if args.APIVersion != "" && args.APIVersion != v1alpha1.APIVersion {
		errs = append(errs, fmt.Errorf("apiVersion must be %s, got %s", v1alpha1.APIVersion, args.APIVersion))
	}
	if args.Kind != "" && args.Kind != ArgsKind {
		errs = append(errs, fmt.Errorf("kind must be %s, got %s", ArgsKind, args.Kind))
	}
	if args.RecommendationBound != nil && *args.RecommendationBound < 0 {
		errs = append(errs, fmt.Errorf("recommendationBound must not be negative, got %d", *args.RecommendationBound))
	}
	if args.DrainStep != nil && *args.DrainStep < 0 {
		errs = append(errs, fmt.Errorf("drainStep must not be negative, got %d", *args.DrainStep))
	}
	if args.MaxCombinations < 0 {
		errs = append(errs, fmt.Errorf("maxCombinations must not be negative, got %d", args.MaxCombinations))
	}
	if args.Runs != nil && *args.Runs < 0 {
		errs = append(errs, fmt.Errorf("runs must not be negative, got %d", *args.Runs))
	}
	if args.CPUDivisor < 0 {
		errs = append(errs, fmt.Errorf("cpuDivisor must not be negative, got %d", args.CPUDivisor))
	}
	if args.MemoryDivisor < 0 {
		errs = append(errs, fmt.Errorf("memoryDivisor must not be negative, got %d", args.MemoryDivisor))
	}
	if args.MaxExpansions < 0 {
		errs = append(errs, fmt.Errorf("maxExpansions must not be negative, got %d", args.MaxExpansions))
	}
	if args.CombinationTimeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("combinationTimeout must not be negative, got %v", args.CombinationTimeout.Duration))
	}
	if _, err := policy.ParseExclusions(args.Exclude); err != nil {
		errs = append(errs, err)
	}
	for pattern, n := range args.SpreadReplicas {
		if _, err := path.Match(pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("spreadReplicas pattern %q: %w", pattern, err))
		}
		if n < 1 {
			errs = append(errs, fmt.Errorf("spreadReplicas for %q must be at least 1, got %d", pattern, n))
		}
	}

	return utilerrors.NewAggregate(errs)
}
