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

package policy

import (
	"fmt"
	"sort"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

// ApplySpread activates the spread policy on every deployment matched by a
// glob in rules. Patterns are applied in sorted order so a deployment
// matched twice ends up with the limit of the last pattern.
func ApplySpread(engine *Engine, objects []state.Object, rules map[string]int) (int, error) {
	patterns := make([]string, 0, len(rules))
	for p := range rules {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	applied := 0
	for _, pattern := range patterns {
		ex := Exclusion{Kind: state.KindDeployment, Pattern: pattern}
		matched := 0
		for _, obj := range state.ObjectsOfKind(objects, state.KindDeployment) {
			if !ex.Matches(obj) {
				continue
			}
			if err := engine.SetPolicyField(obj, FieldSpreadReplicas, rules[pattern]); err != nil {
				return applied, err
			}
			matched++
		}
		if matched == 0 {
			return applied, fmt.Errorf("no such %s matching %q", state.KindDeployment, pattern)
		}
		applied += matched
	}
	return applied, nil
}
