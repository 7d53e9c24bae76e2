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

package solver

import (
	"fmt"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

// Apply writes the placement of s back into the state objects the model was
// built from: pods get their final node, drained nodes are marked drained.
// Pods left on a drained node keep their node name and drop out of metrics
// together with it.
func (s *State) Apply(objects []state.Object) error {
	for _, n := range state.Nodes(objects) {
		idx, ok := s.model.NodeIndex(n.Name())
		if !ok {
			return fmt.Errorf("node %s is not in the model", n.Name())
		}
		if s.drained[idx] {
			n.Status = state.NodeDrained
		}
	}
	for _, p := range state.Pods(objects) {
		idx, ok := s.model.PodIndex(p.Name())
		if !ok {
			return fmt.Errorf("pod %s is not in the model", p.Name())
		}
		if node := s.assign[idx]; node >= 0 {
			p.NodeName = s.model.Nodes[node].Name
		}
	}
	return nil
}
