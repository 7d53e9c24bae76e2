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

	"k8s.io/apimachinery/pkg/util/sets"
)

// Constraint reports whether a state is acceptable.
type Constraint func(st *State) bool

// ResourceConstraint checks capacity on the given nodes. Nodes outside the
// set are left alone so an overcommitted snapshot does not fail a script
// that never touched them.
func ResourceConstraint(nodes sets.Set[string]) Constraint {
	return func(st *State) bool {
		for idx, node := range st.model.Nodes {
			if !nodes.Has(node.Name) {
				continue
			}
			cpuUsed, memUsed := st.Usage(idx)
			if cpuUsed > node.CPUCapacity {
				return false // CPU capacity exceeded
			}
			if memUsed > node.MemCapacity {
				return false // Memory capacity exceeded
			}
		}
		return true
	}
}

// PlacementConstraint checks that every pod placed by the script sits on
// an eligible, active node and that drained nodes only keep DaemonSet pods.
func PlacementConstraint() Constraint {
	return func(st *State) bool {
		for pod, node := range st.assign {
			p := st.model.Pods[pod]
			if node < 0 {
				continue
			}
			if st.drained[node] && !p.DaemonSet {
				return false
			}
			placed := st.Moved(pod) || p.Node < 0
			if placed && !p.Eligible(node) {
				return false
			}
		}
		return true
	}
}

// CombineConstraints combines multiple constraints into one
func CombineConstraints(constraints ...Constraint) Constraint {
	return func(st *State) bool {
		for _, constraint := range constraints {
			if !constraint(st) {
				return false
			}
		}
		return true
	}
}

// Replay applies a script to the initial state of the model. It rejects
// commands that reference unknown objects or disagree with the placement.
func (m *Model) Replay(script []Command) (*State, error) {
	st := m.Initial()
	for i, cmd := range script {
		switch cmd.Type {
		case CommandStartPod, CommandMovePod:
			pod, ok := m.PodIndex(cmd.Pod)
			if !ok {
				return nil, fmt.Errorf("command %d: unknown pod %q", i, cmd.Pod)
			}
			to, ok := m.NodeIndex(cmd.To)
			if !ok {
				return nil, fmt.Errorf("command %d: unknown node %q", i, cmd.To)
			}
			current := st.assign[pod]
			if cmd.Type == CommandStartPod && current >= 0 {
				return nil, fmt.Errorf("command %d: pod %s is not pending", i, cmd.Pod)
			}
			if cmd.Type == CommandMovePod {
				if current < 0 || m.Nodes[current].Name != cmd.From {
					return nil, fmt.Errorf("command %d: pod %s is not on node %s", i, cmd.Pod, cmd.From)
				}
				if st.Moved(pod) {
					return nil, fmt.Errorf("command %d: pod %s moved twice", i, cmd.Pod)
				}
			}
			next := st.next(cmd)
			next.place(pod, to)
			st = next
		case CommandDrainNode:
			node, ok := m.NodeIndex(cmd.Node)
			if !ok {
				return nil, fmt.Errorf("command %d: unknown node %q", i, cmd.Node)
			}
			if st.drained[node] {
				return nil, fmt.Errorf("command %d: node %s drained twice", i, cmd.Node)
			}
			next := st.next(cmd)
			next.drain(node)
			st = next
		default:
			return nil, fmt.Errorf("command %d: unknown command type %q", i, cmd.Type)
		}
	}
	return st, nil
}

// Verify replays a script and checks it against the capacity and placement
// constraints.
func Verify(m *Model, script []Command) (*State, error) {
	st, err := m.Replay(script)
	if err != nil {
		return nil, err
	}
	targets := sets.New[string]()
	for _, cmd := range script {
		if cmd.To != "" {
			targets.Insert(cmd.To)
		}
	}
	if !CombineConstraints(ResourceConstraint(targets), PlacementConstraint())(st) {
		return nil, fmt.Errorf("script of %d commands violates node capacity or placement rules", len(script))
	}
	return st, nil
}
