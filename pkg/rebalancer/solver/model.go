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

// NodeInfo is a node in solver units.
type NodeInfo struct {
	Idx         int
	Name        string
	CPUCapacity int64
	MemCapacity int64
	// Schedulable is false for cordoned nodes; they keep their pods but
	// receive no new ones.
	Schedulable bool
	Drained     bool
}

// PodInfo is a pod in solver units.
type PodInfo struct {
	Idx        int
	Name       string
	Namespace  string
	PodName    string
	Deployment string
	// Node is the initial node index, -1 while pending.
	Node       int
	CPURequest int64
	MemRequest int64
	DaemonSet  bool
	// eligible is indexed by node; nil means every node.
	eligible []bool
}

// Eligible reports whether the pod may be placed on node.
func (p *PodInfo) Eligible(node int) bool {
	return p.eligible == nil || p.eligible[node]
}

// Model is the scaled problem handed to a solver. It only ever sees scaled
// integers; raw quantity strings stay in the state package.
type Model struct {
	Nodes  []NodeInfo
	Pods   []PodInfo
	Global *state.GlobalVar

	nodeIndex      map[string]int
	podIndex       map[string]int
	deploymentPods map[string][]int
	actions        []Action
	actionNames    map[string]bool
}

// NewModel builds a model from scaled state objects. It registers the
// StartPod primitive so pending pods can always be placed.
func NewModel(objects []state.Object) (*Model, error) {
	global, err := state.Global(objects)
	if err != nil {
		return nil, err
	}
	m := &Model{
		Global:         global,
		nodeIndex:      map[string]int{},
		podIndex:       map[string]int{},
		deploymentPods: map[string][]int{},
		actionNames:    map[string]bool{},
	}

	for _, n := range state.Nodes(objects) {
		if n.Capacity.ScaledCPU < 1 || n.Capacity.ScaledMemory < 1 {
			return nil, fmt.Errorf("node %s has unscaled capacity", n.Name())
		}
		idx := len(m.Nodes)
		m.nodeIndex[n.Name()] = idx
		m.Nodes = append(m.Nodes, NodeInfo{
			Idx:         idx,
			Name:        n.Name(),
			CPUCapacity: n.Capacity.ScaledCPU,
			MemCapacity: n.Capacity.ScaledMemory,
			Schedulable: !n.Unschedulable,
			Drained:     !n.Active(),
		})
	}

	for _, p := range state.Pods(objects) {
		if p.Requests.ScaledCPU < 1 || p.Requests.ScaledMemory < 1 {
			return nil, fmt.Errorf("pod %s has unscaled requests", p.Name())
		}
		node := -1
		if !p.Pending() {
			idx, ok := m.nodeIndex[p.NodeName]
			if !ok {
				return nil, fmt.Errorf("pod %s is bound to unknown node %q", p.Name(), p.NodeName)
			}
			node = idx
		}
		info := PodInfo{
			Idx:        len(m.Pods),
			Name:       p.Name(),
			Namespace:  p.Namespace,
			PodName:    p.MetadataName,
			Deployment: p.DeploymentName,
			Node:       node,
			CPURequest: p.Requests.ScaledCPU,
			MemRequest: p.Requests.ScaledMemory,
			DaemonSet:  p.DaemonSet,
		}
		if p.EligibleNodes != nil {
			info.eligible = make([]bool, len(m.Nodes))
			for _, name := range p.EligibleNodes {
				if idx, ok := m.nodeIndex[name]; ok {
					info.eligible[idx] = true
				}
			}
		}
		m.podIndex[info.Name] = info.Idx
		if info.Deployment != "" {
			m.deploymentPods[info.Deployment] = append(m.deploymentPods[info.Deployment], info.Idx)
		}
		m.Pods = append(m.Pods, info)
	}

	m.RegisterAction(StartPodAction{})
	return m, nil
}

func (m *Model) NodeIndex(name string) (int, bool) {
	idx, ok := m.nodeIndex[name]
	return idx, ok
}

func (m *Model) PodIndex(name string) (int, bool) {
	idx, ok := m.podIndex[name]
	return idx, ok
}

// DeploymentPods returns the pod indexes owned by a deployment.
func (m *Model) DeploymentPods(name string) []int {
	return m.deploymentPods[name]
}

// RegisterAction makes a planned action callable by the solver. Registering
// the same action name twice is a no-op.
func (m *Model) RegisterAction(a Action) {
	if m.actionNames[a.Name()] {
		return
	}
	m.actionNames[a.Name()] = true
	m.actions = append(m.actions, a)
}

// Actions returns the registered actions in registration order.
func (m *Model) Actions() []Action {
	return append([]Action(nil), m.actions...)
}

// BaseHypotheses are the goals every model carries regardless of policy.
func (m *Model) BaseHypotheses() []Hypothesis {
	return []Hypothesis{{
		Name:  "SchedulerQueueClean",
		Order: 0,
		Goal: func(st *State) bool {
			return st.Pending() == 0
		},
	}}
}

// MaxValue is the largest scaled integer in the model.
func (m *Model) MaxValue() int64 {
	var largest int64
	for _, n := range m.Nodes {
		largest = maxOf(largest, n.CPUCapacity, n.MemCapacity)
	}
	for _, p := range m.Pods {
		largest = maxOf(largest, p.CPURequest, p.MemRequest)
	}
	return largest
}

func maxOf(values ...int64) int64 {
	var out int64
	for _, v := range values {
		if v > out {
			out = v
		}
	}
	return out
}
