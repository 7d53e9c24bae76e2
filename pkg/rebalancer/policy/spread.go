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

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

const SpreadPolicyName = "SpreadReplicas"

// SpreadPolicy caps the number of a deployment's replicas on any one node.
type SpreadPolicy struct {
	deployment state.Object
	maxPerNode int
}

var (
	_ Policy   = &SpreadPolicy{}
	_ Property = &SpreadPolicy{}
)

func NewSpreadPolicy(obj state.Object, _ []state.Object) Policy {
	return &SpreadPolicy{deployment: obj}
}

func (p *SpreadPolicy) Name() string { return SpreadPolicyName }

func (p *SpreadPolicy) Get() (any, error) { return p.maxPerNode, nil }

func (p *SpreadPolicy) Set(value any) error {
	n, ok := value.(int)
	if !ok {
		return fmt.Errorf("%s expects an int, got %T", FieldSpreadReplicas, value)
	}
	if n < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", FieldSpreadReplicas, n)
	}
	p.maxPerNode = n
	return nil
}

func (p *SpreadPolicy) Register(r *Registration) error {
	r.Hypothesis("SpreadReplicas/"+p.deployment.Name(), 3, func(m *solver.Model) (solver.Hypothesis, error) {
		pods := m.DeploymentPods(p.deployment.Name())
		limit := p.maxPerNode
		return solver.Hypothesis{
			Goal: func(st *solver.State) bool { return excess(st, pods, limit) == 0 },
			// Each move lowers the excess by at most one.
			Estimate: func(st *solver.State) int { return excess(st, pods, limit) },
		}, nil
	})
	r.Action(solver.MovePodAction{})
	return nil
}

func excess(st *solver.State, pods []int, limit int) int {
	counts := map[int]int{}
	for _, pod := range pods {
		if n := st.NodeOf(pod); n >= 0 {
			counts[n]++
		}
	}
	total := 0
	for _, c := range counts {
		if c > limit {
			total += c - limit
		}
	}
	return total
}
