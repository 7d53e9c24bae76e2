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

const (
	KeepPolicyName = "KeepNode"
	PinPolicyName  = "PinPods"
)

// KeepPolicy forbids draining a node.
type KeepPolicy struct {
	node state.Object
	keep bool
}

var (
	_ Policy   = &KeepPolicy{}
	_ Property = &KeepPolicy{}
)

func NewKeepPolicy(obj state.Object, _ []state.Object) Policy {
	return &KeepPolicy{node: obj}
}

func (p *KeepPolicy) Name() string { return KeepPolicyName }

func (p *KeepPolicy) Get() (any, error) { return p.keep, nil }

func (p *KeepPolicy) Set(value any) error {
	keep, err := boolValue(FieldKeep, value)
	if err != nil {
		return err
	}
	p.keep = keep
	return nil
}

// Protected reports whether the node is excluded from draining.
func (p *KeepPolicy) Protected() bool { return p.keep }

func (p *KeepPolicy) Register(r *Registration) error {
	r.Hypothesis("KeepNode/"+p.node.Name(), 4, func(m *solver.Model) (solver.Hypothesis, error) {
		if !p.keep {
			return satisfiedHypothesis(), nil
		}
		idx, ok := m.NodeIndex(p.node.Name())
		if !ok {
			return solver.Hypothesis{}, fmt.Errorf("node %s is not in the model", p.node.Name())
		}
		return solver.Hypothesis{
			Goal:     func(st *solver.State) bool { return !st.Drained(idx) },
			Violated: func(st *solver.State) bool { return st.Drained(idx) },
		}, nil
	})
	return nil
}

// PinPolicy forbids moving a pod, or every pod of a deployment.
type PinPolicy struct {
	object  state.Object
	objects []state.Object
	pinned  bool
}

var (
	_ Policy   = &PinPolicy{}
	_ Property = &PinPolicy{}
)

func NewPinPolicy(obj state.Object, objects []state.Object) Policy {
	return &PinPolicy{object: obj, objects: objects}
}

func (p *PinPolicy) Name() string { return PinPolicyName }

func (p *PinPolicy) Get() (any, error) { return p.pinned, nil }

func (p *PinPolicy) Set(value any) error {
	pinned, err := boolValue(FieldPinned, value)
	if err != nil {
		return err
	}
	p.pinned = pinned
	return nil
}

// Pinned reports whether the object's pods must stay where they are.
func (p *PinPolicy) Pinned() bool { return p.pinned }

// podNames resolves the pods the policy covers through the state list.
func (p *PinPolicy) podNames() []string {
	if p.object.Kind() == state.KindPod {
		return []string{p.object.Name()}
	}
	var out []string
	for _, pod := range state.PodsOfDeployment(p.objects, p.object.Name()) {
		out = append(out, pod.Name())
	}
	return out
}

func (p *PinPolicy) Register(r *Registration) error {
	if k := p.object.Kind(); k != state.KindPod && k != state.KindDeployment {
		return fmt.Errorf("%s cannot pin a %s", PinPolicyName, k)
	}
	r.Hypothesis("PinPods/"+p.object.Name(), 4, func(m *solver.Model) (solver.Hypothesis, error) {
		if !p.pinned {
			return satisfiedHypothesis(), nil
		}
		var pods []int
		for _, name := range p.podNames() {
			idx, ok := m.PodIndex(name)
			if !ok {
				return solver.Hypothesis{}, fmt.Errorf("pod %s is not in the model", name)
			}
			pods = append(pods, idx)
		}
		anyMoved := func(st *solver.State) bool {
			for _, idx := range pods {
				if st.Moved(idx) {
					return true
				}
			}
			return false
		}
		return solver.Hypothesis{
			Goal:     func(st *solver.State) bool { return !anyMoved(st) },
			Violated: anyMoved,
		}, nil
	})
	return nil
}
