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

const OptimizePolicyName = "OptimizeDirectly"

// OptimizePolicy asks the solver for exactly the number of drained nodes and
// at least the number of pod moves held by the GlobalVar.
type OptimizePolicy struct {
	global  *state.GlobalVar
	enabled bool
}

var (
	_ Policy   = &OptimizePolicy{}
	_ Property = &OptimizePolicy{}
)

func NewOptimizePolicy(obj state.Object, _ []state.Object) Policy {
	g, _ := obj.(*state.GlobalVar)
	return &OptimizePolicy{global: g}
}

func (p *OptimizePolicy) Name() string { return OptimizePolicyName }

func (p *OptimizePolicy) Get() (any, error) { return p.enabled, nil }

func (p *OptimizePolicy) Set(value any) error {
	enabled, err := boolValue(FieldOptimize, value)
	if err != nil {
		return err
	}
	p.enabled = enabled
	return nil
}

// Targets returns the move and drain targets the hypotheses will use.
func (p *OptimizePolicy) Targets() (moves, drains int) {
	if p.global == nil {
		return 0, 0
	}
	return p.global.TargetAmountOfRecommendations, p.global.TargetNodesDrainedLength
}

func (p *OptimizePolicy) Register(r *Registration) error {
	if p.global == nil {
		return fmt.Errorf("%s must be bound to a %s", OptimizePolicyName, state.KindGlobalVar)
	}
	r.Hypothesis("RecommendationsReached", 1, func(*solver.Model) (solver.Hypothesis, error) {
		if !p.enabled {
			return satisfiedHypothesis(), nil
		}
		target := p.global.TargetAmountOfRecommendations
		if target < 0 {
			return solver.Hypothesis{}, fmt.Errorf("negative move target %d", target)
		}
		return solver.Hypothesis{
			Goal: func(st *solver.State) bool { return st.MovedCount() >= target },
			Estimate: func(st *solver.State) int {
				return remaining(target, st.MovedCount())
			},
		}, nil
	})
	r.Hypothesis("NodesDrainedReached", 2, func(*solver.Model) (solver.Hypothesis, error) {
		if !p.enabled {
			return satisfiedHypothesis(), nil
		}
		target := p.global.TargetNodesDrainedLength
		if target < 0 {
			return solver.Hypothesis{}, fmt.Errorf("negative drain target %d", target)
		}
		return solver.Hypothesis{
			Goal:     func(st *solver.State) bool { return st.DrainedCount() == target },
			Violated: func(st *solver.State) bool { return st.DrainedCount() > target },
			Estimate: func(st *solver.State) int {
				return remaining(target, st.DrainedCount())
			},
		}, nil
	})
	r.Action(solver.MovePodAction{})
	r.Action(solver.DrainNodeAction{})
	return nil
}

func remaining(target, done int) int {
	if done >= target {
		return 0
	}
	return target - done
}

func satisfiedHypothesis() solver.Hypothesis {
	return solver.Hypothesis{Goal: func(*solver.State) bool { return true }}
}
