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

// Package policy binds pluggable policies to cluster objects. A policy is
// activated by setting its field and then contributes hypotheses and
// planned actions to the solver.
package policy

import (
	"fmt"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

// Policy is bound to exactly one object for the duration of a run.
type Policy interface {
	Name() string
	// Register runs once, on activation. It declares the policy's
	// hypotheses and planned actions.
	Register(r *Registration) error
}

// Property is the optional get/set capability of a policy.
type Property interface {
	Get() (any, error)
	Set(value any) error
}

// HypothesisFunc resolves a registered hypothesis against a model.
type HypothesisFunc func(m *solver.Model) (solver.Hypothesis, error)

type registeredHypothesis struct {
	name  string
	order int
	build HypothesisFunc
}

// Registration collects what a policy declares in Register.
type Registration struct {
	hypotheses []registeredHypothesis
	actions    []solver.Action
}

// Hypothesis declares a named goal. build is called once per Apply.
func (r *Registration) Hypothesis(name string, order int, build HypothesisFunc) {
	r.hypotheses = append(r.hypotheses, registeredHypothesis{name: name, order: order, build: build})
}

// Action declares a planned method the solver may call.
func (r *Registration) Action(a solver.Action) {
	r.actions = append(r.actions, a)
}

// Lifecycle is the state of one policy instance.
type Lifecycle int

const (
	Unbound Lifecycle = iota
	Bound
	Activated
)

func (l Lifecycle) String() string {
	switch l {
	case Bound:
		return "Bound"
	case Activated:
		return "Activated"
	default:
		return "Unbound"
	}
}

// CapabilityError is returned when a caller uses a policy field or
// capability that the object's policies do not implement.
type CapabilityError struct {
	Kind   state.Kind
	Object string
	Field  string
	Reason string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("policy field %q of %s %s: %s", e.Field, e.Kind, e.Object, e.Reason)
}

func boolValue(field string, value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%s expects a bool, got %T", field, value)
	}
	return b, nil
}
