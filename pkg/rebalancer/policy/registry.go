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

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

// Factory builds a policy bound to obj. objects is the state object list of
// the current run.
type Factory func(obj state.Object, objects []state.Object) Policy

type entry struct {
	name    string
	field   string
	factory Factory
}

// Registry lists the policies of every kind and the field backing each.
type Registry struct {
	entries map[state.Kind][]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: map[state.Kind][]entry{}}
}

// Register adds a policy for kind. field is the policy-backed field name;
// it may be empty for policies with function capabilities only.
func (r *Registry) Register(kind state.Kind, name, field string, factory Factory) error {
	for _, e := range r.entries[kind] {
		if e.name == name {
			return fmt.Errorf("policy %q already registered for %s", name, kind)
		}
		if field != "" && e.field == field {
			return fmt.Errorf("field %q of %s is already backed by policy %q", field, kind, e.name)
		}
	}
	r.entries[kind] = append(r.entries[kind], entry{name: name, field: field, factory: factory})
	return nil
}

// Fields returns the policy-backed fields of kind in registration order.
func (r *Registry) Fields(kind state.Kind) []string {
	var out []string
	for _, e := range r.entries[kind] {
		if e.field != "" {
			out = append(out, e.field)
		}
	}
	return out
}

const (
	FieldOptimize       = "optimize"
	FieldSpreadReplicas = "spread_replicas"
	FieldKeep           = "keep"
	FieldPinned         = "pinned"
)

// DefaultRegistry returns the registry with the built-in policies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, reg := range []struct {
		kind    state.Kind
		name    string
		field   string
		factory Factory
	}{
		{state.KindGlobalVar, OptimizePolicyName, FieldOptimize, NewOptimizePolicy},
		{state.KindDeployment, SpreadPolicyName, FieldSpreadReplicas, NewSpreadPolicy},
		{state.KindDeployment, PinPolicyName, FieldPinned, NewPinPolicy},
		{state.KindPod, PinPolicyName, FieldPinned, NewPinPolicy},
		{state.KindNode, KeepPolicyName, FieldKeep, NewKeepPolicy},
	} {
		if err := r.Register(reg.kind, reg.name, reg.field, reg.factory); err != nil {
			panic(err)
		}
	}
	return r
}
