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
	"context"
	"fmt"
	"sort"

	"k8s.io/klog/v2"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

type binding struct {
	name         string
	field        string
	policy       Policy
	lifecycle    Lifecycle
	registration *Registration
	registerErr  error
}

// Implementer is the set of policies bound to one object.
type Implementer struct {
	object   state.Object
	bindings []*binding
}

func (i *Implementer) Object() state.Object { return i.object }

// Policy returns the bound policy with the given name.
func (i *Implementer) Policy(name string) (Policy, bool) {
	for _, b := range i.bindings {
		if b.name == name {
			return b.policy, true
		}
	}
	return nil, false
}

// Lifecycle returns the state of the named policy.
func (i *Implementer) Lifecycle(name string) Lifecycle {
	for _, b := range i.bindings {
		if b.name == name {
			return b.lifecycle
		}
	}
	return Unbound
}

func (i *Implementer) property(field string) (*binding, Property, error) {
	for _, b := range i.bindings {
		if b.field != field {
			continue
		}
		prop, ok := b.policy.(Property)
		if !ok {
			return nil, nil, &CapabilityError{Kind: i.object.Kind(), Object: i.object.Name(), Field: field, Reason: fmt.Sprintf("policy %q has no property capability", b.name)}
		}
		return b, prop, nil
	}
	return nil, nil, &CapabilityError{Kind: i.object.Kind(), Object: i.object.Name(), Field: field, Reason: "no policy backs this field"}
}

// Engine memoizes one Implementer per object for a single run.
type Engine struct {
	logger       klog.Logger
	registry     *Registry
	objects      []state.Object
	implementers map[state.Object]*Implementer
	order        []*Implementer
}

func NewEngine(ctx context.Context, registry *Registry, objects []state.Object) *Engine {
	return &Engine{
		logger:       klog.FromContext(ctx).WithValues("component", "policy"),
		registry:     registry,
		objects:      objects,
		implementers: map[state.Object]*Implementer{},
	}
}

// Get returns the policies registered for obj's kind, instantiating them on
// first access.
func (e *Engine) Get(obj state.Object) *Implementer {
	if impl, ok := e.implementers[obj]; ok {
		return impl
	}
	impl := &Implementer{object: obj}
	for _, reg := range e.registry.entries[obj.Kind()] {
		impl.bindings = append(impl.bindings, &binding{
			name:      reg.name,
			field:     reg.field,
			policy:    reg.factory(obj, e.objects),
			lifecycle: Bound,
		})
	}
	e.implementers[obj] = impl
	e.order = append(e.order, impl)
	return impl
}

// GetPolicyField reads a policy-backed field.
func (e *Engine) GetPolicyField(obj state.Object, field string) (any, error) {
	_, prop, err := e.Get(obj).property(field)
	if err != nil {
		return nil, err
	}
	return prop.Get()
}

// SetPolicyField writes a policy-backed field. The first write activates the
// policy and runs its Register hook.
func (e *Engine) SetPolicyField(obj state.Object, field string, value any) error {
	b, prop, err := e.Get(obj).property(field)
	if err != nil {
		return err
	}
	if err := prop.Set(value); err != nil {
		return err
	}
	if b.lifecycle == Activated {
		return nil
	}
	b.lifecycle = Activated
	b.registration = &Registration{}
	b.registerErr = safeRegister(b.policy, b.registration)
	e.logger.V(4).Info("Policy activated", "policy", b.name, "kind", obj.Kind(), "object", obj.Name())
	return nil
}

// Apply resolves the hypotheses of every activated policy against model and
// registers their planned actions on it. A policy that fails is skipped and
// logged; Apply itself never fails.
func (e *Engine) Apply(model *solver.Model) []solver.Hypothesis {
	var out []solver.Hypothesis
	for _, impl := range e.order {
		for _, b := range impl.bindings {
			if b.lifecycle != Activated {
				continue
			}
			logger := e.logger.WithValues("policy", b.name, "kind", impl.object.Kind(), "object", impl.object.Name())
			if b.registerErr != nil {
				logger.Error(b.registerErr, "Skipping policy that failed to register")
				continue
			}
			hypotheses, err := build(b.registration, model)
			if err != nil {
				logger.Error(err, "Skipping policy that failed to build its hypotheses")
				continue
			}
			for _, a := range b.registration.actions {
				model.RegisterAction(a)
			}
			out = append(out, hypotheses...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func build(reg *Registration, model *solver.Model) (out []solver.Hypothesis, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	for _, rh := range reg.hypotheses {
		h, err := rh.build(model)
		if err != nil {
			return nil, fmt.Errorf("hypothesis %s: %w", rh.name, err)
		}
		if h.Goal == nil {
			return nil, fmt.Errorf("hypothesis %s has no goal", rh.name)
		}
		h.Name = rh.name
		h.Order = rh.order
		out = append(out, h)
	}
	return out, nil
}

func safeRegister(p Policy, reg *Registration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in Register: %v", r)
		}
	}()
	return p.Register(reg)
}
