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

package state

import (
	"fmt"
	"strconv"
)

type objectKey struct {
	kind Kind
	name string
}

func keyOf(obj Object) objectKey {
	return objectKey{kind: obj.Kind(), name: obj.Name()}
}

// Deduplicate keeps the first occurrence of every (kind, name) pair and
// preserves input order.
func Deduplicate(objects []Object) []Object {
	seen := make(map[objectKey]bool, len(objects))
	out := make([]Object, 0, len(objects))
	for _, obj := range objects {
		k := keyOf(obj)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, obj)
	}
	return out
}

// FindDuplicates returns every entry Deduplicate would drop, in input order.
func FindDuplicates(objects []Object) []Object {
	seen := make(map[objectKey]bool, len(objects))
	var dups []Object
	for _, obj := range objects {
		k := keyOf(obj)
		if seen[k] {
			dups = append(dups, obj)
			continue
		}
		seen[k] = true
	}
	return dups
}

// RemoveByName drops all entries named name, regardless of kind.
func RemoveByName(objects []Object, name string) []Object {
	out := make([]Object, 0, len(objects))
	for _, obj := range objects {
		if obj.Name() != name {
			out = append(out, obj)
		}
	}
	return out
}

// ObjectsOfKind returns the objects of one kind in input order.
func ObjectsOfKind(objects []Object, kind Kind) []Object {
	var out []Object
	for _, obj := range objects {
		if obj.Kind() == kind {
			out = append(out, obj)
		}
	}
	return out
}

// Find returns the object with the given kind and name, or nil.
func Find(objects []Object, kind Kind, name string) Object {
	for _, obj := range objects {
		if obj.Kind() == kind && obj.Name() == name {
			return obj
		}
	}
	return nil
}

func Nodes(objects []Object) []*Node {
	var out []*Node
	for _, obj := range objects {
		if n, ok := obj.(*Node); ok {
			out = append(out, n)
		}
	}
	return out
}

func Pods(objects []Object) []*Pod {
	var out []*Pod
	for _, obj := range objects {
		if p, ok := obj.(*Pod); ok {
			out = append(out, p)
		}
	}
	return out
}

func Deployments(objects []Object) []*Deployment {
	var out []*Deployment
	for _, obj := range objects {
		if d, ok := obj.(*Deployment); ok {
			out = append(out, d)
		}
	}
	return out
}

// Global returns the GlobalVar singleton.
func Global(objects []Object) (*GlobalVar, error) {
	var found *GlobalVar
	for _, obj := range objects {
		g, ok := obj.(*GlobalVar)
		if !ok {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("snapshot holds more than one %s", KindGlobalVar)
		}
		found = g
	}
	if found == nil {
		return nil, fmt.Errorf("snapshot holds no %s", KindGlobalVar)
	}
	return found, nil
}

// PodsOnNode returns the pods currently assigned to nodeName.
func PodsOnNode(objects []Object, nodeName string) []*Pod {
	var out []*Pod
	for _, p := range Pods(objects) {
		if p.NodeName == nodeName {
			out = append(out, p)
		}
	}
	return out
}

// PodsOfDeployment returns the pods owned by the deployment named name.
func PodsOfDeployment(objects []Object, name string) []*Pod {
	var out []*Pod
	for _, p := range Pods(objects) {
		if p.DeploymentName == name {
			out = append(out, p)
		}
	}
	return out
}

// DeepCopy copies every object so callers can mutate the result freely.
func DeepCopy(objects []Object) []Object {
	out := make([]Object, len(objects))
	for i, obj := range objects {
		out[i] = obj.DeepCopyObject()
	}
	return out
}

// NameGenerator hands out default names. One generator lives for one load so
// repeated loads of the same snapshot produce the same names.
type NameGenerator struct {
	counters map[string]int
}

func NewNameGenerator() *NameGenerator {
	return &NameGenerator{counters: map[string]int{}}
}

// Next returns prefix-N with N counting from 1 per prefix.
func (g *NameGenerator) Next(prefix string) string {
	g.counters[prefix]++
	return prefix + "-" + strconv.Itoa(g.counters[prefix])
}
