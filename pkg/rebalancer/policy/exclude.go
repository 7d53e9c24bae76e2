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
	"path"
	"strings"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

// Exclusion is one parsed "Kind:glob" pattern. Kind may itself be a glob,
// as in "*:web".
type Exclusion struct {
	Kind    state.Kind
	Pattern string
}

var exclusionFields = map[state.Kind]string{
	state.KindNode:       FieldKeep,
	state.KindPod:        FieldPinned,
	state.KindDeployment: FieldPinned,
}

// ParseExclusions parses patterns such as "Node:infra-*,Deployment:kube-system/*".
// Each element may itself hold comma separated patterns.
func ParseExclusions(patterns []string) ([]Exclusion, error) {
	var out []Exclusion
	for _, raw := range patterns {
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			kind, pattern, ok := strings.Cut(item, ":")
			if !ok || pattern == "" {
				return nil, fmt.Errorf("exclusion %q is not of the form Kind:pattern", item)
			}
			if _, err := path.Match(kind, ""); err != nil {
				return nil, fmt.Errorf("exclusion %q: %w", item, err)
			}
			k := state.Kind(kind)
			if !excludableKind(k) {
				return nil, fmt.Errorf("exclusion %q: no such kind %q", item, kind)
			}
			if _, err := path.Match(pattern, ""); err != nil {
				return nil, fmt.Errorf("exclusion %q: %w", item, err)
			}
			out = append(out, Exclusion{Kind: k, Pattern: pattern})
		}
	}
	return out, nil
}

// Matches reports whether obj is selected by the exclusion. Namespaced
// objects match on either their qualified or their bare name.
func (e Exclusion) Matches(obj state.Object) bool {
	if _, ok := exclusionFields[obj.Kind()]; !ok {
		return false
	}
	if ok, _ := path.Match(string(e.Kind), string(obj.Kind())); !ok {
		return false
	}
	if ok, _ := path.Match(e.Pattern, obj.Name()); ok {
		return true
	}
	_, bare, namespaced := strings.Cut(obj.Name(), "/")
	if !namespaced {
		return false
	}
	ok, _ := path.Match(e.Pattern, bare)
	return ok
}

// ApplyExclusions activates the keep or pin policy of every object matched
// by an exclusion. A pattern that matches nothing is an error.
func ApplyExclusions(engine *Engine, objects []state.Object, exclusions []Exclusion) (int, error) {
	applied := 0
	for _, ex := range exclusions {
		matched := 0
		for _, obj := range objects {
			if !ex.Matches(obj) {
				continue
			}
			if err := engine.SetPolicyField(obj, exclusionFields[obj.Kind()], true); err != nil {
				return applied, err
			}
			matched++
		}
		if matched == 0 {
			return applied, fmt.Errorf("no %s object matching %q", ex.Kind, ex.Pattern)
		}
		applied += matched
	}
	return applied, nil
}

// excludableKind reports whether the kind glob selects at least one kind
// that carries an exclusion policy.
func excludableKind(glob state.Kind) bool {
	for k := range exclusionFields {
		if ok, _ := path.Match(string(glob), string(k)); ok {
			return true
		}
	}
	return false
}
