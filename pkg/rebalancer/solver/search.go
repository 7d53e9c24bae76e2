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
	"container/heap"
	"context"
	"fmt"
	"sort"

	"k8s.io/klog/v2"
)

const (
	// DefaultMaxExpansions bounds the number of states Search expands.
	DefaultMaxExpansions = 100000
	// DefaultMaxLinear is the largest integer Search represents.
	DefaultMaxLinear int64 = 1 << 16
)

// Search is a best-first solver. Every command costs one; the heuristic is
// the number of pending pods plus the largest hypothesis estimate.
type Search struct {
	MaxExpansions int
	MaxLinear     int64
}

var _ Solver = &Search{}

func NewSearch(maxExpansions int) *Search {
	if maxExpansions <= 0 {
		maxExpansions = DefaultMaxExpansions
	}
	return &Search{MaxExpansions: maxExpansions, MaxLinear: DefaultMaxLinear}
}

// Contains exposes the numeric table of the solver.
func (s *Search) Contains(n int64) bool {
	return n >= 1 && n <= s.MaxLinear
}

func (s *Search) Solve(ctx context.Context, model *Model, hypotheses []Hypothesis, actions []Action) ([]Command, error) {
	if model == nil {
		return nil, fmt.Errorf("nil model")
	}
	if largest := model.MaxValue(); largest > s.MaxLinear {
		return nil, fmt.Errorf("model value %d exceeds solver limit %d", largest, s.MaxLinear)
	}
	for _, h := range hypotheses {
		if h.Goal == nil {
			return nil, fmt.Errorf("hypothesis %q has no goal", h.Name)
		}
	}
	hypotheses = sortHypotheses(hypotheses)
	logger := klog.FromContext(ctx)

	if reason := preflight(model, actions); reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrCapacityInfeasible, reason)
	}

	initial := model.Initial()
	if violated(initial, hypotheses) {
		return nil, fmt.Errorf("%w: initial placement violates a hypothesis", ErrCapacityInfeasible)
	}

	open := &frontier{}
	heap.Push(open, &entry{state: initial, f: estimate(initial, hypotheses)})
	best := map[string]int{initial.key(): 0}
	seq := 0
	expansions := 0

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := heap.Pop(open).(*entry).state
		if best[cur.key()] < cur.cost {
			continue
		}
		if satisfied(cur, hypotheses) {
			logger.V(4).Info("Search finished", "expansions", expansions, "commands", cur.cost)
			return cur.Commands(), nil
		}
		expansions++
		if expansions > s.MaxExpansions {
			return nil, fmt.Errorf("%w: search budget of %d expansions exhausted", ErrCapacityInfeasible, s.MaxExpansions)
		}
		for _, action := range actions {
			for _, next := range action.Expand(cur) {
				if violated(next, hypotheses) {
					continue
				}
				k := next.key()
				if cost, ok := best[k]; ok && cost <= next.cost {
					continue
				}
				best[k] = next.cost
				seq++
				heap.Push(open, &entry{state: next, f: next.cost + estimate(next, hypotheses), seq: seq})
			}
		}
	}

	logger.V(4).Info("Search space exhausted", "expansions", expansions)
	return nil, fmt.Errorf("%w: no placement satisfies %d hypotheses", ErrCapacityInfeasible, len(hypotheses))
}

func sortHypotheses(hypotheses []Hypothesis) []Hypothesis {
	out := append([]Hypothesis(nil), hypotheses...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func satisfied(st *State, hypotheses []Hypothesis) bool {
	for _, h := range hypotheses {
		if !h.Goal(st) {
			return false
		}
	}
	return true
}

func violated(st *State, hypotheses []Hypothesis) bool {
	for _, h := range hypotheses {
		if h.Violated != nil && h.Violated(st) {
			return true
		}
	}
	return false
}

func estimate(st *State, hypotheses []Hypothesis) int {
	most := 0
	for _, h := range hypotheses {
		if h.Estimate == nil {
			continue
		}
		if e := h.Estimate(st); e > most {
			most = e
		}
	}
	return st.pending + most
}

// preflight returns a reason when the model cannot be solved no matter
// which commands are chosen.
func preflight(m *Model, actions []Action) string {
	for _, p := range m.Pods {
		if p.Node >= 0 {
			continue
		}
		fits := false
		for _, n := range m.Nodes {
			if n.Schedulable && !n.Drained && p.Eligible(n.Idx) && p.CPURequest <= n.CPUCapacity && p.MemRequest <= n.MemCapacity {
				fits = true
				break
			}
		}
		if !fits {
			return fmt.Sprintf("pending pod %s fits no node", p.Name)
		}
	}

	names := map[string]bool{}
	for _, a := range actions {
		names[a.Name()] = true
	}
	if m.Global == nil {
		return ""
	}

	if names[string(CommandMovePod)] {
		movable := 0
		for _, p := range m.Pods {
			if !p.DaemonSet && p.Deployment != "" && p.Node >= 0 {
				movable++
			}
		}
		if m.Global.TargetAmountOfRecommendations > movable {
			return fmt.Sprintf("%d moves requested but only %d pods are movable", m.Global.TargetAmountOfRecommendations, movable)
		}
	}

	drains := m.Global.TargetNodesDrainedLength
	if names[string(CommandDrainNode)] && drains > 0 {
		if drains >= len(m.Nodes) {
			return fmt.Sprintf("%d drains requested for %d nodes", drains, len(m.Nodes))
		}
		var cpuDemand, memDemand int64
		for _, p := range m.Pods {
			if !p.DaemonSet {
				cpuDemand += p.CPURequest
				memDemand += p.MemRequest
			}
		}
		cpuCaps := make([]int64, len(m.Nodes))
		memCaps := make([]int64, len(m.Nodes))
		for i, n := range m.Nodes {
			cpuCaps[i] = n.CPUCapacity
			memCaps[i] = n.MemCapacity
		}
		if cpuDemand > sumWithoutSmallest(cpuCaps, drains) {
			return fmt.Sprintf("cpu demand does not fit after draining %d nodes", drains)
		}
		if memDemand > sumWithoutSmallest(memCaps, drains) {
			return fmt.Sprintf("memory demand does not fit after draining %d nodes", drains)
		}
	}
	return ""
}

func sumWithoutSmallest(values []int64, k int) int64 {
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var sum int64
	for _, v := range sorted[k:] {
		sum += v
	}
	return sum
}

type entry struct {
	state *State
	f     int
	seq   int
}

// frontier orders entries by f, then deeper first, then insertion order.
type frontier []*entry

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].f != f[j].f {
		return f[i].f < f[j].f
	}
	if f[i].state.cost != f[j].state.cost {
		return f[i].state.cost > f[j].state.cost
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(*entry)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}
