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
	"strconv"
	"strings"
)

// State is one placement reached during search. States are immutable once
// handed to hypotheses; actions derive successors with next.
type State struct {
	model   *Model
	assign  []int
	drained []bool
	cpuUsed []int64
	memUsed []int64

	pending      int
	moved        int
	drainedCount int

	parent  *State
	command *Command
	cost    int
}

// Initial returns the snapshot placement.
func (m *Model) Initial() *State {
	st := &State{
		model:   m,
		assign:  make([]int, len(m.Pods)),
		drained: make([]bool, len(m.Nodes)),
		cpuUsed: make([]int64, len(m.Nodes)),
		memUsed: make([]int64, len(m.Nodes)),
	}
	for i, n := range m.Nodes {
		if n.Drained {
			st.drained[i] = true
			st.drainedCount++
		}
	}
	for i, p := range m.Pods {
		st.assign[i] = p.Node
		if p.Node < 0 {
			st.pending++
			continue
		}
		st.cpuUsed[p.Node] += p.CPURequest
		st.memUsed[p.Node] += p.MemRequest
	}
	return st
}

func (s *State) Model() *Model { return s.model }

// NodeOf returns the node index of pod, -1 while pending.
func (s *State) NodeOf(pod int) int { return s.assign[pod] }

func (s *State) Pending() int      { return s.pending }
func (s *State) MovedCount() int   { return s.moved }
func (s *State) DrainedCount() int { return s.drainedCount }
func (s *State) Cost() int         { return s.cost }

func (s *State) Drained(node int) bool { return s.drained[node] }

// Moved reports whether a pod that was running in the snapshot sits on a
// different node now.
func (s *State) Moved(pod int) bool {
	initial := s.model.Pods[pod].Node
	return initial >= 0 && s.assign[pod] != initial
}

// Usage returns the scaled CPU and memory in use on node.
func (s *State) Usage(node int) (int64, int64) {
	return s.cpuUsed[node], s.memUsed[node]
}

// PodsOn returns the pod indexes assigned to node.
func (s *State) PodsOn(node int) []int {
	var out []int
	for pod, n := range s.assign {
		if n == node {
			out = append(out, pod)
		}
	}
	return out
}

// Fits reports whether pod can be added to node without exceeding capacity
// and without breaking eligibility.
func (s *State) Fits(pod, node int) bool {
	n := s.model.Nodes[node]
	p := s.model.Pods[pod]
	if !n.Schedulable || s.drained[node] || !p.Eligible(node) {
		return false
	}
	return s.cpuUsed[node]+p.CPURequest <= n.CPUCapacity &&
		s.memUsed[node]+p.MemRequest <= n.MemCapacity
}

// Commands returns the script that leads from the initial state to s.
func (s *State) Commands() []Command {
	var out []Command
	for cur := s; cur != nil && cur.command != nil; cur = cur.parent {
		out = append(out, *cur.command)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (s *State) next(cmd Command) *State {
	out := &State{
		model:        s.model,
		assign:       append([]int(nil), s.assign...),
		drained:      append([]bool(nil), s.drained...),
		cpuUsed:      append([]int64(nil), s.cpuUsed...),
		memUsed:      append([]int64(nil), s.memUsed...),
		pending:      s.pending,
		moved:        s.moved,
		drainedCount: s.drainedCount,
		parent:       s,
		command:      &cmd,
		cost:         s.cost + 1,
	}
	return out
}

func (s *State) place(pod, node int) {
	p := s.model.Pods[pod]
	from := s.assign[pod]
	if from >= 0 {
		s.cpuUsed[from] -= p.CPURequest
		s.memUsed[from] -= p.MemRequest
	} else {
		s.pending--
	}
	s.assign[pod] = node
	s.cpuUsed[node] += p.CPURequest
	s.memUsed[node] += p.MemRequest
	if p.Node >= 0 && from == p.Node && node != p.Node {
		s.moved++
	}
}

func (s *State) drain(node int) {
	s.drained[node] = true
	s.drainedCount++
}

func (s *State) key() string {
	var b strings.Builder
	for _, n := range s.assign {
		b.WriteString(strconv.Itoa(n))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	for _, d := range s.drained {
		if d {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
