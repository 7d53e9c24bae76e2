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

// Package report scores placements and renders the artifacts of a run.
package report

import (
	"math"
	"sort"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

// NodeUsage tracks utilization for a specific active node
type NodeUsage struct {
	Name           string
	Pods           int
	CPUUtilization float64 // percentage (0-100)
	MemUtilization float64 // percentage (0-100)
}

// Metric is a read-only snapshot of a placement.
type Metric struct {
	// NodeUtilization is the CPU requested by scheduled pods over the CPU
	// capacity of active nodes, in [0, 1].
	NodeUtilization float64
	// MemoryUtilization is the same ratio for memory.
	MemoryUtilization float64
	// ProgressivePodSum is the availability risk: on every node the k-th
	// pod adds k, and the total is divided by the number of scheduled pods.
	// One pod per node scores 1; higher means more co-located pods.
	ProgressivePodSum float64
	// BalanceStdDev is the standard deviation of per node CPU utilization
	// percentages.
	BalanceStdDev float64

	MovedPods    []string
	DrainedNodes []string
	Disruption   Disruption
	RunTime      time.Duration

	Nodes []NodeUsage
}

// Calc scores the placement held by objects. Drained nodes, and any pod still
// bound to one, are left out. script supplies the moved and drained sets; it
// may be nil for the baseline.
func Calc(objects []state.Object, script []solver.Command) Metric {
	var m Metric

	active := map[string]*NodeUsage{}
	var cpuCapacity, memCapacity int64
	capacity := map[string]state.Resources{}
	for _, n := range state.Nodes(objects) {
		if !n.Active() {
			continue
		}
		active[n.Name()] = &NodeUsage{Name: n.Name()}
		capacity[n.Name()] = n.Capacity
		cpuCapacity += n.Capacity.CPUMilli
		memCapacity += n.Capacity.MemoryMi
	}

	var cpuRequested, memRequested int64
	cpuUsed := map[string]int64{}
	memUsed := map[string]int64{}
	scheduled := 0
	for _, p := range state.Pods(objects) {
		usage, ok := active[p.NodeName]
		if p.Pending() || !ok {
			continue
		}
		scheduled++
		usage.Pods++
		cpuRequested += p.Requests.CPUMilli
		memRequested += p.Requests.MemoryMi
		cpuUsed[p.NodeName] += p.Requests.CPUMilli
		memUsed[p.NodeName] += p.Requests.MemoryMi
	}

	m.NodeUtilization = ratio(cpuRequested, cpuCapacity)
	m.MemoryUtilization = ratio(memRequested, memCapacity)
	m.ProgressivePodSum = progressivePodSum(active, scheduled)

	names := make([]string, 0, len(active))
	for name := range active {
		names = append(names, name)
	}
	sort.Strings(names)
	cpuUtils := make([]float64, 0, len(names))
	for _, name := range names {
		usage := active[name]
		usage.CPUUtilization = ratio(cpuUsed[name], capacity[name].CPUMilli) * 100
		usage.MemUtilization = ratio(memUsed[name], capacity[name].MemoryMi) * 100
		cpuUtils = append(cpuUtils, usage.CPUUtilization)
		m.Nodes = append(m.Nodes, *usage)
	}
	m.BalanceStdDev = standardDeviation(cpuUtils)

	moved := sets.New[string]()
	drained := sets.New[string]()
	for _, cmd := range script {
		switch cmd.Type {
		case solver.CommandMovePod:
			moved.Insert(cmd.Pod)
		case solver.CommandDrainNode:
			drained.Insert(cmd.Node)
		}
	}
	m.MovedPods = sets.List(moved)
	m.DrainedNodes = sets.List(drained)
	m.Disruption = calcDisruption(objects, m.MovedPods)
	return m
}

func progressivePodSum(nodes map[string]*NodeUsage, scheduled int) float64 {
	if scheduled == 0 {
		return 0
	}
	sum := 0
	for _, n := range nodes {
		sum += n.Pods * (n.Pods + 1) / 2
	}
	return float64(sum) / float64(scheduled)
}

func ratio(used, capacity int64) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(used) / float64(capacity)
}

// standardDeviation calculates the standard deviation of a slice of values
func standardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}
