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

package report

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/quantity"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

func node(name, cpu, mem string) *state.Node {
	return &state.Node{MetadataName: name, Status: state.NodeActive, Capacity: state.Resources{CPU: cpu, Memory: mem}}
}

func pod(name, nodeName, cpu, mem string) *state.Pod {
	return &state.Pod{MetadataName: name, Namespace: "default", NodeName: nodeName, Requests: state.Resources{CPU: cpu, Memory: mem}}
}

func scaled(t *testing.T, objects ...state.Object) []state.Object {
	t.Helper()
	codec, err := quantity.NewCodec(0, 0, quantity.DefaultMaxLinear)
	if err != nil {
		t.Fatal(err)
	}
	if err := state.Scale(objects, codec); err != nil {
		t.Fatal(err)
	}
	return objects
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalc(t *testing.T) {
	drained := node("c", "4", "8Gi")
	drained.Status = state.NodeDrained

	testCases := []struct {
		name            string
		objects         []state.Object
		wantUtilization float64
		wantRisk        float64
		wantStdDev      float64
	}{
		{
			name: "two pods on A, one on B",
			objects: []state.Object{
				node("a", "2000m", "4Gi"),
				node("b", "1000m", "4Gi"),
				pod("p1", "a", "500m", "128Mi"),
				pod("p2", "a", "500m", "128Mi"),
				pod("p3", "b", "500m", "128Mi"),
			},
			wantUtilization: 0.5,
			// node a: 1+2, node b: 1
			wantRisk:   4.0 / 3.0,
			wantStdDev: 0,
		},
		{
			name: "all pods on one node",
			objects: []state.Object{
				node("a", "2", "4Gi"),
				node("b", "2", "4Gi"),
				pod("p1", "a", "500m", "128Mi"),
				pod("p2", "a", "500m", "128Mi"),
				pod("p3", "a", "500m", "128Mi"),
			},
			wantUtilization: 0.375,
			wantRisk:        2,
			wantStdDev:      37.5,
		},
		{
			name: "pending pods and drained nodes are ignored",
			objects: []state.Object{
				node("a", "2", "4Gi"),
				drained,
				pod("p1", "a", "1", "128Mi"),
				pod("p2", "", "1", "128Mi"),
				pod("p3", "c", "1", "128Mi"),
			},
			wantUtilization: 0.5,
			wantRisk:        1,
			wantStdDev:      0,
		},
		{
			name:            "empty cluster",
			objects:         []state.Object{node("a", "2", "4Gi")},
			wantUtilization: 0,
			wantRisk:        0,
			wantStdDev:      0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := Calc(scaled(t, tc.objects...), nil)
			if !approx(m.NodeUtilization, tc.wantUtilization) {
				t.Errorf("expected utilization %v, got %v", tc.wantUtilization, m.NodeUtilization)
			}
			if !approx(m.ProgressivePodSum, tc.wantRisk) {
				t.Errorf("expected risk %v, got %v", tc.wantRisk, m.ProgressivePodSum)
			}
			if !approx(m.BalanceStdDev, tc.wantStdDev) {
				t.Errorf("expected stddev %v, got %v", tc.wantStdDev, m.BalanceStdDev)
			}
		})
	}
}

func TestCalcMovedAndDrainedSets(t *testing.T) {
	objects := scaled(t, node("a", "2", "4Gi"), node("b", "2", "4Gi"))
	script := []solver.Command{
		{Type: solver.CommandStartPod, Pod: "default/p0", To: "a"},
		{Type: solver.CommandMovePod, Pod: "default/p2", From: "a", To: "b"},
		{Type: solver.CommandMovePod, Pod: "default/p1", From: "a", To: "b"},
		{Type: solver.CommandDrainNode, Node: "a"},
	}
	m := Calc(objects, script)
	if diff := cmp.Diff([]string{"default/p1", "default/p2"}, m.MovedPods); diff != "" {
		t.Errorf("unexpected moved pods (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, m.DrainedNodes); diff != "" {
		t.Errorf("unexpected drained nodes (-want +got):\n%s", diff)
	}
}

func TestProgressivePodSumPenalizesConcentration(t *testing.T) {
	spread := Calc(scaled(t,
		node("a", "2", "4Gi"), node("b", "2", "4Gi"),
		pod("p1", "a", "100m", "64Mi"), pod("p2", "b", "100m", "64Mi"),
	), nil)
	packed := Calc(scaled(t,
		node("a", "2", "4Gi"), node("b", "2", "4Gi"),
		pod("p1", "a", "100m", "64Mi"), pod("p2", "a", "100m", "64Mi"),
	), nil)
	if packed.ProgressivePodSum <= spread.ProgressivePodSum {
		t.Errorf("expected packed risk %v above spread risk %v", packed.ProgressivePodSum, spread.ProgressivePodSum)
	}
}
