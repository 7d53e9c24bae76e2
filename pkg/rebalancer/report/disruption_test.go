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
	"testing"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

func ownedPod(name, nodeName, deployment string) *state.Pod {
	p := pod(name, nodeName, "100m", "64Mi")
	p.DeploymentName = deployment
	return p
}

func TestCalcDisruption(t *testing.T) {
	objects := []state.Object{
		ownedPod("w1", "a", "default/web"),
		ownedPod("w2", "a", "default/web"),
		ownedPod("w3", "b", "default/web"),
		ownedPod("d1", "a", "default/db"),
		pod("solo", "a", "100m", "64Mi"),
	}

	testCases := []struct {
		name  string
		moved []string
		want  Disruption
	}{
		{
			name: "nothing moved",
			want: Disruption{},
		},
		{
			name:  "unowned pod takes one wave",
			moved: []string{"default/solo"},
			want:  Disruption{Waves: 1},
		},
		{
			name:  "replicas of one deployment are sequential",
			moved: []string{"default/w1", "default/w2"},
			want:  Disruption{Waves: 2, ReplicaImpact: 0.5},
		},
		{
			name:  "different deployments share a wave",
			moved: []string{"default/w1", "default/d1"},
			want:  Disruption{Waves: 1, ReplicaImpact: 0.5},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calcDisruption(objects, tc.moved)
			if got.Waves != tc.want.Waves || !approx(got.ReplicaImpact, tc.want.ReplicaImpact) {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}
