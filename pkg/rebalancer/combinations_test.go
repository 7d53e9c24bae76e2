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

package rebalancer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGenerateCombinations(t *testing.T) {
	testCases := []struct {
		name      string
		bound     int
		drainStep int
		nodes     int
		want      []Combination
	}{
		{
			name: "default escalation", bound: 3, drainStep: 2, nodes: 3,
			want: []Combination{{0, 0}, {1, 0}, {2, 1}, {3, 1}},
		},
		{
			name: "drain every step is capped at nodes minus one", bound: 4, drainStep: 1, nodes: 3,
			want: []Combination{{0, 0}, {1, 1}, {2, 2}, {3, 2}, {4, 2}},
		},
		{
			name: "single node never drains", bound: 2, drainStep: 1, nodes: 1,
			want: []Combination{{0, 0}, {1, 0}, {2, 0}},
		},
		{
			name: "drains disabled", bound: 2, drainStep: 0, nodes: 5,
			want: []Combination{{0, 0}, {1, 0}, {2, 0}},
		},
		{
			name: "zero bound", bound: 0, drainStep: 2, nodes: 3,
			want: []Combination{{0, 0}},
		},
		{
			name: "negative bound", bound: -1, drainStep: 2, nodes: 3,
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := GenerateCombinations(tc.bound, tc.drainStep, tc.nodes)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("unexpected combinations (-want +got):\n%s", diff)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Moves < got[i-1].Moves || got[i].Drains < got[i-1].Drains {
					t.Errorf("sequence is not monotone at %d: %v", i, got)
				}
			}
		})
	}
}
