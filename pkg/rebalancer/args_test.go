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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

func TestSetDefaults(t *testing.T) {
	testCases := []struct {
		name string
		in   *RebalancerArgs
		want *RebalancerArgs
	}{
		{
			name: "empty",
			in:   &RebalancerArgs{},
			want: &RebalancerArgs{
				TypeMeta:            metav1.TypeMeta{APIVersion: "rebalancer.x-k8s.io/v1alpha1", Kind: ArgsKind},
				RecommendationBound: ptr.To(3),
				DrainStep:           ptr.To(2),
				Runs:                ptr.To(3),
				CPUDivisor:          10,
				MemoryDivisor:       10,
				MaxExpansions:       100000,
			},
		},
		{
			name: "explicit zero bound, drain step and runs are kept",
			in: &RebalancerArgs{
				RecommendationBound: ptr.To(0),
				DrainStep:           ptr.To(0),
				Runs:                ptr.To(0),
				CPUDivisor:          100,
			},
			want: &RebalancerArgs{
				TypeMeta:            metav1.TypeMeta{APIVersion: "rebalancer.x-k8s.io/v1alpha1", Kind: ArgsKind},
				RecommendationBound: ptr.To(0),
				DrainStep:           ptr.To(0),
				Runs:                ptr.To(0),
				CPUDivisor:          100,
				MemoryDivisor:       10,
				MaxExpansions:       100000,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			SetDefaults_RebalancerArgs(tc.in)
			if diff := cmp.Diff(tc.want, tc.in); diff != "" {
				t.Errorf("unexpected defaults (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateRebalancerArgs(t *testing.T) {
	testCases := []struct {
		name    string
		args    *RebalancerArgs
		wantErr bool
	}{
		{name: "defaults", args: &RebalancerArgs{}},
		{name: "negative bound", args: &RebalancerArgs{RecommendationBound: ptr.To(-1)}, wantErr: true},
		{name: "negative drain step", args: &RebalancerArgs{DrainStep: ptr.To(-2)}, wantErr: true},
		{name: "negative divisor", args: &RebalancerArgs{CPUDivisor: -10}, wantErr: true},
		{name: "negative timeout", args: &RebalancerArgs{CombinationTimeout: metav1.Duration{Duration: -time.Second}}, wantErr: true},
		{name: "bad exclusion", args: &RebalancerArgs{Exclude: []string{"Node"}}, wantErr: true},
		{name: "bad spread", args: &RebalancerArgs{SpreadReplicas: map[string]int{"web": 0}}, wantErr: true},
		{name: "wrong kind", args: &RebalancerArgs{TypeMeta: metav1.TypeMeta{Kind: "Other"}}, wantErr: true},
		{
			name: "everything set",
			args: &RebalancerArgs{
				RecommendationBound: ptr.To(4),
				DrainStep:           ptr.To(1),
				MaxCombinations:     2,
				Runs:                ptr.To(1),
				CombinationTimeout:  metav1.Duration{Duration: time.Minute},
				Exclude:             []string{"Node:infra-*", "Pod:kube-system/*"},
				SpreadReplicas:      map[string]int{"default/*": 2},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			SetDefaults_RebalancerArgs(tc.args)
			err := ValidateRebalancerArgs(tc.args)
			if tc.wantErr != (err != nil) {
				t.Errorf("wantErr %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadArgs(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "args.yaml")
	if err := os.WriteFile(good, []byte(`apiVersion: rebalancer.x-k8s.io/v1alpha1
kind: RebalancerArgs
recommendationBound: 5
drainStep: 0
combinationTimeout: 30s
exclude:
- Node:infra-*
spreadReplicas:
  default/web: 1
`), 0o644); err != nil {
		t.Fatal(err)
	}

	args, err := LoadArgs(good)
	if err != nil {
		t.Fatal(err)
	}
	want := &RebalancerArgs{
		TypeMeta:            metav1.TypeMeta{APIVersion: "rebalancer.x-k8s.io/v1alpha1", Kind: ArgsKind},
		RecommendationBound: ptr.To(5),
		DrainStep:           ptr.To(0),
		CombinationTimeout:  metav1.Duration{Duration: 30 * time.Second},
		Exclude:             []string{"Node:infra-*"},
		SpreadReplicas:      map[string]int{"default/web": 1},
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("unexpected args (-want +got):\n%s", diff)
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("recommendationBound: 1\nmaxMoves: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadArgs(unknown); err == nil {
		t.Error("expected unknown field to be rejected")
	}
	if _, err := LoadArgs(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
