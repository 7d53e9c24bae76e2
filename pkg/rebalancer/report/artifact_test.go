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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"sigs.k8s.io/yaml"

	"sigs.k8s.io/cluster-rebalancer/pkg/api/v1alpha1"
)

func testArtifact(t *testing.T, index int) *Artifact {
	t.Helper()
	start := Metric{NodeUtilization: 0.25, MemoryUtilization: 0.1, ProgressivePodSum: 1}
	result := Metric{
		NodeUtilization:   0.5,
		MemoryUtilization: 0.2,
		ProgressivePodSum: 1.5,
		MovedPods:         []string{"default/w1"},
		DrainedNodes:      []string{"a"},
		Disruption:        Disruption{Waves: 2, ReplicaImpact: 0.25},
		RunTime:           2 * time.Second,
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a, err := NewArtifact(index, 1, 1, "0123456789abcdef", start, result, testScript(), now)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestRecommendation(t *testing.T) {
	rec := testArtifact(t, 3).Recommendation()

	if rec.APIVersion != "rebalancer.x-k8s.io/v1alpha1" || rec.Kind != "RebalanceRecommendation" {
		t.Errorf("unexpected type meta %+v", rec.TypeMeta)
	}
	if rec.Name != "recommendation-3" {
		t.Errorf("unexpected name %q", rec.Name)
	}
	wantCommands := []v1alpha1.RecommendedCommand{
		{Type: "MovePod", PodName: "w1", PodNamespace: "default", FromNode: "a", TargetNode: "b"},
		{Type: "DrainNode", Node: "a"},
	}
	if diff := cmp.Diff(wantCommands, rec.Spec.Commands); diff != "" {
		t.Errorf("unexpected commands (-want +got):\n%s", diff)
	}
	wantAfter := v1alpha1.MetricSummary{
		NodeUtilization:   "50.00",
		MemoryUtilization: "20.00",
		AvailabilityRisk:  "1.500",
		BalanceStdDev:     "0.00",
	}
	if diff := cmp.Diff(wantAfter, rec.Status.After); diff != "" {
		t.Errorf("unexpected metrics (-want +got):\n%s", diff)
	}
	if rec.Status.EvictionWaves != 2 || rec.Status.ReplicaImpact != "0.250" {
		t.Errorf("unexpected disruption %d %q", rec.Status.EvictionWaves, rec.Status.ReplicaImpact)
	}
	if rec.Status.SolveTime.Duration != 2*time.Second {
		t.Errorf("unexpected solve time %v", rec.Status.SolveTime)
	}
}

func TestWriterWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir)

	for _, index := range []int{1, 2} {
		paths, err := w.Write(context.Background(), testArtifact(t, index))
		if err != nil {
			t.Fatal(err)
		}
		if len(paths) != 2 {
			t.Fatalf("expected 2 paths, got %v", paths)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if diff := cmp.Diff([]string{"1.sh", "1.yaml", "2.sh", "2.yaml"}, got); diff != "" {
		t.Errorf("unexpected files (-want +got):\n%s", diff)
	}

	script, err := os.ReadFile(filepath.Join(dir, "2.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(script), "#!/bin/sh\n# Rebalance recommendation #2\n") {
		t.Errorf("unexpected script header:\n%s", script)
	}

	data, err := os.ReadFile(filepath.Join(dir, "2.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var rec v1alpha1.RebalanceRecommendation
	if err := yaml.UnmarshalStrict(data, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Spec.Index != 2 || rec.Spec.SnapshotFingerprint != "0123456789abcdef" {
		t.Errorf("unexpected spec %+v", rec.Spec)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	start := Metric{NodeUtilization: 0.25, ProgressivePodSum: 1}
	if err := RenderSummary(&buf, start, []*Artifact{testArtifact(t, 1), testArtifact(t, 2)}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{"Rebalance recommendations", "Availability risk", "#2"} {
		if !strings.Contains(out, s) {
			t.Errorf("summary does not contain %q", s)
		}
	}

	if err := RenderSummary(&buf, start, nil); err == nil {
		t.Error("expected error without artifacts")
	}
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteSummary(dir, Metric{}, []*Artifact{testArtifact(t, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, SummaryFile) {
		t.Errorf("unexpected path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}
