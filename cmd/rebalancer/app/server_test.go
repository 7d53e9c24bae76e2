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

package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer"
)

// snapshot is two nodes of 2000m and 1000m CPU and three pending pods of
// 500m each.
const snapshot = `
apiVersion: v1
kind: List
items:
- apiVersion: v1
  kind: Node
  metadata:
    name: node-a
  status:
    allocatable:
      cpu: 2000m
      memory: 4Gi
- apiVersion: v1
  kind: Node
  metadata:
    name: node-b
  status:
    allocatable:
      cpu: 1000m
      memory: 4Gi
- apiVersion: v1
  kind: Pod
  metadata:
    name: p1
    namespace: default
  spec:
    containers:
    - name: c
      image: busybox
      resources:
        requests:
          cpu: 500m
          memory: 128Mi
- apiVersion: v1
  kind: Pod
  metadata:
    name: p2
    namespace: default
  spec:
    containers:
    - name: c
      image: busybox
      resources:
        requests:
          cpu: 500m
          memory: 128Mi
- apiVersion: v1
  kind: Pod
  metadata:
    name: p3
    namespace: default
  spec:
    containers:
    - name: c
      image: busybox
      resources:
        requests:
          cpu: 500m
          memory: 128Mi
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name      string
		artifacts int
		want      int
	}{
		{name: "nothing found", artifacts: 0, want: 0},
		{name: "artifacts", artifacts: 3, want: 3},
		{name: "artifacts before a fatal error", artifacts: 2, want: 2},
		{name: "capped", artifacts: 1000, want: 254},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.artifacts); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestRebalancerArgsFromFlags(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "args.yaml", `recommendationBound: 5
runs: 0
exclude:
- Node:infra-*
`)

	cmd, o := NewRebalancerCommand(&bytes.Buffer{})
	if err := cmd.Flags().Parse([]string{
		"--config", config,
		"--drain-step", "0",
		"--combination-timeout", "30s",
		"--exclude", "Pod:default/*",
	}); err != nil {
		t.Fatal(err)
	}

	args, err := o.RebalancerArgs(cmd.Flags())
	if err != nil {
		t.Fatal(err)
	}
	want := &rebalancer.RebalancerArgs{
		RecommendationBound: ptr.To(5),
		DrainStep:           ptr.To(0),
		Runs:                ptr.To(0),
		CombinationTimeout:  metav1.Duration{Duration: 30 * time.Second},
		Exclude:             []string{"Node:infra-*", "Pod:default/*"},
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("unexpected args (-want +got):\n%s", diff)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	o := NewOptions()
	o.Snapshot = writeFile(t, dir, "snapshot.yaml", snapshot)
	o.MetricsFile = filepath.Join(dir, "metrics.prom")
	args := &rebalancer.RebalancerArgs{OutputDir: outDir}

	var out bytes.Buffer
	n, err := Run(context.Background(), o, args, &out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected one artifact, got %d", n)
	}
	for _, name := range []string{"0.sh", "0.yaml", "summary.html"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "1 recommendation(s) from 4 combination(s)") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	metrics, err := os.ReadFile(o.MetricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(metrics), `rebalancer_combinations_total{outcome="success"} 1`) {
		t.Errorf("metrics file lacks the success counter:\n%s", metrics)
	}
}

func TestRunPrintsScriptsWithoutOutputDir(t *testing.T) {
	dir := t.TempDir()
	o := NewOptions()
	o.Snapshot = writeFile(t, dir, "snapshot.yaml", snapshot)

	var out bytes.Buffer
	if _, err := Run(context.Background(), o, &rebalancer.RebalancerArgs{}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "#!/bin/sh\n# Rebalance recommendation #0\n") {
		t.Errorf("expected the script on stdout, got:\n%s", out.String())
	}
}

func TestRunFatal(t *testing.T) {
	o := NewOptions()
	o.Snapshot = filepath.Join(t.TempDir(), "missing.yaml")
	n, err := Run(context.Background(), o, &rebalancer.RebalancerArgs{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for a missing snapshot")
	}
	if code := ExitCode(n); code != 0 {
		t.Errorf("expected exit code 0 without artifacts, got %d", code)
	}
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	cmd, o := NewRebalancerCommand(&out)
	cmd.SetArgs([]string{
		"--snapshot", writeFile(t, dir, "snapshot.yaml", snapshot),
		"--output-dir", filepath.Join(dir, "out"),
		"--runs", "1",
	})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := ExitCode(o.Artifacts()); got != 1 {
		t.Errorf("expected exit code 1, got %d", got)
	}

	if err := NewOptions().Validate(); err == nil {
		t.Error("expected --snapshot to be required")
	}
}
