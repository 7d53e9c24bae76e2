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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"

	"sigs.k8s.io/cluster-rebalancer/pkg/api/v1alpha1"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
)

// Artifact is the output of one successful combination.
type Artifact struct {
	Index        int
	TargetMoves  int
	TargetDrains int
	Fingerprint  string
	Commands     []solver.Command
	Start        Metric
	Result       Metric
	Script       string
	GeneratedAt  time.Time
}

// NewArtifact renders the script for a successful combination.
func NewArtifact(index, moves, drains int, fingerprint string, start, result Metric, commands []solver.Command, now time.Time) (*Artifact, error) {
	script, err := GenerateScript(start, result, commands, index, fingerprint)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Index:        index,
		TargetMoves:  moves,
		TargetDrains: drains,
		Fingerprint:  fingerprint,
		Commands:     commands,
		Start:        start,
		Result:       result,
		Script:       script,
		GeneratedAt:  now,
	}, nil
}

// Recommendation converts the artifact into its report object.
func (a *Artifact) Recommendation() *v1alpha1.RebalanceRecommendation {
	rec := &v1alpha1.RebalanceRecommendation{
		TypeMeta: metav1.TypeMeta{
			APIVersion: v1alpha1.APIVersion,
			Kind:       v1alpha1.RebalanceRecommendationKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: fmt.Sprintf("recommendation-%d", a.Index),
			Labels: map[string]string{
				"rebalancer.x-k8s.io/snapshot": a.Fingerprint,
			},
			CreationTimestamp: metav1.NewTime(a.GeneratedAt),
		},
		Spec: v1alpha1.RebalanceRecommendationSpec{
			Index:               a.Index,
			SnapshotFingerprint: a.Fingerprint,
			TargetMoves:         a.TargetMoves,
			TargetDrains:        a.TargetDrains,
		},
		Status: v1alpha1.RebalanceRecommendationStatus{
			Before:        summarize(a.Start),
			After:         summarize(a.Result),
			MovedPods:     a.Result.MovedPods,
			DrainedNodes:  a.Result.DrainedNodes,
			EvictionWaves: a.Result.Disruption.Waves,
			ReplicaImpact: strconv.FormatFloat(a.Result.Disruption.ReplicaImpact, 'f', 3, 64),
			SolveTime:     metav1.Duration{Duration: a.Result.RunTime},
			GeneratedAt:   metav1.NewTime(a.GeneratedAt),
		},
	}
	for _, cmd := range a.Commands {
		rec.Spec.Commands = append(rec.Spec.Commands, v1alpha1.RecommendedCommand{
			Type:         string(cmd.Type),
			PodName:      cmd.PodName,
			PodNamespace: cmd.Namespace,
			FromNode:     cmd.From,
			TargetNode:   cmd.To,
			Node:         cmd.Node,
		})
	}
	return rec
}

func summarize(m Metric) v1alpha1.MetricSummary {
	return v1alpha1.MetricSummary{
		NodeUtilization:   strconv.FormatFloat(m.NodeUtilization*100, 'f', 2, 64),
		MemoryUtilization: strconv.FormatFloat(m.MemoryUtilization*100, 'f', 2, 64),
		AvailabilityRisk:  strconv.FormatFloat(m.ProgressivePodSum, 'f', 3, 64),
		BalanceStdDev:     strconv.FormatFloat(m.BalanceStdDev, 'f', 2, 64),
	}
}

// Writer persists artifacts under a directory, one numbered file pair per
// artifact so earlier results are never overwritten.
type Writer struct {
	Dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Write stores <index>.sh and <index>.yaml and returns their paths.
func (w *Writer) Write(ctx context.Context, a *Artifact) ([]string, error) {
	logger := klog.FromContext(ctx)
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	scriptPath := filepath.Join(w.Dir, fmt.Sprintf("%d.sh", a.Index))
	if err := os.WriteFile(scriptPath, []byte(a.Script), 0o755); err != nil {
		return nil, fmt.Errorf("writing script: %w", err)
	}

	data, err := yaml.Marshal(a.Recommendation())
	if err != nil {
		return nil, fmt.Errorf("encoding recommendation %d: %w", a.Index, err)
	}
	reportPath := filepath.Join(w.Dir, fmt.Sprintf("%d.yaml", a.Index))
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing recommendation: %w", err)
	}

	logger.V(2).Info("Wrote artifact", "index", a.Index, "script", scriptPath, "report", reportPath)
	return []string{scriptPath, reportPath}, nil
}
