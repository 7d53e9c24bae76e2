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
// Package app implements the rebalancer command.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"k8s.io/component-base/logs"
	logsapi "k8s.io/component-base/logs/api/v1"
	"k8s.io/component-base/version"
	"k8s.io/klog/v2"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/observability"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

// maxArtifactExitCode keeps the artifact count within the exit status range.
const maxArtifactExitCode = 254

// NewRebalancerCommand creates a *cobra.Command object with default parameters
func NewRebalancerCommand(out io.Writer) (*cobra.Command, *Options) {
	o := NewOptions()
	cmd := &cobra.Command{
		Use:   "rebalancer",
		Short: "rebalancer searches a cluster snapshot for pod moves and node drains",
		Long: `The rebalancer loads a snapshot of Nodes, Pods and Deployments and tries
escalating combinations of pod moves and node drains. Every combination the
solver can satisfy becomes a numbered shell script with before and after
utilization and availability risk. The exit code is the number of scripts
produced, also when a fatal error stops the run early.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			logs.InitLogs()
			if err := logsapi.ValidateAndApply(o.Logs, nil); err != nil {
				return err
			}
			return o.Validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := o.RebalancerArgs(cmd.Flags())
			if err != nil {
				return err
			}
			n, err := Run(cmd.Context(), o, args, out)
			o.artifacts = n
			return err
		},
	}
	cmd.SetOut(out)
	o.AddFlags(cmd.Flags())
	return cmd, o
}

// Run performs one optimizer run and returns the number of artifacts.
func Run(ctx context.Context, o *Options, args *rebalancer.RebalancerArgs, out io.Writer) (int, error) {
	logger := klog.FromContext(ctx)
	ctx = klog.NewContext(ctx, logger)

	tp, shutdown, err := newTracerProvider(ctx, o.OTLPEndpoint)
	if err != nil {
		return 0, fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error(err, "Failed to flush traces")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	recorder := observability.NewRecorder(reg)

	search := solver.NewSearch(args.MaxExpansions)
	r, err := rebalancer.New(ctx, args, state.NewFileSource(o.Snapshot), search,
		rebalancer.WithRecorder(recorder),
		rebalancer.WithTracerProvider(tp),
	)
	if err != nil {
		return 0, err
	}

	result, runErr := r.Optimize(ctx)
	n := len(result.Artifacts)
	if args.OutputDir == "" {
		for _, a := range result.Artifacts {
			fmt.Fprint(out, a.Script)
		}
	}
	fmt.Fprintf(out, "# snapshot %s: %d recommendation(s) from %d combination(s)\n", result.Fingerprint, n, len(result.Combinations))
	if result.SummaryPath != "" {
		fmt.Fprintf(out, "# summary: %s\n", result.SummaryPath)
	}

	if o.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(o.MetricsFile, reg); err != nil {
			logger.Error(err, "Failed to write metrics", "file", o.MetricsFile)
		}
	}
	return n, runErr
}

// ExitCode maps a run to the process exit status: the number of artifacts
// produced, capped at 254. Artifacts written before a fatal error still count.
func ExitCode(artifacts int) int {
	if artifacts > maxArtifactExitCode {
		return maxArtifactExitCode
	}
	return artifacts
}
