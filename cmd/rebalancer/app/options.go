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
	"fmt"
	"time"

	"github.com/spf13/pflag"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logsapi "k8s.io/component-base/logs/api/v1"
	"k8s.io/utils/ptr"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer"
)

// Options holds the command line configuration of the rebalancer.
type Options struct {
	Logs *logsapi.LoggingConfiguration

	ConfigFile   string
	Snapshot     string
	OutputDir    string
	MetricsFile  string
	OTLPEndpoint string
	Exclude      []string

	RecommendationBound int
	DrainStep           int
	Runs                int
	MaxCombinations     int
	CombinationTimeout  time.Duration

	artifacts int
}

func NewOptions() *Options {
	return &Options{
		Logs:                logsapi.NewLoggingConfiguration(),
		RecommendationBound: rebalancer.DefaultRecommendationBound,
		DrainStep:           rebalancer.DefaultDrainStep,
		Runs:                rebalancer.DefaultRuns,
	}
}

// Artifacts is the number of recommendations the last run produced.
func (o *Options) Artifacts() int {
	return o.artifacts
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile, "Path to a RebalancerArgs file (YAML or JSON). Flags override its values.")
	fs.StringVar(&o.Snapshot, "snapshot", o.Snapshot, "Path to the cluster snapshot (YAML or JSON list of Nodes, Pods and Deployments).")
	fs.StringVarP(&o.OutputDir, "output-dir", "o", o.OutputDir, "Directory receiving N.sh, N.yaml and summary.html. Empty prints scripts to stdout.")
	fs.StringVar(&o.MetricsFile, "metrics-file", o.MetricsFile, "Write Prometheus metrics in text format to this file when the run ends.")
	fs.StringVar(&o.OTLPEndpoint, "otlp-endpoint", o.OTLPEndpoint, "OTLP gRPC endpoint for traces, e.g. localhost:4317. Empty disables tracing.")
	fs.StringSliceVar(&o.Exclude, "exclude", o.Exclude, "Objects the optimizer must not touch, as Kind:glob (Node, Pod or Deployment). Repeatable and comma separated.")
	fs.IntVar(&o.RecommendationBound, "recommendation-bound", o.RecommendationBound, "Largest number of pod moves to try.")
	fs.IntVar(&o.DrainStep, "drain-step", o.DrainStep, "Number of move steps between two additional node drains. 0 disables drains.")
	fs.IntVar(&o.Runs, "runs", o.Runs, "Stop after this many recommendations. 0 is unlimited.")
	fs.IntVar(&o.MaxCombinations, "max-combinations", o.MaxCombinations, "Try at most this many move/drain combinations. 0 tries all.")
	fs.DurationVar(&o.CombinationTimeout, "combination-timeout", o.CombinationTimeout, "Time limit of a single solver call. 0 means no limit.")

	logsapi.AddFlags(o.Logs, fs)
}

func (o *Options) Validate() error {
	if o.Snapshot == "" {
		return fmt.Errorf("--snapshot is required")
	}
	return nil
}

// RebalancerArgs loads the config file, if any, and applies the flags that
// were set explicitly on top of it.
func (o *Options) RebalancerArgs(fs *pflag.FlagSet) (*rebalancer.RebalancerArgs, error) {
	args := &rebalancer.RebalancerArgs{}
	if o.ConfigFile != "" {
		var err error
		if args, err = rebalancer.LoadArgs(o.ConfigFile); err != nil {
			return nil, err
		}
	}

	if fs.Changed("recommendation-bound") || args.RecommendationBound == nil {
		args.RecommendationBound = ptr.To(o.RecommendationBound)
	}
	if fs.Changed("drain-step") || args.DrainStep == nil {
		args.DrainStep = ptr.To(o.DrainStep)
	}
	if fs.Changed("runs") || args.Runs == nil {
		args.Runs = ptr.To(o.Runs)
	}
	if fs.Changed("max-combinations") {
		args.MaxCombinations = o.MaxCombinations
	}
	if fs.Changed("combination-timeout") {
		args.CombinationTimeout = metav1.Duration{Duration: o.CombinationTimeout}
	}
	if fs.Changed("output-dir") {
		args.OutputDir = o.OutputDir
	}
	args.Exclude = append(args.Exclude, o.Exclude...)
	return args, nil
}
