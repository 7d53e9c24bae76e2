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

// Package rebalancer drives the search for cluster rebalancing
// recommendations: it escalates through move/drain combinations, asks the
// policy engine for hypotheses, calls the solver and renders artifacts.
package rebalancer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
	"k8s.io/utils/ptr"

	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/observability"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/policy"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/quantity"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/report"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/solver"
	"sigs.k8s.io/cluster-rebalancer/pkg/rebalancer/state"
)

const tracerName = "sigs.k8s.io/cluster-rebalancer"

// CombinationResult is the outcome of one attempted combination.
type CombinationResult struct {
	Combination Combination
	Outcome     observability.Outcome
	SolveTime   time.Duration
	// Artifact is set on success.
	Artifact *report.Artifact
	// Err is the solver or processing error, if any.
	Err error
}

// Result is what an optimizer run produced, including the artifacts written
// before a fatal error or cancellation.
type Result struct {
	Fingerprint  string
	Start        report.Metric
	Combinations []CombinationResult
	Artifacts    []*report.Artifact
	// SummaryPath is the HTML chart, when an output directory is configured.
	SummaryPath string
}

// Success reports whether at least one combination produced an artifact.
func (r *Result) Success() bool {
	return len(r.Artifacts) > 0
}

// Rebalancer runs the combination search against a snapshot source.
type Rebalancer struct {
	logger     klog.Logger
	args       *RebalancerArgs
	source     state.Source
	solver     solver.Solver
	registry   *policy.Registry
	codec      *quantity.Codec
	exclusions []policy.Exclusion
	writer     *report.Writer
	recorder   *observability.Recorder
	clock      clock.PassiveClock
	tracer     trace.Tracer
}

// Option customizes a Rebalancer.
type Option func(*Rebalancer)

func WithClock(c clock.PassiveClock) Option {
	return func(r *Rebalancer) { r.clock = c }
}

func WithRecorder(recorder *observability.Recorder) Option {
	return func(r *Rebalancer) { r.recorder = recorder }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Rebalancer) { r.tracer = tp.Tracer(tracerName) }
}

// WithRegistry replaces the default policy registry.
func WithRegistry(registry *policy.Registry) Option {
	return func(r *Rebalancer) { r.registry = registry }
}

// New defaults and validates args and builds the codec. When the solver
// exposes a numeric table its bound is discovered here, once per run.
func New(ctx context.Context, args *RebalancerArgs, source state.Source, s solver.Solver, opts ...Option) (*Rebalancer, error) {
	if args == nil {
		args = &RebalancerArgs{}
	}
	SetDefaults_RebalancerArgs(args)
	if err := ValidateRebalancerArgs(args); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ArgsKind, err)
	}
	if source == nil || s == nil {
		return nil, fmt.Errorf("a snapshot source and a solver are required")
	}

	r := &Rebalancer{
		logger:   klog.FromContext(ctx).WithValues("component", "rebalancer"),
		args:     args,
		source:   source,
		solver:   s,
		registry: policy.DefaultRegistry(),
		clock:    clock.RealClock{},
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}

	var table quantity.NumericTable
	if t, ok := s.(quantity.NumericTable); ok {
		table = t
	}
	maxLinear, err := quantity.DiscoverMaxLinear(table)
	if err != nil {
		return nil, err
	}
	r.codec, err = quantity.NewCodec(args.CPUDivisor, args.MemoryDivisor, maxLinear)
	if err != nil {
		return nil, err
	}
	r.logger.V(2).Info("Discovered solver bound", "maxLinear", maxLinear)

	r.exclusions, err = policy.ParseExclusions(args.Exclude)
	if err != nil {
		return nil, err
	}
	if args.OutputDir != "" {
		r.writer = report.NewWriter(args.OutputDir)
	}
	return r, nil
}

// Optimize walks the combination sequence and returns every artifact it
// produced. Infeasible, empty and timed-out combinations are skipped. Any
// other error ends the run; the returned result is never nil.
func (r *Rebalancer) Optimize(ctx context.Context) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "Optimize")
	defer span.End()
	logger := r.logger
	ctx = klog.NewContext(ctx, logger)
	result := &Result{}

	objects, err := r.load(ctx)
	if err != nil {
		return result, r.fail(span, err)
	}
	result.Fingerprint = state.Fingerprint(objects)
	result.Start = report.Calc(objects, nil)
	r.recorder.RecordPlacement(observability.PhaseStart, result.Start.NodeUtilization, result.Start.MemoryUtilization, result.Start.ProgressivePodSum)
	for _, n := range result.Start.Nodes {
		r.recorder.RecordNodeUtil(n.Name, n.CPUUtilization, n.MemUtilization)
	}

	combinations := GenerateCombinations(ptr.Deref(r.args.RecommendationBound, DefaultRecommendationBound), ptr.Deref(r.args.DrainStep, DefaultDrainStep), len(state.Nodes(objects)))
	if limit := r.args.MaxCombinations; limit > 0 && limit < len(combinations) {
		combinations = combinations[:limit]
	}
	runs := ptr.Deref(r.args.Runs, DefaultRuns)
	span.SetAttributes(
		attribute.String("snapshot", result.Fingerprint),
		attribute.Int("combinations", len(combinations)),
	)
	logger.Info("Starting optimizer", "snapshot", result.Fingerprint, "combinations", len(combinations), "runs", runs,
		"utilization", result.Start.NodeUtilization, "risk", result.Start.ProgressivePodSum)

	for _, c := range combinations {
		if runs > 0 && len(result.Artifacts) >= runs {
			logger.V(2).Info("Run cap reached", "runs", runs)
			break
		}
		if err := ctx.Err(); err != nil {
			return result, r.fail(span, err)
		}

		cr := r.tryCombination(ctx, c, len(result.Artifacts), result)
		result.Combinations = append(result.Combinations, cr)
		r.recorder.ObserveCombination(cr.Outcome, cr.SolveTime)
		logger.Info("Combination finished", "moves", c.Moves, "drains", c.Drains, "outcome", cr.Outcome, "solveTime", cr.SolveTime)

		if cr.Outcome == observability.OutcomeFatal {
			return result, r.fail(span, fmt.Errorf("combination %s: %w", c, cr.Err))
		}
		if cr.Artifact != nil {
			result.Artifacts = append(result.Artifacts, cr.Artifact)
			r.recorder.RecordArtifact()
			r.recorder.RecordPlacement(observability.PhaseResult, cr.Artifact.Result.NodeUtilization, cr.Artifact.Result.MemoryUtilization, cr.Artifact.Result.ProgressivePodSum)
		}
	}

	if r.writer != nil && result.Success() {
		path, err := report.WriteSummary(r.args.OutputDir, result.Start, result.Artifacts)
		if err != nil {
			return result, r.fail(span, fmt.Errorf("writing summary: %w", err))
		}
		result.SummaryPath = path
	}
	span.SetAttributes(attribute.Int("artifacts", len(result.Artifacts)))
	logger.Info("Optimizer finished", "artifacts", len(result.Artifacts), "success", result.Success())
	return result, nil
}

func (r *Rebalancer) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// load returns a freshly loaded and scaled snapshot.
func (r *Rebalancer) load(ctx context.Context) ([]state.Object, error) {
	objects, err := r.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if err := state.Scale(objects, r.codec); err != nil {
		return nil, fmt.Errorf("scaling snapshot: %w", err)
	}
	return objects, nil
}

func (r *Rebalancer) tryCombination(ctx context.Context, c Combination, index int, result *Result) (cr CombinationResult) {
	ctx, span := r.tracer.Start(ctx, "Combination", trace.WithAttributes(
		attribute.Int("moves", c.Moves),
		attribute.Int("drains", c.Drains),
	))
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(cr.Outcome)))
		if cr.Outcome == observability.OutcomeFatal {
			span.RecordError(cr.Err)
			span.SetStatus(codes.Error, cr.Err.Error())
		}
		span.End()
	}()
	cr.Combination = c
	fatal := func(err error) CombinationResult {
		cr.Outcome, cr.Err = observability.OutcomeFatal, err
		return cr
	}

	objects, err := r.load(ctx)
	if err != nil {
		return fatal(err)
	}
	model, hypotheses, err := r.prepare(ctx, objects, c)
	if err != nil {
		return fatal(err)
	}

	solveCtx := ctx
	if timeout := r.args.CombinationTimeout.Duration; timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	started := r.clock.Now()
	script, err := r.solver.Solve(solveCtx, model, hypotheses, model.Actions())
	cr.SolveTime = r.clock.Since(started)

	switch {
	case errors.Is(err, solver.ErrCapacityInfeasible):
		cr.Outcome, cr.Err = observability.OutcomeInfeasible, err
		return cr
	case err != nil && ctx.Err() == nil && errors.Is(solveCtx.Err(), context.DeadlineExceeded):
		cr.Outcome, cr.Err = observability.OutcomeTimeout, err
		return cr
	case err != nil:
		return fatal(err)
	case len(script) == 0:
		cr.Outcome = observability.OutcomeEmpty
		return cr
	}

	final, err := solver.Verify(model, script)
	if err != nil {
		return fatal(fmt.Errorf("solver returned an invalid script: %w", err))
	}
	if err := final.Apply(objects); err != nil {
		return fatal(err)
	}
	metric := report.Calc(objects, script)
	metric.RunTime = cr.SolveTime

	artifact, err := report.NewArtifact(index, c.Moves, c.Drains, result.Fingerprint, result.Start, metric, script, r.clock.Now())
	if err != nil {
		return fatal(err)
	}
	if r.writer != nil {
		if _, err := r.writer.Write(ctx, artifact); err != nil {
			return fatal(err)
		}
	}
	cr.Outcome, cr.Artifact = observability.OutcomeSuccess, artifact
	return cr
}

// prepare activates the policies of one combination and builds the model.
func (r *Rebalancer) prepare(ctx context.Context, objects []state.Object, c Combination) (*solver.Model, []solver.Hypothesis, error) {
	global, err := state.Global(objects)
	if err != nil {
		return nil, nil, err
	}
	global.TargetAmountOfRecommendations = c.Moves
	global.TargetNodesDrainedLength = c.Drains

	engine := policy.NewEngine(ctx, r.registry, objects)
	if err := engine.SetPolicyField(global, policy.FieldOptimize, true); err != nil {
		return nil, nil, err
	}
	if _, err := policy.ApplyExclusions(engine, objects, r.exclusions); err != nil {
		return nil, nil, err
	}
	if _, err := policy.ApplySpread(engine, objects, r.args.SpreadReplicas); err != nil {
		return nil, nil, err
	}

	model, err := solver.NewModel(objects)
	if err != nil {
		return nil, nil, err
	}
	hypotheses := append(model.BaseHypotheses(), engine.Apply(model)...)
	return model, hypotheses, nil
}
