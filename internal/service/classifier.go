package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/BenchForge/internal/adapter/otel"
	"github.com/Strob0t/BenchForge/internal/domain/classify"
	"github.com/Strob0t/BenchForge/internal/domain/testrun"
	"github.com/Strob0t/BenchForge/internal/port/sandbox"
	"github.com/Strob0t/BenchForge/internal/port/testexec"
	"github.com/Strob0t/BenchForge/internal/port/vcs"
)

// ClassifyRequest describes one differential classification: a base
// revision, a patch, and the candidate test identifiers to compare across
// the two tree states.
type ClassifyRequest struct {
	CloneURL string
	Revision string
	Patch    string
	Tests    []string
}

// ClassifierService drives one classification through its lifecycle:
// provision, materialize, before-run, patch, after-run, set algebra,
// unconditional teardown. The explicit state machine makes the ordering
// and one-sandbox-per-run invariants structural rather than caller
// discipline.
type ClassifierService struct {
	provisioner  sandbox.Provisioner
	materializer vcs.Materializer
	applicator   vcs.Applicator
	runner       testexec.Runner
	timeout      time.Duration
	metrics      *otel.Metrics
	log          *slog.Logger
}

// NewClassifierService wires the classification pipeline. metrics may be
// nil when telemetry is disabled.
func NewClassifierService(
	provisioner sandbox.Provisioner,
	materializer vcs.Materializer,
	applicator vcs.Applicator,
	runner testexec.Runner,
	timeout time.Duration,
	metrics *otel.Metrics,
	log *slog.Logger,
) *ClassifierService {
	return &ClassifierService{
		provisioner:  provisioner,
		materializer: materializer,
		applicator:   applicator,
		runner:       runner,
		timeout:      timeout,
		metrics:      metrics,
		log:          log,
	}
}

// Classify runs the full before/after pipeline and returns the classified
// sets. Any gate failure aborts with the gate's sentinel error and no set
// data; the sandbox is torn down exactly once on every exit path,
// cancellation included. An empty identifier set short-circuits to an
// empty result without provisioning: an unscoped invocation would run the
// whole suite, which this engine never does.
func (s *ClassifierService) Classify(ctx context.Context, req ClassifyRequest) (classify.Result, error) {
	if len(req.Tests) == 0 {
		s.log.Info("no candidate tests, skipping execution", "revision", req.Revision)
		return classify.Partition(testrun.NewResult(nil, ""), testrun.NewResult(nil, "")), nil
	}

	start := time.Now()
	s.count(ctx, func(m *otel.Metrics) { m.ClassificationsStarted.Add(ctx, 1) })

	box, err := s.provisioner.Acquire(ctx)
	if err != nil {
		s.count(ctx, func(m *otel.Metrics) { m.ClassificationsAborted.Add(ctx, 1) })
		return classify.Result{}, fmt.Errorf("acquire sandbox: %w", err)
	}
	// Teardown runs even when the surrounding context is cancelled.
	defer s.provisioner.Release(context.WithoutCancel(ctx), box)

	ctx, span := otel.StartClassificationSpan(ctx, box.ID(), req.Revision)
	defer span.End()

	state := classify.StateStart
	abort := func(cause error) (classify.Result, error) {
		state, _ = state.Transition(classify.StateAborted)
		s.count(ctx, func(m *otel.Metrics) { m.ClassificationsAborted.Add(ctx, 1) })
		s.log.Warn("classification aborted", "state", state, "error", cause)
		return classify.Result{}, cause
	}

	if err := s.materialize(ctx, box, req.CloneURL, req.Revision); err != nil {
		return abort(err)
	}
	if state, err = state.Transition(classify.StateBeforeMaterialized); err != nil {
		return abort(err)
	}

	before := s.run(ctx, box, req.Tests, "before")
	if state, err = state.Transition(classify.StateBeforeExecuted); err != nil {
		return abort(err)
	}

	if err := s.apply(ctx, box, req.Patch); err != nil {
		return abort(err)
	}
	if state, err = state.Transition(classify.StatePatched); err != nil {
		return abort(err)
	}

	after := s.run(ctx, box, req.Tests, "after")
	if state, err = state.Transition(classify.StateAfterExecuted); err != nil {
		return abort(err)
	}

	result := classify.Partition(before, after)
	if state, err = state.Transition(classify.StateClassified); err != nil {
		return abort(err)
	}

	s.count(ctx, func(m *otel.Metrics) {
		m.ClassificationsDone.Add(ctx, 1)
		m.ClassificationDuration.Record(ctx, time.Since(start).Seconds())
		m.FailToPassCount.Record(ctx, int64(len(result.FailToPass)))
		m.PassToPassCount.Record(ctx, int64(len(result.PassToPass)))
	})
	s.log.Info("classification complete",
		"revision", req.Revision,
		"fail_to_pass", len(result.FailToPass),
		"pass_to_pass", len(result.PassToPass),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

func (s *ClassifierService) materialize(ctx context.Context, box sandbox.Box, cloneURL, revision string) error {
	ctx, span := otel.StartStageSpan(ctx, "materialize")
	defer span.End()
	return s.materializer.Materialize(ctx, box, cloneURL, revision)
}

func (s *ClassifierService) apply(ctx context.Context, box sandbox.Box, patch string) error {
	ctx, span := otel.StartStageSpan(ctx, "patch")
	defer span.End()
	return s.applicator.Apply(ctx, box, patch)
}

func (s *ClassifierService) run(ctx context.Context, box sandbox.Box, tests []string, stage string) testrun.Result {
	ctx, span := otel.StartStageSpan(ctx, "run-"+stage)
	defer span.End()

	result := s.runner.Run(ctx, box, tests, s.timeout)
	if result.RawOutput == testrun.TimeoutRawOutput {
		s.count(ctx, func(m *otel.Metrics) { m.TestRunTimeouts.Add(ctx, 1) })
	}
	return result
}

// count guards metric recording behind the nil check for disabled
// telemetry.
func (s *ClassifierService) count(_ context.Context, record func(*otel.Metrics)) {
	if s.metrics != nil {
		record(s.metrics)
	}
}
