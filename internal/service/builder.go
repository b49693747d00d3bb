package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/BenchForge/internal/adapter/otel"
	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain"
	"github.com/Strob0t/BenchForge/internal/domain/changeset"
	"github.com/Strob0t/BenchForge/internal/domain/classify"
	"github.com/Strob0t/BenchForge/internal/domain/session"
	"github.com/Strob0t/BenchForge/internal/logger"
	"github.com/Strob0t/BenchForge/internal/port/metadata"
)

// Classifier is the differential engine seam the builder drives, one call
// per pull request.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (classify.Result, error)
}

// BuildRequest describes one dataset build: an enhancement label and the
// explicit pull request numbers that belong to it, in task order.
type BuildRequest struct {
	EnhancementID string
	PRNumbers     []int
	Difficulty    string

	// SkipClassification assembles records without executing any tests,
	// leaving both sets empty. Useful for fast dry runs of the scraping
	// and record shape.
	SkipClassification bool
}

// BuilderService assembles a Task by classifying each pull request and
// packaging the results as ordered sessions. Classifications for
// different pull requests run concurrently, each against its own sandbox.
type BuilderService struct {
	meta       metadata.Provider
	classifier Classifier
	cfg        config.Build
	log        *slog.Logger
}

// NewBuilderService creates a BuilderService.
func NewBuilderService(meta metadata.Provider, classifier Classifier, cfg config.Build, log *slog.Logger) *BuilderService {
	return &BuilderService{meta: meta, classifier: classifier, cfg: cfg, log: log}
}

// draft carries one pull request's intermediate state between the
// concurrent classification phase and the ordered assembly phase.
type draft struct {
	pr        session.PullRequest
	testPatch string
	provides  []string
	result    classify.Result
	ok        bool
}

// Build fetches, classifies, and assembles every requested pull request.
// One pull request's failure never fails the batch: its session is
// recorded with empty sets (metadata failures drop the session entirely,
// since there is nothing to record). Only an unavailable isolation
// mechanism aborts the whole build.
func (b *BuilderService) Build(ctx context.Context, req BuildRequest) (session.Task, error) {
	owner, name, ok := strings.Cut(b.meta.Repo(), "/")
	if !ok {
		return session.Task{}, fmt.Errorf("repository %q is not owner/name", b.meta.Repo())
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = b.cfg.Difficulty
	}

	taskID := session.TaskID(owner, name, req.EnhancementID)
	b.log.Info("building task", "task", taskID, "prs", len(req.PRNumbers), "difficulty", difficulty)

	drafts := make([]*draft, len(req.PRNumbers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.MaxConcurrent)

	for i, number := range req.PRNumbers {
		g.Go(func() error {
			d, err := b.buildDraft(gctx, number, req.SkipClassification)
			if err != nil {
				if errors.Is(err, domain.ErrProvision) {
					return err
				}
				b.log.Error("pull request skipped", "pr", number, "error", err)
				return nil
			}
			drafts[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return session.Task{}, fmt.Errorf("build %s: %w", taskID, err)
	}

	task := session.Task{
		ID:            taskID,
		Repo:          b.meta.Repo(),
		EnhancementID: req.EnhancementID,
		Difficulty:    difficulty,
		CreatedAt:     time.Now().UTC(),
		Version:       session.Version,
	}

	// Assembly is sequential: sequence numbers and depends-on references
	// need the earlier sessions already built.
	for _, d := range drafts {
		if d == nil {
			continue
		}
		seq := len(task.Sessions) + 1
		s := session.Session{
			ID:                    session.SessionID(taskID, seq),
			SequenceNumber:        seq,
			PRNumber:              d.pr.Number,
			BaseCommit:            d.pr.BaseSHA,
			ProblemStatement:      session.ProblemStatement(d.pr),
			HintsText:             session.Hints(d.pr),
			Patch:                 d.pr.Diff,
			TestPatch:             d.testPatch,
			FailToPass:            emptyNotNil(d.result.FailToPass),
			PassToPass:            emptyNotNil(d.result.PassToPass),
			DependsOn:             session.DependsOn(d.pr, task.Sessions),
			Provides:              d.provides,
			ExpectedMemoryUpdates: map[string]any{},
		}
		task.Sessions = append(task.Sessions, s)
	}
	task.TotalSessions = len(task.Sessions)

	if task.TotalSessions == 0 {
		return session.Task{}, fmt.Errorf("build %s: no pull request produced a session", taskID)
	}

	classified := 0
	for _, d := range drafts {
		if d != nil && d.ok {
			classified++
		}
	}
	b.log.Info("task built", "task", taskID, "sessions", task.TotalSessions, "classified", classified)
	return task, nil
}

// buildDraft fetches one pull request and classifies it.
func (b *BuilderService) buildDraft(ctx context.Context, number int, skip bool) (*draft, error) {
	sessionName := fmt.Sprintf("pr-%d", number)
	ctx, span := otel.StartSessionSpan(ctx, sessionName, number)
	defer span.End()

	pr, err := b.meta.PullRequest(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("pull request %d: %w", number, err)
	}
	pr.Diff, err = b.meta.Diff(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("pull request %d diff: %w", number, err)
	}

	d := &draft{pr: pr}
	testFiles := b.analyze(ctx, d)

	if skip {
		b.log.Info("classification skipped by request", "pr", number)
		return d, nil
	}

	ctx = logger.WithSessionID(ctx, sessionName)
	d.result, err = b.classifyWithRetry(ctx, ClassifyRequest{
		CloneURL: b.meta.CloneURL(),
		Revision: pr.BaseSHA,
		Patch:    pr.Diff,
		Tests:    testFiles,
	})
	if err != nil {
		if errors.Is(err, domain.ErrProvision) {
			return nil, err
		}
		// Recorded without classification data: empty sets, never
		// partial or guessed ones.
		b.log.Error("classification failed", "pr", number, "error", err)
		d.result = classify.Result{}
		return d, nil
	}
	d.ok = true
	return d, nil
}

// analyze extracts the test-relevant shape of the diff: candidate test
// files to execute, the test-only sub-patch, and introduced symbols. When
// the diff does not parse structurally, the paginated files listing is
// the fallback source of candidate test files.
func (b *BuilderService) analyze(ctx context.Context, d *draft) []string {
	cs, err := changeset.Parse(d.pr.Diff)
	if err != nil {
		b.log.Warn("diff did not parse, using file listing", "pr", d.pr.Number, "error", err)
		files, listErr := b.meta.Files(ctx, d.pr.Number)
		if listErr != nil {
			b.log.Error("file listing failed", "pr", d.pr.Number, "error", listErr)
			return nil
		}
		var tests []string
		for _, f := range files {
			if strings.Contains(strings.ToLower(f), "test") {
				tests = append(tests, f)
			}
		}
		return tests
	}

	d.provides = cs.Provides()
	if d.testPatch, err = cs.TestPatch(); err != nil {
		b.log.Warn("test sub-patch not derivable", "pr", d.pr.Number, "error", err)
	}
	return cs.TestFiles()
}

// classifyWithRetry retries materialize-level failures with Fibonacci
// backoff; they are usually transient network or mirror lag. Patch and
// execution failures are never retried, the same inputs cannot succeed.
func (b *BuilderService) classifyWithRetry(ctx context.Context, req ClassifyRequest) (classify.Result, error) {
	var result classify.Result
	backoff := retry.WithMaxRetries(uint64(b.cfg.MaterializeRetries), retry.NewFibonacci(b.cfg.RetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		result, err = b.classifier.Classify(ctx, req)
		if errors.Is(err, domain.ErrMaterialize) {
			return retry.RetryableError(err)
		}
		return err
	})
	return result, err
}

// emptyNotNil keeps set fields JSON-encoding as [] rather than null.
func emptyNotNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
