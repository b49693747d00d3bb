package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/BenchForge/internal/adapter/artifact"
	"github.com/Strob0t/BenchForge/internal/adapter/dockerbox"
	"github.com/Strob0t/BenchForge/internal/adapter/gitcli"
	"github.com/Strob0t/BenchForge/internal/adapter/githubmeta"
	"github.com/Strob0t/BenchForge/internal/adapter/otel"
	"github.com/Strob0t/BenchForge/internal/adapter/pytest"
	"github.com/Strob0t/BenchForge/internal/adapter/ristretto"
	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/git"
	"github.com/Strob0t/BenchForge/internal/port/metadata"
	"github.com/Strob0t/BenchForge/internal/secrets"
	"github.com/Strob0t/BenchForge/internal/service"
)

const version = "0.3.0"

// pipeline bundles everything a command needs to classify pull requests.
type pipeline struct {
	meta       metadata.Provider
	classifier *service.ClassifierService
	cache      *ristretto.Cache
}

func (p *pipeline) close() {
	if p.cache != nil {
		p.cache.Close()
	}
}

// newPipeline wires the classification stack for one repository.
func newPipeline(ctx context.Context, cfg *config.Config, repo string) (*pipeline, error) {
	log := slog.Default()

	vault, err := secrets.NewVault(secrets.EnvLoader("GITHUB_TOKEN"))
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	token := vault.Get("GITHUB_TOKEN")
	if token == "" {
		token = promptToken()
	} else {
		log.Debug("github token loaded", "token", vault.Redacted("GITHUB_TOKEN"))
	}

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB * 1024 * 1024)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	meta := githubmeta.New(cfg.GitHub, cfg.Rate, repo, token, cache, log)

	provisioner, err := service.SelectProvisioner(ctx, cfg.Sandbox, log)
	if err != nil {
		cache.Close()
		return nil, err
	}

	var metrics *otel.Metrics
	if cfg.Telemetry.Enabled {
		if metrics, err = otel.NewMetrics(); err != nil {
			cache.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	pool := git.NewPool(cfg.Git.MaxConcurrent)
	classifier := service.NewClassifierService(
		provisioner,
		gitcli.NewMaterializer(cfg.Git, pool, log),
		gitcli.NewApplicator(cfg.Git, pool, log),
		pytest.NewRunner(cfg.Executor, log),
		cfg.Executor.Timeout,
		metrics,
		log,
	)

	return &pipeline{meta: meta, classifier: classifier, cache: cache}, nil
}

// promptToken asks for the API token on the terminal without echo.
// Returns empty (anonymous, rate-limited access) when not interactive.
func promptToken() string {
	if !term.IsTerminal(int(syscall.Stdin)) {
		slog.Warn("no GITHUB_TOKEN set, using anonymous API access")
		return ""
	}
	fmt.Fprint(os.Stderr, "GitHub token (empty for anonymous): ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		slog.Warn("token prompt failed", "error", err)
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func runClassify(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	repo := fs.String("repo", "", "owner/name repository (required)")
	pr := fs.Int("pr", 0, "pull request number (required)")
	tests := fs.String("tests", "", "comma-separated test identifiers (default: test files from the diff)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *repo == "" || *pr == 0 {
		return fmt.Errorf("--repo and --pr are required")
	}

	p, err := newPipeline(ctx, cfg, *repo)
	if err != nil {
		return err
	}
	defer p.close()

	builder := service.NewBuilderService(p.meta, p.classifier, cfg.Build, slog.Default())
	if *tests != "" {
		pull, err := p.meta.PullRequest(ctx, *pr)
		if err != nil {
			return err
		}
		if pull.Diff, err = p.meta.Diff(ctx, *pr); err != nil {
			return err
		}
		result, err := p.classifier.Classify(ctx, service.ClassifyRequest{
			CloneURL: p.meta.CloneURL(),
			Revision: pull.BaseSHA,
			Patch:    pull.Diff,
			Tests:    parseTestList(*tests),
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	}

	// No explicit identifiers: run the single-PR path of the builder so
	// candidate tests come from the diff the same way a build would.
	task, err := builder.Build(ctx, service.BuildRequest{
		EnhancementID: fmt.Sprintf("pr-%d", *pr),
		PRNumbers:     []int{*pr},
	})
	if err != nil {
		return err
	}
	return printJSON(task.Sessions[0])
}

func runBuild(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	repo := fs.String("repo", "", "owner/name repository (required)")
	prList := fs.String("prs", "", "comma-separated pull request numbers, in task order (required)")
	enhancementID := fs.String("enhancement-id", "", "label for the enhancement this task tracks (required)")
	difficulty := fs.String("difficulty", "", "difficulty label: easy, medium, hard (default from config)")
	skipTests := fs.Bool("skip-tests", false, "assemble records without executing tests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *repo == "" || *prList == "" || *enhancementID == "" {
		return fmt.Errorf("--repo, --prs and --enhancement-id are required")
	}

	numbers, err := parsePRList(*prList)
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, cfg, *repo)
	if err != nil {
		return err
	}
	defer p.close()

	builder := service.NewBuilderService(p.meta, p.classifier, cfg.Build, slog.Default())
	task, err := builder.Build(ctx, service.BuildRequest{
		EnhancementID:      *enhancementID,
		PRNumbers:          numbers,
		Difficulty:         *difficulty,
		SkipClassification: *skipTests,
	})
	if err != nil {
		return err
	}

	writer, err := artifact.NewWriter(cfg.Build.OutputDir)
	if err != nil {
		return err
	}
	jsonlPath, err := writer.WriteJSONL(task)
	if err != nil {
		return err
	}
	jsonPath, err := writer.WriteJSON(task)
	if err != nil {
		return err
	}

	slog.Info("artifacts written", "jsonl", jsonlPath, "json", jsonPath)
	fmt.Println(jsonlPath)
	fmt.Println(jsonPath)
	return nil
}

func runDoctor(ctx context.Context, cfg *config.Config) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	check := func(name string, ok bool, detail string) {
		status := "ok"
		if !ok {
			status = "MISSING"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, status, detail)
	}

	_, gitErr := exec.LookPath("git")
	check("git", gitErr == nil, "required for revision materialization")

	docker := dockerbox.Available(ctx)
	detail := "containerized isolation available"
	if !docker {
		detail = "will fall back to process isolation"
	}
	check("docker", docker, detail)

	check("GITHUB_TOKEN", os.Getenv("GITHUB_TOKEN") != "", "anonymous access is heavily rate limited")
	check("config", true, fmt.Sprintf("strategy=%s image=%s timeout=%s",
		cfg.Sandbox.Strategy, cfg.Sandbox.Image, cfg.Executor.Timeout))
	return nil
}

func parsePRList(s string) ([]int, error) {
	var numbers []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid pull request number %q", part)
		}
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("no pull request numbers given")
	}
	return numbers, nil
}

func parseTestList(s string) []string {
	var tests []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tests = append(tests, part)
	}
	return tests
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
