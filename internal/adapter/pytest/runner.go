// Package pytest implements the testexec port for pytest-based projects.
// One invocation per run, scoped exactly to the supplied identifiers,
// combined stdout/stderr as the sole signal.
package pytest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain/testrun"
	"github.com/Strob0t/BenchForge/internal/port/sandbox"
)

// Runner builds and executes one pytest invocation inside a sandbox.
type Runner struct {
	cfg config.Executor
	log *slog.Logger
}

// NewRunner creates a pytest Runner.
func NewRunner(cfg config.Executor, log *slog.Logger) *Runner {
	return &Runner{cfg: cfg, log: log}
}

// Run executes the identifiers under a hard wall-clock bound and parses
// whatever output came back. A timeout yields the sentinel result; an
// invocation failure yields the parse of its partial output. Run never
// reports an error: in this domain a broken run is an observation, not an
// abort.
func (r *Runner) Run(ctx context.Context, box sandbox.Box, identifiers []string, timeout time.Duration) testrun.Result {
	if timeout <= 0 {
		timeout = r.cfg.Timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	script := r.Script(identifiers)
	out, err := box.Exec(runCtx, script)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.log.Warn("test invocation timed out", "timeout", timeout, "tests", len(identifiers))
		return testrun.TimeoutResult()
	}
	if err != nil {
		// The script swallows pytest's exit status, so an error here is
		// the shell itself failing; the partial output is still parsed.
		r.log.Warn("test invocation failed", "error", err)
	}

	return testrun.Parse(out)
}

// Script renders the bash invocation for the given identifiers. Dependency
// installation is best effort: each install ends in "|| true" because a
// broken environment should surface as test failures, not abort the run.
func (r *Runner) Script(identifiers []string) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("cd \"$(dirname \"$0\")\"\n")
	b.WriteString("pip install -e . --no-build-isolation -q 2>/dev/null || true\n")
	if len(r.cfg.ExtraPackages) > 0 {
		fmt.Fprintf(&b, "pip install %s -q 2>/dev/null || true\n", strings.Join(r.cfg.ExtraPackages, " "))
	}
	b.WriteString("python -m pytest --tb=short -v --no-header -q")
	for _, id := range identifiers {
		b.WriteString(" ")
		b.WriteString(shellQuote(id))
	}
	b.WriteString(" 2>&1 || true\n")
	return b.String()
}

// shellQuote single-quotes an argument for bash, escaping embedded quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
