// Package testexec defines the port for bounded, scoped test invocations.
package testexec

import (
	"context"
	"time"

	"github.com/Strob0t/BenchForge/internal/domain/testrun"
	"github.com/Strob0t/BenchForge/internal/port/sandbox"
)

// Runner executes one test invocation inside a sandbox, scoped exactly to
// the supplied identifiers.
type Runner interface {
	// Run invokes the identifiers and returns parsed outcomes. Run never
	// fails: a wall-clock timeout yields the sentinel timeout result, and
	// an invocation-level failure yields a result with zero observations.
	Run(ctx context.Context, box sandbox.Box, identifiers []string, timeout time.Duration) testrun.Result
}
