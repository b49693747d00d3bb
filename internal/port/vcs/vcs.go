// Package vcs defines the version-control port used to materialize base
// revisions and apply patches inside a sandbox working tree.
package vcs

import (
	"context"

	"github.com/Strob0t/BenchForge/internal/port/sandbox"
)

// Materializer checks out base revisions into sandbox working trees.
type Materializer interface {
	// Materialize brings the working tree to a clean checkout of the
	// revision, reusing an existing clone when possible. A failure wraps
	// domain.ErrMaterialize and leaves the classification unable to
	// proceed.
	Materialize(ctx context.Context, box sandbox.Box, cloneURL, revision string) error
}

// Applicator applies unified diffs to materialized working trees.
type Applicator interface {
	// Apply applies the patch, trying a strict application before a
	// three-way fallback. The tree is left unchanged on failure, which
	// wraps domain.ErrPatchApply.
	Apply(ctx context.Context, box sandbox.Box, patch string) error
}
