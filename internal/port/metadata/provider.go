// Package metadata defines the port for the external code-hosting API the
// builder consumes pull request metadata from.
package metadata

import (
	"context"

	"github.com/Strob0t/BenchForge/internal/domain/session"
)

// Provider fetches pull request metadata for one repository. The builder
// depends only on the shape of what is returned, never on how it was
// obtained.
type Provider interface {
	// Repo returns the "owner/name" identifier the provider is bound to.
	Repo() string

	// CloneURL returns the clone URL of the repository.
	CloneURL() string

	// PullRequest fetches metadata for one pull request, diff excluded.
	// A missing pull request wraps domain.ErrNotFound.
	PullRequest(ctx context.Context, number int) (session.PullRequest, error)

	// Diff fetches the unified diff of one pull request.
	Diff(ctx context.Context, number int) (string, error)

	// Files lists the paths one pull request touches, traversing
	// pagination. Used as a fallback when the diff itself cannot be
	// parsed structurally.
	Files(ctx context.Context, number int) ([]string, error)
}
