// Package gitcli implements the vcs ports by shelling out to the git CLI.
// The contract with git is exit status plus stderr text, not a typed API;
// every command runs through the shared pool under its own deadline.
package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain"
	"github.com/Strob0t/BenchForge/internal/git"
	"github.com/Strob0t/BenchForge/internal/port/sandbox"
)

// Materializer checks out base revisions into sandbox working trees.
type Materializer struct {
	cfg  config.Git
	pool *git.Pool
	log  *slog.Logger

	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewMaterializer creates a Materializer sharing the given operation pool.
func NewMaterializer(cfg config.Git, pool *git.Pool, log *slog.Logger) *Materializer {
	return &Materializer{
		cfg:         cfg,
		pool:        pool,
		log:         log,
		execCommand: exec.CommandContext,
	}
}

// Materialize brings the sandbox working tree to a clean checkout of the
// revision. An existing clone is fetched and hard-reset (cheap path); a
// fresh tree is cloned shallow first, falling back to an unshallow fetch
// when the revision is older than the shallow window. Any git failure
// wraps domain.ErrMaterialize.
func (m *Materializer) Materialize(ctx context.Context, box sandbox.Box, cloneURL, revision string) error {
	dir := box.WorkDir()

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		if err := m.reuse(ctx, dir, revision); err != nil {
			return fmt.Errorf("%w: reuse %s: %v", domain.ErrMaterialize, revision, err)
		}
		return nil
	}

	if err := m.freshClone(ctx, dir, cloneURL, revision); err != nil {
		return fmt.Errorf("%w: clone %s at %s: %v", domain.ErrMaterialize, cloneURL, revision, err)
	}
	return nil
}

// reuse refreshes an existing clone: fetch everything, then force the tree
// to the revision.
func (m *Materializer) reuse(ctx context.Context, dir, revision string) error {
	if _, err := m.runGit(ctx, dir, "fetch", "--all"); err != nil {
		return err
	}
	if _, err := m.runGit(ctx, dir, "checkout", revision); err != nil {
		return err
	}
	_, err := m.runGit(ctx, dir, "reset", "--hard", revision)
	return err
}

// freshClone clones shallow into dir and checks out the revision. When the
// shallow history window does not contain the revision, the clone is
// unshallowed and the checkout retried once.
func (m *Materializer) freshClone(ctx context.Context, dir, cloneURL, revision string) error {
	depth := strconv.Itoa(m.cfg.CloneDepth)
	if _, err := m.runGit(ctx, "", "clone", "--depth", depth, cloneURL, dir); err != nil {
		return err
	}

	// Best effort: a direct fetch of the revision often lands it inside
	// the shallow window without unshallowing.
	if _, err := m.runGit(ctx, dir, "fetch", "--depth", depth, "origin", revision); err != nil {
		m.log.Debug("shallow revision fetch failed", "revision", revision, "error", err)
	}

	if _, err := m.runGit(ctx, dir, "checkout", revision); err == nil {
		return nil
	}

	m.log.Info("revision outside shallow window, unshallowing", "revision", revision, "depth", depth)
	if _, err := m.runGit(ctx, dir, "fetch", "--unshallow", "origin"); err != nil {
		return err
	}
	_, err := m.runGit(ctx, dir, "checkout", revision)
	return err
}

// runGit executes one git command through the pool under the operation
// timeout and returns its stdout.
func (m *Materializer) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	return runGit(ctx, m.pool, m.execCommand, m.cfg.OpTimeout, dir, args...)
}

func runGit(
	ctx context.Context,
	pool *git.Pool,
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd,
	timeout time.Duration,
	dir string,
	args ...string,
) (string, error) {
	var out string
	err := pool.Run(ctx, func() error {
		opCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			opCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		cmd := execCommand(opCtx, "git", args...)
		if dir != "" {
			cmd.Dir = dir
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
		}
		out = stdout.String()
		return nil
	})
	return out, err
}
