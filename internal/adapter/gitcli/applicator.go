package gitcli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain"
	"github.com/Strob0t/BenchForge/internal/git"
	"github.com/Strob0t/BenchForge/internal/port/sandbox"
)

// patchFileName is written into the working tree for git apply to read.
const patchFileName = ".benchforge.patch"

// Applicator applies unified diffs to materialized working trees.
type Applicator struct {
	cfg  config.Git
	pool *git.Pool
	log  *slog.Logger

	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewApplicator creates an Applicator sharing the given operation pool.
func NewApplicator(cfg config.Git, pool *git.Pool, log *slog.Logger) *Applicator {
	return &Applicator{
		cfg:         cfg,
		pool:        pool,
		log:         log,
		execCommand: exec.CommandContext,
	}
}

// Apply applies the patch to the sandbox working tree, strict mode first
// and three-way merge as the lenient fallback. git's own atomicity keeps
// the tree unchanged on a rejected application; no custom rollback. Total
// failure wraps domain.ErrPatchApply.
func (a *Applicator) Apply(ctx context.Context, box sandbox.Box, patch string) error {
	dir := box.WorkDir()
	path := filepath.Join(dir, patchFileName)
	if err := os.WriteFile(path, []byte(patch), 0o600); err != nil {
		return fmt.Errorf("%w: write patch: %v", domain.ErrPatchApply, err)
	}
	defer os.Remove(path)

	strictErr := a.runApply(ctx, dir, "apply", patchFileName)
	if strictErr == nil {
		return nil
	}

	a.log.Debug("strict apply rejected, retrying three-way", "error", strictErr)
	if err := a.runApply(ctx, dir, "apply", "--3way", patchFileName); err != nil {
		return fmt.Errorf("%w: strict: %v; three-way: %v", domain.ErrPatchApply, strictErr, err)
	}
	return nil
}

func (a *Applicator) runApply(ctx context.Context, dir string, args ...string) error {
	_, err := runGit(ctx, a.pool, a.execCommand, a.cfg.OpTimeout, dir, args...)
	return err
}
