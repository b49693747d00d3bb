// Package procbox implements the sandbox port with plain host processes:
// weaker isolation than a container, used when no Docker daemon is
// available. Each sandbox is a disposable temp directory; scripts run as
// host subprocesses with that directory as the working tree.
package procbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain"
	"github.com/Strob0t/BenchForge/internal/port/sandbox"
)

const strategyName = "process"

// Box is one temp-directory sandbox.
type Box struct {
	id      string
	workDir string

	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// ID returns the sandbox handle.
func (b *Box) ID() string { return b.id }

// WorkDir returns the working tree path.
func (b *Box) WorkDir() string { return b.workDir }

// ExecRoot returns the working tree path; host-side and script-side views
// coincide for the process strategy.
func (b *Box) ExecRoot() string { return b.workDir }

// Exec writes the script into the working tree and runs it with bash,
// returning combined output. The context bounds the run.
func (b *Box) Exec(ctx context.Context, script string) (string, error) {
	scriptName := fmt.Sprintf(".benchforge-%s.sh", uuid.NewString()[:8])
	path := filepath.Join(b.workDir, scriptName)
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil { //nolint:gosec // script must be executable
		return "", fmt.Errorf("write exec script: %w", err)
	}
	defer os.Remove(path)

	cmd := b.execCommand(ctx, "/bin/bash", path)
	cmd.Dir = b.workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("exec script: %w", err)
	}
	return string(out), nil
}

// Provisioner acquires and releases process-backed sandboxes.
type Provisioner struct {
	cfg config.Sandbox
	log *slog.Logger

	mu    sync.Mutex
	boxes map[string]*Box

	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates a process provisioner.
func New(cfg config.Sandbox, log *slog.Logger) *Provisioner {
	return &Provisioner{
		cfg:         cfg,
		log:         log,
		boxes:       make(map[string]*Box),
		execCommand: exec.CommandContext,
	}
}

// Name returns "process".
func (p *Provisioner) Name() string { return strategyName }

// Acquire creates a fresh temp working directory.
func (p *Provisioner) Acquire(_ context.Context) (sandbox.Box, error) {
	id := uuid.NewString()
	workDir, err := os.MkdirTemp(p.cfg.WorkRoot, "benchforge-"+id[:12]+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: workdir: %v", domain.ErrProvision, err)
	}

	box := &Box{id: id, workDir: workDir, execCommand: p.execCommand}

	p.mu.Lock()
	p.boxes[id] = box
	p.mu.Unlock()

	p.log.Debug("sandbox acquired", "strategy", strategyName, "id", id, "workdir", workDir)
	return box, nil
}

// Release removes the working directory. Idempotent; a vanished directory
// or unknown box is logged and swallowed.
func (p *Provisioner) Release(_ context.Context, box sandbox.Box) {
	p.mu.Lock()
	b, ok := p.boxes[box.ID()]
	delete(p.boxes, box.ID())
	p.mu.Unlock()

	if !ok {
		return
	}
	if err := os.RemoveAll(b.workDir); err != nil {
		p.log.Warn("sandbox workdir remove failed", "id", b.id, "error", err)
	}
}
