// Package dockerbox implements the sandbox port with Docker containers:
// stronger isolation at the cost of container startup time. The working
// tree lives on the host and is bind-mounted into the container, so git
// operations run host-side while test invocations run confined.
package dockerbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain"
	"github.com/Strob0t/BenchForge/internal/port/sandbox"
)

const strategyName = "docker"

// workspaceMount is the container-side path of the bind-mounted tree.
const workspaceMount = "/workspace"

// Box is one running container plus its host working directory.
type Box struct {
	id          string
	containerID string
	workDir     string

	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// ID returns the sandbox handle (container name).
func (b *Box) ID() string { return b.id }

// WorkDir returns the host path of the working tree.
func (b *Box) WorkDir() string { return b.workDir }

// ExecRoot returns the container-side path of the same tree.
func (b *Box) ExecRoot() string { return workspaceMount }

// Exec writes the script into the working tree and runs it inside the
// container, returning combined output. The context bounds the run.
func (b *Box) Exec(ctx context.Context, script string) (string, error) {
	scriptName := fmt.Sprintf(".benchforge-%s.sh", uuid.NewString()[:8])
	hostPath := filepath.Join(b.workDir, scriptName)
	if err := os.WriteFile(hostPath, []byte(script), 0o700); err != nil { //nolint:gosec // script must be executable
		return "", fmt.Errorf("write exec script: %w", err)
	}
	defer os.Remove(hostPath)

	cmd := b.execCommand(ctx, "docker", "exec", "-w", workspaceMount, b.containerID,
		"/bin/bash", workspaceMount+"/"+scriptName)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("docker exec: %w", err)
	}
	return string(out), nil
}

// Provisioner acquires and releases Docker-backed sandboxes.
type Provisioner struct {
	cfg config.Sandbox
	log *slog.Logger

	mu    sync.Mutex
	boxes map[string]*Box

	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates a Docker provisioner. It does not probe the daemon; call
// Available first when strategy selection is automatic.
func New(cfg config.Sandbox, log *slog.Logger) *Provisioner {
	return &Provisioner{
		cfg:         cfg,
		log:         log,
		boxes:       make(map[string]*Box),
		execCommand: exec.CommandContext,
	}
}

// Name returns "docker".
func (p *Provisioner) Name() string { return strategyName }

// Available reports whether the Docker daemon answers. Strategy selection
// runs this once at startup, never per classification.
func Available(ctx context.Context) bool {
	return exec.CommandContext(ctx, "docker", "version", "--format", "{{.Server.Version}}").Run() == nil
}

// Acquire creates a working directory, then creates and starts a container
// with the tree bind-mounted and resource limits applied.
func (p *Provisioner) Acquire(ctx context.Context) (sandbox.Box, error) {
	id := uuid.NewString()
	workDir, err := os.MkdirTemp(p.cfg.WorkRoot, "benchforge-"+shortID(id)+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: workdir: %v", domain.ErrProvision, err)
	}

	containerName := "benchforge-" + shortID(id)
	args := []string{
		"create",
		"--name", containerName,
		fmt.Sprintf("--memory=%dm", p.cfg.MemoryMB),
		fmt.Sprintf("--cpus=%.2f", float64(p.cfg.CPUQuota)/1000),
		fmt.Sprintf("--pids-limit=%d", p.cfg.PidsLimit),
	}
	if p.cfg.NetworkMode != "" {
		args = append(args, fmt.Sprintf("--network=%s", p.cfg.NetworkMode))
	}
	args = append(args,
		"-v", fmt.Sprintf("%s:%s", workDir, workspaceMount),
		"--tmpfs", "/tmp",
		p.cfg.Image,
		"sleep", "infinity", // keep the container alive for docker exec
	)

	output, err := p.runDocker(ctx, args...)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return nil, fmt.Errorf("%w: create: %v", domain.ErrProvision, err)
	}
	containerID := strings.TrimSpace(output)

	if _, err := p.runDocker(ctx, "start", containerID); err != nil {
		_, _ = p.runDocker(ctx, "rm", "-f", containerID)
		_ = os.RemoveAll(workDir)
		return nil, fmt.Errorf("%w: start: %v", domain.ErrProvision, err)
	}

	box := &Box{
		id:          containerName,
		containerID: containerID,
		workDir:     workDir,
		execCommand: p.execCommand,
	}

	p.mu.Lock()
	p.boxes[box.id] = box
	p.mu.Unlock()

	p.log.Debug("sandbox acquired", "strategy", strategyName, "id", box.id, "workdir", workDir)
	return box, nil
}

// Release removes the container and the working directory. Idempotent: an
// already-removed container or unknown box is logged and swallowed.
func (p *Provisioner) Release(ctx context.Context, box sandbox.Box) {
	p.mu.Lock()
	b, ok := p.boxes[box.ID()]
	delete(p.boxes, box.ID())
	p.mu.Unlock()

	if !ok {
		return
	}

	if _, err := p.runDocker(ctx, "rm", "-f", b.containerID); err != nil {
		p.log.Warn("sandbox container remove failed", "id", b.id, "error", err)
	}
	if err := os.RemoveAll(b.workDir); err != nil {
		p.log.Warn("sandbox workdir remove failed", "id", b.id, "error", err)
	}
}

// shortID returns the first 12 characters of an ID (or the full string if shorter).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// runDocker executes a docker command and returns stdout.
func (p *Provisioner) runDocker(ctx context.Context, args ...string) (string, error) {
	cmd := p.execCommand(ctx, "docker", args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}
