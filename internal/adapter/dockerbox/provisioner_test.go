package dockerbox

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/Strob0t/BenchForge/internal/config"
)

// fakeDocker records docker invocations and echoes a container ID on
// create.
type fakeDocker struct {
	calls []string
}

func (f *fakeDocker) command(ctx context.Context, _ string, args ...string) *exec.Cmd {
	f.calls = append(f.calls, strings.Join(args, " "))
	if len(args) > 0 && args[0] == "create" {
		return exec.CommandContext(ctx, "echo", "cid1234567890abc")
	}
	return exec.CommandContext(ctx, "true")
}

func testConfig(workRoot string) config.Sandbox {
	return config.Sandbox{
		Strategy:    "docker",
		Image:       "python:3.11-slim",
		MemoryMB:    4096,
		CPUQuota:    2000,
		PidsLimit:   2048,
		NetworkMode: "bridge",
		WorkRoot:    workRoot,
	}
}

func newProvisioner(t *testing.T, fd *fakeDocker) *Provisioner {
	t.Helper()
	p := New(testConfig(t.TempDir()), slog.New(slog.DiscardHandler))
	p.execCommand = fd.command
	return p
}

func TestAcquire_CreatesAndStartsContainer(t *testing.T) {
	fd := &fakeDocker{}
	p := newProvisioner(t, fd)

	box, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	if len(fd.calls) != 2 {
		t.Fatalf("expected create + start, got %v", fd.calls)
	}
	create := fd.calls[0]
	for _, want := range []string{
		"create",
		"--memory=4096m",
		"--cpus=2.00",
		"--pids-limit=2048",
		"--network=bridge",
		":" + workspaceMount,
		"python:3.11-slim",
		"sleep infinity",
	} {
		if !strings.Contains(create, want) {
			t.Errorf("create call missing %q: %s", want, create)
		}
	}
	if !strings.HasPrefix(fd.calls[1], "start cid1234567890abc") {
		t.Errorf("unexpected start call %q", fd.calls[1])
	}

	if box.ExecRoot() != workspaceMount {
		t.Errorf("expected exec root %s, got %s", workspaceMount, box.ExecRoot())
	}
	if _, err := os.Stat(box.WorkDir()); err != nil {
		t.Errorf("expected working directory to exist: %v", err)
	}
}

func TestAcquire_FractionalCPUQuota(t *testing.T) {
	tests := []struct {
		quota int
		want  string
	}{
		{quota: 500, want: "--cpus=0.50"},
		{quota: 1500, want: "--cpus=1.50"},
		{quota: 4000, want: "--cpus=4.00"},
	}
	for _, tt := range tests {
		fd := &fakeDocker{}
		cfg := testConfig(t.TempDir())
		cfg.CPUQuota = tt.quota
		p := New(cfg, slog.New(slog.DiscardHandler))
		p.execCommand = fd.command

		box, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("quota %d: %v", tt.quota, err)
		}
		if !strings.Contains(fd.calls[0], tt.want) {
			t.Errorf("quota %d: expected %s in create call %q", tt.quota, tt.want, fd.calls[0])
		}
		p.Release(context.Background(), box)
	}
}

func TestRelease_RemovesContainerAndWorkdir(t *testing.T) {
	fd := &fakeDocker{}
	p := newProvisioner(t, fd)

	box, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	workDir := box.WorkDir()

	p.Release(context.Background(), box)

	last := fd.calls[len(fd.calls)-1]
	if !strings.HasPrefix(last, "rm -f") {
		t.Errorf("expected rm -f call, got %q", last)
	}
	if _, statErr := os.Stat(workDir); !os.IsNotExist(statErr) {
		t.Error("expected working directory removed")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	fd := &fakeDocker{}
	p := newProvisioner(t, fd)

	box, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	p.Release(context.Background(), box)
	callsAfterFirst := len(fd.calls)
	p.Release(context.Background(), box)

	if len(fd.calls) != callsAfterFirst {
		t.Errorf("expected second release to be a no-op, calls grew to %v", fd.calls)
	}
}

func TestBox_ExecRunsInsideContainer(t *testing.T) {
	fd := &fakeDocker{}
	p := newProvisioner(t, fd)

	box, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Release(context.Background(), box)

	if _, err := box.Exec(context.Background(), "#!/bin/bash\necho hi\n"); err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}

	last := fd.calls[len(fd.calls)-1]
	if !strings.HasPrefix(last, "exec -w "+workspaceMount+" cid1234567890abc /bin/bash "+workspaceMount+"/.benchforge-") {
		t.Errorf("unexpected exec call %q", last)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("expected 12-char prefix, got %q", got)
	}
	if got := shortID("short"); got != "short" {
		t.Errorf("expected short IDs unchanged, got %q", got)
	}
}
