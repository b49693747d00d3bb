package gitcli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain"
	"github.com/Strob0t/BenchForge/internal/git"
)

type fakeBox struct{ dir string }

func (f fakeBox) ID() string       { return "fake" }
func (f fakeBox) WorkDir() string  { return f.dir }
func (f fakeBox) ExecRoot() string { return f.dir }
func (f fakeBox) Exec(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

// fakeExec records each git invocation and decides success per call.
type fakeExec struct {
	calls []string
	fail  func(call string) bool
}

func (f *fakeExec) command(ctx context.Context, _ string, args ...string) *exec.Cmd {
	call := strings.Join(args, " ")
	f.calls = append(f.calls, call)
	if f.fail != nil && f.fail(call) {
		return exec.CommandContext(ctx, "false")
	}
	return exec.CommandContext(ctx, "true")
}

func testGitConfig() config.Git {
	return config.Git{MaxConcurrent: 1, OpTimeout: 5 * time.Second, CloneDepth: 100}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newMaterializer(fe *fakeExec) *Materializer {
	m := NewMaterializer(testGitConfig(), git.NewPool(1), discard())
	m.execCommand = fe.command
	return m
}

func newApplicator(fe *fakeExec) *Applicator {
	a := NewApplicator(testGitConfig(), git.NewPool(1), discard())
	a.execCommand = fe.command
	return a
}

func TestMaterializer_FreshClone(t *testing.T) {
	fe := &fakeExec{}
	m := newMaterializer(fe)
	box := fakeBox{dir: t.TempDir()}

	err := m.Materialize(context.Background(), box, "https://example.com/r.git", "abc123")
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}

	want := []string{
		"clone --depth 100 https://example.com/r.git " + box.dir,
		"fetch --depth 100 origin abc123",
		"checkout abc123",
	}
	if len(fe.calls) != len(want) {
		t.Fatalf("expected %d git calls, got %d: %v", len(want), len(fe.calls), fe.calls)
	}
	for i, w := range want {
		if fe.calls[i] != w {
			t.Errorf("call %d: expected %q, got %q", i, w, fe.calls[i])
		}
	}
}

func TestMaterializer_ReuseExistingClone(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	fe := &fakeExec{}
	m := newMaterializer(fe)

	if err := m.Materialize(context.Background(), fakeBox{dir: dir}, "ignored", "abc123"); err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}

	want := []string{"fetch --all", "checkout abc123", "reset --hard abc123"}
	if len(fe.calls) != len(want) {
		t.Fatalf("expected %d git calls, got %d: %v", len(want), len(fe.calls), fe.calls)
	}
	for i, w := range want {
		if fe.calls[i] != w {
			t.Errorf("call %d: expected %q, got %q", i, w, fe.calls[i])
		}
	}
}

func TestMaterializer_UnshallowFallback(t *testing.T) {
	checkouts := 0
	fe := &fakeExec{}
	fe.fail = func(call string) bool {
		if strings.HasPrefix(call, "checkout") {
			checkouts++
			return checkouts == 1 // revision outside the shallow window
		}
		return false
	}
	m := newMaterializer(fe)

	err := m.Materialize(context.Background(), fakeBox{dir: t.TempDir()}, "url", "old999")
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}

	joined := strings.Join(fe.calls, "\n")
	if !strings.Contains(joined, "fetch --unshallow origin") {
		t.Errorf("expected an unshallow fetch, calls were:\n%s", joined)
	}
	if checkouts != 2 {
		t.Errorf("expected checkout retried after unshallow, got %d attempts", checkouts)
	}
}

func TestMaterializer_FailureWrapsSentinel(t *testing.T) {
	fe := &fakeExec{fail: func(string) bool { return true }}
	m := newMaterializer(fe)

	err := m.Materialize(context.Background(), fakeBox{dir: t.TempDir()}, "url", "abc")
	if !errors.Is(err, domain.ErrMaterialize) {
		t.Errorf("expected ErrMaterialize, got %v", err)
	}
}

func TestApplicator_StrictFirst(t *testing.T) {
	fe := &fakeExec{}
	a := newApplicator(fe)

	if err := a.Apply(context.Background(), fakeBox{dir: t.TempDir()}, "diff"); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(fe.calls) != 1 || fe.calls[0] != "apply "+patchFileName {
		t.Errorf("expected one strict apply, got %v", fe.calls)
	}
}

func TestApplicator_ThreeWayFallback(t *testing.T) {
	fe := &fakeExec{}
	fe.fail = func(call string) bool { return call == "apply "+patchFileName }
	a := newApplicator(fe)

	if err := a.Apply(context.Background(), fakeBox{dir: t.TempDir()}, "diff"); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	want := []string{"apply " + patchFileName, "apply --3way " + patchFileName}
	if len(fe.calls) != 2 || fe.calls[0] != want[0] || fe.calls[1] != want[1] {
		t.Errorf("expected strict then three-way, got %v", fe.calls)
	}
}

func TestApplicator_TotalFailure(t *testing.T) {
	dir := t.TempDir()
	fe := &fakeExec{fail: func(string) bool { return true }}
	a := newApplicator(fe)

	err := a.Apply(context.Background(), fakeBox{dir: dir}, "diff")
	if !errors.Is(err, domain.ErrPatchApply) {
		t.Fatalf("expected ErrPatchApply, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, patchFileName)); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("expected patch file cleaned up after failure")
	}
}
