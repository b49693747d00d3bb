package session

import (
	"reflect"
	"strings"
	"testing"
)

func TestTaskID(t *testing.T) {
	tests := []struct {
		name        string
		owner       string
		repo        string
		enhancement string
		want        string
	}{
		{"plain", "pandas-dev", "pandas", "PDEP-14", "pandas-dev__pandas-PDEP-14"},
		{"slash in enhancement", "pandas-dev", "pandas", "feat/arrow", "pandas-dev__pandas-feat__arrow"},
		{"single pr", "numpy", "numpy", "PR-12345", "numpy__numpy-PR-12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TaskID(tt.owner, tt.repo, tt.enhancement); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSessionID(t *testing.T) {
	tests := []struct {
		sequence int
		want     string
	}{
		{1, "t-001"},
		{12, "t-012"},
		{123, "t-123"},
	}
	for _, tt := range tests {
		if got := SessionID("t", tt.sequence); got != tt.want {
			t.Errorf("sequence %d: expected %q, got %q", tt.sequence, tt.want, got)
		}
	}
}

func TestProblemStatement_TitleOnly(t *testing.T) {
	pr := PullRequest{Title: "ENH: add PyArrow-backed string dtype"}

	if got := ProblemStatement(pr); got != pr.Title {
		t.Errorf("expected bare title, got %q", got)
	}
}

func TestProblemStatement_ShortBodyIgnored(t *testing.T) {
	pr := PullRequest{
		Title: "BUG: fix rolling window",
		Body:  "Closes #1234",
	}

	if got := ProblemStatement(pr); got != pr.Title {
		t.Errorf("expected short first paragraph to be ignored, got %q", got)
	}
}

func TestProblemStatement_SubstantialFirstParagraph(t *testing.T) {
	first := "This change makes the default string dtype a PyArrow-backed one, as specified in the proposal."
	pr := PullRequest{
		Title: "ENH: default to PyArrow strings",
		Body:  first + "\n\nSecond paragraph with checklist items.",
	}

	got := ProblemStatement(pr)
	want := pr.Title + "\n\n" + first
	if got != want {
		t.Errorf("expected title plus first paragraph, got %q", got)
	}
	if strings.Contains(got, "Second paragraph") {
		t.Error("expected later paragraphs to be dropped")
	}
}

func TestDependsOn(t *testing.T) {
	previous := []Session{
		{ID: "task-001", PRNumber: 54533},
		{ID: "task-002", PRNumber: 54800},
		{ID: "task-003", PRNumber: 55100},
	}
	pr := PullRequest{
		Number: 55500,
		Body:   "Follow-up to #54533 and #55100.",
	}

	got := DependsOn(pr, previous)
	want := []string{"task-001", "task-003"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDependsOn_NoBody(t *testing.T) {
	previous := []Session{{ID: "task-001", PRNumber: 1}}

	if got := DependsOn(PullRequest{Number: 2}, previous); len(got) != 0 {
		t.Errorf("expected no dependencies, got %v", got)
	}
}

func TestPullRequest_Merged(t *testing.T) {
	if (PullRequest{}).Merged() {
		t.Error("expected unmerged without a merge timestamp")
	}
}

func TestHints(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", ""},
		{"single paragraph", "Just one paragraph here.", ""},
		{"two paragraphs", "First paragraph.\n\nSecond one carries the hints.", "Second one carries the hints."},
		{"trailing whitespace", "First.\n\n  Second.  \n", "Second."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hints(PullRequest{Body: tt.body}); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
