// Package session defines the dataset entities, a task and its ordered
// sessions, and the derivations that build them from pull request metadata.
package session

import (
	"fmt"
	"strings"
	"time"
)

// Version is the dataset schema version stamped on every task.
const Version = "1.0.0"

// PullRequest is the shape consumed from the metadata source: a base
// revision reference, a unified diff, and the descriptive text around it.
type PullRequest struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	State    string     `json:"state"`
	BaseSHA  string     `json:"base_sha"`
	HeadSHA  string     `json:"head_sha"`
	MergeSHA string     `json:"merge_commit_sha,omitempty"`
	MergedAt *time.Time `json:"merged_at,omitempty"`
	HTMLURL  string     `json:"html_url,omitempty"`
	Diff     string     `json:"diff,omitempty"`
}

// Merged reports whether the pull request has landed.
func (p PullRequest) Merged() bool {
	return p.MergedAt != nil
}

// Session is one benchmark entry: a single pull request with its
// empirically classified test sets.
type Session struct {
	ID               string   `json:"session_id"`
	SequenceNumber   int      `json:"sequence_number"`
	PRNumber         int      `json:"pr_number"`
	BaseCommit       string   `json:"base_commit"`
	ProblemStatement string   `json:"problem_statement"`
	HintsText        string   `json:"hints_text"`
	Patch            string   `json:"patch"`
	TestPatch        string   `json:"test_patch"`
	FailToPass       []string `json:"FAIL_TO_PASS"`
	PassToPass       []string `json:"PASS_TO_PASS"`
	DependsOn        []string `json:"depends_on"`
	Provides         []string `json:"provides"`

	ExpectedMemoryUpdates map[string]any `json:"expected_memory_updates"`
}

// Task groups the ordered sessions built from one enhancement effort.
type Task struct {
	ID            string    `json:"task_id"`
	Repo          string    `json:"repo"`
	EnhancementID string    `json:"enhancement_id"`
	Sessions      []Session `json:"sessions"`
	TotalSessions int       `json:"total_sessions"`
	Difficulty    string    `json:"difficulty"`
	CreatedAt     time.Time `json:"created_at"`
	Version       string    `json:"version"`
}

// TaskID derives the stable task identifier. Slashes are flattened so the
// identifier is filesystem and URL safe.
func TaskID(owner, repo, enhancement string) string {
	id := fmt.Sprintf("%s__%s-%s", owner, repo, enhancement)
	return strings.ReplaceAll(id, "/", "__")
}

// SessionID derives the identifier of the nth session of a task. Sequence
// numbers are one-based and zero-padded to three digits.
func SessionID(taskID string, sequence int) string {
	return fmt.Sprintf("%s-%03d", taskID, sequence)
}

// ProblemStatement builds the task description shown to a solver: the pull
// request title, extended with the first body paragraph when that paragraph
// is substantial enough to add context.
func ProblemStatement(pr PullRequest) string {
	statement := pr.Title

	body := strings.TrimSpace(pr.Body)
	if body != "" {
		first := strings.SplitN(body, "\n\n", 2)[0]
		if len(first) > 50 {
			statement += "\n\n" + first
		}
	}
	return statement
}

// Hints returns the descriptive text beyond the problem statement: the
// body paragraphs after the first one. Empty when the body is a single
// paragraph.
func Hints(pr PullRequest) string {
	body := strings.TrimSpace(pr.Body)
	parts := strings.SplitN(body, "\n\n", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// DependsOn lists the identifiers of earlier sessions whose pull request
// number is referenced in this pull request's body.
func DependsOn(pr PullRequest, previous []Session) []string {
	var deps []string
	if pr.Body == "" {
		return deps
	}
	for _, prev := range previous {
		if strings.Contains(pr.Body, fmt.Sprintf("#%d", prev.PRNumber)) {
			deps = append(deps, prev.ID)
		}
	}
	return deps
}
