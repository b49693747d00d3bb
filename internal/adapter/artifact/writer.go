// Package artifact persists built tasks: a line-delimited benchmark file
// for downstream tooling and an indented full dump for archival.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Strob0t/BenchForge/internal/domain/session"
)

// benchRecord is the flat per-session line shape in the JSONL artifact.
// Set-valued fields are JSON-encoded strings, matching the SWE-bench
// convention consumers expect.
type benchRecord struct {
	InstanceID       string `json:"instance_id"`
	Repo             string `json:"repo"`
	BaseCommit       string `json:"base_commit"`
	ProblemStatement string `json:"problem_statement"`
	HintsText        string `json:"hints_text"`
	Patch            string `json:"patch"`
	TestPatch        string `json:"test_patch"`
	FailToPass       string `json:"FAIL_TO_PASS"`
	PassToPass       string `json:"PASS_TO_PASS"`
	TaskID           string `json:"msb_task_id"`
	SequenceNumber   int    `json:"msb_sequence_number"`
	TotalSessions    int    `json:"msb_total_sessions"`
	DependsOn        string `json:"msb_depends_on"`
	EnhancementID    string `json:"msb_enhancement_id"`
	Created          string `json:"created"`
	Version          string `json:"version"`
}

// Writer persists tasks into one output directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteJSONL writes one line per session to <task_id>.jsonl and returns
// the file path.
func (w *Writer) WriteJSONL(task session.Task) (string, error) {
	path := filepath.Join(w.dir, task.ID+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, s := range task.Sessions {
		rec, err := toRecord(task, s)
		if err != nil {
			return "", fmt.Errorf("session %s: %w", s.ID, err)
		}
		if err := enc.Encode(rec); err != nil {
			return "", fmt.Errorf("encode session %s: %w", s.ID, err)
		}
	}
	return path, nil
}

// WriteJSON writes the full task structure, two-space-indented, to
// <task_id>.json and returns the file path.
func (w *Writer) WriteJSON(task session.Task) (string, error) {
	path := filepath.Join(w.dir, task.ID+".json")

	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // dataset artifact, not a secret
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func toRecord(task session.Task, s session.Session) (benchRecord, error) {
	failToPass, err := encodeStrings(s.FailToPass)
	if err != nil {
		return benchRecord{}, err
	}
	passToPass, err := encodeStrings(s.PassToPass)
	if err != nil {
		return benchRecord{}, err
	}
	dependsOn, err := encodeStrings(s.DependsOn)
	if err != nil {
		return benchRecord{}, err
	}

	return benchRecord{
		InstanceID:       s.ID,
		Repo:             task.Repo,
		BaseCommit:       s.BaseCommit,
		ProblemStatement: s.ProblemStatement,
		HintsText:        s.HintsText,
		Patch:            s.Patch,
		TestPatch:        s.TestPatch,
		FailToPass:       failToPass,
		PassToPass:       passToPass,
		TaskID:           task.ID,
		SequenceNumber:   s.SequenceNumber,
		TotalSessions:    task.TotalSessions,
		DependsOn:        dependsOn,
		EnhancementID:    task.EnhancementID,
		Created:          task.CreatedAt.UTC().Format(time.RFC3339),
		Version:          task.Version,
	}, nil
}

// encodeStrings JSON-encodes a string slice into a string, normalizing nil
// to the empty list.
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
