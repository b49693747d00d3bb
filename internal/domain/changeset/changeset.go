// Package changeset analyzes unified diffs: which files a patch touches,
// which of those are test files, and what symbols the patch introduces.
package changeset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// File is one path touched by a patch.
type File struct {
	Path   string `json:"path"`
	IsTest bool   `json:"is_test"`
}

// Changeset is the parsed view of one multi-file unified diff.
type Changeset struct {
	Files []File

	fileDiffs []*diff.FileDiff
}

// Parse reads a multi-file unified diff, git extended headers included.
func Parse(patch string) (*Changeset, error) {
	fds, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parse unified diff: %w", err)
	}

	cs := &Changeset{
		Files:     make([]File, 0, len(fds)),
		fileDiffs: fds,
	}
	for _, fd := range fds {
		p := filePath(fd)
		cs.Files = append(cs.Files, File{Path: p, IsTest: isTestPath(p)})
	}
	return cs, nil
}

// filePath resolves the effective path of a file diff, preferring the new
// name and stripping the git a/ b/ prefixes.
func filePath(fd *diff.FileDiff) string {
	p := fd.NewName
	if p == "" || p == "/dev/null" {
		p = fd.OrigName
	}
	p = strings.TrimPrefix(p, "a/")
	p = strings.TrimPrefix(p, "b/")
	return p
}

func isTestPath(p string) bool {
	return strings.Contains(strings.ToLower(p), "test")
}

// TestFiles returns the touched paths that look like test files, in diff
// order.
func (c *Changeset) TestFiles() []string {
	var paths []string
	for _, f := range c.Files {
		if f.IsTest {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// TestPatch reprints the subset of the diff touching test files. Returns
// the empty string when the patch touches no test files.
func (c *Changeset) TestPatch() (string, error) {
	var kept []*diff.FileDiff
	for i, fd := range c.fileDiffs {
		if c.Files[i].IsTest {
			kept = append(kept, fd)
		}
	}
	if len(kept) == 0 {
		return "", nil
	}
	out, err := diff.PrintMultiFileDiff(kept)
	if err != nil {
		return "", fmt.Errorf("print test sub-diff: %w", err)
	}
	return string(out), nil
}

var (
	addedClass = regexp.MustCompile(`^\+class (\w+)`)
	addedFunc  = regexp.MustCompile(`^\+def (\w+)`)
)

// maxProvidedFuncs bounds the function entries in Provides; class
// definitions are rarer and stay uncapped.
const maxProvidedFuncs = 5

// Provides lists the symbols the patch introduces: every added top-level
// class, followed by added top-level functions capped at five. Each entry
// is the symbol name suffixed with its kind.
func (c *Changeset) Provides() []string {
	var classes, funcs []string
	for _, fd := range c.fileDiffs {
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if m := addedClass.FindStringSubmatch(line); m != nil {
					classes = append(classes, m[1]+" class")
					continue
				}
				if m := addedFunc.FindStringSubmatch(line); m != nil && len(funcs) < maxProvidedFuncs {
					funcs = append(funcs, m[1]+" function")
				}
			}
		}
	}
	return append(classes, funcs...)
}
