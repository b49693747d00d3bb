package testrun

import (
	"regexp"
	"strings"
)

// separator joins a test file or module to the test name inside it.
// Lines without it are never outcome lines.
const separator = "::"

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// Parse scans raw framework output line by line and extracts outcome
// lines of the shape "<identifier> ... <LABEL>", where the identifier is
// the first whitespace-delimited token, the line contains "::", and the
// last token matches one of the known outcome labels case-insensitively.
// Everything else — stack traces, progress indicators, summary lines,
// ANSI styling — is dropped without error. Counts in the returned Result
// are tallied from the accepted outcomes only.
func Parse(raw string) Result {
	var tests []TestOutcome

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(ansiEscape.ReplaceAllString(line, ""))
		if !strings.Contains(line, separator) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		outcome, ok := matchLabel(fields[len(fields)-1])
		if !ok {
			continue
		}

		tests = append(tests, TestOutcome{
			Identifier: fields[0],
			Outcome:    outcome,
		})
	}

	return NewResult(tests, raw)
}

// matchLabel maps a trailing token to an outcome. "error" and "errored"
// both normalize to OutcomeErrored; frameworks disagree on the spelling.
func matchLabel(token string) (Outcome, bool) {
	switch strings.ToLower(token) {
	case "passed":
		return OutcomePassed, true
	case "failed":
		return OutcomeFailed, true
	case "error", "errored":
		return OutcomeErrored, true
	case "skipped":
		return OutcomeSkipped, true
	default:
		return "", false
	}
}
