// Package testrun defines test execution outcomes and the tolerant
// output parser that produces them.
package testrun

// Outcome is the label one execution assigned to one test identifier.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeErrored Outcome = "errored"
	OutcomeSkipped Outcome = "skipped"
)

// TestOutcome is a single observed (identifier, outcome) pair.
// Identifiers are opaque strings scoped to the test framework's naming
// convention (e.g. "pkg/test_mod.py::test_thing").
type TestOutcome struct {
	Identifier string  `json:"identifier"`
	Outcome    Outcome `json:"outcome"`
	Message    string  `json:"message,omitempty"`
}

// Result is the structured outcome of one test invocation.
// Counts are always re-tallied from Tests; Success holds iff no test
// failed and no test errored.
type Result struct {
	Success   bool          `json:"success"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Errored   int           `json:"errors"`
	Skipped   int           `json:"skipped"`
	Tests     []TestOutcome `json:"tests"`
	RawOutput string        `json:"raw_output"`
}

// NewResult builds a Result from observed outcomes, deriving all
// aggregate counts by tallying rather than trusting any summary line.
func NewResult(tests []TestOutcome, raw string) Result {
	r := Result{Tests: tests, RawOutput: raw}
	for _, t := range tests {
		switch t.Outcome {
		case OutcomePassed:
			r.Passed++
		case OutcomeFailed:
			r.Failed++
		case OutcomeErrored:
			r.Errored++
		case OutcomeSkipped:
			r.Skipped++
		}
	}
	r.Total = len(tests)
	r.Success = r.Failed == 0 && r.Errored == 0
	return r
}

// timeoutIdentifier names the synthetic outcome that stands in for a
// whole run killed by the wall-clock bound. Real framework identifiers
// carry a path and a "::" separator, so it cannot collide.
const timeoutIdentifier = "timeout"

// TimeoutRawOutput is the raw text recorded when an invocation exceeds
// its wall-clock bound.
const TimeoutRawOutput = "Test run timed out"

// TimeoutResult returns the sentinel Result for a timed-out invocation:
// zero observed outcomes and one synthetic errored outcome representing
// the run. Timeouts are a normal outcome in this domain, not a failure
// of the enclosing classification.
func TimeoutResult() Result {
	return NewResult([]TestOutcome{
		{Identifier: timeoutIdentifier, Outcome: OutcomeErrored, Message: TimeoutRawOutput},
	}, TimeoutRawOutput)
}

// Identifiers returns the set of identifiers observed with the given
// outcome. Duplicate observations collapse naturally.
func (r Result) Identifiers(o Outcome) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, t := range r.Tests {
		if t.Outcome == o {
			ids[t.Identifier] = struct{}{}
		}
	}
	return ids
}
