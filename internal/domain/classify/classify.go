// Package classify defines the differential classification domain: the
// lifecycle of one before/after comparison and the set algebra that turns
// two test runs into FAIL_TO_PASS and PASS_TO_PASS identifier sets.
package classify

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Strob0t/BenchForge/internal/domain/testrun"
)

// ErrTransition indicates an illegal lifecycle transition.
var ErrTransition = errors.New("illegal state transition")

// State represents the lifecycle position of one classification run.
type State string

const (
	StateStart              State = "start"
	StateBeforeMaterialized State = "before_materialized"
	StateBeforeExecuted     State = "before_executed"
	StatePatched            State = "patched"
	StateAfterExecuted      State = "after_executed"
	StateClassified         State = "classified"
	StateAborted            State = "aborted"
	StateTornDown           State = "torn_down"
)

// transitions enumerates the legal lifecycle moves. Every gate may abort;
// both terminal outcomes still pass through teardown.
var transitions = map[State][]State{
	StateStart:              {StateBeforeMaterialized, StateAborted},
	StateBeforeMaterialized: {StateBeforeExecuted, StateAborted},
	StateBeforeExecuted:     {StatePatched, StateAborted},
	StatePatched:            {StateAfterExecuted, StateAborted},
	StateAfterExecuted:      {StateClassified, StateAborted},
	StateClassified:         {StateTornDown},
	StateAborted:            {StateTornDown},
}

// Transition validates a lifecycle move and returns the target state.
// On an illegal move the current state is returned unchanged alongside
// ErrTransition.
func (s State) Transition(target State) (State, error) {
	for _, next := range transitions[s] {
		if next == target {
			return target, nil
		}
	}
	return s, fmt.Errorf("%s -> %s: %w", s, target, ErrTransition)
}

// Terminal reports whether the state permits no further transitions.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Result holds the two classified identifier sets plus the raw before and
// after runs for auditability. FailToPass and PassToPass are disjoint and
// sorted.
type Result struct {
	FailToPass []string       `json:"fail_to_pass"`
	PassToPass []string       `json:"pass_to_pass"`
	Before     testrun.Result `json:"before"`
	After      testrun.Result `json:"after"`
}

// Partition computes the classified sets from a before run and an after run.
// FAIL_TO_PASS holds identifiers that failed before the patch and passed
// after it; PASS_TO_PASS holds identifiers that passed in both runs. Errored
// and skipped observations join neither set. An identifier absent from the
// after run is excluded from both sets: silence is never counted as a pass.
// An identifier observed both failed and passed in the before run is treated
// as undetermined and excluded from both sets.
func Partition(before, after testrun.Result) Result {
	beforeFailed := before.Identifiers(testrun.OutcomeFailed)
	beforePassed := before.Identifiers(testrun.OutcomePassed)
	afterPassed := after.Identifiers(testrun.OutcomePassed)

	for id := range beforeFailed {
		if _, ok := beforePassed[id]; ok {
			delete(beforeFailed, id)
			delete(beforePassed, id)
		}
	}

	failToPass := make([]string, 0, len(beforeFailed))
	passToPass := make([]string, 0, len(beforePassed))
	for id := range afterPassed {
		if _, ok := beforeFailed[id]; ok {
			failToPass = append(failToPass, id)
		}
		if _, ok := beforePassed[id]; ok {
			passToPass = append(passToPass, id)
		}
	}
	sort.Strings(failToPass)
	sort.Strings(passToPass)

	return Result{
		FailToPass: failToPass,
		PassToPass: passToPass,
		Before:     before,
		After:      after,
	}
}
