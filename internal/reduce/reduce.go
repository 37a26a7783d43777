// Package reduce collapses the run records of one shim invocation into the
// single exit status the enclosing build system understands.
//
// All-success sequences reduce to execution.Success. When any run failed
// the choice of non-zero status is delegated to a Policy. An empty sequence
// is a contract violation of the instrumentation hook and is rejected.
package reduce

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/boehmseb/benchbuild/internal/execution"
)

// ErrNoResults is returned when asked to reduce an empty sequence.
var ErrNoResults = errors.New("reduce: instrumentation produced no results")

// fallbackFailure is returned when a policy yields success for a failing
// sequence.
const fallbackFailure = 1

// Policy selects the exit status of a sequence containing at least one
// failed run.
type Policy interface {
	Failure(results []execution.Result) int
	String() string
}

// Max selects the largest exit status. This matches the historical
// benchbuild behaviour.
type Max struct{}

func (Max) Failure(results []execution.Result) int {
	best := 0
	for _, r := range results {
		if r.ExitCode > best {
			best = r.ExitCode
		}
	}
	if best == 0 {
		// Only negative codes failed.
		for _, r := range results {
			if r.Failed() {
				return r.ExitCode
			}
		}
	}
	return best
}

func (Max) String() string { return "max" }

// FirstFailure selects the exit status of the first failed run.
type FirstFailure struct{}

func (FirstFailure) Failure(results []execution.Result) int {
	for _, r := range results {
		if r.Failed() {
			return r.ExitCode
		}
	}
	return fallbackFailure
}

func (FirstFailure) String() string { return "first" }

// Sentinel reports every failure with the same fixed status.
type Sentinel int

func (s Sentinel) Failure([]execution.Result) int { return int(s) }

func (s Sentinel) String() string { return "sentinel:" + strconv.Itoa(int(s)) }

// ParsePolicy parses "max", "first" or "sentinel:N" (N > 0). The empty
// string selects Max.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "max":
		return Max{}, nil
	case "first":
		return FirstFailure{}, nil
	}
	if rest, ok := strings.CutPrefix(s, "sentinel:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 || n > 255 {
			return nil, fmt.Errorf("invalid sentinel exit status %q: must be 1..255", rest)
		}
		return Sentinel(n), nil
	}
	return nil, fmt.Errorf("unknown exit policy %q: must be max, first or sentinel:N", s)
}

// Reducer reduces run records with a policy. The zero value uses Max.
type Reducer struct {
	Policy Policy
}

// Reduce returns the exit status of results.
func (r Reducer) Reduce(results []execution.Result) (int, error) {
	if len(results) == 0 {
		return 0, ErrNoResults
	}

	failed := false
	for _, res := range results {
		if res.Failed() {
			failed = true
			break
		}
	}
	if !failed {
		return execution.Success, nil
	}

	policy := r.Policy
	if policy == nil {
		policy = Max{}
	}
	code := policy.Failure(results)
	if code == execution.Success {
		return fallbackFailure, nil
	}
	return code, nil
}
