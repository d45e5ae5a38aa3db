// Package validation decides whether a strategy proposal from the reasoning
// oracle may be trusted. Checks are tiered: hard failures always reject the
// proposal and route the pipeline to the rule fallback; soft failures are
// recorded as warnings and reject only when the deviation crosses the
// escalation margin.
package validation

import (
	"strings"
)

// Result carries the outcome of validating one strategy proposal.
// Errors are blocking; Warnings are advisory.
type Result struct {
	Errors   []string
	Warnings []string
}

// IsValid reports whether the proposal passed all hard checks.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Message combines errors and warnings into one human-readable string for
// logging and for the fallback decision's audit trail.
func (r *Result) Message() string {
	parts := make([]string, 0, len(r.Errors)+len(r.Warnings))
	parts = append(parts, r.Errors...)
	for _, w := range r.Warnings {
		parts = append(parts, "warning: "+w)
	}
	return strings.Join(parts, "; ")
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
