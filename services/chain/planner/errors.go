// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"errors"
	"fmt"
)

// PlanParseError reports a model response that is not a plan.
type PlanParseError struct {
	// Reason says what went wrong, e.g. "empty response".
	Reason string

	// Excerpt is a redacted, truncated slice of the raw response.
	Excerpt string

	// Err is the underlying decode error, if any.
	Err error
}

// Error implements error.
func (e *PlanParseError) Error() string {
	msg := "could not parse plan: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Excerpt != "" {
		msg += fmt.Sprintf(" (response: %q)", e.Excerpt)
	}
	return msg
}

// Unwrap returns the decode error.
func (e *PlanParseError) Unwrap() error {
	return e.Err
}

// InvalidPlanError reports a parsed plan that failed validation. The whole
// plan is rejected.
type InvalidPlanError struct {
	// StepIndex is the 1-based offending step, or 0 for plan-level issues.
	StepIndex int

	// Marker is the forbidden marker found, if that was the cause.
	Marker string

	Reason string

	// Err is the underlying cause, e.g. a *tools.UnknownToolError.
	Err error
}

// Error implements error.
func (e *InvalidPlanError) Error() string {
	var msg string
	switch {
	case e.Marker != "":
		msg = fmt.Sprintf("plan rejected: step %d input contains forbidden marker %q", e.StepIndex, e.Marker)
	case e.StepIndex > 0:
		msg = fmt.Sprintf("plan rejected: step %d: %s", e.StepIndex, e.Reason)
	default:
		msg = "plan rejected: " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *InvalidPlanError) Unwrap() error {
	return e.Err
}

// IsPlanParse reports whether err is or wraps a PlanParseError.
func IsPlanParse(err error) bool {
	var target *PlanParseError
	return errors.As(err, &target)
}

// IsInvalidPlan reports whether err is or wraps an InvalidPlanError.
func IsInvalidPlan(err error) bool {
	var target *InvalidPlanError
	return errors.As(err, &target)
}
