// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve materializes step-reference markers in a step input
// against the execution trace.
//
// Two reference forms are recognised, case-insensitively:
//
//	output from step N       the output of the N-th (1-based) executed step
//	output from previous step  the output of the most recent executed step
//
// A reference that cannot be satisfied leaves the input unchanged.
package resolve

import (
	"regexp"
	"strconv"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/exectrace"
)

var (
	stepRefPattern     = regexp.MustCompile(`(?i)output from step\s+(\d+)`)
	previousRefPattern = regexp.MustCompile(`(?i)output from previous step`)
)

// Resolve returns raw with any step reference replaced by the referenced
// output.
//
// Description:
//
//	For text input the whole value is replaced by the referenced output,
//	so a record output stays a record. For record input every string field
//	is resolved on its own and substituted with the referenced output's
//	rendered text. Non-string fields are copied as-is. The trace is only
//	read.
//
// Inputs:
//   - raw: The step input as planned.
//   - tr: The trace so far. May be nil, in which case raw is returned.
//
// Outputs:
//   - datatypes.InputValue: The resolved input.
//
// Thread Safety: Pure function; safe for concurrent use.
func Resolve(raw datatypes.InputValue, tr exectrace.Reader) datatypes.InputValue {
	if tr == nil {
		return raw
	}

	switch raw.Kind() {
	case datatypes.KindText:
		text, _ := raw.AsText()
		if out, ok := lookup(text, tr); ok {
			return out
		}
		return raw

	case datatypes.KindRecord:
		rec, _ := raw.AsRecord()
		for key, val := range rec {
			s, isString := val.(string)
			if !isString {
				continue
			}
			if out, ok := lookup(s, tr); ok {
				rec[key] = out.Render()
			}
		}
		return datatypes.Record(rec)

	default:
		return raw
	}
}

// HasReference reports whether text contains a reference marker.
func HasReference(text string) bool {
	return stepRefPattern.MatchString(text) || previousRefPattern.MatchString(text)
}

// lookup finds the output referenced by text. The absolute form is tried
// first.
func lookup(text string, tr exectrace.Reader) (datatypes.InputValue, bool) {
	if m := stepRefPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= tr.Len() {
			if out := tr.OutputAt(n - 1); !out.IsNone() {
				return out, true
			}
		}
	}

	if previousRefPattern.MatchString(text) && tr.Len() > 0 {
		if last, ok := tr.Last(); ok && !last.Output.IsNone() {
			return last.Output, true
		}
	}

	return datatypes.InputValue{}, false
}
