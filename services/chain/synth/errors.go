// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package synth

import "errors"

// SynthesisError reports why the synthesis call produced no answer. It is
// logged and replaced by Apology; callers of Synthesize never see it.
type SynthesisError struct {
	Reason string
	Err    error
}

// Error implements error.
func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return "synth: " + e.Reason + ": " + e.Err.Error()
	}
	return "synth: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// IsSynthesis reports whether err is or wraps a SynthesisError.
func IsSynthesis(err error) bool {
	var target *SynthesisError
	return errors.As(err, &target)
}
