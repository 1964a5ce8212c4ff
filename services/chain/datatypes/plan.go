// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"time"
)

// Step is one planned tool invocation.
type Step struct {
	Tool        string     `json:"tool" validate:"required"`
	Input       InputValue `json:"input"`
	Description string     `json:"description"`
}

// Plan is the ordered list of steps produced by the planner.
//
// Description:
//
//	Once accepted a plan is never modified. Steps is non-empty, every tool
//	is registered and no input carries a forbidden concatenation marker.
type Plan struct {
	Steps       []Step `json:"steps"`
	Explanation string `json:"explanation"`
}

// ExecutedStep records one attempted step.
//
// Description:
//
//	Index is the 1-based step number. Input is the value after reference
//	resolution. A step is error-flagged iff Error is non-empty, in which
//	case Output is None.
type ExecutedStep struct {
	Index       int           `json:"index"`
	Tool        string        `json:"tool"`
	Input       InputValue    `json:"input"`
	Output      InputValue    `json:"output"`
	Error       string        `json:"error,omitempty"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"duration_ns"`
}

// IsError reports whether the step failed.
func (s ExecutedStep) IsError() bool {
	return s.Error != ""
}

// RunState is a Controller state name.
type RunState string

// Controller states.
const (
	StatePlanning     RunState = "planning"
	StateExecuting    RunState = "executing"
	StateSynthesizing RunState = "synthesizing"
	StateDone         RunState = "done"
	StateFailed       RunState = "failed"
)

// ChainResult is the only value a chain run returns.
type ChainResult struct {
	RunID       string         `json:"run_id"`
	Result      string         `json:"result"`
	Steps       []ExecutedStep `json:"steps"`
	Explanation string         `json:"explanation"`
	State       RunState       `json:"state"`
	Synthesized bool           `json:"synthesized"`
}
