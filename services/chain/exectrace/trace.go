// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package exectrace holds the append-only record of executed steps for a
// single chain run.
package exectrace

import (
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
)

// Reader is the read-only view handed to the resolver and to tools.
type Reader interface {
	// Len returns the number of recorded steps.
	Len() int

	// At returns the step at 0-based position i.
	At(i int) (datatypes.ExecutedStep, bool)

	// Last returns the most recent step.
	Last() (datatypes.ExecutedStep, bool)

	// OutputAt returns the output of the step at 0-based position i, or
	// None when i is out of range.
	OutputAt(i int) datatypes.InputValue

	// Steps returns a copy of every recorded step in order.
	Steps() []datatypes.ExecutedStep
}

// Trace is the append-only execution trace of one run.
//
// Description:
//
//	Only the controller holds a *Trace. Entries are never edited once
//	appended. Everything else sees the Reader interface.
//
// Thread Safety: Not safe for concurrent use. A run is single-threaded.
type Trace struct {
	steps []datatypes.ExecutedStep
}

// New creates an empty trace.
func New() *Trace {
	return &Trace{}
}

// Append records step, assigning its 1-based Index, and returns the stored copy.
func (t *Trace) Append(step datatypes.ExecutedStep) datatypes.ExecutedStep {
	step.Index = len(t.steps) + 1
	if step.IsError() {
		step.Output = datatypes.None()
	}
	t.steps = append(t.steps, step)
	return step
}

// Len implements Reader.
func (t *Trace) Len() int {
	return len(t.steps)
}

// At implements Reader.
func (t *Trace) At(i int) (datatypes.ExecutedStep, bool) {
	if i < 0 || i >= len(t.steps) {
		return datatypes.ExecutedStep{}, false
	}
	return t.steps[i], true
}

// Last implements Reader.
func (t *Trace) Last() (datatypes.ExecutedStep, bool) {
	return t.At(len(t.steps) - 1)
}

// OutputAt implements Reader.
func (t *Trace) OutputAt(i int) datatypes.InputValue {
	step, ok := t.At(i)
	if !ok {
		return datatypes.None()
	}
	return step.Output
}

// Steps implements Reader. The returned slice is never nil.
func (t *Trace) Steps() []datatypes.ExecutedStep {
	out := make([]datatypes.ExecutedStep, len(t.steps))
	copy(out, t.steps)
	return out
}
