// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package controller

import (
	"context"
	"time"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
)

// =============================================================================
// Events
// =============================================================================

// EventType names a point in a run's lifecycle.
type EventType string

const (
	EventRunStarted       EventType = "run_started"
	EventStateChanged     EventType = "state_changed"
	EventPlanAccepted     EventType = "plan_accepted"
	EventPlanRejected     EventType = "plan_rejected"
	EventStepStarted      EventType = "step_started"
	EventStepFinished     EventType = "step_finished"
	EventSynthesisStarted EventType = "synthesis_started"
	EventRunFinished      EventType = "run_finished"
)

// Event is one lifecycle notification. Only the fields relevant to Type
// are set.
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"run_id"`
	Time  time.Time `json:"time"`

	// RunStarted
	Query string `json:"query,omitempty"`

	// StateChanged
	From datatypes.RunState `json:"from,omitempty"`
	To   datatypes.RunState `json:"to,omitempty"`

	// PlanAccepted
	Plan *datatypes.Plan `json:"plan,omitempty"`

	// PlanRejected
	Error string `json:"error,omitempty"`

	// StepStarted
	StepIndex int                   `json:"step_index,omitempty"`
	Tool      string                `json:"tool,omitempty"`
	Input     *datatypes.InputValue `json:"input,omitempty"`

	// StepFinished
	Step *datatypes.ExecutedStep `json:"step,omitempty"`

	// RunFinished
	Result   *datatypes.ChainResult `json:"result,omitempty"`
	Duration time.Duration          `json:"duration_ns,omitempty"`
}

// Observer receives run lifecycle events.
//
// Description:
//
//	Observe is called synchronously from the run goroutine, so it must be
//	quick and must not panic. Observers cannot influence the run.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// NopObserver ignores every event.
type NopObserver struct{}

// Observe implements Observer.
func (NopObserver) Observe(context.Context, Event) {}

// MultiObserver fans each event out to its members in order.
type MultiObserver []Observer

// Observe implements Observer.
func (m MultiObserver) Observe(ctx context.Context, ev Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(ctx, ev)
		}
	}
}
