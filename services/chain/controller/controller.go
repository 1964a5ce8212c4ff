// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package controller drives one chain run from query to result.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/exectrace"
	"github.com/AleutianAI/AleutianChain/services/chain/resolve"
	"github.com/AleutianAI/AleutianChain/services/chain/tools"
)

const controllerTracerName = "chain.controller"

// PlanFailureMessage opens the result of a run whose plan was not accepted.
const PlanFailureMessage = "I could not plan how to answer this query."

// =============================================================================
// Collaborators
// =============================================================================

// Planner produces an accepted plan for a query.
type Planner interface {
	Plan(ctx context.Context, query string) (*datatypes.Plan, error)
}

// Invoker executes one tool.
type Invoker interface {
	Invoke(ctx context.Context, name string, call tools.Call) (datatypes.InputValue, error)
}

// Synthesizer replaces an unusable last output with a final answer.
type Synthesizer interface {
	NeedsSynthesis(last datatypes.InputValue) bool
	Synthesize(ctx context.Context, query string, steps []datatypes.ExecutedStep, explanation string) string
}

// Config wires a Controller.
type Config struct {
	Planner     Planner
	Invoker     Invoker
	Synthesizer Synthesizer

	// Observer is optional; NopObserver when nil.
	Observer Observer

	// Logger is optional; slog.Default() when nil.
	Logger *slog.Logger
}

// Controller runs queries through plan, execute and synthesize.
//
// Description:
//
//	States: planning, executing, synthesizing (optional), then done. Any
//	state may move to failed. Steps run strictly in plan order. Failures
//	are turned into a result once, in Run.
//
// Thread Safety: Safe for concurrent Runs. Each Run owns its plan and
// trace.
type Controller struct {
	planner  Planner
	invoker  Invoker
	synth    Synthesizer
	observer Observer
	logger   *slog.Logger
}

// New creates a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Planner == nil {
		return nil, errors.New("controller: planner is required")
	}
	if cfg.Invoker == nil {
		return nil, errors.New("controller: invoker is required")
	}
	if cfg.Synthesizer == nil {
		return nil, errors.New("controller: synthesizer is required")
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		planner:  cfg.Planner,
		invoker:  cfg.Invoker,
		synth:    cfg.Synthesizer,
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}, nil
}

// planError marks a failure before any step ran.
type planError struct{ err error }

func (e *planError) Error() string { return e.err.Error() }
func (e *planError) Unwrap() error { return e.err }

// stepError marks a failed step; the trace holds the error-flagged entry.
type stepError struct {
	index int
	tool  string
	err   error
}

func (e *stepError) Error() string {
	cause := e.err
	var execErr *tools.ToolExecutionError
	if errors.As(cause, &execErr) && execErr.Err != nil {
		cause = execErr.Err
	}
	return fmt.Sprintf("Step %d (%s) failed: %v", e.index, e.tool, cause)
}

func (e *stepError) Unwrap() error { return e.err }

// run is the per-query state. It is never shared.
type run struct {
	id    string
	query string
	state datatypes.RunState
	plan  *datatypes.Plan
	trace *exectrace.Trace
}

// Run answers query.
//
// Description:
//
//	Always returns a well-formed ChainResult. Plan failures yield zero
//	steps and a result starting with PlanFailureMessage. A failed step
//	stops the chain, keeps the partial trace and yields
//	"Step k (tool) failed: ...". Panics are recovered into the failed
//	path. ctx is passed to collaborators but cancellation does not stop
//	the chain.
//
// Inputs:
//   - ctx: Context for tracing and collaborator calls.
//   - query: The user query.
//
// Outputs:
//   - datatypes.ChainResult: State is StateDone or StateFailed.
func (c *Controller) Run(ctx context.Context, query string) (result datatypes.ChainResult) {
	r := &run{
		id:    uuid.NewString(),
		query: query,
		state: datatypes.StatePlanning,
		trace: exectrace.New(),
	}
	start := time.Now()

	ctx, span := otel.Tracer(controllerTracerName).Start(ctx, "controller.Controller.Run",
		trace.WithAttributes(attribute.String("run_id", r.id)),
	)
	defer span.End()

	c.emit(ctx, Event{Type: EventRunStarted, RunID: r.id, Query: query})

	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("chain run panicked",
				slog.String("run_id", r.id),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())),
			)
			result = c.failure(ctx, r, fmt.Errorf("internal error: %v", p))
		}

		span.SetAttributes(
			attribute.String("state", string(result.State)),
			attribute.Int("step_count", len(result.Steps)),
			attribute.Bool("synthesized", result.Synthesized),
		)
		if result.State == datatypes.StateFailed {
			span.SetStatus(codes.Error, "chain failed")
		}
		c.emit(ctx, Event{Type: EventRunFinished, RunID: r.id, Result: &result, Duration: time.Since(start)})
	}()

	answer, synthesized, err := c.execute(ctx, r)
	if err != nil {
		return c.failure(ctx, r, err)
	}

	c.transition(ctx, r, datatypes.StateDone)
	return datatypes.ChainResult{
		RunID:       r.id,
		Result:      answer,
		Steps:       r.trace.Steps(),
		Explanation: r.plan.Explanation,
		State:       datatypes.StateDone,
		Synthesized: synthesized,
	}
}

// execute plans and runs every step. It returns the final answer, whether
// it was synthesized, or a *planError / *stepError.
func (c *Controller) execute(ctx context.Context, r *run) (string, bool, error) {
	plan, err := c.planner.Plan(ctx, r.query)
	if err != nil {
		c.emit(ctx, Event{Type: EventPlanRejected, RunID: r.id, Error: err.Error()})
		return "", false, &planError{err: err}
	}
	if plan == nil || len(plan.Steps) == 0 {
		err := errors.New("plan rejected: plan has no steps")
		c.emit(ctx, Event{Type: EventPlanRejected, RunID: r.id, Error: err.Error()})
		return "", false, &planError{err: err}
	}
	r.plan = plan
	c.emit(ctx, Event{Type: EventPlanAccepted, RunID: r.id, Plan: plan})

	c.transition(ctx, r, datatypes.StateExecuting)
	for i, step := range plan.Steps {
		if err := c.runStep(ctx, r, i+1, step); err != nil {
			return "", false, err
		}
	}

	last, _ := r.trace.Last()
	if !c.synth.NeedsSynthesis(last.Output) {
		return last.Output.Render(), false, nil
	}

	c.transition(ctx, r, datatypes.StateSynthesizing)
	c.emit(ctx, Event{Type: EventSynthesisStarted, RunID: r.id})
	return c.synth.Synthesize(ctx, r.query, r.trace.Steps(), plan.Explanation), true, nil
}

// runStep resolves, invokes and records one step.
func (c *Controller) runStep(ctx context.Context, r *run, index int, step datatypes.Step) error {
	ctx, span := otel.Tracer(controllerTracerName).Start(ctx, "controller.Controller.runStep",
		trace.WithAttributes(
			attribute.Int("step", index),
			attribute.String("tool", step.Tool),
		),
	)
	defer span.End()

	input := resolve.Resolve(step.Input, r.trace)
	c.emit(ctx, Event{Type: EventStepStarted, RunID: r.id, StepIndex: index, Tool: step.Tool, Input: &input})

	start := time.Now()
	output, err := c.invoker.Invoke(ctx, step.Tool, tools.Call{
		Input: input,
		Query: r.query,
		Trace: r.trace,
	})

	executed := datatypes.ExecutedStep{
		Tool:        step.Tool,
		Input:       input,
		Output:      output,
		Description: step.Description,
		Duration:    time.Since(start),
	}
	if err != nil {
		executed.Error = err.Error()
	}
	executed = r.trace.Append(executed)
	c.emit(ctx, Event{Type: EventStepFinished, RunID: r.id, Step: &executed})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "step failed")
		return &stepError{index: executed.Index, tool: step.Tool, err: err}
	}
	return nil
}

// failure builds the failed result for err.
func (c *Controller) failure(ctx context.Context, r *run, err error) datatypes.ChainResult {
	c.transition(ctx, r, datatypes.StateFailed)

	res := datatypes.ChainResult{
		RunID: r.id,
		State: datatypes.StateFailed,
		Steps: r.trace.Steps(),
	}

	var pe *planError
	switch {
	case errors.As(err, &pe):
		res.Steps = []datatypes.ExecutedStep{}
		res.Result = PlanFailureMessage + " " + pe.err.Error()
		res.Explanation = pe.err.Error()
	default:
		res.Result = err.Error()
		res.Explanation = err.Error()
		if r.plan != nil && r.plan.Explanation != "" {
			res.Explanation = r.plan.Explanation
		}
	}
	return res
}

func (c *Controller) transition(ctx context.Context, r *run, to datatypes.RunState) {
	if r.state == to {
		return
	}
	from := r.state
	r.state = to
	c.emit(ctx, Event{Type: EventStateChanged, RunID: r.id, From: from, To: to})
}

// emit delivers ev, shielding the run from observer panics.
func (c *Controller) emit(ctx context.Context, ev Event) {
	ev.Time = time.Now()
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("observer panicked",
				slog.String("event", string(ev.Type)),
				slog.Any("panic", p),
			)
		}
	}()
	c.observer.Observe(ctx, ev)
}
