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
	"log/slog"
	"unicode/utf8"
)

// LogObserver writes run events to a slog.Logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver. A nil logger uses slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// Observe implements Observer.
func (o *LogObserver) Observe(ctx context.Context, ev Event) {
	logger := o.logger.With(slog.String("run_id", ev.RunID))

	switch ev.Type {
	case EventRunStarted:
		logger.InfoContext(ctx, "chain run started", slog.Int("query_len", utf8.RuneCountInString(ev.Query)))

	case EventStateChanged:
		logger.DebugContext(ctx, "chain state changed",
			slog.String("from", string(ev.From)),
			slog.String("to", string(ev.To)),
		)

	case EventPlanAccepted:
		steps := 0
		if ev.Plan != nil {
			steps = len(ev.Plan.Steps)
		}
		logger.InfoContext(ctx, "plan accepted", slog.Int("steps", steps))

	case EventPlanRejected:
		logger.WarnContext(ctx, "plan rejected", slog.String("error", ev.Error))

	case EventStepStarted:
		logger.DebugContext(ctx, "step started",
			slog.Int("step", ev.StepIndex),
			slog.String("tool", ev.Tool),
		)

	case EventStepFinished:
		if ev.Step == nil {
			return
		}
		attrs := []any{
			slog.Int("step", ev.Step.Index),
			slog.String("tool", ev.Step.Tool),
			slog.Duration("duration", ev.Step.Duration),
		}
		if ev.Step.IsError() {
			logger.WarnContext(ctx, "step failed", append(attrs, slog.String("error", ev.Step.Error))...)
			return
		}
		if defaults, ok := ev.Step.Output.Field("defaultsApplied"); ok {
			logger.WarnContext(ctx, "step used default parameters", append(attrs, slog.Any("defaults", defaults))...)
		}
		logger.InfoContext(ctx, "step finished", attrs...)

	case EventSynthesisStarted:
		logger.InfoContext(ctx, "synthesizing final answer")

	case EventRunFinished:
		if ev.Result == nil {
			return
		}
		logger.InfoContext(ctx, "chain run finished",
			slog.String("state", string(ev.Result.State)),
			slog.Int("steps", len(ev.Result.Steps)),
			slog.Bool("synthesized", ev.Result.Synthesized),
			slog.Duration("duration", ev.Duration),
		)
	}
}
