// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Invoker runs tools from a Registry by name.
//
// Description:
//
//	Invoke looks the tool up, runs it inside a span, converts panics and
//	errors into *ToolExecutionError and records metrics. Unknown names
//	yield *UnknownToolError without touching any tool.
//
// Thread Safety: Safe for concurrent use once constructed.
type Invoker struct {
	registry *Registry
	logger   *slog.Logger
}

// NewInvoker creates an invoker over registry.
//
// Outputs:
//   - error: Non-nil if registry is nil.
func NewInvoker(registry *Registry, logger *slog.Logger) (*Invoker, error) {
	if registry == nil {
		return nil, fmt.Errorf("tools: invoker: registry must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{registry: registry, logger: logger}, nil
}

// Registry returns the registry the invoker dispatches to.
func (inv *Invoker) Registry() *Registry {
	return inv.registry
}

// Invoke runs the tool registered under name with call.
//
// Inputs:
//   - ctx: Passed to the tool.
//   - name: Registered tool name.
//   - call: Resolved input, original query and trace reader.
//
// Outputs:
//   - datatypes.InputValue: The tool output on success.
//   - error: *UnknownToolError or *ToolExecutionError.
func (inv *Invoker) Invoke(ctx context.Context, name string, call Call) (out datatypes.InputValue, err error) {
	ctx, span := otel.Tracer(toolsTracerName).Start(ctx, "tools.Invoker.Invoke")
	defer span.End()
	span.SetAttributes(attribute.String("tool", name))

	tool, ok := inv.registry.Lookup(name)
	if !ok {
		err = &UnknownToolError{Tool: name}
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown tool")
		recordInvocation(name, "unknown_tool", 0)
		return datatypes.None(), err
	}

	start := time.Now()
	status := "success"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			err = &ToolExecutionError{Tool: name, Err: fmt.Errorf("panic: %v", r)}
			out = datatypes.None()
			inv.logger.Error("tool panicked",
				slog.String("tool", name),
				slog.Any("panic", r),
			)
		}
		elapsed := time.Since(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		span.SetAttributes(
			attribute.String("status", status),
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
		)
		recordInvocation(name, status, elapsed)
	}()

	out, err = tool.Invoke(ctx, call)
	if err != nil {
		status = "error"
		err = wrapExecution(name, err)
		inv.logger.Warn("tool failed",
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		return datatypes.None(), err
	}
	return out, nil
}
