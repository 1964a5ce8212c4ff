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
	"errors"
	"fmt"
)

// UnknownToolError reports a tool name that is not in the registry.
type UnknownToolError struct {
	Tool string
}

// Error implements error.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Tool)
}

// ToolExecutionError wraps any failure raised while a tool runs.
type ToolExecutionError struct {
	Tool string
	Err  error
}

// Error implements error.
func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// IsUnknownTool reports whether err is or wraps an UnknownToolError.
func IsUnknownTool(err error) bool {
	var target *UnknownToolError
	return errors.As(err, &target)
}

// IsToolExecution reports whether err is or wraps a ToolExecutionError.
func IsToolExecution(err error) bool {
	var target *ToolExecutionError
	return errors.As(err, &target)
}

// wrapExecution returns err as a *ToolExecutionError for tool unless it
// already is one.
func wrapExecution(tool string, err error) error {
	if err == nil {
		return nil
	}
	var existing *ToolExecutionError
	if errors.As(err, &existing) {
		return err
	}
	return &ToolExecutionError{Tool: tool, Err: err}
}
