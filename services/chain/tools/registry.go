// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools defines the tool contract, the registry of named tools,
// the invoker that runs them, and the eight built-in chain tools.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/exectrace"
)

// Call is everything a tool receives for one invocation.
type Call struct {
	// Input is the step input after reference resolution.
	Input datatypes.InputValue

	// Query is the user's original query.
	Query string

	// Trace is the read-only trace of earlier steps. May be nil.
	Trace exectrace.Reader
}

// Tool is a single named capability.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Tool interface {
	Invoke(ctx context.Context, call Call) (datatypes.InputValue, error)
}

// ToolFunc adapts a plain function to Tool.
type ToolFunc func(ctx context.Context, call Call) (datatypes.InputValue, error)

// Invoke implements Tool.
func (f ToolFunc) Invoke(ctx context.Context, call Call) (datatypes.InputValue, error) {
	return f(ctx, call)
}

// Spec describes a tool to the planner and to API callers.
type Spec struct {
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
	Input   string `json:"input"`
	Output  string `json:"output"`
}

// Registry maps tool names to implementations.
//
// Description:
//
//	Tools are registered at startup and looked up by name during runs.
//	Specs are returned in registration order so the planner prompt is
//	stable.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []string
	specs map[string]Spec
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]Spec),
		tools: make(map[string]Tool),
	}
}

// Register adds tool under spec.Name.
//
// Outputs:
//   - error: Non-nil when the name is empty, the tool is nil, or the name
//     is already taken.
func (r *Registry) Register(spec Spec, tool Tool) error {
	if spec.Name == "" {
		return fmt.Errorf("tools: register: empty tool name")
	}
	if tool == nil {
		return fmt.Errorf("tools: register %s: nil tool", spec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("tools: register %s: already registered", spec.Name)
	}
	r.order = append(r.order, spec.Name)
	r.specs[spec.Name] = spec
	r.tools[spec.Name] = tool
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Specs returns every spec in registration order.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

// Names returns every tool name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
