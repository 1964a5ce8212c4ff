// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/tools"
	"github.com/AleutianAI/AleutianChain/services/llm"
)

var fencedBlockPattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

const defaultExcerptRunes = 300

// Catalog is the view of the tool registry the planner needs.
type Catalog interface {
	Has(name string) bool
	Specs() []tools.Spec
}

// ParsePlan decodes a model response into a plan.
//
// Description:
//
//	The trimmed response is decoded as JSON. If that fails the first
//	fenced code block is decoded instead. If both fail a *PlanParseError
//	is returned carrying a redacted excerpt of at most excerptRunes runes.
//	The plan is not validated here.
func ParsePlan(text string, excerptRunes int) (*datatypes.Plan, error) {
	if excerptRunes <= 0 {
		excerptRunes = defaultExcerptRunes
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &PlanParseError{Reason: "empty response"}
	}

	var plan datatypes.Plan
	directErr := json.Unmarshal([]byte(trimmed), &plan)
	if directErr == nil {
		return &plan, nil
	}

	if m := fencedBlockPattern.FindStringSubmatch(trimmed); m != nil {
		plan = datatypes.Plan{}
		fencedErr := json.Unmarshal([]byte(m[1]), &plan)
		if fencedErr == nil {
			return &plan, nil
		}
		directErr = fencedErr
	}

	return nil, &PlanParseError{
		Reason:  "response is not a JSON plan",
		Excerpt: excerpt(trimmed, excerptRunes),
		Err:     directErr,
	}
}

// Validate checks plan against the catalog and the forbidden markers.
//
// Description:
//
//	A plan with no steps is rejected. Each step is then checked in order:
//	forbidden markers in any string input (case-insensitive), a missing
//	tool name, struct validation, then an unregistered tool. The first
//	failure rejects the whole plan.
//
// Outputs:
//   - error: *InvalidPlanError, or nil when the plan is acceptable.
func Validate(plan *datatypes.Plan, catalog Catalog, markers []string, v *validator.Validate) error {
	if plan == nil || len(plan.Steps) == 0 {
		return &InvalidPlanError{Reason: "plan has no steps"}
	}
	if v == nil {
		v = validator.New()
	}

	for i, step := range plan.Steps {
		idx := i + 1

		if marker, ok := findMarker(step.Input, markers); ok {
			return &InvalidPlanError{StepIndex: idx, Marker: marker, Reason: "forbidden concatenation marker"}
		}
		if strings.TrimSpace(step.Tool) == "" {
			return &InvalidPlanError{StepIndex: idx, Reason: "missing tool name"}
		}
		if err := v.Struct(step); err != nil {
			return &InvalidPlanError{StepIndex: idx, Reason: "invalid step", Err: err}
		}
		if !catalog.Has(step.Tool) {
			return &InvalidPlanError{StepIndex: idx, Reason: "unknown tool", Err: &tools.UnknownToolError{Tool: step.Tool}}
		}
	}
	return nil
}

// findMarker scans a text input, or every string field of a record, for
// any marker.
func findMarker(in datatypes.InputValue, markers []string) (string, bool) {
	if len(markers) == 0 {
		return "", false
	}

	var texts []string
	switch {
	case in.IsText():
		s, _ := in.AsText()
		texts = append(texts, s)
	case in.IsRecord():
		rec, _ := in.AsRecord()
		for _, v := range rec {
			if s, ok := v.(string); ok {
				texts = append(texts, s)
			}
		}
	}

	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, m := range markers {
			if m != "" && strings.Contains(lower, strings.ToLower(m)) {
				return m, true
			}
		}
	}
	return "", false
}

func excerpt(s string, n int) string {
	cut, truncated := datatypes.TruncateRunes(llm.SafeLogString(s), n)
	if truncated {
		cut += "..."
	}
	return cut
}
