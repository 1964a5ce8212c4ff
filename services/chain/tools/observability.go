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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const toolsTracerName = "chain.tools"

var (
	// toolInvocationsTotal counts tool invocations.
	//
	// Labels:
	//   - tool: registered tool name, or "unknown"
	//   - status: "success", "error", "panic", "unknown_tool"
	toolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chain",
			Subsystem: "tools",
			Name:      "invocations_total",
			Help:      "Total tool invocations by tool and status.",
		},
		[]string{"tool", "status"},
	)

	toolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chain",
			Subsystem: "tools",
			Name:      "duration_seconds",
			Help:      "Duration of tool invocations in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool"},
	)

	// toolDefaultsApplied counts parameters that fell back to defaults.
	toolDefaultsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chain",
			Subsystem: "tools",
			Name:      "defaults_applied_total",
			Help:      "Tool parameters filled from defaults because they could not be extracted.",
		},
		[]string{"tool", "param"},
	)
)

func recordInvocation(tool, status string, duration time.Duration) {
	label := tool
	if status == "unknown_tool" {
		label = "unknown"
	}
	toolInvocationsTotal.WithLabelValues(label, status).Inc()
	if status != "unknown_tool" {
		toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
	}
}

func recordDefaults(tool string, params []string) {
	for _, p := range params {
		toolDefaultsApplied.WithLabelValues(tool, p).Inc()
	}
}
