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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts finished runs.
	//
	// Labels:
	//   - state: "done", "failed"
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "runs_total",
			Help:      "Total chain runs by terminal state.",
		},
		[]string{"state"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chain",
			Name:      "run_duration_seconds",
			Help:      "Duration of chain runs in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// stepsTotal counts executed steps.
	//
	// Labels:
	//   - tool: tool name
	//   - status: "success", "error"
	stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "steps_total",
			Help:      "Total executed chain steps by tool and status.",
		},
		[]string{"tool", "status"},
	)
)

// MetricsObserver records run and step metrics.
type MetricsObserver struct{}

// NewMetricsObserver creates a MetricsObserver.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// Observe implements Observer.
func (MetricsObserver) Observe(_ context.Context, ev Event) {
	switch ev.Type {
	case EventStepFinished:
		if ev.Step == nil {
			return
		}
		status := "success"
		if ev.Step.IsError() {
			status = "error"
		}
		stepsTotal.WithLabelValues(ev.Step.Tool, status).Inc()

	case EventRunFinished:
		if ev.Result == nil {
			return
		}
		runsTotal.WithLabelValues(string(ev.Result.State)).Inc()
		runDuration.Observe(ev.Duration.Seconds())
	}
}
