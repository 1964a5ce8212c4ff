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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const plannerTracerName = "chain.planner"

// Plan outcomes, used as the metric label and span attribute.
const (
	outcomeAccepted   = "accepted"
	outcomeChatError  = "chat_error"
	outcomeParseError = "parse_error"
	outcomeInvalid    = "invalid"
)

var (
	// plansTotal counts planning attempts.
	//
	// Labels:
	//   - outcome: "accepted", "chat_error", "parse_error", "invalid"
	plansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chain",
			Subsystem: "planner",
			Name:      "plans_total",
			Help:      "Total planning attempts by outcome.",
		},
		[]string{"outcome"},
	)

	planDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chain",
			Subsystem: "planner",
			Name:      "duration_seconds",
			Help:      "Duration of plan generation in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	planSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chain",
			Subsystem: "planner",
			Name:      "plan_steps",
			Help:      "Number of steps in accepted plans.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)
)

func recordPlan(outcome string, steps int, duration time.Duration) {
	plansTotal.WithLabelValues(outcome).Inc()
	planDuration.Observe(duration.Seconds())
	if outcome == outcomeAccepted {
		planSteps.Observe(float64(steps))
	}
}
