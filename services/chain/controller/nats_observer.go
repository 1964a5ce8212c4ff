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
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is the NATS subject prefix for run events.
const DefaultSubjectPrefix = "chain.runs"

// Publisher is the subset of *nats.Conn used to emit events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSObserver publishes every event as JSON to "<prefix>.<run_id>".
//
// Description:
//
//	Publish failures are logged and dropped. Events are best-effort and
//	never affect a run.
//
// Thread Safety: Safe for concurrent use if the Publisher is.
type NATSObserver struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// NewNATSObserver creates a NATSObserver. An empty prefix uses
// DefaultSubjectPrefix.
func NewNATSObserver(pub Publisher, prefix string, logger *slog.Logger) (*NATSObserver, error) {
	if pub == nil {
		return nil, errors.New("controller: nats publisher is required")
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSObserver{pub: pub, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject events for runID are published on.
func (o *NATSObserver) Subject(runID string) string {
	return o.prefix + "." + runID
}

// Observe implements Observer.
func (o *NATSObserver) Observe(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		o.logger.WarnContext(ctx, "nats observer: encode event",
			slog.String("type", string(ev.Type)),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := o.pub.Publish(o.Subject(ev.RunID), data); err != nil {
		o.logger.WarnContext(ctx, "nats observer: publish event",
			slog.String("type", string(ev.Type)),
			slog.String("run_id", ev.RunID),
			slog.String("error", err.Error()),
		)
	}
}
