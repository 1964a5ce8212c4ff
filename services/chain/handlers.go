// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chain exposes chain runs over HTTP.
package chain

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/tools"
)

// RequestIDHeader carries the per-request ID on every response.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// =============================================================================
// Request / Response Types
// =============================================================================

// RunRequest is the body of POST /v1/chain/run.
type RunRequest struct {
	Query string `json:"query" validate:"required,min=1,max=4000"`
}

// ToolsResponse is the body of GET /v1/chain/tools.
type ToolsResponse struct {
	Tools []tools.Spec `json:"tools"`
	Count int          `json:"count"`
}

// HealthResponse is the body of the health and readiness endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// =============================================================================
// Handlers
// =============================================================================

// Runner executes one chain run. *controller.Controller satisfies it.
type Runner interface {
	Run(ctx context.Context, query string) datatypes.ChainResult
}

// Catalog lists the registered tools. *tools.Registry satisfies it.
type Catalog interface {
	Specs() []tools.Spec
}

// HandlersConfig wires Handlers.
type HandlersConfig struct {
	Runner  Runner
	Catalog Catalog

	// Ready reports whether dependencies are usable. Optional.
	Ready func(ctx context.Context) error

	// Logger is optional; slog.Default() when nil.
	Logger *slog.Logger
}

// Handlers serves the /v1/chain endpoints.
//
// Thread Safety: Safe for concurrent use.
type Handlers struct {
	runner   Runner
	catalog  Catalog
	ready    func(ctx context.Context) error
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandlers creates Handlers. Runner and Catalog are required.
func NewHandlers(cfg HandlersConfig) (*Handlers, error) {
	if cfg.Runner == nil {
		return nil, errors.New("chain: runner is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("chain: tool catalog is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handlers{
		runner:   cfg.Runner,
		catalog:  cfg.Catalog,
		ready:    cfg.Ready,
		validate: validator.New(),
		logger:   cfg.Logger,
	}, nil
}

// HandleRun handles POST /v1/chain/run.
//
// Description:
//
//	Runs the query to completion and returns the ChainResult. A failed
//	chain is still a 200 response; State and Result describe the failure.
//	The run is detached from the request context, so a client disconnect
//	does not cancel in-flight model calls.
//
// Response:
//
//	200 OK: datatypes.ChainResult
//	400 Bad Request: malformed JSON or query failing validation
func (h *Handlers) HandleRun(c *gin.Context) {
	logger := h.logger.With(slog.String("request_id", requestID(c)), slog.String("handler", "HandleRun"))

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "query must be between 1 and 4000 characters",
			Code:  "VALIDATION_FAILED",
		})
		return
	}

	start := time.Now()
	result := h.runner.Run(context.WithoutCancel(c.Request.Context()), req.Query)
	logger.Info("chain run served",
		slog.String("run_id", result.RunID),
		slog.String("state", string(result.State)),
		slog.Duration("duration", time.Since(start)),
	)
	c.JSON(http.StatusOK, result)
}

// HandleTools handles GET /v1/chain/tools.
func (h *Handlers) HandleTools(c *gin.Context) {
	specs := h.catalog.Specs()
	c.JSON(http.StatusOK, ToolsResponse{Tools: specs, Count: len(specs)})
}

// HandleHealth handles GET /v1/chain/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now().UnixMilli()})
}

// HandleReady handles GET /v1/chain/ready.
//
// Response:
//
//	200 OK: HealthResponse
//	503 Service Unavailable: the readiness check failed
func (h *Handlers) HandleReady(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			h.logger.Warn("readiness check failed",
				slog.String("request_id", requestID(c)),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: err.Error(),
				Code:  "NOT_READY",
			})
			return
		}
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ready", Timestamp: time.Now().UnixMilli()})
}

// =============================================================================
// Middleware
// =============================================================================

// RequestID echoes an incoming X-Request-ID or assigns a new uuid, and sets
// it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}
