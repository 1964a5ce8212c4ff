// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chain

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers the /v1/chain endpoints.
//
// Description:
//
//	The router group should already carry any required middleware
//	(RequestID, otelgin).
//
// Endpoints:
//
//	POST /v1/chain/run    - Run a query through the tool chain
//	GET  /v1/chain/tools  - List registered tools
//	GET  /v1/chain/health - Liveness
//	GET  /v1/chain/ready  - Readiness
//
// Example:
//
//	v1 := router.Group("/v1")
//	chain.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	chain := rg.Group("/chain")
	{
		chain.POST("/run", handlers.HandleRun)
		chain.GET("/tools", handlers.HandleTools)

		chain.GET("/health", handlers.HandleHealth)
		chain.GET("/ready", handlers.HandleReady)
	}
}

// RegisterMetrics serves the default Prometheus registry at GET /metrics.
func RegisterMetrics(r gin.IRoutes) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
