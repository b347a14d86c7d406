// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/sculpt/services/sculpt/telemetry"
)

// RegisterRoutes registers the /sculpt endpoints on rg.
//
// Description:
//
//	Registers all /v1/sculpt/* endpoints with the given Gin router group.
//	Documents are addressed by the path query parameter or the path field
//	of the request body.
//
// Endpoints:
//
//	GET    /v1/sculpt/health               - Health check
//	GET    /v1/sculpt/documents            - List open documents
//	POST   /v1/sculpt/documents            - Open a document
//	DELETE /v1/sculpt/documents?path=      - Close a document
//	GET    /v1/sculpt/documents/text       - Current text
//	GET    /v1/sculpt/documents/outline    - Top level declarations
//	GET    /v1/sculpt/documents/structure  - Structure of a declaration
//	PUT    /v1/sculpt/documents/structure  - Merge a partial structure
//	POST   /v1/sculpt/documents/edits      - Apply raw text edits
//	POST   /v1/sculpt/documents/rename     - Rename a declaration
//	POST   /v1/sculpt/documents/save       - Save one or all documents
//	GET    /v1/sculpt/documents/history    - Journaled changes
//	GET    /v1/sculpt/documents/changes    - WebSocket feed of applied edits
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	sculpt := rg.Group("/sculpt")
	{
		sculpt.GET("/health", handlers.HandleHealth)

		docs := sculpt.Group("/documents")
		docs.GET("", handlers.HandleListDocuments)
		docs.POST("", handlers.HandleOpen)
		docs.DELETE("", handlers.HandleClose)
		docs.GET("/text", handlers.HandleText)
		docs.GET("/outline", handlers.HandleOutline)
		docs.GET("/structure", handlers.HandleGetStructure)
		docs.PUT("/structure", handlers.HandleSetStructure)
		docs.POST("/edits", handlers.HandleEdits)
		docs.POST("/rename", handlers.HandleRename)
		docs.POST("/save", handlers.HandleSave)
		docs.GET("/history", handlers.HandleHistory)
		docs.GET("/changes", handlers.HandleChanges)
	}
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// ServiceName names the server spans.
	ServiceName string

	// Metrics enables the metrics middleware when non-nil.
	Metrics *telemetry.Metrics

	// Logger logs each request. Nil uses slog.Default().
	Logger *slog.Logger
}

// NewRouter builds the engine served by "sculpt serve": recovery, request
// IDs, tracing, request logging, optional metrics, /metrics when a Prometheus exporter is
// installed, and the /v1 routes.
func NewRouter(handlers *Handlers, cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "sculpt"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(requestLogging(logger))
	if cfg.Metrics != nil {
		router.Use(MetricsMiddleware(cfg.Metrics))
		handlers.WithMetrics(cfg.Metrics)
	}
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found", Code: "NOT_FOUND"})
	})

	RegisterRoutes(router.Group("/v1"), handlers)
	return router
}

func requestLogging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("request",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()))
	}
}
