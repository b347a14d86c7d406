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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/sculpt/services/sculpt/telemetry"
)

const requestIDKey = "request_id"

// RequestID assigns every request an ID. An incoming X-Request-ID header is
// kept; otherwise a UUID is generated. The ID is echoed on the response and
// stored in the context for the handler loggers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestIDKey, getOrCreateRequestID(c))
		c.Next()
	}
}

// requestID returns the ID stored by RequestID, assigning one when the
// middleware is not installed.
func requestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	id := getOrCreateRequestID(c)
	c.Set(requestIDKey, id)
	return id
}

// getOrCreateRequestID returns the X-Request-ID header, generating one when
// absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Header("X-Request-ID", id)
	return id
}

// MetricsMiddleware records request count, duration and in-flight
// requests. The path label is the route template, not the raw URL, to
// keep label cardinality bounded.
func MetricsMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		metrics.HTTPActiveRequests.Add(ctx, 1)
		defer metrics.HTTPActiveRequests.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", route),
			attribute.Int("status", c.Writer.Status()),
		)
		metrics.HTTPRequestsTotal.Add(ctx, 1, attrs)
		metrics.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

func saveAttrs(status string) metric.AddOption {
	return metric.WithAttributes(attribute.String("status", status))
}
