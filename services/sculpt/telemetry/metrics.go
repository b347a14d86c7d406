// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded by the HTTP API.
//
// Description:
//
//	Document edits, parses and journal writes record their own instruments
//	inside morph, syntax and store. Metrics covers what only the service
//	layer sees: requests, the open document count and saves. All names use
//	the "sculpt_" prefix.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// HTTPRequestsTotal counts requests by method, route and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks requests in flight.
	HTTPActiveRequests metric.Int64UpDownCounter

	// DocumentsOpen tracks documents held by the manager.
	DocumentsOpen metric.Int64UpDownCounter

	// SavesTotal counts document saves by status.
	SavesTotal metric.Int64Counter

	// ErrorsTotal counts failed operations by kind.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics registers every instrument with meter.
//
// Inputs:
//
//	meter - The OTel meter to register with, usually otel.Meter("sculpt.api").
//
// Outputs:
//
//	*Metrics - The instruments.
//	error - Non-nil if any registration fails.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"sculpt_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"sculpt_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"sculpt_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	m.DocumentsOpen, err = meter.Int64UpDownCounter(
		"sculpt_documents_open",
		metric.WithDescription("Documents currently open"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create documents_open: %w", err)
	}

	m.SavesTotal, err = meter.Int64Counter(
		"sculpt_saves_total",
		metric.WithDescription("Total document saves"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create saves_total: %w", err)
	}

	m.ErrorsTotal, err = meter.Int64Counter(
		"sculpt_errors_total",
		metric.WithDescription("Total failed operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}
