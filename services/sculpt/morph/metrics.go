// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package morph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("sculpt.morph")
	meter  = otel.Meter("sculpt.morph")
)

var (
	editLatency      metric.Float64Histogram
	editTotal        metric.Int64Counter
	handlesRemapped  metric.Int64Counter
	handlesForgotten metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		editLatency, err = meter.Float64Histogram(
			"sculpt_edit_duration_seconds",
			metric.WithDescription("Duration of edit application including reparse and remap"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		editTotal, err = meter.Int64Counter(
			"sculpt_edit_total",
			metric.WithDescription("Total number of edit batches applied"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		handlesRemapped, err = meter.Int64Counter(
			"sculpt_handles_remapped_total",
			metric.WithDescription("Handles carried over to a new tree generation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		handlesForgotten, err = meter.Int64Counter(
			"sculpt_handles_forgotten_total",
			metric.WithDescription("Handles forgotten by remap, Forget or batch close"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordEditMetrics(ctx context.Context, op string, duration time.Duration, remapped, forgotten int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", success),
	)
	editLatency.Record(ctx, duration.Seconds(), attrs)
	editTotal.Add(ctx, 1, attrs)
	if success {
		handlesRemapped.Add(ctx, int64(remapped))
		handlesForgotten.Add(ctx, int64(forgotten), metric.WithAttributes(attribute.String("reason", "remap")))
	}
}

func recordForgotten(ctx context.Context, reason string, n int) {
	if n == 0 || initMetrics() != nil {
		return
	}
	handlesForgotten.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

func startEditSpan(ctx context.Context, op string, edits int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Document."+op,
		trace.WithAttributes(
			attribute.String("morph.op", op),
			attribute.Int("morph.edit_count", edits),
		),
	)
}

func endEditSpan(span trace.Span, change Change, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int64("morph.generation", int64(change.Generation)),
			attribute.Int("morph.remapped", change.Remapped),
			attribute.Int("morph.forgotten", change.Forgotten),
		)
	}
	span.End()
}
