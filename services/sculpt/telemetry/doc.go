// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry tracing and metrics for sculpt.
//
// The morph, syntax and store packages emit spans and instruments through
// otel.Tracer and otel.Meter. Until Init runs those calls go to the no-op
// global providers; after Init they reach the configured exporters.
//
// # Trace Backend
//
// OTLP over gRPC by default, so any OTLP collector (Jaeger 1.35+, Tempo)
// receives spans. "stdout" pretty-prints spans for local debugging.
//
// # Metrics Backend
//
// Prometheus by default. The exporter registers with a registry private to
// the Init call, and MetricsHandler serves it for scraping.
//
// # Environment Variables
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: prometheus)
//   - SCULPT_ENV: environment name (default: development)
//
// # Thread Safety
//
// All exported functions are safe for concurrent use after Init returns.
package telemetry
