/*
Copyright 2025 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package diagnostics holds the metrics and trace propagation used by the
// lattice transports.
package diagnostics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceparentHeader is the W3C trace context header.
	TraceparentHeader = "traceparent"

	tracerName = "github.com/dapr/wasmbus"
)

var propagator = propagation.TraceContext{}

// Inject returns the trace context of ctx as a header map. The map is empty
// when ctx carries no valid span.
func Inject(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)
	return carrier
}

// Extract returns ctx with the remote span found in headers.
func Extract(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return propagator.Extract(ctx, propagation.MapCarrier(headers))
}

// SpanFromContext returns the traceparent of the span in ctx, or "".
func SpanFromContext(ctx context.Context) string {
	return Inject(ctx)[TraceparentHeader]
}

// ContextWithSpan returns ctx with the remote span described by traceparent.
func ContextWithSpan(ctx context.Context, traceparent string) context.Context {
	if traceparent == "" {
		return ctx
	}
	return Extract(ctx, map[string]string{TraceparentHeader: traceparent})
}

// StartSpan starts a span with the globally registered tracer provider.
func StartSpan(ctx context.Context, name string, kind trace.SpanKind) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithSpanKind(kind))
}
