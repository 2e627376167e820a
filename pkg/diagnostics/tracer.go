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

package diagnostics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Supported trace exporters.
const (
	ExporterNone     = ""
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
	ExporterZipkin   = "zipkin"
)

// TracingOptions selects where spans are exported.
type TracingOptions struct {
	Exporter     string
	Endpoint     string
	Insecure     bool
	SamplingRate float64
}

// AttachCmdFlags attaches the tracing options to command flags.
func (o *TracingOptions) AttachCmdFlags(
	stringVar func(p *string, name string, value string, usage string),
	boolVar func(p *bool, name string, value bool, usage string),
	float64Var func(p *float64, name string, value float64, usage string),
) {
	stringVar(&o.Exporter, "trace-exporter", ExporterNone, "Trace exporter: otlp-grpc, otlp-http or zipkin; tracing is off when empty")
	stringVar(&o.Endpoint, "trace-endpoint", "", "Endpoint of the trace exporter")
	boolVar(&o.Insecure, "trace-insecure", false, "Export spans without TLS")
	float64Var(&o.SamplingRate, "trace-sampling-rate", 1, "Fraction of traces started here that are sampled")
}

// InitTracing registers a tracer provider exporting to the configured
// exporter. The returned function flushes and stops it. With no exporter
// the global no-op provider stays in place.
func InitTracing(ctx context.Context, serviceName string, opts TracingOptions) (func(context.Context) error, error) {
	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		return func(context.Context) error { return nil }, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(Sampler(opts.SamplingRate)),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Sampler keeps the decision of a sampled parent and samples the given
// fraction of new traces.
func Sampler(rate float64) sdktrace.Sampler {
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

func newExporter(ctx context.Context, opts TracingOptions) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case ExporterNone:
		return nil, nil
	case ExporterZipkin:
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("the %s trace exporter needs an endpoint", opts.Exporter)
		}
		return zipkin.New(opts.Endpoint)
	case ExporterOTLPGRPC:
		clientOptions := []otlptracegrpc.Option{}
		if opts.Endpoint != "" {
			clientOptions = append(clientOptions, otlptracegrpc.WithEndpoint(opts.Endpoint))
		}
		if opts.Insecure {
			clientOptions = append(clientOptions, otlptracegrpc.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(clientOptions...))
	case ExporterOTLPHTTP:
		clientOptions := []otlptracehttp.Option{}
		if opts.Endpoint != "" {
			clientOptions = append(clientOptions, otlptracehttp.WithEndpoint(opts.Endpoint))
		}
		if opts.Insecure {
			clientOptions = append(clientOptions, otlptracehttp.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracehttp.NewClient(clientOptions...))
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", opts.Exporter)
	}
}
