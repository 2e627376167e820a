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
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestTracingFlags(t *testing.T) {
	var opts TracingOptions
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AttachCmdFlags(fs.StringVar, fs.BoolVar, fs.Float64Var)

	require.NoError(t, fs.Parse([]string{"--trace-exporter", "zipkin", "--trace-endpoint", "http://localhost:9411/api/v2/spans"}))
	assert.Equal(t, ExporterZipkin, opts.Exporter)
	assert.Equal(t, "http://localhost:9411/api/v2/spans", opts.Endpoint)
	assert.False(t, opts.Insecure)
	assert.InDelta(t, 1.0, opts.SamplingRate, 0.0001)
}

func TestInitTracing(t *testing.T) {
	t.Run("no exporter", func(t *testing.T) {
		shutdown, err := InitTracing(context.Background(), "test", TracingOptions{})
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	})

	t.Run("unknown exporter", func(t *testing.T) {
		_, err := InitTracing(context.Background(), "test", TracingOptions{Exporter: "jaeger"})
		require.Error(t, err)
	})

	t.Run("zipkin without endpoint", func(t *testing.T) {
		_, err := InitTracing(context.Background(), "test", TracingOptions{Exporter: ExporterZipkin})
		require.Error(t, err)
	})

	t.Run("otlp http", func(t *testing.T) {
		shutdown, err := InitTracing(context.Background(), "test", TracingOptions{
			Exporter:     ExporterOTLPHTTP,
			Endpoint:     "127.0.0.1:4318",
			Insecure:     true,
			SamplingRate: 1,
		})
		require.NoError(t, err)

		_, span := StartSpan(context.Background(), "Test.Export", trace.SpanKindClient)
		assert.True(t, span.SpanContext().IsSampled())
		span.End()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		// The collector is absent; only the shutdown path is exercised.
		_ = shutdown(ctx)
	})
}

func TestSampler(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		decision sdktrace.SamplingDecision
	}{
		{name: "always", rate: 1, decision: sdktrace.RecordAndSample},
		{name: "never", rate: 0, decision: sdktrace.Drop},
	}
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Sampler(tt.rate).ShouldSample(sdktrace.SamplingParameters{
				ParentContext: context.Background(),
				TraceID:       traceID,
				Name:          "Test.Sample",
			})
			assert.Equal(t, tt.decision, res.Decision)
		})
	}
}
