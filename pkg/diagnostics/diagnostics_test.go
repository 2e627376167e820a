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
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "Timeout", Status(rpcerrors.Timeout("x")))
	assert.Equal(t, "Other", Status(io.EOF))
}

func TestRecord(t *testing.T) {
	before := testutil.ToFloat64(clientCalls.WithLabelValues("Test.Record", "Nats"))
	RecordClientCall("Test.Record", time.Now(), rpcerrors.Nats("down"))
	assert.InDelta(t, before+1, testutil.ToFloat64(clientCalls.WithLabelValues("Test.Record", "Nats")), 0.001)

	RecordDispatch("Test.Record", nil)
	assert.InDelta(t, 1, testutil.ToFloat64(serverDispatch.WithLabelValues("Test.Record", "ok")), 0.001)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Contains(t, rec.Body.String(), "wasmbus_rpc_client_calls_total")
	assert.Contains(t, rec.Body.String(), "wasmbus_rpc_server_dispatch_total")
}

func TestTracePropagation(t *testing.T) {
	assert.Empty(t, SpanFromContext(context.Background()))
	assert.Equal(t, context.Background(), ContextWithSpan(context.Background(), ""))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tp := SpanFromContext(ctx)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", tp)

	got := trace.SpanContextFromContext(ContextWithSpan(context.Background(), tp))
	assert.Equal(t, traceID, got.TraceID())
	assert.Equal(t, spanID, got.SpanID())
	assert.True(t, got.IsRemote())

	headers := Inject(ctx)
	got = trace.SpanContextFromContext(Extract(context.Background(), headers))
	assert.Equal(t, traceID, got.TraceID())
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "Test.Span", trace.SpanKindClient)
	defer span.End()
	assert.NotNil(t, ctx)
}
