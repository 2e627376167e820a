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

package metrics

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapr/wasmbus/pkg/diagnostics"
	"github.com/dapr/wasmbus/pkg/healthz"
)

func TestExporterDisabled(t *testing.T) {
	h := healthz.New()
	e := New(Options{Enabled: false, Healthz: h})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(ctx) }()

	assert.Eventually(t, h.IsReady, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
}

func TestExporterInvalidPort(t *testing.T) {
	e := New(Options{Enabled: true, Port: "invalid"})
	require.Error(t, e.Start(context.Background()))
}

func TestExporterServes(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)
	h := healthz.New()
	e := New(Options{Enabled: true, Port: strconv.Itoa(port), ListenAddress: "127.0.0.1", Healthz: h})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(ctx) }()
	require.Eventually(t, h.IsReady, time.Second, 10*time.Millisecond)

	diagnostics.RecordDispatch("Exporter.Test", nil)

	base := "http://127.0.0.1:" + strconv.Itoa(port)
	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "wasmbus_rpc_server_dispatch_total")

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	require.NoError(t, <-errCh)
}
