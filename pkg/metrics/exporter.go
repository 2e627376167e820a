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
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dapr/kit/logger"

	"github.com/dapr/wasmbus/pkg/diagnostics"
	"github.com/dapr/wasmbus/pkg/healthz"
)

const (
	metricsPath = "/metrics"
	healthzPath = "/healthz"
)

// Exporter serves the process metrics and its readiness over HTTP.
type Exporter interface {
	// Start runs the exporter until ctx is done.
	Start(context.Context) error
}

type exporter struct {
	enabled       bool
	port          string
	listenAddress string
	logger        logger.Logger
	healthz       healthz.Healthz
	htarget       healthz.Target
}

// New creates a metrics Exporter with the given options.
func New(opts Options) Exporter {
	e := &exporter{
		healthz:       opts.Healthz,
		logger:        opts.Log,
		enabled:       opts.Enabled,
		port:          opts.Port,
		listenAddress: opts.ListenAddress,
	}
	if e.healthz == nil {
		e.healthz = healthz.New()
	}
	if e.logger == nil {
		e.logger = logger.NewLogger("wasmbus.metrics")
	}
	e.htarget = e.healthz.AddTarget("metrics")
	return e
}

func (e *exporter) Start(ctx context.Context) error {
	if !e.enabled {
		e.htarget.Ready()
		<-ctx.Done()
		return nil
	}

	port, err := strconv.Atoi(e.port)
	if err != nil {
		return fmt.Errorf("failed to parse metrics port: %w", err)
	}

	addr := net.JoinHostPort(e.listenAddress, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	e.logger.Infof("metrics server started on %s%s", ln.Addr(), metricsPath)

	mux := http.NewServeMux()
	mux.Handle(metricsPath, diagnostics.Handler())
	mux.Handle(healthzPath, e.healthz.Handler())

	server := &http.Server{
		Handler:     mux,
		ReadTimeout: time.Second * 10,
	}

	errCh := make(chan error, 1)
	go func() {
		if serr := server.Serve(ln); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to run metrics server: %w", serr)
			return
		}
		errCh <- nil
	}()

	e.htarget.Ready()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		errCh <- nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return errors.Join(server.Shutdown(ctx), err, <-errCh)
}
