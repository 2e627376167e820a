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
	"strconv"

	"github.com/dapr/kit/logger"

	"github.com/dapr/wasmbus/pkg/healthz"
)

const (
	defaultMetricsPort    = "9090"
	defaultMetricsEnabled = true
	defaultListenAddress  = "0.0.0.0"
)

// Options configures the metrics exporter.
type Options struct {
	Enabled       bool
	Port          string
	ListenAddress string

	Log     logger.Logger
	Healthz healthz.Healthz
}

func DefaultOptions() *Options {
	return &Options{
		Enabled:       defaultMetricsEnabled,
		Port:          defaultMetricsPort,
		ListenAddress: defaultListenAddress,
	}
}

// MetricsPort returns the metrics port, or the default one when the
// configured value is not a port.
func (o *Options) MetricsPort() uint64 {
	port, err := strconv.ParseUint(o.Port, 10, 16)
	if err != nil {
		port, _ = strconv.ParseUint(defaultMetricsPort, 10, 16)
	}
	return port
}

// AttachCmdFlags attaches the metrics options to command flags.
func (o *Options) AttachCmdFlags(
	stringVar func(p *string, name string, value string, usage string),
	boolVar func(p *bool, name string, value bool, usage string),
) {
	stringVar(
		&o.Port,
		"metrics-port",
		defaultMetricsPort,
		"The port for the metrics server")
	stringVar(
		&o.ListenAddress,
		"metrics-listen-address",
		defaultListenAddress,
		"The address for the metrics server to listen on")
	boolVar(
		&o.Enabled,
		"enable-metrics",
		defaultMetricsEnabled,
		"Enable prometheus metrics")
}
