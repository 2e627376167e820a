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
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

const (
	// DefaultMetricNamespace is the prefix of metric names.
	DefaultMetricNamespace = "wasmbus"

	statusOK = "ok"
)

var (
	registry = prometheus.NewRegistry()

	clientCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultMetricNamespace,
		Subsystem: "rpc_client",
		Name:      "calls_total",
		Help:      "The number of calls sent, by method and result.",
	}, []string{"method", "status"})

	clientLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: DefaultMetricNamespace,
		Subsystem: "rpc_client",
		Name:      "latency_seconds",
		Help:      "The time from sending a call to receiving its result.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
	}, []string{"method"})

	serverDispatch = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultMetricNamespace,
		Subsystem: "rpc_server",
		Name:      "dispatch_total",
		Help:      "The number of calls dispatched, by method and result.",
	}, []string{"method", "status"})
)

func init() {
	registry.MustRegister(clientCalls, clientLatency, serverDispatch)
}

// Status returns the metric label of a call result: "ok" or the error kind.
func Status(err error) string {
	if err == nil {
		return statusOK
	}
	return rpcerrors.KindOf(err).String()
}

// RecordClientCall records a call that was started at start.
func RecordClientCall(method string, start time.Time, err error) {
	clientCalls.WithLabelValues(method, Status(err)).Inc()
	clientLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// RecordDispatch records an inbound call.
func RecordDispatch(method string, err error) {
	serverDispatch.WithLabelValues(method, Status(err)).Inc()
}

// Handler serves the collected metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
