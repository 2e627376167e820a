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

package provider

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/dapr/kit/logger"

	"github.com/dapr/wasmbus/pkg/bootstrap"
	"github.com/dapr/wasmbus/pkg/core"
)

// LinkHandler is notified when the host adds or removes a link of the provider.
// A PutLink error rejects the link.
type LinkHandler interface {
	PutLink(ctx context.Context, ld *core.LinkDefinition) error
	DeleteLink(ctx context.Context, ld *core.LinkDefinition) error
}

// HealthCheck reports whether the provider is healthy.
type HealthCheck func(ctx context.Context) error

type options struct {
	hostData      *core.HostData
	stdin         io.Reader
	linkHandler   LinkHandler
	healthCheck   HealthCheck
	bootstrapOpts []bootstrap.Option
}

// Option configures a Provider.
type Option func(*options)

// WithHostData uses hd instead of reading the host data from stdin.
func WithHostData(hd *core.HostData) Option {
	return func(o *options) {
		o.hostData = hd
	}
}

// WithStdin reads the host data from r.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

func WithLinkHandler(h LinkHandler) Option {
	return func(o *options) {
		o.linkHandler = h
	}
}

func WithHealthCheck(fn HealthCheck) Option {
	return func(o *options) {
		o.healthCheck = fn
	}
}

// WithBootstrapOptions configures the lattice connection.
func WithBootstrapOptions(opts ...bootstrap.Option) Option {
	return func(o *options) {
		o.bootstrapOpts = append(o.bootstrapOpts, opts...)
	}
}

func newOptions(opts []Option) *options {
	o := &options{stdin: os.Stdin}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoggerOptions maps the logging settings of the host onto logger options.
func LoggerOptions(hd *core.HostData) logger.Options {
	opts := logger.DefaultOptions()
	opts.JSONFormatEnabled = hd.StructuredLogging
	switch level := strings.ToLower(hd.LogLevel); level {
	case "":
	case "trace":
		opts.OutputLevel = string(logger.DebugLevel)
	case "warning":
		opts.OutputLevel = string(logger.WarnLevel)
	default:
		opts.OutputLevel = level
	}
	if hd.ProviderKey != "" {
		opts.SetAppID(hd.ProviderKey)
	}
	return opts
}
