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

// Package bootstrap establishes the lattice connection of a process from the
// configuration handed over by the host.
package bootstrap

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"

	"github.com/dapr/kit/logger"
	"github.com/dapr/kit/retry"

	"github.com/dapr/wasmbus/pkg/core"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

var log = logger.NewLogger("wasmbus.bootstrap")

const defaultReconnectWait = 2 * time.Second

var allowedSchemes = map[string]struct{}{
	"nats": {},
	"tls":  {},
	"ws":   {},
	"wss":  {},
}

type options struct {
	retry         retry.Config
	reconnectWait time.Duration
	natsOpts      []nats.Option
}

// Option configures Connect.
type Option func(*options)

// WithRetry sets the policy of the initial connection attempts.
func WithRetry(cfg retry.Config) Option {
	return func(o *options) {
		o.retry = cfg
	}
}

// WithReconnectWait sets the pause between reconnection attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(o *options) {
		o.reconnectWait = d
	}
}

// WithNATSOptions appends options to the ones derived from the host data.
func WithNATSOptions(opts ...nats.Option) Option {
	return func(o *options) {
		o.natsOpts = append(o.natsOpts, opts...)
	}
}

// DefaultRetry is the policy of the initial connection attempts: a few
// exponentially spaced attempts, after which the provider gives up.
func DefaultRetry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.Policy = retry.PolicyExponential
	cfg.InitialInterval = 250 * time.Millisecond
	cfg.MaxInterval = 2 * time.Second
	cfg.MaxRetries = 3
	return cfg
}

// ResolveAddress returns the lattice address to connect to. Addresses
// without a scheme are read as nats://. Addresses that cannot be parsed
// fail with InvalidParameter.
func ResolveAddress(hd *core.HostData) (string, error) {
	addr := strings.TrimSpace(hd.NATSAddress())
	if !strings.Contains(addr, "://") {
		addr = "nats://" + addr
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", rpcerrors.InvalidParameter(fmt.Sprintf("Invalid nats server url '%s': %s", addr, err))
	}
	if _, ok := allowedSchemes[u.Scheme]; !ok {
		return "", rpcerrors.InvalidParameter(fmt.Sprintf("Invalid nats server url '%s': unsupported scheme %q", addr, u.Scheme))
	}
	if u.Hostname() == "" {
		return "", rpcerrors.InvalidParameter(fmt.Sprintf("Invalid nats server url '%s': missing host", addr))
	}
	return u.String(), nil
}

// Connect opens the lattice connection described by hd. Once connected the
// connection reconnects forever: a provider outlives restarts of the bus.
// The initial connection is attempted according to the retry policy; when
// every attempt fails the error is ProviderInit.
func Connect(ctx context.Context, hd *core.HostData, opts ...Option) (*nats.Conn, error) {
	o := options{
		retry:         DefaultRetry(),
		reconnectWait: defaultReconnectWait,
	}
	for _, opt := range opts {
		opt(&o)
	}

	addr, err := ResolveAddress(hd)
	if err != nil {
		return nil, err
	}

	natsOpts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(o.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("Disconnected from lattice at %s: %v", addr, err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("Reconnected to lattice at %s", nc.ConnectedUrlRedacted())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Debugf("Lattice connection to %s closed", addr)
		}),
	}
	if hd.HostID != "" {
		natsOpts = append(natsOpts, nats.Name(hd.HostID))
	}
	if hd.LatticeRPCUserJWT != "" && hd.LatticeRPCUserSeed != "" {
		natsOpts = append(natsOpts, nats.UserJWTAndSeed(hd.LatticeRPCUserJWT, hd.LatticeRPCUserSeed))
	}
	natsOpts = append(natsOpts, o.natsOpts...)

	var nc *nats.Conn
	err = backoff.RetryNotify(func() (cerr error) {
		nc, cerr = nats.Connect(addr, natsOpts...)
		return cerr
	}, o.retry.NewBackOffWithContext(ctx), func(err error, d time.Duration) {
		log.Warnf("Failed to connect to lattice at %s, retrying in %s: %v", addr, d, err)
	})
	if err != nil {
		return nil, rpcerrors.ProviderInit(fmt.Sprintf("nats connection to %s failed: %s", addr, err))
	}

	log.Infof("Connected to lattice at %s", nc.ConnectedUrlRedacted())
	return nc, nil
}
