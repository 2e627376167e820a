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

// Package messaging carries calls between processes over the lattice.
package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
	"go.opentelemetry.io/otel/trace"

	"github.com/dapr/kit/logger"

	"github.com/dapr/wasmbus/pkg/core"
	"github.com/dapr/wasmbus/pkg/diagnostics"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
	invokev1 "github.com/dapr/wasmbus/pkg/messaging/v1"
	"github.com/dapr/wasmbus/pkg/rpc"
)

var log = logger.NewLogger("wasmbus.messaging")

// Resolver completes a target entity before a call, typically by filling
// in the instance key of a provider from link definitions.
type Resolver func(target core.Entity) (core.Entity, error)

// RPCClient sends calls over a shared lattice connection. It is safe for
// concurrent use.
type RPCClient struct {
	nc       *nats.Conn
	origin   core.Entity
	hostID   string
	prefix   string
	signer   nkeys.KeyPair
	resolver Resolver
	timeout  atomic.Int64
}

// ClientOption configures an RPCClient.
type ClientOption func(*RPCClient)

func WithHostID(hostID string) ClientOption {
	return func(c *RPCClient) {
		c.hostID = hostID
	}
}

func WithLatticePrefix(prefix string) ClientOption {
	return func(c *RPCClient) {
		c.prefix = prefix
	}
}

// WithSigner signs every invocation with kp.
func WithSigner(kp nkeys.KeyPair) ClientOption {
	return func(c *RPCClient) {
		c.signer = kp
	}
}

func WithResolver(r Resolver) ClientOption {
	return func(c *RPCClient) {
		c.resolver = r
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *RPCClient) {
		c.timeout.Store(int64(d))
	}
}

// NewRPCClient returns a client sending calls on behalf of origin.
func NewRPCClient(nc *nats.Conn, origin core.Entity, opts ...ClientOption) *RPCClient {
	c := &RPCClient{
		nc:     nc,
		origin: origin,
		prefix: core.DefaultLatticePrefix,
	}
	c.timeout.Store(int64(core.DefaultRPCTimeout))
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRPCClientFromHostData returns a client configured from the host data:
// lattice prefix, host id, default timeout and invocation signing key.
func NewRPCClientFromHostData(nc *nats.Conn, hd *core.HostData, origin core.Entity, opts ...ClientOption) (*RPCClient, error) {
	base := []ClientOption{
		WithHostID(hd.HostID),
		WithLatticePrefix(hd.LatticePrefix()),
		WithTimeout(hd.DefaultTimeout()),
	}
	if hd.InvocationSeed != "" {
		kp, err := nkeys.FromSeed([]byte(hd.InvocationSeed))
		if err != nil {
			return nil, rpcerrors.InvalidParameter("invalid invocation seed: " + err.Error())
		}
		base = append(base, WithSigner(kp))
	}
	return NewRPCClient(nc, origin, append(base, opts...)...), nil
}

// SetTimeout sets the default timeout of calls.
func (c *RPCClient) SetTimeout(d time.Duration) {
	c.timeout.Store(int64(d))
}

// Timeout returns the default timeout of calls.
func (c *RPCClient) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// Transport returns an rpc.Transport sending every call to target.
func (c *RPCClient) Transport(target core.Entity) rpc.Transport {
	return &boundTransport{client: c, target: target}
}

// SendTo sends msg to target and waits for the result.
func (c *RPCClient) SendTo(ctx context.Context, rc *rpc.Context, target core.Entity, msg rpc.Message, opts *rpc.SendOpts) ([]byte, error) {
	return c.sendTo(ctx, rc, target, msg, opts, c.Timeout())
}

func (c *RPCClient) sendTo(ctx context.Context, rc *rpc.Context, target core.Entity, msg rpc.Message, opts *rpc.SendOpts, timeout time.Duration) ([]byte, error) {
	start := time.Now()
	res, err := c.send(ctx, rc, target, msg, opts, timeout)
	diagnostics.RecordClientCall(msg.Method, start, err)
	if err != nil {
		log.Debugf("Call %s to %s failed: %v", msg.Method, target, err)
	}
	return res, err
}

func (c *RPCClient) send(ctx context.Context, rc *rpc.Context, target core.Entity, msg rpc.Message, opts *rpc.SendOpts, timeout time.Duration) ([]byte, error) {
	if rc == nil {
		rc = &rpc.Context{}
	}

	callCtx, cancel, err := rpc.WithCallDeadline(ctx, rc, opts, timeout)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if c.resolver != nil {
		if target, err = c.resolver(target); err != nil {
			return nil, err
		}
	}
	subject, err := RPCSubject(c.prefix, target)
	if err != nil {
		return nil, err
	}

	origin := c.origin
	if rc.Actor != "" {
		if origin, err = core.NewActor(rc.Actor); err != nil {
			return nil, err
		}
	}

	callCtx = diagnostics.ContextWithSpan(callCtx, rc.Span)
	callCtx, span := diagnostics.StartSpan(callCtx, msg.Method, trace.SpanKindClient)
	defer span.End()

	inv := invokev1.NewInvocation(origin, target, msg.Method, msg.Arg)
	inv.HostID = c.hostID
	inv.TraceContext = diagnostics.Inject(callCtx)
	if d, ok := callCtx.Deadline(); ok {
		inv.WithDeadline(d)
	}
	if c.signer != nil {
		if err = inv.Sign(c.signer); err != nil {
			return nil, err
		}
	}

	payload, err := inv.Encode()
	if err != nil {
		return nil, err
	}

	reply, err := c.nc.RequestWithContext(callCtx, subject, payload)
	if err != nil {
		return nil, requestError(callCtx, subject, err)
	}

	resp, err := invokev1.DecodeInvocationResponse(reply.Data)
	if err != nil {
		return nil, err
	}
	if err = resp.Err(); err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func requestError(ctx context.Context, subject string, err error) error {
	switch {
	case errors.Is(err, nats.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		return rpcerrors.Timeout("rpc call to " + subject + " timed out")
	case errors.Is(err, nats.ErrNoResponders):
		return rpcerrors.Rpc("no responders on " + subject)
	case errors.Is(err, context.Canceled):
		return rpcerrors.Rpc("rpc call to " + subject + " canceled")
	default:
		return rpcerrors.Nats(err.Error())
	}
}

type boundTransport struct {
	client  *RPCClient
	target  core.Entity
	timeout atomic.Int64
}

func (t *boundTransport) Send(ctx context.Context, rc *rpc.Context, msg rpc.Message, opts *rpc.SendOpts) ([]byte, error) {
	timeout := time.Duration(t.timeout.Load())
	if timeout == 0 {
		timeout = t.client.Timeout()
	}
	return t.client.sendTo(ctx, rc, t.target, msg, opts, timeout)
}

func (t *boundTransport) SetTimeout(d time.Duration) {
	t.timeout.Store(int64(d))
}

// LinkResolver resolves provider targets without an instance key through
// the given link definitions of the calling actor.
func LinkResolver(actorID string, links []core.LinkDefinition) Resolver {
	return func(target core.Entity) (core.Entity, error) {
		if !target.IsProvider() || target.PublicKey() != "" {
			return target, nil
		}
		for i := range links {
			ld := &links[i]
			if ld.ActorID == actorID && ld.ContractID == target.ContractID() && ld.LinkName == target.LinkName() {
				return ld.ProviderEntity(), nil
			}
		}
		return core.Entity{}, rpcerrors.Rpc("no link from " + actorID + " to " + target.ContractID() + " on link " + target.LinkName())
	}
}
