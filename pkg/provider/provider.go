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

// Package provider runs a capability provider process: it reads the host
// data, joins the lattice and serves calls and link definitions until the
// host asks it to stop.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/dapr/kit/concurrency"
	"github.com/dapr/kit/logger"

	"github.com/dapr/wasmbus/pkg/bootstrap"
	"github.com/dapr/wasmbus/pkg/core"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
	"github.com/dapr/wasmbus/pkg/messaging"
	"github.com/dapr/wasmbus/pkg/rpc"
)

var log = logger.NewLogger("wasmbus.provider")

// HealthResponse is the reply to a health check.
type HealthResponse struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Provider is a running capability provider.
type Provider struct {
	hd     *core.HostData
	opts   *options
	entity core.Entity
	nc     *nats.Conn
	client *messaging.RPCClient
	gate   *rpc.Gate
	links  *linkTable

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New reads the host data and connects the provider of contractID to the
// lattice. Calls are dispatched to dispatch once the provider is running.
func New(ctx context.Context, contractID string, dispatch rpc.MessageDispatch, opts ...Option) (*Provider, error) {
	o := newOptions(opts)

	hd := o.hostData
	if hd == nil {
		var err error
		if hd, err = core.ReadHostData(o.stdin); err != nil {
			return nil, err
		}
	}
	if err := hd.Validate(); err != nil {
		return nil, err
	}

	logOpts := LoggerOptions(hd)
	if err := logger.ApplyOptionsToLoggers(&logOpts); err != nil {
		return nil, rpcerrors.InvalidParameter("invalid log options: " + err.Error())
	}

	switch {
	case contractID == "":
		return nil, rpcerrors.InvalidParameter("contract id of the provider may not be empty")
	case hd.ProviderKey == "":
		return nil, rpcerrors.InvalidParameter("host data is missing provider_key")
	case hd.LinkName == "":
		return nil, rpcerrors.InvalidParameter("host data is missing link_name")
	}
	entity := hd.ProviderEntity(contractID)

	nc, err := bootstrap.Connect(ctx, hd, o.bootstrapOpts...)
	if err != nil {
		return nil, err
	}

	client, err := messaging.NewRPCClientFromHostData(nc, hd, entity)
	if err != nil {
		nc.Close()
		return nil, err
	}

	p := &Provider{
		hd:       hd,
		opts:     o,
		entity:   entity,
		nc:       nc,
		client:   client,
		gate:     rpc.NewGate(contractID, dispatch),
		links:    newLinkTable(),
		shutdown: make(chan struct{}),
	}

	for i := range hd.LinkDefinitions {
		if err = p.putLink(ctx, &hd.LinkDefinitions[i]); err != nil {
			nc.Close()
			return nil, err
		}
	}
	return p, nil
}

// Run creates the provider and runs it until ctx is done or the host asks
// it to shut down.
func Run(ctx context.Context, contractID string, dispatch rpc.MessageDispatch, opts ...Option) error {
	p, err := New(ctx, contractID, dispatch, opts...)
	if err != nil {
		return err
	}
	return p.Run(ctx)
}

// Entity returns the entity of the provider.
func (p *Provider) Entity() core.Entity {
	return p.entity
}

// HostData returns the host data the provider was started with.
func (p *Provider) HostData() *core.HostData {
	return p.hd
}

// Links returns the links of the provider.
func (p *Provider) Links() []core.LinkDefinition {
	return p.links.list()
}

// Link returns the link of the provider to actorID.
func (p *Provider) Link(actorID string) (core.LinkDefinition, bool) {
	return p.links.get(actorID)
}

// Transport returns a transport for calls from the provider to target,
// usually an actor it is linked to.
func (p *Provider) Transport(target core.Entity) rpc.Transport {
	return p.client.Transport(target)
}

// Shutdown stops a running provider.
func (p *Provider) Shutdown() {
	p.shutdownOnce.Do(func() { close(p.shutdown) })
}

// Run serves the provider until ctx is done or Shutdown is called, then
// drains the lattice connection.
func (p *Provider) Run(ctx context.Context) error {
	prefix := p.hd.LatticePrefix()
	subject, err := messaging.RPCSubject(prefix, p.entity)
	if err != nil {
		return err
	}

	rpcServer := messaging.NewServer(p.nc, subject, p.gate,
		messaging.WithQueue(subject),
		messaging.WithIssuers(p.hd.ClusterIssuers),
	)

	key, link := p.entity.PublicKey(), p.entity.LinkName()
	control := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{messaging.LinkPutSubject(prefix, key, link), p.onLinkPut(ctx)},
		{messaging.LinkDelSubject(prefix, key, link), p.onLinkDel(ctx)},
		{messaging.HealthSubject(prefix, key, link), p.onHealth(ctx)},
		{messaging.ShutdownSubject(prefix, key, link), p.onShutdown},
	}
	subs := make([]*nats.Subscription, 0, len(control))
	defer func() {
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
	}()
	for _, c := range control {
		sub, err := p.nc.Subscribe(c.subject, c.handler)
		if err != nil {
			return rpcerrors.Nats("failed to subscribe to " + c.subject + ": " + err.Error())
		}
		subs = append(subs, sub)
	}

	err = concurrency.NewRunnerManager(
		rpcServer.Run,
		func(ctx context.Context) error {
			if err := p.nc.Flush(); err != nil {
				return rpcerrors.Nats(err.Error())
			}
			p.gate.Ready()
			log.Infof("Provider %s ready on %s", p.entity, subject)
			select {
			case <-ctx.Done():
			case <-p.shutdown:
				log.Infof("Provider %s received shutdown request", p.entity)
			}
			return nil
		},
	).Run(ctx)

	if dErr := p.nc.Drain(); dErr != nil && !errors.Is(dErr, nats.ErrConnectionClosed) {
		log.Warnf("Failed to drain lattice connection: %v", dErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Provider shut down gracefully")
	return nil
}

func (p *Provider) putLink(ctx context.Context, ld *core.LinkDefinition) error {
	if h := p.opts.linkHandler; h != nil {
		if err := h.PutLink(ctx, ld); err != nil {
			var rerr *rpcerrors.Error
			if errors.As(err, &rerr) {
				return rerr
			}
			return rpcerrors.ProviderInit(err.Error())
		}
	}
	p.links.put(*ld)
	log.Debugf("Link to actor %s on %s added", ld.ActorID, ld.LinkName)
	return nil
}

func (p *Provider) onLinkPut(ctx context.Context) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var ld core.LinkDefinition
		if err := json.Unmarshal(msg.Data, &ld); err != nil {
			log.Errorf("Invalid link definition on %s: %v", msg.Subject, err)
			return
		}
		if _, ok := p.links.get(ld.ActorID); ok {
			log.Debugf("Link to actor %s already present", ld.ActorID)
			return
		}
		if err := p.putLink(ctx, &ld); err != nil {
			log.Errorf("Failed to put link to actor %s: %v", ld.ActorID, err)
		}
	}
}

func (p *Provider) onLinkDel(ctx context.Context) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var ld core.LinkDefinition
		if err := json.Unmarshal(msg.Data, &ld); err != nil {
			log.Errorf("Invalid link definition on %s: %v", msg.Subject, err)
			return
		}
		existing, ok := p.links.remove(ld.ActorID)
		if !ok {
			return
		}
		if h := p.opts.linkHandler; h != nil {
			if err := h.DeleteLink(ctx, &existing); err != nil {
				log.Warnf("Failed to delete link to actor %s: %v", ld.ActorID, err)
			}
		}
		log.Debugf("Link to actor %s removed", ld.ActorID)
	}
}

func (p *Provider) onHealth(ctx context.Context) nats.MsgHandler {
	return func(msg *nats.Msg) {
		resp := HealthResponse{Healthy: true}
		if p.opts.healthCheck != nil {
			if err := p.opts.healthCheck(ctx); err != nil {
				resp = HealthResponse{Healthy: false, Message: err.Error()}
			}
		}
		b, _ := json.Marshal(resp)
		if err := msg.Respond(b); err != nil {
			log.Warnf("Failed to answer health check: %v", err)
		}
	}
}

func (p *Provider) onShutdown(msg *nats.Msg) {
	if msg.Reply != "" {
		_ = msg.Respond([]byte("shutting down"))
	}
	p.Shutdown()
}
