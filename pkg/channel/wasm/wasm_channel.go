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

// Package wasm runs actors compiled to WebAssembly inside the host process.
package wasm

import (
	"context"
	"os"

	"github.com/dapr/kit/logger"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
	"github.com/dapr/wasmbus/pkg/rpc"
)

const defaultMaxConcurrency = 10

var log = logger.NewLogger("wasmbus.channel.wasm")

// Channel dispatches messages to a wasm actor. Up to maxConcurrency calls
// run at once, each on its own instance; idle instances are reused.
type Channel struct {
	actorID string
	module  *Module
	slots   chan struct{}
	idle    chan *Instance
}

// Option configures a Channel.
type Option func(*Channel)

// WithMaxConcurrency bounds the number of calls running at once.
func WithMaxConcurrency(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.slots = make(chan struct{}, n)
			c.idle = make(chan *Instance, n)
		}
	}
}

// NewChannel compiles guest as the actor actorID.
func NewChannel(ctx context.Context, actorID string, guest []byte, sender Sender, opts ...Option) (*Channel, error) {
	c := &Channel{
		actorID: actorID,
		slots:   make(chan struct{}, defaultMaxConcurrency),
		idle:    make(chan *Instance, defaultMaxConcurrency),
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.module, err = NewModule(ctx, actorID, guest, sender); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadChannel reads the actor module at wasmPath.
func LoadChannel(ctx context.Context, actorID, wasmPath string, sender Sender, opts ...Option) (*Channel, error) {
	code, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, rpcerrors.FromIO(err)
	}
	return NewChannel(ctx, actorID, code, sender, opts...)
}

// ActorID returns the public key of the actor.
func (c *Channel) ActorID() string {
	return c.actorID
}

// Dispatch implements rpc.MessageDispatch by running the guest handler.
func (c *Channel) Dispatch(ctx context.Context, _ *rpc.Context, msg rpc.Message) ([]byte, error) {
	select {
	case c.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, rpc.InFlightError(ctx, ctx.Err())
	}
	defer func() { <-c.slots }()

	log.Debugf("Actor %s is called with %s", c.actorID, msg.Method)

	ins, err := c.getOrCreateInstance(ctx)
	if err != nil {
		return nil, err
	}
	res, err := ins.Invoke(ctx, msg.Method, msg.Arg)
	c.release(ins)
	return res, err
}

func (c *Channel) getOrCreateInstance(ctx context.Context) (*Instance, error) {
	for {
		select {
		case ins := <-c.idle:
			if !ins.Closed() {
				return ins, nil
			}
		default:
			return c.module.Instantiate(ctx)
		}
	}
}

func (c *Channel) release(ins *Instance) {
	if ins.Closed() {
		return
	}
	select {
	case c.idle <- ins:
	default:
		_ = ins.Close(context.Background())
	}
}

// Close releases the module and all its instances.
func (c *Channel) Close(ctx context.Context) error {
	return c.module.Close(ctx)
}
