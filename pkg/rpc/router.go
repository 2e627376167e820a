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

package rpc

import (
	"context"
	"errors"
	"sort"

	"github.com/dapr/wasmbus/pkg/codec"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

// Handler handles one method. arg is the encoded argument; the returned
// bytes are the encoded result.
type Handler func(ctx context.Context, rc *Context, arg []byte) ([]byte, error)

// Router is a MessageDispatch that routes calls by method name.
// Handlers must be registered before the router starts receiving calls.
type Router struct {
	handlers map[string]Handler
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{handlers: map[string]Handler{}}
}

// Handle registers h for method, replacing any previous handler.
func (r *Router) Handle(method string, h Handler) *Router {
	r.handlers[method] = h
	return r
}

// Methods returns the registered method names, sorted.
func (r *Router) Methods() []string {
	methods := make([]string, 0, len(r.handlers))
	for m := range r.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Dispatch implements MessageDispatch. Handler errors that are not rpc
// errors are reported as ActorHandler.
func (r *Router) Dispatch(ctx context.Context, rc *Context, msg Message) ([]byte, error) {
	h, ok := r.handlers[msg.Method]
	if !ok {
		return nil, rpcerrors.MethodNotHandled(msg.Method)
	}
	res, err := h(ctx, rc, msg.Arg)
	if err != nil {
		var rerr *rpcerrors.Error
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		return nil, rpcerrors.ActorHandler(err.Error())
	}
	return res, nil
}

// NotImplemented is a handler for optional methods that are intentionally absent.
func NotImplemented(context.Context, *Context, []byte) ([]byte, error) {
	return nil, rpcerrors.NotImplemented()
}

// Typed adapts a function taking and returning Go values into a Handler.
// The argument is decoded with c (msgpack when c is nil) and the result is
// encoded with it; codec failures surface as Deser and Ser.
func Typed[In, Out any](c codec.Codec, fn func(ctx context.Context, rc *Context, in In) (Out, error)) Handler {
	if c == nil {
		c = codec.Msgpack
	}
	return func(ctx context.Context, rc *Context, arg []byte) ([]byte, error) {
		var in In
		if len(arg) > 0 {
			if err := c.Unmarshal(arg, &in); err != nil {
				return nil, err
			}
		}
		out, err := fn(ctx, rc, in)
		if err != nil {
			return nil, err
		}
		return c.Marshal(out)
	}
}
