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

// Package rpc defines the unit of a call and the two capabilities that move
// calls across the protocol boundary: Transport, to originate calls, and
// MessageDispatch, to receive them. No other code performs call I/O.
package rpc

import (
	"context"
	"time"
)

// Context is the ambient metadata of one call. It belongs to the call in
// flight and is never shared between concurrent calls.
type Context struct {
	// Actor is the public key of the calling actor, if any.
	Actor string
	// Span is the W3C traceparent of the caller's span, if any.
	Span string
	// Deadline is the time after which the call is abandoned. Zero means none.
	Deadline time.Time
}

// Message is a call: a method name and its encoded argument. The argument is
// borrowed for the duration of the call.
type Message struct {
	Method string
	Arg    []byte
}

// SendOpts are per-call transport overrides. A nil *SendOpts means defaults.
type SendOpts struct {
	// Timeout overrides the transport's default timeout for this call.
	Timeout time.Duration
}

// Transport originates calls.
type Transport interface {
	// Send performs the call and returns the encoded result. It fails with
	// DeadlineExceeded without doing any I/O when the effective deadline has
	// already passed, and with Timeout when it passes while the call is in flight.
	Send(ctx context.Context, rc *Context, msg Message, opts *SendOpts) ([]byte, error)
	// SetTimeout sets the timeout used by calls without a SendOpts override.
	SetTimeout(d time.Duration)
}

// MessageDispatch receives calls.
type MessageDispatch interface {
	// Dispatch routes the message to its handler and returns the encoded
	// result. Unknown methods fail with MethodNotHandled.
	Dispatch(ctx context.Context, rc *Context, msg Message) ([]byte, error)
}

// DispatchFunc adapts a function to MessageDispatch.
type DispatchFunc func(ctx context.Context, rc *Context, msg Message) ([]byte, error)

func (f DispatchFunc) Dispatch(ctx context.Context, rc *Context, msg Message) ([]byte, error) {
	return f(ctx, rc, msg)
}
