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
	"sync/atomic"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

// Gate rejects calls with NotInitialized until Ready is called.
type Gate struct {
	name  string
	next  MessageDispatch
	ready atomic.Bool
}

// NewGate wraps next. name identifies the receiver in NotInitialized errors.
func NewGate(name string, next MessageDispatch) *Gate {
	return &Gate{name: name, next: next}
}

// Ready opens the gate.
func (g *Gate) Ready() {
	g.ready.Store(true)
}

// IsReady reports whether the gate is open.
func (g *Gate) IsReady() bool {
	return g.ready.Load()
}

func (g *Gate) Dispatch(ctx context.Context, rc *Context, msg Message) ([]byte, error) {
	if !g.ready.Load() {
		return nil, rpcerrors.NotInitialized(g.name)
	}
	return g.next.Dispatch(ctx, rc, msg)
}
