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

// Package actor is the guest side of the runtime: actors compiled to wasm
// register their dispatcher here and call out through WasmHost.
package actor

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/dapr/kit/logger"

	"github.com/dapr/wasmbus/pkg/core"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
	"github.com/dapr/wasmbus/pkg/rpc"
)

var log = logger.NewLogger("wasmbus.actor")

// hostABI is the set of host functions a guest can reach.
type hostABI interface {
	HostCall(binding, namespace, operation string, payload []byte) ([]byte, error)
	ConsoleLog(msg string)
}

var (
	abi        hostABI = defaultABI()
	dispatcher atomic.Pointer[rpc.MessageDispatch]
)

// Register installs the dispatcher of incoming calls. Calls received
// before Register fail with NotInitialized.
func Register(d rpc.MessageDispatch) {
	dispatcher.Store(&d)
}

// HandleCall dispatches one call received from the host.
func HandleCall(operation string, payload []byte) ([]byte, error) {
	d := dispatcher.Load()
	if d == nil {
		return nil, rpcerrors.NotInitialized("no dispatcher registered for " + operation)
	}
	return (*d).Dispatch(context.Background(), &rpc.Context{}, rpc.Message{Method: operation, Arg: payload})
}

// EncodeError returns the form in which errors are reported to the host.
func EncodeError(err error) []byte {
	b, mErr := json.Marshal(rpcerrors.From(err))
	if mErr != nil {
		return []byte(err.Error())
	}
	return b
}

// DecodeError rebuilds an error reported by the host. Anything that is not
// the JSON form of an error is a HostError.
func DecodeError(b []byte) error {
	var rerr rpcerrors.Error
	if err := json.Unmarshal(b, &rerr); err != nil {
		return rpcerrors.HostError(string(b))
	}
	return &rerr
}

// Log writes msg to the host's log.
func Log(msg string) {
	abi.ConsoleLog(msg)
}

// WasmHost is the transport of a guest: calls are made through the host,
// which routes them to the target.
type WasmHost struct {
	target  core.Entity
	timeout atomic.Int64
}

// ToActor returns a transport to the actor with the given public key.
func ToActor(publicKey string) (*WasmHost, error) {
	target, err := core.NewActor(publicKey)
	if err != nil {
		return nil, err
	}
	return &WasmHost{target: target}, nil
}

// ToProvider returns a transport to the provider of contractID reached on
// linkName. An empty link name means the default link.
func ToProvider(contractID, linkName string) (*WasmHost, error) {
	if linkName == "" {
		linkName = core.DefaultLinkName
	}
	target, err := core.NewProvider(contractID, linkName)
	if err != nil {
		return nil, err
	}
	return &WasmHost{target: target}, nil
}

// Target returns the entity calls are sent to.
func (h *WasmHost) Target() core.Entity {
	return h.target
}

// Send implements rpc.Transport. The deadline of rc and the timeout of opts
// only reject calls that are already late: the host call carries no
// deadline, so a call in flight is bounded by the host's own timeout, and an
// override longer than that timeout is not honored.
func (h *WasmHost) Send(ctx context.Context, rc *rpc.Context, msg rpc.Message, opts *rpc.SendOpts) ([]byte, error) {
	now := time.Now()
	if deadline, ok := rpc.EffectiveDeadline(ctx, rc, opts, time.Duration(h.timeout.Load()), now); ok {
		if err := rpc.CheckDeadline(deadline, now); err != nil {
			return nil, err
		}
	}

	var binding, namespace string
	if h.target.IsProvider() {
		binding, namespace = h.target.LinkName(), h.target.ContractID()
	} else {
		namespace = h.target.PublicKey()
	}

	res, err := abi.HostCall(binding, namespace, msg.Method, msg.Arg)
	if err != nil {
		log.Debugf("Host call %s to %s failed: %v", msg.Method, h.target, err)
		return nil, err
	}
	return res, nil
}

// SetTimeout sets the default timeout of calls. The host enforces the
// timeout of calls in flight; here it only rejects calls already late.
func (h *WasmHost) SetTimeout(d time.Duration) {
	h.timeout.Store(int64(d))
}
