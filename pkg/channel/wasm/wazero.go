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

package wasm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/assemblyscript"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/dapr/wasmbus/pkg/core"
	"github.com/dapr/wasmbus/pkg/diagnostics"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
	"github.com/dapr/wasmbus/pkg/rpc"
)

const (
	i32 = api.ValueTypeI32

	// HostModuleName is the import module of the host functions.
	HostModuleName    = "wasmbus"
	functionGuestCall = "__guest_call"
)

// Sender carries calls made by a guest to other actors or providers.
type Sender interface {
	SendTo(ctx context.Context, rc *rpc.Context, target core.Entity, msg rpc.Message, opts *rpc.SendOpts) ([]byte, error)
}

// Module is a compiled actor ready to be instantiated.
type Module struct {
	instanceCounter uint64
	actorID         string
	runtime         wazero.Runtime
	compiled        wazero.CompiledModule
}

// WazeroRuntime returns a wazero runtime with WASI and AssemblyScript host
// functions instantiated. Guest execution stops when the calling context is done.
func WazeroRuntime(ctx context.Context) (wazero.Runtime, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}

	// This disables the abort message as no other engines write it.
	envBuilder := r.NewHostModuleBuilder("env")
	assemblyscript.NewFunctionExporter().WithAbortMessageDisabled().ExportFunctions(envBuilder)
	if _, err := envBuilder.Instantiate(ctx); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	return r, nil
}

// NewModule compiles guest, the code of the actor actorID. Calls the guest
// makes are sent through sender.
func NewModule(ctx context.Context, actorID string, guest []byte, sender Sender) (*Module, error) {
	r, err := WazeroRuntime(ctx)
	if err != nil {
		return nil, rpcerrors.HostError("failed to create wasm runtime: " + err.Error())
	}

	m := &Module{actorID: actorID, runtime: r}

	if _, err = instantiateWasmHost(ctx, r, actorID, sender); err != nil {
		_ = r.Close(ctx)
		return nil, rpcerrors.HostError("failed to instantiate host module: " + err.Error())
	}

	if m.compiled, err = r.CompileModule(ctx, guest); err != nil {
		_ = r.Close(ctx)
		return nil, rpcerrors.InvalidParameter("invalid actor module: " + err.Error())
	}
	if err = m.Check(); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	return m, nil
}

// Check verifies the module exports the guest entry point.
func (m *Module) Check() error {
	if _, ok := m.compiled.ExportedFunctions()[functionGuestCall]; !ok {
		return rpcerrors.InvalidParameter("actor module does not export " + functionGuestCall)
	}
	return nil
}

// Instantiate returns a fresh instance of the module.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	config := wazero.NewModuleConfig().
		WithStartFunctions("_initialize", "wapc_init").
		WithStdout(os.Stdout).
		WithStderr(os.Stderr)
	moduleName := fmt.Sprintf("%s-%d", m.actorID, atomic.AddUint64(&m.instanceCounter, 1))

	module, err := m.runtime.InstantiateModule(ctx, m.compiled, config.WithName(moduleName))
	if err != nil {
		return nil, rpcerrors.HostError("failed to instantiate " + moduleName + ": " + err.Error())
	}

	instance := &Instance{module: module}
	if instance.call = module.ExportedFunction(functionGuestCall); instance.call == nil {
		_ = module.Close(ctx)
		return nil, rpcerrors.InvalidParameter(fmt.Sprintf("module %s didn't export function %s", moduleName, functionGuestCall))
	}
	return instance, nil
}

// Close releases the runtime and every instance of the module.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

// instantiateWasmHost instantiates the host functions imported by guests.
func instantiateWasmHost(ctx context.Context, r wazero.Runtime, actorID string, sender Sender) (api.Module, error) {
	w := &wasmHost{actorID: actorID, sender: sender}
	return r.NewHostModuleBuilder(HostModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(w.HostCall), []api.ValueType{i32, i32, i32, i32, i32, i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("bd_ptr", "bd_len", "ns_ptr", "ns_len", "op_ptr", "op_len", "ptr", "len").
		Export("__host_call").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(w.HostResponseLen), []api.ValueType{}, []api.ValueType{i32}).
		Export("__host_response_len").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(w.HostResponse), []api.ValueType{i32}, []api.ValueType{}).
		WithParameterNames("ptr").
		Export("__host_response").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(w.HostErrorLen), []api.ValueType{}, []api.ValueType{i32}).
		Export("__host_error_len").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(w.HostError), []api.ValueType{i32}, []api.ValueType{}).
		WithParameterNames("ptr").
		Export("__host_error").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(w.GuestRequest), []api.ValueType{i32, i32}, []api.ValueType{}).
		WithParameterNames("op_ptr", "ptr").
		Export("__guest_request").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(w.GuestResponse), []api.ValueType{i32, i32}, []api.ValueType{}).
		WithParameterNames("ptr", "len").
		Export("__guest_response").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(w.GuestError), []api.ValueType{i32, i32}, []api.ValueType{}).
		WithParameterNames("ptr", "len").
		Export("__guest_error").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(w.ConsoleLog), []api.ValueType{i32, i32}, []api.ValueType{}).
		WithParameterNames("ptr", "len").
		Export("__console_log").
		Instantiate(ctx)
}

type callStateKey struct{}

// callState holds the buffers exchanged with the guest during one guest call.
type callState struct {
	operation []byte
	payload   []byte

	guestResp []byte
	guestErr  []byte
	hostResp  []byte
	hostErr   []byte
}

func stateFrom(ctx context.Context) *callState {
	state, ok := ctx.Value(callStateKey{}).(*callState)
	if !ok {
		panic(rpcerrors.HostError("host function called outside of a guest call"))
	}
	return state
}

func read(m api.Module, ptr, size uint32) []byte {
	b, ok := m.Memory().Read(ptr, size)
	if !ok {
		panic(rpcerrors.HostError(fmt.Sprintf("failed to read guest memory at %d+%d", ptr, size)))
	}
	// The view aliases guest memory, which the guest may reuse.
	return append([]byte(nil), b...)
}

func write(m api.Module, ptr uint32, b []byte) {
	if !m.Memory().Write(ptr, b) {
		panic(rpcerrors.HostError(fmt.Sprintf("failed to write guest memory at %d+%d", ptr, len(b))))
	}
}

type wasmHost struct {
	actorID string
	sender  Sender
}

// HostCall forwards a call of the guest. The namespace names the target:
// an actor public key, or the contract id of a provider reached on the
// binding link name.
func (w *wasmHost) HostCall(ctx context.Context, m api.Module, stack []uint64) {
	state := stateFrom(ctx)
	binding := string(read(m, uint32(stack[0]), uint32(stack[1])))
	namespace := string(read(m, uint32(stack[2]), uint32(stack[3])))
	operation := string(read(m, uint32(stack[4]), uint32(stack[5])))
	payload := read(m, uint32(stack[6]), uint32(stack[7]))

	state.hostResp, state.hostErr = nil, nil
	res, err := w.call(ctx, binding, namespace, operation, payload)
	if err != nil {
		log.Debugf("Host call %s from %s failed: %v", operation, w.actorID, err)
		state.hostErr = encodeError(err)
		stack[0] = 0
		return
	}
	state.hostResp = res
	stack[0] = 1
}

func (w *wasmHost) call(ctx context.Context, binding, namespace, operation string, payload []byte) ([]byte, error) {
	if w.sender == nil {
		return nil, rpcerrors.HostError("no transport for host calls")
	}
	target, err := hostCallTarget(binding, namespace)
	if err != nil {
		return nil, err
	}
	rc := &rpc.Context{Actor: w.actorID, Span: diagnostics.SpanFromContext(ctx)}
	return w.sender.SendTo(ctx, rc, target, rpc.Message{Method: operation, Arg: payload}, nil)
}

func hostCallTarget(binding, namespace string) (core.Entity, error) {
	if strings.HasPrefix(namespace, "M") && !strings.Contains(namespace, ":") {
		return core.NewActor(namespace)
	}
	if binding == "" {
		binding = core.DefaultLinkName
	}
	return core.NewProvider(namespace, binding)
}

func (w *wasmHost) HostResponseLen(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = uint64(len(stateFrom(ctx).hostResp))
}

func (w *wasmHost) HostResponse(ctx context.Context, m api.Module, stack []uint64) {
	if state := stateFrom(ctx); state.hostResp != nil {
		write(m, uint32(stack[0]), state.hostResp)
	}
}

func (w *wasmHost) HostErrorLen(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = uint64(len(stateFrom(ctx).hostErr))
}

func (w *wasmHost) HostError(ctx context.Context, m api.Module, stack []uint64) {
	if state := stateFrom(ctx); state.hostErr != nil {
		write(m, uint32(stack[0]), state.hostErr)
	}
}

func (w *wasmHost) GuestRequest(ctx context.Context, m api.Module, stack []uint64) {
	state := stateFrom(ctx)
	write(m, uint32(stack[0]), state.operation)
	write(m, uint32(stack[1]), state.payload)
}

func (w *wasmHost) GuestResponse(ctx context.Context, m api.Module, stack []uint64) {
	stateFrom(ctx).guestResp = read(m, uint32(stack[0]), uint32(stack[1]))
}

func (w *wasmHost) GuestError(ctx context.Context, m api.Module, stack []uint64) {
	stateFrom(ctx).guestErr = read(m, uint32(stack[0]), uint32(stack[1]))
}

func (w *wasmHost) ConsoleLog(_ context.Context, m api.Module, stack []uint64) {
	log.Infof("[%s] %s", w.actorID, read(m, uint32(stack[0]), uint32(stack[1])))
}

// Instance is an instantiated Module. It runs one guest call at a time.
type Instance struct {
	module api.Module
	call   api.Function
}

// Invoke runs the guest handler of operation with payload.
func (i *Instance) Invoke(ctx context.Context, operation string, payload []byte) ([]byte, error) {
	state := &callState{operation: []byte(operation), payload: payload}
	callCtx := context.WithValue(ctx, callStateKey{}, state)

	res, err := i.call.Call(callCtx, uint64(len(state.operation)), uint64(len(payload)))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, rpcerrors.Timeout("guest call " + operation + " timed out")
		}
		var rerr *rpcerrors.Error
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		return nil, rpcerrors.HostError("guest call " + operation + " failed: " + err.Error())
	}
	if res[0] == 1 {
		if state.guestResp == nil {
			return []byte{}, nil
		}
		return state.guestResp, nil
	}
	return nil, guestError(operation, state.guestErr)
}

// encodeError returns the JSON form of err, which keeps its kind across
// the sandbox boundary.
func encodeError(err error) []byte {
	b, mErr := json.Marshal(rpcerrors.From(err))
	if mErr != nil {
		return []byte(err.Error())
	}
	return b
}

// guestError rebuilds the error reported by the guest. Guests built on this
// module report the JSON form of the error; anything else is a handler failure.
func guestError(operation string, b []byte) error {
	if len(b) == 0 {
		return rpcerrors.ActorHandler("guest call " + operation + " failed")
	}
	var rerr rpcerrors.Error
	if err := json.Unmarshal(b, &rerr); err == nil {
		return &rerr
	}
	return rpcerrors.ActorHandler(string(b))
}

// Closed reports whether the instance can no longer run calls.
func (i *Instance) Closed() bool {
	return i.module.IsClosed()
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.module.Close(ctx)
}
