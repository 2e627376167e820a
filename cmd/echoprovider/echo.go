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

package main

import (
	"context"
	"strings"

	"github.com/dapr/wasmbus/pkg/core"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
	"github.com/dapr/wasmbus/pkg/rpc"
)

const ContractID = "wasmcloud:example:echo"

type EchoRequest struct {
	Message string `codec:"message"`
}

type EchoResponse struct {
	Message string `codec:"message"`
	Actor   string `codec:"actor"`
	Time    string `codec:"time"`
}

// NewRouter returns the handlers of the echo contract.
func NewRouter() *rpc.Router {
	return rpc.NewRouter().
		Handle("Echo.Say", rpc.Typed(nil, say)).
		Handle("Echo.Shout", rpc.Typed(nil, shout)).
		Handle("Echo.Whisper", rpc.NotImplemented)
}

func say(_ context.Context, rc *rpc.Context, in EchoRequest) (EchoResponse, error) {
	if in.Message == "" {
		return EchoResponse{}, rpcerrors.InvalidParameter("message may not be empty")
	}
	return EchoResponse{Message: in.Message, Actor: rc.Actor, Time: core.Now().String()}, nil
}

func shout(ctx context.Context, rc *rpc.Context, in EchoRequest) (EchoResponse, error) {
	in.Message = strings.ToUpper(in.Message)
	return say(ctx, rc, in)
}

// links logs the actors linked to the provider.
type links struct{}

func (links) PutLink(_ context.Context, ld *core.LinkDefinition) error {
	log.Infof("Actor %s linked on %s with %d values", ld.ActorID, ld.LinkName, len(ld.Values))
	return nil
}

func (links) DeleteLink(_ context.Context, ld *core.LinkDefinition) error {
	log.Infof("Actor %s unlinked from %s", ld.ActorID, ld.LinkName)
	return nil
}
