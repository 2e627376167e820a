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

//go:build !wasip1

package actor

import (
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

// nativeABI stands in for the host when the package is built for a native
// target, e.g. to unit test actor logic.
type nativeABI struct{}

func defaultABI() hostABI {
	return nativeABI{}
}

func (nativeABI) HostCall(_, namespace, operation string, _ []byte) ([]byte, error) {
	return nil, rpcerrors.HostError("no wasm host to call " + operation + " on " + namespace)
}

func (nativeABI) ConsoleLog(msg string) {
	log.Info(msg)
}
