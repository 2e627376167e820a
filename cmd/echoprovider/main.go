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

// Command echoprovider is a capability provider answering Echo.Say calls
// with the message it received.
package main

import (
	"github.com/dapr/kit/logger"
	"github.com/dapr/kit/signals"

	"github.com/dapr/wasmbus/pkg/provider"
)

var log = logger.NewLogger("wasmbus.echoprovider")

func main() {
	if err := provider.Run(signals.Context(), ContractID, NewRouter(), provider.WithLinkHandler(&links{})); err != nil {
		log.Fatalf("error running echo provider: %v", err)
	}
}
