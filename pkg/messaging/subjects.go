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

package messaging

import (
	"github.com/dapr/wasmbus/pkg/core"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

const subjectRoot = "wasmbus.rpc."

// RPCSubject returns the subject on which target receives calls. Providers
// must be resolved to an instance key first.
func RPCSubject(prefix string, target core.Entity) (string, error) {
	if prefix == "" {
		prefix = core.DefaultLatticePrefix
	}
	if target.PublicKey() == "" {
		return "", rpcerrors.InvalidParameter("cannot derive subject of " + target.URL() + ": missing public key")
	}
	if target.IsProvider() {
		return subjectRoot + prefix + "." + target.PublicKey() + "." + target.LinkName(), nil
	}
	return subjectRoot + prefix + "." + target.PublicKey(), nil
}

// LinkPutSubject receives link definitions added for a provider.
func LinkPutSubject(prefix, providerKey, linkName string) string {
	return providerSubject(prefix, providerKey, linkName) + ".linkdefs.put"
}

// LinkDelSubject receives link definitions removed from a provider.
func LinkDelSubject(prefix, providerKey, linkName string) string {
	return providerSubject(prefix, providerKey, linkName) + ".linkdefs.del"
}

// ShutdownSubject receives the host's request to stop a provider.
func ShutdownSubject(prefix, providerKey, linkName string) string {
	return providerSubject(prefix, providerKey, linkName) + ".shutdown"
}

// HealthSubject receives health checks for a provider.
func HealthSubject(prefix, providerKey, linkName string) string {
	return providerSubject(prefix, providerKey, linkName) + ".health"
}

func providerSubject(prefix, providerKey, linkName string) string {
	if prefix == "" {
		prefix = core.DefaultLatticePrefix
	}
	return subjectRoot + prefix + "." + providerKey + "." + linkName
}
