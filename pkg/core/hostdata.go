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

package core

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

const (
	// TestHarnessHostID is the host id used when a provider runs under a test harness.
	TestHarnessHostID = "_TEST_"
	// DefaultNATSAddress is used when the host does not pass a lattice url.
	DefaultNATSAddress = "nats://127.0.0.1:4222"
	// DefaultLatticePrefix is the lattice prefix used when the host does not pass one.
	DefaultLatticePrefix = "default"
	// DefaultLinkName is the link name used when a caller does not name one.
	DefaultLinkName = "default"
	// DefaultRPCTimeout applies to calls when neither the host nor the caller sets one.
	DefaultRPCTimeout = 2000 * time.Millisecond
)

// HostData is the configuration a host hands to a capability provider when
// it starts it. It is read once at start-up and not modified afterwards.
type HostData struct {
	HostID                  string            `json:"host_id"`
	LatticeRPCPrefix        string            `json:"lattice_rpc_prefix"`
	LinkName                string            `json:"link_name"`
	LatticeRPCUserJWT       string            `json:"lattice_rpc_user_jwt"`
	LatticeRPCUserSeed      string            `json:"lattice_rpc_user_seed"`
	LatticeRPCURL           string            `json:"lattice_rpc_url"`
	ProviderKey             string            `json:"provider_key"`
	InvocationSeed          string            `json:"invocation_seed"`
	EnvValues               map[string]string `json:"env_values,omitempty"`
	InstanceID              string            `json:"instance_id"`
	LinkDefinitions         []LinkDefinition  `json:"link_definitions,omitempty"`
	ClusterIssuers          []string          `json:"cluster_issuers,omitempty"`
	ConfigJSON              string            `json:"config_json,omitempty"`
	DefaultRPCTimeoutMillis uint64            `json:"default_rpc_timeout_ms,omitempty"`
	StructuredLogging       bool              `json:"structured_logging"`
	LogLevel                string            `json:"log_level,omitempty"`
}

// IsTest returns whether the provider is running under test.
func (h *HostData) IsTest() bool {
	return h.HostID == TestHarnessHostID
}

// NATSAddress returns the lattice url passed by the host, or the default
// loopback address.
func (h *HostData) NATSAddress() string {
	if h.LatticeRPCURL != "" {
		return h.LatticeRPCURL
	}
	return DefaultNATSAddress
}

// LatticePrefix returns the lattice prefix passed by the host, or "default".
func (h *HostData) LatticePrefix() string {
	if h.LatticeRPCPrefix != "" {
		return h.LatticeRPCPrefix
	}
	return DefaultLatticePrefix
}

// DefaultTimeout returns the rpc timeout configured by the host.
func (h *HostData) DefaultTimeout() time.Duration {
	if h.DefaultRPCTimeoutMillis > 0 {
		return time.Duration(h.DefaultRPCTimeoutMillis) * time.Millisecond
	}
	return DefaultRPCTimeout
}

// ProviderEntity returns the entity of the provider instance described by the host data.
func (h *HostData) ProviderEntity(contractID string) Entity {
	return EntityFromFields(h.ProviderKey, contractID, h.LinkName)
}

// Validate checks the fields a provider cannot start without. Test harness
// host data is always accepted.
func (h *HostData) Validate() error {
	if h.IsTest() {
		return nil
	}
	if h.ProviderKey == "" {
		return rpcerrors.InvalidParameter("host data is missing provider_key")
	}
	if h.LinkName == "" {
		return rpcerrors.InvalidParameter("host data is missing link_name")
	}
	return nil
}

// ReadHostData reads the host data the host writes on the provider's
// standard input: one line of base64 encoded JSON. A line of plain JSON is
// accepted as well.
func ReadHostData(r io.Reader) (*HostData, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, rpcerrors.FromIO(err)
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, rpcerrors.InvalidParameter("no host data received")
	}

	raw := line
	if line[0] != '{' {
		raw = make([]byte, base64.StdEncoding.DecodedLen(len(line)))
		n, derr := base64.StdEncoding.Decode(raw, line)
		if derr != nil {
			return nil, rpcerrors.InvalidParameter("host data is not valid base64: " + derr.Error())
		}
		raw = raw[:n]
	}

	var hd HostData
	if err := json.Unmarshal(raw, &hd); err != nil {
		return nil, rpcerrors.InvalidParameter("host data is not valid json: " + err.Error())
	}
	return &hd, nil
}
