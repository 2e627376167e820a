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

package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	opts, err := New([]string{"--actor", "MTARGET", "Echo.Say"})
	require.NoError(t, err)

	assert.Equal(t, "default", opts.LatticePrefix)
	assert.Equal(t, "wasmbus-cli", opts.HostID)
	assert.Equal(t, "msgpack", opts.Format)
	assert.Equal(t, "json", opts.Output)
	assert.Equal(t, "Echo.Say", opts.Method)
	assert.Empty(t, opts.Data)
	assert.Nil(t, opts.Timeout)
	assert.Equal(t, "info", opts.Logger.OutputLevel)

	target, err := opts.Target()
	require.NoError(t, err)
	assert.True(t, target.IsActor())
	assert.Equal(t, "MTARGET", target.PublicKey())
}

func TestEnvironment(t *testing.T) {
	t.Setenv("WASMBUS_NATS_URL", "nats://10.0.0.1:4222")
	t.Setenv("WASMBUS_LATTICE_PREFIX", "prod")
	t.Setenv("WASMBUS_SEED", "SUSEED")

	opts, err := New([]string{"--actor", "MTARGET", "Echo.Say"})
	require.NoError(t, err)
	assert.Equal(t, "nats://10.0.0.1:4222", opts.NATSURL)
	assert.Equal(t, "prod", opts.LatticePrefix)

	hd := opts.HostData()
	assert.Equal(t, "nats://10.0.0.1:4222", hd.LatticeRPCURL)
	assert.Equal(t, "prod", hd.LatticeRPCPrefix)
	assert.Equal(t, "SUSEED", hd.LatticeRPCUserSeed)

	opts, err = New([]string{"--actor", "MTARGET", "--lattice-prefix", "staging", "Echo.Say"})
	require.NoError(t, err)
	assert.Equal(t, "staging", opts.LatticePrefix)
}

func TestProviderTarget(t *testing.T) {
	opts, err := New([]string{
		"--provider", "VPROV",
		"--contract", "wasmcloud:keyvalue",
		"--timeout", "5s",
		"--log-level", "debug",
		"KeyValue.Get", `{"key":"k"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"key":"k"}`, opts.Data)
	require.NotNil(t, opts.Timeout)
	assert.Equal(t, 5*time.Second, *opts.Timeout)
	assert.Equal(t, "debug", opts.Logger.OutputLevel)

	target, err := opts.Target()
	require.NoError(t, err)
	assert.True(t, target.IsProvider())
	assert.Equal(t, "VPROV", target.PublicKey())
	assert.Equal(t, "default", target.LinkName())

	opts, err = New([]string{"--provider", "VPROV", "--contract", "wasmcloud:keyvalue", "--link-name", "redis", "KeyValue.Get"})
	require.NoError(t, err)
	target, err = opts.Target()
	require.NoError(t, err)
	assert.Equal(t, "redis", target.LinkName())
}

func TestInvalid(t *testing.T) {
	tests := map[string][]string{
		"no method":            {"--actor", "MTARGET"},
		"too many args":        {"--actor", "MTARGET", "a", "b", "c"},
		"no target":            {"Echo.Say"},
		"two targets":          {"--actor", "MTARGET", "--provider", "VPROV", "--contract", "c", "Echo.Say"},
		"provider no contract": {"--provider", "VPROV", "Echo.Say"},
		"unknown flag":         {"--nope", "Echo.Say"},
		"unknown output":       {"--actor", "MTARGET", "-o", "xml", "Echo.Say"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(args)
			require.Error(t, err)
		})
	}
}
