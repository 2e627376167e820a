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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

func TestNewActor(t *testing.T) {
	for _, key := range []string{"Mabc123", "xyz", "A", "m", "VACTOR"} {
		e, err := NewActor(key)
		require.NoError(t, err)
		assert.True(t, e.IsActor(), key)
		assert.False(t, e.IsProvider(), key)
		assert.Equal(t, key, e.PublicKey())
		assert.Equal(t, EntityActor, e.Kind())
	}

	_, err := NewActor("")
	assert.True(t, rpcerrors.IsKind(err, rpcerrors.KindInvalidParameter))
}

func TestNewProvider(t *testing.T) {
	e, err := NewProvider("wasmcloud:httpserver", "default")
	require.NoError(t, err)
	assert.True(t, e.IsProvider())
	assert.False(t, e.IsActor())
	assert.Empty(t, e.PublicKey())
	assert.Equal(t, "wasmbus://wasmcloud/httpserver/default/", e.URL())

	for _, args := range [][2]string{{"", "x"}, {"x", ""}, {"", ""}} {
		_, err := NewProvider(args[0], args[1])
		assert.True(t, rpcerrors.IsKind(err, rpcerrors.KindInvalidParameter), args)
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		name     string
		entity   Entity
		expected string
	}{
		{
			name:     "module key",
			entity:   EntityFromFields("Mabc123", "", ""),
			expected: "wasmbus://Mabc123",
		},
		{
			name:     "lower case module key",
			entity:   EntityFromFields("mabc123", "", ""),
			expected: "wasmbus://mabc123",
		},
		{
			name:     "module key wins over contract",
			entity:   EntityFromFields("Mabc123", "wasmcloud:keyvalue", "default"),
			expected: "wasmbus://Mabc123",
		},
		{
			name:     "provider",
			entity:   EntityFromFields("xyz", "wasmcloud:httpserver", "default"),
			expected: "wasmbus://wasmcloud/httpserver/default/xyz",
		},
		{
			name:     "normalized",
			entity:   EntityFromFields("VKEY", "Acme:Blob Store", "Primary Link"),
			expected: "wasmbus://acme/blob_store/primary_link/VKEY",
		},
		{
			name:     "actor without module key",
			entity:   EntityFromFields("A", "", ""),
			expected: "wasmbus:////A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entity.URL())
			assert.Equal(t, tt.entity.URL(), tt.entity.URL())
			assert.Equal(t, tt.expected, tt.entity.String())
		})
	}
}

func TestURLDistinct(t *testing.T) {
	entities := []Entity{
		EntityFromFields("xyz", "wasmcloud:httpserver", "default"),
		EntityFromFields("xyz", "wasmcloud:httpserver", "other"),
		EntityFromFields("xyz", "wasmcloud:keyvalue", "default"),
		EntityFromFields("abc", "wasmcloud:httpserver", "default"),
		EntityFromFields("Mabc", "", ""),
		EntityFromFields("Mabd", "", ""),
	}
	seen := map[string]Entity{}
	for _, e := range entities {
		_, dup := seen[e.URL()]
		assert.False(t, dup, e.URL())
		seen[e.URL()] = e
	}

	assert.Equal(t,
		EntityFromFields("k", "Foo:Bar", "Default").URL(),
		EntityFromFields("k", "foo/bar", "default").URL(),
	)
}

func TestEntityFromFields(t *testing.T) {
	assert.True(t, EntityFromFields("k", "", "").IsActor())
	assert.True(t, EntityFromFields("k", "c", "").IsActor())
	assert.True(t, EntityFromFields("k", "", "l").IsActor())
	assert.True(t, EntityFromFields("k", "c", "l").IsProvider())
	assert.True(t, Entity{}.IsActor())
}

func TestParseEntity(t *testing.T) {
	e, err := ParseEntity("wasmcloud:httpserver")
	require.NoError(t, err)
	assert.True(t, e.IsActor())
	assert.Equal(t, "wasmcloud:httpserver", e.PublicKey())

	_, err = ParseEntity("")
	assert.True(t, rpcerrors.IsKind(err, rpcerrors.KindInvalidParameter))
}

func TestWithPublicKey(t *testing.T) {
	p, err := NewProvider("wasmcloud:keyvalue", "default")
	require.NoError(t, err)
	inst := p.WithPublicKey("VPROV")
	assert.Empty(t, p.PublicKey())
	assert.Equal(t, "VPROV", inst.PublicKey())
	assert.True(t, inst.IsProvider())
	assert.Equal(t, "wasmbus://wasmcloud/keyvalue/default/VPROV", inst.URL())
}

func TestLinkDefinitionEntities(t *testing.T) {
	ld := LinkDefinition{ActorID: "A", ProviderID: "P", ContractID: "c", LinkName: "l"}

	actor := ld.ActorEntity()
	assert.True(t, actor.IsActor())
	assert.Equal(t, "A", actor.PublicKey())
	assert.Empty(t, actor.ContractID())
	assert.Empty(t, actor.LinkName())

	provider := ld.ProviderEntity()
	assert.True(t, provider.IsProvider())
	assert.Equal(t, "P", provider.PublicKey())
	assert.Equal(t, "c", provider.ContractID())
	assert.Equal(t, "l", provider.LinkName())
	assert.Equal(t, "wasmbus://c/l/P", provider.URL())

	empty := LinkDefinition{}
	assert.True(t, empty.ActorEntity().IsActor())
	assert.True(t, empty.ProviderEntity().IsActor())
}
