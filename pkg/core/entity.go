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

// Package core contains the addressing and host-configuration types shared by
// actors, capability providers and the lattice transport.
package core

import (
	"fmt"
	"strings"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

// URLScheme is the url scheme of wasmbus protocol messages.
const URLScheme = "wasmbus"

// EntityKind tells whether an Entity addresses an actor or a capability provider.
type EntityKind uint8

const (
	EntityActor EntityKind = iota
	EntityProvider
)

func (k EntityKind) String() string {
	if k == EntityProvider {
		return "provider"
	}
	return "actor"
}

// Entity is the logical address of an actor or a capability provider.
// Actors are addressed by public key only; providers by contract id and link
// name, optionally narrowed to one instance key. Entities are immutable.
type Entity struct {
	kind       EntityKind
	publicKey  string
	contractID string
	linkName   string
}

// NewActor returns the entity of the actor with the given public key.
func NewActor(publicKey string) (Entity, error) {
	if publicKey == "" {
		return Entity{}, rpcerrors.InvalidParameter("public_key may not be empty")
	}
	return Entity{kind: EntityActor, publicKey: publicKey}, nil
}

// NewProvider returns the entity of the providers implementing contractID
// under linkName. The public key is left empty: several provider processes
// may serve the same contract and link.
func NewProvider(contractID, linkName string) (Entity, error) {
	if contractID == "" {
		return Entity{}, rpcerrors.InvalidParameter("contract_id may not be empty")
	}
	if linkName == "" {
		return Entity{}, rpcerrors.InvalidParameter("link_name may not be empty")
	}
	return Entity{kind: EntityProvider, contractID: contractID, linkName: linkName}, nil
}

// EntityFromFields rebuilds an entity from its three attributes, as found
// on the wire. It is an actor when the contract id or the link name is
// empty, a provider otherwise.
func EntityFromFields(publicKey, contractID, linkName string) Entity {
	kind := EntityProvider
	if contractID == "" || linkName == "" {
		kind = EntityActor
	}
	return Entity{kind: kind, publicKey: publicKey, contractID: contractID, linkName: linkName}
}

// ParseEntity converts a string into an actor entity. There is no string
// syntax for provider entities; those are built from link definitions.
func ParseEntity(s string) (Entity, error) {
	return NewActor(s)
}

// WithPublicKey returns a copy of the entity with the given public key.
func (e Entity) WithPublicKey(publicKey string) Entity {
	e.publicKey = publicKey
	return e
}

func (e Entity) Kind() EntityKind   { return e.kind }
func (e Entity) PublicKey() string  { return e.publicKey }
func (e Entity) ContractID() string { return e.contractID }
func (e Entity) LinkName() string   { return e.linkName }

// IsActor returns true if this entity refers to an actor.
func (e Entity) IsActor() bool {
	return e.kind != EntityProvider
}

// IsProvider returns true if this entity refers to a capability provider.
func (e Entity) IsProvider() bool {
	return e.kind == EntityProvider
}

// URL returns the locator of the entity.
//
// Public keys of actor modules start with 'M' and are unique in the lattice,
// so they are used alone. Anything else is qualified by the normalized
// contract id and link name.
func (e Entity) URL() string {
	if isModuleKey(e.publicKey) {
		return URLScheme + "://" + e.publicKey
	}
	return fmt.Sprintf("%s://%s/%s/%s",
		URLScheme,
		normalizeContractID(e.contractID),
		normalizeLinkName(e.linkName),
		e.publicKey,
	)
}

func (e Entity) String() string {
	return e.URL()
}

func isModuleKey(key string) bool {
	return key != "" && (key[0] == 'M' || key[0] == 'm')
}

func normalizeContractID(contractID string) string {
	return strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(contractID, ":", "/"), " ", "_"))
}

func normalizeLinkName(linkName string) string {
	return strings.ToLower(strings.ReplaceAll(linkName, " ", "_"))
}
