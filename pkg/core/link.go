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

// LinkDefinition binds an actor to a capability provider instance. It is
// owned by the host; the runtime only reads it.
type LinkDefinition struct {
	ActorID    string            `json:"actor_id" codec:"actor_id"`
	ProviderID string            `json:"provider_id" codec:"provider_id"`
	LinkName   string            `json:"link_name" codec:"link_name"`
	ContractID string            `json:"contract_id" codec:"contract_id"`
	Values     map[string]string `json:"values,omitempty" codec:"values,omitempty"`
}

// ActorEntity returns the actor side of the link.
func (l *LinkDefinition) ActorEntity() Entity {
	return Entity{kind: EntityActor, publicKey: l.ActorID}
}

// ProviderEntity returns the provider side of the link.
func (l *LinkDefinition) ProviderEntity() Entity {
	return EntityFromFields(l.ProviderID, l.ContractID, l.LinkName)
}
