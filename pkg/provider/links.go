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

package provider

import (
	"slices"
	"strings"

	"github.com/alphadose/haxmap"

	"github.com/dapr/wasmbus/pkg/core"
)

// linkTable holds the links of a provider, keyed by actor.
type linkTable struct {
	links *haxmap.Map[string, core.LinkDefinition]
}

func newLinkTable() *linkTable {
	return &linkTable{links: haxmap.New[string, core.LinkDefinition]()}
}

func (t *linkTable) put(ld core.LinkDefinition) {
	t.links.Set(ld.ActorID, ld)
}

func (t *linkTable) get(actorID string) (core.LinkDefinition, bool) {
	return t.links.Get(actorID)
}

func (t *linkTable) remove(actorID string) (core.LinkDefinition, bool) {
	return t.links.GetAndDel(actorID)
}

// list returns the links ordered by actor.
func (t *linkTable) list() []core.LinkDefinition {
	out := make([]core.LinkDefinition, 0, t.links.Len())
	t.links.ForEach(func(_ string, ld core.LinkDefinition) bool {
		out = append(out, ld)
		return true
	})
	slices.SortFunc(out, func(a, b core.LinkDefinition) int {
		return strings.Compare(a.ActorID, b.ActorID)
	})
	return out
}
