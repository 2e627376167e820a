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

package errors

import (
	"encoding/json"
	"fmt"
)

// Wire is the form of an Error sent across the protocol boundary inside
// codec-encoded envelopes.
type Wire struct {
	Kind    string `json:"kind" codec:"kind" cbor:"kind"`
	Message string `json:"message,omitempty" codec:"message,omitempty" cbor:"message,omitempty"`
}

// ToWire returns the wire form of err. Errors that are not *Error are sent as Other.
func ToWire(err error) *Wire {
	if err == nil {
		return nil
	}
	rerr, _ := From(err).(*Error)
	return &Wire{Kind: rerr.kind.String(), Message: rerr.message}
}

// Err rebuilds the error carried by the wire form. Unknown kinds become Other.
func (w *Wire) Err() error {
	if w == nil {
		return nil
	}
	return &Error{kind: ParseKind(w.Kind), message: w.Message}
}

// MarshalJSON encodes the error as an externally tagged value: {"Kind":"message"},
// or the bare kind name for kinds without a message.
func (e *Error) MarshalJSON() ([]byte, error) {
	if e.kind == KindNotImplemented {
		return json.Marshal(e.kind.String())
	}
	return json.Marshal(map[string]string{e.kind.String(): e.message})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (e *Error) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		e.kind = ParseKind(name)
		e.message = ""
		if e.kind == KindOther {
			e.message = name
		}
		return nil
	}

	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("invalid rpc error: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("invalid rpc error: expected one variant, got %d", len(tagged))
	}
	for name, msg := range tagged {
		e.kind = ParseKind(name)
		e.message = msg
	}
	return nil
}
