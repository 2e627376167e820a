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

package v1

import (
	"crypto/sha256"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nkeys"

	"github.com/dapr/wasmbus/pkg/codec"
	"github.com/dapr/wasmbus/pkg/core"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

// WireEntity is the encoded form of a core.Entity.
type WireEntity struct {
	PublicKey  string `codec:"public_key"`
	ContractID string `codec:"contract_id"`
	LinkName   string `codec:"link_name"`
}

// ToWireEntity converts e.
func ToWireEntity(e core.Entity) WireEntity {
	return WireEntity{PublicKey: e.PublicKey(), ContractID: e.ContractID(), LinkName: e.LinkName()}
}

// Entity rebuilds the entity.
func (w WireEntity) Entity() core.Entity {
	return core.EntityFromFields(w.PublicKey, w.ContractID, w.LinkName)
}

// Invocation is the envelope of a call travelling over the lattice.
type Invocation struct {
	Origin        WireEntity        `codec:"origin"`
	Target        WireEntity        `codec:"target"`
	Operation     string            `codec:"operation"`
	Msg           []byte            `codec:"msg"`
	ID            string            `codec:"id"`
	HostID        string            `codec:"host_id"`
	ContentLength uint64            `codec:"content_length"`
	TraceContext  map[string]string `codec:"trace_context,omitempty"`
	// Deadline is in Unix milliseconds; 0 means none.
	Deadline  int64  `codec:"deadline,omitempty"`
	Issuer    string `codec:"issuer,omitempty"`
	Signature []byte `codec:"signature,omitempty"`
}

// NewInvocation returns an unsigned invocation with a fresh id.
func NewInvocation(origin, target core.Entity, operation string, msg []byte) *Invocation {
	return &Invocation{
		Origin:        ToWireEntity(origin),
		Target:        ToWireEntity(target),
		Operation:     operation,
		Msg:           msg,
		ID:            uuid.NewString(),
		ContentLength: uint64(len(msg)),
	}
}

// WithDeadline sets the deadline carried to the receiver. A zero time clears it.
func (inv *Invocation) WithDeadline(t time.Time) *Invocation {
	if t.IsZero() {
		inv.Deadline = 0
	} else {
		inv.Deadline = t.UnixMilli()
	}
	return inv
}

// DeadlineTime returns the carried deadline, or the zero time.
func (inv *Invocation) DeadlineTime() time.Time {
	if inv.Deadline == 0 {
		return time.Time{}
	}
	return time.UnixMilli(inv.Deadline)
}

func (inv *Invocation) digest() []byte {
	h := sha256.New()
	for _, part := range []string{
		inv.Origin.Entity().URL(),
		inv.Target.Entity().URL(),
		inv.Operation,
		inv.ID,
	} {
		h.Write([]byte(part))
		h.Write([]byte{'\n'})
	}
	h.Write(inv.Msg)
	return h.Sum(nil)
}

// Sign signs the invocation with the host's cluster key.
func (inv *Invocation) Sign(kp nkeys.KeyPair) error {
	issuer, err := kp.PublicKey()
	if err != nil {
		return rpcerrors.InvalidParameter("invalid signing key: " + err.Error())
	}
	sig, err := kp.Sign(inv.digest())
	if err != nil {
		return rpcerrors.Rpc("failed to sign invocation: " + err.Error())
	}
	inv.Issuer = issuer
	inv.Signature = sig
	return nil
}

// Verify checks the signature of the invocation and that its issuer is one
// of issuers. With no issuers configured, unsigned invocations are accepted.
func (inv *Invocation) Verify(issuers []string) error {
	if inv.Issuer == "" {
		if len(issuers) > 0 {
			return rpcerrors.Rpc("invocation " + inv.ID + " is not signed")
		}
		return nil
	}
	if len(issuers) > 0 && !slices.Contains(issuers, inv.Issuer) {
		return rpcerrors.Rpc("invocation issuer " + inv.Issuer + " is not a valid cluster issuer")
	}
	kp, err := nkeys.FromPublicKey(inv.Issuer)
	if err != nil {
		return rpcerrors.Rpc("invalid invocation issuer: " + err.Error())
	}
	if err := kp.Verify(inv.digest(), inv.Signature); err != nil {
		return rpcerrors.Rpc("invocation " + inv.ID + " has an invalid signature")
	}
	return nil
}

// Encode returns the msgpack form of the invocation.
func (inv *Invocation) Encode() ([]byte, error) {
	return codec.Msgpack.Marshal(inv)
}

// DecodeInvocation decodes the msgpack form of an invocation.
func DecodeInvocation(b []byte) (*Invocation, error) {
	var inv Invocation
	if err := codec.Msgpack.Unmarshal(b, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// InvocationResponse is the reply to an Invocation.
type InvocationResponse struct {
	Msg           []byte          `codec:"msg"`
	InvocationID  string          `codec:"invocation_id"`
	Error         *rpcerrors.Wire `codec:"error,omitempty"`
	ContentLength uint64          `codec:"content_length"`
}

// NewInvocationResponse returns the response to the invocation with id
// invocationID. A non-nil err is carried instead of msg.
func NewInvocationResponse(invocationID string, msg []byte, err error) *InvocationResponse {
	if err != nil {
		return &InvocationResponse{InvocationID: invocationID, Error: rpcerrors.ToWire(err)}
	}
	return &InvocationResponse{
		Msg:           msg,
		InvocationID:  invocationID,
		ContentLength: uint64(len(msg)),
	}
}

// Err returns the error carried by the response, with its original kind.
func (r *InvocationResponse) Err() error {
	return r.Error.Err()
}

// Encode returns the msgpack form of the response.
func (r *InvocationResponse) Encode() ([]byte, error) {
	return codec.Msgpack.Marshal(r)
}

// DecodeInvocationResponse decodes the msgpack form of a response.
func DecodeInvocationResponse(b []byte) (*InvocationResponse, error) {
	var r InvocationResponse
	if err := codec.Msgpack.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
