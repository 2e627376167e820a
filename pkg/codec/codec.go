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

// Package codec encodes and decodes call payloads. Every failure is reported
// as a Ser or Deser rpc error; codec library errors never leak to callers.
package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/hashicorp/go-msgpack/v2/codec"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

// Codec is a binary payload format.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	// Msgpack is the default payload format.
	Msgpack Codec = newMsgpack()
	// CBOR encodes payloads with deterministic CBOR.
	CBOR Codec = newCBOR()

	codecs = map[string]Codec{
		Msgpack.Name(): Msgpack,
		CBOR.Name():    CBOR,
	}
)

// Get returns the codec with the given name.
func Get(name string) (Codec, error) {
	c, ok := codecs[name]
	if !ok {
		return nil, rpcerrors.InvalidParameter("unknown codec " + name)
	}
	return c, nil
}

// Serialize encodes v with the default codec.
func Serialize(v any) ([]byte, error) {
	return Msgpack.Marshal(v)
}

// Deserialize decodes data into v with the default codec.
func Deserialize(data []byte, v any) error {
	return Msgpack.Unmarshal(data, v)
}

type msgpackCodec struct {
	handle *codec.MsgpackHandle
}

func newMsgpack() *msgpackCodec {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	h.RawToString = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return &msgpackCodec{handle: h}
}

func (m *msgpackCodec) Name() string {
	return "msgpack"
}

func (m *msgpackCodec) Marshal(v any) ([]byte, error) {
	var b []byte
	if err := codec.NewEncoderBytes(&b, m.handle).Encode(v); err != nil {
		return nil, rpcerrors.FromEncode(m.Name(), err)
	}
	return b, nil
}

func (m *msgpackCodec) Unmarshal(data []byte, v any) error {
	if err := codec.NewDecoderBytes(data, m.handle).Decode(v); err != nil {
		return rpcerrors.FromDecode(m.Name(), err)
	}
	return nil
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBOR() *cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return &cborCodec{enc: enc, dec: dec}
}

func (c *cborCodec) Name() string {
	return "cbor"
}

func (c *cborCodec) Marshal(v any) ([]byte, error) {
	b, err := c.enc.Marshal(v)
	if err != nil {
		return nil, rpcerrors.FromEncode(c.Name(), err)
	}
	return b, nil
}

func (c *cborCodec) Unmarshal(data []byte, v any) error {
	if err := c.dec.Unmarshal(data, v); err != nil {
		return rpcerrors.FromDecode(c.Name(), err)
	}
	return nil
}
