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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpcCodes "google.golang.org/grpc/codes"
	grpcStatus "google.golang.org/grpc/status"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err      *Error
		expected string
	}{
		{DeadlineExceeded("late"), "the request exceeded its deadline: late"},
		{NotInitialized("p1"), "the capability provider has not been initialized: p1"},
		{MethodNotHandled("Foo.Bar"), "method not handled Foo.Bar"},
		{NotImplemented(), "method not implemented"},
		{HostError("gone"), "Host send error gone"},
		{Deser("bad"), "deserialization: bad"},
		{Ser("bad"), "serialization: bad"},
		{Rpc("x"), "rpc: x"},
		{Nats("x"), "nats: x"},
		{InvalidParameter("x"), "invalid parameter: x"},
		{ActorHandler("x"), "actor: x"},
		{ProviderInit("x"), "provider initialization or put-link: x"},
		{Timeout("x"), "timeout: x"},
		{Other("x"), "x"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Kind().String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestNewFormats(t *testing.T) {
	err := Newf(KindInvalidParameter, "%s may not be empty", "link_name")
	assert.Equal(t, "link_name may not be empty", err.Message())
	assert.Equal(t, KindInvalidParameter, err.Kind())
	assert.Equal(t, KindOther, New(KindUnknown, "x").Kind())
	assert.Equal(t, KindOther, Newf(KindUnknown, "%d", 1).Kind())
	// Messages are never used as format strings.
	assert.Equal(t, "100%", New(KindOther, "100%").Message())
	assert.Equal(t, "100%d", InvalidParameter("100%d").Message())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindOther, KindOf(io.EOF))
	assert.Equal(t, KindTimeout, KindOf(Timeout("x")))

	wrapped := fmt.Errorf("calling actor: %w", ActorHandler("boom"))
	assert.Equal(t, KindActorHandler, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindActorHandler))
	assert.False(t, IsKind(wrapped, KindTimeout))
	assert.True(t, errors.Is(wrapped, ActorHandler("")))
	assert.False(t, errors.Is(wrapped, Rpc("")))
}

func TestParseKind(t *testing.T) {
	for k := KindDeadlineExceeded; k <= KindOther; k++ {
		assert.Equal(t, k, ParseKind(k.String()))
	}
	assert.Equal(t, KindOther, ParseKind("SomethingNew"))
}

func TestFrom(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		require.NoError(t, From(nil))
		require.NoError(t, FromIO(nil))
		require.NoError(t, FromEncode("msgpack", nil))
		require.NoError(t, FromDecode("msgpack", nil))
	})

	t.Run("rpc error is kept", func(t *testing.T) {
		orig := Nats("disconnected")
		assert.Same(t, orig, From(fmt.Errorf("wrap: %w", orig)))
	})

	t.Run("deadline", func(t *testing.T) {
		assert.Equal(t, KindTimeout, KindOf(From(context.DeadlineExceeded)))
		assert.Equal(t, KindRpc, KindOf(From(context.Canceled)))
	})

	t.Run("foreign", func(t *testing.T) {
		err := From(errors.New("boom"))
		assert.Equal(t, KindOther, KindOf(err))
		assert.Equal(t, "boom", err.Error())
	})
}

func TestForeignConversions(t *testing.T) {
	foreign := errors.New("unexpected end of input")

	err := FromDecode("cbor", foreign)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindDeser, rerr.Kind())
	assert.Equal(t, "deserialization: cbor-decode: unexpected end of input", err.Error())
	assert.NotErrorIs(t, err, foreign)

	err = FromEncode("msgpack", foreign)
	assert.Equal(t, KindSer, KindOf(err))
	assert.Equal(t, "serialization: msgpack-encode: unexpected end of input", err.Error())

	err = FromIO(io.ErrUnexpectedEOF)
	assert.Equal(t, KindOther, KindOf(err))
	assert.Equal(t, "io: unexpected EOF", err.Error())
}

func TestJSON(t *testing.T) {
	t.Run("tagged variant", func(t *testing.T) {
		b, err := json.Marshal(Deser("bad map"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"Deser":"bad map"}`, string(b))

		var decoded Error
		require.NoError(t, json.Unmarshal(b, &decoded))
		assert.Equal(t, KindDeser, decoded.Kind())
		assert.Equal(t, "bad map", decoded.Message())
	})

	t.Run("unit variant", func(t *testing.T) {
		b, err := json.Marshal(NotImplemented())
		require.NoError(t, err)
		assert.Equal(t, `"NotImplemented"`, string(b))

		var decoded Error
		require.NoError(t, json.Unmarshal(b, &decoded))
		assert.Equal(t, KindNotImplemented, decoded.Kind())
	})

	t.Run("unknown variant", func(t *testing.T) {
		var decoded Error
		require.NoError(t, json.Unmarshal([]byte(`{"Quota":"too many"}`), &decoded))
		assert.Equal(t, KindOther, decoded.Kind())
		assert.Equal(t, "too many", decoded.Message())
	})

	t.Run("invalid", func(t *testing.T) {
		var decoded Error
		require.Error(t, json.Unmarshal([]byte(`{"Deser":"a","Ser":"b"}`), &decoded))
		require.Error(t, json.Unmarshal([]byte(`[1]`), &decoded))
	})
}

func TestWire(t *testing.T) {
	assert.Nil(t, ToWire(nil))

	w := ToWire(fmt.Errorf("handler: %w", ActorHandler("no such key")))
	assert.Equal(t, &Wire{Kind: "ActorHandler", Message: "no such key"}, w)

	err := w.Err()
	assert.Equal(t, KindActorHandler, KindOf(err))
	assert.Equal(t, "actor: no such key", err.Error())

	w = ToWire(errors.New("plain"))
	assert.Equal(t, "Other", w.Kind)

	var nilWire *Wire
	require.NoError(t, nilWire.Err())
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *Error
		grpc grpcCodes.Code
		http int
	}{
		{Timeout("x"), grpcCodes.DeadlineExceeded, http.StatusGatewayTimeout},
		{NotInitialized("x"), grpcCodes.Unavailable, http.StatusServiceUnavailable},
		{MethodNotHandled("x"), grpcCodes.Unimplemented, http.StatusNotFound},
		{InvalidParameter("x"), grpcCodes.InvalidArgument, http.StatusBadRequest},
		{Ser("x"), grpcCodes.Internal, http.StatusInternalServerError},
		{Other("x"), grpcCodes.Unknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Kind().String(), func(t *testing.T) {
			s, ok := grpcStatus.FromError(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.grpc, s.Code())
			assert.Equal(t, tt.err.Error(), s.Message())
			assert.Equal(t, tt.http, tt.err.HTTPCode())
		})
	}
}
