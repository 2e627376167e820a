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

package app

import (
	"bytes"
	"context"
	"testing"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapr/wasmbus/cmd/wasmbus/options"
	"github.com/dapr/wasmbus/pkg/codec"
	"github.com/dapr/wasmbus/pkg/core"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
	"github.com/dapr/wasmbus/pkg/messaging"
	"github.com/dapr/wasmbus/pkg/rpc"
)

func TestEncodeArg(t *testing.T) {
	b, err := EncodeArg(codec.Msgpack, "")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = EncodeArg(codec.Msgpack, `{"key":"k"}`)
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, codec.Msgpack.Unmarshal(b, &v))
	assert.Equal(t, "k", v["key"])

	_, err = EncodeArg(codec.Msgpack, `{"key":`)
	require.Error(t, err)
}

func TestWriteResult(t *testing.T) {
	var out bytes.Buffer
	res, err := codec.CBOR.Marshal(map[string]any{"value": "v"})
	require.NoError(t, err)
	require.NoError(t, WriteResult(codec.CBOR, res, "json", &out))
	assert.JSONEq(t, `{"value":"v"}`, out.String())

	out.Reset()
	require.NoError(t, WriteResult(codec.CBOR, res, "yaml", &out))
	assert.YAMLEq(t, "value: v\n", out.String())

	out.Reset()
	require.NoError(t, WriteResult(codec.Msgpack, nil, "json", &out))
	assert.Equal(t, "null\n", out.String())
}

func TestCall(t *testing.T) {
	sopts := natsserver.DefaultTestOptions
	sopts.Port = -1
	s := natsserver.RunServer(&sopts)
	defer s.Shutdown()

	nc, err := nats.Connect(s.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	target, err := core.NewActor("MTARGET")
	require.NoError(t, err)
	subject, err := messaging.RPCSubject("", target)
	require.NoError(t, err)
	server := messaging.NewServer(nc, subject, rpc.NewRouter().Handle("KeyValue.Get", func(_ context.Context, _ *rpc.Context, arg []byte) ([]byte, error) {
		var in map[string]any
		if err := codec.Msgpack.Unmarshal(arg, &in); err != nil {
			return nil, err
		}
		return codec.Msgpack.Marshal(map[string]any{"value": in["key"]})
	}))
	require.NoError(t, server.Start())
	defer server.Close()

	opts, err := options.New([]string{"--nats-url", s.ClientURL(), "--actor", "MTARGET", "KeyValue.Get", `{"key":"k1"}`})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Call(context.Background(), opts, &out))
	assert.JSONEq(t, `{"value":"k1"}`, out.String())

	opts.Method = "KeyValue.Set"
	err = Call(context.Background(), opts, &out)
	assert.True(t, rpcerrors.IsKind(err, rpcerrors.KindMethodNotHandled))

	opts.Format = "yaml"
	err = Call(context.Background(), opts, &out)
	require.Error(t, err)
}
