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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dapr/kit/logger"
	"github.com/dapr/kit/signals"

	"github.com/dapr/wasmbus/cmd/wasmbus/options"
	"github.com/dapr/wasmbus/pkg/bootstrap"
	"github.com/dapr/wasmbus/pkg/codec"
	"github.com/dapr/wasmbus/pkg/core"
	"github.com/dapr/wasmbus/pkg/messaging"
	"github.com/dapr/wasmbus/pkg/rpc"
)

var log = logger.NewLogger("wasmbus.cli")

func Run() {
	opts, err := options.New(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	// Apply options to all loggers.
	if err = logger.ApplyOptionsToLoggers(&opts.Logger); err != nil {
		log.Fatal(err)
	}

	if err = Call(signals.Context(), opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// Call sends the call described by opts and writes its result to out.
func Call(ctx context.Context, opts *options.Options, out io.Writer) error {
	c, err := codec.Get(opts.Format)
	if err != nil {
		return err
	}
	target, err := opts.Target()
	if err != nil {
		return err
	}
	origin, err := core.NewActor(opts.Origin)
	if err != nil {
		return err
	}
	arg, err := EncodeArg(c, opts.Data)
	if err != nil {
		return err
	}

	hd := opts.HostData()
	nc, err := bootstrap.Connect(ctx, hd)
	if err != nil {
		return err
	}
	defer nc.Close()

	client, err := messaging.NewRPCClientFromHostData(nc, hd, origin)
	if err != nil {
		return err
	}

	sendOpts := &rpc.SendOpts{}
	if opts.Timeout != nil {
		sendOpts.Timeout = *opts.Timeout
	}
	log.Debugf("Calling %s on %s", opts.Method, target)
	res, err := client.SendTo(ctx, nil, target, rpc.Message{Method: opts.Method, Arg: arg}, sendOpts)
	if err != nil {
		return err
	}
	return WriteResult(c, res, opts.Output, out)
}

// EncodeArg converts a JSON argument to the codec. An empty argument is sent
// as an empty message.
func EncodeArg(c codec.Codec, data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("argument is not valid JSON: %w", err)
	}
	return c.Marshal(v)
}

// WriteResult decodes res with the codec and writes it as JSON or YAML.
// Results that do not decode are written as a string.
func WriteResult(c codec.Codec, res []byte, output string, out io.Writer) error {
	var v any
	if len(res) > 0 {
		if err := c.Unmarshal(res, &v); err != nil {
			v = string(res)
		}
	}

	if output == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
