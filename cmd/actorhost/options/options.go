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

package options

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dapr/kit/logger"

	cliopts "github.com/dapr/wasmbus/cmd/wasmbus/options"
	"github.com/dapr/wasmbus/pkg/core"
	"github.com/dapr/wasmbus/pkg/diagnostics"
	"github.com/dapr/wasmbus/pkg/metrics"
)

type Options struct {
	cliopts.Env

	ActorID        string
	WasmPath       string
	MaxConcurrency int
	Links          []core.LinkDefinition
	Logger         logger.Options
	Metrics        *metrics.Options
	Tracing        diagnostics.TracingOptions
}

func New(args []string) (*Options, error) {
	env, err := cliopts.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	opts := Options{Env: env}

	fs := pflag.NewFlagSet("actorhost", pflag.ContinueOnError)
	fs.SortFlags = true

	fs.StringVar(&opts.NATSURL, "nats-url", env.NATSURL, "Address of the lattice, "+core.DefaultNATSAddress+" when empty")
	fs.StringVar(&opts.LatticePrefix, "lattice-prefix", env.LatticePrefix, "Lattice prefix of the rpc subjects")
	fs.StringVar(&opts.HostID, "host-id", env.HostID, "Host id reported in invocations")
	fs.StringVar(&opts.ActorID, "actor-id", "", "Public key of the hosted actor")
	fs.StringVar(&opts.WasmPath, "wasm", "", "Path of the actor module")
	fs.IntVar(&opts.MaxConcurrency, "max-concurrency", 10, "Maximum number of calls run by the actor at once")
	links := fs.StringArray("link", nil, "Link of the actor to a provider: contract=<id>,provider=<key>[,link=<name>][,<key>=<value>...]")

	opts.Logger = logger.DefaultOptions()
	opts.Logger.AttachCmdFlags(fs.StringVar, fs.BoolVar)

	opts.Metrics = metrics.DefaultOptions()
	opts.Metrics.AttachCmdFlags(fs.StringVar, fs.BoolVar)
	opts.Tracing.AttachCmdFlags(fs.StringVar, fs.BoolVar, fs.Float64Var)

	if err = fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.ActorID == "" || opts.WasmPath == "" {
		return nil, errors.New("--actor-id and --wasm are required")
	}
	for _, l := range *links {
		ld, err := ParseLink(opts.ActorID, l)
		if err != nil {
			return nil, err
		}
		opts.Links = append(opts.Links, ld)
	}
	return &opts, nil
}

// ParseLink parses the value of a --link flag.
func ParseLink(actorID, s string) (core.LinkDefinition, error) {
	ld := core.LinkDefinition{ActorID: actorID, LinkName: core.DefaultLinkName}
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return ld, fmt.Errorf("invalid link %q: expected key=value pairs", s)
		}
		switch k {
		case "contract":
			ld.ContractID = v
		case "provider":
			ld.ProviderID = v
		case "link":
			ld.LinkName = v
		default:
			if ld.Values == nil {
				ld.Values = make(map[string]string)
			}
			ld.Values[k] = v
		}
	}
	if ld.ContractID == "" || ld.ProviderID == "" {
		return ld, fmt.Errorf("invalid link %q: contract and provider are required", s)
	}
	return ld, nil
}

// HostData returns the connection settings as host data.
func (o *Options) HostData() *core.HostData {
	return &core.HostData{
		HostID:             o.HostID,
		LatticeRPCPrefix:   o.LatticePrefix,
		LatticeRPCURL:      o.NATSURL,
		LatticeRPCUserJWT:  o.JWT,
		LatticeRPCUserSeed: o.Seed,
		InvocationSeed:     o.ClusterSeed,
		LinkDefinitions:    o.Links,
	}
}
