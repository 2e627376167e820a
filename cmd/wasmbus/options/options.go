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
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"

	"github.com/dapr/kit/logger"
	"github.com/dapr/kit/ptr"

	"github.com/dapr/wasmbus/pkg/core"
)

// EnvPrefix prefixes the environment variables read by the commands.
const EnvPrefix = "wasmbus"

// Env holds the defaults taken from the environment, e.g. WASMBUS_NATS_URL.
type Env struct {
	NATSURL       string `envconfig:"NATS_URL"`
	LatticePrefix string `envconfig:"LATTICE_PREFIX" default:"default"`
	HostID        string `envconfig:"HOST_ID" default:"wasmbus-cli"`
	JWT           string `envconfig:"JWT"`
	Seed          string `envconfig:"SEED"`
	ClusterSeed   string `envconfig:"CLUSTER_SEED"`
}

// LoadEnv reads Env from the environment.
func LoadEnv() (Env, error) {
	var env Env
	err := envconfig.Process(EnvPrefix, &env)
	return env, err
}

type Options struct {
	Env

	Origin   string
	Actor    string
	Provider string
	Contract string
	LinkName string
	Format   string
	Output   string
	Method   string
	Data     string
	Timeout  *time.Duration
	Logger   logger.Options
}

// New parses the command line. The method to call and its JSON argument
// are the positional arguments.
func New(args []string) (*Options, error) {
	env, err := LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	opts := Options{Env: env}

	fs := pflag.NewFlagSet("wasmbus", pflag.ContinueOnError)
	fs.SortFlags = true

	fs.StringVar(&opts.NATSURL, "nats-url", env.NATSURL, "Address of the lattice, "+core.DefaultNATSAddress+" when empty")
	fs.StringVar(&opts.LatticePrefix, "lattice-prefix", env.LatticePrefix, "Lattice prefix of the rpc subjects")
	fs.StringVar(&opts.HostID, "host-id", env.HostID, "Host id reported in invocations")
	fs.StringVar(&opts.Origin, "origin", "MWASMBUSCLI", "Public key of the actor the call originates from")
	fs.StringVar(&opts.Actor, "actor", "", "Public key of the target actor")
	fs.StringVar(&opts.Provider, "provider", "", "Public key of the target provider")
	fs.StringVar(&opts.Contract, "contract", "", "Contract id of the target provider")
	fs.StringVar(&opts.LinkName, "link-name", "", "Link name of the target provider, "+core.DefaultLinkName+" when empty")
	fs.StringVar(&opts.Format, "format", "msgpack", "Codec of the call argument and result: msgpack or cbor")
	fs.StringVarP(&opts.Output, "output", "o", "json", "Format of the printed result: json or yaml")
	timeout := fs.Duration("timeout", core.DefaultRPCTimeout, "Timeout of the call")

	opts.Logger = logger.DefaultOptions()
	opts.Logger.AttachCmdFlags(fs.StringVar, fs.BoolVar)

	if err = fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.Changed("timeout") {
		opts.Timeout = ptr.Of(*timeout)
	}

	switch fs.NArg() {
	case 2:
		opts.Data = fs.Arg(1)
		fallthrough
	case 1:
		opts.Method = fs.Arg(0)
	default:
		return nil, errors.New("usage: wasmbus [flags] <method> [json-argument]")
	}

	if (opts.Actor == "") == (opts.Provider == "") {
		return nil, errors.New("exactly one of --actor and --provider is required")
	}
	if opts.Provider != "" && opts.Contract == "" {
		return nil, errors.New("--contract is required with --provider")
	}
	if opts.Output != "json" && opts.Output != "yaml" {
		return nil, fmt.Errorf("unsupported output %q", opts.Output)
	}
	return &opts, nil
}

// Target returns the entity to call.
func (o *Options) Target() (core.Entity, error) {
	if o.Actor != "" {
		return core.NewActor(o.Actor)
	}
	linkName := o.LinkName
	if linkName == "" {
		linkName = core.DefaultLinkName
	}
	target, err := core.NewProvider(o.Contract, linkName)
	if err != nil {
		return core.Entity{}, err
	}
	return target.WithPublicKey(o.Provider), nil
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
	}
}
