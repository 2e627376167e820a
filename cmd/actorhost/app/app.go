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
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/dapr/kit/concurrency"
	"github.com/dapr/kit/logger"
	"github.com/dapr/kit/signals"

	"github.com/dapr/wasmbus/cmd/actorhost/options"
	"github.com/dapr/wasmbus/pkg/bootstrap"
	"github.com/dapr/wasmbus/pkg/channel/wasm"
	"github.com/dapr/wasmbus/pkg/core"
	"github.com/dapr/wasmbus/pkg/diagnostics"
	"github.com/dapr/wasmbus/pkg/healthz"
	"github.com/dapr/wasmbus/pkg/messaging"
	"github.com/dapr/wasmbus/pkg/metrics"
)

var log = logger.NewLogger("wasmbus.actorhost")

func Run() {
	// Apply GOMAXPROCS from the container CPU quota.
	_, _ = maxprocs.Set()

	opts, err := options.New(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	// Apply options to all loggers.
	if err = logger.ApplyOptionsToLoggers(&opts.Logger); err != nil {
		log.Fatal(err)
	}
	log.Infof("Log level set to: %s", opts.Logger.OutputLevel)

	if err = Serve(signals.Context(), opts); err != nil {
		log.Fatalf("error running actor host: %v", err)
	}
	log.Info("actor host shut down gracefully")
}

// Serve hosts the actor on the lattice until ctx is done.
func Serve(ctx context.Context, opts *options.Options) error {
	actor, err := core.NewActor(opts.ActorID)
	if err != nil {
		return err
	}

	shutdownTracing, err := diagnostics.InitTracing(ctx, "actorhost/"+opts.ActorID, opts.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warnf("Failed to flush spans: %v", err)
		}
	}()

	hd := opts.HostData()
	nc, err := bootstrap.Connect(ctx, hd)
	if err != nil {
		return err
	}
	defer nc.Close()

	client, err := messaging.NewRPCClientFromHostData(nc, hd, actor,
		messaging.WithResolver(messaging.LinkResolver(opts.ActorID, opts.Links)),
	)
	if err != nil {
		return err
	}

	channel, err := wasm.LoadChannel(ctx, opts.ActorID, opts.WasmPath, client, wasm.WithMaxConcurrency(opts.MaxConcurrency))
	if err != nil {
		return err
	}
	defer channel.Close(context.Background())

	subject, err := messaging.RPCSubject(hd.LatticePrefix(), actor)
	if err != nil {
		return err
	}
	server := messaging.NewServer(nc, subject, channel, messaging.WithQueue(subject))
	log.Infof("Hosting actor %s from %s on %s", opts.ActorID, opts.WasmPath, subject)

	hz := healthz.New()
	opts.Metrics.Healthz = hz
	opts.Metrics.Log = log

	return concurrency.NewRunnerManager(
		serveActor(server, hz.AddTarget("actor")),
		metrics.New(*opts.Metrics).Start,
	).Run(ctx)
}

// serveActor runs the rpc server, reporting it ready once it is subscribed.
func serveActor(server *messaging.Server, target healthz.Target) concurrency.Runner {
	return func(ctx context.Context) error {
		if err := server.Start(); err != nil {
			return err
		}
		target.Ready()
		<-ctx.Done()
		target.NotReady()
		return server.Close()
	}
}
