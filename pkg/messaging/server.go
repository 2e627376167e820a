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

package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"

	"github.com/dapr/wasmbus/pkg/diagnostics"
	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
	invokev1 "github.com/dapr/wasmbus/pkg/messaging/v1"
	"github.com/dapr/wasmbus/pkg/rpc"
)

// Server receives invocations on a subject and answers them with the
// result of a dispatcher. Every invocation is handled on its own goroutine.
type Server struct {
	nc       *nats.Conn
	subject  string
	queue    string
	issuers  []string
	dispatch rpc.MessageDispatch

	ctx     context.Context
	cancel  context.CancelFunc
	sub     *nats.Subscription
	running sync.WaitGroup

	lock   sync.Mutex
	closed bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithQueue load balances invocations across servers sharing queue.
func WithQueue(queue string) ServerOption {
	return func(s *Server) {
		s.queue = queue
	}
}

// WithIssuers only accepts invocations signed by one of issuers.
func WithIssuers(issuers []string) ServerOption {
	return func(s *Server) {
		s.issuers = issuers
	}
}

// NewServer returns a server answering invocations on subject.
func NewServer(nc *nats.Conn, subject string, dispatch rpc.MessageDispatch, opts ...ServerOption) *Server {
	s := &Server{
		nc:       nc,
		subject:  subject,
		dispatch: dispatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subject returns the subject the server answers on.
func (s *Server) Subject() string {
	return s.subject
}

// Start subscribes the server. Invocations in flight are canceled when
// Close is called.
func (s *Server) Start() error {
	s.lock.Lock()
	s.closed = false
	s.lock.Unlock()
	s.ctx, s.cancel = context.WithCancel(context.Background())

	var err error
	if s.queue != "" {
		s.sub, err = s.nc.QueueSubscribe(s.subject, s.queue, s.onMessage)
	} else {
		s.sub, err = s.nc.Subscribe(s.subject, s.onMessage)
	}
	if err != nil {
		s.cancel()
		return rpcerrors.Nats("failed to subscribe to " + s.subject + ": " + err.Error())
	}
	if err = s.nc.Flush(); err != nil {
		s.cancel()
		return rpcerrors.Nats("failed to subscribe to " + s.subject + ": " + err.Error())
	}
	log.Debugf("Listening for invocations on %s", s.subject)
	return nil
}

// Close unsubscribes the server and waits for invocations in flight.
func (s *Server) Close() error {
	if s.sub == nil {
		return nil
	}
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil
	}
	s.closed = true
	s.lock.Unlock()

	err := s.sub.Unsubscribe()
	s.cancel()
	s.running.Wait()
	if err != nil && err != nats.ErrConnectionClosed && err != nats.ErrBadSubscription {
		return rpcerrors.Nats(err.Error())
	}
	return nil
}

// Run starts the server and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Close()
}

func (s *Server) onMessage(msg *nats.Msg) {
	// Messages delivered while Close runs are dropped; Add must not race Wait.
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.running.Add(1)
	s.lock.Unlock()

	go func() {
		defer s.running.Done()
		if msg.Reply == "" {
			log.Warnf("Dropping invocation on %s without reply subject", msg.Subject)
			return
		}
		if err := msg.Respond(s.Handle(s.ctx, msg.Data)); err != nil {
			log.Errorf("Failed to respond on %s: %v", msg.Reply, err)
		}
	}()
}

// Handle decodes an invocation, dispatches it and returns the encoded
// response. Failures at any step are carried in the response.
func (s *Server) Handle(ctx context.Context, data []byte) []byte {
	inv, err := invokev1.DecodeInvocation(data)
	if err != nil {
		return encodeResponse("", nil, err)
	}
	if err = inv.Verify(s.issuers); err != nil {
		log.Warnf("Rejected invocation %s: %v", inv.ID, err)
		return encodeResponse(inv.ID, nil, err)
	}

	rc := &rpc.Context{Deadline: inv.DeadlineTime()}
	if origin := inv.Origin.Entity(); origin.IsActor() {
		rc.Actor = origin.PublicKey()
	}
	if err = rpc.CheckDeadline(rc.Deadline, time.Now()); err != nil {
		diagnostics.RecordDispatch(inv.Operation, err)
		return encodeResponse(inv.ID, nil, err)
	}

	ctx = diagnostics.Extract(ctx, inv.TraceContext)
	ctx, span := diagnostics.StartSpan(ctx, inv.Operation, trace.SpanKindServer)
	defer span.End()
	rc.Span = diagnostics.SpanFromContext(ctx)

	if !rc.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, rc.Deadline)
		defer cancel()
	}

	res, err := s.dispatch.Dispatch(ctx, rc, rpc.Message{Method: inv.Operation, Arg: inv.Msg})
	diagnostics.RecordDispatch(inv.Operation, err)
	if err != nil {
		log.Debugf("Invocation %s of %s failed: %v", inv.ID, inv.Operation, err)
	}
	return encodeResponse(inv.ID, res, err)
}

func encodeResponse(id string, msg []byte, err error) []byte {
	b, encErr := invokev1.NewInvocationResponse(id, msg, err).Encode()
	if encErr != nil {
		b, _ = invokev1.NewInvocationResponse(id, nil, encErr).Encode()
	}
	return b
}
