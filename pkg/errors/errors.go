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

// Package errors contains the cross-cutting failures that can occur while
// processing any RPC, independent of the interface being called.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	grpcCodes "google.golang.org/grpc/codes"
	grpcStatus "google.golang.org/grpc/status"
)

// Kind identifies the class of an RPC failure.
type Kind uint8

const (
	// KindUnknown is never produced by this package; it is the zero value.
	KindUnknown Kind = iota
	// KindDeadlineExceeded: the request exceeded its deadline before it was sent.
	KindDeadlineExceeded
	// KindNotInitialized: the receiver was called before it finished initializing.
	KindNotInitialized
	// KindMethodNotHandled: no handler is registered for the method.
	KindMethodNotHandled
	// KindNotImplemented: the handler exists but does not implement the optional method.
	KindNotImplemented
	// KindHostError: the host or the underlying transport failed to send.
	KindHostError
	// KindDeser: a payload could not be decoded.
	KindDeser
	// KindSer: a payload could not be encoded.
	KindSer
	// KindRpc: protocol failure not otherwise classified.
	KindRpc
	// KindNats: failure reported by the message bus.
	KindNats
	// KindInvalidParameter: a required value was empty or malformed.
	KindInvalidParameter
	// KindActorHandler: failure raised by an actor's own handler.
	KindActorHandler
	// KindProviderInit: failure during provider start-up or link establishment.
	KindProviderInit
	// KindTimeout: an in-flight request exceeded its deadline.
	KindTimeout
	// KindOther is used for anything else, including wrapped foreign errors.
	KindOther
)

var kindNames = map[Kind]string{
	KindDeadlineExceeded: "DeadlineExceeded",
	KindNotInitialized:   "NotInitialized",
	KindMethodNotHandled: "MethodNotHandled",
	KindNotImplemented:   "NotImplemented",
	KindHostError:        "HostError",
	KindDeser:            "Deser",
	KindSer:              "Ser",
	KindRpc:              "Rpc",
	KindNats:             "Nats",
	KindInvalidParameter: "InvalidParameter",
	KindActorHandler:     "ActorHandler",
	KindProviderInit:     "ProviderInit",
	KindTimeout:          "Timeout",
	KindOther:            "Other",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// String returns the wire name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// ParseKind returns the kind with the given wire name.
// Names that are not recognized map to KindOther.
func ParseKind(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindOther
}

// Error is an RPC failure. It is a value: it carries no identity and is
// created where the failure happens.
type Error struct {
	kind    Kind
	message string
}

// New returns an error of the given kind carrying msg as is.
func New(kind Kind, msg string) *Error {
	if kind == KindUnknown {
		kind = KindOther
	}
	return &Error{kind: kind, message: msg}
}

// Newf returns an error of the given kind, formatting the message with fmt.Sprintf.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func DeadlineExceeded(msg string) *Error { return New(KindDeadlineExceeded, msg) }
func NotInitialized(msg string) *Error   { return New(KindNotInitialized, msg) }
func MethodNotHandled(msg string) *Error { return New(KindMethodNotHandled, msg) }
func NotImplemented() *Error             { return New(KindNotImplemented, "") }
func HostError(msg string) *Error        { return New(KindHostError, msg) }
func Deser(msg string) *Error            { return New(KindDeser, msg) }
func Ser(msg string) *Error              { return New(KindSer, msg) }
func Rpc(msg string) *Error              { return New(KindRpc, msg) }
func Nats(msg string) *Error             { return New(KindNats, msg) }
func InvalidParameter(msg string) *Error { return New(KindInvalidParameter, msg) }
func ActorHandler(msg string) *Error     { return New(KindActorHandler, msg) }
func ProviderInit(msg string) *Error     { return New(KindProviderInit, msg) }
func Timeout(msg string) *Error          { return New(KindTimeout, msg) }
func Other(msg string) *Error            { return New(KindOther, msg) }

// Kind returns the kind of the error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Message returns the message carried by the error, without the kind prefix.
func (e *Error) Message() string {
	return e.message
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.kind {
	case KindDeadlineExceeded:
		return "the request exceeded its deadline: " + e.message
	case KindNotInitialized:
		return "the capability provider has not been initialized: " + e.message
	case KindMethodNotHandled:
		return "method not handled " + e.message
	case KindNotImplemented:
		return "method not implemented"
	case KindHostError:
		return "Host send error " + e.message
	case KindDeser:
		return "deserialization: " + e.message
	case KindSer:
		return "serialization: " + e.message
	case KindRpc:
		return "rpc: " + e.message
	case KindNats:
		return "nats: " + e.message
	case KindInvalidParameter:
		return "invalid parameter: " + e.message
	case KindActorHandler:
		return "actor: " + e.message
	case KindProviderInit:
		return "provider initialization or put-link: " + e.message
	case KindTimeout:
		return "timeout: " + e.message
	default:
		return e.message
	}
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind
}

// HTTPCode returns the HTTP status code matching the kind.
func (e *Error) HTTPCode() int {
	switch e.kind {
	case KindDeadlineExceeded, KindTimeout:
		return http.StatusGatewayTimeout
	case KindNotInitialized:
		return http.StatusServiceUnavailable
	case KindMethodNotHandled:
		return http.StatusNotFound
	case KindNotImplemented:
		return http.StatusNotImplemented
	case KindInvalidParameter, KindDeser:
		return http.StatusBadRequest
	case KindHostError, KindNats:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GRPCStatus returns the gRPC status matching the kind.
// This method allows Error to comply with the interface expected by status.FromError().
func (e *Error) GRPCStatus() *grpcStatus.Status {
	var code grpcCodes.Code
	switch e.kind {
	case KindDeadlineExceeded, KindTimeout:
		code = grpcCodes.DeadlineExceeded
	case KindNotInitialized, KindHostError, KindNats:
		code = grpcCodes.Unavailable
	case KindMethodNotHandled, KindNotImplemented:
		code = grpcCodes.Unimplemented
	case KindInvalidParameter, KindDeser:
		code = grpcCodes.InvalidArgument
	case KindSer, KindProviderInit:
		code = grpcCodes.Internal
	default:
		code = grpcCodes.Unknown
	}
	return grpcStatus.New(code, e.Error())
}

// KindOf returns the kind of err, KindUnknown when err is nil and KindOther
// when err is not an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.kind
	}
	return KindOther
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.kind == kind
}
