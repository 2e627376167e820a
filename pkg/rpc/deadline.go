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

package rpc

import (
	"context"
	"errors"
	"time"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

// EffectiveDeadline returns the earliest of the context deadline, the call
// deadline and now plus the per-call timeout (or defaultTimeout when opts
// carries none). ok is false when there is no deadline at all.
func EffectiveDeadline(ctx context.Context, rc *Context, opts *SendOpts, defaultTimeout time.Duration, now time.Time) (deadline time.Time, ok bool) {
	consider := func(t time.Time) {
		if !t.IsZero() && (deadline.IsZero() || t.Before(deadline)) {
			deadline = t
		}
	}

	if d, has := ctx.Deadline(); has {
		consider(d)
	}
	if rc != nil {
		consider(rc.Deadline)
	}
	switch {
	case opts != nil && opts.Timeout > 0:
		consider(now.Add(opts.Timeout))
	case defaultTimeout > 0:
		consider(now.Add(defaultTimeout))
	}

	return deadline, !deadline.IsZero()
}

// CheckDeadline fails with DeadlineExceeded when deadline is not after now.
func CheckDeadline(deadline time.Time, now time.Time) error {
	if !deadline.IsZero() && !deadline.After(now) {
		return rpcerrors.DeadlineExceeded("deadline " + deadline.UTC().Format(time.RFC3339Nano) + " has passed")
	}
	return nil
}

// WithCallDeadline derives a context bounded by the effective deadline of the
// call. It fails with DeadlineExceeded when that deadline has already passed,
// in which case the call must not be sent.
func WithCallDeadline(ctx context.Context, rc *Context, opts *SendOpts, defaultTimeout time.Duration) (context.Context, context.CancelFunc, error) {
	now := time.Now()
	deadline, ok := EffectiveDeadline(ctx, rc, opts, defaultTimeout, now)
	if !ok {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	if err := CheckDeadline(deadline, now); err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithDeadline(ctx, deadline)
	return ctx, cancel, nil
}

// InFlightError converts an error returned while a call was in flight. An
// expired call context becomes Timeout; everything else goes through errors.From.
func InFlightError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return rpcerrors.Timeout(err.Error())
	}
	return rpcerrors.From(err)
}
