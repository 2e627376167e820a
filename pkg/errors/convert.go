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
	"errors"
	"fmt"
)

// From converts any error into an *Error. Existing *Error values are
// returned as they are, context deadline expiry becomes Timeout and every
// other error is kept as Other with its message.
func From(err error) error {
	if err == nil {
		return nil
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout(err.Error())
	case errors.Is(err, context.Canceled):
		return Rpc("request canceled: " + err.Error())
	default:
		return Other(err.Error())
	}
}

// FromIO converts an I/O error.
func FromIO(err error) error {
	if err == nil {
		return nil
	}
	return Other(fmt.Sprintf("io: %s", err))
}

// FromEncode converts an encoder failure of the named format, for example
// "msgpack" or "cbor".
func FromEncode(format string, err error) error {
	if err == nil {
		return nil
	}
	return Ser(fmt.Sprintf("%s-encode: %s", format, err))
}

// FromDecode converts a decoder failure of the named format.
func FromDecode(format string, err error) error {
	if err == nil {
		return nil
	}
	return Deser(fmt.Sprintf("%s-decode: %s", format, err))
}
