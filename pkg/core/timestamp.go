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

package core

import (
	"time"

	rpcerrors "github.com/dapr/wasmbus/pkg/errors"
)

// Timestamp is a UTC time with nanosecond precision, in the form used by
// interface payloads.
type Timestamp struct {
	Sec  int64  `json:"sec" codec:"sec" cbor:"sec"`
	Nsec uint32 `json:"nsec" codec:"nsec" cbor:"nsec"`
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return TimestampFromTime(time.Now())
}

// TimestampFromTime converts t.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{Sec: t.Unix(), Nsec: uint32(t.Nanosecond())}
}

// NewTimestamp validates the nanosecond part.
func NewTimestamp(sec int64, nsec uint32) (Timestamp, error) {
	if nsec >= uint32(time.Second) {
		return Timestamp{}, rpcerrors.InvalidParameter("nanoseconds out of range")
	}
	return Timestamp{Sec: sec, Nsec: nsec}, nil
}

// AsTime returns the timestamp as a UTC time.Time.
func (t Timestamp) AsTime() time.Time {
	return time.Unix(t.Sec, int64(t.Nsec)).UTC()
}

// Before reports whether t is earlier than o.
func (t Timestamp) Before(o Timestamp) bool {
	return t.Sec < o.Sec || (t.Sec == o.Sec && t.Nsec < o.Nsec)
}

func (t Timestamp) String() string {
	return t.AsTime().Format(time.RFC3339Nano)
}
