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

//go:build wasip1

package actor

import (
	"unsafe"
)

//go:wasmimport wasmbus __guest_request
func guestRequest(opPtr, ptr unsafe.Pointer)

//go:wasmimport wasmbus __guest_response
func guestResponse(ptr unsafe.Pointer, size uint32)

//go:wasmimport wasmbus __guest_error
func guestError(ptr unsafe.Pointer, size uint32)

//go:wasmimport wasmbus __host_call
func hostCall(bdPtr unsafe.Pointer, bdLen uint32, nsPtr unsafe.Pointer, nsLen uint32, opPtr unsafe.Pointer, opLen uint32, ptr unsafe.Pointer, size uint32) uint32

//go:wasmimport wasmbus __host_response_len
func hostResponseLen() uint32

//go:wasmimport wasmbus __host_response
func hostResponse(ptr unsafe.Pointer)

//go:wasmimport wasmbus __host_error_len
func hostErrorLen() uint32

//go:wasmimport wasmbus __host_error
func hostError(ptr unsafe.Pointer)

//go:wasmimport wasmbus __console_log
func consoleLog(ptr unsafe.Pointer, size uint32)

func bytesPtr(b []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(b))
}

func stringPtr(s string) unsafe.Pointer {
	return unsafe.Pointer(unsafe.StringData(s))
}

//go:wasmexport __guest_call
func guestCall(opLen, msgLen uint32) uint32 {
	op := make([]byte, opLen)
	msg := make([]byte, msgLen)
	guestRequest(bytesPtr(op), bytesPtr(msg))

	res, err := HandleCall(string(op), msg)
	if err != nil {
		b := EncodeError(err)
		guestError(bytesPtr(b), uint32(len(b)))
		return 0
	}
	guestResponse(bytesPtr(res), uint32(len(res)))
	return 1
}

type wasmABI struct{}

func defaultABI() hostABI {
	return wasmABI{}
}

func (wasmABI) HostCall(binding, namespace, operation string, payload []byte) ([]byte, error) {
	ok := hostCall(
		stringPtr(binding), uint32(len(binding)),
		stringPtr(namespace), uint32(len(namespace)),
		stringPtr(operation), uint32(len(operation)),
		bytesPtr(payload), uint32(len(payload)),
	)
	if ok != 1 {
		b := make([]byte, hostErrorLen())
		hostError(bytesPtr(b))
		return nil, DecodeError(b)
	}
	b := make([]byte, hostResponseLen())
	hostResponse(bytesPtr(b))
	return b, nil
}

func (wasmABI) ConsoleLog(msg string) {
	consoleLog(stringPtr(msg), uint32(len(msg)))
}
