// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nbt

import (
	"errors"
	"fmt"
)

// Error categories. Wire-data errors mean the input bytes are malformed and
// the operation on that data is unrecoverable; misuse errors mean the caller
// built an invalid value and should be treated as a programming fault.
var (
	// Transport errors - opaque at this layer, never retried here
	ErrTransportClosed   = errors.New("transport is closed")
	ErrTransportFailed   = errors.New("transport exchange failed")
	ErrTransportNotReady = errors.New("transport not ready")

	// APDU wire errors
	ErrResponseTooShort = errors.New("response shorter than status word")
	ErrMalformedCommand = errors.New("malformed command APDU")

	// APDU misuse errors
	ErrDataTooLarge = errors.New("command data exceeds short-form limit")
	ErrInvalidLe    = errors.New("expected length out of range")

	// File access policy errors
	ErrInvalidTableLength     = errors.New("access policy table length not a multiple of row size")
	ErrInvalidAccessCondition = errors.New("invalid access condition")
)

// TransportError wraps transport-level failures with operation context.
type TransportError struct {
	Err  error  // Underlying error
	Op   string // Operation that failed
	Port string // Port or device identifier
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with context.
func NewTransportError(op, port string, err error) *TransportError {
	return &TransportError{Op: op, Port: port, Err: err}
}

// StatusError reports a non-success APDU status word.
type StatusError struct {
	SW1 byte
	SW2 byte
}

func (e *StatusError) Error() string {
	if desc, ok := statusDescriptions[e.SW()]; ok {
		return fmt.Sprintf("status %04X: %s", e.SW(), desc)
	}
	return fmt.Sprintf("status %04X", e.SW())
}

// SW returns the combined status word.
func (e *StatusError) SW() uint16 {
	return uint16(e.SW1)<<8 | uint16(e.SW2)
}

// Well-known ISO 7816-4 status words.
const (
	SWSuccess                uint16 = 0x9000
	SWWrongLength            uint16 = 0x6700
	SWSecurityNotSatisfied   uint16 = 0x6982
	SWConditionsNotSatisfied uint16 = 0x6985
	SWWrongData              uint16 = 0x6A80
	SWFileNotFound           uint16 = 0x6A82
	SWWrongP1P2              uint16 = 0x6A86
	SWInsNotSupported        uint16 = 0x6D00
	SWClaNotSupported        uint16 = 0x6E00
)

var statusDescriptions = map[uint16]string{
	SWWrongLength:            "wrong length",
	SWSecurityNotSatisfied:   "security status not satisfied",
	SWConditionsNotSatisfied: "conditions of use not satisfied",
	SWWrongData:              "incorrect data field",
	SWFileNotFound:           "file or application not found",
	SWWrongP1P2:              "incorrect P1 or P2",
	SWInsNotSupported:        "instruction not supported",
	SWClaNotSupported:        "class not supported",
}

// IsStatus reports whether err is a StatusError carrying the given status
// word.
func IsStatus(err error, sw uint16) bool {
	var se *StatusError
	return errors.As(err, &se) && se.SW() == sw
}
