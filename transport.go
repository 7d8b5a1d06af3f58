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
	"context"
	"time"
)

// Transport carries raw command APDUs to the tag and returns raw response
// APDUs. Implementations exist for the tag's contactless path through a
// serial-attached reader and for its I2C host interface. Transport failures
// are opaque to the codec layer and are never retried here.
type Transport interface {
	// Transmit sends one command APDU and waits for the response APDU
	Transmit(apdu []byte) ([]byte, error)

	// TransmitWithContext sends one command APDU with context support
	TransmitWithContext(ctx context.Context, apdu []byte) ([]byte, error)

	// Close closes the transport connection
	Close() error

	// SetTimeout sets the exchange timeout for the transport
	SetTimeout(timeout time.Duration) error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportSerial represents a serial-attached contactless reader.
	TransportSerial TransportType = "serial"
	// TransportI2C represents the tag's I2C host interface.
	TransportI2C TransportType = "i2c"
	// TransportMock represents a scripted transport for testing
	TransportMock TransportType = "mock"
)
