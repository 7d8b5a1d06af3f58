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

// Package i2c exchanges APDUs with a tag over its I2C host interface.
// Frames carry a 2-byte big-endian length prefix ahead of the APDU in both
// directions; the tag signals "response not ready" with a zero prefix,
// which the transport polls through until its timeout.
package i2c

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	nbt "github.com/ZaparooProject/go-nbt"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// Default 7-bit tag address on the I2C host interface.
	tagAddr = 0x18

	// lenPrefixSize is the big-endian length prefix ahead of each frame.
	lenPrefixSize = 2

	// maxFrameSize bounds a single frame: a short APDU plus its prefix.
	maxFrameSize = lenPrefixSize + 261

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	// Delay between readiness polls while the tag prepares a response.
	pollInterval = 2 * time.Millisecond
)

// Transport implements the nbt.Transport interface for I2C communication.
type Transport struct {
	dev     *i2c.Dev
	bus     i2c.BusCloser // Held so Close() can release the OS file descriptor
	busName string
	timeout time.Duration
	mu      sync.Mutex
}

// parseI2CPath extracts the bus path from a composite detection path.
// Accepts "/dev/i2c-1:0x18" (detection format) or "/dev/i2c-1" (bare bus).
func parseI2CPath(path string) string {
	bus, _, _ := strings.Cut(path, ":")
	return bus
}

// New creates a new I2C transport on busName.
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(parseI2CPath(busName))
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	dev := &i2c.Dev{Addr: tagAddr, Bus: bus}

	// Ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	return &Transport{
		dev:     dev,
		bus:     bus,
		busName: busName,
		timeout: 100 * time.Millisecond,
	}, nil
}

// sleepCtx performs a context-aware sleep. Returns ctx.Err() if context is
// cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transmit sends one command APDU and reads the response frame.
func (t *Transport) Transmit(apdu []byte) ([]byte, error) {
	return t.TransmitWithContext(context.Background(), apdu)
}

// TransmitWithContext sends one command APDU with context support. The
// context is checked between bus transactions; an in-flight transaction is
// never interrupted.
func (t *Transport) TransmitWithContext(ctx context.Context, apdu []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil, nbt.NewTransportError("transmit", t.busName, nbt.ErrTransportClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := t.writeFrame(apdu); err != nil {
		return nil, err
	}
	return t.readFrame(ctx)
}

// SetTimeout sets the response poll timeout for the transport.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close closes the transport connection and releases the I2C bus file
// descriptor.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bus != nil {
		if err := t.bus.Close(); err != nil {
			return fmt.Errorf("failed to close I2C bus: %w", err)
		}
		t.bus = nil
	}
	t.dev = nil
	return nil
}

// IsConnected returns true if the transport is connected.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

// Type returns the transport type.
func (*Transport) Type() nbt.TransportType {
	return nbt.TransportI2C
}

func (t *Transport) writeFrame(apdu []byte) error {
	if lenPrefixSize+len(apdu) > maxFrameSize {
		return nbt.NewTransportError("writeFrame", t.busName, nbt.ErrTransportFailed)
	}

	frm := make([]byte, lenPrefixSize+len(apdu))
	frm[0] = byte(len(apdu) >> 8)
	frm[1] = byte(len(apdu))
	copy(frm[lenPrefixSize:], apdu)

	if err := t.dev.Tx(frm, nil); err != nil {
		return nbt.NewTransportError("writeFrame", t.busName,
			fmt.Errorf("%w: %w", nbt.ErrTransportFailed, err))
	}
	return nil
}

// readFrame polls the tag's length prefix until it reports a ready
// response, then reads the frame body in one transaction.
func (t *Transport) readFrame(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	prefix := make([]byte, lenPrefixSize)

	for {
		if err := t.dev.Tx(nil, prefix); err != nil {
			return nil, nbt.NewTransportError("readFrame", t.busName,
				fmt.Errorf("%w: %w", nbt.ErrTransportFailed, err))
		}

		frameLen := int(prefix[0])<<8 | int(prefix[1])
		if frameLen > 0 {
			if lenPrefixSize+frameLen > maxFrameSize {
				return nil, nbt.NewTransportError("readFrame", t.busName,
					fmt.Errorf("%w: frame length %d", nbt.ErrTransportFailed, frameLen))
			}
			return t.readBody(frameLen)
		}

		if time.Now().After(deadline) {
			return nil, nbt.NewTransportError("readFrame", t.busName, nbt.ErrTransportNotReady)
		}
		if err := sleepCtx(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
}

// readBody reads the prefix and body together so the tag's read pointer
// stays frame aligned.
func (t *Transport) readBody(frameLen int) ([]byte, error) {
	buf := make([]byte, lenPrefixSize+frameLen)
	if err := t.dev.Tx(nil, buf); err != nil {
		return nil, nbt.NewTransportError("readBody", t.busName,
			fmt.Errorf("%w: %w", nbt.ErrTransportFailed, err))
	}
	return buf[lenPrefixSize:], nil
}

// Ensure Transport implements nbt.Transport.
var _ nbt.Transport = (*Transport)(nil)
