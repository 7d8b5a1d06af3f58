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

// Package serial exchanges APDUs with a tag bridge over a serial port.
// Each APDU rides in a 2-byte big-endian length-prefixed frame; responses
// come back the same way.
package serial

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	nbt "github.com/ZaparooProject/go-nbt"
	"go.bug.st/serial"
)

const (
	// lenPrefixSize is the big-endian length prefix ahead of each frame.
	lenPrefixSize = 2

	// maxFrameSize bounds a single frame: a short APDU plus its prefix.
	maxFrameSize = lenPrefixSize + 261

	defaultReadTimeout = 50 * time.Millisecond
	responseDeadline   = 2 * time.Second
)

// Transport implements the nbt.Transport interface for serial bridges.
type Transport struct {
	port     serial.Port
	portName string
	mu       sync.Mutex
}

// New opens portName at 115200 8N1 and returns a transport over it.
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(defaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set serial read timeout: %w", err)
	}

	return &Transport{
		port:     port,
		portName: portName,
	}, nil
}

// Transmit sends one command APDU and reads the response frame.
func (t *Transport) Transmit(apdu []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeFrame(apdu); err != nil {
		return nil, err
	}
	return t.readFrame()
}

// TransmitWithContext sends one command APDU with context support.
func (t *Transport) TransmitWithContext(ctx context.Context, apdu []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return t.Transmit(apdu)
}

// SetTimeout sets the read timeout for the transport.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("serial set timeout failed: %w", err)
	}
	return nil
}

// Close closes the transport connection.
func (t *Transport) Close() error {
	if t.port != nil {
		if err := t.port.Close(); err != nil {
			return fmt.Errorf("serial close failed: %w", err)
		}
	}
	return nil
}

// IsConnected returns true if the transport is connected.
func (t *Transport) IsConnected() bool {
	return t.port != nil
}

// Type returns the transport type.
func (*Transport) Type() nbt.TransportType {
	return nbt.TransportSerial
}

// isInterruptedSystemCall checks if an error is caused by an interrupted
// system call.
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry performs port drain with retry logic for interrupted
// system calls.
func (t *Transport) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := t.port.Drain()
		if err == nil {
			return nil
		}

		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt))
			continue
		}

		return fmt.Errorf("serial %s drain failed: %w", operation, err)
	}

	return fmt.Errorf("serial %s drain failed after %d retries", operation, maxRetries)
}

func (t *Transport) writeFrame(apdu []byte) error {
	if lenPrefixSize+len(apdu) > maxFrameSize {
		return nbt.NewTransportError("writeFrame", t.portName, nbt.ErrTransportFailed)
	}

	frm := make([]byte, lenPrefixSize+len(apdu))
	frm[0] = byte(len(apdu) >> 8)
	frm[1] = byte(len(apdu))
	copy(frm[lenPrefixSize:], apdu)

	n, err := t.port.Write(frm)
	if err != nil {
		return fmt.Errorf("serial frame write failed: %w", err)
	} else if n != len(frm) {
		return nbt.NewTransportError("writeFrame", t.portName,
			fmt.Errorf("%w: short write, %d of %d bytes", nbt.ErrTransportFailed, n, len(frm)))
	}

	return t.drainWithRetry("frame")
}

func (t *Transport) readFrame() ([]byte, error) {
	prefix, err := t.readFull(lenPrefixSize)
	if err != nil {
		return nil, err
	}

	frameLen := int(prefix[0])<<8 | int(prefix[1])
	if frameLen == 0 || lenPrefixSize+frameLen > maxFrameSize {
		return nil, nbt.NewTransportError("readFrame", t.portName,
			fmt.Errorf("%w: frame length %d", nbt.ErrTransportFailed, frameLen))
	}

	return t.readFull(frameLen)
}

// readFull reads exactly n bytes, riding out the port's short reads until
// the response deadline.
func (t *Transport) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	deadline := time.After(responseDeadline)

	for got < n {
		select {
		case <-deadline:
			return nil, nbt.NewTransportError("readFull", t.portName, nbt.ErrTransportNotReady)
		default:
			read, err := t.port.Read(buf[got:])
			if err != nil {
				return nil, fmt.Errorf("serial read failed: %w", err)
			}
			if read == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			got += read
		}
	}
	return buf, nil
}

// Ensure Transport implements nbt.Transport.
var _ nbt.Transport = (*Transport)(nil)
