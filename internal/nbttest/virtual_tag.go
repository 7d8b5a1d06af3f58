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

// Package nbttest provides an in-memory tag simulator implementing the
// nbt.Transport contract, used by the root package's external tests and by
// integration-style tests of the transports.
package nbttest

import (
	"bytes"
	"context"
	"errors"
	"time"

	nbt "github.com/ZaparooProject/go-nbt"
)

// NDEFFileSize is the capacity of the simulated NDEF file.
const NDEFFileSize = 2048

var aidNDEF = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}

// ErrClosed is returned once the virtual tag's transport is closed.
var ErrClosed = errors.New("nbttest: transport closed")

// Exchange records one APDU exchange for test assertions.
type Exchange struct {
	Command  []byte
	Response []byte
}

// VirtualTag is an in-memory tag: a file store keyed by file identifier,
// a configuration tag store, and enough APDU handling to serve select,
// read binary, update binary and get/set configuration.
type VirtualTag struct {
	Files    map[uint16][]byte
	Config   map[uint16][]byte
	Log      []Exchange
	FailNext error
	selected uint16
	timeout  time.Duration
	closed   bool
}

// NewVirtualTag creates a tag with empty CC, NDEF and FAP files.
func NewVirtualTag() *VirtualTag {
	return &VirtualTag{
		Files: map[uint16][]byte{
			nbt.FileCC:   make([]byte, 32),
			nbt.FileNDEF: make([]byte, NDEFFileSize),
			nbt.FileFAP:  {},
		},
		Config:  make(map[uint16][]byte),
		timeout: time.Second,
	}
}

// Transmit handles one command APDU.
func (v *VirtualTag) Transmit(apdu []byte) ([]byte, error) {
	if v.closed {
		return nil, ErrClosed
	}
	if v.FailNext != nil {
		err := v.FailNext
		v.FailNext = nil
		return nil, err
	}

	resp := v.handle(apdu)
	v.Log = append(v.Log, Exchange{
		Command:  append([]byte(nil), apdu...),
		Response: append([]byte(nil), resp...),
	})
	return resp, nil
}

// TransmitWithContext handles one command APDU with context support.
func (v *VirtualTag) TransmitWithContext(ctx context.Context, apdu []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return v.Transmit(apdu)
}

// Close marks the transport closed.
func (v *VirtualTag) Close() error {
	v.closed = true
	return nil
}

// SetTimeout records the exchange timeout.
func (v *VirtualTag) SetTimeout(timeout time.Duration) error {
	v.timeout = timeout
	return nil
}

// IsConnected reports whether the transport is open.
func (v *VirtualTag) IsConnected() bool {
	return !v.closed
}

// Type returns the mock transport type.
func (v *VirtualTag) Type() nbt.TransportType {
	return nbt.TransportMock
}

func status(sw uint16) []byte {
	return []byte{byte(sw >> 8), byte(sw)}
}

func (v *VirtualTag) handle(apdu []byte) []byte {
	if len(apdu) < 4 {
		return status(nbt.SWWrongLength)
	}
	ins, p1, p2 := apdu[1], apdu[2], apdu[3]
	body := apdu[4:]

	switch ins {
	case 0xA4:
		return v.handleSelect(p1, body)
	case 0xB0:
		return v.handleReadBinary(p1, p2, body)
	case 0xD6:
		return v.handleUpdateBinary(p1, p2, body)
	case 0x30:
		return v.handleGetConfig(p1, p2)
	case 0x20:
		return v.handleSetConfig(body)
	default:
		return status(nbt.SWInsNotSupported)
	}
}

// parseData strips the Lc prefix and optional trailing Le from a case 3/4
// body.
func parseData(body []byte) ([]byte, bool) {
	if len(body) < 1 {
		return nil, false
	}
	lc := int(body[0])
	switch len(body) {
	case 1 + lc, 1 + lc + 1:
		return body[1 : 1+lc], true
	default:
		return nil, false
	}
}

func (v *VirtualTag) handleSelect(p1 byte, body []byte) []byte {
	data, ok := parseData(body)
	if !ok {
		return status(nbt.SWWrongLength)
	}

	if p1 == 0x04 {
		if !bytes.Equal(data, aidNDEF) {
			return status(nbt.SWFileNotFound)
		}
		return status(nbt.SWSuccess)
	}

	if len(data) != 2 {
		return status(nbt.SWWrongLength)
	}
	fileID := uint16(data[0])<<8 | uint16(data[1])
	if _, exists := v.Files[fileID]; !exists {
		return status(nbt.SWFileNotFound)
	}
	v.selected = fileID
	return status(nbt.SWSuccess)
}

func (v *VirtualTag) handleReadBinary(p1, p2 byte, body []byte) []byte {
	file, exists := v.Files[v.selected]
	if !exists {
		return status(nbt.SWFileNotFound)
	}
	if len(body) != 1 {
		return status(nbt.SWWrongLength)
	}
	length := int(body[0])
	if length == 0 {
		length = 256
	}

	offset := int(p1)<<8 | int(p2)
	if offset > len(file) {
		return status(nbt.SWWrongP1P2)
	}
	if offset+length > len(file) {
		length = len(file) - offset
	}

	out := make([]byte, 0, length+2)
	out = append(out, file[offset:offset+length]...)
	return append(out, status(nbt.SWSuccess)...)
}

func (v *VirtualTag) handleUpdateBinary(p1, p2 byte, body []byte) []byte {
	file, exists := v.Files[v.selected]
	if !exists {
		return status(nbt.SWFileNotFound)
	}
	data, ok := parseData(body)
	if !ok {
		return status(nbt.SWWrongLength)
	}

	offset := int(p1)<<8 | int(p2)
	if offset+len(data) > len(file) {
		// The FAP file grows with its table.
		if v.selected != nbt.FileFAP {
			return status(nbt.SWWrongP1P2)
		}
		grown := make([]byte, offset+len(data))
		copy(grown, file)
		file = grown
		v.Files[v.selected] = file
	}
	copy(file[offset:], data)
	return status(nbt.SWSuccess)
}

func (v *VirtualTag) handleGetConfig(p1, p2 byte) []byte {
	tag := uint16(p1)<<8 | uint16(p2)
	value, exists := v.Config[tag]
	if !exists {
		return status(nbt.SWFileNotFound)
	}

	// 2-byte tag, 1-byte length TLV unit.
	out := make([]byte, 0, 3+len(value)+2)
	out = append(out, p1, p2, byte(len(value)))
	out = append(out, value...)
	return append(out, status(nbt.SWSuccess)...)
}

func (v *VirtualTag) handleSetConfig(body []byte) []byte {
	data, ok := parseData(body)
	if !ok || len(data) < 3 {
		return status(nbt.SWWrongLength)
	}
	tag := uint16(data[0])<<8 | uint16(data[1])
	length := int(data[2])
	if len(data) != 3+length {
		return status(nbt.SWWrongLength)
	}
	v.Config[tag] = append([]byte(nil), data[3:]...)
	return status(nbt.SWSuccess)
}
