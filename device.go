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

// Package nbt is a host library for NFC bridge tags exposing an ISO 7816-4
// command surface: a type 4 tag NDEF application, a file access policy
// table, and configuration tags. The wire codecs live in pkg/ndef, pkg/tlv
// and this package; Device sequences them over a Transport.
package nbt

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/go-nbt/pkg/ndef"
)

// Well-known file identifiers on the tag.
const (
	FileCC   uint16 = 0xE103 // capability container
	FileNDEF uint16 = 0xE104 // NDEF message file
	FileFAP  uint16 = 0xE1AF // file access policy table
)

// aidNDEF is the NFC Forum type 4 tag application identifier.
var aidNDEF = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}

// ISO 7816-4 instructions used by the command layer.
const (
	insSelect       byte = 0xA4
	insReadBinary   byte = 0xB0
	insUpdateBinary byte = 0xD6
)

// Largest data field read or written per APDU exchange.
const maxChunk = 255

// ndefLenSize is the NLEN prefix ahead of the message in the NDEF file.
const ndefLenSize = 2

// Device drives a tag through a Transport. All methods are synchronous;
// the zero value is not usable, construct with New.
type Device struct {
	transport Transport
	registry  *ndef.Registry
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithRegistry substitutes the payload codec registry used when decoding
// NDEF messages read from the tag. The default is ndef.WellKnown().
func WithRegistry(reg *ndef.Registry) DeviceOption {
	return func(d *Device) { d.registry = reg }
}

// New creates a Device over transport.
func New(transport Transport, opts ...DeviceOption) *Device {
	d := &Device{
		transport: transport,
		registry:  ndef.WellKnown(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the payload codec registry this device decodes with.
func (d *Device) Registry() *ndef.Registry {
	return d.registry
}

// Close closes the underlying transport.
func (d *Device) Close() error {
	return d.transport.Close()
}

// Exchange sends one command and parses the response envelope. The status
// word is returned inside Response; use Execute for commands where anything
// but 9000 is a failure.
func (d *Device) Exchange(cmd Command) (Response, error) {
	return d.ExchangeWithContext(context.Background(), cmd)
}

// ExchangeWithContext is Exchange with context support.
func (d *Device) ExchangeWithContext(ctx context.Context, cmd Command) (Response, error) {
	raw, err := cmd.Marshal()
	if err != nil {
		return Response{}, err
	}
	Debugf("TX % X", raw)

	respBytes, err := d.transport.TransmitWithContext(ctx, raw)
	if err != nil {
		return Response{}, fmt.Errorf("transmit INS %02X: %w", cmd.INS, err)
	}
	Debugf("RX % X", respBytes)

	return ParseResponse(respBytes)
}

// Execute sends one command and fails on any non-success status word.
func (d *Device) Execute(cmd Command) ([]byte, error) {
	return d.ExecuteWithContext(context.Background(), cmd)
}

// ExecuteWithContext is Execute with context support.
func (d *Device) ExecuteWithContext(ctx context.Context, cmd Command) ([]byte, error) {
	resp, err := d.ExchangeWithContext(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := resp.Status(); err != nil {
		return nil, fmt.Errorf("INS %02X: %w", cmd.INS, err)
	}
	return resp.Data, nil
}

// SelectApplication selects the NDEF tag application by its AID.
func (d *Device) SelectApplication() error {
	_, err := d.Execute(Command{
		INS:  insSelect,
		P1:   0x04, // select by AID
		P2:   0x0C, // no response data
		Data: aidNDEF,
	})
	return err
}

// SelectFile selects a file by its 2-byte identifier.
func (d *Device) SelectFile(fileID uint16) error {
	_, err := d.Execute(Command{
		INS:  insSelect,
		P2:   0x0C,
		Data: []byte{byte(fileID >> 8), byte(fileID)},
	})
	return err
}

// ReadBinary reads up to maxChunk bytes of the selected file at offset.
func (d *Device) ReadBinary(offset uint16, length int) ([]byte, error) {
	if length < 1 || length > LeAny {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLe, length)
	}
	return d.Execute(Command{
		INS: insReadBinary,
		P1:  byte(offset >> 8),
		P2:  byte(offset),
		Le:  length,
	})
}

// readAll reads exactly length bytes starting at offset, chunking as
// needed. Chunks past the 16-bit file address space fail rather than wrap.
func (d *Device) readAll(offset, length int) ([]byte, error) {
	out := make([]byte, 0, length)
	for length > 0 {
		if offset > 0xFFFF {
			return nil, fmt.Errorf("%w: read offset %d", ErrDataTooLarge, offset)
		}
		n := length
		if n > maxChunk {
			n = maxChunk
		}
		chunk, err := d.ReadBinary(uint16(offset), n)
		if err != nil {
			return nil, err
		}
		if len(chunk) != n {
			return nil, fmt.Errorf("%w: asked %d bytes at offset %d, got %d",
				ErrResponseTooShort, n, offset, len(chunk))
		}
		out = append(out, chunk...)
		offset += n
		length -= n
	}
	return out, nil
}

// UpdateBinary writes data into the selected file at offset, chunking as
// needed. Chunks past the 16-bit file address space fail rather than wrap.
func (d *Device) UpdateBinary(offset uint16, data []byte) error {
	off := int(offset)
	for len(data) > 0 {
		if off > 0xFFFF {
			return fmt.Errorf("%w: write offset %d", ErrDataTooLarge, off)
		}
		n := len(data)
		if n > maxChunk {
			n = maxChunk
		}
		_, err := d.Execute(Command{
			INS:  insUpdateBinary,
			P1:   byte(off >> 8),
			P2:   byte(off),
			Data: data[:n],
		})
		if err != nil {
			return err
		}
		off += n
		data = data[n:]
	}
	return nil
}

// ReadNDEFMessage selects and reads the NDEF file, then decodes the message
// and its typed payloads with the device's registry.
func (d *Device) ReadNDEFMessage() (*ndef.Message, []ndef.Payload, error) {
	if err := d.SelectFile(FileNDEF); err != nil {
		return nil, nil, err
	}

	lenBytes, err := d.ReadBinary(0, ndefLenSize)
	if err != nil {
		return nil, nil, err
	}
	if len(lenBytes) < ndefLenSize {
		return nil, nil, fmt.Errorf("%w: NLEN field", ErrResponseTooShort)
	}
	nlen := int(lenBytes[0])<<8 | int(lenBytes[1])
	if nlen == 0 {
		return nil, nil, ndef.ErrEmptyMessage
	}

	raw, err := d.readAll(ndefLenSize, nlen)
	if err != nil {
		return nil, nil, err
	}
	return d.registry.DecodeMessage(raw)
}

// WriteNDEFMessage marshals msg into the NDEF file. The length prefix is
// zeroed first and written last, so a tear mid-update leaves the file
// reading as empty rather than as a truncated message.
func (d *Device) WriteNDEFMessage(msg *ndef.Message) error {
	raw, err := msg.Marshal()
	if err != nil {
		return err
	}
	if len(raw) > 0xFFFF-ndefLenSize {
		return fmt.Errorf("%w: message is %d bytes", ErrDataTooLarge, len(raw))
	}

	if err := d.SelectFile(FileNDEF); err != nil {
		return err
	}
	if err := d.UpdateBinary(0, []byte{0x00, 0x00}); err != nil {
		return err
	}
	if err := d.UpdateBinary(ndefLenSize, raw); err != nil {
		return err
	}
	return d.UpdateBinary(0, []byte{byte(len(raw) >> 8), byte(len(raw))})
}

// ReadFileAccessPolicy selects and decodes the tag's access policy table.
func (d *Device) ReadFileAccessPolicy() ([]FileAccess, error) {
	if err := d.SelectFile(FileFAP); err != nil {
		return nil, err
	}
	data, err := d.Execute(Command{INS: insReadBinary, Le: LeAny})
	if err != nil {
		return nil, err
	}
	return DecodeFileAccessTable(data)
}

// WriteFileAccessPolicy encodes rows and writes the access policy table.
func (d *Device) WriteFileAccessPolicy(rows []FileAccess) error {
	data, err := EncodeFileAccessTable(rows)
	if err != nil {
		return err
	}
	if err := d.SelectFile(FileFAP); err != nil {
		return err
	}
	return d.UpdateBinary(0, data)
}

// GetConfiguration reads one configuration tag.
func (d *Device) GetConfiguration(tag uint16) (Setting, error) {
	data, err := d.Execute(BuildGetConfiguration(tag))
	if err != nil {
		return Setting{}, err
	}
	return ParseConfigurationResponse(tag, data)
}

// SetConfiguration writes one configuration tag.
func (d *Device) SetConfiguration(setting Setting) error {
	cmd, err := BuildSetConfiguration(setting)
	if err != nil {
		return err
	}
	_, err = d.Execute(cmd)
	return err
}
