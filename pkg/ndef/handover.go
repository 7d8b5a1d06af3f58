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

package ndef

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-nbt/internal/cursor"
)

// Connection handover record types (NFC Forum Connection Handover spec).
const (
	HandoverSelectType     = "Hs"
	AlternativeCarrierType = "ac"
	HandoverErrorType      = "err"

	// HandoverVersion is the spec version this codec emits: 1.3, packed as
	// major in the high nibble and minor in the low nibble.
	HandoverVersion = 0x13

	cpsMask = 0x03
)

// Carrier power states for alternative carrier records.
const (
	CarrierInactive   byte = 0x00
	CarrierActive     byte = 0x01
	CarrierActivating byte = 0x02
	CarrierUnknown    byte = 0x03
)

// Handover codec errors.
var (
	ErrHandoverPayloadTooShort = errors.New("ndef: handover payload too short")
	ErrHandoverUnexpectedType  = errors.New("ndef: unexpected record type in handover message")
	ErrHandoverErrorNotLast    = errors.New("ndef: handover error record before end of message")
)

// AlternativeCarrierPayload is the decoded "ac" record: a reference to a
// carrier configuration record elsewhere in the enclosing message, plus any
// auxiliary data references.
type AlternativeCarrierPayload struct {
	CarrierDataRef string
	AuxDataRefs    []string
	PowerState     byte
}

// Encode builds the "ac" wire payload.
func (p AlternativeCarrierPayload) Encode() ([]byte, error) {
	if len(p.CarrierDataRef) > 0xFF {
		return nil, fmt.Errorf("%w: carrier data reference %d bytes", ErrMalformedHeader, len(p.CarrierDataRef))
	}
	if len(p.AuxDataRefs) > 0xFF {
		return nil, fmt.Errorf("%w: %d auxiliary references", ErrMalformedHeader, len(p.AuxDataRefs))
	}

	b := cursor.NewBuilder(3 + len(p.CarrierDataRef))
	b.Byte(p.PowerState & cpsMask)
	b.Byte(byte(len(p.CarrierDataRef)))
	b.Bytes([]byte(p.CarrierDataRef))
	b.Byte(byte(len(p.AuxDataRefs)))
	for _, ref := range p.AuxDataRefs {
		if len(ref) > 0xFF {
			return nil, fmt.Errorf("%w: auxiliary reference %d bytes", ErrMalformedHeader, len(ref))
		}
		b.Byte(byte(len(ref)))
		b.Bytes([]byte(ref))
	}
	return b.Build(), nil
}

func decodeAlternativeCarrier(_ *Context, payload []byte) (Payload, error) {
	cur := cursor.New(payload)

	cps, err := cur.ReadByte()
	if err != nil {
		return nil, ErrHandoverPayloadTooShort
	}
	refLen, err := cur.ReadByte()
	if err != nil {
		return nil, ErrHandoverPayloadTooShort
	}
	ref, err := cur.ReadBytes(int(refLen))
	if err != nil {
		return nil, fmt.Errorf("carrier data reference: %w", err)
	}

	auxCount, err := cur.ReadByte()
	if err != nil {
		return nil, ErrHandoverPayloadTooShort
	}
	var auxRefs []string
	for i := 0; i < int(auxCount); i++ {
		auxLen, err := cur.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("auxiliary reference %d: %w", i, err)
		}
		aux, err := cur.ReadBytes(int(auxLen))
		if err != nil {
			return nil, fmt.Errorf("auxiliary reference %d: %w", i, err)
		}
		auxRefs = append(auxRefs, string(aux))
	}

	return AlternativeCarrierPayload{
		PowerState:     cps & cpsMask,
		CarrierDataRef: string(ref),
		AuxDataRefs:    auxRefs,
	}, nil
}

// HandoverErrorPayload is the decoded "err" record carried at the end of a
// handover select message when carrier negotiation failed.
type HandoverErrorPayload struct {
	ErrorData []byte
	Reason    byte
}

// Encode builds the "err" wire payload.
func (p HandoverErrorPayload) Encode() ([]byte, error) {
	b := cursor.NewBuilder(1 + len(p.ErrorData))
	b.Byte(p.Reason)
	b.Bytes(p.ErrorData)
	return b.Build(), nil
}

func decodeHandoverError(_ *Context, payload []byte) (Payload, error) {
	if len(payload) < 1 {
		return nil, ErrHandoverPayloadTooShort
	}
	p := HandoverErrorPayload{Reason: payload[0]}
	if len(payload) > 1 {
		p.ErrorData = make([]byte, len(payload)-1)
		copy(p.ErrorData, payload[1:])
	}
	return p, nil
}

// HandoverSelectPayload is the decoded "Hs" record: a version byte followed
// by a nested NDEF message of alternative carrier records and an optional
// trailing error record.
type HandoverSelectPayload struct {
	Carriers []AlternativeCarrierPayload
	Error    *HandoverErrorPayload
	Version  byte
}

// NewHandoverSelectRecord creates an "Hs" record from carriers and an
// optional error.
func NewHandoverSelectRecord(carriers []AlternativeCarrierPayload, herr *HandoverErrorPayload) (Record, error) {
	payload, err := HandoverSelectPayload{
		Version:  HandoverVersion,
		Carriers: carriers,
		Error:    herr,
	}.Encode()
	if err != nil {
		return Record{}, err
	}
	return Record{
		TNF:     TNFWellKnown,
		Type:    HandoverSelectType,
		Payload: payload,
	}, nil
}

// Encode builds the "Hs" wire payload by marshaling the nested message.
func (p HandoverSelectPayload) Encode() ([]byte, error) {
	version := p.Version
	if version == 0 {
		version = HandoverVersion
	}

	var records []Record
	for i, carrier := range p.Carriers {
		data, err := carrier.Encode()
		if err != nil {
			return nil, fmt.Errorf("carrier %d: %w", i, err)
		}
		records = append(records, Record{
			TNF:     TNFWellKnown,
			Type:    AlternativeCarrierType,
			Payload: data,
		})
	}
	if p.Error != nil {
		data, err := p.Error.Encode()
		if err != nil {
			return nil, fmt.Errorf("error record: %w", err)
		}
		records = append(records, Record{
			TNF:     TNFWellKnown,
			Type:    HandoverErrorType,
			Payload: data,
		})
	}

	nested, err := NewMessage(records...).Marshal()
	if err != nil {
		return nil, err
	}

	b := cursor.NewBuilder(1 + len(nested))
	b.Byte(version)
	b.Bytes(nested)
	return b.Build(), nil
}

func decodeHandoverSelect(ctx *Context, payload []byte) (Payload, error) {
	if len(payload) < 1 {
		return nil, ErrHandoverPayloadTooShort
	}

	msg, payloads, err := ctx.DecodeMessage(payload[1:])
	if err != nil {
		return nil, err
	}

	out := HandoverSelectPayload{Version: payload[0]}
	for i, sub := range payloads {
		switch sub := sub.(type) {
		case AlternativeCarrierPayload:
			if out.Error != nil {
				return nil, ErrHandoverErrorNotLast
			}
			out.Carriers = append(out.Carriers, sub)
		case HandoverErrorPayload:
			if out.Error != nil {
				return nil, ErrHandoverErrorNotLast
			}
			herr := sub
			out.Error = &herr
		default:
			return nil, fmt.Errorf("%w: record %d is TNF 0x%02X %q",
				ErrHandoverUnexpectedType, i, msg.Records[i].TNF, msg.Records[i].Type)
		}
	}
	return out, nil
}
