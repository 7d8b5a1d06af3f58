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

// Package ndef implements the NFC Data Exchange Format message and record
// wire codec, plus an extensible registry mapping record types to typed
// payload codecs. Records are treated as immutable values: decoding produces
// new Record values and nothing in this package mutates a Record after
// construction.
package ndef

import (
	"errors"
	"fmt"
	"math"

	"github.com/ZaparooProject/go-nbt/internal/cursor"
)

// TNF (Type Name Format) values as defined by NFC Forum.
const (
	TNFEmpty       byte = 0x00 // Empty record
	TNFWellKnown   byte = 0x01 // NFC Forum well-known type
	TNFMedia       byte = 0x02 // Media-type (RFC 2046)
	TNFAbsoluteURI byte = 0x03 // Absolute URI (RFC 3986)
	TNFExternal    byte = 0x04 // NFC Forum external type
	TNFUnknown     byte = 0x05 // Unknown
	TNFUnchanged   byte = 0x06 // Unchanged (chunk continuations only)
	TNFReserved    byte = 0x07 // Reserved, never valid on the wire

	tnfMask byte = 0x07
	flagMB  byte = 0x80
	flagME  byte = 0x40
	flagCF  byte = 0x20
	flagSR  byte = 0x10
	flagIL  byte = 0x08

	shortRecordMaxLen = 255
	maxTypeLen        = 255
	maxIDLen          = 255
)

// Wire codec errors.
var (
	ErrEmptyMessage     = errors.New("ndef: empty message")
	ErrMalformedHeader  = errors.New("ndef: malformed record header")
	ErrTruncatedRecord  = errors.New("ndef: truncated record data")
	ErrInvalidTNF       = errors.New("ndef: invalid TNF value")
	ErrChunkedRecord    = errors.New("ndef: chunked records not supported")
	ErrMissingBegin     = errors.New("ndef: first record lacks message begin flag")
	ErrTruncatedMessage = errors.New("ndef: message end flag never seen")
	ErrMessageTooDeep   = errors.New("ndef: nested message exceeds depth limit")
)

// Record is a single NDEF record. Type and ID are byte sequences kept as
// strings so a record's dispatch key is comparable. The mb/me fields hold
// the wire flags observed on decode; on encode the flags are derived from
// the record's position in its message.
type Record struct {
	Type    string
	ID      string
	Payload []byte
	TNF     byte
	mb      bool
	me      bool
}

// MB reports whether the message begin flag was set when this record was
// decoded.
func (r *Record) MB() bool { return r.mb }

// ME reports whether the message end flag was set when this record was
// decoded.
func (r *Record) ME() bool { return r.me }

// Key returns the registry dispatch key for this record.
func (r *Record) Key() TypeKey {
	return TypeKey{TNF: r.TNF, Type: r.Type}
}

// Message is an ordered, non-empty sequence of records. Message begin and
// end flags are a wire-level concern derived from position, not part of the
// logical model.
type Message struct {
	Records []Record
}

// NewMessage builds a message from records.
func NewMessage(records ...Record) *Message {
	return &Message{Records: records}
}

// validate checks the structural constraints shared by encode and decode.
func (r *Record) validate() error {
	switch {
	case r.TNF >= TNFReserved:
		return fmt.Errorf("%w: 0x%02X", ErrInvalidTNF, r.TNF)
	case r.TNF == TNFEmpty && (len(r.Type) != 0 || len(r.ID) != 0 || len(r.Payload) != 0):
		return fmt.Errorf("%w: empty record with non-empty type, id or payload", ErrMalformedHeader)
	case r.TNF == TNFUnchanged:
		// Unchanged is only meaningful inside a chunk sequence, which this
		// codec rejects up front.
		if len(r.Type) != 0 {
			return fmt.Errorf("%w: unchanged record with non-empty type", ErrMalformedHeader)
		}
		return fmt.Errorf("%w: unchanged record outside a chunk sequence", ErrChunkedRecord)
	case len(r.Type) > maxTypeLen:
		return fmt.Errorf("%w: type length %d exceeds %d", ErrMalformedHeader, len(r.Type), maxTypeLen)
	case len(r.ID) > maxIDLen:
		return fmt.Errorf("%w: id length %d exceeds %d", ErrMalformedHeader, len(r.ID), maxIDLen)
	case len(r.Payload) > math.MaxUint32:
		return fmt.Errorf("%w: payload length %d exceeds 32 bits", ErrMalformedHeader, len(r.Payload))
	}
	return nil
}

// Marshal serializes the record standalone, reusing the flags observed when
// it was decoded. Records built programmatically encode with both flags
// clear; use Message.Marshal to frame records into a message.
func (r *Record) Marshal() ([]byte, error) {
	return r.marshal(r.mb, r.me)
}

func (r *Record) marshal(mb, me bool) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	payloadLen := len(r.Payload)
	short := payloadLen <= shortRecordMaxLen

	flags := r.TNF & tnfMask
	if mb {
		flags |= flagMB
	}
	if me {
		flags |= flagME
	}
	if short {
		flags |= flagSR
	}
	if len(r.ID) > 0 {
		flags |= flagIL
	}

	b := cursor.NewBuilder(7 + len(r.Type) + len(r.ID) + payloadLen)
	b.Byte(flags)
	b.Byte(byte(len(r.Type)))
	if short {
		b.Byte(byte(payloadLen))
	} else {
		b.Uint32(uint32(payloadLen))
	}
	if len(r.ID) > 0 {
		b.Byte(byte(len(r.ID)))
	}
	b.Bytes([]byte(r.Type))
	b.Bytes([]byte(r.ID))
	b.Bytes(r.Payload)
	return b.Build(), nil
}

// Unmarshal parses a single record from the start of data and returns the
// number of bytes consumed. A failed parse leaves the receiver unmodified.
func (r *Record) Unmarshal(data []byte) (int, error) {
	cur := cursor.New(data)
	rec, err := decodeRecord(cur)
	if err != nil {
		return 0, err
	}
	*r = rec
	return cur.Offset(), nil
}

func decodeRecord(cur *cursor.Cursor) (Record, error) {
	flags, err := cur.ReadByte()
	if err != nil {
		return Record{}, fmt.Errorf("%w: missing header byte", ErrTruncatedRecord)
	}

	if flags&flagCF != 0 {
		return Record{}, ErrChunkedRecord
	}

	rec := Record{
		TNF: flags & tnfMask,
		mb:  flags&flagMB != 0,
		me:  flags&flagME != 0,
	}
	short := flags&flagSR != 0
	hasID := flags&flagIL != 0

	typeLen, err := cur.ReadByte()
	if err != nil {
		return Record{}, fmt.Errorf("%w: missing type length", ErrTruncatedRecord)
	}

	var payloadLen uint32
	if short {
		b, readErr := cur.ReadByte()
		if readErr != nil {
			return Record{}, fmt.Errorf("%w: missing payload length", ErrTruncatedRecord)
		}
		payloadLen = uint32(b)
	} else {
		v, readErr := cur.ReadUint32()
		if readErr != nil {
			return Record{}, fmt.Errorf("%w: missing payload length", ErrTruncatedRecord)
		}
		payloadLen = v
	}

	var idLen byte
	if hasID {
		idLen, err = cur.ReadByte()
		if err != nil {
			return Record{}, fmt.Errorf("%w: missing id length", ErrTruncatedRecord)
		}
	}

	typeBytes, err := cur.ReadBytes(int(typeLen))
	if err != nil {
		return Record{}, fmt.Errorf("%w: type field", ErrTruncatedRecord)
	}
	idBytes, err := cur.ReadBytes(int(idLen))
	if err != nil {
		return Record{}, fmt.Errorf("%w: id field", ErrTruncatedRecord)
	}
	payload, err := cur.ReadBytes(int(payloadLen))
	if err != nil {
		return Record{}, fmt.Errorf("%w: payload of %d bytes, %d remain",
			ErrTruncatedRecord, payloadLen, cur.Remaining())
	}

	rec.Type = string(typeBytes)
	rec.ID = string(idBytes)
	if len(payload) > 0 {
		rec.Payload = payload
	}

	if err := rec.validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Marshal serializes the message, setting message begin on the first record
// and message end on the last. Interior records get neither flag. The
// records themselves are not mutated.
func (m *Message) Marshal() ([]byte, error) {
	if len(m.Records) == 0 {
		return nil, ErrEmptyMessage
	}

	b := cursor.NewBuilder(0)
	for i := range m.Records {
		data, err := m.Records[i].marshal(i == 0, i == len(m.Records)-1)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		b.Bytes(data)
	}
	return b.Build(), nil
}

// Unmarshal parses one complete message from the start of data and returns
// the number of bytes consumed. The parser requires the message begin flag
// on the first record and stops at the record carrying message end; bytes
// past the end flag are left unconsumed. Running out of input before the
// end flag fails with ErrTruncatedMessage.
func (m *Message) Unmarshal(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrTruncatedMessage
	}

	var records []Record
	offset := 0
	for {
		if offset >= len(data) {
			return offset, fmt.Errorf("%w: after %d records", ErrTruncatedMessage, len(records))
		}

		var rec Record
		n, err := rec.Unmarshal(data[offset:])
		if err != nil {
			return offset, fmt.Errorf("record %d at offset %d: %w", len(records), offset, err)
		}

		if len(records) == 0 {
			if !rec.mb {
				return 0, ErrMissingBegin
			}
		} else if rec.mb {
			return offset, fmt.Errorf("%w: message begin flag on record %d", ErrMalformedHeader, len(records))
		}

		offset += n
		records = append(records, rec)
		if rec.me {
			m.Records = records
			return offset, nil
		}
	}
}
