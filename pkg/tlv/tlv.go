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

// Package tlv implements a tag-length-value codec with configurable tag and
// length field widths. It covers the flat TLV layouts used by secure element
// configuration tags (2-byte tag, 1-byte length) and DGI-grouped data
// (2-byte tag, 2-byte big-endian length) as well as the plain 1-byte forms.
package tlv

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-nbt/internal/cursor"
)

// TLV parsing errors.
var (
	ErrTruncatedValue  = errors.New("tlv: declared length exceeds remaining data")
	ErrTrailingGarbage = errors.New("tlv: partial unit at end of data")
	ErrTagTooLarge     = errors.New("tlv: tag does not fit configured tag width")
	ErrValueTooLong    = errors.New("tlv: value does not fit configured length width")
	ErrBadWidths       = errors.New("tlv: tag and length widths must be 1 or 2 bytes")
)

// Codec describes the wire shape of one TLV unit. Tag and length fields may
// each be 1 or 2 bytes; 2-byte fields are big-endian.
type Codec struct {
	TagBytes    int
	LengthBytes int
}

// Predefined codecs for the formats this module speaks.
var (
	// Simple is the plain 1-byte tag, 1-byte length form.
	Simple = Codec{TagBytes: 1, LengthBytes: 1}
	// Config is the configuration-tag form used by get/set configuration
	// command data fields: 2-byte tag, 1-byte length.
	Config = Codec{TagBytes: 2, LengthBytes: 1}
	// DGI is the data-grouping-identifier form: 2-byte tag, 2-byte length.
	DGI = Codec{TagBytes: 2, LengthBytes: 2}
)

// Value is one decoded tag-length-value unit.
type Value struct {
	Value []byte
	Tag   uint16
}

func (c Codec) check() error {
	if c.TagBytes < 1 || c.TagBytes > 2 || c.LengthBytes < 1 || c.LengthBytes > 2 {
		return fmt.Errorf("%w: tag=%d length=%d", ErrBadWidths, c.TagBytes, c.LengthBytes)
	}
	return nil
}

// headerSize is the minimal size of one unit: a full tag and length field.
func (c Codec) headerSize() int {
	return c.TagBytes + c.LengthBytes
}

// DecodeOne reads a single TLV unit from cur. The cursor is left positioned
// after the unit's value bytes.
func (c Codec) DecodeOne(cur *cursor.Cursor) (Value, error) {
	if err := c.check(); err != nil {
		return Value{}, err
	}

	var tag uint16
	if c.TagBytes == 1 {
		b, err := cur.ReadByte()
		if err != nil {
			return Value{}, fmt.Errorf("reading tag: %w", err)
		}
		tag = uint16(b)
	} else {
		v, err := cur.ReadUint16()
		if err != nil {
			return Value{}, fmt.Errorf("reading tag: %w", err)
		}
		tag = v
	}

	var length int
	if c.LengthBytes == 1 {
		b, err := cur.ReadByte()
		if err != nil {
			return Value{}, fmt.Errorf("reading length of tag 0x%04X: %w", tag, err)
		}
		length = int(b)
	} else {
		v, err := cur.ReadUint16()
		if err != nil {
			return Value{}, fmt.Errorf("reading length of tag 0x%04X: %w", tag, err)
		}
		length = int(v)
	}

	value, err := cur.ReadBytes(length)
	if err != nil {
		return Value{}, fmt.Errorf("%w: tag 0x%04X declares %d bytes, %d remain",
			ErrTruncatedValue, tag, length, cur.Remaining())
	}

	return Value{Tag: tag, Value: value}, nil
}

// DecodeAll decodes TLV units until the buffer is exhausted. A buffer that
// ends exactly on a unit boundary decodes cleanly; leftover bytes too short
// to hold another tag and length field fail with ErrTrailingGarbage, which
// distinguishes a clean end of buffer from corrupt trailing data.
func (c Codec) DecodeAll(buf []byte) ([]Value, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	cur := cursor.New(buf)
	var values []Value
	for cur.Remaining() > 0 {
		if cur.Remaining() < c.headerSize() {
			return nil, fmt.Errorf("%w: %d bytes at offset %d", ErrTrailingGarbage, cur.Remaining(), cur.Offset())
		}
		v, err := c.DecodeOne(cur)
		if err != nil {
			return nil, fmt.Errorf("unit at offset %d: %w", cur.Offset(), err)
		}
		values = append(values, v)
	}
	return values, nil
}

// EncodeOne serializes a single TLV unit. It is the exact inverse of
// DecodeOne: DecodeOne over the result yields (tag, value) back.
func (c Codec) EncodeOne(tag uint16, value []byte) ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.TagBytes == 1 && tag > 0xFF {
		return nil, fmt.Errorf("%w: 0x%04X", ErrTagTooLarge, tag)
	}
	maxLen := 0xFF
	if c.LengthBytes == 2 {
		maxLen = 0xFFFF
	}
	if len(value) > maxLen {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrValueTooLong, len(value), maxLen)
	}

	b := cursor.NewBuilder(c.headerSize() + len(value))
	if c.TagBytes == 1 {
		b.Byte(byte(tag))
	} else {
		b.Uint16(tag)
	}
	if c.LengthBytes == 1 {
		b.Byte(byte(len(value)))
	} else {
		b.Uint16(uint16(len(value)))
	}
	b.Bytes(value)
	return b.Build(), nil
}

// EncodeAll serializes values back to back in order.
func (c Codec) EncodeAll(values []Value) ([]byte, error) {
	b := cursor.NewBuilder(0)
	for i, v := range values {
		unit, err := c.EncodeOne(v.Tag, v.Value)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		b.Bytes(unit)
	}
	return b.Build(), nil
}
