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

// Package cursor provides a bounds-checked forward reader and an append-only
// writer over byte buffers. It centralizes the bounds checking that every
// wire decoder in this module needs and knows nothing about TLV or NDEF
// semantics.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfData is returned when a read requests more bytes than remain
// in the buffer. The cursor never advances on a failed read.
var ErrOutOfData = errors.New("cursor: out of data")

// Cursor is a forward-reading view over a byte buffer. Every read advances
// the offset; a read that would pass the end of the buffer fails with
// ErrOutOfData and leaves the offset unchanged. A Cursor must not be shared
// between goroutines.
type Cursor struct {
	buf []byte
	off int
}

// New returns a Cursor positioned at the start of buf. The cursor reads
// from buf directly; callers must not mutate buf while the cursor is live.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.off
}

// Peek returns the next byte without advancing.
func (c *Cursor) Peek() (byte, error) {
	if c.off >= len(c.buf) {
		return 0, fmt.Errorf("%w: peek at offset %d", ErrOutOfData, c.off)
	}
	return c.buf[c.off], nil
}

// ReadByte reads a single byte.
func (c *Cursor) ReadByte() (byte, error) {
	if c.off >= len(c.buf) {
		return 0, fmt.Errorf("%w: need 1 byte at offset %d", ErrOutOfData, c.off)
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// ReadUint16 reads a big-endian 16-bit value.
func (c *Cursor) ReadUint16() (uint16, error) {
	if c.Remaining() < 2 {
		return 0, fmt.Errorf("%w: need 2 bytes at offset %d, have %d", ErrOutOfData, c.off, c.Remaining())
	}
	v := binary.BigEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

// ReadUint32 reads a big-endian 32-bit value.
func (c *Cursor) ReadUint32() (uint32, error) {
	if c.Remaining() < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes at offset %d, have %d", ErrOutOfData, c.off, c.Remaining())
	}
	v := binary.BigEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

// ReadBytes reads exactly n bytes and returns them as a fresh slice. The
// copy keeps decoded values independent of the input buffer so callers can
// hold on to them after the buffer is reused.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrOutOfData, n)
	}
	if c.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrOutOfData, n, c.off, c.Remaining())
	}
	out := make([]byte, n)
	copy(out, c.buf[c.off:c.off+n])
	c.off += n
	return out, nil
}

// Builder is an append-only byte writer, the encoding counterpart of Cursor.
// The zero value is ready to use.
type Builder struct {
	buf []byte
}

// NewBuilder returns a Builder with capacity for at least n bytes.
func NewBuilder(n int) *Builder {
	return &Builder{buf: make([]byte, 0, n)}
}

// Byte appends a single byte.
func (b *Builder) Byte(v byte) {
	b.buf = append(b.buf, v)
}

// Uint16 appends a big-endian 16-bit value.
func (b *Builder) Uint16(v uint16) {
	b.buf = binary.BigEndian.AppendUint16(b.buf, v)
}

// Uint32 appends a big-endian 32-bit value.
func (b *Builder) Uint32(v uint32) {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
}

// Bytes appends the contents of p.
func (b *Builder) Bytes(p []byte) {
	b.buf = append(b.buf, p...)
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Build returns the accumulated bytes. The builder must not be written to
// after Build is called.
func (b *Builder) Build() []byte {
	return b.buf
}
