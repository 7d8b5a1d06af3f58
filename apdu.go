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
	"fmt"

	"github.com/ZaparooProject/go-nbt/internal/cursor"
)

// Le values for Command. The zero value means no response data is
// expected, so commands built without Le marshal as case 1 or 3. LeAny
// asks for as much as the card can return in a short-form APDU (encoded
// as 0x00 on the wire).
const (
	LeNone = 0   // no response data expected
	LeAny  = 256 // maximum short-form response
)

const maxShortData = 255

// Command is an ISO 7816-4 short-form command APDU: class, instruction and
// parameter bytes, an optional data field, and an optional expected
// response length.
type Command struct {
	Data []byte
	Le   int
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
}

// Marshal serializes the command: CLA INS P1 P2 [Lc data] [Le].
func (c Command) Marshal() ([]byte, error) {
	if len(c.Data) > maxShortData {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, len(c.Data))
	}
	if c.Le < LeNone || c.Le > LeAny {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLe, c.Le)
	}

	b := cursor.NewBuilder(6 + len(c.Data))
	b.Byte(c.CLA)
	b.Byte(c.INS)
	b.Byte(c.P1)
	b.Byte(c.P2)
	if len(c.Data) > 0 {
		b.Byte(byte(len(c.Data)))
		b.Bytes(c.Data)
	}
	if c.Le != LeNone {
		b.Byte(byte(c.Le)) // 256 wraps to 0x00, the short-form "any" marker
	}
	return b.Build(), nil
}

// ParseCommand decodes a short-form command APDU, resolving the Lc/Le
// ambiguity from the total length the way 7816-4 prescribes.
func ParseCommand(raw []byte) (Command, error) {
	cur := cursor.New(raw)
	header, err := cur.ReadBytes(4)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %d bytes, need at least 4", ErrMalformedCommand, len(raw))
	}

	cmd := Command{CLA: header[0], INS: header[1], P1: header[2], P2: header[3], Le: LeNone}

	switch rest := cur.Remaining(); {
	case rest == 0:
		// Case 1: no data, no Le.
	case rest == 1:
		// Case 2: Le only.
		le, _ := cur.ReadByte()
		cmd.Le = leFromWire(le)
	default:
		// Case 3 or 4: Lc, data, optional Le.
		lc, _ := cur.ReadByte()
		data, err := cur.ReadBytes(int(lc))
		if err != nil {
			return Command{}, fmt.Errorf("%w: Lc %d exceeds remaining %d bytes", ErrMalformedCommand, lc, cur.Remaining())
		}
		cmd.Data = data
		switch cur.Remaining() {
		case 0:
		case 1:
			le, _ := cur.ReadByte()
			cmd.Le = leFromWire(le)
		default:
			return Command{}, fmt.Errorf("%w: %d trailing bytes after data field", ErrMalformedCommand, cur.Remaining())
		}
	}
	return cmd, nil
}

func leFromWire(le byte) int {
	if le == 0x00 {
		return LeAny
	}
	return int(le)
}

// Response is a command response: the data field followed by the SW1 SW2
// status trailer.
type Response struct {
	Data []byte
	SW1  byte
	SW2  byte
}

// ParseResponse splits raw into data and status word.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, fmt.Errorf("%w: %d bytes", ErrResponseTooShort, len(raw))
	}
	resp := Response{SW1: raw[len(raw)-2], SW2: raw[len(raw)-1]}
	if len(raw) > 2 {
		resp.Data = make([]byte, len(raw)-2)
		copy(resp.Data, raw[:len(raw)-2])
	}
	return resp, nil
}

// Marshal serializes the response for the wire.
func (r Response) Marshal() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, r.SW1, r.SW2)
}

// SW returns the combined status word.
func (r Response) SW() uint16 {
	return uint16(r.SW1)<<8 | uint16(r.SW2)
}

// OK reports whether the status word is 9000.
func (r Response) OK() bool {
	return r.SW() == SWSuccess
}

// Status returns nil for a success status word and a *StatusError
// otherwise.
func (r Response) Status() error {
	if r.OK() {
		return nil
	}
	return &StatusError{SW1: r.SW1, SW2: r.SW2}
}
