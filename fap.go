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

// AccessPolicy selects how a file operation is gated.
type AccessPolicy byte

// Access policies, in wire sentinel order.
const (
	AccessNever             AccessPolicy = iota // operation never allowed
	AccessAlways                                // operation always allowed
	AccessPasswordProtected                     // operation requires password verification
)

func (p AccessPolicy) String() string {
	switch p {
	case AccessNever:
		return "never"
	case AccessAlways:
		return "always"
	case AccessPasswordProtected:
		return "password"
	default:
		return fmt.Sprintf("policy(%d)", byte(p))
	}
}

// Wire encoding of access condition bytes.
const (
	accessByteNever    byte = 0x00
	accessByteAlways   byte = 0x40
	accessPasswordBit  byte = 0x80
	passwordIndexMask  byte = 0x1F
	fileAccessRowSize       = 6
)

// AccessCondition is one access-condition byte of a file access policy row:
// a policy selector, plus a 5-bit password slot index when the policy is
// password protected.
type AccessCondition struct {
	Policy        AccessPolicy
	PasswordIndex byte
}

// AccessAlwaysCondition returns an always-allowed condition.
func AccessAlwaysCondition() AccessCondition {
	return AccessCondition{Policy: AccessAlways}
}

// AccessNeverCondition returns a never-allowed condition.
func AccessNeverCondition() AccessCondition {
	return AccessCondition{Policy: AccessNever}
}

// PasswordCondition returns a password-protected condition using the given
// password slot (1-31). The index is validated when the condition is
// serialized, so programmatic and wire-decoded conditions go through the
// same check.
func PasswordCondition(index byte) AccessCondition {
	return AccessCondition{Policy: AccessPasswordProtected, PasswordIndex: index}
}

// decodeAccessByte interprets one access condition byte. Bytes matching the
// ALWAYS or NEVER sentinels produce those policies; every other value is
// read permissively as password protected with whatever 5-bit index it
// carries, matching the tag's own decoding behavior.
func decodeAccessByte(b byte) AccessCondition {
	switch b {
	case accessByteAlways:
		return AccessCondition{Policy: AccessAlways}
	case accessByteNever:
		return AccessCondition{Policy: AccessNever}
	default:
		return AccessCondition{
			Policy:        AccessPasswordProtected,
			PasswordIndex: b & passwordIndexMask,
		}
	}
}

// WireByte serializes the condition, rejecting a password-protected
// condition with index zero or an index that does not fit 5 bits.
func (c AccessCondition) WireByte() (byte, error) {
	switch c.Policy {
	case AccessAlways:
		return accessByteAlways, nil
	case AccessNever:
		return accessByteNever, nil
	case AccessPasswordProtected:
		if c.PasswordIndex == 0 {
			return 0, fmt.Errorf("%w: password index 0", ErrInvalidAccessCondition)
		}
		if c.PasswordIndex&^passwordIndexMask != 0 {
			return 0, fmt.Errorf("%w: password index %d exceeds 5 bits", ErrInvalidAccessCondition, c.PasswordIndex)
		}
		return accessPasswordBit | c.PasswordIndex, nil
	default:
		return 0, fmt.Errorf("%w: unknown policy %d", ErrInvalidAccessCondition, c.Policy)
	}
}

// FileAccess is one 6-byte row of the file access policy table: a file
// identifier and the conditions for the four file operations, in the wire's
// fixed order.
type FileAccess struct {
	FileID   uint16
	Read     AccessCondition
	Write    AccessCondition
	ReadExt  AccessCondition
	WriteExt AccessCondition
}

// DecodeFileAccessTable decodes a flat policy table buffer into rows. The
// buffer length must be an exact multiple of the 6-byte row size.
func DecodeFileAccessTable(data []byte) ([]FileAccess, error) {
	if len(data)%fileAccessRowSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidTableLength, len(data))
	}

	cur := cursor.New(data)
	rows := make([]FileAccess, 0, len(data)/fileAccessRowSize)
	for cur.Remaining() > 0 {
		fileID, err := cur.ReadUint16()
		if err != nil {
			return nil, err
		}
		conds, err := cur.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		rows = append(rows, FileAccess{
			FileID:   fileID,
			Read:     decodeAccessByte(conds[0]),
			Write:    decodeAccessByte(conds[1]),
			ReadExt:  decodeAccessByte(conds[2]),
			WriteExt: decodeAccessByte(conds[3]),
		})
	}
	return rows, nil
}

// EncodeFileAccessTable serializes rows back to the flat table form. It is
// the exact inverse of DecodeFileAccessTable for valid rows.
func EncodeFileAccessTable(rows []FileAccess) ([]byte, error) {
	b := cursor.NewBuilder(len(rows) * fileAccessRowSize)
	for i, row := range rows {
		b.Uint16(row.FileID)
		for _, cond := range []AccessCondition{row.Read, row.Write, row.ReadExt, row.WriteExt} {
			wire, err := cond.WireByte()
			if err != nil {
				return nil, fmt.Errorf("row %d file %04X: %w", i, row.FileID, err)
			}
			b.Byte(wire)
		}
	}
	return b.Build(), nil
}
