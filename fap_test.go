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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFileAccessTable(t *testing.T) {
	t.Parallel()

	// Two rows: NDEF file all-always, proprietary file password gated.
	raw := []byte{
		0xE1, 0x04, 0x40, 0x40, 0x40, 0x40,
		0xE1, 0xA1, 0x81, 0x82, 0x00, 0x40,
	}

	rows, err := DecodeFileAccessTable(raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, uint16(0xE104), rows[0].FileID)
	assert.Equal(t, AccessAlwaysCondition(), rows[0].Read)
	assert.Equal(t, AccessAlwaysCondition(), rows[0].WriteExt)

	assert.Equal(t, uint16(0xE1A1), rows[1].FileID)
	assert.Equal(t, PasswordCondition(1), rows[1].Read)
	assert.Equal(t, PasswordCondition(2), rows[1].Write)
	assert.Equal(t, AccessNeverCondition(), rows[1].ReadExt)
	assert.Equal(t, AccessAlwaysCondition(), rows[1].WriteExt)

	// Valid rows re-encode to the original bytes.
	out, err := EncodeFileAccessTable(rows)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestDecodeFileAccessTableBadLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 5, 7, 11, 13} {
		_, err := DecodeFileAccessTable(make([]byte, n))
		require.ErrorIs(t, err, ErrInvalidTableLength, "length %d", n)
	}

	rows, err := DecodeFileAccessTable(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecodeAccessBytePermissive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		b    byte
		want AccessCondition
	}{
		{name: "always sentinel", b: 0x40, want: AccessAlwaysCondition()},
		{name: "never sentinel", b: 0x00, want: AccessNeverCondition()},
		{name: "password index 1", b: 0x81, want: PasswordCondition(1)},
		{name: "password index 31", b: 0x9F, want: PasswordCondition(31)},
		// Nonstandard bytes read as password protected with the low
		// five bits as index, as the tag itself does.
		{name: "password bit without index", b: 0x80, want: PasswordCondition(0)},
		{name: "stray high bits", b: 0xE3, want: PasswordCondition(3)},
		{name: "no marker bit", b: 0x25, want: PasswordCondition(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, decodeAccessByte(tt.b))
		})
	}
}

func TestAccessConditionWireByte(t *testing.T) {
	t.Parallel()

	b, err := AccessAlwaysCondition().WireByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x40), b)

	b, err = AccessNeverCondition().WireByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), b)

	b, err = PasswordCondition(1).WireByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x81), b)

	b, err = PasswordCondition(31).WireByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x9F), b)

	// Index zero is representable in memory but never valid on the wire.
	_, err = PasswordCondition(0).WireByte()
	require.ErrorIs(t, err, ErrInvalidAccessCondition)

	_, err = PasswordCondition(32).WireByte()
	require.ErrorIs(t, err, ErrInvalidAccessCondition)

	_, err = AccessCondition{Policy: AccessPolicy(9)}.WireByte()
	require.ErrorIs(t, err, ErrInvalidAccessCondition)
}

func TestEncodeFileAccessTableRejectsZeroIndex(t *testing.T) {
	t.Parallel()

	// Decoding 0x80 yields password index 0, which must fail re-encoding.
	rows, err := DecodeFileAccessTable([]byte{0xE1, 0x04, 0x80, 0x40, 0x40, 0x40})
	require.NoError(t, err)

	_, err = EncodeFileAccessTable(rows)
	require.ErrorIs(t, err, ErrInvalidAccessCondition)
}

func TestAccessPolicyString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "never", AccessNever.String())
	assert.Equal(t, "always", AccessAlways.String())
	assert.Equal(t, "password", AccessPasswordProtected.String())
	assert.Equal(t, "policy(7)", AccessPolicy(7).String())
}
