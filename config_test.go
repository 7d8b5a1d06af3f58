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

func TestBuildGetConfiguration(t *testing.T) {
	t.Parallel()

	cmd := BuildGetConfiguration(TagInterfaceNFC)
	raw, err := cmd.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x30, 0xC0, 0x20, 0x00}, raw)
}

func TestBuildSetConfiguration(t *testing.T) {
	t.Parallel()

	cmd, err := BuildSetConfiguration(Setting{
		Tag:   TagCommWatchdog,
		Value: []byte{0x03, 0xE8},
	})
	require.NoError(t, err)

	// The tag rides inside the TLV unit in the data field; P1 P2 stay zero.
	raw, err := cmd.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x20, 0x00, 0x00, 0x05, 0xC0, 0x23, 0x02, 0x03, 0xE8}, raw)
}

func TestParseConfigurationResponse(t *testing.T) {
	t.Parallel()

	setting, err := ParseConfigurationResponse(TagInterfaceI2C, []byte{0xC0, 0x21, 0x01, 0x01})
	require.NoError(t, err)
	assert.Equal(t, TagInterfaceI2C, setting.Tag)
	assert.Equal(t, []byte{InterfaceEnabled}, setting.Value)
}

func TestParseConfigurationResponseErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseConfigurationResponse(TagInterfaceNFC, nil)
	require.ErrorIs(t, err, ErrConfigValueMissing)

	_, err = ParseConfigurationResponse(TagInterfaceNFC, []byte{0xC0, 0x21, 0x01, 0x01})
	require.ErrorIs(t, err, ErrConfigTagMismatch)

	// Truncated TLV unit surfaces the codec error.
	_, err = ParseConfigurationResponse(TagInterfaceNFC, []byte{0xC0, 0x20, 0x05, 0x01})
	require.Error(t, err)
}
