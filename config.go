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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-nbt/pkg/tlv"
)

// Configuration tags carried in get/set configuration command data fields
// as 2-byte tag, 1-byte length TLV units.
const (
	TagInterfaceNFC uint16 = 0xC020 // NFC interface enable (1 byte)
	TagInterfaceI2C uint16 = 0xC021 // I2C host interface enable (1 byte)
	TagGPIOFunction uint16 = 0xC022 // GPIO/IRQ pin function selector (1 byte)
	TagCommWatchdog uint16 = 0xC023 // communication watchdog timer (2 bytes)
	TagFieldDetect  uint16 = 0xC024 // RF field detect behavior (1 byte)
)

// Interface enable values for TagInterfaceNFC and TagInterfaceI2C.
const (
	InterfaceDisabled byte = 0x00
	InterfaceEnabled  byte = 0x01
)

// Configuration command instructions.
const (
	insGetConfiguration byte = 0x30
	insSetConfiguration byte = 0x20
)

// Configuration errors.
var (
	ErrConfigValueMissing = errors.New("configuration response carries no TLV unit")
	ErrConfigTagMismatch  = errors.New("configuration response tag mismatch")
)

// Setting is one configuration tag with its raw value bytes.
type Setting struct {
	Value []byte
	Tag   uint16
}

// BuildGetConfiguration builds the command reading one configuration tag.
// The tag rides in P1 P2; the value comes back as a TLV unit in the
// response data.
func BuildGetConfiguration(tag uint16) Command {
	return Command{
		CLA: 0x00,
		INS: insGetConfiguration,
		P1:  byte(tag >> 8),
		P2:  byte(tag),
		Le:  LeAny,
	}
}

// BuildSetConfiguration builds the command writing one configuration tag.
// The data field is the TLV-encoded setting.
func BuildSetConfiguration(setting Setting) (Command, error) {
	data, err := tlv.Config.EncodeOne(setting.Tag, setting.Value)
	if err != nil {
		return Command{}, fmt.Errorf("encoding setting 0x%04X: %w", setting.Tag, err)
	}
	return Command{
		CLA:  0x00,
		INS:  insSetConfiguration,
		Data: data,
		Le:   LeNone,
	}, nil
}

// ParseConfigurationResponse extracts the setting for tag from a get
// configuration response data field.
func ParseConfigurationResponse(tag uint16, data []byte) (Setting, error) {
	values, err := tlv.Config.DecodeAll(data)
	if err != nil {
		return Setting{}, err
	}
	if len(values) == 0 {
		return Setting{}, ErrConfigValueMissing
	}
	for _, v := range values {
		if v.Tag == tag {
			return Setting{Tag: v.Tag, Value: v.Value}, nil
		}
	}
	return Setting{}, fmt.Errorf("%w: wanted 0x%04X, got 0x%04X", ErrConfigTagMismatch, tag, values[0].Tag)
}
