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

package tlv

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ZaparooProject/go-nbt/internal/cursor"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		codec Codec
		value []byte
		tag   uint16
	}{
		{name: "simple short value", codec: Simple, tag: 0x03, value: []byte{0xD1, 0x01}},
		{name: "simple empty value", codec: Simple, tag: 0xA0, value: nil},
		{name: "config tag", codec: Config, tag: 0xC002, value: []byte{0x01}},
		{name: "dgi large value", codec: DGI, tag: 0x0101, value: bytes.Repeat([]byte{0x5A}, 300)},
		{name: "dgi empty value", codec: DGI, tag: 0xFFFF, value: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := tt.codec.EncodeOne(tt.tag, tt.value)
			if err != nil {
				t.Fatalf("EncodeOne error: %v", err)
			}

			cur := cursor.New(data)
			got, err := tt.codec.DecodeOne(cur)
			if err != nil {
				t.Fatalf("DecodeOne error: %v", err)
			}
			if got.Tag != tt.tag {
				t.Errorf("tag = 0x%04X, want 0x%04X", got.Tag, tt.tag)
			}
			if !bytes.Equal(got.Value, tt.value) {
				t.Errorf("value = % X, want % X", got.Value, tt.value)
			}
			if cur.Remaining() != 0 {
				t.Errorf("%d bytes left over after decode", cur.Remaining())
			}
		})
	}
}

func TestDecodeOneTruncatedValue(t *testing.T) {
	t.Parallel()

	// Declares 5 value bytes, supplies 2.
	data := []byte{0x03, 0x05, 0xAA, 0xBB}
	_, err := Simple.DecodeOne(cursor.New(data))
	if !errors.Is(err, ErrTruncatedValue) {
		t.Fatalf("error = %v, want ErrTruncatedValue", err)
	}
}

func TestDecodeAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		codec   Codec
		data    []byte
		want    int
	}{
		{
			name:  "two clean units",
			codec: Simple,
			data:  []byte{0x01, 0x02, 0xAA, 0xBB, 0x02, 0x00},
			want:  2,
		},
		{
			name:  "empty buffer decodes to nothing",
			codec: Simple,
			data:  nil,
			want:  0,
		},
		{
			name:    "lone tag byte is trailing garbage",
			codec:   Simple,
			data:    []byte{0x01, 0x01, 0xAA, 0x02},
			wantErr: ErrTrailingGarbage,
		},
		{
			name:    "config unit missing length",
			codec:   Config,
			data:    []byte{0xC0, 0x02},
			wantErr: ErrTrailingGarbage,
		},
		{
			name:    "truncated final value",
			codec:   Simple,
			data:    []byte{0x01, 0x01, 0xAA, 0x02, 0x04, 0x00},
			wantErr: ErrTruncatedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			values, err := tt.codec.DecodeAll(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAll error: %v", err)
			}
			if len(values) != tt.want {
				t.Errorf("decoded %d units, want %d", len(values), tt.want)
			}
		})
	}
}

func TestEncodeAllRoundTrip(t *testing.T) {
	t.Parallel()

	in := []Value{
		{Tag: 0xC002, Value: []byte{0x01}},
		{Tag: 0xC003, Value: []byte{0x10, 0x20}},
		{Tag: 0xC004, Value: nil},
	}
	data, err := Config.EncodeAll(in)
	if err != nil {
		t.Fatalf("EncodeAll error: %v", err)
	}
	out, err := Config.DecodeAll(data)
	if err != nil {
		t.Fatalf("DecodeAll error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("decoded %d units, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Tag != in[i].Tag {
			t.Errorf("unit %d tag = 0x%04X, want 0x%04X", i, out[i].Tag, in[i].Tag)
		}
		if !bytes.Equal(out[i].Value, in[i].Value) {
			t.Errorf("unit %d value = % X, want % X", i, out[i].Value, in[i].Value)
		}
	}
}

func TestEncodeOneLimits(t *testing.T) {
	t.Parallel()

	if _, err := Simple.EncodeOne(0x100, nil); !errors.Is(err, ErrTagTooLarge) {
		t.Errorf("wide tag in 1-byte codec: error = %v, want ErrTagTooLarge", err)
	}
	if _, err := Simple.EncodeOne(0x01, bytes.Repeat([]byte{0}, 256)); !errors.Is(err, ErrValueTooLong) {
		t.Errorf("256-byte value in 1-byte length codec: error = %v, want ErrValueTooLong", err)
	}
	if _, err := DGI.EncodeOne(0x0101, bytes.Repeat([]byte{0}, 0x10000)); !errors.Is(err, ErrValueTooLong) {
		t.Errorf("65536-byte value in DGI codec: error = %v, want ErrValueTooLong", err)
	}
	if _, err := (Codec{TagBytes: 3, LengthBytes: 1}).EncodeOne(0x01, nil); !errors.Is(err, ErrBadWidths) {
		t.Errorf("3-byte tag width: error = %v, want ErrBadWidths", err)
	}
}

func FuzzDecodeAll(f *testing.F) {
	f.Add([]byte{0x01, 0x02, 0xAA, 0xBB})
	f.Add([]byte{0x03, 0x00})
	f.Add([]byte{0xFF})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, codec := range []Codec{Simple, Config, DGI} {
			values, err := codec.DecodeAll(data)
			if err != nil {
				continue
			}
			// Whatever decoded cleanly must re-encode to the same bytes.
			out, err := codec.EncodeAll(values)
			if err != nil {
				t.Fatalf("re-encode of decoded units failed: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Fatalf("round-trip mismatch: in % X, out % X", data, out)
			}
		}
	})
}
