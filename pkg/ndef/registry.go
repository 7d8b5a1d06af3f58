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

	"github.com/ZaparooProject/go-nbt/internal/syncutil"
)

// Registry errors.
var (
	ErrDuplicateCodec  = errors.New("ndef: codec already registered for type")
	ErrUnsupportedType = errors.New("ndef: no codec registered for type")
)

// MaxNestingDepth bounds recursive decoding of composite records whose
// payloads are themselves NDEF messages. Hostile input cannot drive the
// parser deeper than this.
const MaxNestingDepth = 8

// TypeKey identifies a payload codec: the record's TNF plus its exact type
// bytes. Dispatch is by equality, never by prefix or wildcard.
type TypeKey struct {
	Type string
	TNF  byte
}

// WellKnownKey returns the key for an NFC Forum well-known record type.
func WellKnownKey(recordType string) TypeKey {
	return TypeKey{TNF: TNFWellKnown, Type: recordType}
}

// Payload is a typed, decoded record payload that can serialize itself back
// to wire bytes.
type Payload interface {
	Encode() ([]byte, error)
}

// Decoder parses raw payload bytes into a typed payload. Decoders for
// composite record types use ctx to parse the nested message inside their
// payload.
type Decoder func(ctx *Context, payload []byte) (Payload, error)

// RawPayload is the fallback representation for types without a registered
// codec. It keeps unknown-but-well-formed records inspectable.
type RawPayload []byte

// Encode returns a copy of the raw bytes.
func (p RawPayload) Encode() ([]byte, error) {
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

// Registry maps record type keys to payload decoders. Callers construct and
// populate a Registry explicitly (or use WellKnown) and pass it wherever
// typed decoding is needed; there is no process-wide instance. All methods
// are safe for concurrent use.
type Registry struct {
	decoders    map[TypeKey]Decoder
	mu          syncutil.RWMutex
	rawFallback bool
}

// NewRegistry returns an empty registry with no raw fallback.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[TypeKey]Decoder)}
}

// WellKnown returns a registry pre-populated with the NFC Forum well-known
// payload codecs this package implements (text, URI, smart poster, handover
// select with its alternative carrier and error sub-records), with the raw
// fallback enabled so unregistered types decode to RawPayload.
func WellKnown() *Registry {
	r := NewRegistry()
	r.rawFallback = true
	for key, dec := range map[TypeKey]Decoder{
		WellKnownKey(TextRecordType):         decodeText,
		WellKnownKey(URIRecordType):          decodeURI,
		WellKnownKey(SmartPosterRecordType):  decodeSmartPoster,
		WellKnownKey(HandoverSelectType):     decodeHandoverSelect,
		WellKnownKey(AlternativeCarrierType): decodeAlternativeCarrier,
		WellKnownKey(HandoverErrorType):      decodeHandoverError,
	} {
		// Keys are distinct constants, duplicates are impossible here.
		_ = r.Register(key, dec)
	}
	return r
}

// SetRawFallback controls whether unregistered types decode to RawPayload
// instead of failing with ErrUnsupportedType.
func (r *Registry) SetRawFallback(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rawFallback = enabled
}

// Register adds a decoder for key. A second registration for the same key
// fails with ErrDuplicateCodec: silently shadowing an earlier codec would
// make dispatch depend on registration order.
func (r *Registry) Register(key TypeKey, dec Decoder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.decoders[key]; exists {
		return fmt.Errorf("%w: TNF 0x%02X %q", ErrDuplicateCodec, key.TNF, key.Type)
	}
	r.decoders[key] = dec
	return nil
}

// Unregister removes the decoder for key. Decoding that type afterward uses
// the raw fallback if enabled.
func (r *Registry) Unregister(key TypeKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.decoders, key)
}

func (r *Registry) lookup(key TypeKey) (Decoder, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dec, ok := r.decoders[key]
	return dec, ok, r.rawFallback
}

// Decode dispatches on the record's type key and returns its typed payload.
// Unregistered types decode to RawPayload when the raw fallback is enabled
// and fail with ErrUnsupportedType otherwise.
func (r *Registry) Decode(rec Record) (Payload, error) {
	return (&Context{reg: r, depth: 1}).Decode(rec)
}

// Encode serializes a typed payload for the given type key. Like Decode it
// requires a registration (or the raw fallback) for the key, so encode and
// decode support stay symmetric.
func (r *Registry) Encode(key TypeKey, p Payload) ([]byte, error) {
	_, ok, fallback := r.lookup(key)
	if !ok && !fallback {
		return nil, fmt.Errorf("%w: TNF 0x%02X %q", ErrUnsupportedType, key.TNF, key.Type)
	}
	return p.Encode()
}

// DecodeMessage parses a wire message and decodes every record's payload.
// The returned payload slice is parallel to msg.Records.
func (r *Registry) DecodeMessage(data []byte) (*Message, []Payload, error) {
	return (&Context{reg: r}).DecodeMessage(data)
}

// Context tracks nesting depth while decoding composite records. A zero
// depth context sits above the outermost message.
type Context struct {
	reg   *Registry
	depth int
}

// Decode dispatches one record at the current depth.
func (c *Context) Decode(rec Record) (Payload, error) {
	dec, ok, fallback := c.reg.lookup(rec.Key())
	if !ok {
		if fallback {
			return RawPayload(rec.Payload), nil
		}
		return nil, fmt.Errorf("%w: TNF 0x%02X %q", ErrUnsupportedType, rec.TNF, rec.Type)
	}
	p, err := dec(c, rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("payload of TNF 0x%02X %q: %w", rec.TNF, rec.Type, err)
	}
	return p, nil
}

// DecodeMessage parses data as a nested message one level below the current
// depth and decodes each record's payload. Failing ErrMessageTooDeep here
// bounds stack usage against hostile input.
func (c *Context) DecodeMessage(data []byte) (*Message, []Payload, error) {
	if c.depth >= MaxNestingDepth {
		return nil, nil, fmt.Errorf("%w: depth %d", ErrMessageTooDeep, c.depth)
	}

	var msg Message
	if _, err := msg.Unmarshal(data); err != nil {
		return nil, nil, err
	}

	child := &Context{reg: c.reg, depth: c.depth + 1}
	payloads := make([]Payload, len(msg.Records))
	for i := range msg.Records {
		p, err := child.Decode(msg.Records[i])
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		payloads[i] = p
	}
	return &msg, payloads, nil
}
