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
	"testing"
)

func TestSmartPosterRoundTrip(t *testing.T) {
	t.Parallel()

	rec, err := NewSmartPosterRecord("https://example.com/shop", "Shop", "en")
	if err != nil {
		t.Fatalf("NewSmartPosterRecord error: %v", err)
	}

	p, err := WellKnown().Decode(rec)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	sp, ok := p.(SmartPosterPayload)
	if !ok {
		t.Fatalf("payload type %T, want SmartPosterPayload", p)
	}

	if sp.URI != "https://example.com/shop" {
		t.Errorf("URI = %q", sp.URI)
	}
	if len(sp.Titles) != 1 || sp.Titles[0].Text != "Shop" || sp.Titles[0].Language != "en" {
		t.Errorf("titles = %+v", sp.Titles)
	}
	if len(sp.Extra) != 0 {
		t.Errorf("unexpected extra records: %d", len(sp.Extra))
	}

	// Re-encode and decode again: the typed value must survive.
	out, err := sp.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	p2, err := WellKnown().Decode(Record{TNF: TNFWellKnown, Type: SmartPosterRecordType, Payload: out})
	if err != nil {
		t.Fatalf("second Decode error: %v", err)
	}
	sp2 := p2.(SmartPosterPayload)
	if sp2.URI != sp.URI || len(sp2.Titles) != len(sp.Titles) {
		t.Errorf("round trip changed payload: %+v vs %+v", sp2, sp)
	}
}

func TestSmartPosterWithoutURI(t *testing.T) {
	t.Parallel()

	titleOnly, err := NewTextRecord("No link here", "en")
	if err != nil {
		t.Fatalf("NewTextRecord error: %v", err)
	}
	nested, err := NewMessage(titleOnly).Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	rec := Record{TNF: TNFWellKnown, Type: SmartPosterRecordType, Payload: nested}
	_, err = WellKnown().Decode(rec)
	if !errors.Is(err, ErrSmartPosterNoURI) {
		t.Fatalf("error = %v, want ErrSmartPosterNoURI", err)
	}
}

func TestSmartPosterPreservesUnknownRecords(t *testing.T) {
	t.Parallel()

	uriRec, err := NewURIRecord("https://example.com")
	if err != nil {
		t.Fatalf("NewURIRecord error: %v", err)
	}
	// The Smart Poster "act" action record is not modeled by this codec.
	action := Record{TNF: TNFWellKnown, Type: "act", Payload: []byte{0x00}}
	nested, err := NewMessage(uriRec, action).Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	p, err := WellKnown().Decode(Record{TNF: TNFWellKnown, Type: SmartPosterRecordType, Payload: nested})
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	sp := p.(SmartPosterPayload)
	if len(sp.Extra) != 1 || sp.Extra[0].Type != "act" {
		t.Fatalf("extra records = %+v, want the act record preserved", sp.Extra)
	}
}
