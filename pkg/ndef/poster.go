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
)

// SmartPosterRecordType is the NFC Forum well-known type for Smart Poster
// records. The payload is itself a complete NDEF message.
const SmartPosterRecordType = "Sp"

// ErrSmartPosterNoURI is returned when a smart poster's nested message
// carries no URI record.
var ErrSmartPosterNoURI = errors.New("ndef: smart poster without URI record")

// SmartPosterPayload is the decoded form of a Smart Poster record: a URI
// with optional localized titles. Sub-records this codec does not model are
// preserved in Extra so they survive a decode/encode round trip.
type SmartPosterPayload struct {
	URI    string
	Titles []TextPayload
	Extra  []Record
}

// NewSmartPosterRecord creates a Smart Poster record for uri with an
// optional title.
func NewSmartPosterRecord(uri, title, language string) (Record, error) {
	p := SmartPosterPayload{URI: uri}
	if title != "" {
		p.Titles = append(p.Titles, TextPayload{Text: title, Language: language})
	}
	payload, err := p.Encode()
	if err != nil {
		return Record{}, err
	}
	return Record{
		TNF:     TNFWellKnown,
		Type:    SmartPosterRecordType,
		Payload: payload,
	}, nil
}

// Encode marshals the nested message: the URI record first, then titles,
// then any preserved extra records.
func (p SmartPosterPayload) Encode() ([]byte, error) {
	uriRec, err := NewURIRecord(p.URI)
	if err != nil {
		return nil, err
	}
	records := []Record{uriRec}

	for i, title := range p.Titles {
		rec, err := NewTextRecord(title.Text, title.Language)
		if err != nil {
			return nil, fmt.Errorf("title %d: %w", i, err)
		}
		records = append(records, rec)
	}
	records = append(records, p.Extra...)

	return NewMessage(records...).Marshal()
}

func decodeSmartPoster(ctx *Context, payload []byte) (Payload, error) {
	msg, payloads, err := ctx.DecodeMessage(payload)
	if err != nil {
		return nil, err
	}

	var out SmartPosterPayload
	seenURI := false
	for i, sub := range payloads {
		switch sub := sub.(type) {
		case URIPayload:
			if !seenURI {
				out.URI = sub.URI
				seenURI = true
				continue
			}
			out.Extra = append(out.Extra, msg.Records[i])
		case TextPayload:
			out.Titles = append(out.Titles, sub)
		default:
			out.Extra = append(out.Extra, msg.Records[i])
		}
	}
	if !seenURI {
		return nil, ErrSmartPosterNoURI
	}
	return out, nil
}
