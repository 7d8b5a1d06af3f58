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

// Text record constants.
const (
	TextRecordType    = "T"
	textUTF16Flag     = 0x80
	textLangCodeMask  = 0x3F
	maxLanguageLength = 63 // 6 bits max
)

// Text record errors.
var (
	ErrTextPayloadTooShort  = errors.New("ndef: text payload too short")
	ErrTextInvalidLangLen   = errors.New("ndef: invalid language code length")
	ErrTextLanguageTooLong  = errors.New("ndef: language code too long")
	ErrTextPayloadTruncated = errors.New("ndef: text payload truncated")
)

// TextPayload is the decoded form of an NFC Forum Text record.
type TextPayload struct {
	Text     string
	Language string
	UTF16    bool // true if UTF-16 encoded (rare)
}

// NewTextRecord creates an NDEF Text record. The language parameter should
// be an IANA language code (e.g., "en", "en-US"); it defaults to "en".
func NewTextRecord(text, language string) (Record, error) {
	payload, err := TextPayload{Text: text, Language: language}.Encode()
	if err != nil {
		return Record{}, err
	}
	return Record{
		TNF:     TNFWellKnown,
		Type:    TextRecordType,
		Payload: payload,
	}, nil
}

// Encode builds the wire payload: status byte, language code, then text.
func (p TextPayload) Encode() ([]byte, error) {
	language := p.Language
	if language == "" {
		language = "en"
	}
	if len(language) > maxLanguageLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTextLanguageTooLong, len(language))
	}

	status := byte(len(language))
	if p.UTF16 {
		status |= textUTF16Flag
	}

	payload := make([]byte, 1+len(language)+len(p.Text))
	payload[0] = status
	copy(payload[1:], language)
	copy(payload[1+len(language):], p.Text)
	return payload, nil
}

func decodeText(_ *Context, payload []byte) (Payload, error) {
	if len(payload) < 1 {
		return nil, ErrTextPayloadTooShort
	}

	status := payload[0]
	langLen := int(status & textLangCodeMask)

	if langLen > maxLanguageLength {
		return nil, ErrTextInvalidLangLen
	}
	if len(payload) < 1+langLen {
		return nil, ErrTextPayloadTruncated
	}

	return TextPayload{
		Language: string(payload[1 : 1+langLen]),
		Text:     string(payload[1+langLen:]),
		UTF16:    status&textUTF16Flag != 0,
	}, nil
}

// DecodeTextPayload extracts the typed form of a Text record payload.
func DecodeTextPayload(payload []byte) (TextPayload, error) {
	p, err := decodeText(nil, payload)
	if err != nil {
		return TextPayload{}, err
	}
	text, _ := p.(TextPayload)
	return text, nil
}
