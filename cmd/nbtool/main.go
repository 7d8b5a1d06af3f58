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

// nbtool reads and writes NDEF messages and file access policies on a tag,
// and decodes captured tag data offline.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	nbt "github.com/ZaparooProject/go-nbt"
	"github.com/ZaparooProject/go-nbt/pkg/ndef"
	"github.com/ZaparooProject/go-nbt/transport/i2c"
	"github.com/ZaparooProject/go-nbt/transport/serial"
)

type config struct {
	devicePath string
	writeText  string
	writeURI   string
	decodeHex  string
	decodeFAP  string
	read       bool
	fap        bool
	debug      bool
}

// Package-level flag variables
var (
	flagDevicePath string
	flagWriteText  string
	flagWriteURI   string
	flagDecodeHex  string
	flagDecodeFAP  string
	flagRead       bool
	flagFAP        bool
	flagDebug      bool
)

func init() {
	flag.StringVar(&flagDevicePath, "device", "", "Device path (e.g. /dev/ttyUSB0 or /dev/i2c-1)")
	flag.StringVar(&flagWriteText, "write-text", "", "Write a text record to the tag")
	flag.StringVar(&flagWriteURI, "write-uri", "", "Write a URI record to the tag")
	flag.StringVar(&flagDecodeHex, "decode", "", "Decode a hex NDEF message offline")
	flag.StringVar(&flagDecodeFAP, "decode-fap", "", "Decode a hex file access policy table offline")
	flag.BoolVar(&flagRead, "read", false, "Read and print the tag's NDEF message")
	flag.BoolVar(&flagFAP, "fap", false, "Read and print the tag's file access policy table")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseConfig() *config {
	cfg := &config{
		devicePath: flagDevicePath,
		writeText:  flagWriteText,
		writeURI:   flagWriteURI,
		decodeHex:  flagDecodeHex,
		decodeFAP:  flagDecodeFAP,
		read:       flagRead,
		fap:        flagFAP,
		debug:      flagDebug,
	}

	if cfg.debug {
		nbt.SetDebugEnabled(true)
	}

	return cfg
}

// newTransport creates a transport from a device path by its shape.
func newTransport(path string) (nbt.Transport, error) {
	if path == "" {
		return nil, errors.New("empty device path")
	}

	if strings.Contains(strings.ToLower(path), "i2c") {
		transport, err := i2c.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport for %s: %w", path, err)
		}
		return transport, nil
	}

	transport, err := serial.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create serial transport for %s: %w", path, err)
	}
	return transport, nil
}

func decodeHexArg(arg string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', ':':
			return -1
		default:
			return r
		}
	}, arg)
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

func describePayload(p ndef.Payload) string {
	switch p := p.(type) {
	case ndef.TextPayload:
		return fmt.Sprintf("text (%s): %s", p.Language, p.Text)
	case ndef.URIPayload:
		return "uri: " + p.URI
	case ndef.SmartPosterPayload:
		out := "smart poster: " + p.URI
		for _, title := range p.Titles {
			out += fmt.Sprintf(" [%s: %s]", title.Language, title.Text)
		}
		return out
	case ndef.RawPayload:
		return fmt.Sprintf("raw % X", []byte(p))
	default:
		return fmt.Sprintf("%v", p)
	}
}

func printMessage(msg *ndef.Message, payloads []ndef.Payload) {
	for i, rec := range msg.Records {
		fmt.Printf("record %d: TNF %d type %q id %q, %d byte payload\n",
			i, rec.TNF, rec.Type, rec.ID, len(rec.Payload))
		if i < len(payloads) {
			fmt.Printf("  %s\n", describePayload(payloads[i]))
		}
	}
}

func printFAPTable(rows []nbt.FileAccess) {
	for _, row := range rows {
		fmt.Printf("file %04X: read=%s write=%s read-ext=%s write-ext=%s\n",
			row.FileID, describeCondition(row.Read), describeCondition(row.Write),
			describeCondition(row.ReadExt), describeCondition(row.WriteExt))
	}
}

func describeCondition(c nbt.AccessCondition) string {
	if c.Policy == nbt.AccessPasswordProtected {
		return fmt.Sprintf("password(%d)", c.PasswordIndex)
	}
	return c.Policy.String()
}

func runOffline(cfg *config) error {
	if cfg.decodeHex != "" {
		data, err := decodeHexArg(cfg.decodeHex)
		if err != nil {
			return err
		}
		msg, payloads, err := ndef.WellKnown().DecodeMessage(data)
		if err != nil {
			return fmt.Errorf("decoding NDEF message: %w", err)
		}
		printMessage(msg, payloads)
	}

	if cfg.decodeFAP != "" {
		data, err := decodeHexArg(cfg.decodeFAP)
		if err != nil {
			return err
		}
		rows, err := nbt.DecodeFileAccessTable(data)
		if err != nil {
			return fmt.Errorf("decoding access policy table: %w", err)
		}
		printFAPTable(rows)
	}

	return nil
}

func buildMessage(cfg *config) (*ndef.Message, error) {
	switch {
	case cfg.writeText != "":
		rec, err := ndef.NewTextRecord(cfg.writeText, "en")
		if err != nil {
			return nil, fmt.Errorf("building text record: %w", err)
		}
		return &ndef.Message{Records: []ndef.Record{rec}}, nil
	case cfg.writeURI != "":
		rec, err := ndef.NewURIRecord(cfg.writeURI)
		if err != nil {
			return nil, fmt.Errorf("building URI record: %w", err)
		}
		return &ndef.Message{Records: []ndef.Record{rec}}, nil
	default:
		return nil, nil
	}
}

func runDevice(cfg *config) error {
	transport, err := newTransport(cfg.devicePath)
	if err != nil {
		return err
	}
	dev := nbt.New(transport)
	defer func() { _ = dev.Close() }()

	if err := dev.SelectApplication(); err != nil {
		return fmt.Errorf("selecting tag application: %w", err)
	}

	msg, err := buildMessage(cfg)
	if err != nil {
		return err
	}
	if msg != nil {
		if err := dev.WriteNDEFMessage(msg); err != nil {
			return fmt.Errorf("writing NDEF message: %w", err)
		}
		fmt.Println("message written")
	}

	if cfg.read {
		msg, payloads, err := dev.ReadNDEFMessage()
		if err != nil {
			return fmt.Errorf("reading NDEF message: %w", err)
		}
		printMessage(msg, payloads)
	}

	if cfg.fap {
		rows, err := dev.ReadFileAccessPolicy()
		if err != nil {
			return fmt.Errorf("reading access policy table: %w", err)
		}
		printFAPTable(rows)
	}

	return nil
}

func run(cfg *config) error {
	if cfg.decodeHex != "" || cfg.decodeFAP != "" {
		return runOffline(cfg)
	}

	if !cfg.read && !cfg.fap && cfg.writeText == "" && cfg.writeURI == "" {
		flag.Usage()
		return nil
	}

	return runDevice(cfg)
}

func main() {
	flag.Parse()
	if err := run(parseConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "nbtool: %v\n", err)
		os.Exit(1)
	}
}
