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

package i2c

import (
	"context"
	"testing"
	"time"

	nbt "github.com/ZaparooProject/go-nbt"
	"github.com/ZaparooProject/go-nbt/internal/nbttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	i2cconn "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// fakeBus bridges periph bus transactions to the tag simulator. A write
// transaction carries one framed APDU; reads return the response prefix
// and body, with notReady leading zero prefixes first to exercise the
// transport's readiness polling.
type fakeBus struct {
	tag      *nbttest.VirtualTag
	pending  []byte
	notReady int
}

func (*fakeBus) String() string { return "fake" }

func (*fakeBus) SetSpeed(_ physic.Frequency) error { return nil }

func (b *fakeBus) Tx(_ uint16, w, r []byte) error {
	if len(w) > 0 {
		frameLen := int(w[0])<<8 | int(w[1])
		apdu := w[2 : 2+frameLen]
		resp, err := b.tag.Transmit(apdu)
		if err != nil {
			return err
		}
		b.pending = make([]byte, 0, 2+len(resp))
		b.pending = append(b.pending, byte(len(resp)>>8), byte(len(resp)))
		b.pending = append(b.pending, resp...)
		return nil
	}

	if b.notReady > 0 {
		b.notReady--
		for i := range r {
			r[i] = 0x00
		}
		return nil
	}
	copy(r, b.pending)
	return nil
}

func newFakeTransport(tag *nbttest.VirtualTag, notReady int) (*Transport, *fakeBus) {
	bus := &fakeBus{tag: tag, notReady: notReady}
	return &Transport{
		dev:     &i2cconn.Dev{Addr: tagAddr, Bus: bus},
		busName: "fake",
		timeout: 100 * time.Millisecond,
	}, bus
}

func TestTransmitRoundTrip(t *testing.T) {
	t.Parallel()

	tr, _ := newFakeTransport(nbttest.NewVirtualTag(), 0)

	resp, err := tr.Transmit([]byte{0x00, 0xA4, 0x00, 0x0C, 0x02, 0xE1, 0x04})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x00}, resp)
}

func TestTransmitPollsUntilReady(t *testing.T) {
	t.Parallel()

	tr, bus := newFakeTransport(nbttest.NewVirtualTag(), 3)

	resp, err := tr.Transmit([]byte{0x00, 0xA4, 0x00, 0x0C, 0x02, 0xE1, 0x04})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x00}, resp)
	assert.Zero(t, bus.notReady)
}

func TestTransmitNotReadyTimeout(t *testing.T) {
	t.Parallel()

	tr, _ := newFakeTransport(nbttest.NewVirtualTag(), 1<<30)
	require.NoError(t, tr.SetTimeout(20*time.Millisecond))

	_, err := tr.Transmit([]byte{0x00, 0xA4, 0x00, 0x0C, 0x02, 0xE1, 0x04})
	require.ErrorIs(t, err, nbt.ErrTransportNotReady)
}

func TestTransmitThroughDevice(t *testing.T) {
	t.Parallel()

	tag := nbttest.NewVirtualTag()
	tr, _ := newFakeTransport(tag, 0)
	dev := nbt.New(tr)

	require.NoError(t, dev.SelectApplication())
	require.NoError(t, dev.SelectFile(nbt.FileNDEF))

	data, err := dev.ReadBinary(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, data)
}

func TestTransmitContextCancelled(t *testing.T) {
	t.Parallel()

	tr, _ := newFakeTransport(nbttest.NewVirtualTag(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.TransmitWithContext(ctx, []byte{0x00, 0xA4, 0x04, 0x0C})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTransportClosed(t *testing.T) {
	t.Parallel()

	tr, _ := newFakeTransport(nbttest.NewVirtualTag(), 0)
	assert.Equal(t, nbt.TransportI2C, tr.Type())
	assert.True(t, tr.IsConnected())

	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())

	_, err := tr.Transmit([]byte{0x00, 0xA4, 0x04, 0x0C})
	require.ErrorIs(t, err, nbt.ErrTransportClosed)
}

func TestParseI2CPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/dev/i2c-1", parseI2CPath("/dev/i2c-1:0x18"))
	assert.Equal(t, "/dev/i2c-1", parseI2CPath("/dev/i2c-1"))
}
