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

package uart

import (
	"context"
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	sportident "github.com/ZaparooProject/go-sportident"
	"github.com/ZaparooProject/go-sportident/dataframe"
	"github.com/ZaparooProject/go-sportident/internal/syncutil"
	testutil "github.com/ZaparooProject/go-sportident/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

var errReadFailed = errors.New("read failed")

// stationPort exposes a virtual station as a serial port. When answerBaud is
// set the station stays silent at every other baud rate.
type stationPort struct {
	conn       io.ReadWriter
	station    *testutil.VirtualStation
	drainErrs  []error
	readErr    error
	modes      []int
	answerBaud int
	shortWrite bool
	mu         syncutil.Mutex
}

func newStationPort(station *testutil.VirtualStation, jitter bool) *stationPort {
	p := &stationPort{station: station, conn: station}
	if jitter {
		p.conn = testutil.NewJitteryConnection(station, testutil.DefaultJitterConfig())
	}
	return p
}

func (p *stationPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	err := p.readErr
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return p.conn.Read(buf) //nolint:wrapcheck // Test port
}

func (p *stationPort) Write(data []byte) (int, error) {
	if p.shortWrite {
		return len(data) - 1, nil
	}
	return p.conn.Write(data) //nolint:wrapcheck // Test port
}

func (p *stationPort) Close() error {
	return p.station.Close()
}

func (p *stationPort) SetMode(m *serial.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modes = append(p.modes, m.BaudRate)
	p.station.SetSilent(p.answerBaud != 0 && m.BaudRate != p.answerBaud)
	return nil
}

func (*stationPort) SetReadTimeout(time.Duration) error { return nil }

func (*stationPort) ResetInputBuffer() error { return nil }

func (p *stationPort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.drainErrs) == 0 {
		return nil
	}
	err := p.drainErrs[0]
	p.drainErrs = p.drainErrs[1:]
	return err
}

func (p *stationPort) Modes() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.modes...)
}

func newTestTransport(t *testing.T, port Port) *Transport {
	t.Helper()
	tr, err := NewWithPort(port, "/dev/ttySI0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestTransport_Write(t *testing.T) {
	t.Parallel()

	station := testutil.NewVirtualStation()
	tr := newTestTransport(t, newStationPort(station, false))

	require.NoError(t, tr.Write(sportident.GetProtocolConfiguration))
	require.NoError(t, tr.Write(sportident.Ack))
	assert.Equal(t, [][]byte{
		sportident.GetProtocolConfiguration.Bytes(),
		sportident.Ack.Bytes(),
	}, station.CommandLog())
	assert.Equal(t, "/dev/ttySI0", tr.PortName())
}

func TestTransport_WriteErrors(t *testing.T) {
	t.Parallel()

	t.Run("short write", func(t *testing.T) {
		t.Parallel()
		port := newStationPort(testutil.NewVirtualStation(), false)
		port.shortWrite = true
		tr := newTestTransport(t, port)

		err := tr.Write(sportident.ReadSiCard5)
		var te *sportident.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "/dev/ttySI0", te.Port)
		require.ErrorIs(t, err, io.ErrShortWrite)
	})

	t.Run("after close", func(t *testing.T) {
		t.Parallel()
		tr := newTestTransport(t, newStationPort(testutil.NewVirtualStation(), false))
		require.NoError(t, tr.Close())
		require.NoError(t, tr.Close())

		err := tr.Write(sportident.Ack)
		require.ErrorIs(t, err, sportident.ErrTransportClosed)
		assert.True(t, sportident.IsFatal(err))
	})

	t.Run("drain interrupted then ok", func(t *testing.T) {
		t.Parallel()
		port := newStationPort(testutil.NewVirtualStation(), false)
		port.drainErrs = []error{errors.New("interrupted system call"), syscall.EINTR}
		tr := newTestTransport(t, port)

		require.NoError(t, tr.Write(sportident.Ack))
	})

	t.Run("drain fails", func(t *testing.T) {
		t.Parallel()
		port := newStationPort(testutil.NewVirtualStation(), false)
		port.drainErrs = []error{syscall.EIO}
		tr := newTestTransport(t, port)

		err := tr.Write(sportident.Ack)
		require.ErrorIs(t, err, syscall.EIO)
		assert.True(t, sportident.IsFatal(err))
	})
}

func TestTransport_SpeedSwitch(t *testing.T) {
	t.Parallel()

	port := newStationPort(testutil.NewVirtualStation(), false)
	tr := newTestTransport(t, port)

	require.NoError(t, tr.SetHighSpeed())
	require.NoError(t, tr.SetLowSpeed())
	assert.Equal(t, []int{HighSpeed, LowSpeed}, port.Modes())
}

func TestTransport_ListenDecodesFragments(t *testing.T) {
	t.Parallel()

	station := testutil.NewVirtualStation()
	tr := newTestTransport(t, newStationPort(station, true))
	q := sportident.NewMessageQueue(16, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Listen(ctx, q) }()

	corrupt := testutil.BuildSi6Detected(500001)
	corrupt[len(corrupt)-2] ^= 0xFF

	station.Inject(append([]byte{0xFF, 0x02}, testutil.BuildStartupAnswer()...))
	station.Inject(corrupt)
	station.Inject(testutil.NAK)
	station.Inject(testutil.BuildSi8PlusDetected(testutil.SeriesByteSi8, 2012345))

	want := []sportident.Kind{sportident.KindSetMasterMode, sportident.KindNak, sportident.KindSi8PlusDetected}
	for _, kind := range want {
		msg, err := q.ReceiveExpected(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, kind, msg.Kind())
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int64(3), tr.Received())
	assert.Equal(t, int64(1), tr.Corrupted())
}

func TestTransport_ListenReadError(t *testing.T) {
	t.Parallel()

	port := newStationPort(testutil.NewVirtualStation(), false)
	port.readErr = errReadFailed
	tr := newTestTransport(t, port)

	err := tr.Listen(context.Background(), sportident.NewMessageQueue(4, time.Second))
	var te *sportident.TransportError
	require.ErrorAs(t, err, &te)
	require.ErrorIs(t, err, errReadFailed)
}

func TestTransport_ListenStopsOnClose(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, newStationPort(testutil.NewVirtualStation(), false))
	done := make(chan error, 1)
	go func() { done <- tr.Listen(context.Background(), sportident.NewMessageQueue(4, time.Second)) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, tr.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after Close")
	}
}

func TestTransport_DriverSession(t *testing.T) {
	t.Parallel()

	station := testutil.NewVirtualStation()
	port := newStationPort(station, true)
	port.answerBaud = LowSpeed
	tr := newTestTransport(t, port)

	q := sportident.NewMessageQueue(sportident.DefaultQueueCapacity, 100*time.Millisecond)
	frames := make(chan dataframe.DataFrame, 1)
	ready := make(chan struct{}, 8)
	handler := sportident.HandlerFuncs{
		OnStatus: func(s sportident.CommStatus) {
			if s == sportident.StatusReady {
				ready <- struct{}{}
			}
		},
		OnFrame: func(f dataframe.DataFrame) { frames <- f },
	}
	driver := sportident.NewDriver(q, tr, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Listen(ctx, q) }()
	done := make(chan error, 1)
	go func() { done <- driver.Run(ctx) }()

	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("driver never became ready")
	}

	spec := testutil.CardSpec{
		Number:  304123,
		Check:   testutil.NoTime,
		Start:   14 * time.Hour,
		Finish:  15 * time.Hour,
		Punches: []testutil.CardPunch{{Code: 31, Time: 14*time.Hour + 20*time.Minute}},
	}
	station.InsertCard(testutil.NewSi5Card(spec))

	var frame dataframe.DataFrame
	select {
	case frame = <-frames:
	case <-time.After(3 * time.Second):
		t.Fatal("no frame")
	}
	resolved := frame.StartingAt(13 * time.Hour)
	assert.Equal(t, 304123, resolved.CardNumber())
	assert.Equal(t, 14*time.Hour, resolved.StartTime())
	assert.Equal(t, 15*time.Hour, resolved.FinishTime())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []int{HighSpeed, LowSpeed}, port.Modes())
	assert.Equal(t, int64(1), driver.Stats().CardsRead)
}

func TestGetReadTimeout(t *testing.T) {
	t.Parallel()

	if isWindows() {
		assert.Equal(t, 100*time.Millisecond, getReadTimeout())
	} else {
		assert.Equal(t, 50*time.Millisecond, getReadTimeout())
	}
}

func TestTransport_Probe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		answerBaud int
		wantModes  []int
		want       bool
	}{
		{name: "high speed station", answerBaud: HighSpeed, want: true, wantModes: []int{HighSpeed}},
		{name: "low speed station", answerBaud: LowSpeed, want: true, wantModes: []int{HighSpeed, LowSpeed}},
		{name: "no station", answerBaud: 9600, want: false, wantModes: []int{HighSpeed, LowSpeed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			port := newStationPort(testutil.NewVirtualStation(), false)
			port.answerBaud = tt.answerBaud
			tr := newTestTransport(t, port)

			assert.Equal(t, tt.want, tr.Probe(context.Background()))
			assert.Equal(t, tt.wantModes, port.Modes())
		})
	}
}

func TestTransport_ProbeCancelled(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, newStationPort(testutil.NewVirtualStation(), false))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, tr.Probe(ctx))
}
