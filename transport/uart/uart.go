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

// Package uart connects a SportIdent master station over a serial port: it
// writes driver commands and decodes the station byte stream into the driver
// message queue.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	sportident "github.com/ZaparooProject/go-sportident"
	"github.com/ZaparooProject/go-sportident/internal/frame"
	"github.com/ZaparooProject/go-sportident/internal/syncutil"
	"github.com/puzpuzpuz/xsync/v3"
	"go.bug.st/serial"
)

// Station baud rates. BSM7/8 stations answer at high speed, older stations
// and stations switched by SI-Config at low speed.
const (
	HighSpeed = 38400
	LowSpeed  = 4800
)

const readBufferSize = 512

// Port is the part of serial.Port the transport needs.
type Port interface {
	io.ReadWriteCloser
	SetMode(mode *serial.Mode) error
	SetReadTimeout(t time.Duration) error
	Drain() error
	ResetInputBuffer() error
}

// Transport implements sportident.Writer and sportident.SpeedSwitcher over a
// serial port.
type Transport struct {
	port      Port
	portName  string
	received  *xsync.Counter
	corrupted *xsync.Counter
	mu        syncutil.Mutex
	closed    atomic.Bool
}

var (
	_ sportident.Writer        = (*Transport)(nil)
	_ sportident.SpeedSwitcher = (*Transport)(nil)
)

// isWindows returns true if running on Windows
func isWindows() bool {
	return runtime.GOOS == "windows"
}

// getReadTimeout returns how long one Read may block. Windows USB serial
// drivers need a longer window.
func getReadTimeout() time.Duration {
	if isWindows() {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

func mode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// New opens portName at high speed.
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, mode(HighSpeed))
	if err != nil {
		return nil, fmt.Errorf("failed to open station port %s: %w", portName, err)
	}

	t, err := NewWithPort(port, portName)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// NewWithPort wraps an already open port.
func NewWithPort(port Port, portName string) (*Transport, error) {
	if err := port.SetReadTimeout(getReadTimeout()); err != nil {
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}
	return &Transport{
		port:      port,
		portName:  portName,
		received:  xsync.NewCounter(),
		corrupted: xsync.NewCounter(),
	}, nil
}

// PortName returns the device path the transport was opened on.
func (t *Transport) PortName() string {
	return t.portName
}

// Write sends msg to the station and waits for the bytes to leave the port.
func (t *Transport) Write(msg sportident.Message) error {
	if t.closed.Load() {
		return t.wrap("write", sportident.ErrTransportClosed)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	data := msg.Bytes()
	n, err := t.port.Write(data)
	if err != nil {
		return t.wrap("write "+msg.Kind().String(), err)
	}
	if n != len(data) {
		return t.wrap("write "+msg.Kind().String(), io.ErrShortWrite)
	}
	sportident.Debugf("TX %s", msg)
	return t.drainWithRetry()
}

// SetHighSpeed switches the port to 38400 baud.
func (t *Transport) SetHighSpeed() error {
	return t.setBaudRate(HighSpeed)
}

// SetLowSpeed switches the port to 4800 baud.
func (t *Transport) SetLowSpeed() error {
	return t.setBaudRate(LowSpeed)
}

func (t *Transport) setBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.port.SetMode(mode(baud)); err != nil {
		return t.wrap(fmt.Sprintf("set %d baud", baud), err)
	}
	// Bytes received at the old rate are garbage
	if err := t.port.ResetInputBuffer(); err != nil {
		return t.wrap("reset input", err)
	}
	sportident.Debugf("%s: %d baud", t.portName, baud)
	return nil
}

// Listen reads the station until ctx is done or the port fails, adding every
// decoded message to q. It returns nil when stopped by ctx or Close.
func (t *Transport) Listen(ctx context.Context, q *sportident.MessageQueue) error {
	dec := frame.NewDecoder()
	buf := make([]byte, readBufferSize)

	for ctx.Err() == nil {
		n, err := t.port.Read(buf)
		if err != nil {
			switch {
			case t.closed.Load():
				return nil
			case isPortClosed(err):
				return t.wrap("read", sportident.ErrTransportClosed)
			case isInterruptedSystemCall(err):
				continue
			default:
				return t.wrap("read", err)
			}
		}
		if n == 0 {
			continue
		}

		before := dec.Corrupted()
		for _, raw := range dec.Feed(buf[:n]) {
			msg := sportident.NewMessage(raw)
			sportident.Debugf("RX %s", msg)
			t.received.Inc()
			q.Add(msg)
		}
		if lost := dec.Corrupted() - before; lost > 0 {
			t.corrupted.Add(int64(lost))
			sportident.Logger().Warn("discarded corrupt station frame", "port", t.portName, "count", lost)
		}
	}
	return nil
}

// Received returns how many messages Listen decoded.
func (t *Transport) Received() int64 {
	return t.received.Value()
}

// Corrupted returns how many frames Listen discarded for a bad CRC or
// terminator.
func (t *Transport) Corrupted() int64 {
	return t.corrupted.Value()
}

// Close closes the port. Listen returns once its pending Read ends.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("station port close failed: %w", err)
	}
	return nil
}

func (t *Transport) wrap(op string, err error) error {
	return &sportident.TransportError{Op: op, Port: t.portName, Err: err}
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for the output buffer to empty, retrying interrupted
// system calls.
func (t *Transport) drainWithRetry() error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	var err error
	for attempt := range maxRetries {
		err = t.port.Drain()
		if err == nil {
			return nil
		}
		if !isInterruptedSystemCall(err) {
			break
		}
		time.Sleep(baseDelay * time.Duration(1<<attempt)) // 2ms, 4ms, 8ms
	}
	if isPortClosed(err) {
		return t.wrap("drain", sportident.ErrTransportClosed)
	}
	return t.wrap("drain", err)
}

// isPortClosed reports whether err is the serial library's closed port error.
func isPortClosed(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == serial.PortClosed
	}
	var portErrValue serial.PortError
	if errors.As(err, &portErrValue) {
		return portErrValue.Code() == serial.PortClosed
	}
	return false
}
