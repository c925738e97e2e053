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

package sportident

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ZaparooProject/go-sportident/dataframe"
	"github.com/puzpuzpuz/xsync/v3"
)

// DriverStats is a snapshot of the driver counters.
type DriverStats struct {
	CardsRead        int64
	ProcessingErrors int64
	DroppedMessages  int64
	State            DriverState
}

// Driver runs the station protocol: handshake, then an endless loop of card
// detection, retrieval and removal.
type Driver struct {
	queue            *MessageQueue
	writer           Writer
	handler          Handler
	cardsRead        *xsync.Counter
	processingErrors *xsync.Counter
	state            atomic.Int64
	lowSpeedFallback bool
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithLowSpeedFallback controls whether the startup is retried at the low
// station speed when the writer is a SpeedSwitcher. Enabled by default.
func WithLowSpeedFallback(enabled bool) DriverOption {
	return func(d *Driver) {
		d.lowSpeedFallback = enabled
	}
}

// NewDriver creates a driver reading station messages from queue and sending
// commands through writer. handler may be nil.
func NewDriver(queue *MessageQueue, writer Writer, handler Handler, opts ...DriverOption) *Driver {
	if handler == nil {
		handler = HandlerFuncs{}
	}
	d := &Driver{
		queue:            queue,
		writer:           writer,
		handler:          handler,
		cardsRead:        xsync.NewCounter(),
		processingErrors: xsync.NewCounter(),
		lowSpeedFallback: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drives the station until ctx is done, the handshake fails or the
// station turns out not to support the extended protocol. Per-card failures
// never stop it. Handshake timeouts and unexpected messages are returned
// unchanged in meaning (see IsHandshakeFailure); the caller decides whether to
// run the handshake again.
//
// The handler receives StatusStarting first and StatusOff last.
func (d *Driver) Run(ctx context.Context) error {
	h := &countingHandler{Handler: d.handler, d: d}
	h.NotifyStatus(StatusStarting)
	defer h.NotifyStatus(StatusOff)

	state, err := d.bootstrap(ctx, h)
	for err == nil && !state.IsTerminal() {
		d.state.Store(int64(state))
		state, err = state.Transition(ctx, d.queue, d.writer, h)
	}
	d.state.Store(int64(state))

	switch {
	case err != nil && isContextError(err):
		return err
	case err != nil:
		logger().Error("driver stopped", "state", state.String(), "error", err)
		h.NotifyStatus(StatusFatalError)
		return fmt.Errorf("%s: %w", state, err)
	case state == ExtendedProtocolError:
		h.NotifyStatus(StatusFatalError)
		return ErrExtendedProtocolUnsupported
	default:
		return nil
	}
}

// bootstrap sends the startup sequence and runs StartupCheck, retrying once at
// low speed when the station does not answer at high speed.
func (d *Driver) bootstrap(ctx context.Context, h Handler) (DriverState, error) {
	switcher, canSwitch := d.writer.(SpeedSwitcher)
	if canSwitch {
		if err := switcher.SetHighSpeed(); err != nil {
			return StartupCheck, &TransportError{Op: "set high speed", Err: err}
		}
	}

	d.state.Store(int64(StartupCheck))
	if err := write(d.writer, StartupSequence); err != nil {
		return StartupCheck, err
	}
	next, err := StartupCheck.Transition(ctx, d.queue, d.writer, h)
	if !errors.Is(err, ErrTimeout) || !canSwitch || !d.lowSpeedFallback {
		return next, err
	}

	logger().Info("no answer at high speed, retrying startup at low speed")
	if err := switcher.SetLowSpeed(); err != nil {
		return StartupCheck, &TransportError{Op: "set low speed", Err: err}
	}
	if err := write(d.writer, StartupSequence); err != nil {
		return StartupCheck, err
	}
	return StartupCheck.Transition(ctx, d.queue, d.writer, h)
}

// State returns the state the driver is currently in.
func (d *Driver) State() DriverState {
	return DriverState(d.state.Load())
}

// Stats returns a snapshot of the driver counters.
func (d *Driver) Stats() DriverStats {
	return DriverStats{
		CardsRead:        d.cardsRead.Value(),
		ProcessingErrors: d.processingErrors.Value(),
		DroppedMessages:  d.queue.Dropped(),
		State:            d.State(),
	}
}

// countingHandler updates the driver counters before forwarding events.
type countingHandler struct {
	Handler
	d *Driver
}

func (c *countingHandler) NotifyStatus(status CommStatus) {
	if status == StatusProcessingError {
		c.d.processingErrors.Inc()
	}
	Debugf("status %s", status)
	c.Handler.NotifyStatus(status)
}

func (c *countingHandler) NotifyFrame(frame dataframe.DataFrame) {
	c.d.cardsRead.Inc()
	c.Handler.NotifyFrame(frame)
}
