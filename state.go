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

	"github.com/ZaparooProject/go-sportident/dataframe"
)

// DriverState is one step of the station protocol. States carry no data:
// everything a transition needs comes from its arguments, so the same value
// can be reused for every card.
type DriverState int

const (
	// StartupCheck waits for the answer to the startup sequence
	StartupCheck DriverState = iota
	// ExtendedProtocolCheck waits for the protocol configuration answer
	ExtendedProtocolCheck
	// ExtendedProtocolError is terminal: the station cannot be driven
	ExtendedProtocolError
	// DispatchReady waits for a card to be inserted
	DispatchReady
	RetrieveSi5Data
	RetrieveSi6Data
	RetrieveSi8And9Data
	RetrieveSi10PlusData
	// WaitSiCardRemoval waits for the read card to be taken off
	WaitSiCardRemoval
)

var stateNames = map[DriverState]string{
	StartupCheck:          "STARTUP_CHECK",
	ExtendedProtocolCheck: "EXTENDED_PROTOCOL_CHECK",
	ExtendedProtocolError: "EXTENDED_PROTOCOL_ERROR",
	DispatchReady:         "DISPATCH_READY",
	RetrieveSi5Data:       "RETRIEVE_SICARD_5_DATA",
	RetrieveSi6Data:       "RETRIEVE_SICARD_6_DATA",
	RetrieveSi8And9Data:   "RETRIEVE_SICARD_8_9_DATA",
	RetrieveSi10PlusData:  "RETRIEVE_SICARD_10_PLUS_DATA",
	WaitSiCardRemoval:     "WAIT_SICARD_REMOVAL",
}

func (s DriverState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DriverState(%d)", int(s))
}

// IsTerminal reports whether the state has no transition.
func (s DriverState) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// IsHandshake reports whether failures in this state end the driver.
func (s DriverState) IsHandshake() bool {
	return s == StartupCheck || s == ExtendedProtocolCheck
}

type transitionFunc func(ctx context.Context, q *MessageQueue, w Writer, h Handler) (DriverState, error)

var transitions = map[DriverState]transitionFunc{
	StartupCheck:          startupCheck,
	ExtendedProtocolCheck: extendedProtocolCheck,
	DispatchReady:         dispatchReady,
	RetrieveSi5Data:       si5Retrieval.run,
	RetrieveSi6Data:       si6Retrieval.run,
	RetrieveSi8And9Data:   si8And9Retrieval.run,
	RetrieveSi10PlusData:  si10PlusRetrieval.run,
	WaitSiCardRemoval:     waitSiCardRemoval,
}

// Transition consumes messages from q, sends commands through w, reports to h
// and returns the next state.
//
// Handshake states return timeouts and unexpected messages as errors.
// Retrieval states absorb them: they notify StatusProcessingError and return
// DispatchReady. Write failures and ctx cancellation are returned from every
// state, together with s.
func (s DriverState) Transition(ctx context.Context, q *MessageQueue, w Writer, h Handler) (DriverState, error) {
	fn, ok := transitions[s]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrTerminalState, s)
	}
	return fn(ctx, q, w, h)
}

func write(w Writer, msg Message) error {
	if err := w.Write(msg); err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return te
		}
		return &TransportError{Op: "write " + msg.Kind().String(), Err: err}
	}
	return nil
}

func startupCheck(ctx context.Context, q *MessageQueue, w Writer, _ Handler) (DriverState, error) {
	if _, err := q.ReceiveExpected(ctx, KindSetMasterMode); err != nil {
		return StartupCheck, err
	}
	if err := write(w, GetProtocolConfiguration); err != nil {
		return StartupCheck, err
	}
	return ExtendedProtocolCheck, nil
}

func extendedProtocolCheck(ctx context.Context, q *MessageQueue, _ Writer, h Handler) (DriverState, error) {
	msg, err := q.ReceiveExpected(ctx, KindGetSystemValue)
	if err != nil {
		return ExtendedProtocolCheck, err
	}
	if !msg.ExtendedProtocol() {
		logger().Error("station replied without extended protocol", "message", msg.String())
		return ExtendedProtocolError, nil
	}
	h.NotifyStatus(StatusOn)
	return DispatchReady, nil
}

type dispatchRoute struct {
	command Message
	next    DriverState
}

var dispatchTable = map[dataframe.Series]dispatchRoute{
	dataframe.SeriesSi5:   {command: ReadSiCard5, next: RetrieveSi5Data},
	dataframe.SeriesSi6:   {command: ReadSiCard6Block0, next: RetrieveSi6Data},
	dataframe.SeriesSi8:   {command: ReadSiCard8PlusBlock0, next: RetrieveSi8And9Data},
	dataframe.SeriesSi9:   {command: ReadSiCard8PlusBlock0, next: RetrieveSi8And9Data},
	dataframe.SeriesPCard: {command: ReadSiCard8PlusBlock0, next: RetrieveSi8And9Data},
	dataframe.SeriesSi10:  {command: ReadSiCard10PlusBlock8, next: RetrieveSi10PlusData},
	dataframe.SeriesSi11:  {command: ReadSiCard10PlusBlock8, next: RetrieveSi10PlusData},
	dataframe.SeriesSIAC:  {command: ReadSiCard10PlusBlock8, next: RetrieveSi10PlusData},
}

// dispatchReady waits without deadline for a card. Anything else, including
// removals of cards that were never dispatched, is dropped.
func dispatchReady(ctx context.Context, q *MessageQueue, w Writer, h Handler) (DriverState, error) {
	h.NotifyStatus(StatusReady)
	for {
		msg, err := q.Wait(ctx)
		if err != nil {
			return DispatchReady, err
		}

		det, ok := msg.Detection()
		if !ok {
			Debugf("%s: ignoring %s", DispatchReady, msg)
			continue
		}
		route, ok := dispatchTable[det.Generation]
		if !ok {
			logger().Warn("unsupported card inserted",
				"card", det.CardNumber, "series_byte", fmt.Sprintf("0x%02X", msg.At(5)))
			continue
		}

		Debugf("%s: %s %d detected", DispatchReady, det.Generation, det.CardNumber)
		if err := write(w, route.command); err != nil {
			return DispatchReady, err
		}
		return route.next, nil
	}
}

// retrieval reads the blocks of one card generation. reads holds, for each
// awaited block, the command to write before waiting for it; a zero Message
// means the block follows without a new request.
type retrieval struct {
	assemble func(blocks []dataframe.Block) (dataframe.DataFrame, error)
	reads    []Message
	state    DriverState
	kind     Kind
}

var (
	si5Retrieval = retrieval{
		state: RetrieveSi5Data,
		kind:  KindGetSi5,
		reads: []Message{{}},
		assemble: func(blocks []dataframe.Block) (dataframe.DataFrame, error) {
			if len(blocks) != 1 {
				return nil, fmt.Errorf("%w: got %d blocks, want 1", dataframe.ErrIncompleteFrame, len(blocks))
			}
			return dataframe.NewSi5Frame(blocks[0])
		},
	}
	si6Retrieval = retrieval{
		state: RetrieveSi6Data,
		kind:  KindGetSi6,
		reads: []Message{{}, ReadSiCard6Block6, ReadSiCard6Block7},
		assemble: func(blocks []dataframe.Block) (dataframe.DataFrame, error) {
			return dataframe.NewSi6Frame(blocks)
		},
	}
	si8And9Retrieval = retrieval{
		state:    RetrieveSi8And9Data,
		kind:     KindGetSi8Plus,
		reads:    []Message{{}, ReadSiCard8PlusBlock1},
		assemble: assembleSi8Plus,
	}
	si10PlusRetrieval = retrieval{
		state:    RetrieveSi10PlusData,
		kind:     KindGetSi8Plus,
		reads:    []Message{{}, {}, {}, {}, {}},
		assemble: assembleSi8Plus,
	}
)

func assembleSi8Plus(blocks []dataframe.Block) (dataframe.DataFrame, error) {
	return dataframe.NewSi8PlusFrame(blocks)
}

func (r retrieval) run(ctx context.Context, q *MessageQueue, w Writer, h Handler) (DriverState, error) {
	blocks := make([]dataframe.Block, 0, len(r.reads))
	for _, cmd := range r.reads {
		if cmd.Len() > 0 {
			if err := write(w, cmd); err != nil {
				return r.state, err
			}
		}

		msg, err := q.ReceiveExpected(ctx, r.kind)
		if err != nil {
			if IsRecoverable(err) {
				return r.abort(h, err)
			}
			return r.state, err
		}
		block, ok := msg.Block()
		if !ok {
			return r.abort(h, fmt.Errorf("no block in %s", msg))
		}
		blocks = append(blocks, block)
	}

	frame, err := r.assemble(blocks)
	if err != nil {
		return r.abort(h, err)
	}
	if err := write(w, Ack); err != nil {
		return r.state, err
	}
	h.NotifyFrame(frame)
	return WaitSiCardRemoval, nil
}

// abort drops the blocks read so far and resets the driver for the next card.
func (r retrieval) abort(h Handler, cause error) (DriverState, error) {
	logger().Warn("card read aborted", "state", r.state.String(), "error", cause)
	h.NotifyStatus(StatusProcessingError)
	return DispatchReady, nil
}

// waitSiCardRemoval returns once the card is removed. A timeout counts as a
// removal; other messages are ignored.
func waitSiCardRemoval(ctx context.Context, q *MessageQueue, _ Writer, _ Handler) (DriverState, error) {
	for {
		msg, err := q.Receive(ctx)
		switch {
		case err == nil && msg.Kind() == KindCardRemoved:
			return DispatchReady, nil
		case err == nil:
			Debugf("%s: ignoring %s", WaitSiCardRemoval, msg)
		case errors.Is(err, ErrTimeout):
			Debugf("%s: no removal seen, assuming card is gone", WaitSiCardRemoval)
			return DispatchReady, nil
		default:
			return WaitSiCardRemoval, err
		}
	}
}
