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

import "github.com/ZaparooProject/go-sportident/dataframe"

// CommStatus is a lifecycle milestone reported to the Handler.
type CommStatus int

const (
	// StatusOff is sent once when the driver loop exits
	StatusOff CommStatus = iota
	// StatusStarting is sent before the handshake begins
	StatusStarting
	// StatusOn means the handshake completed and the extended protocol is active
	StatusOn
	// StatusReady means the driver waits for the next card
	StatusReady
	// StatusProcessingError means a card read was aborted; no frame follows
	StatusProcessingError
	// StatusFatalError means the driver stopped on an unrecoverable error
	StatusFatalError
)

func (s CommStatus) String() string {
	switch s {
	case StatusOff:
		return "OFF"
	case StatusStarting:
		return "STARTING"
	case StatusOn:
		return "ON"
	case StatusReady:
		return "READY"
	case StatusProcessingError:
		return "PROCESSING_ERROR"
	case StatusFatalError:
		return "FATAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Writer sends commands to the station.
type Writer interface {
	// Write sends the bytes of msg. An error is fatal for the driver.
	Write(msg Message) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(msg Message) error

// Write calls f(msg).
func (f WriterFunc) Write(msg Message) error {
	return f(msg)
}

// SpeedSwitcher is implemented by writers that can change the port baud rate.
// The driver uses it to retry the startup at the low station speed.
type SpeedSwitcher interface {
	SetHighSpeed() error
	SetLowSpeed() error
}

// Handler receives status notifications and completed card frames. It is
// called synchronously from the driver loop, in protocol order, and must not
// block for long.
type Handler interface {
	NotifyStatus(status CommStatus)
	NotifyFrame(frame dataframe.DataFrame)
}

// HandlerFuncs adapts optional callbacks to the Handler interface.
type HandlerFuncs struct {
	OnStatus func(status CommStatus)
	OnFrame  func(frame dataframe.DataFrame)
}

// NotifyStatus calls OnStatus when set.
func (h HandlerFuncs) NotifyStatus(status CommStatus) {
	if h.OnStatus != nil {
		h.OnStatus(status)
	}
}

// NotifyFrame calls OnFrame when set.
func (h HandlerFuncs) NotifyFrame(frame dataframe.DataFrame) {
	if h.OnFrame != nil {
		h.OnFrame(frame)
	}
}
