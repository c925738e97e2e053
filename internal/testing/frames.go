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

package testing

import "github.com/ZaparooProject/go-sportident/internal/frame"

// Command bytes used by stations and cards
const (
	CmdGetSi5          = 0xB1
	CmdGetSi6          = 0xE1
	CmdSi5Detected     = 0xE5
	CmdSi6Detected     = 0xE6
	CmdCardRemoved     = 0xE7
	CmdSi8PlusDetected = 0xE8
	CmdGetSi8Plus      = 0xEF
	CmdSetMasterMode   = 0xF0
	CmdBeep            = 0xF9
	CmdGetSystemValue  = 0x83
)

// StationCode is the code of the simulated master station.
const StationCode = 0x0001

func stationPrefix(data ...byte) []byte {
	return append([]byte{byte(StationCode >> 8), byte(StationCode)}, data...)
}

// BuildStartupAnswer returns the reply to the set master mode command.
func BuildStartupAnswer() []byte {
	return frame.Encode(CmdSetMasterMode, stationPrefix(0x4D))
}

// BuildConfigAnswer returns the reply to the protocol configuration query.
func BuildConfigAnswer(extended bool) []byte {
	cfg := byte(0x04)
	if extended {
		cfg |= 0x01
	}
	return frame.Encode(CmdGetSystemValue, stationPrefix(0x74, cfg))
}

// BuildSi5Detected returns the insertion message of an SI5 card.
func BuildSi5Detected(number int) []byte {
	n := number % 100000
	return frame.Encode(CmdSi5Detected, stationPrefix(0x00, byte(number/100000), byte(n>>8), byte(n)))
}

// BuildSi6Detected returns the insertion message of an SI6 card.
func BuildSi6Detected(number int) []byte {
	return frame.Encode(CmdSi6Detected, stationPrefix(0x00, byte(number>>16), byte(number>>8), byte(number)))
}

// BuildSi8PlusDetected returns the insertion message of an SI8 or newer card.
func BuildSi8PlusDetected(seriesByte byte, number int) []byte {
	return frame.Encode(CmdSi8PlusDetected,
		stationPrefix(seriesByte, byte(number>>16), byte(number>>8), byte(number)))
}

// BuildCardRemoved returns the removal message for any card.
func BuildCardRemoved(number int) []byte {
	return frame.Encode(CmdCardRemoved, stationPrefix(0x00, byte(number>>16), byte(number>>8), byte(number)))
}

// BuildSi5DataReply returns the reply carrying the memory of an SI5 card.
func BuildSi5DataReply(block []byte) []byte {
	return frame.Encode(CmdGetSi5, stationPrefix(block...))
}

// BuildBlockReply returns the reply carrying one block of an SI6 or newer card.
func BuildBlockReply(cmd byte, index int, block []byte) []byte {
	return frame.Encode(cmd, stationPrefix(append([]byte{byte(index)}, block...)...))
}

// BuildBeep returns the beep acknowledgement sent by some stations.
func BuildBeep() []byte {
	return frame.Encode(CmdBeep, stationPrefix(0x01))
}

// NAK is the single byte negative acknowledge.
var NAK = []byte{frame.NAK}
