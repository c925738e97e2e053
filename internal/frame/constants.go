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

package frame

// Control bytes of the SportIdent serial protocol.
const (
	Wakeup = 0xFF // Sent before a command to wake a sleeping station
	STX    = 0x02 // Start of a framed message
	ETX    = 0x03 // End of a framed message
	ACK    = 0x06 // Positive acknowledge, also sent alone after a card read
	NAK    = 0x15 // Negative acknowledge
	DLE    = 0x10 // Escape byte, only used by the legacy base protocol
)

// Frame layout of extended protocol messages: STX CMD LEN DATA... CRC1 CRC0 ETX
const (
	HeaderLength  = 3   // STX + CMD + LEN
	TrailerLength = 3   // CRC1 + CRC0 + ETX
	MinFrameSize  = 6   // Frame with an empty payload
	MaxDataLength = 255 // LEN is a single byte
	MaxFrameSize  = MaxDataLength + HeaderLength + TrailerLength
)
