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
	"fmt"

	"github.com/ZaparooProject/go-sportident/dataframe"
	"github.com/ZaparooProject/go-sportident/internal/frame"
)

// Command bytes of the SportIdent extended protocol
const (
	CmdGetSystemValue  = 0x83
	CmdGetSi5          = 0xB1
	CmdGetSi6          = 0xE1
	CmdSi5Detected     = 0xE5
	CmdSi6Detected     = 0xE6
	CmdCardRemoved     = 0xE7
	CmdSi8PlusDetected = 0xE8
	CmdGetSi8Plus      = 0xEF
	CmdSetMasterMode   = 0xF0
	CmdBeep            = 0xF9
)

// Addresses in the station system memory
const (
	addrProtocolConfig = 0x74
	addrCardBlocks     = 0x33

	extendedProtocolMask = 0x01
)

// Kind classifies a message by its command byte.
type Kind int

const (
	KindUnknown Kind = iota
	KindAck
	KindNak
	KindSetMasterMode
	KindGetSystemValue
	KindSi5Detected
	KindSi6Detected
	KindSi8PlusDetected
	KindCardRemoved
	KindGetSi5
	KindGetSi6
	KindGetSi8Plus
	KindBeep
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindAck:             "ack",
	KindNak:             "nak",
	KindSetMasterMode:   "set-master-mode",
	KindGetSystemValue:  "get-system-value",
	KindSi5Detected:     "si5-detected",
	KindSi6Detected:     "si6-detected",
	KindSi8PlusDetected: "si8plus-detected",
	KindCardRemoved:     "card-removed",
	KindGetSi5:          "get-si5",
	KindGetSi6:          "get-si6",
	KindGetSi8Plus:      "get-si8plus",
	KindBeep:            "beep",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

var commandKinds = map[byte]Kind{
	CmdSetMasterMode:   KindSetMasterMode,
	CmdGetSystemValue:  KindGetSystemValue,
	CmdSi5Detected:     KindSi5Detected,
	CmdSi6Detected:     KindSi6Detected,
	CmdSi8PlusDetected: KindSi8PlusDetected,
	CmdCardRemoved:     KindCardRemoved,
	CmdGetSi5:          KindGetSi5,
	CmdGetSi6:          KindGetSi6,
	CmdGetSi8Plus:      KindGetSi8Plus,
	CmdBeep:            KindBeep,
}

// Message is an immutable SportIdent protocol message: either a command sent
// to the station or something the station sent back. Messages are comparable
// and two messages are equal when their byte sequences are.
type Message struct {
	seq  string
	head int // index of the STX opening the frame
}

// NewMessage wraps a copy of seq. A leading wakeup byte and a repeated STX are
// kept in the sequence but skipped when decoding fields.
func NewMessage(seq []byte) Message {
	m := Message{seq: string(seq)}
	for m.head < len(m.seq)-1 {
		b := m.seq[m.head]
		if b != frame.Wakeup && (b != frame.STX || m.seq[m.head+1] != frame.STX) {
			break
		}
		m.head++
	}
	return m
}

func command(cmd byte, data ...byte) Message {
	return NewMessage(frame.Encode(cmd, data))
}

// StartupSequence wakes the station and switches it to remote master mode.
var StartupSequence = NewMessage(append([]byte{frame.Wakeup, frame.STX},
	frame.Encode(CmdSetMasterMode, []byte{0x4D})...))

// Outbound commands with their exact device byte sequences. Reading block 8
// of a 10+ family card makes the station send blocks 0, 4, 5, 6 and 7.
var (
	GetProtocolConfiguration   = command(CmdGetSystemValue, addrProtocolConfig, 0x01)
	GetCardBlocksConfiguration = command(CmdGetSystemValue, addrCardBlocks, 0x01)
	Ack                        = NewMessage([]byte{frame.ACK})
	Nak                        = NewMessage([]byte{frame.NAK})
	ReadSiCard5                = command(CmdGetSi5)
	ReadSiCard6Block0          = command(CmdGetSi6, 0x00)
	ReadSiCard6Block6          = command(CmdGetSi6, 0x06)
	ReadSiCard6Block7          = command(CmdGetSi6, 0x07)
	ReadSiCard8PlusBlock0      = command(CmdGetSi8Plus, 0x00)
	ReadSiCard8PlusBlock1      = command(CmdGetSi8Plus, 0x01)
	ReadSiCard10PlusBlock8     = command(CmdGetSi8Plus, 0x08)
	Beep                       = command(CmdBeep, 0x01)
)

// Bytes returns a copy of the raw sequence.
func (m Message) Bytes() []byte {
	return []byte(m.seq)
}

// Len returns the length of the raw sequence.
func (m Message) Len() int {
	return len(m.seq)
}

// At returns the byte at index i of the frame, counted from its STX.
// It returns 0 when i is out of range.
func (m Message) At(i int) byte {
	i += m.head
	if i < 0 || i >= len(m.seq) {
		return 0
	}
	return m.seq[i]
}

// Command returns the command byte, or the control byte of a one byte message.
func (m Message) Command() byte {
	if len(m.seq)-m.head == 1 {
		return m.At(0)
	}
	return m.At(1)
}

// Kind classifies the message.
func (m Message) Kind() Kind {
	switch len(m.seq) - m.head {
	case 0:
		return KindUnknown
	case 1:
		switch m.At(0) {
		case frame.ACK:
			return KindAck
		case frame.NAK:
			return KindNak
		default:
			return KindUnknown
		}
	}
	if m.At(0) != frame.STX {
		return KindUnknown
	}
	if k, ok := commandKinds[m.Command()]; ok {
		return k
	}
	return KindUnknown
}

// String returns the kind and the hex dump of the sequence.
func (m Message) String() string {
	return fmt.Sprintf("%s [% X]", m.Kind(), []byte(m.seq))
}

// IsCardDetected reports whether the message announces an inserted card.
func (m Message) IsCardDetected() bool {
	switch m.Kind() {
	case KindSi5Detected, KindSi6Detected, KindSi8PlusDetected:
		return true
	default:
		return false
	}
}

// ExtendedProtocol reports whether a protocol configuration answer has the
// extended protocol bit set.
func (m Message) ExtendedProtocol() bool {
	return m.Kind() == KindGetSystemValue &&
		m.At(5) == addrProtocolConfig &&
		m.At(6)&extendedProtocolMask != 0
}

// Detection carries what a card insertion message tells about the card.
type Detection struct {
	Generation dataframe.Series
	CardNumber int
}

// Detection decodes a card insertion message. The payload is the station
// code followed by SI3 SI2 SI1 SI0; SI3 is the series byte of SI8+ cards.
func (m Message) Detection() (Detection, bool) {
	if len(m.seq)-m.head < 12 {
		return Detection{}, false
	}

	switch m.Kind() {
	case KindSi5Detected:
		number := int(m.At(7))<<8 | int(m.At(8))
		if cns := int(m.At(6)); cns > 1 {
			number += cns * 100000
		}
		return Detection{Generation: dataframe.SeriesSi5, CardNumber: number}, true
	case KindSi6Detected:
		return Detection{Generation: dataframe.SeriesSi6, CardNumber: m.cardNumber24()}, true
	case KindSi8PlusDetected:
		number := m.cardNumber24()
		return Detection{Generation: dataframe.DetectSeries(m.At(5), number), CardNumber: number}, true
	default:
		return Detection{}, false
	}
}

func (m Message) cardNumber24() int {
	return int(m.At(6))<<16 | int(m.At(7))<<8 | int(m.At(8))
}

// Data block replies: STX CMD LEN CN1 CN0 [BN] DATA... CRC1 CRC0 ETX.
// SI5 replies carry no block number.
const (
	si5DataStart   = 5
	blockNumberPos = 5
	blockDataStart = 6
)

// Block extracts the card memory block carried by a data reply.
func (m Message) Block() (dataframe.Block, bool) {
	var index, start int
	switch m.Kind() {
	case KindGetSi5:
		start = si5DataStart
	case KindGetSi6, KindGetSi8Plus:
		index, start = int(m.At(blockNumberPos)), blockDataStart
	default:
		return dataframe.Block{}, false
	}

	end := len(m.seq) - frame.TrailerLength
	if start+m.head >= end {
		return dataframe.Block{}, false
	}
	return dataframe.Block{Index: index, Data: []byte(m.seq[m.head+start : end])}, true
}
