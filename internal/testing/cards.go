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

// Package testing provides test utilities for the SportIdent driver: card
// memory images, station reply frames and a wire-level station simulator.
//
// The package works on raw bytes only so that it can be imported by the tests
// of every package in the module without an import cycle.
package testing

import "time"

// NoTime marks an unpunched time slot in a card image.
const NoTime time.Duration = -1

const (
	blockSize   = 128
	noTimeWord  = 0xEEEE
	twelveHours = 12 * time.Hour
)

// Series bytes of SI8 and newer cards
const (
	SeriesByteSi9      = 0x01
	SeriesByteSi8      = 0x02
	SeriesBytePCard    = 0x04
	SeriesByteSi10Plus = 0x0F
)

// CardPunch is one punch written into a card image.
type CardPunch struct {
	Time time.Duration
	Code int
}

// CardSpec describes the content of a card to encode into memory blocks.
type CardSpec struct {
	Punches []CardPunch
	Start   time.Duration
	Finish  time.Duration
	Check   time.Duration
	Number  int
}

func putWord(data []byte, off, v int) {
	data[off] = byte(v >> 8)
	data[off+1] = byte(v)
}

func put3(data []byte, off, v int) {
	data[off] = byte(v >> 16)
	data[off+1] = byte(v >> 8)
	data[off+2] = byte(v)
}

func si5Word(t time.Duration) int {
	if t == NoTime {
		return noTimeWord
	}
	return int((t % twelveHours) / time.Second)
}

// putRecord writes a four byte PTD CN PTH PTL record.
func putRecord(data []byte, off, code int, t time.Duration) {
	if t == NoTime {
		data[off] = byte(code>>8) << 6
		data[off+1] = byte(code)
		putWord(data, off+2, noTimeWord)
		return
	}
	var ptd byte
	if t >= twelveHours {
		ptd = 0x01
	}
	data[off] = byte(code>>8)<<6 | ptd
	data[off+1] = byte(code)
	putWord(data, off+2, si5Word(t))
}

// Si5Block encodes the card as the 128 byte memory of an SI5 card.
func (c CardSpec) Si5Block() []byte {
	data := make([]byte, blockSize)
	putWord(data, 0x04, c.Number%100000)
	data[0x06] = byte(c.Number / 100000)
	putWord(data, 0x13, si5Word(c.Start))
	putWord(data, 0x15, si5Word(c.Finish))
	data[0x17] = byte(len(c.Punches) + 1)
	putWord(data, 0x19, si5Word(c.Check))

	for i, p := range c.Punches {
		if i < 30 {
			off := 0x21 + (i/5)*0x10 + (i%5)*3
			data[off] = byte(p.Code)
			putWord(data, off+1, si5Word(p.Time))
			continue
		}
		data[0x20+(i-30)*0x10] = byte(p.Code)
	}
	return data
}

// Si6Blocks encodes the card as blocks 0, 6 and 7 of an SI6 card.
func (c CardSpec) Si6Blocks() map[int][]byte {
	data := make([]byte, 3*blockSize)
	put3(data, 0x0B, c.Number)
	data[0x12] = byte(len(c.Punches))
	putRecord(data, 0x14, 0, c.Finish)
	putRecord(data, 0x18, 0, c.Start)
	putRecord(data, 0x1C, 0, c.Check)
	for i, p := range c.Punches {
		putRecord(data, blockSize+i*4, p.Code, p.Time)
	}
	return split(data, 0, 6, 7)
}

// Si8PlusBlocks encodes the card as the blocks of an SI8 or newer card with
// the given series byte: blocks 0,1 or 0,4,5,6,7 for the 10+ family.
func (c CardSpec) Si8PlusBlocks(seriesByte byte) map[int][]byte {
	punchOffset, indices := 0x88, []int{0, 1}
	switch seriesByte {
	case SeriesByteSi9:
		punchOffset = 0x38
	case SeriesBytePCard:
		punchOffset = 0xB0
	case SeriesByteSi10Plus:
		punchOffset, indices = blockSize, []int{0, 4, 5, 6, 7}
	}

	data := make([]byte, len(indices)*blockSize)
	putRecord(data, 0x08, 0, c.Check)
	putRecord(data, 0x0C, 0, c.Start)
	putRecord(data, 0x10, 0, c.Finish)
	data[0x16] = byte(len(c.Punches))
	data[0x18] = seriesByte
	put3(data, 0x19, c.Number)
	for i, p := range c.Punches {
		putRecord(data, punchOffset+i*4, p.Code, p.Time)
	}
	return split(data, indices...)
}

func split(data []byte, indices ...int) map[int][]byte {
	blocks := make(map[int][]byte, len(indices))
	for i, idx := range indices {
		blocks[idx] = data[i*blockSize : (i+1)*blockSize]
	}
	return blocks
}
