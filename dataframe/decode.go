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

package dataframe

import (
	"fmt"
	"time"
)

const (
	noTimeWord  = 0xEEEE
	twelveHours = 12 * time.Hour
)

func byteAt(data []byte, off int) int {
	return int(data[off])
}

func wordAt(data []byte, off int) int {
	return int(data[off])<<8 | int(data[off+1])
}

func threeBytesAt(data []byte, off int) int {
	return int(data[off])<<16 | int(data[off+1])<<8 | int(data[off+2])
}

// timeAt decodes a two byte 12 hour clock value in seconds.
func timeAt(data []byte, off int) time.Duration {
	w := wordAt(data, off)
	if w == noTimeWord {
		return NoTime
	}
	return time.Duration(w) * time.Second
}

// recordTimeAt decodes the time of a four byte punch record:
// PTD (flags), CN (code), PTH, PTL. Bit 0 of PTD is the PM flag.
func recordTimeAt(data []byte, off int) time.Duration {
	t := timeAt(data, off+2)
	if t == NoTime {
		return NoTime
	}
	if data[off]&0x01 != 0 {
		t += twelveHours
	}
	return t
}

// recordCodeAt decodes the station code of a four byte punch record. Codes
// above 255 carry their high bits in the top of PTD.
func recordCodeAt(data []byte, off int) int {
	return int(data[off]>>6)<<8 | int(data[off+1])
}

// collect checks that blocks arrived with exactly the wanted indices, in
// order, and returns their concatenated content.
func collect(blocks []Block, want ...int) ([]byte, error) {
	if len(blocks) != len(want) {
		return nil, fmt.Errorf("%w: got %d blocks, want %d", ErrIncompleteFrame, len(blocks), len(want))
	}

	data := make([]byte, 0, len(want)*BlockSize)
	for i, b := range blocks {
		if b.Index != want[i] {
			return nil, fmt.Errorf("%w: block %d at position %d, want %d", ErrUnexpectedBlock, b.Index, i, want[i])
		}
		if len(b.Data) < BlockSize {
			return nil, fmt.Errorf("%w: block %d has %d bytes", ErrBlockSize, b.Index, len(b.Data))
		}
		data = append(data, b.Data[:BlockSize]...)
	}
	return data, nil
}

func clampPunchCount(n, maxPunches int) int {
	if n < 0 {
		return 0
	}
	if n > maxPunches {
		return maxPunches
	}
	return n
}

// advanceTimePast shifts t by whole steps until it is no earlier than one hour
// before ref. Times up to an hour before ref are kept to tolerate unsynced
// station clocks.
func advanceTimePast(t, ref, step time.Duration) time.Duration {
	if t == NoTime {
		return NoTime
	}
	if ref == NoTime {
		return t
	}
	base := ref - time.Hour
	for t < base {
		t += step
	}
	return t
}

func newRefTime(ref, current time.Duration) time.Duration {
	if current != NoTime {
		return current
	}
	return ref
}
