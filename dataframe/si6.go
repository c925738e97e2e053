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

import "time"

// SI6 layout over the concatenation of blocks 0, 6 and 7
const (
	si6CardNumber   = 0x0B
	si6PunchCount   = 0x12
	si6FinishRecord = 0x14
	si6StartRecord  = 0x18
	si6CheckRecord  = 0x1C
	si6PunchesStart = BlockSize
	si6MaxPunches   = 64
)

// Si6Blocks lists the blocks read from an SI6 card, in read order.
var Si6Blocks = []int{0, 6, 7}

// Si6Frame holds the content of an SI6 card.
type Si6Frame struct {
	baseFrame
}

var _ DataFrame = (*Si6Frame)(nil)

// NewSi6Frame decodes blocks 0, 6 and 7 of an SI6 card.
func NewSi6Frame(blocks []Block) (*Si6Frame, error) {
	data, err := collect(blocks, Si6Blocks...)
	if err != nil {
		return nil, err
	}

	count := clampPunchCount(byteAt(data, si6PunchCount), si6MaxPunches)
	return &Si6Frame{baseFrame{
		cardNumber: threeBytesAt(data, si6CardNumber),
		series:     SeriesSi6,
		start:      recordTimeAt(data, si6StartRecord),
		finish:     recordTimeAt(data, si6FinishRecord),
		check:      recordTimeAt(data, si6CheckRecord),
		punches:    recordPunches(data, si6PunchesStart, count),
	}}, nil
}

// StartingAt returns f unchanged: SI6 records carry their own PM flag.
func (f *Si6Frame) StartingAt(time.Duration) DataFrame {
	return f
}

func recordPunches(data []byte, start, count int) []Punch {
	punches := make([]Punch, count)
	for i := range punches {
		off := start + i*4
		punches[i] = Punch{Code: recordCodeAt(data, off), Time: recordTimeAt(data, off)}
	}
	return punches
}
