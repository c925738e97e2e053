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

// SI5 block layout
const (
	si5CardNumber   = 0x04
	si5CardSeries   = 0x06
	si5StartTime    = 0x13
	si5FinishTime   = 0x15
	si5PunchCount   = 0x17
	si5CheckTime    = 0x19
	si5PunchesStart = 0x20
	si5PageSize     = 0x10

	si5TimedPunches = 30
	si5MaxPunches   = 36
)

// Si5Frame holds the content of an SI5 card. Its times use a 12 hour clock and
// must be resolved with StartingAt before they are meaningful as time of day.
type Si5Frame struct {
	baseFrame
}

var _ DataFrame = (*Si5Frame)(nil)

// NewSi5Frame decodes the single block returned by an SI5 read.
func NewSi5Frame(block Block) (*Si5Frame, error) {
	data, err := collect([]Block{block}, 0)
	if err != nil {
		return nil, err
	}

	number := wordAt(data, si5CardNumber)
	if cns := byteAt(data, si5CardSeries); cns > 1 {
		number += cns * 100000
	}

	count := clampPunchCount(byteAt(data, si5PunchCount)-1, si5MaxPunches)
	punches := make([]Punch, count)
	for i := range punches {
		punches[i] = si5PunchAt(data, i)
	}

	return &Si5Frame{baseFrame{
		cardNumber: number,
		series:     SeriesSi5,
		start:      timeAt(data, si5StartTime),
		finish:     timeAt(data, si5FinishTime),
		check:      timeAt(data, si5CheckTime),
		punches:    punches,
	}}, nil
}

// Each 16 byte page starts with the code of one untimed punch beyond the
// 30th, followed by five timed records of code + 12 hour time.
func si5PunchAt(data []byte, i int) Punch {
	if i < si5TimedPunches {
		off := si5PunchesStart + 1 + (i/5)*si5PageSize + (i%5)*3
		return Punch{Code: byteAt(data, off), Time: timeAt(data, off+1)}
	}
	off := si5PunchesStart + (i-si5TimedPunches)*si5PageSize
	return Punch{Code: byteAt(data, off), Time: NoTime}
}

// StartingAt resolves the 12 hour times relative to zeroHour: check and start
// follow zeroHour, punches follow each other, finish follows the last punch.
func (f *Si5Frame) StartingAt(zeroHour time.Duration) DataFrame {
	resolved := &Si5Frame{baseFrame{
		cardNumber: f.cardNumber,
		series:     f.series,
		punches:    make([]Punch, len(f.punches)),
	}}

	resolved.check = advanceTimePast(f.check, zeroHour, twelveHours)
	resolved.start = advanceTimePast(f.start, zeroHour, twelveHours)
	ref := newRefTime(zeroHour, resolved.start)
	for i, p := range f.punches {
		p.Time = advanceTimePast(p.Time, ref, twelveHours)
		ref = newRefTime(ref, p.Time)
		resolved.punches[i] = p
	}
	resolved.finish = advanceTimePast(f.finish, ref, twelveHours)
	return resolved
}
